package utils

// Cache key builders for the user read path. Versioned so a shape change
// only needs a version bump, not a cache flush.

const usersListCacheKey = "users:list:v1"

func BuildUsersListCacheKey() string {
	return usersListCacheKey
}

func BuildUserCacheKey(id string) string {
	return "users:id:v1:" + id
}
