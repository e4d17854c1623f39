package user

// Role is the closed authorization tier. It governs both business
// permissions and rate-limit generosity.
type Role string

const (
	RoleGuest Role = "guest"
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// RoleOf maps a (possibly empty or unknown) role string from a resolved
// identity to the closed enumeration. Anonymous callers and tokens carrying
// an unrecognized role both degrade to guest.
func RoleOf(role string) Role {
	switch role {
	case string(RoleAdmin):
		return RoleAdmin
	case string(RoleUser):
		return RoleUser
	default:
		return RoleGuest
	}
}

func (r Role) String() string {
	return string(r)
}
