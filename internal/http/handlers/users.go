package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/accounthub/internal/cache"
	"github.com/geocoder89/accounthub/internal/config"
	"github.com/geocoder89/accounthub/internal/domain/user"
	"github.com/geocoder89/accounthub/internal/http/middlewares"
	"github.com/geocoder89/accounthub/internal/security"
	"github.com/geocoder89/accounthub/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type UsersStore interface {
	GetByID(ctx context.Context, id string) (user.User, error)
	List(ctx context.Context) ([]user.User, error)
	Update(ctx context.Context, id string, req user.UpdateUserRequest) (user.User, error)
	Delete(ctx context.Context, id string) error
}

type UsersHandler struct {
	repo  UsersStore
	cache *cache.Cache
}

// NewUsersHandler wires the handler to a store and a read cache.
// c may be nil to disable caching.
func NewUsersHandler(repo UsersStore, c *cache.Cache) *UsersHandler {
	return &UsersHandler{repo: repo, cache: c}
}

func (h *UsersHandler) ListUsers(ctx *gin.Context) {
	key := utils.BuildUsersListCacheKey()

	if h.cache != nil {
		if v, ok := h.cache.Get(key); ok {
			if users, ok := v.([]user.User); ok {
				RespondJSONWithETag(ctx, http.StatusOK, gin.H{"items": users, "count": len(users)})
				return
			}
		}
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	users, err := h.repo.List(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not list users")
		return
	}

	if h.cache != nil {
		h.cache.Set(key, users)
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{"items": users, "count": len(users)})
}

func (h *UsersHandler) GetUserByID(ctx *gin.Context) {
	id := ctx.Param("id")

	if _, err := uuid.Parse(id); err != nil {
		RespondBadRequest(ctx, "id must be a valid UUID", nil)
		return
	}

	key := utils.BuildUserCacheKey(id)

	if h.cache != nil {
		if v, ok := h.cache.Get(key); ok {
			if u, ok := v.(user.User); ok {
				RespondJSONWithETag(ctx, http.StatusOK, gin.H{"user": u})
				return
			}
		}
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not fetch user")
		return
	}

	if h.cache != nil {
		h.cache.Set(key, u)
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{"user": u})
}

func (h *UsersHandler) UpdateUser(ctx *gin.Context) {
	id := ctx.Param("id")

	if _, err := uuid.Parse(id); err != nil {
		RespondBadRequest(ctx, "id must be a valid UUID", nil)
		return
	}

	var req user.UpdateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if !req.HasUpdates() {
		RespondBadRequest(ctx, "At least one field must be provided", nil)
		return
	}

	actorID, _ := middlewares.UserIDFromContext(ctx)
	actorRole, _ := middlewares.RoleFromContext(ctx)

	// ownership + role rules: a non-admin may only touch their own record
	// and may never change the role field
	if user.RoleOf(actorRole) != user.RoleAdmin {
		if actorID != id {
			RespondForbidden(ctx, "forbidden", "You can only update your own account")
			return
		}

		if req.Role != nil {
			RespondForbidden(ctx, "forbidden", "You cannot change roles")
			return
		}
	}

	if req.Password != nil {
		hash, err := security.HashPassword(*req.Password)
		if err != nil {
			RespondInternal(ctx, "Could not update user")
			return
		}
		req.Password = &hash
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, err := h.repo.Update(cctx, id, req)

	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			RespondNotFound(ctx, "User not found")
		case errors.Is(err, user.ErrEmailTaken):
			RespondConflict(ctx, "email_taken", "Email is already in use.")
		default:
			RespondInternal(ctx, "Could not update user")
		}
		return
	}

	h.invalidate(id)

	ctx.JSON(http.StatusOK, gin.H{"user": u})
}

func (h *UsersHandler) DeleteUser(ctx *gin.Context) {
	id := ctx.Param("id")

	if _, err := uuid.Parse(id); err != nil {
		RespondBadRequest(ctx, "id must be a valid UUID", nil)
		return
	}

	actorID, _ := middlewares.UserIDFromContext(ctx)

	// admins cannot remove themselves
	if actorID == id {
		RespondForbidden(ctx, "forbidden", "You cannot delete your own account")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	err := h.repo.Delete(cctx, id)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not delete user")
		return
	}

	h.invalidate(id)

	ctx.Status(http.StatusNoContent)
}

func (h *UsersHandler) invalidate(id string) {
	if h.cache == nil {
		return
	}

	h.cache.Delete(utils.BuildUsersListCacheKey())
	h.cache.Delete(utils.BuildUserCacheKey(id))
}
