package user

import (
	"time"

	"github.com/google/uuid"
)

// NewFromSignUp builds a User from a validated sign-up request and an
// already-hashed password. Role defaults to "user" when the request left
// it empty.
func NewFromSignUp(req SignUpRequest, passwordHash string) User {
	now := time.Now().UTC()

	role := req.Role
	if role == "" {
		role = string(RoleUser)
	}

	return User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: passwordHash,
		Name:         req.Name,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
