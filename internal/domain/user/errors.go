package user

import "errors"

var (
	ErrNotFound = errors.New("user not found")

	// ErrEmailTaken surfaces the store-level unique constraint on email;
	// uniqueness is never pre-checked in application code.
	ErrEmailTaken = errors.New("email already in use")
)
