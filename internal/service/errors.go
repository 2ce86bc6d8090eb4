package service

import (
	"errors"
	"fmt"
)

var (
	ErrClaimNotFound      = errors.New("claim not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrForbidden is returned when the actor is not allowed to touch the
	// claim (wrong owner or insufficient role).
	ErrForbidden = errors.New("forbidden")

	// ErrConflict is returned when a save lost the optimistic-concurrency
	// race with another writer.
	ErrConflict = errors.New("claim was modified concurrently")
)

// ValidationError covers malformed input and illegal status transitions.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationf(format string, args ...any) *ValidationError {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}
