package service

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned for a caller mistake wraps one of these.
var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrDuplicateUsername  = errors.New("duplicate username")
	ErrDuplicateEmail     = errors.New("duplicate email")
	ErrAlreadyMember      = errors.New("already member")
	ErrValidation         = errors.New("validation failed")
)

// Messages shown to API clients.
const (
	msgCredentials      = "Could not validate credentials"
	msgUsernameExists   = "Username already exists"
	msgEmailExists      = "Email already registered"
	msgUserNotFound     = "User not found"
	msgProjectNotFound  = "Project not found"
	msgTaskNotFound     = "Task not found"
	msgMemberNotFound   = "Member not found"
	msgAlreadyMember    = "User is already a member of this project"
	msgProjectForbidden = "Not authorized to access this project"
)

// Error is a domain error carrying a client-facing message.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// IsDomainError reports whether err is a caller error rather than a failure.
func IsDomainError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// Message returns the client-facing message of err, or "" for failures.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ""
}
