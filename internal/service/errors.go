// Package service provides business logic for the application.
package service

import (
	"errors"
	"strings"
)

// Service errors. Handlers map these to HTTP statuses with errors.Is.
var (
	ErrCredentialsRequired = errors.New("username and password required")
	ErrUsernameTooLong     = errors.New("username must be at most 80 characters")
	ErrUsernameTaken       = errors.New("username already exists")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUserNotFound        = errors.New("user not found")
	ErrNulCharacter        = errors.New("text must not contain NUL characters")

	ErrNoteFieldsRequired = errors.New("title and content required")
	ErrNoteFieldEmpty     = errors.New("title and content must not be empty")
	ErrTitleTooLong       = errors.New("title must be at most 120 characters")
	ErrNoteNotFound       = errors.New("note not found")
	ErrForbidden          = errors.New("forbidden")
)

// Field limits mirrored by the database schema.
const (
	MaxUsernameLength = 80
	MaxTitleLength    = 120
)

// hasNul reports whether any of the values contains a NUL byte, which
// Postgres text columns reject.
func hasNul(values ...string) bool {
	for _, v := range values {
		if strings.IndexByte(v, 0) >= 0 {
			return true
		}
	}
	return false
}
