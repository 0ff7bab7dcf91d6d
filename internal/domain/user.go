package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUserAlreadyExists is returned when trying to create a user with an existing username or email.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrUserNotFound is returned when looking up a non-existent user.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials is returned when the username/password combination is incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Fields that must be unique across all users.
const (
	FieldUsername = "username"
	FieldEmail    = "email"
)

// User represents a registered chat user.
type User struct {
	ID           int64  // Unique identifier
	Username     string // Login username, unique
	Email        string // Contact address, unique
	PasswordHash []byte // Hashed password
	CreatedAt    int64  // Unix timestamp of account creation
}

// ConflictError is returned when a uniqueness invariant of a user would be violated.
// Field names the offending attribute, either FieldUsername or FieldEmail.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already registered", e.Field)
}

// Unwrap allows errors.Is(err, ErrUserAlreadyExists).
func (e *ConflictError) Unwrap() error {
	return ErrUserAlreadyExists
}
