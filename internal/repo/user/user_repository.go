package user

import (
	"context"

	"github.com/Bars-377/web-chat/internal/domain"
)

// Repository defines the credential store. Implementations run inside a
// transaction owned by the caller, who rolls back when an operation fails.
type Repository interface {
	// FindByUsername retrieves a user by their username.
	// Returns the user and true if found, or nil and false if not found.
	FindByUsername(ctx context.Context, username string) (*domain.User, bool, error)

	// FindByEmail retrieves a user by their email address.
	// Returns the user and true if found, or nil and false if not found.
	FindByEmail(ctx context.Context, email string) (*domain.User, bool, error)

	// Create adds a new user and returns it with its assigned ID.
	// Returns a *domain.ConflictError if the username or email is already taken.
	Create(ctx context.Context, username, email string, passwordHash []byte) (*domain.User, error)
}
