package user

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for user account persistence.
type Repository interface {
	// Create inserts a new account.
	Create(ctx context.Context, account *Account) error

	// GetByEmail retrieves an account by normalized email. Returns (nil, nil)
	// when no account exists, so lookups are non-enumerating for callers.
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// Update persists changes to an existing account.
	Update(ctx context.Context, account *Account) error

	// Delete removes an account by id. Used only to compensate an account
	// created earlier in the same request.
	Delete(ctx context.Context, id uuid.UUID) error
}
