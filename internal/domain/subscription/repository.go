package subscription

import "context"

// Repository defines the interface for subscription persistence.
type Repository interface {
	// Upsert inserts or updates the record keyed on email as one atomic
	// persistence operation. This atomicity is what makes concurrent
	// duplicate submissions for the same email converge to one final record.
	Upsert(ctx context.Context, record *Record) error

	// GetByEmail retrieves the record for an email. Returns (nil, nil) when
	// none exists.
	GetByEmail(ctx context.Context, email string) (*Record, error)
}
