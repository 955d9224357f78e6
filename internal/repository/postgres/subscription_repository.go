package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/corvael/provision-api/internal/domain/registration"
	"github.com/corvael/provision-api/internal/domain/subscription"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SubscriptionRepository implements subscription.Repository using PostgreSQL.
type SubscriptionRepository struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepository creates a new SubscriptionRepository.
func NewSubscriptionRepository(pool *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{pool: pool}
}

// Upsert inserts or updates the record keyed on email in a single atomic
// statement. Concurrent duplicate submissions for the same email converge to
// one final record regardless of arrival order.
func (r *SubscriptionRepository) Upsert(ctx context.Context, rec *subscription.Record) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO subscriptions (email, user_id, active, tier, expires_at, payment_intent_id, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (email) DO UPDATE SET
		     user_id = EXCLUDED.user_id,
		     active = EXCLUDED.active,
		     tier = EXCLUDED.tier,
		     expires_at = EXCLUDED.expires_at,
		     payment_intent_id = EXCLUDED.payment_intent_id,
		     updated_at = EXCLUDED.updated_at`,
		rec.Email, rec.UserID, rec.Active, string(rec.Tier), rec.ExpiresAt, rec.PaymentIntentID, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return nil
}

// GetByEmail retrieves the record for an email. Returns (nil, nil) when
// absent.
func (r *SubscriptionRepository) GetByEmail(ctx context.Context, email string) (*subscription.Record, error) {
	rec := &subscription.Record{}
	var tier string
	err := r.pool.QueryRow(ctx,
		`SELECT email, user_id, active, tier, expires_at, payment_intent_id, updated_at
		 FROM subscriptions WHERE email = $1`, email,
	).Scan(&rec.Email, &rec.UserID, &rec.Active, &tier, &rec.ExpiresAt, &rec.PaymentIntentID, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get subscription by email: %w", err)
	}
	rec.Tier = registration.Tier(tier)
	return rec, nil
}
