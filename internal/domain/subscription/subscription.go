package subscription

import (
	"time"

	"github.com/corvael/provision-api/internal/domain/registration"
	"github.com/google/uuid"
)

const (
	monthlyTerm = 30 * 24 * time.Hour
	yearlyTerm  = 365 * 24 * time.Hour
)

// Record is the subscription/billing record for an account, keyed by email.
// At most one record exists per email; writes are upserts on that key, so
// re-processing the same payment intent is a no-op state transition rather
// than a duplicate insert. The workflow never deletes a record.
type Record struct {
	Email           string
	UserID          uuid.UUID
	Active          bool
	Tier            registration.Tier
	ExpiresAt       time.Time
	PaymentIntentID string // intent that last updated the record
	UpdatedAt       time.Time
}

// NewRecord builds the active subscription record for a provisioned account.
func NewRecord(userID uuid.UUID, meta registration.Metadata, paymentIntentID string, now time.Time) *Record {
	return &Record{
		Email:           meta.Email,
		UserID:          userID,
		Active:          true,
		Tier:            meta.Tier,
		ExpiresAt:       ExpiryFrom(now, meta.BillingPeriod),
		PaymentIntentID: paymentIntentID,
		UpdatedAt:       now,
	}
}

// ExpiryFrom computes the subscription expiry for a billing period: exactly
// 30 days out for monthly, 365 for yearly.
func ExpiryFrom(now time.Time, period registration.BillingPeriod) time.Time {
	if period == registration.BillingYearly {
		return now.Add(yearlyTerm)
	}
	return now.Add(monthlyTerm)
}
