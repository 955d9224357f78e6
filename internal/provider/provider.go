package provider

import (
	"context"
	"regexp"
)

// StatusSucceeded is the single payment authorization status that allows
// provisioning to proceed.
const StatusSucceeded = "succeeded"

// Authorization is the provider-owned record of a payment authorization,
// read-only on this side. Its metadata bag carries the registration payload
// set at checkout time.
type Authorization struct {
	ID          string
	Status      string
	AmountCents int64
	Currency    string
	CustomerID  string
	Metadata    map[string]string
}

// Verifier retrieves the authoritative state of a payment authorization.
// This is the trust boundary of the provisioning workflow: nothing
// downstream may re-derive success from client-supplied data.
type Verifier interface {
	// Verify returns the authorization when it exists and has succeeded.
	// Any transport or lookup failure maps to errors.ErrPaymentNotFound
	// (fail closed); a non-succeeded status maps to
	// errors.ErrPaymentNotCompleted carrying the actual status.
	Verify(ctx context.Context, intentID string) (*Authorization, error)
}

var intentIDPattern = regexp.MustCompile(`^pi_[A-Za-z0-9]{8,}$`)

// ValidIntentID reports whether id matches the provider's payment intent
// identifier shape. Checked before any network call.
func ValidIntentID(id string) bool {
	return intentIDPattern.MatchString(id)
}
