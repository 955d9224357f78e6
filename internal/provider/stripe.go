package provider

import (
	"context"
	"fmt"
	"time"

	domainErrors "github.com/corvael/provision-api/internal/domain/errors"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/paymentintent"
)

// StripeVerifier implements Verifier against the Stripe API.
type StripeVerifier struct {
	breaker *gobreaker.CircuitBreaker[*Authorization]
}

// NewStripeVerifier creates a verifier using the given secret key. The key
// comes from the environment and is never logged.
func NewStripeVerifier(secretKey string) *StripeVerifier {
	stripe.Key = secretKey

	return &StripeVerifier{
		breaker: gobreaker.NewCircuitBreaker[*Authorization](gobreaker.Settings{
			Name:        "stripe",
			MaxRequests: 10,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 10 && failureRatio >= 0.6
			},
		}),
	}
}

// Verify retrieves the payment intent and asserts it succeeded. Fails
// closed: transport errors, unknown ids, and an open circuit all classify as
// "payment not found" rather than being treated as success.
func (v *StripeVerifier) Verify(ctx context.Context, intentID string) (*Authorization, error) {
	auth, err := v.breaker.Execute(func() (*Authorization, error) {
		pi, err := paymentintent.Get(intentID, &stripe.PaymentIntentParams{
			Params: stripe.Params{Context: ctx},
		})
		if err != nil {
			return nil, err
		}
		return fromIntent(pi), nil
	})
	if err != nil {
		log.Warn().Err(err).Msg("payment intent lookup failed")
		return nil, fmt.Errorf("retrieve payment intent: %w", domainErrors.ErrPaymentNotFound)
	}

	if auth.Status != StatusSucceeded {
		return nil, domainErrors.NotCompleted(auth.Status)
	}
	return auth, nil
}

func fromIntent(pi *stripe.PaymentIntent) *Authorization {
	a := &Authorization{
		ID:          pi.ID,
		Status:      string(pi.Status),
		AmountCents: pi.Amount,
		Currency:    string(pi.Currency),
		Metadata:    pi.Metadata,
	}
	if pi.Customer != nil {
		a.CustomerID = pi.Customer.ID
	}
	return a
}
