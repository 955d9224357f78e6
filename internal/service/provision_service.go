package service

import (
	"context"
	"fmt"
	"time"

	domainErrors "github.com/corvael/provision-api/internal/domain/errors"
	"github.com/corvael/provision-api/internal/domain/registration"
	"github.com/corvael/provision-api/internal/domain/subscription"
	"github.com/corvael/provision-api/internal/domain/user"
	"github.com/corvael/provision-api/internal/observability"
	"github.com/corvael/provision-api/internal/provider"
	"github.com/corvael/provision-api/pkg/retry"
	"github.com/corvael/provision-api/pkg/saga"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ProvisionService turns a completed payment authorization into a durable,
// unique user account plus an active subscription record — exactly once.
// Each step is awaited before the next begins; the service never retries a
// failed provider or persistence call, since the caller retries the whole
// request and storage-level upserts make that safe.
type ProvisionService struct {
	users         user.Repository
	subscriptions subscription.Repository
	verifier      provider.Verifier
	signIn        SignInLinkIssuer
	metrics       *observability.Metrics
	now           func() time.Time
}

// NewProvisionService creates a new ProvisionService. signIn may be nil,
// in which case no sign-in links are issued.
func NewProvisionService(
	users user.Repository,
	subscriptions subscription.Repository,
	verifier provider.Verifier,
	signIn SignInLinkIssuer,
	metrics *observability.Metrics,
) *ProvisionService {
	return &ProvisionService{
		users:         users,
		subscriptions: subscriptions,
		verifier:      verifier,
		signIn:        signIn,
		metrics:       metrics,
		now:           time.Now,
	}
}

// ProvisionResult is the outcome of a provisioning run.
type ProvisionResult struct {
	UserID           uuid.UUID
	Email            string
	Tier             registration.Tier
	SignInURL        string
	AlreadyProcessed bool
}

// userOutcome is the two-variant result of provisionUser: a created account
// carries its rollback, an updated pre-existing account does not. Rollback
// registration is driven by the variant, never by a threaded flag.
type userOutcome struct {
	account  *user.Account
	rollback func(ctx context.Context) error
}

// Provision runs the payment-to-account workflow for a payment intent id.
// Validation and verification happen before any side effect; failures after
// the first write trigger compensation and then return the original error.
func (s *ProvisionService) Provision(ctx context.Context, paymentIntentID string) (*ProvisionResult, error) {
	start := s.now()
	res, err := s.provision(ctx, paymentIntentID)
	s.metrics.ProvisionDuration.WithLabelValues(outcomeLabel(res, err)).Observe(time.Since(start).Seconds())
	s.metrics.ProvisionsTotal.WithLabelValues(outcomeLabel(res, err)).Inc()
	return res, err
}

func (s *ProvisionService) provision(ctx context.Context, paymentIntentID string) (*ProvisionResult, error) {
	log := zerolog.Ctx(ctx)

	if !provider.ValidIntentID(paymentIntentID) {
		return nil, domainErrors.NewValidationError("paymentIntentId", "must be a valid payment intent id")
	}

	// Trust boundary: only the provider's own record determines whether
	// provisioning proceeds.
	auth, err := s.verifier.Verify(ctx, paymentIntentID)
	if err != nil {
		return nil, err
	}

	meta, err := registration.FromIntentMetadata(auth.Metadata)
	if err != nil {
		return nil, err
	}

	// Repeat of a fully-completed prior run: answer from the stored record
	// without touching the provisioner or ledger. Advisory only; a true
	// concurrent race is resolved by the ledger's upsert-by-email.
	prior, err := s.subscriptions.GetByEmail(ctx, meta.Email)
	if err != nil {
		return nil, fmt.Errorf("idempotency lookup: %w", err)
	}
	if prior != nil && prior.PaymentIntentID == paymentIntentID {
		log.Info().Str("payment_intent_id", paymentIntentID).Msg("payment already processed, returning prior result")
		res := &ProvisionResult{
			UserID:           prior.UserID,
			Email:            prior.Email,
			Tier:             prior.Tier,
			AlreadyProcessed: true,
		}
		res.SignInURL = s.issueSignInLink(ctx, prior.Email)
		return res, nil
	}

	comp := saga.NewCompensator("provision")

	outcome, err := s.provisionUser(ctx, meta, paymentIntentID)
	if err != nil {
		return nil, err
	}
	if outcome.rollback != nil {
		comp.Push("delete created user account", outcome.rollback)
	}

	record := subscription.NewRecord(outcome.account.ID, meta, paymentIntentID, s.now())
	if err := s.subscriptions.Upsert(ctx, record); err != nil {
		s.compensate(ctx, comp)
		return nil, fmt.Errorf("subscription upsert: %w", err)
	}

	log.Info().
		Str("payment_intent_id", paymentIntentID).
		Str("user_id", outcome.account.ID.String()).
		Str("tier", string(meta.Tier)).
		Msg("account provisioned")

	res := &ProvisionResult{
		UserID: outcome.account.ID,
		Email:  meta.Email,
		Tier:   meta.Tier,
	}
	// Post-commit hook: issuance cannot affect the outcome or status code.
	res.SignInURL = s.issueSignInLink(ctx, meta.Email)
	return res, nil
}

// provisionUser finds or creates the account for the validated email. The
// lookup is non-enumerating: new and pre-existing accounts produce the same
// downstream behavior and response shape. Updates to a pre-existing account
// are not rolled back, since undoing them could destroy legitimate prior
// state.
func (s *ProvisionService) provisionUser(ctx context.Context, meta registration.Metadata, paymentIntentID string) (*userOutcome, error) {
	existing, err := s.users.GetByEmail(ctx, meta.Email)
	if err != nil {
		return nil, fmt.Errorf("user lookup: %w", err)
	}

	if existing != nil {
		existing.ApplyRegistration(meta, paymentIntentID)
		if err := s.users.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("user update: %w", err)
		}
		return &userOutcome{account: existing}, nil
	}

	account, err := user.New(meta, paymentIntentID)
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("user create: %w", err)
	}
	return &userOutcome{
		account: account,
		rollback: func(ctx context.Context) error {
			return s.users.Delete(ctx, account.ID)
		},
	}, nil
}

// compensate undoes recorded side effects. Its own failure is logged only;
// the original workflow error is what propagates to the caller.
func (s *ProvisionService) compensate(ctx context.Context, comp *saga.Compensator) {
	if comp.Len() == 0 {
		s.metrics.CompensationsTotal.WithLabelValues("noop").Inc()
		return
	}
	if err := comp.Run(ctx); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("compensation failed")
		s.metrics.CompensationsTotal.WithLabelValues("error").Inc()
		return
	}
	s.metrics.CompensationsTotal.WithLabelValues("ok").Inc()
}

// issueSignInLink is best-effort: failures are logged and the link omitted.
func (s *ProvisionService) issueSignInLink(ctx context.Context, email string) string {
	if s.signIn == nil {
		return ""
	}

	cfg := retry.DefaultConfig()
	cfg.Attempts = 2
	cfg.InitialDelay = 100 * time.Millisecond

	link, err := retry.DoWithResult(ctx, cfg, func() (string, error) {
		return s.signIn.Issue(ctx, email)
	})
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("sign-in link issuance failed")
		s.metrics.SignInLinksTotal.WithLabelValues("failed").Inc()
		return ""
	}
	s.metrics.SignInLinksTotal.WithLabelValues("issued").Inc()
	return link
}

func outcomeLabel(res *ProvisionResult, err error) string {
	switch {
	case err != nil:
		return "failed"
	case res.AlreadyProcessed:
		return "repeat"
	default:
		return "provisioned"
	}
}
