package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/corvael/provision-api/internal/domain/errors"
	"github.com/corvael/provision-api/internal/domain/registration"
	"github.com/corvael/provision-api/internal/domain/subscription"
	"github.com/corvael/provision-api/internal/domain/user"
	"github.com/corvael/provision-api/internal/observability"
	"github.com/corvael/provision-api/internal/provider"
	"github.com/corvael/provision-api/internal/testutil"
)

const testIntentID = "pi_3NrXyZAbCdEf1234"

func validMetadata() map[string]string {
	return map[string]string{
		"email":         "jane.doe@example.com",
		"firstName":     "Jane",
		"lastName":      "Doe",
		"company":       "Acme Corp",
		"companySize":   "11-50",
		"tier":          "professional",
		"billingPeriod": "monthly",
	}
}

func succeededIntent(metadata map[string]string) *provider.Authorization {
	return &provider.Authorization{
		ID:          testIntentID,
		Status:      provider.StatusSucceeded,
		AmountCents: 4900,
		Currency:    "usd",
		Metadata:    metadata,
	}
}

type serviceFixture struct {
	svc      *ProvisionService
	users    *testutil.MockUserRepository
	subs     *testutil.MockSubscriptionRepository
	verifier *testutil.MockVerifier
	signIn   *testutil.MockSignInIssuer
	now      time.Time
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	f := &serviceFixture{
		users:    testutil.NewMockUserRepository(),
		subs:     testutil.NewMockSubscriptionRepository(),
		verifier: &testutil.MockVerifier{},
		signIn:   &testutil.MockSignInIssuer{},
		now:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.verifier.VerifyFunc = func(_ context.Context, _ string) (*provider.Authorization, error) {
		return succeededIntent(validMetadata()), nil
	}

	metrics := observability.NewMetrics("test", prometheus.NewRegistry())
	f.svc = NewProvisionService(f.users, f.subs, f.verifier, f.signIn, metrics)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func TestProvision_CreatesUserAndSubscription(t *testing.T) {
	f := newServiceFixture(t)

	res, err := f.svc.Provision(context.Background(), testIntentID)
	require.NoError(t, err)

	assert.False(t, res.AlreadyProcessed)
	assert.Equal(t, "jane.doe@example.com", res.Email)
	assert.Equal(t, registration.TierProfessional, res.Tier)
	assert.NotEmpty(t, res.SignInURL)
	assert.NotEqual(t, uuid.Nil, res.UserID)

	account := f.users.AccountByEmail("jane.doe@example.com")
	require.NotNil(t, account)
	assert.Equal(t, res.UserID, account.ID)
	assert.Equal(t, "Jane", account.FirstName)
	assert.True(t, account.PaidRegistration)
	assert.True(t, account.EmailConfirmed)
	assert.Equal(t, testIntentID, account.ProvisionedBy)
	assert.NotEmpty(t, account.PasswordHash)

	rec := f.subs.RecordByEmail("jane.doe@example.com")
	require.NotNil(t, rec)
	assert.True(t, rec.Active)
	assert.Equal(t, registration.TierProfessional, rec.Tier)
	assert.Equal(t, account.ID, rec.UserID)
	assert.Equal(t, testIntentID, rec.PaymentIntentID)
	assert.Equal(t, f.now.Add(30*24*time.Hour), rec.ExpiresAt)
}

func TestProvision_YearlyExpiry(t *testing.T) {
	f := newServiceFixture(t)
	meta := validMetadata()
	meta["billingPeriod"] = "yearly"
	f.verifier.VerifyFunc = func(_ context.Context, _ string) (*provider.Authorization, error) {
		return succeededIntent(meta), nil
	}

	_, err := f.svc.Provision(context.Background(), testIntentID)
	require.NoError(t, err)

	rec := f.subs.RecordByEmail("jane.doe@example.com")
	require.NotNil(t, rec)
	assert.Equal(t, f.now.Add(365*24*time.Hour), rec.ExpiresAt)
}

func TestProvision_ExistingUserIsUpdatedNotDuplicated(t *testing.T) {
	f := newServiceFixture(t)

	existing := &user.Account{
		ID:           uuid.New(),
		Email:        "jane.doe@example.com",
		FirstName:    "Janet",
		PasswordHash: "$2a$10$existinghash",
		CreatedAt:    f.now.Add(-90 * 24 * time.Hour),
	}
	require.NoError(t, f.users.Create(context.Background(), existing))
	f.users.CreateCalls = 0

	res, err := f.svc.Provision(context.Background(), testIntentID)
	require.NoError(t, err)

	// Same response shape as the new-account path: nothing reveals that the
	// email was already registered.
	assert.False(t, res.AlreadyProcessed)
	assert.Equal(t, existing.ID, res.UserID)
	assert.NotEmpty(t, res.SignInURL)

	assert.Equal(t, 0, f.users.CreateCalls)
	assert.Equal(t, 1, f.users.UpdateCalls)
	assert.Equal(t, 1, f.users.Len())

	account := f.users.AccountByEmail("jane.doe@example.com")
	assert.Equal(t, "Jane", account.FirstName)
	assert.Equal(t, "$2a$10$existinghash", account.PasswordHash, "existing credential must be preserved")

	rec := f.subs.RecordByEmail("jane.doe@example.com")
	require.NotNil(t, rec)
	assert.Equal(t, existing.ID, rec.UserID)
}

func TestProvision_RepeatIntentReturnsPriorResult(t *testing.T) {
	f := newServiceFixture(t)

	res1, err := f.svc.Provision(context.Background(), testIntentID)
	require.NoError(t, err)

	createCalls := f.users.CreateCalls
	upsertCalls := f.subs.UpsertCalls

	res2, err := f.svc.Provision(context.Background(), testIntentID)
	require.NoError(t, err)

	assert.True(t, res2.AlreadyProcessed)
	assert.Equal(t, res1.UserID, res2.UserID)
	assert.Equal(t, res1.Email, res2.Email)
	assert.Equal(t, res1.Tier, res2.Tier)
	assert.NotEmpty(t, res2.SignInURL)

	// The repeat run touches neither the user store nor the ledger.
	assert.Equal(t, createCalls, f.users.CreateCalls)
	assert.Equal(t, 0, f.users.UpdateCalls)
	assert.Equal(t, upsertCalls, f.subs.UpsertCalls)
}

func TestProvision_NewIntentSameEmailRenews(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.Provision(context.Background(), testIntentID)
	require.NoError(t, err)

	const renewalIntent = "pi_3RenewalXyZ98765"
	meta := validMetadata()
	meta["tier"] = "enterprise"
	meta["billingPeriod"] = "yearly"
	f.verifier.VerifyFunc = func(_ context.Context, _ string) (*provider.Authorization, error) {
		auth := succeededIntent(meta)
		auth.ID = renewalIntent
		return auth, nil
	}

	res, err := f.svc.Provision(context.Background(), renewalIntent)
	require.NoError(t, err)

	assert.False(t, res.AlreadyProcessed)
	assert.Equal(t, 1, f.subs.Len(), "renewal overwrites the single record per email")

	rec := f.subs.RecordByEmail("jane.doe@example.com")
	assert.Equal(t, registration.TierEnterprise, rec.Tier)
	assert.Equal(t, renewalIntent, rec.PaymentIntentID)
	assert.Equal(t, f.now.Add(365*24*time.Hour), rec.ExpiresAt)
}

func TestProvision_InvalidIntentIDNeverReachesProvider(t *testing.T) {
	f := newServiceFixture(t)

	for _, id := range []string{"", "ch_3NrXyZAbCdEf1234", "pi_short", "pi_3NrXyZ!AbCdEf", "payment-123"} {
		_, err := f.svc.Provision(context.Background(), id)

		var vErr *domainErrors.ValidationError
		require.ErrorAs(t, err, &vErr, "id %q", id)
		assert.Equal(t, "paymentIntentId", vErr.Field)
	}

	assert.Equal(t, 0, f.verifier.VerifyCalls)
}

func TestProvision_NotCompletedPaymentWritesNothing(t *testing.T) {
	f := newServiceFixture(t)
	f.verifier.VerifyFunc = func(_ context.Context, _ string) (*provider.Authorization, error) {
		return nil, domainErrors.NotCompleted("requires_payment_method")
	}

	_, err := f.svc.Provision(context.Background(), testIntentID)
	require.ErrorIs(t, err, domainErrors.ErrPaymentNotCompleted)
	assert.Contains(t, err.Error(), "requires_payment_method")

	assert.Equal(t, 0, f.users.GetByEmailCalls)
	assert.Equal(t, 0, f.users.CreateCalls)
	assert.Equal(t, 0, f.subs.UpsertCalls)
	assert.Equal(t, 0, f.signIn.IssueCalls)
}

func TestProvision_PaymentNotFoundPropagates(t *testing.T) {
	f := newServiceFixture(t)
	f.verifier.VerifyFunc = func(_ context.Context, _ string) (*provider.Authorization, error) {
		return nil, domainErrors.ErrPaymentNotFound
	}

	_, err := f.svc.Provision(context.Background(), testIntentID)
	require.ErrorIs(t, err, domainErrors.ErrPaymentNotFound)
	assert.Equal(t, 0, f.users.CreateCalls)
	assert.Equal(t, 0, f.subs.UpsertCalls)
}

func TestProvision_InvalidMetadataWritesNothing(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(map[string]string)
		field  string
	}{
		{"missing email", func(m map[string]string) { delete(m, "email") }, "email"},
		{"bad email", func(m map[string]string) { m["email"] = "not-an-email" }, "email"},
		{"missing first name", func(m map[string]string) { delete(m, "firstName") }, "firstName"},
		{"unknown tier", func(m map[string]string) { m["tier"] = "platinum" }, "tier"},
		{"unknown billing period", func(m map[string]string) { m["billingPeriod"] = "weekly" }, "billingPeriod"},
		{"unknown company size", func(m map[string]string) { m["companySize"] = "9000+" }, "companySize"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newServiceFixture(t)
			meta := validMetadata()
			tc.mutate(meta)
			f.verifier.VerifyFunc = func(_ context.Context, _ string) (*provider.Authorization, error) {
				return succeededIntent(meta), nil
			}

			_, err := f.svc.Provision(context.Background(), testIntentID)

			var vErr *domainErrors.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.field, vErr.Field)

			assert.Equal(t, 0, f.users.CreateCalls)
			assert.Equal(t, 0, f.users.UpdateCalls)
			assert.Equal(t, 0, f.subs.UpsertCalls)
		})
	}
}

func TestProvision_LedgerFailureDeletesCreatedUser(t *testing.T) {
	f := newServiceFixture(t)
	ledgerErr := errors.New("connection reset by peer")
	f.subs.UpsertFunc = func(_ context.Context, _ *subscription.Record) error {
		return ledgerErr
	}

	_, err := f.svc.Provision(context.Background(), testIntentID)
	require.ErrorIs(t, err, ledgerErr)

	assert.Equal(t, 1, f.users.CreateCalls)
	assert.Equal(t, 1, f.users.DeleteCalls)
	assert.Equal(t, 0, f.users.Len(), "created account must be rolled back")
	assert.Equal(t, 0, f.signIn.IssueCalls, "no sign-in link after a failed run")
}

func TestProvision_LedgerFailureKeepsExistingUser(t *testing.T) {
	f := newServiceFixture(t)

	existing := &user.Account{ID: uuid.New(), Email: "jane.doe@example.com"}
	require.NoError(t, f.users.Create(context.Background(), existing))

	f.subs.UpsertFunc = func(_ context.Context, _ *subscription.Record) error {
		return errors.New("ledger down")
	}

	_, err := f.svc.Provision(context.Background(), testIntentID)
	require.Error(t, err)

	// Accounts that predate this request are never deleted.
	assert.Equal(t, 0, f.users.DeleteCalls)
	assert.Equal(t, 1, f.users.Len())
}

func TestProvision_CompensationFailureKeepsOriginalError(t *testing.T) {
	f := newServiceFixture(t)
	ledgerErr := errors.New("ledger down")
	f.subs.UpsertFunc = func(_ context.Context, _ *subscription.Record) error {
		return ledgerErr
	}
	f.users.DeleteFunc = func(_ context.Context, _ uuid.UUID) error {
		return errors.New("delete failed too")
	}

	_, err := f.svc.Provision(context.Background(), testIntentID)
	require.ErrorIs(t, err, ledgerErr, "the workflow error propagates, not the compensation error")
}

func TestProvision_SignInLinkFailureIsNotFatal(t *testing.T) {
	f := newServiceFixture(t)
	f.signIn.IssueFunc = func(_ context.Context, _ string) (string, error) {
		return "", errors.New("token service unavailable")
	}

	res, err := f.svc.Provision(context.Background(), testIntentID)
	require.NoError(t, err)

	assert.Empty(t, res.SignInURL)
	assert.Equal(t, 2, f.signIn.IssueCalls, "issuance is retried once")
	assert.NotNil(t, f.users.AccountByEmail("jane.doe@example.com"))
	assert.NotNil(t, f.subs.RecordByEmail("jane.doe@example.com"))
}

func TestProvision_NilSignInIssuer(t *testing.T) {
	f := newServiceFixture(t)
	metrics := observability.NewMetrics("test2", prometheus.NewRegistry())
	f.svc = NewProvisionService(f.users, f.subs, f.verifier, nil, metrics)
	f.svc.now = func() time.Time { return f.now }

	res, err := f.svc.Provision(context.Background(), testIntentID)
	require.NoError(t, err)
	assert.Empty(t, res.SignInURL)
}

func TestProvision_UserLookupFailureAborts(t *testing.T) {
	f := newServiceFixture(t)
	f.users.GetByEmailFunc = func(_ context.Context, _ string) (*user.Account, error) {
		return nil, errors.New("db unreachable")
	}

	_, err := f.svc.Provision(context.Background(), testIntentID)
	require.Error(t, err)
	assert.Equal(t, 0, f.users.CreateCalls)
	assert.Equal(t, 0, f.subs.UpsertCalls)
}
