package testutil

import (
	"context"
	"sync"

	domainErrors "github.com/corvael/provision-api/internal/domain/errors"
	"github.com/corvael/provision-api/internal/domain/subscription"
	"github.com/corvael/provision-api/internal/domain/user"
	"github.com/corvael/provision-api/internal/provider"
	"github.com/google/uuid"
)

// --- User Repository Mock ---

// MockUserRepository is an in-memory implementation of user.Repository with
// overridable behavior and call counters.
type MockUserRepository struct {
	mu      sync.Mutex
	byEmail map[string]*user.Account

	CreateFunc     func(ctx context.Context, a *user.Account) error
	GetByEmailFunc func(ctx context.Context, email string) (*user.Account, error)
	UpdateFunc     func(ctx context.Context, a *user.Account) error
	DeleteFunc     func(ctx context.Context, id uuid.UUID) error

	CreateCalls     int
	GetByEmailCalls int
	UpdateCalls     int
	DeleteCalls     int
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{byEmail: make(map[string]*user.Account)}
}

func (m *MockUserRepository) Create(ctx context.Context, a *user.Account) error {
	m.mu.Lock()
	m.CreateCalls++
	m.mu.Unlock()
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, a)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byEmail[a.Email] = a
	return nil
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*user.Account, error) {
	m.mu.Lock()
	m.GetByEmailCalls++
	m.mu.Unlock()
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byEmail[email], nil
}

func (m *MockUserRepository) Update(ctx context.Context, a *user.Account) error {
	m.mu.Lock()
	m.UpdateCalls++
	m.mu.Unlock()
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, a)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byEmail[a.Email] = a
	return nil
}

func (m *MockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	m.DeleteCalls++
	m.mu.Unlock()
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for email, a := range m.byEmail {
		if a.ID == id {
			delete(m.byEmail, email)
			return nil
		}
	}
	return domainErrors.ErrUserNotFound
}

// AccountByEmail returns the stored account, or nil.
func (m *MockUserRepository) AccountByEmail(email string) *user.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byEmail[email]
}

// Len returns the number of stored accounts.
func (m *MockUserRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byEmail)
}

// --- Subscription Repository Mock ---

// MockSubscriptionRepository is an in-memory implementation of
// subscription.Repository keyed by email, matching the unique-key upsert
// semantics of the real store.
type MockSubscriptionRepository struct {
	mu      sync.Mutex
	byEmail map[string]*subscription.Record

	UpsertFunc     func(ctx context.Context, rec *subscription.Record) error
	GetByEmailFunc func(ctx context.Context, email string) (*subscription.Record, error)

	UpsertCalls     int
	GetByEmailCalls int
}

func NewMockSubscriptionRepository() *MockSubscriptionRepository {
	return &MockSubscriptionRepository{byEmail: make(map[string]*subscription.Record)}
}

func (m *MockSubscriptionRepository) Upsert(ctx context.Context, rec *subscription.Record) error {
	m.mu.Lock()
	m.UpsertCalls++
	m.mu.Unlock()
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, rec)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byEmail[rec.Email] = rec
	return nil
}

func (m *MockSubscriptionRepository) GetByEmail(ctx context.Context, email string) (*subscription.Record, error) {
	m.mu.Lock()
	m.GetByEmailCalls++
	m.mu.Unlock()
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byEmail[email], nil
}

// RecordByEmail returns the stored record, or nil.
func (m *MockSubscriptionRepository) RecordByEmail(email string) *subscription.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byEmail[email]
}

// Len returns the number of stored records.
func (m *MockSubscriptionRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byEmail)
}

// --- Payment Verifier Mock ---

// MockVerifier is a provider.Verifier test double.
type MockVerifier struct {
	mu sync.Mutex

	VerifyFunc func(ctx context.Context, intentID string) (*provider.Authorization, error)

	VerifyCalls int
}

func (m *MockVerifier) Verify(ctx context.Context, intentID string) (*provider.Authorization, error) {
	m.mu.Lock()
	m.VerifyCalls++
	m.mu.Unlock()
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, intentID)
	}
	return nil, domainErrors.ErrPaymentNotFound
}

// --- Sign-In Link Issuer Mock ---

// MockSignInIssuer is a service.SignInLinkIssuer test double.
type MockSignInIssuer struct {
	mu sync.Mutex

	IssueFunc func(ctx context.Context, email string) (string, error)

	IssueCalls int
}

func (m *MockSignInIssuer) Issue(ctx context.Context, email string) (string, error) {
	m.mu.Lock()
	m.IssueCalls++
	m.mu.Unlock()
	if m.IssueFunc != nil {
		return m.IssueFunc(ctx, email)
	}
	return "https://app.example.com/auth/sign-in?token=test", nil
}
