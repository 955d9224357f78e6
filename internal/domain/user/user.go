package user

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/corvael/provision-api/internal/domain/registration"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Account is a provisioned user account. The provisioning workflow is the
// sole writer of the paid-registration fields; it only ever deletes an
// account it created itself in the current request.
type Account struct {
	ID               uuid.UUID
	Email            string
	FirstName        string
	LastName         string
	Company          string
	CompanySize      string
	PaidRegistration bool
	ProvisionedBy    string // payment intent id that provisioned the account
	PasswordHash     string
	EmailConfirmed   bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// New creates an account from validated registration metadata. The account
// gets a freshly generated high-entropy credential; the plaintext is
// discarded immediately since the user authenticates via an out-of-band
// sign-in link, never this value. Email is pre-confirmed because the address
// was charged through checkout.
func New(meta registration.Metadata, paymentIntentID string) (*Account, error) {
	hash, err := generatedCredentialHash()
	if err != nil {
		return nil, fmt.Errorf("generate credential: %w", err)
	}

	now := time.Now()
	return &Account{
		ID:               uuid.New(),
		Email:            meta.Email,
		FirstName:        meta.FirstName,
		LastName:         meta.LastName,
		Company:          meta.Company,
		CompanySize:      meta.CompanySize,
		PaidRegistration: true,
		ProvisionedBy:    paymentIntentID,
		PasswordHash:     hash,
		EmailConfirmed:   true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// ApplyRegistration updates a pre-existing account's metadata in place for a
// repeated or renewed registration. The account identity (id, email,
// credential) is left untouched.
func (a *Account) ApplyRegistration(meta registration.Metadata, paymentIntentID string) {
	a.FirstName = meta.FirstName
	a.LastName = meta.LastName
	a.Company = meta.Company
	a.CompanySize = meta.CompanySize
	a.PaidRegistration = true
	a.ProvisionedBy = paymentIntentID
	a.UpdatedAt = time.Now()
}

// FullName returns the account holder's display name.
func (a *Account) FullName() string {
	return a.FirstName + " " + a.LastName
}

func generatedCredentialHash() (string, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(base64.RawURLEncoding.EncodeToString(secret)), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
