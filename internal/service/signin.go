package service

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/corvael/provision-api/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SignInLinkIssuer produces a one-time sign-in link for a provisioned
// account. Issuance is best-effort: a failure never fails provisioning.
type SignInLinkIssuer interface {
	Issue(ctx context.Context, email string) (string, error)
}

// JWTLinkIssuer issues sign-in links carrying a short-lived signed token.
// The account's generated credential is never sent anywhere; this link is
// how the user first authenticates.
type JWTLinkIssuer struct {
	secret   []byte
	baseURL  string
	tokenTTL time.Duration
	now      func() time.Time
}

// NewJWTLinkIssuer creates an issuer from sign-in configuration.
func NewJWTLinkIssuer(cfg config.SignInConfig) *JWTLinkIssuer {
	return &JWTLinkIssuer{
		secret:   []byte(cfg.Secret),
		baseURL:  cfg.BaseURL,
		tokenTTL: cfg.TokenTTL,
		now:      time.Now,
	}
}

// Issue signs a token for the email and returns the sign-in URL.
func (i *JWTLinkIssuer) Issue(_ context.Context, email string) (string, error) {
	now := i.now()
	claims := jwt.RegisteredClaims{
		Subject:   email,
		Issuer:    "provision-api",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.tokenTTL)),
		ID:        uuid.New().String(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return i.baseURL + "/auth/sign-in?token=" + url.QueryEscape(signed), nil
}
