package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is how long issued tokens stay valid.
const DefaultTokenTTL = 12 * time.Hour

// ErrMissingSecret is returned when a signer is built without a key.
var ErrMissingSecret = errors.New("jwt secret is required")

// tokenClaims is the wire form of an issued token.
type tokenClaims struct {
	UserID string `json:"userId"`
	Login  string `json:"login"`
	jwt.RegisteredClaims
}

// HMACSigner issues HS256 tokens and validates them with the same shared secret.
type HMACSigner struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// SignerOption configures an HMACSigner.
type SignerOption func(*HMACSigner)

// WithTTL sets the token lifetime. Non-positive values keep the default.
func WithTTL(ttl time.Duration) SignerOption {
	return func(s *HMACSigner) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithIssuer sets the iss claim; validation then requires a matching issuer.
func WithIssuer(issuer string) SignerOption {
	return func(s *HMACSigner) { s.issuer = issuer }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) SignerOption {
	return func(s *HMACSigner) {
		if now != nil {
			s.now = now
		}
	}
}

// NewHMACSigner creates a signer for the given secret.
func NewHMACSigner(secret string, opts ...SignerOption) (*HMACSigner, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	s := &HMACSigner{
		secret: []byte(secret),
		ttl:    DefaultTokenTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Sign issues a token for the user. The returned time is the token expiry.
func (s *HMACSigner) Sign(userID, login string) (string, time.Time, error) {
	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.ttl)

	claims := tokenClaims{
		UserID: userID,
		Login:  login,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, expiresAt, nil
}

// Validate verifies the signature, algorithm and expiry of token and returns its claims.
func (s *HMACSigner) Validate(_ context.Context, token string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	var parsed tokenClaims
	if _, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...); err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}

	claims := &Claims{
		Subject: parsed.Subject,
		UserID:  parsed.UserID,
		Login:   parsed.Login,
		Issuer:  parsed.Issuer,
	}
	if claims.UserID == "" {
		claims.UserID = parsed.Subject
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time
	}
	if parsed.ExpiresAt != nil {
		claims.ExpiresAt = parsed.ExpiresAt.Time
	}
	return claims, nil
}
