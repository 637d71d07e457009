// Package auth issues and validates the bearer tokens that protect the board API.
package auth

import (
	"context"
	"time"
)

// JWTValidator validates JWT tokens and extracts claims.
type JWTValidator interface {
	Validate(ctx context.Context, token string) (*Claims, error)
}

// Claims represents the extracted claims from a validated JWT token.
type Claims struct {
	Subject   string // sub, same as UserID
	UserID    string // userId
	Login     string // login
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type claimsContextKey struct{}

// WithClaims stores claims in the context.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// GetClaims retrieves claims from the context.
// Returns nil if no claims are found.
func GetClaims(ctx context.Context) *Claims {
	if claims, ok := ctx.Value(claimsContextKey{}).(*Claims); ok {
		return claims
	}
	return nil
}
