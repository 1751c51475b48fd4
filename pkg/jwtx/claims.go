package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the signed token claims used across the service. We only rely
// on registered claims (sub, exp, iat, iss, jti); what a token *means* is
// decided by which issue/verify pair minted it, not by extra fields.
type Claims struct {
	jwt.RegisteredClaims
}

// NewClaims builds minimally-correct claims: subject, expiry, issuer and a
// random jti. IssuedAt is left unset; callers that want iat set it
// explicitly.
func NewClaims(subject string, ttl time.Duration, issuer string, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim. There
// might be a better way of doing this, but I'm being lazy and using random.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// SetIssuedAt stamps the "iat" claim.
func (c *Claims) SetIssuedAt(now time.Time) {
	c.IssuedAt = jwt.NewNumericDate(now)
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateExpiry ensures the token hasn't expired (exp).
func (c *Claims) ValidateExpiry() error {
	return c.ValidateExpiryWithLeeway(0)
}

// ValidateExpiryWithLeeway adds a small grace period for clock skew.
func (c *Claims) ValidateExpiryWithLeeway(leeway time.Duration) error {
	now := time.Now().UTC()

	if c.ExpiresAt == nil {
		return ErrInvalidClaim // every token we mint carries exp
	}
	if now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}

	return nil
}
