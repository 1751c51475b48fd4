package service

import (
	"time"

	"github.com/addrbook/addrbook/pkg/jwtx"
)

// Token TTLs for the non-session purposes. Session TTL is configured.
const (
	// EmailConfirmTokenTTL is how long a confirmation link stays usable.
	EmailConfirmTokenTTL = 7 * 24 * time.Hour

	// PasswordResetTokenTTL is deliberately short. A reset link is a
	// credential.
	PasswordResetTokenTTL = 180 * time.Second
)

// TokenService mints and verifies the service's three token purposes. All
// three share one signing secret and algorithm and differ only in claim
// shape and TTL: a session token carries the username, the confirmation and
// reset tokens carry the email.
type TokenService struct {
	Codec      *jwtx.HS256
	SessionTTL time.Duration
}

// IssueSession mints an access token whose subject is the username.
func (s *TokenService) IssueSession(username string) (string, error) {
	claims := jwtx.NewClaims(username, s.SessionTTL, s.Codec.Issuer(), time.Now().UTC())
	return s.Codec.Sign(claims)
}

// VerifySession validates a session token and returns its username.
func (s *TokenService) VerifySession(raw string) (string, error) {
	claims, err := s.Codec.Verify(raw)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// IssueEmailConfirm mints a confirmation token for the email. It carries
// iat so a link can be dated in the email body.
func (s *TokenService) IssueEmailConfirm(email string) (string, error) {
	now := time.Now().UTC()
	claims := jwtx.NewClaims(email, EmailConfirmTokenTTL, s.Codec.Issuer(), now)
	claims.SetIssuedAt(now)
	return s.Codec.Sign(claims)
}

// VerifyEmailConfirm validates a confirmation token and returns its email.
// All verification failures look the same to the caller; the handler layer
// collapses them into one user-facing error.
func (s *TokenService) VerifyEmailConfirm(raw string) (string, error) {
	claims, err := s.Codec.Verify(raw)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// IssueReset mints a short-lived password reset token for the email.
func (s *TokenService) IssueReset(email string) (string, error) {
	claims := jwtx.NewClaims(email, PasswordResetTokenTTL, s.Codec.Issuer(), time.Now().UTC())
	return s.Codec.Sign(claims)
}

// VerifyReset validates a reset token. Any failure reads as absence: the
// caller only learns the link is no longer valid, never why. Unlike the
// other purposes the expiry is enforced without clock-skew leeway; at 180
// seconds the token is the tightest credential in the system.
func (s *TokenService) VerifyReset(raw string) (string, bool) {
	claims, err := s.Codec.Verify(raw)
	if err != nil {
		return "", false
	}
	if err := claims.ValidateExpiry(); err != nil {
		return "", false
	}
	return claims.Subject, true
}
