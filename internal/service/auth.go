package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/addrbook/addrbook/internal/cache"
	"github.com/addrbook/addrbook/internal/domain"
	"github.com/addrbook/addrbook/internal/notify"
	"github.com/addrbook/addrbook/internal/store"
	"github.com/addrbook/addrbook/pkg/cryptox"
	"github.com/addrbook/addrbook/pkg/idx"
	"github.com/addrbook/addrbook/pkg/slogx"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrEmailNotConfirmed  = errors.New("email_not_confirmed")
	ErrEmailTaken         = errors.New("email_taken")
	ErrUsernameTaken      = errors.New("username_taken")
	ErrVerification       = errors.New("verification_failed")
	ErrInvalidResetToken  = errors.New("invalid_reset_token")
	ErrUserNotFound       = errors.New("user_not_found")
	ErrUnauthorized       = errors.New("unauthorized")
)

// AuthService owns registration, login and the email-driven account flows.
// It is the single cache-aware path: Login reads through the user cache and
// the flows that change credentials or confirmation state invalidate it.
type AuthService struct {
	Store    store.Store
	Cache    *cache.UserCache
	Tokens   *TokenService
	Notifier notify.Notifier

	// BaseURL is the externally reachable origin used to build the links
	// embedded in outgoing mail.
	BaseURL string
}

// Register creates an unconfirmed account and sends the confirmation mail.
// Email collisions are reported before username collisions.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (domain.User, error) {
	l := slogx.FromContext(ctx)

	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if _, err := s.Store.Users().GetUserByEmail(ctx, email); err == nil {
		return domain.User{}, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, err
	}

	if _, err := s.Store.Users().GetUserByUsername(ctx, username); err == nil {
		return domain.User{}, ErrUsernameTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, err
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, err
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Confirmed:    false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			// Lost a race with a concurrent registration.
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, err
	}

	l.Info("user registered", slog.String("user_id", user.ID), slog.String("username", username))

	s.sendConfirmationMail(ctx, user)

	return user, nil
}

// sendConfirmationMail mints a confirmation token and hands the mail off in
// the background. Registration never fails because SMTP is down.
func (s *AuthService) sendConfirmationMail(ctx context.Context, user domain.User) {
	l := slogx.FromContext(ctx)

	token, err := s.Tokens.IssueEmailConfirm(user.Email)
	if err != nil {
		l.Error("mint confirmation token", slog.String("error", err.Error()))
		return
	}
	link := s.BaseURL + "/api/auth/confirmed_email/" + token

	go s.Notifier.SendConfirmation(slogx.WithContext(context.WithoutCancel(ctx), l), user.Email, user.Username, link)
}

// Login verifies credentials and mints a session token.
//
// The cache is the fast path: a cached snapshot that carries a password hash
// is trusted as-is for the life of its TTL, including its confirmed state.
// On a miss the store is authoritative: the password is verified first, so a
// wrong password always reads as invalid credentials and never reveals the
// account's confirmation state, and only then does the confirmation gate
// apply. Cache failures degrade to the store and never fail a login.
func (s *AuthService) Login(ctx context.Context, username, password string) (domain.SessionToken, error) {
	l := slogx.FromContext(ctx)

	snap, err := s.cachedCredentials(ctx, username)
	if err != nil {
		user, err := s.Store.Users().GetUserByUsername(ctx, username)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.SessionToken{}, ErrInvalidCredentials
			}
			return domain.SessionToken{}, err
		}

		if err := s.verifyPassword(ctx, password, user.PasswordHash); err != nil {
			return domain.SessionToken{}, err
		}
		if !user.Confirmed {
			return domain.SessionToken{}, ErrEmailNotConfirmed
		}

		snap = user.Snapshot(true)
		if err := s.Cache.Put(ctx, snap); err != nil {
			l.Warn("cache put failed", slog.String("username", username), slog.String("error", err.Error()))
		}
	} else if err := s.verifyPassword(ctx, password, snap.PasswordHash); err != nil {
		return domain.SessionToken{}, err
	}

	access, err := s.Tokens.IssueSession(snap.Username)
	if err != nil {
		return domain.SessionToken{}, err
	}

	return domain.SessionToken{AccessToken: access, TokenType: "bearer"}, nil
}

// verifyPassword wraps cryptox verification, mapping a mismatch onto the
// uniform credentials error.
func (s *AuthService) verifyPassword(ctx context.Context, password, hash string) error {
	if err := cryptox.VerifyPassword(password, hash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			slogx.FromContext(ctx).Info("login rejected")
			return ErrInvalidCredentials
		}
		return err
	}
	return nil
}

// cachedCredentials returns a cached snapshot usable for credential checks.
// Entries without a password hash were populated by the session resolver and
// read as a miss here. Redis failures also read as a miss, with a warning.
func (s *AuthService) cachedCredentials(ctx context.Context, username string) (domain.UserSnapshot, error) {
	l := slogx.FromContext(ctx)

	snap, err := s.Cache.Get(ctx, username)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			l.Warn("cache get failed", slog.String("username", username), slog.String("error", err.Error()))
		}
		return domain.UserSnapshot{}, cache.ErrMiss
	}
	if snap.PasswordHash == "" {
		return domain.UserSnapshot{}, cache.ErrMiss
	}
	return snap, nil
}

// ConfirmEmail validates a confirmation token and marks the account
// confirmed. Every token failure collapses into ErrVerification so the
// response never reveals which check failed. Confirming twice succeeds.
func (s *AuthService) ConfirmEmail(ctx context.Context, token string) error {
	l := slogx.FromContext(ctx)

	email, err := s.Tokens.VerifyEmailConfirm(token)
	if err != nil {
		return ErrVerification
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrVerification
		}
		return err
	}
	if user.Confirmed {
		return nil
	}

	if err := s.Store.Users().SetConfirmed(ctx, email); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrVerification
		}
		return err
	}

	l.Info("email confirmed", slog.String("user_id", user.ID))

	s.invalidate(ctx, user.Username)
	return nil
}

// RequestEmailVerification re-sends the confirmation mail. The response is
// identical whether or not the address exists, so it cannot be used to
// enumerate accounts.
func (s *AuthService) RequestEmailVerification(ctx context.Context, email string) error {
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	if user.Confirmed {
		return nil
	}

	s.sendConfirmationMail(ctx, user)
	return nil
}

// ForgotPassword mints a reset token and mails the reset link. Unlike
// RequestEmailVerification this reports an unknown address with
// ErrUserNotFound.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	l := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	token, err := s.Tokens.IssueReset(user.Email)
	if err != nil {
		return err
	}
	link := s.BaseURL + "/reset_password?token=" + token

	l.Info("password reset requested", slog.String("user_id", user.ID))

	go s.Notifier.SendPasswordReset(slogx.WithContext(context.WithoutCancel(ctx), l), user.Email, user.Username, link)
	return nil
}

// ResetPassword redeems a reset token and replaces the password. The token
// only proves control of the email; an invalid or expired one yields
// ErrInvalidResetToken with no further detail.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	l := slogx.FromContext(ctx)

	email, ok := s.Tokens.VerifyReset(token)
	if !ok {
		return ErrInvalidResetToken
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.Store.Users().UpdatePasswordHash(ctx, email, hash); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	l.Info("password reset", slog.String("user_id", user.ID))

	s.invalidate(ctx, user.Username)
	return nil
}

// invalidate drops the cached snapshot so the next login re-reads the store.
// Best effort: the TTL still bounds staleness if Redis is down.
func (s *AuthService) invalidate(ctx context.Context, username string) {
	if err := s.Cache.Invalidate(ctx, username); err != nil {
		slogx.FromContext(ctx).Warn("cache invalidate failed",
			slog.String("username", username), slog.String("error", err.Error()))
	}
}
