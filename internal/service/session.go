package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/addrbook/addrbook/internal/cache"
	"github.com/addrbook/addrbook/internal/domain"
	"github.com/addrbook/addrbook/internal/store"
	"github.com/addrbook/addrbook/pkg/slogx"
)

// SessionService resolves a bearer token into the acting user. The store is
// consulted on every resolve: a token is only honored while the account it
// names still exists. The cached snapshot is preferred for the returned
// view once existence is confirmed.
type SessionService struct {
	Store  store.Store
	Cache  *cache.UserCache
	Tokens *TokenService
}

// Resolve verifies the session token and returns the user it names. Any
// token failure, and a token naming a user that no longer exists, yield
// ErrUnauthorized. Store or cache infrastructure failures are reported
// as-is; a cache failure degrades to the freshly loaded record.
func (s *SessionService) Resolve(ctx context.Context, raw string) (domain.UserSnapshot, error) {
	l := slogx.FromContext(ctx)

	username, err := s.Tokens.VerifySession(raw)
	if err != nil {
		return domain.UserSnapshot{}, ErrUnauthorized
	}

	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.UserSnapshot{}, ErrUnauthorized
		}
		return domain.UserSnapshot{}, err
	}

	snap, err := s.Cache.Get(ctx, username)
	if err == nil {
		return snap, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		l.Warn("cache get failed", slog.String("username", username), slog.String("error", err.Error()))
	}

	// Resolver entries never carry the password hash; Login treats them as
	// a miss and re-reads the store.
	snap = user.Snapshot(false)
	if err := s.Cache.Put(ctx, snap); err != nil {
		l.Warn("cache put failed", slog.String("username", username), slog.String("error", err.Error()))
	}

	return snap, nil
}
