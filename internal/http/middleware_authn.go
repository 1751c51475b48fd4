package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/addrbook/addrbook/internal/domain"
	"github.com/addrbook/addrbook/internal/service"
	"github.com/addrbook/addrbook/pkg/httpx"
	"github.com/addrbook/addrbook/pkg/slogx"
)

type ctxKey int

const ctxKeyUser ctxKey = iota

// userFromContext returns the snapshot stashed by AuthnMiddleware.
func userFromContext(ctx context.Context) (domain.UserSnapshot, bool) {
	snap, ok := ctx.Value(ctxKeyUser).(domain.UserSnapshot)
	return snap, ok
}

// AuthnMiddleware resolves the bearer token into a user snapshot and stores
// it on the request context. The username is also exposed through the shared
// httpx key so per-user rate limiting can see it.
func AuthnMiddleware(sessions *service.SessionService) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				ErrUnauthorized.WriteError(w)
				return
			}

			snap, err := sessions.Resolve(r.Context(), raw)
			if err != nil {
				if errors.Is(err, service.ErrUnauthorized) {
					ErrUnauthorized.WriteError(w)
					return
				}
				slogx.FromContext(r.Context()).Error("session resolve failed",
					slog.String("error", err.Error()))
				ErrServerError.WriteError(w)
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyUser, snap)
			ctx = context.WithValue(ctx, httpx.CtxKeyUsername, snap.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return token, true
}
