package http

import (
	"net/http"

	"github.com/addrbook/addrbook/pkg/httpx"
)

// MeHandler returns the authenticated user's own profile.
type MeHandler struct{}

func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snap, ok := userFromContext(r.Context())
	if !ok {
		ErrUnauthorized.WriteError(w)
		return
	}

	// Never echo the snapshot itself; a login-populated one carries the
	// password hash.
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, userResponse{
		ID:       snap.ID,
		Username: snap.Username,
		Email:    snap.Email,
	})
}
