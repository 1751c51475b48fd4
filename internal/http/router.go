package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/addrbook/addrbook/internal/cache"
	"github.com/addrbook/addrbook/internal/service"
	"github.com/addrbook/addrbook/internal/store"
	"github.com/addrbook/addrbook/pkg/httpx"
	"github.com/addrbook/addrbook/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store store.Store
	cache *cache.UserCache

	AuthService    *service.AuthService
	SessionService *service.SessionService
	ContactService *service.ContactService
}

func NewRouter(
	buildVersion string,
	st store.Store,
	userCache *cache.UserCache,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		cache:        userCache,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerUsers()
	r.registerContacts()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{AuthService: r.AuthService}

	// POST /register - strict rate limit by IP (account creation)
	r.Mux.Handle("POST /api/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /login - strict rate limit by IP (credential guessing)
	r.Mux.Handle("POST /api/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// GET /confirmed_email/{token} - the link lands here from the mail
	r.Mux.Handle("GET /api/auth/confirmed_email/{token}",
		httpx.Chain(http.HandlerFunc(h.HandleConfirmEmail),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /request_email - moderate limit; the response never reveals
	// whether the address exists
	r.Mux.Handle("POST /api/auth/request_email",
		httpx.Chain(http.HandlerFunc(h.HandleRequestEmail),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /forgot_password - strict rate limit by IP (mints credentials)
	r.Mux.Handle("POST /api/auth/forgot_password",
		httpx.Chain(http.HandlerFunc(h.HandleForgotPassword),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /reset_password - strict rate limit by IP (token guessing)
	r.Mux.Handle("POST /api/auth/reset_password",
		httpx.Chain(http.HandlerFunc(h.HandleResetPassword),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerUsers() {
	secured := httpx.Chain(&MeHandler{},
		AuthnMiddleware(r.SessionService),
		httpx.RateLimitByUser(httpx.ModerateLimit),
	)

	r.Mux.Handle("GET /api/users/me", secured)
}

func (r *Router) registerContacts() {
	h := &ContactsHandler{ContactService: r.ContactService}
	authn := AuthnMiddleware(r.SessionService)

	secured := func(next http.HandlerFunc) http.Handler {
		return httpx.Chain(next,
			authn,
			httpx.RateLimitByUser(httpx.LenientLimit),
		)
	}

	r.Mux.Handle("GET /api/contacts", secured(h.HandleList))
	r.Mux.Handle("GET /api/contacts/search", secured(h.HandleSearch))
	r.Mux.Handle("GET /api/contacts/birthdays", secured(h.HandleBirthdays))
	r.Mux.Handle("GET /api/contacts/{id}", secured(h.HandleGet))
	r.Mux.Handle("POST /api/contacts", secured(h.HandleCreate))
	r.Mux.Handle("PUT /api/contacts/{id}", secured(h.HandleUpdate))
	r.Mux.Handle("DELETE /api/contacts/{id}", secured(h.HandleDelete))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store, r.cache))
}
