package http

import (
	"net/http"
	"time"

	"github.com/addrbook/addrbook/internal/cache"
	"github.com/addrbook/addrbook/internal/store"
	"github.com/addrbook/addrbook/pkg/httpx"
)

// ReadyzHandler is the readiness probe. It checks the database and the user
// cache; either one failing flips the response to 503.
func ReadyzHandler(
	startTime time.Time,
	version string,
	st store.Store,
	userCache *cache.UserCache,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &healthChecks{
			Database: "ok",
			Cache:    "ok",
		}
		overallStatus := "ok"
		statusCode := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			checks.Database = "error: " + err.Error()
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		if err := userCache.Ping(r.Context()); err != nil {
			checks.Cache = "error: " + err.Error()
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		httpx.WriteJSON(w, statusCode, healthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
