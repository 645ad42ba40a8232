// internal/app/features/syncops/routes.go
package syncops

import (
	"net/http"
	"time"

	"github.com/dalemusser/cohortsync/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
)

// Routes returns the subrouter for sync operations, mounted under /groups.
// Trigger endpoints are rate limited per client so a runaway caller cannot
// hammer the external APIs through us.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	limiter := ratelimit.New(30, time.Minute)
	r.Use(func(next http.Handler) http.Handler {
		return limiter.Middleware(next)
	})
	r.Post("/{groupID}/sync", h.Sync)
	r.Post("/{groupID}/switch", h.Switch)
	return r
}
