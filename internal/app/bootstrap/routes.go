// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	healthfeature "github.com/dalemusser/cohortsync/internal/app/features/health"
	syncopsfeature "github.com/dalemusser/cohortsync/internal/app/features/syncops"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for the app.
//
// The HTTP surface is deliberately small: a health endpoint for load
// balancers and the sync operations API that kicks off reconciliation.
// Everything else the engine does is driven by the queue worker and the
// resync sweep, not by requests.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	r := chi.NewRouter()

	healthHandler := healthfeature.NewHandler(deps.MongoClient, deps.Redis, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	syncHandler := syncopsfeature.NewHandler(syncEngine, logger)
	r.Mount("/groups", syncopsfeature.Routes(syncHandler))

	return r, nil
}
