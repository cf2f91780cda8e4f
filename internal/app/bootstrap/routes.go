// internal/app/bootstrap/routes.go
package bootstrap

import (
	"encoding/hex"
	"fmt"
	"net/http"

	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/securecookie"
	"go.uber.org/zap"

	healthfeature "github.com/felehub/felehub/internal/app/features/health"
	loginfeature "github.com/felehub/felehub/internal/app/features/login"
	mappingsfeature "github.com/felehub/felehub/internal/app/features/mappings"
	networksfeature "github.com/felehub/felehub/internal/app/features/networks"
	organizationsfeature "github.com/felehub/felehub/internal/app/features/organizations"
	walletsfeature "github.com/felehub/felehub/internal/app/features/wallets"
	"github.com/felehub/felehub/internal/app/registry"
	auditstore "github.com/felehub/felehub/internal/app/store/audit"
	organizationstore "github.com/felehub/felehub/internal/app/store/organizations"
	walletstore "github.com/felehub/felehub/internal/app/store/wallets"
	"github.com/felehub/felehub/internal/app/system/auditlog"
	"github.com/felehub/felehub/internal/app/system/auth"
	"github.com/felehub/felehub/internal/app/system/ratelimit"
)

// BuildHandler constructs the root HTTP handler for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// Startup have completed. It initializes the session store, builds the
// Mongo-backed registry, and mounts the feature routers: health, login,
// organizations (with networks and mappings nested under /{org}), and
// wallets.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"

	sessionKey := appCfg.SessionKey
	if sessionKey == "" {
		// Dev convenience only; sessions do not survive a restart.
		// ValidateConfig rejects a blank key in prod.
		sessionKey = hex.EncodeToString(securecookie.GenerateRandomKey(32))
		logger.Warn("session_key not set; generated an ephemeral key")
	}
	if err := auth.InitSessionStore(sessionKey, appCfg.SessionDomain, secure, logger); err != nil {
		logger.Error("session store init failed", zap.Error(err))
		return nil, fmt.Errorf("init session store: %w", err)
	}

	reg := registry.New(
		organizationstore.New(deps.MongoDatabase),
		walletstore.New(deps.MongoDatabase),
		logger,
	)

	auditLog := auditlog.New(auditstore.New(deps.MongoDatabase), logger, auditlog.Config{
		Auth:     appCfg.AuditLogAuth,
		Registry: appCfg.AuditLogRegistry,
	})
	loginLimiter := ratelimit.NewLoginLimiter()

	r := chi.NewRouter()

	// Global auth middleware: loads the SessionUser into context if
	// signed in, making it available via auth.CurrentUser(r).
	r.Use(auth.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators.
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	r.Route("/api", func(api chi.Router) {
		// Authentication and session management.
		api.Mount("/", loginfeature.Routes(loginfeature.NewHandler(reg, auditLog, loginLimiter, logger)))

		// Organization aggregates, with network registrations and
		// mappings nested under /{org}.
		mappingsRouter := mappingsfeature.Routes(mappingsfeature.NewHandler(reg, auditLog, logger))
		networksRouter := networksfeature.Routes(networksfeature.NewHandler(reg, auditLog, logger), mappingsRouter)
		api.Mount("/organizations", organizationsfeature.Routes(organizationsfeature.NewHandler(reg, auditLog, logger), networksRouter))

		// Wallet documents for network identities.
		api.Mount("/wallets", walletsfeature.Routes(walletsfeature.NewHandler(reg, auditLog, logger)))
	})

	return r, nil
}
