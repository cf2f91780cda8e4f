// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for FeleHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_key, etc.
//   - Environment variables: FELEHUB_MONGO_URI, FELEHUB_SESSION_KEY, etc.
//   - Command-line flags: --mongo_uri, --session_key, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "felehub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "", Desc: "Session signing key (must be strong in production; blank generates an ephemeral dev key)"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_registry", Default: "all", Desc: "Registry mutation logging: 'all' (db+log), 'db', 'log', or 'off'"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env and config files,
// environment variables (WAFFLE_* for core, FELEHUB_* for app), and
// command-line flags, merged with precedence: flags > env > files >
// defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "FELEHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionDomain:    appValues.String("session_domain"),
		AuditLogAuth:     appValues.String("audit_log_auth"),
		AuditLogRegistry: appValues.String("audit_log_registry"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// FeleHub validates the MongoDB URI format to catch configuration errors
// early, before attempting to connect, and refuses to start in prod
// without an explicit session key.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if appCfg.MongoDatabase == "" {
		return fmt.Errorf("mongo_database must not be empty")
	}

	if coreCfg.Env == "prod" && appCfg.SessionKey == "" {
		return fmt.Errorf("session_key is required in prod")
	}

	return nil
}
