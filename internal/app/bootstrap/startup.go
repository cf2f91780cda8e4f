// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	organizationstore "github.com/felehub/felehub/internal/app/store/organizations"
	"github.com/felehub/felehub/internal/app/system/timeouts"
	"github.com/felehub/felehub/internal/domain/models"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. FeleHub
// uses it to report how many organization aggregates the registry holds, a
// cheap sanity check that the collection is the one we expect.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	countCtx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	n, err := deps.MongoDatabase.Collection(organizationstore.Collection).
		CountDocuments(countCtx, bson.M{"schemaTag": models.SchemaTagLocalOrg})
	if err != nil {
		logger.Warn("could not count organization aggregates", zap.Error(err))
		return nil
	}

	logger.Info("registry ready", zap.Int64("organizations", n))
	return nil
}
