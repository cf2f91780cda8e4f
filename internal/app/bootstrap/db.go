// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/felehub/felehub/internal/app/system/indexes"
	"github.com/felehub/felehub/internal/app/system/timeouts"
	"github.com/felehub/felehub/internal/app/system/validators"
)

// ConnectDB establishes the MongoDB connection used by all stores.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return DBDeps{}, fmt.Errorf("mongo connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeouts.Ping())
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return DBDeps{}, fmt.Errorf("mongo ping: %w", err)
	}

	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase),
		zap.Uint64("max_pool_size", appCfg.MongoMaxPoolSize))

	return DBDeps{
		MongoClient:   client,
		MongoDatabase: client.Database(appCfg.MongoDatabase),
	}, nil
}

// EnsureSchema creates collections, schema validators and the indexes the
// aggregate collection relies on, most importantly the case-insensitive
// unique organization name.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	schemaCtx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()

	if err := validators.EnsureAll(schemaCtx, deps.MongoDatabase); err != nil {
		return fmt.Errorf("ensure validators: %w", err)
	}
	if err := indexes.EnsureAll(schemaCtx, deps.MongoDatabase); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}
	return nil
}
