// internal/app/system/indexes/indexes.go

// Package indexes reconciles the MongoDB indexes felehub relies on. It runs
// once at startup; every ensure function is idempotent, and problems are
// aggregated so startup can fail fast with everything that is wrong.
package indexes

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	auditstore "github.com/felehub/felehub/internal/app/store/audit"
	organizationstore "github.com/felehub/felehub/internal/app/store/organizations"
	"github.com/felehub/felehub/internal/domain/models"
)

// EnsureAll reconciles every index felehub needs.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := ensureLocalOrg(ctx, db); err != nil {
		problems = append(problems, organizationstore.Collection+": "+err.Error())
	}
	if err := ensureAuditEvents(ctx, db); err != nil {
		problems = append(problems, auditstore.Collection+": "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// ensureLocalOrg creates the indexes for the shared localorg collection:
//   - a unique index on the folded organization name, scoped to organization
//     aggregates via a partial filter. This is the backstop for the
//     pre-insert existence check; without it a lost create race would leave
//     two aggregates for one name.
//   - a schemaTag+organizationName index serving the aggregate point query.
func ensureLocalOrg(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(organizationstore.Collection)

	unique := true
	specs := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "organizationNameCI", Value: 1}},
			Options: &options.IndexOptions{
				Name:   strPtr("uniq_organization_name_ci"),
				Unique: &unique,
				PartialFilterExpression: bson.D{
					{Key: "schemaTag", Value: models.SchemaTagLocalOrg},
				},
			},
		},
		{
			Keys: bson.D{
				{Key: "schemaTag", Value: 1},
				{Key: "organizationName", Value: 1},
			},
			Options: &options.IndexOptions{
				Name: strPtr("schema_tag_organization_name"),
			},
		},
	}

	for _, spec := range specs {
		name := ""
		if spec.Options != nil && spec.Options.Name != nil {
			name = *spec.Options.Name
		}
		if _, err := coll.Indexes().CreateOne(ctx, spec); err != nil {
			// An equivalent index that already exists (possibly under another
			// name) is fine; anything else is a startup problem.
			if isOptionsConflictErr(err) {
				zap.L().Info("reusing existing index",
					zap.String("collection", coll.Name()),
					zap.String("name", name))
				continue
			}
			return err
		}
		zap.L().Info("index ensured",
			zap.String("collection", coll.Name()),
			zap.String("name", name))
	}
	return nil
}

// ensureAuditEvents covers the audit listing query: per-organization events,
// newest first.
func ensureAuditEvents(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(auditstore.Collection)

	spec := mongo.IndexModel{
		Keys: bson.D{
			{Key: "organization", Value: 1},
			{Key: "timestamp", Value: -1},
		},
		Options: &options.IndexOptions{
			Name: strPtr("organization_timestamp"),
		},
	}
	if _, err := coll.Indexes().CreateOne(ctx, spec); err != nil {
		if isOptionsConflictErr(err) {
			zap.L().Info("reusing existing index",
				zap.String("collection", coll.Name()),
				zap.String("name", "organization_timestamp"))
			return nil
		}
		return err
	}
	zap.L().Info("index ensured",
		zap.String("collection", coll.Name()),
		zap.String("name", "organization_timestamp"))
	return nil
}

// Mongo/DocDB returns IndexOptionsConflict when an index with the same keys
// already exists under a different name (or options differ).
func isOptionsConflictErr(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "IndexOptionsConflict") ||
		strings.Contains(s, "IndexKeySpecsConflict")
}

func strPtr(s string) *string { return &s }
