// internal/app/store/organizations/organizationstore.go

// Package organizationstore persists organization aggregates in MongoDB.
// Aggregates share the localorg collection with wallet documents; the two
// are distinguished by schemaTag and id prefix.
package organizationstore

import (
	"context"
	"fmt"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/felehub/felehub/internal/app/registry"
	"github.com/felehub/felehub/internal/domain/models"
)

// Collection holds both organization aggregates and wallet documents.
const Collection = "localorg"

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Insert stores a fresh aggregate at revision 1. The unique index on the
// folded organization name backstops the caller's pre-insert existence
// check, so a lost create race surfaces as ErrAlreadyExists rather than a
// second aggregate.
func (s *Store) Insert(ctx context.Context, org models.Organization) error {
	org.Rev = 1
	if _, err := s.c.InsertOne(ctx, org); err != nil {
		if wafflemongo.IsDup(err) {
			return registry.ErrAlreadyExists
		}
		return storeErr("insert organization", err)
	}
	return nil
}

// Load returns the single aggregate whose organizationName equals name,
// including its current revision. Zero matches is ErrNotFound; more than
// one means the uniqueness invariant is broken and is reported as
// ErrAmbiguousState, never silently resolved.
func (s *Store) Load(ctx context.Context, name string) (models.Organization, error) {
	cur, err := s.c.Find(ctx, bson.M{
		"schemaTag":        models.SchemaTagLocalOrg,
		"organizationName": name,
	})
	if err != nil {
		return models.Organization{}, storeErr("query organization", err)
	}

	var docs []models.Organization
	if err := cur.All(ctx, &docs); err != nil {
		return models.Organization{}, storeErr("decode organization", err)
	}

	switch len(docs) {
	case 0:
		return models.Organization{}, registry.ErrNotFound
	case 1:
		return docs[0], nil
	default:
		return models.Organization{}, registry.ErrAmbiguousState
	}
}

// UpdateIfRevisionMatches replaces the stored aggregate only when the
// stored revision still equals org.Rev; the replacement carries the bumped
// revision. A zero match count means another writer committed first.
func (s *Store) UpdateIfRevisionMatches(ctx context.Context, org models.Organization) error {
	expected := org.Rev
	org.Rev = expected + 1

	res, err := s.c.ReplaceOne(ctx, bson.M{"_id": org.ID, "rev": expected}, org)
	if err != nil {
		return storeErr("replace organization", err)
	}
	if res.MatchedCount == 0 {
		return registry.ErrConflict
	}
	return nil
}

// storeErr maps driver failures onto the store error taxonomy, keeping the
// underlying error in the chain. Timeouts and unreachable servers surface
// as ErrUnavailable so callers can apply their own retry policy.
func storeErr(op string, err error) error {
	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return fmt.Errorf("%s: %w: %v", op, registry.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
