// internal/app/store/wallets/walletstore.go

// Package walletstore persists wallet documents in the shared localorg
// collection. Wallet writes are unconditioned: the credential list is
// append-only and lives outside the aggregate's optimistic-concurrency
// boundary.
package walletstore

import (
	"context"
	"errors"
	"fmt"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/felehub/felehub/internal/app/registry"
	organizationstore "github.com/felehub/felehub/internal/app/store/organizations"
	"github.com/felehub/felehub/internal/domain/models"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(organizationstore.Collection)}
}

func (s *Store) Get(ctx context.Context, id string) (models.Wallet, error) {
	var w models.Wallet
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&w)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Wallet{}, registry.ErrNotFound
	}
	if err != nil {
		return models.Wallet{}, storeErr("get wallet", err)
	}
	return w, nil
}

func (s *Store) Insert(ctx context.Context, w models.Wallet) error {
	if _, err := s.c.InsertOne(ctx, w); err != nil {
		if wafflemongo.IsDup(err) {
			return registry.ErrAlreadyExists
		}
		return storeErr("insert wallet", err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, w models.Wallet) error {
	res, err := s.c.ReplaceOne(ctx, bson.M{"_id": w.ID}, w)
	if err != nil {
		return storeErr("update wallet", err)
	}
	if res.MatchedCount == 0 {
		return registry.ErrNotFound
	}
	return nil
}

func storeErr(op string, err error) error {
	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return fmt.Errorf("%s: %w: %v", op, registry.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
