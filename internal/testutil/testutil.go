// internal/testutil/testutil.go

// Package testutil provides shared helpers for tests: a throwaway Mongo
// database per test (skipped when no local mongod is reachable) and fixture
// builders for organization aggregates.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// TestMongoURI is where store tests look for a disposable mongod.
const TestMongoURI = "mongodb://localhost:27017"

// TestContext returns a context with a generous test deadline.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// SetupTestDB connects to the local test mongod and hands the test a
// uniquely named database that is dropped on cleanup. Tests are skipped,
// not failed, when mongod is not running so the suite stays green on
// machines without one.
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(TestMongoURI))
	if err != nil {
		t.Skipf("mongod not reachable at %s: %v", TestMongoURI, err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		t.Skipf("mongod not reachable at %s: %v", TestMongoURI, err)
	}

	db := client.Database(fmt.Sprintf("felehub_test_%d", time.Now().UnixNano()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return db
}
