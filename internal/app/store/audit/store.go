// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Event categories
const (
	CategoryAuth     = "auth"
	CategoryRegistry = "registry"
)

// Auth event types
const (
	EventLoginSuccess         = "login_success"
	EventLoginFailed          = "login_failed"
	EventLoginFailedRateLimit = "login_failed_rate_limit"
	EventLogout               = "logout"
	EventPasswordChanged      = "password_changed"
)

// Registry event types
const (
	EventOrgCreated         = "org_created"
	EventUserAdded          = "user_added"
	EventUserDeleted        = "user_deleted"
	EventNetworkRegistered  = "network_registered"
	EventMappingUpserted    = "mapping_upserted"
	EventMappingDeleted     = "mapping_deleted"
	EventCredentialAppended = "credential_appended"
)

// Event represents an audit event.
type Event struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Timestamp time.Time          `bson:"timestamp"`

	// Event classification
	Category  string `bson:"category"`
	EventType string `bson:"event_type"`

	// Who and where
	Organization string `bson:"organization,omitempty"`
	Actor        string `bson:"actor,omitempty"`  // local username performing the action
	Target       string `bson:"target,omitempty"` // user, network or identity acted on
	IP           string `bson:"ip,omitempty"`

	// Outcome
	Success       bool   `bson:"success"`
	FailureReason string `bson:"failure_reason,omitempty"`

	// Additional details (varies by event type)
	Details map[string]string `bson:"details,omitempty"`
}

// Collection is the MongoDB collection audit events are stored in.
const Collection = "audit_events"

// Store persists audit events.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Log inserts an audit event, stamping the timestamp if unset.
func (s *Store) Log(ctx context.Context, e Event) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, e)
	return err
}

// ListRecent returns the most recent events for an organization, newest
// first. A blank organization returns events across all organizations.
func (s *Store) ListRecent(ctx context.Context, organization string, limit int64) ([]Event, error) {
	filter := bson.M{}
	if organization != "" {
		filter["organization"] = organization
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit)

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var events []Event
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}
