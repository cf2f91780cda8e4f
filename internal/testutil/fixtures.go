// internal/testutil/fixtures.go
package testutil

import (
	"testing"
	"time"

	"github.com/felehub/felehub/internal/domain/localorg"
	"github.com/felehub/felehub/internal/domain/models"
)

// NewAggregate builds an organization aggregate value for tests, registered
// on no networks. Seed usernames get "hash-<name>" placeholder password
// hashes and the member role.
func NewAggregate(t *testing.T, name string, usernames ...string) models.Organization {
	t.Helper()

	users := make([]models.LocalUser, 0, len(usernames))
	for _, u := range usernames {
		users = append(users, models.LocalUser{
			Username: u,
			Password: "hash-" + u,
			Role:     "member",
		})
	}

	org, err := localorg.New("org~test-"+name, name, name, users, time.Now().UTC())
	if err != nil {
		t.Fatalf("building test aggregate: %v", err)
	}
	return org
}

// WithNetwork registers a network on the aggregate with one admin identity
// and the bootstrap mapping from localUsername.
func WithNetwork(t *testing.T, org models.Organization, network, admin, localUsername string) models.Organization {
	t.Helper()

	org, err := localorg.RegisterNetwork(org, network, admin, models.WalletID(admin), localUsername, time.Now().UTC())
	if err != nil {
		t.Fatalf("registering test network: %v", err)
	}
	return org
}
