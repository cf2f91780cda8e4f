package registry_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/felehub/felehub/internal/app/registry"
	"github.com/felehub/felehub/internal/app/store/memstore"
	"github.com/felehub/felehub/internal/domain/localorg"
	"github.com/felehub/felehub/internal/domain/models"
)

func newRegistry(t *testing.T) (*registry.Registry, *memstore.OrganizationStore, *memstore.WalletStore) {
	t.Helper()
	orgs := memstore.NewOrganizationStore()
	wallets := memstore.NewWalletStore()
	return registry.New(orgs, wallets, zap.NewNop()), orgs, wallets
}

func seedNasa(t *testing.T, r *registry.Registry, usernames ...string) {
	t.Helper()
	ctx := context.Background()

	users := make([]models.LocalUser, 0, len(usernames))
	for _, name := range usernames {
		users = append(users, models.LocalUser{Username: name, Password: "hash-" + name, Role: "member"})
	}
	if _, err := r.CreateOrganization(ctx, "nasa", users); err != nil {
		t.Fatalf("CreateOrganization failed: %v", err)
	}
	if _, err := r.RegisterNetwork(ctx, "nasa", "net1", "admin1", "wallet~admin1", "root"); err != nil {
		t.Fatalf("RegisterNetwork failed: %v", err)
	}
}

func TestCreateOrganization_DuplicateName(t *testing.T) {
	r, _, _ := newRegistry(t)
	ctx := context.Background()

	if _, err := r.CreateOrganization(ctx, "nasa", nil); err != nil {
		t.Fatalf("CreateOrganization failed: %v", err)
	}
	_, err := r.CreateOrganization(ctx, "nasa", nil)
	if !errors.Is(err, registry.ErrAlreadyExists) {
		t.Fatalf("want ErrAlreadyExists, got %v", err)
	}
}

func TestRegisterNetwork_Bootstrap(t *testing.T) {
	r, _, _ := newRegistry(t)
	ctx := context.Background()

	// No seed users; the bootstrap mapping is still accepted.
	if _, err := r.CreateOrganization(ctx, "nasa", nil); err != nil {
		t.Fatalf("CreateOrganization failed: %v", err)
	}
	org, err := r.RegisterNetwork(ctx, "nasa", "net1", "admin1", "wallet~admin1", "root")
	if err != nil {
		t.Fatalf("RegisterNetwork failed: %v", err)
	}

	reg := org.Networks["net1"]
	if len(reg.Identities) != 1 || reg.Identities[0].ID != "admin1" || reg.Identities[0].WalletID != "wallet~admin1" {
		t.Errorf("identities = %v", reg.Identities)
	}
	if len(reg.Mappings) != 1 || reg.Mappings[0] != (models.Mapping{From: "root", To: "admin1"}) {
		t.Errorf("mappings = %v", reg.Mappings)
	}
}

func TestApply_ValidationErrorDoesNotPersist(t *testing.T) {
	r, orgs, _ := newRegistry(t)
	ctx := context.Background()
	seedNasa(t, r, "root")

	before, _ := orgs.Load(ctx, "nasa")

	_, err := r.AddOrUpdateMapping(ctx, "nasa", "net1", "root", "unknownUser")
	if !errors.Is(err, localorg.ErrNetworkIdentityNotFound) {
		t.Fatalf("want ErrNetworkIdentityNotFound, got %v", err)
	}

	after, _ := orgs.Load(ctx, "nasa")
	if after.Rev != before.Rev {
		t.Errorf("rev moved from %d to %d on failed mutation", before.Rev, after.Rev)
	}
}

func TestApply_ConcurrentMappings_BothLand(t *testing.T) {
	r, orgs, _ := newRegistry(t)
	ctx := context.Background()
	seedNasa(t, r, "root", "alice", "bob")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, from := range []string{"alice", "bob"} {
		wg.Add(1)
		go func(i int, from string) {
			defer wg.Done()
			_, errs[i] = r.AddOrUpdateMapping(ctx, "nasa", "net1", from, "admin1")
		}(i, from)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("writer %d failed: %v", i, err)
		}
	}

	org, err := orgs.Load(ctx, "nasa")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	mapped := map[string]string{}
	for _, m := range org.Networks["net1"].Mappings {
		mapped[m.From] = m.To
	}
	if mapped["alice"] != "admin1" || mapped["bob"] != "admin1" {
		t.Errorf("final mappings = %v, want both alice and bob mapped", mapped)
	}
}

// conflictingStore always loses the revision race.
type conflictingStore struct {
	org models.Organization
}

func (s *conflictingStore) Insert(ctx context.Context, org models.Organization) error {
	return nil
}

func (s *conflictingStore) Load(ctx context.Context, name string) (models.Organization, error) {
	return s.org.Clone(), nil
}

func (s *conflictingStore) UpdateIfRevisionMatches(ctx context.Context, org models.Organization) error {
	return registry.ErrConflict
}

func TestApply_RetryCeiling(t *testing.T) {
	org, err := localorg.New("org~x", "nasa", "nasa", nil, time.Now().UTC())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	org, err = localorg.RegisterNetwork(org, "net1", "admin1", "wallet~admin1", "root", time.Now().UTC())
	if err != nil {
		t.Fatalf("RegisterNetwork failed: %v", err)
	}
	org.Rev = 1

	r := registry.New(&conflictingStore{org: org}, memstore.NewWalletStore(), zap.NewNop())

	_, err = r.DeleteMapping(context.Background(), "nasa", "net1", "root")
	if !errors.Is(err, registry.ErrConcurrentUpdateExhausted) {
		t.Fatalf("want ErrConcurrentUpdateExhausted, got %v", err)
	}
}

func TestResolveMapping_ThroughRegistry(t *testing.T) {
	r, _, _ := newRegistry(t)
	ctx := context.Background()
	seedNasa(t, r, "root", "alice")

	res, err := r.ResolveMapping(ctx, "nasa", "net1", "root")
	if err != nil {
		t.Fatalf("ResolveMapping failed: %v", err)
	}
	if !res.Mapped || res.FeleUser != "admin1" || res.WalletID != "wallet~admin1" {
		t.Errorf("resolution = %+v", res)
	}

	res, err = r.ResolveMapping(ctx, "nasa", "net1", "alice")
	if err != nil {
		t.Fatalf("ResolveMapping (unmapped) failed: %v", err)
	}
	if res.Mapped {
		t.Errorf("alice unexpectedly mapped: %+v", res)
	}

	if _, err := r.ResolveMapping(ctx, "esa", "net1", "root"); !errors.Is(err, registry.ErrNotFound) {
		t.Errorf("want ErrNotFound for unknown org, got %v", err)
	}
}

func TestAddCredentialToWallet_LazyCreateThenAppend(t *testing.T) {
	r, _, wallets := newRegistry(t)
	ctx := context.Background()

	id, err := r.AddCredentialToWallet(ctx, "admin1", "cred-1")
	if err != nil {
		t.Fatalf("first append failed: %v", err)
	}
	if id != "wallet~admin1" {
		t.Errorf("wallet id = %q, want %q", id, "wallet~admin1")
	}

	// Appends do not deduplicate.
	if _, err := r.AddCredentialToWallet(ctx, "admin1", "cred-1"); err != nil {
		t.Fatalf("second append failed: %v", err)
	}
	if _, err := r.AddCredentialToWallet(ctx, "admin1", "cred-2"); err != nil {
		t.Fatalf("third append failed: %v", err)
	}

	w, err := wallets.Get(ctx, "wallet~admin1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	want := []string{"cred-1", "cred-1", "cred-2"}
	if len(w.Credentials) != len(want) {
		t.Fatalf("credentials = %v, want %v", w.Credentials, want)
	}
	for i := range want {
		if w.Credentials[i] != want[i] {
			t.Fatalf("credentials = %v, want %v", w.Credentials, want)
		}
	}
}

