package localorg_test

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/felehub/felehub/internal/domain/localorg"
	"github.com/felehub/felehub/internal/domain/models"
)

var (
	t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Minute)
)

func newOrg(t *testing.T, users ...models.LocalUser) models.Organization {
	t.Helper()
	org, err := localorg.New("org~test", "nasa", "nasa", users, t0)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return org
}

func user(name string) models.LocalUser {
	return models.LocalUser{Username: name, Password: "hash-" + name, Role: "member"}
}

func TestNew_RejectsDuplicateSeedUsers(t *testing.T) {
	_, err := localorg.New("org~test", "nasa", "nasa",
		[]models.LocalUser{user("root"), user("root")}, t0)
	if !errors.Is(err, localorg.ErrDuplicateUser) {
		t.Fatalf("want ErrDuplicateUser, got %v", err)
	}
}

func TestAddLocalUser_Unique(t *testing.T) {
	org := newOrg(t, user("root"))

	org, err := localorg.AddLocalUser(org, "alice", "hash-alice", "member", t1)
	if err != nil {
		t.Fatalf("AddLocalUser failed: %v", err)
	}
	if len(org.LocalUsers) != 2 {
		t.Fatalf("want 2 users, got %d", len(org.LocalUsers))
	}

	before := org
	_, err = localorg.AddLocalUser(org, "alice", "other", "admin", t1)
	if !errors.Is(err, localorg.ErrDuplicateUser) {
		t.Fatalf("want ErrDuplicateUser, got %v", err)
	}
	// The input aggregate is unchanged after a rejected mutation.
	if !reflect.DeepEqual(before, org) {
		t.Error("aggregate changed by failed AddLocalUser")
	}
}

func TestAddLocalUser_DoesNotAliasInput(t *testing.T) {
	org := newOrg(t, user("root"))

	next, err := localorg.AddLocalUser(org, "alice", "h", "member", t1)
	if err != nil {
		t.Fatalf("AddLocalUser failed: %v", err)
	}
	next.LocalUsers[0].Role = "changed"
	if org.LocalUsers[0].Role == "changed" {
		t.Error("mutation of result leaked into input aggregate")
	}
}

func TestDeleteLocalUser_CascadesAcrossNetworks(t *testing.T) {
	org := newOrg(t, user("root"), user("bob"), user("carol"))
	org, _ = localorg.RegisterNetwork(org, "n1", "admin1", "wallet~admin1", "root", t0)
	org, _ = localorg.RegisterNetwork(org, "n2", "admin2", "wallet~admin2", "root", t0)

	var err error
	org, err = localorg.AddOrUpdateMapping(org, "n1", "bob", "admin1", t0)
	if err != nil {
		t.Fatalf("map bob on n1: %v", err)
	}
	org, err = localorg.AddOrUpdateMapping(org, "n2", "bob", "admin2", t0)
	if err != nil {
		t.Fatalf("map bob on n2: %v", err)
	}
	org, err = localorg.AddOrUpdateMapping(org, "n2", "carol", "admin2", t0)
	if err != nil {
		t.Fatalf("map carol on n2: %v", err)
	}

	org, err = localorg.DeleteLocalUser(org, "bob", t1)
	if err != nil {
		t.Fatalf("DeleteLocalUser failed: %v", err)
	}

	for _, u := range org.LocalUsers {
		if u.Username == "bob" {
			t.Error("bob still present in localUsers")
		}
	}
	for _, net := range []string{"n1", "n2"} {
		for _, m := range org.Networks[net].Mappings {
			if m.From == "bob" {
				t.Errorf("mapping for bob still present on %s", net)
			}
		}
	}
	// Unrelated mappings survive.
	want := []models.Mapping{{From: "root", To: "admin2"}, {From: "carol", To: "admin2"}}
	if got := org.Networks["n2"].Mappings; !reflect.DeepEqual(got, want) {
		t.Errorf("n2 mappings = %v, want %v", got, want)
	}
}

func TestDeleteLocalUser_NotFound(t *testing.T) {
	org := newOrg(t, user("root"))
	_, err := localorg.DeleteLocalUser(org, "ghost", t1)
	if !errors.Is(err, localorg.ErrUserNotFound) {
		t.Fatalf("want ErrUserNotFound, got %v", err)
	}
}

func TestUpdatePassword(t *testing.T) {
	org := newOrg(t, user("root"))

	next, err := localorg.UpdatePassword(org, "root", "hash-root", "hash-new", t1)
	if err != nil {
		t.Fatalf("UpdatePassword failed: %v", err)
	}
	if next.LocalUsers[0].Password != "hash-new" {
		t.Errorf("password = %q, want %q", next.LocalUsers[0].Password, "hash-new")
	}
	if !next.UpdatedAt.Equal(t1) {
		t.Errorf("updatedAt = %v, want %v", next.UpdatedAt, t1)
	}

	_, err = localorg.UpdatePassword(org, "root", "wrong", "hash-new", t1)
	if !errors.Is(err, localorg.ErrPasswordMismatch) {
		t.Fatalf("want ErrPasswordMismatch, got %v", err)
	}
	// A rejected update leaves the aggregate, including updatedAt, untouched.
	if !org.UpdatedAt.Equal(t0) {
		t.Errorf("updatedAt changed on failed update: %v", org.UpdatedAt)
	}

	_, err = localorg.UpdatePassword(org, "ghost", "x", "y", t1)
	if !errors.Is(err, localorg.ErrUserNotFound) {
		t.Fatalf("want ErrUserNotFound, got %v", err)
	}
}

func TestRegisterNetwork_SeedsIdentityAndMapping(t *testing.T) {
	org := newOrg(t) // no local users; bootstrap registration still works

	org, err := localorg.RegisterNetwork(org, "net1", "admin1", "wallet~admin1", "root", t1)
	if err != nil {
		t.Fatalf("RegisterNetwork failed: %v", err)
	}

	reg, ok := org.Networks["net1"]
	if !ok {
		t.Fatal("net1 not registered")
	}
	if reg.OrganizationRef != "nasa" {
		t.Errorf("organizationRef = %q, want %q", reg.OrganizationRef, "nasa")
	}
	if len(reg.Channels) != 0 {
		t.Errorf("channels = %v, want empty", reg.Channels)
	}
	wantIdent := []models.NetworkIdentity{{ID: "admin1", WalletID: "wallet~admin1"}}
	if !reflect.DeepEqual(reg.Identities, wantIdent) {
		t.Errorf("identities = %v, want %v", reg.Identities, wantIdent)
	}
	wantMap := []models.Mapping{{From: "root", To: "admin1"}}
	if !reflect.DeepEqual(reg.Mappings, wantMap) {
		t.Errorf("mappings = %v, want %v", reg.Mappings, wantMap)
	}

	_, err = localorg.RegisterNetwork(org, "net1", "admin2", "wallet~admin2", "root", t1)
	if !errors.Is(err, localorg.ErrAlreadyRegistered) {
		t.Fatalf("want ErrAlreadyRegistered, got %v", err)
	}
}

func TestAddOrUpdateMapping_Validation(t *testing.T) {
	org := newOrg(t, user("root"), user("alice"))
	org, _ = localorg.RegisterNetwork(org, "net1", "admin1", "wallet~admin1", "root", t0)

	tests := []struct {
		name    string
		network string
		from    string
		to      string
		wantErr error
	}{
		{"unknown network", "nope", "alice", "admin1", localorg.ErrNetworkNotFound},
		{"unknown local user", "net1", "ghost", "admin1", localorg.ErrLocalUserNotFound},
		{"unknown identity", "net1", "root", "unknownUser", localorg.ErrNetworkIdentityNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := localorg.AddOrUpdateMapping(org, tt.network, tt.from, tt.to, t1)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAddOrUpdateMapping_Idempotent(t *testing.T) {
	org := newOrg(t, user("root"), user("alice"))
	org, _ = localorg.RegisterNetwork(org, "net1", "fele1", "wallet~fele1", "root", t0)

	once, err := localorg.AddOrUpdateMapping(org, "net1", "alice", "fele1", t1)
	if err != nil {
		t.Fatalf("first AddOrUpdateMapping failed: %v", err)
	}
	twice, err := localorg.AddOrUpdateMapping(once, "net1", "alice", "fele1", t1)
	if err != nil {
		t.Fatalf("second AddOrUpdateMapping failed: %v", err)
	}
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("repeated mapping changed the aggregate: %v vs %v", once, twice)
	}
}

func TestAddOrUpdateMapping_ReplacesExistingTarget(t *testing.T) {
	org := newOrg(t, user("root"))
	org, _ = localorg.RegisterNetwork(org, "net1", "fele1", "wallet~fele1", "root", t0)

	// Second identity on the network, then remap root to it.
	reg := org.Networks["net1"]
	reg.Identities = append(reg.Identities, models.NetworkIdentity{ID: "fele2", WalletID: "wallet~fele2"})
	org.Networks["net1"] = reg

	org, err := localorg.AddOrUpdateMapping(org, "net1", "root", "fele2", t1)
	if err != nil {
		t.Fatalf("remap failed: %v", err)
	}
	want := []models.Mapping{{From: "root", To: "fele2"}}
	if got := org.Networks["net1"].Mappings; !reflect.DeepEqual(got, want) {
		t.Errorf("mappings = %v, want %v (replace, not append)", got, want)
	}
}

func TestDeleteMapping(t *testing.T) {
	org := newOrg(t, user("root"))
	org, _ = localorg.RegisterNetwork(org, "net1", "fele1", "wallet~fele1", "root", t0)

	next, err := localorg.DeleteMapping(org, "net1", "root", t1)
	if err != nil {
		t.Fatalf("DeleteMapping failed: %v", err)
	}
	if len(next.Networks["net1"].Mappings) != 0 {
		t.Errorf("mappings = %v, want empty", next.Networks["net1"].Mappings)
	}

	if _, err := localorg.DeleteMapping(org, "nope", "root", t1); !errors.Is(err, localorg.ErrNetworkNotFound) {
		t.Errorf("want ErrNetworkNotFound, got %v", err)
	}
	if _, err := localorg.DeleteMapping(next, "net1", "root", t1); !errors.Is(err, localorg.ErrMappingNotFound) {
		t.Errorf("want ErrMappingNotFound, got %v", err)
	}
}

func TestResolveMapping(t *testing.T) {
	org := newOrg(t, user("root"), user("alice"))
	org, _ = localorg.RegisterNetwork(org, "net1", "fele1", "wallet~fele1", "root", t0)

	res, err := localorg.ResolveMapping(org, "net1", "root")
	if err != nil {
		t.Fatalf("ResolveMapping failed: %v", err)
	}
	want := localorg.Resolution{LocalUser: "root", Mapped: true, FeleUser: "fele1", WalletID: "wallet~fele1"}
	if res != want {
		t.Errorf("resolution = %+v, want %+v", res, want)
	}

	res, err = localorg.ResolveMapping(org, "net1", "alice")
	if err != nil {
		t.Fatalf("ResolveMapping (unmapped) failed: %v", err)
	}
	if res.Mapped || res.FeleUser != "" {
		t.Errorf("unmapped user resolved to %+v", res)
	}

	if _, err := localorg.ResolveMapping(org, "nope", "root"); !errors.Is(err, localorg.ErrNetworkNotFound) {
		t.Errorf("want ErrNetworkNotFound, got %v", err)
	}
}

func TestResolveMapping_CorruptedAggregate(t *testing.T) {
	org := newOrg(t, user("root"))
	org, _ = localorg.RegisterNetwork(org, "net1", "fele1", "wallet~fele1", "root", t0)

	// Simulate corruption: mapping target with no matching identity.
	reg := org.Networks["net1"]
	reg.Identities = nil
	org.Networks["net1"] = reg

	_, err := localorg.ResolveMapping(org, "net1", "root")
	if !errors.Is(err, localorg.ErrIntegrityViolation) {
		t.Fatalf("want ErrIntegrityViolation, got %v", err)
	}
}

func TestListMappings(t *testing.T) {
	org := newOrg(t, user("root"), user("alice"))
	org, _ = localorg.RegisterNetwork(org, "net1", "fele1", "wallet~fele1", "root", t0)
	org, _ = localorg.AddOrUpdateMapping(org, "net1", "alice", "fele1", t1)

	views, err := localorg.ListMappings(org, "net1")
	if err != nil {
		t.Fatalf("ListMappings failed: %v", err)
	}
	want := []localorg.MappingView{
		{LocalUser: "root", FeleUser: "fele1"},
		{LocalUser: "alice", FeleUser: "fele1"},
	}
	if !reflect.DeepEqual(views, want) {
		t.Errorf("mappings = %v, want %v", views, want)
	}

	if _, err := localorg.ListMappings(org, "nope"); !errors.Is(err, localorg.ErrNetworkNotFound) {
		t.Errorf("want ErrNetworkNotFound, got %v", err)
	}
}

// Referential integrity holds after an arbitrary sequence of supported
// operations: every mapping source is a local user and every mapping target
// is an identity on that network.
func TestReferentialIntegrity_OperationSequence(t *testing.T) {
	org := newOrg(t, user("root"), user("alice"), user("bob"))
	org, _ = localorg.RegisterNetwork(org, "n1", "admin1", "wallet~admin1", "root", t0)
	org, _ = localorg.RegisterNetwork(org, "n2", "admin2", "wallet~admin2", "root", t0)
	org, _ = localorg.AddOrUpdateMapping(org, "n1", "alice", "admin1", t1)
	org, _ = localorg.AddOrUpdateMapping(org, "n2", "bob", "admin2", t1)
	org, _ = localorg.AddOrUpdateMapping(org, "n1", "bob", "admin1", t1)
	org, _ = localorg.DeleteMapping(org, "n1", "alice", t1)
	org, _ = localorg.DeleteLocalUser(org, "bob", t1)

	users := map[string]bool{}
	for _, u := range org.LocalUsers {
		users[u.Username] = true
	}
	for name, reg := range org.Networks {
		idents := map[string]bool{}
		for _, ident := range reg.Identities {
			idents[ident.ID] = true
		}
		for _, m := range reg.Mappings {
			if !users[m.From] {
				t.Errorf("%s: mapping source %q has no local user", name, m.From)
			}
			if !idents[m.To] {
				t.Errorf("%s: mapping target %q has no identity", name, m.To)
			}
		}
	}
}
