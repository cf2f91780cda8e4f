// internal/domain/localorg/network.go
package localorg

import (
	"time"

	"github.com/felehub/felehub/internal/domain/models"
)

// RegisterNetwork inserts a registration for networkName seeded with one
// network identity (the admin) and one mapping from localUsername to it.
// The seed mapping is accepted even when localUsername is not yet a local
// user: network registration happens during organization bootstrap, before
// the operator account necessarily exists in localUsers.
func RegisterNetwork(org models.Organization, networkName, adminIdentity, walletID, localUsername string, now time.Time) (models.Organization, error) {
	if _, ok := org.Networks[networkName]; ok {
		return models.Organization{}, ErrAlreadyRegistered
	}

	next := clone(org)
	if next.Networks == nil {
		next.Networks = map[string]models.NetworkRegistration{}
	}
	next.Networks[networkName] = models.NetworkRegistration{
		OrganizationRef: org.Name,
		Channels:        []string{},
		Identities: []models.NetworkIdentity{
			{ID: adminIdentity, WalletID: walletID},
		},
		Mappings: []models.Mapping{
			{From: localUsername, To: adminIdentity},
		},
	}
	next.UpdatedAt = now
	return next, nil
}

// AddOrUpdateMapping maps a local user to a network identity on the given
// network. If the user is already mapped, the target is replaced rather than
// appended, so repeated calls with the same arguments are idempotent.
func AddOrUpdateMapping(org models.Organization, networkName, from, to string, now time.Time) (models.Organization, error) {
	reg, ok := org.Networks[networkName]
	if !ok {
		return models.Organization{}, ErrNetworkNotFound
	}
	if _, ok := findUser(org.LocalUsers, from); !ok {
		return models.Organization{}, ErrLocalUserNotFound
	}
	if _, ok := findIdentity(reg.Identities, to); !ok {
		return models.Organization{}, ErrNetworkIdentityNotFound
	}

	next := clone(org)
	reg = next.Networks[networkName]
	if idx, ok := findMapping(reg.Mappings, from); ok {
		reg.Mappings[idx].To = to
	} else {
		reg.Mappings = append(reg.Mappings, models.Mapping{From: from, To: to})
	}
	next.Networks[networkName] = reg
	next.UpdatedAt = now
	return next, nil
}

// DeleteMapping removes the mapping for a local user on the given network.
func DeleteMapping(org models.Organization, networkName, from string, now time.Time) (models.Organization, error) {
	reg, ok := org.Networks[networkName]
	if !ok {
		return models.Organization{}, ErrNetworkNotFound
	}
	if _, ok := findMapping(reg.Mappings, from); !ok {
		return models.Organization{}, ErrMappingNotFound
	}

	next := clone(org)
	reg = next.Networks[networkName]
	kept := reg.Mappings[:0]
	for _, m := range reg.Mappings {
		if m.From != from {
			kept = append(kept, m)
		}
	}
	reg.Mappings = kept
	next.Networks[networkName] = reg
	next.UpdatedAt = now
	return next, nil
}

// Resolution is the outcome of resolving a local user on one network.
type Resolution struct {
	LocalUser string `json:"localUser"`
	Mapped    bool   `json:"mapped"`
	FeleUser  string `json:"feleUser,omitempty"`
	WalletID  string `json:"walletId,omitempty"`
}

// ResolveMapping looks up the network identity a local user acts as on the
// given network. An unmapped user resolves to {Mapped: false}. A mapping
// whose target has no matching identity means the aggregate is corrupted and
// fails with ErrIntegrityViolation rather than returning a partial result.
func ResolveMapping(org models.Organization, networkName, localUsername string) (Resolution, error) {
	reg, ok := org.Networks[networkName]
	if !ok {
		return Resolution{}, ErrNetworkNotFound
	}

	idx, ok := findMapping(reg.Mappings, localUsername)
	if !ok {
		return Resolution{LocalUser: localUsername, Mapped: false}, nil
	}

	to := reg.Mappings[idx].To
	identIdx, ok := findIdentity(reg.Identities, to)
	if !ok {
		return Resolution{}, ErrIntegrityViolation
	}

	return Resolution{
		LocalUser: localUsername,
		Mapped:    true,
		FeleUser:  to,
		WalletID:  reg.Identities[identIdx].WalletID,
	}, nil
}

// MappingView pairs a local user with the fele user it acts as.
type MappingView struct {
	LocalUser string `json:"localUser"`
	FeleUser  string `json:"feleUser"`
}

// ListMappings returns all mappings on the given network.
func ListMappings(org models.Organization, networkName string) ([]MappingView, error) {
	reg, ok := org.Networks[networkName]
	if !ok {
		return nil, ErrNetworkNotFound
	}

	views := make([]MappingView, 0, len(reg.Mappings))
	for _, m := range reg.Mappings {
		views = append(views, MappingView{LocalUser: m.From, FeleUser: m.To})
	}
	return views, nil
}

func findIdentity(identities []models.NetworkIdentity, id string) (int, bool) {
	for i, ident := range identities {
		if ident.ID == id {
			return i, true
		}
	}
	return 0, false
}

func findMapping(mappings []models.Mapping, from string) (int, bool) {
	for i, m := range mappings {
		if m.From == from {
			return i, true
		}
	}
	return 0, false
}
