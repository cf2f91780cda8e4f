// internal/app/store/memstore/memstore.go

// Package memstore provides in-memory implementations of the registry's
// store interfaces with the same revision semantics as the Mongo-backed
// stores. It backs tests and local development without a mongod.
package memstore

import (
	"context"
	"sync"

	"github.com/felehub/felehub/internal/app/registry"
	"github.com/felehub/felehub/internal/domain/models"
)

// OrganizationStore is a goroutine-safe in-memory registry.OrganizationStore.
type OrganizationStore struct {
	mu   sync.Mutex
	byID map[string]models.Organization
}

// NewOrganizationStore returns an empty in-memory organization store.
func NewOrganizationStore() *OrganizationStore {
	return &OrganizationStore{byID: map[string]models.Organization{}}
}

// Insert stores a fresh aggregate at revision 1. Name uniqueness mirrors the
// unique index on the folded name.
func (s *OrganizationStore) Insert(ctx context.Context, org models.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[org.ID]; ok {
		return registry.ErrAlreadyExists
	}
	for _, existing := range s.byID {
		if existing.NameCI == org.NameCI {
			return registry.ErrAlreadyExists
		}
	}

	org = org.Clone()
	org.Rev = 1
	s.byID[org.ID] = org
	return nil
}

// Load returns the one aggregate whose organizationName equals name.
func (s *OrganizationStore) Load(ctx context.Context, name string) (models.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var found []models.Organization
	for _, org := range s.byID {
		if org.Name == name {
			found = append(found, org)
		}
	}
	switch len(found) {
	case 0:
		return models.Organization{}, registry.ErrNotFound
	case 1:
		return found[0].Clone(), nil
	default:
		return models.Organization{}, registry.ErrAmbiguousState
	}
}

// UpdateIfRevisionMatches replaces the stored aggregate only when its
// revision still equals org.Rev.
func (s *OrganizationStore) UpdateIfRevisionMatches(ctx context.Context, org models.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[org.ID]
	if !ok {
		return registry.ErrNotFound
	}
	if current.Rev != org.Rev {
		return registry.ErrConflict
	}

	next := org.Clone()
	next.Rev = org.Rev + 1
	s.byID[org.ID] = next
	return nil
}

// WalletStore is a goroutine-safe in-memory registry.WalletStore.
type WalletStore struct {
	mu   sync.Mutex
	byID map[string]models.Wallet
}

// NewWalletStore returns an empty in-memory wallet store.
func NewWalletStore() *WalletStore {
	return &WalletStore{byID: map[string]models.Wallet{}}
}

func (s *WalletStore) Get(ctx context.Context, id string) (models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.byID[id]
	if !ok {
		return models.Wallet{}, registry.ErrNotFound
	}
	w.Credentials = append([]string(nil), w.Credentials...)
	return w, nil
}

func (s *WalletStore) Insert(ctx context.Context, w models.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[w.ID]; ok {
		return registry.ErrAlreadyExists
	}
	w.Credentials = append([]string(nil), w.Credentials...)
	s.byID[w.ID] = w
	return nil
}

func (s *WalletStore) Update(ctx context.Context, w models.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[w.ID]; !ok {
		return registry.ErrNotFound
	}
	w.Credentials = append([]string(nil), w.Credentials...)
	s.byID[w.ID] = w
	return nil
}
