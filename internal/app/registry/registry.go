// internal/app/registry/registry.go

// Package registry orchestrates persistence of the organization aggregate:
// it loads the document and its revision, applies a pure mutation from
// localorg, and writes the result back conditioned on the loaded revision,
// retrying the whole cycle on conflict. It is the only layer that retries;
// the mutation functions themselves are pure and re-appliable.
package registry

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/felehub/felehub/internal/app/system/normalize"
	"github.com/felehub/felehub/internal/domain/localorg"
	"github.com/felehub/felehub/internal/domain/models"
)

// Store failure modes. Both the Mongo-backed stores and the in-memory store
// report these so callers can match with errors.Is regardless of backend.
var (
	// ErrNotFound is returned when no document matches the query.
	ErrNotFound = errors.New("document not found")

	// ErrAmbiguousState is returned when more than one aggregate matches an
	// organization name. That can only happen if the uniqueness invariant
	// has been broken and is treated as data corruption, never repaired.
	ErrAmbiguousState = errors.New("multiple aggregates for one organization")

	// ErrAlreadyExists is returned when an insert collides with an existing
	// document (duplicate organization name or wallet id).
	ErrAlreadyExists = errors.New("document already exists")

	// ErrConflict is returned when a conditional write loses a revision
	// race. It is the only error the apply loop retries on.
	ErrConflict = errors.New("revision conflict")

	// ErrConcurrentUpdateExhausted is returned when the apply loop gives up
	// after repeated conflicts. Transient; safe to retry at a higher layer.
	ErrConcurrentUpdateExhausted = errors.New("concurrent update attempts exhausted")

	// ErrUnavailable is returned when the store cannot be reached.
	ErrUnavailable = errors.New("document store unavailable")
)

// maxApplyAttempts bounds the load-mutate-write cycle. Contention on a
// single organization is expected to be rare, so there is no backoff.
const maxApplyAttempts = 5

// OrganizationStore is the document-store surface the registry needs for
// organization aggregates.
type OrganizationStore interface {
	// Insert stores a fresh aggregate (rev 1). Returns ErrAlreadyExists on
	// an organization-name collision.
	Insert(ctx context.Context, org models.Organization) error

	// Load returns the single aggregate for an organization name, with its
	// current revision. Returns ErrNotFound on zero matches and
	// ErrAmbiguousState on more than one.
	Load(ctx context.Context, name string) (models.Organization, error)

	// UpdateIfRevisionMatches replaces the stored aggregate only if its
	// revision still equals org.Rev, writing org with the revision bumped.
	// Returns ErrConflict when the revision moved underneath us.
	UpdateIfRevisionMatches(ctx context.Context, org models.Organization) error
}

// WalletStore is the document-store surface for wallet documents. Wallet
// writes are deliberately unconditioned: the credential list is append-only
// and its consistency boundary is independent of the aggregate's.
type WalletStore interface {
	Get(ctx context.Context, id string) (models.Wallet, error)
	Insert(ctx context.Context, w models.Wallet) error
	Update(ctx context.Context, w models.Wallet) error
}

// Registry exposes the organization-aggregate operations to the service
// layer. Passwords arriving here are already hashed.
type Registry struct {
	orgs    OrganizationStore
	wallets WalletStore
	log     *zap.Logger
}

// New constructs a Registry over the given stores.
func New(orgs OrganizationStore, wallets WalletStore, logger *zap.Logger) *Registry {
	return &Registry{orgs: orgs, wallets: wallets, log: logger}
}

// CreateOrganization bootstraps a new aggregate with optional seed users.
// Organization names are unique; the existence check here is backed by a
// unique index on the folded name, so a lost race still fails cleanly.
func (r *Registry) CreateOrganization(ctx context.Context, name string, users []models.LocalUser) (models.Organization, error) {
	name = normalize.Name(name)

	if _, err := r.orgs.Load(ctx, name); err == nil {
		return models.Organization{}, ErrAlreadyExists
	} else if !errors.Is(err, ErrNotFound) {
		return models.Organization{}, err
	}

	org, err := localorg.New(
		models.OrgIDPrefix+uuid.NewString(),
		name,
		text.Fold(name),
		users,
		time.Now().UTC(),
	)
	if err != nil {
		return models.Organization{}, err
	}

	if err := r.orgs.Insert(ctx, org); err != nil {
		return models.Organization{}, err
	}
	r.log.Info("organization created",
		zap.String("organization", name),
		zap.Int("seed_users", len(users)))
	org.Rev = 1
	return org, nil
}

// GetOrganization loads the current aggregate.
func (r *Registry) GetOrganization(ctx context.Context, name string) (models.Organization, error) {
	return r.orgs.Load(ctx, normalize.Name(name))
}

// ListLocalUsers returns the local users of an organization.
func (r *Registry) ListLocalUsers(ctx context.Context, name string) ([]models.LocalUser, error) {
	org, err := r.orgs.Load(ctx, normalize.Name(name))
	if err != nil {
		return nil, err
	}
	return org.LocalUsers, nil
}

// AddLocalUser appends a local user to the aggregate.
func (r *Registry) AddLocalUser(ctx context.Context, orgName, username, password, role string) (models.Organization, error) {
	username = normalize.Name(username)
	return r.apply(ctx, orgName, func(org models.Organization) (models.Organization, error) {
		return localorg.AddLocalUser(org, username, password, role, time.Now().UTC())
	})
}

// DeleteLocalUser removes a local user and every mapping referencing it.
func (r *Registry) DeleteLocalUser(ctx context.Context, orgName, username string) (models.Organization, error) {
	return r.apply(ctx, orgName, func(org models.Organization) (models.Organization, error) {
		return localorg.DeleteLocalUser(org, username, time.Now().UTC())
	})
}

// UpdatePassword replaces a user's password hash after the old hash matches.
func (r *Registry) UpdatePassword(ctx context.Context, orgName, username, oldPassword, newPassword string) (models.Organization, error) {
	return r.apply(ctx, orgName, func(org models.Organization) (models.Organization, error) {
		return localorg.UpdatePassword(org, username, oldPassword, newPassword, time.Now().UTC())
	})
}

// RegisterNetwork records a fele network for the organization, seeded with
// the admin identity and a bootstrap mapping for localUsername.
func (r *Registry) RegisterNetwork(ctx context.Context, orgName, networkName, adminIdentity, walletID, localUsername string) (models.Organization, error) {
	networkName = normalize.Name(networkName)
	org, err := r.apply(ctx, orgName, func(org models.Organization) (models.Organization, error) {
		return localorg.RegisterNetwork(org, networkName, adminIdentity, walletID, localUsername, time.Now().UTC())
	})
	if err != nil {
		return models.Organization{}, err
	}
	r.log.Info("network registered",
		zap.String("organization", org.Name),
		zap.String("network", networkName),
		zap.String("admin_identity", adminIdentity))
	return org, nil
}

// AddOrUpdateMapping maps a local user to a network identity; remapping an
// already-mapped user replaces the target.
func (r *Registry) AddOrUpdateMapping(ctx context.Context, orgName, networkName, from, to string) (models.Organization, error) {
	return r.apply(ctx, orgName, func(org models.Organization) (models.Organization, error) {
		return localorg.AddOrUpdateMapping(org, networkName, from, to, time.Now().UTC())
	})
}

// DeleteMapping removes one user's mapping on a network.
func (r *Registry) DeleteMapping(ctx context.Context, orgName, networkName, from string) (models.Organization, error) {
	return r.apply(ctx, orgName, func(org models.Organization) (models.Organization, error) {
		return localorg.DeleteMapping(org, networkName, from, time.Now().UTC())
	})
}

// ResolveMapping answers which network identity a local user acts as on a
// network, including the wallet id for that identity.
func (r *Registry) ResolveMapping(ctx context.Context, orgName, networkName, username string) (localorg.Resolution, error) {
	org, err := r.orgs.Load(ctx, normalize.Name(orgName))
	if err != nil {
		return localorg.Resolution{}, err
	}
	res, err := localorg.ResolveMapping(org, networkName, username)
	if errors.Is(err, localorg.ErrIntegrityViolation) {
		r.log.Error("aggregate integrity violation",
			zap.String("organization", org.Name),
			zap.String("network", networkName),
			zap.String("local_user", username))
	}
	return res, err
}

// ListMappings returns the local-user/fele-user pairs on a network.
func (r *Registry) ListMappings(ctx context.Context, orgName, networkName string) ([]localorg.MappingView, error) {
	org, err := r.orgs.Load(ctx, normalize.Name(orgName))
	if err != nil {
		return nil, err
	}
	return localorg.ListMappings(org, networkName)
}

// apply runs the load-mutate-write cycle under optimistic concurrency. A
// conflicting writer wins the revision race; we reload the post-commit state
// and reapply the mutation from scratch. Any error other than ErrConflict,
// including validation failures from the mutation itself, aborts
// immediately.
func (r *Registry) apply(ctx context.Context, orgName string, mutate func(models.Organization) (models.Organization, error)) (models.Organization, error) {
	orgName = normalize.Name(orgName)

	for attempt := 1; attempt <= maxApplyAttempts; attempt++ {
		org, err := r.orgs.Load(ctx, orgName)
		if err != nil {
			return models.Organization{}, err
		}

		next, err := mutate(org)
		if err != nil {
			return models.Organization{}, err
		}

		err = r.orgs.UpdateIfRevisionMatches(ctx, next)
		if err == nil {
			next.Rev++
			return next, nil
		}
		if !errors.Is(err, ErrConflict) {
			return models.Organization{}, err
		}

		r.log.Warn("revision conflict on aggregate write",
			zap.String("organization", orgName),
			zap.Int64("rev", next.Rev),
			zap.Int("attempt", attempt))
	}

	return models.Organization{}, ErrConcurrentUpdateExhausted
}
