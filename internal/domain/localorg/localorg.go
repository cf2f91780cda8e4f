// internal/domain/localorg/localorg.go

// Package localorg holds the pure mutation and query functions for the
// organization aggregate. Every mutator takes the current aggregate value
// plus parameters and returns either a new aggregate value or a validation
// error; the input value is never modified. No function here performs I/O
// or retries, which keeps each invariant independently testable and lets
// the persistence layer reapply a mutation from scratch after a write
// conflict.
package localorg

import (
	"errors"
	"time"

	"github.com/felehub/felehub/internal/domain/models"
)

var (
	// ErrDuplicateUser is returned when a username already exists in the
	// aggregate's local users.
	ErrDuplicateUser = errors.New("local user already exists")

	// ErrUserNotFound is returned when a username is not in localUsers.
	ErrUserNotFound = errors.New("local user not found")

	// ErrPasswordMismatch is returned when the supplied old password hash
	// does not equal the stored one. No further detail is exposed.
	ErrPasswordMismatch = errors.New("password mismatch")

	// ErrAlreadyRegistered is returned when a network name is already
	// present in the aggregate.
	ErrAlreadyRegistered = errors.New("network already registered")

	// ErrNetworkNotFound is returned when a network name has no
	// registration in the aggregate.
	ErrNetworkNotFound = errors.New("network not found in local organization")

	// ErrLocalUserNotFound is returned when a mapping source does not
	// reference an existing local user.
	ErrLocalUserNotFound = errors.New("mapping source local user not found")

	// ErrNetworkIdentityNotFound is returned when a mapping target does not
	// reference an existing network identity on that network.
	ErrNetworkIdentityNotFound = errors.New("network identity not found")

	// ErrMappingNotFound is returned when no mapping exists for a user on
	// the given network.
	ErrMappingNotFound = errors.New("mapping not found")

	// ErrIntegrityViolation signals corrupted aggregate state (a mapping
	// target with no matching identity). It is never auto-repaired; callers
	// must stop mutating the aggregate until it has been inspected.
	ErrIntegrityViolation = errors.New("aggregate integrity violation")
)

// New builds a fresh aggregate value with no network registrations.
// Seed users must not contain duplicate usernames.
func New(id, name, nameCI string, users []models.LocalUser, now time.Time) (models.Organization, error) {
	seen := make(map[string]struct{}, len(users))
	for _, u := range users {
		if _, dup := seen[u.Username]; dup {
			return models.Organization{}, ErrDuplicateUser
		}
		seen[u.Username] = struct{}{}
	}

	return models.Organization{
		ID:         id,
		SchemaTag:  models.SchemaTagLocalOrg,
		Name:       name,
		NameCI:     nameCI,
		LocalUsers: append([]models.LocalUser(nil), users...),
		Networks:   map[string]models.NetworkRegistration{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// AddLocalUser appends a local user. Password is expected to be pre-hashed.
func AddLocalUser(org models.Organization, username, password, role string, now time.Time) (models.Organization, error) {
	if _, ok := findUser(org.LocalUsers, username); ok {
		return models.Organization{}, ErrDuplicateUser
	}

	next := clone(org)
	next.LocalUsers = append(next.LocalUsers, models.LocalUser{
		Username: username,
		Password: password,
		Role:     role,
	})
	next.UpdatedAt = now
	return next, nil
}

// DeleteLocalUser removes a local user and strips every mapping that
// references it, across all registered networks.
func DeleteLocalUser(org models.Organization, username string, now time.Time) (models.Organization, error) {
	if _, ok := findUser(org.LocalUsers, username); !ok {
		return models.Organization{}, ErrUserNotFound
	}

	next := clone(org)
	users := next.LocalUsers[:0]
	for _, u := range next.LocalUsers {
		if u.Username != username {
			users = append(users, u)
		}
	}
	next.LocalUsers = users

	for name, reg := range next.Networks {
		kept := reg.Mappings[:0]
		for _, m := range reg.Mappings {
			if m.From != username {
				kept = append(kept, m)
			}
		}
		reg.Mappings = kept
		next.Networks[name] = reg
	}

	next.UpdatedAt = now
	return next, nil
}

// UpdatePassword replaces a user's stored password hash after comparing the
// supplied old hash against the stored one. The comparison here is plain
// equality over pre-hashed values; authentication-grade verification happens
// upstream.
func UpdatePassword(org models.Organization, username, oldPassword, newPassword string, now time.Time) (models.Organization, error) {
	idx, ok := findUser(org.LocalUsers, username)
	if !ok {
		return models.Organization{}, ErrUserNotFound
	}
	if org.LocalUsers[idx].Password != oldPassword {
		return models.Organization{}, ErrPasswordMismatch
	}

	next := clone(org)
	next.LocalUsers[idx].Password = newPassword
	next.UpdatedAt = now
	return next, nil
}

func findUser(users []models.LocalUser, username string) (int, bool) {
	for i, u := range users {
		if u.Username == username {
			return i, true
		}
	}
	return 0, false
}

// clone deep-copies an aggregate so mutators never alias the input value's
// slices or network map.
func clone(org models.Organization) models.Organization {
	next := org.Clone()
	if next.Networks == nil {
		next.Networks = map[string]models.NetworkRegistration{}
	}
	return next
}
