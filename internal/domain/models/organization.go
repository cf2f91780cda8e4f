// internal/domain/models/organization.go
package models

import (
	"time"
)

// Document schema tags. Organization aggregates and wallet documents share
// one collection and are distinguished by schema tag and id prefix.
const (
	SchemaTagLocalOrg = "localOrg"
	SchemaTagWallet   = "wallet"

	OrgIDPrefix    = "org~"
	WalletIDPrefix = "wallet~"
)

// Organization is the aggregate document for one local organization: its
// local users, the fele networks it is registered on, and the per-network
// user-to-identity mappings. All consistency invariants span this single
// document, so it is also the unit of optimistic concurrency.
type Organization struct {
	ID        string `bson:"_id"`
	SchemaTag string `bson:"schemaTag"`

	// Rev is the store revision used for conditional writes. It starts at 1
	// on insert and is bumped on every successful replace.
	Rev int64 `bson:"rev"`

	Name   string `bson:"organizationName"`
	NameCI string `bson:"organizationNameCI"` // folded, unique across aggregates

	LocalUsers []LocalUser                    `bson:"localUsers"`
	Networks   map[string]NetworkRegistration `bson:"networks"`

	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// LocalUser is a credentialed user of the local organization. Password is
// stored pre-hashed; this layer only ever compares opaque hash strings.
type LocalUser struct {
	Username string `bson:"username" json:"username"`
	Password string `bson:"password" json:"-"`
	Role     string `bson:"role" json:"role"`
}

// NetworkRegistration records one fele network the organization participates
// in: the network-facing identities available to it and the mappings from
// local users to those identities.
type NetworkRegistration struct {
	// OrganizationRef is the owning organization name, denormalized for audit.
	OrganizationRef string            `bson:"organizationRef" json:"organizationRef"`
	Channels        []string          `bson:"channels" json:"channels"`
	Identities      []NetworkIdentity `bson:"networkIdentities" json:"networkIdentities"`
	Mappings        []Mapping         `bson:"mappings" json:"mappings"`
}

// NetworkIdentity is a fele-network identity the organization can act through,
// together with the wallet holding its credentials.
type NetworkIdentity struct {
	ID       string `bson:"networkIdentityId" json:"networkIdentityId"`
	WalletID string `bson:"walletId" json:"walletId"`
}

// Mapping associates one local user (From) with one network identity (To),
// scoped to a single network. At most one mapping exists per From.
type Mapping struct {
	From string `bson:"from" json:"from"`
	To   string `bson:"to" json:"to"`
}

// Wallet is the credential-reference list for one network identity.
// Its id is WalletIDPrefix + the network identity id. The credential list is
// append-only and, unlike the organization aggregate, is written without a
// revision check.
type Wallet struct {
	ID          string   `bson:"_id" json:"id"`
	SchemaTag   string   `bson:"schemaTag" json:"-"`
	Credentials []string `bson:"credentials" json:"credentials"`
}

// WalletID derives the wallet document id for a network identity.
func WalletID(networkIdentityID string) string {
	return WalletIDPrefix + networkIdentityID
}

// Clone deep-copies the aggregate so callers can mutate the copy without
// aliasing the original's slices or network map.
func (o Organization) Clone() Organization {
	next := o
	next.LocalUsers = append([]LocalUser(nil), o.LocalUsers...)
	if o.Networks != nil {
		next.Networks = make(map[string]NetworkRegistration, len(o.Networks))
		for name, reg := range o.Networks {
			reg.Channels = append([]string(nil), reg.Channels...)
			reg.Identities = append([]NetworkIdentity(nil), reg.Identities...)
			reg.Mappings = append([]Mapping(nil), reg.Mappings...)
			next.Networks[name] = reg
		}
	}
	return next
}
