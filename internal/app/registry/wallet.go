// internal/app/registry/wallet.go
package registry

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/felehub/felehub/internal/domain/models"
)

// GetWallet loads the wallet document of a network identity.
func (r *Registry) GetWallet(ctx context.Context, networkIdentityID string) (models.Wallet, error) {
	return r.wallets.Get(ctx, models.WalletID(networkIdentityID))
}

// AddCredentialToWallet appends a credential reference to the wallet of a
// network identity, creating the wallet on first use. Returns the wallet id.
//
// Unlike aggregate writes this path is not revision-checked and appends are
// not deduplicated; duplicate calls append duplicate references. Callers
// that need exactly-once semantics must deduplicate upstream. A credential
// append and a mapping update on the same identity are two independently
// persisted operations, never atomic together.
func (r *Registry) AddCredentialToWallet(ctx context.Context, networkIdentityID, credentialRef string) (string, error) {
	id := models.WalletID(networkIdentityID)

	w, err := r.wallets.Get(ctx, id)
	switch {
	case errors.Is(err, ErrNotFound):
		w = models.Wallet{
			ID:          id,
			SchemaTag:   models.SchemaTagWallet,
			Credentials: []string{credentialRef},
		}
		if err := r.wallets.Insert(ctx, w); err != nil {
			return "", err
		}
		r.log.Info("wallet created",
			zap.String("wallet_id", id),
			zap.String("network_identity", networkIdentityID))
		return id, nil

	case err != nil:
		return "", err
	}

	w.Credentials = append(w.Credentials, credentialRef)
	if err := r.wallets.Update(ctx, w); err != nil {
		return "", err
	}
	return id, nil
}
