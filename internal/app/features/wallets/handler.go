// internal/app/features/wallets/handler.go

// Package wallets serves the wallet documents that hold credential
// references for network identities.
package wallets

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/felehub/felehub/internal/app/features/shared/respond"
	"github.com/felehub/felehub/internal/app/registry"
	"github.com/felehub/felehub/internal/app/store/audit"
	"github.com/felehub/felehub/internal/app/system/auditlog"
	"github.com/felehub/felehub/internal/app/system/auth"
	"github.com/felehub/felehub/internal/app/system/normalize"
	"github.com/felehub/felehub/internal/app/system/timeouts"
)

type Handler struct {
	Registry *registry.Registry
	Audit    *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(reg *registry.Registry, auditLog *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{Registry: reg, Audit: auditLog, Log: logger}
}

type addCredentialRequest struct {
	CredentialRef string `json:"credentialRef"`
}

// HandleAddCredential appends a credential reference to the identity's
// wallet, creating the wallet on first use. Appends are not deduplicated.
func (h *Handler) HandleAddCredential(w http.ResponseWriter, r *http.Request) {
	var req addCredentialRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ref := normalize.Name(req.CredentialRef)
	if ref == "" {
		respond.Error(w, http.StatusBadRequest, "credentialRef is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	walletID, err := h.Registry.AddCredentialToWallet(ctx, chi.URLParam(r, "feleUser"), ref)
	if err != nil {
		respond.RegistryError(w, h.Log, err)
		return
	}

	actor, org := "", ""
	if u, ok := auth.CurrentUser(r); ok {
		actor, org = u.Username, u.Organization
	}
	h.Audit.Registry(ctx, r, audit.EventCredentialAppended, org, actor, chi.URLParam(r, "feleUser"), map[string]string{
		"wallet_id": walletID,
	})
	respond.JSON(w, http.StatusCreated, map[string]string{
		"walletId":      walletID,
		"credentialRef": ref,
	})
}

// HandleGet returns an identity's wallet document.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	wallet, err := h.Registry.GetWallet(ctx, chi.URLParam(r, "feleUser"))
	if err != nil {
		respond.RegistryError(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"walletId":    wallet.ID,
		"credentials": wallet.Credentials,
	})
}
