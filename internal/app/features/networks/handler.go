// internal/app/features/networks/handler.go

// Package networks registers an organization onto fele networks.
package networks

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
	"github.com/felehub/felehub/internal/domain/models"
)

type Handler struct {
	Registry *registry.Registry
	Audit    *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(reg *registry.Registry, auditLog *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{Registry: reg, Audit: auditLog, Log: logger}
}

type registerRequest struct {
	Network       string `json:"network"`
	AdminIdentity string `json:"adminIdentity"`
	LocalUsername string `json:"localUsername"`
}

// HandleRegister joins the organization to a network. The network-side
// admin identity is seeded with a wallet reference, and the caller-named
// local username is mapped to it so the registration is usable at once.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	network := normalize.Name(req.Network)
	admin := normalize.Name(req.AdminIdentity)
	local := normalize.Name(req.LocalUsername)
	if network == "" || admin == "" || local == "" {
		respond.Error(w, http.StatusBadRequest, "network, adminIdentity and localUsername are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	org, err := h.Registry.RegisterNetwork(ctx,
		chi.URLParam(r, "org"), network, admin, models.WalletID(admin), local)
	if err != nil {
		respond.RegistryError(w, h.Log, err)
		return
	}

	actor := ""
	if u, ok := auth.CurrentUser(r); ok {
		actor = u.Username
	}
	h.Audit.Registry(ctx, r, audit.EventNetworkRegistered, chi.URLParam(r, "org"), actor, network, map[string]string{
		"admin_identity": admin,
		"local_username": local,
	})

	reg := org.Networks[network]
	respond.JSON(w, http.StatusCreated, map[string]any{
		"network":         network,
		"organizationRef": reg.OrganizationRef,
		"adminIdentity":   admin,
		"walletId":        models.WalletID(admin),
	})
}

// HandleList reports the networks the organization is registered on.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	org, err := h.Registry.GetOrganization(ctx, chi.URLParam(r, "org"))
	if err != nil {
		respond.RegistryError(w, h.Log, err)
		return
	}

	names := make([]string, 0, len(org.Networks))
	for name := range org.Networks {
		names = append(names, name)
	}
	respond.JSON(w, http.StatusOK, map[string]any{"networks": names})
}
