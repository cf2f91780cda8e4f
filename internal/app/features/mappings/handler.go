// internal/app/features/mappings/handler.go

// Package mappings manages and resolves the local-user to
// network-identity mappings of a registered network.
package mappings

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

func actorName(r *http.Request) string {
	if u, ok := auth.CurrentUser(r); ok {
		return u.Username
	}
	return ""
}

type upsertRequest struct {
	LocalUser string `json:"localUser"`
	FeleUser  string `json:"feleUser"`
}

// HandleUpsert maps a local user to a network identity. Re-mapping an
// already-mapped user replaces the target, so the call is idempotent.
func (h *Handler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	var req upsertRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	local := normalize.Name(req.LocalUser)
	fele := normalize.Name(req.FeleUser)
	if local == "" || fele == "" {
		respond.Error(w, http.StatusBadRequest, "localUser and feleUser are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	_, err := h.Registry.AddOrUpdateMapping(ctx,
		chi.URLParam(r, "org"), chi.URLParam(r, "network"), local, fele)
	if err != nil {
		respond.RegistryError(w, h.Log, err)
		return
	}
	h.Audit.Registry(ctx, r, audit.EventMappingUpserted, chi.URLParam(r, "org"), actorName(r), local, map[string]string{
		"network":   chi.URLParam(r, "network"),
		"fele_user": fele,
	})
	respond.JSON(w, http.StatusOK, map[string]string{
		"localUser": local,
		"feleUser":  fele,
	})
}

// HandleDelete removes a mapping; the local user and the network identity
// both remain.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	_, err := h.Registry.DeleteMapping(ctx,
		chi.URLParam(r, "org"), chi.URLParam(r, "network"), chi.URLParam(r, "username"))
	if err != nil {
		respond.RegistryError(w, h.Log, err)
		return
	}
	h.Audit.Registry(ctx, r, audit.EventMappingDeleted, chi.URLParam(r, "org"), actorName(r), chi.URLParam(r, "username"), map[string]string{
		"network": chi.URLParam(r, "network"),
	})
	w.WriteHeader(http.StatusNoContent)
}

// HandleList returns every mapping of the network.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	views, err := h.Registry.ListMappings(ctx,
		chi.URLParam(r, "org"), chi.URLParam(r, "network"))
	if err != nil {
		respond.RegistryError(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"mappings": views})
}

// HandleResolve answers "which network identity does this local user act
// as". An unmapped but existing user is a normal answer, not an error.
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	res, err := h.Registry.ResolveMapping(ctx,
		chi.URLParam(r, "org"), chi.URLParam(r, "network"), chi.URLParam(r, "username"))
	if err != nil {
		respond.RegistryError(w, h.Log, err)
		return
	}

	body := map[string]any{
		"localUser": res.LocalUser,
		"mapped":    res.Mapped,
	}
	if res.Mapped {
		body["feleUser"] = res.FeleUser
		body["walletId"] = res.WalletID
	}
	respond.JSON(w, http.StatusOK, body)
}
