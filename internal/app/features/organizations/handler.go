// internal/app/features/organizations/handler.go

// Package organizations serves organization bootstrap and local-user
// management.
package organizations

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/felehub/felehub/internal/app/features/shared/respond"
	"github.com/felehub/felehub/internal/app/registry"
	"github.com/felehub/felehub/internal/app/store/audit"
	"github.com/felehub/felehub/internal/app/system/auditlog"
	"github.com/felehub/felehub/internal/app/system/auth"
	"github.com/felehub/felehub/internal/app/system/authutil"
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

type seedUser struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type createRequest struct {
	OrganizationName string     `json:"organizationName"`
	LocalUsers       []seedUser `json:"localUsers"`
}

// HandleCreate bootstraps an organization aggregate. Seed-user passwords
// arrive in plaintext and are hashed here; the registry only ever sees
// hashes.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	name := normalize.Name(req.OrganizationName)
	if name == "" {
		respond.Error(w, http.StatusBadRequest, "organizationName is required")
		return
	}

	users := make([]models.LocalUser, 0, len(req.LocalUsers))
	for _, u := range req.LocalUsers {
		username := normalize.Name(u.Username)
		if username == "" || u.Password == "" {
			respond.Error(w, http.StatusBadRequest, "seed users need username and password")
			return
		}
		users = append(users, models.LocalUser{
			Username: username,
			Password: authutil.HashPassword(name, username, u.Password),
			Role:     normalize.Role(u.Role),
		})
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	org, err := h.Registry.CreateOrganization(ctx, name, users)
	if err != nil {
		respond.RegistryError(w, h.Log, err)
		return
	}
	h.Audit.Registry(ctx, r, audit.EventOrgCreated, name, "", "", map[string]string{
		"seed_users": strconv.Itoa(len(users)),
	})

	respond.JSON(w, http.StatusCreated, map[string]any{
		"id":               org.ID,
		"organizationName": org.Name,
		"createdAt":        org.CreatedAt,
	})
}

// HandleListUsers returns the local users of the organization. Password
// hashes are never serialized.
func (h *Handler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	users, err := h.Registry.ListLocalUsers(ctx, chi.URLParam(r, "org"))
	if err != nil {
		respond.RegistryError(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"localUsers": users})
}

type addUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// HandleAddUser appends a local user. Admin only.
func (h *Handler) HandleAddUser(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	var req addUserRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	orgName := chi.URLParam(r, "org")
	username := normalize.Name(req.Username)
	if username == "" || req.Password == "" {
		respond.Error(w, http.StatusBadRequest, "username and password are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	_, err := h.Registry.AddLocalUser(ctx, orgName, username,
		authutil.HashPassword(orgName, username, req.Password),
		normalize.Role(req.Role))
	if err != nil {
		respond.RegistryError(w, h.Log, err)
		return
	}
	h.Audit.Registry(ctx, r, audit.EventUserAdded, orgName, actorName(r), username, nil)
	respond.JSON(w, http.StatusCreated, map[string]string{"username": username})
}

// HandleDeleteUser removes a local user and, with it, every mapping that
// references the user on any network. Admin only.
func (h *Handler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	_, err := h.Registry.DeleteLocalUser(ctx, chi.URLParam(r, "org"), chi.URLParam(r, "username"))
	if err != nil {
		respond.RegistryError(w, h.Log, err)
		return
	}
	h.Audit.Registry(ctx, r, audit.EventUserDeleted, chi.URLParam(r, "org"), actorName(r), chi.URLParam(r, "username"), nil)
	w.WriteHeader(http.StatusNoContent)
}

type updatePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// HandleUpdatePassword changes a user's password after the old one
// matches. Users may change their own; admins may change anyone's.
func (h *Handler) HandleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	orgName := chi.URLParam(r, "org")
	username := chi.URLParam(r, "username")

	u, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if u.Username != username && normalize.Role(u.Role) != "admin" {
		respond.Error(w, http.StatusForbidden, "forbidden")
		return
	}

	var req updatePasswordRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.NewPassword == "" {
		respond.Error(w, http.StatusBadRequest, "newPassword is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	_, err := h.Registry.UpdatePassword(ctx, orgName, username,
		authutil.HashPassword(orgName, username, req.OldPassword),
		authutil.HashPassword(orgName, username, req.NewPassword))
	if err != nil {
		respond.RegistryError(w, h.Log, err)
		return
	}
	h.Audit.Auth(ctx, r, audit.EventPasswordChanged, orgName, username, true, "")
	w.WriteHeader(http.StatusNoContent)
}

// actorName returns the session username for audit records.
func actorName(r *http.Request) string {
	if u, ok := auth.CurrentUser(r); ok {
		return u.Username
	}
	return ""
}

// requireAdmin enforces the admin role for user management. The
// organization match is already enforced by route middleware.
func requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	u, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "unauthorized")
		return false
	}
	if normalize.Role(u.Role) != "admin" {
		respond.Error(w, http.StatusForbidden, "admin role required")
		return false
	}
	return true
}
