// internal/app/features/login/handler.go

// Package login authenticates local users against their organization
// aggregate and manages the resulting session.
package login

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/felehub/felehub/internal/app/features/shared/respond"
	"github.com/felehub/felehub/internal/app/registry"
	"github.com/felehub/felehub/internal/app/store/audit"
	"github.com/felehub/felehub/internal/app/system/auditlog"
	"github.com/felehub/felehub/internal/app/system/auth"
	"github.com/felehub/felehub/internal/app/system/authutil"
	"github.com/felehub/felehub/internal/app/system/normalize"
	"github.com/felehub/felehub/internal/app/system/ratelimit"
	"github.com/felehub/felehub/internal/app/system/timeouts"
)

type Handler struct {
	Registry *registry.Registry
	Audit    *auditlog.Logger
	Limiter  *ratelimit.LoginLimiter
	Log      *zap.Logger
}

// NewHandler builds the login handler. Audit and limiter may be nil; both
// degrade to no-ops.
func NewHandler(reg *registry.Registry, auditLog *auditlog.Logger, limiter *ratelimit.LoginLimiter, logger *zap.Logger) *Handler {
	return &Handler{Registry: reg, Audit: auditLog, Limiter: limiter, Log: logger}
}

type loginRequest struct {
	Organization string `json:"organization"`
	Username     string `json:"username"`
	Password     string `json:"password"`
}

// HandleLogin verifies the credentials against the organization's local
// users and issues a session cookie. A missing organization, a missing
// user and a wrong password are indistinguishable to the caller.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	orgName := normalize.Name(req.Organization)
	username := normalize.Name(req.Username)
	if orgName == "" || username == "" || req.Password == "" {
		respond.Error(w, http.StatusBadRequest, "organization, username and password are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if ok, reason := h.Limiter.Check(r, orgName, username); !ok {
		h.Audit.Auth(ctx, r, audit.EventLoginFailedRateLimit, orgName, username, false, reason)
		respond.Error(w, http.StatusTooManyRequests, reason)
		return
	}

	org, err := h.Registry.GetOrganization(ctx, orgName)
	if err != nil {
		h.Audit.Auth(ctx, r, audit.EventLoginFailed, orgName, username, false, "organization not found")
		respond.Error(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	for _, u := range org.LocalUsers {
		if u.Username != username {
			continue
		}
		if !authutil.VerifyPassword(u.Password, orgName, username, req.Password) {
			break
		}
		if err := auth.SignIn(w, r, auth.SessionUser{
			Organization: orgName,
			Username:     username,
			Role:         u.Role,
		}); err != nil {
			h.Log.Error("session write failed", zap.Error(err))
			respond.Error(w, http.StatusInternalServerError, "internal error")
			return
		}
		h.Limiter.ResetAccount(orgName, username)
		h.Audit.Auth(ctx, r, audit.EventLoginSuccess, orgName, username, true, "")
		respond.JSON(w, http.StatusOK, map[string]string{
			"organization": orgName,
			"username":     username,
			"role":         u.Role,
		})
		return
	}

	h.Audit.Auth(ctx, r, audit.EventLoginFailed, orgName, username, false, "bad username or password")
	respond.Error(w, http.StatusUnauthorized, "invalid credentials")
}

// HandleSession reports the signed-in user, including the active network
// when one has been selected.
func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{
		"organization":  u.Organization,
		"username":      u.Username,
		"role":          u.Role,
		"activeNetwork": u.Network,
	})
}

type selectNetworkRequest struct {
	Network string `json:"network"`
}

// HandleSelectNetwork pins the session to one of the organization's
// registered networks.
func (h *Handler) HandleSelectNetwork(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req selectNetworkRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	network := normalize.Name(req.Network)
	if network == "" {
		respond.Error(w, http.StatusBadRequest, "network is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	org, err := h.Registry.GetOrganization(ctx, u.Organization)
	if err != nil {
		respond.RegistryError(w, h.Log, err)
		return
	}
	if _, ok := org.Networks[network]; !ok {
		respond.Error(w, http.StatusNotFound, "network not registered")
		return
	}

	if err := auth.SetActiveNetwork(w, r, network); err != nil {
		h.Log.Error("session write failed", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"activeNetwork": network})
}

// HandleLogout discards the session.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if u, ok := auth.CurrentUser(r); ok {
		h.Audit.Auth(r.Context(), r, audit.EventLogout, u.Organization, u.Username, true, "")
	}
	if err := auth.SignOut(w, r); err != nil {
		h.Log.Error("session clear failed", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
