// internal/app/features/shared/respond/respond.go

// Package respond centralizes JSON responses and the mapping from registry
// and validation errors to HTTP statuses, so every feature reports the
// error taxonomy the same way.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/felehub/felehub/internal/app/registry"
	"github.com/felehub/felehub/internal/domain/localorg"
)

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes a JSON error body with the given status.
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]string{"error": msg})
}

// RegistryError maps a registry/localorg error to an HTTP response. The
// error message is surfaced as-is: every sentinel in the taxonomy is safe
// to show a caller, and wrapped store errors fall through to a generic 500.
func RegistryError(w http.ResponseWriter, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, registry.ErrNotFound),
		errors.Is(err, localorg.ErrUserNotFound),
		errors.Is(err, localorg.ErrNetworkNotFound),
		errors.Is(err, localorg.ErrLocalUserNotFound),
		errors.Is(err, localorg.ErrNetworkIdentityNotFound),
		errors.Is(err, localorg.ErrMappingNotFound):
		Error(w, http.StatusNotFound, err.Error())

	case errors.Is(err, registry.ErrAlreadyExists),
		errors.Is(err, localorg.ErrDuplicateUser),
		errors.Is(err, localorg.ErrAlreadyRegistered):
		Error(w, http.StatusConflict, err.Error())

	case errors.Is(err, localorg.ErrPasswordMismatch):
		// No detail beyond the mismatch itself.
		Error(w, http.StatusForbidden, "password mismatch")

	case errors.Is(err, registry.ErrConcurrentUpdateExhausted),
		errors.Is(err, registry.ErrUnavailable):
		Error(w, http.StatusServiceUnavailable, err.Error())

	case errors.Is(err, registry.ErrAmbiguousState),
		errors.Is(err, localorg.ErrIntegrityViolation):
		// Data corruption: log loudly, report opaquely, never repair here.
		log.Error("aggregate state corrupted", zap.Error(err))
		Error(w, http.StatusInternalServerError, "aggregate state corrupted")

	default:
		log.Error("registry operation failed", zap.Error(err))
		Error(w, http.StatusInternalServerError, "internal error")
	}
}

// DecodeJSON decodes a request body into dst, rejecting unknown fields.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
