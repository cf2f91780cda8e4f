// internal/app/features/mappings/routes.go
package mappings

import (
	"github.com/go-chi/chi/v5"
)

// Routes is mounted at /{network}/mappings inside the networks tree; the
// org and network route params come from the parent routers.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.HandleList)
	r.Post("/", h.HandleUpsert)
	r.Get("/{username}", h.HandleResolve)
	r.Delete("/{username}", h.HandleDelete)

	return r
}
