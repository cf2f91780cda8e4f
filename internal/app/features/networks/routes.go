// internal/app/features/networks/routes.go
package networks

import (
	"github.com/go-chi/chi/v5"
)

// Routes is mounted under /api/organizations/{org}/networks; the parent
// router already enforces the session and organization checks. The
// mappings router nests one level deeper.
func Routes(h *Handler, mappingsRouter chi.Router) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.HandleList)
	r.Post("/", h.HandleRegister)

	if mappingsRouter != nil {
		r.Mount("/{network}/mappings", mappingsRouter)
	}

	return r
}
