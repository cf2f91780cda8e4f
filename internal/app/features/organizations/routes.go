// internal/app/features/organizations/routes.go
package organizations

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/felehub/felehub/internal/app/system/auth"
)

// Routes builds the /api/organizations tree. Child features that live
// under /{org} (networks, and through them mappings) are passed in as
// routers so the signed-in and same-organization checks apply once here.
func Routes(h *Handler, networksRouter chi.Router) chi.Router {
	r := chi.NewRouter()

	// Bootstrap is unauthenticated: the first organization has nobody
	// who could sign in yet.
	r.Post("/", h.HandleCreate)

	r.Route("/{org}", func(or chi.Router) {
		or.Use(auth.RequireSignedIn)
		or.Use(auth.RequireOrganization(func(r *http.Request) string {
			return chi.URLParam(r, "org")
		}))

		or.Get("/users", h.HandleListUsers)
		or.Post("/users", h.HandleAddUser)
		or.Delete("/users/{username}", h.HandleDeleteUser)
		or.Put("/users/{username}/password", h.HandleUpdatePassword)

		if networksRouter != nil {
			or.Mount("/networks", networksRouter)
		}
	})

	return r
}
