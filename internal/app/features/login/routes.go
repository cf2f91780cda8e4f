// internal/app/features/login/routes.go
package login

import (
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Post("/login", h.HandleLogin)
	r.Get("/session", h.HandleSession)
	r.Post("/session/network", h.HandleSelectNetwork)
	r.Post("/logout", h.HandleLogout)

	return r
}
