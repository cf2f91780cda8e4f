// internal/app/features/wallets/routes.go
package wallets

import (
	"github.com/go-chi/chi/v5"

	"github.com/felehub/felehub/internal/app/system/auth"
)

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)

		pr.Get("/{feleUser}", h.HandleGet)
		pr.Post("/{feleUser}/credentials", h.HandleAddCredential)
	})

	return r
}
