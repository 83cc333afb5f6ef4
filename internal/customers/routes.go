package customers

import "github.com/go-chi/chi/v5"

// MountRoutes registers customer routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/customers", h.List)
}
