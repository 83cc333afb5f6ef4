package invoices

import "github.com/go-chi/chi/v5"

// MountRoutes registers invoice routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/invoices", h.List)
	r.Get("/invoices/create", h.ShowCreateForm)
	r.Post("/invoices", h.Create)
	r.Get("/invoices/{id}/edit", h.ShowEditForm)
	r.Post("/invoices/{id}/edit", h.Update)
	r.Post("/invoices/{id}/delete", h.Delete)
}
