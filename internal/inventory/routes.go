package inventory

import "github.com/go-chi/chi/v5"

// MountRoutes wires the stock register endpoints. Mutations are POSTs per the
// API contract consumed by the SPA client.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Show)
	r.Post("/", h.Create)
	r.Post("/{id}/update", h.Update)
	r.Post("/{id}/delete", h.Delete)
}
