package suppliers

import "github.com/go-chi/chi/v5"

// MountRoutes wires the supplier book endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Show)
	r.Post("/", h.Create)
	r.Post("/{id}/update", h.Update)
	r.Post("/{id}/delete", h.Delete)
}
