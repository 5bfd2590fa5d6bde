package marketplace

import "github.com/go-chi/chi/v5"

// MountRoutes wires the marketplace endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.Search)
	r.Get("/mine", h.Mine)
	r.Post("/", h.Publish)
	r.Post("/{id}/unpublish", h.Unpublish)
}
