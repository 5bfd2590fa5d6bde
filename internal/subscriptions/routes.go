package subscriptions

import "github.com/go-chi/chi/v5"

// MountRoutes wires the subscription endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.Current)
	r.Post("/", h.Subscribe)
}
