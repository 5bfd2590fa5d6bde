package purchases

import "github.com/go-chi/chi/v5"

// MountRoutes wires the purchase ledger endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Show)
	r.Get("/{id}/attachment", h.Attachment)
	r.Post("/", h.Create)
	r.Post("/{id}/update", h.Update)
	r.Post("/{id}/delete", h.Delete)
	r.Post("/{id}/status", h.SetStatus)
	r.Post("/{id}/attachment", h.AttachBill)
}
