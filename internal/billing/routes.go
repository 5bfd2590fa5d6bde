package billing

import "github.com/go-chi/chi/v5"

// MountRoutes wires the estimate lifecycle endpoints. Mutations are POSTs per
// the API contract consumed by the SPA client.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/ledger", h.Ledger)
	r.Get("/{id}", h.Show)
	r.Get("/{id}/payments", h.ListPayments)
	r.Post("/", h.Create)
	r.Post("/{id}/update", h.Update)
	r.Post("/{id}/delete", h.Delete)
	r.Post("/{id}/convert", h.Convert)
	r.Post("/{id}/mark-paid", h.MarkPaid)
	r.Post("/{id}/payments", h.RecordPayment)
}
