package accounts

import "github.com/go-chi/chi/v5"

// MountAuthRoutes wires the unauthenticated auth endpoints.
func (h *Handler) MountAuthRoutes(r chi.Router) {
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)
}

// MountSubuserRoutes wires subuser management; only the owner login may use
// these, enforced in the service.
func (h *Handler) MountSubuserRoutes(r chi.Router) {
	r.Get("/", h.ListSubusers)
	r.Post("/", h.CreateSubuser)
	r.Post("/{id}/deactivate", h.DeactivateSubuser)
}
