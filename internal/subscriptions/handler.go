package subscriptions

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/shopbook/shopbook/internal/platform/httpx"
	"github.com/shopbook/shopbook/internal/shared"
)

// Handler exposes subscription management over JSON.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	ac := shared.AccountFromContext(r.Context())
	sub, err := h.service.Current(r.Context(), *ac)
	if err != nil {
		h.respondErr(w, r, "current subscription", err)
		return
	}
	httpx.JSON(w, http.StatusOK, sub)
}

func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	ac := shared.AccountFromContext(r.Context())
	var req SubscribeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	sub, err := h.service.Subscribe(r.Context(), *ac, req)
	if err != nil {
		h.respondErr(w, r, "subscribe", err)
		return
	}
	httpx.JSON(w, http.StatusOK, sub)
}

func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, shared.ErrNotFound) {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	h.logger.Error(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}
