package marketplace

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/shopbook/shopbook/internal/platform/httpx"
	"github.com/shopbook/shopbook/internal/shared"
)

// Handler exposes the marketplace over JSON.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))

	listings, pagination, err := h.service.Search(r.Context(), q.Get("q"), page, perPage)
	if err != nil {
		h.respondErr(w, r, "search listings", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"listings":   listings,
		"pagination": pagination,
	})
}

func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	ac := shared.AccountFromContext(r.Context())
	listings, err := h.service.Mine(r.Context(), *ac)
	if err != nil {
		h.respondErr(w, r, "list own listings", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"listings": listings})
}

func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	ac := shared.AccountFromContext(r.Context())
	var req PublishRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	listing, err := h.service.Publish(r.Context(), *ac, req)
	if err != nil {
		h.respondErr(w, r, "publish listing", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, listing)
}

func (h *Handler) Unpublish(w http.ResponseWriter, r *http.Request) {
	ac := shared.AccountFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	if err := h.service.Unpublish(r.Context(), *ac, id); err != nil {
		h.respondErr(w, r, "unpublish listing", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "unpublished"})
}

func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrAlreadyPublished):
		httpx.RespondError(w, httpx.ErrDuplicate)
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
