package purchases

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/shopbook/shopbook/internal/platform/httpx"
	"github.com/shopbook/shopbook/internal/shared"
)

// maxAttachmentBytes caps supplier bill uploads at 10 MiB.
const maxAttachmentBytes = 10 << 20

// Handler exposes the purchase ledger over JSON.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func purchaseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ac := shared.AccountFromContext(r.Context())
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	var status *string
	if s := q.Get("status"); s != "" {
		status = &s
	}

	purchases, pagination, err := h.service.List(r.Context(), *ac, status, page, perPage)
	if err != nil {
		h.respondErr(w, r, "list purchases", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"purchases":  purchases,
		"pagination": pagination,
	})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	ac := shared.AccountFromContext(r.Context())
	id, err := purchaseID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	purchase, err := h.service.Get(r.Context(), *ac, id)
	if err != nil {
		h.respondErr(w, r, "get purchase", err)
		return
	}
	httpx.JSON(w, http.StatusOK, purchase)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ac := shared.AccountFromContext(r.Context())
	var req CreatePurchaseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	purchase, err := h.service.Create(r.Context(), *ac, req)
	if err != nil {
		h.respondErr(w, r, "create purchase", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, purchase)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	ac := shared.AccountFromContext(r.Context())
	id, err := purchaseID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	var req UpdatePurchaseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	purchase, err := h.service.Update(r.Context(), *ac, id, req)
	if err != nil {
		h.respondErr(w, r, "update purchase", err)
		return
	}
	httpx.JSON(w, http.StatusOK, purchase)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ac := shared.AccountFromContext(r.Context())
	id, err := purchaseID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	if err := h.service.Delete(r.Context(), *ac, id); err != nil {
		h.respondErr(w, r, "delete purchase", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	ac := shared.AccountFromContext(r.Context())
	id, err := purchaseID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	var req SetStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	purchase, err := h.service.SetStatus(r.Context(), *ac, id, req)
	if err != nil {
		h.respondErr(w, r, "set purchase status", err)
		return
	}
	httpx.JSON(w, http.StatusOK, purchase)
}

// AttachBill accepts the raw upload body; filename comes from the query and
// the content type from the request header.
func (h *Handler) AttachBill(w http.ResponseWriter, r *http.Request) {
	ac := shared.AccountFromContext(r.Context())
	id, err := purchaseID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxAttachmentBytes+1))
	if err != nil || len(data) > maxAttachmentBytes {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	att, err := h.service.AttachBill(r.Context(), *ac, id,
		r.URL.Query().Get("filename"), r.Header.Get("Content-Type"), data)
	if err != nil {
		h.respondErr(w, r, "attach bill", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, att)
}

func (h *Handler) Attachment(w http.ResponseWriter, r *http.Request) {
	ac := shared.AccountFromContext(r.Context())
	id, err := purchaseID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	att, err := h.service.Attachment(r.Context(), *ac, id)
	if err != nil {
		h.respondErr(w, r, "get attachment", err)
		return
	}
	w.Header().Set("Content-Type", att.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+att.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(att.Data)
}

func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
