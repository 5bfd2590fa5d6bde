package billing

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/shopbook/shopbook/internal/inventory"
	"github.com/shopbook/shopbook/internal/platform/httpx"
	"github.com/shopbook/shopbook/internal/shared"
)

// Handler exposes the estimate and bill lifecycle over JSON.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func estimateID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ac := shared.AccountFromContext(r.Context())
	q := r.URL.Query()

	req := ListEstimatesRequest{Query: q.Get("q")}
	req.Page, _ = strconv.Atoi(q.Get("page"))
	req.PerPage, _ = strconv.Atoi(q.Get("per_page"))
	if pt := q.Get("payment_type"); pt != "" {
		req.PaymentType = &pt
	}

	estimates, total, err := h.service.List(r.Context(), *ac, req)
	if err != nil {
		h.respondErr(w, r, "list estimates", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"estimates": estimates,
		"total":     total,
	})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	ac := shared.AccountFromContext(r.Context())
	id, err := estimateID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	estimate, err := h.service.Get(r.Context(), *ac, id)
	if err != nil {
		h.respondErr(w, r, "get estimate", err)
		return
	}
	httpx.JSON(w, http.StatusOK, estimate)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ac := shared.AccountFromContext(r.Context())
	var req CreateEstimateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	estimate, err := h.service.Create(r.Context(), *ac, req)
	if err != nil {
		h.respondErr(w, r, "create estimate", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, estimate)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	ac := shared.AccountFromContext(r.Context())
	id, err := estimateID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	var req UpdateEstimateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	estimate, err := h.service.Update(r.Context(), *ac, id, req)
	if err != nil {
		h.respondErr(w, r, "update estimate", err)
		return
	}
	httpx.JSON(w, http.StatusOK, estimate)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ac := shared.AccountFromContext(r.Context())
	id, err := estimateID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	del := h.service.Delete
	if ac.Admin && r.URL.Query().Get("force") == "true" {
		del = h.service.DeleteAsAdmin
	}
	if err := del(r.Context(), *ac, id); err != nil {
		h.respondErr(w, r, "delete estimate", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	ac := shared.AccountFromContext(r.Context())
	id, err := estimateID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	estimate, err := h.service.ConvertToBill(r.Context(), *ac, id)
	if err != nil {
		h.respondErr(w, r, "convert estimate", err)
		return
	}
	httpx.JSON(w, http.StatusOK, estimate)
}

func (h *Handler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	ac := shared.AccountFromContext(r.Context())
	id, err := estimateID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	var req MarkPaidRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	estimate, err := h.service.MarkPaid(r.Context(), *ac, id, req)
	if err != nil {
		h.respondErr(w, r, "mark estimate paid", err)
		return
	}
	httpx.JSON(w, http.StatusOK, estimate)
}

func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	ac := shared.AccountFromContext(r.Context())
	id, err := estimateID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	var req RecordPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	payment, err := h.service.RecordPayment(r.Context(), *ac, id, req)
	if err != nil {
		h.respondErr(w, r, "record payment", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, payment)
}

func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	ac := shared.AccountFromContext(r.Context())
	id, err := estimateID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	payments, state, err := h.service.ListPayments(r.Context(), *ac, id)
	if err != nil {
		h.respondErr(w, r, "list payments", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"payments":     payments,
		"paymentState": state,
	})
}

func (h *Handler) Ledger(w http.ResponseWriter, r *http.Request) {
	ac := shared.AccountFromContext(r.Context())
	entries, err := h.service.CustomerLedger(r.Context(), *ac)
	if err != nil {
		h.respondErr(w, r, "customer ledger", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ledger": entries})
}

func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrConverted),
		errors.Is(err, ErrAlreadyConverted),
		errors.Is(err, ErrNotCredit),
		errors.Is(err, ErrOverpayment),
		errors.Is(err, inventory.ErrInsufficientStock),
		errors.Is(err, inventory.ErrInvalidQuantity):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Rejected", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
