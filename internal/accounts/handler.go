package accounts

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/shopbook/shopbook/internal/platform/httpx"
	"github.com/shopbook/shopbook/internal/shared"
)

// Handler exposes authentication and subuser management over JSON.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	sessions *shared.SessionManager
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager) *Handler {
	return &Handler{logger: logger, service: service, sessions: sessions}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	account, err := h.service.Register(r.Context(), req)
	if err != nil {
		h.respondErr(w, r, "register", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, account)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	ac, err := h.service.Login(r.Context(), req)
	if err != nil {
		h.respondErr(w, r, "login", err)
		return
	}
	if _, err := h.sessions.Create(r.Context(), w, ac); err != nil {
		h.respondErr(w, r, "create session", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"accountId": ac.AccountID,
		"subuserId": ac.SubuserID,
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Destroy(r.Context(), w, r); err != nil {
		h.respondErr(w, r, "logout", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (h *Handler) CreateSubuser(w http.ResponseWriter, r *http.Request) {
	ac := shared.AccountFromContext(r.Context())
	var req CreateSubuserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	subuser, err := h.service.CreateSubuser(r.Context(), *ac, req)
	if err != nil {
		h.respondErr(w, r, "create subuser", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, subuser)
}

func (h *Handler) ListSubusers(w http.ResponseWriter, r *http.Request) {
	ac := shared.AccountFromContext(r.Context())
	subusers, err := h.service.ListSubusers(r.Context(), *ac)
	if err != nil {
		h.respondErr(w, r, "list subusers", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"subusers": subusers})
}

func (h *Handler) DeactivateSubuser(w http.ResponseWriter, r *http.Request) {
	ac := shared.AccountFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	if err := h.service.DeactivateSubuser(r.Context(), *ac, id); err != nil {
		h.respondErr(w, r, "deactivate subuser", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, shared.ErrInvalidCredentials), errors.Is(err, ErrSubuserInactive):
		httpx.RespondError(w, httpx.ErrUnauthorized)
	case errors.Is(err, ErrSubuserForbidden):
		httpx.RespondError(w, httpx.ErrForbidden)
	case errors.Is(err, ErrEmailTaken), errors.Is(err, ErrUsernameTaken):
		httpx.RespondError(w, httpx.ErrDuplicate)
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
