package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vouch/internal/admin"
	"vouch/internal/verify"
)

// AdminService is the configuration surface the handlers need.
type AdminService interface {
	SetVerifiedRole(ctx context.Context, communityID, role string) error
	EnableOnJoin(ctx context.Context, communityID string) error
	DisableOnJoin(ctx context.Context, communityID string) error
	AddDomain(ctx context.Context, communityID, domain string) error
	RemoveDomain(ctx context.Context, communityID, domain string) error
	Status(ctx context.Context, communityID string) (admin.StatusReport, error)
}

// VerifyService triggers the user-initiated re-prompt.
type VerifyService interface {
	RequestVerification(ctx context.Context, communityID, userID string) ([]verify.Command, error)
}

// Handler is the thin HTTP layer over the admin and verify services.
type Handler struct {
	admin      AdminService
	verify     VerifyService
	dispatcher *verify.Dispatcher
	logger     *slog.Logger
}

func NewHandler(adminSvc AdminService, verifySvc VerifyService, dispatcher *verify.Dispatcher, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{admin: adminSvc, verify: verifySvc, dispatcher: dispatcher, logger: logger}
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	report, err := h.admin.Status(r.Context(), chi.URLParam(r, "communityID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type setRoleRequest struct {
	Role string `json:"role"`
}

func (h *Handler) handleSetRole(w http.ResponseWriter, r *http.Request) {
	var req setRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Role == "" {
		writeError(w, http.StatusBadRequest, "role is required")
		return
	}
	if err := h.admin.SetVerifiedRole(r.Context(), chi.URLParam(r, "communityID"), req.Role); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"verified_role": req.Role})
}

func (h *Handler) handleEnableOnJoin(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.EnableOnJoin(r.Context(), chi.URLParam(r, "communityID")); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"verify_on_join": true})
}

func (h *Handler) handleDisableOnJoin(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.DisableOnJoin(r.Context(), chi.URLParam(r, "communityID")); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"verify_on_join": false})
}

type domainRequest struct {
	Domain string `json:"domain"`
}

func (h *Handler) handleAddDomain(w http.ResponseWriter, r *http.Request) {
	var req domainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Domain == "" {
		writeError(w, http.StatusBadRequest, "domain is required")
		return
	}
	if err := h.admin.AddDomain(r.Context(), chi.URLParam(r, "communityID"), req.Domain); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRemoveDomain(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.RemoveDomain(r.Context(), chi.URLParam(r, "communityID"), chi.URLParam(r, "domain")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type verificationRequest struct {
	UserID string `json:"user_id"`
}

func (h *Handler) handleRequestVerification(w http.ResponseWriter, r *http.Request) {
	var req verificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	commands, err := h.verify.RequestVerification(r.Context(), chi.URLParam(r, "communityID"), req.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.dispatcher.Dispatch(r.Context(), commands)
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.ErrorContext(r.Context(), "request failed",
		"path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}
