package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Rene-Kuhm/acuamarina-ceramica-sub002/internal/domain"
	"github.com/Rene-Kuhm/acuamarina-ceramica-sub002/internal/repository"
	apperrors "github.com/Rene-Kuhm/acuamarina-ceramica-sub002/pkg/errors"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// AdminHandler serves the admin endpoints: audit trail inspection and
// account deactivation.
type AdminHandler struct {
	svc    AuthService
	events repository.AuditRepository
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(svc AuthService, events repository.AuditRepository) *AdminHandler {
	return &AdminHandler{svc: svc, events: events}
}

// ListAuditEvents handles GET /api/v1/admin/audit-events. Optional query
// parameters: limit (default 50, max 500) and user_id.
func (h *AdminHandler) ListAuditEvents(w http.ResponseWriter, r *http.Request) {
	limit := defaultAuditLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, r, apperrors.InvalidInput("limit must be a positive integer"))
			return
		}
		limit = parsed
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}

	var (
		events []domain.AuditEvent
		err    error
	)
	if userID := r.URL.Query().Get("user_id"); userID != "" {
		if _, parseErr := uuid.Parse(userID); parseErr != nil {
			writeError(w, r, apperrors.InvalidInput("user_id must be a valid UUID"))
			return
		}
		events, err = h.events.ListByUser(r.Context(), userID, limit)
	} else {
		events, err = h.events.ListRecent(r.Context(), limit)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]domain.AuditEvent{"events": events})
}

// DeactivateUser handles POST /api/v1/admin/users/{id}/deactivate.
func (h *AdminHandler) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, r, apperrors.InvalidInput("user id must be a valid UUID"))
		return
	}

	if err := h.svc.Deactivate(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
