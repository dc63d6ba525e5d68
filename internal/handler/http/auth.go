// Package http exposes the identity service over HTTP using chi.
package http

import (
	"context"
	"net/http"

	"github.com/Rene-Kuhm/acuamarina-ceramica-sub002/internal/domain"
	"github.com/Rene-Kuhm/acuamarina-ceramica-sub002/internal/service"
	apperrors "github.com/Rene-Kuhm/acuamarina-ceramica-sub002/pkg/errors"
	"github.com/Rene-Kuhm/acuamarina-ceramica-sub002/pkg/validator"
)

// AuthService is the business logic surface the auth handler depends on.
// *service.AuthService satisfies it.
type AuthService interface {
	AccessVerifier
	Register(ctx context.Context, email, plaintext, fingerprint string) (*domain.User, *domain.TokenPair, error)
	Login(ctx context.Context, in service.LoginInput) (*domain.User, *domain.TokenPair, error)
	Refresh(ctx context.Context, rawToken, fingerprint string) (*domain.TokenPair, error)
	Logout(ctx context.Context, userID, rawToken string) error
	ChangePassword(ctx context.Context, userID, current, next string) error
	GetProfile(ctx context.Context, userID string) (*domain.User, error)
	Deactivate(ctx context.Context, userID string) error
}

// AuthHandler serves the public authentication endpoints.
type AuthHandler struct {
	svc AuthService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(svc AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type registerRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required"`
	Fingerprint string `json:"fingerprint" validate:"max=256"`
}

type loginRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required"`
	Fingerprint string `json:"fingerprint" validate:"max=256"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	Fingerprint  string `json:"fingerprint" validate:"max=256"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

type authResponse struct {
	User   *domain.User      `json:"user"`
	Tokens *domain.TokenPair `json:"tokens"`
}

// Register handles POST /api/v1/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validator.Validate(req); err != nil {
		writeError(w, r, err)
		return
	}

	user, tokens, err := h.svc.Register(r.Context(), req.Email, req.Password, req.Fingerprint)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{User: user, Tokens: tokens})
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validator.Validate(req); err != nil {
		writeError(w, r, err)
		return
	}

	user, tokens, err := h.svc.Login(r.Context(), service.LoginInput{
		Email:       req.Email,
		Password:    req.Password,
		Fingerprint: req.Fingerprint,
		ClientIP:    clientIP(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{User: user, Tokens: tokens})
}

// Refresh handles POST /api/v1/auth/refresh.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validator.Validate(req); err != nil {
		writeError(w, r, err)
		return
	}

	tokens, err := h.svc.Refresh(r.Context(), req.RefreshToken, req.Fingerprint)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]*domain.TokenPair{"tokens": tokens})
}

// Logout handles POST /api/v1/auth/logout. Requires authentication.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, apperrors.Unauthorized("authentication required"))
		return
	}

	var req logoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validator.Validate(req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.svc.Logout(r.Context(), claims.UserID, req.RefreshToken); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/v1/auth/me. Requires authentication.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, apperrors.Unauthorized("authentication required"))
		return
	}

	user, err := h.svc.GetProfile(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]*domain.User{"user": user})
}

// ChangePassword handles POST /api/v1/auth/change-password. Requires
// authentication. Success revokes every session, so the client must log in
// again.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, apperrors.Unauthorized("authentication required"))
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validator.Validate(req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.svc.ChangePassword(r.Context(), claims.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
