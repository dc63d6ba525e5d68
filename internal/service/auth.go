// Package service implements the identity business logic: registration,
// login, refresh token rotation with reuse detection, and session revocation.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Rene-Kuhm/acuamarina-ceramica-sub002/internal/auth"
	"github.com/Rene-Kuhm/acuamarina-ceramica-sub002/internal/domain"
	"github.com/Rene-Kuhm/acuamarina-ceramica-sub002/internal/password"
	"github.com/Rene-Kuhm/acuamarina-ceramica-sub002/internal/ratelimit"
	"github.com/Rene-Kuhm/acuamarina-ceramica-sub002/internal/repository"
	apperrors "github.com/Rene-Kuhm/acuamarina-ceramica-sub002/pkg/errors"
)

// Auditor records security events. *audit.Recorder satisfies it.
type Auditor interface {
	Record(ctx context.Context, eventType domain.AuditEventType, userID *string, metadata map[string]string)
}

// LoginLimiter throttles repeated login failures.
// *ratelimit.LoginLimiter satisfies it.
type LoginLimiter interface {
	Allow(ctx context.Context, email, clientIP string) (bool, time.Duration)
	RecordFailure(ctx context.Context, email, clientIP string) bool
	Reset(ctx context.Context, email, clientIP string)
}

// AuthService implements authentication and session lifecycle operations.
type AuthService struct {
	users   repository.UserRepository
	tokens  repository.RefreshTokenRepository
	policy  *password.Policy
	jwt     *auth.JWTManager
	audit   Auditor
	limiter LoginLimiter
	logger  *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	users repository.UserRepository,
	tokens repository.RefreshTokenRepository,
	policy *password.Policy,
	jwtManager *auth.JWTManager,
	auditor Auditor,
	limiter LoginLimiter,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:   users,
		tokens:  tokens,
		policy:  policy,
		jwt:     jwtManager,
		audit:   auditor,
		limiter: limiter,
		logger:  logger,
	}
}

// LoginInput carries the credentials and client context for a login attempt.
type LoginInput struct {
	Email       string
	Password    string
	Fingerprint string
	ClientIP    string
}

// hashToken computes the SHA-256 hex digest of a raw refresh token. Only this
// digest is ever stored or used for lookups.
func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Register creates a new customer account and signs it in. The password is
// checked against the full policy before any hashing happens.
func (s *AuthService) Register(ctx context.Context, email, plaintext, fingerprint string) (*domain.User, *domain.TokenPair, error) {
	if violations := s.policy.Validate(plaintext); len(violations) > 0 {
		return nil, nil, apperrors.PasswordPolicyViolation(violations)
	}

	hash, err := s.policy.Hash(plaintext)
	if err != nil {
		return nil, nil, apperrors.Internal(err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        strings.ToLower(email),
		PasswordHash: hash,
		Role:         domain.RoleCustomer,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, nil, err
	}

	pair, err := s.issueTokens(ctx, user, fingerprint)
	if err != nil {
		return nil, nil, err
	}

	s.audit.Record(ctx, domain.AuditLoginSuccess, &user.ID, map[string]string{
		"method": "register",
	})

	return user, pair, nil
}

// Login verifies credentials and issues a fresh token pair. Every failure
// path costs one bcrypt comparison, so response timing does not reveal
// whether the email is registered.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*domain.User, *domain.TokenPair, error) {
	if ok, retryAfter := s.limiter.Allow(ctx, in.Email, in.ClientIP); !ok {
		return nil, nil, apperrors.Locked(ratelimit.RetryAfter(retryAfter))
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.policy.DummyCompare(in.Password)
			s.recordLoginFailure(ctx, in, nil, "unknown_email")
			return nil, nil, apperrors.InvalidCredentials()
		}
		return nil, nil, err
	}

	match, err := s.policy.Verify(in.Password, user.PasswordHash)
	if err != nil {
		s.logger.ErrorContext(ctx, "stored password hash is malformed",
			slog.String("user_id", user.ID),
		)
		return nil, nil, apperrors.MalformedHash(err)
	}
	if !match {
		s.recordLoginFailure(ctx, in, &user.ID, "wrong_password")
		return nil, nil, apperrors.InvalidCredentials()
	}

	if !user.IsActive {
		s.recordLoginFailure(ctx, in, &user.ID, "account_disabled")
		return nil, nil, apperrors.AccountDisabled()
	}

	s.limiter.Reset(ctx, in.Email, in.ClientIP)

	now := time.Now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.ErrorContext(ctx, "update last login failed",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	} else {
		user.LastLoginAt = &now
	}

	pair, err := s.issueTokens(ctx, user, in.Fingerprint)
	if err != nil {
		return nil, nil, err
	}

	s.audit.Record(ctx, domain.AuditLoginSuccess, &user.ID, nil)

	return user, pair, nil
}

// recordLoginFailure audits the failure, counts it toward the lockout
// threshold, and audits the lockout once when the threshold is crossed.
func (s *AuthService) recordLoginFailure(ctx context.Context, in LoginInput, userID *string, reason string) {
	s.audit.Record(ctx, domain.AuditLoginFailure, userID, map[string]string{
		"reason": reason,
	})

	if s.limiter.RecordFailure(ctx, in.Email, in.ClientIP) {
		s.audit.Record(ctx, domain.AuditLockout, userID, map[string]string{
			"client_ip": in.ClientIP,
		})
	}
}

// Refresh rotates a refresh token and returns a new pair. A token that was
// already rotated is treated as stolen: its whole rotation lineage is revoked
// and the reuse is audited.
func (s *AuthService) Refresh(ctx context.Context, rawToken, fingerprint string) (*domain.TokenPair, error) {
	if _, err := s.jwt.VerifyRefreshToken(rawToken); err != nil {
		if errors.Is(err, auth.ErrExpired) {
			return nil, apperrors.TokenExpired()
		}
		return nil, apperrors.InvalidToken()
	}

	record, err := s.tokens.GetByHash(ctx, hashToken(rawToken))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.InvalidToken()
		}
		return nil, err
	}

	switch record.State(time.Now().UTC()) {
	case domain.TokenRevoked:
		return nil, apperrors.TokenRevoked()
	case domain.TokenExpired:
		return nil, apperrors.TokenExpired()
	case domain.TokenRotated:
		return nil, s.handleReuse(ctx, record)
	}

	user, err := s.users.GetByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.InvalidToken()
		}
		return nil, err
	}
	if !user.IsActive {
		if err := s.tokens.RevokeAllForUser(ctx, user.ID); err != nil {
			s.logger.ErrorContext(ctx, "revoke sessions of disabled account failed",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, apperrors.AccountDisabled()
	}

	successorID := uuid.New().String()
	rawSuccessor, expiresAt, err := s.jwt.GenerateRefreshToken(user.ID, successorID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	successor := &domain.RefreshToken{
		ID:          successorID,
		UserID:      user.ID,
		TokenHash:   hashToken(rawSuccessor),
		Fingerprint: fingerprint,
		IssuedAt:    time.Now().UTC(),
		ExpiresAt:   expiresAt,
	}

	if err := s.tokens.Rotate(ctx, record.ID, successor); err != nil {
		if errors.Is(err, repository.ErrRotationConflict) {
			// A concurrent request rotated or revoked this token first.
			return nil, s.handleReuse(ctx, record)
		}
		return nil, err
	}

	accessToken, err := s.jwt.GenerateAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	s.audit.Record(ctx, domain.AuditRefreshRotated, &user.ID, map[string]string{
		"token_id":     record.ID,
		"successor_id": successorID,
	})

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: rawSuccessor,
		ExpiresIn:    int64(s.jwt.AccessExpiry().Seconds()),
	}, nil
}

// handleReuse revokes the full rotation lineage of a token presented after it
// was already rotated, audits the event, and returns the reuse error.
func (s *AuthService) handleReuse(ctx context.Context, record *domain.RefreshToken) error {
	if err := s.tokens.RevokeLineage(ctx, record.ID); err != nil {
		s.logger.ErrorContext(ctx, "revoke token lineage failed",
			slog.String("token_id", record.ID),
			slog.String("error", err.Error()),
		)
	}

	s.audit.Record(ctx, domain.AuditRefreshReuseDetected, &record.UserID, map[string]string{
		"token_id": record.ID,
	})

	return apperrors.TokenReuse()
}

// Logout revokes the presented refresh token. Revoking an already revoked or
// unknown token is a no-op, so repeated logouts succeed.
func (s *AuthService) Logout(ctx context.Context, userID, rawToken string) error {
	record, err := s.tokens.GetByHash(ctx, hashToken(rawToken))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		return err
	}

	if record.UserID != userID {
		return nil
	}

	if err := s.tokens.Revoke(ctx, record.ID); err != nil {
		return err
	}

	s.audit.Record(ctx, domain.AuditLogout, &userID, nil)

	return nil
}

// ChangePassword verifies the current password, applies the policy to the new
// one, and revokes every existing session.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	match, err := s.policy.Verify(current, user.PasswordHash)
	if err != nil {
		s.logger.ErrorContext(ctx, "stored password hash is malformed",
			slog.String("user_id", user.ID),
		)
		return apperrors.MalformedHash(err)
	}
	if !match {
		return apperrors.Unauthorized("current password is incorrect")
	}

	if violations := s.policy.Validate(next); len(violations) > 0 {
		return apperrors.PasswordPolicyViolation(violations)
	}

	hash, err := s.policy.Hash(next)
	if err != nil {
		return apperrors.Internal(err)
	}

	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	if err := s.tokens.RevokeAllForUser(ctx, userID); err != nil {
		return err
	}

	s.audit.Record(ctx, domain.AuditLogout, &userID, map[string]string{
		"scope":  "all_sessions",
		"reason": "password_change",
	})

	return nil
}

// VerifyAccess validates an access token and returns its claims. This never
// touches storage.
func (s *AuthService) VerifyAccess(tokenString string) (*auth.Claims, error) {
	claims, err := s.jwt.VerifyAccessToken(tokenString)
	if err != nil {
		if errors.Is(err, auth.ErrExpired) {
			return nil, apperrors.TokenExpired()
		}
		return nil, apperrors.InvalidToken()
	}
	return claims, nil
}

// GetProfile returns the user record for an authenticated subject.
func (s *AuthService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("user", userID)
		}
		return nil, err
	}
	return user, nil
}

// Deactivate disables an account and revokes all of its sessions. New logins
// and refreshes fail until the account is re-enabled.
func (s *AuthService) Deactivate(ctx context.Context, userID string) error {
	if err := s.users.SetActive(ctx, userID, false); err != nil {
		return err
	}

	if err := s.tokens.RevokeAllForUser(ctx, userID); err != nil {
		return err
	}

	s.audit.Record(ctx, domain.AuditLogout, &userID, map[string]string{
		"scope":  "all_sessions",
		"reason": "account_deactivated",
	})

	return nil
}

// issueTokens creates a fresh access/refresh pair and stores the refresh
// token record. Hashing happens before any storage write.
func (s *AuthService) issueTokens(ctx context.Context, user *domain.User, fingerprint string) (*domain.TokenPair, error) {
	tokenID := uuid.New().String()
	rawRefresh, expiresAt, err := s.jwt.GenerateRefreshToken(user.ID, tokenID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	record := &domain.RefreshToken{
		ID:          tokenID,
		UserID:      user.ID,
		TokenHash:   hashToken(rawRefresh),
		Fingerprint: fingerprint,
		IssuedAt:    time.Now().UTC(),
		ExpiresAt:   expiresAt,
	}

	if err := s.tokens.Insert(ctx, record); err != nil {
		return nil, err
	}

	accessToken, err := s.jwt.GenerateAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: rawRefresh,
		ExpiresIn:    int64(s.jwt.AccessExpiry().Seconds()),
	}, nil
}
