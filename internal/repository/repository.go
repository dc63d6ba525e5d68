// Package repository defines the persistence contracts for the identity
// core. Implementations live in the postgres subpackage.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Rene-Kuhm/acuamarina-ceramica-sub002/internal/domain"
)

// ErrRotationConflict reports that a refresh token could not be rotated
// because a concurrent caller already rotated or revoked it. The service
// layer treats this as a reuse signal.
var ErrRotationConflict = errors.New("refresh token already rotated or revoked")

// UserRepository defines the interface for user persistence operations.
// It is the only mutation path for user rows; nothing else touches the table.
type UserRepository interface {
	// Create inserts a new user. Email is stored case-folded.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by case-insensitive email match.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Update modifies an existing user's mutable fields.
	Update(ctx context.Context, user *domain.User) error

	// UpdateLastLogin sets only the last_login_at column. Kept narrow so a
	// login timestamp never races a concurrent profile update.
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error

	// SetActive soft-enables or soft-disables the account. Users are never
	// hard-deleted while orders reference them.
	SetActive(ctx context.Context, id string, active bool) error
}

// RefreshTokenRepository mirrors the refresh token lifecycle state machine:
// ACTIVE -> {ROTATED | REVOKED | EXPIRED}.
type RefreshTokenRepository interface {
	// Insert stores a new ACTIVE refresh token record.
	Insert(ctx context.Context, token *domain.RefreshToken) error

	// GetByHash retrieves a refresh token record by its SHA-256 hash.
	GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)

	// Rotate atomically marks the predecessor ROTATED (pointing at the
	// successor) and inserts the successor as ACTIVE. The predecessor update
	// is conditional on it still being ACTIVE; if a concurrent rotation or
	// revocation got there first, ErrRotationConflict is returned and
	// nothing is written. A concurrent reader can never observe the
	// successor without the predecessor being rotated, or vice versa.
	Rotate(ctx context.Context, predecessorID string, successor *domain.RefreshToken) error

	// Revoke marks one token REVOKED. Idempotent: revoking an already
	// revoked or rotated token is a no-op.
	Revoke(ctx context.Context, id string) error

	// RevokeAllForUser revokes every non-revoked token owned by the user.
	RevokeAllForUser(ctx context.Context, userID string) error

	// RevokeLineage revokes the whole rotation chain the given token belongs
	// to, ancestors and descendants included. Used on reuse detection.
	RevokeLineage(ctx context.Context, id string) error
}

// AuditRepository is the append-only store behind the audit trail. Rows are
// never updated or deleted by the core.
type AuditRepository interface {
	// Insert appends one audit event.
	Insert(ctx context.Context, event *domain.AuditEvent) error

	// ListRecent returns the newest events, most recent first.
	ListRecent(ctx context.Context, limit int) ([]domain.AuditEvent, error)

	// ListByUser returns the newest events for one user, most recent first.
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.AuditEvent, error)
}
