package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Rene-Kuhm/acuamarina-ceramica-sub002/internal/domain"
	"github.com/Rene-Kuhm/acuamarina-ceramica-sub002/internal/repository"
	"github.com/Rene-Kuhm/acuamarina-ceramica-sub002/pkg/database"
	apperrors "github.com/Rene-Kuhm/acuamarina-ceramica-sub002/pkg/errors"
)

// RefreshTokenRepository implements repository.RefreshTokenRepository using
// PostgreSQL. Rotation relies on the database's transactional guarantees, not
// in-process locks, so multiple service instances stay correct.
type RefreshTokenRepository struct {
	pool database.DBTX
}

// NewRefreshTokenRepository creates a new PostgreSQL-backed refresh token repository.
func NewRefreshTokenRepository(pool database.DBTX) *RefreshTokenRepository {
	return &RefreshTokenRepository{pool: pool}
}

const tokenColumns = `id, user_id, token_hash, fingerprint, issued_at, expires_at, rotated_to, revoked_at`

const insertTokenQuery = `
	INSERT INTO refresh_tokens (id, user_id, token_hash, fingerprint, issued_at, expires_at)
	VALUES ($1, $2, $3, $4, $5, $6)`

// Insert stores a new ACTIVE refresh token record.
func (r *RefreshTokenRepository) Insert(ctx context.Context, t *domain.RefreshToken) error {
	_, err := r.pool.Exec(ctx, insertTokenQuery,
		t.ID, t.UserID, t.TokenHash, t.Fingerprint, t.IssuedAt, t.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}

	return nil
}

// GetByHash retrieves a refresh token record by its SHA-256 hash.
func (r *RefreshTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM refresh_tokens WHERE token_hash = $1`

	var t domain.RefreshToken
	err := r.pool.QueryRow(ctx, query, tokenHash).Scan(
		&t.ID,
		&t.UserID,
		&t.TokenHash,
		&t.Fingerprint,
		&t.IssuedAt,
		&t.ExpiresAt,
		&t.RotatedTo,
		&t.RevokedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan refresh token: %w", err)
	}

	return &t, nil
}

// Rotate atomically retires the predecessor and inserts the successor. The
// predecessor update is a compare-and-swap on ACTIVE state: zero rows
// affected means a concurrent rotation or revocation won the race, the
// transaction rolls back, and ErrRotationConflict is returned. The two
// writes commit together, so no reader can observe a half-applied rotation.
func (r *RefreshTokenRepository) Rotate(ctx context.Context, predecessorID string, successor *domain.RefreshToken) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin rotation: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx,
		`UPDATE refresh_tokens SET rotated_to = $1 WHERE id = $2 AND rotated_to IS NULL AND revoked_at IS NULL`,
		successor.ID, predecessorID,
	)
	if err != nil {
		return fmt.Errorf("mark token rotated: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrRotationConflict
	}

	if _, err := tx.Exec(ctx, insertTokenQuery,
		successor.ID, successor.UserID, successor.TokenHash,
		successor.Fingerprint, successor.IssuedAt, successor.ExpiresAt,
	); err != nil {
		return fmt.Errorf("insert successor token: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit rotation: %w", err)
	}

	return nil
}

// Revoke marks one token REVOKED. The revoked_at guard makes it idempotent.
func (r *RefreshTokenRepository) Revoke(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE refresh_tokens SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	return nil
}

// RevokeAllForUser revokes every non-revoked token owned by the user.
func (r *RefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE refresh_tokens SET revoked_at = $1 WHERE user_id = $2 AND revoked_at IS NULL`,
		time.Now().UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("revoke refresh tokens by user: %w", err)
	}

	return nil
}

// RevokeLineage revokes the full rotation chain containing the given token.
// The recursive CTE walks rotated_to pointers in both directions, so the
// oldest ancestor and the newest successor are all retired together.
func (r *RefreshTokenRepository) RevokeLineage(ctx context.Context, id string) error {
	query := `
		WITH RECURSIVE lineage AS (
			SELECT id, rotated_to FROM refresh_tokens WHERE id = $1
			UNION
			SELECT t.id, t.rotated_to
			FROM refresh_tokens t
			JOIN lineage l ON t.rotated_to = l.id OR t.id = l.rotated_to
		)
		UPDATE refresh_tokens SET revoked_at = $2
		WHERE revoked_at IS NULL AND id IN (SELECT id FROM lineage)`

	_, err := r.pool.Exec(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("revoke token lineage: %w", err)
	}

	return nil
}
