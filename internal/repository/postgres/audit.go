package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Rene-Kuhm/acuamarina-ceramica-sub002/internal/domain"
	"github.com/Rene-Kuhm/acuamarina-ceramica-sub002/pkg/database"
)

// AuditRepository implements repository.AuditRepository using PostgreSQL.
// The table is append-only; this type exposes no update or delete.
type AuditRepository struct {
	pool database.DBTX
}

// NewAuditRepository creates a new PostgreSQL-backed audit repository.
func NewAuditRepository(pool database.DBTX) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// Insert appends one audit event.
func (r *AuditRepository) Insert(ctx context.Context, e *domain.AuditEvent) error {
	metadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("marshal audit metadata: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO audit_logs (id, user_id, event_type, occurred_at, metadata)
		 VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.UserID, string(e.EventType), e.OccurredAt, metadata,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}

	return nil
}

// ListRecent returns the newest events, most recent first.
func (r *AuditRepository) ListRecent(ctx context.Context, limit int) ([]domain.AuditEvent, error) {
	query := `
		SELECT id, user_id, event_type, occurred_at, metadata
		FROM audit_logs
		ORDER BY occurred_at DESC
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	return scanAuditEvents(rows)
}

// ListByUser returns the newest events for one user, most recent first.
func (r *AuditRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.AuditEvent, error) {
	query := `
		SELECT id, user_id, event_type, occurred_at, metadata
		FROM audit_logs
		WHERE user_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit events by user: %w", err)
	}
	defer rows.Close()

	return scanAuditEvents(rows)
}

func scanAuditEvents(rows pgx.Rows) ([]domain.AuditEvent, error) {
	events := []domain.AuditEvent{}
	for rows.Next() {
		var e domain.AuditEvent
		var eventType string
		var metadata []byte

		if err := rows.Scan(&e.ID, &e.UserID, &eventType, &e.OccurredAt, &metadata); err != nil {
			return nil, fmt.Errorf("scan audit event row: %w", err)
		}

		e.EventType = domain.AuditEventType(eventType)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal audit metadata: %w", err)
			}
		}

		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit event rows: %w", err)
	}

	return events, nil
}
