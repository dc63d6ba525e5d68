// Package audit provides the append-only security event trail. Recording is
// fire-and-forget: a failed audit write never fails the operation that
// triggered it, but is escalated to the error log.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Rene-Kuhm/acuamarina-ceramica-sub002/internal/domain"
	"github.com/Rene-Kuhm/acuamarina-ceramica-sub002/internal/repository"
	pkgkafka "github.com/Rene-Kuhm/acuamarina-ceramica-sub002/pkg/kafka"
)

// TopicSecurityAudit is the Kafka topic mirroring the audit_logs table for
// downstream consumers (alerting, SIEM export).
const TopicSecurityAudit = "acuamarina.identity.audit"

const (
	aggregateTypeIdentity = "identity"
	sourceIdentityService = "identity-service"
)

// EventPublisher publishes audit events to the platform event stream.
// *pkgkafka.Producer satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Recorder writes security events to the audit store and mirrors them onto
// the event stream.
type Recorder struct {
	repo      repository.AuditRepository
	publisher EventPublisher
	logger    *slog.Logger
}

// NewRecorder creates a new audit recorder. publisher may be nil when no
// event stream is configured.
func NewRecorder(repo repository.AuditRepository, publisher EventPublisher, logger *slog.Logger) *Recorder {
	return &Recorder{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

// Record appends one audit event. userID is nil for events with no resolved
// account (failed logins against unknown emails). Metadata must never carry
// plaintext passwords or raw token secrets. Errors are swallowed for the
// caller and reported on the error log.
func (r *Recorder) Record(ctx context.Context, eventType domain.AuditEventType, userID *string, metadata map[string]string) {
	event := &domain.AuditEvent{
		ID:         uuid.New().String(),
		UserID:     userID,
		EventType:  eventType,
		OccurredAt: time.Now().UTC(),
		Metadata:   metadata,
	}

	if err := r.repo.Insert(ctx, event); err != nil {
		r.logger.ErrorContext(ctx, "audit write failed",
			slog.String("event_type", string(eventType)),
			slog.String("error", err.Error()),
		)
	}

	if r.publisher == nil {
		return
	}

	aggregateID := ""
	if userID != nil {
		aggregateID = *userID
	}

	streamEvent, err := pkgkafka.NewEvent(string(eventType), aggregateID, aggregateTypeIdentity, sourceIdentityService, event)
	if err != nil {
		r.logger.ErrorContext(ctx, "audit event encode failed",
			slog.String("event_type", string(eventType)),
			slog.String("error", err.Error()),
		)
		return
	}

	if err := r.publisher.Publish(ctx, TopicSecurityAudit, streamEvent); err != nil {
		r.logger.ErrorContext(ctx, "audit event publish failed",
			slog.String("event_type", string(eventType)),
			slog.String("error", err.Error()),
		)
	}
}
