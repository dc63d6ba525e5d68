package domain

import (
	"time"
)

// AuditEventType enumerates the security-relevant events recorded by the
// audit trail.
type AuditEventType string

const (
	AuditLoginSuccess         AuditEventType = "login_success"
	AuditLoginFailure         AuditEventType = "login_failure"
	AuditRefreshRotated       AuditEventType = "refresh_rotated"
	AuditRefreshReuseDetected AuditEventType = "refresh_reuse_detected"
	AuditLogout               AuditEventType = "logout"
	AuditLockout              AuditEventType = "lockout"
)

// AuditEvent is one append-only row of the security audit trail. UserID is
// nil for failed logins where no account was resolved.
type AuditEvent struct {
	ID         string            `json:"id"`
	UserID     *string           `json:"user_id,omitempty"`
	EventType  AuditEventType    `json:"event_type"`
	OccurredAt time.Time         `json:"occurred_at"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}
