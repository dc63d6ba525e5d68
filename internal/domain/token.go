package domain

import (
	"time"
)

// RefreshToken is the stored record of an issued refresh token. The raw
// secret is never persisted; TokenHash is its SHA-256 digest.
type RefreshToken struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	TokenHash   string     `json:"-"`
	Fingerprint string     `json:"-"`
	IssuedAt    time.Time  `json:"issued_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	RotatedTo   *string    `json:"rotated_to,omitempty"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
}

// TokenState describes where a refresh token sits in its lifecycle.
type TokenState string

const (
	TokenActive  TokenState = "active"
	TokenRotated TokenState = "rotated"
	TokenRevoked TokenState = "revoked"
	TokenExpired TokenState = "expired"
)

// State resolves the token's lifecycle state at the given instant. Revocation
// wins over rotation so a lineage-wide revoke is never misread as a clean
// rotation; expiry is detected lazily on use.
func (t *RefreshToken) State(now time.Time) TokenState {
	switch {
	case t.RevokedAt != nil:
		return TokenRevoked
	case t.RotatedTo != nil:
		return TokenRotated
	case now.After(t.ExpiresAt):
		return TokenExpired
	default:
		return TokenActive
	}
}
