package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRefreshTokenState(t *testing.T) {
	now := time.Now().UTC()
	base := RefreshToken{
		ID:        "t1",
		UserID:    "u1",
		IssuedAt:  now.Add(-time.Hour),
		ExpiresAt: now.Add(time.Hour),
	}

	t.Run("active", func(t *testing.T) {
		tok := base
		assert.Equal(t, TokenActive, tok.State(now))
	})

	t.Run("rotated", func(t *testing.T) {
		tok := base
		successor := "t2"
		tok.RotatedTo = &successor
		assert.Equal(t, TokenRotated, tok.State(now))
	})

	t.Run("revoked", func(t *testing.T) {
		tok := base
		revokedAt := now.Add(-time.Minute)
		tok.RevokedAt = &revokedAt
		assert.Equal(t, TokenRevoked, tok.State(now))
	})

	t.Run("expired", func(t *testing.T) {
		tok := base
		tok.ExpiresAt = now.Add(-time.Second)
		assert.Equal(t, TokenExpired, tok.State(now))
	})

	t.Run("revoked wins over rotated", func(t *testing.T) {
		tok := base
		successor := "t2"
		revokedAt := now.Add(-time.Minute)
		tok.RotatedTo = &successor
		tok.RevokedAt = &revokedAt
		assert.Equal(t, TokenRevoked, tok.State(now))
	})

	t.Run("rotated wins over expired", func(t *testing.T) {
		tok := base
		successor := "t2"
		tok.RotatedTo = &successor
		tok.ExpiresAt = now.Add(-time.Second)
		assert.Equal(t, TokenRotated, tok.State(now))
	})

	t.Run("boundary instant is not expired", func(t *testing.T) {
		tok := base
		tok.ExpiresAt = now
		assert.Equal(t, TokenActive, tok.State(now))
	})
}
