// Package ratelimit throttles credential guessing. Failure counters live in
// Redis so the lockout window is shared across service instances.
package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Store is the subset of redis.Client commands the limiter uses. Kept narrow
// so tests can substitute an in-memory fake.
type Store interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Get(ctx context.Context, key string) (int64, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
	Del(ctx context.Context, keys ...string) error
}

// Config holds the lockout policy.
type Config struct {
	// MaxFailures is the number of failed attempts within Window that
	// triggers a lockout for the remainder of the window.
	MaxFailures int
	// Window is the fixed counting window.
	Window time.Duration
}

// LoginLimiter counts login failures per email and per client IP. Redis
// outages fail open: losing throttling briefly beats failing every login.
type LoginLimiter struct {
	store  Store
	cfg    Config
	logger *slog.Logger
}

// NewLoginLimiter creates a limiter with the given policy.
func NewLoginLimiter(store Store, cfg Config, logger *slog.Logger) *LoginLimiter {
	return &LoginLimiter{store: store, cfg: cfg, logger: logger}
}

// Allow reports whether a login attempt may proceed. When the subject is
// locked out, the remaining lockout duration is returned.
func (l *LoginLimiter) Allow(ctx context.Context, email, clientIP string) (bool, time.Duration) {
	for _, key := range l.keys(email, clientIP) {
		count, err := l.store.Get(ctx, key)
		if err != nil {
			l.logger.WarnContext(ctx, "rate limiter read failed, failing open",
				slog.String("error", err.Error()),
			)
			continue
		}
		if count >= int64(l.cfg.MaxFailures) {
			ttl, err := l.store.TTL(ctx, key)
			if err != nil || ttl < 0 {
				ttl = l.cfg.Window
			}
			return false, ttl
		}
	}
	return true, 0
}

// RecordFailure counts one failed attempt. It returns true when this failure
// crossed the lockout threshold, so the caller can emit a single lockout
// audit event per window.
func (l *LoginLimiter) RecordFailure(ctx context.Context, email, clientIP string) bool {
	locked := false
	for _, key := range l.keys(email, clientIP) {
		count, err := l.store.Incr(ctx, key)
		if err != nil {
			l.logger.WarnContext(ctx, "rate limiter increment failed",
				slog.String("error", err.Error()),
			)
			continue
		}
		if count == 1 {
			if err := l.store.Expire(ctx, key, l.cfg.Window); err != nil {
				l.logger.WarnContext(ctx, "rate limiter expire failed",
					slog.String("error", err.Error()),
				)
			}
		}
		if count == int64(l.cfg.MaxFailures) {
			locked = true
		}
	}
	return locked
}

// Reset clears the failure counters after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, email, clientIP string) {
	if err := l.store.Del(ctx, l.keys(email, clientIP)...); err != nil {
		l.logger.WarnContext(ctx, "rate limiter reset failed",
			slog.String("error", err.Error()),
		)
	}
}

// keys builds the counter keys. Emails are hashed so the raw address never
// becomes a Redis key.
func (l *LoginLimiter) keys(email, clientIP string) []string {
	keys := make([]string, 0, 2)
	if email != "" {
		sum := sha256.Sum256([]byte(strings.ToLower(email)))
		keys = append(keys, "login_fail:email:"+hex.EncodeToString(sum[:16]))
	}
	if clientIP != "" {
		keys = append(keys, "login_fail:ip:"+clientIP)
	}
	return keys
}

// RetryAfter formats a lockout duration for the Locked error message.
func RetryAfter(d time.Duration) string {
	secs := int(d.Seconds())
	if secs < 1 {
		secs = 1
	}
	return fmt.Sprintf("%ds", secs)
}
