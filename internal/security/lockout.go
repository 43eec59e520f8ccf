package security

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tripforge/tripforge/internal/metrics"
)

// LoginGuard tracks failed login attempts per identifier (email or IP)
// in Redis and locks the identifier out once the attempt budget is
// spent. Redis failures never block a login: the guard fails open.
type LoginGuard struct {
	client      redis.Cmdable
	maxAttempts int
	lockout     time.Duration
}

func NewLoginGuard(client redis.Cmdable, maxAttempts int, lockout time.Duration) *LoginGuard {
	return &LoginGuard{client: client, maxAttempts: maxAttempts, lockout: lockout}
}

func attemptsKey(id string) string { return "lockout:attempts:" + id }
func lockedKey(id string) string   { return "lockout:locked:" + id }

// RecordFailure registers a failed attempt and reports whether the
// identifier just crossed into the locked state.
func (g *LoginGuard) RecordFailure(ctx context.Context, id string) bool {
	if g.lockout <= 0 {
		return false
	}

	count, err := g.client.Incr(ctx, attemptsKey(id)).Result()
	if err != nil {
		slog.Warn("login guard: recording failure, failing open", "error", err)
		return false
	}
	if count == 1 {
		if err := g.client.Expire(ctx, attemptsKey(id), g.lockout).Err(); err != nil {
			slog.Warn("login guard: arming attempt expiry", "error", err)
		}
	}

	if count >= int64(g.maxAttempts) {
		if err := g.client.Set(ctx, lockedKey(id), "1", g.lockout).Err(); err != nil {
			slog.Warn("login guard: setting lock, failing open", "error", err)
			return false
		}
		metrics.LoginLockoutsTotal.Inc()
		return true
	}
	return false
}

// IsLocked reports whether the identifier is currently locked out.
func (g *LoginGuard) IsLocked(ctx context.Context, id string) bool {
	if g.lockout <= 0 {
		return false
	}
	n, err := g.client.Exists(ctx, lockedKey(id)).Result()
	if err != nil {
		slog.Warn("login guard: checking lock, failing open", "error", err)
		return false
	}
	return n > 0
}

// Reset clears the attempt counter after a successful login.
func (g *LoginGuard) Reset(ctx context.Context, id string) {
	if err := g.client.Del(ctx, attemptsKey(id), lockedKey(id)).Err(); err != nil {
		slog.Warn("login guard: resetting attempts", "error", err)
	}
}
