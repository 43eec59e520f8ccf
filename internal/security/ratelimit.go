package security

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// newRateLimiter returns per-IP sliding-window rate-limiting middleware
// backed by Redis sorted sets, allowing maxReqs per windowSec seconds.
// On Redis errors it fails open.
func newRateLimiter(client redis.Cmdable, maxReqs, windowSec int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)
			key := "ratelimit:api:" + ip

			allowed, err := rateLimitAllow(r.Context(), client, key, maxReqs, windowSec)
			if err != nil {
				slog.Warn("rate limiter: redis error, failing open", "error", err, "ip", ip)
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				w.Header().Set("Retry-After", strconv.Itoa(windowSec))
				http.Error(w, `{"error":"too many requests"}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func rateLimitAllow(ctx context.Context, client redis.Cmdable, key string, maxReqs, windowSec int) (bool, error) {
	now := time.Now()
	windowStart := float64(now.Add(-time.Duration(windowSec) * time.Second).UnixMilli())
	member := fmt.Sprintf("%d", now.UnixNano())
	score := float64(now.UnixMilli())

	pipe := client.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("%f", windowStart))
	countCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{Score: score, Member: member})
	pipe.Expire(ctx, key, time.Duration(windowSec)*time.Second+time.Second)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return false, err
	}

	return countCmd.Val() < int64(maxReqs), nil
}
