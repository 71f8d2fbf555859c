package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/madcrow/auth-service/internal/ports"
)

const loginAttemptKeyPrefix = "login_attempts:"

// RedisLoginRateLimiter tracks failed login attempts per identifier in a
// sorted set keyed by attempt timestamp, giving a sliding window: an attempt
// stops counting exactly window seconds after it happened, not at a bucket
// boundary.
//
// The limiter fails open. If Redis is unreachable every method degrades to
// "not limited" so an infrastructure outage never locks users out of login.
type RedisLoginRateLimiter struct {
	client      *redis.Client
	maxAttempts int
	window      time.Duration
	logger      *slog.Logger
	nowFn       func() time.Time
}

func NewRedisLoginRateLimiter(client *redis.Client, maxAttempts int, window time.Duration, logger *slog.Logger) *RedisLoginRateLimiter {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisLoginRateLimiter{
		client:      client,
		maxAttempts: maxAttempts,
		window:      window,
		logger:      logger,
		nowFn:       func() time.Time { return time.Now().UTC() },
	}
}

// WithNow overrides the clock for tests.
func (l *RedisLoginRateLimiter) WithNow(nowFn func() time.Time) *RedisLoginRateLimiter {
	l.nowFn = nowFn
	return l
}

// IsLimited reports whether the identifier has exhausted its attempt budget.
func (l *RedisLoginRateLimiter) IsLimited(ctx context.Context, identifier string) bool {
	count, err := l.activeAttempts(ctx, identifier)
	if err != nil {
		l.logger.Warn("rate limiter unavailable, failing open",
			slog.String("operation", "rate_limit.is_limited"),
			slog.String("error", err.Error()))
		return false
	}
	return count >= int64(l.maxAttempts)
}

// RecordFailure adds a failed attempt at the current time.
func (l *RedisLoginRateLimiter) RecordFailure(ctx context.Context, identifier string) {
	now := l.nowFn()
	key := loginAttemptKeyPrefix + identifier

	pipe := l.client.TxPipeline()
	// Member must be unique per attempt; the score alone carries the time.
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.Unix()),
		Member: uuid.NewString(),
	})
	pipe.Expire(ctx, key, 2*l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		l.logger.Warn("rate limiter unavailable, attempt not recorded",
			slog.String("operation", "rate_limit.record_failure"),
			slog.String("error", err.Error()))
	}
}

// Reset clears all recorded attempts for the identifier.
func (l *RedisLoginRateLimiter) Reset(ctx context.Context, identifier string) {
	if err := l.client.Del(ctx, loginAttemptKeyPrefix+identifier).Err(); err != nil {
		l.logger.Warn("rate limiter unavailable, reset skipped",
			slog.String("operation", "rate_limit.reset"),
			slog.String("error", err.Error()))
	}
}

// Status returns the current window state for the identifier, including the
// seconds until the oldest attempt ages out when the identifier is limited.
func (l *RedisLoginRateLimiter) Status(ctx context.Context, identifier string) ports.RateLimitStatus {
	status := ports.RateLimitStatus{
		MaxAttempts:       l.maxAttempts,
		RemainingAttempts: l.maxAttempts,
		TimeWindow:        int(l.window.Seconds()),
	}

	count, err := l.activeAttempts(ctx, identifier)
	if err != nil {
		l.logger.Warn("rate limiter unavailable, failing open",
			slog.String("operation", "rate_limit.status"),
			slog.String("error", err.Error()))
		return status
	}

	remaining := l.maxAttempts - int(count)
	if remaining < 0 {
		remaining = 0
	}
	status.RemainingAttempts = remaining
	status.IsLimited = count >= int64(l.maxAttempts)

	if status.IsLimited {
		oldest, err := l.client.ZRangeWithScores(ctx, loginAttemptKeyPrefix+identifier, 0, 0).Result()
		if err == nil && len(oldest) > 0 {
			resetAt := time.Unix(int64(oldest[0].Score), 0).Add(l.window)
			until := int64(resetAt.Sub(l.nowFn()).Seconds())
			if until < 0 {
				until = 0
			}
			status.TimeUntilReset = until
		}
	}
	return status
}

// activeAttempts purges expired entries and counts the rest atomically.
func (l *RedisLoginRateLimiter) activeAttempts(ctx context.Context, identifier string) (int64, error) {
	key := loginAttemptKeyPrefix + identifier
	cutoff := l.nowFn().Add(-l.window).Unix()

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(cutoff, 10))
	card := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("count login attempts: %w", err)
	}
	return card.Val(), nil
}
