package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRateLimiterAllowsUnderLimit(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	limiter := NewRedisLoginRateLimiter(client, 5, 15*time.Minute, nil)
	ctx := context.Background()

	if limiter.IsLimited(ctx, "user@example.com") {
		t.Fatalf("fresh identifier must not be limited")
	}
	for i := 0; i < 4; i++ {
		limiter.RecordFailure(ctx, "user@example.com")
	}
	if limiter.IsLimited(ctx, "user@example.com") {
		t.Fatalf("identifier with 4 of 5 failures must not be limited")
	}

	status := limiter.Status(ctx, "user@example.com")
	if status.RemainingAttempts != 1 {
		t.Fatalf("remaining = %d, want 1", status.RemainingAttempts)
	}
	if status.IsLimited {
		t.Fatalf("status must not report limited")
	}
}

func TestRateLimiterBlocksAtLimit(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	limiter := NewRedisLoginRateLimiter(client, 3, 15*time.Minute, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		limiter.RecordFailure(ctx, "user@example.com")
	}
	if !limiter.IsLimited(ctx, "user@example.com") {
		t.Fatalf("identifier at limit must be limited")
	}

	status := limiter.Status(ctx, "user@example.com")
	if !status.IsLimited {
		t.Fatalf("status must report limited")
	}
	if status.RemainingAttempts != 0 {
		t.Fatalf("remaining = %d, want 0", status.RemainingAttempts)
	}
	if status.TimeUntilReset <= 0 || status.TimeUntilReset > int64((15*time.Minute).Seconds()) {
		t.Fatalf("time_until_reset = %d, want within (0, 900]", status.TimeUntilReset)
	}

	// Other identifiers stay independent.
	if limiter.IsLimited(ctx, "other@example.com") {
		t.Fatalf("unrelated identifier must not be limited")
	}
}

func TestRateLimiterSlidingWindowExpiry(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	limiter := NewRedisLoginRateLimiter(client, 2, 10*time.Minute, nil)
	ctx := context.Background()

	base := time.Now().UTC()
	limiter.WithNow(func() time.Time { return base })
	limiter.RecordFailure(ctx, "user@example.com")
	limiter.RecordFailure(ctx, "user@example.com")
	if !limiter.IsLimited(ctx, "user@example.com") {
		t.Fatalf("expected limited at window start")
	}

	// One second before the oldest attempt ages out the limit still holds.
	limiter.WithNow(func() time.Time { return base.Add(10*time.Minute - time.Second) })
	if !limiter.IsLimited(ctx, "user@example.com") {
		t.Fatalf("expected limited just inside the window")
	}

	// Past the window both attempts are purged.
	limiter.WithNow(func() time.Time { return base.Add(10*time.Minute + time.Second) })
	if limiter.IsLimited(ctx, "user@example.com") {
		t.Fatalf("expected not limited after window elapsed")
	}
}

func TestRateLimiterReset(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	limiter := NewRedisLoginRateLimiter(client, 2, 15*time.Minute, nil)
	ctx := context.Background()

	limiter.RecordFailure(ctx, "user@example.com")
	limiter.RecordFailure(ctx, "user@example.com")
	if !limiter.IsLimited(ctx, "user@example.com") {
		t.Fatalf("expected limited before reset")
	}

	limiter.Reset(ctx, "user@example.com")
	if limiter.IsLimited(ctx, "user@example.com") {
		t.Fatalf("expected not limited after reset")
	}
	status := limiter.Status(ctx, "user@example.com")
	if status.RemainingAttempts != 2 {
		t.Fatalf("remaining = %d, want full budget after reset", status.RemainingAttempts)
	}
}

func TestRateLimiterFailsOpenWhenRedisDown(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	limiter := NewRedisLoginRateLimiter(client, 1, 15*time.Minute, nil)
	ctx := context.Background()

	limiter.RecordFailure(ctx, "user@example.com")
	mr.Close()

	if limiter.IsLimited(ctx, "user@example.com") {
		t.Fatalf("limiter must fail open when the store is unreachable")
	}
	status := limiter.Status(ctx, "user@example.com")
	if status.IsLimited || status.RemainingAttempts != 1 {
		t.Fatalf("status must fail open, got %+v", status)
	}
	// These must not panic or block.
	limiter.RecordFailure(ctx, "user@example.com")
	limiter.Reset(ctx, "user@example.com")
}
