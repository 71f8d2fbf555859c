package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/madcrow/auth-service/internal/domain"
)

// RateLimitStatus is the current window state for a login identifier,
// shaped for the 429 response body.
type RateLimitStatus struct {
	IsLimited         bool  `json:"is_limited"`
	RemainingAttempts int   `json:"remaining_attempts"`
	MaxAttempts       int   `json:"max_attempts"`
	TimeWindow        int   `json:"time_window"`
	TimeUntilReset    int64 `json:"time_until_reset"`
}

// LoginRateLimiter tracks failed login attempts in a sliding window.
// Implementations must fail open: if the backing store is unreachable the
// limiter reports not limited rather than blocking all logins.
type LoginRateLimiter interface {
	IsLimited(ctx context.Context, identifier string) bool
	RecordFailure(ctx context.Context, identifier string)
	Reset(ctx context.Context, identifier string)
	Status(ctx context.Context, identifier string) RateLimitStatus
}

// SessionCreateParams captures metadata required to create a session record.
type SessionCreateParams struct {
	Account    domain.Account
	RememberMe bool
	LoginIP    string
}

// SessionStore manages login sessions in the key-value store.
// Delete is idempotent; LogoutAll returns the number of sessions removed.
type SessionStore interface {
	Create(ctx context.Context, params SessionCreateParams) (domain.Session, error)
	Validate(ctx context.Context, sessionID string) (*domain.Session, error)
	Delete(ctx context.Context, sessionID string) error
	DeleteAll(ctx context.Context, accountID uuid.UUID) (int, error)
}

// RefreshTokenStore is the single-use registry for refresh token ids.
// Register stores a jti with the refresh TTL; Consume atomically removes it
// and reports whether it was present, so a refresh token can be redeemed at
// most once. RevokeAll clears every registered jti for the account.
type RefreshTokenStore interface {
	Register(ctx context.Context, tokenID string, accountID uuid.UUID, ttl time.Duration) error
	Consume(ctx context.Context, tokenID string) (uuid.UUID, bool, error)
	RevokeAll(ctx context.Context, accountID uuid.UUID) error
}
