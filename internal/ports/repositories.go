package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/madcrow/auth-service/internal/domain"
)

// CreateAccountParams captures the inputs for a new account row.
// Hash and salt arrive together from the hasher; the repository never sees
// a plaintext password.
type CreateAccountParams struct {
	Name         string
	Email        string
	PasswordHash string
	PasswordSalt string
	Status       domain.AccountStatus
	IsAdmin      bool
	RegisteredAt time.Time
}

// AccountRepository defines persistence operations for accounts.
// GetByEmail performs a case-normalized lookup; callers pass lowered email.
type AccountRepository interface {
	Create(ctx context.Context, params CreateAccountParams) (domain.Account, error)
	GetByEmail(ctx context.Context, email string) (domain.Account, error)
	GetByID(ctx context.Context, accountID uuid.UUID) (domain.Account, error)
	UpdateLastLogin(ctx context.Context, accountID uuid.UUID, at time.Time, ip string) error
}

// LoginAttemptRepository stores login outcomes for the audit trail.
type LoginAttemptRepository interface {
	Insert(ctx context.Context, attempt domain.LoginAttempt) error
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int, since *time.Time, status string) ([]domain.LoginAttempt, error)
}

// OutboxEvent is the write-side event payload prior to storage.
// It is adapter-neutral to keep application code independent of broker specifics.
type OutboxEvent struct {
	EventID      uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	OccurredAt   time.Time
}

// OutboxRecord represents durable outbox state, including retry/error metadata.
type OutboxRecord struct {
	OutboxID     uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	RetryCount   int
	LastError    *string
	CreatedAt    time.Time
	PublishedAt  *time.Time
	LastErrorAt  *time.Time
}

// OutboxRepository controls the publish-retry workflow for auth events.
// Enqueue is a best-effort insert issued alongside the state change, not in
// the same transaction; the worker drains via FetchUnpublished.
type OutboxRepository interface {
	Enqueue(ctx context.Context, event OutboxEvent) error
	FetchUnpublished(ctx context.Context, limit int) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, outboxID uuid.UUID, errMsg string, at time.Time) error
}
