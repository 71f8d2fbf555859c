package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/madcrow/auth-service/internal/domain"
	"github.com/madcrow/auth-service/internal/ports"
)

const (
	sessionKeyPrefix         = "session:"
	accountSessionsKeyPrefix = "account_sessions:"
)

// RedisSessionStore keeps server-side sessions as JSON documents with a TTL.
// A per-account set tracks live session ids so logout-all can fan out without
// a key scan.
type RedisSessionStore struct {
	client      *redis.Client
	sessionTTL  time.Duration
	rememberTTL time.Duration
	nowFn       func() time.Time
}

func NewRedisSessionStore(client *redis.Client, sessionTTL, rememberTTL time.Duration) *RedisSessionStore {
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	if rememberTTL <= 0 {
		rememberTTL = 30 * 24 * time.Hour
	}
	return &RedisSessionStore{
		client:      client,
		sessionTTL:  sessionTTL,
		rememberTTL: rememberTTL,
		nowFn:       func() time.Time { return time.Now().UTC() },
	}
}

// WithNow overrides the clock for tests.
func (s *RedisSessionStore) WithNow(nowFn func() time.Time) *RedisSessionStore {
	s.nowFn = nowFn
	return s
}

// Create persists a new session and registers it under the account's set.
func (s *RedisSessionStore) Create(ctx context.Context, params ports.SessionCreateParams) (domain.Session, error) {
	now := s.nowFn()
	ttl := s.sessionTTL
	if params.RememberMe {
		ttl = s.rememberTTL
	}

	session := domain.Session{
		SessionID:      uuid.NewString(),
		UserID:         params.Account.ID,
		Email:          params.Account.Email,
		Name:           params.Account.Name,
		IsAdmin:        params.Account.IsAdmin,
		Status:         params.Account.Status,
		RememberMe:     params.RememberMe,
		LoginIP:        params.LoginIP,
		CreatedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(ttl),
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return domain.Session{}, fmt.Errorf("encode session: %w", err)
	}

	accountKey := accountSessionsKeyPrefix + session.UserID.String()
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKeyPrefix+session.SessionID, payload, ttl)
	pipe.SAdd(ctx, accountKey, session.SessionID)
	pipe.Expire(ctx, accountKey, s.rememberTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.Session{}, fmt.Errorf("%w: store session: %v", domain.ErrStoreUnavailable, err)
	}
	return session, nil
}

// Validate loads the session and bumps its last-activity timestamp.
// Remember-me sessions slide: each validation pushes the expiry a full
// remember-me window out. Ordinary sessions keep their absolute expiry.
func (s *RedisSessionStore) Validate(ctx context.Context, sessionID string) (*domain.Session, error) {
	raw, err := s.client.Get(ctx, sessionKeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load session: %v", domain.ErrStoreUnavailable, err)
	}

	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, domain.ErrSessionNotFound
	}

	now := s.nowFn()
	if !session.ExpiresAt.After(now) {
		_ = s.Delete(ctx, sessionID)
		return nil, domain.ErrSessionNotFound
	}

	session.LastActivityAt = now
	ttl := time.Duration(redis.KeepTTL)
	if session.RememberMe {
		session.ExpiresAt = now.Add(s.rememberTTL)
		ttl = s.rememberTTL
	}
	if payload, err := json.Marshal(session); err == nil {
		s.client.Set(ctx, sessionKeyPrefix+sessionID, payload, ttl)
	}
	return &session, nil
}

// Delete removes a session. Deleting an absent session is not an error.
func (s *RedisSessionStore) Delete(ctx context.Context, sessionID string) error {
	raw, err := s.client.Get(ctx, sessionKeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: load session: %v", domain.ErrStoreUnavailable, err)
	}

	var session domain.Session
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, sessionKeyPrefix+sessionID)
	if json.Unmarshal(raw, &session) == nil && session.UserID != uuid.Nil {
		pipe.SRem(ctx, accountSessionsKeyPrefix+session.UserID.String(), sessionID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: delete session: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// DeleteAll removes every live session for the account and reports how many
// were actually deleted.
func (s *RedisSessionStore) DeleteAll(ctx context.Context, accountID uuid.UUID) (int, error) {
	accountKey := accountSessionsKeyPrefix + accountID.String()
	ids, err := s.client.SMembers(ctx, accountKey).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: list sessions: %v", domain.ErrStoreUnavailable, err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, sessionKeyPrefix+id)
	}

	pipe := s.client.TxPipeline()
	deleted := pipe.Del(ctx, keys...)
	pipe.Del(ctx, accountKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("%w: delete sessions: %v", domain.ErrStoreUnavailable, err)
	}
	return int(deleted.Val()), nil
}
