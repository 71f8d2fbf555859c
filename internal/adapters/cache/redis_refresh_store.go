package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/madcrow/auth-service/internal/domain"
)

const (
	refreshTokenKeyPrefix   = "refresh_token:"
	accountRefreshKeyPrefix = "account_refresh_tokens:"
)

// RedisRefreshTokenStore is the single-use registry for refresh token ids.
// A refresh token is only honored while its jti is registered; Consume
// removes the jti atomically so a replayed token finds nothing and fails.
type RedisRefreshTokenStore struct {
	client *redis.Client
}

func NewRedisRefreshTokenStore(client *redis.Client) *RedisRefreshTokenStore {
	return &RedisRefreshTokenStore{client: client}
}

// Register records a freshly issued refresh token id for its account.
func (s *RedisRefreshTokenStore) Register(ctx context.Context, tokenID string, accountID uuid.UUID, ttl time.Duration) error {
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, refreshTokenKeyPrefix+tokenID, accountID.String(), ttl)
	accountKey := accountRefreshKeyPrefix + accountID.String()
	pipe.SAdd(ctx, accountKey, tokenID)
	pipe.Expire(ctx, accountKey, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: register refresh token: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Consume removes the token id from the registry. The boolean reports
// whether the id was still live; false means the token was already used
// or revoked.
func (s *RedisRefreshTokenStore) Consume(ctx context.Context, tokenID string) (uuid.UUID, bool, error) {
	raw, err := s.client.GetDel(ctx, refreshTokenKeyPrefix+tokenID).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("%w: consume refresh token: %v", domain.ErrStoreUnavailable, err)
	}

	accountID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false, nil
	}
	s.client.SRem(ctx, accountRefreshKeyPrefix+accountID.String(), tokenID)
	return accountID, true, nil
}

// RevokeAll invalidates every outstanding refresh token for the account.
func (s *RedisRefreshTokenStore) RevokeAll(ctx context.Context, accountID uuid.UUID) error {
	accountKey := accountRefreshKeyPrefix + accountID.String()
	ids, err := s.client.SMembers(ctx, accountKey).Result()
	if err != nil {
		return fmt.Errorf("%w: list refresh tokens: %v", domain.ErrStoreUnavailable, err)
	}

	pipe := s.client.TxPipeline()
	for _, id := range ids {
		pipe.Del(ctx, refreshTokenKeyPrefix+id)
	}
	pipe.Del(ctx, accountKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: revoke refresh tokens: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}
