package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRefreshTokenSingleUse(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	store := NewRedisRefreshTokenStore(client)
	ctx := context.Background()

	accountID := uuid.New()
	tokenID := uuid.NewString()
	if err := store.Register(ctx, tokenID, accountID, time.Hour); err != nil {
		t.Fatalf("register: %v", err)
	}

	gotID, live, err := store.Consume(ctx, tokenID)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if !live {
		t.Fatalf("expected registered token to be live")
	}
	if gotID != accountID {
		t.Fatalf("account = %s, want %s", gotID, accountID)
	}

	// Second redemption of the same id fails.
	_, live, err = store.Consume(ctx, tokenID)
	if err != nil {
		t.Fatalf("second consume: %v", err)
	}
	if live {
		t.Fatalf("expected consumed token to be dead")
	}
}

func TestRefreshTokenConsumeUnknown(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	store := NewRedisRefreshTokenStore(client)
	ctx := context.Background()

	_, live, err := store.Consume(ctx, uuid.NewString())
	if err != nil {
		t.Fatalf("consume unknown: %v", err)
	}
	if live {
		t.Fatalf("unknown token must not be live")
	}
}

func TestRefreshTokenRevokeAll(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	store := NewRedisRefreshTokenStore(client)
	ctx := context.Background()

	accountID := uuid.New()
	ids := []string{uuid.NewString(), uuid.NewString(), uuid.NewString()}
	for _, id := range ids {
		if err := store.Register(ctx, id, accountID, time.Hour); err != nil {
			t.Fatalf("register %s: %v", id, err)
		}
	}
	otherID := uuid.NewString()
	otherAccount := uuid.New()
	if err := store.Register(ctx, otherID, otherAccount, time.Hour); err != nil {
		t.Fatalf("register other: %v", err)
	}

	if err := store.RevokeAll(ctx, accountID); err != nil {
		t.Fatalf("revoke all: %v", err)
	}
	for _, id := range ids {
		if _, live, _ := store.Consume(ctx, id); live {
			t.Fatalf("token %s must be revoked", id)
		}
	}

	// Other account's token is untouched.
	if _, live, _ := store.Consume(ctx, otherID); !live {
		t.Fatalf("other account token must survive revoke-all")
	}
}
