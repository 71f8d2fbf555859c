package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madcrow/auth-service/internal/adapters/security"
	"github.com/madcrow/auth-service/internal/domain"
	"github.com/madcrow/auth-service/internal/ports"
)

type fakeAccounts struct {
	mu      sync.Mutex
	byEmail map[string]domain.Account
	byID    map[uuid.UUID]domain.Account
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{
		byEmail: map[string]domain.Account{},
		byID:    map[uuid.UUID]domain.Account{},
	}
}

func (f *fakeAccounts) Create(_ context.Context, params ports.CreateAccountParams) (domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.byEmail[params.Email]; exists {
		return domain.Account{}, domain.ErrEmailExists
	}
	account := domain.Account{
		ID:           uuid.New(),
		Name:         params.Name,
		Email:        params.Email,
		PasswordHash: params.PasswordHash,
		PasswordSalt: params.PasswordSalt,
		Status:       params.Status,
		IsAdmin:      params.IsAdmin,
		CreatedAt:    params.RegisteredAt,
		UpdatedAt:    params.RegisteredAt,
	}
	f.byEmail[account.Email] = account
	f.byID[account.ID] = account
	return account, nil
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.byEmail[email]
	if !ok || account.IsDeleted {
		return domain.Account{}, domain.ErrNotFound
	}
	return account, nil
}

func (f *fakeAccounts) GetByID(_ context.Context, accountID uuid.UUID) (domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.byID[accountID]
	if !ok || account.IsDeleted {
		return domain.Account{}, domain.ErrNotFound
	}
	return account, nil
}

func (f *fakeAccounts) UpdateLastLogin(_ context.Context, accountID uuid.UUID, at time.Time, ip string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.byID[accountID]
	if !ok {
		return domain.ErrNotFound
	}
	account.LastLoginAt = &at
	account.LastLoginIP = ip
	f.byID[accountID] = account
	f.byEmail[account.Email] = account
	return nil
}

func (f *fakeAccounts) setStatus(accountID uuid.UUID, status domain.AccountStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account := f.byID[accountID]
	account.Status = status
	f.byID[accountID] = account
	f.byEmail[account.Email] = account
}

type fakeAttempts struct {
	mu   sync.Mutex
	rows []domain.LoginAttempt
}

func (f *fakeAttempts) Insert(_ context.Context, attempt domain.LoginAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, attempt)
	return nil
}

func (f *fakeAttempts) ListByAccount(_ context.Context, accountID uuid.UUID, limit, offset int, since *time.Time, status string) ([]domain.LoginAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.LoginAttempt
	for _, row := range f.rows {
		if row.AccountID == nil || *row.AccountID != accountID {
			continue
		}
		if status != "" && row.Status != status {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (f *fakeAttempts) last() (domain.LoginAttempt, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.rows) == 0 {
		return domain.LoginAttempt{}, false
	}
	return f.rows[len(f.rows)-1], true
}

type fakeOutbox struct {
	mu     sync.Mutex
	events []ports.OutboxEvent
	err    error
}

func (f *fakeOutbox) Enqueue(_ context.Context, event ports.OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeOutbox) FetchUnpublished(context.Context, int) ([]ports.OutboxRecord, error) {
	return nil, nil
}

func (f *fakeOutbox) MarkPublished(context.Context, uuid.UUID, time.Time) error { return nil }

func (f *fakeOutbox) MarkFailed(context.Context, uuid.UUID, string, time.Time) error { return nil }

func (f *fakeOutbox) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	types := make([]string, 0, len(f.events))
	for _, e := range f.events {
		types = append(types, e.EventType)
	}
	return types
}

type fakeSessions struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: map[string]domain.Session{}}
}

func (f *fakeSessions) Create(_ context.Context, params ports.SessionCreateParams) (domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
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
		ExpiresAt:      now.Add(24 * time.Hour),
	}
	f.sessions[session.SessionID] = session
	return session, nil
}

func (f *fakeSessions) Validate(_ context.Context, sessionID string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return &session, nil
}

func (f *fakeSessions) Delete(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, sessionID)
	return nil
}

func (f *fakeSessions) DeleteAll(_ context.Context, accountID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for id, session := range f.sessions {
		if session.UserID == accountID {
			delete(f.sessions, id)
			count++
		}
	}
	return count, nil
}

type fakeRefreshStore struct {
	mu     sync.Mutex
	tokens map[string]uuid.UUID
}

func newFakeRefreshStore() *fakeRefreshStore {
	return &fakeRefreshStore{tokens: map[string]uuid.UUID{}}
}

func (f *fakeRefreshStore) Register(_ context.Context, tokenID string, accountID uuid.UUID, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[tokenID] = accountID
	return nil
}

func (f *fakeRefreshStore) Consume(_ context.Context, tokenID string) (uuid.UUID, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	accountID, ok := f.tokens[tokenID]
	if !ok {
		return uuid.Nil, false, nil
	}
	delete(f.tokens, tokenID)
	return accountID, true, nil
}

func (f *fakeRefreshStore) RevokeAll(_ context.Context, accountID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, owner := range f.tokens {
		if owner == accountID {
			delete(f.tokens, id)
		}
	}
	return nil
}

type fakeLimiter struct {
	mu       sync.Mutex
	failures map[string]int
	max      int
	resets   int
}

func newFakeLimiter(max int) *fakeLimiter {
	return &fakeLimiter{failures: map[string]int{}, max: max}
}

func (f *fakeLimiter) IsLimited(_ context.Context, identifier string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failures[identifier] >= f.max
}

func (f *fakeLimiter) RecordFailure(_ context.Context, identifier string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[identifier]++
}

func (f *fakeLimiter) Reset(_ context.Context, identifier string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.failures, identifier)
	f.resets++
}

func (f *fakeLimiter) Status(_ context.Context, identifier string) ports.RateLimitStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := f.failures[identifier]
	remaining := f.max - count
	if remaining < 0 {
		remaining = 0
	}
	return ports.RateLimitStatus{
		IsLimited:         count >= f.max,
		RemainingAttempts: remaining,
		MaxAttempts:       f.max,
		TimeWindow:        900,
		TimeUntilReset:    60,
	}
}

func (f *fakeLimiter) count(identifier string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failures[identifier]
}

type fixture struct {
	service  *Service
	accounts *fakeAccounts
	attempts *fakeAttempts
	outbox   *fakeOutbox
	sessions *fakeSessions
	refresh  *fakeRefreshStore
	limiter  *fakeLimiter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	tokens, err := security.NewJWTTokenService("test-secret", time.Hour, 30*24*time.Hour)
	require.NoError(t, err)

	f := &fixture{
		accounts: newFakeAccounts(),
		attempts: &fakeAttempts{},
		outbox:   &fakeOutbox{},
		sessions: newFakeSessions(),
		refresh:  newFakeRefreshStore(),
		limiter:  newFakeLimiter(5),
	}
	f.service = NewService(Dependencies{
		Accounts:      f.accounts,
		LoginAttempts: f.attempts,
		Outbox:        f.outbox,
		Sessions:      f.sessions,
		RefreshTokens: f.refresh,
		RateLimiter:   f.limiter,
		Hasher:        security.NewArgon2Hasher(1, 16*1024, 2),
		Tokens:        tokens,
	})
	return f
}

func (f *fixture) register(t *testing.T, email, password string) AuthResponse {
	t.Helper()
	res, err := f.service.Register(context.Background(), RegisterRequest{
		Name:     "Test User",
		Email:    email,
		Password: password,
	})
	require.NoError(t, err)
	return res
}

func TestRegisterIssuesTokensAndSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	res := f.register(t, "user@example.com", "CorrectHorse7")

	assert.NotEqual(t, uuid.Nil, res.User.ID)
	assert.Equal(t, "user@example.com", res.User.Email)
	assert.Equal(t, string(domain.StatusActive), res.User.Status)
	assert.NotEmpty(t, res.Tokens.AccessToken)
	assert.NotEmpty(t, res.Tokens.RefreshToken)
	assert.NotEmpty(t, res.SessionID)
	assert.Contains(t, f.outbox.eventTypes(), "auth.account.registered")

	// Stored credentials are never the plaintext.
	account, err := f.accounts.GetByEmail(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "CorrectHorse7", account.PasswordHash)
	assert.NotEmpty(t, account.PasswordSalt)
}

func TestRegisterNormalizesEmailAndRejectsDuplicates(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	res := f.register(t, "  User@Example.COM ", "CorrectHorse7")
	assert.Equal(t, "user@example.com", res.User.Email)

	_, err := f.service.Register(context.Background(), RegisterRequest{
		Name:     "Other",
		Email:    "user@example.com",
		Password: "OtherHorse8",
	})
	assert.ErrorIs(t, err, domain.ErrEmailExists)
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.service.Register(context.Background(), RegisterRequest{
		Name:     "Test User",
		Email:    "user@example.com",
		Password: "password123",
	})
	assert.ErrorIs(t, err, domain.ErrWeakPassword)
}

func TestLoginSuccessResetsLimiterAndRecordsAudit(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.register(t, "user@example.com", "CorrectHorse7")
	ctx := context.Background()

	// Prior failures are wiped by a successful login.
	f.limiter.RecordFailure(ctx, "user@example.com")
	f.limiter.RecordFailure(ctx, "user@example.com")

	res, err := f.service.Login(ctx, LoginRequest{
		Email:     "user@example.com",
		Password:  "CorrectHorse7",
		IPAddress: "203.0.113.9",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Tokens.AccessToken)
	assert.Equal(t, 0, f.limiter.count("user@example.com"))
	require.NotNil(t, res.User.LastLoginAt)

	attempt, ok := f.attempts.last()
	require.True(t, ok)
	assert.Equal(t, "SUCCESS", attempt.Status)
	assert.Equal(t, "203.0.113.9", attempt.IPAddress)
	assert.Contains(t, f.outbox.eventTypes(), "auth.login.succeeded")
}

func TestLoginUnknownEmailCountsAgainstLimiter(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.service.Login(context.Background(), LoginRequest{
		Email:    "ghost@example.com",
		Password: "CorrectHorse7",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.Equal(t, 1, f.limiter.count("ghost@example.com"))
}

func TestLoginWrongPasswordCountsAgainstLimiter(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.register(t, "user@example.com", "CorrectHorse7")

	_, err := f.service.Login(context.Background(), LoginRequest{
		Email:    "user@example.com",
		Password: "WrongHorse8",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.Equal(t, 1, f.limiter.count("user@example.com"))

	attempt, ok := f.attempts.last()
	require.True(t, ok)
	assert.Equal(t, "FAILED", attempt.Status)
	assert.Equal(t, "INVALID_PASSWORD", attempt.FailureReason)
}

func TestLoginInactiveAccountDoesNotCountAgainstLimiter(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	res := f.register(t, "user@example.com", "CorrectHorse7")
	f.accounts.setStatus(res.User.ID, domain.StatusBanned)

	_, err := f.service.Login(context.Background(), LoginRequest{
		Email:    "user@example.com",
		Password: "CorrectHorse7",
	})
	assert.ErrorIs(t, err, domain.ErrAccountNotActive)
	assert.Equal(t, 0, f.limiter.count("user@example.com"))

	attempt, ok := f.attempts.last()
	require.True(t, ok)
	assert.Equal(t, "ACCOUNT_NOT_ACTIVE", attempt.FailureReason)
}

func TestLoginRateLimitedBeforeLookup(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		f.limiter.RecordFailure(ctx, "user@example.com")
	}

	_, err := f.service.Login(ctx, LoginRequest{
		Email:    "user@example.com",
		Password: "CorrectHorse7",
	})
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	// A limited request must not add another failure.
	assert.Equal(t, 5, f.limiter.count("user@example.com"))
}

func TestRefreshRotatesAndRejectsReplay(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	res := f.register(t, "user@example.com", "CorrectHorse7")
	ctx := context.Background()

	pair, err := f.service.Refresh(ctx, res.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEqual(t, res.Tokens.RefreshToken, pair.RefreshToken)

	// The original refresh token was consumed and must not work again.
	_, err = f.service.Refresh(ctx, res.Tokens.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	// The rotated token still works.
	_, err = f.service.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	res := f.register(t, "user@example.com", "CorrectHorse7")

	_, err := f.service.Refresh(context.Background(), res.Tokens.AccessToken)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestRefreshRejectsInactiveAccount(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	res := f.register(t, "user@example.com", "CorrectHorse7")
	f.accounts.setStatus(res.User.ID, domain.StatusClosed)

	_, err := f.service.Refresh(context.Background(), res.Tokens.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrAccountNotActive)
}

func TestLogoutIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	res := f.register(t, "user@example.com", "CorrectHorse7")
	ctx := context.Background()
	claims := ports.TokenClaims{Subject: res.User.ID.String()}

	require.NoError(t, f.service.Logout(ctx, claims, res.SessionID))
	require.NoError(t, f.service.Logout(ctx, claims, res.SessionID))

	_, err := f.service.ValidateSession(ctx, claims, res.SessionID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestLogoutWithoutSessionRevokesRefreshTokens(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	res := f.register(t, "user@example.com", "CorrectHorse7")
	ctx := context.Background()
	claims := ports.TokenClaims{Subject: res.User.ID.String()}

	require.NoError(t, f.service.Logout(ctx, claims, ""))

	// The bearer's refresh chain is dead, but the session itself survives
	// a bare logout.
	_, err := f.service.Refresh(ctx, res.Tokens.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	result, err := f.service.ValidateSession(ctx, claims, res.SessionID)
	require.NoError(t, err)
	assert.True(t, result.Valid)
}

func TestValidateSessionReturnsUserAndSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	res := f.register(t, "user@example.com", "CorrectHorse7")
	other := f.register(t, "other@example.com", "CorrectHorse7")
	ctx := context.Background()
	claims := ports.TokenClaims{Subject: res.User.ID.String()}

	// Bearer alone is enough; no session is attached.
	result, err := f.service.ValidateSession(ctx, claims, "")
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, res.User.ID, result.User.ID)
	assert.Nil(t, result.Session)

	// Naming a session attaches it.
	result, err = f.service.ValidateSession(ctx, claims, res.SessionID)
	require.NoError(t, err)
	require.NotNil(t, result.Session)
	assert.Equal(t, res.User.ID, result.Session.UserID)

	// Another account's session is not visible to this bearer.
	_, err = f.service.ValidateSession(ctx, claims, other.SessionID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestUserFromClaimsRejectsMalformedSubject(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.service.UserFromClaims(context.Background(), ports.TokenClaims{Subject: "not-a-uuid"})
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestRegisterSucceedsWhenOutboxEnqueueFails(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.outbox.err = errors.New("insert failed")

	res := f.register(t, "user@example.com", "CorrectHorse7")
	assert.NotEmpty(t, res.Tokens.AccessToken)
	assert.Empty(t, f.outbox.eventTypes())
}

func TestServiceClockAdvances(t *testing.T) {
	t.Parallel()

	svc := NewService(Dependencies{})
	first := svc.nowFn()
	time.Sleep(5 * time.Millisecond)
	second := svc.nowFn()
	assert.True(t, second.After(first), "service clock must advance between calls")

	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	svc.WithNow(func() time.Time { return fixed })
	assert.Equal(t, fixed, svc.nowFn())
}

func TestLogoutAllRevokesSessionsAndRefreshTokens(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	res := f.register(t, "user@example.com", "CorrectHorse7")
	ctx := context.Background()

	// Open two more sessions via login.
	for i := 0; i < 2; i++ {
		_, err := f.service.Login(ctx, LoginRequest{
			Email:    "user@example.com",
			Password: "CorrectHorse7",
		})
		require.NoError(t, err)
	}

	out, err := f.service.LogoutAll(ctx, res.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, 3, out.SessionsRevoked)

	// Every refresh token for the account is dead.
	_, err = f.service.Refresh(ctx, res.Tokens.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestCurrentUserReflectsLiveStatus(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	res := f.register(t, "user@example.com", "CorrectHorse7")
	ctx := context.Background()

	user, err := f.service.CurrentUser(ctx, res.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, user.ID)

	f.accounts.setStatus(res.User.ID, domain.StatusBanned)
	user, err = f.service.CurrentUser(ctx, res.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusBanned), user.Status)
}

func TestListLoginHistoryFiltersByAccount(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	res := f.register(t, "user@example.com", "CorrectHorse7")
	f.register(t, "other@example.com", "CorrectHorse7")
	ctx := context.Background()

	_, err := f.service.Login(ctx, LoginRequest{Email: "user@example.com", Password: "WrongHorse8"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = f.service.Login(ctx, LoginRequest{Email: "user@example.com", Password: "CorrectHorse7"})
	require.NoError(t, err)
	_, err = f.service.Login(ctx, LoginRequest{Email: "other@example.com", Password: "CorrectHorse7"})
	require.NoError(t, err)

	items, err := f.service.ListLoginHistory(ctx, res.Tokens.AccessToken, LoginHistoryQuery{})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	failed, err := f.service.ListLoginHistory(ctx, res.Tokens.AccessToken, LoginHistoryQuery{Status: "FAILED"})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "INVALID_PASSWORD", failed[0].FailureReason)
}
