package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/madcrow/auth-service/internal/domain"
	"github.com/madcrow/auth-service/internal/ports"
)

// Service orchestrates the authentication use cases. All state lives in the
// injected ports; the service itself is safe for concurrent use.
type Service struct {
	cfg           Config
	accounts      ports.AccountRepository
	loginAttempts ports.LoginAttemptRepository
	outbox        ports.OutboxRepository
	sessions      ports.SessionStore
	refreshTokens ports.RefreshTokenStore
	rateLimiter   ports.LoginRateLimiter
	hasher        ports.PasswordHasher
	tokens        ports.TokenService
	nowFn         func() time.Time
}

type Dependencies struct {
	Config        Config
	Accounts      ports.AccountRepository
	LoginAttempts ports.LoginAttemptRepository
	Outbox        ports.OutboxRepository
	Sessions      ports.SessionStore
	RefreshTokens ports.RefreshTokenStore
	RateLimiter   ports.LoginRateLimiter
	Hasher        ports.PasswordHasher
	Tokens        ports.TokenService
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.InitialStatus == "" {
		cfg.InitialStatus = domain.StatusActive
	}
	return &Service{
		cfg:           cfg,
		accounts:      deps.Accounts,
		loginAttempts: deps.LoginAttempts,
		outbox:        deps.Outbox,
		sessions:      deps.Sessions,
		refreshTokens: deps.RefreshTokens,
		rateLimiter:   deps.RateLimiter,
		hasher:        deps.Hasher,
		tokens:        deps.Tokens,
		nowFn:         func() time.Time { return time.Now().UTC() },
	}
}

// WithNow overrides the clock for tests.
func (s *Service) WithNow(nowFn func() time.Time) *Service {
	s.nowFn = nowFn
	return s
}

// Register creates an account, opens a session and issues a token pair.
// A duplicate email fails with ErrEmailExists before any credentials are
// stored.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (AuthResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return AuthResponse{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return AuthResponse{}, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if err := domain.ValidatePassword(req.Password); err != nil {
		return AuthResponse{}, err
	}

	hash, salt, err := s.hasher.Hash(req.Password)
	if err != nil {
		return AuthResponse{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.nowFn()
	account, err := s.accounts.Create(ctx, ports.CreateAccountParams{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		PasswordSalt: salt,
		Status:       s.cfg.InitialStatus,
		RegisteredAt: now,
	})
	if err != nil {
		return AuthResponse{}, err
	}

	payload, _ := json.Marshal(map[string]any{
		"account_id":    account.ID.String(),
		"email":         account.Email,
		"registered_at": now,
	})
	s.enqueueEvent(ctx, "auth.account.registered", account.ID.String(), payload, now)

	return s.openSession(ctx, account, req.RememberMe, req.IPAddress)
}

// Login authenticates credentials. The order of checks is significant: the
// rate limiter runs before any account lookup so a limited identifier leaks
// nothing, and an inactive account never counts against the limiter.
func (s *Service) Login(ctx context.Context, req LoginRequest) (AuthResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return AuthResponse{}, err
	}

	if s.rateLimiter.IsLimited(ctx, email) {
		return AuthResponse{}, domain.ErrRateLimited
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.rateLimiter.RecordFailure(ctx, email)
			s.recordAttempt(ctx, nil, email, req.IPAddress, "FAILED", "ACCOUNT_NOT_FOUND")
			return AuthResponse{}, domain.ErrInvalidCredentials
		}
		return AuthResponse{}, err
	}

	if !account.CanLogin() {
		s.recordAttempt(ctx, &account.ID, email, req.IPAddress, "FAILED", "ACCOUNT_NOT_ACTIVE")
		return AuthResponse{}, fmt.Errorf("%w: account status %s", domain.ErrAccountNotActive, account.Status)
	}

	if !account.HasPassword() || !s.hasher.Verify(req.Password, account.PasswordHash, account.PasswordSalt) {
		s.rateLimiter.RecordFailure(ctx, email)
		s.recordAttempt(ctx, &account.ID, email, req.IPAddress, "FAILED", "INVALID_PASSWORD")
		return AuthResponse{}, domain.ErrInvalidCredentials
	}

	s.rateLimiter.Reset(ctx, email)

	now := s.nowFn()
	if err := s.accounts.UpdateLastLogin(ctx, account.ID, now, req.IPAddress); err == nil {
		account.LastLoginAt = &now
		account.LastLoginIP = req.IPAddress
	}
	s.recordAttempt(ctx, &account.ID, email, req.IPAddress, "SUCCESS", "")

	payload, _ := json.Marshal(map[string]any{
		"account_id": account.ID.String(),
		"login_at":   now,
		"ip_address": req.IPAddress,
	})
	s.enqueueEvent(ctx, "auth.login.succeeded", account.ID.String(), payload, now)

	return s.openSession(ctx, account, req.RememberMe, req.IPAddress)
}

// Refresh exchanges a live refresh token for a new pair. The old token's id
// is consumed first, so a replayed token fails even if the new pair was
// never delivered.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	claims, err := s.tokens.Validate(refreshToken, ports.TokenTypeRefresh)
	if err != nil {
		return domain.TokenPair{}, err
	}

	accountID, live, err := s.refreshTokens.Consume(ctx, claims.TokenID)
	if err != nil {
		return domain.TokenPair{}, err
	}
	if !live || accountID.String() != claims.Subject {
		return domain.TokenPair{}, domain.ErrTokenInvalid
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.TokenPair{}, domain.ErrTokenInvalid
		}
		return domain.TokenPair{}, err
	}
	if !account.CanLogin() {
		return domain.TokenPair{}, fmt.Errorf("%w: account status %s", domain.ErrAccountNotActive, account.Status)
	}

	pair, refreshID, err := s.tokens.IssuePair(account)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("issue token pair: %w", err)
	}
	if err := s.refreshTokens.Register(ctx, refreshID, account.ID, s.tokens.RefreshTTL()); err != nil {
		return domain.TokenPair{}, err
	}
	return pair, nil
}

// Logout ends the bearer's session. When an explicit session id is named
// only that session is removed; otherwise the caller's refresh tokens are
// revoked so the bearer's refresh chain ends here. Logging out a session
// that is already gone succeeds.
func (s *Service) Logout(ctx context.Context, claims ports.TokenClaims, sessionID string) error {
	accountID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return domain.ErrTokenInvalid
	}
	if sid := strings.TrimSpace(sessionID); sid != "" {
		return s.sessions.Delete(ctx, sid)
	}
	return s.refreshTokens.RevokeAll(ctx, accountID)
}

// LogoutAll revokes every session and refresh token for the token's account
// and reports how many sessions were removed.
func (s *Service) LogoutAll(ctx context.Context, accessToken string) (LogoutAllResponse, error) {
	claims, err := s.tokens.Validate(accessToken, ports.TokenTypeAccess)
	if err != nil {
		return LogoutAllResponse{}, err
	}
	accountID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return LogoutAllResponse{}, domain.ErrTokenInvalid
	}

	count, err := s.sessions.DeleteAll(ctx, accountID)
	if err != nil {
		return LogoutAllResponse{}, err
	}
	_ = s.refreshTokens.RevokeAll(ctx, accountID)

	now := s.nowFn()
	payload, _ := json.Marshal(map[string]any{
		"account_id":       accountID.String(),
		"sessions_revoked": count,
		"revoked_at":       now,
	})
	s.enqueueEvent(ctx, "auth.logout.all", accountID.String(), payload, now)

	return LogoutAllResponse{SessionsRevoked: count}, nil
}

// ValidateAccessToken verifies a bearer token for middleware use.
func (s *Service) ValidateAccessToken(token string) (ports.TokenClaims, error) {
	return s.tokens.Validate(token, ports.TokenTypeAccess)
}

// ValidateSession resolves the bearer to the live user and, when a session
// id accompanies the request, loads that session and refreshes its activity
// timestamp. A session owned by a different account reads as not found.
func (s *Service) ValidateSession(ctx context.Context, claims ports.TokenClaims, sessionID string) (SessionValidation, error) {
	user, err := s.UserFromClaims(ctx, claims)
	if err != nil {
		return SessionValidation{}, err
	}

	result := SessionValidation{Valid: true, User: user}
	if sid := strings.TrimSpace(sessionID); sid != "" {
		session, err := s.sessions.Validate(ctx, sid)
		if err != nil {
			return SessionValidation{}, err
		}
		if session.UserID != user.ID {
			return SessionValidation{}, domain.ErrSessionNotFound
		}
		result.Session = session
	}
	return result, nil
}

// UserFromClaims resolves validated claims to the live account record, so a
// status change after issuance is reflected immediately.
func (s *Service) UserFromClaims(ctx context.Context, claims ports.TokenClaims) (UserInfo, error) {
	accountID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return UserInfo{}, domain.ErrTokenInvalid
	}
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return UserInfo{}, domain.ErrTokenInvalid
		}
		return UserInfo{}, err
	}
	return toUserInfo(account), nil
}

// CurrentUser verifies an access token and resolves it via UserFromClaims.
func (s *Service) CurrentUser(ctx context.Context, accessToken string) (UserInfo, error) {
	claims, err := s.tokens.Validate(accessToken, ports.TokenTypeAccess)
	if err != nil {
		return UserInfo{}, err
	}
	return s.UserFromClaims(ctx, claims)
}

// LoginRateLimitStatus exposes the current window state for an identifier.
// Handlers use it to shape the 429 response body.
func (s *Service) LoginRateLimitStatus(ctx context.Context, email string) ports.RateLimitStatus {
	normalized, err := normalizeEmail(email)
	if err != nil {
		normalized = strings.ToLower(strings.TrimSpace(email))
	}
	return s.rateLimiter.Status(ctx, normalized)
}

// ListLoginHistory returns the audit trail for the token's account.
func (s *Service) ListLoginHistory(ctx context.Context, accessToken string, q LoginHistoryQuery) ([]LoginHistoryItem, error) {
	claims, err := s.tokens.Validate(accessToken, ports.TokenTypeAccess)
	if err != nil {
		return nil, err
	}
	accountID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}

	limit := q.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	attempts, err := s.loginAttempts.ListByAccount(ctx, accountID, limit, offset, q.Since, q.Status)
	if err != nil {
		return nil, err
	}
	items := make([]LoginHistoryItem, 0, len(attempts))
	for _, attempt := range attempts {
		items = append(items, LoginHistoryItem{
			AttemptAt:     attempt.AttemptAt,
			IPAddress:     attempt.IPAddress,
			Status:        attempt.Status,
			FailureReason: attempt.FailureReason,
		})
	}
	return items, nil
}

// openSession creates the session, signs the pair and registers the refresh
// token id. Shared by register and login.
func (s *Service) openSession(ctx context.Context, account domain.Account, rememberMe bool, ip string) (AuthResponse, error) {
	session, err := s.sessions.Create(ctx, ports.SessionCreateParams{
		Account:    account,
		RememberMe: rememberMe,
		LoginIP:    ip,
	})
	if err != nil {
		return AuthResponse{}, fmt.Errorf("create session: %w", err)
	}

	pair, refreshID, err := s.tokens.IssuePair(account)
	if err != nil {
		return AuthResponse{}, fmt.Errorf("issue token pair: %w", err)
	}
	if err := s.refreshTokens.Register(ctx, refreshID, account.ID, s.tokens.RefreshTTL()); err != nil {
		return AuthResponse{}, err
	}

	return AuthResponse{
		User:      toUserInfo(account),
		Tokens:    pair,
		SessionID: session.SessionID,
	}, nil
}

// enqueueEvent is a best-effort outbox insert. The account write and the
// event insert are separate statements, so a failed enqueue is logged and
// never fails the surrounding operation.
func (s *Service) enqueueEvent(ctx context.Context, eventType, partitionKey string, payload []byte, at time.Time) {
	err := s.outbox.Enqueue(ctx, ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    eventType,
		PartitionKey: partitionKey,
		Payload:      payload,
		OccurredAt:   at,
	})
	if err != nil {
		slog.Default().WarnContext(ctx, "outbox enqueue failed",
			slog.String("operation", "outbox.enqueue"),
			slog.String("event_type", eventType),
			slog.String("error", err.Error()))
	}
}

func (s *Service) recordAttempt(ctx context.Context, accountID *uuid.UUID, email, ip, status, reason string) {
	_ = s.loginAttempts.Insert(ctx, domain.LoginAttempt{
		AccountID:     accountID,
		Email:         email,
		AttemptAt:     s.nowFn(),
		IPAddress:     ip,
		Status:        status,
		FailureReason: reason,
	})
}

func normalizeEmail(email string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(email))
	if trimmed == "" {
		return "", fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(trimmed); err != nil {
		return "", fmt.Errorf("%w: invalid email", domain.ErrInvalidInput)
	}
	return trimmed, nil
}
