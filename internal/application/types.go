package application

import (
	"time"

	"github.com/google/uuid"

	"github.com/madcrow/auth-service/internal/domain"
)

type Config struct {
	// InitialStatus is assigned to newly registered accounts.
	InitialStatus domain.AccountStatus
}

type RegisterRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
	IPAddress  string `json:"-"`
}

type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
	IPAddress  string `json:"-"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// UserInfo is the account view returned alongside tokens and from /auth/me.
type UserInfo struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	IsAdmin     bool       `json:"is_admin"`
	Status      string     `json:"status"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User      UserInfo         `json:"user"`
	Tokens    domain.TokenPair `json:"tokens"`
	SessionID string           `json:"session_id"`
}

// SessionValidation is returned by the session validation endpoint. Session
// is only present when the caller named an explicit session id.
type SessionValidation struct {
	Valid   bool            `json:"valid"`
	User    UserInfo        `json:"user"`
	Session *domain.Session `json:"session,omitempty"`
}

type LogoutAllResponse struct {
	SessionsRevoked int `json:"sessions_revoked"`
}

type LoginHistoryQuery struct {
	Limit  int
	Offset int
	Since  *time.Time
	Status string
}

type LoginHistoryItem struct {
	AttemptAt     time.Time `json:"attempt_at"`
	IPAddress     string    `json:"ip_address,omitempty"`
	Status        string    `json:"status"`
	FailureReason string    `json:"failure_reason,omitempty"`
}

func toUserInfo(account domain.Account) UserInfo {
	return UserInfo{
		ID:          account.ID,
		Name:        account.Name,
		Email:       account.Email,
		IsAdmin:     account.IsAdmin,
		Status:      string(account.Status),
		LastLoginAt: account.LastLoginAt,
		CreatedAt:   account.CreatedAt,
	}
}
