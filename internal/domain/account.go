package domain

import (
	"time"

	"github.com/google/uuid"
)

// AccountStatus is the lifecycle state of an account.
// Only ACTIVE accounts may complete a login; the others are terminal or
// awaiting an external activation flow.
type AccountStatus string

const (
	StatusPending AccountStatus = "PENDING"
	StatusActive  AccountStatus = "ACTIVE"
	StatusBanned  AccountStatus = "BANNED"
	StatusClosed  AccountStatus = "CLOSED"
)

// Account is the canonical authentication identity for Madcrow.
// Password hash and salt are always set together; the plaintext never
// leaves the hasher.
type Account struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	PasswordSalt string
	Status       AccountStatus
	IsAdmin      bool
	IsDeleted    bool
	LastLoginAt  *time.Time
	LastLoginIP  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CanLogin reports whether the account is in a state that permits login.
func (a Account) CanLogin() bool {
	return a.Status == StatusActive && !a.IsDeleted
}

// HasPassword reports whether credentials were ever set for this account.
func (a Account) HasPassword() bool {
	return a.PasswordHash != "" && a.PasswordSalt != ""
}

// Session is the login session record kept in the key-value store.
// It mirrors account fields needed by /auth/me so validation avoids a
// database round trip.
type Session struct {
	SessionID      string        `json:"session_id"`
	UserID         uuid.UUID     `json:"user_id"`
	Email          string        `json:"email"`
	Name           string        `json:"name"`
	IsAdmin        bool          `json:"is_admin"`
	Status         AccountStatus `json:"status"`
	RememberMe     bool          `json:"remember_me"`
	LoginIP        string        `json:"login_ip,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	LastActivityAt time.Time     `json:"last_activity_at"`
	ExpiresAt      time.Time     `json:"expires_at"`
}

// LoginAttempt records authentication outcomes for the audit trail.
type LoginAttempt struct {
	ID            int64
	AccountID     *uuid.UUID
	Email         string
	AttemptAt     time.Time
	IPAddress     string
	Status        string
	FailureReason string
}

// TokenPair is the credential bundle returned by registration, login and
// refresh. Tokens are never mutated after issuance.
type TokenPair struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int64  `json:"expires_in"`
	RefreshExpiresIn int64  `json:"refresh_expires_in"`
}
