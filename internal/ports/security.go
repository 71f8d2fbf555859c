package ports

import (
	"time"

	"github.com/madcrow/auth-service/internal/domain"
)

// PasswordHasher computes and verifies salted password digests.
// Verify must never fail with an error on malformed input; a bad salt or
// digest is simply a non-match.
type PasswordHasher interface {
	Hash(password string) (digest, salt string, err error)
	Verify(password, digest, salt string) bool
}

// TokenType distinguishes access tokens from refresh tokens so a refresh
// token can never be presented as an access token.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// TokenClaims is the validated payload of a signed token.
type TokenClaims struct {
	Subject   string
	Email     string
	Name      string
	IsAdmin   bool
	TokenID   string
	TokenType TokenType
	IssuedAt  int64
	ExpiresAt int64
}

// TokenService issues and validates signed, time-limited tokens.
// IssuePair also returns the refresh token's id so callers can register it
// in the single-use refresh registry. Validate returns domain.ErrTokenExpired
// for expired tokens and domain.ErrTokenInvalid for anything else that fails
// verification, including a token-type mismatch.
type TokenService interface {
	IssuePair(account domain.Account) (domain.TokenPair, string, error)
	Validate(token string, expected TokenType) (TokenClaims, error)
	RefreshTTL() time.Duration
}
