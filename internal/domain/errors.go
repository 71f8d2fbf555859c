package domain

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not exist.
	// Keeping this sentinel in domain allows adapters to map it consistently to 404.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidCredentials hides whether email or password failed.
	// The reason is to prevent account-enumeration side channels.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailExists signals a duplicate registration. The UNIQUE constraint on
	// accounts.email is the authoritative source when two registrations race.
	ErrEmailExists = errors.New("email address is already registered")
	// ErrWeakPassword is returned when a password fails the strength policy.
	ErrWeakPassword = errors.New("password does not meet strength requirements")
	// ErrAccountNotActive is returned for PENDING/BANNED/CLOSED accounts.
	// It is a distinct failure mode from bad credentials and does not feed the
	// login rate limiter.
	ErrAccountNotActive = errors.New("account is not active")
	// ErrRateLimited signals the sliding-window login limit was hit.
	ErrRateLimited     = errors.New("too many login attempts")
	ErrTokenInvalid    = errors.New("token is invalid")
	ErrTokenExpired    = errors.New("token expired")
	ErrSessionNotFound = errors.New("session not found or expired")
	ErrInvalidInput    = errors.New("invalid input")
	// ErrStoreUnavailable wraps credential-store infrastructure failures.
	// Callers must surface it as a transient error, never as InvalidCredentials.
	ErrStoreUnavailable = errors.New("backing store unavailable")
)
