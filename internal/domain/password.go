package domain

import (
	"fmt"
	"strings"
	"unicode"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128
)

// commonWeakPasswords is a small blocklist of passwords seen in every breach
// corpus. A production deployment would back this with a compromised-password
// database; the list here catches the worst offenders cheaply.
var commonWeakPasswords = map[string]struct{}{
	"password":    {},
	"123456":      {},
	"123456789":   {},
	"qwerty":      {},
	"abc123":      {},
	"password123": {},
	"admin":       {},
	"letmein":     {},
	"welcome":     {},
	"monkey":      {},
	"1234567890":  {},
	"password1":   {},
	"123123":      {},
	"admin123":    {},
}

// ValidatePassword enforces the registration password policy: length bounds,
// at least one letter and one digit, and not a known weak password.
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("%w: password is required", ErrWeakPassword)
	}
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrWeakPassword, minPasswordLength)
	}
	if len(password) > maxPasswordLength {
		return fmt.Errorf("%w: password must be at most %d characters", ErrWeakPassword, maxPasswordLength)
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter {
		return fmt.Errorf("%w: password must contain at least one letter", ErrWeakPassword)
	}
	if !hasDigit {
		return fmt.Errorf("%w: password must contain at least one digit", ErrWeakPassword)
	}

	if _, banned := commonWeakPasswords[strings.ToLower(password)]; banned {
		return fmt.Errorf("%w: password is too common", ErrWeakPassword)
	}
	return nil
}
