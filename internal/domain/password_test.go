package domain

import (
	"errors"
	"testing"
)

func TestValidatePassword(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		password  string
		wantError bool
	}{
		{name: "valid", password: "CorrectHorse7", wantError: false},
		{name: "minimum length", password: "abcdefg1", wantError: false},
		{name: "too short", password: "Ab1", wantError: true},
		{name: "no digit", password: "justletters", wantError: true},
		{name: "no letter", password: "1234567890", wantError: true},
		{name: "common password", password: "password123", wantError: true},
		{name: "common password uppercased", password: "Password123", wantError: true},
		{name: "empty", password: "", wantError: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := ValidatePassword(tc.password)
			if tc.wantError && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tc.wantError && err != nil {
				t.Fatalf("expected nil error, got %v", err)
			}
			if tc.wantError && !errors.Is(err, ErrWeakPassword) {
				t.Fatalf("expected ErrWeakPassword, got %v", err)
			}
		})
	}
}

func TestValidatePasswordMaxLength(t *testing.T) {
	t.Parallel()

	long := make([]byte, 129)
	for i := range long {
		long[i] = 'a'
	}
	long[0] = '1'
	if err := ValidatePassword(string(long)); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword for over-long password, got %v", err)
	}
}

func TestAccountCanLogin(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		account Account
		want    bool
	}{
		{name: "active", account: Account{Status: StatusActive}, want: true},
		{name: "pending", account: Account{Status: StatusPending}, want: false},
		{name: "banned", account: Account{Status: StatusBanned}, want: false},
		{name: "closed", account: Account{Status: StatusClosed}, want: false},
		{name: "active but deleted", account: Account{Status: StatusActive, IsDeleted: true}, want: false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.account.CanLogin(); got != tc.want {
				t.Fatalf("CanLogin() = %v, want %v", got, tc.want)
			}
		})
	}
}
