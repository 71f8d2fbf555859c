package postgres

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/madcrow/auth-service/internal/domain"
)

func toDomainAccount(rec accountModel) domain.Account {
	return domain.Account{
		ID:           rec.AccountID,
		Name:         rec.Name,
		Email:        rec.Email,
		PasswordHash: rec.PasswordHash,
		PasswordSalt: rec.PasswordSalt,
		Status:       domain.AccountStatus(rec.Status),
		IsAdmin:      rec.IsAdmin,
		IsDeleted:    rec.IsDeleted,
		LastLoginAt:  rec.LastLoginAt,
		LastLoginIP:  derefString(rec.LastLoginIP),
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}
}

func toDomainLoginAttempt(rec loginAttemptModel) domain.LoginAttempt {
	return domain.LoginAttempt{
		ID:            rec.ID,
		AccountID:     rec.AccountID,
		Email:         rec.Email,
		AttemptAt:     rec.AttemptAt,
		IPAddress:     derefString(rec.IPAddress),
		Status:        rec.Status,
		FailureReason: rec.FailureReason,
	}
}

func nullableString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// translateDBErr maps driver failures to domain errors. A missing row stays
// ErrNotFound; anything else reads as the store being unavailable so the
// HTTP layer answers 503 instead of 500.
func translateDBErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ErrNotFound
	default:
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
}
