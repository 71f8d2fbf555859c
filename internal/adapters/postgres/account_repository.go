package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/madcrow/auth-service/internal/domain"
	"github.com/madcrow/auth-service/internal/ports"
)

type accountRepository struct {
	db *gorm.DB
}

func (r *accountRepository) Create(ctx context.Context, params ports.CreateAccountParams) (domain.Account, error) {
	rec := accountModel{
		Name:         params.Name,
		Email:        params.Email,
		PasswordHash: params.PasswordHash,
		PasswordSalt: params.PasswordSalt,
		Status:       string(params.Status),
		IsAdmin:      params.IsAdmin,
		CreatedAt:    params.RegisteredAt,
		UpdatedAt:    params.RegisteredAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.Account{}, domain.ErrEmailExists
		}
		return domain.Account{}, translateDBErr(err)
	}
	return toDomainAccount(rec), nil
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	var rec accountModel
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		Where("is_deleted = ?", false).
		Take(&rec).Error
	if err != nil {
		return domain.Account{}, translateDBErr(err)
	}
	return toDomainAccount(rec), nil
}

func (r *accountRepository) GetByID(ctx context.Context, accountID uuid.UUID) (domain.Account, error) {
	var rec accountModel
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Where("is_deleted = ?", false).
		Take(&rec).Error
	if err != nil {
		return domain.Account{}, translateDBErr(err)
	}
	return toDomainAccount(rec), nil
}

func (r *accountRepository) UpdateLastLogin(ctx context.Context, accountID uuid.UUID, at time.Time, ip string) error {
	res := r.db.WithContext(ctx).
		Model(&accountModel{}).
		Where("account_id = ?", accountID).
		Updates(map[string]any{
			"last_login_at": at,
			"last_login_ip": nullableString(ip),
			"updated_at":    at,
		})
	if res.Error != nil {
		return translateDBErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
