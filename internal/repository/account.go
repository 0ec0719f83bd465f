package repository

import (
	"context"
	"errors"
	"rollout/internal/model"

	"gorm.io/gorm"
)

// AccountInterface defines the interface for operator account lookups
type AccountInterface interface {
	FindByUsername(ctx context.Context, username string) (*model.Account, error)
	Create(ctx context.Context, account *model.Account) error
}

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (*model.Account, error) {
	var account model.Account
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) Create(ctx context.Context, account *model.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}
