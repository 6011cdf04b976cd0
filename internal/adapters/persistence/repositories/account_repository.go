package repositories

import (
	"context"
	"time"

	"spsc-mbanking/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// AccountRepository handles account metadata access
type AccountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create creates a new account
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

// GetByNumber gets an account by its number (the canonical key)
func (r *AccountRepository) GetByNumber(ctx context.Context, number string) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).Where("number = ?", number).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// ListByIdentity lists accounts owned by an identity
func (r *AccountRepository) ListByIdentity(ctx context.Context, identityID uint) ([]*models.Account, error) {
	var accounts []*models.Account
	err := r.db.WithContext(ctx).
		Where("identity_id = ?", identityID).
		Order("created_at ASC").
		Find(&accounts).Error
	return accounts, err
}

// SetLock records lock metadata on the account row
func (r *AccountRepository) SetLock(ctx context.Context, number, reason string, at *time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("number = ?", number).
		Updates(map[string]interface{}{"lock_reason": reason, "locked_at": at}).Error
}
