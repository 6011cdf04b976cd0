package repositories

import (
	"context"
	"time"

	"spsc-mbanking/internal/adapters/persistence/models"
	"spsc-mbanking/internal/core/domain"

	"gorm.io/gorm"
)

// SavingsRepository handles fixed-term savings account access
type SavingsRepository struct {
	db *gorm.DB
}

// NewSavingsRepository creates a new savings repository
func NewSavingsRepository(db *gorm.DB) *SavingsRepository {
	return &SavingsRepository{db: db}
}

// Create creates a new savings account
func (r *SavingsRepository) Create(ctx context.Context, account *models.SavingsAccount) error {
	return r.db.WithContext(ctx).Create(account).Error
}

// GetByID gets a savings account by ID
func (r *SavingsRepository) GetByID(ctx context.Context, id uint) (*models.SavingsAccount, error) {
	var account models.SavingsAccount
	err := r.db.WithContext(ctx).First(&account, id).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// Close claims an ACTIVE savings account for one attempt: marks it CLOSED
// with its payout breakdown. The conditional update admits exactly one
// claimer; a concurrent attempt gets ErrAlreadySettled. Called before the
// payout credit, so a failed credit must release the claim with Reopen.
func (r *SavingsRepository) Close(ctx context.Context, id uint, txnID string, payoutPrincipal, payoutInterest int64) error {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&models.SavingsAccount{}).
		Where("id = ? AND status = ?", id, models.SavingsStatusActive).
		Updates(map[string]interface{}{
			"status":           models.SavingsStatusClosed,
			"payout_principal": payoutPrincipal,
			"payout_interest":  payoutInterest,
			"closed_txn_id":    txnID,
			"closed_at":        &now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrAlreadySettled
	}
	return nil
}

// Reopen releases a claim whose payout credit never committed: puts the
// account back to ACTIVE and clears the payout breakdown. Only the
// claiming attempt's txn id can release.
func (r *SavingsRepository) Reopen(ctx context.Context, id uint, txnID string) error {
	res := r.db.WithContext(ctx).
		Model(&models.SavingsAccount{}).
		Where("id = ? AND status = ? AND closed_txn_id = ?", id, models.SavingsStatusClosed, txnID).
		Updates(map[string]interface{}{
			"status":           models.SavingsStatusActive,
			"payout_principal": 0,
			"payout_interest":  0,
			"closed_txn_id":    "",
			"closed_at":        nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
