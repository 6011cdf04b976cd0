package repositories

import (
	"context"
	"time"

	"spsc-mbanking/internal/adapters/persistence/models"
	"spsc-mbanking/internal/core/domain"

	"gorm.io/gorm"
)

// MortgageRepository handles mortgage contract and schedule access
type MortgageRepository struct {
	db *gorm.DB
}

// NewMortgageRepository creates a new mortgage repository
func NewMortgageRepository(db *gorm.DB) *MortgageRepository {
	return &MortgageRepository{db: db}
}

// CreateContract creates a new contract
func (r *MortgageRepository) CreateContract(ctx context.Context, contract *models.MortgageContract) error {
	return r.db.WithContext(ctx).Create(contract).Error
}

// GetContract gets a contract by ID
func (r *MortgageRepository) GetContract(ctx context.Context, id uint) (*models.MortgageContract, error) {
	var contract models.MortgageContract
	err := r.db.WithContext(ctx).First(&contract, id).Error
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

// CreatePeriod creates a schedule period
func (r *MortgageRepository) CreatePeriod(ctx context.Context, period *models.MortgageSchedulePeriod) error {
	return r.db.WithContext(ctx).Create(period).Error
}

// GetPeriod gets a schedule period by contract and period key
func (r *MortgageRepository) GetPeriod(ctx context.Context, contractID uint, periodKey string) (*models.MortgageSchedulePeriod, error) {
	var period models.MortgageSchedulePeriod
	err := r.db.WithContext(ctx).
		Where("contract_id = ? AND period_key = ?", contractID, periodKey).
		First(&period).Error
	if err != nil {
		return nil, err
	}
	return &period, nil
}

// ApplyPayment claims a DUE period for one attempt: marks it PAID with the
// recomputed breakdown and reduces the outstanding debt by the principal
// portion. The conditional update admits exactly one claimer; a concurrent
// attempt gets ErrAlreadySettled. Called before the balance debit, so a
// failed debit must release the claim with ReversePayment.
func (r *MortgageRepository) ApplyPayment(ctx context.Context, contractID uint, periodKey, txnID string, principal, interest int64) error {
	now := time.Now()

	res := r.db.WithContext(ctx).
		Model(&models.MortgageSchedulePeriod{}).
		Where("contract_id = ? AND period_key = ? AND status = ?", contractID, periodKey, models.PeriodStatusDue).
		Updates(map[string]interface{}{
			"status":         models.PeriodStatusPaid,
			"principal_paid": principal,
			"interest_paid":  interest,
			"paid_txn_id":    txnID,
			"paid_at":        &now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrAlreadySettled
	}

	return r.db.WithContext(ctx).
		Model(&models.MortgageContract{}).
		Where("id = ?", contractID).
		Update("outstanding", gorm.Expr("outstanding - ?", principal)).Error
}

// ReversePayment releases a claim whose balance debit never committed:
// puts the period back to DUE and restores the outstanding debt. Only the
// claiming attempt's txn id can release, so it never undoes a rival's
// settled payment.
func (r *MortgageRepository) ReversePayment(ctx context.Context, contractID uint, periodKey, txnID string, principal int64) error {
	res := r.db.WithContext(ctx).
		Model(&models.MortgageSchedulePeriod{}).
		Where("contract_id = ? AND period_key = ? AND status = ? AND paid_txn_id = ?",
			contractID, periodKey, models.PeriodStatusPaid, txnID).
		Updates(map[string]interface{}{
			"status":         models.PeriodStatusDue,
			"principal_paid": 0,
			"interest_paid":  0,
			"paid_txn_id":    "",
			"paid_at":        nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return r.db.WithContext(ctx).
		Model(&models.MortgageContract{}).
		Where("id = ?", contractID).
		Update("outstanding", gorm.Expr("outstanding + ?", principal)).Error
}
