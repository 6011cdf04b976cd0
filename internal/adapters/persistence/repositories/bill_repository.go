package repositories

import (
	"context"
	"time"

	"spsc-mbanking/internal/adapters/persistence/models"
	"spsc-mbanking/internal/core/domain"

	"gorm.io/gorm"
)

// BillRepository handles bill/booking order access
type BillRepository struct {
	db *gorm.DB
}

// NewBillRepository creates a new bill repository
func NewBillRepository(db *gorm.DB) *BillRepository {
	return &BillRepository{db: db}
}

// Create creates a new bill order
func (r *BillRepository) Create(ctx context.Context, order *models.BillOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// GetByID gets a bill order by ID
func (r *BillRepository) GetByID(ctx context.Context, id uint) (*models.BillOrder, error) {
	var order models.BillOrder
	err := r.db.WithContext(ctx).First(&order, id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// MarkPaid claims a DUE order for one attempt by marking it PAID. The
// conditional update admits exactly one claimer; a concurrent attempt gets
// ErrAlreadySettled. Called before the debit, so a failed debit must
// release the claim with Reopen.
func (r *BillRepository) MarkPaid(ctx context.Context, id uint, txnID string) error {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&models.BillOrder{}).
		Where("id = ? AND status = ?", id, models.BillStatusDue).
		Updates(map[string]interface{}{
			"status":      models.BillStatusPaid,
			"paid_txn_id": txnID,
			"paid_at":     &now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrAlreadySettled
	}
	return nil
}

// Reopen releases a claim whose debit never committed: puts the order back
// to DUE. Only the claiming attempt's txn id can release.
func (r *BillRepository) Reopen(ctx context.Context, id uint, txnID string) error {
	res := r.db.WithContext(ctx).
		Model(&models.BillOrder{}).
		Where("id = ? AND status = ? AND paid_txn_id = ?", id, models.BillStatusPaid, txnID).
		Updates(map[string]interface{}{
			"status":      models.BillStatusDue,
			"paid_txn_id": "",
			"paid_at":     nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
