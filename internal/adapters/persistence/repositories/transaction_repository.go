package repositories

import (
	"context"

	"spsc-mbanking/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// TransactionRepository handles transaction history access
type TransactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create creates a new history record
func (r *TransactionRepository) Create(ctx context.Context, record *models.TransactionRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// GetByTxnID gets the history record for a transaction id
func (r *TransactionRepository) GetByTxnID(ctx context.Context, txnID string) (*models.TransactionRecord, error) {
	var record models.TransactionRecord
	err := r.db.WithContext(ctx).Where("txn_id = ?", txnID).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListByIdentity lists history records for an identity, newest first
func (r *TransactionRepository) ListByIdentity(ctx context.Context, identityID uint, limit int) ([]*models.TransactionRecord, error) {
	var records []*models.TransactionRecord
	err := r.db.WithContext(ctx).
		Where("identity_id = ?", identityID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// CountByTxnID counts history records for a transaction id
func (r *TransactionRepository) CountByTxnID(ctx context.Context, txnID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.TransactionRecord{}).
		Where("txn_id = ?", txnID).
		Count(&count).Error
	return count, err
}
