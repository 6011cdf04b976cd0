package repositories

import (
	"context"
	"time"

	"spsc-mbanking/internal/adapters/persistence/models"
	"spsc-mbanking/internal/core/domain"

	"gorm.io/gorm"
)

// AttemptRepository handles authorization attempt data access
type AttemptRepository struct {
	db *gorm.DB
}

// NewAttemptRepository creates a new attempt repository
func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// Create creates a new attempt
func (r *AttemptRepository) Create(ctx context.Context, attempt *models.AuthorizationAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

// GetByTxnID gets an attempt by transaction id
func (r *AttemptRepository) GetByTxnID(ctx context.Context, txnID string) (*models.AuthorizationAttempt, error) {
	var attempt models.AuthorizationAttempt
	err := r.db.WithContext(ctx).Where("txn_id = ?", txnID).First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// Delete removes an attempt (OTP issuance rollback)
func (r *AttemptRepository) Delete(ctx context.Context, txnID string) error {
	return r.db.WithContext(ctx).
		Where("txn_id = ?", txnID).
		Delete(&models.AuthorizationAttempt{}).Error
}

// UpdateOtp overwrites code and expiry in place (resend)
func (r *AttemptRepository) UpdateOtp(ctx context.Context, txnID, code string, expiresAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.AuthorizationAttempt{}).
		Where("txn_id = ?", txnID).
		Updates(map[string]interface{}{"otp_code": code, "otp_expires_at": expiresAt}).Error
}

// MarkConsumed flips the consumed flag exactly once. The conditional
// predicate serializes concurrent confirms: the first caller wins, every
// later one sees domain.ErrOtpAlreadyConsumed.
func (r *AttemptRepository) MarkConsumed(ctx context.Context, txnID string) error {
	res := r.db.WithContext(ctx).
		Model(&models.AuthorizationAttempt{}).
		Where("txn_id = ? AND otp_consumed = ?", txnID, false).
		Updates(map[string]interface{}{"otp_consumed": true, "phase": string(domain.PhaseConfirmed)})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrOtpAlreadyConsumed
	}
	return nil
}

// Resolve moves an attempt to a terminal phase and stamps resolution time
func (r *AttemptRepository) Resolve(ctx context.Context, txnID string, phase domain.Phase) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&models.AuthorizationAttempt{}).
		Where("txn_id = ?", txnID).
		Updates(map[string]interface{}{"phase": string(phase), "resolved_at": &now}).Error
}

// ExpireStale marks long-abandoned PENDING attempts EXPIRED. Only attempts
// whose OTP expiry is older than cutoff are touched, so the at/after-expiry
// resend window stays usable. Returns the number of attempts expired.
func (r *AttemptRepository) ExpireStale(ctx context.Context, cutoff time.Time) (int64, error) {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&models.AuthorizationAttempt{}).
		Where("phase = ? AND otp_consumed = ? AND otp_expires_at < ?",
			string(domain.PhaseOtpIssued), false, cutoff).
		Updates(map[string]interface{}{"phase": string(domain.PhaseExpired), "resolved_at": &now})
	return res.RowsAffected, res.Error
}
