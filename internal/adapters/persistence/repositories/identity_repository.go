package repositories

import (
	"context"
	"time"

	"spsc-mbanking/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// IdentityRepository handles identity data access
type IdentityRepository struct {
	db *gorm.DB
}

// NewIdentityRepository creates a new identity repository
func NewIdentityRepository(db *gorm.DB) *IdentityRepository {
	return &IdentityRepository{db: db}
}

// Create creates a new identity
func (r *IdentityRepository) Create(ctx context.Context, identity *models.Identity) error {
	return r.db.WithContext(ctx).Create(identity).Error
}

// GetByID gets an identity by ID
func (r *IdentityRepository) GetByID(ctx context.Context, id uint) (*models.Identity, error) {
	var identity models.Identity
	err := r.db.WithContext(ctx).First(&identity, id).Error
	if err != nil {
		return nil, err
	}
	return &identity, nil
}

// GetByEmail gets an identity by email
func (r *IdentityRepository) GetByEmail(ctx context.Context, email string) (*models.Identity, error) {
	var identity models.Identity
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&identity).Error
	if err != nil {
		return nil, err
	}
	return &identity, nil
}

// SetLock records lock metadata on the identity row (the authoritative
// status flag is the identity's ledger status cell)
func (r *IdentityRepository) SetLock(ctx context.Context, id uint, reason string, at *time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Identity{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"lock_reason": reason, "locked_at": at}).Error
}
