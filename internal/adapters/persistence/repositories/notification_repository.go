package repositories

import (
	"context"

	"spsc-mbanking/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// NotificationRepository handles notification inbox access
type NotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create creates a new notification
func (r *NotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

// ListByIdentity lists notifications for an identity, newest first
func (r *NotificationRepository) ListByIdentity(ctx context.Context, identityID uint, limit int) ([]*models.Notification, error) {
	var notifications []*models.Notification
	err := r.db.WithContext(ctx).
		Where("identity_id = ?", identityID).
		Order("created_at DESC").
		Limit(limit).
		Find(&notifications).Error
	return notifications, err
}

// CountByIdentity counts notifications for an identity
func (r *NotificationRepository) CountByIdentity(ctx context.Context, identityID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("identity_id = ?", identityID).
		Count(&count).Error
	return count, err
}
