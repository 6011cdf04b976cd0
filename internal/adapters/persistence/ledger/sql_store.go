package ledger

import (
	"context"
	"errors"

	"spsc-mbanking/internal/adapters/persistence/models"
	"spsc-mbanking/internal/core/domain"

	"gorm.io/gorm"
)

// SQLStore implements Store on the ledger_cells table. Optimistic
// concurrency: every row carries a version; a conditional UPDATE that
// matches zero rows means the value changed since read and the loop
// re-reads and retries.
type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore creates a new SQL-backed ledger store
func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Get reads a cell value
func (s *SQLStore) Get(ctx context.Context, key string) (string, error) {
	var cell models.LedgerCell
	err := s.db.WithContext(ctx).Where("cell_key = ?", key).Take(&cell).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrCellNotFound
		}
		return "", err
	}
	return cell.Value, nil
}

// Set writes a cell value unconditionally (bootstrap/seeding only; runtime
// mutations go through AtomicUpdate)
func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	res := s.db.WithContext(ctx).
		Model(&models.LedgerCell{}).
		Where("cell_key = ?", key).
		Updates(map[string]interface{}{"value": value, "version": gorm.Expr("version + 1")})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return s.db.WithContext(ctx).Create(&models.LedgerCell{Key: key, Value: value, Version: 1}).Error
	}
	return nil
}

// AtomicUpdate applies fn under compare-and-retry semantics
func (s *SQLStore) AtomicUpdate(ctx context.Context, key string, fn UpdateFunc) (string, error) {
	for i := 0; i < maxUpdateRetries; i++ {
		var cell models.LedgerCell
		err := s.db.WithContext(ctx).Where("cell_key = ?", key).Take(&cell).Error
		exists := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", err
		}

		next, err := fn(cell.Value, exists)
		if err != nil {
			return "", err
		}

		if !exists {
			createErr := s.db.WithContext(ctx).
				Create(&models.LedgerCell{Key: key, Value: next, Version: 1}).Error
			if createErr == nil {
				return next, nil
			}
			if errors.Is(createErr, gorm.ErrDuplicatedKey) {
				continue // lost the insert race, re-read
			}
			return "", createErr
		}

		res := s.db.WithContext(ctx).
			Model(&models.LedgerCell{}).
			Where("cell_key = ? AND version = ?", key, cell.Version).
			Updates(map[string]interface{}{"value": next, "version": cell.Version + 1})
		if res.Error != nil {
			return "", res.Error
		}
		if res.RowsAffected == 1 {
			return next, nil
		}
		// version moved under us, retry
	}
	return "", domain.ErrConflict
}
