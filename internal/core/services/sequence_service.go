package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"spsc-mbanking/internal/adapters/persistence/ledger"
)

// ErrSequenceCorrupt means the sequence cell holds a non-numeric or
// negative value. The generator fails closed rather than re-allocating ids
// that may still be in use; reset-to-1 happens only when the cell has never
// been written.
var ErrSequenceCorrupt = errors.New("transaction sequence cell corrupt")

// SequenceService produces globally unique, monotonically increasing
// transaction identifiers ("TXN000001", ...). The counter lives in a
// ledger cell and advances through the store's atomic update primitive.
type SequenceService struct {
	store ledger.Store
}

// NewSequenceService creates a new sequence service
func NewSequenceService(store ledger.Store) *SequenceService {
	return &SequenceService{store: store}
}

// Next allocates the next transaction id
func (s *SequenceService) Next(ctx context.Context) (string, error) {
	value, err := s.store.AtomicUpdate(ctx, ledger.SequenceKey(), func(current string, exists bool) (string, error) {
		if !exists || current == "" {
			// bootstrap: cell never written
			return "1", nil
		}
		n, parseErr := strconv.ParseInt(current, 10, 64)
		if parseErr != nil || n < 0 {
			return "", fmt.Errorf("%w: %q", ErrSequenceCorrupt, current)
		}
		return strconv.FormatInt(n+1, 10), nil
	})
	if err != nil {
		return "", err
	}

	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrSequenceCorrupt, value)
	}
	return fmt.Sprintf("TXN%06d", n), nil
}
