package ledger

import (
	"context"
	"sync"
)

// MemoryStore implements Store in memory. Used by tests and by local
// development without a database; AtomicUpdate serializes on a mutex so it
// never conflicts.
type MemoryStore struct {
	mu    sync.Mutex
	cells map[string]string
}

// NewMemoryStore creates an empty in-memory ledger store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cells: make(map[string]string)}
}

// Get reads a cell value
func (s *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.cells[key]
	if !ok {
		return "", ErrCellNotFound
	}
	return v, nil
}

// Set writes a cell value
func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cells[key] = value
	return nil
}

// AtomicUpdate applies fn while holding the store lock
func (s *MemoryStore) AtomicUpdate(ctx context.Context, key string, fn UpdateFunc) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.cells[key]
	next, err := fn(current, exists)
	if err != nil {
		return "", err
	}
	s.cells[key] = next
	return next, nil
}
