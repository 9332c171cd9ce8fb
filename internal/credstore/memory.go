package credstore

import (
	"context"
	"sync"
)

// MemoryStore holds the credential pair for the lifetime of the process.
// Suitable for session-only use where nothing should touch disk, and for
// tests.
type MemoryStore struct {
	mu   sync.Mutex
	pair Pair
}

// Compile-time check to ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns the stored pair. Safe for concurrent use.
func (m *MemoryStore) Load(ctx context.Context) (Pair, error) {
	if err := ctx.Err(); err != nil {
		return Pair{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pair, nil
}

// Save replaces the stored pair.
func (m *MemoryStore) Save(ctx context.Context, pair Pair) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	m.pair = pair
	m.mu.Unlock()
	return nil
}

// Clear removes the stored pair. Idempotent.
func (m *MemoryStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	m.pair = Pair{}
	m.mu.Unlock()
	return nil
}
