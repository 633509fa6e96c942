package sessionstore

import (
	"context"
	"sync"
)

// MemoryStore keeps the session in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	session string
}

// Compile-time check to ensure MemoryStore implements SessionStore
var _ SessionStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == "" {
		return "", ErrNotFound
	}
	return m.session, nil
}

func (m *MemoryStore) Write(ctx context.Context, session string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	m.session = session
	m.mu.Unlock()
	return nil
}
