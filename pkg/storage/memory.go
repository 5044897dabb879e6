package storage

import (
	"sync"
)

// MemoryStore keeps values in process memory. It backs the CLI when no
// durable backend is available and doubles as a test fake.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
	writes int

	// Error injection for testing
	GetError    error
	SetError    error
	DeleteError error
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(key string) (string, bool, error) {
	if m.GetError != nil {
		return "", false, m.GetError
	}
	if err := validateKey(key); err != nil {
		return "", false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.values[key]
	return value, ok, nil
}

func (m *MemoryStore) Set(key, value string) error {
	if m.SetError != nil {
		return m.SetError
	}
	if err := validateKey(key); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value
	m.writes++
	return nil
}

func (m *MemoryStore) Delete(key string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	return nil
}

func (m *MemoryStore) Close() error { return nil }

// Writes returns how many successful Set calls the store has seen
func (m *MemoryStore) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}
