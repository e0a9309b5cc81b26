// Package store is an opaque key/value store keyed by user id.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("store: not found")

// Store persists opaque values per user. Implementations are safe for
// concurrent use.
type Store interface {
	Get(ctx context.Context, userID, key string) ([]byte, error)
	Put(ctx context.Context, userID, key string, value []byte) error
	Delete(ctx context.Context, userID, key string) error
	Close() error
}

// Open returns the store for driver ("sqlite" or "memory").
func Open(driver, path string) (Store, error) {
	switch driver {
	case "sqlite":
		return OpenSQLite(path)
	case "memory":
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("store: unknown driver %q", driver)
}

// --- Memory ---

// Memory is an in-process Store.
type Memory struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, userID, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[userID][key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Put(_ context.Context, userID, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[userID] == nil {
		m.data[userID] = make(map[string][]byte)
	}
	m.data[userID][key] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) Delete(_ context.Context, userID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data[userID], key)
	return nil
}

func (m *Memory) Close() error { return nil }
