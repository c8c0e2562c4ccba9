package kv

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/Laisky/errors/v2"
)

var _ Store = new(Memory)

// Memory is an in-memory Store.
type Memory struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewMemory create a new in-memory store
func NewMemory() *Memory {
	return &Memory{
		items: map[string][]byte{},
	}
}

// Get returns the value for key.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	if err := ValidKey(key); err != nil {
		return nil, errors.WithStack(err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	val, ok := m.items[key]
	if !ok {
		return nil, errors.Wrapf(ErrKeyNotFound, "key %s", key)
	}

	cp := make([]byte, len(val))
	copy(cp, val)
	return cp, nil
}

// Set stores the value under key.
func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	if err := ValidKey(key); err != nil {
		return errors.WithStack(err)
	}

	cp := make([]byte, len(value))
	copy(cp, value)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[key] = cp
	return nil
}

// Del removes key.
func (m *Memory) Del(_ context.Context, key string) error {
	if err := ValidKey(key); err != nil {
		return errors.WithStack(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, key)
	return nil
}

// Exists reports whether key is present.
func (m *Memory) Exists(_ context.Context, key string) (bool, error) {
	if err := ValidKey(key); err != nil {
		return false, errors.WithStack(err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.items[key]
	return ok, nil
}

// Keys returns every stored key beginning with prefix, sorted.
func (m *Memory) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for k := range m.items {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}

	sort.Strings(keys)
	return keys, nil
}
