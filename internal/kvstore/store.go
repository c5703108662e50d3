package kvstore

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrLocked is returned by Open when another process holds the state file.
var ErrLocked = errors.New("state store is locked by another process")

// Store is a string key-value store. Missing keys are reported through the
// boolean result of Get, never as errors.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	MultiSet(ctx context.Context, pairs map[string]string) error
	MultiRemove(ctx context.Context, keys ...string) error
	Keys(ctx context.Context) ([]string, error)
}

// MatchingKeys returns the store's keys for which match reports true, in
// the order Keys returns them.
func MatchingKeys(ctx context.Context, store Store, match func(key string) bool) ([]string, error) {
	keys, err := store.Keys(ctx)
	if err != nil {
		return nil, err
	}
	out := keys[:0]
	for _, key := range keys {
		if match(key) {
			out = append(out, key)
		}
	}
	return out, nil
}

// Memory is an in-process Store.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.data[key]
	return value, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *Memory) MultiSet(_ context.Context, pairs map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, value := range pairs {
		m.data[key] = value
	}
	return nil
}

func (m *Memory) MultiRemove(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *Memory) Keys(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for key := range m.data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// Snapshot returns a copy of every stored pair.
func (m *Memory) Snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.data))
	for key, value := range m.data {
		out[key] = value
	}
	return out
}
