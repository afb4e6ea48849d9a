// internal/kv/memory.go
//
// In-memory Store for tests and single-node development.  Expiry is
// lazy: expired entries are dropped on the Get or List that observes
// them, mirroring how the real backends behave from a caller's view.
package kv

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory implements Store with a mutex-guarded map.  Safe for
// concurrent use.  The zero value is not usable; call NewMemory.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memEntry
	now     func() time.Time
}

type memEntry struct {
	value   []byte
	expires time.Time // zero = never
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memEntry), now: time.Now}
}

// SetClock overrides the time source.  Tests use this to step TTLs
// without sleeping.
func (m *Memory) SetClock(now func() time.Time) { m.now = now }

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ent, ok := m.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	if !ent.expires.IsZero() && m.now().After(ent.expires) {
		delete(m.entries, key)
		return nil, ErrNotFound
	}
	out := make([]byte, len(ent.value))
	copy(out, ent.value)
	return out, nil
}

func (m *Memory) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ent := memEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		ent.expires = m.now().Add(ttl)
	}
	m.entries[key] = ent
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *Memory) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	keys := make([]string, 0, 8)
	for k, ent := range m.entries {
		if !ent.expires.IsZero() && now.After(ent.expires) {
			delete(m.entries, k)
			continue
		}
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Len reports the number of live entries.  Test helper.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
