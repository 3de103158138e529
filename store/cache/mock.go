package cache

import (
	"context"
	"path"
	"sync"
	"time"
)

// MockBackend is an in-memory implementation of Backend for testing. Its
// clock is injectable so tests can drive TTL expiry without sleeping, and it
// can be forced to fail to exercise the best-effort error paths.
type MockBackend struct {
	mu      sync.RWMutex
	entries map[string]mockEntry
	err     error

	// Now supplies the current time. Defaults to time.Now.
	Now func() time.Time
}

type mockEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMockBackend creates an empty mock backend.
func NewMockBackend() *MockBackend {
	return &MockBackend{
		entries: make(map[string]mockEntry),
		Now:     time.Now,
	}
}

// SetError forces all subsequent operations to fail with err. Pass nil to
// restore normal behavior.
func (m *MockBackend) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockBackend) SetEx(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	m.entries[key] = mockEntry{
		value:     append([]byte(nil), value...),
		expiresAt: m.Now().Add(ttl),
	}
	return nil
}

func (m *MockBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.err != nil {
		return nil, false, m.err
	}
	entry, ok := m.entries[key]
	if !ok || m.Now().After(entry.expiresAt) {
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (m *MockBackend) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	for _, key := range keys {
		delete(m.entries, key)
	}
	return nil
}

func (m *MockBackend) Keys(_ context.Context, pattern string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.err != nil {
		return nil, m.err
	}
	now := m.Now()
	var keys []string
	for key, entry := range m.entries {
		if now.After(entry.expiresAt) {
			continue
		}
		if matched, _ := path.Match(pattern, key); matched {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (m *MockBackend) FlushDB(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	m.entries = make(map[string]mockEntry)
	return nil
}

func (m *MockBackend) Info(_ context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.err != nil {
		return nil, m.err
	}
	return map[string]string{
		"used_memory_human": "1.00M",
		"connected_clients": "1",
		"uptime_in_days":    "0",
	}, nil
}

func (m *MockBackend) DBSize(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.err != nil {
		return 0, m.err
	}
	now := m.Now()
	var count int64
	for _, entry := range m.entries {
		if !now.After(entry.expiresAt) {
			count++
		}
	}
	return count, nil
}

func (m *MockBackend) Close() error {
	return nil
}

var _ Backend = (*MockBackend)(nil)
