package ttlstore

import (
	"context"
	"sync"
	"time"

	"github.com/southwestptfs/flightdeck/internal/clock"
)

type entry struct {
	value   string
	expires time.Time
}

// Memory is a process-local Store. Expired keys are dropped lazily on read
// and swept on every write.
type Memory struct {
	mu    sync.Mutex
	clock clock.Clock
	data  map[string]entry
}

// NewMemory returns an empty store using c for expiry decisions.
func NewMemory(c clock.Clock) *Memory {
	return &Memory{clock: c, data: make(map[string]entry)}
}

func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Now()
	for k, e := range m.data {
		if !now.Before(e.expires) {
			delete(m.data, k)
		}
	}
	m.data[key] = entry{value: value, expires: now.Add(ttl)}
	return nil
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookup(key)
}

func (m *Memory) Take(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, err := m.lookup(key)
	delete(m.data, key)
	return v, err
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

// lookup must be called with mu held.
func (m *Memory) lookup(key string) (string, error) {
	e, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	if !m.clock.Now().Before(e.expires) {
		delete(m.data, key)
		return "", ErrNotFound
	}
	return e.value, nil
}
