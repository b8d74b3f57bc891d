package snapshot

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*stored
	ttl      time.Duration
	now      func() time.Time
	closed   bool
	done     chan struct{}
}

type stored struct {
	keys      []string
	expiresAt time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*memoryConfig)

type memoryConfig struct {
	ttl             time.Duration
	cleanupInterval time.Duration
}

// WithTTL expires sessions that were not saved for d. Zero keeps them forever.
func WithTTL(d time.Duration) MemoryOption {
	return func(c *memoryConfig) {
		c.ttl = d
	}
}

// WithCleanupInterval sets how often expired sessions are dropped.
// Default: 1 minute.
func WithCleanupInterval(d time.Duration) MemoryOption {
	return func(c *memoryConfig) {
		c.cleanupInterval = d
	}
}

// NewMemoryStore creates an in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	cfg := &memoryConfig{cleanupInterval: time.Minute}
	for _, opt := range opts {
		opt(cfg)
	}

	m := &MemoryStore{
		sessions: make(map[string]*stored),
		ttl:      cfg.ttl,
		now:      time.Now,
		done:     make(chan struct{}),
	}
	if m.ttl > 0 {
		go m.cleanupLoop(cfg.cleanupInterval)
	}
	return m
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, id string, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return failure("save", id, errStoreClosed)
	}
	s := &stored{keys: slices.Clone(keys)}
	if m.ttl > 0 {
		s.expiresAt = m.now().Add(m.ttl)
	}
	m.sessions[id] = s
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context, id string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, failure("load", id, errStoreClosed)
	}
	s, ok := m.sessions[id]
	if !ok || m.expired(s) {
		return nil, notFound(id)
	}
	return slices.Clone(s.keys), nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Len returns the number of stored sessions, expired ones included until
// the next cleanup.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	close(m.done)
	m.sessions = make(map[string]*stored)
	return nil
}

func (m *MemoryStore) expired(s *stored) bool {
	return !s.expiresAt.IsZero() && m.now().After(s.expiresAt)
}

func (m *MemoryStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanup()
		case <-m.done:
			return
		}
	}
}

func (m *MemoryStore) cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if m.expired(s) {
			delete(m.sessions, id)
		}
	}
}

var _ Store = (*MemoryStore)(nil)
