// Package session keeps the token -> user id marker that survives a reload of
// the client. The memory store is the default; Redis keeps markers across
// restarts and replicas.
package session

import (
	"context"
	"sync"
	"time"

	"paper-trader/src/interfaces"
)

type entry struct {
	userID  string
	expires time.Time
}

// MemoryStore is an in-process ISessionStore. Expired entries are dropped lazily.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]entry), now: time.Now}
}

// -----------------------------------------------------------------------------

func (m *MemoryStore) Put(_ context.Context, token string, userID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := entry{userID: userID}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.entries[token] = e
	return nil
}

func (m *MemoryStore) Get(_ context.Context, token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[token]
	if !ok {
		return "", interfaces.ErrSessionNotFound
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		delete(m.entries, token)
		return "", interfaces.ErrSessionNotFound
	}
	return e.userID, nil
}

func (m *MemoryStore) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, token)
	return nil
}
