package session

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// MemoryStore is an in-memory [Store] suitable for single-instance deployments.
// Records do not survive a process restart.
type MemoryStore struct {
	mu         sync.RWMutex
	challenges map[string]Challenge
	sessions   map[string]Session
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		challenges: make(map[string]Challenge),
		sessions:   make(map[string]Session),
	}
}

// PutChallenge implements [Store].
func (m *MemoryStore) PutChallenge(ctx context.Context, state string, c Challenge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.challenges[state] = c
	return nil
}

// TakeChallenge implements [Store]. The record is deleted whether or not it is
// still live, so a replayed state fails even when the first exchange did not
// complete.
func (m *MemoryStore) TakeChallenge(ctx context.Context, state string) (*Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.challenges[state]
	if !ok {
		return nil, ErrNotFound
	}
	delete(m.challenges, state)

	if !time.Now().Before(c.ExpiresAt) {
		return nil, ErrNotFound
	}
	return &c, nil
}

// PutSession implements [Store].
func (m *MemoryStore) PutSession(ctx context.Context, id string, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = s
	return nil
}

// GetSession implements [Store].
func (m *MemoryStore) GetSession(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

// DeleteSession implements [Store].
func (m *MemoryStore) DeleteSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Sweep implements [Store].
func (m *MemoryStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for state, c := range m.challenges {
		if c.ExpiresAt.Before(now) {
			delete(m.challenges, state)
			evicted++
		}
	}
	for id, s := range m.sessions {
		if s.ExpiresAt.Before(now) {
			delete(m.sessions, id)
			evicted++
		}
	}
	return evicted, nil
}

// ActiveSessions implements [Store].
func (m *MemoryStore) ActiveSessions(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions), nil
}

// RunSweeper evicts expired records from store on a fixed interval until ctx is
// cancelled. It runs independently of request handling; a skipped or delayed
// pass costs memory, never correctness, because lookups also check expiry.
func RunSweeper(ctx context.Context, store Store, interval time.Duration, logger *log.Logger) {
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			evicted, err := store.Sweep(ctx, now)
			if err != nil {
				logger.Warnf("session sweep failed: %v", err)
				continue
			}
			if evicted > 0 {
				logger.Infof("swept %d expired session records", evicted)
			}
		}
	}
}
