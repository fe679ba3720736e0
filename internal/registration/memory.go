package registration

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type entry struct {
	tagID   int64
	expires time.Time
}

// Memory is a process-local Store for single-instance deployments and tests.
type Memory struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]entry
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, now: time.Now, entries: make(map[string]entry)}
}

func (m *Memory) Begin(_ context.Context) (Pending, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweep()

	p := Pending{Token: uuid.NewString(), ExpiresAt: m.now().Add(m.ttl)}
	m.entries[p.Token] = entry{expires: p.ExpiresAt}
	return p, nil
}

func (m *Memory) Attach(_ context.Context, token string, tagID int64) error {
	if tagID <= 0 {
		return ErrInvalidTag
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.live(token)
	if !ok {
		return ErrNotFound
	}
	e.tagID = tagID
	m.entries[token] = e
	return nil
}

func (m *Memory) Lookup(_ context.Context, token string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.live(token)
	if !ok {
		return 0, ErrNotFound
	}
	return e.tagID, nil
}

func (m *Memory) Consume(_ context.Context, token string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.live(token)
	if !ok {
		return 0, ErrNotFound
	}
	delete(m.entries, token)
	if e.tagID == 0 {
		return 0, ErrNotScanned
	}
	return e.tagID, nil
}

func (m *Memory) live(token string) (entry, bool) {
	e, ok := m.entries[token]
	if !ok {
		return entry{}, false
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, token)
		return entry{}, false
	}
	return e, true
}

func (m *Memory) sweep() {
	now := m.now()
	for token, e := range m.entries {
		if !now.Before(e.expires) {
			delete(m.entries, token)
		}
	}
}
