package panel

import (
	"context"
	"sync"
	"time"
)

// Store keeps per-user panel states with a TTL. Get never fails on a missing
// or expired entry: it hands back a fresh default instead.
type Store interface {
	Get(ctx context.Context, userID int64) (State, error)
	Save(ctx context.Context, userID int64, state State) error
	Delete(ctx context.Context, userID int64) error
	Sweep(ctx context.Context) (int, error)
}

// MemoryStore is the in-process Store. Expired entries self-heal on Get and
// are reaped in bulk by Sweep.
type MemoryStore struct {
	ttl time.Duration

	mu     sync.Mutex
	states map[int64]State
}

// NewMemoryStore constructs a memory store. A non-positive ttl uses
// DefaultTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{ttl: ttl, states: make(map[int64]State)}
}

func (m *MemoryStore) Get(ctx context.Context, userID int64) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.states[userID]
	if !ok || state.Expired(m.ttl) {
		state = NewState()
		m.states[userID] = state
	}
	return state, nil
}

func (m *MemoryStore) Save(ctx context.Context, userID int64, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[userID] = state
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, userID)
	return nil
}

func (m *MemoryStore) Sweep(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for userID, state := range m.states {
		if state.Expired(m.ttl) {
			delete(m.states, userID)
			removed++
		}
	}
	return removed, nil
}

var _ Store = (*MemoryStore)(nil)
