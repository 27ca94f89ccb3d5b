package guard

import (
	"context"
	"sync"
	"time"
)

var _ Store = &MemoryStore{}

// MemoryStore keeps leases in memory. Leases do not survive a restart.
type MemoryStore struct {
	lock   sync.Mutex
	leases map[string]time.Time
}

func (m *MemoryStore) Acquire(_ context.Context, key string, now time.Time, expiry time.Duration) (bool, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if acquired, ok := m.leases[key]; ok && now.Sub(acquired) < expiry {
		return false, nil
	}
	if m.leases == nil {
		m.leases = make(map[string]time.Time)
	}
	m.leases[key] = now
	return true, nil
}

func (m *MemoryStore) Release(_ context.Context, key string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.leases, key)
	return nil
}
