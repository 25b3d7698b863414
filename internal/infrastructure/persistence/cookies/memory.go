package cookies

import (
	"sync"
	"time"
)

// Record is a stored value with its expiry
type Record struct {
	Value   string
	Expires time.Time
}

// MemoryStore keeps records in process with real expiry. Expired records read
// as absent.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	now     func() time.Time
}

// NewMemoryStore creates an empty store using now as its clock
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{records: make(map[string]Record), now: now}
}

func (m *MemoryStore) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[key]
	if !ok || !m.now().Before(r.Expires) {
		return "", false
	}
	return r.Value, true
}

func (m *MemoryStore) Set(key, value string, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key] = Record{Value: value, Expires: m.now().Add(ttl)}
}

func (m *MemoryStore) Remove(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key)
}

// Record returns the raw record, including its expiry, regardless of freshness
func (m *MemoryStore) Record(key string) (Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[key]
	return r, ok
}
