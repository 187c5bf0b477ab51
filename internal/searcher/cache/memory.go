package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/docugrid/searchcore/internal/searcher/executor"
)

type memoryEntry struct {
	rs         *executor.ResultSet
	insertedAt time.Time
}

// Memory is the default in-process result cache: TTL on read, oldest-entry
// eviction once maxSize is reached (insertion order, not strict LRU). It has
// its own lock and never touches the index lock.
type Memory struct {
	mu      sync.Mutex
	entries map[Key]memoryEntry
	order   []Key
	ttl     time.Duration
	maxSize int
	onEvict func()
	hits    atomic.Int64
	misses  atomic.Int64
	evicted atomic.Int64
}

// NewMemory creates a memory cache with the given TTL and size cap.
func NewMemory(ttl time.Duration, maxSize int) *Memory {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if maxSize <= 0 {
		maxSize = 512
	}
	return &Memory{
		entries: make(map[Key]memoryEntry),
		order:   make([]Key, 0, maxSize),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// SetEvictionHook installs a callback invoked once per evicted entry.
func (m *Memory) SetEvictionHook(fn func()) {
	m.onEvict = fn
}

// Get returns the cached result set if present and inside the TTL window.
// Expired entries are evicted on the spot and reported as misses.
func (m *Memory) Get(ctx context.Context, key Key) (*executor.ResultSet, bool) {
	m.mu.Lock()
	entry, ok := m.entries[key]
	if ok && time.Since(entry.insertedAt) > m.ttl {
		delete(m.entries, key)
		m.dropOrder(key)
		ok = false
		m.evicted.Add(1)
		if m.onEvict != nil {
			m.onEvict()
		}
	}
	m.mu.Unlock()

	if !ok {
		m.misses.Add(1)
		return nil, false
	}
	m.hits.Add(1)
	return entry.rs, true
}

// Put inserts a result set, evicting the oldest entry when the cache is
// full.
func (m *Memory) Put(ctx context.Context, key Key, rs *executor.ResultSet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[key]; !exists {
		m.order = append(m.order, key)
	}
	m.entries[key] = memoryEntry{rs: rs, insertedAt: time.Now()}
	for len(m.entries) > m.maxSize && len(m.order) > 0 {
		oldest := m.order[0]
		m.order = m.order[1:]
		if _, ok := m.entries[oldest]; ok {
			delete(m.entries, oldest)
			m.evicted.Add(1)
			if m.onEvict != nil {
				m.onEvict()
			}
		}
	}
}

// dropOrder removes key from the insertion-order slice so expired entries
// do not accumulate there. The caller holds mu.
func (m *Memory) dropOrder(key Key) {
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}

// Clear drops all entries.
func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[Key]memoryEntry)
	m.order = m.order[:0]
	return nil
}

// Stats returns cumulative hit and miss counts.
func (m *Memory) Stats() (hits, misses int64) {
	return m.hits.Load(), m.misses.Load()
}

// Len returns the current entry count.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
