// Package cache stores normalized facilities with per-entry TTL and a hard
// entry-count ceiling. Entries move Fresh → Stale → Evicted: stale entries
// are still served to callers that accept staleness, while a sweep
// notification asks the surrounding service to refresh them.
package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/couchcryptid/facility-discovery/internal/domain"
	"github.com/jonboulle/clockwork"
)

// State classifies a cache entry by age.
type State int

const (
	StateFresh State = iota
	StateStale
)

func (s State) String() string {
	if s == StateStale {
		return "stale"
	}
	return "fresh"
}

// StaleFunc receives the IDs of entries that transitioned to Stale during a
// sweep, so the owner can schedule a background refresh.
type StaleFunc func(ids []string)

// EvictFunc receives the ID of each entry evicted to make room, so the owner
// can drop it from the spatial index as well.
type EvictFunc func(id string)

type entry struct {
	facility domain.Facility
	sweptAt  time.Time // zero until a sweep has marked the entry stale
	seq      uint64    // insertion order, breaks eviction ties
}

// Manager is the facility cache. All methods are safe for concurrent use;
// the entry count never exceeds maxEntries at any observable moment.
type Manager struct {
	mu         sync.Mutex
	entries    map[string]*entry
	ttl        time.Duration
	maxEntries int
	clock      clockwork.Clock
	seq        uint64

	onStale StaleFunc
	onEvict EvictFunc
}

// Option configures a Manager.
type Option func(*Manager)

// WithStaleFunc registers the staleness notification callback.
func WithStaleFunc(fn StaleFunc) Option {
	return func(m *Manager) { m.onStale = fn }
}

// WithEvictFunc registers the eviction propagation callback.
func WithEvictFunc(fn EvictFunc) Option {
	return func(m *Manager) { m.onEvict = fn }
}

// New creates a Manager with the given TTL and entry ceiling. Pass a fake
// clock in tests to control entry aging.
func New(ttl time.Duration, maxEntries int, clock clockwork.Clock, opts ...Option) *Manager {
	m := &Manager{
		entries:    make(map[string]*entry),
		ttl:        ttl,
		maxEntries: maxEntries,
		clock:      clock,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Put upserts a batch of facilities, replacing by ID. When an insert would
// exceed the entry ceiling, the least-recently-fetched entries (oldest
// FetchedAt, ties by insertion order) are evicted synchronously to make
// room; Put always accepts the new data. Returns the evicted IDs.
func (m *Manager) Put(batch []domain.Facility) []string {
	m.mu.Lock()
	var evicted []string
	for _, f := range batch {
		if e, ok := m.entries[f.ID]; ok {
			e.facility = f
			e.sweptAt = time.Time{}
			continue
		}
		if len(m.entries) >= m.maxEntries {
			evicted = append(evicted, m.evictOldest())
		}
		m.seq++
		m.entries[f.ID] = &entry{facility: f, seq: m.seq}
	}
	m.mu.Unlock()

	if m.onEvict != nil {
		for _, id := range evicted {
			m.onEvict(id)
		}
	}
	return evicted
}

// evictOldest removes the entry with the oldest FetchedAt (ties broken by
// insertion order) and returns its ID. Callers hold the lock and guarantee
// the cache is non-empty.
func (m *Manager) evictOldest() string {
	var victim *entry
	var victimID string
	for id, e := range m.entries {
		if victim == nil ||
			e.facility.FetchedAt.Before(victim.facility.FetchedAt) ||
			(e.facility.FetchedAt.Equal(victim.facility.FetchedAt) && e.seq < victim.seq) {
			victim, victimID = e, id
		}
	}
	delete(m.entries, victimID)
	return victimID
}

// Get returns the cached facility and its freshness state. Stale entries are
// returned; callers that require freshness check the state.
func (m *Manager) Get(id string) (domain.Facility, State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return domain.Facility{}, StateFresh, false
	}
	return e.facility, m.stateOf(e), true
}

// stateOf derives an entry's state from its age. Callers hold the lock.
func (m *Manager) stateOf(e *entry) State {
	if m.clock.Now().Sub(e.facility.FetchedAt) >= m.ttl {
		return StateStale
	}
	return StateFresh
}

// SweepExpired marks every aged-out entry as stale, fires the staleness
// notification for newly stale IDs, and returns how many entries
// transitioned on this sweep. Entries are not removed; they stay readable
// until a Put replaces them or eviction claims them.
func (m *Manager) SweepExpired() int {
	m.mu.Lock()
	now := m.clock.Now()
	var newlyStale []string
	for id, e := range m.entries {
		if e.sweptAt.IsZero() && m.stateOf(e) == StateStale {
			e.sweptAt = now
			newlyStale = append(newlyStale, id)
		}
	}
	m.mu.Unlock()

	if len(newlyStale) > 0 && m.onStale != nil {
		sort.Strings(newlyStale)
		m.onStale(newlyStale)
	}
	return len(newlyStale)
}

// Remove deletes an entry by ID, reporting whether it was present.
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[id]
	delete(m.entries, id)
	return ok
}

// Len returns the current entry count.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Snapshot returns a copy of all cached facilities, for persistence.
func (m *Manager) Snapshot() []domain.Facility {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Facility, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.facility)
	}
	return out
}
