package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/couchcryptid/facility-discovery/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTTL = 5 * time.Minute

func fac(id string, fetchedAt time.Time) domain.Facility {
	return domain.Facility{
		ID:        id,
		Category:  domain.CategoryRestroom,
		Name:      "Facility " + id,
		Location:  domain.LatLon{Lat: 30, Lon: -97},
		Address:   "Facility " + id + " area",
		Provider:  domain.ProviderHRSA,
		FetchedAt: fetchedAt,
	}
}

func TestManager_PutGetRoundTrip(t *testing.T) {
	clk := clockwork.NewFakeClock()
	m := New(testTTL, 10, clk)

	f := fac("hrsa_1", clk.Now())
	m.Put([]domain.Facility{f})

	got, state, ok := m.Get("hrsa_1")
	require.True(t, ok)
	assert.Equal(t, f, got)
	assert.Equal(t, StateFresh, state)

	_, _, ok = m.Get("hrsa_missing")
	assert.False(t, ok)
}

func TestManager_UpsertReplacesByID(t *testing.T) {
	clk := clockwork.NewFakeClock()
	m := New(testTTL, 10, clk)

	m.Put([]domain.Facility{fac("hrsa_1", clk.Now())})
	updated := fac("hrsa_1", clk.Now())
	updated.Name = "Renamed"
	m.Put([]domain.Facility{updated})

	got, _, ok := m.Get("hrsa_1")
	require.True(t, ok)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, 1, m.Len())
}

func TestManager_CapacityInvariant(t *testing.T) {
	clk := clockwork.NewFakeClock()
	var evicted []string
	m := New(testTTL, 3, clk, WithEvictFunc(func(id string) { evicted = append(evicted, id) }))

	for i := 0; i < 10; i++ {
		m.Put([]domain.Facility{fac(fmt.Sprintf("hrsa_%d", i), clk.Now().Add(time.Duration(i)*time.Second))})
		assert.LessOrEqual(t, m.Len(), 3, "after put %d", i)
	}

	assert.Equal(t, 3, m.Len())
	assert.Len(t, evicted, 7)
	// The oldest FetchedAt goes first.
	assert.Equal(t, "hrsa_0", evicted[0])
	assert.Equal(t, "hrsa_1", evicted[1])
}

func TestManager_EvictionTiesBrokenByInsertionOrder(t *testing.T) {
	clk := clockwork.NewFakeClock()
	var evicted []string
	m := New(testTTL, 2, clk, WithEvictFunc(func(id string) { evicted = append(evicted, id) }))

	at := clk.Now()
	m.Put([]domain.Facility{fac("hrsa_first", at)})
	m.Put([]domain.Facility{fac("hrsa_second", at)})
	m.Put([]domain.Facility{fac("hrsa_third", at)})

	assert.Equal(t, []string{"hrsa_first"}, evicted)
	_, _, ok := m.Get("hrsa_second")
	assert.True(t, ok)
}

func TestManager_StaleAfterTTL(t *testing.T) {
	clk := clockwork.NewFakeClock()
	m := New(testTTL, 10, clk)

	m.Put([]domain.Facility{fac("hrsa_1", clk.Now())})
	clk.Advance(testTTL - time.Second)
	_, state, _ := m.Get("hrsa_1")
	assert.Equal(t, StateFresh, state)

	clk.Advance(2 * time.Second)
	got, state, ok := m.Get("hrsa_1")
	require.True(t, ok, "stale entries are still served")
	assert.Equal(t, StateStale, state)
	assert.Equal(t, "hrsa_1", got.ID)
}

func TestManager_SweepExpired(t *testing.T) {
	clk := clockwork.NewFakeClock()
	var notified []string
	m := New(testTTL, 10, clk, WithStaleFunc(func(ids []string) { notified = append(notified, ids...) }))

	m.Put([]domain.Facility{
		fac("hrsa_old_a", clk.Now()),
		fac("hrsa_old_b", clk.Now()),
	})
	clk.Advance(2 * time.Minute)
	m.Put([]domain.Facility{fac("hrsa_new", clk.Now())})

	assert.Equal(t, 0, m.SweepExpired())
	assert.Empty(t, notified)

	clk.Advance(4 * time.Minute) // old entries now past TTL, new one is not

	assert.Equal(t, 2, m.SweepExpired())
	assert.Equal(t, []string{"hrsa_old_a", "hrsa_old_b"}, notified)

	// A second sweep does not re-notify entries already marked stale.
	assert.Equal(t, 0, m.SweepExpired())
	assert.Len(t, notified, 2)
}

func TestManager_PutResetsStaleness(t *testing.T) {
	clk := clockwork.NewFakeClock()
	m := New(testTTL, 10, clk)

	m.Put([]domain.Facility{fac("hrsa_1", clk.Now())})
	clk.Advance(testTTL + time.Second)
	require.Equal(t, 1, m.SweepExpired())

	// Refresh the entry with a new fetch timestamp.
	m.Put([]domain.Facility{fac("hrsa_1", clk.Now())})
	_, state, _ := m.Get("hrsa_1")
	assert.Equal(t, StateFresh, state)
	assert.Equal(t, 0, m.SweepExpired())

	clk.Advance(testTTL + time.Second)
	assert.Equal(t, 1, m.SweepExpired(), "refreshed entry goes stale again after a full TTL")
}

func TestManager_RemoveAndSnapshot(t *testing.T) {
	clk := clockwork.NewFakeClock()
	m := New(testTTL, 10, clk)

	m.Put([]domain.Facility{fac("hrsa_1", clk.Now()), fac("hrsa_2", clk.Now())})
	assert.True(t, m.Remove("hrsa_1"))
	assert.False(t, m.Remove("hrsa_1"))

	snap := m.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "hrsa_2", snap[0].ID)
}
