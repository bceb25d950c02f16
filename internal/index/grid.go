// Package index provides an in-memory spatial index over facilities, bucketed
// into one-degree latitude/longitude cells with per-category ID sets. A
// radius query scans only the cells intersecting the radius bounding box and
// applies the exact great-circle filter to those candidates, so cost scales
// with candidate count rather than total facilities.
package index

import (
	"math"
	"sync"

	"github.com/couchcryptid/facility-discovery/internal/domain"
)

// cellKey identifies a one-degree grid cell by truncated coordinates.
type cellKey struct {
	lat int
	lon int
}

func cellFor(loc domain.LatLon) cellKey {
	lon := int(math.Floor(loc.Lon))
	if lon == 180 { // +180 and -180 are the same meridian
		lon = -180
	}
	return cellKey{lat: int(math.Floor(loc.Lat)), lon: lon}
}

// Match pairs a facility with its exact distance from a query origin.
type Match struct {
	Facility   domain.Facility
	DistanceKm float64
}

// Grid is the spatial index. Insert and Remove are O(1) amortized: one map
// update in the owning cell bucket and one in the category bucket.
type Grid struct {
	mu         sync.RWMutex
	facilities map[string]domain.Facility
	cells      map[cellKey]map[string]struct{}
	byCategory map[domain.Category]map[string]struct{}
}

func New() *Grid {
	return &Grid{
		facilities: make(map[string]domain.Facility),
		cells:      make(map[cellKey]map[string]struct{}),
		byCategory: make(map[domain.Category]map[string]struct{}),
	}
}

// Insert adds or replaces a facility by ID.
func (g *Grid) Insert(f domain.Facility) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if old, ok := g.facilities[f.ID]; ok {
		g.unlink(old)
	}
	g.facilities[f.ID] = f

	cell := cellFor(f.Location)
	if g.cells[cell] == nil {
		g.cells[cell] = make(map[string]struct{})
	}
	g.cells[cell][f.ID] = struct{}{}

	if g.byCategory[f.Category] == nil {
		g.byCategory[f.Category] = make(map[string]struct{})
	}
	g.byCategory[f.Category][f.ID] = struct{}{}
}

// Remove deletes a facility by ID, reporting whether it was present.
func (g *Grid) Remove(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	f, ok := g.facilities[id]
	if !ok {
		return false
	}
	g.unlink(f)
	delete(g.facilities, id)
	return true
}

// unlink drops f from its cell and category buckets. Callers hold the lock.
func (g *Grid) unlink(f domain.Facility) {
	cell := cellFor(f.Location)
	if bucket := g.cells[cell]; bucket != nil {
		delete(bucket, f.ID)
		if len(bucket) == 0 {
			delete(g.cells, cell)
		}
	}
	if bucket := g.byCategory[f.Category]; bucket != nil {
		delete(bucket, f.ID)
		if len(bucket) == 0 {
			delete(g.byCategory, f.Category)
		}
	}
}

// Get returns the indexed facility with the given ID.
func (g *Grid) Get(id string) (domain.Facility, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	f, ok := g.facilities[id]
	return f, ok
}

// Len returns the number of indexed facilities.
func (g *Grid) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.facilities)
}

// Within returns every facility within radiusKm of origin, restricted to the
// given categories when non-empty. Results are unordered; callers sort.
func (g *Grid) Within(origin domain.LatLon, radiusKm float64, categories []domain.Category) []Match {
	g.mu.RLock()
	defer g.mu.RUnlock()

	allowed := g.categorySet(categories)
	box := domain.BoundsForRadius(origin, radiusKm)

	var matches []Match
	scan := func(lonFrom, lonTo int) {
		for lat := int(math.Floor(box.MinLat)); lat <= int(math.Floor(box.MaxLat)); lat++ {
			for lon := lonFrom; lon <= lonTo; lon++ {
				for id := range g.cells[cellKey{lat: lat, lon: lon}] {
					if allowed != nil {
						if _, ok := allowed[id]; !ok {
							continue
						}
					}
					f := g.facilities[id]
					if d := domain.Haversine(origin, f.Location); d <= radiusKm {
						matches = append(matches, Match{Facility: f, DistanceKm: d})
					}
				}
			}
		}
	}

	if box.Wraps() {
		// The box crosses the antimeridian: scan up to the seam, then from
		// the far side.
		scan(int(math.Floor(box.MinLon)), 179)
		scan(-180, int(math.Floor(box.MaxLon)))
	} else {
		scan(int(math.Floor(box.MinLon)), int(math.Floor(box.MaxLon)))
	}
	return matches
}

// Filter returns all facilities in the given categories (all facilities when
// empty), unordered. Used for region-wide browsing without an origin.
func (g *Grid) Filter(categories []domain.Category) []domain.Facility {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if len(categories) == 0 {
		out := make([]domain.Facility, 0, len(g.facilities))
		for _, f := range g.facilities {
			out = append(out, f)
		}
		return out
	}

	var out []domain.Facility
	for id := range g.categorySet(categories) {
		out = append(out, g.facilities[id])
	}
	return out
}

// categorySet unions the ID buckets for the requested categories. A nil
// return means no category restriction. Callers hold the lock.
func (g *Grid) categorySet(categories []domain.Category) map[string]struct{} {
	if len(categories) == 0 {
		return nil
	}
	set := make(map[string]struct{})
	for _, c := range categories {
		for id := range g.byCategory[c] {
			set[id] = struct{}{}
		}
	}
	return set
}
