package query

import (
	"context"
	"testing"
	"time"

	"github.com/couchcryptid/facility-discovery/internal/domain"
	"github.com/couchcryptid/facility-discovery/internal/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	defaultRadius = 5.0
	maxRadius     = 50.0
)

func newEngine(facilities ...domain.Facility) *Engine {
	g := index.New()
	for _, f := range facilities {
		g.Insert(f)
	}
	return New(g, defaultRadius, maxRadius)
}

func fac(id, name, address string, category domain.Category, lat, lon float64) domain.Facility {
	return domain.Facility{
		ID:        id,
		Category:  category,
		Name:      name,
		Location:  domain.LatLon{Lat: lat, Lon: lon},
		Address:   address,
		Provider:  domain.ProviderBundled,
		FetchedAt: time.Date(2026, time.March, 14, 0, 0, 0, 0, time.UTC),
	}
}

// The three-facility scenario: A at the origin, B ~1.1 km east, C far away.
func scenarioFacilities() []domain.Facility {
	return []domain.Facility{
		fac("bundled_a", "A", "A area", domain.CategoryRestroom, 0, 0),
		fac("bundled_b", "B", "B area", domain.CategoryRestroom, 0, 0.01),
		fac("bundled_c", "C", "C area", domain.CategoryRestroom, 10, 10),
	}
}

func scenarioEngine() *Engine {
	return newEngine(scenarioFacilities()...)
}

func TestEngine_RadiusOrdering(t *testing.T) {
	e := scenarioEngine()
	origin := &domain.LatLon{}

	t.Run("5 km returns A then B", func(t *testing.T) {
		got, err := e.Query(context.Background(), domain.QuerySpec{Origin: origin, RadiusKm: 5})
		require.NoError(t, err)
		assert.Equal(t, []string{"bundled_a", "bundled_b"}, ids(got))
	})

	t.Run("2000 km is capped but still reaches C via max radius only", func(t *testing.T) {
		// 2000 km exceeds the 50 km cap, so C (~1560 km away) stays out.
		got, err := e.Query(context.Background(), domain.QuerySpec{Origin: origin, RadiusKm: 2000})
		require.NoError(t, err)
		assert.Equal(t, []string{"bundled_a", "bundled_b"}, ids(got))
	})

	t.Run("uncapped engine returns all three in distance order", func(t *testing.T) {
		g := index.New()
		for _, f := range scenarioFacilities() {
			g.Insert(f)
		}
		wide := New(g, defaultRadius, 5000)
		got, err := wide.Query(context.Background(), domain.QuerySpec{Origin: origin, RadiusKm: 2000})
		require.NoError(t, err)
		assert.Equal(t, []string{"bundled_a", "bundled_b", "bundled_c"}, ids(got))
	})

	t.Run("every result is within the radius", func(t *testing.T) {
		got, err := e.Query(context.Background(), domain.QuerySpec{Origin: origin, RadiusKm: 3})
		require.NoError(t, err)
		for _, f := range got {
			assert.LessOrEqual(t, domain.Haversine(*origin, f.Location), 3.0+1e-9)
		}
	})
}

func TestEngine_DistanceTiesBrokenByID(t *testing.T) {
	e := newEngine(
		fac("bundled_z", "Z", "Z area", domain.CategoryRestroom, 0, 0.01),
		fac("bundled_y", "Y", "Y area", domain.CategoryRestroom, 0, -0.01),
	)
	got, err := e.Query(context.Background(), domain.QuerySpec{Origin: &domain.LatLon{}, RadiusKm: 5})
	require.NoError(t, err)
	assert.Equal(t, []string{"bundled_y", "bundled_z"}, ids(got))
}

func TestEngine_DefaultAndInvalidRadius(t *testing.T) {
	e := scenarioEngine()
	origin := &domain.LatLon{}

	t.Run("zero radius uses the default", func(t *testing.T) {
		got, err := e.Query(context.Background(), domain.QuerySpec{Origin: origin})
		require.NoError(t, err)
		assert.Equal(t, []string{"bundled_a", "bundled_b"}, ids(got))
	})

	t.Run("negative radius is a QueryError", func(t *testing.T) {
		_, err := e.Query(context.Background(), domain.QuerySpec{Origin: origin, RadiusKm: -1})
		var qerr *domain.QueryError
		require.ErrorAs(t, err, &qerr)
	})

	t.Run("negative radius without origin is still a QueryError", func(t *testing.T) {
		_, err := e.Query(context.Background(), domain.QuerySpec{RadiusKm: -1, StateFilter: "TX"})
		var qerr *domain.QueryError
		require.ErrorAs(t, err, &qerr)
	})

	t.Run("invalid origin is a QueryError", func(t *testing.T) {
		_, err := e.Query(context.Background(), domain.QuerySpec{Origin: &domain.LatLon{Lat: 95}})
		var qerr *domain.QueryError
		require.ErrorAs(t, err, &qerr)
	})
}

func TestEngine_CategoryAndTextFilters(t *testing.T) {
	e := newEngine(
		fac("bundled_r", "Plaza Restroom", "Main St, Austin, TX", domain.CategoryRestroom, 0, 0.001),
		fac("bundled_w", "Plaza Fountain", "Main St, Austin, TX", domain.CategoryWaterFountain, 0, 0.002),
		fac("hrsa_h", "Eastside Health Center", "5th St, Austin, TX", domain.CategoryHealthCenter, 0, 0.003),
	)
	origin := &domain.LatLon{}

	t.Run("category set", func(t *testing.T) {
		got, err := e.Query(context.Background(), domain.QuerySpec{
			Origin:     origin,
			RadiusKm:   5,
			Categories: []domain.Category{domain.CategoryWaterFountain, domain.CategoryHealthCenter},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"bundled_w", "hrsa_h"}, ids(got))
	})

	t.Run("text matches name case-insensitively", func(t *testing.T) {
		got, err := e.Query(context.Background(), domain.QuerySpec{Origin: origin, RadiusKm: 5, TextQuery: "plaza"})
		require.NoError(t, err)
		assert.Equal(t, []string{"bundled_r", "bundled_w"}, ids(got))
	})

	t.Run("text matches address", func(t *testing.T) {
		got, err := e.Query(context.Background(), domain.QuerySpec{Origin: origin, RadiusKm: 5, TextQuery: "5th st"})
		require.NoError(t, err)
		assert.Equal(t, []string{"hrsa_h"}, ids(got))
	})

	t.Run("no match is empty, not an error", func(t *testing.T) {
		got, err := e.Query(context.Background(), domain.QuerySpec{Origin: origin, RadiusKm: 5, TextQuery: "zzz"})
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestEngine_BrowseWithoutOrigin(t *testing.T) {
	e := newEngine(
		fac("bundled_2", "Beta Restroom", "Houston, TX", domain.CategoryRestroom, 29.76, -95.36),
		fac("bundled_1", "Alpha Restroom", "Austin, TX", domain.CategoryRestroom, 30.26, -97.74),
		fac("bundled_3", "Gamma Restroom", "Tulsa, OK", domain.CategoryRestroom, 36.15, -95.99),
	)

	t.Run("state filter, ordered by name", func(t *testing.T) {
		got, err := e.Query(context.Background(), domain.QuerySpec{StateFilter: "TX"})
		require.NoError(t, err)
		assert.Equal(t, []string{"bundled_1", "bundled_2"}, ids(got))
	})

	t.Run("text only", func(t *testing.T) {
		got, err := e.Query(context.Background(), domain.QuerySpec{TextQuery: "gamma"})
		require.NoError(t, err)
		assert.Equal(t, []string{"bundled_3"}, ids(got))
	})
}

func TestEngine_CancelledContext(t *testing.T) {
	e := scenarioEngine()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Query(ctx, domain.QuerySpec{Origin: &domain.LatLon{}, RadiusKm: 5})
	assert.ErrorIs(t, err, context.Canceled)
}

func ids(fs []domain.Facility) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.ID
	}
	return out
}
