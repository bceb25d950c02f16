// Package query evaluates discovery searches against the spatial index. The
// engine is a read-only projection: it never mutates the index or cache, and
// an empty result set is a valid outcome, not an error.
package query

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/couchcryptid/facility-discovery/internal/domain"
	"github.com/couchcryptid/facility-discovery/internal/index"
)

// Engine applies radius, category, text, and state filters in order of
// cheapest rejection first, then ranks the survivors.
type Engine struct {
	grid            *index.Grid
	defaultRadiusKm float64
	maxRadiusKm     float64
}

// New creates an Engine over grid. defaultRadiusKm fills in a zero radius;
// maxRadiusKm caps oversized ones.
func New(grid *index.Grid, defaultRadiusKm, maxRadiusKm float64) *Engine {
	return &Engine{grid: grid, defaultRadiusKm: defaultRadiusKm, maxRadiusKm: maxRadiusKm}
}

// Query runs one search. Results are ordered by ascending distance from the
// origin (ties by ascending ID), or by name when the spec has no origin.
// A malformed spec returns a *domain.QueryError before the index is touched.
func (e *Engine) Query(ctx context.Context, spec domain.QuerySpec) ([]domain.Facility, error) {
	spec, err := e.validate(spec)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if spec.Origin == nil {
		return e.browse(spec), nil
	}

	matches := e.grid.Within(*spec.Origin, spec.RadiusKm, spec.Categories)
	matches = filterMatches(matches, spec)

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].DistanceKm != matches[j].DistanceKm {
			return matches[i].DistanceKm < matches[j].DistanceKm
		}
		return matches[i].Facility.ID < matches[j].Facility.ID
	})

	out := make([]domain.Facility, len(matches))
	for i, m := range matches {
		out[i] = m.Facility
	}
	return out, nil
}

// validate normalizes the spec, applying the default radius and the cap. A
// negative radius is malformed whether or not an origin accompanies it.
func (e *Engine) validate(spec domain.QuerySpec) (domain.QuerySpec, error) {
	if spec.RadiusKm < 0 {
		return spec, &domain.QueryError{Reason: fmt.Sprintf("negative radius: %v", spec.RadiusKm)}
	}
	if spec.Origin != nil {
		if !domain.ValidCoordinates(*spec.Origin) {
			return spec, &domain.QueryError{Reason: fmt.Sprintf("origin out of range: %v,%v", spec.Origin.Lat, spec.Origin.Lon)}
		}
		if spec.RadiusKm == 0 {
			spec.RadiusKm = e.defaultRadiusKm
		}
		if spec.RadiusKm > e.maxRadiusKm {
			spec.RadiusKm = e.maxRadiusKm
		}
	}
	return spec, nil
}

// browse handles origin-less searches (state-wide or text-only), ordered by
// name ascending.
func (e *Engine) browse(spec domain.QuerySpec) []domain.Facility {
	out := make([]domain.Facility, 0)
	for _, f := range e.grid.Filter(spec.Categories) {
		if matchesText(f, spec.TextQuery) && matchesState(f, spec.StateFilter) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func filterMatches(matches []index.Match, spec domain.QuerySpec) []index.Match {
	kept := matches[:0]
	for _, m := range matches {
		if matchesText(m.Facility, spec.TextQuery) && matchesState(m.Facility, spec.StateFilter) {
			kept = append(kept, m)
		}
	}
	return kept
}

// matchesText is a case-insensitive substring match against name or address.
func matchesText(f domain.Facility, text string) bool {
	if text == "" {
		return true
	}
	text = strings.ToLower(text)
	return strings.Contains(strings.ToLower(f.Name), text) ||
		strings.Contains(strings.ToLower(f.Address), text)
}

// matchesState checks the state filter by containment against the address.
// Raw data does not always carry a normalized state code, so this matches
// the address text rather than a structured field.
func matchesState(f domain.Facility, state string) bool {
	if state == "" {
		return true
	}
	return strings.Contains(strings.ToLower(f.Address), strings.ToLower(state))
}
