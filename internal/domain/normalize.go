package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// RawRecord is the provider-agnostic shape adapters hand to Normalize. Each
// adapter maps its wire payload into this struct; Normalize owns validation
// and canonicalization.
type RawRecord struct {
	LocalID    string   `json:"local_id,omitempty"`
	Name       string   `json:"name"`
	Type       string   `json:"type"` // provider-native type string
	Latitude   float64  `json:"latitude"`
	Longitude  float64  `json:"longitude"`
	Street     string   `json:"street,omitempty"`
	City       string   `json:"city,omitempty"`
	State      string   `json:"state,omitempty"`
	Zip        string   `json:"zip,omitempty"`
	Accessible *bool    `json:"accessible,omitempty"`
	Rating     *float64 `json:"rating,omitempty"`
	Hours      string   `json:"hours,omitempty"`
	OpenNow    *bool    `json:"open_now,omitempty"`
}

// Normalize converts a raw provider record into a canonical Facility, or a
// *NormalizationError naming the missing or invalid required field.
//
// Normalize is a pure function: the same input always yields the same output.
// fetchedAt is supplied by the caller rather than read from a clock so the
// function stays deterministic and testable.
func Normalize(rec RawRecord, provider Provider, fetchedAt time.Time) (Facility, error) {
	name := strings.TrimSpace(rec.Name)
	if name == "" {
		return Facility{}, &NormalizationError{Provider: provider, Field: "name", Reason: "empty"}
	}

	loc := LatLon{Lat: rec.Latitude, Lon: rec.Longitude}
	if !ValidCoordinates(loc) {
		return Facility{}, &NormalizationError{
			Provider: provider,
			Field:    "location",
			Reason:   fmt.Sprintf("coordinates out of range: %v,%v", rec.Latitude, rec.Longitude),
		}
	}

	// Unmapped types become CategoryUnknown, never a dropped record. Callers
	// log the miss so the mapping table can be extended.
	category, _ := CategoryFor(provider, strings.TrimSpace(rec.Type))

	f := Facility{
		ID:        buildID(provider, rec.LocalID, name, loc),
		Category:  category,
		Name:      name,
		Location:  loc,
		Address:   buildAddress(name, rec),
		Hours:     strings.TrimSpace(rec.Hours),
		OpenNow:   rec.OpenNow,
		Provider:  provider,
		FetchedAt: fetchedAt,
	}

	if rec.Accessible != nil {
		f.Accessible = *rec.Accessible
	}
	if rec.Rating != nil {
		f.Rating = clampRating(*rec.Rating)
	}

	return f, nil
}

// buildID produces the globally unique facility ID. Provider-local IDs are
// prefixed ("hrsa_0042"); records without one hash their identifying fields
// so the same underlying record keeps the same ID across refetches.
func buildID(provider Provider, localID, name string, loc LatLon) string {
	if localID = strings.TrimSpace(localID); localID != "" {
		return fmt.Sprintf("%s_%s", provider, localID)
	}
	input := fmt.Sprintf("%s|%s|%.5f|%.5f", provider, name, loc.Lat, loc.Lon)
	hash := sha256.Sum256([]byte(input))
	return fmt.Sprintf("%s_%s", provider, hex.EncodeToString(hash[:8]))
}

// buildAddress assembles a display address from the structured parts, or
// synthesizes "<name> area" when the provider supplies none, so the field is
// always present for display and text search.
func buildAddress(name string, rec RawRecord) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{rec.Street, rec.City, rec.State, rec.Zip} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return name + " area"
	}
	return strings.Join(parts, ", ")
}

// clampRating bounds a provider rating to [0, 5]. Out-of-range values are
// clamped, never accepted as-is.
func clampRating(r float64) *float64 {
	switch {
	case r < 0:
		r = 0
	case r > 5:
		r = 5
	}
	return &r
}
