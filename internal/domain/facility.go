package domain

import "time"

// Provider identifies the upstream source of a facility record. It is part of
// the facility ID, so two providers reporting the same physical site produce
// two records; cross-provider deduplication is deliberately not attempted.
type Provider string

const (
	ProviderBundled Provider = "bundled"
	ProviderHRSA    Provider = "hrsa"
	ProviderVA      Provider = "va"
	ProviderUSDA    Provider = "usda"
)

// LatLon is a WGS-84 coordinate pair.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Facility is the canonical normalized record served to callers. It is
// immutable once normalized; a refetch replaces the record wholesale.
type Facility struct {
	ID         string   `json:"id"`
	Category   Category `json:"category"`
	Name       string   `json:"name"`
	Location   LatLon   `json:"location"`
	Address    string   `json:"address"`
	Accessible bool     `json:"accessible"`
	Rating     *float64 `json:"rating,omitempty"`
	OpenNow    *bool    `json:"open_now,omitempty"`
	Hours      string   `json:"hours,omitempty"`
	Provider   Provider `json:"provider"`

	// FetchedAt drives cache TTL. Supplied by the caller of Normalize, not
	// generated internally, so normalization stays deterministic.
	FetchedAt time.Time `json:"fetched_at"`
}

// QuerySpec describes one discovery search.
type QuerySpec struct {
	// Origin anchors the radius search. When nil, RadiusKm is ignored and
	// results are ordered by name instead of distance.
	Origin      *LatLon
	RadiusKm    float64
	Categories  []Category
	StateFilter string
	TextQuery   string
}

// SubmissionRequest is a user-submitted facility that has not been normalized
// yet. It lives in the offline queue until delivered or evicted.
type SubmissionRequest struct {
	Name              string   `json:"name"`
	Category          Category `json:"category"`
	Location          LatLon   `json:"location"`
	Address           string   `json:"address,omitempty"`
	AccessibilityNote string   `json:"accessibility_note,omitempty"`

	// IdempotencyKey is client-generated and passed through unchanged on
	// every delivery attempt, so a retry after a lost acknowledgment does
	// not duplicate the submission server-side.
	IdempotencyKey string    `json:"idempotency_key"`
	CreatedAt      time.Time `json:"created_at"`
}

// DrainReport summarizes one offline-queue drain cycle. A partially failed
// drain is reported here, never surfaced as an error.
type DrainReport struct {
	Succeeded   int `json:"succeeded"`
	Failed      int `json:"failed"`
	StillQueued int `json:"still_queued"`
}
