package domain

import (
	"strings"

	"github.com/google/uuid"
)

// NewSubmission builds a SubmissionRequest, stamping CreatedAt and assigning
// a fresh idempotency key when the client did not supply one. Validation
// mirrors Normalize: a submission that would fail normalization server-side
// is rejected before it can occupy queue space.
func NewSubmission(name string, category Category, loc LatLon, address, note, idempotencyKey string) (SubmissionRequest, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return SubmissionRequest{}, &NormalizationError{Field: "name", Reason: "empty"}
	}
	if !ValidCoordinates(loc) {
		return SubmissionRequest{}, &NormalizationError{Field: "location", Reason: "coordinates out of range"}
	}
	if _, ok := ParseCategory(string(category)); !ok {
		category = CategoryUnknown
	}
	if idempotencyKey = strings.TrimSpace(idempotencyKey); idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}

	return SubmissionRequest{
		Name:              name,
		Category:          category,
		Location:          loc,
		Address:           strings.TrimSpace(address),
		AccessibilityNote: strings.TrimSpace(note),
		IdempotencyKey:    idempotencyKey,
		CreatedAt:         clock.Now().UTC(),
	}, nil
}
