package domain

import (
	"errors"
	"fmt"
)

// NormalizationError reports a raw record rejected at the normalization
// boundary. It names the offending field so batch callers can log and skip
// the one record while the rest of the batch continues.
type NormalizationError struct {
	Provider Provider
	Field    string
	Reason   string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalize %s record: field %q: %s", e.Provider, e.Field, e.Reason)
}

// QueryError reports a malformed QuerySpec, rejected before the index is
// touched. An empty result set is not a QueryError.
type QueryError struct {
	Reason string
}

func (e *QueryError) Error() string {
	return "invalid query: " + e.Reason
}

// ErrQueueFull is returned by the offline queue when a new submission would
// exceed capacity. The new item is rejected; queued items are never silently
// dropped in its favor.
var ErrQueueFull = errors.New("offline submission queue is full")

// Remote provider error taxonomy. Adapters wrap transport-specific failures
// into these sentinels so the core can branch without knowing the transport.
var (
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrRateLimited         = errors.New("provider rate limited")
	ErrInvalidResponse     = errors.New("provider returned an invalid response")
)
