package types

import (
	"errors"
	"fmt"
)

// VenueErrorKind classifies adapter-boundary failures.
type VenueErrorKind string

const (
	VenueErrTimeout       VenueErrorKind = "TIMEOUT"
	VenueErrRateLimited   VenueErrorKind = "RATE_LIMITED"
	VenueErrUnavailable   VenueErrorKind = "VENUE_UNAVAILABLE"
	VenueErrInvalidSymbol VenueErrorKind = "INVALID_SYMBOL"
	VenueErrRejected      VenueErrorKind = "REJECTED"
	VenueErrPartialOnly   VenueErrorKind = "PARTIAL_ONLY"
)

// VenueError is a typed adapter error. Adapters never surface raw
// transport errors; transient failures are wrapped so callers can decide
// on retry and rerouting without string matching.
type VenueError struct {
	Venue string
	Kind  VenueErrorKind
	Err   error
}

func (e *VenueError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("venue %s: %s: %v", e.Venue, e.Kind, e.Err)
	}
	return fmt.Sprintf("venue %s: %s", e.Venue, e.Kind)
}

func (e *VenueError) Unwrap() error {
	return e.Err
}

// NewVenueError wraps err with a venue and a kind.
func NewVenueError(venue string, kind VenueErrorKind, err error) *VenueError {
	return &VenueError{Venue: venue, Kind: kind, Err: err}
}

// VenueErrorKindOf extracts the kind from an error chain.
func VenueErrorKindOf(err error) (VenueErrorKind, bool) {
	var ve *VenueError
	if errors.As(err, &ve) {
		return ve.Kind, true
	}
	return "", false
}

// IsRetryable reports whether an adapter call may be retried. Rejections
// and invalid symbols are deterministic and never retried.
func IsRetryable(err error) bool {
	kind, ok := VenueErrorKindOf(err)
	if !ok {
		return false
	}
	switch kind {
	case VenueErrTimeout, VenueErrRateLimited, VenueErrUnavailable:
		return true
	default:
		return false
	}
}

// CountsTowardOffline reports whether a failure advances the
// consecutive-failure counter that transitions a venue offline.
func CountsTowardOffline(kind VenueErrorKind) bool {
	return kind == VenueErrTimeout || kind == VenueErrUnavailable
}
