package models

import "errors"

var (
	// ErrNotFound is returned when a requested resource is not found.
	ErrNotFound = errors.New("resource not found")

	// ErrDuplicateAssignment is returned when an assignment is attempted for
	// an order that already has a non-cancelled delivery.
	ErrDuplicateAssignment = errors.New("an active delivery already exists for this order")

	// ErrInvalidTransition is returned when a status update does not follow
	// the delivery state machine (regression, skipped step, or a move out of
	// a terminal state).
	ErrInvalidTransition = errors.New("illegal delivery status transition")

	// ErrUnknownStatus is returned when a status value outside the
	// enumerated set is submitted.
	ErrUnknownStatus = errors.New("unknown delivery status")

	// ErrDriverUnavailable is returned when the requested driver already has
	// an active delivery or is offline.
	ErrDriverUnavailable = errors.New("driver is not available for assignment")

	// ErrInvalidCoordinates is returned when a reported location is not a
	// [longitude, latitude] pair within valid bounds.
	ErrInvalidCoordinates = errors.New("coordinates out of range")

	// ErrStoreUnavailable is returned when the persistence layer stays
	// unreachable after retries are exhausted.
	ErrStoreUnavailable = errors.New("delivery store unavailable")
)

// ErrorResponse is the JSON error body returned by all handlers.
type ErrorResponse struct {
	Message string `json:"message"`
}

// ValidateCoordinates checks that loc is a two-element [longitude, latitude]
// pair with longitude in [-180, 180] and latitude in [-90, 90].
func ValidateCoordinates(loc []float64) error {
	if len(loc) != 2 {
		return ErrInvalidCoordinates
	}
	lon, lat := loc[0], loc[1]
	if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return ErrInvalidCoordinates
	}
	return nil
}
