/*
errors.go - Centralized error types for the admission engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The engine distinguishes three failure classes:
  1. Validation errors - malformed input, rejected before any storage access
  2. Configuration errors - malformed or unresolvable rules
  3. Storage errors - collaborator lookups failed

FAIL-CLOSED CONTRACT:
  Storage and configuration failures never propagate to the caller of
  Decide() as errors. They become a critical-risk deny with an escalation
  warning (see decider.go). The helpers here exist for the layers that DO
  surface errors: the HTTP handlers and the compensation ledger.

USAGE:
    if admission.IsClientError(err) {
        // 400, not 500
    }
*/
package admission

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidRange is returned for zero-length or inverted date ranges.
	ErrInvalidRange = errors.New("invalid date range: from must be before to")

	// ErrMissingProperty is returned when a property ID is absent.
	ErrMissingProperty = errors.New("property id is required")

	// ErrStoreUnavailable wraps inventory or reservation lookup failures.
	ErrStoreUnavailable = errors.New("storage unavailable")

	// ErrRuleNotFound is returned when no overbooking rule resolves for a
	// property. The decider treats this as a configuration fault (deny).
	ErrRuleNotFound = errors.New("overbooking rule not found")

	// ErrBookingNotFound is returned when a referenced booking doesn't exist.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrRoomTypeNotFound is returned when a referenced room type doesn't exist.
	ErrRoomTypeNotFound = errors.New("room type not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// StorageError wraps a collaborator failure with the lookup that failed.
type StorageError struct {
	Op  string // e.g. "inventory.ActiveUnitCount"
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage unavailable during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return ErrStoreUnavailable }

// ConfigWarning is a non-fatal rule configuration problem (e.g. overlapping
// seasonal ranges). It is logged, not raised: first-match stays authoritative.
type ConfigWarning struct {
	PropertyID PropertyID
	Detail     string
}

func (w ConfigWarning) String() string {
	return fmt.Sprintf("rule config for %s: %s", w.PropertyID, w.Detail)
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrMissingProperty) ||
		errors.Is(err, ErrBookingNotFound) ||
		errors.Is(err, ErrRoomTypeNotFound)
}

// IsRetryable reports whether the whole decision may be retried by the caller.
// The engine itself never retries (it is a pure decision function).
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
