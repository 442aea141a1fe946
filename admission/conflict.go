/*
conflict.go - Interval conflict detection

PURPOSE:
  Counts existing reservations whose date ranges overlap a candidate range,
  partitioned by status. This is the leaf of the admission pipeline: every
  capacity number upstream derives from these counts.

OVERLAP RULE:
  Ranges are half-open [from, to). R overlaps the candidate iff
  R.From < to AND R.To > from. A checkout on the same day as a new
  check-in is NOT a conflict (same-day turnover).

PURITY:
  No side effects, no caching. Cancelled reservations are excluded
  unconditionally, both here and in well-behaved stores - the double
  filter is the invariant, not a redundancy.
*/
package admission

import "context"

// ConflictDetector counts overlapping demand for a candidate range.
type ConflictDetector struct {
	Reservations ReservationStore
}

// CountOverlapping returns confirmed and pending reservation counts whose
// ranges overlap rng. The candidate range must already be validated; an
// invalid range is a caller bug and is rejected here as ErrInvalidRange.
func (cd *ConflictDetector) CountOverlapping(ctx context.Context, propertyID PropertyID, roomTypeID RoomTypeID, rng DateRange) (Overlap, error) {
	if propertyID == "" {
		return Overlap{}, ErrMissingProperty
	}
	if err := rng.Validate(); err != nil {
		return Overlap{}, err
	}

	existing, err := cd.Reservations.FindOverlapping(ctx, propertyID, roomTypeID, rng)
	if err != nil {
		return Overlap{}, &StorageError{Op: "reservations.FindOverlapping", Err: err}
	}

	var counts Overlap
	for _, r := range existing {
		if !r.Range.Overlaps(rng) {
			continue
		}
		switch r.Status {
		case StatusConfirmed:
			counts.Confirmed++
		case StatusPending:
			counts.Pending++
		case StatusCancelled:
			// Never counts toward capacity.
		}
	}
	return counts, nil
}
