/*
snapshot.go - Capacity snapshot derivation

PURPOSE:
  Aggregates the capacity picture for a property/range/room-type: total
  bookable units, confirmed and pending demand, and the derived available /
  overbooked numbers. The snapshot is a value computed on demand - it is
  never persisted and never cached (see store.go).

FORMULAS:
  AvailableRooms   = max(0, total - confirmed)
  OverbookingCount = max(0, confirmed + pending - total)
  OverbookingPct   = OverbookingCount / total * 100

ZERO CAPACITY:
  total == 0 is a degenerate case (property with no active rooms of the
  requested type). The percentage is defined as 0 and the risk fields are
  left for the classifier, which escalates to critical when demand exists.
*/
package admission

import "context"

// Snapshotter computes RiskAnalysis values from live collaborator data.
type Snapshotter struct {
	Inventory InventoryStore
	Conflicts *ConflictDetector
}

// Snapshot computes the capacity picture for rng. Risk level and
// recommendations are filled by the caller (decider or monitor) because they
// depend on the resolved rule, which the snapshot deliberately knows nothing
// about.
func (s *Snapshotter) Snapshot(ctx context.Context, propertyID PropertyID, roomTypeID RoomTypeID, rng DateRange) (RiskAnalysis, error) {
	if propertyID == "" {
		return RiskAnalysis{}, ErrMissingProperty
	}
	if err := rng.Validate(); err != nil {
		return RiskAnalysis{}, err
	}

	total, err := s.Inventory.ActiveUnitCount(ctx, propertyID, roomTypeID)
	if err != nil {
		return RiskAnalysis{}, &StorageError{Op: "inventory.ActiveUnitCount", Err: err}
	}

	counts, err := s.Conflicts.CountOverlapping(ctx, propertyID, roomTypeID, rng)
	if err != nil {
		return RiskAnalysis{}, err
	}

	return RiskAnalysis{
		PropertyID:        propertyID,
		RoomTypeID:        roomTypeID,
		Range:             rng,
		TotalRooms:        total,
		ConfirmedBookings: counts.Confirmed,
		PendingBookings:   counts.Pending,
		AvailableRooms:    maxInt(0, total-counts.Confirmed),
		OverbookingCount:  overbookingCount(counts.Confirmed, counts.Pending, total),
		OverbookingPct:    overbookingPct(overbookingCount(counts.Confirmed, counts.Pending, total), total),
	}, nil
}

// overbookingCount is max(0, confirmed + pending - total).
func overbookingCount(confirmed, pending, total int) int {
	return maxInt(0, confirmed+pending-total)
}

// overbookingPct never divides by zero: zero capacity yields 0 and the
// classifier handles escalation.
func overbookingPct(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
