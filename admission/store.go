/*
store.go - Collaborator interfaces consumed by the engine

PURPOSE:
  Defines the read contracts between the decision engine and the storage it
  does not own. Rooms and reservations live in external storage; the engine
  only reads them. The one writer in this repo, the compensation ledger,
  has its own store interface in the compensation package.

NO CACHING:
  Implementations must answer from current data on every call. Caching counts
  across calls widens the check-then-act race window described in guard/.

IMPLEMENTATIONS:
  - store/sqlite:         production SQLite
  - admission/store:      in-memory, for tests and dev runs
*/
package admission

import "context"

// =============================================================================
// INVENTORY - Bookable unit counts
// =============================================================================

// InventoryStore answers how many units are physically bookable right now.
type InventoryStore interface {
	// ActiveUnitCount returns the number of active, bookable rooms for the
	// property, optionally scoped to a room type (empty = all types).
	// Out-of-service and maintenance rooms are excluded.
	ActiveUnitCount(ctx context.Context, propertyID PropertyID, roomTypeID RoomTypeID) (int, error)
}

// =============================================================================
// RESERVATIONS - Overlap queries and persistence
// =============================================================================

// ReservationStore is the booking-overlap primitive plus the minimal write
// surface the guarded admit path needs.
type ReservationStore interface {
	// FindOverlapping returns non-cancelled reservations whose half-open range
	// overlaps rng, optionally scoped to a room type (empty = all types).
	FindOverlapping(ctx context.Context, propertyID PropertyID, roomTypeID RoomTypeID, rng DateRange) ([]Reservation, error)

	// Exists reports whether a reservation with the given ID exists,
	// regardless of status. Used by the compensation ledger.
	Exists(ctx context.Context, id ReservationID) (bool, error)

	// Get returns the reservation, or ErrBookingNotFound.
	Get(ctx context.Context, id ReservationID) (Reservation, error)

	// Create persists a new reservation. Only the guarded admit path calls
	// this; Decide() itself never writes.
	Create(ctx context.Context, r Reservation) error

	// Cancel marks a reservation cancelled, freeing its capacity.
	Cancel(ctx context.Context, id ReservationID) error
}

// =============================================================================
// ROOM TYPES - Categories and upgrade paths
// =============================================================================

// RoomType describes one sellable room category at a property.
type RoomType struct {
	ID         RoomTypeID
	PropertyID PropertyID
	Name       string
	Category   RoomCategory
	// UpgradeTargets lists room types a guest of this type may be upgraded
	// into, in preference order.
	UpgradeTargets []RoomTypeID
}

// RoomTypeStore answers category and upgrade-path questions.
type RoomTypeStore interface {
	// Get returns the room type, or ErrRoomTypeNotFound.
	Get(ctx context.Context, id RoomTypeID) (RoomType, error)

	// ActiveRoomTypes returns all room types of a property that currently
	// have at least one bookable room or a live reservation. Used by the
	// compliance sweep, which must see stranded demand too.
	ActiveRoomTypes(ctx context.Context, propertyID PropertyID) ([]RoomType, error)
}
