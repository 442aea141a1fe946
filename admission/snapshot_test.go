package admission_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stayware/admission-engine/admission"
	"github.com/stayware/admission-engine/admission/store"
)

func seedReservation(t *testing.T, m *store.Memory, id string, property admission.PropertyID, roomType admission.RoomTypeID, from, to admission.Date, status admission.ReservationStatus) {
	t.Helper()
	err := m.Create(context.Background(), admission.Reservation{
		ID:         admission.ReservationID(id),
		PropertyID: property,
		RoomTypeID: roomType,
		Range:      rng(from, to),
		Status:     status,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		t.Fatalf("failed to seed reservation %s: %v", id, err)
	}
}

func newSnapshotter(m *store.Memory) *admission.Snapshotter {
	return &admission.Snapshotter{
		Inventory: m,
		Conflicts: &admission.ConflictDetector{Reservations: m},
	}
}

// =============================================================================
// CAPACITY SNAPSHOTS
// =============================================================================

func TestSnapshot_CountsByStatus(t *testing.T) {
	// GIVEN: 10 rooms, 9 confirmed and 1 pending stay over the same week
	m := store.NewMemory()
	m.AddRooms("hotel-1", "", 10, true)
	for i := 0; i < 9; i++ {
		seedReservation(t, m, string(rune('a'+i)), "hotel-1", "",
			date(2026, 7, 1), date(2026, 7, 8), admission.StatusConfirmed)
	}
	seedReservation(t, m, "p1", "hotel-1", "", date(2026, 7, 3), date(2026, 7, 5), admission.StatusPending)

	// WHEN: Snapshotting a range inside the week
	snap, err := newSnapshotter(m).Snapshot(context.Background(), "hotel-1", "",
		rng(date(2026, 7, 2), date(2026, 7, 6)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// THEN: Demand equals capacity, no overbooking yet
	if snap.TotalRooms != 10 {
		t.Errorf("total rooms = %d, want 10", snap.TotalRooms)
	}
	if snap.ConfirmedBookings != 9 || snap.PendingBookings != 1 {
		t.Errorf("confirmed=%d pending=%d, want 9/1", snap.ConfirmedBookings, snap.PendingBookings)
	}
	if snap.OverbookingCount != 0 {
		t.Errorf("overbooking count = %d, want 0", snap.OverbookingCount)
	}
	if snap.AvailableRooms != 1 {
		t.Errorf("available = %d, want 1", snap.AvailableRooms)
	}
}

func TestSnapshot_Overbooked(t *testing.T) {
	// GIVEN: 10 rooms with 12 active stays
	m := store.NewMemory()
	m.AddRooms("hotel-1", "", 10, true)
	for i := 0; i < 12; i++ {
		seedReservation(t, m, string(rune('a'+i)), "hotel-1", "",
			date(2026, 7, 1), date(2026, 7, 8), admission.StatusConfirmed)
	}

	snap, err := newSnapshotter(m).Snapshot(context.Background(), "hotel-1", "",
		rng(date(2026, 7, 2), date(2026, 7, 3)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if snap.OverbookingCount != 2 {
		t.Errorf("overbooking count = %d, want 2", snap.OverbookingCount)
	}
	if snap.OverbookingPct != 20 {
		t.Errorf("overbooking pct = %v, want 20", snap.OverbookingPct)
	}
	if snap.AvailableRooms != 0 {
		t.Errorf("available = %d, want 0 (never negative)", snap.AvailableRooms)
	}
}

func TestSnapshot_CancelledExcluded(t *testing.T) {
	m := store.NewMemory()
	m.AddRooms("hotel-1", "", 2, true)
	seedReservation(t, m, "a", "hotel-1", "", date(2026, 7, 1), date(2026, 7, 8), admission.StatusConfirmed)
	seedReservation(t, m, "b", "hotel-1", "", date(2026, 7, 1), date(2026, 7, 8), admission.StatusCancelled)

	snap, err := newSnapshotter(m).Snapshot(context.Background(), "hotel-1", "",
		rng(date(2026, 7, 2), date(2026, 7, 3)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if snap.ConfirmedBookings != 1 || snap.PendingBookings != 0 {
		t.Errorf("cancelled stay counted: confirmed=%d pending=%d", snap.ConfirmedBookings, snap.PendingBookings)
	}
}

func TestSnapshot_ZeroCapacity(t *testing.T) {
	// A property with no bookable rooms reports zero percent, not NaN
	m := store.NewMemory()
	seedReservation(t, m, "a", "hotel-1", "", date(2026, 7, 1), date(2026, 7, 8), admission.StatusConfirmed)

	snap, err := newSnapshotter(m).Snapshot(context.Background(), "hotel-1", "",
		rng(date(2026, 7, 2), date(2026, 7, 3)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if snap.TotalRooms != 0 {
		t.Errorf("total = %d, want 0", snap.TotalRooms)
	}
	if snap.OverbookingPct != 0 {
		t.Errorf("pct = %v, want 0 for zero capacity", snap.OverbookingPct)
	}
	if snap.OverbookingCount != 1 {
		t.Errorf("count = %d, want 1", snap.OverbookingCount)
	}
}

func TestSnapshot_OutOfServiceRoomsExcluded(t *testing.T) {
	m := store.NewMemory()
	m.AddRooms("hotel-1", "", 8, true)
	m.AddRooms("hotel-1", "", 2, false) // renovation

	snap, err := newSnapshotter(m).Snapshot(context.Background(), "hotel-1", "",
		rng(date(2026, 7, 2), date(2026, 7, 3)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if snap.TotalRooms != 8 {
		t.Errorf("total = %d, want 8 bookable rooms only", snap.TotalRooms)
	}
}

func TestSnapshot_InvalidInput(t *testing.T) {
	s := newSnapshotter(store.NewMemory())

	_, err := s.Snapshot(context.Background(), "", "", rng(date(2026, 7, 1), date(2026, 7, 2)))
	if !errors.Is(err, admission.ErrMissingProperty) {
		t.Errorf("want ErrMissingProperty, got %v", err)
	}

	_, err = s.Snapshot(context.Background(), "hotel-1", "", rng(date(2026, 7, 2), date(2026, 7, 1)))
	if !errors.Is(err, admission.ErrInvalidRange) {
		t.Errorf("want ErrInvalidRange, got %v", err)
	}
}
