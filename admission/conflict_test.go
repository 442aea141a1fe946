package admission_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stayware/admission-engine/admission"
	"github.com/stayware/admission-engine/admission/store"
)

// =============================================================================
// CONFLICT DETECTION
// =============================================================================

func TestCountOverlapping_PartitionsByStatus(t *testing.T) {
	m := store.NewMemory()
	seedReservation(t, m, "c1", "hotel-1", "", date(2026, 5, 1), date(2026, 5, 10), admission.StatusConfirmed)
	seedReservation(t, m, "c2", "hotel-1", "", date(2026, 5, 3), date(2026, 5, 6), admission.StatusConfirmed)
	seedReservation(t, m, "p1", "hotel-1", "", date(2026, 5, 4), date(2026, 5, 8), admission.StatusPending)
	seedReservation(t, m, "x1", "hotel-1", "", date(2026, 5, 4), date(2026, 5, 8), admission.StatusCancelled)

	cd := &admission.ConflictDetector{Reservations: m}
	counts, err := cd.CountOverlapping(context.Background(), "hotel-1", "",
		rng(date(2026, 5, 4), date(2026, 5, 6)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if counts.Confirmed != 2 {
		t.Errorf("confirmed = %d, want 2", counts.Confirmed)
	}
	if counts.Pending != 1 {
		t.Errorf("pending = %d, want 1", counts.Pending)
	}
	if counts.Total() != 3 {
		t.Errorf("total = %d, want 3", counts.Total())
	}
}

func TestCountOverlapping_SameDayTurnoverIgnored(t *testing.T) {
	// GIVEN: An existing stay checking out May 10
	m := store.NewMemory()
	seedReservation(t, m, "c1", "hotel-1", "", date(2026, 5, 5), date(2026, 5, 10), admission.StatusConfirmed)

	// WHEN: Counting for a candidate checking in May 10
	cd := &admission.ConflictDetector{Reservations: m}
	counts, err := cd.CountOverlapping(context.Background(), "hotel-1", "",
		rng(date(2026, 5, 10), date(2026, 5, 14)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// THEN: No conflict
	if counts.Total() != 0 {
		t.Errorf("total = %d, want 0", counts.Total())
	}
}

func TestCountOverlapping_ScopedToProperty(t *testing.T) {
	m := store.NewMemory()
	seedReservation(t, m, "c1", "hotel-1", "", date(2026, 5, 1), date(2026, 5, 10), admission.StatusConfirmed)
	seedReservation(t, m, "c2", "hotel-2", "", date(2026, 5, 1), date(2026, 5, 10), admission.StatusConfirmed)

	cd := &admission.ConflictDetector{Reservations: m}
	counts, err := cd.CountOverlapping(context.Background(), "hotel-1", "",
		rng(date(2026, 5, 4), date(2026, 5, 6)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if counts.Total() != 1 {
		t.Errorf("total = %d, want 1 (other property's stay leaked in)", counts.Total())
	}
}

func TestCountOverlapping_ScopedToRoomType(t *testing.T) {
	m := store.NewMemory()
	seedReservation(t, m, "c1", "hotel-1", "deluxe", date(2026, 5, 1), date(2026, 5, 10), admission.StatusConfirmed)
	seedReservation(t, m, "c2", "hotel-1", "suite", date(2026, 5, 1), date(2026, 5, 10), admission.StatusConfirmed)

	cd := &admission.ConflictDetector{Reservations: m}

	counts, err := cd.CountOverlapping(context.Background(), "hotel-1", "deluxe",
		rng(date(2026, 5, 4), date(2026, 5, 6)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counts.Total() != 1 {
		t.Errorf("room-type scoped total = %d, want 1", counts.Total())
	}

	// Empty room type means property-wide
	counts, err = cd.CountOverlapping(context.Background(), "hotel-1", "",
		rng(date(2026, 5, 4), date(2026, 5, 6)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counts.Total() != 2 {
		t.Errorf("property-wide total = %d, want 2", counts.Total())
	}
}

func TestCountOverlapping_InvalidInput(t *testing.T) {
	cd := &admission.ConflictDetector{Reservations: store.NewMemory()}

	_, err := cd.CountOverlapping(context.Background(), "", "", rng(date(2026, 5, 1), date(2026, 5, 2)))
	if !errors.Is(err, admission.ErrMissingProperty) {
		t.Errorf("want ErrMissingProperty, got %v", err)
	}

	_, err = cd.CountOverlapping(context.Background(), "hotel-1", "", rng(date(2026, 5, 2), date(2026, 5, 2)))
	if !errors.Is(err, admission.ErrInvalidRange) {
		t.Errorf("want ErrInvalidRange, got %v", err)
	}
}

// failingReservations simulates a storage outage.
type failingReservations struct {
	admission.ReservationStore
}

func (failingReservations) FindOverlapping(context.Context, admission.PropertyID, admission.RoomTypeID, admission.DateRange) ([]admission.Reservation, error) {
	return nil, errors.New("connection refused")
}

func TestCountOverlapping_StorageErrorWrapped(t *testing.T) {
	cd := &admission.ConflictDetector{Reservations: failingReservations{}}

	_, err := cd.CountOverlapping(context.Background(), "hotel-1", "",
		rng(date(2026, 5, 1), date(2026, 5, 2)))
	if !errors.Is(err, admission.ErrStoreUnavailable) {
		t.Errorf("want wrapped ErrStoreUnavailable, got %v", err)
	}
}
