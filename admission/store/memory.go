// Package store provides in-memory collaborator implementations.
package store

import (
	"context"
	"sync"

	"github.com/stayware/admission-engine/admission"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements admission.InventoryStore, admission.ReservationStore and
// admission.RoomTypeStore from plain maps. Safe for concurrent use.
type Memory struct {
	mu           sync.RWMutex
	reservations map[admission.ReservationID]admission.Reservation
	rooms        []roomRecord
	roomTypes    map[admission.RoomTypeID]admission.RoomType
}

type roomRecord struct {
	PropertyID admission.PropertyID
	RoomTypeID admission.RoomTypeID
	Bookable   bool
}

func NewMemory() *Memory {
	return &Memory{
		reservations: make(map[admission.ReservationID]admission.Reservation),
		roomTypes:    make(map[admission.RoomTypeID]admission.RoomType),
	}
}

// -----------------------------------------------------------------------------
// Seeding
// -----------------------------------------------------------------------------

// AddRooms registers n rooms of a type. Pass bookable=false for rooms that
// are out of service; they never count toward capacity.
func (m *Memory) AddRooms(propertyID admission.PropertyID, roomTypeID admission.RoomTypeID, n int, bookable bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < n; i++ {
		m.rooms = append(m.rooms, roomRecord{PropertyID: propertyID, RoomTypeID: roomTypeID, Bookable: bookable})
	}
}

// AddRoomType registers a room type definition.
func (m *Memory) AddRoomType(rt admission.RoomType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roomTypes[rt.ID] = rt
}

// -----------------------------------------------------------------------------
// admission.InventoryStore
// -----------------------------------------------------------------------------

func (m *Memory) ActiveUnitCount(_ context.Context, propertyID admission.PropertyID, roomTypeID admission.RoomTypeID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, r := range m.rooms {
		if r.PropertyID != propertyID || !r.Bookable {
			continue
		}
		if roomTypeID != "" && r.RoomTypeID != roomTypeID {
			continue
		}
		count++
	}
	return count, nil
}

// -----------------------------------------------------------------------------
// admission.ReservationStore
// -----------------------------------------------------------------------------

func (m *Memory) FindOverlapping(_ context.Context, propertyID admission.PropertyID, roomTypeID admission.RoomTypeID, rng admission.DateRange) ([]admission.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []admission.Reservation
	for _, r := range m.reservations {
		if r.PropertyID != propertyID || r.Status == admission.StatusCancelled {
			continue
		}
		if roomTypeID != "" && r.RoomTypeID != roomTypeID {
			continue
		}
		if r.Range.Overlaps(rng) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) Exists(_ context.Context, id admission.ReservationID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.reservations[id]
	return ok, nil
}

func (m *Memory) Get(_ context.Context, id admission.ReservationID) (admission.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reservations[id]
	if !ok {
		return admission.Reservation{}, admission.ErrBookingNotFound
	}
	return r, nil
}

func (m *Memory) Create(_ context.Context, r admission.Reservation) error {
	if err := r.Range.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reservations[r.ID] = r
	return nil
}

func (m *Memory) Cancel(_ context.Context, id admission.ReservationID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok {
		return admission.ErrBookingNotFound
	}
	r.Status = admission.StatusCancelled
	m.reservations[id] = r
	return nil
}

// -----------------------------------------------------------------------------
// admission.RoomTypeStore
// -----------------------------------------------------------------------------

// roomTypeView exposes the store as admission.RoomTypeStore. The interface
// method name Get collides with the reservation Get on *Memory, so the view
// renames it.
type roomTypeView struct{ m *Memory }

// RoomTypes returns the store's admission.RoomTypeStore view.
func (m *Memory) RoomTypes() admission.RoomTypeStore { return roomTypeView{m: m} }

func (v roomTypeView) Get(_ context.Context, id admission.RoomTypeID) (admission.RoomType, error) {
	v.m.mu.RLock()
	defer v.m.mu.RUnlock()
	rt, ok := v.m.roomTypes[id]
	if !ok {
		return admission.RoomType{}, admission.ErrRoomTypeNotFound
	}
	return rt, nil
}

func (v roomTypeView) ActiveRoomTypes(ctx context.Context, propertyID admission.PropertyID) ([]admission.RoomType, error) {
	return v.m.ActiveRoomTypes(ctx, propertyID)
}

// ActiveRoomTypes lists room types with at least one bookable room, plus
// types that still hold live reservations even when every room is out of
// service. The sweep needs to see stranded demand too.
func (m *Memory) ActiveRoomTypes(_ context.Context, propertyID admission.PropertyID) ([]admission.RoomType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	active := make(map[admission.RoomTypeID]bool)
	for _, r := range m.rooms {
		if r.PropertyID == propertyID && r.Bookable {
			active[r.RoomTypeID] = true
		}
	}
	for _, r := range m.reservations {
		if r.PropertyID == propertyID && r.RoomTypeID != "" && r.Status != admission.StatusCancelled {
			active[r.RoomTypeID] = true
		}
	}

	var out []admission.RoomType
	for id := range active {
		if rt, ok := m.roomTypes[id]; ok {
			out = append(out, rt)
		}
	}
	return out, nil
}

// Compile-time interface checks.
var (
	_ admission.InventoryStore   = (*Memory)(nil)
	_ admission.ReservationStore = (*Memory)(nil)
	_ admission.RoomTypeStore    = roomTypeView{}
)
