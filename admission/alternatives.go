/*
alternatives.go - Alternative-finding search for denied bookings

PURPOSE:
  When a booking is denied, the guest may still be servable: a higher room
  type may have space, or the same stay length may fit a few days earlier or
  later. This search is advisory - the caller decides whether to re-offer.

SEARCH ORDER:
  1. Upgrades: the denied room type's upgrade targets, in preference order;
     the first target with availability is reported as available. Skipped
     entirely unless the effective rule enables auto-upgrade.
  2. Date shifts: offsets -3..+3 days (excluding 0) with the same stay
     length, re-running the capacity snapshot for each.
  3. Sister property: reported as an unresolved placeholder (no cross-
     property integration exists yet).
*/
package admission

import (
	"context"
	"fmt"
)

// dateShiftWindow is how many days either side of the requested stay the
// nearby-date scan covers.
const dateShiftWindow = 3

// AlternativeFinder searches for upgrade and nearby-date options.
type AlternativeFinder struct {
	Snapshots *Snapshotter
	RoomTypes RoomTypeStore

	// SisterProperties optionally names nearby properties to suggest. They
	// are always reported as unresolved (Available false).
	SisterProperties []PropertyID
}

// Find returns advisory alternatives for a denied intent. The upgrade scan
// runs only when the effective rule has AutoUpgradeEnabled; date shifts and
// sister-property suggestions are always offered.
func (af *AlternativeFinder) Find(ctx context.Context, propertyID PropertyID, rng DateRange, roomTypeID RoomTypeID, rule Rule) ([]Alternative, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}

	var alts []Alternative

	if rule.AutoUpgradeEnabled && roomTypeID != "" {
		upgrade, err := af.findUpgrade(ctx, propertyID, rng, roomTypeID)
		if err != nil {
			return nil, err
		}
		if upgrade != nil {
			alts = append(alts, *upgrade)
		}
	}

	shifts, err := af.findDateShifts(ctx, propertyID, rng, roomTypeID)
	if err != nil {
		return nil, err
	}
	alts = append(alts, shifts...)

	for _, sister := range af.SisterProperties {
		alts = append(alts, Alternative{
			Type:        AltSisterProperty,
			Description: fmt.Sprintf("check availability at sister property %s", sister),
			Available:   false,
		})
	}

	return alts, nil
}

// findUpgrade reports the first upgrade target with available rooms over the
// same stay. Targets without availability are not reported.
func (af *AlternativeFinder) findUpgrade(ctx context.Context, propertyID PropertyID, rng DateRange, roomTypeID RoomTypeID) (*Alternative, error) {
	rt, err := af.RoomTypes.Get(ctx, roomTypeID)
	if err != nil {
		return nil, err
	}

	for _, target := range rt.UpgradeTargets {
		snap, err := af.Snapshots.Snapshot(ctx, propertyID, target, rng)
		if err != nil {
			return nil, err
		}
		if snap.AvailableRooms > 0 {
			return &Alternative{
				Type:        AltUpgrade,
				Description: fmt.Sprintf("upgrade to room type %s (%d room(s) free)", target, snap.AvailableRooms),
				Available:   true,
				RoomTypeID:  target,
				Range:       rng,
			}, nil
		}
	}
	return nil, nil
}

// findDateShifts scans -3..+3 day offsets with the same stay length.
func (af *AlternativeFinder) findDateShifts(ctx context.Context, propertyID PropertyID, rng DateRange, roomTypeID RoomTypeID) ([]Alternative, error) {
	var alts []Alternative
	for offset := -dateShiftWindow; offset <= dateShiftWindow; offset++ {
		if offset == 0 {
			continue
		}
		shifted := rng.Shift(offset)
		snap, err := af.Snapshots.Snapshot(ctx, propertyID, roomTypeID, shifted)
		if err != nil {
			return nil, err
		}
		if snap.AvailableRooms > 0 {
			alts = append(alts, Alternative{
				Type:        AltDateShift,
				Description: fmt.Sprintf("%+d day(s): %s (%d room(s) free)", offset, shifted, snap.AvailableRooms),
				Available:   true,
				RoomTypeID:  roomTypeID,
				Range:       shifted,
			})
		}
	}
	return alts, nil
}
