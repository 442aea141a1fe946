/*
Package admission implements temporal capacity admission control: deciding
whether a new reservation for a date range may be accepted given a finite,
shared pool of rooms, time-varying overbooking rules, and already-accepted
or tentative reservations over overlapping ranges.

PURPOSE:
  This package contains the core decision engine. It owns no data: room
  inventory and reservations live behind the collaborator interfaces in
  store.go, and overbooking policy is resolved by a rules.Resolver injected
  into the Decider. Everything here is a pure read-then-derive computation.

KEY CONCEPTS IN THIS FILE (types.go):
  - Reservation: An existing or candidate stay over a half-open date range
  - RiskAnalysis: Derived capacity snapshot for a property/range/room-type
  - Decision:     The allow/deny outcome with its explanation
  - RiskLevel:    Four-tier classification of how close oversell is to the limit

DESIGN PRINCIPLES:
  1. Advisory decisions: Decide() is policy, not a concurrency mechanism.
     Pair it with the guard package before persisting (see guard.Admitter).
  2. Fail closed: any internal fault becomes a critical-risk deny, because a
     displaced guest costs more than a lost booking.
  3. No caching of counts: staleness widens the check-then-act window.

SEE ALSO:
  - conflict.go:  interval-overlap counting
  - snapshot.go:  capacity snapshot derivation
  - decider.go:   the admission decision sequence
  - monitor.go:   forward-looking compliance sweep
*/
package admission

import "time"

// =============================================================================
// IDENTIFIERS
// =============================================================================

type PropertyID string
type RoomTypeID string
type ReservationID string

// RoomCategory drives category overrides during rule resolution: premium
// inventory gets zero oversell tolerance, economy gets a widened one.
type RoomCategory string

const (
	CategoryStandard     RoomCategory = "standard"
	CategoryEconomy      RoomCategory = "economy"
	CategoryPremium      RoomCategory = "premium"
	CategoryPresidential RoomCategory = "presidential"
)

// Protected reports whether the category tolerates zero overbooking.
func (c RoomCategory) Protected() bool {
	return c == CategoryPremium || c == CategoryPresidential
}

// =============================================================================
// RESERVATION - Existing or candidate stay
// =============================================================================

type ReservationStatus string

const (
	StatusConfirmed ReservationStatus = "confirmed"
	StatusPending   ReservationStatus = "pending"
	StatusCancelled ReservationStatus = "cancelled"
)

// Reservation is a stay over the half-open range [Range.From, Range.To).
// Cancelled reservations never count toward capacity.
type Reservation struct {
	ID         ReservationID
	PropertyID PropertyID
	RoomTypeID RoomTypeID // empty = property-wide, not scoped to a room type
	Range      DateRange
	Status     ReservationStatus
	Source     string // origin channel, e.g. "direct", "ota:booking"
	CreatedAt  time.Time
}

// CountsTowardCapacity reports whether this reservation consumes units.
func (r Reservation) CountsTowardCapacity() bool {
	return r.Status == StatusConfirmed || r.Status == StatusPending
}

// =============================================================================
// RISK LEVEL - Ordered four-tier scale
// =============================================================================

type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh
	RiskCritical
)

func (l RiskLevel) String() string {
	switch l {
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	case RiskCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// AtLeast reports whether l is as severe as other. RiskLevel is an int so the
// ordering low < medium < high < critical holds by construction.
func (l RiskLevel) AtLeast(other RiskLevel) bool { return l >= other }

// =============================================================================
// RISK ANALYSIS - Derived capacity snapshot (never persisted)
// =============================================================================

// RiskAnalysis is the capacity picture for a property/range/room-type.
//
// INVARIANTS:
//   OverbookingCount = max(0, Confirmed + Pending - TotalRooms)
//   OverbookingPct   = OverbookingCount / TotalRooms * 100 (0 when TotalRooms 0)
//   AvailableRooms   = max(0, TotalRooms - Confirmed)
type RiskAnalysis struct {
	PropertyID PropertyID
	RoomTypeID RoomTypeID
	Range      DateRange

	TotalRooms        int
	ConfirmedBookings int
	PendingBookings   int
	AvailableRooms    int
	OverbookingCount  int
	OverbookingPct    float64

	RiskLevel       RiskLevel
	Recommendations []string
}

// =============================================================================
// DECISION - Admission outcome
// =============================================================================

// Intent is a candidate booking being evaluated for admission.
type Intent struct {
	PropertyID PropertyID
	RoomTypeID RoomTypeID
	Range      DateRange
	Source     string // optional origin channel
}

// Decision explains an allow/deny outcome. The risk level is reported even on
// approval so callers can surface "approaching limit" states.
type Decision struct {
	Allowed bool
	Reason  string
	Risk    RiskLevel

	CurrentOverbooking int
	MaxAllowed         int
	MaxAllowedPct      float64

	Alternatives []Alternative
	Warnings     []string

	DecidedAt time.Time
}

// Alternative is an advisory re-offer option computed when a booking is
// denied: an upgrade, a nearby date, or a sister property.
type Alternative struct {
	Type        AlternativeType
	Description string
	Available   bool
	RoomTypeID  RoomTypeID // set for upgrades
	Range       DateRange  // set for date shifts
}

type AlternativeType string

const (
	AltUpgrade        AlternativeType = "upgrade"
	AltDateShift      AlternativeType = "date_shift"
	AltSisterProperty AlternativeType = "sister_property"
)

// =============================================================================
// OVERLAP COUNTS
// =============================================================================

// Overlap partitions overlapping reservations by status. Cancelled
// reservations are excluded before counting.
type Overlap struct {
	Confirmed int
	Pending   int
}

// Total is confirmed plus pending demand.
func (o Overlap) Total() int { return o.Confirmed + o.Pending }
