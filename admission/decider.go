/*
decider.go - The admission decision sequence

PURPOSE:
  Orchestrates rule resolution, conflict counting, capacity snapshotting and
  risk classification into a single approve/deny answer with an explanation.

SEQUENCE (each step a potential early deny):
  1. Resolve the effective rule for the check-in date
  2. Origin-channel allow-list check            -> deny, high
  3. Blackout touching any day of the stay      -> deny, critical, max 0
  4. Capacity snapshot for the candidate range
  5. Zero bookable units in the pool            -> deny, critical
  6. Simulate admitting one more pending booking
  7. Over the count limit OR percentage limit   -> deny + alternatives
  8. Otherwise allow, still reporting risk and an "approaching limit"
     warning when the ratio is at 0.8 of the limit or beyond

FAIL-CLOSED:
  Malformed input (bad range, missing property) is a caller error and is
  returned as one. Every other fault - storage down, unresolvable rule -
  becomes a critical-risk deny with an escalation warning. An erroneous
  approval displaces a guest; an erroneous denial loses a booking. The
  engine always prefers the second.

ADVISORY ONLY:
  Between this read-then-decide and the caller's insert, a concurrent caller
  can be admitted against the same counts. Decide is the policy layer;
  guard.Admitter is the concurrency-safety layer. Callers persisting
  bookings must pair the two.
*/
package admission

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Decider evaluates booking intents against capacity and policy.
type Decider struct {
	Resolver     *Resolver
	Snapshots    *Snapshotter
	Alternatives *AlternativeFinder

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

// NewDecider wires a Decider over the given collaborators.
func NewDecider(rules RuleRepository, inventory InventoryStore, reservations ReservationStore, roomTypes RoomTypeStore) *Decider {
	conflicts := &ConflictDetector{Reservations: reservations}
	snapshots := &Snapshotter{Inventory: inventory, Conflicts: conflicts}
	return &Decider{
		Resolver:  &Resolver{Rules: rules, RoomTypes: roomTypes},
		Snapshots: snapshots,
		Alternatives: &AlternativeFinder{
			Snapshots: snapshots,
			RoomTypes: roomTypes,
		},
		Now: time.Now,
	}
}

// Decide evaluates an intent. It returns an error only for invalid input;
// internal faults are converted into a fail-closed deny.
func (d *Decider) Decide(ctx context.Context, intent Intent) (Decision, error) {
	if intent.PropertyID == "" {
		return Decision{}, ErrMissingProperty
	}
	if err := intent.Range.Validate(); err != nil {
		return Decision{}, err
	}

	now := time.Now()
	if d.Now != nil {
		now = d.Now()
	}

	// 1. Effective rule at the check-in date.
	rule, err := d.Resolver.Resolve(ctx, intent.PropertyID, intent.RoomTypeID, intent.Range.From)
	if err != nil {
		return d.failClosed(intent, now, fmt.Errorf("rule resolution: %w", err)), nil
	}

	// 2. Origin channel gate.
	if intent.Source != "" && !rule.SourceAllowed(intent.Source) {
		return Decision{
			Allowed:       false,
			Reason:        fmt.Sprintf("source %q not authorized for overbooking", intent.Source),
			Risk:          RiskHigh,
			MaxAllowed:    rule.MaxCount,
			MaxAllowedPct: rule.MaxPct,
			DecidedAt:     now,
		}, nil
	}

	// 3. Blackout: the entire stay is ineligible for oversell when any of its
	// occupied days touches a blackout range.
	if b := rule.BlackoutWithin(intent.Range); b != nil {
		reason := fmt.Sprintf("stay touches blackout period %s", b.Range)
		if b.Reason != "" {
			reason += " (" + b.Reason + ")"
		}
		return Decision{
			Allowed:       false,
			Reason:        reason,
			Risk:          RiskCritical,
			MaxAllowed:    0,
			MaxAllowedPct: 0,
			DecidedAt:     now,
		}, nil
	}

	// 4. Capacity snapshot over the candidate range.
	snap, err := d.Snapshots.Snapshot(ctx, intent.PropertyID, intent.RoomTypeID, intent.Range)
	if err != nil {
		return d.failClosed(intent, now, err), nil
	}

	// 5. A pool with no bookable units cannot host anyone: every admission
	// would be a guaranteed walk, so the limits do not even enter into it.
	if degenerateCapacity(snap.TotalRooms, snap.ConfirmedBookings+snap.PendingBookings+1) {
		return Decision{
			Allowed:            false,
			Reason:             "no bookable capacity for the requested room type",
			Risk:               RiskCritical,
			CurrentOverbooking: snap.OverbookingCount,
			MaxAllowed:         rule.MaxCount,
			MaxAllowedPct:      rule.MaxPct,
			Alternatives:       d.findAlternatives(ctx, intent, rule),
			DecidedAt:          now,
		}, nil
	}

	// 6-7. Simulate admitting one more pending booking.
	newCount := overbookingCount(snap.ConfirmedBookings, snap.PendingBookings+1, snap.TotalRooms)
	newPct := overbookingPct(newCount, snap.TotalRooms)
	risk := classifyAgainstLimits(newCount, rule.MaxCount, newPct, rule.MaxPct)

	var warnings []string
	if shortfall := d.leadTimeShortfall(rule, intent.Range.From, now); shortfall != "" {
		warnings = append(warnings, shortfall)
	}

	if newCount > rule.MaxCount || newPct > rule.MaxPct {
		alts := d.findAlternatives(ctx, intent, rule)
		return Decision{
			Allowed: false,
			Reason: fmt.Sprintf("would overbook %d unit(s) (%.1f%%), limit is %d unit(s) / %.1f%%",
				newCount, newPct, rule.MaxCount, rule.MaxPct),
			Risk:               risk,
			CurrentOverbooking: snap.OverbookingCount,
			MaxAllowed:         rule.MaxCount,
			MaxAllowedPct:      rule.MaxPct,
			Alternatives:       alts,
			Warnings:           warnings,
			DecidedAt:          now,
		}, nil
	}

	// 8. Allow, with risk reported even on approval.
	if risk.AtLeast(RiskHigh) {
		warnings = append(warnings, "approaching overbooking limit")
	}
	return Decision{
		Allowed:            true,
		Reason:             "within overbooking limits",
		Risk:               risk,
		CurrentOverbooking: snap.OverbookingCount,
		MaxAllowed:         rule.MaxCount,
		MaxAllowedPct:      rule.MaxPct,
		Warnings:           warnings,
		DecidedAt:          now,
	}, nil
}

// findAlternatives is best-effort: a failing alternative search never turns
// a clean deny into an error.
func (d *Decider) findAlternatives(ctx context.Context, intent Intent, rule Rule) []Alternative {
	if d.Alternatives == nil {
		return nil
	}
	alts, err := d.Alternatives.Find(ctx, intent.PropertyID, intent.Range, intent.RoomTypeID, rule)
	if err != nil {
		log.Printf("[Decider] alternative search failed for %s: %v", intent.PropertyID, err)
		return nil
	}
	return alts
}

func (d *Decider) leadTimeShortfall(rule Rule, checkIn Date, now time.Time) string {
	if rule.MinimumLeadTime <= 0 {
		return ""
	}
	lead := checkIn.Time.Sub(now)
	min := time.Duration(rule.MinimumLeadTime) * time.Hour
	if lead >= min {
		return ""
	}
	return fmt.Sprintf("lead time %.0fh is below the %dh minimum", lead.Hours(), rule.MinimumLeadTime)
}

// failClosed converts an internal fault into a deny. The fault is logged for
// the operator; the caller gets a decision it can act on, never a panic.
func (d *Decider) failClosed(intent Intent, now time.Time, err error) Decision {
	log.Printf("[Decider] fail-closed deny for %s %s: %v", intent.PropertyID, intent.Range, err)
	return Decision{
		Allowed:   false,
		Reason:    "admission check unavailable, denied by default",
		Risk:      RiskCritical,
		Warnings:  []string{"internal fault during admission check, escalate for manual review"},
		DecidedAt: now,
	}
}
