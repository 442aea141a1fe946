/*
admitter.go - Guarded admit path

PURPOSE:
  Composes the advisory decision with the atomic counter and the insert:

    Decide -> Acquire counters -> Create reservation
                  |                    |
                  |                    +-- insert fails: Release, error
                  +-- at the limit: deny

  This is the path the booking endpoint uses. Decide() remains usable on
  its own for what-if queries; only the Admitter persists.

THRESHOLD:
  The per-date admit threshold is capacity plus the tolerated oversell:
  total + min(MaxCount, floor(total * MaxPct / 100)). Both limits bind, as
  they do in the decision itself. The overlap count already in storage is
  handed to Acquire as the observed floor, so a guard with cold counters
  (fresh process, expired keys) still sees demand it never admitted itself.
*/
package guard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stayware/admission-engine/admission"
)

// Admitter runs the guarded decide-acquire-insert sequence.
type Admitter struct {
	Decider      *admission.Decider
	Guard        Guard
	Reservations admission.ReservationStore

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

func NewAdmitter(decider *admission.Decider, g Guard, reservations admission.ReservationStore) *Admitter {
	return &Admitter{Decider: decider, Guard: g, Reservations: reservations, Now: time.Now}
}

// Admit decides the intent and, when approved, atomically claims the stay's
// date counters and persists a pending reservation. The returned decision
// reflects what actually happened: a decision the guard overturned comes
// back as a deny.
func (a *Admitter) Admit(ctx context.Context, intent admission.Intent) (admission.Decision, *admission.Reservation, error) {
	decision, err := a.Decider.Decide(ctx, intent)
	if err != nil {
		return admission.Decision{}, nil, err
	}
	if !decision.Allowed {
		return decision, nil, nil
	}

	limit, observed, err := a.admitLimit(ctx, intent, decision)
	if err != nil {
		// Fail closed, same contract as the decider.
		decision.Allowed = false
		decision.Reason = "admission check unavailable, denied by default"
		decision.Risk = admission.RiskCritical
		decision.Warnings = append(decision.Warnings, "internal fault during guarded admit, escalate for manual review")
		return decision, nil, nil
	}

	key := CounterKey{PropertyID: intent.PropertyID, RoomTypeID: intent.RoomTypeID}
	dates := intent.Range.Days()

	acquired, err := a.Guard.Acquire(ctx, key, dates, observed, limit)
	if err != nil {
		decision.Allowed = false
		decision.Reason = "admission check unavailable, denied by default"
		decision.Risk = admission.RiskCritical
		decision.Warnings = append(decision.Warnings, "guard unavailable, escalate for manual review")
		return decision, nil, nil
	}
	if !acquired {
		// A concurrent admit claimed the last slot between our read and now.
		decision.Allowed = false
		decision.Reason = "capacity claimed by a concurrent booking"
		decision.Risk = admission.RiskCritical
		return decision, nil, nil
	}

	now := time.Now()
	if a.Now != nil {
		now = a.Now()
	}

	reservation := admission.Reservation{
		ID:         admission.ReservationID(uuid.NewString()),
		PropertyID: intent.PropertyID,
		RoomTypeID: intent.RoomTypeID,
		Range:      intent.Range,
		Status:     admission.StatusPending,
		Source:     intent.Source,
		CreatedAt:  now,
	}

	if err := a.Reservations.Create(ctx, reservation); err != nil {
		// Roll the counters back so the failed insert doesn't leak capacity.
		if relErr := a.Guard.Release(ctx, key, dates); relErr != nil {
			return admission.Decision{}, nil, fmt.Errorf("insert failed (%v) and counter release failed: %w", err, relErr)
		}
		return admission.Decision{}, nil, fmt.Errorf("failed to persist reservation: %w", err)
	}

	return decision, &reservation, nil
}

// Cancel cancels a reservation and releases its guard counters.
func (a *Admitter) Cancel(ctx context.Context, id admission.ReservationID) error {
	r, err := a.Reservations.Get(ctx, id)
	if err != nil {
		return err
	}
	if r.Status == admission.StatusCancelled {
		return nil
	}
	if err := a.Reservations.Cancel(ctx, id); err != nil {
		return err
	}
	key := CounterKey{PropertyID: r.PropertyID, RoomTypeID: r.RoomTypeID}
	return a.Guard.Release(ctx, key, r.Range.Days())
}

// admitLimit is capacity plus tolerated oversell at the check-in date. It
// also reports the demand already persisted over the stay (confirmed plus
// pending), which Acquire uses as the counter floor.
func (a *Admitter) admitLimit(ctx context.Context, intent admission.Intent, decision admission.Decision) (limit, observed int, err error) {
	total, err := a.Decider.Snapshots.Inventory.ActiveUnitCount(ctx, intent.PropertyID, intent.RoomTypeID)
	if err != nil {
		return 0, 0, err
	}
	counts, err := a.Decider.Snapshots.Conflicts.CountOverlapping(ctx, intent.PropertyID, intent.RoomTypeID, intent.Range)
	if err != nil {
		return 0, 0, err
	}

	byPct := int(float64(total) * decision.MaxAllowedPct / 100)
	oversell := decision.MaxAllowed
	if byPct < oversell {
		oversell = byPct
	}
	if oversell < 0 {
		oversell = 0
	}
	return total + oversell, counts.Confirmed + counts.Pending, nil
}
