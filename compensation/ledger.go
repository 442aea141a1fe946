/*
Package compensation records what was given to guests when an overbooking
materialized - when an already-accepted booking could not be honored and the
guest was walked, upgraded, or credited.

PURPOSE:
  An append-only ledger of compensation records. The ledger does not decide
  WHETHER compensation is owed - that is an operational decision made
  upstream, after admission control has been bypassed or an accepted
  booking cannot be honored. It only records the outcome, immutably.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: records are never updated or deleted
  2. REFERENTIAL: every record points at a booking that exists
  3. PRECISE: monetary amounts use decimal.Decimal, never float

DEFAULTS:
  When the caller omits the amount or type, the ledger fills them from the
  booking's property compensation policy (rule document). A property with
  compensation disabled still accepts explicit records - policy defaults
  are a convenience, not a gate.

SEE ALSO:
  - admission/rule.go: CompensationPolicy on the rule document
  - store/sqlite:      persistent Store implementation
*/
package compensation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stayware/admission-engine/admission"
)

// =============================================================================
// RECORD - Immutable compensation entry
// =============================================================================

type Type string

const (
	TypeMonetary     Type = "monetary"
	TypeUpgrade      Type = "upgrade"
	TypeFutureCredit Type = "future_credit"
)

func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeMonetary, TypeUpgrade, TypeFutureCredit:
		return Type(s), nil
	default:
		return "", fmt.Errorf("unknown compensation type %q", s)
	}
}

type Status string

const (
	StatusRecorded  Status = "recorded"
	StatusFulfilled Status = "fulfilled"
)

// Record is one compensation issued against a booking. Immutable once
// written.
type Record struct {
	ID          string
	BookingID   admission.ReservationID
	Type        Type
	Amount      decimal.Decimal // zero for non-monetary types
	Currency    string
	Reason      string
	ProcessedAt time.Time
	Status      Status
}

// =============================================================================
// STORE - Append-only persistence
// =============================================================================

// Store persists compensation records. Implementations expose no update or
// delete: the interface is the append-only contract.
type Store interface {
	AppendCompensation(ctx context.Context, rec Record) error
	ListCompensations(ctx context.Context, bookingID admission.ReservationID) ([]Record, error)
}

// =============================================================================
// LEDGER
// =============================================================================

// Ledger records compensation against existing bookings.
type Ledger struct {
	Store        Store
	Reservations admission.ReservationStore
	Rules        admission.RuleRepository // optional, for policy defaults

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

// NewLedger wires a Ledger.
func NewLedger(store Store, reservations admission.ReservationStore, rules admission.RuleRepository) *Ledger {
	return &Ledger{Store: store, Reservations: reservations, Rules: rules, Now: time.Now}
}

// Input carries the caller-supplied fields. Amount and Type may be empty;
// they are then filled from the property's compensation policy.
type Input struct {
	BookingID admission.ReservationID
	Type      string
	Amount    *decimal.Decimal
	Currency  string
	Reason    string
}

// Record appends a compensation record. Fails with ErrBookingNotFound when
// the referenced booking does not exist. Pure append: nothing else changes.
func (l *Ledger) Record(ctx context.Context, in Input) (Record, error) {
	if in.BookingID == "" {
		return Record{}, admission.ErrBookingNotFound
	}

	booking, err := l.Reservations.Get(ctx, in.BookingID)
	if err != nil {
		return Record{}, err
	}

	policy := l.policyFor(ctx, booking)

	typ, err := l.resolveType(in, policy)
	if err != nil {
		return Record{}, err
	}
	amount, currency, err := l.resolveAmount(in, typ, policy)
	if err != nil {
		return Record{}, err
	}

	now := time.Now()
	if l.Now != nil {
		now = l.Now()
	}

	rec := Record{
		ID:          uuid.NewString(),
		BookingID:   in.BookingID,
		Type:        typ,
		Amount:      amount,
		Currency:    currency,
		Reason:      in.Reason,
		ProcessedAt: now,
		Status:      StatusRecorded,
	}

	if err := l.Store.AppendCompensation(ctx, rec); err != nil {
		return Record{}, fmt.Errorf("failed to record compensation: %w", err)
	}
	return rec, nil
}

// List returns all compensation recorded against a booking, for audit reads.
func (l *Ledger) List(ctx context.Context, bookingID admission.ReservationID) ([]Record, error) {
	exists, err := l.Reservations.Exists(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, admission.ErrBookingNotFound
	}
	return l.Store.ListCompensations(ctx, bookingID)
}

func (l *Ledger) policyFor(ctx context.Context, booking admission.Reservation) admission.CompensationPolicy {
	if l.Rules == nil {
		return admission.CompensationPolicy{}
	}
	rule, err := l.Rules.RuleFor(ctx, booking.PropertyID, booking.RoomTypeID)
	if err != nil {
		// Defaults are best-effort; an explicit input still works.
		return admission.CompensationPolicy{}
	}
	return rule.Compensation
}

func (l *Ledger) resolveType(in Input, policy admission.CompensationPolicy) (Type, error) {
	if in.Type != "" {
		return ParseType(in.Type)
	}
	if policy.Enabled && policy.Type != "" {
		return ParseType(policy.Type)
	}
	return TypeMonetary, nil
}

func (l *Ledger) resolveAmount(in Input, typ Type, policy admission.CompensationPolicy) (decimal.Decimal, string, error) {
	if typ != TypeMonetary {
		return decimal.Zero, "", nil
	}

	currency := in.Currency
	if currency == "" {
		currency = policy.Currency
	}

	if in.Amount != nil {
		if in.Amount.IsNegative() {
			return decimal.Zero, "", fmt.Errorf("compensation amount cannot be negative")
		}
		return *in.Amount, currency, nil
	}

	if policy.Enabled && policy.Amount != "" {
		amount, err := decimal.NewFromString(policy.Amount)
		if err != nil {
			return decimal.Zero, "", fmt.Errorf("malformed policy amount %q: %w", policy.Amount, err)
		}
		return amount, currency, nil
	}

	return decimal.Zero, "", fmt.Errorf("monetary compensation requires an amount")
}
