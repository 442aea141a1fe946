/*
rule.go - Overbooking rules and their resolution

PURPOSE:
  Defines the policy that governs how much oversell is tolerable for a
  property, and resolves the effective rule for a specific room type and
  date. Rules are owned by a repository (operators edit them without a
  redeploy - see the rules package); this file owns only their semantics.

RESOLUTION ORDER:
  1. Base rule for the property (and room type, if the repository scopes one)
  2. Seasonal adjustment: scan in list order, FIRST range containing the date
     wins; no match falls back to the base percentage
  3. Category override, applied AFTER seasonal resolution:
     premium/presidential -> zero tolerance, economy -> widened tolerance

BLACKOUTS:
  A blackout makes the whole candidate stay ineligible for oversell: the
  decider denies when any occupied day of the stay falls inside a blackout
  range, not only the check-in day.
*/
package admission

import "context"

// =============================================================================
// RULE - Oversell policy for a property
// =============================================================================

// Rule controls how much oversell is tolerable. The zero value tolerates
// nothing, which is the safe default.
type Rule struct {
	MaxPct   float64 // 0-100, percentage of capacity that may be oversold
	MaxCount int     // absolute cap on oversold units, >= 0

	// SeasonalAdjustments override MaxPct for date ranges, first match wins.
	// Operators must keep ranges non-overlapping; overlaps are reported as
	// configuration warnings by the rules factory but resolution stays
	// first-match.
	SeasonalAdjustments []SeasonalAdjustment

	// BlackoutPeriods tolerate zero overbooking regardless of other settings.
	BlackoutPeriods []BlackoutPeriod

	// AllowedSources, when non-empty, is the allow-list of origin channels
	// permitted to book into an at-or-over-capacity pool.
	AllowedSources []string

	// MinimumLeadTime is the shortest acceptable hours between booking and
	// check-in. It is advisory: a shortfall adds a decision warning, never a
	// deny on its own.
	MinimumLeadTime int

	AutoUpgradeEnabled bool
	Compensation       CompensationPolicy
}

// SeasonalAdjustment overrides the maximum percentage for a date range.
// Ranges are half-open like stays.
type SeasonalAdjustment struct {
	Range  DateRange
	MaxPct float64
}

// BlackoutPeriod is a half-open range during which zero overbooking is
// tolerated.
type BlackoutPeriod struct {
	Range  DateRange
	Reason string
}

// CompensationPolicy supplies defaults for compensation records when an
// accepted booking cannot be honored.
type CompensationPolicy struct {
	Enabled  bool
	Amount   string // decimal string, parsed by the compensation ledger
	Currency string
	Type     string // monetary | upgrade | future_credit
}

// EffectiveMaxPct returns the seasonal-or-base percentage for a date.
func (r Rule) EffectiveMaxPct(date Date) float64 {
	for _, adj := range r.SeasonalAdjustments {
		if adj.Range.Contains(date) {
			return adj.MaxPct
		}
	}
	return r.MaxPct
}

// IsBlackout reports whether a single day falls inside any blackout range.
func (r Rule) IsBlackout(date Date) bool {
	for _, b := range r.BlackoutPeriods {
		if b.Range.Contains(date) {
			return true
		}
	}
	return false
}

// BlackoutWithin returns the first blackout touching any occupied day of the
// stay, or nil. The checkout day is not occupied and cannot trigger one.
func (r Rule) BlackoutWithin(rng DateRange) *BlackoutPeriod {
	for i := range r.BlackoutPeriods {
		if r.BlackoutPeriods[i].Range.Overlaps(rng) {
			return &r.BlackoutPeriods[i]
		}
	}
	return nil
}

// SourceAllowed reports whether the origin channel may book when the pool is
// at or over capacity. An empty allow-list means no restriction.
func (r Rule) SourceAllowed(source string) bool {
	if len(r.AllowedSources) == 0 {
		return true
	}
	for _, s := range r.AllowedSources {
		if s == source {
			return true
		}
	}
	return false
}

// =============================================================================
// RULE REPOSITORY - Externalized policy
// =============================================================================

// RuleRepository resolves the configured rule for a property and optional
// room type scope. Implementations live in the rules package.
type RuleRepository interface {
	RuleFor(ctx context.Context, propertyID PropertyID, roomTypeID RoomTypeID) (Rule, error)
}

// =============================================================================
// RESOLVER - Effective rule for a property/room-type/date
// =============================================================================

// Resolver resolves the effective overbooking rule, applying category
// overrides after seasonal resolution.
type Resolver struct {
	Rules     RuleRepository
	RoomTypes RoomTypeStore
}

// economy inventory tolerates more oversell than the base rule allows
const (
	economyPctFactor = 1.5
	economyExtraUnit = 1
)

// Resolve returns the effective rule for the check-in date. The returned
// rule's MaxPct is already the seasonal-or-base value for that date; the
// SeasonalAdjustments slice is cleared so callers cannot double-apply it.
func (rr *Resolver) Resolve(ctx context.Context, propertyID PropertyID, roomTypeID RoomTypeID, date Date) (Rule, error) {
	if propertyID == "" {
		return Rule{}, ErrMissingProperty
	}

	rule, err := rr.Rules.RuleFor(ctx, propertyID, roomTypeID)
	if err != nil {
		return Rule{}, err
	}

	rule.MaxPct = rule.EffectiveMaxPct(date)
	rule.SeasonalAdjustments = nil

	if roomTypeID == "" {
		return rule, nil
	}

	rt, err := rr.RoomTypes.Get(ctx, roomTypeID)
	if err != nil {
		return Rule{}, err
	}

	switch {
	case rt.Category.Protected():
		// Premium inventory: a walked guest here is unacceptable.
		rule.MaxPct = 0
		rule.MaxCount = 0
	case rt.Category == CategoryEconomy:
		rule.MaxPct = rule.MaxPct * economyPctFactor
		if rule.MaxPct > 100 {
			rule.MaxPct = 100
		}
		rule.MaxCount += economyExtraUnit
	}

	return rule, nil
}
