package admission_test

import (
	"context"
	"testing"

	"github.com/stayware/admission-engine/admission"
	"github.com/stayware/admission-engine/admission/store"
	"github.com/stayware/admission-engine/rules"
)

func newResolver(repo admission.RuleRepository, m *store.Memory) *admission.Resolver {
	return &admission.Resolver{Rules: repo, RoomTypes: m.RoomTypes()}
}

// =============================================================================
// RULE METHODS
// =============================================================================

func TestRule_EffectiveMaxPct_FirstMatchWins(t *testing.T) {
	rule := admission.Rule{
		MaxPct: 10,
		SeasonalAdjustments: []admission.SeasonalAdjustment{
			{Range: rng(date(2026, 6, 1), date(2026, 9, 1)), MaxPct: 20},
			{Range: rng(date(2026, 7, 1), date(2026, 8, 1)), MaxPct: 30},
		},
	}

	// Outside any season: base
	if pct := rule.EffectiveMaxPct(date(2026, 3, 15)); pct != 10 {
		t.Errorf("off-season pct = %v, want 10", pct)
	}
	// Inside summer only
	if pct := rule.EffectiveMaxPct(date(2026, 6, 15)); pct != 20 {
		t.Errorf("summer pct = %v, want 20", pct)
	}
	// July matches both; the first listed adjustment wins
	if pct := rule.EffectiveMaxPct(date(2026, 7, 15)); pct != 20 {
		t.Errorf("overlapping seasons pct = %v, want 20 (first match)", pct)
	}
}

func TestRule_BlackoutWithin(t *testing.T) {
	rule := admission.Rule{
		BlackoutPeriods: []admission.BlackoutPeriod{
			{Range: rng(date(2026, 8, 10), date(2026, 8, 13)), Reason: "festival"},
		},
	}

	// Stay straddling the blackout
	if b := rule.BlackoutWithin(rng(date(2026, 8, 8), date(2026, 8, 11))); b == nil {
		t.Error("stay overlapping blackout should be caught")
	}
	// Checkout day landing on the blackout start is not an occupied night
	if b := rule.BlackoutWithin(rng(date(2026, 8, 7), date(2026, 8, 10))); b != nil {
		t.Errorf("checkout on blackout start flagged: %v", b.Reason)
	}
	// Entirely clear
	if b := rule.BlackoutWithin(rng(date(2026, 8, 20), date(2026, 8, 22))); b != nil {
		t.Errorf("clear stay flagged: %v", b.Reason)
	}
}

func TestRule_SourceAllowed(t *testing.T) {
	open := admission.Rule{}
	if !open.SourceAllowed("walk_in") {
		t.Error("empty allow-list should admit every source")
	}

	restricted := admission.Rule{AllowedSources: []string{"direct", "corporate"}}
	if !restricted.SourceAllowed("direct") {
		t.Error("listed source should be allowed")
	}
	if restricted.SourceAllowed("ota") {
		t.Error("unlisted source should be rejected")
	}
	if !restricted.SourceAllowed("") {
		t.Error("absent source should not be filtered")
	}
}

// =============================================================================
// RESOLUTION - seasonal pct then category override
// =============================================================================

func TestResolve_SeasonalThenCategory(t *testing.T) {
	repo := rules.NewMemory()
	repo.SetRule("hotel-1", "", admission.Rule{
		MaxPct:   10,
		MaxCount: 2,
		SeasonalAdjustments: []admission.SeasonalAdjustment{
			{Range: rng(date(2026, 6, 1), date(2026, 9, 1)), MaxPct: 20},
		},
	})

	m := store.NewMemory()
	m.AddRoomType(admission.RoomType{ID: "econ", PropertyID: "hotel-1", Category: admission.CategoryEconomy})

	rule, err := newResolver(repo, m).Resolve(context.Background(), "hotel-1", "econ", date(2026, 7, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Seasonal 20% is in force, then the economy override scales it
	if rule.MaxPct != 30 {
		t.Errorf("pct = %v, want 30 (20 * 1.5)", rule.MaxPct)
	}
	if rule.MaxCount != 3 {
		t.Errorf("count = %d, want 3 (2 + 1)", rule.MaxCount)
	}
	if rule.SeasonalAdjustments != nil {
		t.Error("seasonal adjustments should be cleared after resolution")
	}
}

func TestResolve_ProtectedCategoryZeroTolerance(t *testing.T) {
	repo := rules.NewMemory()
	repo.SetRule("hotel-1", "", admission.Rule{MaxPct: 25, MaxCount: 5})

	m := store.NewMemory()
	m.AddRoomType(admission.RoomType{ID: "pres", PropertyID: "hotel-1", Category: admission.CategoryPresidential})

	rule, err := newResolver(repo, m).Resolve(context.Background(), "hotel-1", "pres", date(2026, 7, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rule.MaxPct != 0 || rule.MaxCount != 0 {
		t.Errorf("protected category: pct=%v count=%d, want 0/0", rule.MaxPct, rule.MaxCount)
	}
}

func TestResolve_EconomyPctCappedAt100(t *testing.T) {
	repo := rules.NewMemory()
	repo.SetRule("hotel-1", "", admission.Rule{MaxPct: 80, MaxCount: 1})

	m := store.NewMemory()
	m.AddRoomType(admission.RoomType{ID: "econ", PropertyID: "hotel-1", Category: admission.CategoryEconomy})

	rule, err := newResolver(repo, m).Resolve(context.Background(), "hotel-1", "econ", date(2026, 7, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rule.MaxPct != 100 {
		t.Errorf("pct = %v, want cap at 100", rule.MaxPct)
	}
}

func TestResolve_NoRuleMeansZeroTolerance(t *testing.T) {
	// A property with no configured rule gets the zero-tolerance default
	rule, err := newResolver(rules.NewMemory(), store.NewMemory()).
		Resolve(context.Background(), "hotel-1", "", date(2026, 7, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rule.MaxPct != 0 || rule.MaxCount != 0 {
		t.Errorf("default rule: pct=%v count=%d, want 0/0", rule.MaxPct, rule.MaxCount)
	}
}
