/*
Package rules owns the externalized overbooking policy: the JSON rule
documents operators edit, their validation, and the repositories that serve
resolved admission.Rule values to the engine.

PURPOSE:
  Rule semantics live in the admission package (seasonal resolution,
  blackouts, category overrides). This package converts operator-edited JSON
  into admission.Rule and stores/caches the documents, so policy changes
  never require a redeploy.

JSON SCHEMA:
  {
    "max_overbooking_percentage": 20,
    "max_overbooking_count": 2,
    "seasonal_adjustments": [
      {"start_date": "2024-06-01", "end_date": "2024-09-01", "max_overbooking_percentage": 5}
    ],
    "blackout_dates": [
      {"start_date": "2024-12-30", "end_date": "2025-01-02", "reason": "new year"}
    ],
    "allowed_booking_sources": ["direct", "ota:booking"],
    "minimum_lead_time_hours": 24,
    "auto_upgrade_enabled": true,
    "compensation_policy": {
      "enabled": true, "amount": "150.00", "currency": "EUR", "type": "monetary"
    }
  }

VALIDATION:
  Structural problems (percentage out of 0-100, negative count, inverted
  ranges) fail the parse. Overlapping seasonal ranges are ambiguous but
  resolvable (first match wins), so they are returned as warnings, not
  errors - operators see them, bookings keep flowing.
*/
package rules

import (
	"encoding/json"
	"fmt"

	"github.com/stayware/admission-engine/admission"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RuleJSON is the operator-edited representation of an overbooking rule.
type RuleJSON struct {
	MaxPct         float64          `json:"max_overbooking_percentage"`
	MaxCount       int              `json:"max_overbooking_count"`
	Seasonal       []SeasonalJSON   `json:"seasonal_adjustments,omitempty"`
	Blackouts      []BlackoutJSON   `json:"blackout_dates,omitempty"`
	AllowedSources []string         `json:"allowed_booking_sources,omitempty"`
	MinLeadTime    int              `json:"minimum_lead_time_hours,omitempty"`
	AutoUpgrade    bool             `json:"auto_upgrade_enabled,omitempty"`
	Compensation   *CompensationJSON `json:"compensation_policy,omitempty"`
}

// SeasonalJSON overrides the percentage for a half-open date range.
type SeasonalJSON struct {
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
	MaxPct    float64 `json:"max_overbooking_percentage"`
}

// BlackoutJSON is a half-open zero-tolerance range.
type BlackoutJSON struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Reason    string `json:"reason,omitempty"`
}

// CompensationJSON configures compensation defaults.
type CompensationJSON struct {
	Enabled  bool   `json:"enabled"`
	Amount   string `json:"amount,omitempty"`
	Currency string `json:"currency,omitempty"`
	Type     string `json:"type,omitempty"`
}

// =============================================================================
// FACTORY
// =============================================================================

// Factory converts JSON rule documents to admission.Rule values.
type Factory struct{}

func NewFactory() *Factory { return &Factory{} }

// Parse parses a JSON document. Warnings report resolvable configuration
// problems (overlapping seasonal ranges); the rule is still usable.
func (f *Factory) Parse(jsonStr string) (admission.Rule, []string, error) {
	var rj RuleJSON
	if err := json.Unmarshal([]byte(jsonStr), &rj); err != nil {
		return admission.Rule{}, nil, fmt.Errorf("failed to parse rule JSON: %w", err)
	}
	return f.FromJSON(rj)
}

// FromJSON converts RuleJSON to an admission.Rule.
func (f *Factory) FromJSON(rj RuleJSON) (admission.Rule, []string, error) {
	if rj.MaxPct < 0 || rj.MaxPct > 100 {
		return admission.Rule{}, nil, fmt.Errorf("max_overbooking_percentage must be 0-100, got %v", rj.MaxPct)
	}
	if rj.MaxCount < 0 {
		return admission.Rule{}, nil, fmt.Errorf("max_overbooking_count must be >= 0, got %d", rj.MaxCount)
	}
	if rj.MinLeadTime < 0 {
		return admission.Rule{}, nil, fmt.Errorf("minimum_lead_time_hours must be >= 0, got %d", rj.MinLeadTime)
	}

	rule := admission.Rule{
		MaxPct:             rj.MaxPct,
		MaxCount:           rj.MaxCount,
		AllowedSources:     rj.AllowedSources,
		MinimumLeadTime:    rj.MinLeadTime,
		AutoUpgradeEnabled: rj.AutoUpgrade,
	}

	for i, s := range rj.Seasonal {
		rng, err := parseRange(s.StartDate, s.EndDate)
		if err != nil {
			return admission.Rule{}, nil, fmt.Errorf("seasonal_adjustments[%d]: %w", i, err)
		}
		if s.MaxPct < 0 || s.MaxPct > 100 {
			return admission.Rule{}, nil, fmt.Errorf("seasonal_adjustments[%d]: percentage must be 0-100, got %v", i, s.MaxPct)
		}
		rule.SeasonalAdjustments = append(rule.SeasonalAdjustments, admission.SeasonalAdjustment{
			Range:  rng,
			MaxPct: s.MaxPct,
		})
	}

	for i, b := range rj.Blackouts {
		rng, err := parseRange(b.StartDate, b.EndDate)
		if err != nil {
			return admission.Rule{}, nil, fmt.Errorf("blackout_dates[%d]: %w", i, err)
		}
		rule.BlackoutPeriods = append(rule.BlackoutPeriods, admission.BlackoutPeriod{
			Range:  rng,
			Reason: b.Reason,
		})
	}

	if rj.Compensation != nil {
		rule.Compensation = admission.CompensationPolicy{
			Enabled:  rj.Compensation.Enabled,
			Amount:   rj.Compensation.Amount,
			Currency: rj.Compensation.Currency,
			Type:     rj.Compensation.Type,
		}
	}

	return rule, seasonalOverlapWarnings(rule.SeasonalAdjustments), nil
}

// ToJSON converts an admission.Rule back to its operator representation.
func (f *Factory) ToJSON(rule admission.Rule) RuleJSON {
	rj := RuleJSON{
		MaxPct:         rule.MaxPct,
		MaxCount:       rule.MaxCount,
		AllowedSources: rule.AllowedSources,
		MinLeadTime:    rule.MinimumLeadTime,
		AutoUpgrade:    rule.AutoUpgradeEnabled,
	}
	for _, s := range rule.SeasonalAdjustments {
		rj.Seasonal = append(rj.Seasonal, SeasonalJSON{
			StartDate: s.Range.From.String(),
			EndDate:   s.Range.To.String(),
			MaxPct:    s.MaxPct,
		})
	}
	for _, b := range rule.BlackoutPeriods {
		rj.Blackouts = append(rj.Blackouts, BlackoutJSON{
			StartDate: b.Range.From.String(),
			EndDate:   b.Range.To.String(),
			Reason:    b.Reason,
		})
	}
	if rule.Compensation != (admission.CompensationPolicy{}) {
		rj.Compensation = &CompensationJSON{
			Enabled:  rule.Compensation.Enabled,
			Amount:   rule.Compensation.Amount,
			Currency: rule.Compensation.Currency,
			Type:     rule.Compensation.Type,
		}
	}
	return rj
}

func parseRange(start, end string) (admission.DateRange, error) {
	from, err := admission.ParseDate(start)
	if err != nil {
		return admission.DateRange{}, err
	}
	to, err := admission.ParseDate(end)
	if err != nil {
		return admission.DateRange{}, err
	}
	return admission.NewDateRange(from, to)
}

// seasonalOverlapWarnings flags ambiguous (overlapping) seasonal ranges.
// First match stays authoritative either way.
func seasonalOverlapWarnings(adjs []admission.SeasonalAdjustment) []string {
	var warnings []string
	for i := 0; i < len(adjs); i++ {
		for j := i + 1; j < len(adjs); j++ {
			if adjs[i].Range.Overlaps(adjs[j].Range) {
				warnings = append(warnings, fmt.Sprintf(
					"seasonal ranges %s and %s overlap; the earlier entry wins for shared dates",
					adjs[i].Range, adjs[j].Range))
			}
		}
	}
	return warnings
}
