package admission_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stayware/admission-engine/admission"
)

func date(y int, m time.Month, d int) admission.Date {
	return admission.NewDate(y, m, d)
}

func rng(from, to admission.Date) admission.DateRange {
	return admission.DateRange{From: from, To: to}
}

// =============================================================================
// HALF-OPEN RANGE SEMANTICS
// =============================================================================

func TestDateRange_Overlaps(t *testing.T) {
	base := rng(date(2026, 6, 10), date(2026, 6, 15))

	cases := []struct {
		name  string
		other admission.DateRange
		want  bool
	}{
		{"identical", rng(date(2026, 6, 10), date(2026, 6, 15)), true},
		{"contained", rng(date(2026, 6, 11), date(2026, 6, 13)), true},
		{"straddles start", rng(date(2026, 6, 8), date(2026, 6, 11)), true},
		{"straddles end", rng(date(2026, 6, 14), date(2026, 6, 18)), true},
		{"single night inside", rng(date(2026, 6, 12), date(2026, 6, 13)), true},
		{"checkout equals checkin", rng(date(2026, 6, 15), date(2026, 6, 20)), false},
		{"checkin equals checkout", rng(date(2026, 6, 5), date(2026, 6, 10)), false},
		{"entirely before", rng(date(2026, 6, 1), date(2026, 6, 5)), false},
		{"entirely after", rng(date(2026, 6, 20), date(2026, 6, 25)), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := base.Overlaps(tc.other); got != tc.want {
				t.Errorf("Overlaps(%v) = %v, want %v", tc.other, got, tc.want)
			}
			// Overlap is symmetric
			if got := tc.other.Overlaps(base); got != tc.want {
				t.Errorf("reverse Overlaps(%v) = %v, want %v", base, got, tc.want)
			}
		})
	}
}

func TestDateRange_SameDayTurnover(t *testing.T) {
	// GIVEN: A guest checks out June 15, another checks in June 15
	// THEN: The stays don't conflict - the room turns over that day
	a := rng(date(2026, 6, 10), date(2026, 6, 15))
	b := rng(date(2026, 6, 15), date(2026, 6, 18))

	if a.Overlaps(b) {
		t.Error("same-day turnover should not be a conflict")
	}
}

func TestDateRange_Validate(t *testing.T) {
	if err := rng(date(2026, 6, 10), date(2026, 6, 11)).Validate(); err != nil {
		t.Errorf("one-night stay should be valid, got %v", err)
	}

	// Zero-length stay
	err := rng(date(2026, 6, 10), date(2026, 6, 10)).Validate()
	if !errors.Is(err, admission.ErrInvalidRange) {
		t.Errorf("zero-length range: want ErrInvalidRange, got %v", err)
	}

	// Inverted
	err = rng(date(2026, 6, 15), date(2026, 6, 10)).Validate()
	if !errors.Is(err, admission.ErrInvalidRange) {
		t.Errorf("inverted range: want ErrInvalidRange, got %v", err)
	}
}

func TestDateRange_Days_ExcludesCheckout(t *testing.T) {
	days := rng(date(2026, 6, 10), date(2026, 6, 13)).Days()

	if len(days) != 3 {
		t.Fatalf("expected 3 occupied nights, got %d", len(days))
	}
	if !days[0].Equal(date(2026, 6, 10)) || !days[2].Equal(date(2026, 6, 12)) {
		t.Errorf("unexpected days %v", days)
	}
}

func TestDateRange_Nights(t *testing.T) {
	if n := rng(date(2026, 6, 10), date(2026, 6, 15)).Nights(); n != 5 {
		t.Errorf("expected 5 nights, got %d", n)
	}
}

func TestDateRange_Shift(t *testing.T) {
	shifted := rng(date(2026, 6, 10), date(2026, 6, 12)).Shift(3)

	if !shifted.From.Equal(date(2026, 6, 13)) || !shifted.To.Equal(date(2026, 6, 15)) {
		t.Errorf("unexpected shifted range %v", shifted)
	}
}

func TestParseDate(t *testing.T) {
	d, err := admission.ParseDate("2026-06-10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Equal(date(2026, 6, 10)) {
		t.Errorf("got %v", d)
	}

	if _, err := admission.ParseDate("10/06/2026"); err == nil {
		t.Error("expected error for non-ISO date")
	}
}
