package admission

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Day-granularity calendar point
// =============================================================================

// Date is a calendar day. All capacity math in this system operates on whole
// nights, so hours and finer granularity are deliberately not representable.
type Date struct {
	Time time.Time
}

// Constructors
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an arbitrary instant to its UTC calendar day.
func DateOf(t time.Time) Date {
	u := t.UTC()
	return NewDate(u.Year(), u.Month(), u.Day())
}

func Today() Date { return DateOf(time.Now()) }

// ParseDate parses an ISO-8601 calendar date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return Date{Time: t}, nil
}

// Comparison
func (d Date) Before(other Date) bool        { return d.Time.Before(other.Time) }
func (d Date) After(other Date) bool         { return d.Time.After(other.Time) }
func (d Date) Equal(other Date) bool         { return d.Time.Equal(other.Time) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) IsZero() bool                  { return d.Time.IsZero() }

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{Time: d.Time.AddDate(0, 0, n)} }

func (d Date) String() string { return d.Time.Format("2006-01-02") }

// =============================================================================
// DATE RANGE - Half-open stay interval [From, To)
// =============================================================================

// DateRange is a half-open interval: From is the check-in night, To is the
// checkout day and is NOT occupied. A checkout and a check-in on the same
// calendar day therefore never conflict (same-day turnover).
type DateRange struct {
	From Date
	To   Date
}

func NewDateRange(from, to Date) (DateRange, error) {
	r := DateRange{From: from, To: to}
	if err := r.Validate(); err != nil {
		return DateRange{}, err
	}
	return r, nil
}

// Validate enforces the From < To invariant. Zero-length and inverted ranges
// are rejected before any storage access.
func (r DateRange) Validate() error {
	if r.From.IsZero() || r.To.IsZero() {
		return ErrInvalidRange
	}
	if !r.From.Before(r.To) {
		return ErrInvalidRange
	}
	return nil
}

// Overlaps reports whether two half-open ranges intersect:
// [a,b) overlaps [c,d) iff a < d AND c < b.
func (r DateRange) Overlaps(other DateRange) bool {
	return r.From.Before(other.To) && other.From.Before(r.To)
}

// Contains reports whether the day d is occupied by this range.
func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.From) && d.Before(r.To)
}

// Nights returns the number of occupied nights.
func (r DateRange) Nights() int {
	return int(r.To.Time.Sub(r.From.Time).Hours() / 24)
}

// Days returns every occupied day, in order. The checkout day is excluded.
func (r DateRange) Days() []Date {
	days := make([]Date, 0, r.Nights())
	for d := r.From; d.Before(r.To); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

// Shift returns the range moved by n days with the same stay length.
// Used by the alternative-date search.
func (r DateRange) Shift(n int) DateRange {
	return DateRange{From: r.From.AddDays(n), To: r.To.AddDays(n)}
}

func (r DateRange) String() string {
	return r.From.String() + ".." + r.To.String()
}
