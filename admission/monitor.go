/*
monitor.go - Forward-looking compliance sweep

PURPOSE:
  Sweeps a rolling horizon to surface room types and dates that are
  approaching or past their overbooking limits, for proactive operations:
  stop-selling a date, opening oversell on another, or pre-arranging walks.

SHAPE:
  For each day in [today, today+horizon) and each active room type, run the
  capacity snapshot and classify risk against the resolved rule. Entries
  whose risk is not low become RiskAreas; the overall status rolls up as
  critical > warning > safe.

SCHEDULING:
  The sweep is O(horizon x room types) capacity queries and must never run
  inside the booking request path. api/sweep.go runs it on a cron schedule;
  the monitor endpoint runs it on demand. Deterministic given a snapshot of
  the underlying data.
*/
package admission

import (
	"context"
	"fmt"
	"time"
)

// DefaultHorizonDays is the sweep horizon when the caller passes none.
const DefaultHorizonDays = 30

// SweepStatus is the rolled-up state of a property's horizon.
type SweepStatus string

const (
	SweepSafe     SweepStatus = "safe"
	SweepWarning  SweepStatus = "warning"
	SweepCritical SweepStatus = "critical"
)

// RiskArea is one room-type/date combination worth operator attention.
type RiskArea struct {
	Date     Date
	RoomType RoomTypeID
	Analysis RiskAnalysis
}

// SweepReport is the monitor's output for one property.
type SweepReport struct {
	PropertyID      PropertyID
	Horizon         int
	GeneratedAt     time.Time
	Status          SweepStatus
	RiskAreas       []RiskArea
	Recommendations []string
	NextActions     []string
}

// Monitor runs compliance sweeps over live capacity data.
type Monitor struct {
	Resolver  *Resolver
	Snapshots *Snapshotter
	RoomTypes RoomTypeStore

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

// Sweep examines [today, today+horizonDays) for every active room type.
// horizonDays <= 0 selects DefaultHorizonDays.
func (m *Monitor) Sweep(ctx context.Context, propertyID PropertyID, horizonDays int) (SweepReport, error) {
	if propertyID == "" {
		return SweepReport{}, ErrMissingProperty
	}
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}

	now := time.Now()
	if m.Now != nil {
		now = m.Now()
	}
	today := DateOf(now)

	roomTypes, err := m.RoomTypes.ActiveRoomTypes(ctx, propertyID)
	if err != nil {
		return SweepReport{}, &StorageError{Op: "roomTypes.ActiveRoomTypes", Err: err}
	}

	report := SweepReport{
		PropertyID:  propertyID,
		Horizon:     horizonDays,
		GeneratedAt: now,
		Status:      SweepSafe,
	}

	for day := 0; day < horizonDays; day++ {
		date := today.AddDays(day)
		night := DateRange{From: date, To: date.AddDays(1)}

		for _, rt := range roomTypes {
			rule, err := m.Resolver.Resolve(ctx, propertyID, rt.ID, date)
			if err != nil {
				return SweepReport{}, err
			}
			snap, err := m.Snapshots.Snapshot(ctx, propertyID, rt.ID, night)
			if err != nil {
				return SweepReport{}, err
			}

			if degenerateCapacity(snap.TotalRooms, snap.ConfirmedBookings+snap.PendingBookings) {
				snap.RiskLevel = RiskCritical
			} else {
				snap.RiskLevel = classifyAgainstLimits(snap.OverbookingCount, rule.MaxCount, snap.OverbookingPct, rule.MaxPct)
			}
			if snap.RiskLevel == RiskLow {
				continue
			}

			snap.Recommendations = recommendFor(snap, rule)
			report.RiskAreas = append(report.RiskAreas, RiskArea{
				Date:     date,
				RoomType: rt.ID,
				Analysis: snap,
			})
		}
	}

	report.Status = rollUp(report.RiskAreas)
	report.Recommendations, report.NextActions = summarize(report.RiskAreas)
	return report, nil
}

// rollUp: critical if any area is critical, warning if any is high, else safe.
func rollUp(areas []RiskArea) SweepStatus {
	status := SweepSafe
	for _, a := range areas {
		switch a.Analysis.RiskLevel {
		case RiskCritical:
			return SweepCritical
		case RiskHigh:
			status = SweepWarning
		}
	}
	return status
}

func recommendFor(snap RiskAnalysis, rule Rule) []string {
	var recs []string
	switch snap.RiskLevel {
	case RiskCritical:
		recs = append(recs, "stop accepting new bookings for this date")
		if snap.OverbookingCount > 0 {
			recs = append(recs, fmt.Sprintf("pre-arrange walks for %d oversold unit(s)", snap.OverbookingCount))
		}
		if rule.Compensation.Enabled {
			recs = append(recs, "compensation policy active: budget for walked guests")
		}
	case RiskHigh:
		recs = append(recs, "restrict remaining sales to high-value channels")
	case RiskMedium:
		recs = append(recs, "monitor pending bookings for this date")
	}
	return recs
}

func summarize(areas []RiskArea) (recommendations, nextActions []string) {
	if len(areas) == 0 {
		return nil, nil
	}

	criticalDays := 0
	highDays := 0
	for _, a := range areas {
		switch a.Analysis.RiskLevel {
		case RiskCritical:
			criticalDays++
		case RiskHigh:
			highDays++
		}
	}

	if criticalDays > 0 {
		recommendations = append(recommendations, fmt.Sprintf("%d date(s) at or past their overbooking limit", criticalDays))
		nextActions = append(nextActions, "review critical dates and confirm walk plans")
	}
	if highDays > 0 {
		recommendations = append(recommendations, fmt.Sprintf("%d date(s) approaching their overbooking limit", highDays))
		nextActions = append(nextActions, "tighten source restrictions on approaching dates")
	}
	return recommendations, nextActions
}
