/*
risk.go - Overbooking risk classification

PURPOSE:
  Maps how close current oversell is to the allowed limit onto the four-tier
  risk scale. Pure and monotonic: for a fixed limit, a higher percentage
  never yields a lower risk.

THRESHOLDS (ratio = current / max):
  ratio >= 1.0  -> critical   (at or past the limit)
  ratio >= 0.8  -> high       (approaching the limit)
  ratio >= 0.5  -> medium
  else          -> low

ZERO LIMIT:
  A limit of zero means no oversell is tolerated. Any positive current
  percentage is immediately critical; zero current is low. Never divides.

ZERO CAPACITY:
  A pool with no bookable units is degenerate: the percentage is reported
  as zero (no divisor), so ratio math alone would understate the danger.
  Callers check degenerateCapacity before classifying and pin any demand
  against an empty pool to critical.
*/
package admission

const (
	// ApproachingLimitRatio is where decisions start carrying a warning even
	// when allowed, and where the sweep rolls a property up to "warning".
	ApproachingLimitRatio = 0.8

	elevatedRatio = 0.5
)

// ClassifyRisk maps the current overbooking percentage against the effective
// maximum onto a RiskLevel.
func ClassifyRisk(currentPct, maxPct float64) RiskLevel {
	if maxPct <= 0 {
		if currentPct > 0 {
			return RiskCritical
		}
		return RiskLow
	}

	ratio := currentPct / maxPct
	switch {
	case ratio >= 1.0:
		return RiskCritical
	case ratio >= ApproachingLimitRatio:
		return RiskHigh
	case ratio >= elevatedRatio:
		return RiskMedium
	default:
		return RiskLow
	}
}

// classifyAgainstLimits applies ClassifyRisk across both the count limit and
// the percentage limit and keeps the worse of the two. A count limit of zero
// with any simulated overbooking is critical for the same reason a zero
// percentage limit is.
func classifyAgainstLimits(count, maxCount int, pct, maxPct float64) RiskLevel {
	byPct := ClassifyRisk(pct, maxPct)

	var byCount RiskLevel
	if maxCount <= 0 {
		if count > 0 {
			byCount = RiskCritical
		}
	} else {
		byCount = ClassifyRisk(float64(count)*100, float64(maxCount)*100)
	}

	if byCount.AtLeast(byPct) {
		return byCount
	}
	return byPct
}

// degenerateCapacity reports whether demand exists against a pool with no
// bookable units. Every such admission is a guaranteed walk, so the limit
// ratios are irrelevant and the risk is always critical.
func degenerateCapacity(totalRooms, demand int) bool {
	return totalRooms == 0 && demand > 0
}
