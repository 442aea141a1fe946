package api

import (
	"testing"
	"time"
)

// =============================================================================
// PER-IP RATE LIMITER
// =============================================================================

func TestIPLimiters_SweepsIdleEntriesOnLookup(t *testing.T) {
	// GIVEN: One bucket gone stale, with the sweep interval already elapsed
	l := newIPLimiters(10, 10)
	l.get("10.0.0.1")

	l.mu.Lock()
	l.limiters["10.0.0.1"].lastSeen = time.Now().Add(-2 * limiterIdleTTL)
	l.lastSweep = time.Now().Add(-2 * limiterSweepInterval)
	l.mu.Unlock()

	// WHEN: Any other client looks up its bucket
	l.get("10.0.0.2")

	// THEN: The stale bucket is gone, the live one stays
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.limiters["10.0.0.1"]; ok {
		t.Error("idle limiter survived the sweep")
	}
	if _, ok := l.limiters["10.0.0.2"]; !ok {
		t.Error("active limiter was evicted")
	}
}

func TestIPLimiters_SweepRespectsInterval(t *testing.T) {
	// GIVEN: A stale bucket but a sweep that ran moments ago
	l := newIPLimiters(10, 10)
	l.get("10.0.0.1")

	l.mu.Lock()
	l.limiters["10.0.0.1"].lastSeen = time.Now().Add(-2 * limiterIdleTTL)
	l.mu.Unlock()

	l.get("10.0.0.2")

	// THEN: No sweep yet; eviction waits for the interval
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.limiters["10.0.0.1"]; !ok {
		t.Error("sweep ran before the interval elapsed")
	}
}
