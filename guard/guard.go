/*
Package guard closes the check-then-act race in admission control.

PURPOSE:
  Decider.Decide reads current counts and approves; the caller then inserts
  the reservation. Between the read and the insert, a concurrent caller can
  read the same counts and also be approved, so BOTH exceed the limit. The
  guard is the atomic step the two callers cannot both win: a per
  property/room-type/date admit counter incremented only while below a
  threshold, all dates of the stay or none.

SHAPE:
  Acquire(key, dates, observed, limit) atomically increments every date's
  counter if and only if all of them are below limit. A counter that has
  fallen behind the demand already sitting in storage is first floored to
  observed, so a fresh (or restarted) guard cannot hand out capacity the
  store has already spent. Release decrements, for rollback when the
  subsequent insert fails and for cancellations.

IMPLEMENTATIONS:
  - Memory: mutex-guarded counters, correct for a single process
  - Redis:  one Lua script over all date keys, correct across processes

The guard counter still defers to the reservation store as the source of
truth - the observed floor is how the store's view re-seeds the counters.
Counters expire (redis) or are released (cancel path) so drift self-heals
at the horizon boundary.
*/
package guard

import (
	"context"
	"sync"

	"github.com/stayware/admission-engine/admission"
)

// CounterKey scopes admit counters. RoomTypeID may be empty for
// property-wide pools.
type CounterKey struct {
	PropertyID admission.PropertyID
	RoomTypeID admission.RoomTypeID
}

// Guard is an atomic increment-if-below counter per key and date.
type Guard interface {
	// Acquire increments the counter of every date iff all are below limit.
	// Counters below observed are treated as observed before the check, so
	// demand already persisted in storage counts even against cold counters.
	// Returns false, nil when any date is already at the limit.
	Acquire(ctx context.Context, key CounterKey, dates []admission.Date, observed, limit int) (bool, error)

	// Release decrements the counters, never below zero.
	Release(ctx context.Context, key CounterKey, dates []admission.Date) error
}

// =============================================================================
// MEMORY GUARD - single-process implementation
// =============================================================================

// Memory implements Guard with an in-process mutex. Suitable for a single
// server instance; use Redis when admission runs on more than one.
type Memory struct {
	mu       sync.Mutex
	counters map[memoryKey]int
}

type memoryKey struct {
	key  CounterKey
	date admission.Date
}

func NewMemory() *Memory {
	return &Memory{counters: make(map[memoryKey]int)}
}

func (m *Memory) Acquire(_ context.Context, key CounterKey, dates []admission.Date, observed, limit int) (bool, error) {
	if limit <= 0 || len(dates) == 0 {
		return false, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// All-or-nothing: check every date before touching any counter. The
	// observed floor, not a sum, keeps admissions that later landed in
	// storage from being counted twice.
	for _, d := range dates {
		if maxInt(m.counters[memoryKey{key: key, date: d}], observed) >= limit {
			return false, nil
		}
	}
	for _, d := range dates {
		k := memoryKey{key: key, date: d}
		if m.counters[k] < observed {
			m.counters[k] = observed
		}
		m.counters[k]++
	}
	return true, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (m *Memory) Release(_ context.Context, key CounterKey, dates []admission.Date) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range dates {
		k := memoryKey{key: key, date: d}
		if m.counters[k] > 0 {
			m.counters[k]--
		}
	}
	return nil
}

var _ Guard = (*Memory)(nil)
