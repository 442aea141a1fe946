package guard_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stayware/admission-engine/admission"
	"github.com/stayware/admission-engine/guard"
)

func day(d int) admission.Date {
	return admission.NewDate(2026, time.July, d)
}

func stayDays(from, to int) []admission.Date {
	var out []admission.Date
	for d := from; d < to; d++ {
		out = append(out, day(d))
	}
	return out
}

var testKey = guard.CounterKey{PropertyID: "hotel-1", RoomTypeID: "std"}

// =============================================================================
// MEMORY GUARD
// =============================================================================

func TestMemoryAcquire_UpToLimit(t *testing.T) {
	g := guard.NewMemory()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := g.Acquire(ctx, testKey, stayDays(1, 4), 0, 3)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok {
			t.Fatalf("acquire %d should succeed below limit", i+1)
		}
	}

	ok, err := g.Acquire(ctx, testKey, stayDays(1, 4), 0, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("fourth acquire should fail at limit 3")
	}
}

func TestMemoryAcquire_AllOrNothing(t *testing.T) {
	g := guard.NewMemory()
	ctx := context.Background()

	// Saturate July 3 only
	for i := 0; i < 2; i++ {
		if ok, _ := g.Acquire(ctx, testKey, stayDays(3, 4), 0, 2); !ok {
			t.Fatal("setup acquire failed")
		}
	}

	// A stay crossing July 3 must fail though its other dates are free
	ok, err := g.Acquire(ctx, testKey, stayDays(1, 5), 0, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("acquire with one saturated date should fail")
	}

	// And it must not have leaked partial increments: July 1 still has
	// the full limit available
	for i := 0; i < 2; i++ {
		if ok, _ := g.Acquire(ctx, testKey, stayDays(1, 2), 0, 2); !ok {
			t.Fatalf("july 1 acquire %d failed; failed acquire leaked a count", i+1)
		}
	}
}

func TestMemoryRelease_FreesCapacity(t *testing.T) {
	g := guard.NewMemory()
	ctx := context.Background()

	g.Acquire(ctx, testKey, stayDays(1, 3), 0, 1)

	if ok, _ := g.Acquire(ctx, testKey, stayDays(1, 3), 0, 1); ok {
		t.Fatal("second acquire should fail at limit 1")
	}

	if err := g.Release(ctx, testKey, stayDays(1, 3)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ok, _ := g.Acquire(ctx, testKey, stayDays(1, 3), 0, 1); !ok {
		t.Fatal("acquire after release should succeed")
	}
}

func TestMemoryRelease_FloorsAtZero(t *testing.T) {
	g := guard.NewMemory()
	ctx := context.Background()

	// Release without acquire must not create negative counters
	g.Release(ctx, testKey, stayDays(1, 3))

	ok, _ := g.Acquire(ctx, testKey, stayDays(1, 3), 0, 1)
	if !ok {
		t.Fatal("acquire should succeed")
	}
	if ok, _ := g.Acquire(ctx, testKey, stayDays(1, 3), 0, 1); ok {
		t.Fatal("limit 1 should still hold after the stray release")
	}
}

func TestMemoryAcquire_DegenerateInputs(t *testing.T) {
	g := guard.NewMemory()
	ctx := context.Background()

	if ok, _ := g.Acquire(ctx, testKey, stayDays(1, 3), 0, 0); ok {
		t.Error("zero limit should never admit")
	}
	if ok, _ := g.Acquire(ctx, testKey, nil, 0, 5); ok {
		t.Error("empty date set should never admit")
	}
}

func TestMemoryAcquire_KeysAreIndependent(t *testing.T) {
	g := guard.NewMemory()
	ctx := context.Background()
	other := guard.CounterKey{PropertyID: "hotel-2", RoomTypeID: "std"}

	g.Acquire(ctx, testKey, stayDays(1, 2), 0, 1)

	if ok, _ := g.Acquire(ctx, other, stayDays(1, 2), 0, 1); !ok {
		t.Error("counters leaked across properties")
	}
}

func TestMemoryAcquire_ObservedFloorsColdCounters(t *testing.T) {
	// GIVEN: A fresh guard, but storage already holds 5 overlapping stays
	g := guard.NewMemory()
	ctx := context.Background()

	// WHEN/THEN: With limit 6 only one slot remains despite the zero counters
	ok, err := g.Acquire(ctx, testKey, stayDays(1, 4), 5, 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("one slot below the limit should admit")
	}
	if ok, _ := g.Acquire(ctx, testKey, stayDays(1, 4), 5, 6); ok {
		t.Fatal("second acquire should fail; observed demand fills the rest")
	}
}

func TestMemoryAcquire_ObservedFloorDoesNotDoubleCount(t *testing.T) {
	// GIVEN: One admission already tracked by the counters
	g := guard.NewMemory()
	ctx := context.Background()
	if ok, _ := g.Acquire(ctx, testKey, stayDays(1, 4), 0, 2); !ok {
		t.Fatal("setup acquire failed")
	}

	// WHEN: That same admission now also shows up in storage as observed=1
	// THEN: It is floored, not added - the second slot is still free
	ok, err := g.Acquire(ctx, testKey, stayDays(1, 4), 1, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("observed matching the counter must not consume extra capacity")
	}
}

// =============================================================================
// CONCURRENCY - only `limit` winners under contention
// =============================================================================

func TestMemoryAcquire_Concurrent(t *testing.T) {
	g := guard.NewMemory()
	const limit = 5
	const contenders = 50

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := g.Acquire(context.Background(), testKey, stayDays(1, 4), 0, limit)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if winners != limit {
		t.Errorf("%d winners, want exactly %d", winners, limit)
	}
}
