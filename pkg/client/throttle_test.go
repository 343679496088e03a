package client

import (
	"context"
	"testing"
	"time"
)

func TestThrottle_SpacesRequests(t *testing.T) {
	// 100 req/s means at least 10ms between dispatches.
	th := newThrottle(100)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := th.waitTurn(ctx); err != nil {
			t.Fatalf("waitTurn failed on turn %d: %v", i, err)
		}
	}
	elapsed := time.Since(start)

	// First turn is free; the next two wait ~10ms each.
	if elapsed < 15*time.Millisecond {
		t.Errorf("3 turns at 100 req/s took %v, want >= 15ms", elapsed)
	}
}

func TestThrottle_FirstTurnImmediate(t *testing.T) {
	th := newThrottle(1)

	start := time.Now()
	if err := th.waitTurn(context.Background()); err != nil {
		t.Fatalf("waitTurn failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("First turn waited %v, want immediate", elapsed)
	}
}

func TestThrottle_ContextCancellation(t *testing.T) {
	// 1 req/s with the bucket drained: the second turn would wait ~1s.
	th := newThrottle(1)
	if err := th.waitTurn(context.Background()); err != nil {
		t.Fatalf("First waitTurn failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := th.waitTurn(ctx)
	if err == nil {
		t.Fatal("waitTurn should fail when the context expires during the wait")
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("waitTurn returned after %v, want prompt cancellation", elapsed)
	}
}
