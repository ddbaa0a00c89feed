package board

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/arrival"
	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/telemetry"
)

func single(dest string) []arrival.Arrival {
	return []arrival.Arrival{{Line: "Red", Destination: dest, ArrivalTime: "5 min"}}
}

func TestRefreshAppliesResult(t *testing.T) {
	b := New("chicago/red/howard", func(context.Context) ([]arrival.Arrival, error) {
		return single("Howard"), nil
	}, time.Minute, telemetry.Nop{})

	b.Refresh(context.Background())

	arrivals, updatedAt, err := b.Snapshot()
	if err != nil {
		t.Fatalf("snapshot error: %v", err)
	}
	if len(arrivals) != 1 || arrivals[0].Destination != "Howard" {
		t.Errorf("unexpected snapshot: %+v", arrivals)
	}
	if updatedAt.IsZero() {
		t.Error("updatedAt not set")
	}
}

func TestRefreshKeepsPreviousOnError(t *testing.T) {
	failing := false
	b := New("view", func(context.Context) ([]arrival.Arrival, error) {
		if failing {
			return nil, errors.New("upstream down")
		}
		return single("Howard"), nil
	}, time.Minute, telemetry.Nop{})

	b.Refresh(context.Background())
	failing = true
	b.Refresh(context.Background())

	arrivals, _, err := b.Snapshot()
	if err == nil {
		t.Error("expected refresh error surfaced")
	}
	if len(arrivals) != 1 {
		t.Errorf("previous arrivals lost on failed refresh: %+v", arrivals)
	}
}

// A slow early request completing after a faster later one must not
// overwrite the newer data.
func TestLastRequestWins(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	call := 0

	b := New("view", func(context.Context) ([]arrival.Arrival, error) {
		mu.Lock()
		call++
		mine := call
		mu.Unlock()
		if mine == 1 {
			<-release // first request is slow
			return single("STALE"), nil
		}
		return single("FRESH"), nil
	}, time.Minute, telemetry.Nop{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		b.Refresh(context.Background()) // seq 1, blocked
	}()

	// Wait until the first fetch is actually in flight.
	for {
		mu.Lock()
		started := call >= 1
		mu.Unlock()
		if started {
			break
		}
		time.Sleep(time.Millisecond)
	}

	b.Refresh(context.Background()) // seq 2, completes first
	close(release)
	wg.Wait()

	arrivals, _, _ := b.Snapshot()
	if len(arrivals) != 1 || arrivals[0].Destination != "FRESH" {
		t.Errorf("stale response overwrote fresh data: %+v", arrivals)
	}
}

func TestVisibilityPausesTicks(t *testing.T) {
	var mu sync.Mutex
	fetches := 0
	b := New("view", func(context.Context) ([]arrival.Arrival, error) {
		mu.Lock()
		fetches++
		mu.Unlock()
		return nil, nil
	}, 10*time.Millisecond, telemetry.Nop{})

	b.SetVisible(false)
	ctx, cancel := context.WithCancel(context.Background())
	go b.Run(ctx)

	time.Sleep(80 * time.Millisecond)
	cancel()

	mu.Lock()
	defer mu.Unlock()
	// Run performs one immediate refresh; hidden ticks must not add more.
	if fetches != 1 {
		t.Errorf("hidden board fetched %d times, expected only the initial refresh", fetches)
	}
}
