package queue

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/telemetry"
)

func testQueue(t *testing.T) *Queue {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return New(store, telemetry.Nop{})
}

func sosReport(details string) Report {
	lat, lon := 41.8781, -87.6298
	return Report{
		Type:      TypeSOS,
		Latitude:  &lat,
		Longitude: &lon,
		Details:   details,
	}
}

func TestEnqueueIsDurable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "queue.db")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	q := New(store, telemetry.Nop{})
	if err := q.Enqueue(context.Background(), sosReport("help")); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	store.Close()

	// Reopen: the report must have survived the restart.
	store, err = Open(path)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer store.Close()
	q = New(store, telemetry.Nop{})

	pending, err := q.Pending(context.Background())
	if err != nil {
		t.Fatalf("Pending failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 report after reopen, got %d", len(pending))
	}
	if pending[0].Status != StatusOffline {
		t.Errorf("status = %q, expected offline", pending[0].Status)
	}
	if pending[0].Details != "help" {
		t.Errorf("details = %q", pending[0].Details)
	}
}

// Round-trip law: enqueue N, process with partial success, and the queue
// shrinks by exactly the delivered count.
func TestProcessRoundTrip(t *testing.T) {
	q := testQueue(t)
	ctx := context.Background()

	const n = 5
	for i := 0; i < n; i++ {
		if err := q.Enqueue(ctx, sosReport("report")); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	// Deliver odd-indexed attempts, fail even ones.
	attempt := 0
	delivered, remaining, err := q.Process(ctx, func(context.Context, Report) error {
		attempt++
		if attempt%2 == 0 {
			return errors.New("backend unavailable")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if attempt != n {
		t.Errorf("deliver called %d times, expected %d", attempt, n)
	}
	if delivered != 3 || remaining != 2 {
		t.Errorf("delivered=%d remaining=%d, expected 3 and 2", delivered, remaining)
	}

	pending, err := q.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("queue holds %d reports, expected 2", len(pending))
	}
	for _, r := range pending {
		if r.Status != StatusFailed {
			t.Errorf("surviving report status = %q, expected failed", r.Status)
		}
		if r.Attempts != 1 {
			t.Errorf("attempts = %d, expected 1", r.Attempts)
		}
	}
}

func TestProcessAllSucceed(t *testing.T) {
	q := testQueue(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := q.Enqueue(ctx, sosReport("r")); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	delivered, remaining, err := q.Process(ctx, func(context.Context, Report) error { return nil })
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if delivered != 3 || remaining != 0 {
		t.Errorf("delivered=%d remaining=%d", delivered, remaining)
	}

	depth, err := q.Depth(ctx)
	if err != nil {
		t.Fatalf("Depth failed: %v", err)
	}
	if depth != 0 {
		t.Errorf("depth = %d after full replay, expected 0", depth)
	}
}

func TestFailedReportsStayReplayable(t *testing.T) {
	q := testQueue(t)
	ctx := context.Background()

	if err := q.Enqueue(ctx, sosReport("r")); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	// First replay fails, report transitions offline -> failed.
	if _, _, err := q.Process(ctx, func(context.Context, Report) error {
		return errors.New("down")
	}); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	// A failed report must still be picked up by the next replay.
	delivered, _, err := q.Process(ctx, func(context.Context, Report) error { return nil })
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if delivered != 1 {
		t.Errorf("failed report was not retried: delivered=%d", delivered)
	}
}

func TestNewIDIsTimePrefixed(t *testing.T) {
	id := NewID()
	parts := strings.SplitN(id, "-", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		t.Fatalf("unexpected id shape %q", id)
	}
}

func TestWatcherReplaysOnReconnect(t *testing.T) {
	q := testQueue(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := q.Enqueue(ctx, sosReport("offline report")); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	// Backend down for the first two probes, then reachable.
	probes := 0
	probe := func(context.Context) error {
		probes++
		if probes <= 2 {
			return errors.New("unreachable")
		}
		return nil
	}

	delivered := make(chan string, 1)
	deliver := func(_ context.Context, r Report) error {
		select {
		case delivered <- r.ID:
		default:
		}
		return nil
	}

	w := NewWatcher(q, probe, deliver, 10*time.Millisecond)
	go w.Run(ctx)

	select {
	case <-delivered:
	case <-ctx.Done():
		t.Fatal("queued report was never replayed after reconnection")
	}
}
