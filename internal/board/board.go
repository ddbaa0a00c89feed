// Package board coordinates the periodic refresh of one schedule view:
// a ticker-driven fetch loop that pauses while the view is hidden and
// guarantees last-request-wins when overlapping fetches complete out of
// order.
package board

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/arrival"
	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/telemetry"
)

// Fetcher produces the current arrivals for this view.
type Fetcher func(ctx context.Context) ([]arrival.Arrival, error)

// Board holds the latest arrivals snapshot for one view.
type Board struct {
	Key string

	fetch    Fetcher
	interval time.Duration
	tel      telemetry.Telemetry

	mu        sync.Mutex
	visible   bool
	nextSeq   uint64
	appliedAt uint64 // sequence number of the applied snapshot
	arrivals  []arrival.Arrival
	updatedAt time.Time
	lastErr   error
}

// New creates a board. It starts visible; Run must be called to begin
// refreshing.
func New(key string, fetch Fetcher, interval time.Duration, tel telemetry.Telemetry) *Board {
	return &Board{
		Key:      key,
		fetch:    fetch,
		interval: interval,
		tel:      tel,
		visible:  true,
	}
}

// Run refreshes immediately and then on every tick until ctx is cancelled.
// Ticks are skipped while the view is hidden; a fetch already in flight
// when visibility is lost is allowed to finish.
func (b *Board) Run(ctx context.Context) {
	b.Refresh(ctx)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if !b.Visible() {
				continue
			}
			b.Refresh(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Refresh performs one fetch. Each refresh takes a monotonically
// increasing sequence number; a completion whose number is lower than the
// last applied one is discarded, so a slow early request can never
// overwrite the result of a faster later one.
func (b *Board) Refresh(ctx context.Context) {
	b.mu.Lock()
	b.nextSeq++
	seq := b.nextSeq
	b.mu.Unlock()

	arrivals, err := b.fetch(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	if seq < b.appliedAt {
		// A newer request already completed; this result is stale.
		b.tel.RecordEvent("board_stale_response_dropped", map[string]any{"view": b.Key})
		return
	}
	b.appliedAt = seq
	if err != nil {
		// Degrade gracefully: keep the previous arrivals, surface the
		// error alongside them.
		b.lastErr = err
		log.Printf("Board %s: refresh failed: %v", b.Key, err)
		return
	}
	b.arrivals = arrivals
	b.updatedAt = time.Now().UTC()
	b.lastErr = nil
}

// SetVisible pauses or resumes the refresh ticks for this view.
func (b *Board) SetVisible(visible bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.visible = visible
}

// Visible reports whether refresh ticks are active.
func (b *Board) Visible() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.visible
}

// Snapshot returns the most recently applied arrivals, when they were
// applied, and the error from the latest refresh if it failed.
func (b *Board) Snapshot() ([]arrival.Arrival, time.Time, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]arrival.Arrival, len(b.arrivals))
	copy(out, b.arrivals)
	return out, b.updatedAt, b.lastErr
}
