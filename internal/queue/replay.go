package queue

import (
	"context"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ProbeFunc reports whether the backend is reachable.
type ProbeFunc func(ctx context.Context) error

// Watcher triggers queue replay on the offline→online transition. While the
// backend is unreachable it probes with exponential backoff; once a probe
// succeeds, the queue is processed and the watcher returns to its regular
// cadence.
type Watcher struct {
	queue   *Queue
	probe   ProbeFunc
	deliver DeliverFunc

	// Interval between reachability checks while online.
	Interval time.Duration
}

// NewWatcher creates a replay watcher.
func NewWatcher(q *Queue, probe ProbeFunc, deliver DeliverFunc, interval time.Duration) *Watcher {
	return &Watcher{queue: q, probe: probe, deliver: deliver, Interval: interval}
}

// Run blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	online := true
	for {
		if err := w.probe(ctx); err != nil {
			if online {
				log.Printf("Queue: backend unreachable, entering offline mode: %v", err)
			}
			online = false
			if !w.waitForBackend(ctx) {
				return
			}
			log.Println("Queue: backend reachable again, replaying queued reports")
			online = true
			if _, _, err := w.queue.Process(ctx, w.deliver); err != nil {
				log.Printf("Queue: replay error: %v", err)
			}
		} else if !online {
			online = true
			if _, _, err := w.queue.Process(ctx, w.deliver); err != nil {
				log.Printf("Queue: replay error: %v", err)
			}
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

// waitForBackend probes with exponential backoff until a probe succeeds or
// ctx is cancelled. Returns false on cancellation.
func (w *Watcher) waitForBackend(ctx context.Context) bool {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 2 * time.Second
	b.MaxInterval = 2 * time.Minute
	b.MaxElapsedTime = 0 // keep probing until connectivity returns

	err := backoff.RetryNotify(
		func() error { return w.probe(ctx) },
		backoff.WithContext(b, ctx),
		func(err error, d time.Duration) {
			log.Printf("Queue: still offline, next probe in %s: %v", d.Round(time.Second), err)
		},
	)
	return err == nil
}
