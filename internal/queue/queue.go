package queue

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/telemetry"
)

// Report statuses. Delivery success removes the row instead of recording a
// terminal state.
const (
	StatusPending = "pending"
	StatusOffline = "offline"
	StatusFailed  = "failed"
)

// Report types.
const (
	TypeSOS      = "sos"
	TypeIncident = "incident"
)

// Report is one queued write operation. It is owned exclusively by the
// queue for its lifetime; callers interact only through the queue API.
type Report struct {
	ID         string
	Type       string
	Latitude   *float64
	Longitude  *float64
	Accuracy   *float64
	ReportedAt time.Time
	Details    string
	Status     string
	Attempts   int
}

// NewID generates a client-side, time-prefixed report id.
func NewID() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), uuid.New().String()[:8])
}

// DeliverFunc attempts to deliver one queued report to the backend.
type DeliverFunc func(ctx context.Context, r Report) error

// Queue coordinates the durable store with replay attempts.
type Queue struct {
	store *Store
	tel   telemetry.Telemetry
}

// New creates a queue over an open store.
func New(store *Store, tel telemetry.Telemetry) *Queue {
	return &Queue{store: store, tel: tel}
}

// Enqueue persists a report before returning, so a crash or restart cannot
// lose it. Reports without an explicit status are queued as offline.
func (q *Queue) Enqueue(ctx context.Context, r Report) error {
	if r.ID == "" {
		r.ID = NewID()
	}
	if r.Status == "" || r.Status == StatusPending {
		r.Status = StatusOffline
	}
	if r.ReportedAt.IsZero() {
		r.ReportedAt = time.Now().UTC()
	}

	if err := q.store.insert(ctx, r); err != nil {
		return err
	}
	q.tel.RecordEvent("report_queued", map[string]any{"id": r.ID, "type": r.Type})
	log.Printf("Queue: stored %s report %s for later delivery", r.Type, r.ID)
	return nil
}

// Pending returns the reports currently awaiting replay.
func (q *Queue) Pending(ctx context.Context) ([]Report, error) {
	return q.store.listReplayable(ctx)
}

// Depth returns the total number of queued reports.
func (q *Queue) Depth(ctx context.Context) (int, error) {
	return q.store.count(ctx)
}

// Process walks every replayable report and attempts delivery. Delivered
// reports are removed from the durable store; failures stay queued for the
// next trigger. Returns how many were delivered and how many remain.
func (q *Queue) Process(ctx context.Context, deliver DeliverFunc) (delivered, remaining int, err error) {
	reports, err := q.store.listReplayable(ctx)
	if err != nil {
		return 0, 0, err
	}

	for _, r := range reports {
		if err := ctx.Err(); err != nil {
			return delivered, len(reports) - delivered, err
		}
		if err := deliver(ctx, r); err != nil {
			log.Printf("Queue: delivery of %s failed, keeping queued: %v", r.ID, err)
			if markErr := q.store.markFailed(ctx, r.ID, err); markErr != nil {
				log.Printf("Queue: %v", markErr)
			}
			continue
		}
		if err := q.store.delete(ctx, r.ID); err != nil {
			// The report was delivered but the row survived; the next
			// replay will re-deliver. Duplicate delivery is preferable to
			// a lost emergency.
			log.Printf("Queue: %v", err)
			continue
		}
		delivered++
		q.tel.RecordEvent("report_replayed", map[string]any{"id": r.ID, "type": r.Type})
	}

	remaining = len(reports) - delivered
	if len(reports) > 0 {
		log.Printf("Queue: replayed %d/%d queued reports", delivered, len(reports))
	}
	return delivered, remaining, nil
}
