// Package report carries the incident/SOS write path: local validation and
// sanitization, per-user rate limiting, the datastore insert, and fallback
// to the offline queue when the backend cannot be reached.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/queue"
	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/resilience"
	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/telemetry"
)

// SOSIncidentType marks an emergency row in the shared incidents table.
const SOSIncidentType = "SOS Emergency"

// ErrRateLimited is returned when the per-user window is exhausted. The
// accompanying RetryAfter tells the user how long to wait.
var ErrRateLimited = errors.New("rate limited")

// IncidentReport is the write-endpoint record shape.
type IncidentReport struct {
	ReporterID   string   `json:"reporter_id" validate:"required"`
	IncidentType string   `json:"incident_type" validate:"required,max=100"`
	TransitLine  string   `json:"transit_line" validate:"required,max=100"`
	LocationName string   `json:"location_name" validate:"required,max=200"`
	Description  string   `json:"description" validate:"required,max=2000"`
	Latitude     *float64 `json:"latitude,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Longitude    *float64 `json:"longitude,omitempty" validate:"omitempty,gte=-180,lte=180"`
	Accuracy     *float64 `json:"accuracy,omitempty" validate:"omitempty,gte=0"`
	ImageURL     string   `json:"image_url,omitempty" validate:"omitempty,url"`
	Status       string   `json:"status,omitempty"`
}

// Repository is the managed-datastore seam for incident writes.
type Repository interface {
	InsertIncident(ctx context.Context, r IncidentReport) error
}

// Result describes what happened to a submission.
type Result struct {
	// Queued is true when the report could not be delivered and now sits
	// in the offline queue instead.
	Queued bool
	// RetryAfter is set when the submission was rate limited.
	RetryAfter time.Duration
}

// Service validates and delivers incident reports.
type Service struct {
	repo     Repository
	limiter  *resilience.RateLimiter
	queue    *queue.Queue
	tel      telemetry.Telemetry
	validate *validator.Validate

	retry resilience.Config

	// Rate-limit policy for incident submission.
	Limit  int
	Window time.Duration
}

// NewService wires the write path together.
func NewService(repo Repository, limiter *resilience.RateLimiter, q *queue.Queue, tel telemetry.Telemetry, retry resilience.Config, limit int, window time.Duration) *Service {
	retry.Operation = "incident_report"
	return &Service{
		repo:     repo,
		limiter:  limiter,
		queue:    q,
		tel:      tel,
		validate: validator.New(),
		retry:    retry,
		Limit:    limit,
		Window:   window,
	}
}

// Submit validates, rate-limits and delivers one report. Validation and
// rate-limit rejections happen before any network call. Delivery failures
// after retries land the report in the offline queue rather than dropping
// it.
func (s *Service) Submit(ctx context.Context, r IncidentReport) (Result, error) {
	Sanitize(&r)
	if r.Status == "" {
		r.Status = "active"
	}

	if err := s.validate.Struct(r); err != nil {
		return Result{}, fmt.Errorf("invalid report: %w", err)
	}

	key := "incident_report_" + r.ReporterID
	allowed, retryAfter := s.limiter.Allow(key, s.Limit, s.Window)
	if !allowed {
		return Result{RetryAfter: retryAfter}, fmt.Errorf("%w: wait %s", ErrRateLimited, retryAfter.Round(time.Second))
	}

	_, err := resilience.Do(ctx, s.tel, s.retry, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.repo.InsertIncident(ctx, r)
	})
	if err == nil {
		s.tel.RecordEvent("incident_submitted", map[string]any{"type": r.IncidentType, "line": r.TransitLine})
		return Result{}, nil
	}

	// Offline is not a failure on the write path: queue and report back.
	if qErr := s.queue.Enqueue(ctx, toQueued(r)); qErr != nil {
		return Result{}, fmt.Errorf("delivery failed (%v) and queueing failed: %w", err, qErr)
	}
	return Result{Queued: true}, nil
}

// toQueued converts a report into its durable queue representation.
func toQueued(r IncidentReport) queue.Report {
	reportType := queue.TypeIncident
	if r.IncidentType == SOSIncidentType {
		reportType = queue.TypeSOS
	}
	details, _ := json.Marshal(r)
	return queue.Report{
		Type:      reportType,
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
		Accuracy:  r.Accuracy,
		Details:   string(details),
	}
}

// FromQueued decodes a queued row back into a report for replay delivery.
func FromQueued(r queue.Report) (IncidentReport, error) {
	var out IncidentReport
	if err := json.Unmarshal([]byte(r.Details), &out); err != nil {
		return IncidentReport{}, fmt.Errorf("failed to decode queued report %s: %w", r.ID, err)
	}
	return out, nil
}

// ReplayDeliver builds the queue delivery function for replays. Incident
// rows carry the full report as JSON; SOS rows queued mid-dispatch carry
// plain-text details, so those are reconstructed from the row itself.
func ReplayDeliver(repo Repository) queue.DeliverFunc {
	return func(ctx context.Context, r queue.Report) error {
		rec, err := FromQueued(r)
		if err != nil {
			if r.Type != queue.TypeSOS {
				return err
			}
			rec = IncidentReport{
				ReporterID:   "offline-" + r.ID,
				IncidentType: SOSIncidentType,
				TransitLine:  "Unknown",
				LocationName: "Unknown",
				Description:  r.Details,
				Latitude:     r.Latitude,
				Longitude:    r.Longitude,
				Accuracy:     r.Accuracy,
				Status:       "active",
			}
		}
		return repo.InsertIncident(ctx, rec)
	}
}

// Sanitize strips control characters, trims whitespace and caps the free
// text fields before validation.
func Sanitize(r *IncidentReport) {
	r.ReporterID = cleanField(r.ReporterID, 100)
	r.IncidentType = cleanField(r.IncidentType, 100)
	r.TransitLine = cleanField(r.TransitLine, 100)
	r.LocationName = cleanField(r.LocationName, 200)
	r.Description = cleanField(r.Description, 2000)
	r.ImageURL = cleanField(r.ImageURL, 500)
}

func cleanField(s string, max int) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsControl(r) && r != '\n' {
			continue
		}
		b.WriteRune(r)
	}
	out := strings.TrimSpace(b.String())
	if len(out) > max {
		// Cut on a rune boundary so the cap never splits a multi-byte
		// character and persists invalid UTF-8.
		cut := max
		for cut > 0 && !utf8.RuneStart(out[cut]) {
			cut--
		}
		out = out[:cut]
	}
	return out
}
