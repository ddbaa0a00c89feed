// Package emergency implements the SOS dispatch pipeline: location
// acquisition with a hard bound, city inference from coordinates, and a
// cascading multi-channel delivery attempt. The emergency path has the
// strongest never-silently-fail requirement in the system: every exit from
// Dispatch leaves the alert either delivered or durably queued.
package emergency

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/cities"
	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/queue"
	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/resilience"
	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/telemetry"
)

// Location is a device coordinate fix. Unavailable marks the sentinel used
// when acquisition failed: the emergency proceeds without GPS rather than
// blocking on it.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy,omitempty"`

	Unavailable bool `json:"unavailable,omitempty"`
}

// Locator acquires the current device location.
type Locator interface {
	Current(ctx context.Context) (Location, error)
}

// NoLocator always reports the location as unavailable. It serves
// deployments where coordinates only arrive with the trigger itself.
type NoLocator struct{}

func (NoLocator) Current(context.Context) (Location, error) {
	return Location{Unavailable: true}, nil
}

// Alert is one emergency in flight through the cascade.
type Alert struct {
	ID         string
	ReporterID string
	Details    string
	Location   Location
	CityID     string
	Agency     string
	ReportedAt time.Time
}

// Channel is one delivery path for an alert. Channels are tried in order;
// the first success wins.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, a Alert) error
}

// ErrAllChannelsFailed means every delivery channel was exhausted for one
// cascade pass.
var ErrAllChannelsFailed = errors.New("all emergency channels failed")

// Result reports how an emergency left the pipeline.
type Result struct {
	Alert Alert
	// Channel is the name of the channel that accepted the alert, empty
	// when the alert was queued instead.
	Channel string
	// Queued is true when delivery failed entirely and the alert now sits
	// in the offline queue.
	Queued bool
}

// Dispatcher runs the emergency pipeline.
type Dispatcher struct {
	locator  Locator
	catalog  *cities.Catalog
	channels []Channel
	queue    *queue.Queue
	tel      telemetry.Telemetry

	retry           resilience.Config
	locationTimeout time.Duration
}

// NewDispatcher wires the pipeline. Channel order is delivery priority.
func NewDispatcher(locator Locator, catalog *cities.Catalog, channels []Channel, q *queue.Queue, tel telemetry.Telemetry, retry resilience.Config, locationTimeout time.Duration) *Dispatcher {
	retry.Operation = "emergency_dispatch"
	return &Dispatcher{
		locator:         locator,
		catalog:         catalog,
		channels:        channels,
		queue:           q,
		tel:             tel,
		retry:           retry,
		locationTimeout: locationTimeout,
	}
}

// Dispatch runs the full pipeline for one SOS trigger. A non-nil known
// location (e.g. supplied by the device with the trigger) skips
// acquisition.
func (d *Dispatcher) Dispatch(ctx context.Context, reporterID, details string, known *Location) (Result, error) {
	var loc Location
	if known != nil {
		loc = *known
	} else {
		loc = d.acquireLocation(ctx)
	}

	city := d.catalog.Locate(loc.Latitude, loc.Longitude)
	if loc.Unavailable {
		city, _ = d.catalog.Get(cities.DefaultCityID)
	}

	alert := Alert{
		ID:         queue.NewID(),
		ReporterID: reporterID,
		Details:    details,
		Location:   loc,
		CityID:     city.ID,
		Agency:     city.Agency,
		ReportedAt: time.Now().UTC(),
	}

	channel, err := resilience.Do(ctx, d.tel, d.retry, func(ctx context.Context) (string, error) {
		return d.cascade(ctx, alert)
	})
	if err == nil {
		d.tel.RecordEvent("sos_delivered", map[string]any{"channel": channel, "city": alert.CityID})
		return Result{Alert: alert, Channel: channel}, nil
	}

	// Retries exhausted: the alert goes to the durable queue for replay.
	log.Printf("Emergency: delivery failed, queueing alert %s: %v", alert.ID, err)
	if qErr := d.queue.Enqueue(ctx, toQueued(alert)); qErr != nil {
		return Result{Alert: alert}, fmt.Errorf("emergency undeliverable and unqueueable: %v: %w", err, qErr)
	}
	return Result{Alert: alert, Queued: true}, nil
}

// acquireLocation bounds the GPS fix; on any failure the sentinel
// unavailable location is used so the emergency is never delayed by a
// missing fix.
func (d *Dispatcher) acquireLocation(ctx context.Context) Location {
	locCtx, cancel := context.WithTimeout(ctx, d.locationTimeout)
	defer cancel()

	loc, err := d.locator.Current(locCtx)
	if err != nil {
		log.Printf("Emergency: location unavailable, proceeding without it: %v", err)
		return Location{Unavailable: true}
	}
	return loc
}

// cascade tries each channel in order, returning the name of the first
// that accepts the alert.
func (d *Dispatcher) cascade(ctx context.Context, a Alert) (string, error) {
	for _, ch := range d.channels {
		if err := ch.Deliver(ctx, a); err != nil {
			log.Printf("Emergency: channel %s failed for %s: %v", ch.Name(), a.ID, err)
			d.tel.RecordEvent("sos_channel_failed", map[string]any{"channel": ch.Name()})
			continue
		}
		return ch.Name(), nil
	}
	return "", ErrAllChannelsFailed
}

func toQueued(a Alert) queue.Report {
	lat, lon, acc := a.Location.Latitude, a.Location.Longitude, a.Location.Accuracy
	r := queue.Report{
		ID:         a.ID,
		Type:       queue.TypeSOS,
		ReportedAt: a.ReportedAt,
		Details:    fmt.Sprintf("[SOS] %s (city=%s reporter=%s)", a.Details, a.CityID, a.ReporterID),
	}
	if !a.Location.Unavailable {
		r.Latitude, r.Longitude, r.Accuracy = &lat, &lon, &acc
	}
	return r
}
