package emergency

import (
	"context"
	"fmt"
	"log"

	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/agency/proxy"
	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/report"
)

// DatastoreChannel is the primary delivery path: a direct insert into the
// managed datastore's shared incidents table.
type DatastoreChannel struct {
	Repo report.Repository
}

func (c *DatastoreChannel) Name() string { return "datastore" }

func (c *DatastoreChannel) Deliver(ctx context.Context, a Alert) error {
	rec := report.IncidentReport{
		ReporterID:   a.ReporterID,
		IncidentType: report.SOSIncidentType,
		TransitLine:  a.Agency,
		LocationName: a.CityID,
		Description:  "[SOS] " + a.Details,
		Status:       "active",
	}
	if !a.Location.Unavailable {
		lat, lon, acc := a.Location.Latitude, a.Location.Longitude, a.Location.Accuracy
		rec.Latitude, rec.Longitude, rec.Accuracy = &lat, &lon, &acc
	}
	return c.Repo.InsertIncident(ctx, rec)
}

// FunctionChannel is the backup path: a serverless function that relays
// the alert when the datastore write is unavailable.
type FunctionChannel struct {
	Proxy *proxy.Client
}

func (c *FunctionChannel) Name() string { return "backup-function" }

func (c *FunctionChannel) Deliver(ctx context.Context, a Alert) error {
	payload := map[string]any{
		"id":          a.ID,
		"reporter_id": a.ReporterID,
		"city":        a.CityID,
		"agency":      a.Agency,
		"details":     a.Details,
		"location":    a.Location,
		"reported_at": a.ReportedAt,
	}
	_, err := c.Proxy.InvokeEnvelope(ctx, "sos-backup", payload)
	if err != nil {
		return fmt.Errorf("backup function rejected alert: %w", err)
	}
	return nil
}

// LogChannel is the last resort: a local notification record so the alert
// is at least visible on the device even with no connectivity at all.
type LogChannel struct {
	Notify func(a Alert)
}

func (c *LogChannel) Name() string { return "local-log" }

func (c *LogChannel) Deliver(_ context.Context, a Alert) error {
	log.Printf("Emergency: LOCAL ALERT %s city=%s reporter=%s details=%q", a.ID, a.CityID, a.ReporterID, a.Details)
	if c.Notify != nil {
		c.Notify(a)
	}
	return nil
}
