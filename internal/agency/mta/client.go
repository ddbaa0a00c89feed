// Package mta adapts the MTA proxy into canonical arrivals. The MTA is the
// multi-system agency: requests carry a system discriminator, and the proxy
// answers with the raw GTFS-Realtime protobuf feed for the requested feed
// group rather than a JSON envelope.
package mta

import (
	"context"
	"sort"
	"strings"
	"time"

	"google.golang.org/protobuf/proto"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"

	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/agency/proxy"
	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/arrival"
	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/mapping"
)

const operation = "mta-schedule"

// Request is the MTA proxy payload: station plus system discriminator.
type Request struct {
	Station string `json:"station"`
	System  string `json:"system"`
	Line    string `json:"line,omitempty"`
}

// Client fetches MTA arrivals through the serverless proxy.
type Client struct {
	proxy *proxy.Client
	now   func() time.Time
}

// New creates an MTA client.
func New(p *proxy.Client) *Client {
	return &Client{proxy: p, now: time.Now}
}

// Arrivals maps the selection to a GTFS stop and feed group, fetches the
// feed through the proxy and normalizes the matching stop-time updates.
func (c *Client) Arrivals(ctx context.Context, line, station string) ([]arrival.Arrival, error) {
	req := Request{
		Station: mapping.MTAStop(station),
		System:  mapping.MTAFeed(line),
		Line:    line,
	}
	raw, err := c.proxy.Invoke(ctx, operation, req)
	if err != nil {
		return nil, err
	}
	return Normalize(raw, req.Station, line, c.now())
}

// Normalize decodes a GTFS-RT feed and extracts arrivals at the given
// parent stop. Stop ids in the feed carry a directional suffix
// ("127N"/"127S") which is matched by prefix and surfaced as the
// direction. A line filter, when non-empty, keeps only that route.
func Normalize(raw []byte, stopID, line string, now time.Time) ([]arrival.Arrival, error) {
	feed := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(raw, feed); err != nil {
		return nil, err
	}

	type timed struct {
		at time.Time
		a  arrival.Arrival
	}
	var found []timed

	for _, entity := range feed.GetEntity() {
		tu := entity.GetTripUpdate()
		if tu == nil {
			continue
		}
		routeID := tu.GetTrip().GetRouteId()
		if line != "" && !strings.EqualFold(routeID, line) {
			continue
		}
		for _, stu := range tu.GetStopTimeUpdate() {
			feedStop := stu.GetStopId()
			if !strings.HasPrefix(feedStop, stopID) {
				continue
			}
			epoch := stu.GetArrival().GetTime()
			if epoch == 0 {
				epoch = stu.GetDeparture().GetTime()
			}
			if epoch == 0 {
				continue
			}
			at := time.Unix(epoch, 0)
			c, err := arrival.Classify(at, now)
			if err != nil {
				continue
			}

			direction := strings.TrimPrefix(feedStop, stopID)
			found = append(found, timed{at: at, a: arrival.Arrival{
				Line:             arrival.OrUnknown(routeID),
				Destination:      arrival.OrUnknown(destinationFor(direction)),
				Direction:        direction,
				ArrivalTime:      c.Label,
				MinutesToArrival: c.Minutes,
				VehicleID:        tu.GetVehicle().GetId(),
				Status:           "On Time",
			}})
		}
	}

	// The feed carries one entity per trip in no particular order; sort by
	// soonest arrival before truncating.
	sort.Slice(found, func(i, j int) bool { return found[i].at.Before(found[j].at) })

	out := make([]arrival.Arrival, len(found))
	for i, f := range found {
		out[i] = f.a
	}
	return arrival.Truncate(out), nil
}

// destinationFor derives a rider-facing destination from the directional
// stop suffix. The realtime feed itself has no headsign field.
func destinationFor(direction string) string {
	switch direction {
	case "N":
		return "Uptown"
	case "S":
		return "Downtown"
	default:
		return ""
	}
}
