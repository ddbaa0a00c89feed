// Package wmata adapts the WMATA rail predictions proxy into canonical
// arrivals. WMATA reports relative countdowns ("Min") instead of absolute
// timestamps, with sentinel strings for trains at the platform.
package wmata

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/agency/proxy"
	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/arrival"
	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/mapping"
)

const operation = "wmata-schedule"

// Request is the WMATA proxy payload: a simple line/station filter.
type Request struct {
	Line    string `json:"line,omitempty"`
	Station string `json:"station,omitempty"`
}

// Client fetches WMATA predictions through the serverless proxy.
type Client struct {
	proxy *proxy.Client
}

// New creates a WMATA client.
func New(p *proxy.Client) *Client {
	return &Client{proxy: p}
}

// Arrivals maps the selection to WMATA codes, invokes the proxy and
// normalizes the response. The WMATA proxy wraps its payload in the common
// envelope.
func (c *Client) Arrivals(ctx context.Context, line, station string) ([]arrival.Arrival, error) {
	req := Request{
		Line:    mapping.WMATALine(line),
		Station: mapping.WMATAStation(station),
	}
	env, err := c.proxy.InvokeEnvelope(ctx, operation, req)
	if err != nil {
		return nil, err
	}
	return Normalize(env.Data)
}

// response mirrors the StationPrediction payload.
type response struct {
	Trains []struct {
		Line            string `json:"Line"`
		DestinationName string `json:"DestinationName"`
		Destination     string `json:"Destination"`
		Min             string `json:"Min"`
		Group           string `json:"Group"`
		LocationName    string `json:"LocationName"`
		Car             string `json:"Car"`
	} `json:"Trains"`
}

// Normalize converts the prediction list into canonical arrivals. The "Min"
// field carries either a countdown in minutes or a named state: ARR
// (arriving), BRD (boarding), or "---"/empty when no prediction exists.
func Normalize(raw []byte) ([]arrival.Arrival, error) {
	var resp response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode wmata response: %w", err)
	}

	out := make([]arrival.Arrival, 0, len(resp.Trains))
	for _, tr := range resp.Trains {
		var label string
		var minutes *int
		switch tr.Min {
		case "ARR":
			label = "Arriving"
			zero := 0
			minutes = &zero
		case "BRD":
			label = "Boarding"
			zero := 0
			minutes = &zero
		case "", "---":
			// No prediction for this slot; nothing usable to show.
			continue
		default:
			n, err := strconv.Atoi(tr.Min)
			if err != nil {
				continue
			}
			label = arrival.LabelForMinutes(n)
			minutes = &n
		}

		dest := tr.DestinationName
		if dest == "" {
			dest = tr.Destination
		}

		out = append(out, arrival.Arrival{
			Line:             arrival.OrUnknown(tr.Line),
			Station:          tr.LocationName,
			Destination:      arrival.OrUnknown(dest),
			Direction:        tr.Group,
			ArrivalTime:      label,
			MinutesToArrival: minutes,
			Status:           "On Time",
		})
	}
	return arrival.Truncate(out), nil
}
