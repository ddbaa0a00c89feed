// Package cta adapts the CTA Train Tracker proxy into canonical arrivals.
package cta

import (
	"context"
	"time"

	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/agency/proxy"
	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/arrival"
	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/mapping"
)

const operation = "cta-schedule"

// Train Tracker reports wall-clock times in Central time.
var chicagoTZ = func() *time.Location {
	loc, err := time.LoadLocation("America/Chicago")
	if err != nil {
		return time.FixedZone("CST", -6*60*60)
	}
	return loc
}()

// Request is the CTA proxy payload: stop/route-ID based.
type Request struct {
	RouteID string `json:"routeId,omitempty"`
	StopID  string `json:"stopId,omitempty"`
}

// Client fetches CTA arrivals through the serverless proxy.
type Client struct {
	proxy *proxy.Client
	now   func() time.Time
}

// New creates a CTA client.
func New(p *proxy.Client) *Client {
	return &Client{proxy: p, now: time.Now}
}

// Arrivals maps the user's selection to CTA identifiers, invokes the proxy
// and normalizes the response.
func (c *Client) Arrivals(ctx context.Context, line, station string) ([]arrival.Arrival, error) {
	req := Request{
		RouteID: mapping.CTARoute(line),
		StopID:  mapping.CTAStop(station),
	}
	raw, err := c.proxy.Invoke(ctx, operation, req)
	if err != nil {
		return nil, err
	}
	return Normalize(raw, c.now())
}
