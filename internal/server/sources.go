package server

import (
	"context"
	"fmt"

	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/arrival"
	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/cities"
	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/resilience"
	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/telemetry"
)

// ArrivalSource produces normalized arrivals for one city's agency.
type ArrivalSource interface {
	Arrivals(ctx context.Context, line, station string) ([]arrival.Arrival, error)
}

// ResilientSource wraps a source with the retry/backoff/timeout envelope,
// so schedule reads survive transient proxy failures the same way writes
// do. Every fetch chain (handler, board refresh, CLI) goes through one.
type ResilientSource struct {
	inner ArrivalSource
	tel   telemetry.Telemetry
	retry resilience.Config
}

// NewResilientSource names the wrapped call chain after the city for
// telemetry.
func NewResilientSource(city string, inner ArrivalSource, tel telemetry.Telemetry, retry resilience.Config) *ResilientSource {
	retry.Operation = "arrivals_" + city
	return &ResilientSource{inner: inner, tel: tel, retry: retry}
}

func (s *ResilientSource) Arrivals(ctx context.Context, line, station string) ([]arrival.Arrival, error) {
	return resilience.Do(ctx, s.tel, s.retry, func(ctx context.Context) ([]arrival.Arrival, error) {
		return s.inner.Arrivals(ctx, line, station)
	})
}

// ProximityFetcher is a source keyed on coordinates rather than
// line/station identifiers.
type ProximityFetcher interface {
	ArrivalsNear(ctx context.Context, lat, lon float64) ([]arrival.Arrival, error)
}

// ProximitySource adapts a coordinate-based agency feed to the common
// line/station interface by resolving the station's coordinates from the
// city configuration.
type ProximitySource struct {
	City    *cities.City
	Fetcher ProximityFetcher
}

func (p *ProximitySource) Arrivals(ctx context.Context, line, station string) ([]arrival.Arrival, error) {
	st, ok := p.City.Station(station)
	if !ok {
		return nil, fmt.Errorf("unknown station %q for %s", station, p.City.ID)
	}
	arrivals, err := p.Fetcher.ArrivalsNear(ctx, st.Latitude, st.Longitude)
	if err != nil {
		return nil, err
	}
	// The proximity feed does not know which station it was asked about.
	for i := range arrivals {
		if arrivals[i].Station == "" || arrivals[i].Station == "Unknown" {
			arrivals[i].Station = st.Name
		}
	}
	return arrivals, nil
}
