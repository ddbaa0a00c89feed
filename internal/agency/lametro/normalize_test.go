package lametro

import "testing"

func TestNormalizePredictions(t *testing.T) {
	raw := `{"predictions":[
		{"route_name":"B Line","headsign":"Union Station","minutes":7,"vehicle_id":"1234","stop_name":"Hollywood/Highland"},
		{"route_name":"","headsign":"","minutes":0,"vehicle_id":"5678"},
		{"route_name":"B Line","headsign":"North Hollywood","vehicle_id":"9999"}
	]}`

	arrivals, err := Normalize([]byte(raw))
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	// Record without a minutes countdown is dropped.
	if len(arrivals) != 2 {
		t.Fatalf("expected 2 arrivals, got %d", len(arrivals))
	}
	if arrivals[0].Line != "B Line" || arrivals[0].ArrivalTime != "7 min" {
		t.Errorf("unexpected first arrival: %+v", arrivals[0])
	}
	if arrivals[1].Line != "Unknown" || arrivals[1].Destination != "Unknown" {
		t.Errorf("missing fields not defaulted: %+v", arrivals[1])
	}
	if arrivals[1].ArrivalTime != "Arriving" {
		t.Errorf("zero minutes mapped to %q", arrivals[1].ArrivalTime)
	}
}

func TestNormalizeArrivalsShape(t *testing.T) {
	// Some deployments of the proxy return {arrivals: [...]} instead.
	raw := `{"arrivals":[{"route_name":"E Line","headsign":"Santa Monica","minutes":12}]}`
	arrivals, err := Normalize([]byte(raw))
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if len(arrivals) != 1 || arrivals[0].ArrivalTime != "12 min" {
		t.Errorf("arrivals shape not adapted: %+v", arrivals)
	}
}

func TestNormalizeEmptyPredictions(t *testing.T) {
	// "No arrivals found" is a valid empty response, never an error.
	arrivals, err := Normalize([]byte(`{"predictions":[]}`))
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if len(arrivals) != 0 {
		t.Errorf("expected empty result, got %d", len(arrivals))
	}
}

func TestNormalizeMalformed(t *testing.T) {
	if _, err := Normalize([]byte(`[[`)); err == nil {
		t.Fatal("expected parse error")
	}
}
