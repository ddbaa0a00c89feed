package wmata

import "testing"

func TestNormalize(t *testing.T) {
	raw := `{"Trains":[
		{"Line":"RD","DestinationName":"Glenmont","Min":"ARR","Group":"1","LocationName":"Metro Center","Car":"8"},
		{"Line":"RD","DestinationName":"Shady Grove","Min":"5","Group":"2","LocationName":"Metro Center","Car":"6"},
		{"Line":"SV","DestinationName":"","Destination":"Ashburn","Min":"BRD","Group":"2","LocationName":"Metro Center"},
		{"Line":"OR","DestinationName":"Vienna","Min":"---","Group":"2","LocationName":"Metro Center"},
		{"Line":"BL","DestinationName":"Franconia","Min":"not-a-number","Group":"2","LocationName":"Metro Center"}
	]}`

	arrivals, err := Normalize([]byte(raw))
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	// "---" slot and the unparseable countdown are dropped.
	if len(arrivals) != 3 {
		t.Fatalf("expected 3 arrivals, got %d", len(arrivals))
	}

	if arrivals[0].ArrivalTime != "Arriving" {
		t.Errorf("ARR mapped to %q", arrivals[0].ArrivalTime)
	}
	if arrivals[1].ArrivalTime != "5 min" {
		t.Errorf("five minute countdown mapped to %q", arrivals[1].ArrivalTime)
	}
	if arrivals[1].MinutesToArrival == nil || *arrivals[1].MinutesToArrival != 5 {
		t.Error("minutesToArrival not populated from countdown")
	}
	if arrivals[2].ArrivalTime != "Boarding" {
		t.Errorf("BRD mapped to %q", arrivals[2].ArrivalTime)
	}
	// Short Destination used when DestinationName is absent.
	if arrivals[2].Destination != "Ashburn" {
		t.Errorf("destination fallback = %q", arrivals[2].Destination)
	}
}

func TestNormalizeEmptyAndMissingFields(t *testing.T) {
	arrivals, err := Normalize([]byte(`{"Trains":[]}`))
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if len(arrivals) != 0 {
		t.Errorf("expected empty result, got %d", len(arrivals))
	}

	arrivals, err = Normalize([]byte(`{"Trains":[{"Line":"","DestinationName":"","Min":"12"}]}`))
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if arrivals[0].Line != "Unknown" || arrivals[0].Destination != "Unknown" {
		t.Errorf("missing fields not defaulted: %+v", arrivals[0])
	}
}

func TestNormalizeMalformed(t *testing.T) {
	if _, err := Normalize([]byte(`{"Trains":`)); err == nil {
		t.Fatal("expected parse error")
	}
}
