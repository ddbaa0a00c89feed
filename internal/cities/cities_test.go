package cities

import "testing"

func TestLoad(t *testing.T) {
	cat, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cat.All()) < 4 {
		t.Fatalf("expected at least 4 cities, got %d", len(cat.All()))
	}
	if _, ok := cat.Get(DefaultCityID); !ok {
		t.Errorf("default city %q missing", DefaultCityID)
	}
}

// Station line references must point at line ids defined in the same city.
// This is reference-data hygiene, checked here instead of at runtime.
func TestStationLineReferences(t *testing.T) {
	cat, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	for _, city := range cat.All() {
		lineIDs := make(map[string]bool, len(city.Lines))
		for _, l := range city.Lines {
			lineIDs[l.ID] = true
		}
		for _, s := range city.Stations {
			for _, ref := range s.Lines {
				if !lineIDs[ref] {
					t.Errorf("%s: station %s references unknown line %q", city.ID, s.ID, ref)
				}
			}
		}
	}
}

func TestLocate(t *testing.T) {
	cat, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	tests := []struct {
		name     string
		lat, lon float64
		expected string
	}{
		{"downtown chicago", 41.8781, -87.6298, "chicago"},
		{"manhattan", 40.7580, -73.9855, "nyc"},
		{"downtown la", 34.0522, -118.2437, "la"},
		{"dc mall", 38.8895, -77.0353, "dc"},
		{"middle of the atlantic", 30.0, -45.0, DefaultCityID},
		{"zero island", 0, 0, DefaultCityID},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := cat.Locate(tc.lat, tc.lon); got.ID != tc.expected {
				t.Errorf("Locate(%v, %v) = %s, expected %s", tc.lat, tc.lon, got.ID, tc.expected)
			}
		})
	}
}

func TestStationLookup(t *testing.T) {
	cat, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	chicago, _ := cat.Get("chicago")
	s, ok := chicago.Station("howard")
	if !ok {
		t.Fatal("howard missing from chicago config")
	}
	if s.Latitude == 0 || s.Longitude == 0 {
		t.Error("howard has no coordinates")
	}
	if _, ok := chicago.Station("nope"); ok {
		t.Error("unknown station reported as present")
	}
}
