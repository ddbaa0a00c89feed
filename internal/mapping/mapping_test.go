package mapping

import "testing"

func TestCTALookups(t *testing.T) {
	tests := []struct {
		name     string
		fn       func(string) string
		input    string
		expected string
	}{
		{"route red", CTARoute, "red", "Red"},
		{"route brown abbreviates", CTARoute, "brown", "Brn"},
		{"route case insensitive", CTARoute, "RED", "Red"},
		{"stop howard", CTAStop, "howard", "30173"},
		{"stop ohare", CTAStop, "ohare", "30171"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.fn(tc.input); got != tc.expected {
				t.Errorf("got %q, expected %q", got, tc.expected)
			}
		})
	}
}

func TestIdentityFallback(t *testing.T) {
	// Unknown identifiers pass through unchanged so the upstream API can
	// reject them itself.
	tests := []struct {
		name  string
		fn    func(string) string
		input string
	}{
		{"unknown CTA station", CTAStop, "not-a-station"},
		{"unknown CTA line", CTARoute, "mauve"},
		{"unknown WMATA station", WMATAStation, "narnia"},
		{"unknown MTA station", MTAStop, "platform-9-3-4"},
		{"raw numeric stop code", CTAStop, "40900"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.fn(tc.input); got != tc.input {
				t.Errorf("got %q, expected input %q unchanged", got, tc.input)
			}
		})
	}
}

func TestWMATALookups(t *testing.T) {
	if got := WMATALine("silver"); got != "SV" {
		t.Errorf("WMATALine(silver) = %q", got)
	}
	if got := WMATAStation("metro-center"); got != "A01" {
		t.Errorf("WMATAStation(metro-center) = %q", got)
	}
}

func TestMTAFeed(t *testing.T) {
	tests := []struct {
		route    string
		expected string
	}{
		{"1", "gtfs"},
		{"A", "gtfs-ace"},
		{"l", "gtfs-l"},
		{"unknown", "gtfs"}, // default feed, not identity
	}
	for _, tc := range tests {
		if got := MTAFeed(tc.route); got != tc.expected {
			t.Errorf("MTAFeed(%q) = %q, expected %q", tc.route, got, tc.expected)
		}
	}
}
