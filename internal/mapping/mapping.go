// Package mapping translates user-facing line and station selections into the
// identifier vocabulary each agency's upstream API expects.
//
// Lookups are deliberately lenient: an identifier absent from a table is
// returned unchanged so the upstream API can answer with its own error
// instead of the client failing closed on a code it simply doesn't know.
package mapping

import "strings"

// CTA route tokens keyed by the app's lowercase line ids.
var ctaRoutes = map[string]string{
	"red":    "Red",
	"blue":   "Blue",
	"brown":  "Brn",
	"green":  "G",
	"orange": "Org",
	"purple": "P",
	"pink":   "Pink",
	"yellow": "Y",
}

// CTA numeric stop codes keyed by station id.
var ctaStops = map[string]string{
	"howard":        "30173",
	"clark-lake":    "30074",
	"ohare":         "30171",
	"roosevelt":     "30269",
	"belmont":       "30255",
	"fullerton":     "30236",
	"95th-dan-ryan": "30089",
	"midway":        "30063",
	"logan-square":  "30197",
	"jackson":       "30212",
}

// WMATA station codes keyed by station id.
var wmataStations = map[string]string{
	"metro-center":  "A01",
	"gallery-place": "B01",
	"union-station": "B03",
	"lenfant-plaza": "D03",
	"pentagon":      "C07",
	"foggy-bottom":  "C04",
	"dupont-circle": "A03",
}

// WMATA line codes keyed by line id.
var wmataLines = map[string]string{
	"red":    "RD",
	"blue":   "BL",
	"orange": "OR",
	"silver": "SV",
	"yellow": "YL",
	"green":  "GR",
}

// MTA GTFS parent stop ids keyed by station id.
var mtaStops = map[string]string{
	"times-sq":      "127",
	"grand-central": "631",
	"union-sq":      "635",
	"atlantic-av":   "235",
	"fulton-st":     "229",
	"96-st":         "120",
}

// MTA realtime feed groups keyed by route id. Routes sharing trackage share
// a feed; anything unmapped falls through to the main feed alias.
var mtaFeeds = map[string]string{
	"1": "gtfs", "2": "gtfs", "3": "gtfs",
	"4": "gtfs", "5": "gtfs", "6": "gtfs", "7": "gtfs",
	"a": "gtfs-ace", "c": "gtfs-ace", "e": "gtfs-ace",
	"b": "gtfs-bdfm", "d": "gtfs-bdfm", "f": "gtfs-bdfm", "m": "gtfs-bdfm",
	"n": "gtfs-nqrw", "q": "gtfs-nqrw", "r": "gtfs-nqrw", "w": "gtfs-nqrw",
	"g": "gtfs-g", "l": "gtfs-l", "j": "gtfs-jz", "z": "gtfs-jz",
}

func lookup(table map[string]string, key string) string {
	if v, ok := table[strings.ToLower(key)]; ok {
		return v
	}
	return key
}

// CTARoute maps a line id to the CTA Train Tracker route token.
func CTARoute(line string) string { return lookup(ctaRoutes, line) }

// CTAStop maps a station id to the CTA numeric stop code.
func CTAStop(station string) string { return lookup(ctaStops, station) }

// WMATAStation maps a station id to the WMATA station code.
func WMATAStation(station string) string { return lookup(wmataStations, station) }

// WMATALine maps a line id to the WMATA two-letter line code.
func WMATALine(line string) string { return lookup(wmataLines, line) }

// MTAStop maps a station id to the MTA GTFS parent stop id.
func MTAStop(station string) string { return lookup(mtaStops, station) }

// MTAFeed maps a route to its realtime feed group, defaulting to the
// main feed for unmapped routes.
func MTAFeed(route string) string {
	if v, ok := mtaFeeds[strings.ToLower(route)]; ok {
		return v
	}
	return "gtfs"
}
