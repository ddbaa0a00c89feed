// Package cities holds the static per-city reference data: lines, stations,
// rider tips and the bounding box used to infer a metro area from GPS
// coordinates. The data is embedded at compile time and never mutated.
package cities

import (
	"embed"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed data/*.yml
var dataFS embed.FS

// Line is one transit line a rider can select.
type Line struct {
	ID    string `yaml:"id" validate:"required"`
	Name  string `yaml:"name" validate:"required"`
	Color string `yaml:"color"`
}

// Station is one selectable station. Lines references Line IDs within the
// same city config; referential integrity is checked by tests, not enforced
// at runtime.
type Station struct {
	ID        string   `yaml:"id" validate:"required"`
	Name      string   `yaml:"name" validate:"required"`
	Lines     []string `yaml:"lines"`
	Latitude  float64  `yaml:"latitude"`
	Longitude float64  `yaml:"longitude"`
}

// BoundingBox is a rectangular lat/lon window.
type BoundingBox struct {
	MinLat float64 `yaml:"min_lat"`
	MaxLat float64 `yaml:"max_lat"`
	MinLon float64 `yaml:"min_lon"`
	MaxLon float64 `yaml:"max_lon"`
}

// Contains reports whether the coordinate falls inside the box.
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// City is the full reference config for one supported metro area.
type City struct {
	ID          string      `yaml:"id" validate:"required"`
	Name        string      `yaml:"name" validate:"required"`
	Agency      string      `yaml:"agency" validate:"required"`
	Description string      `yaml:"description"`
	Icon        string      `yaml:"icon"`
	Lines       []Line      `yaml:"lines" validate:"required,dive"`
	Stations    []Station   `yaml:"stations" validate:"dive"`
	Tips        []string    `yaml:"tips"`
	Box         BoundingBox `yaml:"bounding_box"`
}

// Station returns the station with the given id, if present.
func (c *City) Station(id string) (Station, bool) {
	for _, s := range c.Stations {
		if s.ID == id {
			return s, true
		}
	}
	return Station{}, false
}

// DefaultCityID is the fallback when a coordinate matches no known box.
const DefaultCityID = "chicago"

// Catalog is the loaded set of city configs.
type Catalog struct {
	cities map[string]*City
	order  []string
}

// Load parses and validates all embedded city configs.
func Load() (*Catalog, error) {
	entries, err := dataFS.ReadDir("data")
	if err != nil {
		return nil, err
	}

	v := validator.New()
	cat := &Catalog{cities: make(map[string]*City)}
	for _, e := range entries {
		data, err := dataFS.ReadFile("data/" + e.Name())
		if err != nil {
			return nil, err
		}
		var city City
		if err := yaml.Unmarshal(data, &city); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", e.Name(), err)
		}
		if err := v.Struct(city); err != nil {
			return nil, fmt.Errorf("invalid city config %s: %w", e.Name(), err)
		}
		cat.cities[city.ID] = &city
		cat.order = append(cat.order, city.ID)
	}
	sort.Strings(cat.order)

	if _, ok := cat.cities[DefaultCityID]; !ok {
		return nil, fmt.Errorf("default city %q missing from configs", DefaultCityID)
	}
	return cat, nil
}

// Get returns the config for a city id.
func (c *Catalog) Get(id string) (*City, bool) {
	city, ok := c.cities[id]
	return city, ok
}

// All returns every city config, ordered by id.
func (c *Catalog) All() []*City {
	out := make([]*City, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.cities[id])
	}
	return out
}

// Locate classifies a coordinate into a metro area by scanning the city
// bounding boxes in id order. Coordinates outside every box fall back to
// the default city rather than failing: an emergency must always land
// somewhere.
func (c *Catalog) Locate(lat, lon float64) *City {
	for _, id := range c.order {
		if c.cities[id].Box.Contains(lat, lon) {
			return c.cities[id]
		}
	}
	return c.cities[DefaultCityID]
}
