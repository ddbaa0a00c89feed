package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/arrival"
	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/cities"
)

// CityResponse is the reference payload for one city.
type CityResponse struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Agency      string        `json:"agency"`
	Description string        `json:"description,omitempty"`
	Icon        string        `json:"icon,omitempty"`
	Lines       []cities.Line `json:"lines"`
	Stations    []CityStation `json:"stations"`
	Tips        []string      `json:"tips,omitempty"`
}

// CityStation is the station shape exposed over the API.
type CityStation struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Lines []string `json:"lines,omitempty"`
}

// ArrivalsResponse is the JSON response structure for GET /api/arrivals.
type ArrivalsResponse struct {
	City      string            `json:"city"`
	Line      string            `json:"line,omitempty"`
	Station   string            `json:"station,omitempty"`
	Arrivals  []arrival.Arrival `json:"arrivals"`
	Count     int               `json:"count"`
	FetchedAt time.Time         `json:"fetchedAt"`
	// Message carries the user-facing note when the upstream feed failed
	// and the board degraded to an empty list.
	Message string `json:"message,omitempty"`
}

func cityResponse(c *cities.City) CityResponse {
	stations := make([]CityStation, 0, len(c.Stations))
	for _, s := range c.Stations {
		stations = append(stations, CityStation{ID: s.ID, Name: s.Name, Lines: s.Lines})
	}
	return CityResponse{
		ID:          c.ID,
		Name:        c.Name,
		Agency:      c.Agency,
		Description: c.Description,
		Icon:        c.Icon,
		Lines:       c.Lines,
		Stations:    stations,
		Tips:        c.Tips,
	}
}

// handleCities handles GET /api/cities.
func (s *Server) handleCities(w http.ResponseWriter, r *http.Request) {
	all := s.catalog.All()
	out := make([]CityResponse, 0, len(all))
	for _, c := range all {
		out = append(out, cityResponse(c))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"cities": out,
		"count":  len(out),
	})
}

// handleCity handles GET /api/cities/{cityId}.
func (s *Server) handleCity(w http.ResponseWriter, r *http.Request) {
	cityID := chi.URLParam(r, "cityId")
	city, ok := s.catalog.Get(cityID)
	if !ok {
		respondError(w, http.StatusNotFound, "City not supported", map[string]any{"city": cityID})
		return
	}
	respondJSON(w, http.StatusOK, cityResponse(city))
}

// handleArrivals handles GET /api/arrivals/{cityId}?line=&station=.
// Upstream feed failures degrade to an empty board with a message rather
// than an error status: a rider staring at a dead screen is worse than
// one told to check again shortly.
func (s *Server) handleArrivals(w http.ResponseWriter, r *http.Request) {
	cityID := chi.URLParam(r, "cityId")
	line := r.URL.Query().Get("line")
	station := r.URL.Query().Get("station")

	if _, ok := s.catalog.Get(cityID); !ok {
		respondError(w, http.StatusNotFound, "City not supported", map[string]any{"city": cityID})
		return
	}
	source, ok := s.sources[cityID]
	if !ok {
		respondError(w, http.StatusNotFound, "No live feed for city", map[string]any{"city": cityID})
		return
	}
	if station == "" {
		respondError(w, http.StatusBadRequest, "station parameter is required", nil)
		return
	}

	cacheKey := cityID + "|" + line + "|" + station
	if cached, err := s.cache.Get(cacheKey); err == nil {
		resp := cached.(ArrivalsResponse)
		w.Header().Set("Cache-Control", "public, max-age=5, stale-while-revalidate=5")
		respondJSON(w, http.StatusOK, resp)
		return
	}

	arrivals, err := source.Arrivals(r.Context(), line, station)
	if err != nil {
		s.tel.RecordError("arrivals_fetch", err)
		respondJSON(w, http.StatusOK, ArrivalsResponse{
			City:      cityID,
			Line:      line,
			Station:   station,
			Arrivals:  []arrival.Arrival{},
			Count:     0,
			FetchedAt: time.Now().UTC(),
			Message:   "No arrivals found",
		})
		return
	}
	if arrivals == nil {
		arrivals = []arrival.Arrival{}
	}

	resp := ArrivalsResponse{
		City:      cityID,
		Line:      line,
		Station:   station,
		Arrivals:  arrivals,
		Count:     len(arrivals),
		FetchedAt: time.Now().UTC(),
	}
	if len(arrivals) == 0 {
		resp.Message = "No arrivals found"
	}
	// Only healthy responses are cached; a failed fetch should be retried
	// on the next request.
	_ = s.cache.Set(cacheKey, resp)

	w.Header().Set("Cache-Control", "public, max-age=5, stale-while-revalidate=5")
	respondJSON(w, http.StatusOK, resp)
}
