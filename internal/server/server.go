// Package server exposes the HTTP API: city reference data, normalized
// arrival boards, incident and SOS submission, and offline queue
// management.
package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/bluele/gcache"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/board"
	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/cities"
	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/emergency"
	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/queue"
	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/report"
	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/resilience"
	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/telemetry"
)

const arrivalsCacheSize = 512

// Config carries everything the HTTP layer needs. All fields except
// Metrics are required.
type Config struct {
	Catalog    *cities.Catalog
	Sources    map[string]ArrivalSource
	Reports    *report.Service
	Dispatcher *emergency.Dispatcher
	Queue      *queue.Queue
	Deliver    queue.DeliverFunc
	Boards     map[string]*board.Board
	Limiter    *resilience.RateLimiter
	Telemetry  telemetry.Telemetry

	SOSLimit  int
	SOSWindow time.Duration
	CacheTTL  time.Duration

	AllowedOrigins []string

	// Metrics, when set, is served at /metrics.
	Metrics http.Handler
}

// Server is the HTTP API.
type Server struct {
	catalog    *cities.Catalog
	sources    map[string]ArrivalSource
	reports    *report.Service
	dispatcher *emergency.Dispatcher
	queue      *queue.Queue
	deliver    queue.DeliverFunc
	boards     map[string]*board.Board
	limiter    *resilience.RateLimiter
	tel        telemetry.Telemetry

	cache     gcache.Cache
	cacheTTL  time.Duration
	sosLimit  int
	sosWindow time.Duration

	allowedOrigins []string
	metrics        http.Handler
}

// New builds the server and its arrivals cache.
func New(cfg Config) *Server {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	tel := cfg.Telemetry
	if tel == nil {
		tel = telemetry.Nop{}
	}
	return &Server{
		catalog:    cfg.Catalog,
		sources:    cfg.Sources,
		reports:    cfg.Reports,
		dispatcher: cfg.Dispatcher,
		queue:      cfg.Queue,
		deliver:    cfg.Deliver,
		boards:     cfg.Boards,
		limiter:    cfg.Limiter,
		tel:        tel,
		cache: gcache.New(arrivalsCacheSize).
			LRU().
			Expiration(ttl).
			Build(),
		cacheTTL:       ttl,
		sosLimit:       cfg.SOSLimit,
		sosWindow:      cfg.SOSWindow,
		allowedOrigins: cfg.AllowedOrigins,
		metrics:        cfg.Metrics,
	}
}

// Router assembles all routes.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Get("/api/cities", s.handleCities)
	r.Get("/api/cities/{cityId}", s.handleCity)
	r.Get("/api/arrivals/{cityId}", s.handleArrivals)

	r.Post("/api/reports", s.handleSubmitReport)
	r.Post("/api/sos", s.handleSOS)

	r.Get("/api/queue", s.handleQueueStatus)
	r.Post("/api/queue/flush", s.handleQueueFlush)

	r.Get("/api/boards", s.handleBoards)
	r.Get("/api/boards/{boardKey}", s.handleBoardSnapshot)
	r.Post("/api/boards/{boardKey}/visibility", s.handleBoardVisibility)

	return r
}

// ErrorResponse is the JSON error response structure.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Server: failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string, details map[string]any) {
	respondJSON(w, status, ErrorResponse{Error: msg, Details: details})
}

// handleHealth reports process liveness plus offline queue connectivity.
// The queue lives in local storage, so a failure here means the device
// itself is in trouble.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	depth, err := s.queue.Depth(r.Context())
	if err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":    "error",
			"queue":     "unavailable",
			"timestamp": time.Now().UTC(),
			"error":     err.Error(),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"queue":      "connected",
		"queueDepth": depth,
		"cities":     len(s.catalog.All()),
		"timestamp":  time.Now().UTC(),
	})
}
