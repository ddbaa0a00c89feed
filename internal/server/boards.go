package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/arrival"
)

// BoardSummary is one entry in the board listing.
type BoardSummary struct {
	Key       string    `json:"key"`
	Visible   bool      `json:"visible"`
	Count     int       `json:"count"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BoardSnapshotResponse is the JSON response for one board's snapshot.
type BoardSnapshotResponse struct {
	Key       string            `json:"key"`
	Visible   bool              `json:"visible"`
	Arrivals  []arrival.Arrival `json:"arrivals"`
	Count     int               `json:"count"`
	UpdatedAt time.Time         `json:"updatedAt"`
	Error     string            `json:"error,omitempty"`
}

// handleBoards handles GET /api/boards.
func (s *Server) handleBoards(w http.ResponseWriter, r *http.Request) {
	keys := make([]string, 0, len(s.boards))
	for k := range s.boards {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]BoardSummary, 0, len(keys))
	for _, k := range keys {
		b := s.boards[k]
		arrivals, updatedAt, _ := b.Snapshot()
		out = append(out, BoardSummary{
			Key:       k,
			Visible:   b.Visible(),
			Count:     len(arrivals),
			UpdatedAt: updatedAt,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"boards": out,
		"count":  len(out),
	})
}

// handleBoardSnapshot handles GET /api/boards/{boardKey}.
func (s *Server) handleBoardSnapshot(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "boardKey")
	b, ok := s.boards[key]
	if !ok {
		respondError(w, http.StatusNotFound, "Board not found", map[string]any{"board": key})
		return
	}

	arrivals, updatedAt, lastErr := b.Snapshot()
	if arrivals == nil {
		arrivals = []arrival.Arrival{}
	}
	resp := BoardSnapshotResponse{
		Key:       key,
		Visible:   b.Visible(),
		Arrivals:  arrivals,
		Count:     len(arrivals),
		UpdatedAt: updatedAt,
	}
	if lastErr != nil {
		resp.Error = lastErr.Error()
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleBoardVisibility handles POST /api/boards/{boardKey}/visibility.
// Hiding a board pauses its refresh ticks; showing it again triggers an
// immediate refresh.
func (s *Server) handleBoardVisibility(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "boardKey")
	b, ok := s.boards[key]
	if !ok {
		respondError(w, http.StatusNotFound, "Board not found", map[string]any{"board": key})
		return
	}

	var req struct {
		Visible bool `json:"visible"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", map[string]any{"internal": err.Error()})
		return
	}

	b.SetVisible(req.Visible)
	if req.Visible {
		// Refresh off the request path: the response must not wait for
		// the fetch, and the fetch must not die with the request context.
		go b.Refresh(context.Background())
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"key":     key,
		"visible": req.Visible,
	})
}
