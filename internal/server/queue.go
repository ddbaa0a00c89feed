package server

import (
	"net/http"
	"time"
)

// QueuedReport is the API shape of one offline queue row. Details are
// omitted deliberately: the queue endpoint is a status view, not a way to
// read report contents back out.
type QueuedReport struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Status     string    `json:"status"`
	Attempts   int       `json:"attempts"`
	ReportedAt time.Time `json:"reportedAt"`
}

// QueueStatusResponse is the JSON response for GET /api/queue.
type QueueStatusResponse struct {
	Depth   int            `json:"depth"`
	Reports []QueuedReport `json:"reports"`
}

// handleQueueStatus handles GET /api/queue.
func (s *Server) handleQueueStatus(w http.ResponseWriter, r *http.Request) {
	pending, err := s.queue.Pending(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to read offline queue", map[string]any{"internal": err.Error()})
		return
	}
	out := make([]QueuedReport, 0, len(pending))
	for _, rep := range pending {
		out = append(out, QueuedReport{
			ID:         rep.ID,
			Type:       rep.Type,
			Status:     rep.Status,
			Attempts:   rep.Attempts,
			ReportedAt: rep.ReportedAt,
		})
	}
	respondJSON(w, http.StatusOK, QueueStatusResponse{Depth: len(out), Reports: out})
}

// QueueFlushResponse is the JSON response for POST /api/queue/flush.
type QueueFlushResponse struct {
	Delivered int `json:"delivered"`
	Remaining int `json:"remaining"`
}

// handleQueueFlush handles POST /api/queue/flush: an explicit replay
// attempt, used when the rider wants to push queued reports out without
// waiting for the connectivity watcher.
func (s *Server) handleQueueFlush(w http.ResponseWriter, r *http.Request) {
	delivered, remaining, err := s.queue.Process(r.Context(), s.deliver)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Queue replay failed", map[string]any{"internal": err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, QueueFlushResponse{Delivered: delivered, Remaining: remaining})
}
