package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/emergency"
	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/report"
)

// SubmitReportResponse is the JSON response for POST /api/reports.
type SubmitReportResponse struct {
	Status string `json:"status"`
	// RetryAfterSeconds is set on rate-limited rejections.
	RetryAfterSeconds int `json:"retry_after_seconds,omitempty"`
}

// handleSubmitReport handles POST /api/reports.
func (s *Server) handleSubmitReport(w http.ResponseWriter, r *http.Request) {
	var rec report.IncidentReport
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", map[string]any{"internal": err.Error()})
		return
	}

	res, err := s.reports.Submit(r.Context(), rec)
	switch {
	case errors.Is(err, report.ErrRateLimited):
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(res.RetryAfter.Seconds()+0.5)))
		respondJSON(w, http.StatusTooManyRequests, SubmitReportResponse{
			Status:            "rate_limited",
			RetryAfterSeconds: int(res.RetryAfter.Seconds() + 0.5),
		})
	case err != nil:
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			respondError(w, http.StatusBadRequest, "Invalid report", map[string]any{"internal": err.Error()})
			return
		}
		respondError(w, http.StatusInternalServerError, "Report could not be delivered or queued", map[string]any{"internal": err.Error()})
	case res.Queued:
		respondJSON(w, http.StatusAccepted, SubmitReportResponse{Status: "queued"})
	default:
		respondJSON(w, http.StatusCreated, SubmitReportResponse{Status: "submitted"})
	}
}

// SOSRequest is the JSON request body for POST /api/sos.
type SOSRequest struct {
	ReporterID string   `json:"reporter_id"`
	Details    string   `json:"details"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	Accuracy   *float64 `json:"accuracy,omitempty"`
}

// SOSResponse is the JSON response for POST /api/sos.
type SOSResponse struct {
	Status            string `json:"status"`
	AlertID           string `json:"alert_id,omitempty"`
	Channel           string `json:"channel,omitempty"`
	City              string `json:"city,omitempty"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
}

// handleSOS handles POST /api/sos. Coordinates supplied with the trigger
// skip device location acquisition; otherwise the dispatcher acquires a
// bounded GPS fix itself.
func (s *Server) handleSOS(w http.ResponseWriter, r *http.Request) {
	var req SOSRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", map[string]any{"internal": err.Error()})
		return
	}
	if req.ReporterID == "" {
		respondError(w, http.StatusBadRequest, "reporter_id is required", nil)
		return
	}

	allowed, retryAfter := s.limiter.Allow("sos_"+req.ReporterID, s.sosLimit, s.sosWindow)
	if !allowed {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(retryAfter.Seconds()+0.5)))
		respondJSON(w, http.StatusTooManyRequests, SOSResponse{
			Status:            "rate_limited",
			RetryAfterSeconds: int(retryAfter.Seconds() + 0.5),
		})
		return
	}

	var known *emergency.Location
	if req.Latitude != nil && req.Longitude != nil {
		loc := emergency.Location{Latitude: *req.Latitude, Longitude: *req.Longitude}
		if req.Accuracy != nil {
			loc.Accuracy = *req.Accuracy
		}
		known = &loc
	}

	res, err := s.dispatcher.Dispatch(r.Context(), req.ReporterID, req.Details, known)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Emergency could not be delivered or queued", map[string]any{"internal": err.Error()})
		return
	}
	if res.Queued {
		respondJSON(w, http.StatusAccepted, SOSResponse{
			Status:  "queued",
			AlertID: res.Alert.ID,
			City:    res.Alert.CityID,
		})
		return
	}
	respondJSON(w, http.StatusCreated, SOSResponse{
		Status:  "dispatched",
		AlertID: res.Alert.ID,
		Channel: res.Channel,
		City:    res.Alert.CityID,
	})
}
