package proxy

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/telemetry"
)

type countingTelemetry struct {
	mu     sync.Mutex
	events []map[string]any
}

func (c *countingTelemetry) RecordEvent(_ string, payload map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, payload)
}

func (c *countingTelemetry) RecordError(string, error) {}

func TestInvokeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cta-schedule" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key123" {
			t.Errorf("missing service key header, got %q", got)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tel := &countingTelemetry{}
	c := New(srv.URL, "key123", tel)
	body, err := c.Invoke(context.Background(), "cta-schedule", map[string]string{"routeId": "Red"})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Errorf("unexpected body %s", body)
	}
	if len(tel.events) != 1 {
		t.Errorf("expected 1 telemetry event, got %d", len(tel.events))
	}
}

func TestInvokeErrorMapping(t *testing.T) {
	tests := []struct {
		status   int
		expected error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrUnauthorized},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusInternalServerError, ErrUpstream},
		{http.StatusBadGateway, ErrUpstream},
	}

	for _, tc := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.status)
		}))
		c := New(srv.URL, "", telemetry.Nop{})
		_, err := c.Invoke(context.Background(), "op", nil)
		if !errors.Is(err, tc.expected) {
			t.Errorf("status %d mapped to %v, expected %v", tc.status, err, tc.expected)
		}
		srv.Close()
	}
}

func TestInvokeEnvelopeSemanticError(t *testing.T) {
	// HTTP 200 with an embedded failure is still a failure.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"success":false,"error":"upstream rate limited","timestamp":"2024-03-15T12:00:00Z","source":"cta"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "", telemetry.Nop{})
	_, err := c.InvokeEnvelope(context.Background(), "cta-schedule", nil)
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestInvokeEnvelopeParseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html>definitely not json</html>`))
	}))
	defer srv.Close()

	c := New(srv.URL, "", telemetry.Nop{})
	if _, err := c.InvokeEnvelope(context.Background(), "op", nil); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestInvokeTelemetryOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	tel := &countingTelemetry{}
	c := New(srv.URL, "", tel)
	if _, err := c.Invoke(context.Background(), "op", nil); err == nil {
		t.Fatal("expected error")
	}
	if len(tel.events) != 1 {
		t.Fatalf("expected 1 telemetry event, got %d", len(tel.events))
	}
	if success, _ := tel.events[0]["success"].(bool); success {
		t.Error("failure event marked success")
	}
}
