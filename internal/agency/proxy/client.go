// Package proxy is the transport layer between the companion and the
// serverless function proxies that hold the real agency credentials.
// The companion never calls a third-party transit API directly.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/telemetry"
)

// Upstream HTTP failures mapped to user-facing categories.
var (
	ErrUnauthorized = errors.New("proxy rejected credentials")
	ErrNotFound     = errors.New("proxy operation not found")
	ErrUpstream     = errors.New("upstream agency unavailable")
)

// Client invokes serverless function proxies by logical operation name.
type Client struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
	tel        telemetry.Telemetry
}

// New creates a proxy client. The timeout here is a transport-level
// backstop; per-attempt deadlines come from the resilience wrapper's
// context.
func New(baseURL, serviceKey string, tel telemetry.Telemetry) *Client {
	return &Client{
		baseURL:    baseURL,
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		tel:        tel,
	}
}

// Envelope is the common response wrapper most proxies use. Agencies that
// return bare payloads are decoded by their adapters from the raw body.
type Envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error,omitempty"`
	Timestamp string          `json:"timestamp"`
	Source    string          `json:"source"`
}

// Invoke POSTs a JSON payload to the named operation and returns the raw
// response body. A telemetry event fires after every call, success or not.
func (c *Client) Invoke(ctx context.Context, operation string, payload any) ([]byte, error) {
	body, err := c.invoke(ctx, operation, payload)
	c.tel.RecordEvent("proxy_call", map[string]any{
		"agency":    operation,
		"success":   err == nil,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	return body, err
}

func (c *Client) invoke(ctx context.Context, operation string, payload any) ([]byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+operation, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.serviceKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("proxy call %s failed: %w", operation, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", operation, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%s returned %d: %w", operation, resp.StatusCode, ErrUnauthorized)
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s returned 404: %w", operation, ErrNotFound)
	default:
		return nil, fmt.Errorf("%s returned %d: %s: %w", operation, resp.StatusCode, truncateBody(body), ErrUpstream)
	}
}

// InvokeEnvelope invokes the operation and unwraps the common response
// envelope, treating success=false as a failure even though the HTTP
// status was 200.
func (c *Client) InvokeEnvelope(ctx context.Context, operation string, payload any) (*Envelope, error) {
	body, err := c.Invoke(ctx, operation, payload)
	if err != nil {
		return nil, err
	}
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode %s envelope: %w", operation, err)
	}
	if !env.Success {
		if env.Error == "" {
			env.Error = "unspecified upstream error"
		}
		return nil, fmt.Errorf("%s reported failure: %s: %w", operation, env.Error, ErrUpstream)
	}
	return &env, nil
}

func truncateBody(body []byte) string {
	const limit = 200
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
