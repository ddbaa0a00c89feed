package telemetry

import (
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// PublisherMetrics is the narrow metrics surface the NATS publisher needs.
type PublisherMetrics interface {
	TelemetryPublishedInc()
	TelemetryPublishErrInc()
	NATSSetConnected(connected bool)
}

// NATSPublisher publishes telemetry events to NATS subjects. Publishing is
// fire-and-forget: errors are counted and logged, never returned to the
// business-logic caller.
type NATSPublisher struct {
	nc      *nats.Conn
	metrics PublisherMetrics
}

// NewNATSPublisher connects to NATS and wires connection-state callbacks
// into the metrics collector.
func NewNATSPublisher(url string, m PublisherMetrics) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("chiguard-companion"),
		nats.DisconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Printf("Telemetry: nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			log.Printf("Telemetry: nats reconnected")
		}),
	)
	if err != nil {
		return nil, err
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	return &NATSPublisher{nc: nc, metrics: m}, nil
}

// Close drains and closes the connection.
func (p *NATSPublisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		p.nc.Close()
	}
}

type event struct {
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// RecordEvent publishes to telemetry.<type>.
func (p *NATSPublisher) RecordEvent(eventType string, payload map[string]any) {
	p.publish("telemetry."+subjectToken(eventType), event{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	})
}

// RecordError publishes to telemetry.error.<operation>.
func (p *NATSPublisher) RecordError(operation string, err error) {
	p.publish("telemetry.error."+subjectToken(operation), event{
		Type:      "error",
		Payload:   map[string]any{"operation": operation, "error": err.Error()},
		Timestamp: time.Now().UTC(),
	})
}

func (p *NATSPublisher) publish(subject string, e event) {
	b, err := json.Marshal(e)
	if err != nil {
		return
	}
	if err := p.nc.Publish(subject, b); err != nil {
		if p.metrics != nil {
			p.metrics.TelemetryPublishErrInc()
		}
		log.Printf("Telemetry: publish %s failed: %v", subject, err)
		return
	}
	if p.metrics != nil {
		p.metrics.TelemetryPublishedInc()
	}
}

// subjectToken sanitizes a value for use as a NATS subject token.
func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		return "unknown"
	}
	return s
}
