// Package telemetry is the narrow observability seam injected into every
// component that touches the network. Implementations must never block or
// fail the caller.
package telemetry

// Telemetry records fire-and-forget events from the fetch and write paths.
type Telemetry interface {
	// RecordEvent records a success/failure event for an operation.
	RecordEvent(eventType string, payload map[string]any)
	// RecordError records a terminal failure after retries are exhausted.
	RecordError(operation string, err error)
}

// Nop discards everything. Used in tests and when no sink is configured.
type Nop struct{}

func (Nop) RecordEvent(string, map[string]any) {}
func (Nop) RecordError(string, error)          {}

// Fanout forwards to every sink in order.
type Fanout []Telemetry

func (f Fanout) RecordEvent(eventType string, payload map[string]any) {
	for _, t := range f {
		t.RecordEvent(eventType, payload)
	}
}

func (f Fanout) RecordError(operation string, err error) {
	for _, t := range f {
		t.RecordError(operation, err)
	}
}
