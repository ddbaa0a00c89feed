// Package resilience wraps network operations with timeout, retry and
// rate-limit policies shared by the read and write paths.
package resilience

import (
	"context"
	"fmt"
	"time"

	"github.com/SafetyMan80/chiguard-ride-safe-sub000/internal/telemetry"
)

// Config describes one resilience-wrapped call chain.
type Config struct {
	// Operation names the call chain for telemetry and error messages.
	Operation string
	// MaxAttempts is the total attempt budget, including the first try.
	MaxAttempts int
	// BaseDelay is multiplied by the attempt number for each backoff wait:
	// attempt 1 waits BaseDelay, attempt 2 waits 2×BaseDelay, and so on.
	// Linear-times-attempt is the observed upstream contract, kept as-is.
	BaseDelay time.Duration
	// Timeout bounds each individual attempt.
	Timeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Second
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.Operation == "" {
		c.Operation = "unnamed"
	}
	return c
}

// Do runs op under cfg. Each attempt is raced against its own timeout; a
// timed-out attempt's eventual result is discarded, not cancelled upstream.
// A telemetry event fires per attempt, and exactly one error report fires
// when the attempt budget is exhausted. Concurrent calls never share
// backoff state.
func Do[T any](ctx context.Context, tel telemetry.Telemetry, cfg Config, op func(ctx context.Context) (T, error)) (T, error) {
	cfg = cfg.withDefaults()
	var zero T
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		v, err := runAttempt(ctx, cfg.Timeout, op)
		tel.RecordEvent("resilience_attempt", map[string]any{
			"operation": cfg.Operation,
			"attempt":   attempt,
			"success":   err == nil,
		})
		if err == nil {
			return v, nil
		}
		lastErr = err

		if attempt == cfg.MaxAttempts {
			break
		}
		delay := cfg.BaseDelay * time.Duration(attempt)
		tel.RecordEvent("resilience_backoff", map[string]any{
			"operation": cfg.Operation,
			"attempt":   attempt,
			"delay_ms":  delay.Milliseconds(),
		})
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			tel.RecordError(cfg.Operation, ctx.Err())
			return zero, ctx.Err()
		}
	}

	tel.RecordError(cfg.Operation, lastErr)
	return zero, fmt.Errorf("%s failed after %d attempts: %w", cfg.Operation, cfg.MaxAttempts, lastErr)
}

// runAttempt races op against the attempt timeout. The op goroutine keeps a
// buffered channel so a late settlement after timeout is dropped without
// leaking the goroutine.
func runAttempt[T any](ctx context.Context, timeout time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type settled struct {
		v   T
		err error
	}
	done := make(chan settled, 1)
	go func() {
		v, err := op(attemptCtx)
		done <- settled{v, err}
	}()

	select {
	case s := <-done:
		return s.v, s.err
	case <-attemptCtx.Done():
		var zero T
		return zero, fmt.Errorf("operation timed out after %v: %w", timeout, attemptCtx.Err())
	}
}
