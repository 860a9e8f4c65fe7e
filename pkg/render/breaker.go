// pkg/render/breaker.go
package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sony/gobreaker"

	"github.com/opd-ai/go-spacetravel/pkg/logging"
)

// BreakerSettings controls when a BreakerWriter gives up on its output.
type BreakerSettings struct {
	Name                   string
	MaxConsecutiveFailures uint32
	Timeout                time.Duration // how long the breaker stays open before probing
}

// DefaultBreakerSettings trips after three failed frames in a row.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		Name:                   "frame-writer",
		MaxConsecutiveFailures: 3,
		Timeout:                30 * time.Second,
	}
}

// BreakerWriter guards a frame sink, typically an SSH channel, with a
// circuit breaker. Once the sink has failed repeatedly every write fails
// fast with an error matching ErrClosed, which ends the frame loop instead
// of stalling it on a dead client.
type BreakerWriter struct {
	w       io.Writer
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerWriter wraps w. State changes are logged through logger.
func NewBreakerWriter(w io.Writer, settings BreakerSettings, logger *logging.Logger) *BreakerWriter {
	if logger == nil {
		logger = logging.Discard()
	}
	if settings.MaxConsecutiveFailures == 0 {
		settings.MaxConsecutiveFailures = DefaultBreakerSettings().MaxConsecutiveFailures
	}

	return &BreakerWriter{
		w: w,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        settings.Name,
			MaxRequests: 1,
			Timeout:     settings.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= settings.MaxConsecutiveFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Info(context.Background(), "circuit breaker state changed",
					"name", name,
					"from", from.String(),
					"to", to.String(),
				)
			},
		}),
	}
}

// Write implements io.Writer.
func (b *BreakerWriter) Write(p []byte) (int, error) {
	n, err := b.breaker.Execute(func() (interface{}, error) {
		n, err := b.w.Write(p)
		if err == nil && n < len(p) {
			err = io.ErrShortWrite
		}
		return n, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return 0, fmt.Errorf("%w: %w", ErrClosed, err)
	}
	written, _ := n.(int)
	return written, err
}

// State returns the breaker's current state.
func (b *BreakerWriter) State() gobreaker.State {
	return b.breaker.State()
}
