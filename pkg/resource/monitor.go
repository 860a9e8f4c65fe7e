// pkg/resource/monitor.go
package resource

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/opd-ai/go-spacetravel/pkg/logging"
)

var (
	heapGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "spacetravel_heap_alloc_megabytes",
		Help: "Heap memory in use at the last resource sample.",
	})

	goroutineGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "spacetravel_goroutines",
		Help: "Goroutines running at the last resource sample.",
	})
)

// Limits are the thresholds the resource check reports against.
type Limits struct {
	MaxMemoryMB   int64
	MaxGoroutines int64
	Interval      time.Duration
}

// DefaultLimits allows 500MB of heap and 10000 goroutines, sampled every
// five seconds.
func DefaultLimits() Limits {
	return Limits{
		MaxMemoryMB:   500,
		MaxGoroutines: 10000,
		Interval:      5 * time.Second,
	}
}

// Stats is one resource sample.
type Stats struct {
	MemoryMB   int64     `json:"memory_mb"`
	Goroutines int64     `json:"goroutines"`
	SampledAt  time.Time `json:"sampled_at"`
}

// Monitor samples heap and goroutine usage in the background so readiness
// probes read a cached value instead of stopping the world on every call.
type Monitor struct {
	limits Limits
	logger *logging.Logger
	sample func() Stats

	memoryMB   atomic.Int64
	goroutines atomic.Int64

	mu        sync.RWMutex
	sampledAt time.Time
}

// NewMonitor creates a monitor. Call Sample or Run before reading it.
func NewMonitor(limits Limits, logger *logging.Logger) *Monitor {
	if logger == nil {
		logger = logging.Discard()
	}
	if limits.Interval <= 0 {
		limits.Interval = DefaultLimits().Interval
	}
	return &Monitor{
		limits: limits,
		logger: logger,
		sample: readRuntime,
	}
}

func readRuntime() Stats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return Stats{
		MemoryMB:   int64(m.Alloc / 1024 / 1024),
		Goroutines: int64(runtime.NumGoroutine()),
		SampledAt:  time.Now(),
	}
}

// Sample takes a reading now and publishes it.
func (m *Monitor) Sample() Stats {
	s := m.sample()
	m.memoryMB.Store(s.MemoryMB)
	m.goroutines.Store(s.Goroutines)
	m.mu.Lock()
	m.sampledAt = s.SampledAt
	m.mu.Unlock()

	heapGauge.Set(float64(s.MemoryMB))
	goroutineGauge.Set(float64(s.Goroutines))
	return s
}

// Stats returns the last sample.
func (m *Monitor) Stats() Stats {
	m.mu.RLock()
	at := m.sampledAt
	m.mu.RUnlock()
	return Stats{
		MemoryMB:   m.memoryMB.Load(),
		Goroutines: m.goroutines.Load(),
		SampledAt:  at,
	}
}

// MemoryMB returns the heap usage of the last sample.
func (m *Monitor) MemoryMB() int64 {
	return m.memoryMB.Load()
}

// Run samples at the configured interval until ctx ends. Crossing a limit
// is logged once per sample.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.limits.Interval)
	defer ticker.Stop()

	m.logger.Info(ctx, "Resource monitor started",
		"max_memory_mb", m.limits.MaxMemoryMB,
		"max_goroutines", m.limits.MaxGoroutines,
		"interval", m.limits.Interval,
	)
	for {
		if err := m.check(m.Sample()); err != nil {
			m.logger.Warn(ctx, "Resource limit exceeded", "reason", err.Error())
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (m *Monitor) check(s Stats) error {
	if s.MemoryMB > m.limits.MaxMemoryMB {
		return fmt.Errorf("memory usage %dMB exceeds limit %dMB", s.MemoryMB, m.limits.MaxMemoryMB)
	}
	if m.limits.MaxGoroutines > 0 && s.Goroutines > m.limits.MaxGoroutines {
		return fmt.Errorf("goroutine count %d exceeds limit %d", s.Goroutines, m.limits.MaxGoroutines)
	}
	return nil
}

// HealthCheck reports the last sample against the limits.
type HealthCheck struct {
	monitor *Monitor
}

// NewHealthCheck creates a readiness check backed by monitor.
func NewHealthCheck(monitor *Monitor) *HealthCheck {
	return &HealthCheck{monitor: monitor}
}

// Name returns the name of this health check.
func (h *HealthCheck) Name() string {
	return "resources"
}

// Check fails when the last sample crossed a limit.
func (h *HealthCheck) Check(ctx context.Context) error {
	return h.monitor.check(h.monitor.Stats())
}
