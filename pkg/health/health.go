// Package health serves liveness and readiness probes for the SSH host.
// Readiness aggregates named checks over the shared world, the session
// table and the frame loops.
package health

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/segmentio/encoding/json"
)

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
)

// HealthCheck is one named readiness condition.
type HealthCheck interface {
	Name() string
	Check(ctx context.Context) error
}

// HealthStatus is the aggregated readiness report.
type HealthStatus struct {
	Status string                     `json:"status"`
	Checks map[string]ComponentHealth `json:"checks"`
}

// ComponentHealth is the result of a single check.
type ComponentHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Healthy reports whether every check passed.
func (s HealthStatus) Healthy() bool {
	return s.Status == statusHealthy
}

// HealthChecker runs the registered checks for the readiness probe.
type HealthChecker struct {
	checks  map[string]HealthCheck
	timeout time.Duration
	mu      sync.RWMutex
}

// NewHealthChecker creates a checker whose probes give up after five
// seconds.
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		checks:  make(map[string]HealthCheck),
		timeout: 5 * time.Second,
	}
}

// AddCheck registers check, replacing one with the same name.
func (hc *HealthChecker) AddCheck(check HealthCheck) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[check.Name()] = check
}

// RemoveCheck removes a check by name.
func (hc *HealthChecker) RemoveCheck(name string) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	delete(hc.checks, name)
}

// Names returns the registered check names in sorted order.
func (hc *HealthChecker) Names() []string {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	names := make([]string, 0, len(hc.checks))
	for name := range hc.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckHealth runs every check. The result is healthy only if all pass.
func (hc *HealthChecker) CheckHealth(ctx context.Context) HealthStatus {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	status := HealthStatus{
		Status: statusHealthy,
		Checks: make(map[string]ComponentHealth, len(hc.checks)),
	}
	for name, check := range hc.checks {
		if err := check.Check(ctx); err != nil {
			status.Status = statusUnhealthy
			status.Checks[name] = ComponentHealth{Status: statusUnhealthy, Message: err.Error()}
			continue
		}
		status.Checks[name] = ComponentHealth{Status: statusHealthy}
	}
	return status
}

// LivenessHandler answers 200 while the process can serve HTTP at all.
func (hc *HealthChecker) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ReadinessHandler answers 200 when every check passes and 503 otherwise,
// with the per-check report as the body.
func (hc *HealthChecker) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), hc.timeout)
	defer cancel()

	health := hc.CheckHealth(ctx)
	code := http.StatusOK
	if !health.Healthy() {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, health)
}

// Register mounts the probes on mux at /health and /ready.
func (hc *HealthChecker) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", hc.LivenessHandler)
	mux.HandleFunc("/ready", hc.ReadinessHandler)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// CheckFunc adapts a function to HealthCheck.
type CheckFunc struct {
	name string
	fn   func(ctx context.Context) error
}

// NewCheckFunc names fn as a health check.
func NewCheckFunc(name string, fn func(ctx context.Context) error) *CheckFunc {
	return &CheckFunc{name: name, fn: fn}
}

// Name implements HealthCheck.
func (c *CheckFunc) Name() string { return c.name }

// Check implements HealthCheck.
func (c *CheckFunc) Check(ctx context.Context) error { return c.fn(ctx) }

// WorldHealthCheck fails until the shared world has been built, and when
// it holds no vertices.
type WorldHealthCheck struct {
	vertices func() int
}

// NewWorldHealthCheck creates a world check. vertices returns the size of
// the uploaded geometry buffer, or 0 before the world exists.
func NewWorldHealthCheck(vertices func() int) *WorldHealthCheck {
	return &WorldHealthCheck{vertices: vertices}
}

// Name implements HealthCheck.
func (c *WorldHealthCheck) Name() string {
	return "world"
}

// Check implements HealthCheck.
func (c *WorldHealthCheck) Check(ctx context.Context) error {
	if c.vertices() == 0 {
		return fmt.Errorf("world is not built")
	}
	return nil
}

// SessionCapacityCheck fails once the host is full and cannot accept
// another session.
type SessionCapacityCheck struct {
	active      func() int
	maxSessions int
}

// NewSessionCapacityCheck creates a capacity check. A max of 0 means
// unlimited.
func NewSessionCapacityCheck(active func() int, maxSessions int) *SessionCapacityCheck {
	return &SessionCapacityCheck{active: active, maxSessions: maxSessions}
}

// Name implements HealthCheck.
func (c *SessionCapacityCheck) Name() string {
	return "sessions"
}

// Check implements HealthCheck.
func (c *SessionCapacityCheck) Check(ctx context.Context) error {
	if c.maxSessions == 0 {
		return nil
	}
	if n := c.active(); n >= c.maxSessions {
		return fmt.Errorf("%d of %d sessions in use", n, c.maxSessions)
	}
	return nil
}

// FrameFreshnessCheck fails when frame loops are running but none has
// presented a frame recently, which points at a stalled loop.
type FrameFreshnessCheck struct {
	lastFrame func() time.Time
	maxAge    time.Duration
	now       func() time.Time
}

// NewFrameFreshnessCheck creates a freshness check. lastFrame returns the
// newest presentation time across sessions, or the zero time when no
// session is running; that case passes.
func NewFrameFreshnessCheck(lastFrame func() time.Time, maxAge time.Duration) *FrameFreshnessCheck {
	return &FrameFreshnessCheck{lastFrame: lastFrame, maxAge: maxAge, now: time.Now}
}

// Name implements HealthCheck.
func (c *FrameFreshnessCheck) Name() string {
	return "frames"
}

// Check implements HealthCheck.
func (c *FrameFreshnessCheck) Check(ctx context.Context) error {
	last := c.lastFrame()
	if last.IsZero() {
		return nil
	}
	if age := c.now().Sub(last); age > c.maxAge {
		return fmt.Errorf("last frame presented %s ago, limit %s", age.Round(time.Millisecond), c.maxAge)
	}
	return nil
}

// ListenerHealthCheck fails while the SSH listener is not bound.
type ListenerHealthCheck struct {
	listenerAddr func() string
}

// NewListenerHealthCheck creates a listener check. listenerAddr returns
// the bound address or "" before the listener is up.
func NewListenerHealthCheck(listenerAddr func() string) *ListenerHealthCheck {
	return &ListenerHealthCheck{listenerAddr: listenerAddr}
}

// Name implements HealthCheck.
func (c *ListenerHealthCheck) Name() string {
	return "listener"
}

// Check implements HealthCheck.
func (c *ListenerHealthCheck) Check(ctx context.Context) error {
	if c.listenerAddr() == "" {
		return fmt.Errorf("ssh listener is not active")
	}
	return nil
}
