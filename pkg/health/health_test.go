package health

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/encoding/json"
)

// mockHealthCheck implements HealthCheck for testing
type mockHealthCheck struct {
	name    string
	healthy bool
}

func (m *mockHealthCheck) Name() string {
	return m.name
}

func (m *mockHealthCheck) Check(ctx context.Context) error {
	if !m.healthy {
		return fmt.Errorf("mock health check failed")
	}
	return nil
}

// slowHealthCheck finishes after delay unless the context ends first
type slowHealthCheck struct {
	name  string
	delay time.Duration
}

func (s *slowHealthCheck) Name() string {
	return s.name
}

func (s *slowHealthCheck) Check(ctx context.Context) error {
	select {
	case <-time.After(s.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestHealthChecker_AddRemoveCheck(t *testing.T) {
	hc := NewHealthChecker()

	hc.AddCheck(&mockHealthCheck{name: "b", healthy: true})
	hc.AddCheck(&mockHealthCheck{name: "a", healthy: true})
	hc.AddCheck(&mockHealthCheck{name: "a", healthy: false})

	if got := strings.Join(hc.Names(), ","); got != "a,b" {
		t.Errorf("Expected checks a,b, got %s", got)
	}
	if hc.CheckHealth(context.Background()).Healthy() {
		t.Error("Expected the replacing check to be used")
	}

	hc.RemoveCheck("a")
	if got := strings.Join(hc.Names(), ","); got != "b" {
		t.Errorf("Expected checks b after removal, got %s", got)
	}
}

func TestHealthChecker_CheckHealth(t *testing.T) {
	tests := []struct {
		name     string
		checks   []*mockHealthCheck
		expected string
	}{
		{
			name:     "no_checks",
			checks:   []*mockHealthCheck{},
			expected: "healthy",
		},
		{
			name: "all_healthy",
			checks: []*mockHealthCheck{
				{name: "check1", healthy: true},
				{name: "check2", healthy: true},
			},
			expected: "healthy",
		},
		{
			name: "one_unhealthy",
			checks: []*mockHealthCheck{
				{name: "check1", healthy: true},
				{name: "check2", healthy: false},
			},
			expected: "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := NewHealthChecker()
			for _, check := range tt.checks {
				hc.AddCheck(check)
			}

			status := hc.CheckHealth(context.Background())

			if status.Status != tt.expected {
				t.Errorf("Expected status %s, got %s", tt.expected, status.Status)
			}
			if len(status.Checks) != len(tt.checks) {
				t.Errorf("Expected %d check results, got %d", len(tt.checks), len(status.Checks))
			}
			for _, check := range tt.checks {
				result, exists := status.Checks[check.name]
				if !exists {
					t.Errorf("Check result for %s not found", check.name)
					continue
				}
				if (result.Status == "healthy") != check.healthy {
					t.Errorf("Check %s: unexpected status %s", check.name, result.Status)
				}
				if !check.healthy && result.Message == "" {
					t.Errorf("Check %s: expected a failure message", check.name)
				}
			}
		})
	}
}

func TestHealthChecker_CheckHealthWithTimeout(t *testing.T) {
	hc := NewHealthChecker()
	hc.AddCheck(&slowHealthCheck{name: "slow", delay: time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	status := hc.CheckHealth(ctx)
	if status.Checks["slow"].Status != "unhealthy" {
		t.Errorf("Expected slow check to fail on timeout, got %+v", status.Checks["slow"])
	}
}

func TestHealthChecker_Handlers(t *testing.T) {
	tests := []struct {
		name               string
		path               string
		checks             []*mockHealthCheck
		expectedStatusCode int
		expectedStatus     string
	}{
		{"liveness", "/health", []*mockHealthCheck{{name: "test", healthy: false}}, http.StatusOK, "alive"},
		{"ready", "/ready", []*mockHealthCheck{{name: "test", healthy: true}}, http.StatusOK, "healthy"},
		{"not_ready", "/ready", []*mockHealthCheck{{name: "test", healthy: false}}, http.StatusServiceUnavailable, "unhealthy"},
		{"ready_without_checks", "/ready", nil, http.StatusOK, "healthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := NewHealthChecker()
			for _, check := range tt.checks {
				hc.AddCheck(check)
			}
			mux := http.NewServeMux()
			hc.Register(mux)

			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if w.Code != tt.expectedStatusCode {
				t.Errorf("Expected status code %d, got %d", tt.expectedStatusCode, w.Code)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Expected Content-Type application/json, got %s", ct)
			}

			var response struct {
				Status string `json:"status"`
			}
			if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if response.Status != tt.expectedStatus {
				t.Errorf("Expected status %s, got %s", tt.expectedStatus, response.Status)
			}
		})
	}
}

func TestHealthChecker_ServesOverHTTP(t *testing.T) {
	hc := NewHealthChecker()
	hc.AddCheck(NewWorldHealthCheck(func() int { return 302 }))
	hc.AddCheck(NewSessionCapacityCheck(func() int { return 1 }, 2))

	mux := http.NewServeMux()
	hc.Register(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/ready")
	if err != nil {
		t.Fatalf("GET /ready: %v", err)
	}
	defer resp.Body.Close()

	var status HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.StatusCode != http.StatusOK || !status.Healthy() {
		t.Errorf("Expected ready, got %d %+v", resp.StatusCode, status)
	}
	for _, name := range []string{"world", "sessions"} {
		if status.Checks[name].Status != "healthy" {
			t.Errorf("Expected %s to be healthy, got %+v", name, status.Checks[name])
		}
	}
}

func TestWorldHealthCheck(t *testing.T) {
	tests := []struct {
		name        string
		vertices    int
		expectError bool
	}{
		{"built", 302, false},
		{"not_built", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := NewWorldHealthCheck(func() int { return tt.vertices })
			if check.Name() != "world" {
				t.Errorf("Expected name 'world', got %s", check.Name())
			}
			if err := check.Check(context.Background()); (err != nil) != tt.expectError {
				t.Errorf("Check() error = %v, expectError %v", err, tt.expectError)
			}
		})
	}
}

func TestSessionCapacityCheck(t *testing.T) {
	tests := []struct {
		name        string
		active      int
		max         int
		expectError bool
	}{
		{"room_left", 3, 4, false},
		{"full", 4, 4, true},
		{"unlimited", 1000, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := NewSessionCapacityCheck(func() int { return tt.active }, tt.max)
			if check.Name() != "sessions" {
				t.Errorf("Expected name 'sessions', got %s", check.Name())
			}
			if err := check.Check(context.Background()); (err != nil) != tt.expectError {
				t.Errorf("Check() error = %v, expectError %v", err, tt.expectError)
			}
		})
	}
}

func TestFrameFreshnessCheck(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name        string
		lastFrame   time.Time
		expectError bool
	}{
		{"no_sessions", time.Time{}, false},
		{"fresh", now.Add(-100 * time.Millisecond), false},
		{"stalled", now.Add(-3 * time.Second), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := NewFrameFreshnessCheck(func() time.Time { return tt.lastFrame }, time.Second)
			check.now = func() time.Time { return now }

			if check.Name() != "frames" {
				t.Errorf("Expected name 'frames', got %s", check.Name())
			}
			if err := check.Check(context.Background()); (err != nil) != tt.expectError {
				t.Errorf("Check() error = %v, expectError %v", err, tt.expectError)
			}
		})
	}
}

func TestListenerHealthCheck(t *testing.T) {
	tests := []struct {
		name         string
		listenerAddr string
		expectError  bool
	}{
		{"listening", "[::]:2222", false},
		{"not_listening", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := NewListenerHealthCheck(func() string { return tt.listenerAddr })
			if check.Name() != "listener" {
				t.Errorf("Expected name 'listener', got %s", check.Name())
			}
			if err := check.Check(context.Background()); (err != nil) != tt.expectError {
				t.Errorf("Check() error = %v, expectError %v", err, tt.expectError)
			}
		})
	}
}

func TestCheckFunc(t *testing.T) {
	check := NewCheckFunc("custom", func(ctx context.Context) error { return fmt.Errorf("down") })
	if check.Name() != "custom" {
		t.Errorf("Expected name 'custom', got %s", check.Name())
	}
	if err := check.Check(context.Background()); err == nil || err.Error() != "down" {
		t.Errorf("Expected error 'down', got %v", err)
	}
}

func BenchmarkHealthChecker_CheckHealth(b *testing.B) {
	hc := NewHealthChecker()
	for i := 0; i < 10; i++ {
		hc.AddCheck(&mockHealthCheck{name: fmt.Sprintf("check%d", i), healthy: true})
	}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		hc.CheckHealth(ctx)
	}
}
