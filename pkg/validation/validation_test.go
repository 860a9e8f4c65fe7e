package validation

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidateUserName(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		want        string
		wantErr     bool
		errContains string
	}{
		{
			name:  "simple",
			input: "alice",
			want:  "alice",
		},
		{
			name:  "punctuation",
			input: "bob.smith-2_x@host",
			want:  "bob.smith-2_x@host",
		},
		{
			name:  "trimmed",
			input: "  carol  ",
			want:  "carol",
		},
		{
			name:        "empty",
			input:       "",
			wantErr:     true,
			errContains: "cannot be empty",
		},
		{
			name:        "only whitespace",
			input:       "   ",
			wantErr:     true,
			errContains: "cannot be empty",
		},
		{
			name:        "too long",
			input:       strings.Repeat("a", MaxUserNameLen+1),
			wantErr:     true,
			errContains: "too long",
		},
		{
			name:  "exactly max length",
			input: strings.Repeat("a", MaxUserNameLen),
			want:  strings.Repeat("a", MaxUserNameLen),
		},
		{
			name:        "control characters",
			input:       "eve\x1b[2J",
			wantErr:     true,
			errContains: "control characters",
		},
		{
			name:        "invalid utf8",
			input:       "bad\xff",
			wantErr:     true,
			errContains: "UTF-8",
		},
		{
			name:        "spaces inside",
			input:       "two words",
			wantErr:     true,
			errContains: "invalid characters",
		},
		{
			name:        "markup",
			input:       "<script>",
			wantErr:     true,
			errContains: "invalid characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateUserName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateUserName() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("ValidateUserName() error = %v, should contain %q", err, tt.errContains)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ValidateUserName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUserNameOrDefault(t *testing.T) {
	if got := UserNameOrDefault("alice"); got != "alice" {
		t.Errorf("UserNameOrDefault(alice) = %q", got)
	}
	if got := UserNameOrDefault("\x00"); got != DefaultUserName {
		t.Errorf("UserNameOrDefault(NUL) = %q, want %q", got, DefaultUserName)
	}
}

func TestClampWindow(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		wantW, wantH  int
		wantErr       bool
	}{
		{"typical", 80, 24, 80, 24, false},
		{"minimum", MinWindowWidth, MinWindowHeight, MinWindowWidth, MinWindowHeight, false},
		{"too_narrow", MinWindowWidth - 1, 24, 0, 0, true},
		{"too_short", 80, MinWindowHeight - 1, 0, 0, true},
		{"zero", 0, 0, 0, 0, true},
		{"huge", 5000, 3000, MaxWindowWidth, MaxWindowHeight, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h, err := ClampWindow(tt.width, tt.height)
			if tt.wantErr {
				if !errors.Is(err, ErrWindowTooSmall) {
					t.Fatalf("ClampWindow() error = %v, want ErrWindowTooSmall", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ClampWindow() unexpected error: %v", err)
			}
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("ClampWindow() = %dx%d, want %dx%d", w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

// fakeClock is advanced by hand.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(maxRequests int, window time.Duration) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	rl := NewRateLimiter(maxRequests, window)
	rl.now = clock.now
	return rl, clock
}

func TestRateLimiter_Allow(t *testing.T) {
	rl, _ := newTestLimiter(5, time.Minute)

	for i := 0; i < 5; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Errorf("connection %d should be allowed", i+1)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Error("6th connection should be denied")
	}
	if !rl.Allow("10.0.0.2") {
		t.Error("a different host should be allowed")
	}
}

func TestRateLimiter_TokenRefill(t *testing.T) {
	rl, clock := newTestLimiter(2, time.Minute)

	rl.Allow("host")
	rl.Allow("host")
	if rl.Allow("host") {
		t.Fatal("connection should be denied after the bucket is empty")
	}

	// Half a window refills one token.
	clock.advance(30 * time.Second)
	if !rl.Allow("host") {
		t.Error("connection should be allowed after a partial refill")
	}
	if rl.Allow("host") {
		t.Error("only one token should have been refilled")
	}

	clock.advance(10 * time.Minute)
	for i := 0; i < 2; i++ {
		if !rl.Allow("host") {
			t.Errorf("connection %d should be allowed after a full refill", i+1)
		}
	}
	if rl.Allow("host") {
		t.Error("refill must not exceed capacity")
	}
}

func TestRateLimiter_PrunesIdleHosts(t *testing.T) {
	rl, clock := newTestLimiter(3, time.Minute)

	rl.Allow("a")
	rl.Allow("b")
	if rl.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", rl.Len())
	}

	clock.advance(3 * time.Minute)
	rl.Allow("c")
	if rl.Len() != 1 {
		t.Errorf("Len() = %d after pruning, want 1", rl.Len())
	}
}

func BenchmarkRateLimiter_Allow(b *testing.B) {
	rl := NewRateLimiter(1<<30, time.Minute)
	for i := 0; i < b.N; i++ {
		rl.Allow("host")
	}
}
