// pkg/network/sessions.go
package network

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opd-ai/go-spacetravel/pkg/engine"
)

// ErrServerFull is returned when every session slot is taken.
var ErrServerFull = errors.New("server full")

// Session is one connected pilot.
type Session struct {
	ID      string
	User    string
	Started time.Time

	mu  sync.RWMutex
	sim *engine.Simulation
}

func (s *Session) attach(sim *engine.Simulation) {
	s.mu.Lock()
	s.sim = sim
	s.mu.Unlock()
}

// LastFrame returns when the session last presented a frame, or the zero
// time before its first frame.
func (s *Session) LastFrame() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.sim == nil {
		return time.Time{}
	}
	return s.sim.LastFrame()
}

// Registry tracks the open sessions and enforces the session limit.
type Registry struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	maxSessions int
	now         func() time.Time
}

// NewRegistry creates a registry. A max of 0 means unlimited.
func NewRegistry(maxSessions int) *Registry {
	return &Registry{
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
		now:         time.Now,
	}
}

// Open reserves a slot for user.
func (r *Registry) Open(user string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.maxSessions > 0 && len(r.sessions) >= r.maxSessions {
		return nil, ErrServerFull
	}
	s := &Session{
		ID:      uuid.New().String(),
		User:    user,
		Started: r.now(),
	}
	r.sessions[s.ID] = s
	return s, nil
}

// Close releases a slot. Closing an unknown ID is a no-op.
func (r *Registry) Close(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Active returns the number of open sessions.
func (r *Registry) Active() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Max returns the session limit, 0 for unlimited.
func (r *Registry) Max() int {
	return r.maxSessions
}

// Sessions returns the open sessions, oldest first.
func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Started.Before(out[j].Started)
	})
	return out
}

// LastFrame returns the most recent frame time across sessions, or the
// zero time when no session has drawn yet.
func (r *Registry) LastFrame() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var last time.Time
	for _, s := range r.sessions {
		if t := s.LastFrame(); t.After(last) {
			last = t
		}
	}
	return last
}
