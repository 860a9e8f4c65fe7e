// pkg/event/event.go
package event

import (
	"sync"
	"time"

	"github.com/opd-ai/go-spacetravel/pkg/physics"
)

// Type represents the type of event
type Type string

// Simulation event types
const (
	MoveRejected   Type = "move_rejected"
	CullingToggled Type = "culling_toggled"
	WorldBuilt     Type = "world_built"
	SessionStarted Type = "session_started"
	SessionEnded   Type = "session_ended"
)

// Event is the base interface for all events
type Event interface {
	GetType() Type
	GetSource() interface{}
}

// BaseEvent provides common functionality for all events
type BaseEvent struct {
	EventType Type
	Source    interface{}
}

// GetType returns the event type
func (e *BaseEvent) GetType() Type {
	return e.EventType
}

// GetSource returns the event source
func (e *BaseEvent) GetSource() interface{} {
	return e.Source
}

// Handler is a function that handles events
type Handler func(Event)

// Subscription is returned by Subscribe. Cancel removes the handler; calling
// it more than once is harmless.
type Subscription struct {
	ID     uint64
	Type   Type
	Cancel func()
}

type subscriber struct {
	id      uint64
	handler Handler
}

// Bus manages event subscriptions and dispatching. Handlers run
// synchronously on the publishing goroutine.
type Bus struct {
	handlers map[Type][]subscriber
	nextID   uint64
	mu       sync.RWMutex
}

// NewEventBus creates a new event bus
func NewEventBus() *Bus {
	return &Bus{
		handlers: make(map[Type][]subscriber),
		nextID:   1,
	}
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType Type, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[eventType] = append(b.handlers[eventType], subscriber{id: id, handler: handler})

	return &Subscription{
		ID:     id,
		Type:   eventType,
		Cancel: func() { b.Unsubscribe(eventType, id) },
	}
}

// Unsubscribe removes the handler registered under id. It reports whether a
// handler was removed.
func (b *Bus) Unsubscribe(eventType Type, id uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.handlers[eventType]
	for i, s := range subs {
		if s.id != id {
			continue
		}
		// Copy so snapshots taken by Publish stay intact.
		next := make([]subscriber, 0, len(subs)-1)
		next = append(next, subs[:i]...)
		next = append(next, subs[i+1:]...)
		if len(next) == 0 {
			delete(b.handlers, eventType)
		} else {
			b.handlers[eventType] = next
		}
		return true
	}
	return false
}

// Publish sends an event to all subscribed handlers. Handlers may subscribe
// or unsubscribe while being called; the change applies to the next event.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	subs := b.handlers[event.GetType()]
	b.mu.RUnlock()

	for _, s := range subs {
		s.handler(event)
	}
}

// MoveEvent is published when a step is rejected because the candidate
// pose would put the craft inside an obstacle.
type MoveEvent struct {
	BaseEvent
	Position          physics.Vec2
	Heading           float64
	CandidatePosition physics.Vec2
	CandidateHeading  float64
}

// NewMoveRejectedEvent creates a move rejection event
func NewMoveRejectedEvent(source interface{}, pos physics.Vec2, heading float64, candidate physics.Vec2, candidateHeading float64) *MoveEvent {
	return &MoveEvent{
		BaseEvent: BaseEvent{
			EventType: MoveRejected,
			Source:    source,
		},
		Position:          pos,
		Heading:           heading,
		CandidatePosition: candidate,
		CandidateHeading:  candidateHeading,
	}
}

// CullingEvent reports the new frustum culling state.
type CullingEvent struct {
	BaseEvent
	Enabled bool
}

// NewCullingEvent creates a culling toggle event
func NewCullingEvent(source interface{}, enabled bool) *CullingEvent {
	return &CullingEvent{
		BaseEvent: BaseEvent{
			EventType: CullingToggled,
			Source:    source,
		},
		Enabled: enabled,
	}
}

// WorldEvent describes a freshly built obstacle field and its index.
type WorldEvent struct {
	BaseEvent
	Obstacles  int
	Occupied   int
	IndexDepth int
	BuildTime  time.Duration
}

// NewWorldEvent creates a world built event
func NewWorldEvent(source interface{}, obstacles, occupied, depth int, buildTime time.Duration) *WorldEvent {
	return &WorldEvent{
		BaseEvent: BaseEvent{
			EventType: WorldBuilt,
			Source:    source,
		},
		Obstacles:  obstacles,
		Occupied:   occupied,
		IndexDepth: depth,
		BuildTime:  buildTime,
	}
}

// SessionEvent marks the start or end of an interactive session.
type SessionEvent struct {
	BaseEvent
	SessionID string
	User      string
}

// NewSessionEvent creates a session event
func NewSessionEvent(eventType Type, source interface{}, sessionID, user string) *SessionEvent {
	return &SessionEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Source:    source,
		},
		SessionID: sessionID,
		User:      user,
	}
}
