// pkg/input/stream.go
package input

import (
	"bufio"
	"io"
	"sync"
	"time"
)

// KeyHoldDuration is how long a navigation key counts as held after the
// last byte for it arrived. Terminals only report key repeats, never
// releases.
const KeyHoldDuration = 30 * time.Millisecond

// Stream reads raw terminal bytes in the background and reports them as
// navigation state. Arrow keys and WASD steer, space toggles culling, and
// q or Ctrl-C quits.
type Stream struct {
	ch  chan byte
	now func() time.Time

	mu       sync.Mutex
	lastSeen [directionCount]time.Time
	closed   bool
}

// NewStream starts a goroutine that copies bytes from r until it fails.
// The goroutine exits when r returns an error, for example when the SSH
// session closes.
func NewStream(r io.Reader) *Stream {
	s := newStream(time.Now)
	br := bufio.NewReader(r)
	go func() {
		defer close(s.ch)
		for {
			b, err := br.ReadByte()
			if err != nil {
				return
			}
			s.ch <- b
		}
	}()
	return s
}

func newStream(now func() time.Time) *Stream {
	return &Stream{ch: make(chan byte, 128), now: now}
}

// Sample drains every byte received since the last call without blocking.
// A closed input reports Quit.
func (s *Stream) Sample() State {
	var buf []byte
drain:
	for {
		select {
		case b, ok := <-s.ch:
			if !ok {
				s.mu.Lock()
				s.closed = true
				s.mu.Unlock()
				break drain
			}
			buf = append(buf, b)
		default:
			break drain
		}
	}
	return s.consume(buf, s.now())
}

func (s *Stream) consume(buf []byte, now time.Time) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st State
	for i := 0; i < len(buf); i++ {
		b := buf[i]
		if b == '\x1b' && i+2 < len(buf) && buf[i+1] == '[' {
			if d, ok := arrowDirection(buf[i+2]); ok {
				s.lastSeen[d] = now
				i += 2
				continue
			}
		}
		switch b {
		case 'w', 'W':
			s.lastSeen[Forward] = now
		case 's', 'S':
			s.lastSeen[Back] = now
		case 'a', 'A':
			s.lastSeen[TurnLeft] = now
		case 'd', 'D':
			s.lastSeen[TurnRight] = now
		case ' ':
			st.ToggleCulling = true
		case 'q', 'Q', 0x03:
			st.Quit = true
		}
	}

	for d := Direction(0); d < directionCount; d++ {
		st.active[d] = !s.lastSeen[d].IsZero() && now.Sub(s.lastSeen[d]) < KeyHoldDuration
	}
	st.Quit = st.Quit || s.closed
	return st
}

func arrowDirection(code byte) (Direction, bool) {
	switch code {
	case 'A':
		return Forward, true
	case 'B':
		return Back, true
	case 'C':
		return TurnRight, true
	case 'D':
		return TurnLeft, true
	}
	return 0, false
}
