package collab

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/taskmaster-io/backend/internal/domain"
)

// Session is one party connected to a canvas room. The engine never touches
// the socket itself; the transport supplies ping/terminate hooks and drains
// Outbox from its writer goroutine.
type Session struct {
	ID       uuid.UUID
	CanvasID uuid.UUID
	Mode     domain.ShareMode

	outbox    chan []byte
	alive     atomic.Bool
	ping      func() error
	terminate func()

	sendMu sync.RWMutex
	closed bool
}

// NewSession creates a session for a resolved grant. buffer sizes the outbox;
// a peer that cannot drain it in time is dropped rather than slowing the room.
func NewSession(canvasID uuid.UUID, mode domain.ShareMode, buffer int, ping func() error, terminate func()) *Session {
	s := &Session{
		ID:        uuid.New(),
		CanvasID:  canvasID,
		Mode:      mode,
		outbox:    make(chan []byte, buffer),
		ping:      ping,
		terminate: terminate,
	}
	s.alive.Store(true)
	return s
}

// CanEdit reports whether the session may mutate canvas state.
func (s *Session) CanEdit() bool {
	return s.Mode == domain.ShareModeEdit
}

// Outbox is the channel the transport's writer goroutine drains. It is
// closed when the session leaves the room.
func (s *Session) Outbox() <-chan []byte {
	return s.outbox
}

// MarkAlive records proof of life; the transport calls it on every pong and
// on every inbound message.
func (s *Session) MarkAlive() {
	s.alive.Store(true)
}

// Send queues a payload without blocking. It reports false when the session
// is gone or the outbox is full; the engine treats the latter as a dead peer.
func (s *Session) Send(payload []byte) bool {
	s.sendMu.RLock()
	defer s.sendMu.RUnlock()
	if s.closed {
		return false
	}
	select {
	case s.outbox <- payload:
		return true
	default:
		return false
	}
}

func (s *Session) closeOutbox() {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.outbox)
}
