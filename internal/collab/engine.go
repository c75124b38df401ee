// Package collab keeps the in-memory state of live collaboration: which
// sessions are joined to which canvas room, fan-out of patches, and the
// liveness sweep that reaps silent connections. Rooms exist only while
// occupied; persistence is someone else's concern.
package collab

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Engine owns the room table. One instance per process, created by the
// composition root and handed to every connection handler.
type Engine struct {
	log *slog.Logger

	mu    sync.RWMutex
	rooms map[uuid.UUID]map[*Session]struct{}
}

// NewEngine creates an empty engine.
func NewEngine(logger *slog.Logger) *Engine {
	return &Engine{
		log:   logger.With("component", "collab"),
		rooms: make(map[uuid.UUID]map[*Session]struct{}),
	}
}

// Join adds the session to its canvas room, creating the room on first
// entry, and returns the member count after joining.
func (e *Engine) Join(s *Session) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	room, ok := e.rooms[s.CanvasID]
	if !ok {
		room = make(map[*Session]struct{})
		e.rooms[s.CanvasID] = room
		e.log.Debug("room opened", slog.String("canvas_id", s.CanvasID.String()))
	}
	room[s] = struct{}{}
	return len(room)
}

// Leave removes the session from its room and closes its outbox. The last
// leaver destroys the room. Returns the member count after leaving. Leaving
// twice is harmless.
func (e *Engine) Leave(s *Session) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.leaveLocked(s)
}

func (e *Engine) leaveLocked(s *Session) int {
	room, ok := e.rooms[s.CanvasID]
	if !ok {
		s.closeOutbox()
		return 0
	}
	if _, member := room[s]; !member {
		s.closeOutbox()
		return len(room)
	}

	delete(room, s)
	s.closeOutbox()

	if len(room) == 0 {
		delete(e.rooms, s.CanvasID)
		e.log.Debug("room closed", slog.String("canvas_id", s.CanvasID.String()))
		return 0
	}
	return len(room)
}

// Broadcast queues payload to every room member except the sender (nil
// sender reaches everyone). Members whose outbox is full are evicted on the
// spot: a peer that cannot keep up is indistinguishable from a dead one.
func (e *Engine) Broadcast(canvasID uuid.UUID, payload []byte, except *Session) {
	e.mu.Lock()
	defer e.mu.Unlock()

	room, ok := e.rooms[canvasID]
	if !ok {
		return
	}

	var stuck []*Session
	for s := range room {
		if s == except {
			continue
		}
		if !s.Send(payload) {
			stuck = append(stuck, s)
		}
	}
	for _, s := range stuck {
		e.log.Warn("evicting slow session",
			slog.String("canvas_id", canvasID.String()),
			slog.String("session_id", s.ID.String()),
		)
		e.leaveLocked(s)
		if s.terminate != nil {
			s.terminate()
		}
	}
}

// MemberCount returns the current size of a room, zero if it does not exist.
func (e *Engine) MemberCount(canvasID uuid.UUID) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.rooms[canvasID])
}

// Sweep runs one liveness pass: sessions that produced no proof of life
// since the previous pass are terminated, everyone else is pinged and has
// the flag rearmed for the next pass. Pings are network writes, so they run
// after the room table is released; a wedged peer must not stall joins or
// broadcasts for the whole process.
func (e *Engine) Sweep() (pinged, reaped int) {
	e.mu.Lock()
	var dead, live []*Session
	for _, room := range e.rooms {
		for s := range room {
			if !s.alive.Swap(false) {
				dead = append(dead, s)
				continue
			}
			live = append(live, s)
		}
	}
	for _, s := range dead {
		e.log.Info("reaping silent session",
			slog.String("canvas_id", s.CanvasID.String()),
			slog.String("session_id", s.ID.String()),
		)
		e.leaveLocked(s)
	}
	e.mu.Unlock()

	for _, s := range dead {
		if s.terminate != nil {
			s.terminate()
		}
	}
	reaped = len(dead)

	for _, s := range live {
		if s.ping != nil {
			if err := s.ping(); err != nil {
				e.log.Info("reaping unreachable session",
					slog.String("canvas_id", s.CanvasID.String()),
					slog.String("session_id", s.ID.String()),
				)
				e.Leave(s)
				if s.terminate != nil {
					s.terminate()
				}
				reaped++
				continue
			}
		}
		pinged++
	}
	return pinged, reaped
}

// Shutdown closes every session and empties the room table.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for canvasID, room := range e.rooms {
		for s := range room {
			s.closeOutbox()
			if s.terminate != nil {
				s.terminate()
			}
		}
		delete(e.rooms, canvasID)
	}
	e.log.Info("collab engine shut down")
}
