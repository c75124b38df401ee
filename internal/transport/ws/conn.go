package ws

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/taskmaster-io/backend/internal/collab"
	"github.com/taskmaster-io/backend/internal/domain"
	accesssvc "github.com/taskmaster-io/backend/internal/service/access"
)

// connection is the per-socket state machine: unjoined until a valid join
// message, then a live member of one room until the socket drops.
type connection struct {
	h          *Handler
	conn       *websocket.Conn
	userID     uuid.UUID
	shareToken string

	grant      *accesssvc.Grant
	session    *collab.Session
	writerDone chan struct{}
}

func (c *connection) run(ctx context.Context) {
	defer c.conn.Close()

	c.conn.SetReadLimit(c.h.cfg.MaxMessageBytes)
	c.conn.SetPongHandler(func(string) error {
		if c.session != nil {
			c.session.MarkAlive()
		}
		return nil
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		if c.session != nil {
			c.session.MarkAlive()
		}

		var msg clientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			c.sendError("validation", "malformed message")
			continue
		}

		switch msg.Type {
		case msgJoin:
			c.handleJoin(ctx, msg)
		case msgPatch:
			c.handlePatch(ctx, msg)
		case msgBrainPatch:
			c.handleBrainPatch(ctx, msg)
		case msgPing:
			c.send(pongMessage{Type: msgPong})
		default:
			c.sendError("validation", "unknown message type "+msg.Type)
		}
	}

	c.leave()
}

// handleJoin resolves access, enters the room, and replies with the full
// canvas snapshot. A password-protected edit link without the right password
// still joins, downgraded to view; re-joining with the password raises the
// mode. Joining while already in a room switches rooms: the old room's count
// shrinks before the new one grows.
func (c *connection) handleJoin(ctx context.Context, msg clientMessage) {
	canvasID, err := uuid.Parse(msg.CanvasID)
	if err != nil {
		c.sendError("validation", "invalid canvas id")
		return
	}

	grant, err := c.h.access.Resolve(ctx, canvasID, c.userID, c.shareToken)
	if err != nil {
		code, text := mapErrorCode(err)
		c.sendError(code, text)
		if c.session == nil {
			// An unjoined socket has nothing it could retry with.
			c.conn.Close()
		}
		return
	}
	passwordPending := false
	if err := c.h.access.VerifyPassword(grant, msg.Password); err != nil {
		grant.Mode = domain.ShareModeView
		passwordPending = true
	}

	snap, err := c.h.canvases.Snapshot(ctx, grant.Canvas)
	if err != nil {
		c.h.log.Error("snapshot load failed",
			slog.String("canvas_id", canvasID.String()),
			slog.Any("error", err),
		)
		c.sendError("internal", "internal error")
		c.conn.Close()
		return
	}

	if c.session != nil {
		c.leave()
		// The retiring writer must finish draining before its successor
		// takes over the socket.
		<-c.writerDone
	}

	c.grant = grant
	c.session = collab.NewSession(canvasID, grant.Mode, c.h.cfg.SendBuffer,
		func() error {
			return c.conn.WriteControl(websocket.PingMessage, nil, writeDeadline(c.h.cfg))
		},
		func() { c.conn.Close() },
	)

	done := make(chan struct{})
	c.writerDone = done
	go func(s *collab.Session) {
		c.writer(s)
		close(done)
	}(c.session)

	members := c.h.engine.Join(c.session)

	joined := joinedMessage{
		Type:             msgJoined,
		CanvasID:         canvasID.String(),
		CanvasType:       grant.Canvas.Type.String(),
		Canvas:           toCanvasDTO(grant.Canvas),
		Mode:             grant.Mode.String(),
		Members:          members,
		PasswordRequired: passwordPending,
	}
	if grant.Canvas.Type == domain.CanvasTypeBrain {
		joined.BrainNodes = toBrainNodeDTOs(snap.BrainNodes)
	} else {
		joined.Nodes = toNodeDTOs(snap.Nodes)
	}
	c.send(joined)

	c.broadcastMembers(members)

	c.h.log.Info("session joined",
		slog.String("canvas_id", canvasID.String()),
		slog.String("session_id", c.session.ID.String()),
		slog.String("mode", grant.Mode.String()),
		slog.Int("members", members),
	)
}

// handlePatch commits a task-canvas snapshot and fans the stored state out
// to the other room members. A failed commit reaches nobody.
func (c *connection) handlePatch(ctx context.Context, msg clientMessage) {
	if !c.requireEdit(domain.CanvasTypeTask) {
		return
	}

	stored, err := c.h.commit.CommitNodes(ctx, c.session.CanvasID, fromNodeDTOs(msg.Nodes))
	if err != nil {
		code, text := mapErrorCode(err)
		c.sendError(code, text)
		return
	}

	c.broadcast(patchMessage{Type: msgPatch, Nodes: toNodeDTOs(stored), From: c.session.ID.String()})
}

func (c *connection) handleBrainPatch(ctx context.Context, msg clientMessage) {
	if !c.requireEdit(domain.CanvasTypeBrain) {
		return
	}

	stored, err := c.h.commit.CommitBrainNodes(ctx, c.session.CanvasID, fromBrainNodeDTOs(msg.BrainNodes))
	if err != nil {
		code, text := mapErrorCode(err)
		c.sendError(code, text)
		return
	}

	c.broadcast(brainPatchMessage{Type: msgBrainPatch, BrainNodes: toBrainNodeDTOs(stored), From: c.session.ID.String()})
}

// requireEdit gates mutating messages: the session must exist, hold edit
// access, and the canvas must be of the right kind.
func (c *connection) requireEdit(kind domain.CanvasType) bool {
	if c.session == nil {
		c.sendError("forbidden", "join a canvas first")
		return false
	}
	if !c.session.CanEdit() {
		c.sendError("read_only", "read-only access")
		return false
	}
	if c.grant.Canvas.Type != kind {
		c.sendError("validation", "patch type does not match canvas type")
		return false
	}
	return true
}

func (c *connection) leave() {
	if c.session == nil {
		return
	}
	remaining := c.h.engine.Leave(c.session)
	if remaining > 0 {
		c.broadcastMembers(remaining)
	}
	c.h.log.Info("session left",
		slog.String("canvas_id", c.session.CanvasID.String()),
		slog.String("session_id", c.session.ID.String()),
		slog.Int("members", remaining),
	)
	c.session = nil
}

// writer drains the session outbox onto the socket. It owns all data writes
// while its session is current. The outbox closing does not close the socket:
// a room switch retires the old session while the connection lives on, and
// the terminate callback or the read loop handle real disconnects.
func (c *connection) writer(s *collab.Session) {
	for payload := range s.Outbox() {
		c.conn.SetWriteDeadline(writeDeadline(c.h.cfg))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			c.conn.Close()
			for range s.Outbox() {
			}
			return
		}
	}
}

// send delivers a frame to this connection: through the outbox once joined,
// directly beforehand.
func (c *connection) send(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.h.log.Error("marshal frame", slog.Any("error", err))
		return
	}
	if c.session != nil {
		c.session.Send(payload)
		return
	}
	c.conn.SetWriteDeadline(writeDeadline(c.h.cfg))
	_ = c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *connection) sendError(code, message string) {
	c.send(errorMessage{Type: msgError, Code: code, Message: message})
}

// broadcast fans a frame out to every other member of the room.
func (c *connection) broadcast(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.h.log.Error("marshal frame", slog.Any("error", err))
		return
	}
	c.h.engine.Broadcast(c.session.CanvasID, payload, c.session)
}

// broadcastMembers tells the rest of the room its new size. The count going
// to peers excludes nobody; everyone sees the same number.
func (c *connection) broadcastMembers(count int) {
	payload, err := json.Marshal(membersMessage{Type: msgMembers, Count: count})
	if err != nil {
		return
	}
	canvasID := c.grant.Canvas.ID
	c.h.engine.Broadcast(canvasID, payload, c.session)
}