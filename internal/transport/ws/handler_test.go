package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmaster-io/backend/internal/collab"
	"github.com/taskmaster-io/backend/internal/config"
	"github.com/taskmaster-io/backend/internal/domain"
	accesssvc "github.com/taskmaster-io/backend/internal/service/access"
	canvassvc "github.com/taskmaster-io/backend/internal/service/canvas"
)

// ===========================================================================
// Mocks
// ===========================================================================

type mockTokens struct {
	users map[string]uuid.UUID
}

func (m *mockTokens) ValidateToken(_ context.Context, token string) (uuid.UUID, error) {
	if id, ok := m.users[token]; ok {
		return id, nil
	}
	return uuid.Nil, domain.ErrUnauthorized
}

type mockAccess struct {
	ResolveFunc func(ctx context.Context, canvasID, userID uuid.UUID, shareToken string) (*accesssvc.Grant, error)
	password    string
}

func (m *mockAccess) Resolve(ctx context.Context, canvasID, userID uuid.UUID, shareToken string) (*accesssvc.Grant, error) {
	return m.ResolveFunc(ctx, canvasID, userID, shareToken)
}

func (m *mockAccess) VerifyPassword(grant *accesssvc.Grant, password string) error {
	if !grant.PasswordRequired {
		return nil
	}
	if password != m.password {
		return domain.ErrForbidden
	}
	return nil
}

// mockStore is committer and snapshotLoader in one: commits land in memory
// and snapshots read it back.
type mockStore struct {
	nodes      []domain.Node
	brainNodes []domain.BrainNode
	commitErr  error
}

func (m *mockStore) CommitNodes(_ context.Context, canvasID uuid.UUID, nodes []domain.Node) ([]domain.Node, error) {
	if m.commitErr != nil {
		return nil, m.commitErr
	}
	for i := range nodes {
		nodes[i] = domain.NormalizeNode(nodes[i])
		nodes[i].CanvasID = canvasID
	}
	m.nodes = nodes
	return nodes, nil
}

func (m *mockStore) CommitBrainNodes(_ context.Context, canvasID uuid.UUID, nodes []domain.BrainNode) ([]domain.BrainNode, error) {
	if m.commitErr != nil {
		return nil, m.commitErr
	}
	for i := range nodes {
		nodes[i] = domain.NormalizeBrainNode(nodes[i])
		nodes[i].CanvasID = canvasID
	}
	m.brainNodes = nodes
	return nodes, nil
}

func (m *mockStore) Snapshot(_ context.Context, canvas *domain.Canvas) (*canvassvc.Snapshot, error) {
	snap := &canvassvc.Snapshot{Canvas: canvas}
	if canvas.Type == domain.CanvasTypeBrain {
		snap.BrainNodes = m.brainNodes
	} else {
		snap.Nodes = m.nodes
	}
	return snap, nil
}

// ===========================================================================
// Harness
// ===========================================================================

type harness struct {
	srv      *httptest.Server
	canvas   *domain.Canvas
	second   *domain.Canvas
	ownerID  uuid.UUID
	ownerJWT string
	store    *mockStore
}

func newHarness(t *testing.T, canvasType domain.CanvasType) *harness {
	t.Helper()

	ownerID := uuid.New()
	canvas := &domain.Canvas{
		ID:     uuid.New(),
		UserID: ownerID,
		Name:   "Board",
		Type:   canvasType,
	}
	second := &domain.Canvas{
		ID:     uuid.New(),
		UserID: ownerID,
		Name:   "Other board",
		Type:   canvasType,
	}

	store := &mockStore{}
	access := &mockAccess{
		password: "sesame",
		ResolveFunc: func(_ context.Context, canvasID, userID uuid.UUID, shareToken string) (*accesssvc.Grant, error) {
			var target *domain.Canvas
			switch canvasID {
			case canvas.ID:
				target = canvas
			case second.ID:
				target = second
			default:
				return nil, domain.ErrNotFound
			}
			if userID == ownerID {
				return &accesssvc.Grant{Canvas: target, Mode: domain.ShareModeEdit, Owner: true}, nil
			}
			switch shareToken {
			case "view-tok":
				return &accesssvc.Grant{Canvas: target, Mode: domain.ShareModeView}, nil
			case "edit-tok":
				return &accesssvc.Grant{Canvas: target, Mode: domain.ShareModeEdit}, nil
			case "locked-tok":
				return &accesssvc.Grant{Canvas: target, Mode: domain.ShareModeEdit, PasswordRequired: true}, nil
			case "expired-tok":
				return nil, domain.ErrLinkExpired
			}
			return nil, domain.ErrForbidden
		},
	}
	tokens := &mockTokens{users: map[string]uuid.UUID{"owner-jwt": ownerID}}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := collab.NewEngine(logger)
	t.Cleanup(engine.Shutdown)

	cfg := config.CollabConfig{
		PingInterval:    time.Minute,
		SendBuffer:      16,
		WriteTimeout:    time.Second,
		MaxMessageBytes: 1 << 20,
	}

	h := NewHandler(engine, access, store, store, tokens, cfg, logger)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return &harness{srv: srv, canvas: canvas, second: second, ownerID: ownerID, ownerJWT: "owner-jwt", store: store}
}

func (h *harness) dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.srv.URL, "http") + "/?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

type frame struct {
	Type             string         `json:"type"`
	Code             string         `json:"code"`
	Message          string         `json:"message"`
	CanvasID         string         `json:"canvasId"`
	CanvasType       string         `json:"canvasType"`
	Mode             string         `json:"mode"`
	Members          int            `json:"members"`
	PasswordRequired bool           `json:"passwordRequired"`
	Count            int            `json:"count"`
	Canvas           canvasDTO      `json:"canvas"`
	Nodes            []nodeDTO      `json:"nodes"`
	BrainNodes       []brainNodeDTO `json:"brainNodes"`
	From             string         `json:"from"`
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	var f frame
	require.NoError(t, json.Unmarshal(payload, &f))
	return f
}

func sendJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(v))
}

func join(t *testing.T, conn *websocket.Conn, canvasID uuid.UUID) frame {
	t.Helper()
	sendJSON(t, conn, map[string]any{"type": "join", "canvasId": canvasID.String()})
	f := readFrame(t, conn)
	require.Equal(t, "joined", f.Type)
	return f
}

// ===========================================================================
// Tests
// ===========================================================================

func TestJoin_OwnerReceivesSnapshot(t *testing.T) {
	h := newHarness(t, domain.CanvasTypeTask)
	h.store.nodes = []domain.Node{{ID: "n1", Title: "existing", Priority: domain.PriorityHigh}}

	conn := h.dial(t, "jwt="+h.ownerJWT)
	f := join(t, conn, h.canvas.ID)

	assert.Equal(t, "edit", f.Mode)
	assert.Equal(t, 1, f.Members)
	assert.Equal(t, h.canvas.ID.String(), f.CanvasID)
	assert.Equal(t, "task", f.CanvasType)
	assert.Equal(t, h.canvas.ID.String(), f.Canvas.ID)
	require.Len(t, f.Nodes, 1)
	assert.Equal(t, "existing", f.Nodes[0].Title)
}

func TestJoin_InvalidJWTRejectedBeforeUpgrade(t *testing.T) {
	h := newHarness(t, domain.CanvasTypeTask)

	url := "ws" + strings.TrimPrefix(h.srv.URL, "http") + "/?jwt=bogus"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestJoin_UnknownCanvas(t *testing.T) {
	h := newHarness(t, domain.CanvasTypeTask)

	conn := h.dial(t, "jwt="+h.ownerJWT)
	sendJSON(t, conn, map[string]any{"type": "join", "canvasId": uuid.NewString()})

	f := readFrame(t, conn)
	assert.Equal(t, "error", f.Type)
	assert.Equal(t, "not_found", f.Code)
}

func TestJoin_ExpiredShareLink(t *testing.T) {
	h := newHarness(t, domain.CanvasTypeTask)

	conn := h.dial(t, "share=expired-tok")
	sendJSON(t, conn, map[string]any{"type": "join", "canvasId": h.canvas.ID.String()})

	f := readFrame(t, conn)
	assert.Equal(t, "error", f.Type)
	assert.Equal(t, "link_expired", f.Code)
}

func TestJoin_NoCredential(t *testing.T) {
	h := newHarness(t, domain.CanvasTypeTask)

	conn := h.dial(t, "")
	sendJSON(t, conn, map[string]any{"type": "join", "canvasId": h.canvas.ID.String()})

	f := readFrame(t, conn)
	assert.Equal(t, "error", f.Type)
	assert.Equal(t, "forbidden", f.Code)
}

func TestPatch_ReachesPeersButNotSender(t *testing.T) {
	h := newHarness(t, domain.CanvasTypeTask)

	editor := h.dial(t, "jwt="+h.ownerJWT)
	join(t, editor, h.canvas.ID)

	viewer := h.dial(t, "share=view-tok")
	vf := join(t, viewer, h.canvas.ID)
	assert.Equal(t, "view", vf.Mode)
	assert.Equal(t, 2, vf.Members)

	// The editor learns the room grew.
	mf := readFrame(t, editor)
	require.Equal(t, "members", mf.Type)
	assert.Equal(t, 2, mf.Count)

	sendJSON(t, editor, map[string]any{
		"type": "patch",
		"nodes": []map[string]any{
			{"id": "a", "title": "hello", "x": 10, "y": 20, "priority": "high"},
		},
	})

	pf := readFrame(t, viewer)
	require.Equal(t, "patch", pf.Type)
	require.Len(t, pf.Nodes, 1)
	assert.Equal(t, "hello", pf.Nodes[0].Title)
	assert.NotEmpty(t, pf.From, "broadcast names the originating session")

	// No echo to the sender: a follow-up ping answers before anything else.
	sendJSON(t, editor, map[string]any{"type": "ping"})
	ef := readFrame(t, editor)
	assert.Equal(t, "pong", ef.Type)
}

func TestPatch_ViewerIsReadOnly(t *testing.T) {
	h := newHarness(t, domain.CanvasTypeTask)

	viewer := h.dial(t, "share=view-tok")
	join(t, viewer, h.canvas.ID)

	sendJSON(t, viewer, map[string]any{"type": "patch", "nodes": []map[string]any{{"id": "x"}}})

	f := readFrame(t, viewer)
	assert.Equal(t, "error", f.Type)
	assert.Equal(t, "read_only", f.Code)
	assert.Empty(t, h.store.nodes, "a read-only patch must not persist")
}

func TestPatch_BeforeJoinForbidden(t *testing.T) {
	h := newHarness(t, domain.CanvasTypeTask)

	conn := h.dial(t, "jwt="+h.ownerJWT)
	sendJSON(t, conn, map[string]any{"type": "patch", "nodes": []map[string]any{{"id": "x"}}})

	f := readFrame(t, conn)
	assert.Equal(t, "error", f.Type)
	assert.Equal(t, "forbidden", f.Code)
}

func TestPatch_CommitFailureReachesNobody(t *testing.T) {
	h := newHarness(t, domain.CanvasTypeTask)

	editor := h.dial(t, "jwt="+h.ownerJWT)
	join(t, editor, h.canvas.ID)
	viewer := h.dial(t, "share=view-tok")
	join(t, viewer, h.canvas.ID)
	readFrame(t, editor) // members

	h.store.commitErr = domain.ErrTooManyNodes
	sendJSON(t, editor, map[string]any{"type": "patch", "nodes": []map[string]any{{"id": "x"}}})

	ef := readFrame(t, editor)
	assert.Equal(t, "error", ef.Type)
	assert.Equal(t, "too_many_nodes", ef.Code)

	// The viewer sees nothing: the next frame it gets is its own pong.
	sendJSON(t, viewer, map[string]any{"type": "ping"})
	vf := readFrame(t, viewer)
	assert.Equal(t, "pong", vf.Type)
}

func TestBrainPatch_WrongCanvasType(t *testing.T) {
	h := newHarness(t, domain.CanvasTypeTask)

	editor := h.dial(t, "jwt="+h.ownerJWT)
	join(t, editor, h.canvas.ID)

	sendJSON(t, editor, map[string]any{"type": "brain-patch", "brainNodes": []map[string]any{{"id": "b"}}})

	f := readFrame(t, editor)
	assert.Equal(t, "error", f.Type)
	assert.Equal(t, "validation", f.Code)
}

func TestBrainPatch_RoundTrip(t *testing.T) {
	h := newHarness(t, domain.CanvasTypeBrain)

	editor := h.dial(t, "share=edit-tok")
	join(t, editor, h.canvas.ID)
	viewer := h.dial(t, "share=view-tok")
	join(t, viewer, h.canvas.ID)
	readFrame(t, editor) // members

	sendJSON(t, editor, map[string]any{
		"type": "brain-patch",
		"brainNodes": []map[string]any{
			{"id": "root", "title": "Idea", "isRoot": true},
			{"id": "c1", "title": "Branch", "parentId": "root", "color": ""},
		},
	})

	f := readFrame(t, viewer)
	require.Equal(t, "brain-patch", f.Type)
	require.Len(t, f.BrainNodes, 2)
	assert.Equal(t, domain.DefaultBrainColor, f.BrainNodes[1].Color, "missing color must be defaulted")
}

func TestLeave_PeersSeeMemberCountDrop(t *testing.T) {
	h := newHarness(t, domain.CanvasTypeTask)

	editor := h.dial(t, "jwt="+h.ownerJWT)
	join(t, editor, h.canvas.ID)
	viewer := h.dial(t, "share=view-tok")
	join(t, viewer, h.canvas.ID)
	readFrame(t, editor) // members: 2

	viewer.Close()

	f := readFrame(t, editor)
	require.Equal(t, "members", f.Type)
	assert.Equal(t, 1, f.Count)
}

func TestJoin_PasswordLinkAdmitsAsViewWithoutPassword(t *testing.T) {
	h := newHarness(t, domain.CanvasTypeTask)

	conn := h.dial(t, "share=locked-tok")
	sendJSON(t, conn, map[string]any{"type": "join", "canvasId": h.canvas.ID.String()})

	f := readFrame(t, conn)
	require.Equal(t, "joined", f.Type)
	assert.Equal(t, "view", f.Mode)
	assert.True(t, f.PasswordRequired)

	// The downgraded session cannot mutate.
	sendJSON(t, conn, map[string]any{"type": "patch", "nodes": []map[string]any{{"id": "x"}}})
	ef := readFrame(t, conn)
	assert.Equal(t, "error", ef.Type)
	assert.Equal(t, "read_only", ef.Code)
}

func TestJoin_PasswordRejoinRaisesToEdit(t *testing.T) {
	h := newHarness(t, domain.CanvasTypeTask)

	conn := h.dial(t, "share=locked-tok")
	sendJSON(t, conn, map[string]any{"type": "join", "canvasId": h.canvas.ID.String()})
	f := readFrame(t, conn)
	require.Equal(t, "joined", f.Type)
	require.Equal(t, "view", f.Mode)

	sendJSON(t, conn, map[string]any{
		"type": "join", "canvasId": h.canvas.ID.String(), "password": "sesame",
	})
	f = readFrame(t, conn)
	require.Equal(t, "joined", f.Type)
	assert.Equal(t, "edit", f.Mode)
	assert.False(t, f.PasswordRequired)
	assert.Equal(t, 1, f.Members, "the re-join replaces the old membership")
}

func TestJoin_PasswordCorrectFirstTry(t *testing.T) {
	h := newHarness(t, domain.CanvasTypeTask)

	conn := h.dial(t, "share=locked-tok")
	sendJSON(t, conn, map[string]any{
		"type": "join", "canvasId": h.canvas.ID.String(), "password": "sesame",
	})

	f := readFrame(t, conn)
	require.Equal(t, "joined", f.Type)
	assert.Equal(t, "edit", f.Mode)
	assert.False(t, f.PasswordRequired)
}

func TestJoin_SwitchingCanvasLeavesOldRoom(t *testing.T) {
	h := newHarness(t, domain.CanvasTypeTask)

	peer := h.dial(t, "share=view-tok")
	join(t, peer, h.canvas.ID)

	mover := h.dial(t, "jwt="+h.ownerJWT)
	join(t, mover, h.canvas.ID)
	readFrame(t, peer) // members: 2

	f := join(t, mover, h.second.ID)
	assert.Equal(t, h.second.ID.String(), f.CanvasID)
	assert.Equal(t, 1, f.Members, "the mover is alone in the new room")

	// The old room sees its count shrink.
	mf := readFrame(t, peer)
	require.Equal(t, "members", mf.Type)
	assert.Equal(t, 1, mf.Count)
}

func TestJoin_FailedSwitchKeepsOldMembership(t *testing.T) {
	h := newHarness(t, domain.CanvasTypeTask)

	conn := h.dial(t, "jwt="+h.ownerJWT)
	join(t, conn, h.canvas.ID)

	sendJSON(t, conn, map[string]any{"type": "join", "canvasId": uuid.NewString()})
	f := readFrame(t, conn)
	assert.Equal(t, "error", f.Type)
	assert.Equal(t, "not_found", f.Code)

	// Still in the old room: a ping answers, the socket is alive.
	sendJSON(t, conn, map[string]any{"type": "ping"})
	assert.Equal(t, "pong", readFrame(t, conn).Type)
}

func TestUnknownMessageType(t *testing.T) {
	h := newHarness(t, domain.CanvasTypeTask)

	conn := h.dial(t, "jwt="+h.ownerJWT)
	sendJSON(t, conn, map[string]any{"type": "shout"})

	f := readFrame(t, conn)
	assert.Equal(t, "error", f.Type)
	assert.Equal(t, "validation", f.Code)
}
