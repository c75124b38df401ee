package ws

import (
	"time"

	"github.com/taskmaster-io/backend/internal/domain"
)

// Client-to-server message types.
const (
	msgJoin       = "join"
	msgPatch      = "patch"
	msgBrainPatch = "brain-patch"
	msgPing       = "ping"
)

// Server-to-client message types.
const (
	msgJoined  = "joined"
	msgMembers = "members"
	msgPong    = "pong"
	msgError   = "error"
)

// clientMessage is every inbound frame decoded once. Fields beyond Type are
// populated per message type.
type clientMessage struct {
	Type       string         `json:"type"`
	CanvasID   string         `json:"canvasId,omitempty"`
	Password   string         `json:"password,omitempty"`
	Nodes      []nodeDTO      `json:"nodes,omitempty"`
	BrainNodes []brainNodeDTO `json:"brainNodes,omitempty"`
}

// joinedMessage carries the flat canvasId/canvasType fields clients parse,
// plus the richer canvas object. PasswordRequired tells a protected-link
// holder their session was admitted read-only pending the password.
type joinedMessage struct {
	Type             string         `json:"type"`
	CanvasID         string         `json:"canvasId"`
	CanvasType       string         `json:"canvasType"`
	Canvas           canvasDTO      `json:"canvas"`
	Mode             string         `json:"mode"`
	Members          int            `json:"members"`
	PasswordRequired bool           `json:"passwordRequired,omitempty"`
	Nodes            []nodeDTO      `json:"nodes,omitempty"`
	BrainNodes       []brainNodeDTO `json:"brainNodes,omitempty"`
}

// From identifies the originating session on broadcast frames. It is empty
// when the change came in over REST rather than a socket.
type patchMessage struct {
	Type  string    `json:"type"`
	Nodes []nodeDTO `json:"nodes"`
	From  string    `json:"from,omitempty"`
}

type brainPatchMessage struct {
	Type       string         `json:"type"`
	BrainNodes []brainNodeDTO `json:"brainNodes"`
	From       string         `json:"from,omitempty"`
}

type membersMessage struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type pongMessage struct {
	Type string `json:"type"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type canvasDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type nodeDTO struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Priority  string  `json:"priority"`
	Completed bool    `json:"completed"`
	ParentID  *string `json:"parentId"`
	DueDate   *string `json:"dueDate"`
}

type brainNodeDTO struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Color    string  `json:"color"`
	ParentID *string `json:"parentId"`
	IsRoot   bool    `json:"isRoot"`
}

const dueDateLayout = "2006-01-02"

func toCanvasDTO(c *domain.Canvas) canvasDTO {
	return canvasDTO{
		ID:        c.ID.String(),
		Name:      c.Name,
		Type:      c.Type.String(),
		UpdatedAt: c.UpdatedAt,
	}
}

func toNodeDTOs(nodes []domain.Node) []nodeDTO {
	out := make([]nodeDTO, len(nodes))
	for i, n := range nodes {
		out[i] = nodeDTO{
			ID:        n.ID,
			Title:     n.Title,
			X:         n.X,
			Y:         n.Y,
			Priority:  n.Priority.String(),
			Completed: n.Completed,
			ParentID:  n.ParentID,
		}
		if n.DueDate != nil {
			d := n.DueDate.Format(dueDateLayout)
			out[i].DueDate = &d
		}
	}
	return out
}

func fromNodeDTOs(in []nodeDTO) []domain.Node {
	out := make([]domain.Node, len(in))
	for i, d := range in {
		out[i] = domain.Node{
			ID:        d.ID,
			Title:     d.Title,
			X:         d.X,
			Y:         d.Y,
			Priority:  domain.Priority(d.Priority),
			Completed: d.Completed,
			ParentID:  d.ParentID,
		}
		if d.DueDate != nil {
			if due, err := time.Parse(dueDateLayout, *d.DueDate); err == nil {
				out[i].DueDate = &due
			}
		}
	}
	return out
}

func toBrainNodeDTOs(nodes []domain.BrainNode) []brainNodeDTO {
	out := make([]brainNodeDTO, len(nodes))
	for i, n := range nodes {
		out[i] = brainNodeDTO{
			ID:       n.ID,
			Title:    n.Title,
			X:        n.X,
			Y:        n.Y,
			Color:    n.Color,
			ParentID: n.ParentID,
			IsRoot:   n.IsRoot,
		}
	}
	return out
}

func fromBrainNodeDTOs(in []brainNodeDTO) []domain.BrainNode {
	out := make([]domain.BrainNode, len(in))
	for i, d := range in {
		out[i] = domain.BrainNode{
			ID:       d.ID,
			Title:    d.Title,
			X:        d.X,
			Y:        d.Y,
			Color:    d.Color,
			ParentID: d.ParentID,
			IsRoot:   d.IsRoot,
		}
	}
	return out
}
