package domain

import (
	"time"

	"github.com/google/uuid"
)

// CanvasType distinguishes task workspaces from brainstorm (mind-map) workspaces.
type CanvasType string

const (
	CanvasTypeTask  CanvasType = "task"
	CanvasTypeBrain CanvasType = "brain"
)

func (t CanvasType) String() string { return string(t) }

func (t CanvasType) IsValid() bool {
	switch t {
	case CanvasTypeTask, CanvasTypeBrain:
		return true
	}
	return false
}

// Canvas is a shared visual workspace owned by exactly one user.
// Deleting a canvas cascades to its nodes and share links.
type Canvas struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Name      string
	Type      CanvasType
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MaxCanvasesPerUser bounds how many canvases one user may own.
const MaxCanvasesPerUser = 8

// MaxCanvasNameLen is the stored length limit for canvas names.
const MaxCanvasNameLen = 100
