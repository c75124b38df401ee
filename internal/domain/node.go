package domain

import (
	"time"

	"github.com/google/uuid"
)

// Priority orders task nodes during tree organization. Higher priorities are
// placed first.
type Priority string

const (
	PriorityNone   Priority = "none"
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) String() string { return string(p) }

func (p Priority) IsValid() bool {
	switch p {
	case PriorityNone, PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Node is a task node on a task canvas. ParentID, when set, points at another
// node of the same canvas (nodes form a forest; children render smaller).
// IDs are client-generated opaque strings.
type Node struct {
	ID        string
	CanvasID  uuid.UUID
	Title     string
	X         float64
	Y         float64
	Priority  Priority
	Completed bool
	ParentID  *string
	DueDate   *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BrainNode is a mind-map node on a brain canvas. Exactly one node per canvas
// carries IsRoot; children attach via ParentID and fan out left/right.
type BrainNode struct {
	ID        string
	CanvasID  uuid.UUID
	Title     string
	X         float64
	Y         float64
	Color     string
	ParentID  *string
	IsRoot    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

const (
	// MaxNodesPerCanvas caps a single full-snapshot save. Exceeding it
	// rejects the whole commit with no partial write.
	MaxNodesPerCanvas = 500

	MaxNodeTitleLen      = 200
	MaxBrainNodeTitleLen = 120

	DefaultBrainColor = "#10b981"
)

// Descendants returns the set of node ids reachable from id by following
// parent references, including id itself. The closure is computed
// iteratively over the flat list, so a cycle introduced by a buggy client
// terminates instead of recursing forever.
func Descendants(nodes []Node, id string) map[string]bool {
	found := map[string]bool{id: true}
	for changed := true; changed; {
		changed = false
		for i := range nodes {
			n := &nodes[i]
			if n.ParentID != nil && found[*n.ParentID] && !found[n.ID] {
				found[n.ID] = true
				changed = true
			}
		}
	}
	return found
}

// BrainDescendants is Descendants over mind-map nodes.
func BrainDescendants(nodes []BrainNode, id string) map[string]bool {
	found := map[string]bool{id: true}
	for changed := true; changed; {
		changed = false
		for i := range nodes {
			n := &nodes[i]
			if n.ParentID != nil && found[*n.ParentID] && !found[n.ID] {
				found[n.ID] = true
				changed = true
			}
		}
	}
	return found
}
