package canvas

import (
	"context"
	"fmt"

	"github.com/taskmaster-io/backend/internal/domain"
)

// Snapshot is the full node state of one canvas. Exactly one of Nodes and
// BrainNodes is populated, matching the canvas type.
type Snapshot struct {
	Canvas     *domain.Canvas
	Nodes      []domain.Node
	BrainNodes []domain.BrainNode
}

// Snapshot loads the complete node set for a canvas. Access is the caller's
// concern; sync sessions resolve it before asking for state.
func (s *Service) Snapshot(ctx context.Context, canvas *domain.Canvas) (*Snapshot, error) {
	snap := &Snapshot{Canvas: canvas}

	switch canvas.Type {
	case domain.CanvasTypeBrain:
		brainNodes, err := s.brainNodes.ListByCanvas(ctx, canvas.ID)
		if err != nil {
			return nil, fmt.Errorf("list brain nodes: %w", err)
		}
		snap.BrainNodes = brainNodes
	case domain.CanvasTypeTask:
		nodes, err := s.nodes.ListByCanvas(ctx, canvas.ID)
		if err != nil {
			return nil, fmt.Errorf("list nodes: %w", err)
		}
		snap.Nodes = nodes
	default:
		return nil, fmt.Errorf("canvas %s: unknown type %q", canvas.ID, canvas.Type)
	}

	return snap, nil
}
