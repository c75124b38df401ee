package sync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/taskmaster-io/backend/internal/domain"
)

// CommitNodes replaces the task-node set of a canvas with a normalized copy
// of the submitted snapshot and returns the state as stored. Oversized
// snapshots are rejected whole with ErrTooManyNodes. Duplicate ids keep the
// last occurrence; a parent reference that does not resolve inside the
// snapshot (including self-references) is cleared.
func (s *Service) CommitNodes(ctx context.Context, canvasID uuid.UUID, submitted []domain.Node) ([]domain.Node, error) {
	if len(submitted) > s.maxNodes {
		return nil, fmt.Errorf("%d nodes exceeds the limit of %d: %w", len(submitted), s.maxNodes, domain.ErrTooManyNodes)
	}

	nodes := dedupeNodes(submitted)
	ids := make(map[string]bool, len(nodes))
	for i := range nodes {
		ids[nodes[i].ID] = true
	}
	for i := range nodes {
		nodes[i] = domain.NormalizeNode(nodes[i])
		nodes[i].CanvasID = canvasID
		if p := nodes[i].ParentID; p != nil && (!ids[*p] || *p == nodes[i].ID) {
			nodes[i].ParentID = nil
		}
	}

	var stored []domain.Node
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.nodes.ReplaceAll(txCtx, canvasID, nodes); err != nil {
			return fmt.Errorf("replace nodes: %w", err)
		}
		if err := s.canvases.Touch(txCtx, canvasID); err != nil {
			return fmt.Errorf("touch canvas: %w", err)
		}
		loaded, err := s.nodes.ListByCanvas(txCtx, canvasID)
		if err != nil {
			return fmt.Errorf("reload nodes: %w", err)
		}
		stored = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("snapshot committed",
		slog.String("canvas_id", canvasID.String()),
		slog.Int("nodes", len(stored)),
	)
	return stored, nil
}

// CommitBrainNodes is CommitNodes for mind-map canvases. On top of the
// shared rules, only the first node flagged as root keeps the flag.
func (s *Service) CommitBrainNodes(ctx context.Context, canvasID uuid.UUID, submitted []domain.BrainNode) ([]domain.BrainNode, error) {
	if len(submitted) > s.maxNodes {
		return nil, fmt.Errorf("%d nodes exceeds the limit of %d: %w", len(submitted), s.maxNodes, domain.ErrTooManyNodes)
	}

	nodes := dedupeBrainNodes(submitted)
	ids := make(map[string]bool, len(nodes))
	for i := range nodes {
		ids[nodes[i].ID] = true
	}
	rootSeen := false
	for i := range nodes {
		nodes[i] = domain.NormalizeBrainNode(nodes[i])
		nodes[i].CanvasID = canvasID
		if p := nodes[i].ParentID; p != nil && (!ids[*p] || *p == nodes[i].ID) {
			nodes[i].ParentID = nil
		}
		if nodes[i].IsRoot {
			if rootSeen {
				nodes[i].IsRoot = false
			}
			rootSeen = true
		}
	}

	var stored []domain.BrainNode
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.brainNodes.ReplaceAll(txCtx, canvasID, nodes); err != nil {
			return fmt.Errorf("replace brain nodes: %w", err)
		}
		if err := s.canvases.Touch(txCtx, canvasID); err != nil {
			return fmt.Errorf("touch canvas: %w", err)
		}
		loaded, err := s.brainNodes.ListByCanvas(txCtx, canvasID)
		if err != nil {
			return fmt.Errorf("reload brain nodes: %w", err)
		}
		stored = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("brain snapshot committed",
		slog.String("canvas_id", canvasID.String()),
		slog.Int("nodes", len(stored)),
	)
	return stored, nil
}

// dedupeNodes keeps the last occurrence of each id, preserving the order in
// which ids first appeared.
func dedupeNodes(in []domain.Node) []domain.Node {
	byID := make(map[string]int, len(in))
	out := make([]domain.Node, 0, len(in))
	for _, n := range in {
		if i, seen := byID[n.ID]; seen {
			out[i] = n
			continue
		}
		byID[n.ID] = len(out)
		out = append(out, n)
	}
	return out
}

func dedupeBrainNodes(in []domain.BrainNode) []domain.BrainNode {
	byID := make(map[string]int, len(in))
	out := make([]domain.BrainNode, 0, len(in))
	for _, n := range in {
		if i, seen := byID[n.ID]; seen {
			out[i] = n
			continue
		}
		byID[n.ID] = len(out)
		out = append(out, n)
	}
	return out
}
