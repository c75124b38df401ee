// Package sync persists full canvas snapshots submitted by collaboration
// sessions. A commit either replaces the whole node set atomically or
// changes nothing; the value it returns is the canonical state every peer
// should render.
package sync

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/taskmaster-io/backend/internal/domain"
)

type canvasRepo interface {
	Touch(ctx context.Context, canvasID uuid.UUID) error
}

type nodeRepo interface {
	ListByCanvas(ctx context.Context, canvasID uuid.UUID) ([]domain.Node, error)
	ReplaceAll(ctx context.Context, canvasID uuid.UUID, nodes []domain.Node) error
}

type brainNodeRepo interface {
	ListByCanvas(ctx context.Context, canvasID uuid.UUID) ([]domain.BrainNode, error)
	ReplaceAll(ctx context.Context, canvasID uuid.UUID, nodes []domain.BrainNode) error
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service implements snapshot commits.
type Service struct {
	log        *slog.Logger
	canvases   canvasRepo
	nodes      nodeRepo
	brainNodes brainNodeRepo
	tx         txManager
	maxNodes   int
}

// NewService creates a new Sync service.
func NewService(
	logger *slog.Logger,
	canvases canvasRepo,
	nodes nodeRepo,
	brainNodes brainNodeRepo,
	tx txManager,
	maxNodes int,
) *Service {
	return &Service{
		log:        logger.With("service", "sync"),
		canvases:   canvases,
		nodes:      nodes,
		brainNodes: brainNodes,
		tx:         tx,
		maxNodes:   maxNodes,
	}
}
