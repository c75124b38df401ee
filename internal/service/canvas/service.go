// Package canvas implements workspace management: listing, creation under a
// per-user cap, renaming, deletion, and snapshot loading for sync sessions.
package canvas

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/taskmaster-io/backend/internal/config"
	"github.com/taskmaster-io/backend/internal/domain"
)

type canvasRepo interface {
	GetByID(ctx context.Context, canvasID uuid.UUID) (*domain.Canvas, error)
	GetOwned(ctx context.Context, canvasID, userID uuid.UUID) (*domain.Canvas, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Canvas, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int, error)
	Create(ctx context.Context, userID uuid.UUID, name string, kind domain.CanvasType) (*domain.Canvas, error)
	Rename(ctx context.Context, canvasID, userID uuid.UUID, name string) (*domain.Canvas, error)
	Delete(ctx context.Context, canvasID, userID uuid.UUID) error
}

type nodeRepo interface {
	ListByCanvas(ctx context.Context, canvasID uuid.UUID) ([]domain.Node, error)
}

type brainNodeRepo interface {
	ListByCanvas(ctx context.Context, canvasID uuid.UUID) ([]domain.BrainNode, error)
}

// Service implements the canvas business logic.
type Service struct {
	log        *slog.Logger
	canvases   canvasRepo
	nodes      nodeRepo
	brainNodes brainNodeRepo
	cfg        config.CanvasConfig
}

// NewService creates a new Canvas service.
func NewService(
	logger *slog.Logger,
	canvases canvasRepo,
	nodes nodeRepo,
	brainNodes brainNodeRepo,
	cfg config.CanvasConfig,
) *Service {
	return &Service{
		log:        logger.With("service", "canvas"),
		canvases:   canvases,
		nodes:      nodes,
		brainNodes: brainNodes,
		cfg:        cfg,
	}
}
