// Package access resolves what a connecting party may do with a canvas:
// full edit as the owner, or view/edit through a share link.
package access

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/taskmaster-io/backend/internal/domain"
)

type canvasRepo interface {
	GetByID(ctx context.Context, canvasID uuid.UUID) (*domain.Canvas, error)
}

type shareRepo interface {
	GetByToken(ctx context.Context, token string) (*domain.Share, error)
}

// Service implements canvas access resolution.
type Service struct {
	log      *slog.Logger
	canvases canvasRepo
	shares   shareRepo
}

// NewService creates a new Access service.
func NewService(logger *slog.Logger, canvases canvasRepo, shares shareRepo) *Service {
	return &Service{
		log:      logger.With("service", "access"),
		canvases: canvases,
		shares:   shares,
	}
}
