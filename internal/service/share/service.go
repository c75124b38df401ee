// Package share manages canvas share links: creation with optional expiry
// and edit passwords, listing, revocation, and public reads by token.
package share

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/taskmaster-io/backend/internal/domain"
)

type canvasRepo interface {
	GetByID(ctx context.Context, canvasID uuid.UUID) (*domain.Canvas, error)
	GetOwned(ctx context.Context, canvasID, userID uuid.UUID) (*domain.Canvas, error)
}

type shareRepo interface {
	GetByToken(ctx context.Context, token string) (*domain.Share, error)
	ListByCanvas(ctx context.Context, canvasID uuid.UUID) ([]*domain.Share, error)
	FindViewLock(ctx context.Context, canvasID uuid.UUID) (*domain.Share, error)
	Create(ctx context.Context, s *domain.Share) (*domain.Share, error)
	Delete(ctx context.Context, shareID, canvasID uuid.UUID) error
}

// Service implements the share-link business logic.
type Service struct {
	log      *slog.Logger
	canvases canvasRepo
	shares   shareRepo
}

// NewService creates a new Share service.
func NewService(logger *slog.Logger, canvases canvasRepo, shares shareRepo) *Service {
	return &Service{
		log:      logger.With("service", "share"),
		canvases: canvases,
		shares:   shares,
	}
}
