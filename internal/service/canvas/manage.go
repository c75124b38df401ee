package canvas

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/taskmaster-io/backend/internal/domain"
	"github.com/taskmaster-io/backend/pkg/ctxutil"
)

// List returns the calling user's canvases, most recently updated first.
func (s *Service) List(ctx context.Context) ([]*domain.Canvas, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	return s.canvases.ListByUser(ctx, userID)
}

// Get returns one of the calling user's canvases. A canvas owned by someone
// else surfaces as not found.
func (s *Service) Get(ctx context.Context, canvasID uuid.UUID) (*domain.Canvas, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	return s.canvases.GetOwned(ctx, canvasID, userID)
}

// Create creates a canvas for the calling user. Users at the canvas cap get
// ErrConflict; the whole request is rejected, nothing is written.
func (s *Service) Create(ctx context.Context, name string, kind domain.CanvasType) (*domain.Canvas, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	name, err := validateName(name)
	if err != nil {
		return nil, err
	}
	if !kind.IsValid() {
		return nil, domain.NewValidationError("type", fmt.Sprintf("unknown canvas type %q", kind))
	}

	count, err := s.canvases.CountByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count canvases: %w", err)
	}
	if count >= s.cfg.MaxPerUser {
		return nil, fmt.Errorf("canvas limit of %d reached: %w", s.cfg.MaxPerUser, domain.ErrConflict)
	}

	created, err := s.canvases.Create(ctx, userID, name, kind)
	if err != nil {
		return nil, err
	}

	s.log.Info("canvas created",
		slog.String("canvas_id", created.ID.String()),
		slog.String("type", created.Type.String()),
	)
	return created, nil
}

// Rename changes a canvas name.
func (s *Service) Rename(ctx context.Context, canvasID uuid.UUID, name string) (*domain.Canvas, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	name, err := validateName(name)
	if err != nil {
		return nil, err
	}

	return s.canvases.Rename(ctx, canvasID, userID, name)
}

// Delete removes a canvas; nodes and share links go with it via cascade.
func (s *Service) Delete(ctx context.Context, canvasID uuid.UUID) error {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return domain.ErrUnauthorized
	}

	if err := s.canvases.Delete(ctx, canvasID, userID); err != nil {
		return err
	}

	s.log.Info("canvas deleted", slog.String("canvas_id", canvasID.String()))
	return nil
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", domain.NewValidationError("name", "must not be empty")
	}
	if utf8.RuneCountInString(name) > domain.MaxCanvasNameLen {
		return "", domain.NewValidationError("name", fmt.Sprintf("must be at most %d characters", domain.MaxCanvasNameLen))
	}
	return name, nil
}
