package share

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskmaster-io/backend/internal/domain"
	"github.com/taskmaster-io/backend/pkg/ctxutil"
)

// List returns all share links of one of the calling user's canvases.
func (s *Service) List(ctx context.Context, canvasID uuid.UUID) ([]*domain.Share, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	if _, err := s.canvases.GetOwned(ctx, canvasID, userID); err != nil {
		return nil, err
	}

	return s.shares.ListByCanvas(ctx, canvasID)
}

// Revoke deletes a share link. Open sessions that joined through the link
// stay connected; the token just stops resolving.
func (s *Service) Revoke(ctx context.Context, canvasID, shareID uuid.UUID) error {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return domain.ErrUnauthorized
	}

	if _, err := s.canvases.GetOwned(ctx, canvasID, userID); err != nil {
		return err
	}

	if err := s.shares.Delete(ctx, shareID, canvasID); err != nil {
		return err
	}

	s.log.Info("share link revoked",
		slog.String("canvas_id", canvasID.String()),
		slog.String("share_id", shareID.String()),
	)
	return nil
}

// SharedRead resolves a token for the public read surface: no auth, view of
// the canvas behind any live link. Unknown tokens are not found; expired
// ones are reported as such.
func (s *Service) SharedRead(ctx context.Context, token string) (*domain.Share, *domain.Canvas, error) {
	link, err := s.shares.GetByToken(ctx, token)
	if err != nil {
		return nil, nil, err
	}

	if link.Expired(time.Now()) {
		return nil, nil, domain.ErrLinkExpired
	}

	canvas, err := s.canvases.GetByID(ctx, link.CanvasID)
	if err != nil {
		return nil, nil, err
	}

	return link, canvas, nil
}

// VerifyPassword checks an edit link's password without holding any state.
// Links without a password always pass; a wrong password on a protected link
// is ErrForbidden.
func (s *Service) VerifyPassword(ctx context.Context, token, password string) error {
	link, err := s.shares.GetByToken(ctx, token)
	if err != nil {
		return err
	}

	if link.Expired(time.Now()) {
		return domain.ErrLinkExpired
	}

	if !link.HasPassword() {
		return nil
	}

	if bcrypt.CompareHashAndPassword([]byte(*link.PasswordHash), []byte(password)) != nil {
		return domain.ErrForbidden
	}
	return nil
}
