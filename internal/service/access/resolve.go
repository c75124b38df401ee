package access

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskmaster-io/backend/internal/domain"
)

// Grant is the outcome of a successful access resolution. Share is non-nil
// only when access came through a link; PasswordRequired flags edit links
// whose mutations are gated behind VerifyPassword.
type Grant struct {
	Canvas           *domain.Canvas
	Mode             domain.ShareMode
	Owner            bool
	Share            *domain.Share
	PasswordRequired bool
}

// CanEdit reports whether the grant permits mutations.
func (g *Grant) CanEdit() bool {
	return g.Mode == domain.ShareModeEdit
}

// Resolve determines access to canvasID for a party identified by userID
// (uuid.Nil for anonymous) and/or a share token. Ownership wins over any
// token. A token for a different canvas, an unknown token, or no credential
// at all yields ErrForbidden; a known token past its expiry yields
// ErrLinkExpired so the caller can distinguish the two.
func (s *Service) Resolve(ctx context.Context, canvasID, userID uuid.UUID, shareToken string) (*Grant, error) {
	canvas, err := s.canvases.GetByID(ctx, canvasID)
	if err != nil {
		return nil, err
	}

	if userID != uuid.Nil && canvas.UserID == userID {
		return &Grant{Canvas: canvas, Mode: domain.ShareModeEdit, Owner: true}, nil
	}

	if shareToken == "" {
		return nil, domain.ErrForbidden
	}

	share, err := s.shares.GetByToken(ctx, shareToken)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrForbidden
		}
		return nil, err
	}

	if share.CanvasID != canvasID {
		s.log.Warn("share token presented for a different canvas",
			slog.String("canvas_id", canvasID.String()),
			slog.String("share_canvas_id", share.CanvasID.String()),
		)
		return nil, domain.ErrForbidden
	}

	if share.Expired(time.Now()) {
		return nil, domain.ErrLinkExpired
	}

	return &Grant{
		Canvas:           canvas,
		Mode:             share.Mode,
		Share:            share,
		PasswordRequired: share.Mode == domain.ShareModeEdit && share.HasPassword(),
	}, nil
}

// VerifyPassword checks a password against the grant's share link. Grants
// that never required a password verify trivially.
func (s *Service) VerifyPassword(grant *Grant, password string) error {
	if !grant.PasswordRequired {
		return nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*grant.Share.PasswordHash), []byte(password)); err != nil {
		return domain.ErrForbidden
	}
	return nil
}
