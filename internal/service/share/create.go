package share

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskmaster-io/backend/internal/domain"
	"github.com/taskmaster-io/backend/pkg/ctxutil"
)

// tokenBytes is the entropy of a share token; hex-encoded it doubles.
const tokenBytes = 16

// CreateInput describes a new share link. TTL zero means the link never
// expires; Password applies to edit links only.
type CreateInput struct {
	Mode     domain.ShareMode
	TTL      time.Duration
	Password string
}

// Create mints a share link for one of the calling user's canvases. A view
// link without expiry claims the canvas's indefinite-view slot: only one may
// exist at a time, and a second attempt reports the holder via
// ShareLockError.
func (s *Service) Create(ctx context.Context, canvasID uuid.UUID, in CreateInput) (*domain.Share, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	if !in.Mode.IsValid() {
		return nil, domain.NewValidationError("mode", fmt.Sprintf("unknown share mode %q", in.Mode))
	}
	if in.Password != "" && in.Mode != domain.ShareModeEdit {
		return nil, domain.NewValidationError("password", "only edit links take a password")
	}
	if in.TTL < 0 {
		return nil, domain.NewValidationError("ttl", "must not be negative")
	}

	// Ownership check; a foreign canvas surfaces as not found.
	if _, err := s.canvases.GetOwned(ctx, canvasID, userID); err != nil {
		return nil, err
	}

	indefiniteView := in.Mode == domain.ShareModeView && in.TTL == 0
	if indefiniteView {
		existing, err := s.shares.FindViewLock(ctx, canvasID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("find view lock: %w", err)
		}
		if existing != nil {
			return nil, &domain.ShareLockError{ExistingID: existing.ID.String()}
		}
	}

	token, err := newToken()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	link := &domain.Share{
		CanvasID:           canvasID,
		Token:              token,
		Mode:               in.Mode,
		ViewIndefiniteLock: indefiniteView,
	}
	if in.TTL > 0 {
		expires := time.Now().Add(in.TTL)
		link.ExpiresAt = &expires
	}
	if in.Password != "" {
		hash, hashErr := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if hashErr != nil {
			return nil, fmt.Errorf("hash password: %w", hashErr)
		}
		h := string(hash)
		link.PasswordHash = &h
	}

	created, err := s.shares.Create(ctx, link)
	if err != nil {
		// Racing creators of the indefinite-view slot lose to the partial
		// unique index; report the winner.
		if indefiniteView && errors.Is(err, domain.ErrAlreadyExists) {
			if winner, findErr := s.shares.FindViewLock(ctx, canvasID); findErr == nil {
				return nil, &domain.ShareLockError{ExistingID: winner.ID.String()}
			}
		}
		return nil, err
	}

	s.log.Info("share link created",
		slog.String("canvas_id", canvasID.String()),
		slog.String("mode", created.Mode.String()),
		slog.Bool("indefinite_view", created.ViewIndefiniteLock),
	)
	return created, nil
}

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
