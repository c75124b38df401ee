package share

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskmaster-io/backend/internal/domain"
	"github.com/taskmaster-io/backend/pkg/ctxutil"
)

// ===========================================================================
// Manual mocks (moq-style with func fields)
// ===========================================================================

type mockCanvasRepo struct {
	GetByIDFunc  func(ctx context.Context, canvasID uuid.UUID) (*domain.Canvas, error)
	GetOwnedFunc func(ctx context.Context, canvasID, userID uuid.UUID) (*domain.Canvas, error)
}

func (m *mockCanvasRepo) GetByID(ctx context.Context, canvasID uuid.UUID) (*domain.Canvas, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, canvasID)
	}
	return &domain.Canvas{ID: canvasID}, nil
}

func (m *mockCanvasRepo) GetOwned(ctx context.Context, canvasID, userID uuid.UUID) (*domain.Canvas, error) {
	if m.GetOwnedFunc != nil {
		return m.GetOwnedFunc(ctx, canvasID, userID)
	}
	return &domain.Canvas{ID: canvasID, UserID: userID}, nil
}

type mockShareRepo struct {
	GetByTokenFunc   func(ctx context.Context, token string) (*domain.Share, error)
	ListByCanvasFunc func(ctx context.Context, canvasID uuid.UUID) ([]*domain.Share, error)
	FindViewLockFunc func(ctx context.Context, canvasID uuid.UUID) (*domain.Share, error)
	CreateFunc       func(ctx context.Context, s *domain.Share) (*domain.Share, error)
	DeleteFunc       func(ctx context.Context, shareID, canvasID uuid.UUID) error
}

func (m *mockShareRepo) GetByToken(ctx context.Context, token string) (*domain.Share, error) {
	if m.GetByTokenFunc != nil {
		return m.GetByTokenFunc(ctx, token)
	}
	return nil, domain.ErrNotFound
}

func (m *mockShareRepo) ListByCanvas(ctx context.Context, canvasID uuid.UUID) ([]*domain.Share, error) {
	if m.ListByCanvasFunc != nil {
		return m.ListByCanvasFunc(ctx, canvasID)
	}
	return []*domain.Share{}, nil
}

func (m *mockShareRepo) FindViewLock(ctx context.Context, canvasID uuid.UUID) (*domain.Share, error) {
	if m.FindViewLockFunc != nil {
		return m.FindViewLockFunc(ctx, canvasID)
	}
	return nil, domain.ErrNotFound
}

func (m *mockShareRepo) Create(ctx context.Context, s *domain.Share) (*domain.Share, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, s)
	}
	out := *s
	out.ID = uuid.New()
	return &out, nil
}

func (m *mockShareRepo) Delete(ctx context.Context, shareID, canvasID uuid.UUID) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, shareID, canvasID)
	}
	return nil
}

func newTestService(canvases *mockCanvasRepo, shares *mockShareRepo) *Service {
	if canvases == nil {
		canvases = &mockCanvasRepo{}
	}
	if shares == nil {
		shares = &mockShareRepo{}
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(logger, canvases, shares)
}

func authedCtx(userID uuid.UUID) context.Context {
	return ctxutil.WithUserID(context.Background(), userID)
}

// ===========================================================================
// Create
// ===========================================================================

func TestCreate_EditLinkWithPasswordAndTTL(t *testing.T) {
	t.Parallel()

	var stored *domain.Share
	shares := &mockShareRepo{
		CreateFunc: func(_ context.Context, s *domain.Share) (*domain.Share, error) {
			stored = s
			out := *s
			out.ID = uuid.New()
			return &out, nil
		},
	}
	svc := newTestService(nil, shares)

	before := time.Now()
	got, err := svc.Create(authedCtx(uuid.New()), uuid.New(), CreateInput{
		Mode:     domain.ShareModeEdit,
		TTL:      24 * time.Hour,
		Password: "hunter2",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got.Token) != tokenBytes*2 {
		t.Errorf("token length = %d, want %d hex chars", len(got.Token), tokenBytes*2)
	}
	if stored.ExpiresAt == nil || stored.ExpiresAt.Before(before.Add(23*time.Hour)) {
		t.Errorf("expires_at = %v, want ~24h out", stored.ExpiresAt)
	}
	if stored.ViewIndefiniteLock {
		t.Error("an edit link must not take the indefinite-view slot")
	}
	if stored.PasswordHash == nil {
		t.Fatal("password hash missing")
	}
	if bcrypt.CompareHashAndPassword([]byte(*stored.PasswordHash), []byte("hunter2")) != nil {
		t.Error("stored hash does not match the password")
	}
}

func TestCreate_TokensAreUnique(t *testing.T) {
	t.Parallel()

	svc := newTestService(nil, nil)
	ctx := authedCtx(uuid.New())

	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		got, err := svc.Create(ctx, uuid.New(), CreateInput{Mode: domain.ShareModeEdit, TTL: time.Hour})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if seen[got.Token] {
			t.Fatalf("duplicate token %q", got.Token)
		}
		seen[got.Token] = true
	}
}

func TestCreate_IndefiniteViewTakesLock(t *testing.T) {
	t.Parallel()

	var stored *domain.Share
	shares := &mockShareRepo{
		CreateFunc: func(_ context.Context, s *domain.Share) (*domain.Share, error) {
			stored = s
			out := *s
			out.ID = uuid.New()
			return &out, nil
		},
	}
	svc := newTestService(nil, shares)

	_, err := svc.Create(authedCtx(uuid.New()), uuid.New(), CreateInput{Mode: domain.ShareModeView})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !stored.ViewIndefiniteLock {
		t.Error("view link without TTL must take the indefinite-view slot")
	}
	if stored.ExpiresAt != nil {
		t.Error("indefinite link must not expire")
	}
}

func TestCreate_SecondIndefiniteViewReportsHolder(t *testing.T) {
	t.Parallel()

	existingID := uuid.New()
	shares := &mockShareRepo{
		FindViewLockFunc: func(_ context.Context, _ uuid.UUID) (*domain.Share, error) {
			return &domain.Share{ID: existingID, ViewIndefiniteLock: true}, nil
		},
		CreateFunc: func(_ context.Context, _ *domain.Share) (*domain.Share, error) {
			t.Error("create must not run when the slot is taken")
			return nil, nil
		},
	}
	svc := newTestService(nil, shares)

	_, err := svc.Create(authedCtx(uuid.New()), uuid.New(), CreateInput{Mode: domain.ShareModeView})

	var lockErr *domain.ShareLockError
	if !errors.As(err, &lockErr) {
		t.Fatalf("err = %v, want ShareLockError", err)
	}
	if lockErr.ExistingID != existingID.String() {
		t.Errorf("existing id = %s, want %s", lockErr.ExistingID, existingID)
	}
	if !errors.Is(err, domain.ErrConflict) {
		t.Error("ShareLockError must unwrap to ErrConflict")
	}
}

func TestCreate_LockRaceReportsWinner(t *testing.T) {
	t.Parallel()

	winnerID := uuid.New()
	firstLookup := true
	shares := &mockShareRepo{
		FindViewLockFunc: func(_ context.Context, _ uuid.UUID) (*domain.Share, error) {
			if firstLookup {
				firstLookup = false
				return nil, domain.ErrNotFound
			}
			return &domain.Share{ID: winnerID, ViewIndefiniteLock: true}, nil
		},
		CreateFunc: func(_ context.Context, _ *domain.Share) (*domain.Share, error) {
			return nil, domain.ErrAlreadyExists
		},
	}
	svc := newTestService(nil, shares)

	_, err := svc.Create(authedCtx(uuid.New()), uuid.New(), CreateInput{Mode: domain.ShareModeView})

	var lockErr *domain.ShareLockError
	if !errors.As(err, &lockErr) {
		t.Fatalf("err = %v, want ShareLockError", err)
	}
	if lockErr.ExistingID != winnerID.String() {
		t.Errorf("existing id = %s, want %s", lockErr.ExistingID, winnerID)
	}
}

func TestCreate_TimedViewLinkSkipsLock(t *testing.T) {
	t.Parallel()

	shares := &mockShareRepo{
		FindViewLockFunc: func(_ context.Context, _ uuid.UUID) (*domain.Share, error) {
			t.Error("timed view links must not consult the lock")
			return nil, domain.ErrNotFound
		},
	}
	svc := newTestService(nil, shares)

	got, err := svc.Create(authedCtx(uuid.New()), uuid.New(), CreateInput{Mode: domain.ShareModeView, TTL: time.Hour})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ViewIndefiniteLock {
		t.Error("timed view link must not take the slot")
	}
}

func TestCreate_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   CreateInput
	}{
		{"bad mode", CreateInput{Mode: "admin"}},
		{"password on view link", CreateInput{Mode: domain.ShareModeView, Password: "x"}},
		{"negative ttl", CreateInput{Mode: domain.ShareModeEdit, TTL: -time.Hour}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := newTestService(nil, nil)
			_, err := svc.Create(authedCtx(uuid.New()), uuid.New(), tt.in)
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestCreate_ForeignCanvasNotFound(t *testing.T) {
	t.Parallel()

	canvases := &mockCanvasRepo{
		GetOwnedFunc: func(_ context.Context, _, _ uuid.UUID) (*domain.Canvas, error) {
			return nil, domain.ErrNotFound
		},
	}
	svc := newTestService(canvases, nil)

	_, err := svc.Create(authedCtx(uuid.New()), uuid.New(), CreateInput{Mode: domain.ShareModeEdit, TTL: time.Hour})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

// ===========================================================================
// SharedRead
// ===========================================================================

func TestSharedRead(t *testing.T) {
	t.Parallel()

	canvasID := uuid.New()
	past := time.Now().Add(-time.Minute)

	tests := []struct {
		name    string
		share   *domain.Share
		wantErr error
	}{
		{"live link", &domain.Share{CanvasID: canvasID, Mode: domain.ShareModeView}, nil},
		{"expired link", &domain.Share{CanvasID: canvasID, Mode: domain.ShareModeView, ExpiresAt: &past}, domain.ErrLinkExpired},
		{"unknown token", nil, domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			shares := &mockShareRepo{
				GetByTokenFunc: func(_ context.Context, _ string) (*domain.Share, error) {
					if tt.share == nil {
						return nil, domain.ErrNotFound
					}
					return tt.share, nil
				},
			}
			svc := newTestService(nil, shares)

			_, canvas, err := svc.SharedRead(context.Background(), "tok")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if canvas.ID != canvasID {
				t.Errorf("canvas = %s, want %s", canvas.ID, canvasID)
			}
		})
	}
}

func TestVerifyPassword(t *testing.T) {
	t.Parallel()

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	hashStr := string(hash)
	past := time.Now().Add(-time.Minute)

	tests := []struct {
		name     string
		share    *domain.Share
		password string
		wantErr  error
	}{
		{"correct password", &domain.Share{Mode: domain.ShareModeEdit, PasswordHash: &hashStr}, "hunter2", nil},
		{"wrong password", &domain.Share{Mode: domain.ShareModeEdit, PasswordHash: &hashStr}, "letmein", domain.ErrForbidden},
		{"unprotected link passes anything", &domain.Share{Mode: domain.ShareModeEdit}, "whatever", nil},
		{"expired link", &domain.Share{Mode: domain.ShareModeEdit, PasswordHash: &hashStr, ExpiresAt: &past}, "hunter2", domain.ErrLinkExpired},
		{"unknown token", nil, "hunter2", domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			shares := &mockShareRepo{
				GetByTokenFunc: func(_ context.Context, _ string) (*domain.Share, error) {
					if tt.share == nil {
						return nil, domain.ErrNotFound
					}
					return tt.share, nil
				},
			}
			svc := newTestService(nil, shares)

			err := svc.VerifyPassword(context.Background(), "tok", tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// ===========================================================================
// Revoke
// ===========================================================================

func TestRevoke_ChecksOwnershipFirst(t *testing.T) {
	t.Parallel()

	canvases := &mockCanvasRepo{
		GetOwnedFunc: func(_ context.Context, _, _ uuid.UUID) (*domain.Canvas, error) {
			return nil, domain.ErrNotFound
		},
	}
	shares := &mockShareRepo{
		DeleteFunc: func(_ context.Context, _, _ uuid.UUID) error {
			t.Error("delete must not run for a foreign canvas")
			return nil
		},
	}
	svc := newTestService(canvases, shares)

	err := svc.Revoke(authedCtx(uuid.New()), uuid.New(), uuid.New())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
