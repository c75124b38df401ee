package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/taskmaster-io/backend/internal/domain"
	canvassvc "github.com/taskmaster-io/backend/internal/service/canvas"
	sharesvc "github.com/taskmaster-io/backend/internal/service/share"
)

// shareService defines the minimal interface needed by ShareHandler.
type shareService interface {
	Create(ctx context.Context, canvasID uuid.UUID, in sharesvc.CreateInput) (*domain.Share, error)
	List(ctx context.Context, canvasID uuid.UUID) ([]*domain.Share, error)
	Revoke(ctx context.Context, canvasID, shareID uuid.UUID) error
	SharedRead(ctx context.Context, token string) (*domain.Share, *domain.Canvas, error)
	VerifyPassword(ctx context.Context, token, password string) error
}

type sharedSnapshotLoader interface {
	Snapshot(ctx context.Context, canvas *domain.Canvas) (*canvassvc.Snapshot, error)
}

// ShareHandler serves share-link endpoints, including the unauthenticated
// read surface behind a token.
type ShareHandler struct {
	svc      shareService
	canvases sharedSnapshotLoader
	log      *slog.Logger
}

// NewShareHandler creates a ShareHandler.
func NewShareHandler(svc shareService, canvases sharedSnapshotLoader, logger *slog.Logger) *ShareHandler {
	return &ShareHandler{
		svc:      svc,
		canvases: canvases,
		log:      logger.With("handler", "share"),
	}
}

// Register mounts the share routes.
func (h *ShareHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/canvases/{id}/shares", h.Create)
	mux.HandleFunc("GET /api/canvases/{id}/shares", h.List)
	mux.HandleFunc("DELETE /api/canvases/{id}/shares/{shareID}", h.Revoke)
	mux.HandleFunc("GET /api/shared/{token}", h.SharedRead)
	mux.HandleFunc("POST /api/shared/{token}/verify", h.VerifyPassword)
}

type createShareRequest struct {
	Mode string `json:"mode"`
	// TTLSeconds of zero (or absent) makes the link permanent.
	TTLSeconds int64  `json:"ttlSeconds"`
	Password   string `json:"password"`
}

type shareResponse struct {
	ID         string     `json:"id"`
	Token      string     `json:"token"`
	Mode       string     `json:"mode"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	Protected  bool       `json:"protected"`
	Indefinite bool       `json:"indefinite"`
	CreatedAt  time.Time  `json:"createdAt"`
}

type sharedReadResponse struct {
	Canvas canvasResponse `json:"canvas"`
	Mode   string         `json:"mode"`
	Nodes  []nodePayload  `json:"nodes"`
}

// Create handles POST /api/canvases/{id}/shares.
func (h *ShareHandler) Create(w http.ResponseWriter, r *http.Request) {
	canvasID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req createShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.svc.Create(r.Context(), canvasID, sharesvc.CreateInput{
		Mode:     domain.ShareMode(req.Mode),
		TTL:      time.Duration(req.TTLSeconds) * time.Second,
		Password: req.Password,
	})
	if err != nil {
		handleDomainError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, toShareResponse(created))
}

// List handles GET /api/canvases/{id}/shares.
func (h *ShareHandler) List(w http.ResponseWriter, r *http.Request) {
	canvasID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	shares, err := h.svc.List(r.Context(), canvasID)
	if err != nil {
		handleDomainError(w, h.log, err)
		return
	}

	out := make([]shareResponse, len(shares))
	for i, s := range shares {
		out[i] = toShareResponse(s)
	}
	writeJSON(w, http.StatusOK, out)
}

// Revoke handles DELETE /api/canvases/{id}/shares/{shareID}.
func (h *ShareHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	canvasID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	shareID, ok := pathUUID(w, r, "shareID")
	if !ok {
		return
	}

	if err := h.svc.Revoke(r.Context(), canvasID, shareID); err != nil {
		handleDomainError(w, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SharedRead handles GET /api/shared/{token}: the public, unauthenticated
// view of a canvas behind a live share link.
func (h *ShareHandler) SharedRead(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "missing token")
		return
	}

	link, canvas, err := h.svc.SharedRead(r.Context(), token)
	if err != nil {
		handleDomainError(w, h.log, err)
		return
	}

	snap, err := h.canvases.Snapshot(r.Context(), canvas)
	if err != nil {
		handleDomainError(w, h.log, err)
		return
	}

	resp := sharedReadResponse{
		Canvas: toCanvasResponse(canvas),
		Mode:   link.Mode.String(),
	}
	if canvas.Type == domain.CanvasTypeBrain {
		resp.Nodes = brainNodesToPayload(snap.BrainNodes)
	} else {
		resp.Nodes = taskNodesToPayload(snap.Nodes)
	}
	writeJSON(w, http.StatusOK, resp)
}

type verifyPasswordRequest struct {
	Password string `json:"password"`
}

// VerifyPassword handles POST /api/shared/{token}/verify: a stateless check
// of an edit link's password, used by clients before opening the socket in
// edit mode. 204 on success.
func (h *ShareHandler) VerifyPassword(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "missing token")
		return
	}

	var req verifyPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.svc.VerifyPassword(r.Context(), token, req.Password); err != nil {
		handleDomainError(w, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func toShareResponse(s *domain.Share) shareResponse {
	return shareResponse{
		ID:         s.ID.String(),
		Token:      s.Token,
		Mode:       s.Mode.String(),
		ExpiresAt:  s.ExpiresAt,
		Protected:  s.HasPassword(),
		Indefinite: s.ViewIndefiniteLock,
		CreatedAt:  s.CreatedAt,
	}
}
