package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/taskmaster-io/backend/internal/collab"
	"github.com/taskmaster-io/backend/internal/domain"
	"github.com/taskmaster-io/backend/internal/layout"
	canvassvc "github.com/taskmaster-io/backend/internal/service/canvas"
	"github.com/taskmaster-io/backend/internal/transport/ws"
)

// canvasService defines the minimal interface needed by CanvasHandler.
type canvasService interface {
	List(ctx context.Context) ([]*domain.Canvas, error)
	Get(ctx context.Context, canvasID uuid.UUID) (*domain.Canvas, error)
	Create(ctx context.Context, name string, kind domain.CanvasType) (*domain.Canvas, error)
	Rename(ctx context.Context, canvasID uuid.UUID, name string) (*domain.Canvas, error)
	Delete(ctx context.Context, canvasID uuid.UUID) error
	Snapshot(ctx context.Context, canvas *domain.Canvas) (*canvassvc.Snapshot, error)
}

type snapshotCommitter interface {
	CommitNodes(ctx context.Context, canvasID uuid.UUID, nodes []domain.Node) ([]domain.Node, error)
	CommitBrainNodes(ctx context.Context, canvasID uuid.UUID, nodes []domain.BrainNode) ([]domain.BrainNode, error)
}

// CanvasHandler serves canvas REST endpoints. Mutations also go out to any
// live room, so browser tabs on the websocket stay current.
type CanvasHandler struct {
	svc    canvasService
	commit snapshotCommitter
	engine *collab.Engine
	log    *slog.Logger
}

// NewCanvasHandler creates a CanvasHandler.
func NewCanvasHandler(svc canvasService, commit snapshotCommitter, engine *collab.Engine, logger *slog.Logger) *CanvasHandler {
	return &CanvasHandler{
		svc:    svc,
		commit: commit,
		engine: engine,
		log:    logger.With("handler", "canvas"),
	}
}

// Register mounts the canvas routes.
func (h *CanvasHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/canvases", h.List)
	mux.HandleFunc("POST /api/canvases", h.Create)
	mux.HandleFunc("GET /api/canvases/{id}", h.Get)
	mux.HandleFunc("PUT /api/canvases/{id}", h.Rename)
	mux.HandleFunc("DELETE /api/canvases/{id}", h.Delete)
	mux.HandleFunc("GET /api/canvases/{id}/nodes", h.Nodes)
	mux.HandleFunc("PUT /api/canvases/{id}/nodes", h.ReplaceNodes)
	mux.HandleFunc("POST /api/canvases/{id}/organize", h.Organize)
	mux.HandleFunc("POST /api/canvases/{id}/placement", h.Placement)
}

type canvasResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type createCanvasRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type renameCanvasRequest struct {
	Name string `json:"name"`
}

type nodePayload struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Priority  string  `json:"priority,omitempty"`
	Completed bool    `json:"completed,omitempty"`
	Color     string  `json:"color,omitempty"`
	IsRoot    bool    `json:"isRoot,omitempty"`
	ParentID  *string `json:"parentId"`
	DueDate   *string `json:"dueDate,omitempty"`
}

type nodesResponse struct {
	Canvas canvasResponse `json:"canvas"`
	Nodes  []nodePayload  `json:"nodes"`
}

// List handles GET /api/canvases.
func (h *CanvasHandler) List(w http.ResponseWriter, r *http.Request) {
	canvases, err := h.svc.List(r.Context())
	if err != nil {
		handleDomainError(w, h.log, err)
		return
	}

	out := make([]canvasResponse, len(canvases))
	for i, c := range canvases {
		out[i] = toCanvasResponse(c)
	}
	writeJSON(w, http.StatusOK, out)
}

// Create handles POST /api/canvases.
func (h *CanvasHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createCanvasRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.svc.Create(r.Context(), req.Name, domain.CanvasType(req.Type))
	if err != nil {
		handleDomainError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, toCanvasResponse(created))
}

// Get handles GET /api/canvases/{id}.
func (h *CanvasHandler) Get(w http.ResponseWriter, r *http.Request) {
	canvasID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	canvas, err := h.svc.Get(r.Context(), canvasID)
	if err != nil {
		handleDomainError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, toCanvasResponse(canvas))
}

// Rename handles PUT /api/canvases/{id}.
func (h *CanvasHandler) Rename(w http.ResponseWriter, r *http.Request) {
	canvasID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req renameCanvasRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	renamed, err := h.svc.Rename(r.Context(), canvasID, req.Name)
	if err != nil {
		handleDomainError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, toCanvasResponse(renamed))
}

// Delete handles DELETE /api/canvases/{id}.
func (h *CanvasHandler) Delete(w http.ResponseWriter, r *http.Request) {
	canvasID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), canvasID); err != nil {
		handleDomainError(w, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Nodes handles GET /api/canvases/{id}/nodes: the current snapshot, task or
// brain depending on the canvas.
func (h *CanvasHandler) Nodes(w http.ResponseWriter, r *http.Request) {
	canvasID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	canvas, err := h.svc.Get(r.Context(), canvasID)
	if err != nil {
		handleDomainError(w, h.log, err)
		return
	}
	snap, err := h.svc.Snapshot(r.Context(), canvas)
	if err != nil {
		handleDomainError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, toNodesResponse(snap))
}

// ReplaceNodes handles PUT /api/canvases/{id}/nodes: a full-snapshot commit
// over HTTP, equivalent to a websocket patch. Live room members receive the
// stored state as a patch frame.
func (h *CanvasHandler) ReplaceNodes(w http.ResponseWriter, r *http.Request) {
	canvasID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	canvas, err := h.svc.Get(r.Context(), canvasID)
	if err != nil {
		handleDomainError(w, h.log, err)
		return
	}

	var payload []nodePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if canvas.Type == domain.CanvasTypeBrain {
		stored, commitErr := h.commit.CommitBrainNodes(r.Context(), canvasID, payloadToBrainNodes(payload))
		if commitErr != nil {
			handleDomainError(w, h.log, commitErr)
			return
		}
		h.broadcastBrain(canvasID, stored)
		writeJSON(w, http.StatusOK, brainNodesToPayload(stored))
		return
	}

	stored, commitErr := h.commit.CommitNodes(r.Context(), canvasID, payloadToNodes(payload))
	if commitErr != nil {
		handleDomainError(w, h.log, commitErr)
		return
	}
	h.broadcastTask(canvasID, stored)
	writeJSON(w, http.StatusOK, taskNodesToPayload(stored))
}

// Organize handles POST /api/canvases/{id}/organize: rearranges a task
// canvas into priority-ordered columns, persists the result, and feeds it to
// the room.
func (h *CanvasHandler) Organize(w http.ResponseWriter, r *http.Request) {
	canvasID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	canvas, err := h.svc.Get(r.Context(), canvasID)
	if err != nil {
		handleDomainError(w, h.log, err)
		return
	}
	if canvas.Type != domain.CanvasTypeTask {
		writeError(w, http.StatusBadRequest, "organize applies to task canvases")
		return
	}

	snap, err := h.svc.Snapshot(r.Context(), canvas)
	if err != nil {
		handleDomainError(w, h.log, err)
		return
	}

	organized := layout.OrganizeTree(snap.Nodes)
	stored, err := h.commit.CommitNodes(r.Context(), canvasID, organized)
	if err != nil {
		handleDomainError(w, h.log, err)
		return
	}

	h.broadcastTask(canvasID, stored)
	writeJSON(w, http.StatusOK, taskNodesToPayload(stored))
}

type placementRequest struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Child    bool    `json:"child"`
	ParentID string  `json:"parentId"`
	Side     string  `json:"side"`
}

type placementResponse struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Placement handles POST /api/canvases/{id}/placement: suggests where a new
// node should go. Task canvases run the free-position search around the
// requested anchor; brain canvases place relative to the parent node.
func (h *CanvasHandler) Placement(w http.ResponseWriter, r *http.Request) {
	canvasID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	canvas, err := h.svc.Get(r.Context(), canvasID)
	if err != nil {
		handleDomainError(w, h.log, err)
		return
	}
	snap, err := h.svc.Snapshot(r.Context(), canvas)
	if err != nil {
		handleDomainError(w, h.log, err)
		return
	}

	var req placementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var p layout.Point
	if canvas.Type == domain.CanvasTypeBrain {
		side := layout.SideRight
		if req.Side == string(layout.SideLeft) {
			side = layout.SideLeft
		}
		p = layout.BrainPosition(snap.BrainNodes, req.ParentID, side)
	} else {
		occupied := make([]layout.Box, len(snap.Nodes))
		for i, n := range snap.Nodes {
			nw, nh := layout.NodeSize(n.ParentID != nil)
			occupied[i] = layout.Box{X: n.X, Y: n.Y, W: nw, H: nh}
		}
		p = layout.FreePosition(occupied, layout.Point{X: req.X, Y: req.Y}, req.Child)
	}

	writeJSON(w, http.StatusOK, placementResponse{X: p.X, Y: p.Y})
}

func (h *CanvasHandler) broadcastTask(canvasID uuid.UUID, nodes []domain.Node) {
	frame, err := ws.PatchFrame(nodes)
	if err != nil {
		h.log.Error("encode patch frame", slog.String("error", err.Error()))
		return
	}
	h.engine.Broadcast(canvasID, frame, nil)
}

func (h *CanvasHandler) broadcastBrain(canvasID uuid.UUID, nodes []domain.BrainNode) {
	frame, err := ws.BrainPatchFrame(nodes)
	if err != nil {
		h.log.Error("encode brain patch frame", slog.String("error", err.Error()))
		return
	}
	h.engine.Broadcast(canvasID, frame, nil)
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func toCanvasResponse(c *domain.Canvas) canvasResponse {
	return canvasResponse{
		ID:        c.ID.String(),
		Name:      c.Name,
		Type:      c.Type.String(),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func toNodesResponse(snap *canvassvc.Snapshot) nodesResponse {
	resp := nodesResponse{Canvas: toCanvasResponse(snap.Canvas)}
	if snap.Canvas.Type == domain.CanvasTypeBrain {
		resp.Nodes = brainNodesToPayload(snap.BrainNodes)
	} else {
		resp.Nodes = taskNodesToPayload(snap.Nodes)
	}
	return resp
}

const dueDateLayout = "2006-01-02"

func taskNodesToPayload(nodes []domain.Node) []nodePayload {
	out := make([]nodePayload, len(nodes))
	for i, n := range nodes {
		out[i] = nodePayload{
			ID:        n.ID,
			Title:     n.Title,
			X:         n.X,
			Y:         n.Y,
			Priority:  n.Priority.String(),
			Completed: n.Completed,
			ParentID:  n.ParentID,
		}
		if n.DueDate != nil {
			d := n.DueDate.Format(dueDateLayout)
			out[i].DueDate = &d
		}
	}
	return out
}

func payloadToNodes(in []nodePayload) []domain.Node {
	out := make([]domain.Node, len(in))
	for i, p := range in {
		out[i] = domain.Node{
			ID:        p.ID,
			Title:     p.Title,
			X:         p.X,
			Y:         p.Y,
			Priority:  domain.Priority(p.Priority),
			Completed: p.Completed,
			ParentID:  p.ParentID,
		}
		if p.DueDate != nil {
			if due, err := time.Parse(dueDateLayout, *p.DueDate); err == nil {
				out[i].DueDate = &due
			}
		}
	}
	return out
}

func brainNodesToPayload(nodes []domain.BrainNode) []nodePayload {
	out := make([]nodePayload, len(nodes))
	for i, n := range nodes {
		out[i] = nodePayload{
			ID:       n.ID,
			Title:    n.Title,
			X:        n.X,
			Y:        n.Y,
			Color:    n.Color,
			IsRoot:   n.IsRoot,
			ParentID: n.ParentID,
		}
	}
	return out
}

func payloadToBrainNodes(in []nodePayload) []domain.BrainNode {
	out := make([]domain.BrainNode, len(in))
	for i, p := range in {
		out[i] = domain.BrainNode{
			ID:       p.ID,
			Title:    p.Title,
			X:        p.X,
			Y:        p.Y,
			Color:    p.Color,
			IsRoot:   p.IsRoot,
			ParentID: p.ParentID,
		}
	}
	return out
}
