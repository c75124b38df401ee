package ws

import (
	"encoding/json"

	"github.com/taskmaster-io/backend/internal/domain"
)

// PatchFrame encodes a task-node patch the way joined sessions expect it.
// The REST surface uses it to feed rooms when a canvas is mutated over HTTP,
// so the frame carries no originating session.
func PatchFrame(nodes []domain.Node) ([]byte, error) {
	return json.Marshal(patchMessage{Type: msgPatch, Nodes: toNodeDTOs(nodes)})
}

// BrainPatchFrame is PatchFrame for mind-map nodes.
func BrainPatchFrame(nodes []domain.BrainNode) ([]byte, error) {
	return json.Marshal(brainPatchMessage{Type: msgBrainPatch, BrainNodes: toBrainNodeDTOs(nodes)})
}
