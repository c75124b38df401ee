package domain

import "strings"

// NormalizeNode coerces a client-submitted task node into its canonical
// stored form: out-of-range priority collapses to none and the title is
// clamped. Clients never see the raw input echoed back; the broadcast
// snapshot is reloaded after persistence, so normalization here is what
// every peer observes.
func NormalizeNode(n Node) Node {
	if !n.Priority.IsValid() {
		n.Priority = PriorityNone
	}
	n.Title = clampLen(n.Title, MaxNodeTitleLen)
	return n
}

// NormalizeBrainNode coerces a client-submitted mind-map node: missing color
// falls back to the default palette color and the title is clamped.
func NormalizeBrainNode(n BrainNode) BrainNode {
	if strings.TrimSpace(n.Color) == "" {
		n.Color = DefaultBrainColor
	}
	n.Title = clampLen(n.Title, MaxBrainNodeTitleLen)
	return n
}

func clampLen(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// Cut on a rune boundary.
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
