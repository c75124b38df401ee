// Package layout computes node placement for task and mind-map canvases.
// Everything here is pure and deterministic: no I/O, no randomness, no
// clock. Callers pass the current node set and receive coordinates.
package layout

import "math"

// Card dimensions and spacing, in canvas units. Root task cards are larger
// than child cards; mind-map roots are larger than mind-map children.
const (
	NodeW      = 224.0
	NodeH      = 108.0
	ChildNodeW = 178.0
	ChildNodeH = 76.0
	GapX       = 56.0
	GapY       = 60.0

	BrainRootW  = 190.0
	BrainRootH  = 60.0
	BrainChildW = 148.0
	BrainChildH = 44.0
	BrainGapX   = 90.0
	BrainGapY   = 18.0
)

// collisionSlack pads every overlap test so cards keep visual breathing room.
const collisionSlack = 12.0

// maxRings bounds the free-position search. Past this budget the anchor is
// returned as-is; an overlap is an accepted degraded outcome, not an error.
const maxRings = 12

// Point is a position on the canvas.
type Point struct {
	X float64
	Y float64
}

// Box is the bounding box of a placed node.
type Box struct {
	X float64
	Y float64
	W float64
	H float64
}

// NodeSize returns the card dimensions for a task node.
func NodeSize(child bool) (w, h float64) {
	if child {
		return ChildNodeW, ChildNodeH
	}
	return NodeW, NodeH
}

// Collides reports whether two boxes overlap, with slack padding.
func Collides(a, b Box) bool {
	return math.Abs(a.X-b.X) < (a.W+b.W)/2+collisionSlack &&
		math.Abs(a.Y-b.Y) < (a.H+b.H)/2+collisionSlack
}

// FreePosition finds the nearest non-colliding position for a new card of
// the given kind, starting at anchor. It tries the anchor first, then walks
// expanding rings of grid cells (one card plus gap per step) around it.
// When the ring budget is exhausted the anchor is returned even though it
// overlaps.
func FreePosition(occupied []Box, anchor Point, child bool) Point {
	w, h := NodeSize(child)
	stepX := w + GapX
	stepY := h + GapY

	if !anyCollision(occupied, Box{X: anchor.X, Y: anchor.Y, W: w, H: h}) {
		return anchor
	}

	for ring := 1; ring <= maxRings; ring++ {
		for dx := -ring; dx <= ring; dx++ {
			for dy := -ring; dy <= ring; dy++ {
				// Only the ring perimeter; interior cells were covered by
				// smaller rings.
				if abs(dx) != ring && abs(dy) != ring {
					continue
				}
				cand := Box{
					X: anchor.X + float64(dx)*stepX,
					Y: anchor.Y + float64(dy)*stepY,
					W: w,
					H: h,
				}
				if !anyCollision(occupied, cand) {
					return Point{X: cand.X, Y: cand.Y}
				}
			}
		}
	}

	return anchor
}

func anyCollision(occupied []Box, cand Box) bool {
	for _, b := range occupied {
		if Collides(b, cand) {
			return true
		}
	}
	return false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
