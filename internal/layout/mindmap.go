package layout

import (
	"sort"

	"github.com/taskmaster-io/backend/internal/domain"
)

// Side names the horizontal direction a mind-map branch grows in.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// BrainPosition computes where a new mind-map node attached to parentID
// should be placed. side is honored when the parent is the root; deeper
// nodes inherit their branch's side from geometry.
//
// Children of the root stack vertically on the chosen side, and the stack
// (existing siblings plus the new node) is centered on the root's vertical
// midpoint. Children of non-root nodes extend one step further in their
// parent's direction and stack below the last sibling.
func BrainPosition(nodes []domain.BrainNode, parentID string, side Side) Point {
	parent := findBrain(nodes, parentID)
	if parent == nil {
		return Point{X: 400, Y: 300}
	}

	if parent.IsRoot {
		existing := rootSideChildren(nodes, parent, side)
		count := len(existing)

		var x float64
		if side == SideRight {
			x = parent.X + BrainRootW + BrainGapX
		} else {
			x = parent.X - BrainChildW - BrainGapX
		}

		// Center the grown stack (count+1 items) on the root's midpoint.
		total := count + 1
		totalHeight := float64(total)*BrainChildH + float64(total-1)*BrainGapY
		rootCenterY := parent.Y + BrainRootH/2
		startY := rootCenterY - totalHeight/2
		y := startY + float64(count)*(BrainChildH+BrainGapY)

		return Point{X: x, Y: y}
	}

	parentSide := branchSide(nodes, parent, side)

	var x float64
	if parentSide == SideRight {
		x = parent.X + BrainChildW + BrainGapX
	} else {
		x = parent.X - BrainChildW - BrainGapX
	}

	siblings := childrenOf(nodes, parentID)
	if len(siblings) == 0 {
		return Point{X: x, Y: parent.Y}
	}

	sort.Slice(siblings, func(a, b int) bool { return siblings[a].Y < siblings[b].Y })
	last := siblings[len(siblings)-1]

	return Point{X: x, Y: last.Y + BrainChildH + BrainGapY}
}

// branchSide derives which side of the root a node's branch lives on by
// walking up to the root child that anchors the branch and comparing its
// position with the root's. fallback is used when geometry is inconclusive
// (e.g. the node floats without a root ancestor).
func branchSide(nodes []domain.BrainNode, n *domain.BrainNode, fallback Side) Side {
	root := findRoot(nodes)
	if root == nil {
		return fallback
	}

	// Climb until the node whose parent is the root. Bounded by the node
	// count so a parent cycle cannot spin forever.
	cur := n
	for range nodes {
		if cur.ParentID == nil {
			return fallback
		}
		p := findBrain(nodes, *cur.ParentID)
		if p == nil {
			return fallback
		}
		if p.IsRoot {
			break
		}
		cur = p
	}

	if cur.X < root.X {
		return SideLeft
	}
	return SideRight
}

func findBrain(nodes []domain.BrainNode, id string) *domain.BrainNode {
	for i := range nodes {
		if nodes[i].ID == id {
			return &nodes[i]
		}
	}
	return nil
}

func findRoot(nodes []domain.BrainNode) *domain.BrainNode {
	for i := range nodes {
		if nodes[i].IsRoot {
			return &nodes[i]
		}
	}
	return nil
}

// childrenOf returns copies of parentID's direct children.
func childrenOf(nodes []domain.BrainNode, parentID string) []domain.BrainNode {
	var out []domain.BrainNode
	for i := range nodes {
		if nodes[i].ParentID != nil && *nodes[i].ParentID == parentID {
			out = append(out, nodes[i])
		}
	}
	return out
}

// rootSideChildren returns the root's direct children on the given side.
func rootSideChildren(nodes []domain.BrainNode, root *domain.BrainNode, side Side) []domain.BrainNode {
	var out []domain.BrainNode
	for _, c := range childrenOf(nodes, root.ID) {
		cs := SideRight
		if c.X < root.X {
			cs = SideLeft
		}
		if cs == side {
			out = append(out, c)
		}
	}
	return out
}
