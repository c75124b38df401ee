package layout

import (
	"testing"

	"github.com/taskmaster-io/backend/internal/domain"
)

func brainNode(id string, parentID string, x, y float64, root bool) domain.BrainNode {
	n := domain.BrainNode{ID: id, X: x, Y: y, IsRoot: root}
	if parentID != "" {
		n.ParentID = &parentID
	}
	return n
}

func TestBrainPosition_MissingParentFallsBack(t *testing.T) {
	t.Parallel()

	got := BrainPosition(nil, "ghost", SideRight)
	if got != (Point{X: 400, Y: 300}) {
		t.Errorf("got %+v", got)
	}
}

func TestBrainPosition_FirstRootChildCenteredOnRoot(t *testing.T) {
	t.Parallel()

	root := brainNode("root", "", 500, 300, true)
	nodes := []domain.BrainNode{root}

	got := BrainPosition(nodes, "root", SideRight)

	if want := root.X + BrainRootW + BrainGapX; got.X != want {
		t.Errorf("X = %v, want %v", got.X, want)
	}
	// A single child is centered on the root's vertical midpoint.
	rootCenterY := root.Y + BrainRootH/2
	if want := rootCenterY - BrainChildH/2; got.Y != want {
		t.Errorf("Y = %v, want %v", got.Y, want)
	}
}

func TestBrainPosition_LeftSideMirrors(t *testing.T) {
	t.Parallel()

	root := brainNode("root", "", 500, 300, true)
	nodes := []domain.BrainNode{root}

	got := BrainPosition(nodes, "root", SideLeft)
	if want := root.X - BrainChildW - BrainGapX; got.X != want {
		t.Errorf("X = %v, want %v", got.X, want)
	}
}

func TestBrainPosition_SecondRootChildExtendsStack(t *testing.T) {
	t.Parallel()

	root := brainNode("root", "", 500, 300, true)
	first := brainNode("c1", "root", root.X+BrainRootW+BrainGapX, 100, false)
	nodes := []domain.BrainNode{root, first}

	got := BrainPosition(nodes, "root", SideRight)

	// Two items on the right: the new node lands in the second slot of a
	// stack centered on the root midpoint.
	totalHeight := 2*BrainChildH + BrainGapY
	startY := root.Y + BrainRootH/2 - totalHeight/2
	if want := startY + BrainChildH + BrainGapY; got.Y != want {
		t.Errorf("Y = %v, want %v", got.Y, want)
	}
}

func TestBrainPosition_SidesCountedIndependently(t *testing.T) {
	t.Parallel()

	// A left-side child must not shift the right-side stack.
	root := brainNode("root", "", 500, 300, true)
	left := brainNode("l1", "root", root.X-BrainChildW-BrainGapX, 300, false)
	nodes := []domain.BrainNode{root, left}

	got := BrainPosition(nodes, "root", SideRight)

	rootCenterY := root.Y + BrainRootH/2
	if want := rootCenterY - BrainChildH/2; got.Y != want {
		t.Errorf("Y = %v, want %v (left child must not count)", got.Y, want)
	}
}

func TestBrainPosition_DeepChildInheritsBranchSide(t *testing.T) {
	t.Parallel()

	root := brainNode("root", "", 500, 300, true)
	rightChild := brainNode("r1", "root", root.X+BrainRootW+BrainGapX, 280, false)
	leftChild := brainNode("l1", "root", root.X-BrainChildW-BrainGapX, 280, false)
	nodes := []domain.BrainNode{root, rightChild, leftChild}

	// Requested side is ignored for non-root parents; geometry wins.
	gotRight := BrainPosition(nodes, "r1", SideLeft)
	if want := rightChild.X + BrainChildW + BrainGapX; gotRight.X != want {
		t.Errorf("right branch X = %v, want %v", gotRight.X, want)
	}
	if gotRight.Y != rightChild.Y {
		t.Errorf("first child of r1 should align with parent Y, got %v", gotRight.Y)
	}

	gotLeft := BrainPosition(nodes, "l1", SideRight)
	if want := leftChild.X - BrainChildW - BrainGapX; gotLeft.X != want {
		t.Errorf("left branch X = %v, want %v", gotLeft.X, want)
	}
}

func TestBrainPosition_NonRootSiblingsStackBelowLowest(t *testing.T) {
	t.Parallel()

	root := brainNode("root", "", 500, 300, true)
	branch := brainNode("r1", "root", root.X+BrainRootW+BrainGapX, 280, false)
	s1 := brainNode("s1", "r1", branch.X+BrainChildW+BrainGapX, 240, false)
	s2 := brainNode("s2", "r1", branch.X+BrainChildW+BrainGapX, 320, false)
	nodes := []domain.BrainNode{root, branch, s2, s1}

	got := BrainPosition(nodes, "r1", SideRight)
	if want := s2.Y + BrainChildH + BrainGapY; got.Y != want {
		t.Errorf("Y = %v, want %v (below the lowest sibling)", got.Y, want)
	}
}
