package layout

import (
	"math"
	"sort"

	"github.com/taskmaster-io/backend/internal/domain"
)

// priorityRank orders roots during tree organization, most urgent first.
var priorityRank = map[domain.Priority]int{
	domain.PriorityHigh:   0,
	domain.PriorityMedium: 1,
	domain.PriorityLow:    2,
	domain.PriorityNone:   3,
}

// Tree organization geometry: roots start at this corner, and each root
// subtree occupies its own column.
const (
	treeOriginX = 60.0
	treeOriginY = 60.0
	treeColumnW = NodeW + GapX*2
)

// OrganizeTree returns a copy of nodes with positions rearranged into
// priority-ordered columns: root nodes sorted high to none, each root's
// subtree laid out depth-first with children stacked vertically under their
// parent. Sibling order within a parent follows the input order. Input is
// not mutated.
func OrganizeTree(nodes []domain.Node) []domain.Node {
	result := make([]domain.Node, len(nodes))
	copy(result, nodes)

	index := make(map[string]int, len(result))
	for i := range result {
		index[result[i].ID] = i
	}

	children := make(map[string][]string)
	var roots []string
	for i := range result {
		n := &result[i]
		if n.ParentID == nil {
			roots = append(roots, n.ID)
		} else {
			children[*n.ParentID] = append(children[*n.ParentID], n.ID)
		}
	}

	sort.SliceStable(roots, func(a, b int) bool {
		return priorityRank[result[index[roots[a]]].Priority] < priorityRank[result[index[roots[b]]].Priority]
	})

	// visited guards against parent cycles from buggy clients; a cycle
	// member is simply left where it was.
	visited := make(map[string]bool, len(result))

	var place func(id string, x, y float64, depth int) float64
	place = func(id string, x, y float64, depth int) float64 {
		i, ok := index[id]
		if !ok || visited[id] {
			return y
		}
		visited[id] = true

		isChild := depth > 0
		_, nh := NodeSize(isChild)
		nx := x
		if isChild {
			nx = x + math.Floor((NodeW-ChildNodeW)/2)
		}
		result[i].X = nx
		result[i].Y = y

		gap := GapY
		if depth > 0 {
			gap = math.Floor(GapY * 0.55)
		}
		cy := y + nh + gap
		for _, childID := range children[id] {
			bottom := place(childID, nx, cy, depth+1)
			cy = bottom + math.Floor(GapY*0.45)
		}
		return cy
	}

	cx := treeOriginX
	for _, rootID := range roots {
		place(rootID, cx, treeOriginY, 0)
		cx += treeColumnW
	}

	return result
}
