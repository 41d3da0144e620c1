package hierarchy

import (
	"sort"

	"github.com/starford/sprig/internal/models"
)

// Node is one item of a tree together with its children.
type Node[T any] struct {
	Item     T          `json:"item"`
	Kind     string     `json:"hierarchy_type,omitempty"`
	Children []*Node[T] `json:"children"`
}

// BuildTree nests items according to edges. Items without a parent edge, or
// whose parent is not among items, become roots. Roots and children are
// ordered by id.
func BuildTree[T any](items []T, idOf func(T) int64, edges []models.Edge) []*Node[T] {
	nodes := make(map[int64]*Node[T], len(items))
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		id := idOf(it)
		nodes[id] = &Node[T]{Item: it, Children: []*Node[T]{}}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	parentOf := make(map[int64]int64, len(edges))
	for _, e := range edges {
		if _, ok := nodes[e.ChildID]; !ok {
			continue
		}
		if _, ok := nodes[e.ParentID]; !ok {
			continue
		}
		parentOf[e.ChildID] = e.ParentID
		nodes[e.ChildID].Kind = e.Kind
	}

	roots := []*Node[T]{}
	for _, id := range ids {
		n := nodes[id]
		if p, ok := parentOf[id]; ok {
			nodes[p].Children = append(nodes[p].Children, n)
			continue
		}
		roots = append(roots, n)
	}
	return roots
}
