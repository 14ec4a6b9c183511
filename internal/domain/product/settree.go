package product

// SetNode is one row of the product set hierarchy. ParentID is empty for root
// sets.
type SetNode struct {
	ID       string
	ParentID string
}

// SetTree is an in-memory view of the product set hierarchy, loaded once per
// pricing request.
type SetTree struct {
	parent map[string]string
}

// NewSetTree builds a tree from its rows.
func NewSetTree(nodes []SetNode) *SetTree {
	t := &SetTree{parent: make(map[string]string, len(nodes))}
	for _, n := range nodes {
		t.parent[n.ID] = n.ParentID
	}
	return t
}

// Lineage returns id followed by all of its ancestors, nearest first. The walk
// stops at a root or when a cycle is detected.
func (t *SetTree) Lineage(id string) []string {
	out := []string{id}
	if t == nil {
		return out
	}

	seen := map[string]struct{}{id: {}}
	for cur := t.parent[id]; cur != ""; cur = t.parent[cur] {
		if _, ok := seen[cur]; ok {
			break
		}
		seen[cur] = struct{}{}
		out = append(out, cur)
	}
	return out
}

// InAny reports whether any of setIDs, or any of their ancestors, is listed.
// A product attached to a grandchild of a listed set is a member of it.
func (t *SetTree) InAny(setIDs, listed []string) bool {
	if len(setIDs) == 0 || len(listed) == 0 {
		return false
	}

	want := make(map[string]struct{}, len(listed))
	for _, id := range listed {
		want[id] = struct{}{}
	}
	for _, id := range setIDs {
		for _, s := range t.Lineage(id) {
			if _, ok := want[s]; ok {
				return true
			}
		}
	}
	return false
}
