package vdom

// FindNode returns the first descendant of n, in depth-first pre-order,
// satisfying pred. Component subtrees are skipped unless deep is set.
func (n *Node) FindNode(pred func(*Node) bool, deep bool) *Node {
	var found *Node
	n.walk(deep, func(c *Node) bool {
		if pred(c) {
			found = c
			return false
		}
		return true
	})
	return found
}

// FilterNodes returns every descendant of n satisfying pred, in depth-first
// pre-order. Component subtrees are skipped unless deep is set.
func (n *Node) FilterNodes(pred func(*Node) bool, deep bool) []*Node {
	var out []*Node
	n.walk(deep, func(c *Node) bool {
		if pred(c) {
			out = append(out, c)
		}
		return true
	})
	return out
}

// GetRefs returns the descendants of n declared with ref name. Refs inside
// nested components are not visible.
func (n *Node) GetRefs(name string) []*Node {
	return n.FilterNodes(func(c *Node) bool { return c.refName == name }, false)
}

// walk visits the descendants of n until visit returns false.
func (n *Node) walk(deep bool, visit func(*Node) bool) bool {
	for _, c := range n.children {
		if !visit(c) {
			return false
		}
		if c.isComponent && !deep {
			continue
		}
		if !c.walk(deep, visit) {
			return false
		}
	}
	return true
}
