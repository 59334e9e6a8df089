package testing

import (
	"fmt"
	"strings"

	"github.com/go-pink/pink/pkg/vdom"
)

// Finder locates nodes in the render tree. Templates and hidden nodes are
// not rendered and are never matched, nor is anything beneath them.
type Finder interface {
	// Evaluate returns all matching nodes under root (depth-first pre-order).
	Evaluate(root *vdom.Node) []*vdom.Node
	// Description returns a human-readable description for error messages.
	Description() string
}

// FinderResult wraps finder results with convenient accessors.
type FinderResult struct {
	nodes  []*vdom.Node
	finder Finder
}

// First returns the first match. Panics if no matches.
func (r FinderResult) First() *vdom.Node {
	if len(r.nodes) == 0 {
		panic(fmt.Sprintf("Finder found no nodes: %s", r.describe()))
	}
	return r.nodes[0]
}

// FirstOrNil returns the first match, or nil if none.
func (r FinderResult) FirstOrNil() *vdom.Node {
	if len(r.nodes) == 0 {
		return nil
	}
	return r.nodes[0]
}

// At returns the match at index. Panics if out of range.
func (r FinderResult) At(index int) *vdom.Node {
	if index < 0 || index >= len(r.nodes) {
		panic(fmt.Sprintf("Finder index %d out of range (found %d): %s", index, len(r.nodes), r.describe()))
	}
	return r.nodes[index]
}

// All returns all matches in traversal order.
func (r FinderResult) All() []*vdom.Node {
	return r.nodes
}

// Count returns the number of matches.
func (r FinderResult) Count() int {
	return len(r.nodes)
}

// Exists reports whether at least one node matched.
func (r FinderResult) Exists() bool {
	return len(r.nodes) > 0
}

// Texts returns the own text of every match.
func (r FinderResult) Texts() []string {
	out := make([]string, len(r.nodes))
	for i, n := range r.nodes {
		out[i] = OwnText(n)
	}
	return out
}

func (r FinderResult) describe() string {
	if r.finder == nil {
		return "unknown"
	}
	return r.finder.Description()
}

// --- Finders ---

type predicateFinder struct {
	desc string
	fn   func(*vdom.Node) bool
}

func (f *predicateFinder) Evaluate(root *vdom.Node) []*vdom.Node {
	return collectMatches(root, f.fn)
}

func (f *predicateFinder) Description() string { return f.desc }

// ByTag finds elements with the given tag name.
func ByTag(tag string) Finder {
	tag = strings.ToLower(tag)
	return &predicateFinder{
		desc: fmt.Sprintf("ByTag(%s)", tag),
		fn: func(n *vdom.Node) bool {
			return n.IsElement() && n.Tag() == tag
		},
	}
}

// ByText finds elements whose own text equals text exactly.
func ByText(text string) Finder {
	return &predicateFinder{
		desc: fmt.Sprintf("ByText(%q)", text),
		fn: func(n *vdom.Node) bool {
			return n.IsElement() && OwnText(n) == text
		},
	}
}

// ByTextContaining finds elements whose own text contains substring.
func ByTextContaining(substring string) Finder {
	return &predicateFinder{
		desc: fmt.Sprintf("ByTextContaining(%q)", substring),
		fn: func(n *vdom.Node) bool {
			return n.IsElement() && strings.Contains(OwnText(n), substring)
		},
	}
}

// ByRef finds nodes carrying the ref name.
func ByRef(name string) Finder {
	return &predicateFinder{
		desc: fmt.Sprintf("ByRef(%s)", name),
		fn: func(n *vdom.Node) bool {
			return n.RefName() == name
		},
	}
}

// ByAttr finds elements whose attribute name equals value.
func ByAttr(name, value string) Finder {
	return &predicateFinder{
		desc: fmt.Sprintf("ByAttr(%s=%q)", name, value),
		fn: func(n *vdom.Node) bool {
			v, ok := n.Attr(name)
			return ok && v == value
		},
	}
}

// ByID finds elements whose id attribute equals id.
func ByID(id string) Finder {
	f := ByAttr("id", id).(*predicateFinder)
	f.desc = fmt.Sprintf("ByID(%s)", id)
	return f
}

// ByPredicate finds nodes matching a custom predicate.
func ByPredicate(fn func(*vdom.Node) bool) Finder {
	return &predicateFinder{desc: "ByPredicate(custom)", fn: fn}
}

type descendantFinder struct {
	of       Finder
	matching Finder
}

func (f *descendantFinder) Evaluate(root *vdom.Node) []*vdom.Node {
	seen := make(map[*vdom.Node]bool)
	var result []*vdom.Node
	for _, ancestor := range f.of.Evaluate(root) {
		for _, child := range ancestor.Children() {
			for _, m := range f.matching.Evaluate(child) {
				if !seen[m] {
					seen[m] = true
					result = append(result, m)
				}
			}
		}
	}
	return result
}

func (f *descendantFinder) Description() string {
	return fmt.Sprintf("Descendant(of: %s, matching: %s)", f.of.Description(), f.matching.Description())
}

// Descendant finds nodes matching `matching` that are strict descendants
// of nodes matching `of`.
func Descendant(of, matching Finder) Finder {
	return &descendantFinder{of: of, matching: matching}
}

type ancestorFinder struct {
	of       Finder
	matching Finder
}

func (f *ancestorFinder) Evaluate(root *vdom.Node) []*vdom.Node {
	targets := f.of.Evaluate(root)
	var result []*vdom.Node
	for _, candidate := range f.matching.Evaluate(root) {
		for _, t := range targets {
			if isAncestorOf(candidate, t) {
				result = append(result, candidate)
				break
			}
		}
	}
	return result
}

func (f *ancestorFinder) Description() string {
	return fmt.Sprintf("Ancestor(of: %s, matching: %s)", f.of.Description(), f.matching.Description())
}

// Ancestor finds nodes matching `matching` that are strict ancestors of
// nodes matching `of`.
func Ancestor(of, matching Finder) Finder {
	return &ancestorFinder{of: of, matching: matching}
}

func isAncestorOf(ancestor, descendant *vdom.Node) bool {
	for p := descendant.Parent(); p != nil; p = p.Parent() {
		if p == ancestor {
			return true
		}
	}
	return false
}

// OwnText concatenates the rendered text children of n, without
// descending into child elements.
func OwnText(n *vdom.Node) string {
	var b strings.Builder
	for _, c := range n.Children() {
		if c.Kind() == vdom.KindText && rendered(c) {
			b.WriteString(c.Value())
		}
	}
	return b.String()
}

func rendered(n *vdom.Node) bool {
	return n.IsVisible() && !n.IsTemplate() && !n.IsDestroyed()
}

func collectMatches(root *vdom.Node, predicate func(*vdom.Node) bool) []*vdom.Node {
	var result []*vdom.Node
	walkTree(root, func(n *vdom.Node) bool {
		if predicate(n) {
			result = append(result, n)
		}
		return true
	})
	return result
}

// walkTree visits rendered nodes in pre-order. Returning false from
// visitor skips the node's subtree.
func walkTree(root *vdom.Node, visitor func(*vdom.Node) bool) {
	if root == nil || !rendered(root) {
		return
	}
	if !visitor(root) {
		return
	}
	for _, c := range root.Children() {
		walkTree(c, visitor)
	}
}
