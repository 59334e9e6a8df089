package vdom

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/go-pink/pink/pkg/errors"
	"github.com/go-pink/pink/pkg/eval"
	"github.com/go-pink/pink/pkg/reactive"
)

// HookGet is passed to get hooks. A hook that sets Handled supplies Value
// as the result of the lookup.
type HookGet struct {
	Scope   *Scope
	Name    string
	Value   any
	Handled bool
}

// HookSet is passed to set hooks. A hook that sets Handled consumes the
// write; Err is returned to the writer.
type HookSet struct {
	Scope   *Scope
	Name    string
	Value   any
	Handled bool
	Err     error
}

// Hook intercepts scope reads and writes. Either function may be nil.
type Hook struct {
	Get func(*HookGet)
	Set func(*HookSet)
}

// Scope is the name resolution context of a node. Reads fall through to
// the parent node's scope unless the node is a component boundary, and end
// at the document's global scope.
type Scope struct {
	doc    *Document
	node   *Node
	locals *reactive.Object
	hooks  []*Hook
}

func newScope(d *Document, n *Node) *Scope {
	return &Scope{doc: d, node: n, locals: reactive.NewObject(d.observer())}
}

// Node returns the node owning s, or nil for the global scope.
func (s *Scope) Node() *Node { return s.node }

// Locals returns the container holding the names declared on s.
func (s *Scope) Locals() *reactive.Object { return s.locals }

// AddHook installs h after the existing hooks.
func (s *Scope) AddHook(h *Hook) (remove func()) {
	s.hooks = append(s.hooks, h)
	return func() {
		for i, hh := range s.hooks {
			if hh == h {
				s.hooks = append(s.hooks[:i], s.hooks[i+1:]...)
				return
			}
		}
	}
}

// Get resolves name.
func (s *Scope) Get(name string) (any, bool) {
	for _, h := range s.hooks {
		if h.Get == nil {
			continue
		}
		e := &HookGet{Scope: s, Name: name}
		h.Get(e)
		if e.Handled {
			return e.Value, true
		}
	}
	if s.node == nil || s.locals.Has(name) {
		return s.locals.Get(name)
	}
	if v, ok := s.sigil(name); ok {
		return v, true
	}
	if next := s.next(); next != nil {
		return next.Get(name)
	}
	return nil, false
}

// next returns the scope reads continue at.
func (s *Scope) next() *Scope {
	n := s.node
	switch {
	case n == nil:
		return nil
	case n.slotScope != nil:
		return n.slotScope
	case n.isComponent || n.parent == nil:
		return s.doc.globals
	default:
		return n.parent.scope
	}
}

// Set writes name on the nearest scope that already declares it without
// crossing a component boundary. The global scope is consulted at the root
// of the tree. Undeclared names are declared on s.
func (s *Scope) Set(name string, v any) error {
	for _, h := range s.hooks {
		if h.Set == nil {
			continue
		}
		e := &HookSet{Scope: s, Name: name, Value: v}
		h.Set(e)
		if e.Handled {
			return e.Err
		}
	}
	if s.node != nil && isSigil(name) && !s.locals.Has(name) {
		if handled, err := s.setSigil(name, v); handled {
			return err
		}
	}
	if owner := s.owner(name); owner != nil {
		owner.locals.Set(name, v)
		return nil
	}
	s.locals.Set(name, v)
	return nil
}

func (s *Scope) owner(name string) *Scope {
	for cur := s; cur != nil; {
		if cur.locals.Has(name) {
			return cur
		}
		n := cur.node
		switch {
		case n == nil:
			return nil
		case n.slotScope != nil:
			cur = n.slotScope
		case n.isComponent:
			return nil
		case n.parent == nil:
			cur = s.doc.globals
		default:
			cur = n.parent.scope
		}
	}
	return nil
}

// Declare writes name on s regardless of outer declarations.
func (s *Scope) Declare(name string, v any) {
	s.locals.Set(name, v)
}

// Lookup is Get without the presence flag.
func (s *Scope) Lookup(name string) any {
	v, _ := s.Get(name)
	return v
}

// propertyName maps the text after the sigil to a node property name.
func propertyName(name string) string {
	return cases.Title(language.Und, cases.NoLower).String(name[1:])
}

func isSigil(name string) bool {
	return len(name) > 1 && name[0] == '$'
}

// sigil resolves $name to the node property it names: $tag, $value,
// $parent, $refs and so on.
func (s *Scope) sigil(name string) (any, bool) {
	if !isSigil(name) {
		return nil, false
	}
	n := s.node
	switch propertyName(name) {
	case "Node":
		return n, true
	case "ID", "Id":
		return n.id, true
	case "Tag":
		return n.tag, true
	case "Value":
		return n.value, true
	case "Parent":
		return n.parent, true
	case "Children":
		return n.Children(), true
	case "Attrs", "Attributes":
		m := make(map[string]any, len(n.attrs))
		for _, a := range n.attrs {
			m[a.Name] = a.Value
		}
		return m, true
	case "RefName":
		return n.refName, true
	case "SlotName":
		return n.slotName, true
	case "IsVisible":
		return n.visible, true
	case "IsComponent":
		return n.isComponent, true
	case "IsTemplate":
		return n.isTemplate, true
	case "IsDynamic":
		return n.isDynamic, true
	case "TemplatedParent":
		return n.templatedParent, true
	case "Refs":
		return Refs{node: n}, true
	case "Scope":
		return s, true
	}
	return nil, false
}

func (s *Scope) setSigil(name string, v any) (bool, error) {
	switch propertyName(name) {
	case "Value":
		s.node.SetValue(eval.Stringify(v))
		return true, nil
	case "IsVisible":
		s.node.SetVisible(eval.Truthy(v))
		return true, nil
	case "Tag":
		s.node.SetTag(strings.ToLower(eval.Stringify(v)))
		return true, nil
	}
	if _, ok := s.sigil(name); ok {
		return true, errors.NotImplemented("vdom.Scope.Set", "assignment to "+name)
	}
	return false, nil
}

// Refs resolves ref names to the first matching node in a subtree. It is
// exposed to expressions as $refs.
type Refs struct {
	node *Node
}

func (r Refs) Get(name string) (any, bool) {
	refs := r.node.GetRefs(name)
	if len(refs) == 0 {
		return nil, false
	}
	return refs[0], true
}

func (r Refs) Set(name string, _ any) error {
	return errors.NotImplemented("vdom.Refs", "assignment to $refs."+name)
}

func (s *Scope) copyLocals(from *Scope) {
	s.locals = reactive.Clone(from.locals, s.doc.observer()).(*reactive.Object)
}
