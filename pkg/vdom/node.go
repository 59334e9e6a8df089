package vdom

import (
	"slices"

	"github.com/go-pink/pink/pkg/errors"
	"github.com/go-pink/pink/pkg/event"
	"github.com/go-pink/pink/pkg/host"
)

// Kind classifies a node.
type Kind int

const (
	KindElement Kind = iota
	KindText
	KindComment
)

func (k Kind) String() string {
	switch k {
	case KindElement:
		return "element"
	case KindText:
		return "text"
	case KindComment:
		return "comment"
	default:
		return "unknown"
	}
}

// Directive is a handler attached to a node by the directive engine.
type Directive interface {
	// Kind names the directive kind, for example "repeat".
	Kind() string
}

// Node is an element of the render tree. A parent owns the children in its
// list; the parent back-reference is used for scope resolution and
// traversal only.
type Node struct {
	doc   *Document
	id    uint64
	kind  Kind
	tag   string
	value string
	attrs []host.Attr

	children []*Node
	parent   *Node
	scope    *Scope
	// slotScope is where a slot filler resolves names once it has been
	// moved into a component's subtree.
	slotScope *Scope

	directives      []Directive
	templatedParent *Node

	isTemplate  bool
	isDynamic   bool
	isComponent bool
	visible     bool
	slotName    string
	refName     string

	styles  []host.Attr
	classes []host.Attr

	handle    host.Handle
	hostOffs  map[string]func()
	hub       event.Hub[Event]
	disposers []func()
	destroyed bool
}

func (n *Node) ID() uint64 { return n.id }
func (n *Node) Kind() Kind { return n.kind }
func (n *Node) Doc() *Document { return n.doc }
func (n *Node) Tag() string { return n.tag }
func (n *Node) Value() string { return n.value }
func (n *Node) Parent() *Node { return n.parent }
func (n *Node) Scope() *Scope { return n.scope }
func (n *Node) Handle() host.Handle { return n.handle }
func (n *Node) IsTemplate() bool { return n.isTemplate }
func (n *Node) IsDynamic() bool { return n.isDynamic }
func (n *Node) IsComponent() bool { return n.isComponent }
func (n *Node) IsVisible() bool { return n.visible }
func (n *Node) IsDestroyed() bool { return n.destroyed }
func (n *Node) SlotName() string { return n.slotName }
func (n *Node) RefName() string { return n.refName }
func (n *Node) TemplatedParent() *Node { return n.templatedParent }
func (n *Node) Directives() []Directive { return slices.Clone(n.directives) }
func (n *Node) SetSlotName(name string) { n.slotName = name }
func (n *Node) SetRefName(name string) { n.refName = name }
func (n *Node) SetSlotScope(s *Scope) { n.slotScope = s }
func (n *Node) AddDirective(d Directive) { n.directives = append(n.directives, d) }
func (n *Node) Hub() *event.Hub[Event] { return &n.hub }
func (n *Node) Children() []*Node { return slices.Clone(n.children) }
func (n *Node) Len() int { return len(n.children) }
func (n *Node) Attrs() []host.Attr { return slices.Clone(n.attrs) }
func (n *Node) Styles() []host.Attr { return slices.Clone(n.styles) }
func (n *Node) IsElement() bool { return n.kind == KindElement }
func (n *Node) Child(i int) *Node { return n.children[i] }

// Directive returns the first attached directive of the given kind.
func (n *Node) Directive(kind string) Directive {
	for _, d := range n.directives {
		if d.Kind() == kind {
			return d
		}
	}
	return nil
}

// IndexOf returns the position of child in n's children, or -1.
func (n *Node) IndexOf(child *Node) int {
	return slices.Index(n.children, child)
}

// Attr returns the raw value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttr sets an attribute and patches the host element.
func (n *Node) SetAttr(name, value string) {
	found := false
	for i := range n.attrs {
		if n.attrs[i].Name == name {
			n.attrs[i].Value = value
			found = true
			break
		}
	}
	if !found {
		n.attrs = append(n.attrs, host.Attr{Name: name, Value: value})
	}
	if n.liveElement() {
		n.doc.host.SetAttr(n.handle, name, value)
	}
}

// RemoveAttr removes an attribute from the node and the host element.
func (n *Node) RemoveAttr(name string) {
	for i := range n.attrs {
		if n.attrs[i].Name == name {
			n.attrs = append(n.attrs[:i], n.attrs[i+1:]...)
			break
		}
	}
	if n.liveElement() {
		n.doc.host.RemoveAttr(n.handle, name)
	}
}

// SetValue sets the text of a text or comment node.
func (n *Node) SetValue(value string) {
	if n.value == value {
		return
	}
	n.value = value
	if n.handle != nil && n.visible && n.kind != KindElement {
		n.doc.host.SetText(n.handle, value)
	}
}

// SetTag renames an element and rebuilds its host representation.
func (n *Node) SetTag(tag string) {
	if n.tag == tag {
		return
	}
	n.tag = tag
	if n.handle != nil {
		n.UpdateHTML()
	}
}

// SetStyle sets an inline style property kept across host rebuilds. An
// empty value removes it.
func (n *Node) SetStyle(prop, value string) {
	n.styles = setEntry(n.styles, prop, value)
	if n.liveElement() {
		n.doc.host.SetStyle(n.handle, prop, value)
	}
}

// ToggleClass adds or removes a class kept across host rebuilds.
func (n *Node) ToggleClass(class string, on bool) {
	v := ""
	if on {
		v = "on"
	}
	n.classes = setEntry(n.classes, class, v)
	if n.liveElement() {
		n.doc.host.ToggleClass(n.handle, class, on)
	}
}

func setEntry(entries []host.Attr, name, value string) []host.Attr {
	for i := range entries {
		if entries[i].Name == name {
			entries[i].Value = value
			return entries
		}
	}
	return append(entries, host.Attr{Name: name, Value: value})
}

func (n *Node) liveElement() bool {
	return n.handle != nil && n.visible && n.kind == KindElement && !n.isTemplate
}

// SetVisible toggles visibility. A hidden node is represented in the host
// by an empty comment; it keeps its children, scope and subscriptions.
func (n *Node) SetVisible(visible bool) {
	if n.visible == visible {
		return
	}
	n.visible = visible
	n.UpdateHTML()
}

// MakeTemplate turns n into a structural placeholder. Templates have no
// host representation.
func (n *Node) MakeTemplate() {
	if n.isTemplate {
		return
	}
	old := n.handle
	n.releaseHandles()
	n.isTemplate = true
	if old != nil {
		n.doc.host.Remove(old)
	}
}

// MakeDynamic marks n as generated by the structural directive attached to
// templatedParent.
func (n *Node) MakeDynamic(templatedParent *Node) {
	n.isDynamic = true
	n.templatedParent = templatedParent
}

// MakeComponent marks n as a component boundary.
func (n *Node) MakeComponent() {
	n.isComponent = true
}

// InsertNode inserts child at index i, which must be within [0, Len]. The
// child receives created, is placed in the host tree when n is rendered and
// then receives mounted.
func (n *Node) InsertNode(i int, child *Node) error {
	limit := len(n.children)
	if child.parent == n {
		limit--
	}
	if i < 0 || i > limit {
		err := errors.InsertBounds("vdom.InsertNode", "index", i, limit)
		err.Node = n.id
		return err
	}
	if child.parent != nil {
		child.parent.detach(child)
	}
	child.parent = n
	n.children = slices.Insert(n.children, i, child)
	child.emit(EventCreated, nil)
	child.mount()
	child.emit(EventMounted, nil)
	return nil
}

// AppendNode inserts child after the last child. A child of n moves to the
// end.
func (n *Node) AppendNode(child *Node) {
	i := len(n.children)
	if child.parent == n {
		i--
	}
	_ = n.InsertNode(i, child)
}

// RemoveNode destroys the child at index i, which must be within [0, Len).
func (n *Node) RemoveNode(i int) error {
	if i < 0 || i >= len(n.children) {
		return n.boundsError("vdom.RemoveNode", i)
	}
	child := n.children[i]
	n.children = slices.Delete(n.children, i, i+1)
	child.parent = nil
	child.Destroy()
	return nil
}

// ReplaceNode destroys the child at index i and puts next in its place.
func (n *Node) ReplaceNode(i int, next *Node) error {
	if i < 0 || i >= len(n.children) {
		return n.boundsError("vdom.ReplaceNode", i)
	}
	old := n.children[i]
	if next == old {
		return nil
	}
	if next.parent != nil {
		next.parent.detach(next)
		i = n.IndexOf(old)
	}
	oldHandle := old.handle
	old.releaseHandles()

	n.children[i] = next
	next.parent = n
	next.emit(EventCreated, nil)
	next.releaseHandles()
	if oldHandle != nil {
		if h := next.build(); h != nil {
			n.doc.host.Replace(oldHandle, h)
		} else {
			n.doc.host.Remove(oldHandle)
		}
	} else {
		next.mount()
	}

	old.parent = nil
	old.Destroy()
	next.emit(EventMounted, nil)
	return nil
}

// DetachNode removes the child at index i without destroying it. The child
// leaves the host tree and can be inserted elsewhere.
func (n *Node) DetachNode(i int) (*Node, error) {
	if i < 0 || i >= len(n.children) {
		return nil, n.boundsError("vdom.DetachNode", i)
	}
	child := n.children[i]
	n.detach(child)
	return child, nil
}

func (n *Node) detach(child *Node) {
	i := n.IndexOf(child)
	if i < 0 {
		return
	}
	n.children = slices.Delete(n.children, i, i+1)
	child.parent = nil
	old := child.handle
	child.releaseHandles()
	if old != nil {
		n.doc.host.Remove(old)
	}
}

func (n *Node) boundsError(op string, i int) error {
	err := errors.Bounds(op, "index", i, len(n.children))
	err.Node = n.id
	return err
}

// Destroy detaches n from the host tree, destroys its children, runs its
// disposers in reverse registration order and releases its id.
func (n *Node) Destroy() {
	if n.destroyed {
		return
	}
	n.emit(EventBeforeDestroy, nil)
	if n.handle != nil {
		n.doc.host.Remove(n.handle)
	}
	n.teardown()
}

func (n *Node) teardown() {
	children := slices.Clone(n.children)
	for i := len(children) - 1; i >= 0; i-- {
		child := children[i]
		if child.destroyed {
			continue
		}
		child.emit(EventBeforeDestroy, nil)
		child.teardown()
	}
	n.runDisposers()
	n.releaseHandles()
	n.destroyed = true
	n.doc.reg.unregister(n)
	n.emit(EventDestroyed, nil)
	n.hub.Clear()
	n.doc.logger.Debug("vdom: destroyed", "node", n.id, "tag", n.tag)
}

// Clone deep-copies the subtree rooted at n. Clones get fresh ids and
// scopes whose locals are deep copies of the source's; tag, value,
// attributes and the component, ref and slot markers are copied.
// Directives, subscriptions and host handles are not.
func (n *Node) Clone() *Node {
	c := n.doc.newNode(n.kind)
	c.tag = n.tag
	c.value = n.value
	c.attrs = slices.Clone(n.attrs)
	c.styles = slices.Clone(n.styles)
	c.classes = slices.Clone(n.classes)
	c.isComponent = n.isComponent
	c.slotName = n.slotName
	c.refName = n.refName
	c.slotScope = n.slotScope
	c.scope.copyLocals(n.scope)
	c.parent = n.parent
	for _, child := range n.children {
		cc := child.Clone()
		cc.parent = c
		if child.isDynamic {
			cc.isDynamic = true
			cc.templatedParent = child.templatedParent
		}
		c.children = append(c.children, cc)
	}
	return c
}

// UpdateHTML rebuilds the host representation of n from its current tag,
// value, attributes, visibility and children, and swaps it in place. When n
// has no host representation yet, it is placed after its nearest rendered
// previous sibling within the parent.
func (n *Node) UpdateHTML() {
	if n.destroyed {
		return
	}
	old := n.handle
	if old == nil {
		n.mount()
		return
	}
	n.releaseHandles()
	h := n.build()
	switch {
	case h != nil:
		n.doc.host.Replace(old, h)
	default:
		n.doc.host.Remove(old)
	}
}

// mount places a freshly built host representation of n when its parent is
// rendered.
func (n *Node) mount() {
	n.releaseHandles()
	parent, ref, ok := n.hostPosition()
	if !ok {
		return
	}
	if h := n.build(); h != nil {
		n.doc.host.InsertBefore(parent, h, ref)
	}
}

// hostPosition returns the host parent of n and the handle n must be
// inserted before.
func (n *Node) hostPosition() (parent, ref host.Handle, ok bool) {
	p := n.parent
	if p == nil || !p.liveElement() {
		return nil, nil, false
	}
	i := p.IndexOf(n)
	if i < 0 {
		return nil, nil, false
	}
	for _, sib := range p.children[i+1:] {
		if sib.handle != nil {
			return p.handle, sib.handle, true
		}
	}
	return p.handle, nil, true
}

// build creates host nodes for n and its subtree.
func (n *Node) build() host.Handle {
	h := n.doc.host
	var handle host.Handle
	switch {
	case n.isTemplate, n.kind == KindComment, n.kind == KindElement && n.tag == "script":
		return nil
	case !n.visible:
		handle = h.CreateComment("")
	case n.kind == KindText:
		handle = h.CreateText(n.value)
	default:
		handle = h.CreateElement(n.tag)
		for _, a := range n.attrs {
			h.SetAttr(handle, a.Name, a.Value)
		}
		for _, s := range n.styles {
			h.SetStyle(handle, s.Name, s.Value)
		}
		for _, c := range n.classes {
			h.ToggleClass(handle, c.Name, c.Value != "")
		}
		for _, child := range n.children {
			if ch := child.build(); ch != nil {
				h.InsertBefore(handle, ch, nil)
			}
		}
	}
	n.setHandle(handle)
	return handle
}

func (n *Node) setHandle(h host.Handle) {
	n.handle = h
	n.doc.reg.bind(n, h)
	n.installListeners()
}

// releaseHandles forgets the host handles of n and its subtree without
// touching the host tree.
func (n *Node) releaseHandles() {
	for _, child := range n.children {
		child.releaseHandles()
	}
	for _, off := range n.hostOffs {
		off()
	}
	n.hostOffs = nil
	if n.handle != nil {
		n.doc.reg.unbind(n.handle)
		n.handle = nil
	}
}
