package vdom

import (
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-pink/pink/pkg/host"
	"github.com/go-pink/pink/pkg/reactive"
	"github.com/go-pink/pink/pkg/track"
)

// Document owns a render tree: the host it patches, the tracker observing
// every scope, the global scope and the id registry.
type Document struct {
	host    host.Host
	tracker *track.Tracker
	globals *Scope
	reg     *Registry
	styles  map[[sha256.Size]byte]bool
	logger  *slog.Logger
	nextID  uint64
}

// NewDocument returns a document patching h. A nil tracker disables
// dependency tracking.
func NewDocument(h host.Host, tracker *track.Tracker) *Document {
	d := &Document{
		host:    h,
		tracker: tracker,
		reg:     NewRegistry(),
		styles:  make(map[[sha256.Size]byte]bool),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	d.globals = &Scope{doc: d, locals: reactive.NewObject(d.observer())}
	return d
}

// SetLogger sets the logger used for tree diagnostics.
func (d *Document) SetLogger(l *slog.Logger) {
	if l != nil {
		d.logger = l
	}
}

func (d *Document) Logger() *slog.Logger { return d.logger }

func (d *Document) Host() host.Host { return d.host }

func (d *Document) Tracker() *track.Tracker { return d.tracker }

// Globals is the scope every resolution chain ends at.
func (d *Document) Globals() *Scope { return d.globals }

func (d *Document) Registry() *Registry { return d.reg }

func (d *Document) observer() reactive.Observer {
	if d.tracker == nil {
		return nil
	}
	return d.tracker
}

func (d *Document) newNode(kind Kind) *Node {
	d.nextID++
	n := &Node{doc: d, id: d.nextID, kind: kind, visible: true}
	n.scope = newScope(d, n)
	d.reg.register(n)
	return n
}

// NewElement returns a detached element node.
func (d *Document) NewElement(tag string, attrs ...host.Attr) *Node {
	n := d.newNode(KindElement)
	n.tag = tag
	n.attrs = append([]host.Attr(nil), attrs...)
	return n
}

// NewText returns a detached text node.
func (d *Document) NewText(value string) *Node {
	n := d.newNode(KindText)
	n.value = value
	return n
}

// NewComment returns a detached comment node.
func (d *Document) NewComment(value string) *Node {
	n := d.newNode(KindComment)
	n.value = value
	return n
}

// Build mirrors the host subtree rooted at h into a render tree. The nodes
// adopt the existing host handles.
func (d *Document) Build(h host.Handle) (*Node, error) {
	if d.host.Kind(h) != host.KindElement {
		return nil, fmt.Errorf("vdom: cannot build from a %s node", d.host.Kind(h))
	}
	return d.build(h), nil
}

func (d *Document) build(h host.Handle) *Node {
	var n *Node
	switch d.host.Kind(h) {
	case host.KindElement:
		n = d.NewElement(d.host.Tag(h), d.host.Attrs(h)...)
		for _, c := range d.host.Children(h) {
			child := d.build(c)
			if child == nil {
				continue
			}
			child.parent = n
			n.children = append(n.children, child)
		}
	case host.KindText:
		n = d.NewText(d.host.Text(h))
	case host.KindComment:
		n = d.NewComment(d.host.Text(h))
	default:
		return nil
	}
	n.setHandle(h)
	return n
}

// Instantiate creates detached nodes from a static template.
func (d *Document) Instantiate(t *Template) *Node {
	var n *Node
	switch t.Kind {
	case KindText:
		n = d.NewText(t.Value)
	case KindComment:
		n = d.NewComment(t.Value)
	default:
		n = d.NewElement(t.Tag, t.Attrs...)
		for _, ct := range t.Children {
			child := d.Instantiate(ct)
			child.parent = n
			n.children = append(n.children, child)
		}
	}
	return n
}

// InjectStyle adds css to the host style area once per distinct content.
// It reports whether the sheet was injected.
func (d *Document) InjectStyle(css string) bool {
	sum := sha256.Sum256([]byte(css))
	if d.styles[sum] {
		return false
	}
	d.styles[sum] = true
	d.host.InjectStyle(css)
	return true
}

// NodeByID returns the live node with the given id.
func (d *Document) NodeByID(id uint64) *Node { return d.reg.Node(id) }

// NodeFor returns the node represented by h.
func (d *Document) NodeFor(h host.Handle) *Node { return d.reg.NodeFor(h) }
