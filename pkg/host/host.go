// Package host defines the boundary between the render tree and the platform
// tree it drives.
//
// The runtime never reaches into platform objects. It holds opaque Handles
// and asks a Host to create, patch and query them. The htmlhost subpackage
// provides an in-memory implementation over golang.org/x/net/html.
package host

// Handle is an opaque reference to a platform node. Handles must be
// comparable; they are used as map keys by the render tree's id registry.
type Handle interface{}

// Kind classifies a platform node.
type Kind int

const (
	KindOther Kind = iota
	KindElement
	KindText
	KindComment
	KindDocument
)

func (k Kind) String() string {
	switch k {
	case KindElement:
		return "element"
	case KindText:
		return "text"
	case KindComment:
		return "comment"
	case KindDocument:
		return "document"
	default:
		return "other"
	}
}

// Attr is a name/value attribute pair in source order.
type Attr struct {
	Name  string
	Value string
}

// Listener receives platform events. data is host specific; htmlhost passes
// whatever the dispatcher supplied.
type Listener func(data any)

// Host is the platform capability consumed by the render tree.
type Host interface {
	CreateElement(tag string) Handle
	CreateText(text string) Handle
	CreateComment(text string) Handle

	// Kind, Tag, Text and Attrs read back a node. Text returns the data of
	// text and comment nodes.
	Kind(h Handle) Kind
	Tag(h Handle) string
	Text(h Handle) string
	Attrs(h Handle) []Attr

	SetAttr(h Handle, name, value string)
	RemoveAttr(h Handle, name string)
	SetText(h Handle, text string)
	// SetStyle sets one inline style property. An empty value removes it.
	SetStyle(h Handle, prop, value string)
	// ToggleClass adds or removes one class name.
	ToggleClass(h Handle, class string, on bool)

	Parent(h Handle) Handle
	NextSibling(h Handle) Handle
	Children(h Handle) []Handle
	// InsertBefore inserts child under parent before ref, or appends when
	// ref is nil. child is detached from any previous parent first.
	InsertBefore(parent, child, ref Handle)
	// Replace puts next where old is. old is detached.
	Replace(old, next Handle)
	Remove(h Handle)

	// AddListener installs fn for event on h and returns its remover.
	AddListener(h Handle, event string, fn Listener) (remove func())
	// InjectStyle adds a style sheet to the shared document style area.
	InjectStyle(css string)
}
