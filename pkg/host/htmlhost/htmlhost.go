// Package htmlhost implements host.Host over an in-memory
// golang.org/x/net/html tree. It is the host used by the CLI, the
// inspection server and tests.
package htmlhost

import (
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/go-pink/pink/pkg/host"
)

type listener struct {
	fn     host.Listener
	active bool
}

// Host is an in-memory host document. It is not safe for concurrent use.
type Host struct {
	doc       *html.Node
	listeners map[*html.Node]map[string][]*listener
}

var _ host.Host = (*Host)(nil)

// New returns a host holding an empty html/head/body document.
func New() *Host {
	h, _ := ParseString("")
	return h
}

// Parse reads a complete HTML document.
func Parse(r io.Reader) (*Host, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return &Host{doc: doc, listeners: make(map[*html.Node]map[string][]*listener)}, nil
}

// ParseString is Parse over a string.
func ParseString(src string) (*Host, error) {
	return Parse(strings.NewReader(src))
}

// Document returns the document node.
func (h *Host) Document() host.Handle { return h.doc }

// Head returns the head element.
func (h *Host) Head() host.Handle { return h.find(atom.Head) }

// Body returns the body element.
func (h *Host) Body() host.Handle { return h.find(atom.Body) }

func (h *Host) find(a atom.Atom) *html.Node {
	var walk func(n *html.Node) *html.Node
	walk = func(n *html.Node) *html.Node {
		if n.Type == html.ElementNode && n.DataAtom == a {
			return n
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if found := walk(c); found != nil {
				return found
			}
		}
		return nil
	}
	return walk(h.doc)
}

func node(hd host.Handle) *html.Node {
	n, _ := hd.(*html.Node)
	return n
}

func (h *Host) CreateElement(tag string) host.Handle {
	tag = strings.ToLower(tag)
	return &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
}

func (h *Host) CreateText(text string) host.Handle {
	return &html.Node{Type: html.TextNode, Data: text}
}

func (h *Host) CreateComment(text string) host.Handle {
	return &html.Node{Type: html.CommentNode, Data: text}
}

func (h *Host) Kind(hd host.Handle) host.Kind {
	n := node(hd)
	if n == nil {
		return host.KindOther
	}
	switch n.Type {
	case html.ElementNode:
		return host.KindElement
	case html.TextNode:
		return host.KindText
	case html.CommentNode:
		return host.KindComment
	case html.DocumentNode:
		return host.KindDocument
	default:
		return host.KindOther
	}
}

func (h *Host) Tag(hd host.Handle) string {
	if n := node(hd); n != nil && n.Type == html.ElementNode {
		return n.Data
	}
	return ""
}

func (h *Host) Text(hd host.Handle) string {
	if n := node(hd); n != nil && (n.Type == html.TextNode || n.Type == html.CommentNode) {
		return n.Data
	}
	return ""
}

func (h *Host) Attrs(hd host.Handle) []host.Attr {
	n := node(hd)
	if n == nil {
		return nil
	}
	out := make([]host.Attr, len(n.Attr))
	for i, a := range n.Attr {
		name := a.Key
		if a.Namespace != "" {
			name = a.Namespace + ":" + a.Key
		}
		out[i] = host.Attr{Name: name, Value: a.Val}
	}
	return out
}

func (h *Host) SetAttr(hd host.Handle, name, value string) {
	n := node(hd)
	if n == nil || n.Type != html.ElementNode {
		return
	}
	for i := range n.Attr {
		if n.Attr[i].Key == name && n.Attr[i].Namespace == "" {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

func (h *Host) RemoveAttr(hd host.Handle, name string) {
	n := node(hd)
	if n == nil {
		return
	}
	for i := range n.Attr {
		if n.Attr[i].Key == name && n.Attr[i].Namespace == "" {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

func (h *Host) getAttr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name && a.Namespace == "" {
			return a.Val, true
		}
	}
	return "", false
}

func (h *Host) SetText(hd host.Handle, text string) {
	if n := node(hd); n != nil && (n.Type == html.TextNode || n.Type == html.CommentNode) {
		n.Data = text
	}
}

func (h *Host) SetStyle(hd host.Handle, prop, value string) {
	n := node(hd)
	if n == nil || n.Type != html.ElementNode {
		return
	}
	raw, _ := h.getAttr(n, "style")
	decls := parseStyle(raw)
	prop = strings.TrimSpace(prop)
	found := false
	for i := 0; i < len(decls); i++ {
		if decls[i].Name != prop {
			continue
		}
		found = true
		if value == "" {
			decls = append(decls[:i], decls[i+1:]...)
			i--
			continue
		}
		decls[i].Value = value
	}
	if !found && value != "" {
		decls = append(decls, host.Attr{Name: prop, Value: value})
	}
	if len(decls) == 0 {
		h.RemoveAttr(n, "style")
		return
	}
	parts := make([]string, len(decls))
	for i, d := range decls {
		parts[i] = d.Name + ": " + d.Value
	}
	h.SetAttr(n, "style", strings.Join(parts, "; ")+";")
}

func parseStyle(raw string) []host.Attr {
	var decls []host.Attr
	for _, part := range strings.Split(raw, ";") {
		name, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		name, value = strings.TrimSpace(name), strings.TrimSpace(value)
		if name == "" {
			continue
		}
		decls = append(decls, host.Attr{Name: name, Value: value})
	}
	return decls
}

func (h *Host) ToggleClass(hd host.Handle, class string, on bool) {
	n := node(hd)
	if n == nil || n.Type != html.ElementNode || class == "" {
		return
	}
	raw, _ := h.getAttr(n, "class")
	var classes []string
	present := false
	for _, c := range strings.Fields(raw) {
		if c == class {
			present = true
			if !on {
				continue
			}
		}
		classes = append(classes, c)
	}
	if on && !present {
		classes = append(classes, class)
	}
	if len(classes) == 0 {
		h.RemoveAttr(n, "class")
		return
	}
	h.SetAttr(n, "class", strings.Join(classes, " "))
}

func (h *Host) Parent(hd host.Handle) host.Handle {
	if n := node(hd); n != nil && n.Parent != nil {
		return n.Parent
	}
	return nil
}

func (h *Host) NextSibling(hd host.Handle) host.Handle {
	if n := node(hd); n != nil && n.NextSibling != nil {
		return n.NextSibling
	}
	return nil
}

func (h *Host) Children(hd host.Handle) []host.Handle {
	n := node(hd)
	if n == nil {
		return nil
	}
	var out []host.Handle
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

func detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

func (h *Host) InsertBefore(parent, child, ref host.Handle) {
	p, c := node(parent), node(child)
	if p == nil || c == nil {
		return
	}
	detach(c)
	r := node(ref)
	if r != nil && r.Parent != p {
		r = nil
	}
	p.InsertBefore(c, r)
}

func (h *Host) Replace(old, next host.Handle) {
	o, n := node(old), node(next)
	if o == nil || n == nil || o == n || o.Parent == nil {
		return
	}
	detach(n)
	p := o.Parent
	p.InsertBefore(n, o)
	p.RemoveChild(o)
}

func (h *Host) Remove(hd host.Handle) {
	if n := node(hd); n != nil {
		detach(n)
	}
}

func (h *Host) AddListener(hd host.Handle, event string, fn host.Listener) func() {
	n := node(hd)
	if n == nil || fn == nil {
		return func() {}
	}
	byName := h.listeners[n]
	if byName == nil {
		byName = make(map[string][]*listener)
		h.listeners[n] = byName
	}
	l := &listener{fn: fn, active: true}
	byName[event] = append(byName[event], l)
	return func() {
		if !l.active {
			return
		}
		l.active = false
		list := h.listeners[n][event]
		for i, x := range list {
			if x == l {
				h.listeners[n][event] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
	}
}

// Dispatch simulates a platform event on hd. It reports whether any listener
// ran.
func (h *Host) Dispatch(hd host.Handle, event string, data any) bool {
	n := node(hd)
	if n == nil {
		return false
	}
	list := h.listeners[n][event]
	if len(list) == 0 {
		return false
	}
	snapshot := make([]*listener, len(list))
	copy(snapshot, list)
	ran := false
	for _, l := range snapshot {
		if l.active {
			l.fn(data)
			ran = true
		}
	}
	return ran
}

// Listeners returns how many listeners for event are installed on hd.
func (h *Host) Listeners(hd host.Handle, event string) int {
	n := node(hd)
	if n == nil {
		return 0
	}
	return len(h.listeners[n][event])
}

func (h *Host) InjectStyle(css string) {
	head := h.find(atom.Head)
	if head == nil {
		head = h.doc
	}
	style := &html.Node{Type: html.ElementNode, Data: "style", DataAtom: atom.Style}
	style.AppendChild(&html.Node{Type: html.TextNode, Data: css})
	head.AppendChild(style)
}

// Render serializes hd and its subtree.
func (h *Host) Render(hd host.Handle) string {
	n := node(hd)
	if n == nil {
		return ""
	}
	var sb strings.Builder
	if err := html.Render(&sb, n); err != nil {
		return ""
	}
	return sb.String()
}

// InnerHTML serializes the children of hd.
func (h *Host) InnerHTML(hd host.Handle) string {
	n := node(hd)
	if n == nil {
		return ""
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&sb, c); err != nil {
			return ""
		}
	}
	return sb.String()
}
