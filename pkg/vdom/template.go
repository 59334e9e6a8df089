package vdom

import "github.com/go-pink/pink/pkg/host"

// Template is a static, host-independent description of a subtree. Parsed
// component fragments are held as templates and instantiated per use.
type Template struct {
	Kind     Kind
	Tag      string
	Value    string
	Attrs    []host.Attr
	Children []*Template
}

// Attr returns the value of the named attribute.
func (t *Template) Attr(name string) (string, bool) {
	for _, a := range t.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Elements returns the element children of t.
func (t *Template) Elements() []*Template {
	var out []*Template
	for _, c := range t.Children {
		if c.Kind == KindElement {
			out = append(out, c)
		}
	}
	return out
}
