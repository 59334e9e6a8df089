// Package component parses component fragment definitions.
//
// A fragment is an HTML document holding one <component> element with
// exactly one root element, an optional behavior <script> and any number of
// <style> blocks:
//
//	<script>count = 0</script>
//	<style>.card { color: red }</style>
//	<component>
//	  <div class="card"><slot name="title"></slot>{{count}}</div>
//	</component>
package component

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/go-pink/pink/pkg/errors"
	"github.com/go-pink/pink/pkg/host"
	"github.com/go-pink/pink/pkg/vdom"
)

// ScriptLang is the only accepted value of a script's lang attribute
// besides the empty string.
const ScriptLang = "expr"

// Fragment is a parsed component definition.
type Fragment struct {
	// Script is the behavior script, run against the scope of every
	// instantiated root.
	Script string
	// Styles are the contents of the <style> blocks in document order.
	Styles []string
	// Root is the single element inside <component>.
	Root *vdom.Template
	// Slots lists the slot names declared under Root in document order.
	Slots []Slot
}

// Slot describes a <slot> placeholder of a fragment.
type Slot struct {
	Name     string
	Optional bool
}

// Parse parses a fragment definition.
func Parse(data []byte) (*Fragment, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(bytes.NewReader(data), body)
	if err != nil {
		return nil, errors.Config("component.Parse", err)
	}

	f := &Fragment{}
	var roots []*html.Node
	found := false
	for _, n := range nodes {
		if n.Type != html.ElementNode {
			continue
		}
		switch strings.ToLower(n.Data) {
		case "script":
			if lang := attr(n, "lang"); lang != "" && lang != ScriptLang {
				return nil, errors.Configf("component.Parse", errors.ErrUnknownLang, "%q", lang)
			}
			f.Script += text(n)
		case "style":
			f.Styles = append(f.Styles, text(n))
		case "component":
			found = true
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode {
					roots = append(roots, c)
				}
			}
		}
	}
	if !found || len(roots) != 1 {
		return nil, errors.Configf("component.Parse", errors.ErrComponentOneElement, "found %d root elements", len(roots))
	}
	f.Root = convert(roots[0])
	if err := f.collectSlots(f.Root); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Fragment) collectSlots(t *vdom.Template) error {
	if t.Kind == vdom.KindElement && t.Tag == "slot" {
		name, _ := t.Attr("name")
		if name == "" {
			return errors.Config("component.Parse", errors.ErrSlotRequiresName)
		}
		_, optional := t.Attr("optional")
		f.Slots = append(f.Slots, Slot{Name: name, Optional: optional})
	}
	for _, c := range t.Children {
		if err := f.collectSlots(c); err != nil {
			return err
		}
	}
	return nil
}

// convert turns a parsed node into a template. Attribute names keep the
// case the parser produced, which is lower case for HTML.
func convert(n *html.Node) *vdom.Template {
	switch n.Type {
	case html.TextNode:
		return &vdom.Template{Kind: vdom.KindText, Value: n.Data}
	case html.CommentNode:
		return &vdom.Template{Kind: vdom.KindComment, Value: n.Data}
	}
	t := &vdom.Template{Kind: vdom.KindElement, Tag: n.Data}
	for _, a := range n.Attr {
		t.Attrs = append(t.Attrs, host.Attr{Name: a.Key, Value: a.Val})
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode || c.Type == html.TextNode || c.Type == html.CommentNode {
			t.Children = append(t.Children, convert(c))
		}
	}
	return t
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func text(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}

// String summarizes f for diagnostics.
func (f *Fragment) String() string {
	return fmt.Sprintf("component <%s> slots=%d styles=%d script=%dB", f.Root.Tag, len(f.Slots), len(f.Styles), len(f.Script))
}
