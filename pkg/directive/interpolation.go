package directive

import (
	"regexp"
	"strings"

	"github.com/go-pink/pink/pkg/eval"
	"github.com/go-pink/pink/pkg/host"
	"github.com/go-pink/pink/pkg/vdom"
)

var placeholder = regexp.MustCompile(`{{(.*?)}}`)

// HasPlaceholder reports whether s contains a {{ }} placeholder.
func HasPlaceholder(s string) bool {
	return placeholder.MatchString(s)
}

// Interpolation keeps {{ }} placeholders in a node's text, tag and attribute
// values evaluated.
type Interpolation struct {
	base
	value    string
	hasValue bool
	tag      string
	attrs    []host.Attr
}

func (d *Interpolation) Kind() string { return KindInterpolation }

func claimInterpolation(e *Engine, n *vdom.Node) (bool, error) {
	d := &Interpolation{base: base{engine: e, node: n}}
	switch n.Kind() {
	case vdom.KindText:
		if HasPlaceholder(n.Value()) {
			d.value, d.hasValue = n.Value(), true
		}
	case vdom.KindElement:
		if HasPlaceholder(n.Tag()) {
			d.tag = n.Tag()
		}
		for _, a := range n.Attrs() {
			if HasPlaceholder(a.Value) {
				d.attrs = append(d.attrs, a)
			}
		}
	}
	if !d.hasValue && d.tag == "" && len(d.attrs) == 0 {
		return false, nil
	}
	n.AddDirective(d)
	e.watch(n, d.Update)
	return true, nil
}

// Update re-renders every captured template.
func (d *Interpolation) Update() {
	n := d.node
	n.Update(func() {
		if d.hasValue {
			n.SetValue(d.render(d.value))
		}
		if d.tag != "" {
			n.SetTag(strings.ToLower(strings.TrimSpace(d.render(d.tag))))
		}
		for _, a := range d.attrs {
			n.SetAttr(a.Name, d.render(a.Value))
		}
	})
}

// render substitutes every placeholder in tpl. A failing expression renders
// as its error text.
func (d *Interpolation) render(tpl string) string {
	return placeholder.ReplaceAllStringFunc(tpl, func(m string) string {
		code := strings.TrimSpace(m[2 : len(m)-2])
		v, err := d.engine.eval.Eval(code, d.node.Scope())
		if err != nil {
			d.engine.logger.Debug("directive: interpolation failed", "node", d.node.ID(), "expr", code, "error", err)
			return err.Error()
		}
		return eval.Stringify(v)
	})
}
