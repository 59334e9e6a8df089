package directive

import (
	"github.com/go-pink/pink/pkg/eval"
	"github.com/go-pink/pink/pkg/vdom"
)

// Conditional shows its node while an expression is truthy. A hidden node
// keeps its children, scope and subscriptions.
type Conditional struct {
	base
	expr string
}

func (d *Conditional) Kind() string { return KindConditional }

func claimConditional(e *Engine, n *vdom.Node) (bool, error) {
	expr, ok := n.Attr("if")
	if !ok || !n.IsElement() {
		return false, nil
	}
	n.RemoveAttr("if")
	d := &Conditional{base: base{engine: e, node: n}, expr: expr}
	n.AddDirective(d)
	e.watch(n, d.Update)
	return true, nil
}

// Update re-evaluates the condition. An evaluation error hides the node.
func (d *Conditional) Update() {
	v, err := d.engine.eval.Eval(d.expr, d.node.Scope())
	if err != nil {
		d.engine.report("directive.Conditional", d.node, err)
		d.node.SetVisible(false)
		return
	}
	d.node.SetVisible(eval.Truthy(v))
}
