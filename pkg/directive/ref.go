package directive

import "github.com/go-pink/pink/pkg/vdom"

// Ref names a node so that ancestors can reach it through $refs.
type Ref struct {
	base
	name string
}

func (d *Ref) Kind() string { return KindRef }

// Name returns the declared ref name.
func (d *Ref) Name() string { return d.name }

func claimRef(e *Engine, n *vdom.Node) (bool, error) {
	name, ok := n.Attr("ref")
	if !ok || !n.IsElement() {
		return false, nil
	}
	n.RemoveAttr("ref")
	n.SetRefName(name)
	n.AddDirective(&Ref{base: base{engine: e, node: n}, name: name})
	return true, nil
}
