package directive

import (
	"strings"

	"github.com/go-pink/pink/pkg/eval"
	"github.com/go-pink/pink/pkg/vdom"
)

// Event runs handler expressions for host events named by @name
// attributes. The triggering payload is bound as event; a handler
// expression that yields a callable is called with it.
type Event struct {
	base
	handlers map[string]string
}

func (d *Event) Kind() string { return KindEvent }

// Handler returns the expression bound to the named event.
func (d *Event) Handler(name string) (string, bool) {
	code, ok := d.handlers[name]
	return code, ok
}

func claimEvent(e *Engine, n *vdom.Node) (bool, error) {
	if !n.IsElement() {
		return false, nil
	}
	d := &Event{base: base{engine: e, node: n}, handlers: make(map[string]string)}
	for _, a := range n.Attrs() {
		if len(a.Name) < 2 || a.Name[0] != '@' {
			continue
		}
		name := strings.ToLower(a.Name[1:])
		code := a.Value
		d.handlers[name] = code
		n.RemoveAttr(a.Name)
		n.On(name, func(ev vdom.Event) { d.handle(code, ev) })
	}
	if len(d.handlers) == 0 {
		return false, nil
	}
	n.AddDirective(d)
	return true, nil
}

func (d *Event) handle(code string, ev vdom.Event) {
	env := eval.With(d.node.Scope(), map[string]any{"event": ev.Data})
	var (
		v   any
		err error
	)
	d.engine.untracked(func() {
		v, err = d.engine.eval.Eval(code, env)
		if err == nil && eval.Callable(v) {
			_, err = eval.Call(v, ev.Data)
		}
	})
	d.engine.report("directive.Event", d.node, err)
}
