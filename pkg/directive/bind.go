package directive

import (
	"reflect"
	"sort"
	"strings"

	"github.com/go-pink/pink/pkg/errors"
	"github.com/go-pink/pink/pkg/eval"
	"github.com/go-pink/pink/pkg/reactive"
	"github.com/go-pink/pink/pkg/vdom"
)

// Bind redirects names of its node's scope to the enclosing scope.
//
// A :name="expr" attribute makes reads of name evaluate expr in the parent
// scope, and writes assign through expr when the evaluator supports it. The
// binds="expr" attribute binds every entry of an object at once; an entry
// may be a plain value, a getter function or an object with get and set
// functions. :style and :class apply per-entry inline styles and class
// toggles instead.
type Bind struct {
	base
	getters map[string]func() (any, error)
	setters map[string]func(any) error
	applied map[string]map[string]bool
}

func (d *Bind) Kind() string { return KindBind }

// Names lists the bound names in sorted order.
func (d *Bind) Names() []string {
	names := make([]string, 0, len(d.getters))
	for name := range d.getters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func claimBind(e *Engine, n *vdom.Node) (bool, error) {
	if !n.IsElement() {
		return false, nil
	}
	d := &Bind{
		base:    base{engine: e, node: n},
		getters: make(map[string]func() (any, error)),
		setters: make(map[string]func(any) error),
		applied: make(map[string]map[string]bool),
	}
	claimed := false
	for _, a := range n.Attrs() {
		switch {
		case a.Name == "binds":
			n.RemoveAttr(a.Name)
			if err := d.bindAll(a.Value); err != nil {
				return false, err
			}
			claimed = true
		case len(a.Name) > 1 && a.Name[0] == ':':
			n.RemoveAttr(a.Name)
			name := a.Name[1:]
			if name == "style" || name == "class" {
				d.bindToggles(name, a.Value)
			} else {
				d.bindExpr(name, a.Value)
			}
			claimed = true
		}
	}
	if !claimed {
		return false, nil
	}
	if len(d.getters) > 0 {
		n.OnDispose(n.Scope().AddHook(&vdom.Hook{Get: d.get, Set: d.set}))
	}
	n.AddDirective(d)
	return true, nil
}

func (d *Bind) bindExpr(name, expr string) {
	ev := d.engine.eval
	d.getters[name] = func() (any, error) {
		return ev.Eval(expr, parentScope(d.node))
	}
	d.setters[name] = func(v any) error {
		if a, ok := ev.(eval.Assigner); ok {
			return a.Assign(expr, v, parentScope(d.node))
		}
		return errors.NotImplemented("directive.Bind", "assignment to :"+name)
	}
}

func (d *Bind) bindAll(expr string) error {
	v, err := d.engine.eval.Eval(expr, parentScope(d.node))
	if err != nil {
		return err
	}
	entries, ok := entriesOf(v)
	if !ok {
		return errors.Configf("directive.Bind", errors.ErrBindingType, "binds evaluated to %T", v)
	}
	for _, en := range entries {
		d.bindValue(en.key, en.value)
	}
	return nil
}

func (d *Bind) bindValue(name string, v any) {
	switch {
	case eval.Callable(v):
		d.getters[name] = func() (any, error) { return eval.Call(v) }
	default:
		get, hasGet := field(v, "get")
		set, hasSet := field(v, "set")
		if !hasGet && !hasSet {
			d.getters[name] = func() (any, error) { return v, nil }
			return
		}
		if eval.Callable(get) {
			d.getters[name] = func() (any, error) { return eval.Call(get) }
		} else {
			d.getters[name] = func() (any, error) { return get, nil }
		}
		if eval.Callable(set) {
			d.setters[name] = func(nv any) error {
				_, err := eval.Call(set, nv)
				return err
			}
		}
	}
}

func (d *Bind) get(e *vdom.HookGet) {
	fn, ok := d.getters[e.Name]
	if !ok {
		return
	}
	v, err := fn()
	if err != nil {
		d.engine.report("directive.Bind", d.node, err)
	}
	e.Value, e.Handled = v, true
}

func (d *Bind) set(e *vdom.HookSet) {
	if _, bound := d.getters[e.Name]; !bound {
		return
	}
	e.Handled = true
	fn, ok := d.setters[e.Name]
	if !ok {
		e.Err = errors.NotImplemented("directive.Bind", "assignment to "+e.Name)
		return
	}
	e.Err = fn(e.Value)
}

// bindToggles keeps per-entry styles or classes applied from an object
// expression evaluated in the node's own scope.
func (d *Bind) bindToggles(kind, expr string) {
	n := d.node
	d.engine.watch(n, func() {
		v, err := d.engine.eval.Eval(expr, n.Scope())
		if err != nil {
			d.engine.report("directive.Bind", n, err)
			return
		}
		entries, ok := entriesOf(v)
		if !ok {
			d.engine.report("directive.Bind", n, errors.Configf("directive.Bind", errors.ErrBindingType, ":%s evaluated to %T", kind, v))
			return
		}
		seen := make(map[string]bool, len(entries))
		for _, en := range entries {
			seen[en.key] = true
			if kind == "style" {
				n.SetStyle(styleName(en.key), styleValue(en.key, en.value))
			} else {
				n.ToggleClass(en.key, eval.Truthy(en.value))
			}
		}
		for key := range d.applied[kind] {
			if seen[key] {
				continue
			}
			if kind == "style" {
				n.SetStyle(styleName(key), "")
			} else {
				n.ToggleClass(key, false)
			}
		}
		d.applied[kind] = seen
	})
}

// styleName converts a camel-cased property name to its CSS form.
func styleName(name string) string {
	var sb strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				sb.WriteByte('-')
			}
			sb.WriteRune(r + ('a' - 'A'))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

var unitless = map[string]bool{
	"opacity": true, "z-index": true, "font-weight": true, "line-height": true,
	"flex": true, "flex-grow": true, "flex-shrink": true, "order": true, "zoom": true,
}

// styleValue renders v as a CSS value. Numbers get a px unit unless the
// property is unitless.
func styleValue(name string, v any) string {
	if v == nil || v == false {
		return ""
	}
	s := eval.Stringify(v)
	if _, isNum := eval.Number(v); isNum && !unitless[styleName(name)] {
		if _, isStr := v.(string); !isStr {
			s += "px"
		}
	}
	return s
}

type entry struct {
	key   string
	value any
}

// entriesOf lists the entries of an object-like value in key order.
func entriesOf(v any) ([]entry, bool) {
	switch x := v.(type) {
	case *reactive.Object:
		var out []entry
		x.Range(func(k string, v any) bool {
			out = append(out, entry{k, v})
			return true
		})
		return out, true
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]entry, len(keys))
		for i, k := range keys {
			out[i] = entry{k, x[k]}
		}
		return out, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	keys := rv.MapKeys()
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	out := make([]entry, len(keys))
	for i, k := range keys {
		out[i] = entry{k.String(), rv.MapIndex(k).Interface()}
	}
	return out, true
}

// field returns the named entry of an object-like value.
func field(v any, name string) (any, bool) {
	switch x := v.(type) {
	case *reactive.Object:
		return x.Get(name)
	case map[string]any:
		f, ok := x[name]
		return f, ok
	}
	return nil, false
}
