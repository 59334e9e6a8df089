package directive

import (
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/go-pink/pink/pkg/errors"
	"github.com/go-pink/pink/pkg/eval"
	"github.com/go-pink/pink/pkg/reactive"
	"github.com/go-pink/pink/pkg/vdom"
)

// RepeatForm is the iteration form of a for attribute.
type RepeatForm int

const (
	// FormCount is "name = init; cond; step".
	FormCount RepeatForm = iota
	// FormIn binds keys or indices: "name in source".
	FormIn
	// FormOf binds values: "name of source".
	FormOf
)

func (f RepeatForm) String() string {
	switch f {
	case FormCount:
		return "count"
	case FormIn:
		return "in"
	case FormOf:
		return "of"
	}
	return "unknown"
}

var identifier = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// Repeat turns its node into a template and keeps one clone per iteration
// after it. Each clone declares the loop variable on its own scope.
//
// When the source evaluates to a reactive container, edits of that
// container are applied incrementally: an insert clones one node, a removal
// destroys one, and the other clones keep their identity. Replacing the
// source with a different value rebuilds every clone.
type Repeat struct {
	base
	form   RepeatForm
	name   string
	init   string
	cond   string
	step   string
	source string

	parent  *vdom.Node
	items   []*repeatItem
	current reactive.Container
	offs    []func()
}

type repeatItem struct {
	key  any
	node *vdom.Node
}

func (d *Repeat) Kind() string { return KindRepeat }

func (d *Repeat) Form() RepeatForm { return d.form }
func (d *Repeat) Name() string { return d.name }

// Nodes returns the live clones in order.
func (d *Repeat) Nodes() []*vdom.Node {
	out := make([]*vdom.Node, len(d.items))
	for i, it := range d.items {
		out[i] = it.node
	}
	return out
}

func claimRepeat(e *Engine, n *vdom.Node) (bool, error) {
	text, ok := n.Attr("for")
	if !ok || !n.IsElement() {
		return false, nil
	}
	d, err := parseRepeat(text)
	if err != nil {
		return false, err
	}
	if n.Parent() == nil {
		return false, errors.Configf("directive.Repeat", errors.ErrRepeatSyntax, "%q has no parent to repeat into", text)
	}
	d.base = base{engine: e, node: n}
	d.parent = n.Parent()
	n.RemoveAttr("for")
	n.MakeTemplate()
	n.AddDirective(d)
	n.OnDispose(d.unsubscribe)
	e.watch(n, d.Update)
	return true, nil
}

// parseRepeat reads the three for attribute forms. A let, var or const
// prefix on the variable is accepted and ignored.
func parseRepeat(text string) (*Repeat, error) {
	bad := func(reason string) error {
		return errors.Configf("directive.Repeat", errors.ErrRepeatSyntax, "%q: %s", text, reason)
	}
	if strings.Contains(text, ";") {
		parts := strings.SplitN(text, ";", 3)
		if len(parts) != 3 {
			return nil, bad("counting form needs init; condition; step")
		}
		d := &Repeat{form: FormCount, cond: strings.TrimSpace(parts[1]), step: strings.TrimSpace(parts[2])}
		decl := trimDecl(parts[0])
		if i := strings.Index(decl, "="); i >= 0 && !strings.HasPrefix(decl[i:], "==") {
			d.name, d.init = strings.TrimSpace(decl[:i]), strings.TrimSpace(decl[i+1:])
		} else {
			d.name = decl
		}
		if !identifier.MatchString(d.name) {
			return nil, bad("invalid loop variable")
		}
		if d.cond == "" {
			return nil, bad("missing condition")
		}
		return d, nil
	}
	for _, f := range []struct {
		sep  string
		form RepeatForm
	}{{" in ", FormIn}, {" of ", FormOf}} {
		i := strings.Index(text, f.sep)
		if i < 0 {
			continue
		}
		d := &Repeat{form: f.form, name: trimDecl(text[:i]), source: strings.TrimSpace(text[i+len(f.sep):])}
		if !identifier.MatchString(d.name) {
			return nil, bad("invalid loop variable")
		}
		if d.source == "" {
			return nil, bad("missing source")
		}
		return d, nil
	}
	return nil, bad("expected \"x in source\", \"x of source\" or \"init; cond; step\"")
}

func trimDecl(s string) string {
	s = strings.TrimSpace(s)
	for _, kw := range []string{"let ", "var ", "const "} {
		if strings.HasPrefix(s, kw) {
			return strings.TrimSpace(s[len(kw):])
		}
	}
	return s
}

// Update re-evaluates the source. It runs under the tracker, so the clones
// are rebuilt when a name the source reads changes.
func (d *Repeat) Update() {
	if d.form == FormCount {
		d.count()
		return
	}
	v, err := d.engine.eval.Eval(d.source, d.node.Scope())
	if err != nil {
		d.engine.report("directive.Repeat", d.node, err)
		d.engine.untracked(d.reset)
		return
	}
	if c, ok := v.(reactive.Container); ok && d.current != nil && c == d.current {
		return
	}
	d.engine.untracked(func() { d.materialize(v) })
}

func (d *Repeat) count() {
	scope := d.node.Scope()
	var start any = 0
	if d.init != "" {
		v, err := d.engine.eval.Eval(d.init, scope)
		if err != nil {
			d.engine.report("directive.Repeat", d.node, err)
			return
		}
		start = v
	} else if v, ok := scope.Get(d.name); ok && v != nil {
		start = v
	}
	vars := map[string]any{d.name: start}
	env := eval.With(scope, vars)
	var values []any
	for {
		if len(values) >= d.engine.maxIterations {
			d.engine.report("directive.Repeat", d.node, d.limitError())
			break
		}
		ok, err := d.engine.eval.Eval(d.cond, env)
		if err != nil {
			d.engine.report("directive.Repeat", d.node, err)
			break
		}
		if !eval.Truthy(ok) {
			break
		}
		values = append(values, vars[d.name])
		if d.step == "" {
			continue
		}
		if err := d.engine.eval.Exec(d.step, env); err != nil {
			d.engine.report("directive.Repeat", d.node, err)
			break
		}
	}
	d.engine.untracked(func() {
		d.reset()
		for i, v := range values {
			d.insert(i, i, v)
		}
	})
}

func (d *Repeat) limitError() error {
	return &errors.PinkError{
		Op:   "directive.Repeat",
		Kind: errors.KindBounds,
		Err:  fmt.Errorf("%w: more than %d iterations", errors.ErrRepeatLimit, d.engine.maxIterations),
	}
}

func (d *Repeat) materialize(v any) {
	d.reset()
	entries, err := iterate(v)
	if err != nil {
		d.engine.report("directive.Repeat", d.node, err)
		return
	}
	if len(entries) > d.engine.maxIterations {
		d.engine.report("directive.Repeat", d.node, d.limitError())
		entries = entries[:d.engine.maxIterations]
	}
	for i, en := range entries {
		d.insert(i, en.key, d.bound(en.key, en.value))
	}
	if c, ok := v.(reactive.Container); ok {
		d.current = c
		hub := c.Hub()
		d.offs = append(d.offs,
			hub.On(reactive.KindAdd.String(), d.onAdd),
			hub.On(reactive.KindSet.String(), d.onSet),
			hub.On(reactive.KindRemove.String(), d.onRemove),
		)
	}
}

// bound is the value the loop variable takes for an entry.
func (d *Repeat) bound(key, value any) any {
	if d.form == FormIn {
		return key
	}
	return value
}

// reset destroys every clone and drops the container subscription.
func (d *Repeat) reset() {
	d.unsubscribe()
	for i := len(d.items) - 1; i >= 0; i-- {
		d.remove(i)
	}
}

func (d *Repeat) unsubscribe() {
	for _, off := range d.offs {
		off()
	}
	d.offs = nil
	d.current = nil
}

// insert clones the template for one iteration and places it at position i
// among the clones.
func (d *Repeat) insert(i int, key, value any) {
	clone := d.instance(value)
	at := d.position(i)
	d.items = slices.Insert(d.items, i, &repeatItem{key: key, node: clone})
	if err := d.parent.InsertNode(at, clone); err != nil {
		d.items = slices.Delete(d.items, i, i+1)
		d.engine.report("directive.Repeat", d.node, err)
		return
	}
	d.initClone(clone)
}

func (d *Repeat) instance(value any) *vdom.Node {
	clone := d.node.Clone()
	clone.MakeDynamic(d.node)
	clone.Scope().Declare(d.name, value)
	return clone
}

// position is the parent index of the i-th clone slot.
func (d *Repeat) position(i int) int {
	if i > 0 && i <= len(d.items) {
		return d.parent.IndexOf(d.items[i-1].node) + 1
	}
	return d.parent.IndexOf(d.node) + 1
}

func (d *Repeat) initClone(clone *vdom.Node) {
	if clone.IsComponent() {
		if tp := d.node.TemplatedParent(); tp != nil {
			if c, ok := tp.Directive(KindComponent).(*Component); ok {
				if err := c.runScript(clone); err != nil {
					d.engine.report("directive.Repeat", clone, err)
				}
			}
		}
	}
	if err := d.engine.Init(clone); err != nil {
		d.engine.report("directive.Repeat", clone, err)
	}
}

func (d *Repeat) remove(i int) {
	node := d.items[i].node
	d.items = slices.Delete(d.items, i, i+1)
	if at := d.parent.IndexOf(node); at >= 0 {
		_ = d.parent.RemoveNode(at)
		return
	}
	node.Destroy()
}

func (d *Repeat) replace(i int, key, value any) {
	old := d.items[i].node
	clone := d.instance(value)
	d.items[i] = &repeatItem{key: key, node: clone}
	at := d.parent.IndexOf(old)
	if at < 0 {
		return
	}
	if err := d.parent.ReplaceNode(at, clone); err != nil {
		d.engine.report("directive.Repeat", d.node, err)
		return
	}
	d.initClone(clone)
}

// reindex renumbers array-backed items from i on. Index-bound clones get
// the new index declared.
func (d *Repeat) reindex(from int) {
	for i := from; i < len(d.items); i++ {
		it := d.items[i]
		it.key = i
		if d.form == FormIn {
			it.node.Scope().Declare(d.name, i)
		}
	}
}

func (d *Repeat) find(key any) int {
	return slices.IndexFunc(d.items, func(it *repeatItem) bool { return it.key == key })
}

func (d *Repeat) onAdd(ev reactive.ChangeEvent) {
	if ev.Container != d.current || d.node.IsDestroyed() {
		return
	}
	d.engine.untracked(func() {
		switch k := ev.Key.(type) {
		case int:
			if k > len(d.items) {
				return
			}
			d.insert(k, k, d.bound(k, ev.Value))
			d.reindex(k + 1)
		case string:
			d.insert(len(d.items), k, d.bound(k, ev.Value))
		}
	})
}

func (d *Repeat) onSet(ev reactive.ChangeEvent) {
	if ev.Container != d.current || d.node.IsDestroyed() || d.form == FormIn {
		return
	}
	d.engine.untracked(func() {
		if i := d.find(ev.Key); i >= 0 {
			d.replace(i, ev.Key, ev.Value)
		}
	})
}

func (d *Repeat) onRemove(ev reactive.ChangeEvent) {
	if ev.Container != d.current || d.node.IsDestroyed() {
		return
	}
	d.engine.untracked(func() {
		i := d.find(ev.Key)
		if i < 0 {
			return
		}
		d.remove(i)
		if _, ok := ev.Key.(int); ok {
			d.reindex(i)
		}
	})
}

// iterate lists the entries of a repeat source. Arrays and slices yield
// index keys; objects and maps yield string keys, maps in sorted order.
func iterate(v any) ([]iteration, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case *reactive.Array:
		var out []iteration
		x.Range(func(i int, v any) bool {
			out = append(out, iteration{i, v})
			return true
		})
		return out, nil
	case *reactive.Object:
		var out []iteration
		x.Range(func(k string, v any) bool {
			out = append(out, iteration{k, v})
			return true
		})
		return out, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]iteration, rv.Len())
		for i := range out {
			out[i] = iteration{i, rv.Index(i).Interface()}
		}
		return out, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		out := make([]iteration, len(keys))
		for i, k := range keys {
			out[i] = iteration{k.String(), rv.MapIndex(k).Interface()}
		}
		return out, nil
	}
	return nil, &errors.PinkError{Op: "directive.Repeat", Kind: errors.KindEval, Err: fmt.Errorf("cannot iterate over %T", v)}
}

type iteration struct {
	key   any
	value any
}
