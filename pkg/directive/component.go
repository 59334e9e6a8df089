package directive

import (
	"context"
	"strings"

	"github.com/go-pink/pink/pkg/component"
	"github.com/go-pink/pink/pkg/errors"
	"github.com/go-pink/pink/pkg/vdom"
)

// Component replaces a <component src="..."> element with the root of the
// loaded fragment. The element itself stays in the tree as an invisible
// template; the root is inserted before it, marked as a component boundary
// and gets the element's remaining attributes. Element children carrying a
// slot attribute fill the fragment's <slot name> placeholders and keep
// resolving names in the caller's scope.
type Component struct {
	base
	src      string
	fragment *component.Fragment
	root     *vdom.Node
}

func (d *Component) Kind() string { return KindComponent }

// Src returns the fragment source the component was loaded from.
func (d *Component) Src() string { return d.src }

// Fragment returns the parsed fragment, or nil before it has loaded.
func (d *Component) Fragment() *component.Fragment { return d.fragment }

// Root returns the instantiated root, or nil before it has loaded.
func (d *Component) Root() *vdom.Node { return d.root }

func claimComponent(e *Engine, n *vdom.Node) (bool, error) {
	if !n.IsElement() || !strings.EqualFold(n.Tag(), "component") {
		return false, nil
	}
	n.MakeTemplate()
	src, _ := n.Attr("src")
	src = strings.TrimSpace(src)
	if src == "" {
		return false, errors.Config("directive.Component", errors.ErrComponentRequiresSrc)
	}
	if n.Parent() == nil {
		return false, errors.Configf("directive.Component", errors.ErrComponentRequiresSrc, "%q has no parent", src)
	}
	n.RemoveAttr("src")
	d := &Component{base: base{engine: e, node: n}, src: src}
	n.AddDirective(d)
	return true, d.load()
}

// load fetches the fragment. With an Async runner the fragment is applied
// when the load completes; otherwise it is applied before load returns.
func (d *Component) load() error {
	e := d.engine
	if e.loader == nil {
		return &errors.PinkError{Op: "directive.Component", Kind: errors.KindLoad, Err: errors.ErrNotFound}
	}
	if e.async == nil {
		data, err := e.loader.Load(context.Background(), d.src)
		return d.apply(data, err)
	}
	e.async.Go("component "+d.src,
		func(ctx context.Context) (any, error) { return e.loader.Load(ctx, d.src) },
		func(v any, err error) error {
			data, _ := v.([]byte)
			return withNode(d.apply(data, err), d.node)
		})
	return nil
}

func (d *Component) apply(data []byte, err error) error {
	if err != nil {
		return err
	}
	if d.node.IsDestroyed() || d.node.Parent() == nil {
		return nil
	}
	f, err := component.Parse(data)
	if err != nil {
		return err
	}
	d.fragment = f
	e := d.engine
	for _, css := range f.Styles {
		e.doc.InjectStyle(css)
	}

	root := e.doc.Instantiate(f.Root)
	root.MakeDynamic(d.node)
	root.MakeComponent()
	for _, a := range d.node.Attrs() {
		root.SetAttr(a.Name, a.Value)
	}
	if err := d.fillSlots(root); err != nil {
		root.Destroy()
		return err
	}
	parent := d.node.Parent()
	if err := parent.InsertNode(parent.IndexOf(d.node), root); err != nil {
		root.Destroy()
		return err
	}
	d.root = root
	e.logger.Debug("directive: component mounted", "src", d.src, "node", root.ID())

	// A repeated root becomes the repeat's template; each clone runs the
	// script when it is created.
	if _, repeated := root.Attr("for"); repeated {
		return e.Init(root)
	}
	if err := d.runScript(root); err != nil {
		return err
	}
	return e.Init(root)
}

// runScript executes the fragment script against the scope of root.
func (d *Component) runScript(root *vdom.Node) error {
	if d.fragment == nil || strings.TrimSpace(d.fragment.Script) == "" {
		return nil
	}
	if err := d.engine.eval.Exec(d.fragment.Script, root.Scope()); err != nil {
		return errors.Eval("directive.Component", d.src, err)
	}
	return nil
}

// fillSlots moves the caller's slot fillers into the placeholders of root.
func (d *Component) fillSlots(root *vdom.Node) error {
	for _, slot := range slotsOf(root) {
		name, _ := slot.Attr("name")
		if name == "" {
			return errors.Config("directive.Component", errors.ErrSlotRequiresName)
		}
		var fillers []*vdom.Node
		for _, c := range d.node.Children() {
			if !c.IsElement() {
				continue
			}
			if sn, ok := c.Attr("slot"); ok && sn == name {
				fillers = append(fillers, c)
			}
		}
		holder := slot.Parent()
		switch len(fillers) {
		case 0:
			if _, optional := slot.Attr("optional"); !optional {
				return errors.Configf("directive.Component", errors.ErrComponentRequiresSlot, "%q in %s", name, d.src)
			}
			if err := holder.RemoveNode(holder.IndexOf(slot)); err != nil {
				return err
			}
		case 1:
			filler := fillers[0]
			if _, err := d.node.DetachNode(d.node.IndexOf(filler)); err != nil {
				return err
			}
			filler.RemoveAttr("slot")
			filler.SetSlotName(name)
			filler.SetSlotScope(d.node.Scope())
			if err := holder.ReplaceNode(holder.IndexOf(slot), filler); err != nil {
				return err
			}
		default:
			return errors.Configf("directive.Component", errors.ErrSlotOneElement, "%q has %d fillers", name, len(fillers))
		}
	}
	return nil
}

// slotsOf lists the <slot> placeholders under root in document order.
// Placeholders inside nested <component> elements belong to those.
func slotsOf(root *vdom.Node) []*vdom.Node {
	var out []*vdom.Node
	var visit func(n *vdom.Node)
	visit = func(n *vdom.Node) {
		for _, c := range n.Children() {
			if !c.IsElement() {
				continue
			}
			switch strings.ToLower(c.Tag()) {
			case "slot":
				out = append(out, c)
				continue
			case "component":
				continue
			}
			visit(c)
		}
	}
	visit(root)
	return out
}
