// Package directive applies directive attributes to a render tree.
//
// The engine walks a tree depth-first in pre-order and offers every
// non-template node to the registered directive kinds in priority order.
// Structural kinds (component, repeat) claim a node exclusively: once one of
// them accepts it, the remaining kinds are skipped and the node's children
// are left to the nodes the structural directive generates. Every directive
// performs its first update while the dependency tracker watches, and
// re-runs when a state key it read changes.
package directive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/go-pink/pink/pkg/errors"
	"github.com/go-pink/pink/pkg/eval"
	"github.com/go-pink/pink/pkg/loader"
	"github.com/go-pink/pink/pkg/vdom"
)

// DefaultMaxIterations bounds a single materialization of a repeat.
const DefaultMaxIterations = 10000

// Async runs blocking work off the render goroutine. The scheduler in
// pkg/sched implements it.
type Async interface {
	Go(label string, work func(ctx context.Context) (any, error), apply func(v any, err error) error) string
}

// Config wires an Engine to its collaborators.
type Config struct {
	Evaluator eval.Evaluator
	// Loader fetches component fragments. Without one, component
	// directives fail with a load error.
	Loader loader.Loader
	// Async runs component loads. Nil loads synchronously inside Init.
	Async Async
	// Registry lists the directive kinds. Nil means Default().
	Registry *Registry
	Logger   *slog.Logger
	// MaxIterations bounds repeat materialization. Zero means
	// DefaultMaxIterations.
	MaxIterations int
}

// Engine applies directives to the nodes of one document.
type Engine struct {
	doc           *vdom.Document
	eval          eval.Evaluator
	loader        loader.Loader
	async         Async
	registry      *Registry
	logger        *slog.Logger
	maxIterations int
}

// New returns an engine for doc.
func New(doc *vdom.Document, cfg Config) *Engine {
	e := &Engine{
		doc:           doc,
		eval:          cfg.Evaluator,
		loader:        cfg.Loader,
		async:         cfg.Async,
		registry:      cfg.Registry,
		logger:        cfg.Logger,
		maxIterations: cfg.MaxIterations,
	}
	if e.registry == nil {
		e.registry = Default()
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if e.maxIterations <= 0 {
		e.maxIterations = DefaultMaxIterations
	}
	return e
}

func (e *Engine) Document() *vdom.Document { return e.doc }
func (e *Engine) Evaluator() eval.Evaluator { return e.eval }
func (e *Engine) Registry() *Registry { return e.registry }

// Init applies directives to n and its subtree. Configuration errors abort
// the subtree they occur in; errors from sibling subtrees are joined.
func (e *Engine) Init(n *vdom.Node) error {
	if n == nil || n.IsDestroyed() {
		return nil
	}
	n.Emit(vdom.EventBeforeInitialize, nil)
	err := e.init(n)
	n.Emit(vdom.EventInitialized, nil)
	if err != nil {
		e.logger.Warn("directive: init failed", "node", n.ID(), "tag", n.Tag(), "error", err)
	}
	return err
}

func (e *Engine) init(n *vdom.Node) error {
	if n.IsTemplate() {
		return nil
	}
	for _, k := range e.registry.kinds {
		claimed, err := k.Claim(e, n)
		if err != nil {
			return withNode(err, n)
		}
		if claimed && k.Structural {
			return nil
		}
	}
	if n.IsElement() && rawText(n.Tag()) {
		return nil
	}
	var errs []error
	for _, c := range n.Children() {
		if c.IsDynamic() || c.IsDestroyed() || c.Parent() != n {
			continue
		}
		if err := e.Init(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// rawText reports whether the children of an element with this tag are
// not markup.
func rawText(tag string) bool {
	switch strings.ToLower(tag) {
	case "script", "style":
		return true
	}
	return false
}

func withNode(err error, n *vdom.Node) error {
	var pe *errors.PinkError
	if errors.As(err, &pe) && pe.Node == 0 {
		pe.Node = n.ID()
	}
	return err
}

// watch runs fn under the document tracker and keeps it subscribed until n
// is destroyed.
func (e *Engine) watch(n *vdom.Node, fn func()) {
	tr := e.doc.Tracker()
	if tr == nil {
		fn()
		return
	}
	w := tr.Watch(fn)
	n.OnDispose(w.Stop)
}

// untracked runs fn without attributing its reads to the current watcher.
func (e *Engine) untracked(fn func()) {
	if tr := e.doc.Tracker(); tr != nil {
		tr.Untracked(fn)
		return
	}
	fn()
}

// report hands a runtime error to the global error handler.
func (e *Engine) report(op string, n *vdom.Node, err error) {
	if err == nil {
		return
	}
	pe := &errors.PinkError{Op: op, Kind: errors.KindOf(err), Node: n.ID(), Err: err}
	if pe.Kind == errors.KindUnknown {
		pe.Kind = errors.KindEval
	}
	e.logger.Debug("directive: update failed", "op", op, "node", n.ID(), "error", err)
	errors.Report(pe)
}

// parentScope is the scope a node's bindings are evaluated in.
func parentScope(n *vdom.Node) *vdom.Scope {
	if p := n.Parent(); p != nil {
		return p.Scope()
	}
	return n.Doc().Globals()
}

type base struct {
	engine *Engine
	node   *vdom.Node
}

// Node returns the node the directive is attached to.
func (b *base) Node() *vdom.Node { return b.node }

func (b *base) String() string {
	return fmt.Sprintf("directive on <%s> #%d", b.node.Tag(), b.node.ID())
}
