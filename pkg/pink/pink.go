// Package pink wires the runtime together: a host tree, the render tree
// mirrored from it, the dependency tracker, the directive engine and the
// scheduler that runs component loads.
//
//	h, _ := htmlhost.ParseString(page)
//	rt, _ := pink.New(pink.WithHost(h), pink.WithLoader(loader.Dir("components")))
//	root, err := rt.Mount(ctx, h.Body())
//	err = rt.Settle(ctx)
//
// The tree belongs to a single goroutine. Work started elsewhere re-enters
// through Dispatch, and Run turns the calling goroutine into the one that
// drains it.
package pink

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-pink/pink/pkg/directive"
	"github.com/go-pink/pink/pkg/eval"
	"github.com/go-pink/pink/pkg/eval/exprlang"
	"github.com/go-pink/pink/pkg/event"
	"github.com/go-pink/pink/pkg/host"
	"github.com/go-pink/pink/pkg/host/htmlhost"
	"github.com/go-pink/pink/pkg/loader"
	"github.com/go-pink/pink/pkg/logging"
	"github.com/go-pink/pink/pkg/sched"
	"github.com/go-pink/pink/pkg/track"
	"github.com/go-pink/pink/pkg/vdom"
)

// Runtime signals.
const (
	EventInitialization = "initialization"
	EventSyncCompleted  = "syncCompleted"
	EventInitialized    = "initialized"
	EventLoadBegin      = "loadBegin"
	EventLoadEnd        = "loadEnd"
	EventAsyncCompleted = "asyncCompleted"
	// EventChanged follows every batch of work that may have mutated the
	// tree: a dispatched callback or a finished load.
	EventChanged = "changed"
)

// Event is delivered to runtime hub handlers.
type Event struct {
	Name string
	// Task and Label identify the load for loadBegin and loadEnd.
	Task  string
	Label string
	// Outstanding is the number of loads still running.
	Outstanding int
	Err         error
}

// Runtime is one mounted document.
type Runtime struct {
	host      host.Host
	evaluator eval.Evaluator
	loader    loader.Loader
	registry  *directive.Registry
	logger    *slog.Logger
	globals   map[string]any
	maxIter   int

	tracker *track.Tracker
	sched   *sched.Scheduler
	doc     *vdom.Document
	engine  *directive.Engine
	hub     event.Hub[Event]

	mu          sync.Mutex
	root        *vdom.Node
	mounted     bool
	initialized bool
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithHost sets the host tree. The default is an empty htmlhost document.
func WithHost(h host.Host) Option {
	return func(r *Runtime) { r.host = h }
}

// WithEvaluator replaces the default exprlang evaluator.
func WithEvaluator(ev eval.Evaluator) Option {
	return func(r *Runtime) { r.evaluator = ev }
}

// WithLoader sets where component fragments are loaded from.
func WithLoader(l loader.Loader) Option {
	return func(r *Runtime) { r.loader = l }
}

// WithRegistry replaces the default directive registry.
func WithRegistry(reg *directive.Registry) Option {
	return func(r *Runtime) { r.registry = reg }
}

// WithLogger sets the logger shared by every part of the runtime.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runtime) { r.logger = l }
}

// WithGlobals declares values on the global scope before mounting.
func WithGlobals(values map[string]any) Option {
	return func(r *Runtime) {
		if r.globals == nil {
			r.globals = make(map[string]any, len(values))
		}
		for k, v := range values {
			r.globals[k] = v
		}
	}
}

// WithMaxIterations bounds a single repeat materialization.
func WithMaxIterations(n int) Option {
	return func(r *Runtime) { r.maxIter = n }
}

// New returns a runtime configured by opts.
func New(opts ...Option) (*Runtime, error) {
	r := &Runtime{}
	for _, opt := range opts {
		opt(r)
	}
	if r.host == nil {
		r.host = htmlhost.New()
	}
	if r.evaluator == nil {
		r.evaluator = exprlang.New()
	}
	if r.logger == nil {
		r.logger = logging.Discard()
	}
	if r.maxIter < 0 {
		return nil, fmt.Errorf("pink: negative max iterations %d", r.maxIter)
	}

	r.tracker = track.New()
	r.sched = sched.New(sched.WithLogger(r.logger))
	r.doc = vdom.NewDocument(r.host, r.tracker)
	r.doc.SetLogger(r.logger)
	for k, v := range r.globals {
		r.doc.Globals().Declare(k, v)
	}
	r.engine = directive.New(r.doc, directive.Config{
		Evaluator:     r.evaluator,
		Loader:        r.loader,
		Async:         r.sched,
		Registry:      r.registry,
		Logger:        r.logger,
		MaxIterations: r.maxIter,
	})

	r.sched.On(sched.EventBegin, func(e sched.Event) {
		r.emit(Event{Name: EventLoadBegin, Task: e.Task, Label: e.Label, Outstanding: e.Outstanding})
	})
	r.sched.On(sched.EventEnd, func(e sched.Event) {
		r.emit(Event{Name: EventLoadEnd, Task: e.Task, Label: e.Label, Outstanding: e.Outstanding, Err: e.Err})
		r.emit(Event{Name: EventChanged, Outstanding: e.Outstanding})
	})
	r.sched.On(sched.EventSettled, func(sched.Event) {
		r.emit(Event{Name: EventAsyncCompleted})
		r.markInitialized()
	})
	return r, nil
}

func (r *Runtime) Host() host.Host { return r.host }
func (r *Runtime) Document() *vdom.Document { return r.doc }
func (r *Runtime) Engine() *directive.Engine { return r.engine }
func (r *Runtime) Logger() *slog.Logger { return r.logger }

// Globals returns the global scope.
func (r *Runtime) Globals() *vdom.Scope { return r.doc.Globals() }

// Root returns the mounted root node, or nil before Mount.
func (r *Runtime) Root() *vdom.Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.root
}

// Initialized reports whether the mounted tree has settled once.
func (r *Runtime) Initialized() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.initialized
}

// On subscribes fn to a runtime signal.
func (r *Runtime) On(name string, fn func(Event)) (off func()) {
	return r.hub.On(name, fn)
}

func (r *Runtime) emit(e Event) {
	r.hub.Dispatch(e.Name, e)
}

// Mount mirrors the host subtree at h and applies directives to it. The
// synchronous part of initialization is complete when Mount returns;
// component loads may still be running, see Settle.
func (r *Runtime) Mount(ctx context.Context, h host.Handle) (*vdom.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	if r.mounted {
		r.mu.Unlock()
		return nil, fmt.Errorf("pink: runtime already mounted")
	}
	r.mounted = true
	r.mu.Unlock()

	r.emit(Event{Name: EventInitialization})
	root, err := r.doc.Build(h)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.root = root
	r.mu.Unlock()

	err = r.engine.Init(root)
	r.logger.Debug("pink: mounted", "root", root.ID(), "nodes", r.doc.Registry().Len(), "pending", r.sched.Outstanding())
	r.emit(Event{Name: EventSyncCompleted, Err: err})
	r.emit(Event{Name: EventChanged})
	if r.sched.Outstanding() == 0 {
		r.markInitialized()
	}
	return root, err
}

func (r *Runtime) markInitialized() {
	r.mu.Lock()
	if !r.mounted || r.initialized {
		r.mu.Unlock()
		return
	}
	r.initialized = true
	r.mu.Unlock()
	r.emit(Event{Name: EventInitialized})
}

// Settle runs queued work on the calling goroutine until no component load
// is outstanding, and returns the load errors collected so far.
func (r *Runtime) Settle(ctx context.Context) error {
	return r.sched.Wait(ctx)
}

// Dispatch queues fn to run on the goroutine that owns the tree. It is safe
// to call from any goroutine.
func (r *Runtime) Dispatch(fn func()) {
	if fn == nil {
		return
	}
	r.sched.Dispatch(func() {
		fn()
		r.emit(Event{Name: EventChanged})
	})
}

// Call runs fn on the goroutine that owns the tree and waits for it. Some
// goroutine must be draining the queue, normally through Run.
func (r *Runtime) Call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	r.Dispatch(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run makes the calling goroutine the owner of the tree until ctx is done.
func (r *Runtime) Run(ctx context.Context) error {
	return r.sched.Run(ctx)
}

// HTML serializes the host document when the host supports it.
func (r *Runtime) HTML() (string, error) {
	type renderer interface {
		Document() host.Handle
		Render(host.Handle) string
	}
	hr, ok := r.host.(renderer)
	if !ok {
		return "", fmt.Errorf("pink: host %T cannot render", r.host)
	}
	return hr.Render(hr.Document()), nil
}

// Close cancels running loads and destroys the mounted tree.
func (r *Runtime) Close() {
	r.sched.Close()
	if root := r.Root(); root != nil {
		root.Destroy()
	}
}
