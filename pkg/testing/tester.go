package testing

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-pink/pink/pkg/host/htmlhost"
	"github.com/go-pink/pink/pkg/pink"
	"github.com/go-pink/pink/pkg/vdom"
)

// DefaultSettleTimeout bounds Settle when no timeout is given.
const DefaultSettleTimeout = 5 * time.Second

// ErrSettleTimeout is returned when Settle exceeds its timeout.
var ErrSettleTimeout = errors.New("Settle timed out: component loads still outstanding")

// ErrNotPumped is returned by operations that need a mounted document.
var ErrNotPumped = errors.New("no document pumped")

// Tester mounts a document on an in-memory HTML host and drives it from
// the test goroutine. The test goroutine owns the tree: queued work runs
// on Pump and Settle.
type Tester struct {
	opts    []pink.Option
	host    *htmlhost.Host
	rt      *pink.Runtime
	root    *vdom.Node
	signals []pink.Event
	offs    []func()
}

// NewTester creates a tester. opts are passed to pink.New on every
// PumpHTML; the host option is supplied by the tester. Call Cleanup when
// done, or use NewTesterWithT instead.
func NewTester(opts ...pink.Option) *Tester {
	return &Tester{opts: opts}
}

// NewTesterWithT creates a tester that auto-cleans up via t.Cleanup().
// This is the recommended constructor for tests.
func NewTesterWithT(t *testing.T, opts ...pink.Option) *Tester {
	tester := NewTester(opts...)
	t.Cleanup(tester.Cleanup)
	return tester
}

// Cleanup destroys the mounted document.
func (t *Tester) Cleanup() {
	for _, off := range t.offs {
		off()
	}
	t.offs = nil
	if t.rt != nil {
		t.rt.Close()
	}
	t.rt = nil
	t.root = nil
	t.host = nil
	t.signals = nil
}

// PumpHTML parses src, mounts its body, and settles. A previously pumped
// document is destroyed first. The returned error joins initialization
// and load errors; the document stays mounted either way.
func (t *Tester) PumpHTML(src string) error {
	t.Cleanup()
	h, err := htmlhost.ParseString(src)
	if err != nil {
		return fmt.Errorf("parse document: %w", err)
	}
	opts := append(append([]pink.Option{}, t.opts...), pink.WithHost(h))
	rt, err := pink.New(opts...)
	if err != nil {
		return err
	}
	t.host = h
	t.rt = rt
	t.offs = append(t.offs, rt.On("any", func(e pink.Event) {
		if e.Name != pink.EventChanged {
			t.signals = append(t.signals, e)
		}
	}))
	root, mountErr := rt.Mount(context.Background(), h.Body())
	t.root = root
	return errors.Join(mountErr, t.Settle(DefaultSettleTimeout))
}

// Pump runs queued work once without waiting for loads.
func (t *Tester) Pump() error {
	if t.rt == nil {
		return ErrNotPumped
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := t.rt.Settle(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Settle runs queued work until no load is outstanding or timeout
// elapses. It returns ErrSettleTimeout on timeout and the collected load
// errors otherwise.
func (t *Tester) Settle(timeout time.Duration) error {
	if t.rt == nil {
		return ErrNotPumped
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	err := t.rt.Settle(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrSettleTimeout
	}
	return err
}

// Runtime returns the runtime of the pumped document, or nil.
func (t *Tester) Runtime() *pink.Runtime { return t.rt }

// Host returns the in-memory host of the pumped document, or nil.
func (t *Tester) Host() *htmlhost.Host { return t.host }

// Root returns the render tree root, or nil.
func (t *Tester) Root() *vdom.Node { return t.root }

// Signals returns the runtime signals observed since PumpHTML, excluding
// change notifications.
func (t *Tester) Signals() []string {
	names := make([]string, len(t.signals))
	for i, e := range t.signals {
		names[i] = e.Name
	}
	return names
}

// Set writes a global and runs the resulting updates.
func (t *Tester) Set(name string, v any) error {
	if t.rt == nil {
		return ErrNotPumped
	}
	if err := t.rt.Globals().Set(name, v); err != nil {
		return err
	}
	return t.Pump()
}

// Get reads a global.
func (t *Tester) Get(name string) any {
	if t.rt == nil {
		return nil
	}
	return t.rt.Globals().Lookup(name)
}

// Find returns the nodes matched by finder in the pumped document.
func (t *Tester) Find(finder Finder) FinderResult {
	if t.root == nil {
		return FinderResult{finder: finder}
	}
	return FinderResult{nodes: finder.Evaluate(t.root), finder: finder}
}

// Dispatch fires event on the host element of the first node matched by
// finder, the way a browser would, then pumps.
func (t *Tester) Dispatch(finder Finder, event string, data any) error {
	if t.rt == nil {
		return ErrNotPumped
	}
	n := t.Find(finder).FirstOrNil()
	if n == nil {
		return fmt.Errorf("dispatch %s: no node matches %s", event, finder.Description())
	}
	if n.Handle() == nil {
		return fmt.Errorf("dispatch %s: %s is not rendered", event, finder.Description())
	}
	if !t.host.Dispatch(n.Handle(), event, data) {
		return fmt.Errorf("dispatch %s: no listener on %s", event, finder.Description())
	}
	return t.Pump()
}

// HTML returns the rendered body contents.
func (t *Tester) HTML() string {
	if t.host == nil {
		return ""
	}
	return t.host.InnerHTML(t.host.Body())
}
