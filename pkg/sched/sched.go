// Package sched runs asynchronous work for the UI goroutine.
//
// Render tree state is owned by a single goroutine. Work that blocks, such
// as fetching a component fragment, runs on its own goroutine and hands its
// result back through the dispatch queue; the owning goroutine applies it
// when it drains the queue with Flush or Wait.
package sched

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/go-pink/pink/pkg/errors"
	"github.com/go-pink/pink/pkg/event"
)

// Hub event names.
const (
	EventBegin   = "begin"
	EventEnd     = "end"
	EventSettled = "settled"
)

// Event describes a task transition. Outstanding is the number of tasks
// still running after the transition.
type Event struct {
	Name        string
	Task        string
	Label       string
	Outstanding int
	Err         error
}

// Scheduler tracks outstanding tasks and owns the dispatch queue. Go,
// Dispatch and Outstanding are safe for concurrent use; Flush, Wait and hub
// handlers run on the goroutine calling Flush or Wait.
type Scheduler struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	dispatchMu    sync.Mutex
	dispatchQueue []func()
	wake          chan struct{}

	outstanding int
	errs        []error

	hub event.Hub[Event]
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger receiving task diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithContext sets the parent context of every task.
func WithContext(ctx context.Context) Option {
	return func(s *Scheduler) { s.ctx = ctx }
}

// New returns an idle scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		ctx:    context.Background(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		wake:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ctx, s.cancel = context.WithCancel(s.ctx)
	return s
}

// On subscribes to task transitions.
func (s *Scheduler) On(name string, fn func(Event)) (off func()) {
	return s.hub.On(name, fn)
}

// Go starts a task. work runs on a new goroutine; apply runs afterwards on
// the goroutine draining the queue and receives work's result. The task
// ends once apply returned. Errors from work that apply returns, and errors
// apply returns itself, are collected and reported by Wait.
func (s *Scheduler) Go(label string, work func(ctx context.Context) (any, error), apply func(v any, err error) error) string {
	id := uuid.Must(uuid.NewV7()).String()
	s.dispatchMu.Lock()
	s.outstanding++
	n := s.outstanding
	s.dispatchMu.Unlock()

	s.logger.Debug("sched: begin", "task", id, "label", label, "outstanding", n)
	s.Dispatch(func() {
		s.hub.Dispatch(EventBegin, Event{Name: EventBegin, Task: id, Label: label, Outstanding: n})
	})

	go func() {
		var (
			v   any
			err error
		)
		func() {
			defer func() {
				if r := recover(); r != nil {
					err = &errors.PanicError{Op: label, Value: r, StackTrace: errors.CaptureStack()}
				}
			}()
			v, err = work(s.ctx)
		}()
		s.Dispatch(func() { s.finish(id, label, v, err, apply) })
	}()
	return id
}

func (s *Scheduler) finish(id, label string, v any, err error, apply func(any, error) error) {
	if apply != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					err = &errors.PanicError{Op: label, Value: r, StackTrace: errors.CaptureStack()}
				}
			}()
			err = apply(v, err)
		}()
	}

	s.dispatchMu.Lock()
	s.outstanding--
	n := s.outstanding
	if err != nil {
		s.errs = append(s.errs, err)
	}
	s.dispatchMu.Unlock()

	if err != nil {
		s.logger.Warn("sched: task failed", "task", id, "label", label, "error", err)
	} else {
		s.logger.Debug("sched: end", "task", id, "label", label, "outstanding", n)
	}
	s.hub.Dispatch(EventEnd, Event{Name: EventEnd, Task: id, Label: label, Outstanding: n, Err: err})
	if n == 0 {
		s.hub.Dispatch(EventSettled, Event{Name: EventSettled})
	}
}

// Dispatch queues fn to run on the goroutine draining the queue.
func (s *Scheduler) Dispatch(fn func()) {
	if fn == nil {
		return
	}
	s.dispatchMu.Lock()
	s.dispatchQueue = append(s.dispatchQueue, fn)
	s.dispatchMu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) drainDispatchQueue() []func() {
	s.dispatchMu.Lock()
	callbacks := append([]func(){}, s.dispatchQueue...)
	s.dispatchQueue = nil
	s.dispatchMu.Unlock()
	return callbacks
}

// Flush runs the queued callbacks, including those queued while flushing,
// and returns how many ran.
func (s *Scheduler) Flush() int {
	ran := 0
	for {
		callbacks := s.drainDispatchQueue()
		if len(callbacks) == 0 {
			return ran
		}
		for _, cb := range callbacks {
			cb()
			ran++
		}
	}
}

// Outstanding returns the number of running tasks.
func (s *Scheduler) Outstanding() int {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()
	return s.outstanding
}

// Wait drains the queue until no task is outstanding and returns the task
// errors collected so far, joined. Collected errors are cleared.
func (s *Scheduler) Wait(ctx context.Context) error {
	for {
		s.Flush()
		if s.Outstanding() == 0 {
			s.Flush()
			return s.takeErrors()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.wake:
		}
	}
}

func (s *Scheduler) takeErrors() error {
	s.dispatchMu.Lock()
	errs := s.errs
	s.errs = nil
	s.dispatchMu.Unlock()
	return errors.Join(errs...)
}

// Run drains the queue on the calling goroutine whenever work is queued,
// until ctx is done. It makes the caller the goroutine that owns the tree.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		s.Flush()
		select {
		case <-ctx.Done():
			s.Flush()
			return ctx.Err()
		case <-s.wake:
		}
	}
}

// Close cancels the context passed to running tasks.
func (s *Scheduler) Close() {
	s.cancel()
}
