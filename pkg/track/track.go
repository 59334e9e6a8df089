// Package track records which reactive container keys a function reads and
// re-runs functions when those keys change.
//
// A Tracker is the observer installed on every container of a runtime. While
// a tracking session is open, each get event is attributed to the session;
// outside a session, reads are ignored.
//
// Sessions may nest, in which case reads are attributed to the innermost one
// only. Callers should still avoid nesting: a directive's update that opens
// its own session hides those reads from the enclosing one.
package track

import (
	"slices"

	"github.com/go-pink/pink/pkg/errors"
	"github.com/go-pink/pink/pkg/reactive"
)

// Record is the set of keys read from one container during a session.
type Record struct {
	Target reactive.Source
	// Keys are de-duplicated, in first-read order.
	Keys []any
}

// Has reports whether key was read.
func (r Record) Has(key any) bool {
	return slices.Contains(r.Keys, key)
}

type session struct {
	records []Record
	index   map[uint64]int
}

func (s *session) add(target reactive.Source, key any) {
	i, ok := s.index[target.ID()]
	if !ok {
		s.index[target.ID()] = len(s.records)
		s.records = append(s.records, Record{Target: target, Keys: []any{key}})
		return
	}
	if !s.records[i].Has(key) {
		s.records[i].Keys = append(s.records[i].Keys, key)
	}
}

// Tracker collects dependency records. It is not safe for concurrent use.
type Tracker struct {
	stack []*session
}

// New returns a tracker with no open session.
func New() *Tracker {
	return &Tracker{}
}

// Observe implements reactive.Observer.
func (t *Tracker) Observe(e reactive.ChangeEvent) {
	if e.Kind != reactive.KindGet || len(t.stack) == 0 || e.Container == nil {
		return
	}
	t.stack[len(t.stack)-1].add(e.Container, e.Key)
}

// Active reports whether a tracking session is open.
func (t *Tracker) Active() bool {
	return len(t.stack) > 0
}

// Track runs fn once inside a new session and returns the records, one per
// distinct container in first-read order. A function that reads no reactive
// state yields an empty result.
func (t *Tracker) Track(fn func()) []Record {
	s := &session{index: make(map[uint64]int)}
	t.stack = append(t.stack, s)
	defer func() {
		t.stack = t.stack[:len(t.stack)-1]
	}()
	fn()
	return s.records
}

// Untracked runs fn with tracking suspended, so reads inside fn are not
// attributed to any open session.
func (t *Tracker) Untracked(fn func()) {
	saved := t.stack
	t.stack = nil
	defer func() { t.stack = saved }()
	fn()
}

// maxPasses bounds the re-runs caused by fn writing keys it reads.
const maxPasses = 100

// Watcher keeps a function subscribed to exactly the keys its latest run
// read.
type Watcher struct {
	tracker *Tracker
	fn      func()
	records []Record
	offs    []func()
	running bool
	dirty   bool
	stopped bool
	runs    int
}

// Watch runs fn under Track and re-runs it, again under Track, whenever a
// key it read is written. Writes emit set events; when fn read a
// container's LengthKey, adds and removes on that container also trigger a
// re-run, and so do adds and removes of the exact keys fn read. On arrays,
// an add or remove at index j also re-runs fn if it read any index >= j.
//
// A panic inside fn is recovered and reported through errors.ReportPanic; the
// keys read before the panic stay subscribed.
func (t *Tracker) Watch(fn func()) *Watcher {
	w := &Watcher{tracker: t, fn: fn}
	w.run()
	return w
}

func (w *Watcher) run() {
	if w.running {
		// A write made by fn itself. Run again once the current pass returns.
		w.dirty = true
		return
	}
	w.running = true
	defer func() { w.running = false }()

	for pass := 0; ; pass++ {
		if pass == maxPasses {
			errors.Report(&errors.PinkError{
				Op:   "track.Watcher",
				Kind: errors.KindEval,
				Err:  errors.New("watched function keeps invalidating itself"),
			})
			return
		}
		w.dirty = false
		w.unsubscribe()
		w.records = w.tracker.Track(w.call)
		w.runs++
		if w.stopped {
			w.unsubscribe()
			return
		}
		w.subscribe()
		if !w.dirty {
			return
		}
	}
}

func (w *Watcher) call() {
	defer errors.Recover("track.Watcher")
	w.fn()
}

func (w *Watcher) subscribe() {
	for _, r := range w.records {
		rec := r
		hub := rec.Target.Hub()
		length := rec.Has(reactive.LengthKey)
		w.offs = append(w.offs, hub.On(reactive.KindSet.String(), func(e reactive.ChangeEvent) {
			if rec.Has(e.Key) {
				w.trigger()
			}
		}))
		highest := highestIndex(rec)
		structural := func(e reactive.ChangeEvent) {
			if length || rec.Has(e.Key) {
				w.trigger()
				return
			}
			// Inserts and removals shift every later array element.
			if at, ok := e.Key.(int); ok && highest >= at {
				w.trigger()
			}
		}
		w.offs = append(w.offs,
			hub.On(reactive.KindAdd.String(), structural),
			hub.On(reactive.KindRemove.String(), structural),
		)
	}
}

// highestIndex returns the largest element index read from an array record,
// or -1.
func highestIndex(rec Record) int {
	highest := -1
	if _, ok := rec.Target.(*reactive.Array); !ok {
		return highest
	}
	for _, k := range rec.Keys {
		if i, ok := k.(int); ok && i > highest {
			highest = i
		}
	}
	return highest
}

func (w *Watcher) trigger() {
	if w.stopped {
		return
	}
	w.run()
}

func (w *Watcher) unsubscribe() {
	for _, off := range w.offs {
		off()
	}
	w.offs = w.offs[:0]
}

// Records returns the dependency set of the latest run.
func (w *Watcher) Records() []Record {
	return w.records
}

// Runs returns how many times fn has run.
func (w *Watcher) Runs() int {
	return w.runs
}

// Stop releases every subscription. fn is not run again.
func (w *Watcher) Stop() {
	w.stopped = true
	w.unsubscribe()
}
