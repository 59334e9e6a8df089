// Package event provides the typed publish/subscribe primitive shared by the
// reactive containers, render tree nodes and the runtime.
//
// A Hub is owned by exactly one object and is not safe for concurrent use;
// like the rest of the runtime it is driven from the UI goroutine.
package event

// Any is the channel name whose handlers receive every dispatched event,
// after the handlers registered for the event's own name.
const Any = "any"

type subscription[E any] struct {
	fn     func(E)
	active bool
}

// Hub dispatches events of type E to handlers registered by name.
// The zero value is ready to use.
type Hub[E any] struct {
	handlers map[string][]*subscription[E]
}

// New returns an empty hub.
func New[E any]() *Hub[E] {
	return &Hub[E]{}
}

// On registers fn for events dispatched under name and returns a function
// that removes the registration. Calling the returned function more than
// once is a no-op.
func (h *Hub[E]) On(name string, fn func(E)) (off func()) {
	if fn == nil {
		return func() {}
	}
	if h.handlers == nil {
		h.handlers = make(map[string][]*subscription[E])
	}
	sub := &subscription[E]{fn: fn, active: true}
	h.handlers[name] = append(h.handlers[name], sub)
	return func() {
		if !sub.active {
			return
		}
		sub.active = false
		h.remove(name, sub)
	}
}

// Once registers fn to run for the next event dispatched under name only.
func (h *Hub[E]) Once(name string, fn func(E)) (off func()) {
	var cancel func()
	cancel = h.On(name, func(e E) {
		cancel()
		fn(e)
	})
	return cancel
}

func (h *Hub[E]) remove(name string, sub *subscription[E]) {
	subs := h.handlers[name]
	for i, s := range subs {
		if s == sub {
			// Copy so that an in-flight Dispatch keeps iterating its snapshot.
			next := make([]*subscription[E], 0, len(subs)-1)
			next = append(next, subs[:i]...)
			next = append(next, subs[i+1:]...)
			if len(next) == 0 {
				delete(h.handlers, name)
			} else {
				h.handlers[name] = next
			}
			return
		}
	}
}

// Dispatch delivers e to the handlers registered under name and then to the
// handlers registered under Any. Handlers run synchronously in registration
// order. A handler removed during dispatch is not called afterwards.
func (h *Hub[E]) Dispatch(name string, e E) {
	if h == nil || len(h.handlers) == 0 {
		return
	}
	h.deliver(h.handlers[name], e)
	if name != Any {
		h.deliver(h.handlers[Any], e)
	}
}

func (h *Hub[E]) deliver(subs []*subscription[E], e E) {
	for _, sub := range subs {
		if sub.active {
			sub.fn(e)
		}
	}
}

// Len returns the number of handlers registered under name.
func (h *Hub[E]) Len(name string) int {
	if h == nil {
		return 0
	}
	return len(h.handlers[name])
}

// Names returns the names that currently have handlers, in no particular order.
func (h *Hub[E]) Names() []string {
	if h == nil {
		return nil
	}
	names := make([]string, 0, len(h.handlers))
	for name := range h.handlers {
		names = append(names, name)
	}
	return names
}

// Clear removes every handler.
func (h *Hub[E]) Clear() {
	for _, subs := range h.handlers {
		for _, sub := range subs {
			sub.active = false
		}
	}
	h.handlers = nil
}
