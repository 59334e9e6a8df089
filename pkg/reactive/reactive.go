// Package reactive provides observable wrappers around plain value graphs.
//
// An Object wraps a string-keyed mapping and an Array wraps a sequence. Every
// read goes through the wrapper and emits a get event to the container's
// Observer (normally the dependency tracker); every write emits an add, set
// or remove event on the container's Hub. Nested maps and slices are wrapped
// on write, so every object reachable from a container is itself a container.
//
//	state := reactive.NewObject(tracker)
//	state.Set("todos", []any{"a", "b"})
//	todos, _ := state.Get("todos") // *reactive.Array
//
// Containers are not safe for concurrent use. They belong to the goroutine
// that drives the runtime.
package reactive

import (
	"reflect"
	"sort"
	"sync/atomic"

	"github.com/go-pink/pink/pkg/event"
)

// Kind identifies the operation that produced a ChangeEvent.
type Kind int

const (
	KindGet Kind = iota
	KindAdd
	KindSet
	KindRemove
)

func (k Kind) String() string {
	switch k {
	case KindGet:
		return "get"
	case KindAdd:
		return "add"
	case KindSet:
		return "set"
	case KindRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// ChangeEvent describes one intercepted access to a container.
type ChangeEvent struct {
	Kind      Kind
	Container Container
	// Key is a string for objects and an int for arrays. Reads of the length
	// of a container use LengthKey.
	Key   any
	Value any
	// Origin is the container that first emitted the event. It differs from
	// Container only for events forwarded by a wrapper such as a scope.
	Origin Container
}

type lengthKey struct{}

func (lengthKey) String() string { return "length" }

// LengthKey is the key of get events emitted when a container's size or
// full key set is read. Watchers that read it re-run on add and remove.
var LengthKey any = lengthKey{}

// Observer receives get events. The dependency tracker implements it.
type Observer interface {
	Observe(e ChangeEvent)
}

// Source is anything a dependency record can point at.
type Source interface {
	ID() uint64
	Hub() *event.Hub[ChangeEvent]
}

// Container is implemented by *Object and *Array.
type Container interface {
	Source
	// Len returns the number of entries and records a read of LengthKey.
	Len() int
	// Observer returns the observer receiving this container's get events.
	Observer() Observer
	setObserver(obs Observer)
}

var nextID atomic.Uint64

func newID() uint64 {
	return nextID.Add(1)
}

// base carries the identity, hub and observer shared by both containers.
type base struct {
	id  uint64
	hub event.Hub[ChangeEvent]
	obs Observer
}

func (b *base) ID() uint64 { return b.id }

func (b *base) Hub() *event.Hub[ChangeEvent] { return &b.hub }

func (b *base) Observer() Observer { return b.obs }

func (b *base) emit(self Container, kind Kind, key, value any) {
	e := ChangeEvent{Kind: kind, Container: self, Key: key, Value: value, Origin: self}
	if kind == KindGet && b.obs != nil {
		b.obs.Observe(e)
	}
	b.hub.Dispatch(kind.String(), e)
}

// Wrap normalizes v: maps with string keys become *Object, slices and arrays
// (other than []byte) become *Array, containers are returned unchanged and
// adopt obs if they have no observer yet, and everything else is returned as
// is. Map keys are inserted in sorted order.
func Wrap(v any, obs Observer) any {
	switch x := v.(type) {
	case nil:
		return nil
	case Container:
		adopt(x, obs)
		return x
	case []byte:
		return x
	case map[string]any:
		o := NewObject(obs)
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			o.put(k, x[k])
		}
		return o
	case []any:
		return NewArray(obs, x...)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		o := NewObject(obs)
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		for _, k := range keys {
			o.put(k.String(), rv.MapIndex(k).Interface())
		}
		return o
	case reflect.Slice, reflect.Array:
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return NewArray(obs, items...)
	}
	return v
}

func adopt(c Container, obs Observer) {
	if obs == nil || c.Observer() != nil {
		return
	}
	c.setObserver(obs)
	switch x := c.(type) {
	case *Object:
		for _, k := range x.keys {
			if child, ok := x.values[k].(Container); ok {
				adopt(child, obs)
			}
		}
	case *Array:
		for _, item := range x.items {
			if child, ok := item.(Container); ok {
				adopt(child, obs)
			}
		}
	}
}

// IsContainer reports whether v is a reactive container.
func IsContainer(v any) bool {
	_, ok := v.(Container)
	return ok
}

// Raw deep-unwraps containers into map[string]any and []any without
// emitting any event.
func Raw(v any) any {
	switch x := v.(type) {
	case *Object:
		out := make(map[string]any, len(x.keys))
		for _, k := range x.keys {
			out[k] = Raw(x.values[k])
		}
		return out
	case *Array:
		out := make([]any, len(x.items))
		for i, item := range x.items {
			out[i] = Raw(item)
		}
		return out
	default:
		return v
	}
}

// Clone deep-copies containers into fresh containers observed by obs.
// Scalars are returned as is.
func Clone(v any, obs Observer) any {
	switch x := v.(type) {
	case *Object:
		o := NewObject(obs)
		for _, k := range x.keys {
			o.put(k, Clone(x.values[k], obs))
		}
		return o
	case *Array:
		items := make([]any, len(x.items))
		for i, item := range x.items {
			items[i] = Clone(item, obs)
		}
		return NewArray(obs, items...)
	default:
		return v
	}
}

// same reports identity for containers and equality for comparable values.
func same(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
