package reactive

import (
	"encoding/json"

	"github.com/go-pink/pink/pkg/errors"
)

// Array is an observable sequence. Keys of its events are int indices.
type Array struct {
	base
	items []any
}

// NewArray returns an array holding the normalized items, observed by obs.
func NewArray(obs Observer, items ...any) *Array {
	a := &Array{base: base{id: newID(), obs: obs}}
	a.items = make([]any, len(items))
	for i, item := range items {
		a.items[i] = Wrap(item, obs)
	}
	return a
}

func (a *Array) setObserver(obs Observer) { a.obs = obs }

// Get returns the element at i and emits a get event. Out of range reads
// return nil and false.
func (a *Array) Get(i int) (any, bool) {
	var v any
	ok := i >= 0 && i < len(a.items)
	if ok {
		v = a.items[i]
	}
	a.emit(a, KindGet, i, v)
	return v, ok
}

// Peek returns the element at i without emitting an event.
func (a *Array) Peek(i int) (any, bool) {
	if i < 0 || i >= len(a.items) {
		return nil, false
	}
	return a.items[i], true
}

// Set replaces the element at i and emits set. Setting i == Len appends and
// emits add.
func (a *Array) Set(i int, v any) error {
	if i < 0 || i > len(a.items) {
		return errors.Bounds("reactive.Array.Set", "index", i, len(a.items))
	}
	v = Wrap(v, a.obs)
	if i == len(a.items) {
		a.items = append(a.items, v)
		a.emit(a, KindAdd, i, v)
		return nil
	}
	a.items[i] = v
	a.emit(a, KindSet, i, v)
	return nil
}

// Push appends values, emitting one add per value.
func (a *Array) Push(values ...any) {
	for _, v := range values {
		v = Wrap(v, a.obs)
		a.items = append(a.items, v)
		a.emit(a, KindAdd, len(a.items)-1, v)
	}
}

// Insert places values starting at index i, shifting later elements right.
// Valid indices are [0, Len]. One add is emitted per value.
func (a *Array) Insert(i int, values ...any) error {
	if i < 0 || i > len(a.items) {
		return errors.InsertBounds("reactive.Array.Insert", "index", i, len(a.items))
	}
	for k, v := range values {
		v = Wrap(v, a.obs)
		at := i + k
		a.items = append(a.items, nil)
		copy(a.items[at+1:], a.items[at:])
		a.items[at] = v
		a.emit(a, KindAdd, at, v)
	}
	return nil
}

// RemoveAt deletes the element at i and emits remove with the old value.
// The array is left untouched when i is outside [0, Len).
func (a *Array) RemoveAt(i int) error {
	if i < 0 || i >= len(a.items) {
		return errors.Bounds("reactive.Array.RemoveAt", "index", i, len(a.items))
	}
	old := a.items[i]
	copy(a.items[i:], a.items[i+1:])
	a.items[len(a.items)-1] = nil
	a.items = a.items[:len(a.items)-1]
	a.emit(a, KindRemove, i, old)
	return nil
}

// Remove deletes the first element equal to v. It returns the removed index
// and true, or -1 and false when v is absent.
func (a *Array) Remove(v any) (int, bool) {
	i := a.IndexOf(v)
	if i < 0 {
		return -1, false
	}
	_ = a.RemoveAt(i)
	return i, true
}

// IndexOf returns the index of the first element equal to v, or -1.
// Containers compare by identity. It does not emit events.
func (a *Array) IndexOf(v any) int {
	for i, item := range a.items {
		if same(item, v) {
			return i
		}
	}
	return -1
}

// Range calls fn for each element in order until fn returns false. Every
// visited element emits a get, and a completed iteration emits a get on
// LengthKey.
func (a *Array) Range(fn func(i int, v any) bool) {
	n := len(a.items)
	for i := 0; i < n && i < len(a.items); i++ {
		v := a.items[i]
		a.emit(a, KindGet, i, v)
		if !fn(i, v) {
			return
		}
	}
	a.emit(a, KindGet, LengthKey, len(a.items))
}

// Values returns a copy of the elements, read through Range.
func (a *Array) Values() []any {
	out := make([]any, 0, len(a.items))
	a.Range(func(_ int, v any) bool {
		out = append(out, v)
		return true
	})
	return out
}

// Len returns the number of elements and emits a get on LengthKey.
func (a *Array) Len() int {
	n := len(a.items)
	a.emit(a, KindGet, LengthKey, n)
	return n
}

func (a *Array) MarshalJSON() ([]byte, error) {
	if a.items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a.items)
}
