package reactive

import (
	"bytes"
	"encoding/json"
)

// Object is an observable mapping from string keys to values. Keys keep
// their insertion order.
type Object struct {
	base
	keys   []string
	values map[string]any
}

// NewObject returns an empty object whose reads are reported to obs.
func NewObject(obs Observer) *Object {
	return &Object{
		base:   base{id: newID(), obs: obs},
		values: make(map[string]any),
	}
}

// ObjectOf wraps values into a new object observed by obs.
func ObjectOf(values map[string]any, obs Observer) *Object {
	if values == nil {
		return NewObject(obs)
	}
	return Wrap(values, obs).(*Object)
}

func (o *Object) setObserver(obs Observer) { o.obs = obs }

// put stores without emitting events. Used while building.
func (o *Object) put(key string, v any) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = Wrap(v, o.obs)
}

// Get returns the value stored under key and emits a get event, also for
// keys that are absent.
func (o *Object) Get(key string) (any, bool) {
	v, ok := o.values[key]
	o.emit(o, KindGet, key, v)
	return v, ok
}

// Has reports whether key is present. It counts as a read of key.
func (o *Object) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// Peek returns the value stored under key without emitting an event.
func (o *Object) Peek(key string) (any, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Set normalizes v and stores it under key. It emits add when the key is
// new and set otherwise.
func (o *Object) Set(key string, v any) {
	v = Wrap(v, o.obs)
	if _, ok := o.values[key]; ok {
		o.values[key] = v
		o.emit(o, KindSet, key, v)
		return
	}
	o.keys = append(o.keys, key)
	o.values[key] = v
	o.emit(o, KindAdd, key, v)
}

// Delete removes key and emits remove. It reports whether the key existed.
func (o *Object) Delete(key string) bool {
	old, ok := o.values[key]
	if !ok {
		return false
	}
	delete(o.values, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
	o.emit(o, KindRemove, key, old)
	return true
}

// Keys returns the keys in insertion order. It emits a get per key followed
// by a get on LengthKey.
func (o *Object) Keys() []string {
	keys := make([]string, len(o.keys))
	copy(keys, o.keys)
	for _, k := range keys {
		o.emit(o, KindGet, k, o.values[k])
	}
	o.emit(o, KindGet, LengthKey, len(keys))
	return keys
}

// Range calls fn for each entry in insertion order until fn returns false.
// Every visited entry emits a get, and a completed iteration emits a get on
// LengthKey.
func (o *Object) Range(fn func(key string, v any) bool) {
	keys := make([]string, len(o.keys))
	copy(keys, o.keys)
	for _, k := range keys {
		v, ok := o.values[k]
		if !ok {
			continue
		}
		o.emit(o, KindGet, k, v)
		if !fn(k, v) {
			return
		}
	}
	o.emit(o, KindGet, LengthKey, len(keys))
}

// Len returns the number of keys and emits a get on LengthKey.
func (o *Object) Len() int {
	n := len(o.keys)
	o.emit(o, KindGet, LengthKey, n)
	return n
}

// MarshalJSON encodes the object with keys in insertion order.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(o.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
