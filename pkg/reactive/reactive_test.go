package reactive

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/go-pink/pink/pkg/errors"
)

type recorder struct {
	events []ChangeEvent
}

func (r *recorder) Observe(e ChangeEvent) { r.events = append(r.events, e) }

func (r *recorder) keys() []any {
	out := make([]any, len(r.events))
	for i, e := range r.events {
		out[i] = e.Key
	}
	return out
}

type change struct {
	Kind  string
	Key   any
	Value any
}

func collect(c Container) *[]change {
	var got []change
	c.Hub().On("add", func(e ChangeEvent) { got = append(got, change{"add", e.Key, Raw(e.Value)}) })
	c.Hub().On("set", func(e ChangeEvent) { got = append(got, change{"set", e.Key, Raw(e.Value)}) })
	c.Hub().On("remove", func(e ChangeEvent) { got = append(got, change{"remove", e.Key, Raw(e.Value)}) })
	return &got
}

func TestWrapNormalizesNestedValues(t *testing.T) {
	obs := &recorder{}
	v := Wrap(map[string]any{
		"user":  map[string]any{"name": "ada"},
		"todos": []string{"a", "b"},
		"n":     1,
	}, obs)

	o, ok := v.(*Object)
	if !ok {
		t.Fatalf("Wrap(map) = %T, want *Object", v)
	}
	user, _ := o.Peek("user")
	if _, ok := user.(*Object); !ok {
		t.Errorf("nested map = %T, want *Object", user)
	}
	todos, _ := o.Peek("todos")
	arr, ok := todos.(*Array)
	if !ok {
		t.Fatalf("nested slice = %T, want *Array", todos)
	}
	if arr.Observer() != obs {
		t.Error("nested containers should inherit the observer")
	}
	if diff := cmp.Diff([]string{"n", "todos", "user"}, o.keys); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestWrapScalarsUnchanged(t *testing.T) {
	for _, v := range []any{nil, 1, "x", true, 2.5, []byte("raw")} {
		got := Wrap(v, nil)
		if IsContainer(got) {
			t.Errorf("Wrap(%v) produced a container", v)
		}
	}
}

func TestSetWrapsAndAdoptsObserver(t *testing.T) {
	obs := &recorder{}
	o := NewObject(obs)
	detached := NewObject(nil)
	detached.Set("inner", []any{1})

	o.Set("child", detached)
	if detached.Observer() != obs {
		t.Error("stored container should adopt the parent's observer")
	}
	inner, _ := detached.Peek("inner")
	if inner.(*Array).Observer() != obs {
		t.Error("adoption should be recursive")
	}

	o.Set("list", []int{1, 2})
	list, _ := o.Peek("list")
	if _, ok := list.(*Array); !ok {
		t.Errorf("Set([]int) stored %T, want *Array", list)
	}
}

func TestObjectEvents(t *testing.T) {
	o := NewObject(nil)
	got := collect(o)

	o.Set("x", 1)
	o.Set("x", 2)
	o.Set("y", 3)
	if !o.Delete("x") {
		t.Fatal("Delete(x) = false")
	}
	if o.Delete("missing") {
		t.Error("Delete(missing) = true")
	}

	want := []change{
		{"add", "x", 1},
		{"set", "x", 2},
		{"add", "y", 3},
		{"remove", "x", 2},
	}
	if diff := cmp.Diff(want, *got); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestObjectReadsEmitGet(t *testing.T) {
	obs := &recorder{}
	o := NewObject(obs)
	o.Set("a", 1)
	o.Set("b", 2)
	obs.events = nil

	o.Get("a")
	o.Get("missing")
	o.Keys()
	o.Len()

	want := []any{"a", "missing", "a", "b", LengthKey, LengthKey}
	if diff := cmp.Diff(want, obs.keys()); diff != "" {
		t.Errorf("get keys mismatch (-want +got):\n%s", diff)
	}
	for _, e := range obs.events {
		if e.Kind != KindGet {
			t.Errorf("observer received %v, want only get", e.Kind)
		}
	}

	obs.events = nil
	o.Peek("a")
	if len(obs.events) != 0 {
		t.Errorf("Peek emitted %d events", len(obs.events))
	}
}

func TestArrayInsertRemove(t *testing.T) {
	a := NewArray(nil, "a", "b", "c")
	got := collect(a)

	if err := a.Insert(1, "z"); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if diff := cmp.Diff([]any{"a", "z", "b", "c"}, Raw(a)); diff != "" {
		t.Errorf("after insert (-want +got):\n%s", diff)
	}
	if err := a.RemoveAt(0); err != nil {
		t.Fatalf("RemoveAt: %v", err)
	}
	if diff := cmp.Diff([]any{"z", "b", "c"}, Raw(a)); diff != "" {
		t.Errorf("after remove (-want +got):\n%s", diff)
	}
	a.Push("d")
	if err := a.Set(0, "y"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := a.Set(a.Len(), "e"); err != nil {
		t.Fatalf("Set(len): %v", err)
	}

	want := []change{
		{"add", 1, "z"},
		{"remove", 0, "a"},
		{"add", 3, "d"},
		{"set", 0, "y"},
		{"add", 4, "e"},
	}
	if diff := cmp.Diff(want, *got); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestArrayBounds(t *testing.T) {
	a := NewArray(nil, 1, 2, 3)
	tests := []struct {
		name string
		call func() error
	}{
		{"RemoveAt(len)", func() error { return a.RemoveAt(3) }},
		{"RemoveAt(-1)", func() error { return a.RemoveAt(-1) }},
		{"Insert(len+1)", func() error { return a.Insert(4, 0) }},
		{"Set(len+1)", func() error { return a.Set(4, 0) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if !errors.Is(err, errors.ErrIndexOutOfRange) {
				t.Fatalf("err = %v, want ErrIndexOutOfRange", err)
			}
			if errors.KindOf(err) != errors.KindBounds {
				t.Errorf("KindOf = %v, want bounds", errors.KindOf(err))
			}
		})
	}
	if diff := cmp.Diff([]any{1, 2, 3}, Raw(a)); diff != "" {
		t.Errorf("failed mutations changed the array (-want +got):\n%s", diff)
	}
}

func TestArrayRemoveByValue(t *testing.T) {
	item := NewObject(nil)
	a := NewArray(nil, "a", item, "b")

	if i, ok := a.Remove(item); !ok || i != 1 {
		t.Errorf("Remove(item) = %d, %v; want 1, true", i, ok)
	}
	if i, ok := a.Remove("missing"); ok || i != -1 {
		t.Errorf("Remove(missing) = %d, %v; want -1, false", i, ok)
	}
	if i, ok := a.Remove([]int{1}); ok || i != -1 {
		t.Errorf("Remove(uncomparable) = %d, %v; want -1, false", i, ok)
	}
}

func TestArrayRangeEmitsPerElement(t *testing.T) {
	obs := &recorder{}
	a := NewArray(obs, "x", "y")
	obs.events = nil

	var seen []any
	a.Range(func(i int, v any) bool {
		seen = append(seen, v)
		return true
	})
	if diff := cmp.Diff([]any{"x", "y"}, seen); diff != "" {
		t.Errorf("Range values (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{0, 1, LengthKey}, obs.keys()); diff != "" {
		t.Errorf("Range get keys (-want +got):\n%s", diff)
	}
}

func TestIdentityStable(t *testing.T) {
	o := NewObject(nil)
	id := o.ID()
	o.Set("a", 1)
	o.Set("a", 2)
	o.Delete("a")
	if o.ID() != id {
		t.Error("ID changed across mutations")
	}
	if NewObject(nil).ID() == id {
		t.Error("distinct containers share an ID")
	}
}

func TestCloneIsDeep(t *testing.T) {
	src := ObjectOf(map[string]any{"list": []any{1, 2}}, nil)
	cp := Clone(src, nil).(*Object)
	if cp.ID() == src.ID() {
		t.Fatal("clone shares identity")
	}
	list, _ := cp.Peek("list")
	list.(*Array).Push(3)

	if diff := cmp.Diff(map[string]any{"list": []any{1, 2}}, Raw(src)); diff != "" {
		t.Errorf("source changed (-want +got):\n%s", diff)
	}
}

func TestMarshalJSONKeepsOrder(t *testing.T) {
	o := NewObject(nil)
	o.Set("z", 1)
	o.Set("a", []any{"x", map[string]any{"k": true}})
	b, err := json.Marshal(o)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(b), `{"z":1,"a":["x",{"k":true}]}`; got != want {
		t.Errorf("json = %s, want %s", got, want)
	}
}
