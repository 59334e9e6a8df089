package eval

import (
	"errors"
	"math"
	"testing"

	"github.com/go-pink/pink/pkg/reactive"
)

func TestTruthy(t *testing.T) {
	tests := []struct {
		v    any
		want bool
	}{
		{nil, false},
		{false, false},
		{true, true},
		{0, false},
		{int64(2), true},
		{0.0, false},
		{math.NaN(), false},
		{-1.5, true},
		{"", false},
		{"0", true},
		{reactive.NewArray(nil), true},
		{reactive.NewObject(nil), true},
		{[]int(nil), false},
		{[]int{}, true},
	}
	for _, tt := range tests {
		if got := Truthy(tt.v); got != tt.want {
			t.Errorf("Truthy(%#v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestStringify(t *testing.T) {
	obj := reactive.NewObject(nil)
	obj.Set("a", 1)
	tests := []struct {
		name string
		v    any
		want string
	}{
		{"nil", nil, ""},
		{"string", "hi", "hi"},
		{"int", 42, "42"},
		{"whole float", 2.0, "2"},
		{"fraction", 0.5, "0.5"},
		{"bool", true, "true"},
		{"error", errors.New("bad"), "bad"},
		{"array", reactive.NewArray(nil, 1, "x"), `[1,"x"]`},
		{"object", obj, `{"a":1}`},
		{"slice", []int{1, 2}, "[1,2]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Stringify(tt.v); got != tt.want {
				t.Errorf("Stringify = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWithOverlay(t *testing.T) {
	base := MapEnv{"x": 1}
	env := With(base, map[string]any{"event": "click"})

	if v, ok := env.Get("event"); !ok || v != "click" {
		t.Errorf("Get(event) = %v, %v", v, ok)
	}
	if v, ok := env.Get("x"); !ok || v != 1 {
		t.Errorf("Get(x) = %v, %v", v, ok)
	}
	if err := env.Set("x", 2); err != nil {
		t.Fatal(err)
	}
	if base["x"] != 2 {
		t.Errorf("write did not reach the base env: %v", base["x"])
	}
	if err := env.Set("event", "input"); err != nil {
		t.Fatal(err)
	}
	if _, ok := base["event"]; ok {
		t.Error("overlay write leaked into the base env")
	}
}

func TestCall(t *testing.T) {
	got, err := Call(func(a, b int) int { return a + b }, 1, 2.0)
	if err != nil || got != 3 {
		t.Errorf("Call(add) = %v, %v", got, err)
	}

	_, err = Call(func() error { return errors.New("fail") })
	if err == nil || err.Error() != "fail" {
		t.Errorf("Call(fail) err = %v", err)
	}

	got, err = Call(func(xs ...string) int { return len(xs) }, "a", "b")
	if err != nil || got != 2 {
		t.Errorf("Call(variadic) = %v, %v", got, err)
	}

	if _, err := Call(func(s string) {}, 1); err == nil {
		t.Error("Call with a mismatched argument should fail")
	}
	if _, err := Call(func() { panic("x") }); err == nil {
		t.Error("a panicking call should return an error")
	}
	if _, err := Call(3); err == nil {
		t.Error("Call(non-func) should fail")
	}
	if !Callable(func() {}) || Callable(1) || Callable(nil) {
		t.Error("Callable mismatch")
	}
}
