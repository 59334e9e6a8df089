package event

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestHubDispatchOrder(t *testing.T) {
	var got []string
	h := New[int]()
	h.On("set", func(v int) { got = append(got, "set-a") })
	h.On(Any, func(v int) { got = append(got, "any") })
	h.On("set", func(v int) { got = append(got, "set-b") })
	h.On("add", func(v int) { got = append(got, "add") })

	h.Dispatch("set", 1)

	want := []string{"set-a", "set-b", "any"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("dispatch order mismatch (-want +got):\n%s", diff)
	}
}

func TestHubOff(t *testing.T) {
	calls := 0
	var h Hub[string]
	off := h.On("x", func(string) { calls++ })
	h.Dispatch("x", "a")
	off()
	off()
	h.Dispatch("x", "b")
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if h.Len("x") != 0 {
		t.Errorf("Len = %d, want 0", h.Len("x"))
	}
}

func TestHubRemoveDuringDispatch(t *testing.T) {
	var got []string
	h := New[int]()
	var offB func()
	h.On("x", func(int) {
		got = append(got, "a")
		offB()
	})
	offB = h.On("x", func(int) { got = append(got, "b") })

	h.Dispatch("x", 0)
	h.Dispatch("x", 0)

	if diff := cmp.Diff([]string{"a", "a"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestHubOnce(t *testing.T) {
	calls := 0
	h := New[int]()
	h.Once("x", func(int) { calls++ })
	h.Dispatch("x", 1)
	h.Dispatch("x", 2)
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestHubNilAndClear(t *testing.T) {
	var nilHub *Hub[int]
	nilHub.Dispatch("x", 1)
	if nilHub.Len("x") != 0 {
		t.Error("nil hub should report no handlers")
	}

	h := New[int]()
	calls := 0
	h.On("x", func(int) { calls++ })
	h.Clear()
	h.Dispatch("x", 1)
	if calls != 0 {
		t.Errorf("calls after Clear = %d, want 0", calls)
	}
}
