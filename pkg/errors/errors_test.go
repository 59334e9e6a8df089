package errors

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestPinkErrorString(t *testing.T) {
	err := &PinkError{
		Op:   "directive.Component",
		Kind: KindConfig,
		Err:  ErrComponentRequiresSrc,
	}
	want := "directive.Component [config]: component requires 'src' attribute"
	if got := err.Error(); got != want {
		t.Errorf("PinkError.Error() = %q, want %q", got, want)
	}
}

func TestPinkErrorWithNode(t *testing.T) {
	err := &PinkError{Op: "vdom.RemoveNode", Kind: KindBounds, Node: 7, Err: ErrIndexOutOfRange}
	got := err.Error()
	if !strings.Contains(got, "node=7") {
		t.Errorf("error string %q should contain %q", got, "node=7")
	}
}

func TestErrorKindString(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{KindUnknown, "unknown"},
		{KindConfig, "config"},
		{KindBounds, "bounds"},
		{KindEval, "eval"},
		{KindNotImplemented, "not-implemented"},
		{KindLoad, "load"},
		{KindPanic, "panic"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("ErrorKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestConstructorsWrapSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		kind     ErrorKind
	}{
		{"bounds", Bounds("reactive.Array.RemoveAt", "index", 5, 3), ErrIndexOutOfRange, KindBounds},
		{"insert bounds", InsertBounds("vdom.InsertNode", "index", 5, 3), ErrIndexOutOfRange, KindBounds},
		{"insert bounds own sentinel", InsertBounds("vdom.InsertNode", "index", 5, 3), ErrInsertIndexOutOfRange, KindBounds},
		{"not implemented", NotImplemented("directive.Bind", "set"), ErrNotImplemented, KindNotImplemented},
		{"config", Config("directive.Component", ErrSlotRequiresName), ErrSlotRequiresName, KindConfig},
		{"configf", Configf("directive.Component", ErrComponentRequiresSlot, "%q", "header"), ErrComponentRequiresSlot, KindConfig},
		{"eval", Eval("directive.Interpolation", "x +", ErrNotFound), ErrNotFound, KindEval},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !Is(tt.err, tt.sentinel) {
				t.Errorf("Is(%v, %v) = false", tt.err, tt.sentinel)
			}
			if got := KindOf(tt.err); got != tt.kind {
				t.Errorf("KindOf = %v, want %v", got, tt.kind)
			}
		})
	}
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("mount: %w", Bounds("op", "index", -1, 0))
	if got := KindOf(err); got != KindBounds {
		t.Errorf("KindOf = %v, want %v", got, KindBounds)
	}
	if got := KindOf(New("plain")); got != KindUnknown {
		t.Errorf("KindOf(plain) = %v, want %v", got, KindUnknown)
	}
}

func TestInsertBoundsWording(t *testing.T) {
	got := InsertBounds("vdom.InsertNode", "index", 5, 2).Error()
	if !strings.Contains(got, "not greater than the size") {
		t.Errorf("InsertBounds = %q, want insert wording", got)
	}
	if strings.Contains(got, "less than the size") {
		t.Errorf("InsertBounds = %q, uses the element-index wording", got)
	}
	if !strings.Contains(got, "index=5, length=2") {
		t.Errorf("InsertBounds = %q, missing index detail", got)
	}
}

func TestPanicErrorString(t *testing.T) {
	err := &PanicError{Value: "test panic", Timestamp: time.Now()}
	if got, want := err.Error(), "panic: test panic"; got != want {
		t.Errorf("PanicError.Error() = %q, want %q", got, want)
	}
	err.Op = "directive.Event"
	if got, want := err.Error(), "panic in directive.Event: test panic"; got != want {
		t.Errorf("PanicError.Error() = %q, want %q", got, want)
	}
}

func TestReport(t *testing.T) {
	var captured *PinkError
	handler := &testHandler{onError: func(err *PinkError) { captured = err }}
	SetHandler(handler)
	defer SetHandler(nil)

	Report(Config("test.op", ErrSlotOneElement))

	if captured == nil {
		t.Fatal("expected error to be captured")
	}
	if captured.Op != "test.op" {
		t.Errorf("Op = %q, want %q", captured.Op, "test.op")
	}
	if captured.Timestamp.IsZero() {
		t.Error("expected Timestamp to be set")
	}
}

func TestReportWrapsPlainErrors(t *testing.T) {
	var captured *PinkError
	SetHandler(&testHandler{onError: func(err *PinkError) { captured = err }})
	defer SetHandler(nil)

	Report(New("boom"))

	if captured == nil || captured.Kind != KindUnknown {
		t.Fatalf("captured = %+v, want KindUnknown wrapper", captured)
	}
	Report(nil)
}

func TestRecover(t *testing.T) {
	var captured *PanicError
	SetHandler(&testHandler{onPanic: func(err *PanicError) { captured = err }})
	defer SetHandler(nil)

	func() {
		defer Recover("test.recover")
		panic("intentional test panic")
	}()

	if captured == nil {
		t.Fatal("expected panic to be recovered and captured")
	}
	if captured.Value != "intentional test panic" {
		t.Errorf("Value = %v, want %q", captured.Value, "intentional test panic")
	}
	if captured.Op != "test.recover" {
		t.Errorf("Op = %q, want %q", captured.Op, "test.recover")
	}
}

func TestRecoverWithCallback(t *testing.T) {
	SetHandler(&testHandler{})
	defer SetHandler(nil)

	var got any
	func() {
		defer RecoverWithCallback("test.callback", func(r any) { got = r })
		panic(42)
	}()
	if got != 42 {
		t.Errorf("callback value = %v, want 42", got)
	}
}

func TestCaptureStack(t *testing.T) {
	stack := CaptureStack()
	if !strings.Contains(stack, "testing") && !strings.Contains(stack, "runtime") {
		t.Errorf("stack trace should contain testing or runtime frames, got: %s", stack)
	}
}

func TestSetHandlerNil(t *testing.T) {
	SetHandler(nil)
	if _, ok := DefaultHandler.(*LogHandler); !ok {
		t.Errorf("SetHandler(nil) should set LogHandler, got %T", DefaultHandler)
	}
}

func TestLogHandler(t *testing.T) {
	var buf bytes.Buffer
	h := &LogHandler{Logger: slog.New(slog.NewTextHandler(&buf, nil))}
	h.HandleError(&PinkError{Op: "vdom.InsertNode", Kind: KindBounds, Node: 3, Err: ErrIndexOutOfRange})
	h.HandlePanic(&PanicError{Op: "directive.Event", Value: "boom"})

	out := buf.String()
	for _, want := range []string{"op=vdom.InsertNode", "kind=bounds", "node=3", "pink panic", "value=boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q should contain %q", out, want)
		}
	}
}

type testHandler struct {
	onError func(*PinkError)
	onPanic func(*PanicError)
}

func (h *testHandler) HandleError(err *PinkError) {
	if h.onError != nil {
		h.onError(err)
	}
}

func (h *testHandler) HandlePanic(err *PanicError) {
	if h.onPanic != nil {
		h.onPanic(err)
	}
}
