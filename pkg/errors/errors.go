// Package errors provides structured error handling for the Pink runtime.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindConfig indicates malformed directive or component wiring.
	KindConfig
	// KindBounds indicates an index outside a collection's valid range.
	KindBounds
	// KindEval indicates an expression evaluation failure.
	KindEval
	// KindNotImplemented indicates a capability that is intentionally absent.
	KindNotImplemented
	// KindLoad indicates a component fragment could not be loaded.
	KindLoad
	// KindPanic indicates a recovered panic.
	KindPanic
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindBounds:
		return "bounds"
	case KindEval:
		return "eval"
	case KindNotImplemented:
		return "not-implemented"
	case KindLoad:
		return "load"
	case KindPanic:
		return "panic"
	default:
		return "unknown"
	}
}

// Sentinel errors wrapped by PinkError values.
var (
	ErrIndexOutOfRange       = stderrors.New("index was out of range: must be non-negative and less than the size of the collection")
	ErrNotImplemented        = stderrors.New("not implemented")
	ErrNotFound              = stderrors.New("not found")
	ErrComponentRequiresSrc  = stderrors.New("component requires 'src' attribute")
	ErrComponentOneElement   = stderrors.New("a component can only contain one element")
	ErrComponentRequiresSlot = stderrors.New("the component requires a slot")
	ErrSlotRequiresName      = stderrors.New("slot requires 'name' attribute")
	ErrSlotOneElement        = stderrors.New("a slot can only contain one element")
	ErrBindingType           = stderrors.New("the binding returned an unexpected type")
	ErrUnknownLang           = stderrors.New("unknown lang")
	ErrRepeatSyntax          = stderrors.New("malformed 'for' attribute")
	ErrRepeatLimit           = stderrors.New("'for' exceeded the iteration limit")

	// ErrInsertIndexOutOfRange matches ErrIndexOutOfRange under Is. Insert
	// positions may equal the collection size.
	ErrInsertIndexOutOfRange error = insertRangeError{}
)

type insertRangeError struct{}

func (insertRangeError) Error() string {
	return "index was out of range: must be non-negative and not greater than the size of the collection"
}

func (insertRangeError) Is(target error) bool { return target == ErrIndexOutOfRange }

// PinkError represents a structured error in the Pink runtime.
type PinkError struct {
	// Op is the operation that failed (e.g., "directive.Repeat").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// Node is the id of the render tree node involved, if any.
	Node uint64
	// Err is the underlying error.
	Err error
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *PinkError) Error() string {
	if e.Node != 0 {
		return fmt.Sprintf("%s [%s] node=%d: %v", e.Op, e.Kind, e.Node, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *PinkError) Unwrap() error {
	return e.Err
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g., "directive.Event").
	Op string
	// Value is the value passed to panic().
	Value any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

func (e *PanicError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// Config returns a configuration error for op.
func Config(op string, err error) *PinkError {
	return &PinkError{Op: op, Kind: KindConfig, Err: err}
}

// Configf wraps sentinel with a formatted detail message.
func Configf(op string, sentinel error, format string, args ...any) *PinkError {
	return &PinkError{Op: op, Kind: KindConfig, Err: fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))}
}

// Bounds returns an index-out-of-range error naming the offending parameter.
func Bounds(op, param string, index, length int) *PinkError {
	return &PinkError{
		Op:   op,
		Kind: KindBounds,
		Err:  fmt.Errorf("%w: %s=%d, length=%d", ErrIndexOutOfRange, param, index, length),
	}
}

// InsertBounds is Bounds for insert positions, where index == length is
// valid.
func InsertBounds(op, param string, index, length int) *PinkError {
	return &PinkError{
		Op:   op,
		Kind: KindBounds,
		Err:  fmt.Errorf("%w: %s=%d, length=%d", ErrInsertIndexOutOfRange, param, index, length),
	}
}

// NotImplemented returns an error for a capability that is not provided.
func NotImplemented(op, what string) *PinkError {
	return &PinkError{Op: op, Kind: KindNotImplemented, Err: fmt.Errorf("%w: %s", ErrNotImplemented, what)}
}

// Eval returns an expression evaluation error.
func Eval(op, expr string, err error) *PinkError {
	return &PinkError{Op: op, Kind: KindEval, Err: fmt.Errorf("evaluate %q: %w", expr, err)}
}

// KindOf returns the kind of the first PinkError in err's chain.
func KindOf(err error) ErrorKind {
	var pe *PinkError
	if stderrors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnknown
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool { return stderrors.As(err, target) }

// New returns an error that formats as the given text.
func New(text string) error { return stderrors.New(text) }

// Join returns an error that wraps the given errors.
func Join(errs ...error) error { return stderrors.Join(errs...) }

// ErrorHandler receives errors reported by the Pink runtime.
type ErrorHandler interface {
	// HandleError is called when an error occurs.
	HandleError(err *PinkError)
	// HandlePanic is called when a panic is recovered.
	HandlePanic(err *PanicError)
}
