// Package eval defines the expression evaluation capability the runtime
// delegates to, and value helpers shared by evaluators and directives.
//
// The runtime never parses expressions. Directives hand the raw attribute or
// interpolation text to an Evaluator together with an Env (normally the
// node's scope). Reads an evaluator performs through the Env and through
// reactive containers are what the dependency tracker observes, so an
// evaluator should resolve only the identifiers an expression references.
package eval

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-pink/pink/pkg/errors"
	"github.com/go-pink/pink/pkg/reactive"
)

// Env resolves and assigns free identifiers.
type Env interface {
	Get(name string) (any, bool)
	Set(name string, v any) error
}

// Evaluator evaluates expressions and executes statement lists.
type Evaluator interface {
	// Eval returns the value of a single expression.
	Eval(code string, env Env) (any, error)
	// Exec runs a script for its side effects on env.
	Exec(script string, env Env) error
}

// Assigner is implemented by evaluators that can write through an
// assignable expression such as "user.name" or "items[0]".
type Assigner interface {
	Assign(target string, value any, env Env) error
}

// With returns an Env that resolves vars first and delegates everything else
// to env. Writes to a name in vars update the overlay only.
func With(env Env, vars map[string]any) Env {
	return &overlay{Env: env, vars: vars}
}

type overlay struct {
	Env
	vars map[string]any
}

func (o *overlay) Get(name string) (any, bool) {
	if v, ok := o.vars[name]; ok {
		return v, true
	}
	if o.Env == nil {
		return nil, false
	}
	return o.Env.Get(name)
}

func (o *overlay) Set(name string, v any) error {
	if _, ok := o.vars[name]; ok {
		o.vars[name] = v
		return nil
	}
	if o.Env == nil {
		return errors.NotImplemented("eval.With", "assignment without a base environment")
	}
	return o.Env.Set(name, v)
}

// MapEnv is an Env over a plain map, useful for tests and scripts that run
// outside a render tree.
type MapEnv map[string]any

func (m MapEnv) Get(name string) (any, bool) {
	v, ok := m[name]
	return v, ok
}

func (m MapEnv) Set(name string, v any) error {
	m[name] = v
	return nil
}

// Truthy reports whether v counts as true in a condition. nil, false, zero
// numbers, NaN and the empty string are false. Containers are always true.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case *reactive.Object, *reactive.Array:
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f != 0 && !math.IsNaN(f)
	case reflect.Pointer, reflect.Interface, reflect.Func, reflect.Chan:
		return !rv.IsNil()
	case reflect.Map, reflect.Slice:
		return !rv.IsNil()
	}
	return true
}

// Stringify renders v as interpolated text. nil renders empty, whole floats
// render without a fraction, containers render as JSON and errors render
// their message.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case error:
		return x.Error()
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return formatFloat(x)
	case float32:
		return formatFloat(float64(x))
	case *reactive.Object, *reactive.Array:
		return toJSON(x)
	case fmt.Stringer:
		return x.String()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		return toJSON(v)
	}
	return fmt.Sprint(v)
}

// toJSON reads containers through their tracked API before encoding so a
// rendered container stays subscribed to its contents.
func toJSON(v any) string {
	touch(v)
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func touch(v any) {
	switch x := v.(type) {
	case *reactive.Object:
		x.Range(func(_ string, child any) bool {
			touch(child)
			return true
		})
	case *reactive.Array:
		x.Range(func(_ int, child any) bool {
			touch(child)
			return true
		})
	}
}

func formatFloat(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Number converts numeric values to float64.
func Number(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(rv.String()), 64)
		return f, err == nil
	}
	return 0, false
}

// Callable reports whether v can be passed to Call.
func Callable(v any) bool {
	if v == nil {
		return false
	}
	return reflect.TypeOf(v).Kind() == reflect.Func
}

// Call invokes fn with args, converting arguments where the parameter types
// allow it. A trailing error result is returned as the error; the first
// other result, if any, is returned as the value.
func Call(fn any, args ...any) (result any, err error) {
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func {
		return nil, fmt.Errorf("%T is not callable", fn)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("call panicked: %v", r)
		}
	}()

	ft := rv.Type()
	n := ft.NumIn()
	var in []reflect.Value
	for i := 0; i < n; i++ {
		pt := ft.In(i)
		if ft.IsVariadic() && i == n-1 {
			et := pt.Elem()
			for _, a := range args[min(i, len(args)):] {
				v, err := convert(a, et)
				if err != nil {
					return nil, err
				}
				in = append(in, v)
			}
			break
		}
		var a any
		if i < len(args) {
			a = args[i]
		}
		v, err := convert(a, pt)
		if err != nil {
			return nil, err
		}
		in = append(in, v)
	}

	out := rv.Call(in)
	errType := reflect.TypeOf((*error)(nil)).Elem()
	for _, o := range out {
		if o.Type().Implements(errType) && o.Type().Kind() == reflect.Interface {
			if !o.IsNil() {
				err = o.Interface().(error)
			}
			continue
		}
		if result == nil {
			result = o.Interface()
		}
	}
	return result, err
}

func convert(a any, t reflect.Type) (reflect.Value, error) {
	if a == nil {
		return reflect.Zero(t), nil
	}
	v := reflect.ValueOf(a)
	if v.Type().AssignableTo(t) {
		return v, nil
	}
	if v.Type().ConvertibleTo(t) && isNumeric(v.Kind()) == isNumeric(t.Kind()) {
		return v.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %T as %s", a, t)
}

func isNumeric(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Float64
}
