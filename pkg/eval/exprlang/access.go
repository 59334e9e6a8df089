package exprlang

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-pink/pink/pkg/eval"
	"github.com/go-pink/pink/pkg/reactive"
)

// member reads key from obj. Containers are read through their tracked API.
// Missing members and nil receivers yield nil.
func member(obj, key any) any {
	switch o := obj.(type) {
	case nil:
		return nil
	case *reactive.Object:
		v, _ := o.Get(keyString(key))
		return v
	case *reactive.Array:
		if key == "length" {
			return o.Len()
		}
		if i, ok := toInt(key); ok {
			v, _ := o.Get(i)
			return v
		}
		return nil
	case map[string]any:
		return o[keyString(key)]
	case eval.Env:
		v, _ := o.Get(keyString(key))
		return v
	case string:
		if key == "length" {
			return utf8.RuneCountInString(o)
		}
	}
	return reflectMember(reflect.ValueOf(obj), key)
}

func reflectMember(v reflect.Value, key any) any {
	if name, ok := key.(string); ok {
		if m := method(v, name); m.IsValid() {
			return m.Interface()
		}
	}
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil
		}
		mv := v.MapIndex(reflect.ValueOf(keyString(key)).Convert(v.Type().Key()))
		if !mv.IsValid() {
			return nil
		}
		return mv.Interface()
	case reflect.Slice, reflect.Array, reflect.String:
		if key == "length" {
			return v.Len()
		}
		i, ok := toInt(key)
		if !ok || i < 0 || i >= v.Len() {
			return nil
		}
		return v.Index(i).Interface()
	case reflect.Struct:
		name := keyString(key)
		f := v.FieldByNameFunc(func(n string) bool { return strings.EqualFold(n, name) })
		if f.IsValid() && f.CanInterface() {
			return f.Interface()
		}
	}
	return nil
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// method finds an exported method by case-insensitive name. Zero-argument
// methods with one non-error result are getters and are called; other
// methods are returned bound.
func method(v reflect.Value, name string) reflect.Value {
	if !v.IsValid() {
		return reflect.Value{}
	}
	t := v.Type()
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if !strings.EqualFold(m.Name, name) {
			continue
		}
		bound := v.Method(i)
		bt := bound.Type()
		if bt.NumIn() == 0 && bt.NumOut() == 1 && bt.Out(0) != errorType {
			return bound.Call(nil)[0]
		}
		return bound
	}
	return reflect.Value{}
}

// iterable converts containers into values expr builtins can iterate.
// Elements stay containers; the conversion reads every entry through the
// tracked API.
func iterable(v any) any {
	switch x := v.(type) {
	case *reactive.Array:
		return x.Values()
	case *reactive.Object:
		out := make(map[string]any, x.Len())
		x.Range(func(k string, item any) bool {
			out[k] = item
			return true
		})
		return out
	}
	return v
}

func length(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case reactive.Container:
		return x.Len(), nil
	case string:
		return utf8.RuneCountInString(x), nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Chan:
		return rv.Len(), nil
	}
	return nil, fmt.Errorf("length of %T", v)
}

func (e *Evaluator) assign(target string, value any, env eval.Env) error {
	obj, key, index, ok := splitTarget(target)
	if !ok {
		return fmt.Errorf("cannot assign to %q", target)
	}
	if obj == "" {
		if env == nil {
			return fmt.Errorf("cannot assign to %q without an environment", key)
		}
		return env.Set(unsigil(key), value)
	}
	owner, err := e.eval(obj, env)
	if err != nil {
		return err
	}
	var k any = key
	if index {
		if k, err = e.eval(key, env); err != nil {
			return err
		}
	}
	return setMember(owner, k, value)
}

func setMember(owner, key, value any) error {
	switch o := owner.(type) {
	case nil:
		return fmt.Errorf("cannot set %v of nil", key)
	case *reactive.Object:
		o.Set(keyString(key), value)
		return nil
	case *reactive.Array:
		i, ok := toInt(key)
		if !ok {
			return fmt.Errorf("invalid array index %v", key)
		}
		return o.Set(i, value)
	case map[string]any:
		o[keyString(key)] = value
		return nil
	case eval.Env:
		return o.Set(keyString(key), value)
	}

	v := reflect.ValueOf(owner)
	if v.Kind() == reflect.Pointer && !v.IsNil() && v.Elem().Kind() == reflect.Struct {
		name := keyString(key)
		f := v.Elem().FieldByNameFunc(func(n string) bool { return strings.EqualFold(n, name) })
		if f.IsValid() && f.CanSet() {
			nv := reflect.ValueOf(value)
			if !nv.IsValid() {
				f.Set(reflect.Zero(f.Type()))
				return nil
			}
			if nv.Type().ConvertibleTo(f.Type()) {
				f.Set(nv.Convert(f.Type()))
				return nil
			}
		}
	}
	return fmt.Errorf("cannot set %v on %T", key, owner)
}

func keyString(key any) string {
	if s, ok := key.(string); ok {
		return s
	}
	return eval.Stringify(key)
}

func toInt(key any) (int, bool) {
	switch k := key.(type) {
	case int:
		return k, true
	case string:
		return 0, false
	}
	f, ok := eval.Number(key)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}
