package codec

import (
	"encoding/json"
	"math"
	"reflect"

	"github.com/reoring/restmap"
)

// valueField is satisfied by eager descriptors.
type valueField interface {
	Get(r *restmap.Resource) any
	Set(r *restmap.Resource, v any)
}

type scalarKind uint8

const (
	kindAny scalarKind = iota
	kindString
	kindInt
	kindFloat
	kindBool
)

var scalarKinds = map[*restmap.Class]scalarKind{
	restmap.AnnotationClass(nil):                        kindAny,
	restmap.AnnotationClass(reflect.TypeFor[string]()):  kindString,
	restmap.AnnotationClass(reflect.TypeFor[int64]()):   kindInt,
	restmap.AnnotationClass(reflect.TypeFor[float64]()): kindFloat,
	restmap.AnnotationClass(reflect.TypeFor[bool]()):    kindBool,
}

var expectedNames = map[scalarKind][]string{
	kindAny:    {"str", "int", "float", "bool"},
	kindString: {"str"},
	kindInt:    {"int"},
	kindFloat:  {"float", "int"},
	kindBool:   {"bool"},
}

// ScalarSerializer loads and dumps string, int, float, bool and untyped
// scalar fields. Booleans are never accepted for numeric fields, float fields
// accept integers, and nil is always accepted. Integers are stored as int64
// and floats as float64.
type ScalarSerializer struct{}

// Scalar returns the scalar serializer.
func Scalar() *ScalarSerializer { return &ScalarSerializer{} }

func (*ScalarSerializer) Classes() []*restmap.Class {
	out := make([]*restmap.Class, 0, len(scalarKinds))
	for c := range scalarKinds {
		out = append(out, c)
	}
	return out
}

func (*ScalarSerializer) Load(d restmap.Descriptor, raw any, r *restmap.Resource) error {
	f, ok := d.(valueField)
	if !ok {
		return restmap.NewResourceError(restmap.CodeWrongType, "scalar serializer cannot load %T", d)
	}
	v, err := coerce(scalarKinds[d.Class()], raw)
	if err != nil {
		return err
	}
	f.Set(r, v)
	return nil
}

func (*ScalarSerializer) Dump(d restmap.Descriptor, r *restmap.Resource) (any, error) {
	f, ok := d.(valueField)
	if !ok {
		return nil, restmap.NewResourceError(restmap.CodeWrongType, "scalar serializer cannot dump %T", d)
	}
	return coerce(scalarKinds[d.Class()], f.Get(r))
}

// coerce checks v against kind and returns its normalised form.
func coerce(kind scalarKind, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if _, isBool := v.(bool); isBool {
		if kind == kindBool || kind == kindAny {
			return v, nil
		}
		return nil, restmap.NewHydrationTypeError(v, expectedNames[kind]...)
	}
	switch kind {
	case kindString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case kindInt:
		if i, ok := asInt64(v); ok {
			return i, nil
		}
	case kindFloat:
		if f, ok := asFloat64(v); ok {
			return f, nil
		}
	case kindAny:
		if s, ok := v.(string); ok {
			return s, nil
		}
		if i, ok := asInt64(v); ok {
			return i, nil
		}
		if f, ok := asFloat64(v); ok {
			return f, nil
		}
	}
	return nil, restmap.NewHydrationTypeError(v, expectedNames[kind]...)
}

func asInt64(v any) (int64, bool) {
	if n, ok := v.(json.Number); ok {
		i, err := n.Int64()
		return i, err == nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		return int64(u), u <= math.MaxInt64
	}
	return 0, false
}

func asFloat64(v any) (float64, bool) {
	if n, ok := v.(json.Number); ok {
		f, err := n.Float64()
		return f, err == nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	if i, ok := asInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}
