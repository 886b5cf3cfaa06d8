package restmap

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// LookupFunc resolves a placeholder name to a value.
type LookupFunc func(name string) (any, bool)

// Interpolate substitutes {name} placeholders in template. A leading "0."
// (or a bare "0") addresses the instance the lookup belongs to, so "{0.id}"
// and "{id}" are equivalent. "{{" and "}}" produce literal braces.
func Interpolate(template string, lookup LookupFunc) (string, error) {
	if !strings.ContainsAny(template, "{}") {
		return template, nil
	}
	var b strings.Builder
	b.Grow(len(template))
	for i := 0; i < len(template); i++ {
		c := template[i]
		switch c {
		case '{':
			if i+1 < len(template) && template[i+1] == '{' {
				b.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(template[i+1:], '}')
			if end < 0 {
				return "", fmt.Errorf("restmap: unterminated placeholder in %q", template)
			}
			name := template[i+1 : i+1+end]
			switch {
			case name == "0":
				name = ""
			case strings.HasPrefix(name, "0."):
				name = name[2:]
			}
			v, ok := lookup(name)
			if !ok {
				return "", fmt.Errorf("restmap: unknown placeholder %q in %q", template[i:i+end+2], template)
			}
			b.WriteString(formatValue(v))
			i += end + 1
		case '}':
			if i+1 < len(template) && template[i+1] == '}' {
				i++
			}
			b.WriteByte('}')
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

// InterpolateValue applies Interpolate to every string in v, descending into
// maps (keys and values) and slices. Other values pass through unchanged. The
// result never shares containers with v.
func InterpolateValue(v any, lookup LookupFunc) (any, error) {
	return interpolateRecur(v, lookup, map[uintptr]struct{}{})
}

// Interpolate returns a copy of m with every string interpolated.
func (m Meta) Interpolate(lookup LookupFunc) (Meta, error) {
	v, err := InterpolateValue(map[string]any(m), lookup)
	if err != nil {
		return nil, err
	}
	return Meta(v.(map[string]any)), nil
}

func interpolateRecur(v any, lookup LookupFunc, visiting map[uintptr]struct{}) (any, error) {
	switch t := v.(type) {
	case string:
		return Interpolate(t, lookup)
	case Meta:
		out, err := interpolateRecur(map[string]any(t), lookup, visiting)
		if err != nil {
			return nil, err
		}
		return Meta(out.(map[string]any)), nil
	case map[string]any:
		id := reflect.ValueOf(t).Pointer()
		if _, seen := visiting[id]; seen {
			return nil, ErrSelfReference
		}
		visiting[id] = struct{}{}
		defer delete(visiting, id)
		out := make(map[string]any, len(t))
		for k, e := range t {
			nk, err := Interpolate(k, lookup)
			if err != nil {
				return nil, err
			}
			ne, err := interpolateRecur(e, lookup, visiting)
			if err != nil {
				return nil, err
			}
			out[nk] = ne
		}
		return out, nil
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, e := range t {
			ne, err := Interpolate(e, lookup)
			if err != nil {
				return nil, err
			}
			out[k] = ne
		}
		return out, nil
	case []any:
		if len(t) == 0 {
			return []any{}, nil
		}
		id := reflect.ValueOf(t).Pointer()
		if _, seen := visiting[id]; seen {
			return nil, ErrSelfReference
		}
		visiting[id] = struct{}{}
		defer delete(visiting, id)
		out := make([]any, len(t))
		for i, e := range t {
			ne, err := interpolateRecur(e, lookup, visiting)
			if err != nil {
				return nil, err
			}
			out[i] = ne
		}
		return out, nil
	}
	return v, nil
}

// ResourceLookup resolves placeholders against r's fields. Dotted names walk
// through related resources that are already resolved; the empty name is r.
func ResourceLookup(r *Resource) LookupFunc {
	return func(name string) (any, bool) {
		if name == "" {
			return r, true
		}
		cur := r
		parts := strings.Split(name, ".")
		for i, p := range parts {
			v, ok := cur.Lookup(p)
			if !ok {
				return nil, false
			}
			if i == len(parts)-1 {
				return v, true
			}
			next, ok := v.(*Resource)
			if !ok || next == nil {
				return nil, false
			}
			cur = next
		}
		return nil, false
	}
}

// formatValue renders a value for substitution into a template.
func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case *Resource:
		if t == nil {
			return ""
		}
		return formatValue(t.ID())
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprint(v)
}
