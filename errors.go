package restmap

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/reoring/restmap/i18n"
)

// Error codes (exported consts so callers can branch on ResourceError.Code).
const (
	CodeWrongType       = "wrong_type"
	CodeBadFormat       = "bad_format"
	CodeNotMapping      = "not_mapping"
	CodeNotIterable     = "not_iterable"
	CodeNoTargetID      = "no_target_id"
	CodeReadOnly        = "read_only"
	CodeUnresolvedName  = "unresolved_name"
	CodeNotImplemented  = "not_implemented"
	CodeSelfReference   = "self_reference"
	CodeIndexOutOfRange = "index_out_of_range"
	CodeWrongResource   = "wrong_resource"
)

var (
	// ErrResource is matched by every structural and hydration error via errors.Is.
	ErrResource = errors.New("restmap: resource error")
	// ErrNotImplemented is returned by serializers for directions they do not support.
	ErrNotImplemented = errors.New("restmap: " + i18n.T(CodeNotImplemented, nil))
	// ErrSelfReference is returned when a meta template contains itself.
	ErrSelfReference = errors.New("restmap: " + i18n.T(CodeSelfReference, nil))
	// ErrIndexOutOfRange is returned by Collection.At for positions past the end.
	ErrIndexOutOfRange = errors.New("restmap: " + i18n.T(CodeIndexOutOfRange, nil))
)

// ResourceError reports a payload that is not shaped as expected, or a write
// that cannot be encoded.
type ResourceError struct {
	Code    string
	Message string
	Cause   error
}

// NewResourceError builds a ResourceError with a formatted message.
func NewResourceError(code, format string, args ...any) *ResourceError {
	return &ResourceError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *ResourceError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ResourceError) Is(target error) bool { return target == ErrResource }

func (e *ResourceError) Unwrap() error { return e.Cause }

// HydrationTypeError reports a value whose type does not match the field it is
// decoded into or encoded from. Owner and Field are filled in by the Hydrator
// once the error crosses a field boundary.
type HydrationTypeError struct {
	Expected []string
	Actual   any
	Owner    *Type
	Field    string
	Code     string
}

// NewHydrationTypeError builds a wrong-type error for the given expected type names.
func NewHydrationTypeError(actual any, expected ...string) *HydrationTypeError {
	return &HydrationTypeError{Expected: expected, Actual: actual, Code: CodeWrongType}
}

// NewBadFormatError builds an error for a value of the right type that failed to parse.
func NewBadFormatError(actual any, expected ...string) *HydrationTypeError {
	return &HydrationTypeError{Expected: expected, Actual: actual, Code: CodeBadFormat}
}

func (e *HydrationTypeError) Error() string {
	b := &strings.Builder{}
	code := e.Code
	if code == "" {
		code = CodeWrongType
	}
	b.WriteString(i18n.T(code, nil))
	if e.Owner != nil && e.Field != "" {
		b.WriteString(" for ")
		b.WriteString(e.Owner.FullName(e.Field))
	}
	fmt.Fprintf(b, ": expected %s, got %s", strings.Join(e.Expected, " or "), truncate(repr(e.Actual), 50))
	return b.String()
}

func (e *HydrationTypeError) Is(target error) bool { return target == ErrResource }

// ReadOnlyFieldError is returned by user-facing writes to read-only fields.
type ReadOnlyFieldError struct {
	Owner *Type
	Field string
}

func (e *ReadOnlyFieldError) Error() string {
	return e.Owner.FullName(e.Field) + " " + i18n.T(CodeReadOnly, nil)
}

// UnresolvedNameError is returned when a relation target name is not
// registered in the owner's registry.
type UnresolvedNameError struct {
	Registry string
	Name     string
}

func (e *UnresolvedNameError) Error() string {
	return fmt.Sprintf("type '%s.%s' %s", e.Registry, e.Name, i18n.T(CodeUnresolvedName, nil))
}

// repr renders a raw value for diagnostics with quoted strings and
// type-qualified composites.
func repr(v any) string {
	switch t := v.(type) {
	case nil:
		return "nil"
	case string:
		return "'" + strings.ReplaceAll(t, "'", `\'`) + "'"
	case *Resource:
		return t.String()
	case fmt.Stringer:
		return t.String()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return fmt.Sprintf("%T%v", v, v)
	}
	return fmt.Sprintf("%v", v)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
