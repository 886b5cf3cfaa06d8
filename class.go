package restmap

import (
	"reflect"
	"sync"
)

// Class identifies the descriptor family a Serializer is registered for. Two
// descriptors share a Class exactly when one serializer must handle both.
type Class struct {
	name string
	typ  reflect.Type
}

// NewClass returns a fresh Class for custom descriptor families.
func NewClass(name string) *Class { return &Class{name: name} }

func (c *Class) String() string { return c.name }

// Type returns the annotation type of an annotation class, or nil.
func (c *Class) Type() reflect.Type { return c.typ }

var (
	annotationClasses sync.Map // reflect.Type -> *Class
	untypedClass      = &Class{name: "annotation[any]"}

	// PlainClass is the class of descriptors declared without an annotation
	// type; values are stored as received.
	PlainClass = NewClass("plain")
)

// AnnotationClass returns the class for fields annotated with t. The result is
// memoized so every declaration of the same Go type shares one *Class. A nil
// type yields the untyped class.
func AnnotationClass(t reflect.Type) *Class {
	if t == nil {
		return untypedClass
	}
	if c, ok := annotationClasses.Load(t); ok {
		return c.(*Class)
	}
	c, _ := annotationClasses.LoadOrStore(t, &Class{name: "annotation[" + t.String() + "]", typ: t})
	return c.(*Class)
}
