package restmap

import (
	"context"
	"fmt"
	"reflect"
	"time"
)

// Descriptor is a per-field accessor bound to one Type.
type Descriptor interface {
	Base() *FieldBase
	Class() *Class
}

// Peeker is implemented by descriptors that can report their current value
// without blocking.
type Peeker interface {
	Peek(r *Resource) (any, bool)
}

// FieldBase holds the declaration shared by every descriptor.
type FieldBase struct {
	Name     string // attribute key
	Key      string // serialized key; defaults to Name
	SaveKey  string // optional key used only when dumping
	ReadOnly bool

	owner *Type
}

// Base returns the receiver so embedding types satisfy Descriptor.
func (b *FieldBase) Base() *FieldBase { return b }

// Owner returns the type the descriptor was bound to.
func (b *FieldBase) Owner() *Type { return b.owner }

// LoadKey returns the key the field is read from.
func (b *FieldBase) LoadKey() string {
	if b.Key != "" {
		return b.Key
	}
	return b.Name
}

// DumpKey returns the key the field is written to.
func (b *FieldBase) DumpKey() string {
	if b.SaveKey != "" {
		return b.SaveKey
	}
	return b.LoadKey()
}

func (b *FieldBase) bind(owner *Type, name string) error {
	if b.owner != nil && b.owner != owner {
		return fmt.Errorf("restmap: field %q already bound to %s", name, b.owner.Name())
	}
	b.owner = owner
	if b.Name == "" {
		b.Name = name
	}
	if b.Key == "" {
		b.Key = name
	}
	return nil
}

// FieldOption customises a descriptor declaration.
type FieldOption func(*FieldBase)

// Key overrides the serialized key.
func Key(k string) FieldOption { return func(b *FieldBase) { b.Key = k } }

// SaveKey sets a key used only when dumping.
func SaveKey(k string) FieldOption { return func(b *FieldBase) { b.SaveKey = k } }

// ReadOnly blocks user writes and excludes the field from dumps.
func ReadOnly() FieldOption { return func(b *FieldBase) { b.ReadOnly = true } }

// Apply runs opts against b. Descriptor constructors in other packages use it.
func (b *FieldBase) Apply(opts ...FieldOption) {
	for _, o := range opts {
		o(b)
	}
}

// Field is an eager descriptor: its value materializes synchronously.
type Field struct {
	FieldBase
	class *Class
}

var _ Peeker = (*Field)(nil)

// Typed declares a field annotated with Go type t (nil means untyped).
func Typed(t reflect.Type, opts ...FieldOption) *Field {
	f := &Field{class: AnnotationClass(t)}
	f.Apply(opts...)
	return f
}

// Plain declares a field without annotation; PlainClass serializers store
// values verbatim.
func Plain(opts ...FieldOption) *Field {
	f := &Field{class: PlainClass}
	f.Apply(opts...)
	return f
}

// NewField returns a Field of the given class for embedding by other
// descriptor kinds.
func NewField(class *Class) Field { return Field{class: class} }

func String(opts ...FieldOption) *Field   { return Typed(reflect.TypeFor[string](), opts...) }
func Int(opts ...FieldOption) *Field      { return Typed(reflect.TypeFor[int64](), opts...) }
func Float(opts ...FieldOption) *Field    { return Typed(reflect.TypeFor[float64](), opts...) }
func Bool(opts ...FieldOption) *Field     { return Typed(reflect.TypeFor[bool](), opts...) }
func Any(opts ...FieldOption) *Field      { return Typed(nil, opts...) }
func DateOnly(opts ...FieldOption) *Field { return Typed(reflect.TypeFor[Date](), opts...) }
func DateTime(opts ...FieldOption) *Field { return Typed(reflect.TypeFor[time.Time](), opts...) }

func (f *Field) Class() *Class { return f.class }

// Type returns the annotation type, or nil for untyped and plain fields.
func (f *Field) Type() reflect.Type { return f.class.typ }

// Get returns the stored value, or nil when unset.
func (f *Field) Get(r *Resource) any {
	if s := r.slots[f.Name]; s != nil && s.state == SlotResolved {
		return s.value
	}
	return nil
}

func (f *Field) Peek(r *Resource) (any, bool) { return f.Get(r), true }

// Set stores v unconditionally. Serializers use it; it ignores ReadOnly.
func (f *Field) Set(r *Resource, v any) {
	s := r.slotFor(f.Name)
	s.state = SlotResolved
	s.value = v
	s.producer = nil
}

// Write is the user-facing setter.
func (f *Field) Write(r *Resource, v any) error {
	if f.ReadOnly {
		return &ReadOnlyFieldError{Owner: f.owner, Field: f.Name}
	}
	f.Set(r, v)
	return nil
}

// SlotState tags the variant stored for a field.
type SlotState uint8

const (
	SlotUnset SlotState = iota
	SlotDeferred
	SlotResolved
)

func (s SlotState) String() string {
	switch s {
	case SlotDeferred:
		return "deferred"
	case SlotResolved:
		return "resolved"
	default:
		return "unset"
	}
}

// Producer computes a deferred value on first access.
type Producer func(ctx context.Context) (any, error)

// DeferredField is a descriptor whose value may be produced asynchronously on
// first read. It can also remember a reference (typically the identifier of
// the value) that is available before the value is resolved.
type DeferredField struct {
	FieldBase
	class *Class
}

var _ Peeker = (*DeferredField)(nil)

// Deferred declares a deferred field of the given class.
func Deferred(class *Class, opts ...FieldOption) *DeferredField {
	d := &DeferredField{class: class}
	d.Apply(opts...)
	return d
}

// NewDeferredField returns a DeferredField for embedding by other descriptor
// kinds.
func NewDeferredField(class *Class) DeferredField { return DeferredField{class: class} }

func (d *DeferredField) Class() *Class { return d.class }

// Get returns the resolved value, running the producer on first access. A
// failed producer is kept so a later Get can retry.
func (d *DeferredField) Get(ctx context.Context, r *Resource) (any, error) {
	s := r.slots[d.Name]
	if s == nil {
		return nil, nil
	}
	switch s.state {
	case SlotResolved:
		return s.value, nil
	case SlotDeferred:
		p, gen := s.producer, s.gen
		v, err := p(ctx)
		if err != nil {
			return nil, err
		}
		// a write during the fetch wins over this result
		if s.gen != gen {
			if s.state == SlotResolved {
				return s.value, nil
			}
			return v, nil
		}
		s.state = SlotResolved
		s.value = v
		s.producer = nil
		return v, nil
	}
	return nil, nil
}

// State reports which variant is currently stored.
func (d *DeferredField) State(r *Resource) SlotState {
	if s := r.slots[d.Name]; s != nil {
		return s.state
	}
	return SlotUnset
}

// Peek returns the resolved value without running a producer.
func (d *DeferredField) Peek(r *Resource) (any, bool) {
	s := r.slots[d.Name]
	if s == nil {
		return nil, true
	}
	if s.state == SlotResolved {
		return s.value, true
	}
	if s.hasRef {
		return s.ref, true
	}
	return nil, false
}

// SetResolved stores an already available value, dropping any producer.
func (d *DeferredField) SetResolved(r *Resource, v any) {
	s := r.slotFor(d.Name)
	s.state = SlotResolved
	s.value = v
	s.producer = nil
	s.gen++
}

// SetDeferred stores a producer, dropping any resolved value.
func (d *DeferredField) SetDeferred(r *Resource, p Producer) {
	s := r.slotFor(d.Name)
	s.state = SlotDeferred
	s.value = nil
	s.producer = p
	s.gen++
}

// Write is the user-facing setter.
func (d *DeferredField) Write(r *Resource, v any) error {
	if d.ReadOnly {
		return &ReadOnlyFieldError{Owner: d.owner, Field: d.Name}
	}
	d.SetResolved(r, v)
	return nil
}

// SetRef records the reference of the value held by the field.
func (d *DeferredField) SetRef(r *Resource, ref any) {
	s := r.slotFor(d.Name)
	s.ref = ref
	s.hasRef = ref != nil
}

// Ref returns the recorded reference.
func (d *DeferredField) Ref(r *Resource) (any, bool) {
	if s := r.slots[d.Name]; s != nil && s.hasRef {
		return s.ref, true
	}
	return nil, false
}

// Attr is typed sugar over the field registered under Name on a resource's
// type. Missing or mistyped values read as the zero value.
type Attr[T any] struct{ Name string }

// Get returns the current value as T.
func (a Attr[T]) Get(r *Resource) T {
	var zero T
	v, ok := r.Lookup(a.Name)
	if !ok || v == nil {
		return zero
	}
	t, ok := v.(T)
	if !ok {
		return zero
	}
	return t
}

// Write sets the value through the field's user-facing setter.
func (a Attr[T]) Write(r *Resource, v T) error {
	d, ok := r.typ.Field(a.Name)
	if !ok {
		return fmt.Errorf("restmap: %s has no field %q", r.typ.Name(), a.Name)
	}
	switch f := d.(type) {
	case *Field:
		return f.Write(r, v)
	case *DeferredField:
		return f.Write(r, v)
	case interface{ Write(*Resource, any) error }:
		return f.Write(r, v)
	}
	return fmt.Errorf("restmap: field %s is not writable", r.typ.FullName(a.Name))
}
