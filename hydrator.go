package restmap

import (
	"errors"
	"sync"
)

// Serializer decodes raw values into fields and encodes them back. Each
// serializer handles the descriptor classes it lists.
type Serializer interface {
	Classes() []*Class
	// Load decodes raw into the field d of r. A forced load of an absent key
	// passes nil.
	Load(d Descriptor, raw any, r *Resource) error
	// Dump encodes the field d of r.
	Dump(d Descriptor, r *Resource) (any, error)
}

type binding struct {
	d Descriptor
	s Serializer
}

// Hydrator drives bulk load and dump over a type's declared fields using the
// serializer registered for each descriptor class.
type Hydrator struct {
	mu          sync.RWMutex
	serializers map[*Class]Serializer
	fields      sync.Map // *Type -> []binding
}

// NewHydrator returns a Hydrator with the given serializers registered.
func NewHydrator(serializers ...Serializer) *Hydrator {
	h := &Hydrator{serializers: map[*Class]Serializer{}}
	for _, s := range serializers {
		h.AddSerializer(s)
	}
	return h
}

// AddSerializer registers s for every class it supports, replacing earlier
// registrations.
func (h *Hydrator) AddSerializer(s Serializer) {
	h.mu.Lock()
	for _, c := range s.Classes() {
		h.serializers[c] = s
	}
	h.mu.Unlock()
	h.fields.Clear()
}

// Serializer returns the serializer registered for c.
func (h *Hydrator) Serializer(c *Class) (Serializer, bool) {
	h.mu.RLock()
	s, ok := h.serializers[c]
	h.mu.RUnlock()
	return s, ok
}

// bindings returns the serializable fields of t that have a serializer. The
// result is computed once per type.
func (h *Hydrator) bindings(t *Type) []binding {
	if v, ok := h.fields.Load(t); ok {
		return v.([]binding)
	}
	var out []binding
	for _, d := range t.Fields() {
		if s, ok := h.Serializer(d.Class()); ok {
			out = append(out, binding{d: d, s: s})
		}
	}
	v, _ := h.fields.LoadOrStore(t, out)
	return v.([]binding)
}

// Hydrate loads every field whose key is present in data. With forceClear,
// absent fields are loaded with nil, resetting them. Fields absent from data
// are otherwise left untouched.
func (h *Hydrator) Hydrate(r *Resource, data map[string]any, forceClear bool) error {
	for _, b := range h.bindings(r.typ) {
		base := b.d.Base()
		raw, ok := data[base.LoadKey()]
		if !ok && !forceClear {
			continue
		}
		if err := b.s.Load(b.d, raw, r); err != nil {
			return annotate(err, r.typ, base.Name)
		}
	}
	return nil
}

// Dehydrate dumps every writable field keyed by its dump key.
func (h *Hydrator) Dehydrate(r *Resource) (map[string]any, error) {
	data := map[string]any{}
	for _, b := range h.bindings(r.typ) {
		base := b.d.Base()
		if base.ReadOnly {
			continue
		}
		v, err := b.s.Dump(b.d, r)
		if err != nil {
			return nil, annotate(err, r.typ, base.Name)
		}
		data[base.DumpKey()] = v
	}
	return data, nil
}

// annotate records the owning field on a type error that has not crossed a
// field boundary yet; errors from nested resources keep their innermost field.
func annotate(err error, t *Type, field string) error {
	var hte *HydrationTypeError
	if errors.As(err, &hte) && hte.Owner == nil {
		hte.Owner = t
		hte.Field = field
	}
	return err
}
