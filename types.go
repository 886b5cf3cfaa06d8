package restmap

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// DefaultIDAttr is the identifier attribute used when a type does not set one.
const DefaultIDAttr = "id"

// Action names a transport operation configured per type.
type Action string

const (
	ActionGet    Action = "get"
	ActionList   Action = "list"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
)

// Meta is request metadata handed to the transport. It carries at least a
// "uri" template and may carry "params".
type Meta map[string]any

// Clone returns a deep copy of m; nested maps and slices are copied too.
func (m Meta) Clone() Meta {
	if m == nil {
		return Meta{}
	}
	out := make(Meta, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

// Merge returns a copy of m with overrides applied on top.
func (m Meta) Merge(overrides Meta) Meta {
	out := m.Clone()
	for k, v := range overrides {
		out[k] = cloneValue(v)
	}
	return out
}

// URI returns the "uri" entry when it is a string.
func (m Meta) URI() string {
	s, _ := m["uri"].(string)
	return s
}

// Params returns the "params" entry as a string map.
func (m Meta) Params() map[string]string {
	var out map[string]string
	switch p := m["params"].(type) {
	case map[string]string:
		out = make(map[string]string, len(p))
		for k, v := range p {
			out[k] = v
		}
	case map[string]any:
		out = make(map[string]string, len(p))
		for k, v := range p {
			if v == nil {
				continue
			}
			out[k] = formatValue(v)
		}
	case Meta:
		return Meta(p).paramsOf()
	}
	return out
}

func (m Meta) paramsOf() map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if v == nil {
			continue
		}
		out[k] = formatValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Meta:
		return t.Clone()
	case map[string]any:
		return map[string]any(Meta(t).Clone())
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, s := range t {
			out[k] = s
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	}
	return v
}

// Type describes a domain-object type: its declared fields, identifier
// attribute and per-action request metadata.
type Type struct {
	name         string
	registry     *Registry
	idAttr       string
	declared     []Descriptor
	byName       map[string]Descriptor
	serializable []Descriptor
	actions      map[Action]Meta
}

// Name returns the type name.
func (t *Type) Name() string { return t.name }

// QualifiedName prefixes the name with the registry name when registered.
func (t *Type) QualifiedName() string {
	if t == nil {
		return "<nil>"
	}
	if t.registry != nil && t.registry.name != "" {
		return t.registry.name + "." + t.name
	}
	return t.name
}

// FullName returns the dotted name of one of the type's attributes.
func (t *Type) FullName(attr string) string {
	return t.QualifiedName() + "." + attr
}

// Registry returns the registry the type was registered into, or nil.
func (t *Type) Registry() *Registry { return t.registry }

// IDAttr returns the identifier attribute name.
func (t *Type) IDAttr() string { return t.idAttr }

// Field returns a declared descriptor by attribute name.
func (t *Type) Field(name string) (Descriptor, bool) {
	d, ok := t.byName[name]
	return d, ok
}

// Fields returns the serializable descriptors in declaration order. Fields
// whose name starts with an underscore are never included.
func (t *Type) Fields() []Descriptor { return t.serializable }

// Meta returns a copy of the metadata configured for action.
func (t *Type) Meta(action Action) Meta { return t.actions[action].Clone() }

// New returns a bare instance with every slot unset. Use Manager.New to get a
// force-cleared instance.
func (t *Type) New() *Resource {
	return &Resource{typ: t, slots: make(map[string]*slot, len(t.declared))}
}

func (t *Type) String() string { return t.QualifiedName() }

// TypeBuilder declares a Type field by field.
type TypeBuilder struct {
	name    string
	idAttr  string
	names   []string
	fields  []Descriptor
	actions map[Action]Meta
	errs    []error
}

// Define starts the declaration of a type.
func Define(name string) *TypeBuilder {
	return &TypeBuilder{name: name, idAttr: DefaultIDAttr, actions: map[Action]Meta{}}
}

// Field declares a field under the given attribute name.
func (b *TypeBuilder) Field(name string, d Descriptor) *TypeBuilder {
	if d == nil {
		b.errs = append(b.errs, fmt.Errorf("restmap: %s.%s: nil descriptor", b.name, name))
		return b
	}
	b.names = append(b.names, name)
	b.fields = append(b.fields, d)
	return b
}

// ID sets the identifier attribute.
func (b *TypeBuilder) ID(attr string) *TypeBuilder {
	b.idAttr = attr
	return b
}

// Action sets the request metadata for one action.
func (b *TypeBuilder) Action(a Action, m Meta) *TypeBuilder {
	b.actions[a] = m.Clone()
	return b
}

// Build binds every descriptor and returns an unregistered Type.
func (b *TypeBuilder) Build() (*Type, error) { return b.build(nil) }

// MustBuild is like Build but panics on error.
func (b *TypeBuilder) MustBuild() *Type {
	t, err := b.Build()
	if err != nil {
		panic(err)
	}
	return t
}

func (b *TypeBuilder) build(reg *Registry) (*Type, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	if b.name == "" {
		return nil, errors.New("restmap: type name is empty")
	}
	t := &Type{
		name:     b.name,
		registry: reg,
		idAttr:   b.idAttr,
		byName:   make(map[string]Descriptor, len(b.fields)),
		actions:  make(map[Action]Meta, len(b.actions)),
	}
	for i, d := range b.fields {
		name := b.names[i]
		if _, dup := t.byName[name]; dup {
			return nil, fmt.Errorf("restmap: %s: duplicate field %q", b.name, name)
		}
		if err := d.Base().bind(t, name); err != nil {
			return nil, err
		}
		t.byName[name] = d
		t.declared = append(t.declared, d)
		if !strings.HasPrefix(name, "_") {
			t.serializable = append(t.serializable, d)
		}
	}
	for a, m := range b.actions {
		t.actions[a] = m
	}
	return t, nil
}

// Registry maps type names to types. Relation targets given by name are
// resolved in the registry the owning type was registered into.
type Registry struct {
	name  string
	mu    sync.RWMutex
	types map[string]*Type
}

// NewRegistry creates an empty registry.
func NewRegistry(name string) *Registry {
	return &Registry{name: name, types: map[string]*Type{}}
}

// Name returns the registry name.
func (r *Registry) Name() string { return r.name }

// Register builds b and records the result under its name.
func (r *Registry) Register(b *TypeBuilder) (*Type, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[b.name]; ok {
		return nil, fmt.Errorf("restmap: type %s.%s already registered", r.name, b.name)
	}
	t, err := b.build(r)
	if err != nil {
		return nil, err
	}
	r.types[t.name] = t
	return t, nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(b *TypeBuilder) *Type {
	t, err := r.Register(b)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the type registered under name.
func (r *Registry) Lookup(name string) (*Type, bool) {
	r.mu.RLock()
	t, ok := r.types[name]
	r.mu.RUnlock()
	return t, ok
}

// Types returns the registered types sorted by name.
func (r *Registry) Types() []*Type {
	r.mu.RLock()
	out := make([]*Type, 0, len(r.types))
	for _, t := range r.types {
		out = append(out, t)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}
