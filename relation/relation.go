// Package relation declares fields that reference other resource types and
// the serializers that load them through a restmap.Manager.
//
// A to-many field holds a *restmap.Collection that is fetched with the
// target's list action on first iteration unless the payload embeds the items.
// A to-one field holds either an embedded resource or an identifier that is
// resolved with the target's get action on first read.
package relation

import (
	"sync"

	"github.com/reoring/restmap"
)

var (
	OneToManyClass = restmap.NewClass("one_to_many")
	ManyToOneClass = restmap.NewClass("many_to_one")
)

// Target names the type a relation points to: either a built type or a name
// resolved in the owner's registry on first use.
type Target struct {
	typ  *restmap.Type
	name string
}

// To targets t directly.
func To(t *restmap.Type) Target { return Target{typ: t} }

// Named targets the type registered under name in the owner's registry. The
// type does not need to exist when the relation is declared.
func Named(name string) Target { return Target{name: name} }

func (t Target) String() string {
	if t.typ != nil {
		return t.typ.QualifiedName()
	}
	return t.name
}

// Relation holds what both relation kinds share: the target and a meta
// template interpolated against the owning resource.
type Relation struct {
	mu     sync.Mutex
	target Target
	meta   restmap.Meta
}

// Option configures a relation field.
type Option func(*options)

type options struct {
	meta         restmap.Meta
	field        []restmap.FieldOption
	saveEmbedded bool
}

// WithMeta sets the meta template merged into the target's request meta.
// Strings may reference the owning resource, e.g. "{0.id}" or "{id}".
func WithMeta(m restmap.Meta) Option {
	return func(o *options) { o.meta = o.meta.Merge(m) }
}

// WithParams is shorthand for WithMeta(restmap.Meta{"params": params}).
func WithParams(params map[string]any) Option {
	return WithMeta(restmap.Meta{"params": params})
}

// Field applies field options such as restmap.Key.
func Field(opts ...restmap.FieldOption) Option {
	return func(o *options) { o.field = append(o.field, opts...) }
}

// SaveEmbedded makes a to-one field dump the embedded target instead of its id.
// Embedded saves are not supported yet and fail with ErrNotImplemented.
func SaveEmbedded() Option {
	return func(o *options) { o.saveEmbedded = true }
}

func collect(opts []Option) options {
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// TargetType resolves the relation target. Names are looked up once in the
// registry owner was registered into.
func (rel *Relation) TargetType(owner *restmap.Type) (*restmap.Type, error) {
	rel.mu.Lock()
	defer rel.mu.Unlock()
	if rel.target.typ != nil {
		return rel.target.typ, nil
	}
	reg := owner.Registry()
	if reg == nil {
		return nil, &restmap.UnresolvedNameError{Name: rel.target.name}
	}
	t, ok := reg.Lookup(rel.target.name)
	if !ok {
		return nil, &restmap.UnresolvedNameError{Registry: reg.Name(), Name: rel.target.name}
	}
	rel.target.typ = t
	return t, nil
}

// MetaFor returns the meta template interpolated against r.
func (rel *Relation) MetaFor(r *restmap.Resource) (restmap.Meta, error) {
	if len(rel.meta) == 0 {
		return restmap.Meta{}, nil
	}
	return rel.meta.Interpolate(restmap.ResourceLookup(r))
}

// ManagerFunc returns the manager relation serializers load through. It is
// called on every load so the manager can be created after the serializers.
type ManagerFunc func() *restmap.Manager
