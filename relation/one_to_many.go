package relation

import (
	"context"

	"github.com/reoring/restmap"
)

// OneToMany is a read-only to-many field holding a
// *restmap.Collection[*restmap.Resource].
type OneToMany struct {
	restmap.Field
	Relation
}

// NewOneToMany declares a to-many relation to target.
func NewOneToMany(target Target, opts ...Option) *OneToMany {
	o := collect(opts)
	d := &OneToMany{
		Field:    restmap.NewField(OneToManyClass),
		Relation: Relation{target: target, meta: o.meta},
	}
	d.Apply(o.field...)
	d.ReadOnly = true
	return d
}

// Collection returns the loaded collection, or nil before hydration.
func (d *OneToMany) Collection(r *restmap.Resource) *restmap.Collection[*restmap.Resource] {
	c, _ := d.Get(r).(*restmap.Collection[*restmap.Resource])
	return c
}

// OneToManySerializer loads to-many fields. A nil payload yields a lazy
// collection backed by Manager.List; a sequence is identity-resolved item by
// item into a loaded collection.
type OneToManySerializer struct {
	manager ManagerFunc
}

// NewOneToManySerializer returns a serializer loading through manager.
func NewOneToManySerializer(manager ManagerFunc) *OneToManySerializer {
	return &OneToManySerializer{manager: manager}
}

func (*OneToManySerializer) Classes() []*restmap.Class { return []*restmap.Class{OneToManyClass} }

func (s *OneToManySerializer) Load(desc restmap.Descriptor, raw any, r *restmap.Resource) error {
	d, ok := desc.(*OneToMany)
	if !ok {
		return restmap.NewResourceError(restmap.CodeWrongType, "one-to-many serializer cannot load %T", desc)
	}
	var items []any
	switch v := raw.(type) {
	case nil:
		d.Set(r, s.lazy(d, r))
		return nil
	case []any:
		items = v
	case []map[string]any:
		items = make([]any, len(v))
		for i, e := range v {
			items[i] = e
		}
	default:
		return restmap.NewHydrationTypeError(raw, "sequence")
	}
	target, err := d.TargetType(r.Type())
	if err != nil {
		return err
	}
	m := s.manager()
	out := make([]*restmap.Resource, 0, len(items))
	for _, e := range items {
		res, err := m.Instantiate(target, e)
		if err != nil {
			return err
		}
		out = append(out, res)
	}
	d.Set(r, restmap.NewCollection(out))
	return nil
}

func (s *OneToManySerializer) lazy(d *OneToMany, r *restmap.Resource) *restmap.Collection[*restmap.Resource] {
	return restmap.NewLazyCollection(func(ctx context.Context) (restmap.Cursor[*restmap.Resource], error) {
		target, err := d.TargetType(r.Type())
		if err != nil {
			return nil, err
		}
		meta, err := d.MetaFor(r)
		if err != nil {
			return nil, err
		}
		return s.manager().List(ctx, target, meta)
	})
}

// Dump is not supported for to-many fields.
func (*OneToManySerializer) Dump(restmap.Descriptor, *restmap.Resource) (any, error) {
	return nil, restmap.ErrNotImplemented
}
