package relation

import (
	"context"
	"encoding/json"
	"reflect"

	"github.com/reoring/restmap"
	"github.com/reoring/restmap/i18n"
)

// ManyToOne is a to-one field. Its value is a *restmap.Resource that may be
// fetched on first read; the target id is known as soon as the field loads.
type ManyToOne struct {
	restmap.DeferredField
	Relation
	SaveEmbedded bool
}

// NewManyToOne declares a to-one relation to target.
func NewManyToOne(target Target, opts ...Option) *ManyToOne {
	o := collect(opts)
	d := &ManyToOne{
		DeferredField: restmap.NewDeferredField(ManyToOneClass),
		Relation:      Relation{target: target, meta: o.meta},
		SaveEmbedded:  o.saveEmbedded,
	}
	d.Apply(o.field...)
	return d
}

// Resolve returns the target, fetching it on first access.
func (d *ManyToOne) Resolve(ctx context.Context, r *restmap.Resource) (*restmap.Resource, error) {
	v, err := d.Get(ctx, r)
	if err != nil {
		return nil, err
	}
	res, _ := v.(*restmap.Resource)
	return res, nil
}

// Write sets the target and records its id. It accepts a *restmap.Resource or
// nil.
func (d *ManyToOne) Write(r *restmap.Resource, v any) error {
	if d.ReadOnly {
		return &restmap.ReadOnlyFieldError{Owner: d.Owner(), Field: d.Name}
	}
	switch t := v.(type) {
	case nil:
		d.SetResolved(r, nil)
		d.SetRef(r, nil)
	case *restmap.Resource:
		d.SetResolved(r, t)
		d.SetRef(r, t.ID())
	default:
		return restmap.NewHydrationTypeError(v, d.target.String())
	}
	return nil
}

// ManyToOneSerializer loads to-one fields from an embedded object or an id
// and dumps them as the target id.
type ManyToOneSerializer struct {
	manager ManagerFunc
}

// NewManyToOneSerializer returns a serializer loading through manager.
func NewManyToOneSerializer(manager ManagerFunc) *ManyToOneSerializer {
	return &ManyToOneSerializer{manager: manager}
}

func (*ManyToOneSerializer) Classes() []*restmap.Class { return []*restmap.Class{ManyToOneClass} }

func (s *ManyToOneSerializer) Load(desc restmap.Descriptor, raw any, r *restmap.Resource) error {
	d, ok := desc.(*ManyToOne)
	if !ok {
		return restmap.NewResourceError(restmap.CodeWrongType, "many-to-one serializer cannot load %T", desc)
	}
	if raw == nil {
		d.SetResolved(r, nil)
		d.SetRef(r, nil)
		return nil
	}
	data, isMap := raw.(map[string]any)
	if !isMap && !isID(raw) {
		return restmap.NewHydrationTypeError(raw, "map", "int", "str")
	}
	target, err := d.TargetType(r.Type())
	if err != nil {
		return err
	}
	m := s.manager()
	if isMap {
		res, err := m.Instantiate(target, data)
		if err != nil {
			return err
		}
		d.SetResolved(r, res)
		d.SetRef(r, res.ID())
		return nil
	}
	id := raw
	d.SetRef(r, id)
	d.SetDeferred(r, func(ctx context.Context) (any, error) {
		meta, err := d.MetaFor(r)
		if err != nil {
			return nil, err
		}
		return m.Get(ctx, target, id, meta)
	})
	return nil
}

// Dump returns the known target id without fetching. A resolved target
// without an id cannot be dumped.
func (s *ManyToOneSerializer) Dump(desc restmap.Descriptor, r *restmap.Resource) (any, error) {
	d, ok := desc.(*ManyToOne)
	if !ok {
		return nil, restmap.NewResourceError(restmap.CodeWrongType, "many-to-one serializer cannot dump %T", desc)
	}
	if d.SaveEmbedded {
		return nil, restmap.ErrNotImplemented
	}
	if ref, ok := d.Ref(r); ok {
		return ref, nil
	}
	if d.State(r) != restmap.SlotResolved {
		return nil, nil
	}
	v, _ := d.Peek(r)
	target, _ := v.(*restmap.Resource)
	if target == nil {
		return nil, nil
	}
	if id := target.ID(); id != nil {
		return id, nil
	}
	return nil, restmap.NewResourceError(restmap.CodeNoTargetID, "%s", i18n.T(restmap.CodeNoTargetID, nil))
}

// isID reports whether v can be used as a remote identifier.
func isID(v any) bool {
	switch v.(type) {
	case string, json.Number:
		return true
	case bool:
		return false
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}
