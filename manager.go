package restmap

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/reoring/restmap/i18n"
)

// Manager owns the identity map and orchestrates requests against a Transport.
// It turns raw payloads into resources, reusing the tracked instance for a
// known (type, id) so every reference to one remote entity shares an object.
type Manager struct {
	transport Transport
	hydrator  *Hydrator
	identity  *identityMap
	log       zerolog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger used for identity-map tracing.
func WithLogger(l zerolog.Logger) ManagerOption {
	return func(m *Manager) { m.log = l }
}

// NewManager returns a Manager using t for requests and h for field decoding.
func NewManager(t Transport, h *Hydrator, opts ...ManagerOption) *Manager {
	m := &Manager{
		transport: t,
		hydrator:  h,
		identity:  newIdentityMap(),
		log:       zerolog.Nop(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Hydrator returns the hydrator used by the manager.
func (m *Manager) Hydrator() *Hydrator { return m.hydrator }

// Transport returns the transport used by the manager.
func (m *Manager) Transport() Transport { return m.transport }

// Get fetches one resource by id. The get meta of t is merged with overrides,
// the id is stored under the id attribute and the uri template is
// interpolated with it. Fields absent from the response keep their values.
func (m *Manager) Get(ctx context.Context, t *Type, id any, overrides Meta) (*Resource, error) {
	meta := t.Meta(ActionGet).Merge(overrides)
	meta[t.IDAttr()] = id
	uri, err := Interpolate(meta.URI(), idLookup(t, id, meta))
	if err != nil {
		return nil, fmt.Errorf("restmap: get %s: %w", t.QualifiedName(), err)
	}
	meta["uri"] = uri
	raw, err := m.transport.Get(ctx, meta)
	if err != nil {
		return nil, err
	}
	return m.Instantiate(t, raw)
}

// List fetches the resources of type t. The transport must answer with a
// []any or a Cursor[any]; items are identity-resolved as they are read.
func (m *Manager) List(ctx context.Context, t *Type, overrides Meta) (Cursor[*Resource], error) {
	meta := t.Meta(ActionList).Merge(overrides)
	raw, err := m.transport.List(ctx, meta)
	if err != nil {
		return nil, err
	}
	var src Cursor[any]
	switch v := raw.(type) {
	case []any:
		src = SliceCursor(v)
	case Cursor[any]:
		src = v
	default:
		return nil, NewResourceError(CodeNotIterable, "%s, got %T", i18n.T(CodeNotIterable, nil), raw)
	}
	return MapCursor(src, func(item any) (*Resource, error) {
		return m.Instantiate(t, item)
	}), nil
}

// New returns an instance of t with every field reset.
func (m *Manager) New(t *Type) (*Resource, error) {
	return m.NewWith(t, nil)
}

// NewWith returns an instance of t force-hydrated from data: fields absent
// from data are reset. The instance is not tracked.
func (m *Manager) NewWith(t *Type, data map[string]any) (*Resource, error) {
	r := t.New()
	if err := m.hydrator.Hydrate(r, data, true); err != nil {
		return nil, err
	}
	return r, nil
}

// Save writes r through the transport. A resource without an id is created,
// otherwise updated. A non-empty map in the response is hydrated onto r, and
// r is tracked afterwards.
func (m *Manager) Save(ctx context.Context, r *Resource, overrides Meta) error {
	t := r.typ
	data, err := m.hydrator.Dehydrate(r)
	if err != nil {
		return err
	}
	action := ActionUpdate
	if _, ok := NormalizeID(r.ID()); !ok {
		action = ActionCreate
	}
	meta := t.Meta(action).Merge(overrides)
	lookup := ResourceLookup(r)
	uri, err := Interpolate(meta.URI(), func(name string) (any, bool) {
		if v, ok := lookup(name); ok {
			return v, true
		}
		v, ok := meta[name]
		return v, ok
	})
	if err != nil {
		return fmt.Errorf("restmap: %s %s: %w", action, t.QualifiedName(), err)
	}
	meta["uri"] = uri

	var raw any
	if action == ActionCreate {
		raw, err = m.transport.Create(ctx, meta, data)
	} else {
		raw, err = m.transport.Update(ctx, meta, data)
	}
	if err != nil {
		return err
	}
	if resp, ok := raw.(map[string]any); ok && len(resp) > 0 {
		if err := m.hydrator.Hydrate(r, resp, false); err != nil {
			return err
		}
	}
	m.track(r)
	return nil
}

// Instantiate resolves data to the tracked instance of t with the same id, or
// a new one, and hydrates it without clearing absent fields.
func (m *Manager) Instantiate(t *Type, data any) (*Resource, error) {
	payload, ok := data.(map[string]any)
	if !ok {
		return nil, NewResourceError(CodeNotMapping, "%s, got %T", i18n.T(CodeNotMapping, nil), data)
	}
	id := payload[t.IDAttr()]
	r := m.identity.lookup(t, id)
	fresh := r == nil
	if fresh {
		var err error
		if r, err = m.New(t); err != nil {
			return nil, err
		}
		// nested payloads pointing back at (t, id) must find r while it loads
		m.identity.put(r, id)
	} else {
		m.log.Debug().Str("type", t.QualifiedName()).Interface("id", id).Msg("identity map hit")
	}
	if err := m.hydrator.Hydrate(r, payload, false); err != nil {
		if fresh {
			m.identity.detach(r)
		}
		return nil, err
	}
	m.track(r)
	return r, nil
}

// Tracked returns the live instance registered for (t, id), or nil.
func (m *Manager) Tracked(t *Type, id any) *Resource {
	return m.identity.lookup(t, id)
}

// TrackedCount returns the number of live tracked instances.
func (m *Manager) TrackedCount() int { return m.identity.len() }

// Detach stops tracking r. It is a no-op for untracked resources.
func (m *Manager) Detach(r *Resource) {
	m.identity.detach(r)
}

// Clear drops every identity-map entry.
func (m *Manager) Clear() {
	m.identity.clear()
}

func (m *Manager) track(r *Resource) {
	if m.identity.track(r) {
		m.log.Debug().Str("type", r.typ.QualifiedName()).Interface("id", r.ID()).Msg("tracked")
	}
}

func idLookup(t *Type, id any, meta Meta) LookupFunc {
	return func(name string) (any, bool) {
		if name == "" || name == t.IDAttr() {
			return id, true
		}
		v, ok := meta[name]
		return v, ok
	}
}
