package restmap

import (
	"context"

	"github.com/reoring/restmap/i18n"
)

// Repository scopes a Manager to one type.
type Repository struct {
	m *Manager
	t *Type
}

// NewRepository returns a repository of t backed by m.
func NewRepository(m *Manager, t *Type) *Repository {
	return &Repository{m: m, t: t}
}

// Type returns the repository's type.
func (r *Repository) Type() *Type { return r.t }

// All returns a lazy collection of every resource.
func (r *Repository) All() *Collection[*Resource] { return r.Filter(nil) }

// Filter returns a lazy collection of the resources matching params. The
// request is issued on first access.
func (r *Repository) Filter(params map[string]any) *Collection[*Resource] {
	return NewLazyCollection(func(ctx context.Context) (Cursor[*Resource], error) {
		return r.m.List(ctx, r.t, paramsMeta(params))
	})
}

// Get fetches one resource by id with optional query params.
func (r *Repository) Get(ctx context.Context, id any, params map[string]any) (*Resource, error) {
	return r.m.Get(ctx, r.t, id, paramsMeta(params))
}

// New returns a fresh, untracked resource hydrated from data.
func (r *Repository) New(data map[string]any) (*Resource, error) {
	return r.m.NewWith(r.t, data)
}

// Save writes res, which must be of the repository's type.
func (r *Repository) Save(ctx context.Context, res *Resource) error {
	if res.Type() != r.t {
		return NewResourceError(CodeWrongResource, "%s: %s", i18n.T(CodeWrongResource, nil), res)
	}
	return r.m.Save(ctx, res, nil)
}

func paramsMeta(params map[string]any) Meta {
	if len(params) == 0 {
		return nil
	}
	return Meta{"params": params}
}
