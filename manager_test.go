package restmap_test

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/restmap"
	"github.com/reoring/restmap/codec"
)

var (
	name  = restmap.Attr[string]{Name: "name"}
	price = restmap.Attr[float64]{Name: "price"}
)

func productType(reg *restmap.Registry) *restmap.Type {
	return reg.MustRegister(restmap.Define("Product").
		Field("id", restmap.Int(restmap.ReadOnly())).
		Field("name", restmap.String()).
		Field("price", restmap.Float()).
		Action(restmap.ActionGet, restmap.Meta{"uri": "/products/{id}"}).
		Action(restmap.ActionList, restmap.Meta{"uri": "/products"}).
		Action(restmap.ActionCreate, restmap.Meta{"uri": "/products"}).
		Action(restmap.ActionUpdate, restmap.Meta{"uri": "/products/{id}"}))
}

func newManager(t *testing.T) (*restmap.Manager, *restmap.Type, *fakeTransport) {
	t.Helper()
	reg := restmap.NewRegistry("shop")
	ft := newFakeTransport()
	m := restmap.NewManager(ft, restmap.NewHydrator(codec.Scalar()))
	return m, productType(reg), ft
}

func TestManager_GetReturnsSameInstance(t *testing.T) {
	ctx := context.Background()
	m, product, ft := newManager(t)

	ft.gets["/products/42"] = map[string]any{"id": int64(42), "name": "a", "price": 1.5}
	p1, err := m.Get(ctx, product, 42, nil)
	require.NoError(t, err)

	ft.gets["/products/42"] = map[string]any{"id": int64(42), "name": "b"}
	p2, err := m.Get(ctx, product, 42, nil)
	require.NoError(t, err)

	assert.Same(t, p1, p2)
	assert.Equal(t, "b", name.Get(p1))
	assert.Equal(t, 1.5, price.Get(p1), "fields absent from the payload keep their value")

	c := ft.last()
	assert.Equal(t, "/products/42", c.meta.URI())
	assert.Equal(t, 42, c.meta["id"])
	assert.Equal(t, restmap.Meta{"uri": "/products/{id}"}, product.Meta(restmap.ActionGet))
}

func TestManager_GetOverrides(t *testing.T) {
	m, product, ft := newManager(t)
	ft.gets["/v2/products/5"] = map[string]any{"id": int64(5)}
	_, err := m.Get(context.Background(), product, 5, restmap.Meta{
		"uri":    "/v2/products/{0}",
		"params": map[string]any{"expand": "all"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"expand": "all"}, ft.last().meta.Params())
}

func TestManager_ListThenGet(t *testing.T) {
	ctx := context.Background()
	m, product, ft := newManager(t)
	ft.lists["/products"] = []any{
		map[string]any{"id": int64(1), "name": "one"},
		map[string]any{"id": int64(2), "name": "two"},
	}
	cur, err := m.List(ctx, product, nil)
	require.NoError(t, err)
	items, err := restmap.Drain(ctx, cur)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.NotSame(t, items[0], items[1])
	assert.Equal(t, "one", name.Get(items[0]))
	assert.Equal(t, "two", name.Get(items[1]))

	ft.gets["/products/1"] = map[string]any{"id": int64(1), "name": "uno"}
	p, err := m.Get(ctx, product, 1, nil)
	require.NoError(t, err)
	assert.Same(t, items[0], p)
	assert.Equal(t, "uno", name.Get(items[0]))
}

func TestManager_ListCursorSource(t *testing.T) {
	ctx := context.Background()
	m, product, ft := newManager(t)
	ft.lists["/products"] = restmap.SliceCursor([]any{map[string]any{"id": int64(3)}})
	cur, err := m.List(ctx, product, nil)
	require.NoError(t, err)
	items, err := restmap.Drain(ctx, cur)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Same(t, items[0], m.Tracked(product, 3))
}

func TestManager_StructuralErrors(t *testing.T) {
	ctx := context.Background()
	m, product, ft := newManager(t)

	ft.lists["/products"] = map[string]any{"items": []any{}}
	_, err := m.List(ctx, product, nil)
	var re *restmap.ResourceError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, restmap.CodeNotIterable, re.Code)
	assert.ErrorIs(t, err, restmap.ErrResource)

	ft.gets["/products/1"] = []any{}
	_, err = m.Get(ctx, product, 1, nil)
	require.ErrorAs(t, err, &re)
	assert.Equal(t, restmap.CodeNotMapping, re.Code)
	assert.Equal(t, "expected a mapping, got []interface {}", err.Error())

	ft.lists["/products"] = []any{"nope"}
	cur, err := m.List(ctx, product, nil)
	require.NoError(t, err)
	_, err = cur.Next(ctx)
	require.ErrorAs(t, err, &re)
}

func TestManager_HydrationErrorsPropagate(t *testing.T) {
	m, product, ft := newManager(t)
	ft.gets["/products/1"] = map[string]any{"id": int64(1), "price": "cheap"}
	_, err := m.Get(context.Background(), product, 1, nil)
	var hte *restmap.HydrationTypeError
	require.ErrorAs(t, err, &hte)
	assert.Equal(t, "Wrong type for shop.Product.price: expected float or int, got 'cheap'", err.Error())
}

func TestManager_NewClearsFields(t *testing.T) {
	m, product, _ := newManager(t)
	r, err := m.NewWith(product, map[string]any{"name": "x"})
	require.NoError(t, err)
	assert.Nil(t, r.ID())
	assert.Equal(t, "x", name.Get(r))
	assert.Equal(t, 0, m.TrackedCount())

	r, err = m.New(product)
	require.NoError(t, err)
	v, ok := r.Lookup("name")
	assert.True(t, ok)
	assert.Nil(t, v)

	data, err := m.Hydrator().Dehydrate(r)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": nil, "price": nil}, data)
}

func TestManager_SaveCreateThenUpdate(t *testing.T) {
	ctx := context.Background()
	m, product, ft := newManager(t)

	r, err := m.New(product)
	require.NoError(t, err)
	require.NoError(t, name.Write(r, "n"))

	ft.writes["/products"] = map[string]any{"id": int64(7), "price": 9.5}
	require.NoError(t, m.Save(ctx, r, nil))

	c := ft.last()
	assert.Equal(t, "create", c.op)
	assert.Equal(t, map[string]any{"name": "n", "price": nil}, c.data)
	assert.Equal(t, int64(7), r.ID())
	assert.Equal(t, 9.5, price.Get(r))
	assert.Same(t, r, m.Tracked(product, 7))

	require.NoError(t, name.Write(r, "renamed"))
	require.NoError(t, m.Save(ctx, r, nil))
	c = ft.last()
	assert.Equal(t, "update", c.op)
	assert.Equal(t, "/products/7", c.meta.URI())
	assert.Equal(t, "renamed", c.data["name"])
	assert.Equal(t, "renamed", name.Get(r), "empty response leaves the resource untouched")

	ft.gets["/products/7"] = map[string]any{"id": int64(7)}
	p, err := m.Get(ctx, product, 7, nil)
	require.NoError(t, err)
	assert.Same(t, r, p)
}

func TestManager_DetachAndClear(t *testing.T) {
	ctx := context.Background()
	m, product, ft := newManager(t)
	ft.gets["/products/1"] = map[string]any{"id": int64(1)}

	p1, err := m.Get(ctx, product, 1, nil)
	require.NoError(t, err)
	m.Detach(p1)
	assert.Nil(t, m.Tracked(product, 1))
	m.Detach(p1)

	p2, err := m.Get(ctx, product, 1, nil)
	require.NoError(t, err)
	assert.NotSame(t, p1, p2)

	m.Clear()
	assert.Equal(t, 0, m.TrackedCount())
	p3, err := m.Get(ctx, product, 1, nil)
	require.NoError(t, err)
	assert.NotSame(t, p2, p3)
}

func TestManager_SaveRekeysChangedID(t *testing.T) {
	ctx := context.Background()
	m, product, ft := newManager(t)
	ft.gets["/products/1"] = map[string]any{"id": int64(1), "name": "a"}

	p, err := m.Get(ctx, product, 1, nil)
	require.NoError(t, err)
	ft.writes["/products/1"] = map[string]any{"id": int64(2)}
	require.NoError(t, m.Save(ctx, p, nil))

	assert.Nil(t, m.Tracked(product, 1))
	assert.Same(t, p, m.Tracked(product, 2))
	assert.Equal(t, 1, m.TrackedCount())

	m.Detach(p)
	assert.Nil(t, m.Tracked(product, 2))
	assert.Equal(t, 0, m.TrackedCount())
}

func TestManager_FailedHydrationIsNotTracked(t *testing.T) {
	m, product, _ := newManager(t)
	_, err := m.Instantiate(product, map[string]any{"id": int64(5), "price": "cheap"})
	require.Error(t, err)
	assert.Nil(t, m.Tracked(product, 5))
}

func TestManager_IdentityKeyNormalised(t *testing.T) {
	m, product, ft := newManager(t)
	ft.gets["/products/42"] = map[string]any{"id": int64(42)}
	p, err := m.Get(context.Background(), product, int32(42), nil)
	require.NoError(t, err)
	assert.Same(t, p, m.Tracked(product, 42))
	assert.Same(t, p, m.Tracked(product, uint8(42)))
	assert.Same(t, p, m.Tracked(product, 42.0))
	assert.Nil(t, m.Tracked(product, "42"))
}

func TestManager_UntrackedWhenCollected(t *testing.T) {
	m, product, ft := newManager(t)
	ft.gets["/products/9"] = map[string]any{"id": int64(9)}
	func() {
		_, err := m.Get(context.Background(), product, 9, nil)
		require.NoError(t, err)
	}()
	require.Eventually(t, func() bool {
		runtime.GC()
		return m.TrackedCount() == 0
	}, 5*time.Second, 10*time.Millisecond)
}
