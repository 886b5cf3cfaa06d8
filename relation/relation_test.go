package relation_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/restmap"
	"github.com/reoring/restmap/client"
	"github.com/reoring/restmap/relation"
)

// stubTransport answers gets and lists from payloads keyed by uri.
type stubTransport struct {
	mu    sync.Mutex
	data  map[string]any
	calls []restmap.Meta
}

func (s *stubTransport) answer(meta restmap.Meta) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, meta)
	v, ok := s.data[meta.URI()]
	if !ok {
		return nil, fmt.Errorf("no payload for %s", meta.URI())
	}
	return v, nil
}

func (s *stubTransport) Get(_ context.Context, meta restmap.Meta) (any, error) { return s.answer(meta) }
func (s *stubTransport) List(_ context.Context, meta restmap.Meta) (any, error) {
	return s.answer(meta)
}
func (s *stubTransport) Create(_ context.Context, meta restmap.Meta, _ map[string]any) (any, error) {
	return nil, nil
}
func (s *stubTransport) Update(_ context.Context, meta restmap.Meta, _ map[string]any) (any, error) {
	return nil, nil
}

type shop struct {
	m        *restmap.Manager
	st       *stubTransport
	order    *restmap.Type
	customer *restmap.Type
	line     *restmap.Type
	lines    *relation.OneToMany
	buyer    *relation.ManyToOne
}

func newShop(t *testing.T, opts ...relation.Option) *shop {
	t.Helper()
	reg := restmap.NewRegistry("shop")
	s := &shop{st: &stubTransport{data: map[string]any{}}}
	s.lines = relation.NewOneToMany(relation.Named("Line"),
		relation.WithMeta(restmap.Meta{"uri": "/orders/{0.id}/lines"}),
		relation.WithParams(map[string]any{"order": "{id}"}))
	s.buyer = relation.NewManyToOne(relation.Named("Customer"), append(opts, relation.Field(restmap.Key("customer")))...)
	// Order is registered before its targets.
	s.order = reg.MustRegister(restmap.Define("Order").
		Field("id", restmap.Int(restmap.ReadOnly())).
		Field("buyer", s.buyer).
		Field("lines", s.lines).
		Action(restmap.ActionGet, restmap.Meta{"uri": "/orders/{id}"}))
	s.customer = reg.MustRegister(restmap.Define("Customer").
		Field("id", restmap.Int()).
		Field("name", restmap.String()).
		Action(restmap.ActionGet, restmap.Meta{"uri": "/customers/{id}"}))
	s.line = reg.MustRegister(restmap.Define("Line").
		Field("id", restmap.Int()).
		Field("qty", restmap.Int()).
		Action(restmap.ActionList, restmap.Meta{"uri": "/lines"}))
	s.m = client.MustNew(s.st)
	return s
}

func TestOneToMany_LazyList(t *testing.T) {
	ctx := context.Background()
	s := newShop(t)
	s.st.data["/orders/1"] = map[string]any{"id": int64(1)}
	s.st.data["/orders/1/lines"] = []any{
		map[string]any{"id": int64(10), "qty": int64(2)},
		map[string]any{"id": int64(11), "qty": int64(1)},
	}

	o, err := s.m.Get(ctx, s.order, 1, nil)
	require.NoError(t, err)
	require.Len(t, s.st.calls, 1)

	c := s.lines.Collection(o)
	require.NotNil(t, c)
	assert.False(t, c.Loaded())

	items, err := c.ToList(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Same(t, s.line, items[0].Type())
	assert.Equal(t, map[string]string{"order": "1"}, s.st.calls[1].Params())

	_, err = c.ToList(ctx)
	require.NoError(t, err)
	assert.Len(t, s.st.calls, 2, "the collection is fetched once")
	assert.Same(t, items[1], s.m.Tracked(s.line, 11))
}

func TestOneToMany_Embedded(t *testing.T) {
	ctx := context.Background()
	s := newShop(t)
	o, err := s.m.Instantiate(s.order, map[string]any{
		"id":    int64(1),
		"lines": []any{map[string]any{"id": int64(10), "qty": int64(5)}},
	})
	require.NoError(t, err)

	c := s.lines.Collection(o)
	assert.True(t, c.Loaded())
	first, err := c.At(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), restmap.Attr[int64]{Name: "qty"}.Get(first))
	assert.Empty(t, s.st.calls)

	_, err = s.m.Instantiate(s.order, map[string]any{"id": int64(2), "lines": "none"})
	assert.EqualError(t, err, "Wrong type for shop.Order.lines: expected sequence, got 'none'")
}

func TestOneToMany_IsReadOnly(t *testing.T) {
	s := newShop(t)
	o, err := s.m.New(s.order)
	require.NoError(t, err)
	var ro *restmap.ReadOnlyFieldError
	assert.ErrorAs(t, s.lines.Write(o, nil), &ro)

	data, err := s.m.Hydrator().Dehydrate(o)
	require.NoError(t, err)
	assert.NotContains(t, data, "lines")
}

func TestManyToOne_DeferredByID(t *testing.T) {
	ctx := context.Background()
	s := newShop(t)
	s.st.data["/customers/7"] = map[string]any{"id": int64(7), "name": "Acme"}

	o, err := s.m.Instantiate(s.order, map[string]any{"id": int64(1), "customer": int64(7)})
	require.NoError(t, err)
	assert.Equal(t, restmap.SlotDeferred, s.buyer.State(o))
	assert.Empty(t, s.st.calls)

	data, err := s.m.Hydrator().Dehydrate(o)
	require.NoError(t, err)
	assert.Equal(t, int64(7), data["customer"], "dumping does not fetch")
	assert.Empty(t, s.st.calls)

	c, err := s.buyer.Resolve(ctx, o)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "Acme", restmap.Attr[string]{Name: "name"}.Get(c))
	assert.Same(t, c, s.m.Tracked(s.customer, 7))

	again, err := s.buyer.Resolve(ctx, o)
	require.NoError(t, err)
	assert.Same(t, c, again)
	assert.Len(t, s.st.calls, 1)
}

func TestManyToOne_Embedded(t *testing.T) {
	s := newShop(t)
	o, err := s.m.Instantiate(s.order, map[string]any{
		"id":       int64(1),
		"customer": map[string]any{"id": int64(7), "name": "Acme"},
	})
	require.NoError(t, err)
	assert.Equal(t, restmap.SlotResolved, s.buyer.State(o))
	ref, ok := s.buyer.Ref(o)
	require.True(t, ok)
	assert.Equal(t, int64(7), ref)

	o2, err := s.m.Instantiate(s.order, map[string]any{"id": int64(2), "customer": int64(7)})
	require.NoError(t, err)
	c, err := s.buyer.Resolve(context.Background(), o2)
	require.NoError(t, err)
	assert.Same(t, s.m.Tracked(s.customer, 7), c)
}

func TestManyToOne_Errors(t *testing.T) {
	s := newShop(t)
	_, err := s.m.Instantiate(s.order, map[string]any{"id": int64(1), "customer": true})
	assert.EqualError(t, err, "Wrong type for shop.Order.buyer: expected map or int or str, got true")

	o, err := s.m.New(s.order)
	require.NoError(t, err)
	orphan, err := s.m.New(s.customer)
	require.NoError(t, err)
	require.NoError(t, s.buyer.Write(o, orphan))
	_, err = s.m.Hydrator().Dehydrate(o)
	var re *restmap.ResourceError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, restmap.CodeNoTargetID, re.Code)
	assert.Equal(t, "can't save relation, target has no id", err.Error())

	require.NoError(t, s.buyer.Write(o, nil))
	data, err := s.m.Hydrator().Dehydrate(o)
	require.NoError(t, err)
	assert.Nil(t, data["customer"])

	assert.Error(t, s.buyer.Write(o, "7"))
}

func TestManyToOne_SaveEmbedded(t *testing.T) {
	s := newShop(t, relation.SaveEmbedded())
	o, err := s.m.Instantiate(s.order, map[string]any{"id": int64(1), "customer": int64(7)})
	require.NoError(t, err)
	_, err = s.m.Hydrator().Dehydrate(o)
	assert.ErrorIs(t, err, restmap.ErrNotImplemented)
}

func TestRelation_UnresolvedName(t *testing.T) {
	reg := restmap.NewRegistry("crm")
	rel := relation.NewManyToOne(relation.Named("Ghost"))
	typ := reg.MustRegister(restmap.Define("Lead").Field("id", restmap.Int()).Field("owner", rel))
	m := client.MustNew(&stubTransport{data: map[string]any{}})

	_, err := m.Instantiate(typ, map[string]any{"id": int64(1), "owner": int64(2)})
	var une *restmap.UnresolvedNameError
	require.ErrorAs(t, err, &une)
	assert.Equal(t, "type 'crm.Ghost' is not defined", err.Error())

	loose := relation.NewOneToMany(relation.Named("Ghost"))
	unregistered := restmap.Define("Loose").Field("items", loose).MustBuild()
	_, err = loose.TargetType(unregistered)
	require.ErrorAs(t, err, &une)
	assert.Equal(t, "", une.Registry)
}

func TestRelation_DirectTarget(t *testing.T) {
	customer := restmap.Define("Customer").Field("id", restmap.Int()).MustBuild()
	rel := relation.NewManyToOne(relation.To(customer))
	owner := restmap.Define("Order").Field("buyer", rel).MustBuild()
	got, err := rel.TargetType(owner)
	require.NoError(t, err)
	assert.Same(t, customer, got)
	assert.Equal(t, "Customer", relation.To(customer).String())
	assert.Equal(t, "Ghost", relation.Named("Ghost").String())
}

func TestManyToOne_BackReferenceSharesInstance(t *testing.T) {
	ctx := context.Background()
	reg := restmap.NewRegistry("tree")
	parent := relation.NewManyToOne(relation.Named("Node"))
	children := relation.NewOneToMany(relation.Named("Node"))
	node := reg.MustRegister(restmap.Define("Node").
		Field("id", restmap.Int()).
		Field("parent", parent).
		Field("children", children))
	m := client.MustNew(&stubTransport{data: map[string]any{}})

	root, err := m.Instantiate(node, map[string]any{
		"id": int64(1),
		"children": []any{
			map[string]any{"id": int64(2), "parent": map[string]any{"id": int64(1)}},
		},
	})
	require.NoError(t, err)

	kids, err := children.Collection(root).ToList(ctx)
	require.NoError(t, err)
	require.Len(t, kids, 1)
	back, err := parent.Resolve(ctx, kids[0])
	require.NoError(t, err)
	assert.Same(t, root, back)
	assert.Same(t, root, m.Tracked(node, 1))
	assert.Same(t, kids[0], m.Tracked(node, 2))
	assert.Equal(t, 2, m.TrackedCount())
}
