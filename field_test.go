package restmap_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/restmap"
)

func TestField_ReadOnlyWrite(t *testing.T) {
	reg := restmap.NewRegistry("shop")
	id := restmap.Int(restmap.ReadOnly())
	typ := reg.MustRegister(restmap.Define("Tag").Field("id", id))
	r := typ.New()

	err := id.Write(r, int64(1))
	var ro *restmap.ReadOnlyFieldError
	require.ErrorAs(t, err, &ro)
	assert.Equal(t, "shop.Tag.id is read-only", err.Error())
	assert.Nil(t, r.ID())

	id.Set(r, int64(1))
	assert.Equal(t, int64(1), r.ID())
}

func TestField_Keys(t *testing.T) {
	f := restmap.String(restmap.Key("displayName"), restmap.SaveKey("display_name"))
	restmap.Define("User").Field("name", f).MustBuild()
	assert.Equal(t, "displayName", f.LoadKey())
	assert.Equal(t, "display_name", f.DumpKey())

	g := restmap.String()
	restmap.Define("User").Field("name", g).MustBuild()
	assert.Equal(t, "name", g.LoadKey())
	assert.Equal(t, "name", g.DumpKey())
}

func TestDeferredField_ResolvesOnce(t *testing.T) {
	d := restmap.Deferred(restmap.NewClass("lazy"))
	typ := restmap.Define("Doc").Field("body", d).MustBuild()
	r := typ.New()
	assert.Equal(t, restmap.SlotUnset, d.State(r))

	calls := 0
	d.SetDeferred(r, func(context.Context) (any, error) {
		calls++
		return "text", nil
	})
	assert.Equal(t, restmap.SlotDeferred, d.State(r))
	_, ok := d.Peek(r)
	assert.False(t, ok)

	for range 3 {
		v, err := d.Get(context.Background(), r)
		require.NoError(t, err)
		assert.Equal(t, "text", v)
	}
	assert.Equal(t, 1, calls)
	assert.Equal(t, restmap.SlotResolved, d.State(r))
}

func TestDeferredField_RetriesAfterFailure(t *testing.T) {
	d := restmap.Deferred(restmap.NewClass("lazy"))
	typ := restmap.Define("Doc").Field("body", d).MustBuild()
	r := typ.New()

	boom := errors.New("boom")
	fail := true
	d.SetDeferred(r, func(context.Context) (any, error) {
		if fail {
			return nil, boom
		}
		return "ok", nil
	})
	_, err := d.Get(context.Background(), r)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, restmap.SlotDeferred, d.State(r))

	fail = false
	v, err := d.Get(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestDeferredField_ReloadDuringFetchWins(t *testing.T) {
	d := restmap.Deferred(restmap.NewClass("lazy"))
	typ := restmap.Define("Doc").Field("body", d).MustBuild()
	r := typ.New()

	d.SetDeferred(r, func(context.Context) (any, error) {
		d.SetDeferred(r, func(context.Context) (any, error) { return "new", nil })
		return "old", nil
	})
	v, err := d.Get(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, "old", v)
	assert.Equal(t, restmap.SlotDeferred, d.State(r), "the newer producer is kept")

	v, err = d.Get(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, "new", v)

	d.SetDeferred(r, func(context.Context) (any, error) {
		d.SetResolved(r, "written")
		return "fetched", nil
	})
	v, err = d.Get(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, "written", v)
}

func TestDeferredField_RefVisibleBeforeResolution(t *testing.T) {
	d := restmap.Deferred(restmap.NewClass("lazy"))
	typ := restmap.Define("Order").Field("customer", d).MustBuild()
	r := typ.New()

	d.SetRef(r, int64(5))
	d.SetDeferred(r, func(context.Context) (any, error) { return "customer-5", nil })
	v, ok := r.Lookup("customer")
	require.True(t, ok)
	assert.Equal(t, int64(5), v)

	ref, ok := d.Ref(r)
	require.True(t, ok)
	assert.Equal(t, int64(5), ref)

	d.SetRef(r, nil)
	_, ok = d.Ref(r)
	assert.False(t, ok)
}

func TestAttr(t *testing.T) {
	typ := restmap.Define("Product").
		Field("name", restmap.String()).
		Field("_cache", restmap.Any()).
		MustBuild()
	r := typ.New()

	require.NoError(t, name.Write(r, "lamp"))
	assert.Equal(t, "lamp", name.Get(r))
	assert.Equal(t, 0.0, price.Get(r), "undeclared fields read as zero")
	assert.Error(t, price.Write(r, 1))

	wrong := restmap.Attr[int64]{Name: "name"}
	assert.Equal(t, int64(0), wrong.Get(r))
}
