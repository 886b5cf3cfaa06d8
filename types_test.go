package restmap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/restmap"
)

func TestTypeBuilder(t *testing.T) {
	reg := restmap.NewRegistry("inv")
	typ, err := reg.Register(restmap.Define("Item").
		ID("cid").
		Field("cid", restmap.String()).
		Field("label", restmap.String()).
		Field("_scratch", restmap.Any()))
	require.NoError(t, err)

	assert.Equal(t, "Item", typ.Name())
	assert.Equal(t, "inv.Item", typ.QualifiedName())
	assert.Equal(t, "inv.Item.label", typ.FullName("label"))
	assert.Same(t, reg, typ.Registry())
	assert.Equal(t, "cid", typ.IDAttr())

	names := []string{}
	for _, d := range typ.Fields() {
		names = append(names, d.Base().Name)
	}
	assert.Equal(t, []string{"cid", "label"}, names, "underscore fields are not serialized")

	d, ok := typ.Field("_scratch")
	require.True(t, ok)
	assert.Same(t, typ, d.Base().Owner())

	r := typ.New()
	d, _ = typ.Field("cid")
	d.(*restmap.Field).Set(r, "c2")
	assert.Equal(t, "<inv.Item cid='c2'>", r.String())
}

func TestTypeBuilder_Errors(t *testing.T) {
	_, err := restmap.Define("X").Field("a", restmap.Int()).Field("a", restmap.Int()).Build()
	assert.ErrorContains(t, err, `duplicate field "a"`)

	_, err = restmap.Define("X").Field("a", nil).Build()
	assert.ErrorContains(t, err, "nil descriptor")

	_, err = restmap.Define("").Build()
	assert.Error(t, err)

	f := restmap.Int()
	restmap.Define("A").Field("n", f).MustBuild()
	_, err = restmap.Define("B").Field("n", f).Build()
	assert.Error(t, err, "a descriptor binds to one type only")
}

func TestRegistry(t *testing.T) {
	reg := restmap.NewRegistry("shop")
	b := reg.MustRegister(restmap.Define("B"))
	a := reg.MustRegister(restmap.Define("A"))

	got, ok := reg.Lookup("A")
	require.True(t, ok)
	assert.Same(t, a, got)
	_, ok = reg.Lookup("C")
	assert.False(t, ok)
	assert.Equal(t, []*restmap.Type{a, b}, reg.Types())

	_, err := reg.Register(restmap.Define("A"))
	assert.ErrorContains(t, err, "already registered")
	assert.Panics(t, func() { reg.MustRegister(restmap.Define("A")) })
}

func TestMeta_CloneAndMerge(t *testing.T) {
	base := restmap.Meta{"uri": "/a", "params": map[string]any{"x": 1}}
	typ := restmap.Define("T").Action(restmap.ActionList, base).MustBuild()

	m := typ.Meta(restmap.ActionList)
	m["params"].(map[string]any)["x"] = 2
	assert.Equal(t, 1, typ.Meta(restmap.ActionList)["params"].(map[string]any)["x"])
	assert.Equal(t, 1, base["params"].(map[string]any)["x"])

	merged := base.Merge(restmap.Meta{"uri": "/b", "method": "PATCH"})
	assert.Equal(t, "/b", merged.URI())
	assert.Equal(t, "PATCH", merged["method"])
	assert.Equal(t, "/a", base.URI())

	assert.Equal(t, restmap.Meta{}, typ.Meta(restmap.ActionGet))
}

func TestMeta_Params(t *testing.T) {
	m := restmap.Meta{"params": map[string]any{"page": int64(2), "q": "lamp", "skip": nil, "on": true}}
	assert.Equal(t, map[string]string{"page": "2", "q": "lamp", "on": "true"}, m.Params())
	assert.Nil(t, restmap.Meta{}.Params())
}
