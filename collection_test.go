package restmap_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/restmap"
)

// countingOpener serves items and records how many were pulled.
type countingOpener struct {
	items  []int
	opened int
	pulled int
	err    error
}

func (o *countingOpener) open(context.Context) (restmap.Cursor[int], error) {
	o.opened++
	i := 0
	return restmap.CursorFunc[int](func(context.Context) (int, error) {
		if i >= len(o.items) {
			if o.err != nil {
				return 0, o.err
			}
			return 0, io.EOF
		}
		o.pulled++
		i++
		return o.items[i-1], nil
	}), nil
}

func TestCollection_LazyBuffersOnce(t *testing.T) {
	ctx := context.Background()
	src := &countingOpener{items: []int{10, 20, 30, 40}}
	c := restmap.NewLazyCollection(src.open)
	assert.Equal(t, 0, src.opened, "nothing is fetched before first access")

	v, err := c.At(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 20, v)
	assert.Equal(t, 2, src.pulled)
	assert.False(t, c.Loaded())

	got := []int{}
	for v, err := range c.All(ctx) {
		require.NoError(t, err)
		got = append(got, v)
	}
	assert.Equal(t, []int{10, 20, 30, 40}, got)
	assert.True(t, c.Loaded())

	all, err := c.ToList(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{10, 20, 30, 40}, all)
	assert.Equal(t, 1, src.opened)
	assert.Equal(t, 4, src.pulled)
}

func TestCollection_EarlyBreak(t *testing.T) {
	ctx := context.Background()
	src := &countingOpener{items: []int{1, 2, 3, 4, 5}}
	c := restmap.NewLazyCollection(src.open)
	for v, err := range c.All(ctx) {
		require.NoError(t, err)
		if v == 2 {
			break
		}
	}
	assert.Equal(t, 2, src.pulled)
	assert.Equal(t, 2, c.Len())
}

func TestCollection_NegativeIndexLoadsAll(t *testing.T) {
	ctx := context.Background()
	src := &countingOpener{items: []int{1, 2, 3}}
	c := restmap.NewLazyCollection(src.open)
	v, err := c.At(ctx, -1)
	require.NoError(t, err)
	assert.Equal(t, 3, v)
	assert.True(t, c.Loaded())

	_, err = c.At(ctx, 3)
	assert.ErrorIs(t, err, restmap.ErrIndexOutOfRange)
	_, err = c.At(ctx, -4)
	assert.ErrorIs(t, err, restmap.ErrIndexOutOfRange)
}

func TestCollection_Slice(t *testing.T) {
	ctx := context.Background()
	src := &countingOpener{items: []int{1, 2, 3, 4, 5}}
	c := restmap.NewLazyCollection(src.open)

	s, err := c.Slice(ctx, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, s)
	assert.Equal(t, 3, src.pulled)

	s, err = c.Slice(ctx, 3, -1)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5}, s)

	s, err = c.Slice(ctx, 4, 100)
	require.NoError(t, err)
	assert.Equal(t, []int{5}, s)

	s, err = c.Slice(ctx, 3, 2)
	require.NoError(t, err)
	assert.Empty(t, s)
}

func TestCollection_Loaded(t *testing.T) {
	c := restmap.NewCollection([]string{"a", "b"})
	assert.True(t, c.Loaded())
	v, err := c.At(context.Background(), -2)
	require.NoError(t, err)
	assert.Equal(t, "a", v)
}

func TestCollection_ErrorYieldedOnce(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	src := &countingOpener{items: []int{1}, err: boom}
	c := restmap.NewLazyCollection(src.open)

	var errs []error
	n := 0
	for _, err := range c.All(ctx) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		n++
	}
	assert.Equal(t, 1, n)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], boom)

	_, err := c.ToList(ctx)
	assert.ErrorIs(t, err, boom)
}

func TestCollection_OpenError(t *testing.T) {
	boom := errors.New("unreachable")
	c := restmap.NewLazyCollection(func(context.Context) (restmap.Cursor[int], error) { return nil, boom })
	_, err := c.At(context.Background(), 0)
	assert.ErrorIs(t, err, boom)
}
