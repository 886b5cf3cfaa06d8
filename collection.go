package restmap

import (
	"context"
	"errors"
	"io"
	"iter"
)

// Cursor yields items one at a time. Next returns io.EOF after the last item.
type Cursor[T any] interface {
	Next(ctx context.Context) (T, error)
}

// CursorFunc adapts a function to Cursor.
type CursorFunc[T any] func(ctx context.Context) (T, error)

func (f CursorFunc[T]) Next(ctx context.Context) (T, error) { return f(ctx) }

// SliceCursor returns a cursor over a finite slice.
func SliceCursor[T any](items []T) Cursor[T] {
	i := 0
	return CursorFunc[T](func(ctx context.Context) (T, error) {
		var zero T
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		if i >= len(items) {
			return zero, io.EOF
		}
		v := items[i]
		i++
		return v, nil
	})
}

// MapCursor converts each item of src with fn.
func MapCursor[S, T any](src Cursor[S], fn func(S) (T, error)) Cursor[T] {
	return CursorFunc[T](func(ctx context.Context) (T, error) {
		var zero T
		s, err := src.Next(ctx)
		if err != nil {
			return zero, err
		}
		return fn(s)
	})
}

// Drain reads every remaining item of c.
func Drain[T any](ctx context.Context, c Cursor[T]) ([]T, error) {
	var out []T
	for {
		v, err := c.Next(ctx)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
}

// Opener starts a lazy source. It is called at most once per Collection.
type Opener[T any] func(ctx context.Context) (Cursor[T], error)

// Collection is a read-only ordered sequence that is either loaded up front or
// fetched lazily. Items pulled from a lazy source are buffered, so each one is
// fetched once and every accessor replays the buffer before pulling more.
type Collection[T any] struct {
	items  []T
	loaded bool
	open   Opener[T]
	cursor Cursor[T]
}

// NewCollection returns a loaded collection over items.
func NewCollection[T any](items []T) *Collection[T] {
	return &Collection[T]{items: items, loaded: true}
}

// NewLazyCollection returns a collection that opens its source on first use.
func NewLazyCollection[T any](open Opener[T]) *Collection[T] {
	return &Collection[T]{open: open}
}

// Loaded reports whether the full source has been consumed.
func (c *Collection[T]) Loaded() bool { return c.loaded }

// Len returns the number of items buffered so far.
func (c *Collection[T]) Len() int { return len(c.items) }

// pull fetches one more item into the buffer; it reports false at the end.
func (c *Collection[T]) pull(ctx context.Context) (bool, error) {
	if c.loaded {
		return false, nil
	}
	if c.cursor == nil {
		cur, err := c.open(ctx)
		if err != nil {
			return false, err
		}
		c.cursor = cur
		c.open = nil
	}
	v, err := c.cursor.Next(ctx)
	if errors.Is(err, io.EOF) {
		c.loaded = true
		c.cursor = nil
		return false, nil
	}
	if err != nil {
		return false, err
	}
	c.items = append(c.items, v)
	return true, nil
}

func (c *Collection[T]) fill(ctx context.Context, n int) error {
	for n < 0 || len(c.items) < n {
		more, err := c.pull(ctx)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	return nil
}

// ToList materializes the collection.
func (c *Collection[T]) ToList(ctx context.Context) ([]T, error) {
	if err := c.fill(ctx, -1); err != nil {
		return nil, err
	}
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out, nil
}

// At returns the item at position i. Negative positions count from the end
// and materialize the whole collection.
func (c *Collection[T]) At(ctx context.Context, i int) (T, error) {
	var zero T
	n := i + 1
	if i < 0 {
		n = -1
	}
	if err := c.fill(ctx, n); err != nil {
		return zero, err
	}
	if i < 0 {
		i += len(c.items)
	}
	if i < 0 || i >= len(c.items) {
		return zero, ErrIndexOutOfRange
	}
	return c.items[i], nil
}

// Slice returns items[lo:hi], clamped to the available items. A negative hi
// means "to the end".
func (c *Collection[T]) Slice(ctx context.Context, lo, hi int) ([]T, error) {
	if err := c.fill(ctx, hi); err != nil {
		return nil, err
	}
	if hi < 0 || hi > len(c.items) {
		hi = len(c.items)
	}
	if lo < 0 {
		lo = 0
	}
	if lo >= hi {
		return []T{}, nil
	}
	out := make([]T, hi-lo)
	copy(out, c.items[lo:hi])
	return out, nil
}

// All iterates over the items in source order, pulling lazily as needed. An
// error is yielded once and ends the iteration.
func (c *Collection[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for i := 0; ; i++ {
			if i >= len(c.items) {
				more, err := c.pull(ctx)
				if err != nil {
					var zero T
					yield(zero, err)
					return
				}
				if !more {
					return
				}
			}
			if !yield(c.items[i], nil) {
				return
			}
		}
	}
}
