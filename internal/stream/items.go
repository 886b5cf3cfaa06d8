// Package stream reads JSON arrays element by element so list responses can
// be consumed before the body has been fully received.
package stream

import (
	"context"
	"io"

	eng "github.com/reoring/restmap/internal/engine"
)

// Seek advances src to the value found under the object keys in path and
// returns its first token. An empty path returns the first token of the
// document. It reports found=false when a key is missing.
func Seek(src eng.TokenSource, path ...string) (tok eng.Token, found bool, err error) {
	if tok, err = src.NextToken(); err != nil {
		return eng.Token{}, false, err
	}
	for _, key := range path {
		if tok.Kind != eng.KindBeginObject {
			return eng.Token{}, false, &eng.UnexpectedTokenError{Got: tok.Kind, Want: "object", Offset: tok.Offset}
		}
		matched := false
		for !matched {
			kt, err := src.NextToken()
			if err != nil {
				return eng.Token{}, false, err
			}
			if kt.Kind == eng.KindEndObject {
				return eng.Token{}, false, nil
			}
			if tok, err = src.NextToken(); err != nil {
				return eng.Token{}, false, err
			}
			if kt.String == key {
				matched = true
				continue
			}
			if err := eng.Skip(src, tok); err != nil {
				return eng.Token{}, false, err
			}
		}
	}
	return tok, true, nil
}

// Items is a cursor over the elements of one JSON array. Each element is
// decoded when Next is called; the underlying body is closed at the end of
// the array, on the first error, or by Close.
type Items struct {
	src    eng.TokenSource
	closer io.Closer
	done   bool
	count  int
}

// NewItems returns a cursor over the array whose '[' token has just been read
// from src. closer may be nil.
func NewItems(src eng.TokenSource, closer io.Closer) *Items {
	return &Items{src: src, closer: closer}
}

// Next decodes the next element. It returns io.EOF after the last one.
func (it *Items) Next(ctx context.Context) (any, error) {
	if it.done {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		it.finish()
		return nil, err
	}
	tok, err := it.src.NextToken()
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	if err != nil {
		it.finish()
		return nil, err
	}
	if tok.Kind == eng.KindEndArray {
		it.finish()
		return nil, io.EOF
	}
	v, err := eng.DecodeValue(it.src, tok)
	if err != nil {
		it.finish()
		return nil, err
	}
	it.count++
	return v, nil
}

// Count returns the number of elements decoded so far.
func (it *Items) Count() int { return it.count }

// Close releases the body without reading the remaining elements.
func (it *Items) Close() error {
	if it.done {
		return nil
	}
	return it.finish()
}

func (it *Items) finish() error {
	it.done = true
	if it.closer != nil {
		c := it.closer
		it.closer = nil
		return c.Close()
	}
	return nil
}
