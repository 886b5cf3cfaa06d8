// Package httptransport implements restmap.Transport over HTTP as a chain of
// handlers. Each handler receives a Request and returns a Response; wrappers
// such as CheckStatus, Unwrap and Paging adapt the chain to an API's
// conventions.
package httptransport

import (
	"context"
	"maps"
	"net/http"

	"github.com/reoring/restmap"
)

// Request is one HTTP call about to be made.
type Request struct {
	Method string
	URL    string
	Params map[string]string
	Data   map[string]any
	Header http.Header
	Meta   restmap.Meta
	// Stream asks the HTTP handler to return list items as a cursor instead
	// of decoding the whole body.
	Stream bool
}

// Clone returns a copy that can be modified without affecting r.
func (r *Request) Clone() *Request {
	c := *r
	c.Params = maps.Clone(r.Params)
	if r.Data != nil {
		c.Data = map[string]any(restmap.Meta(r.Data).Clone())
	}
	c.Header = r.Header.Clone()
	c.Meta = r.Meta.Clone()
	return &c
}

func (r *Request) param(k, v string) {
	if r.Params == nil {
		r.Params = map[string]string{}
	}
	r.Params[k] = v
}

// Response is the decoded result of a Request. Data is the decoded body: a
// map, a slice, a scalar, nil for an empty body, or a restmap.Cursor[any] for
// streamed and paged lists. Extra holds the siblings of an unwrapped key.
type Response struct {
	Status int
	Reason string
	Header http.Header
	Data   any
	Extra  map[string]any

	// Request and Items are filled in by Paging: the request that fetched the
	// page and the number of items read from it so far.
	Request *Request
	Items   int
}

// Handler performs a request.
type Handler func(ctx context.Context, req *Request) (*Response, error)

// Middleware wraps a handler.
type Middleware func(next Handler) Handler

// Chain applies mws to h so that the first middleware runs first.
func Chain(h Handler, mws ...Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
