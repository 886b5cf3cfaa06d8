package httptransport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"github.com/reoring/restmap"
)

// ErrPageNotIterable is returned when a page body is not a list.
var ErrPageNotIterable = errors.New("httptransport: page is not iterable")

// Paging fetches a list spread over several pages. First adapts the initial
// request; Next builds the request for the page after last, or returns nil
// when last was the final page. Both receive a copy of the original request.
type Paging struct {
	First func(req *Request) *Request
	Next  func(req *Request, last *Response) *Request
}

// Wrap returns a handler that fetches the first page eagerly and exposes all
// items as a restmap.Cursor[any] that requests further pages on demand.
func (p *Paging) Wrap(next Handler) Handler {
	return func(ctx context.Context, req *Request) (*Response, error) {
		first := req.Clone()
		if p.First != nil {
			first = p.First(first)
		}
		resp, err := next(ctx, first)
		if err != nil {
			return nil, err
		}
		resp.Request = first
		page, err := pageCursor(resp.Data)
		if err != nil {
			return nil, err
		}
		combined := *resp
		combined.Data = &pages{p: p, next: next, orig: req, last: resp, page: page}
		return &combined, nil
	}
}

type pages struct {
	p    *Paging
	next Handler
	orig *Request
	last *Response
	page restmap.Cursor[any]
	done bool
}

func (ps *pages) Next(ctx context.Context) (any, error) {
	for {
		if ps.done {
			return nil, io.EOF
		}
		v, err := ps.page.Next(ctx)
		if err == nil {
			ps.last.Items++
			return v, nil
		}
		if !errors.Is(err, io.EOF) {
			return nil, err
		}
		var nreq *Request
		if ps.p.Next != nil {
			nreq = ps.p.Next(ps.orig.Clone(), ps.last)
		}
		if nreq == nil {
			ps.done = true
			return nil, io.EOF
		}
		resp, err := ps.next(ctx, nreq)
		if err != nil {
			return nil, err
		}
		resp.Request = nreq
		page, err := pageCursor(resp.Data)
		if err != nil {
			return nil, err
		}
		ps.last, ps.page = resp, page
	}
}

func pageCursor(data any) (restmap.Cursor[any], error) {
	switch v := data.(type) {
	case []any:
		return restmap.SliceCursor(v), nil
	case restmap.Cursor[any]:
		return v, nil
	case nil:
		return restmap.SliceCursor[any](nil), nil
	}
	return nil, fmt.Errorf("%w: got %T", ErrPageNotIterable, data)
}

// PageNumber returns a Paging that requests page 1, 2, ... in the given
// query parameter. It stops after a page with fewer than size items, or after
// an empty page when size <= 0.
func PageNumber(param string, size int) *Paging {
	return &Paging{
		First: func(req *Request) *Request {
			req.param(param, "1")
			return req
		},
		Next: func(req *Request, last *Response) *Request {
			if last.Items == 0 || (size > 0 && last.Items < size) {
				return nil
			}
			cur := 1
			if last.Request != nil {
				if n, err := strconv.Atoi(last.Request.Params[param]); err == nil {
					cur = n
				}
			}
			req.param(param, strconv.Itoa(cur+1))
			return req
		},
	}
}

// NextLink follows the URL found under key in the response extras, as left by
// Unwrap for bodies like {"items": [...], "next": "/items?page=2"}. Relative
// links resolve against the previous page URL and carry their own query.
func NextLink(key string) *Paging {
	return &Paging{
		Next: func(req *Request, last *Response) *Request {
			link, _ := last.Extra[key].(string)
			if link == "" {
				return nil
			}
			ref, err := url.Parse(link)
			if err != nil {
				return nil
			}
			base := req.URL
			if last.Request != nil {
				base = last.Request.URL
			}
			bu, err := url.Parse(base)
			if err != nil {
				return nil
			}
			req.URL = bu.ResolveReference(ref).String()
			req.Params = nil
			return req
		},
	}
}
