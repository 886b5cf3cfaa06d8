package httptransport

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// StatusError is returned by CheckStatus for 4xx and 5xx responses. Body holds
// the decoded error body when it was JSON.
type StatusError struct {
	Status int
	Reason string
	Body   any
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP response: %d %s", e.Status, e.Reason)
}

// CheckStatus turns responses with status >= 400 into a *StatusError.
func CheckStatus(next Handler) Handler {
	return func(ctx context.Context, req *Request) (*Response, error) {
		resp, err := next(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp.Status >= 400 {
			return nil, &StatusError{Status: resp.Status, Reason: resp.Reason, Body: resp.Data}
		}
		return resp, nil
	}
}

// InjectParams adds params to every request. Request params win on conflict.
func InjectParams(params map[string]string) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			merged := maps.Clone(params)
			if merged == nil {
				merged = map[string]string{}
			}
			maps.Copy(merged, req.Params)
			req.Params = merged
			return next(ctx, req)
		}
	}
}

// WithHeaders sets headers on every request that does not already carry them.
func WithHeaders(h map[string]string) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			if req.Header == nil {
				req.Header = http.Header{}
			}
			for k, v := range h {
				if req.Header.Get(k) == "" {
					req.Header.Set(k, v)
				}
			}
			return next(ctx, req)
		}
	}
}

// Unwrap replaces a map body by its entry under the request meta "key". The
// remaining entries move to Response.Extra.
func Unwrap(next Handler) Handler {
	return func(ctx context.Context, req *Request) (*Response, error) {
		key, _ := req.Meta["key"].(string)
		resp, err := next(ctx, req)
		if err != nil || key == "" {
			return resp, err
		}
		data, ok := resp.Data.(map[string]any)
		if !ok {
			return resp, nil
		}
		inner, ok := data[key]
		if !ok {
			return resp, nil
		}
		if resp.Extra == nil {
			resp.Extra = map[string]any{}
		}
		for k, v := range data {
			if k != key {
				resp.Extra[k] = v
			}
		}
		resp.Data = inner
		return resp, nil
	}
}

// RequestIDHeader carries the correlation id set by WithRequestID.
const RequestIDHeader = "X-Request-ID"

// WithRequestID sets a random X-Request-ID on requests that have none.
func WithRequestID(next Handler) Handler {
	return func(ctx context.Context, req *Request) (*Response, error) {
		if req.Header == nil {
			req.Header = http.Header{}
		}
		if req.Header.Get(RequestIDHeader) == "" {
			req.Header.Set(RequestIDHeader, uuid.NewString())
		}
		return next(ctx, req)
	}
}

// Logging logs each request at debug level and failures at warn level.
func Logging(log zerolog.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *Request) (*Response, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			ev := log.Debug()
			if err != nil {
				ev = log.Warn().Err(err)
			}
			ev = ev.Str("method", req.Method).
				Str("url", req.URL).
				Dur("duration", time.Since(start))
			if id := req.Header.Get(RequestIDHeader); id != "" {
				ev = ev.Str("request_id", id)
			}
			if resp != nil {
				ev = ev.Int("status", resp.Status)
			}
			ev.Msg("http request")
			return resp, err
		}
	}
}
