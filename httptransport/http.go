package httptransport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/reoring/restmap/source"
)

// HTTP returns the terminal handler that performs the request with client
// and decodes JSON bodies with dec. Request data is sent as a JSON body.
func HTTP(client *http.Client, dec source.Decoder) Handler {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context, req *Request) (*Response, error) {
		u, err := buildURL(req.URL, req.Params)
		if err != nil {
			return nil, err
		}
		var body io.Reader
		if req.Data != nil {
			drv := dec.Driver
			if drv == nil {
				drv = source.Current()
			}
			b, err := drv.Marshal(req.Data)
			if err != nil {
				return nil, fmt.Errorf("httptransport: encode body: %w", err)
			}
			body = bytes.NewReader(b)
		}
		method := req.Method
		if method == "" {
			method = http.MethodGet
		}
		hreq, err := http.NewRequestWithContext(ctx, method, u, body)
		if err != nil {
			return nil, fmt.Errorf("httptransport: create request: %w", err)
		}
		for k, vs := range req.Header {
			for _, v := range vs {
				hreq.Header.Add(k, v)
			}
		}
		hreq.Header.Set("Accept", "application/json")
		if body != nil {
			hreq.Header.Set("Content-Type", "application/json")
		}

		hresp, err := client.Do(hreq)
		if err != nil {
			return nil, fmt.Errorf("httptransport: %s %s: %w", method, u, err)
		}
		resp := &Response{
			Status: hresp.StatusCode,
			Reason: reason(hresp),
			Header: hresp.Header,
		}

		br := bufio.NewReader(hresp.Body)
		if _, err := br.Peek(1); err != nil {
			hresp.Body.Close()
			if errors.Is(err, io.EOF) {
				return resp, nil
			}
			return nil, fmt.Errorf("httptransport: read response: %w", err)
		}
		rc := readCloser{Reader: br, Closer: hresp.Body}

		if hresp.StatusCode >= 400 {
			defer rc.Close()
			// error bodies are informative only; a non-JSON body is not an error here
			resp.Data, _ = dec.Decode(rc)
			return resp, nil
		}
		if req.Stream {
			var path []string
			if key, _ := req.Meta["key"].(string); key != "" {
				path = []string{key}
			}
			cur, err := dec.Items(rc, path...)
			if err != nil {
				return nil, fmt.Errorf("httptransport: decode response: %w", err)
			}
			resp.Data = cur
			return resp, nil
		}
		defer rc.Close()
		resp.Data, err = dec.Decode(rc)
		if err != nil {
			return nil, fmt.Errorf("httptransport: decode response: %w", err)
		}
		return resp, nil
	}
}

type readCloser struct {
	io.Reader
	io.Closer
}

func reason(r *http.Response) string {
	if s, ok := strings.CutPrefix(r.Status, fmt.Sprint(r.StatusCode)+" "); ok {
		return s
	}
	return http.StatusText(r.StatusCode)
}

func buildURL(raw string, params map[string]string) (string, error) {
	if len(params) == 0 {
		return raw, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("httptransport: parse url %q: %w", raw, err)
	}
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
