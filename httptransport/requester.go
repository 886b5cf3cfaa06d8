package httptransport

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/reoring/restmap"
	"github.com/reoring/restmap/source"
)

// Requester implements restmap.Transport. Get and List requests go through
// GetHandler and ListHandler; Create and Update go through WriteHandler.
type Requester struct {
	BaseURL      string
	GetHandler   Handler
	ListHandler  Handler
	WriteHandler Handler
	// StreamLists decodes list bodies item by item.
	StreamLists bool
}

var _ restmap.Transport = (*Requester)(nil)

type config struct {
	client  *http.Client
	decoder source.Decoder
	log     zerolog.Logger
	metrics *Metrics
	params  map[string]string
	headers map[string]string
	paging  *Paging
	stream  bool
}

// Option configures New.
type Option func(*config)

// WithClient sets the HTTP client. Timeouts belong on the client.
func WithClient(c *http.Client) Option { return func(o *config) { o.client = c } }

// WithDecoder sets the JSON driver and body limits.
func WithDecoder(d source.Decoder) Option { return func(o *config) { o.decoder = d } }

// WithLogger logs every request.
func WithLogger(l zerolog.Logger) Option { return func(o *config) { o.log = l } }

// WithMetrics records every request in m.
func WithMetrics(m *Metrics) Option { return func(o *config) { o.metrics = m } }

// WithParams adds query params to every request.
func WithParams(p map[string]string) Option { return func(o *config) { o.params = p } }

// WithDefaultHeaders adds headers to every request.
func WithDefaultHeaders(h map[string]string) Option { return func(o *config) { o.headers = h } }

// WithPaging fetches lists page by page.
func WithPaging(p *Paging) Option { return func(o *config) { o.paging = p } }

// WithStreaming decodes list bodies item by item instead of all at once.
// Abandoned cursors keep their connection until they are closed or drained.
func WithStreaming() Option { return func(o *config) { o.stream = true } }

// New builds a Requester with the standard handler chain:
// logging, request id, headers, params, unwrap, status check, metrics, HTTP.
func New(baseURL string, opts ...Option) *Requester {
	cfg := config{log: zerolog.Nop()}
	for _, o := range opts {
		o(&cfg)
	}
	inner := []Middleware{Unwrap, CheckStatus}
	if cfg.metrics != nil {
		inner = append(inner, cfg.metrics.Middleware)
	}
	base := Chain(HTTP(cfg.client, cfg.decoder), inner...)

	outer := []Middleware{Logging(cfg.log), WithRequestID}
	if len(cfg.headers) > 0 {
		outer = append(outer, WithHeaders(cfg.headers))
	}
	if len(cfg.params) > 0 {
		outer = append(outer, InjectParams(cfg.params))
	}
	get := Chain(base, outer...)
	list := get
	if cfg.paging != nil {
		list = cfg.paging.Wrap(get)
	}
	return &Requester{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		GetHandler:   get,
		ListHandler:  list,
		WriteHandler: get,
		StreamLists:  cfg.stream,
	}
}

func (r *Requester) request(method string, meta restmap.Meta) *Request {
	if m, ok := meta["method"].(string); ok && m != "" {
		method = strings.ToUpper(m)
	}
	uri := meta.URI()
	if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
		uri = r.BaseURL + uri
	}
	return &Request{
		Method: method,
		URL:    uri,
		Params: meta.Params(),
		Header: http.Header{},
		Meta:   meta,
	}
}

// Get fetches one resource.
func (r *Requester) Get(ctx context.Context, meta restmap.Meta) (any, error) {
	resp, err := r.GetHandler(ctx, r.request(http.MethodGet, meta))
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// List fetches a list of resources.
func (r *Requester) List(ctx context.Context, meta restmap.Meta) (any, error) {
	req := r.request(http.MethodGet, meta)
	req.Stream = r.StreamLists
	resp, err := r.ListHandler(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Create posts data.
func (r *Requester) Create(ctx context.Context, meta restmap.Meta, data map[string]any) (any, error) {
	return r.write(ctx, http.MethodPost, meta, data)
}

// Update puts data. Set meta "method" to use PATCH.
func (r *Requester) Update(ctx context.Context, meta restmap.Meta, data map[string]any) (any, error) {
	return r.write(ctx, http.MethodPut, meta, data)
}

func (r *Requester) write(ctx context.Context, method string, meta restmap.Meta, data map[string]any) (any, error) {
	req := r.request(method, meta)
	req.Data = data
	resp, err := r.WriteHandler(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}
