package restmap

import "context"

// Transport performs the requests the manager issues. Meta always carries an
// interpolated "uri" and may carry "params". Implementations own timeouts,
// retries and authentication.
type Transport interface {
	// Get returns the raw payload of one resource.
	Get(ctx context.Context, meta Meta) (any, error)
	// List returns a []any or a Cursor[any] of raw item payloads.
	List(ctx context.Context, meta Meta) (any, error)
	// Create returns the server representation, or nil when the response is
	// empty.
	Create(ctx context.Context, meta Meta, data map[string]any) (any, error)
	// Update behaves like Create for an existing resource.
	Update(ctx context.Context, meta Meta, data map[string]any) (any, error)
}
