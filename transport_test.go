package restmap_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/reoring/restmap"
)

type call struct {
	op   string
	meta restmap.Meta
	data map[string]any
}

// fakeTransport answers from canned payloads keyed by uri.
type fakeTransport struct {
	mu     sync.Mutex
	gets   map[string]any
	lists  map[string]any
	writes map[string]any
	calls  []call
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{gets: map[string]any{}, lists: map[string]any{}, writes: map[string]any{}}
}

func (f *fakeTransport) record(op string, meta restmap.Meta, data map[string]any) {
	f.mu.Lock()
	f.calls = append(f.calls, call{op: op, meta: meta, data: data})
	f.mu.Unlock()
}

func (f *fakeTransport) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.op == op {
			n++
		}
	}
	return n
}

func (f *fakeTransport) last() call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func (f *fakeTransport) Get(_ context.Context, meta restmap.Meta) (any, error) {
	f.record("get", meta, nil)
	v, ok := f.gets[meta.URI()]
	if !ok {
		return nil, fmt.Errorf("no payload for %s", meta.URI())
	}
	return v, nil
}

func (f *fakeTransport) List(_ context.Context, meta restmap.Meta) (any, error) {
	f.record("list", meta, nil)
	v, ok := f.lists[meta.URI()]
	if !ok {
		return nil, fmt.Errorf("no payload for %s", meta.URI())
	}
	return v, nil
}

func (f *fakeTransport) Create(_ context.Context, meta restmap.Meta, data map[string]any) (any, error) {
	f.record("create", meta, data)
	return f.writes[meta.URI()], nil
}

func (f *fakeTransport) Update(_ context.Context, meta restmap.Meta, data map[string]any) (any, error) {
	f.record("update", meta, data)
	return f.writes[meta.URI()], nil
}
