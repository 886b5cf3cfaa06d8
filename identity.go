package restmap

import (
	"encoding/json"
	"math"
	"reflect"
	"runtime"
	"sync"
	"weak"
)

type identityKey struct {
	typ *Type
	id  any
}

// identityMap holds at most one live Resource per (type, id). Entries are weak
// and removed by a runtime cleanup once the resource is collected; cleanups
// run on their own goroutine, hence the mutex. keys remembers the key each
// resource is filed under so a changed id moves the entry.
type identityMap struct {
	mu      sync.Mutex
	entries map[identityKey]weak.Pointer[Resource]
	keys    map[weak.Pointer[Resource]]identityKey
}

func newIdentityMap() *identityMap {
	return &identityMap{
		entries: map[identityKey]weak.Pointer[Resource]{},
		keys:    map[weak.Pointer[Resource]]identityKey{},
	}
}

func (m *identityMap) lookup(t *Type, id any) *Resource {
	nid, ok := NormalizeID(id)
	if !ok {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[identityKey{t, nid}].Value()
}

// track registers r under its current id. Resources without a usable id are
// not tracked.
func (m *identityMap) track(r *Resource) bool {
	return m.put(r, r.ID())
}

// put registers r under id, dropping the entry of a previous id.
func (m *identityMap) put(r *Resource, id any) bool {
	nid, ok := NormalizeID(id)
	if !ok {
		return false
	}
	key := identityKey{r.typ, nid}
	wp := weak.Make(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	old, known := m.keys[wp]
	if known && old == key && m.entries[key] == wp {
		return true
	}
	if known && old != key && m.entries[old] == wp {
		delete(m.entries, old)
	}
	m.entries[key] = wp
	m.keys[wp] = key
	if !known {
		runtime.AddCleanup(r, m.evict, wp)
	}
	return true
}

func (m *identityMap) evict(wp weak.Pointer[Resource]) {
	m.mu.Lock()
	if key, ok := m.keys[wp]; ok {
		if m.entries[key] == wp {
			delete(m.entries, key)
		}
		delete(m.keys, wp)
	}
	m.mu.Unlock()
}

func (m *identityMap) detach(r *Resource) {
	wp := weak.Make(r)
	m.mu.Lock()
	if key, ok := m.keys[wp]; ok {
		if m.entries[key] == wp {
			delete(m.entries, key)
		}
		delete(m.keys, wp)
	}
	m.mu.Unlock()
}

func (m *identityMap) clear() {
	m.mu.Lock()
	clear(m.entries)
	clear(m.keys)
	m.mu.Unlock()
}

func (m *identityMap) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, wp := range m.entries {
		if wp.Value() != nil {
			n++
		}
	}
	return n
}

// NormalizeID maps equal identifiers of different Go types onto one key:
// integer kinds and integral floats become int64. It reports false for nil,
// empty strings and values that cannot be map keys.
func NormalizeID(id any) (any, bool) {
	switch v := id.(type) {
	case nil:
		return nil, false
	case string:
		return v, v != ""
	case int64:
		return v, true
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, true
		}
		return v.String(), true
	}
	rv := reflect.ValueOf(id)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u <= math.MaxInt64 {
			return int64(u), true
		}
		return u, true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f == math.Trunc(f) && f >= math.MinInt64 && f <= math.MaxInt64 {
			return int64(f), true
		}
		return f, true
	}
	if !rv.Type().Comparable() {
		return nil, false
	}
	return id, true
}
