// Package source turns JSON bodies into raw payloads through a pluggable
// driver. The default driver is goccy/go-json; encoding/json is available as
// a fallback. Decoded numbers are int64 when integral and float64 otherwise.
package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	eng "github.com/reoring/restmap/internal/engine"
	"github.com/reoring/restmap/internal/stream"
	drvgojson "github.com/reoring/restmap/source/gojson"
	drvjson "github.com/reoring/restmap/source/json"
)

// Token kinds and token streams, re-exported for driver implementations.
type (
	TokenSource = eng.TokenSource
	Token       = eng.Token
	TokenKind   = eng.Kind
)

const (
	TokenBeginObject = eng.KindBeginObject
	TokenEndObject   = eng.KindEndObject
	TokenBeginArray  = eng.KindBeginArray
	TokenEndArray    = eng.KindEndArray
	TokenKey         = eng.KindKey
	TokenString      = eng.KindString
	TokenNumber      = eng.KindNumber
	TokenBool        = eng.KindBool
	TokenNull        = eng.KindNull
)

// ViolationError is returned when a body exceeds a Limits bound.
type ViolationError = eng.ViolationError

// Driver converts JSON input to tokens and values to JSON.
type Driver interface {
	Name() string
	NewReader(r io.Reader) TokenSource
	Marshal(v any) ([]byte, error)
}

var (
	driverMu      sync.RWMutex
	currentDriver Driver = drvgojson.Driver()
)

// SetDriver replaces the process-wide driver; nil is ignored.
func SetDriver(d Driver) {
	if d == nil {
		return
	}
	driverMu.Lock()
	currentDriver = d
	driverMu.Unlock()
}

// UseDefaultDriver restores the go-json driver.
func UseDefaultDriver() { SetDriver(drvgojson.Driver()) }

// Current returns the process-wide driver.
func Current() Driver {
	driverMu.RLock()
	defer driverMu.RUnlock()
	return currentDriver
}

// ByName returns a built-in driver: "go-json" (or "") and "encoding/json".
func ByName(name string) (Driver, bool) {
	switch name {
	case "", "go-json", "gojson":
		return drvgojson.Driver(), true
	case "encoding/json", "json", "std":
		return drvjson.Driver(), true
	}
	return nil, false
}

// Limits bounds decoded bodies. Zero values disable a check.
type Limits struct {
	MaxDepth int
	MaxBytes int64
	// RejectDuplicateKeys fails on repeated object keys instead of keeping
	// the last value.
	RejectDuplicateKeys bool
}

func (l Limits) engine() eng.Limits {
	el := eng.Limits{MaxDepth: l.MaxDepth, MaxBytes: l.MaxBytes}
	if l.RejectDuplicateKeys {
		el.Duplicates = eng.DupError
	}
	return el
}

// Decoder decodes bodies with one driver and one set of limits.
type Decoder struct {
	Driver Driver
	Limits Limits
}

func (d Decoder) driver() Driver {
	if d.Driver != nil {
		return d.Driver
	}
	return Current()
}

func (d Decoder) tokens(r io.Reader) (TokenSource, *eng.ByteLimiter) {
	lim := d.Limits.engine()
	bl := eng.LimitReader(r, lim.MaxBytes)
	return eng.Enforce(d.driver().NewReader(bl), lim), bl
}

// Decode reads one JSON document into a raw value tree.
func (d Decoder) Decode(r io.Reader) (any, error) {
	src, bl := d.tokens(r)
	v, err := eng.Decode(src)
	if err != nil && bl.Exceeded() {
		return nil, bl.Violation()
	}
	return v, err
}

// DecodeBytes is Decode over a byte slice.
func (d Decoder) DecodeBytes(b []byte) (any, error) {
	return d.Decode(bytes.NewReader(b))
}

// ErrNotArray is returned by Items when the selected value is not an array.
var ErrNotArray = errors.New("source: value is not an array")

// Cursor reads array elements one by one. Next returns io.EOF after the last
// element.
type Cursor interface {
	Next(ctx context.Context) (any, error)
	Close() error
}

// Items streams the elements of the array found under the object keys in
// path (the document itself for an empty path). rc is closed when the cursor
// ends. A missing key yields an empty cursor.
func (d Decoder) Items(rc io.ReadCloser, path ...string) (Cursor, error) {
	src, bl := d.tokens(rc)
	tok, found, err := stream.Seek(src, path...)
	if err != nil {
		rc.Close()
		if bl.Exceeded() {
			return nil, bl.Violation()
		}
		return nil, err
	}
	if !found || tok.Kind == TokenNull {
		rc.Close()
		return emptyCursor{}, nil
	}
	if tok.Kind != TokenBeginArray {
		rc.Close()
		return nil, ErrNotArray
	}
	return &items{Items: stream.NewItems(src, rc), bl: bl}, nil
}

type items struct {
	*stream.Items
	bl *eng.ByteLimiter
}

func (it *items) Next(ctx context.Context) (any, error) {
	v, err := it.Items.Next(ctx)
	if err != nil && err != io.EOF && it.bl.Exceeded() {
		return nil, it.bl.Violation()
	}
	return v, err
}

// Marshal encodes v with the current driver.
func Marshal(v any) ([]byte, error) { return Current().Marshal(v) }

// Decode reads one JSON document with the current driver and no limits.
func Decode(r io.Reader) (any, error) { return Decoder{}.Decode(r) }

type emptyCursor struct{}

func (emptyCursor) Next(context.Context) (any, error) { return nil, io.EOF }
func (emptyCursor) Close() error                      { return nil }
