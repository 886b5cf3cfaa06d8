package engine

import (
	"io"
	"strconv"
	"strings"
)

// DuplicatePolicy controls how repeated object keys are handled.
type DuplicatePolicy int

const (
	// DupIgnore keeps the last value.
	DupIgnore DuplicatePolicy = iota
	// DupError fails on the first repeated key.
	DupError
)

// Limits bounds what a response body may contain. Zero values disable a check.
type Limits struct {
	MaxDepth   int
	MaxBytes   int64
	Duplicates DuplicatePolicy
}

// Violation codes.
const (
	CodeMaxDepth     = "max_depth"
	CodeMaxBytes     = "max_bytes"
	CodeDuplicateKey = "duplicate_key"
)

// ViolationError reports input rejected by a limit, with the JSON Pointer of
// the offending location.
type ViolationError struct {
	Code    string
	Path    string
	Message string
}

func (e *ViolationError) Error() string { return e.Message + " at " + e.Path }

type containerKind int

const (
	kindObject containerKind = iota
	kindArray
)

type frame struct {
	kind      containerKind
	keys      map[string]struct{}
	path      string
	nextIndex int
	key       string
}

// Enforce wraps inner so that every token is checked against the depth and
// duplicate-key limits. Byte limits are applied to the reader by LimitReader.
func Enforce(inner TokenSource, lim Limits) TokenSource {
	if lim.MaxDepth <= 0 && lim.Duplicates == DupIgnore {
		return inner
	}
	return &enforcer{inner: inner, lim: lim}
}

type enforcer struct {
	inner TokenSource
	lim   Limits
	stack []frame
}

func (e *enforcer) NextToken() (Token, error) {
	tok, err := e.inner.NextToken()
	if err != nil {
		return Token{}, err
	}
	path := e.pathFor(tok)

	switch tok.Kind {
	case KindBeginObject, KindBeginArray:
		f := frame{kind: kindArray, path: path}
		if tok.Kind == KindBeginObject {
			f.kind = kindObject
			f.keys = map[string]struct{}{}
		}
		e.stack = append(e.stack, f)
		if e.lim.MaxDepth > 0 && len(e.stack) > e.lim.MaxDepth {
			return Token{}, e.violation(CodeMaxDepth, path, "max depth exceeded")
		}
	case KindEndObject, KindEndArray:
		if n := len(e.stack); n > 0 {
			e.stack = e.stack[:n-1]
		}
	case KindKey:
		if n := len(e.stack); n > 0 && e.stack[n-1].kind == kindObject {
			top := &e.stack[n-1]
			if _, dup := top.keys[tok.String]; dup && e.lim.Duplicates == DupError {
				return Token{}, e.violation(CodeDuplicateKey, path, "key '"+tok.String+"' duplicated")
			}
			top.keys[tok.String] = struct{}{}
		}
	}
	return tok, nil
}

func (e *enforcer) violation(code, path, msg string) error {
	if path == "" {
		path = "/"
	}
	return &ViolationError{Code: code, Path: path, Message: msg}
}

// pathFor returns the JSON Pointer of the value tok belongs to.
func (e *enforcer) pathFor(tok Token) string {
	n := len(e.stack)
	if n == 0 {
		return ""
	}
	top := &e.stack[n-1]
	switch tok.Kind {
	case KindKey:
		top.key = tok.String
		return joinPointer(top.path, tok.String)
	case KindEndObject, KindEndArray:
		return top.path
	}
	if top.kind == kindArray {
		p := joinPointer(top.path, strconv.Itoa(top.nextIndex))
		top.nextIndex++
		return p
	}
	return joinPointer(top.path, top.key)
}

func (e *enforcer) Location() int64 { return e.inner.Location() }

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

func joinPointer(base, token string) string {
	return base + "/" + pointerEscaper.Replace(token)
}

// ByteLimiter is a reader that fails with a max_bytes violation once more
// than its limit has been read. Drivers may wrap the error, so callers check
// Exceeded after a failure.
type ByteLimiter struct {
	r    io.Reader
	left int64
	hit  bool
}

// LimitReader bounds r to n bytes. n <= 0 disables the bound.
func LimitReader(r io.Reader, n int64) *ByteLimiter {
	if n <= 0 {
		n = -1
	}
	return &ByteLimiter{r: r, left: n}
}

// Exceeded reports whether the limit was crossed.
func (l *ByteLimiter) Exceeded() bool { return l.hit }

// Violation returns the error for a crossed limit.
func (l *ByteLimiter) Violation() error {
	return &ViolationError{Code: CodeMaxBytes, Path: "/", Message: "max bytes exceeded"}
}

func (l *ByteLimiter) Read(p []byte) (int, error) {
	if l.left < 0 {
		return l.r.Read(p)
	}
	if l.hit {
		return 0, l.Violation()
	}
	if int64(len(p)) > l.left+1 {
		p = p[:l.left+1]
	}
	n, err := l.r.Read(p)
	if int64(n) > l.left {
		l.hit = true
		return n, l.Violation()
	}
	l.left -= int64(n)
	return n, err
}
