package main

import (
	"fmt"
	"io"
	"time"

	"github.com/davecgh/go-spew/spew"

	"github.com/reoring/restmap"
	"github.com/reoring/restmap/source"
)

// render writes r as one JSON object keyed by attribute name. Related
// resources print as their id; collections are left out.
func render(w io.Writer, r *restmap.Resource, dump bool) error {
	out := map[string]any{}
	for _, d := range r.Type().Fields() {
		name := d.Base().Name
		v, ok := r.Lookup(name)
		if !ok {
			continue
		}
		if v, ok = printable(v); ok {
			out[name] = v
		}
	}
	if dump {
		spew.Fdump(w, out)
		return nil
	}
	b, err := source.Marshal(out)
	if err != nil {
		return fmt.Errorf("render %s: %w", r, err)
	}
	_, err = fmt.Fprintf(w, "%s\n", b)
	return err
}

func printable(v any) (any, bool) {
	switch t := v.(type) {
	case *restmap.Resource:
		if t == nil {
			return nil, true
		}
		return t.ID(), true
	case *restmap.Collection[*restmap.Resource]:
		return nil, false
	case time.Time:
		return t.Format(time.RFC3339), true
	case restmap.Date:
		return t.String(), true
	}
	return v, true
}
