package restmap

import (
	"fmt"
	"time"
)

type slot struct {
	state    SlotState
	value    any
	producer Producer
	ref      any
	hasRef   bool
	gen      uint64 // bumped on every SetResolved/SetDeferred
}

// Resource is an instance of a Type. Field values live in per-field slots
// reached through the Type's descriptors. A Resource is not synchronized.
type Resource struct {
	typ   *Type
	slots map[string]*slot
}

// Type returns the resource's type.
func (r *Resource) Type() *Type { return r.typ }

// ID returns the value of the identifier attribute, or nil.
func (r *Resource) ID() any {
	v, _ := r.Lookup(r.typ.IDAttr())
	return v
}

// Lookup returns the current value of a declared field without blocking.
// Deferred fields that are not resolved report their reference if one is known.
func (r *Resource) Lookup(name string) (any, bool) {
	d, ok := r.typ.Field(name)
	if !ok {
		return nil, false
	}
	if p, ok := d.(Peeker); ok {
		return p.Peek(r)
	}
	return nil, false
}

// String renders the type name and identifier, e.g. <shop.Product id=42>.
func (r *Resource) String() string {
	idattr := r.typ.IDAttr()
	return fmt.Sprintf("<%s %s=%s>", r.typ.QualifiedName(), idattr, repr(r.ID()))
}

func (r *Resource) slotFor(name string) *slot {
	s := r.slots[name]
	if s == nil {
		s = &slot{}
		r.slots[name] = s
	}
	return s
}

// Date is a calendar date without time of day or location.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// In returns midnight of the date in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool { return d == Date{} }

func (d Date) String() string { return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day) }
