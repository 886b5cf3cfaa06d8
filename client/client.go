// Package client assembles a restmap.Manager with the built-in serializers.
package client

import (
	"github.com/rs/zerolog"

	"github.com/reoring/restmap"
	"github.com/reoring/restmap/codec"
	"github.com/reoring/restmap/relation"
)

type options struct {
	dateFormat     string
	dateTimeFormat string
	serializers    []restmap.Serializer
	log            zerolog.Logger
}

// Option configures New.
type Option func(*options)

// WithDateFormats sets the strftime formats of date and datetime fields.
// Empty strings keep the defaults.
func WithDateFormats(date, datetime string) Option {
	return func(o *options) { o.dateFormat, o.dateTimeFormat = date, datetime }
}

// WithSerializers registers additional serializers after the built-in ones,
// overriding them for the classes they share.
func WithSerializers(s ...restmap.Serializer) Option {
	return func(o *options) { o.serializers = append(o.serializers, s...) }
}

// WithLogger sets the manager logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = l }
}

// New returns a Manager over t with scalar, date/time, plain and relation
// serializers registered.
func New(t restmap.Transport, opts ...Option) (*restmap.Manager, error) {
	o := options{log: zerolog.Nop()}
	for _, fn := range opts {
		fn(&o)
	}
	dt, err := codec.DateTime(o.dateFormat, o.dateTimeFormat)
	if err != nil {
		return nil, err
	}
	h := restmap.NewHydrator()
	m := restmap.NewManager(t, h, restmap.WithLogger(o.log))
	manager := func() *restmap.Manager { return m }

	for _, s := range []restmap.Serializer{
		codec.Scalar(),
		dt,
		codec.Plain(),
		relation.NewOneToManySerializer(manager),
		relation.NewManyToOneSerializer(manager),
	} {
		h.AddSerializer(s)
	}
	for _, s := range o.serializers {
		h.AddSerializer(s)
	}
	return m, nil
}

// MustNew is like New but panics on error.
func MustNew(t restmap.Transport, opts ...Option) *restmap.Manager {
	m, err := New(t, opts...)
	if err != nil {
		panic(err)
	}
	return m
}
