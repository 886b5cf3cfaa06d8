package codec

import "github.com/reoring/restmap"

// PlainSerializer stores raw values of plain fields verbatim.
type PlainSerializer struct{}

// Plain returns the plain serializer.
func Plain() *PlainSerializer { return &PlainSerializer{} }

func (*PlainSerializer) Classes() []*restmap.Class { return []*restmap.Class{restmap.PlainClass} }

func (*PlainSerializer) Load(d restmap.Descriptor, raw any, r *restmap.Resource) error {
	f, ok := d.(valueField)
	if !ok {
		return restmap.NewResourceError(restmap.CodeWrongType, "plain serializer cannot load %T", d)
	}
	f.Set(r, raw)
	return nil
}

func (*PlainSerializer) Dump(d restmap.Descriptor, r *restmap.Resource) (any, error) {
	f, ok := d.(valueField)
	if !ok {
		return nil, restmap.NewResourceError(restmap.CodeWrongType, "plain serializer cannot dump %T", d)
	}
	return f.Get(r), nil
}
