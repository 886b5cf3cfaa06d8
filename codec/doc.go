// Package codec provides the built-in field serializers: scalars
// (string, int, float, bool and untyped), calendar dates and timestamps
// formatted with strftime-style patterns, and verbatim plain values.
//
// Register them on a restmap.Hydrator:
//
//	h := restmap.NewHydrator(codec.Scalar(), codec.MustDateTime("", ""), codec.Plain())
package codec
