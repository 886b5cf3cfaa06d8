// Package restmap maps JSON REST API payloads onto typed, lazily populated
// resources and back.
//
// - Types are declared field by field with Define and resolved by name in a Registry
// - Field values are decoded by Serializers selected per descriptor Class (see codec/ and relation/)
// - A Manager keeps one live instance per (type, id) so repeated fetches share an object
// - Collections and to-one relations fetch on first access through a Transport (see httptransport/)
//
// Design policy:
// - Keep the public core in the root package; put JSON token handling under internal/.
// - Place built-in serializers under codec/, relations under relation/, and the CLI under cmd/restmap.
// - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//	reg := restmap.NewRegistry("shop")
//	product := reg.MustRegister(restmap.Define("Product").
//		Field("id", restmap.Int(restmap.ReadOnly())).
//		Field("name", restmap.String()).
//		Action(restmap.ActionGet, restmap.Meta{"uri": "/products/{id}"}))
//
//	m, err := client.New(httptransport.New("https://api.example.com"))
//	p, err := m.Get(ctx, product, 42, nil)
//	err = m.Save(ctx, p, nil)
package restmap
