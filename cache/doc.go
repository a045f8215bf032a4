// Package cache implements a fail-open cache-aside layer over a pluggable
// key/value Backend.
//
// # Overview
//
// The package exports:
//
//   - Backend: the capability set {Get, Set, Remove, Exists} a store must offer
//   - Service: get-or-load reads, write-through puts and targeted invalidation
//   - Store[T]: a typed handle bound to a value type and a TTL policy
//   - Keyspace: deterministic key derivation of the form <type>:<view>[:<param>]
//   - Serializer: JSON, MessagePack and CBOR payload encodings
//
// # Basic Usage
//
//	svc, err := cache.NewService(backend, cache.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//
//	keys := cache.NewKeyspace("Product")
//	products := cache.NewStore[Product](svc, cache.DefaultConfig().TTL)
//
//	p, hit, err := products.GetOrLoad(ctx, keys.Key("id", id), func(ctx context.Context) (Product, error) {
//		return repo.FindByID(ctx, id)
//	})
//
// After a write commits, remove every view that could contain the record:
//
//	svc.InvalidateMany(ctx, keys.Key("id", id), keys.Key("all"))
//
// # Failure Semantics
//
// The cache is never the source of truth. A backend error during lookup is a
// miss, and an error while storing a loaded value is logged and dropped, so a
// backend outage only costs latency. Loader errors are returned unchanged and
// nothing is cached for them: "not found" is never remembered, which keeps a
// later insert visible immediately.
//
// Invalidation runs on a context detached from cancellation so a request that
// goes away after its write committed still clears the affected views.
//
// # Expiry
//
// TTLPolicy combines a sliding window, extended on every hit, with an absolute
// cap measured from the write. Backends apply the policy; Slide and Deadline
// hold the shared arithmetic.
package cache
