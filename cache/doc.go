// Package cache provides the contracts of the transport response cache.
//
// # Overview
//
// This package exports two interfaces and their default implementations:
//
//   - CacheService: read-through caching of transport responses
//   - KeySerializer: builds stable cache keys from transport requests
//
// The transportcache package combines both to decorate a recordset.Transport.
//
// # Keys
//
// The default serializer writes "kind::operation::args", where args is the
// JSON encoding of the request's filter, page and params:
//
//	serializer := cache.NewDefaultKeySerializer()
//	key := serializer.SerializeKey(recordset.Request{
//		Kind:      "shift",
//		Operation: recordset.OpList,
//		Filter:    recordset.Filter{"workgroup": "226084"},
//		Page:      &recordset.PageSpec{Start: 1, Batch: 25},
//	})
//	// shift::list::{"f":{"workgroup":"226084"},"p":{"start":1,"batch":25}}
//
// Map keys are sorted, so the key does not depend on map iteration order.
// Keys longer than DefaultMaxKeyLength keep their "kind::operation" prefix
// and replace the args with an xxhash digest, which keeps prefix
// invalidation by kind working for large filters.
//
// # Backend
//
// NewCacheService returns the sturdyc-backed implementation. Concurrent
// misses for one key share one fetch, and with MissingRecords a call
// that failed with recordset.ErrNotFound is remembered until it expires.
package cache
