// Package transportcache provides a caching decorator for recordset.Transport.
//
// # Overview
//
// CachedTransport wraps a transport and answers read operations from a
// cache.CacheService. Write operations pass through and, when they succeed,
// invalidate every cached response of the written kind.
//
// # Basic Usage
//
//	svc, err := cache.NewCacheService(cache.DefaultConfig())
//	cached := transportcache.New(rpcClient, svc)
//	session := recordset.NewSession(cached)
//
// # Cached vs Pass-through Operations
//
// Cached by default: list, get, whosOn, status, self, getImage,
// listMemberships. Everything else (delete) goes straight to the wrapped
// transport. WithReadOperations changes the set.
//
// Calls made with a context from WithoutCache bypass the cache for reads.
//
// # Caching Behavior
//
//  1. Serialize the request into a key ("kind::operation::args")
//  2. On a hit, return a copy of the cached response
//  3. On a miss, call the wrapped transport and store the response
//
// Errors are never cached, except not-found results when the backend runs
// with MissingRecords.
//
// # Invalidation
//
// Keys are tracked in a concurrent registry together with the tags of the
// context they were created under:
//
//	ctx = transportcache.WithCacheTags(ctx, "dashboard")
//	shifts, _ := session.Collection("shift")
//	shifts.Len(ctx)
//	...
//	cached.InvalidateTag(ctx, "dashboard")
//
// InvalidateKind drops every response of one kind. Collections keep the
// records they already hold; invalidation only affects later page fetches.
package transportcache
