package cache

import (
	"context"

	"github.com/goliatone/go-shiftboard/recordset"
)

// KeySerializer builds a cache key from a transport request.
// It is responsible for producing stable keys across calls.
type KeySerializer interface {
	SerializeKey(req recordset.Request) string
}

// FetchFn is the call a CacheService makes on a miss.
type FetchFn = func(ctx context.Context) (recordset.Response, error)

// CacheService exposes the read-through operations the transport cache needs.
// It is exported so that callers can plug in an alternate backend.
type CacheService interface {
	GetOrFetch(ctx context.Context, key string, fetchFn FetchFn) (recordset.Response, error)
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
	InvalidateKeys(ctx context.Context, keys []string) error
}
