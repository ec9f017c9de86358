package transportcache

import (
	"context"
	"slices"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"

	"github.com/goliatone/go-shiftboard/cache"
	"github.com/goliatone/go-shiftboard/recordset"
)

var _ recordset.Transport = (*CachedTransport)(nil)

// DefaultReadOperations are the operations whose responses are cached.
// Anything else is treated as a write.
var DefaultReadOperations = []recordset.Operation{
	recordset.OpList,
	recordset.OpGet,
	recordset.OpWhosOn,
	recordset.OpStatus,
	recordset.OpSelf,
	recordset.OpGetImage,
	recordset.OpListMemberships,
	recordset.OpGetOfferedTrade,
}

// CachedTransport decorates a Transport with a read-through response cache.
// Reads are served from the cache; a successful write drops every cached
// response of the written kind.
type CachedTransport struct {
	base          recordset.Transport
	cache         cache.CacheService
	keySerializer cache.KeySerializer
	reads         map[recordset.Operation]struct{}
	keyRegistry   *xsync.MapOf[string, []string] // key -> tags
	logger        *zap.Logger
}

// Option configures a CachedTransport.
type Option func(*CachedTransport)

// WithKeySerializer replaces the default key serializer.
func WithKeySerializer(s cache.KeySerializer) Option {
	return func(c *CachedTransport) { c.keySerializer = s }
}

// WithReadOperations replaces DefaultReadOperations.
func WithReadOperations(ops ...recordset.Operation) Option {
	return func(c *CachedTransport) {
		c.reads = make(map[recordset.Operation]struct{}, len(ops))
		for _, op := range ops {
			c.reads[op] = struct{}{}
		}
	}
}

// WithLogger sets the logger used for invalidation events.
func WithLogger(l *zap.Logger) Option {
	return func(c *CachedTransport) { c.logger = l }
}

// New wraps base with cacheService.
func New(base recordset.Transport, cacheService cache.CacheService, opts ...Option) *CachedTransport {
	c := &CachedTransport{
		base:          base,
		cache:         cacheService,
		keySerializer: cache.NewDefaultKeySerializer(),
		keyRegistry:   xsync.NewMapOf[string, []string](),
		logger:        zap.NewNop(),
	}
	WithReadOperations(DefaultReadOperations...)(c)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call implements recordset.Transport.
func (c *CachedTransport) Call(ctx context.Context, req recordset.Request) (recordset.Response, error) {
	if !c.isRead(req.Operation) {
		resp, err := c.base.Call(ctx, req)
		if err == nil {
			c.invalidateAfterWrite(ctx, req)
		}
		return resp, err
	}
	if bypassed(ctx) {
		return c.base.Call(ctx, req)
	}

	key := c.keySerializer.SerializeKey(req)
	c.trackKey(key, cacheTagsFromContext(ctx))
	return c.cache.GetOrFetch(ctx, key, func(ctx context.Context) (recordset.Response, error) {
		return c.base.Call(ctx, req)
	})
}

// InvalidateKind drops every cached response of kind.
func (c *CachedTransport) InvalidateKind(ctx context.Context, kind string) error {
	prefix := cache.KindPrefix(kind)
	c.keyRegistry.Range(func(key string, _ []string) bool {
		if strings.HasPrefix(key, prefix) {
			c.keyRegistry.Delete(key)
		}
		return true
	})
	return c.cache.DeleteByPrefix(ctx, prefix)
}

// InvalidateTag drops every cached response created under tag.
func (c *CachedTransport) InvalidateTag(ctx context.Context, tag string) error {
	var keys []string
	c.keyRegistry.Range(func(key string, tags []string) bool {
		if slices.Contains(tags, tag) {
			keys = append(keys, key)
		}
		return true
	})
	if len(keys) == 0 {
		return nil
	}
	for _, key := range keys {
		c.keyRegistry.Delete(key)
	}
	return c.cache.InvalidateKeys(ctx, keys)
}

// TrackedKeys returns the number of keys handed out since the last
// invalidation that covered them.
func (c *CachedTransport) TrackedKeys() int {
	return c.keyRegistry.Size()
}

func (c *CachedTransport) isRead(op recordset.Operation) bool {
	_, ok := c.reads[op]
	return ok
}

// trackKey registers a cache key and merges its tags.
func (c *CachedTransport) trackKey(key string, tags []string) {
	c.keyRegistry.Compute(key, func(old []string, loaded bool) ([]string, bool) {
		if len(tags) == 0 {
			if old == nil {
				old = []string{}
			}
			return old, false
		}
		return dedupeStrings(append(slices.Clone(old), tags...)), false
	})
}

func (c *CachedTransport) invalidateAfterWrite(ctx context.Context, req recordset.Request) {
	if err := c.InvalidateKind(ctx, req.Kind); err != nil {
		c.logger.Warn("cache invalidation failed",
			zap.String("method", req.Method()),
			zap.Error(err),
		)
		return
	}
	c.logger.Debug("cache invalidated", zap.String("method", req.Method()), zap.String("kind", req.Kind))
}
