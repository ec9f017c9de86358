package di

import (
	"fmt"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/goliatone/go-shiftboard/cache"
	"github.com/goliatone/go-shiftboard/internal/config"
	"github.com/goliatone/go-shiftboard/internal/logging"
	"github.com/goliatone/go-shiftboard/recordset"
	"github.com/goliatone/go-shiftboard/rpc"
	"github.com/goliatone/go-shiftboard/transportcache"
)

// Container wires the client stack: rpc transport, optional response cache
// and the recordset session on top. Every component is built once.
type Container struct {
	config    config.Config
	logger    *zap.Logger
	meter     metric.Meter
	base      recordset.Transport
	cached    *transportcache.CachedTransport
	cacheSvc  cache.CacheService
	session   *recordset.Session
	retryBase time.Duration
}

// Option customizes a Container.
type Option func(*Container)

// WithLogger sets the logger shared by every component.
func WithLogger(l *zap.Logger) Option {
	return func(c *Container) { c.logger = l }
}

// WithMeter sets the meter used for collection metrics.
func WithMeter(m metric.Meter) Option {
	return func(c *Container) { c.meter = m }
}

// WithTransport replaces the rpc client with base. Credentials in the
// config are not used then.
func WithTransport(base recordset.Transport) Option {
	return func(c *Container) { c.base = base }
}

// WithRetryBase sets the base delay of the rpc client's retry backoff.
func WithRetryBase(d time.Duration) Option {
	return func(c *Container) { c.retryBase = d }
}

// NewContainer builds the stack described by cfg.
func NewContainer(cfg config.Config, opts ...Option) (*Container, error) {
	c := &Container{config: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}

	if c.base == nil {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		client, err := rpc.New(cfg.URL, rpc.Credentials{
			AccessKeyID:  cfg.AccessKeyID,
			SignatureKey: cfg.SignatureKey,
			Token:        cfg.Token,
		},
			rpc.WithTimeout(cfg.Timeout),
			rpc.WithRetry(cfg.Retries, c.retryBase),
			rpc.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
			rpc.WithLogger(c.logger.Named("rpc")),
		)
		if err != nil {
			return nil, err
		}
		c.base = client
	}

	transport := c.base
	if cfg.Cache.Enabled {
		svc, err := cache.NewCacheService(cfg.Cache.Config)
		if err != nil {
			return nil, err
		}
		c.cacheSvc = svc
		c.cached = transportcache.New(c.base, svc, transportcache.WithLogger(c.logger.Named("cache")))
		transport = c.cached
	}

	sessionOpts := []recordset.SessionOption{
		recordset.WithLogger(c.logger.Named("recordset")),
	}
	if cfg.MaxBatch > 0 {
		sessionOpts = append(sessionOpts, recordset.WithMaxBatch(cfg.MaxBatch))
	}
	if cfg.Batch > 0 {
		sessionOpts = append(sessionOpts, recordset.WithDefaultBatch(cfg.Batch))
	}
	if c.meter != nil {
		sessionOpts = append(sessionOpts, recordset.WithMeter(c.meter))
	}
	c.session = recordset.NewSession(transport, sessionOpts...)
	return c, nil
}

// NewContainerFromFile loads the configuration at path (empty for
// environment only), builds the logger for its environment and the stack.
func NewContainerFromFile(path string, opts ...Option) (*Container, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return NewContainer(*cfg, append([]Option{WithLogger(logger)}, opts...)...)
}

// Session returns the recordset session.
func (c *Container) Session() *recordset.Session {
	return c.session
}

// Transport returns the transport the session calls, cached or not.
func (c *Container) Transport() recordset.Transport {
	if c.cached != nil {
		return c.cached
	}
	return c.base
}

// CachedTransport returns the cache decorator, or nil when the cache is off.
func (c *Container) CachedTransport() *transportcache.CachedTransport {
	return c.cached
}

// CacheService returns the response cache, or nil when the cache is off.
func (c *Container) CacheService() cache.CacheService {
	return c.cacheSvc
}

// Config returns a copy of the configuration used by this container.
func (c *Container) Config() config.Config {
	return c.config
}

// Logger returns the root logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

