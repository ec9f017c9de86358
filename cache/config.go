package cache

import (
	"time"

	"github.com/goliatone/go-shiftboard/internal/cacheinfra"
)

// Config is the "cache" section of the client configuration. Every field
// maps to one configuration key.
type Config struct {
	// Capacity bounds the number of cached responses.
	Capacity  int `mapstructure:"capacity"`
	NumShards int `mapstructure:"shards"`
	// TTL is how long a response is served before the next read refetches it.
	TTL                time.Duration `mapstructure:"ttl"`
	EvictionPercentage int           `mapstructure:"eviction_percentage"`
	// MissingRecords remembers not-found answers until their TTL runs out.
	MissingRecords   bool          `mapstructure:"missing_records"`
	EvictionInterval time.Duration `mapstructure:"eviction_interval"`
}

// DefaultConfig returns the settings used when the cache is enabled without
// further tuning: one minute TTL, no early refresh, misses remembered.
func DefaultConfig() Config {
	d := cacheinfra.DefaultConfig()
	return Config{
		Capacity:           d.Capacity,
		NumShards:          d.NumShards,
		TTL:                d.TTL,
		EvictionPercentage: d.EvictionPercentage,
		MissingRecords:     d.MissingRecordStorage,
		EvictionInterval:   d.EvictionInterval,
	}
}

// Validate checks the settings against the sturdyc adapter's rules.
func (c Config) Validate() error {
	return c.adapter().Validate()
}

// NewCacheService builds the sturdyc-backed response cache.
func NewCacheService(cfg Config) (CacheService, error) {
	svc, err := cacheinfra.NewSturdycService(cfg.adapter())
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func (c Config) adapter() cacheinfra.Config {
	return cacheinfra.Config{
		Capacity:             c.Capacity,
		NumShards:            c.NumShards,
		TTL:                  c.TTL,
		EvictionPercentage:   c.EvictionPercentage,
		MissingRecordStorage: c.MissingRecords,
		EvictionInterval:     c.EvictionInterval,
	}
}
