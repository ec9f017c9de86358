// Package config loads client settings from the environment and an optional
// config file.
package config

import (
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/goliatone/go-shiftboard/cache"
	"github.com/goliatone/go-shiftboard/recordset"
	"github.com/goliatone/go-shiftboard/rpc"
)

const (
	DefaultEnvPrefix = "SHIFTBOARD"

	DefaultEnv       = "production"
	DefaultTimeout   = 30 * time.Second
	DefaultRetries   = 3
	DefaultRateLimit = 10.0
	DefaultRateBurst = 10
)

type Config struct {
	Env          string        `mapstructure:"env"`
	URL          string        `mapstructure:"url"`
	AccessKeyID  string        `mapstructure:"access_key_id"`
	SignatureKey string        `mapstructure:"signature_key"`
	Token        string        `mapstructure:"token"`
	Batch        int           `mapstructure:"batch"`
	MaxBatch     int           `mapstructure:"max_batch"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Retries      int           `mapstructure:"retries"`
	RateLimit    float64       `mapstructure:"rate_limit"`
	RateBurst    int           `mapstructure:"rate_burst"`
	Cache        CacheConfig   `mapstructure:"cache"`
}

// CacheConfig turns the transport response cache on and tunes it.
type CacheConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	cache.Config `mapstructure:",squash"`
}

// Validate checks the cache settings only when the cache is enabled.
func (c CacheConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return c.Config.Validate()
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Env:       DefaultEnv,
		URL:       rpc.DefaultURL,
		Batch:     recordset.DefaultBatch,
		MaxBatch:  recordset.DefaultMaxBatch,
		Timeout:   DefaultTimeout,
		Retries:   DefaultRetries,
		RateLimit: DefaultRateLimit,
		RateBurst: DefaultRateBurst,
		Cache:     CacheConfig{Config: cache.DefaultConfig()},
	}
}

// Load reads the configuration. Values come from, in order of precedence,
// SHIFTBOARD_* environment variables, the file at path when path is not
// empty, and Default. Nested keys use "_" in the environment:
// SHIFTBOARD_CACHE_ENABLED sets cache.enabled.
func Load(path string) (*Config, error) {
	v := viper.NewWithOptions(
		viper.KeyDelimiter("."),
		viper.EnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_")),
	)
	v.SetEnvPrefix(DefaultEnvPrefix)
	v.AutomaticEnv()
	setDefaults(v, Default())

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	decodeHooks := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)

	cfg := &Config{}
	if err := v.Unmarshal(cfg, viper.DecodeHook(decodeHooks)); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can find it.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("env", d.Env)
	v.SetDefault("url", d.URL)
	v.SetDefault("access_key_id", "")
	v.SetDefault("signature_key", "")
	v.SetDefault("token", "")
	v.SetDefault("batch", d.Batch)
	v.SetDefault("max_batch", d.MaxBatch)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("retries", d.Retries)
	v.SetDefault("rate_limit", d.RateLimit)
	v.SetDefault("rate_burst", d.RateBurst)

	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.capacity", d.Cache.Capacity)
	v.SetDefault("cache.shards", d.Cache.NumShards)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.eviction_percentage", d.Cache.EvictionPercentage)
	v.SetDefault("cache.missing_records", d.Cache.MissingRecords)
	v.SetDefault("cache.eviction_interval", d.Cache.EvictionInterval)
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Env, validation.In("production", "development", "test")),
		validation.Field(&c.URL, validation.Required, is.URL),
		validation.Field(&c.AccessKeyID, validation.Required),
		validation.Field(&c.SignatureKey, validation.Required),
		validation.Field(&c.Batch, validation.Required, validation.Min(1), validation.Max(c.MaxBatch)),
		validation.Field(&c.MaxBatch, validation.Required, validation.Min(1)),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.Retries, validation.Min(0), validation.Max(10)),
		validation.Field(&c.RateLimit, validation.Min(0.0)),
		validation.Field(&c.RateBurst, validation.Min(0)),
		validation.Field(&c.Cache),
	)
}
