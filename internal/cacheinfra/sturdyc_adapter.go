package cacheinfra

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/viccon/sturdyc"

	"github.com/goliatone/go-shiftboard/recordset"
)

// Config holds the configuration for the sturdyc cache adapter.
type Config struct {
	// Capacity defines the maximum number of responses the cache can store.
	Capacity int

	// NumShards determines the number of cache shards for concurrent access.
	// Default: 256
	NumShards int

	// TTL is the time-to-live of a cached response.
	TTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches its capacity. Must be between 1-100.
	EvictionPercentage int

	// EarlyRefresh configures early refresh behavior for cached entries.
	// If nil, early refresh is disabled.
	EarlyRefresh *EarlyRefreshConfig

	// MissingRecordStorage makes the cache remember calls that failed with
	// recordset.ErrNotFound, so a missing record is not asked for again
	// until its entry expires.
	MissingRecordStorage bool

	// EvictionInterval sets how often the cache checks for expired entries.
	// Zero value uses the default interval.
	EvictionInterval time.Duration
}

// EarlyRefreshConfig configures early refresh behavior.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration
	MaxAsyncRefreshTime time.Duration
	SyncRefreshTime     time.Duration
	RetryBaseDelay      time.Duration
}

// DefaultConfig returns the settings used when the transport cache is enabled
// without further tuning. Early refresh is off: a page is re-read only after
// its TTL.
func DefaultConfig() Config {
	return Config{
		Capacity:             10000,
		NumShards:            256,
		TTL:                  time.Minute,
		EvictionPercentage:   10,
		MissingRecordStorage: true,
	}
}

// ToSturdycOptions converts the optional settings to sturdyc options.
// Capacity, NumShards, TTL and EvictionPercentage go to sturdyc.New directly.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EarlyRefresh != nil {
		options = append(options, sturdyc.WithEarlyRefreshes(
			c.EarlyRefresh.MinAsyncRefreshTime,
			c.EarlyRefresh.MaxAsyncRefreshTime,
			c.EarlyRefresh.SyncRefreshTime,
			c.EarlyRefresh.RetryBaseDelay,
		))
	}
	if c.MissingRecordStorage {
		options = append(options, sturdyc.WithMissingRecordStorage())
	}
	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}
	return options
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Capacity, validation.Required, validation.Min(1)),
		validation.Field(&c.NumShards, validation.Required, validation.Min(1)),
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.EvictionPercentage, validation.Required, validation.Min(1), validation.Max(100)),
		validation.Field(&c.EarlyRefresh),
	)
}

// Validate checks that no refresh duration is negative.
func (e EarlyRefreshConfig) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.MinAsyncRefreshTime, validation.Min(time.Duration(0))),
		validation.Field(&e.MaxAsyncRefreshTime, validation.Min(e.MinAsyncRefreshTime)),
		validation.Field(&e.SyncRefreshTime, validation.Min(time.Duration(0))),
		validation.Field(&e.RetryBaseDelay, validation.Min(time.Duration(0))),
	)
}

// SturdycService caches transport responses in a sturdyc client.
type SturdycService struct {
	client *sturdyc.Client[recordset.Response]
}

// NewSturdycService validates cfg and builds the sturdyc client.
func NewSturdycService(cfg Config) (*SturdycService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("cache config: %w", err)
	}

	client := sturdyc.New[recordset.Response](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)
	return &SturdycService{client: client}, nil
}

// GetOrFetch returns the cached response for key, calling fetchFn on a miss.
// Concurrent misses for one key share a single fetchFn call. The returned
// map is a copy; callers may modify it.
func (s *SturdycService) GetOrFetch(ctx context.Context, key string, fetchFn func(context.Context) (recordset.Response, error)) (recordset.Response, error) {
	if fetchFn == nil {
		return nil, errors.New("cacheinfra: nil fetch function")
	}

	var cause error
	resp, err := s.client.GetOrFetch(ctx, key, func(ctx context.Context) (recordset.Response, error) {
		resp, err := fetchFn(ctx)
		if errors.Is(err, recordset.ErrNotFound) {
			cause = err
			return nil, sturdyc.ErrNotFound
		}
		return resp, err
	})

	switch {
	case errors.Is(err, sturdyc.ErrNotFound), errors.Is(err, sturdyc.ErrMissingRecord):
		if cause != nil {
			return nil, cause
		}
		return nil, &MissingError{Key: key}
	case err != nil:
		return nil, err
	}
	return maps.Clone(resp), nil
}

// Delete removes a single entry.
func (s *SturdycService) Delete(ctx context.Context, key string) error {
	s.client.Delete(key)
	return nil
}

// DeleteByPrefix removes every entry whose key starts with prefix.
func (s *SturdycService) DeleteByPrefix(ctx context.Context, prefix string) error {
	for _, key := range s.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			s.client.Delete(key)
		}
	}
	return nil
}

// InvalidateKeys removes the given entries.
func (s *SturdycService) InvalidateKeys(ctx context.Context, keys []string) error {
	for _, key := range keys {
		s.client.Delete(key)
	}
	return nil
}

// Keys lists the keys currently held.
func (s *SturdycService) Keys() []string {
	return s.client.ScanKeys()
}

// MissingError is returned for a key remembered as missing by an earlier call.
type MissingError struct {
	Key string
}

func (e *MissingError) Error() string {
	return "cached miss for " + e.Key
}

// Is lets errors.Is(err, recordset.ErrNotFound) hold for cached misses.
func (e *MissingError) Is(target error) bool {
	return target == recordset.ErrNotFound
}
