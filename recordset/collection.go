package recordset

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"maps"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Collection is a virtual ordered sequence of records of one kind, backed by
// page fetches. Fetched records are kept for the lifetime of the collection;
// there is no eviction, so memory grows with the number of elements read.
//
// The count is fixed by the first page fetched. Later pages may report a
// different count; the collection then bounds reads by the smaller of the two.
//
// A Collection is safe for concurrent use. Concurrent reads that miss the
// same page share one fetch, and a page becomes visible to readers all at
// once together with the count it reported.
type Collection struct {
	id      string
	session *Session
	kind    *Kind
	op      Operation
	filter  Filter
	params  map[string]any
	batch   int
	logger  *zap.Logger

	mu       sync.RWMutex
	cache    map[int]*Record
	count    int
	observed int
	counted  bool
	lastPage PageInfo

	notPresent atomic.Int64
	flights    singleflight.Group
}

// CollectionOption configures a Collection.
type CollectionOption func(*Collection)

// WithFilter sets the selection criteria sent as "select".
func WithFilter(f Filter) CollectionOption {
	return func(c *Collection) { c.filter = maps.Clone(f) }
}

// WithBatch sets the page size.
func WithBatch(n int) CollectionOption {
	return func(c *Collection) {
		if n > 0 {
			c.batch = n
		}
	}
}

// WithOperation selects the list operation, e.g. OpWhosOn.
func WithOperation(op Operation) CollectionOption {
	return func(c *Collection) { c.op = op }
}

// WithParams adds top-level request parameters such as "extended".
func WithParams(p map[string]any) CollectionOption {
	return func(c *Collection) { c.params = maps.Clone(p) }
}

// Collection creates a lazy collection of kind. No request is made until the
// first element or the length is needed.
func (s *Session) Collection(kind string, opts ...CollectionOption) (*Collection, error) {
	k, err := s.registry.Lookup(kind)
	if err != nil {
		return nil, err
	}
	c := &Collection{
		id:      uuid.NewString(),
		session: s,
		kind:    k,
		op:      OpList,
		batch:   k.Batch,
		cache:   make(map[int]*Record),
	}
	if s.batch > 0 {
		c.batch = s.batch
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = s.logger.With(
		zap.String("collection", c.id),
		zap.String("kind", k.Name),
	)
	return c, nil
}

// Kind returns the element kind.
func (c *Collection) Kind() *Kind {
	return c.kind
}

// Filter returns a copy of the selection criteria.
func (c *Collection) Filter() Filter {
	return maps.Clone(c.filter)
}

// Batch returns the page size.
func (c *Collection) Batch() int {
	return c.batch
}

// Stats describes the cache state of a collection.
type Stats struct {
	// Count is the count reported by the first page.
	Count int
	// Observed is the count reported by the most recent page.
	Observed   int
	Counted    bool
	Cached     int
	NotPresent int
	LastPage   PageInfo
}

// Stats reports the cache state without making any request.
func (c *Collection) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Count:      c.count,
		Observed:   c.observed,
		Counted:    c.counted,
		Cached:     len(c.cache),
		NotPresent: int(c.notPresent.Load()),
		LastPage:   c.lastPage,
	}
}

func (c *Collection) String() string {
	st := c.Stats()
	if !st.Counted {
		return fmt.Sprintf("%s list (not fetched)", c.kind.Name)
	}
	return fmt.Sprintf("%s list of %d virtual (%d stored)", c.kind.Name, min(st.Count, st.Observed), st.Cached)
}

// Len returns the element count, fetching the first page if it is not yet
// known. Once a later page reports fewer elements, Len returns that smaller
// value; it never grows past the first count.
func (c *Collection) Len(ctx context.Context) (int, error) {
	if n, ok := c.knownCount(); ok {
		return n, nil
	}
	if err := c.fetchPage(ctx, 0); err != nil {
		return 0, err
	}
	n, _ := c.knownCount()
	return n, nil
}

// Get returns the record at index. It fails with ErrOutOfRange when index is
// outside the known count. When the server delivered fewer rows than its
// count promised, the slot stays empty and Get returns (nil, false, nil).
func (c *Collection) Get(ctx context.Context, index int) (*Record, bool, error) {
	if index < 0 {
		return nil, false, c.rangeErr(index)
	}

	rec, hit, err := c.lookup(index)
	if err != nil {
		return nil, false, err
	}
	if hit {
		c.session.instruments.add(ctx, c.session.instruments.hits, c.kind.Name)
		return rec, true, nil
	}
	c.session.instruments.add(ctx, c.session.instruments.misses, c.kind.Name)

	if err := c.fetchPage(ctx, index); err != nil {
		return nil, false, err
	}

	rec, hit, err = c.lookup(index)
	if err != nil {
		return nil, false, err
	}
	if !hit {
		c.notPresent.Add(1)
		c.session.instruments.add(ctx, c.session.instruments.notPresent, c.kind.Name)
		c.logger.Warn("slot empty after fetch",
			zap.Int("index", index),
			zap.Error(ErrNotPresent),
		)
		return nil, false, nil
	}
	return rec, true, nil
}

// All iterates over positions 0..Len()-1. The bound is re-read on every step,
// so iteration stops cleanly if a later page reports a smaller count. Empty
// slots are skipped. Each call to the returned sequence starts over at 0.
func (c *Collection) All(ctx context.Context) iter.Seq2[*Record, error] {
	return func(yield func(*Record, error) bool) {
		for i := 0; ; i++ {
			n, err := c.Len(ctx)
			if err != nil {
				yield(nil, err)
				return
			}
			if i >= n {
				return
			}
			rec, ok, err := c.Get(ctx, i)
			if errors.Is(err, ErrOutOfRange) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !ok {
				continue
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// Records materialises the whole collection.
func (c *Collection) Records(ctx context.Context) ([]*Record, error) {
	var out []*Record
	for rec, err := range c.All(ctx) {
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Slice returns the records at positions [start, end), clamped to the count.
func (c *Collection) Slice(ctx context.Context, start, end int) ([]*Record, error) {
	if start < 0 || end < start {
		return nil, fmt.Errorf("slice [%d:%d]: %w", start, end, ErrOutOfRange)
	}
	out := make([]*Record, 0, end-start)
	for i := start; i < end; i++ {
		rec, ok, err := c.Get(ctx, i)
		if errors.Is(err, ErrOutOfRange) {
			break
		}
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (c *Collection) knownCount() (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.boundLocked(), c.counted
}

func (c *Collection) boundLocked() int {
	return min(c.count, c.observed)
}

func (c *Collection) lookup(index int) (*Record, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.counted && index >= c.boundLocked() {
		return nil, false, c.rangeErrLocked(index)
	}
	rec, ok := c.cache[index]
	return rec, ok, nil
}

func (c *Collection) rangeErr(index int) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rangeErrLocked(index)
}

func (c *Collection) rangeErrLocked(index int) error {
	if !c.counted {
		return fmt.Errorf("%s[%d]: %w", c.kind.Name, index, ErrOutOfRange)
	}
	return fmt.Errorf("%s[%d] of %d: %w", c.kind.Name, index, c.boundLocked(), ErrOutOfRange)
}

// fetchPage loads the page holding index. Pages are aligned to the batch so
// that concurrent misses inside one page share a single in-flight call.
//
// The shared call does not inherit the cancellation of whichever caller
// started it: a caller whose ctx ends stops waiting and gets ctx.Err(), while
// the fetch completes for the remaining waiters.
func (c *Collection) fetchPage(ctx context.Context, index int) error {
	start := index - index%c.batch
	shared := context.WithoutCancel(ctx)
	ch := c.flights.DoChan(strconv.Itoa(start), func() (any, error) {
		if c.cached(index) {
			return nil, nil
		}
		return nil, c.loadPage(shared, start)
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

func (c *Collection) cached(index int) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.cache[index]
	return c.counted && ok
}

func (c *Collection) loadPage(ctx context.Context, start int) error {
	req := Request{
		Kind:      c.kind.Wire,
		Operation: c.op,
		Filter:    maps.Clone(c.filter),
		Page:      &PageSpec{Start: start + 1, Batch: c.batch},
		Params:    maps.Clone(c.params),
	}

	c.session.instruments.add(ctx, c.session.instruments.pageFetches, c.kind.Name)
	resp, err := c.session.call(ctx, req)
	if err != nil {
		c.logger.Debug("page fetch failed", zap.Int("start", start), zap.Error(err))
		return err
	}

	p, err := decodePage(resp, c.kind.Plural)
	if err != nil {
		return fmt.Errorf("%s: %w", req.Method(), err)
	}

	offset := start
	if p.Info.This.Start > 0 {
		offset = p.Info.This.Start - 1
	}

	// Build and hydrate the page before publishing it.
	records := make([]*Record, len(p.rows))
	for i, row := range p.rows {
		records[i] = c.session.newRecord(c.kind, row)
	}
	if len(p.Referenced) > 0 {
		bundle := NewReferenceBundle(p.Referenced)
		for _, rec := range records {
			rec.DenormalizeInline(bundle)
		}
	}

	c.mu.Lock()
	if !c.counted {
		c.count = p.Count
		c.counted = true
	} else if c.observed != p.Count {
		c.logger.Info("count changed between pages",
			zap.Int("first", c.count),
			zap.Int("was", c.observed),
			zap.Int("now", p.Count),
		)
	}
	c.observed = p.Count
	c.lastPage = p.Info
	for i, rec := range records {
		if offset+i >= c.count {
			break
		}
		if _, ok := c.cache[offset+i]; !ok {
			c.cache[offset+i] = rec
		}
	}
	c.mu.Unlock()

	c.logger.Debug("page fetched",
		zap.Int("start", offset),
		zap.Int("rows", len(records)),
		zap.Int("count", p.Count),
	)
	return nil
}
