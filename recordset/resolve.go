package recordset

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ResolveOption configures ResolveReferences.
type ResolveOption func(*resolveOptions)

type resolveOptions struct {
	field     string
	selectKey string
}

// Field names the field holding the foreign key. Defaults to the target kind.
func Field(name string) ResolveOption {
	return func(o *resolveOptions) { o.field = name }
}

// SelectKey names the filter key used to select targets by id. Defaults to
// the target kind.
func SelectKey(name string) ResolveOption {
	return func(o *resolveOptions) { o.selectKey = name }
}

// DistinctValues materialises the whole collection and returns the distinct
// values of field in first-seen order. For partial references (a Record or a
// map with "id") the id is collected. Empty values are ignored.
func (c *Collection) DistinctValues(ctx context.Context, field string) ([]any, error) {
	var set idSet
	for rec, err := range c.All(ctx) {
		if err != nil {
			return nil, err
		}
		v, _ := rec.Get(field)
		if id, ok := referenceID(v); ok {
			set.add(id)
		}
	}
	return set.values, nil
}

// ResolveReferences replaces foreign keys in field with hydrated records of
// the target kind, fetched in one batched request across the whole
// collection.
//
// Values that already hold a *Record are left alone, so running it twice, or
// after a page supplied the references inline, makes no extra request. Ids
// the target fetch did not return are set to nil rather than left raw.
//
// The collection is scanned in full before anything is rewritten, and the
// rewrite runs under the collection's write lock. Callers that already hold
// a *Record from the collection may observe its field change at any point
// during the rewrite.
func (c *Collection) ResolveReferences(ctx context.Context, target string, opts ...ResolveOption) error {
	k, err := c.session.registry.Lookup(target)
	if err != nil {
		return err
	}
	o := resolveOptions{field: k.Wire, selectKey: k.Wire}
	for _, opt := range opts {
		opt(&o)
	}

	var records []*Record
	var pending idSet
	for rec, err := range c.All(ctx) {
		if err != nil {
			return err
		}
		records = append(records, rec)
		v, ok := rec.Get(o.field)
		if !ok {
			continue
		}
		if _, hydrated := v.(*Record); hydrated {
			continue
		}
		if id, ok := referenceID(v); ok {
			pending.add(id)
		}
	}
	if len(pending.values) == 0 {
		return nil
	}

	index, err := c.bulkIndex(ctx, k, o.selectKey, pending.values)
	if err != nil {
		return fmt.Errorf("resolve %s.%s: %w", c.kind.Name, o.field, err)
	}

	type assignment struct {
		rec   *Record
		value any
	}
	var plan []assignment
	dangling := 0
	for _, rec := range records {
		v, ok := rec.Get(o.field)
		if !ok {
			continue
		}
		if _, hydrated := v.(*Record); hydrated {
			continue
		}
		id, ok := referenceID(v)
		if !ok {
			continue
		}
		if found, ok := index[keyString(id)]; ok {
			plan = append(plan, assignment{rec, found})
			continue
		}
		dangling++
		plan = append(plan, assignment{rec, nil})
	}

	c.mu.Lock()
	for _, a := range plan {
		a.rec.Set(o.field, a.value)
	}
	c.mu.Unlock()

	if dangling > 0 {
		c.logger.Warn("dangling references cleared",
			zap.String("field", o.field),
			zap.String("target", k.Name),
			zap.Int("count", dangling),
		)
	}
	return nil
}

// bulkIndex fetches every target whose selectKey is in ids and indexes the
// result by id.
func (c *Collection) bulkIndex(ctx context.Context, k *Kind, selectKey string, ids []any) (map[string]*Record, error) {
	targets, err := c.session.Collection(k.Name,
		WithFilter(Filter{selectKey: ids}),
		WithBatch(c.session.maxBatch),
	)
	if err != nil {
		return nil, err
	}
	index := make(map[string]*Record, len(ids))
	for rec, err := range targets.All(ctx) {
		if err != nil {
			return nil, err
		}
		index[keyString(rec.ID())] = rec
	}
	return index, nil
}

// idSet is an insertion-ordered set keyed by the normalised id.
type idSet struct {
	seen   map[string]struct{}
	values []any
}

func (s *idSet) add(v any) {
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	k := keyString(v)
	if _, ok := s.seen[k]; ok {
		return
	}
	s.seen[k] = struct{}{}
	s.values = append(s.values, v)
}
