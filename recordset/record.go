package recordset

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/cast"
)

// Key identifies a record: two records with the same Key are interchangeable
// regardless of which fields each has populated.
type Key struct {
	Kind string
	ID   string
}

func (k Key) String() string {
	return k.Kind + "#" + k.ID
}

// Record is a single entity: a sparse field map with identity and
// on-demand full load. Field values are scalars, nested maps, or other
// Records once hydrated.
type Record struct {
	kind    *Kind
	session *Session

	mu     sync.RWMutex
	fields map[string]any
	loaded bool

	loadMu sync.Mutex
}

func newRecord(s *Session, kind *Kind, seed map[string]any) *Record {
	fields := maps.Clone(seed)
	if fields == nil {
		fields = make(map[string]any)
	}
	return &Record{kind: kind, session: s, fields: fields}
}

// Kind returns the record's kind descriptor.
func (r *Record) Kind() *Kind {
	return r.kind
}

// ID returns the raw "id" field.
func (r *Record) ID() any {
	v, _ := r.Get("id")
	return v
}

// Key returns the identity of the record.
func (r *Record) Key() Key {
	return Key{Kind: r.kind.Wire, ID: keyString(r.ID())}
}

// Hash is a stable hash of Key.
func (r *Record) Hash() uint64 {
	k := r.Key()
	d := xxhash.New()
	d.WriteString(k.Kind)
	d.WriteString("\x00")
	d.WriteString(k.ID)
	return d.Sum64()
}

// Equal compares records by kind and id only.
func (r *Record) Equal(other *Record) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.Key() == other.Key()
}

func (r *Record) String() string {
	return r.Key().String()
}

// Get returns a field value. It never triggers a fetch.
func (r *Record) Get(key string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.fields[key]
	return v, ok
}

// Has reports whether the field is present, even if its value is nil.
func (r *Record) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// Set assigns a field value.
func (r *Record) Set(key string, value any) {
	r.mu.Lock()
	r.fields[key] = value
	r.mu.Unlock()
}

// Fields returns a shallow copy of the field map.
func (r *Record) Fields() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.fields)
}

// Loaded reports whether Load has completed successfully.
func (r *Record) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// Load fetches the full representation and merges it into the field map
// without overwriting fields that are already present. Once loaded, Load is
// a no-op. Concurrent calls share one fetch.
func (r *Record) Load(ctx context.Context) error {
	if r.Loaded() {
		return nil
	}

	r.loadMu.Lock()
	defer r.loadMu.Unlock()
	if r.Loaded() {
		return nil
	}

	if r.session == nil {
		return fmt.Errorf("load %s: record is not attached to a session", r)
	}
	data, err := r.session.fetchRecord(ctx, r.kind, r.ID())
	if err != nil {
		return err
	}

	r.merge(data)
	return nil
}

// merge fills in missing keys and marks the record loaded. Seed data wins.
func (r *Record) merge(data map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range data {
		if _, ok := r.fields[k]; !ok {
			r.fields[k] = v
		}
	}
	r.loaded = true
}

// DenormalizeInline replaces raw foreign keys listed in the kind's InlineRefs
// with the matching entries of bundle. Fields without a bundle entry are left
// as they are for later bulk resolution.
func (r *Record) DenormalizeInline(bundle ReferenceBundle) {
	for _, ref := range r.kind.InlineRefs {
		if !bundle.Has(ref.Kind) {
			continue
		}
		v, ok := r.Get(ref.Field)
		if !ok || !isRawKey(v) {
			continue
		}
		raw, ok := bundle.Lookup(ref.Kind, keyString(v))
		if !ok {
			continue
		}
		r.Set(ref.Field, r.session.hydrate(ref.Kind, raw))
	}
}

// referenceID returns the id carried by a field value: the value itself for
// scalars, the id of a Record or of a map holding "id".
func referenceID(v any) (any, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case *Record:
		id := t.ID()
		return id, id != nil
	case map[string]any:
		id, ok := t["id"]
		return id, ok && id != nil
	default:
		if isZeroScalar(v) {
			return nil, false
		}
		return v, true
	}
}

func isRawKey(v any) bool {
	switch v.(type) {
	case nil, *Record, map[string]any, []any:
		return false
	}
	return !isZeroScalar(v)
}

func isZeroScalar(v any) bool {
	switch t := v.(type) {
	case string:
		return t == ""
	case bool:
		return !t
	case int, int32, int64, float32, float64, uint, uint32, uint64:
		return cast.ToFloat64(t) == 0
	}
	return false
}

// keyString normalises ids so that 226084 and "226084" address the same record.
func keyString(v any) string {
	if v == nil {
		return ""
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return s
}
