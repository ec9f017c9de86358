package recordset

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// DefaultMaxBatch bounds the page size of the extra fetch issued by bulk
// reference resolution.
const DefaultMaxBatch = 1000

// Session binds a Transport to a kind registry. It is the entry point for
// building collections and records by kind name.
type Session struct {
	transport   Transport
	registry    *Registry
	logger      *zap.Logger
	meter       metric.Meter
	instruments *instruments
	maxBatch    int
	batch       int
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithRegistry replaces the default kind registry.
func WithRegistry(r *Registry) SessionOption {
	return func(s *Session) { s.registry = r }
}

// WithLogger sets the logger used by the session and its collections.
func WithLogger(l *zap.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// WithMeter sets the meter collection metrics are recorded on.
func WithMeter(m metric.Meter) SessionOption {
	return func(s *Session) { s.meter = m }
}

// WithMaxBatch sets the page size used by bulk reference resolution.
func WithMaxBatch(n int) SessionOption {
	return func(s *Session) { s.maxBatch = n }
}

// WithDefaultBatch sets the page size of collections built without
// WithBatch, in place of each kind's own batch.
func WithDefaultBatch(n int) SessionOption {
	return func(s *Session) { s.batch = n }
}

// NewSession creates a session over transport.
func NewSession(transport Transport, opts ...SessionOption) *Session {
	s := &Session{
		transport: transport,
		maxBatch:  DefaultMaxBatch,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = DefaultRegistry()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.maxBatch <= 0 {
		s.maxBatch = DefaultMaxBatch
	}
	s.instruments = newInstruments(s.meter)
	return s
}

// Registry returns the session's kind registry.
func (s *Session) Registry() *Registry {
	return s.registry
}

// Seed builds an unloaded record of kind from fields the caller already has.
func (s *Session) Seed(kind string, fields map[string]any) (*Record, error) {
	k, err := s.registry.Lookup(kind)
	if err != nil {
		return nil, err
	}
	return s.newRecord(k, fields), nil
}

// Record builds a record from a bare id and loads it immediately.
func (s *Session) Record(ctx context.Context, kind string, id any) (*Record, error) {
	k, err := s.registry.Lookup(kind)
	if err != nil {
		return nil, err
	}
	r := s.newRecord(k, map[string]any{"id": id})
	if err := r.Load(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// Self loads the account the session is authenticated as.
func (s *Session) Self(ctx context.Context) (*Record, error) {
	k, err := s.registry.Lookup("myAccount")
	if err != nil {
		return nil, err
	}
	r := s.newRecord(k, nil)
	if err := r.Load(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Session) newRecord(k *Kind, seed map[string]any) *Record {
	r := newRecord(s, k, seed)
	if k.IDFallback != "" && !r.Has("id") {
		if v, ok := r.Get(k.IDFallback); ok {
			r.Set("id", v)
		}
	}
	return r
}

// hydrate turns a raw referenced object into a Record when its kind is
// registered, or a plain map copy otherwise.
func (s *Session) hydrate(kind string, raw map[string]any) any {
	if s != nil {
		if k, err := s.registry.Lookup(kind); err == nil {
			return s.newRecord(k, raw)
		}
	}
	return maps.Clone(raw)
}

// call forwards to the transport, making sure failures land in the error
// taxonomy: *Fault, *TransportError and not-found errors stay as they are,
// anything else becomes a *TransportError.
func (s *Session) call(ctx context.Context, req Request) (Response, error) {
	resp, err := s.transport.Call(ctx, req)
	if err == nil {
		return resp, nil
	}
	var fault *Fault
	var terr *TransportError
	if errors.As(err, &fault) || errors.As(err, &terr) || errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return nil, &TransportError{Method: req.Method(), Err: err}
}

// fetchRecord retrieves the full field map of one record.
func (s *Session) fetchRecord(ctx context.Context, k *Kind, id any) (map[string]any, error) {
	spec := k.Load
	req := Request{
		Kind:      k.Wire,
		Operation: spec.Operation,
		Params:    maps.Clone(spec.Params),
	}
	if req.Params == nil {
		req.Params = make(map[string]any)
	}
	if id == nil && !spec.WithoutID {
		return nil, fmt.Errorf("load %s: record has no id: %w", k.Name, ErrNotFound)
	}

	if spec.Operation == OpList {
		req.Filter = Filter{k.Wire: id}
		resp, err := s.call(ctx, req)
		if err != nil {
			return nil, err
		}
		row, ok, err := firstRow(resp, k.Plural)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("load %s %s: %w", k.Name, keyString(id), ErrNotFound)
		}
		return row, nil
	}

	if !spec.WithoutID {
		req.Params[spec.IDParam] = id
	}
	resp, err := s.call(ctx, req)
	if err != nil {
		return nil, err
	}
	var data any = map[string]any(resp)
	if spec.Envelope != "" {
		data = resp[spec.Envelope]
	}
	row, ok := data.(map[string]any)
	if !ok || len(row) == 0 {
		return nil, fmt.Errorf("load %s %s: %w", k.Name, keyString(id), ErrNotFound)
	}
	return row, nil
}
