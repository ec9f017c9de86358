// Package recordsettest provides a scripted recordset.Transport for tests.
package recordsettest

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/goliatone/go-shiftboard/recordset"
)

// Handler answers one request.
type Handler func(req recordset.Request) (recordset.Response, error)

// Transport routes calls by method ("shift.list") to scripted handlers and
// records every request it sees. Unrouted methods fail the call.
type Transport struct {
	mu     sync.Mutex
	routes map[string]Handler
	calls  []recordset.Request
}

var _ recordset.Transport = (*Transport)(nil)

// New returns an empty Transport.
func New() *Transport {
	return &Transport{routes: make(map[string]Handler)}
}

// On routes method to h, replacing any earlier route.
func (t *Transport) On(method string, h Handler) *Transport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.routes[method] = h
	return t
}

// Reply answers every call to method with resp.
func (t *Transport) Reply(method string, resp recordset.Response) *Transport {
	return t.On(method, func(recordset.Request) (recordset.Response, error) {
		return maps.Clone(resp), nil
	})
}

// Fail answers every call to method with err.
func (t *Transport) Fail(method string, err error) *Transport {
	return t.On(method, func(recordset.Request) (recordset.Response, error) {
		return nil, err
	})
}

// Call implements recordset.Transport.
func (t *Transport) Call(ctx context.Context, req recordset.Request) (recordset.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	t.calls = append(t.calls, req)
	h, ok := t.routes[req.Method()]
	t.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("recordsettest: no route for %s", req.Method())
	}
	return h(req)
}

// Calls returns the recorded requests in arrival order.
func (t *Transport) Calls() []recordset.Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]recordset.Request, len(t.calls))
	copy(out, t.calls)
	return out
}

// CallsTo returns the recorded requests for one method.
func (t *Transport) CallsTo(method string) []recordset.Request {
	var out []recordset.Request
	for _, req := range t.Calls() {
		if req.Method() == method {
			out = append(out, req)
		}
	}
	return out
}

// Reset forgets recorded calls but keeps routes.
func (t *Transport) Reset() {
	t.mu.Lock()
	t.calls = nil
	t.mu.Unlock()
}
