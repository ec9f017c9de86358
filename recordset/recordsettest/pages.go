package recordsettest

import (
	"sync"

	"github.com/goliatone/go-shiftboard/recordset"
)

// Page builds a list response the way the server shapes it: rows under the
// plural key, the count, and page.this (1-based start).
func Page(plural string, count, start int, rows ...map[string]any) recordset.Response {
	items := make([]any, len(rows))
	for i, row := range rows {
		items[i] = row
	}
	return recordset.Response{
		"count": count,
		"page":  map[string]any{"this": map[string]any{"start": start, "batch": len(rows)}},
		plural:  items,
	}
}

// Dataset serves list calls out of a fixed row set, honouring the requested
// page window. Count reports the size of the row set unless overridden.
type Dataset struct {
	Plural string

	mu    sync.Mutex
	rows  []map[string]any
	count *int
	refs  map[string][]any
}

// NewDataset returns a dataset over rows.
func NewDataset(plural string, rows ...map[string]any) *Dataset {
	return &Dataset{Plural: plural, rows: rows}
}

// SetRows replaces the row set, e.g. to shrink it between pages.
func (d *Dataset) SetRows(rows ...map[string]any) {
	d.mu.Lock()
	d.rows = rows
	d.mu.Unlock()
}

// SetCount makes every later page report n regardless of the row set.
func (d *Dataset) SetCount(n int) {
	d.mu.Lock()
	d.count = &n
	d.mu.Unlock()
}

// Refer adds a referenced_objects entry sent with every page.
func (d *Dataset) Refer(kind string, objects ...map[string]any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.refs == nil {
		d.refs = make(map[string][]any)
	}
	for _, o := range objects {
		d.refs[kind] = append(d.refs[kind], o)
	}
}

// Handler returns a Handler serving pages of the dataset.
func (d *Dataset) Handler() Handler {
	return func(req recordset.Request) (recordset.Response, error) {
		d.mu.Lock()
		defer d.mu.Unlock()

		start, batch := 1, len(d.rows)
		if req.Page != nil {
			start, batch = req.Page.Start, req.Page.Batch
		}
		lo := min(max(start-1, 0), len(d.rows))
		hi := min(lo+batch, len(d.rows))

		count := len(d.rows)
		if d.count != nil {
			count = *d.count
		}
		resp := Page(d.Plural, count, start, d.rows[lo:hi]...)
		if len(d.refs) > 0 {
			refs := make(map[string]any, len(d.refs))
			for k, v := range d.refs {
				refs[k] = v
			}
			resp["referenced_objects"] = refs
		}
		return resp, nil
	}
}
