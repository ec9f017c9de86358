package recordset_test

import (
	"strconv"
	"testing"

	"github.com/goliatone/go-shiftboard/recordset"
	"github.com/goliatone/go-shiftboard/recordset/recordsettest"
)

// shiftRows returns n shift rows with ids "1".."n".
func shiftRows(n int) []map[string]any {
	rows := make([]map[string]any, n)
	for i := range rows {
		rows[i] = map[string]any{
			"id":         strconv.Itoa(i + 1),
			"start_date": "2010-09-17T14:00:00",
		}
	}
	return rows
}

func newSession(t *testing.T, tr *recordsettest.Transport, opts ...recordset.SessionOption) *recordset.Session {
	t.Helper()
	return recordset.NewSession(tr, opts...)
}

func mustCollection(t *testing.T, s *recordset.Session, kind string, opts ...recordset.CollectionOption) *recordset.Collection {
	t.Helper()
	c, err := s.Collection(kind, opts...)
	if err != nil {
		t.Fatalf("Collection(%q) failed: %v", kind, err)
	}
	return c
}

func ids(t *testing.T, records []*recordset.Record) []string {
	t.Helper()
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Key().ID
	}
	return out
}

func field(t *testing.T, r *recordset.Record, name string) any {
	t.Helper()
	v, ok := r.Get(name)
	if !ok {
		t.Fatalf("%s has no field %q", r, name)
	}
	return v
}
