package recordset_test

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/goliatone/go-shiftboard/recordset"
	"github.com/goliatone/go-shiftboard/recordset/recordsettest"
)

func TestRecordLoadSeedWins(t *testing.T) {
	ctx := context.Background()
	tr := recordsettest.New().Reply("workgroup.list",
		recordsettest.Page("workgroups", 1, 1, map[string]any{"id": 1, "name": "Y", "extra": "Z"}),
	)
	s := newSession(t, tr)

	rec, err := s.Seed("workgroup", map[string]any{"id": 1, "name": "X"})
	if err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	if err := rec.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := field(t, rec, "name"); got != "X" {
		t.Errorf("seed must win: expected name X, got %v", got)
	}
	if got := field(t, rec, "extra"); got != "Z" {
		t.Errorf("expected fetched extra Z, got %v", got)
	}
	if !rec.Loaded() {
		t.Error("expected record to be loaded")
	}

	req := tr.Calls()[0]
	if !reflect.DeepEqual(req.Filter, recordset.Filter{"workgroup": 1}) {
		t.Errorf("expected select by id, got %v", req.Filter)
	}
	if req.Params["extended"] != true {
		t.Errorf("expected extended load params, got %v", req.Params)
	}
}

func TestRecordLoadOnce(t *testing.T) {
	ctx := context.Background()
	tr := recordsettest.New().Reply("shift.get", recordset.Response{
		"shift": map[string]any{"id": "1001", "subject": "Opening"},
	})
	s := newSession(t, tr)
	rec, _ := s.Seed("shift", map[string]any{"id": "1001"})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := rec.Load(ctx); err != nil {
				t.Errorf("Load failed: %v", err)
			}
		}()
	}
	wg.Wait()
	if err := rec.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	calls := tr.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected a single fetch, got %d", len(calls))
	}
	if calls[0].Params["id"] != "1001" {
		t.Errorf("expected id param, got %v", calls[0].Params)
	}
	if got := field(t, rec, "subject"); got != "Opening" {
		t.Errorf("expected subject from the envelope, got %v", got)
	}
}

func TestRecordLoadNotFound(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		kind  string
		setup func(*recordsettest.Transport)
	}{
		{
			name: "empty envelope",
			kind: "shift",
			setup: func(tr *recordsettest.Transport) {
				tr.Reply("shift.get", recordset.Response{})
			},
		},
		{
			name: "empty select",
			kind: "workgroup",
			setup: func(tr *recordsettest.Transport) {
				tr.Reply("workgroup.list", recordset.Response{"count": 0})
			},
		},
		{
			name: "fault",
			kind: "account",
			setup: func(tr *recordsettest.Transport) {
				tr.Fail("account.get", &recordset.Fault{Code: "invalid_id"})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := recordsettest.New()
			tt.setup(tr)
			s := newSession(t, tr)

			_, err := s.Record(ctx, tt.kind, "404")
			if !errors.Is(err, recordset.ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestRecordLoadFailureIsRetryable(t *testing.T) {
	ctx := context.Background()
	tr := recordsettest.New().Fail("shift.get", errors.New("timeout"))
	s := newSession(t, tr)
	rec, _ := s.Seed("shift", map[string]any{"id": "1"})

	if err := rec.Load(ctx); err == nil {
		t.Fatal("expected an error")
	}
	if rec.Loaded() {
		t.Fatal("failed load must not mark the record loaded")
	}

	tr.Reply("shift.get", recordset.Response{"shift": map[string]any{"id": "1", "subject": "Late"}})
	if err := rec.Load(ctx); err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if got := field(t, rec, "subject"); got != "Late" {
		t.Errorf("unexpected subject %v", got)
	}
}

func TestSessionRecordAndSelf(t *testing.T) {
	ctx := context.Background()
	tr := recordsettest.New().
		Reply("account.get", recordset.Response{"id": 5150, "first_name": "Ada"}).
		Reply("account.self", recordset.Response{"id": 7, "first_name": "Grace"})
	s := newSession(t, tr)

	acct, err := s.Record(ctx, "account", 5150)
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if got := field(t, acct, "first_name"); got != "Ada" {
		t.Errorf("unexpected first_name %v", got)
	}

	me, err := s.Self(ctx)
	if err != nil {
		t.Fatalf("Self failed: %v", err)
	}
	if me.Key() != (recordset.Key{Kind: "account", ID: "7"}) {
		t.Errorf("unexpected key %v", me.Key())
	}
	self := tr.CallsTo("account.self")[0]
	if _, ok := self.Params["id"]; ok {
		t.Errorf("self must not send an id, got %v", self.Params)
	}
}

func TestRecordIdentity(t *testing.T) {
	s := newSession(t, recordsettest.New())

	a, _ := s.Seed("workgroup", map[string]any{"id": "226084", "name": "A"})
	b, _ := s.Seed("workgroup", map[string]any{"id": 226084})
	c, _ := s.Seed("location", map[string]any{"id": "226084"})
	me, _ := s.Seed("myAccount", map[string]any{"id": 7})
	acct, _ := s.Seed("account", map[string]any{"id": "7"})

	if !a.Equal(b) || a.Hash() != b.Hash() {
		t.Error("records with the same kind and id must be equal regardless of fields")
	}
	if a.Equal(c) || a.Hash() == c.Hash() {
		t.Error("records of different kinds must differ")
	}
	if !me.Equal(acct) {
		t.Error("kinds sharing a wire name share identity")
	}
	if a.String() != "workgroup#226084" {
		t.Errorf("unexpected String %q", a.String())
	}
}

func TestRecordIDFallback(t *testing.T) {
	s := newSession(t, recordsettest.New())

	tc, _ := s.Seed("timeclock", map[string]any{"account": 42})
	if tc.ID() != 42 {
		t.Errorf("expected id to fall back to account, got %v", tc.ID())
	}

	withID, _ := s.Seed("timeclock", map[string]any{"id": 9, "account": 42})
	if withID.ID() != 9 {
		t.Errorf("explicit id must be kept, got %v", withID.ID())
	}
}

func TestRecordFieldsAreCopies(t *testing.T) {
	s := newSession(t, recordsettest.New())
	seed := map[string]any{"id": "1", "name": "X"}
	rec, _ := s.Seed("workgroup", seed)

	seed["name"] = "changed"
	if got := field(t, rec, "name"); got != "X" {
		t.Errorf("record must not alias the seed map, got %v", got)
	}

	fields := rec.Fields()
	fields["name"] = "changed"
	if got := field(t, rec, "name"); got != "X" {
		t.Errorf("Fields must return a copy, got %v", got)
	}

	rec.Set("workgroup", nil)
	if !rec.Has("workgroup") {
		t.Error("a field set to nil is still present")
	}
}
