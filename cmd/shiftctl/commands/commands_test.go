package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/goliatone/go-shiftboard/internal/config"
	"github.com/goliatone/go-shiftboard/pkg/di"
	"github.com/goliatone/go-shiftboard/recordset"
	"github.com/goliatone/go-shiftboard/recordset/recordsettest"
)

func scriptedFactory(t *testing.T, tr *recordsettest.Transport) ContainerFactory {
	t.Helper()
	return func(string) (*di.Container, error) {
		cfg := config.Default()
		cfg.Env = "test"
		return di.NewContainer(cfg, di.WithTransport(tr))
	}
}

func execute(t *testing.T, factory ContainerFactory, args ...string) (string, error) {
	t.Helper()
	root := NewRoot(factory)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func decodeList(t *testing.T, out string) []map[string]any {
	t.Helper()
	var rows []map[string]any
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("output is not a JSON array: %v\n%s", err, out)
	}
	return rows
}

func TestListCommand(t *testing.T) {
	ds := recordsettest.NewDataset("shifts",
		map[string]any{"id": "1001", "workgroup": "226084", "start_date": "2010-09-12"},
		map[string]any{"id": "1002", "workgroup": "226085", "start_date": "2010-09-10"},
		map[string]any{"id": "1003", "workgroup": "226084", "start_date": "2010-09-11"},
	)
	tr := recordsettest.New().
		On("shift.list", ds.Handler()).
		Reply("workgroup.list", recordsettest.Page("workgroups", 2, 1,
			map[string]any{"id": "226084", "name": "Test Workgroup"},
			map[string]any{"id": "226085", "name": "Night Crew"},
		))

	out, err := execute(t, scriptedFactory(t, tr),
		"list", "shift", "--filter", "workgroup=226084,226085", "--batch", "2", "--resolve", "workgroup", "--sort")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	rows := decodeList(t, out)
	var gotIDs []any
	for _, r := range rows {
		gotIDs = append(gotIDs, r["id"])
	}
	if want := []any{"1002", "1003", "1001"}; !reflect.DeepEqual(gotIDs, want) {
		t.Errorf("expected sorted ids %v, got %v", want, gotIDs)
	}
	wg, ok := rows[0]["workgroup"].(map[string]any)
	if !ok || wg["name"] != "Night Crew" {
		t.Errorf("workgroup was not resolved: %v", rows[0]["workgroup"])
	}

	calls := tr.CallsTo("shift.list")
	if len(calls) != 2 || calls[0].Page.Batch != 2 {
		t.Fatalf("unexpected list calls %+v", calls)
	}
	if want := (recordset.Filter{"workgroup": []any{"226084", "226085"}}); !reflect.DeepEqual(calls[0].Filter, want) {
		t.Errorf("expected filter %v, got %v", want, calls[0].Filter)
	}
}

func TestListCommandResolveField(t *testing.T) {
	ds := recordsettest.NewDataset("shifts",
		map[string]any{"id": "1001", "covering_member": "5150"},
		map[string]any{"id": "1002", "covering_member": "5151"},
	)
	tr := recordsettest.New().
		On("shift.list", ds.Handler()).
		Reply("account.list", recordsettest.Page("accounts", 2, 1,
			map[string]any{"id": "5150", "last_name": "Lovelace"},
			map[string]any{"id": "5151", "last_name": "Hopper"},
		))

	out, err := execute(t, scriptedFactory(t, tr),
		"list", "shift", "--resolve", "account:covering_member")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	rows := decodeList(t, out)
	member, ok := rows[0]["covering_member"].(map[string]any)
	if !ok || member["last_name"] != "Lovelace" {
		t.Errorf("covering_member was not resolved: %v", rows[0]["covering_member"])
	}

	calls := tr.CallsTo("account.list")
	if len(calls) != 1 {
		t.Fatalf("expected one account fetch, got %d", len(calls))
	}
	if want := (recordset.Filter{"account": []any{"5150", "5151"}}); !reflect.DeepEqual(calls[0].Filter, want) {
		t.Errorf("expected filter %v, got %v", want, calls[0].Filter)
	}
}

func TestParseResolve(t *testing.T) {
	tests := []struct {
		spec      string
		target    string
		withField bool
		wantErr   bool
	}{
		{spec: "workgroup", target: "workgroup"},
		{spec: "account:covering_member", target: "account", withField: true},
		{spec: ":covering_member", wantErr: true},
		{spec: "account:", wantErr: true},
		{spec: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			target, opts, err := parseResolve(tt.spec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseResolve(%q) error = %v", tt.spec, err)
			}
			if target != tt.target {
				t.Errorf("expected target %q, got %q", tt.target, target)
			}
			if got := len(opts) == 1; got != tt.withField {
				t.Errorf("expected field option %v, got %d options", tt.withField, len(opts))
			}
		})
	}
}

func TestListCommandLimit(t *testing.T) {
	ds := recordsettest.NewDataset("workgroups",
		map[string]any{"id": "1"}, map[string]any{"id": "2"}, map[string]any{"id": "3"},
	)
	tr := recordsettest.New().On("workgroup.list", ds.Handler())

	out, err := execute(t, scriptedFactory(t, tr), "list", "workgroup", "--limit", "2")
	if err != nil {
		t.Fatal(err)
	}
	if rows := decodeList(t, out); len(rows) != 2 {
		t.Errorf("expected 2 rows, got %d", len(rows))
	}

	out, err = execute(t, scriptedFactory(t, tr), "list", "workgroup", "--limit", "10")
	if err != nil {
		t.Fatal(err)
	}
	if rows := decodeList(t, out); len(rows) != 3 {
		t.Errorf("a limit above the count prints everything, got %d", len(rows))
	}
}

func TestListCommandErrors(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, err error)
	}{
		{
			name: "unknown kind",
			args: []string{"list", "widget"},
			check: func(t *testing.T, err error) {
				if !errors.Is(err, recordset.ErrUnknownKind) {
					t.Errorf("expected ErrUnknownKind, got %v", err)
				}
			},
		},
		{
			name: "bad filter",
			args: []string{"list", "shift", "--filter", "workgroup"},
			check: func(t *testing.T, err error) {
				if err == nil || !strings.Contains(err.Error(), "key=value") {
					t.Errorf("expected a filter error, got %v", err)
				}
			},
		},
		{
			name: "bad resolve",
			args: []string{"list", "shift", "--resolve", "account:"},
			check: func(t *testing.T, err error) {
				if err == nil || !strings.Contains(err.Error(), "kind:field") {
					t.Errorf("expected a resolve error, got %v", err)
				}
			},
		},
		{
			name: "missing kind",
			args: []string{"list"},
			check: func(t *testing.T, err error) {
				if err == nil {
					t.Error("expected an argument error")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, scriptedFactory(t, recordsettest.New()), tt.args...)
			tt.check(t, err)
		})
	}
}

func TestGetCommand(t *testing.T) {
	tr := recordsettest.New().
		Reply("shift.get", recordset.Response{"shift": map[string]any{"id": "1001", "subject": "Front desk"}}).
		Fail("account.get", &recordset.Fault{Code: "not_found"})

	out, err := execute(t, scriptedFactory(t, tr), "get", "shift", "1001")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(out), &rec); err != nil {
		t.Fatal(err)
	}
	if rec["subject"] != "Front desk" {
		t.Errorf("unexpected record %v", rec)
	}
	if got := tr.CallsTo("shift.get")[0].Params["id"]; got != "1001" {
		t.Errorf("unexpected id param %v", got)
	}

	if _, err := execute(t, scriptedFactory(t, tr), "get", "account", "5150"); !errors.Is(err, recordset.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSelfCommand(t *testing.T) {
	tr := recordsettest.New().Reply("account.self", recordset.Response{"id": "5150", "first_name": "Ada"})

	out, err := execute(t, scriptedFactory(t, tr), "self")
	if err != nil {
		t.Fatalf("self failed: %v", err)
	}
	if !strings.Contains(out, `"first_name": "Ada"`) {
		t.Errorf("unexpected output %s", out)
	}
}

func TestKindsCommand(t *testing.T) {
	factory := func(string) (*di.Container, error) {
		return nil, errors.New("kinds must not build a container")
	}
	out, err := execute(t, factory, "kinds")
	if err != nil {
		t.Fatalf("kinds failed: %v", err)
	}
	for _, want := range []string{"KIND", "shift", "trade", "tradeboard", "myAccount"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestFactoryError(t *testing.T) {
	factory := func(string) (*di.Container, error) { return nil, errors.New("no credentials") }
	if _, err := execute(t, factory, "list", "shift"); err == nil || err.Error() != "no credentials" {
		t.Errorf("expected the factory error, got %v", err)
	}
}

func TestParseFilter(t *testing.T) {
	got, err := parseFilter([]string{"workgroup=1,2", "member=5150", "note=a=b"})
	if err != nil {
		t.Fatal(err)
	}
	want := recordset.Filter{"workgroup": []any{"1", "2"}, "member": "5150", "note": "a=b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if f, err := parseFilter(nil); f != nil || err != nil {
		t.Errorf("expected nil filter, got %v, %v", f, err)
	}
	if _, err := parseFilter([]string{"=x"}); err == nil {
		t.Error("expected an error for an empty key")
	}
}

func TestPlain(t *testing.T) {
	s := recordset.NewSession(recordsettest.New())
	wg, _ := s.Seed("workgroup", map[string]any{"id": "226084", "name": "Test Workgroup"})
	shift, _ := s.Seed("shift", map[string]any{"id": "1001", "workgroup": wg, "tags": []any{wg}})

	got := plain(shift, 0).(map[string]any)
	if got["workgroup"].(map[string]any)["name"] != "Test Workgroup" {
		t.Errorf("referenced records must be expanded: %v", got)
	}
	if got["tags"].([]any)[0].(map[string]any)["id"] != "226084" {
		t.Errorf("records in lists must be expanded: %v", got)
	}
	if plain(shift, maxNesting) != "1001" {
		t.Error("records past the nesting limit print as their id")
	}
	var nilRec *recordset.Record
	if plain(nilRec, 0) != nil {
		t.Error("nil records print as null")
	}
}
