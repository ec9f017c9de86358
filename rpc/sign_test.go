package rpc

import (
	"testing"

	"github.com/goliatone/go-shiftboard/recordset"
)

func TestCredentialsSign(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		method string
		params string
		want   string
	}{
		{
			name:   "key only",
			method: "account.self",
			params: "{}",
			want:   "mqIy3Fw2kQs4t0asK5ZUf+lZRLA=",
		},
		{
			name:   "with token",
			token:  "tok-123",
			method: "account.self",
			params: "{}",
			want:   "wszUmx1LHuP/ehntn4C/hEfjy6c=",
		},
		{
			name:   "paged list",
			method: "shift.list",
			params: `{"page":{"start":26,"batch":25},"select":{"workgroup":"226084"}}`,
			want:   "jnN87F205x35jkZs4kRuQLzjvEc=",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds := Credentials{AccessKeyID: "mock_access_key", SignatureKey: "mock_signature_key", Token: tt.token}
			if got := creds.Sign(tt.method, []byte(tt.params)); got != tt.want {
				t.Errorf("expected signature %q, got %q", tt.want, got)
			}
		})
	}
}

func TestEncodeParams(t *testing.T) {
	tests := []struct {
		name string
		req  recordset.Request
		want string
	}{
		{
			name: "empty",
			req:  recordset.Request{Kind: "account", Operation: recordset.OpSelf},
			want: "{}",
		},
		{
			name: "filter and page",
			req: recordset.Request{
				Kind:      "shift",
				Operation: recordset.OpList,
				Filter:    recordset.Filter{"workgroup": "226084"},
				Page:      &recordset.PageSpec{Start: 26, Batch: 25},
			},
			want: `{"page":{"start":26,"batch":25},"select":{"workgroup":"226084"}}`,
		},
		{
			name: "params merged",
			req: recordset.Request{
				Kind:      "shift",
				Operation: recordset.OpList,
				Params:    map[string]any{"extended": true},
				Page:      &recordset.PageSpec{Start: 1, Batch: 10},
			},
			want: `{"extended":true,"page":{"start":1,"batch":10}}`,
		},
		{
			name: "empty filter is omitted",
			req: recordset.Request{
				Kind:      "shift",
				Operation: recordset.OpDelete,
				Filter:    recordset.Filter{},
				Params:    map[string]any{"id": "1001"},
			},
			want: `{"id":"1001"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeParams(tt.req)
			if err != nil {
				t.Fatalf("EncodeParams failed: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}

	bad := recordset.Request{Kind: "shift", Operation: recordset.OpList, Params: map[string]any{"fn": func() {}}}
	if _, err := EncodeParams(bad); err == nil {
		t.Error("expected an error for unencodable params")
	}
}

func TestCredentialsQuery(t *testing.T) {
	creds := Credentials{AccessKeyID: "mock_access_key", SignatureKey: "mock_signature_key"}
	q := creds.query(7, "account.self", []byte("{}"))

	want := map[string]string{
		"id":            "7",
		"jsonrpc":       "2.0",
		"method":        "account.self",
		"access_key_id": "mock_access_key",
		"signature":     "mqIy3Fw2kQs4t0asK5ZUf+lZRLA=",
		"params":        "e30=",
	}
	for k, v := range want {
		if got := q.Get(k); got != v {
			t.Errorf("%s: expected %q, got %q", k, v, got)
		}
	}
	if q.Has("token") {
		t.Error("token must be omitted without a token session")
	}

	creds.Token = "tok-123"
	if got := creds.query(7, "account.self", []byte("{}")).Get("token"); got != "tok-123" {
		t.Errorf("expected token, got %q", got)
	}
}
