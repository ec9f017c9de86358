package recordset_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/goliatone/go-shiftboard/recordset"
)

func TestFaultClassification(t *testing.T) {
	tests := []struct {
		code     string
		notFound bool
		denied   bool
	}{
		{"not_found", true, false},
		{"no_such_shift", true, false},
		{"invalid_id", true, false},
		{"INVALID_ID_FORMAT", true, false},
		{"permission_denied", false, true},
		{"not_authorized", false, true},
		{"forbidden", false, true},
		{"no_user_image", false, false},
		{"rate_limited", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", &recordset.Fault{Code: tt.code, Method: "shift.delete"})
			if got := errors.Is(err, recordset.ErrNotFound); got != tt.notFound {
				t.Errorf("Is(ErrNotFound) = %v, want %v", got, tt.notFound)
			}
			if got := errors.Is(err, recordset.ErrDenied); got != tt.denied {
				t.Errorf("Is(ErrDenied) = %v, want %v", got, tt.denied)
			}
			if !recordset.IsFaultCode(err, tt.code) {
				t.Error("IsFaultCode must match the exact code")
			}
		})
	}
}

func TestFaultMessage(t *testing.T) {
	f := &recordset.Fault{Code: "not_found", Message: "no such shift", Method: "shift.get"}
	if got := f.Error(); got != "remote fault shift.get: not_found: no such shift" {
		t.Errorf("unexpected message %q", got)
	}
	bare := &recordset.Fault{Code: "not_found", Method: "shift.get"}
	if got := bare.Error(); got != "remote fault shift.get: not_found" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestTransportErrorUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := &recordset.TransportError{Method: "shift.list", Err: cause}

	if !errors.Is(err, cause) {
		t.Error("TransportError must unwrap to its cause")
	}
	if errors.Is(err, recordset.ErrNotFound) {
		t.Error("transport failures are not not-found")
	}
	if recordset.IsFaultCode(err, "not_found") {
		t.Error("transport failures carry no fault code")
	}
}
