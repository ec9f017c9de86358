package recordset

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrOutOfRange is returned for an index outside [0, count).
	ErrOutOfRange = errors.New("index out of range")

	// ErrNotPresent marks a slot the server promised but did not deliver.
	// It is reported through logs and Stats, never returned from Get.
	ErrNotPresent = errors.New("record not present")

	ErrNotFound      = errors.New("record not found")
	ErrDenied        = errors.New("permission denied")
	ErrMalformedPage = errors.New("malformed page")
	ErrUnknownKind   = errors.New("unknown kind")
)

// TransportError wraps a network or transport level failure.
type TransportError struct {
	Method string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Method, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Fault is a structured error envelope returned by the server.
type Fault struct {
	Code    string
	Message string
	Method  string
}

func (e *Fault) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote fault %s: %s", e.Method, e.Code)
	}
	return fmt.Sprintf("remote fault %s: %s: %s", e.Method, e.Code, e.Message)
}

// Is lets errors.Is classify fault codes as ErrNotFound or ErrDenied.
func (e *Fault) Is(target error) bool {
	code := strings.ToLower(e.Code)
	switch target {
	case ErrNotFound:
		return strings.Contains(code, "not_found") || strings.Contains(code, "no_such") ||
			strings.HasPrefix(code, "invalid_id")
	case ErrDenied:
		return strings.Contains(code, "denied") || strings.Contains(code, "permission") ||
			strings.Contains(code, "not_authorized") || strings.Contains(code, "forbidden")
	}
	return false
}

// IsFaultCode reports whether err carries a Fault with the given code.
func IsFaultCode(err error, code string) bool {
	var fault *Fault
	return errors.As(err, &fault) && fault.Code == code
}

func malformedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedPage, fmt.Sprintf(format, args...))
}
