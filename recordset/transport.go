package recordset

import "context"

// Operation names the remote call made against a kind, e.g. "list" in "shift.list".
type Operation string

const (
	OpList            Operation = "list"
	OpGet             Operation = "get"
	OpWhosOn          Operation = "whosOn"
	OpStatus          Operation = "status"
	OpSelf            Operation = "self"
	OpGetImage        Operation = "getImage"
	OpListMemberships Operation = "listMemberships"
	OpDelete          Operation = "delete"
	OpGetOfferedTrade Operation = "getOfferedTrade"
)

// Filter is the opaque selection criteria passed through to the Transport ("select").
type Filter map[string]any

// Response is the decoded "result" object of a successful call.
type Response map[string]any

// PageSpec addresses one page on the wire. Start is 1-based.
type PageSpec struct {
	Start int `json:"start" mapstructure:"start"`
	Batch int `json:"batch" mapstructure:"batch"`
}

// PageInfo is the paging metadata returned with every page.
type PageInfo struct {
	This PageSpec  `json:"this" mapstructure:"this"`
	Next *PageSpec `json:"next,omitempty" mapstructure:"next"`
}

// Request describes a single remote call.
type Request struct {
	Kind      string
	Operation Operation
	Filter    Filter
	Page      *PageSpec
	Params    map[string]any
}

// Method returns the wire method name, e.g. "workgroup.list".
func (r Request) Method() string {
	return r.Kind + "." + string(r.Operation)
}

// Transport performs remote calls. Implementations return *TransportError for
// network failures and *Fault when the server answered with an error envelope.
type Transport interface {
	Call(ctx context.Context, req Request) (Response, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, req Request) (Response, error)

func (f TransportFunc) Call(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}
