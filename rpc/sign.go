package rpc

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/goliatone/go-shiftboard/recordset"
)

// Version is the JSON-RPC protocol version sent with every call.
const Version = "2.0"

// Credentials authenticate calls. Token is optional; when set it is both
// signed and sent, which makes the call run as the token's user.
type Credentials struct {
	AccessKeyID  string
	SignatureKey string
	Token        string
}

// Sign returns the base64 HMAC-SHA1 of
// "method" + method + "params" + params [+ "token" + token].
func (c Credentials) Sign(method string, params []byte) string {
	mac := hmac.New(sha1.New, []byte(c.SignatureKey))
	mac.Write([]byte("method" + method + "params"))
	mac.Write(params)
	if c.Token != "" {
		mac.Write([]byte("token" + c.Token))
	}
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// EncodeParams builds the params object of a call: the request's own
// params plus "select" for a non-empty filter and "page" for a page spec.
func EncodeParams(req recordset.Request) ([]byte, error) {
	params := make(map[string]any, len(req.Params)+2)
	for k, v := range req.Params {
		params[k] = v
	}
	if len(req.Filter) > 0 {
		params["select"] = map[string]any(req.Filter)
	}
	if req.Page != nil {
		params["page"] = req.Page
	}
	data, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode params for %s: %w", req.Method(), err)
	}
	return data, nil
}

// query assembles the signed query string of a call.
func (c Credentials) query(id int64, method string, params []byte) url.Values {
	q := url.Values{}
	q.Set("id", strconv.FormatInt(id, 10))
	q.Set("jsonrpc", Version)
	q.Set("method", method)
	q.Set("access_key_id", c.AccessKeyID)
	q.Set("signature", c.Sign(method, params))
	q.Set("params", base64.StdEncoding.EncodeToString(params))
	if c.Token != "" {
		q.Set("token", c.Token)
	}
	return q
}
