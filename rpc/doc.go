// Package rpc implements recordset.Transport over the signed JSON-RPC 2.0
// HTTP API.
//
// Every call is a GET whose query string carries the method, the
// base64-encoded params object and an HMAC-SHA1 signature made with the
// account's signature key:
//
//	client, err := rpc.New(rpc.DefaultURL, rpc.Credentials{
//		AccessKeyID:  "key-id",
//		SignatureKey: "secret",
//	}, rpc.WithRateLimit(10, 10))
//	session := recordset.NewSession(client)
//
// Error envelopes are returned as *recordset.Fault. Network errors and 5xx
// answers are retried with exponential backoff; once retries run out they
// are returned as *recordset.TransportError.
package rpc
