package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/goliatone/go-shiftboard/recordset"
)

// DefaultURL is the public API endpoint.
const DefaultURL = "https://www.shiftboard.com/servola/api/api.cgi"

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
	defaultRetryBase  = 200 * time.Millisecond
	maxErrorBody      = 8 << 10
)

// ErrMalformedResponse is wrapped by errors for bodies that are not a
// JSON-RPC envelope.
var ErrMalformedResponse = errors.New("malformed response")

var _ recordset.Transport = (*Client)(nil)

// Client is a recordset.Transport speaking signed JSON-RPC 2.0 over HTTP GET.
type Client struct {
	url        string
	creds      Credentials
	http       *http.Client
	timeout    time.Duration
	limiter    *rate.Limiter
	maxRetries uint64
	retryBase  time.Duration
	logger     *zap.Logger
	nextID     atomic.Int64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client. WithTimeout does not
// apply to a client set this way.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-attempt HTTP timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithToken makes calls on behalf of the user owning token.
func WithToken(token string) Option {
	return func(c *Client) { c.creds.Token = token }
}

// WithRateLimit caps outgoing calls at perSecond with the given burst.
// A non-positive rate disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
	}
}

// WithRetry sets how often a failed call is retried and the base of the
// exponential backoff. Only network errors and 5xx answers are retried.
func WithRetry(maxRetries int, base time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = uint64(max(maxRetries, 0))
		c.retryBase = base
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithFirstID sets the id of the first call; later calls count up from it.
func WithFirstID(id int64) Option {
	return func(c *Client) { c.nextID.Store(id - 1) }
}

// New returns a client for endpoint. An empty endpoint uses DefaultURL.
func New(endpoint string, creds Credentials, opts ...Option) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		endpoint = DefaultURL
	}
	if creds.AccessKeyID == "" || creds.SignatureKey == "" {
		return nil, errors.New("rpc: access key id and signature key are required")
	}

	c := &Client{
		url:        endpoint,
		creds:      creds,
		timeout:    defaultTimeout,
		maxRetries: defaultMaxRetries,
		retryBase:  defaultRetryBase,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	if c.retryBase <= 0 {
		c.retryBase = defaultRetryBase
	}
	return c, nil
}

type envelope struct {
	ID     any                `json:"id"`
	Result recordset.Response `json:"result"`
	Error  *errorObject       `json:"error"`
}

type errorObject struct {
	Code    any    `json:"code"`
	Message string `json:"message"`
	Data    *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"data"`
}

func (e *errorObject) fault(method string) *recordset.Fault {
	f := &recordset.Fault{Code: fmt.Sprint(e.Code), Message: e.Message, Method: method}
	if e.Data != nil && e.Data.Code != "" {
		f.Code = e.Data.Code
		f.Message = e.Data.Message
	}
	return f
}

// StatusError reports a non-2xx HTTP answer.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http status %d", e.StatusCode)
	}
	return fmt.Sprintf("http status %d: %s", e.StatusCode, e.Body)
}

// Call implements recordset.Transport. Remote error envelopes come back as
// *recordset.Fault; everything else that goes wrong is a
// *recordset.TransportError.
func (c *Client) Call(ctx context.Context, req recordset.Request) (recordset.Response, error) {
	method := req.Method()
	params, err := EncodeParams(req)
	if err != nil {
		return nil, &recordset.TransportError{Method: method, Err: err}
	}

	id := c.nextID.Add(1)
	target := c.url + "?" + c.creds.query(id, method, params).Encode()

	var (
		result  recordset.Response
		attempt int
	)
	started := time.Now()
	backoff := retry.WithMaxRetries(c.maxRetries, retry.WithJitterPercent(10, retry.NewExponential(c.retryBase)))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		res, err := c.do(ctx, target, method)
		if err != nil {
			if retryable(ctx, err) {
				c.logger.Debug("rpc attempt failed",
					zap.String("method", method),
					zap.Int("attempt", attempt),
					zap.Error(err),
				)
				return retry.RetryableError(err)
			}
			return err
		}
		result = res
		return nil
	})

	fields := []zap.Field{
		zap.String("method", method),
		zap.Int64("id", id),
		zap.Int("attempts", attempt),
		zap.Duration("elapsed", time.Since(started)),
	}
	if err != nil {
		var fault *recordset.Fault
		if errors.As(err, &fault) {
			c.logger.Debug("rpc fault", append(fields, zap.String("code", fault.Code))...)
			return nil, fault
		}
		c.logger.Warn("rpc call failed", append(fields, zap.Error(err))...)
		return nil, &recordset.TransportError{Method: method, Err: err}
	}
	c.logger.Debug("rpc call", fields...)
	return result, nil
}

func (c *Client) do(ctx context.Context, target, method string) (recordset.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedResponse, method, err)
	}
	if env.Error != nil {
		return nil, env.Error.fault(method)
	}
	if env.Result == nil {
		return recordset.Response{}, nil
	}
	return env.Result, nil
}

// retryable reports whether err is a network failure or a 5xx answer.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, ErrMalformedResponse) {
		return false
	}
	var fault *recordset.Fault
	if errors.As(err, &fault) {
		return false
	}
	var status *StatusError
	if errors.As(err, &status) {
		return status.StatusCode >= 500
	}
	return true
}
