// Package api is the typed HTTP boundary to the judge backend. All
// responses arrive in the backend's JSON envelope; the client unwraps
// the envelope and surfaces envelope errors and non-2xx statuses as Go
// errors, never as values.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultTimeout = 30 * time.Second

// Client issues requests against the backend. The Authorization and
// Provider headers are process-wide mutable defaults, mirroring how the
// browser build configures its HTTP layer once per login: they are
// swapped atomically so requests racing a login or logout never see a
// half-updated credential pair.
type Client struct {
	baseURL string
	http    *http.Client

	credLock      sync.RWMutex
	authorization string
	provider      string
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient replaces the default retrying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.http = httpClient
	}
}

// NewClient builds a Client against baseURL (e.g. "http://localhost:8080").
func NewClient(baseURL string, options ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    newRetryingClient(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// SetCredentials atomically installs the ambient bearer token and
// provider header used by subsequent requests. An empty token installs
// an empty credential (single-user mode), which is distinct from no
// credential at all.
func (c *Client) SetCredentials(token, provider string) {
	c.credLock.Lock()
	defer c.credLock.Unlock()
	c.authorization = fmt.Sprintf("Bearer %s", token)
	c.provider = provider
}

// ClearCredentials removes the ambient credential pair.
func (c *Client) ClearCredentials() {
	c.credLock.Lock()
	defer c.credLock.Unlock()
	c.authorization = ""
	c.provider = ""
}

// wrapper is the backend's response envelope.
type wrapper struct {
	Timestamp    string          `json:"timestamp"`
	IsError      bool            `json:"isError"`
	ErrorMessage string          `json:"errorMessage"`
	Data         json.RawMessage `json:"data"`
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// requestOptions carry per-request overrides of the ambient headers.
type requestOptions struct {
	authorization string
}

type requestOption func(*requestOptions)

// withBearer overrides the ambient Authorization header for one request.
func withBearer(token string) requestOption {
	return func(o *requestOptions) {
		o.authorization = fmt.Sprintf("Bearer %s", token)
	}
}

// get issues a GET, unwraps the envelope and decodes data into out.
// A nil out discards the payload (status-only calls).
func (c *Client) get(ctx context.Context, path string, query url.Values, out any, options ...requestOption) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(path, query), nil)
	if err != nil {
		return errors.Wrap(err, "[Client.get] NewRequestWithContext")
	}
	return c.do(req, out, options...)
}

// post issues a JSON POST body and decodes the raw (non-envelope)
// response into out. Used by the query endpoint, which speaks its own
// response format.
func (c *Client) post(ctx context.Context, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.requestURL(path, nil), body)
	if err != nil {
		return errors.Wrap(err, "[Client.post] NewRequestWithContext")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Wrap(&StatusError{Code: resp.StatusCode}, "[Client.post]")
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "[Client.post] Decode")
	}
	return nil
}

func (c *Client) do(req *http.Request, out any, options ...requestOption) error {
	resp, err := c.send(req, options...)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Wrap(&StatusError{Code: resp.StatusCode}, "[Client.do]")
	}

	var envelope wrapper
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return errors.Wrap(err, "[Client.do] Decode envelope")
	}
	if envelope.IsError {
		return errors.Errorf("[Client.do] backend error: %s", envelope.ErrorMessage)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return errors.Wrap(err, "[Client.do] Unmarshal data")
	}
	return nil
}

func (c *Client) send(req *http.Request, options ...requestOption) (*http.Response, error) {
	var opts requestOptions
	for _, opt := range options {
		opt(&opts)
	}

	c.credLock.RLock()
	authorization := c.authorization
	provider := c.provider
	c.credLock.RUnlock()

	if opts.authorization != "" {
		authorization = opts.authorization
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	if provider != "" {
		req.Header.Set("Provider", provider)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.send] Do")
	}
	return resp, nil
}

func (c *Client) requestURL(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// leveledZerolog adapts the global zerolog logger to retryablehttp's
// LeveledLogger. Intermediate retry failures log at warn.
type leveledZerolog struct {
	logger zerolog.Logger
}

func (l leveledZerolog) Error(msg string, keysAndValues ...any) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}

func (l leveledZerolog) Warn(msg string, keysAndValues ...any) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}

func (l leveledZerolog) Info(msg string, keysAndValues ...any) {
	l.logger.Info().Fields(keysAndValues).Msg(msg)
}

func (l leveledZerolog) Debug(msg string, keysAndValues ...any) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func newRetryingClient() *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient.Transport = cleanhttp.DefaultPooledTransport()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.Logger = retryablehttp.LeveledLogger(leveledZerolog{logger: log.With().Str("subsystem", "api").Logger()})

	client := retryClient.StandardClient()
	client.Timeout = defaultTimeout
	return client
}
