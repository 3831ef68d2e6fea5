// Package api is a typed client for the storefront backend HTTP API.
//
// Every response is wrapped in a {data, meta, error} envelope; the client
// unwraps it and converts the error branch into *Error values. All business
// logic (pricing, stock, coupons, order lifecycle) lives behind this API;
// the client never computes authoritative state on its own.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// maxResponseBody caps how much of a response body is read into memory.
const maxResponseBody = 4 << 20

// TokenSource supplies the current bearer token for authenticated requests.
// An empty token means unauthenticated.
type TokenSource interface {
	AccessToken() string
}

// StaticToken is a TokenSource that always returns the same token. Intended
// for CLI tools authenticating with a service token.
type StaticToken string

// AccessToken implements TokenSource.
func (t StaticToken) AccessToken() string { return string(t) }

// Client calls the storefront backend.
type Client struct {
	base   *url.URL
	http   *http.Client
	tokens TokenSource
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTokenSource sets the bearer token source used on authenticated calls.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// New creates a Client for the backend at baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	c := &Client{
		base: u,
		http: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// request describes one backend call.
type request struct {
	method string
	path   string
	query  url.Values
	body   any
	// noAuth suppresses the Authorization header. Guest cart endpoints are
	// anonymous and must not be attributed to a logged-in session.
	noAuth bool
}

// call performs the request, unwraps the envelope, and unmarshals the data
// payload into out when out is non-nil. The returned raw meta is non-nil only
// when the response carried one.
func (c *Client) call(ctx context.Context, req request, out any) (json.RawMessage, error) {
	target := *c.base
	target.Path = strings.TrimRight(target.Path, "/") + req.path
	if len(req.query) > 0 {
		target.RawQuery = req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		buf, err := json.Marshal(req.body)
		if err != nil {
			return nil, errors.Wrap(err, "marshal request body")
		}
		body = bytes.NewReader(buf)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target.String(), body)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if !req.noAuth && c.tokens != nil {
		if token := c.tokens.AccessToken(); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", req.method, req.path)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, errors.Wrap(err, "read response body")
	}

	env, err := decodeEnvelope(raw)
	if err != nil {
		// Non-JSON error pages still map to a status-only error.
		if resp.StatusCode >= 400 {
			return nil, &Error{Status: resp.StatusCode}
		}
		return nil, err
	}

	// The backend signals failure via the envelope error branch; some
	// deployments pair it with a 2xx status.
	if env.err != nil {
		env.err.Status = resp.StatusCode
		return nil, env.err
	}
	if resp.StatusCode >= 400 {
		return nil, &Error{Status: resp.StatusCode}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent || len(raw) == 0 {
		return json.RawMessage(env.meta), nil
	}
	if err := json.Unmarshal(env.payload(raw), out); err != nil {
		return nil, errors.Wrap(err, "unmarshal response")
	}
	return json.RawMessage(env.meta), nil
}

// get is a shorthand for authenticated GET calls.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	_, err := c.call(ctx, request{method: http.MethodGet, path: path, query: query}, out)
	return err
}

// unmarshalMeta decodes the raw envelope meta into out.
func unmarshalMeta(meta json.RawMessage, out any) error {
	if len(meta) == 0 {
		return errors.New("empty meta")
	}
	return json.Unmarshal(meta, out)
}
