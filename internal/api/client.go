// Package api wraps outbound HTTP access to the portal service: bearer auth
// injection, consistent error shaping, and typed wrappers per endpoint.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"
)

// TokenSource yields the persisted bearer token. It is consulted on every
// request rather than once, so requests fired before the session finishes
// hydrating still go out authenticated.
type TokenSource interface {
	Token(ctx context.Context) string
}

type Client struct {
	base   string
	http   *http.Client
	public *http.Client // no auth transport, short timeout
}

type Options struct {
	Timeout       time.Duration
	PublicTimeout time.Duration
}

func New(baseURL string, tokens TokenSource, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.PublicTimeout <= 0 {
		opts.PublicTimeout = 5 * time.Second
	}
	return &Client{
		base:   strings.TrimSuffix(baseURL, "/"),
		http:   &http.Client{Timeout: opts.Timeout, Transport: &authTransport{next: http.DefaultTransport, tokens: tokens}},
		public: &http.Client{Timeout: opts.PublicTimeout},
	}
}

// authTransport attaches Authorization: Bearer <token> to every request,
// reading the token from persisted state each time.
type authTransport struct {
	next   http.RoundTripper
	tokens TokenSource
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if tok := t.tokens.Token(req.Context()); tok != "" {
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return t.next.RoundTrip(req)
}

func (c *Client) do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	return roundTrip(ctx, c.http, c.base, method, path, body)
}

// doPublic uses the variant without the auth transport, for endpoints that
// must work before login.
func (c *Client) doPublic(ctx context.Context, method, path string) (json.RawMessage, error) {
	return roundTrip(ctx, c.public, c.base, method, path, nil)
}

func roundTrip(ctx context.Context, hc *http.Client, base, method, path string, body any) (json.RawMessage, error) {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, shapeError("could not encode request body")
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, base+path, rd)
	if err != nil {
		return nil, newNetworkError()
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := hc.Do(req)
	if err != nil {
		return nil, newNetworkError()
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, newNetworkError()
	}
	if res.StatusCode/100 != 2 {
		return nil, statusError(res.StatusCode, raw)
	}
	return raw, nil
}

func decodeInto[T any](raw json.RawMessage, out *T) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return shapeError("unrecognized response shape")
	}
	return nil
}
