package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/socialhub/client/internal/logging"
)

// RequestIDHeader carries the call id. A replay after renewal reuses it.
const RequestIDHeader = "X-Request-ID"

// TokenSource supplies bearer tokens to the authenticated client and recovers
// from a rejected token.
type TokenSource interface {
	// AccessToken returns the current access token or "" when unauthenticated.
	AccessToken() string
	// Renew obtains a replacement for the rejected token.
	Renew(ctx context.Context, rejected string) (string, error)
	// Expire ends the session after a replayed request was rejected again.
	Expire(ctx context.Context, cause error)
}

// Recorder observes completed HTTP exchanges. *metrics.Metrics satisfies it.
type Recorder interface {
	ObserveRequest(method string, status int, elapsed time.Duration)
}

// Client performs JSON requests against the remote API.
type Client struct {
	base    *url.URL
	http    *http.Client
	tokens  TokenSource
	logger  *slog.Logger
	metrics Recorder
	agent   string
}

// Request describes one API call. Path is relative to the base URL and already
// escaped; callers escape user-supplied segments with url.PathEscape. Body is
// JSON encoded unless it implements Payload.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Header http.Header
}

// Response is a successful API reply.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Decode unmarshals the response body into out. Empty bodies are ignored.
func (r *Response) Decode(out any) error {
	if r == nil || out == nil || len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Payload is a request body with its own encoding.
type Payload interface {
	Encode() (contentType string, data []byte, err error)
}

// New constructs an unauthenticated client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	c := &Client{
		base:   base,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: slog.Default(),
		agent:  "socialhub-client",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Authenticated returns a copy of the client that attaches bearer tokens from
// tokens and recovers once from an expired token.
func (c *Client) Authenticated(tokens TokenSource) *Client {
	clone := *c
	clone.tokens = tokens
	return &clone
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string { return c.base.String() }

// Send performs the request. For the authenticated client a first 401 triggers
// one token renewal and one replay of the identical request; a second 401 ends
// the session and returns ErrAuthorizationDenied.
func (c *Client) Send(ctx context.Context, req Request) (resp *Response, err error) {
	ctx, call := logging.BeginCall(logging.WithFallback(ctx, c.logger), req.Method, req.Path)
	defer func() { call.End(err) }()

	contentType, payload, err := encodeBody(req.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}
	target := c.resolve(req.Path, req.Query)

	if c.tokens == nil {
		call.Attempt()
		return c.do(ctx, req, target, contentType, payload, call.ID(), "")
	}

	token := c.tokens.AccessToken()
	if token == "" {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, ErrAuthorizationDenied)
	}

	call.Attempt()
	resp, err = c.do(ctx, req, target, contentType, payload, call.ID(), token)
	if !errors.Is(err, ErrAuthorizationExpired) {
		return resp, err
	}

	logger := logging.FromContext(ctx)
	logger.Info("access token rejected, renewing")

	renewed, err := c.tokens.Renew(ctx, token)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%s %s: %w: %w", req.Method, req.Path, ErrAuthorizationDenied, err)
	}

	call.Attempt()
	resp, err = c.do(ctx, req, target, contentType, payload, call.ID(), renewed)
	if !errors.Is(err, ErrAuthorizationExpired) {
		return resp, err
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		httpErr.Kind = ErrAuthorizationDenied
	}
	logger.Warn("request rejected after renewal, ending session")
	c.tokens.Expire(ctx, err)
	return nil, err
}

func (c *Client) do(ctx context.Context, req Request, target, contentType string, payload []byte, requestID, token string) (*Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.agent)
	httpReq.Header.Set(RequestIDHeader, requestID)
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		c.observe(req.Method, 0, time.Since(start))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &NetworkError{Method: req.Method, Path: req.Path, Err: err}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	c.observe(req.Method, httpResp.StatusCode, time.Since(start))
	if err != nil {
		return nil, &NetworkError{Method: req.Method, Path: req.Path, Err: fmt.Errorf("read response body: %w", err)}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, &HTTPError{
			Kind:   classify(httpResp.StatusCode),
			Status: httpResp.StatusCode,
			Method: req.Method,
			Path:   req.Path,
			Body:   respBody,
		}
	}

	return &Response{Status: httpResp.StatusCode, Header: httpResp.Header, Body: respBody}, nil
}

func (c *Client) resolve(path string, query url.Values) string {
	u := *c.base
	escaped := strings.TrimRight(c.base.EscapedPath(), "/") + "/" + strings.TrimLeft(path, "/")
	if unescaped, err := url.PathUnescape(escaped); err == nil {
		u.Path, u.RawPath = unescaped, escaped
	} else {
		u.Path, u.RawPath = escaped, ""
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) observe(method string, status int, elapsed time.Duration) {
	if c.metrics != nil {
		c.metrics.ObserveRequest(method, status, elapsed)
	}
}

func encodeBody(body any) (string, []byte, error) {
	switch b := body.(type) {
	case nil:
		return "", nil, nil
	case Payload:
		return b.Encode()
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return "", nil, fmt.Errorf("encode request body: %w", err)
		}
		return "application/json", data, nil
	}
}

// Get performs a GET and decodes the reply into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	resp, err := c.Send(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

// Post sends body and decodes the reply into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	resp, err := c.Send(ctx, Request{Method: http.MethodPost, Path: path, Body: body})
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

// Put sends body and decodes the reply into out.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	resp, err := c.Send(ctx, Request{Method: http.MethodPut, Path: path, Body: body})
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

// Delete performs a DELETE and decodes the reply into out.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	resp, err := c.Send(ctx, Request{Method: http.MethodDelete, Path: path})
	if err != nil {
		return err
	}
	return resp.Decode(out)
}
