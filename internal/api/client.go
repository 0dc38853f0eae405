// Package api is the HTTP client for the CyberForge backend. Every request
// carries a timeout, every failure comes back as an *APIError (or the
// caller's own context error on cancellation), and responses are decoded into
// opaque JSON documents.
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/cyberforge/cyberforge/internal/jsonutil"
	"github.com/cyberforge/cyberforge/internal/logging"
)

const (
	DefaultBaseURL = "http://localhost:8008"
	DefaultTimeout = 120 * time.Second
	// SeekTimeout covers network-range discovery scans.
	SeekTimeout = 600 * time.Second

	userAgent       = "cyberforge-cli"
	maxErrorBodyLen = 64 << 10
)

// Document is an opaque JSON object returned by the backend.
type Document map[string]any

// String returns the string stored at key, or "".
func (d Document) String(key string) string {
	if s, ok := d[key].(string); ok {
		return s
	}
	return ""
}

// Client talks to one backend base URL. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	limiter *rate.Limiter
	logger  *logging.Logger

	Recon     *ReconService
	OSINT     *OSINTService
	Vuln      *VulnService
	Threat    *ThreatService
	Logs      *LogsService
	Reports   *ReportsService
	Settings  *SettingsService
	Assistant *AssistantService
	Seek      *SeekService
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the default per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRateLimit caps outgoing requests per second. Zero disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			burst := int(rps)
			if burst < 1 {
				burst = 1
			}
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *logging.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a client for baseURL; an empty baseURL means DefaultBaseURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    newHTTPClient(),
		timeout: DefaultTimeout,
		logger:  logging.Default().WithComponent("api"),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.Recon = &ReconService{c: c}
	c.OSINT = &OSINTService{c: c}
	c.Vuln = &VulnService{c: c}
	c.Threat = &ThreatService{c: c}
	c.Logs = &LogsService{c: c}
	c.Reports = &ReportsService{c: c}
	c.Settings = &SettingsService{c: c}
	c.Assistant = &AssistantService{c: c}
	c.Seek = &SeekService{c: c}
	return c
}

// BaseURL returns the backend root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// newHTTPClient builds a pooled client without an overall timeout; deadlines
// come from the per-call context so streams are not cut off mid-read.
func newHTTPClient() *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dialer.DialContext,
			MaxIdleConns:          20,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			ForceAttemptHTTP2:     true,
		},
	}
}

// CallOption adjusts a single request.
type CallOption func(*callOptions)

type callOptions struct {
	timeout time.Duration
	query   url.Values
	accept  string
}

// Timeout overrides the client's default timeout for one call.
func Timeout(d time.Duration) CallOption {
	return func(o *callOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// Query adds URL query parameters to one call.
func Query(key, value string) CallOption {
	return func(o *callOptions) {
		if o.query == nil {
			o.query = url.Values{}
		}
		o.query.Add(key, value)
	}
}

// Accept overrides the Accept header for one call.
func Accept(mime string) CallOption {
	return func(o *callOptions) {
		o.accept = mime
	}
}

func (c *Client) callOptions(opts []CallOption) callOptions {
	co := callOptions{timeout: c.timeout, accept: "application/json"}
	for _, opt := range opts {
		opt(&co)
	}
	return co
}

// Get issues a GET and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, out any, opts ...CallOption) error {
	return c.Do(ctx, http.MethodGet, path, nil, out, opts...)
}

// Post issues a POST with a JSON body and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, body, out any, opts ...CallOption) error {
	return c.Do(ctx, http.MethodPost, path, body, out, opts...)
}

// Put issues a PUT with a JSON body and decodes the response into out.
func (c *Client) Put(ctx context.Context, path string, body, out any, opts ...CallOption) error {
	return c.Do(ctx, http.MethodPut, path, body, out, opts...)
}

// Delete issues a DELETE and decodes the response into out.
func (c *Client) Delete(ctx context.Context, path string, out any, opts ...CallOption) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out, opts...)
}

// Do performs one JSON round trip. out may be nil to discard the body.
func (c *Client) Do(ctx context.Context, method, path string, body, out any, opts ...CallOption) error {
	var payload io.Reader
	if body != nil {
		data, err := jsonutil.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		payload = bytes.NewReader(data)
	}
	return c.roundTrip(ctx, method, path, payload, "application/json", out, opts)
}

func (c *Client) roundTrip(ctx context.Context, method, path string, payload io.Reader, contentType string, out any, opts []CallOption) error {
	co := c.callOptions(opts)
	callCtx, cancel := context.WithTimeout(ctx, co.timeout)
	defer cancel()

	resp, err := c.send(ctx, callCtx, method, path, payload, contentType, co)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return httpError(method, path, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.transportError(ctx, callCtx, method, path, co.timeout, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := jsonutil.Unmarshal(data, out); err != nil {
		return &APIError{
			Status:  resp.StatusCode,
			Code:    CodeDecode,
			Message: fmt.Sprintf("Invalid response from %s: %v", path, err),
			Method:  method,
			Path:    path,
			Err:     err,
		}
	}
	return nil
}

// send builds and executes a request. parent is the caller's context; callCtx
// carries the timeout and is what the request is bound to.
func (c *Client) send(parent, callCtx context.Context, method, path string, payload io.Reader, contentType string, co callOptions) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(callCtx); err != nil {
			return nil, c.transportError(parent, callCtx, method, path, co.timeout, err)
		}
	}

	req, err := http.NewRequestWithContext(callCtx, method, c.url(path, co.query), payload)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", co.accept)
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Request(method, path, 0, time.Since(start), "error", err)
		return nil, c.transportError(parent, callCtx, method, path, co.timeout, err)
	}
	c.logger.Request(method, path, resp.StatusCode, time.Since(start))
	return resp, nil
}

func (c *Client) url(path string, query url.Values) string {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// transportError classifies a failure that happened before a status code was
// available. Caller cancellation is returned as the caller's context error.
func (c *Client) transportError(parent, callCtx context.Context, method, path string, timeout time.Duration, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return &APIError{
			Code:    CodeTimeout,
			Message: fmt.Sprintf("Request timed out after %s", timeout),
			Method:  method,
			Path:    path,
			Err:     err,
		}
	}
	return &APIError{
		Code:    CodeNetwork,
		Message: fmt.Sprintf("Cannot reach backend at %s: %v", c.baseURL, rootCause(err)),
		Method:  method,
		Path:    path,
		Err:     err,
	}
}

func rootCause(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}

// httpError reads the error body of a non-2xx response. The message comes
// from "detail" (rendered as JSON when it is not a string), then "message",
// then a generic status line.
func httpError(method, path string, resp *http.Response) *APIError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
	return &APIError{
		Status:  resp.StatusCode,
		Code:    CodeHTTP,
		Message: ErrorMessage(resp.StatusCode, data),
		Method:  method,
		Path:    path,
	}
}

// ErrorMessage extracts a human-readable message from an error body.
func ErrorMessage(status int, body []byte) string {
	var doc map[string]any
	if err := jsonutil.Unmarshal(body, &doc); err != nil {
		return statusFallback(status)
	}

	switch detail := doc["detail"].(type) {
	case nil:
	case string:
		if detail != "" {
			return detail
		}
	default:
		if raw, err := jsonutil.Marshal(detail); err == nil {
			return string(raw)
		}
	}

	if msg, ok := doc["message"].(string); ok && msg != "" {
		return msg
	}
	return statusFallback(status)
}

// Stream POSTs body and returns the raw response body for incremental
// reading. The timeout bounds the wait for response headers only; closing the
// returned body releases the request.
func (c *Client) Stream(ctx context.Context, path string, body any, opts ...CallOption) (io.ReadCloser, error) {
	co := c.callOptions(append([]CallOption{Accept("text/event-stream")}, opts...))

	data, err := jsonutil.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode POST %s body: %w", path, err)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	var timedOut atomic.Bool
	timer := time.AfterFunc(co.timeout, func() {
		timedOut.Store(true)
		cancel()
	})

	resp, err := c.send(ctx, streamCtx, http.MethodPost, path, bytes.NewReader(data), "application/json", co)
	timer.Stop()
	if err != nil {
		cancel()
		var apiErr *APIError
		if timedOut.Load() && errors.As(err, &apiErr) {
			apiErr.Code = CodeTimeout
			apiErr.Message = fmt.Sprintf("Request timed out after %s", co.timeout)
		}
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer cancel()
		defer resp.Body.Close()
		return nil, httpError(http.MethodPost, path, resp)
	}
	return &streamBody{ReadCloser: resp.Body, cancel: cancel}, nil
}

type streamBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *streamBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
