// Package httpclient provides a reusable HTTP client with context
// management, timeouts, and connection pooling. It is shared by every
// component that talks to an external HTTP endpoint.
package httpclient

import (
	"context"
	"net"
	"net/http"
	"time"
)

const (
	// DefaultTimeout is applied when a request context carries no deadline.
	DefaultTimeout = 30 * time.Second

	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 90 * time.Second
	defaultTLSHandshakeTimeout = 10 * time.Second
	defaultDialTimeout         = 30 * time.Second
	defaultDialKeepAlive       = 30 * time.Second

	defaultUserAgent = "Vantazh"
)

// Client wraps http.Client with a default timeout and User-Agent injection.
// Thread-safe for concurrent use.
type Client struct {
	client         *http.Client
	defaultTimeout time.Duration
	userAgent      string
}

// Config holds configuration for creating a Client.
type Config struct {
	// DefaultTimeout is the timeout applied if request context has no deadline
	DefaultTimeout time.Duration

	// UserAgent is added to all requests
	UserAgent string

	// MaxIdleConnsPerHost controls per-host connection pooling
	MaxIdleConnsPerHost int

	// Transport overrides the pooled transport. Used by tests to install
	// mock round trippers.
	Transport http.RoundTripper
}

// New creates a Client. A nil config uses production defaults.
func New(cfg *Config) *Client {
	c := Config{}
	if cfg != nil {
		c = *cfg
	}
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = DefaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.MaxIdleConnsPerHost <= 0 {
		c.MaxIdleConnsPerHost = defaultMaxIdleConnsPerHost
	}

	transport := c.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   defaultDialTimeout,
				KeepAlive: defaultDialKeepAlive,
			}).DialContext,
			MaxIdleConns:        defaultMaxIdleConns,
			MaxIdleConnsPerHost: c.MaxIdleConnsPerHost,
			IdleConnTimeout:     defaultIdleConnTimeout,
			TLSHandshakeTimeout: defaultTLSHandshakeTimeout,
		}
	}

	return &Client{
		client:         &http.Client{Transport: transport},
		defaultTimeout: c.DefaultTimeout,
		userAgent:      c.UserAgent,
	}
}

// Do executes the request. If the request context has no deadline the
// client's default timeout is applied so a slow endpoint can never hang the
// caller indefinitely.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.defaultTimeout)
		// cancel runs when the response body is closed
		req = req.WithContext(ctx)
		resp, err := c.do(req)
		if err != nil {
			cancel()
			return nil, err
		}
		resp.Body = &cancelOnCloseBody{body: resp.Body, cancel: cancel}
		return resp, nil
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return c.client.Do(req)
}

// Close releases idle connections held by the transport.
func (c *Client) Close() {
	c.client.CloseIdleConnections()
}

type cancelOnCloseBody struct {
	body   interface {
		Read([]byte) (int, error)
		Close() error
	}
	cancel context.CancelFunc
}

func (b *cancelOnCloseBody) Read(p []byte) (int, error) { return b.body.Read(p) }

func (b *cancelOnCloseBody) Close() error {
	err := b.body.Close()
	b.cancel()
	return err
}
