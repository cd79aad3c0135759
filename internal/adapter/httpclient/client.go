package httpclient

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/vertextoedge/txtfetch/internal/adapter/resolver"
	"github.com/vertextoedge/txtfetch/internal/domain"
	"github.com/vertextoedge/txtfetch/internal/port"
)

// Options configures the client
type Options struct {
	// MaxTotalSockets caps open connections across all hosts (0 = unlimited)
	MaxTotalSockets int

	// DialTimeout bounds connection establishment (default: 30s)
	DialTimeout time.Duration

	// RequestTimeout bounds a whole request including the body (0 = none)
	RequestTimeout time.Duration

	// UserAgent is sent with every request
	UserAgent string

	// Resolver resolves host names. Nil uses an uncached system resolver.
	Resolver *resolver.Cache
}

// Client fetches content over HTTP(S) using IPv4 only and one connection
// per request.
type Client struct {
	httpClient *http.Client
	sockets    *semaphore.Weighted
	userAgent  string
}

// Ensure Client implements port.ContentClient
var _ port.ContentClient = (*Client)(nil)

// New creates a new content client
func New(opts Options) *Client {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 30 * time.Second
	}
	if opts.Resolver == nil {
		opts.Resolver = resolver.New(nil)
	}

	c := &Client{userAgent: opts.UserAgent}
	if opts.MaxTotalSockets > 0 {
		c.sockets = semaphore.NewWeighted(int64(opts.MaxTotalSockets))
	}

	dial := opts.Resolver.DialContext(&net.Dialer{Timeout: opts.DialTimeout})

	transport := &http.Transport{
		Proxy:       http.ProxyFromEnvironment,
		DialContext: c.limitDial(dial),

		// Every request opens its own connection.
		DisableKeepAlives: true,

		TLSHandshakeTimeout:   opts.DialTimeout,
		ResponseHeaderTimeout: opts.RequestTimeout,
		ForceAttemptHTTP2:     false,
	}

	c.httpClient = &http.Client{
		Transport: transport,
		Timeout:   opts.RequestTimeout,
	}
	return c
}

// Fetch issues a GET for url and returns the response body
func (c *Client) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &domain.HTTPStatusError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		}
	}

	return resp.Body, nil
}

// CloseIdleConnections closes any idle connections of the transport
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// limitDial wraps dial so that no more than MaxTotalSockets connections
// are open at once. A slot is returned when the connection is closed.
func (c *Client) limitDial(dial resolver.DialFunc) resolver.DialFunc {
	if c.sockets == nil {
		return dial
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		if err := c.sockets.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		conn, err := dial(ctx, network, addr)
		if err != nil {
			c.sockets.Release(1)
			return nil, err
		}
		return &releasingConn{Conn: conn, release: func() { c.sockets.Release(1) }}, nil
	}
}

type releasingConn struct {
	net.Conn
	once    sync.Once
	release func()
}

func (c *releasingConn) Close() error {
	err := c.Conn.Close()
	c.once.Do(c.release)
	return err
}
