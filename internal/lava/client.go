package lava

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/rpc"
	"net/url"
	"time"

	"github.com/kolo/xmlrpc"
)

// DefaultTimeout bounds a call when neither ctx nor Options set a deadline.
const DefaultTimeout = 30 * time.Second

// Options configures the transport used by Connect.
type Options struct {
	// InsecureSkipVerify disables TLS certificate verification for https
	// servers. LAVA labs commonly run with self-signed certificates.
	InsecureSkipVerify bool

	// Timeout bounds each call. Zero means DefaultTimeout.
	Timeout time.Duration
}

// Client is an authenticated XML-RPC connection to a LAVA server.
type Client struct {
	rpc      *xmlrpc.Client
	url      *url.URL
	timeout  time.Duration
	insecure bool
}

// Connect builds a client for rawURL, normally the output of BuildURL.
//
// https selects a TLS transport honouring opts.InsecureSkipVerify; http a
// plain one. No request is sent: use HealthCheck to verify the server.
// All failures are *FatalError values.
func Connect(rawURL string, opts Options) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fatal("connect", fmt.Errorf("%w: %v", ErrInvalidServerURL, err))
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = opts.Timeout

	insecure := false
	switch u.Scheme {
	case "https":
		insecure = opts.InsecureSkipVerify
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: insecure, //nolint:gosec // operator opt-in for self-signed lab servers
			MinVersion:         tls.VersionTLS12,
		}
	case "http":
	default:
		return nil, fatal("connect", fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme))
	}

	rpcClient, err := xmlrpc.NewClient(rawURL, transport)
	if err != nil {
		return nil, fatal("connect", fmt.Errorf("%w: %s: %v", ErrConnectionFailed, u.Redacted(), err))
	}

	return &Client{
		rpc:      rpcClient,
		url:      u,
		timeout:  opts.Timeout,
		insecure: insecure,
	}, nil
}

// URL returns the server URL with the token redacted.
func (c *Client) URL() string {
	return c.url.Redacted()
}

// Insecure reports whether TLS certificate verification is disabled.
func (c *Client) Insecure() bool {
	return c.insecure
}

// Call invokes method with args and decodes the result into reply.
// A call still in flight when ctx ends is abandoned and reply must not
// be read.
func (c *Client) Call(ctx context.Context, method string, args, reply any) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	done := make(chan *rpc.Call, 1)
	go c.rpc.Go(method, args, reply, done)

	select {
	case <-ctx.Done():
		return fmt.Errorf("calling %s: %w", method, ctx.Err())
	case call := <-done:
		if call.Error != nil {
			return fmt.Errorf("calling %s: %w", method, call.Error)
		}
		return nil
	}
}

// ServerVersion returns the LAVA server version string.
func (c *Client) ServerVersion(ctx context.Context) (string, error) {
	var version string
	if err := c.Call(ctx, "system.version", nil, &version); err != nil {
		return "", err
	}
	return version, nil
}

// HealthCheck verifies the server answers an authenticated call and
// returns the server version it reported. Failure is a *FatalError
// wrapping ErrConnectionFailed.
func (c *Client) HealthCheck(ctx context.Context) (string, error) {
	version, err := c.ServerVersion(ctx)
	if err != nil {
		return "", fatal("health check", fmt.Errorf("%w: unable to connect to %s: %v", ErrConnectionFailed, c.URL(), err))
	}
	return version, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.rpc.Close()
}
