package client

import (
	"crypto/tls"
	"fmt"
	"net/url"
	"strings"

	"github.com/duohttp/duohttp/header"
	"github.com/rs/zerolog"
)

// DefaultMaxRedirects is the redirect-following cap applied when a
// Request doesn't override it (spec §4.7).
const DefaultMaxRedirects = 10

// Client is the C7 client engine entry point: one connection pool
// shared across every call to Do.
type Client struct {
	pool         *pool
	MaxRedirects int
	Log          zerolog.Logger
}

// NewClient returns a Client with its own connection pool.
func NewClient(tlsConfig *tls.Config, log zerolog.Logger) *Client {
	return &Client{
		pool:         newPool(tlsConfig, log),
		MaxRedirects: DefaultMaxRedirects,
		Log:          log,
	}
}

// Close tears down every pooled connection.
func (c *Client) Close() { c.pool.closeAll() }

// Do executes a request, resolving a pooled connection, negotiating a
// protocol version if a new one must be dialed, and following 3xx
// redirects whose Location keeps the same host/port (spec §4.7 step
// 4: a cross-origin redirect terminates the loop and surfaces the
// 3xx to the caller instead).
func (c *Client) Do(req *Request) (*Response, error) {
	maxRedirects := c.MaxRedirects
	if req.MaxRedirects != 0 {
		maxRedirects = req.MaxRedirects
	}

	current := req
	for redirects := 0; ; redirects++ {
		tr, err := c.pool.acquire(current.target())
		if err != nil {
			return nil, fmt.Errorf("client: dial %s: %w", current.Host, err)
		}

		res, err := tr.RoundTrip(current)
		if err != nil {
			return nil, err
		}

		if res.StatusCode < 300 || res.StatusCode >= 400 {
			return res, nil
		}
		if redirects >= maxRedirects {
			return res, nil
		}

		loc, ok := res.Headers.Get("Location")
		if !ok {
			return res, nil
		}
		next, err := nextRequest(current, loc)
		if err != nil || next.Host != current.Host {
			// cross-origin (or unparsable) redirect: surface the 3xx.
			return res, nil
		}
		current = next
	}
}

// nextRequest builds the request for a same-origin redirect: GET/HEAD
// replay with no body, per the common browser-compatible subset of
// RFC 7231 §6.4's redirect semantics (a strict 307/308 body replay is
// left to the caller, which still has the original Request).
func nextRequest(prev *Request, location string) (*Request, error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, err
	}
	host := prev.Host
	if u.Host != "" {
		host = u.Host
	}
	scheme := prev.Scheme
	if u.Scheme != "" {
		scheme = u.Scheme
	}
	path := u.Path
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	h := header.NewMap()
	if prev.Headers != nil {
		prev.Headers.VisitAll(func(name, value string) {
			if strings.EqualFold(name, "Content-Length") || strings.EqualFold(name, "Transfer-Encoding") {
				return
			}
			h.Insert(name, value)
		})
	}

	method := "GET"
	if prev.Method == "HEAD" {
		method = "HEAD"
	}

	return &Request{
		Method:  method,
		Scheme:  scheme,
		Host:    host,
		Path:    path,
		Headers: h,
	}, nil
}
