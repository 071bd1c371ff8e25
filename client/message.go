// Package client implements the C7 client engine: connection pooling
// keyed by (host, port, tls), ALPN protocol negotiation over TLS, the
// request/redirect loop, and keep-alive bookkeeping.
package client

import (
	"io"

	"github.com/duohttp/duohttp/header"
)

// Request is a protocol-agnostic outbound request; Transport
// implementations translate it into HTTP/1.x or HTTP/2 wire frames.
type Request struct {
	Method  string
	Scheme  string
	Host    string // host[:port], also used for the :authority/Host header
	Path    string
	Headers *header.Map
	Body    io.Reader

	// MaxRedirects overrides the client default for this request when
	// non-zero.
	MaxRedirects int
}

// Response is a protocol-agnostic inbound response.
type Response struct {
	StatusCode int
	Headers    *header.Map
	Body       io.ReadCloser
}

func (r *Request) target() Target {
	return parseTarget(r.Host, r.Scheme == "https")
}
