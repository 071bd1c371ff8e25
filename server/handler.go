// Package server implements the C8 server engine: the accept loop,
// TLS SNI / cleartext preface dispatch between HTTP/1.x and HTTP/2,
// virtual-host resolution, and per-request handler invocation.
package server

import (
	"io"

	"github.com/duohttp/duohttp/header"
)

// Request is the protocol-agnostic inbound request a Handler sees,
// whether it arrived over HTTP/1.x or as one HTTP/2 stream.
type Request struct {
	Method  string
	Path    string
	Host    string // from the Host header or HTTP/2 :authority
	Proto   string // "HTTP/1.0", "HTTP/1.1", "HTTP/2.0"
	Headers *header.Map
	Body    io.Reader
}

// ResponseWriter is how a Handler emits a response. Header() returns
// the map to populate before the first Write/WriteHeader call — the
// wire framing (Content-Length vs chunked vs HTTP/2 DATA) is the
// transport's concern, not the handler's, mirroring the teacher's
// fasthttp.RequestCtx split between header map and body writer.
type ResponseWriter interface {
	Header() *header.Map
	WriteHeader(statusCode int)
	Write(p []byte) (int, error)
}

// Handler processes one request/response exchange. On HTTP/2, spec
// §4.8 step 5 has each stream spawn its own handler invocation; the h2
// connection driver does that goroutine spawn, not the Handler itself.
type Handler func(w ResponseWriter, r *Request)
