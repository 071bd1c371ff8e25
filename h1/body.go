package h1

import (
	"bufio"
	"io"
	"strconv"

	"github.com/duohttp/duohttp/header"
	"github.com/duohttp/duohttp/streamio"
)

// BodyMode identifies which framing rule produced a body reader.
type BodyMode uint8

const (
	BodyNone BodyMode = iota
	BodyChunked
	BodyContentLength
	BodyUntilClose
)

// ResponseBodyExpectation captures the two facts ReadBody needs from
// the request side of an exchange that the response's own headers
// cannot express: whether this is a HEAD response (always bodyless,
// RFC 7230 §3.3) and whether the status code forbids a body.
type ResponseBodyExpectation struct {
	IsHead       bool
	StatusNoBody bool // 1xx, 204, 304
}

// ReadBody selects the body framing mode per spec §4.6's precedence —
// Transfer-Encoding: chunked, else Content-Length, else (responses
// only) read-until-close, else empty — and returns a streamio.Stream
// over the connection's bufio.Reader. The keep-alive state of the
// exchange is not consulted.
//
// isRequest distinguishes the two directions: a request with neither
// header has an empty body (RFC 7230 §3.3.2), but a response may fall
// through to close-delimited framing.
func ReadBody(br *bufio.Reader, h *header.Map, isRequest bool, resp ResponseBodyExpectation) (streamio.Stream, BodyMode, error) {
	if !isRequest && (resp.IsHead || resp.StatusNoBody) {
		return streamio.NewLimitedStream(br, 0), BodyNone, nil
	}

	if te, ok := h.Get("Transfer-Encoding"); ok && hasToken(te, "chunked") {
		return streamio.NewChunkedReader(br), BodyChunked, nil
	}

	if cl, ok := h.Get("Content-Length"); ok {
		n, err := strconv.ParseInt(cl, 10, 64)
		if err != nil || n < 0 {
			return nil, BodyNone, ErrMalformedHeaderLine
		}
		return streamio.NewLimitedStream(br, n), BodyContentLength, nil
	}

	if isRequest {
		return streamio.NewLimitedStream(br, 0), BodyNone, nil
	}
	return untilCloseStream{br}, BodyUntilClose, nil
}

// untilCloseStream reads until the peer closes the connection, the
// only framing left once a response declares neither Transfer-Encoding
// nor Content-Length (spec §4.6).
type untilCloseStream struct {
	br *bufio.Reader
}

func (u untilCloseStream) Read(p []byte) (int, error) { return u.br.Read(p) }
func (u untilCloseStream) LeastSize() int64           { return -1 }
func (u untilCloseStream) Empty() bool                { return false }
func (u untilCloseStream) Close() error                { return nil }

// WriteBody picks the writer-side counterpart: chunked framing when
// the caller asked for it (the length is unknown up front), otherwise
// a plain passthrough since Content-Length framing needs no wire
// transform, only a header declared ahead of time by the caller.
func WriteBody(bw *bufio.Writer, chunked bool) io.WriteCloser {
	if chunked {
		return streamio.NewChunkedWriter(bw)
	}
	return plainBodyWriter{bw}
}

type plainBodyWriter struct {
	bw *bufio.Writer
}

func (p plainBodyWriter) Close() error                { return p.bw.Flush() }
func (p plainBodyWriter) Write(b []byte) (int, error) { return p.bw.Write(b) }
