package client

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/duohttp/duohttp/h1"
	"github.com/duohttp/duohttp/header"
)

// h1Transport speaks HTTP/1.x over a single connection. Only one
// request may be in flight at a time (spec §4.7's pool models
// "locking a connection" as obtaining a stream slot for HTTP/2; for
// HTTP/1.x a connection itself is the slot).
type h1Transport struct {
	mu     sync.Mutex
	conn   net.Conn
	br     *bufio.Reader
	bw     *bufio.Writer
	busy   bool
	closed bool
	idle   idleTimer
}

func newH1Transport(conn net.Conn) *h1Transport {
	return &h1Transport{
		conn: conn,
		br:   bufio.NewReader(conn),
		bw:   bufio.NewWriter(conn),
	}
}

func (t *h1Transport) Idle() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.busy && !t.closed
}

func (t *h1Transport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *h1Transport) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	return t.conn.Close()
}

func (t *h1Transport) RoundTrip(req *Request) (*Response, error) {
	t.mu.Lock()
	if t.closed || t.busy {
		t.mu.Unlock()
		return nil, fmt.Errorf("client: h1 transport not available")
	}
	t.busy = true
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.busy = false
		t.idle.touch()
		t.mu.Unlock()
	}()

	h := req.Headers
	if h == nil {
		h = header.NewMap()
	}
	if !h.Contains("Host") {
		h.Insert("Host", req.Host)
	}

	chunked := false
	if req.Body != nil && !h.Contains("Content-Length") && !h.Contains("Transfer-Encoding") {
		chunked = true
		h.Set("Transfer-Encoding", "chunked")
	}

	line := h1.RequestLine{Method: req.Method, Target: req.Path, Proto: "HTTP/1.1"}
	if err := h1.WriteRequest(t.bw, line, h, req.Body, chunked); err != nil {
		t.Close()
		return nil, err
	}

	resp, err := h1.ReadResponse(t.br, req.Method == "HEAD")
	if err != nil {
		t.Close()
		return nil, err
	}

	release := func() { h1.ReleaseResponse(resp) }
	if resp.BodyMode == h1.BodyUntilClose {
		// a close-delimited body owns the rest of the connection: the
		// transport is taken out of reuse now and the connection is
		// closed when the body is.
		t.mu.Lock()
		t.closed = true
		t.mu.Unlock()
		release = func() {
			h1.ReleaseResponse(resp)
			t.conn.Close()
		}
	} else if !h1.Persistent("HTTP/1.1", h, resp.Headers) {
		defer t.Close()
	}

	return &Response{
		StatusCode: resp.Line.Code,
		Headers:    resp.Headers,
		Body:       bodyCloser{resp.Body, release},
	}, nil
}

// bodyCloser adapts a streamio.Stream (Read+Close) into an
// io.ReadCloser that also returns the pooled h1 response on Close.
type bodyCloser struct {
	r        io.Reader
	onClosed func()
}

func (b bodyCloser) Read(p []byte) (int, error) { return b.r.Read(p) }
func (b bodyCloser) Close() error {
	var err error
	if c, ok := b.r.(io.Closer); ok {
		err = c.Close()
	}
	b.onClosed()
	return err
}
