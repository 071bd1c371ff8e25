package server

import (
	"bufio"
	"errors"
	"io"
	"net"

	"github.com/duohttp/duohttp/h1"
	"github.com/duohttp/duohttp/header"
	"github.com/duohttp/duohttp/streamio"
)

// serveH1 drives one HTTP/1.x connection through as many keep-alive
// exchanges as the client and server agree to (spec §4.8 steps 4-6).
func (s *Server) serveH1(conn net.Conn, br *bufio.Reader, sni string) {
	bw := bufio.NewWriter(conn)

	for {
		req, err := h1.ReadRequest(br)
		if err != nil {
			if errors.Is(err, h1.ErrHeaderSectionTooLarge) {
				writeSimpleStatus(bw, 413, "Request Header Fields Too Large")
			}
			return
		}

		host, _ := req.Headers.Get("Host")
		if sni != "" {
			host = sni
		}
		if host == "" && req.Line.Proto != "HTTP/1.0" {
			writeSimpleStatus(bw, 400, "Bad Request")
			h1.ReleaseRequest(req)
			return
		}

		vh := s.vhosts.resolve(host)
		if vh == nil || vh.Handler == nil {
			writeSimpleStatus(bw, 404, "Not Found")
			h1.ReleaseRequest(req)
			return
		}

		body := req.Body
		if s.Limits.MaxBodyBytes > 0 {
			body = streamio.NewLimitedStream(req.Body, s.Limits.MaxBodyBytes)
		}

		sreq := &Request{
			Method:  req.Line.Method,
			Path:    req.Line.Target,
			Host:    host,
			Proto:   req.Line.Proto,
			Headers: req.Headers,
			Body:    body,
		}

		w := newH1ResponseWriter(bw, req.Line.Proto, req.Line.Method == "HEAD")
		vh.Handler(w, sreq)
		if err := w.finish(); err != nil {
			h1.ReleaseRequest(req)
			return
		}

		// drain any unread request body before the next exchange
		// (spec §4.7 step 5's pairing rule applies equally server-side).
		_, _ = io.Copy(io.Discard, req.Body)

		persist := h1.Persistent(req.Line.Proto, req.Headers, w.Header())
		h1.ReleaseRequest(req)
		if !persist {
			return
		}
	}
}

func writeSimpleStatus(bw *bufio.Writer, code int, reason string) {
	_ = h1.WriteResponse(bw, h1.StatusLine{Proto: "HTTP/1.1", Code: code, Reason: reason}, header.NewMap(), nil, false)
}

// h1ResponseWriter buffers headers until the first Write/WriteHeader
// call, then streams the body straight to the connection.
type h1ResponseWriter struct {
	bw        *bufio.Writer
	proto     string
	isHead    bool
	headers   *header.Map
	status    int
	started   bool
	chunked   bool
	bodyOut   io.WriteCloser
}

func newH1ResponseWriter(bw *bufio.Writer, proto string, isHead bool) *h1ResponseWriter {
	return &h1ResponseWriter{bw: bw, proto: proto, isHead: isHead, headers: header.NewMap(), status: 200}
}

func (w *h1ResponseWriter) Header() *header.Map { return w.headers }

func (w *h1ResponseWriter) WriteHeader(statusCode int) {
	if w.started {
		return
	}
	w.status = statusCode
	w.flushHeaders()
}

func (w *h1ResponseWriter) flushHeaders() {
	if w.started {
		return
	}
	w.started = true
	if !w.headers.Contains("Content-Length") && !w.headers.Contains("Transfer-Encoding") {
		w.chunked = true
		w.headers.Set("Transfer-Encoding", "chunked")
	}
	_ = h1.WriteStatusLine(w.bw, h1.StatusLine{Proto: w.proto, Code: w.status, Reason: ""})
	_ = h1.WriteHeaders(w.bw, w.headers)
	if !w.isHead {
		w.bodyOut = h1.WriteBody(w.bw, w.chunked)
	}
}

func (w *h1ResponseWriter) Write(p []byte) (int, error) {
	w.flushHeaders()
	if w.isHead || w.bodyOut == nil {
		return len(p), nil
	}
	return w.bodyOut.Write(p)
}

func (w *h1ResponseWriter) finish() error {
	w.flushHeaders()
	if w.bodyOut != nil {
		if err := w.bodyOut.Close(); err != nil {
			return err
		}
	}
	return w.bw.Flush()
}
