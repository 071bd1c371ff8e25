package server

import (
	"bufio"
	"io"
	"net"
	"strconv"

	"github.com/duohttp/duohttp/h2"
	"github.com/duohttp/duohttp/header"
	"github.com/duohttp/duohttp/streamio"
)

// serveH2 drives one HTTP/2 session. Spec §4.8 step 5: "each stream
// spawns its own handler task" — onStream below does exactly that.
func (s *Server) serveH2(conn net.Conn, br *bufio.Reader) {
	// the client preface is still buffered in br (PeekPreface and ALPN
	// dispatch only peek); the server-role Handshake expects it consumed.
	if err := h2.ReadPreface(br); err != nil {
		return
	}
	sess := h2.NewSession(readerConn{br, conn}, h2.RoleServer, s.h2Local, s.Log)
	if err := sess.Handshake(); err != nil {
		return
	}
	sess.SetHandlers(s.onH2Stream, nil, nil, nil)
	sess.Run()
	_ = sess.Wait()
}

// readerConn lets h2.NewSession read through the bufio.Reader that
// already buffered bytes during dispatch, while writes still go
// straight to the connection.
type readerConn struct {
	io.Reader
	net.Conn
}

func (rc readerConn) Read(p []byte) (int, error) { return rc.Reader.Read(p) }

func (s *Server) onH2Stream(sess *h2.Session, strm *h2.Stream, fields []h2.HeaderField, endStream bool) {
	go func() {
		var method, path, authority string
		h := header.NewMap()
		for _, f := range fields {
			switch f.Key() {
			case ":method":
				method = f.Value()
			case ":path":
				path = f.Value()
			case ":authority":
				authority = f.Value()
			case ":scheme":
				// scheme is implied by the session's TLS state; no
				// server-side use for it beyond pseudo-header bookkeeping.
			default:
				h.Insert(f.Key(), f.Value())
			}
		}
		if authority == "" {
			authority, _ = h.Get("host")
		}

		vh := s.vhosts.resolve(authority)
		if vh == nil || vh.Handler == nil {
			_ = sess.WriteHeaders(strm, statusOnly(404), true)
			return
		}

		var body io.Reader = eofTranslator{strm}
		if s.Limits.MaxBodyBytes > 0 {
			body = streamio.NewLimitedStream(body, s.Limits.MaxBodyBytes)
		}

		req := &Request{
			Method:  method,
			Path:    path,
			Host:    authority,
			Proto:   "HTTP/2.0",
			Headers: h,
			Body:    body,
		}

		w := newH2ResponseWriter(sess, strm)
		vh.Handler(w, req)
		w.finish()
	}()
}

// eofTranslator turns h2.ErrEndOfStream into io.EOF for callers that
// expect the ordinary io.Reader contract (e.g. streamio.LimitedStream,
// io.Copy).
type eofTranslator struct{ s *h2.Stream }

func (e eofTranslator) Read(p []byte) (int, error) {
	n, err := e.s.Read(p)
	if err == h2.ErrEndOfStream {
		err = io.EOF
	}
	return n, err
}

func statusOnly(code int) []h2.HeaderField {
	var hf h2.HeaderField
	hf.Set(":status", strconv.Itoa(code))
	return []h2.HeaderField{hf}
}

// h2ResponseWriter streams a handler's output as HTTP/2 DATA frames
// for one stream.
type h2ResponseWriter struct {
	sess    *h2.Session
	strm    *h2.Stream
	headers *header.Map
	status  int
	started bool
}

func newH2ResponseWriter(sess *h2.Session, strm *h2.Stream) *h2ResponseWriter {
	return &h2ResponseWriter{sess: sess, strm: strm, headers: header.NewMap(), status: 200}
}

func (w *h2ResponseWriter) Header() *header.Map { return w.headers }

func (w *h2ResponseWriter) WriteHeader(statusCode int) {
	if w.started {
		return
	}
	w.status = statusCode
	w.flushHeaders(false)
}

func (w *h2ResponseWriter) flushHeaders(endStream bool) {
	if w.started {
		return
	}
	w.started = true
	fields := make([]h2.HeaderField, 0, 1+w.headers.Len())
	var status h2.HeaderField
	status.Set(":status", strconv.Itoa(w.status))
	fields = append(fields, status)
	w.headers.VisitAll(func(name, value string) {
		var hf h2.HeaderField
		hf.Set(name, value)
		fields = append(fields, hf)
	})
	_ = w.sess.WriteHeaders(w.strm, fields, endStream)
}

func (w *h2ResponseWriter) Write(p []byte) (int, error) {
	w.flushHeaders(false)
	return w.sess.WriteData(w.strm, p, false)
}

func (w *h2ResponseWriter) finish() {
	if !w.started {
		w.flushHeaders(true)
		return
	}
	_, _ = w.sess.WriteData(w.strm, nil, true)
}
