package client

import (
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/duohttp/duohttp/h2"
	"github.com/duohttp/duohttp/header"
)

// h2Transport speaks HTTP/2 over one Session, multiplexing up to the
// peer's MaxConcurrentStreams requests concurrently — the teacher's
// client.go ClientStream/reader-channel pattern, rehosted on the
// shared h2.Session engine instead of a bespoke per-client frame loop.
type h2Transport struct {
	sess *h2.Session

	mu      sync.Mutex
	pending map[uint32]chan h2Result
	idle    idleTimer
}

type h2Result struct {
	fields []h2.HeaderField
	err    error
}

func newH2Transport(sess *h2.Session) *h2Transport {
	t := &h2Transport{sess: sess, pending: make(map[uint32]chan h2Result)}
	sess.SetHandlers(nil, t.onResponse, nil, nil)
	go sess.Run()
	return t
}

func (t *h2Transport) onResponse(sess *h2.Session, strm *h2.Stream, fields []h2.HeaderField, endStream bool) {
	t.mu.Lock()
	ch, ok := t.pending[strm.ID()]
	t.mu.Unlock()
	if !ok {
		return
	}
	ch <- h2Result{fields: fields}
}

func (t *h2Transport) Idle() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending) < int(t.sess.PeerSettings().MaxConcurrentStreams)
}

func (t *h2Transport) Closed() bool { return t.sess.IsClosed() }

func (t *h2Transport) Close() error { return t.sess.Close(h2.NoError, "client closing") }

func (t *h2Transport) RoundTrip(req *Request) (*Response, error) {
	strm := t.sess.AllocateStream()

	ch := make(chan h2Result, 1)
	t.mu.Lock()
	t.pending[strm.ID()] = ch
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		delete(t.pending, strm.ID())
		t.idle.touch()
		t.mu.Unlock()
	}()

	fields := requestFields(req)
	hasBody := req.Body != nil

	if err := t.sess.WriteHeaders(strm, fields, !hasBody); err != nil {
		return nil, err
	}

	if hasBody {
		buf := make([]byte, 16*1024)
		for {
			n, rerr := req.Body.Read(buf)
			if n > 0 {
				last := rerr == io.EOF
				if _, werr := t.sess.WriteData(strm, buf[:n], last); werr != nil {
					return nil, werr
				}
			}
			if rerr == io.EOF {
				break
			}
			if rerr != nil {
				return nil, rerr
			}
		}
	}

	res := <-ch
	if res.err != nil {
		return nil, res.err
	}

	status := 0
	h := header.NewMap()
	for _, f := range res.fields {
		if f.Key() == ":status" {
			status, _ = strconv.Atoi(f.Value())
			continue
		}
		h.Insert(f.Key(), f.Value())
	}
	if status == 0 {
		return nil, fmt.Errorf("client: response missing :status pseudo-header")
	}

	return &Response{
		StatusCode: status,
		Headers:    h,
		Body:       io.NopCloser(&streamEOFReader{strm}),
	}, nil
}

// requestFields builds the HPACK-ready pseudo+regular header list for
// an outbound HTTP/2 request, mirroring the teacher's writeRequest
// field ordering (authority, method, path, scheme, then the rest).
func requestFields(req *Request) []h2.HeaderField {
	fields := make([]h2.HeaderField, 0, 4+req.Headers.Len())
	add := func(k, v string) {
		var hf h2.HeaderField
		hf.Set(k, v)
		fields = append(fields, hf)
	}
	add(":authority", req.Host)
	add(":method", req.Method)
	add(":path", req.Path)
	scheme := "https"
	if req.Headers != nil {
		if v, ok := req.Headers.Get(":scheme-override"); ok {
			scheme = v
		}
	}
	add(":scheme", scheme)
	if req.Headers != nil {
		req.Headers.VisitAll(func(name, value string) {
			if name == ":scheme-override" || h2.IsConnectionSpecific([]byte(name)) {
				return
			}
			add(name, value)
		})
	}
	return fields
}

// streamEOFReader translates h2.ErrEndOfStream into io.EOF so a
// Response.Body behaves like any other io.Reader.
type streamEOFReader struct {
	s *h2.Stream
}

func (r *streamEOFReader) Read(p []byte) (int, error) {
	n, err := r.s.Read(p)
	if err == h2.ErrEndOfStream {
		err = io.EOF
	}
	return n, err
}
