package h1

import (
	"bufio"
	"io"
	"sync"

	"github.com/duohttp/duohttp/header"
	"github.com/duohttp/duohttp/streamio"
)

func noBodyStatus(code int) bool {
	return (code >= 100 && code < 200) || code == 204 || code == 304
}

// IncomingRequest is a request line plus headers plus a body stream,
// read off the wire by ReadRequest.
type IncomingRequest struct {
	Line     RequestLine
	Headers  *header.Map
	Body     streamio.Stream
	BodyMode BodyMode
}

var reqPool = sync.Pool{New: func() interface{} { return &IncomingRequest{Headers: header.NewMap()} }}

// AcquireRequest returns a pooled IncomingRequest ready for reuse.
func AcquireRequest() *IncomingRequest {
	return reqPool.Get().(*IncomingRequest)
}

// ReleaseRequest resets r and returns it to the pool.
func ReleaseRequest(r *IncomingRequest) {
	r.Headers.Reset()
	r.Body = nil
	r.Line = RequestLine{}
	reqPool.Put(r)
}

// ReadRequest parses a request line and headers from br and selects
// the body stream per spec §4.6. The caller drains or discards Body
// before reading the next request on the same connection.
func ReadRequest(br *bufio.Reader) (*IncomingRequest, error) {
	r := AcquireRequest()

	line, err := ReadRequestLine(br)
	if err != nil {
		ReleaseRequest(r)
		return nil, err
	}
	r.Line = line

	if err := ReadHeaders(br, r.Headers); err != nil {
		ReleaseRequest(r)
		return nil, err
	}

	body, mode, err := ReadBody(br, r.Headers, true, ResponseBodyExpectation{})
	if err != nil {
		ReleaseRequest(r)
		return nil, err
	}
	r.Body, r.BodyMode = body, mode
	return r, nil
}

// IncomingResponse is a status line plus headers plus a body stream.
type IncomingResponse struct {
	Line     StatusLine
	Headers  *header.Map
	Body     streamio.Stream
	BodyMode BodyMode
}

var respPool = sync.Pool{New: func() interface{} { return &IncomingResponse{Headers: header.NewMap()} }}

// AcquireResponse returns a pooled IncomingResponse ready for reuse.
func AcquireResponse() *IncomingResponse {
	return respPool.Get().(*IncomingResponse)
}

// ReleaseResponse resets r and returns it to the pool.
func ReleaseResponse(r *IncomingResponse) {
	r.Headers.Reset()
	r.Body = nil
	r.Line = StatusLine{}
	respPool.Put(r)
}

// ReadResponse parses a status line and headers from br and selects
// the body stream, given whether the originating request used HEAD
// (HEAD responses never carry a body regardless of their headers).
func ReadResponse(br *bufio.Reader, isHeadRequest bool) (*IncomingResponse, error) {
	r := AcquireResponse()

	line, err := ReadStatusLine(br)
	if err != nil {
		ReleaseResponse(r)
		return nil, err
	}
	r.Line = line

	if err := ReadHeaders(br, r.Headers); err != nil {
		ReleaseResponse(r)
		return nil, err
	}

	exp := ResponseBodyExpectation{IsHead: isHeadRequest, StatusNoBody: noBodyStatus(line.Code)}
	body, mode, err := ReadBody(br, r.Headers, false, exp)
	if err != nil {
		ReleaseResponse(r)
		return nil, err
	}
	r.Body, r.BodyMode = body, mode
	return r, nil
}

// WriteRequest writes a full request: line, headers, then body if
// bodyReader is non-nil. chunked selects the body's wire framing;
// the caller is responsible for setting the matching Content-Length
// or Transfer-Encoding header before calling this.
func WriteRequest(bw *bufio.Writer, line RequestLine, h *header.Map, bodyReader io.Reader, chunked bool) error {
	if err := WriteRequestLine(bw, line); err != nil {
		return err
	}
	if err := WriteHeaders(bw, h); err != nil {
		return err
	}
	return writeBodyFrom(bw, bodyReader, chunked)
}

// WriteResponse writes a full response: line, headers, then body if
// bodyReader is non-nil.
func WriteResponse(bw *bufio.Writer, line StatusLine, h *header.Map, bodyReader io.Reader, chunked bool) error {
	if err := WriteStatusLine(bw, line); err != nil {
		return err
	}
	if err := WriteHeaders(bw, h); err != nil {
		return err
	}
	return writeBodyFrom(bw, bodyReader, chunked)
}

func writeBodyFrom(bw *bufio.Writer, bodyReader io.Reader, chunked bool) error {
	if bodyReader == nil {
		return bw.Flush()
	}
	dst := WriteBody(bw, chunked)
	if _, err := io.Copy(dst, bodyReader); err != nil {
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}
	return bw.Flush()
}
