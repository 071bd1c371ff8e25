package h1

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/duohttp/duohttp/header"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadRequestLine(t *testing.T) {
	br := bufio.NewReader(strings.NewReader("GET /index.html HTTP/1.1\r\n"))
	rl, err := ReadRequestLine(br)
	require.NoError(t, err)
	assert.Equal(t, RequestLine{Method: "GET", Target: "/index.html", Proto: "HTTP/1.1"}, rl)
}

func TestReadStatusLine(t *testing.T) {
	br := bufio.NewReader(strings.NewReader("HTTP/1.1 404 Not Found\r\n"))
	sl, err := ReadStatusLine(br)
	require.NoError(t, err)
	assert.Equal(t, StatusLine{Proto: "HTTP/1.1", Code: 404, Reason: "Not Found"}, sl)
}

func TestReadHeadersJoinsObsFold(t *testing.T) {
	raw := "Host: example.com\r\nX-Long: first\r\n second\r\n\r\n"
	br := bufio.NewReader(strings.NewReader(raw))
	m := header.NewMap()
	require.NoError(t, ReadHeaders(br, m))

	v, ok := m.Get("X-Long")
	require.True(t, ok)
	assert.Equal(t, "first second", v)
}

func TestReadHeadersRejectsMalformedLine(t *testing.T) {
	br := bufio.NewReader(strings.NewReader("not-a-header-line\r\n\r\n"))
	m := header.NewMap()
	assert.Error(t, ReadHeaders(br, m))
}

func TestReadBodyContentLength(t *testing.T) {
	raw := "hello"
	m := header.NewMap()
	m.Set("Content-Length", "5")
	br := bufio.NewReader(strings.NewReader(raw))
	s, mode, err := ReadBody(br, m, true, ResponseBodyExpectation{})
	require.NoError(t, err)
	assert.Equal(t, BodyContentLength, mode)
	got, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestReadBodyChunked(t *testing.T) {
	raw := "5\r\nhello\r\n0\r\n\r\n"
	m := header.NewMap()
	m.Set("Transfer-Encoding", "chunked")
	br := bufio.NewReader(strings.NewReader(raw))
	s, mode, err := ReadBody(br, m, true, ResponseBodyExpectation{})
	require.NoError(t, err)
	assert.Equal(t, BodyChunked, mode)
	got, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestReadBodyRequestWithoutFramingIsEmpty(t *testing.T) {
	m := header.NewMap()
	br := bufio.NewReader(strings.NewReader("leftover"))
	s, mode, err := ReadBody(br, m, true, ResponseBodyExpectation{})
	require.NoError(t, err)
	assert.Equal(t, BodyNone, mode)
	got, _ := io.ReadAll(s)
	assert.Empty(t, got)
}

func TestReadBodyResponseUntilClose(t *testing.T) {
	m := header.NewMap()
	br := bufio.NewReader(strings.NewReader("rest of the body"))
	s, mode, err := ReadBody(br, m, false, ResponseBodyExpectation{})
	require.NoError(t, err)
	assert.Equal(t, BodyUntilClose, mode)
	got, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, "rest of the body", string(got))
}

func TestReadBodyHeadResponseIgnoresContentLength(t *testing.T) {
	m := header.NewMap()
	m.Set("Content-Length", "100")
	br := bufio.NewReader(strings.NewReader(""))
	s, mode, err := ReadBody(br, m, false, ResponseBodyExpectation{IsHead: true})
	require.NoError(t, err)
	assert.Equal(t, BodyNone, mode)
	assert.True(t, s.Empty())
}

func TestWriteRequestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)

	h := header.NewMap()
	h.Insert("Host", "example.com")
	h.Insert("Content-Length", "5")

	require.NoError(t, WriteRequest(bw, RequestLine{Method: "POST", Target: "/", Proto: "HTTP/1.1"}, h, strings.NewReader("hello"), false))

	br := bufio.NewReader(&buf)
	rl, err := ReadRequestLine(br)
	require.NoError(t, err)
	assert.Equal(t, "POST", rl.Method)

	got := header.NewMap()
	require.NoError(t, ReadHeaders(br, got))
	v, _ := got.Get("Host")
	assert.Equal(t, "example.com", v)

	s, mode, err := ReadBody(br, got, true, ResponseBodyExpectation{})
	require.NoError(t, err)
	assert.Equal(t, BodyContentLength, mode)
	body, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
}

func TestWriteResponseChunked(t *testing.T) {
	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)

	h := header.NewMap()
	h.Insert("Transfer-Encoding", "chunked")

	require.NoError(t, WriteResponse(bw, StatusLine{Proto: "HTTP/1.1", Code: 200, Reason: "OK"}, h, strings.NewReader("payload"), true))

	br := bufio.NewReader(&buf)
	sl, err := ReadStatusLine(br)
	require.NoError(t, err)
	assert.Equal(t, 200, sl.Code)

	got := header.NewMap()
	require.NoError(t, ReadHeaders(br, got))

	s, mode, err := ReadBody(br, got, false, ResponseBodyExpectation{})
	require.NoError(t, err)
	assert.Equal(t, BodyChunked, mode)
	body, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(body))
}

func TestParseKeepAlive(t *testing.T) {
	p := ParseKeepAlive("timeout=5, max=100")
	assert.Equal(t, 5, int(p.Timeout.Seconds()))
	assert.Equal(t, 100, p.Max)
	assert.True(t, p.HasTimeout)
	assert.True(t, p.HasMax)
}

func TestPersistentDefaults(t *testing.T) {
	assert.True(t, Persistent("HTTP/1.1", header.NewMap(), header.NewMap()))
	assert.False(t, Persistent("HTTP/1.0", header.NewMap(), header.NewMap()))

	req := header.NewMap()
	req.Set("Connection", "close")
	assert.False(t, Persistent("HTTP/1.1", req, header.NewMap()))
}
