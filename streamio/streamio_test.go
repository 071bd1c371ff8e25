package streamio

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimitedStreamStopsAtN(t *testing.T) {
	l := NewLimitedStream(strings.NewReader("hello world"), 5)
	got, err := io.ReadAll(l)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
	assert.True(t, l.Empty())
}

func TestLimitedStreamReportsUnexpectedEOF(t *testing.T) {
	l := NewLimitedStream(strings.NewReader("hi"), 5)
	_, err := io.ReadAll(l)
	assert.ErrorIs(t, err, ErrUnexpectedEOF)
}

func TestChunkedRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	cw := NewChunkedWriter(&buf)
	_, err := cw.Write([]byte("hello "))
	require.NoError(t, err)
	_, err = cw.Write([]byte("world"))
	require.NoError(t, err)
	require.NoError(t, cw.Close())

	cr := NewChunkedReader(bufio.NewReader(&buf))
	got, err := io.ReadAll(cr)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(got))
}

func TestChunkedReaderIgnoresExtensions(t *testing.T) {
	raw := "4;foo=bar\r\ntest\r\n0\r\n\r\n"
	cr := NewChunkedReader(bufio.NewReader(strings.NewReader(raw)))
	got, err := io.ReadAll(cr)
	require.NoError(t, err)
	assert.Equal(t, "test", string(got))
}

func TestCountingStreamTallies(t *testing.T) {
	c := NewCountingStream(strings.NewReader("0123456789"))
	_, err := io.ReadAll(c)
	require.NoError(t, err)
	assert.EqualValues(t, 10, c.Count())
}

func TestEndCallbackFiresOnce(t *testing.T) {
	calls := 0
	e := NewEndCallbackStream(strings.NewReader("x"), func() { calls++ })
	_, _ = io.ReadAll(e)
	_ = e.Close()
	assert.Equal(t, 1, calls)
}

func TestTimeoutStreamPassesThroughFastReads(t *testing.T) {
	ts := NewTimeoutStream(strings.NewReader("ok"), 50*time.Millisecond)
	got, err := io.ReadAll(ts)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(got))
}

type blockingReader struct{}

func (blockingReader) Read(p []byte) (int, error) {
	select {}
}

func TestTimeoutStreamAbortsOnNoProgress(t *testing.T) {
	ts := NewTimeoutStream(blockingReader{}, 10*time.Millisecond)
	_, err := ts.Read(make([]byte, 1))
	assert.ErrorIs(t, err, ErrReadTimeout)
}

func TestGzipRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	gw := NewGzipWriter(&buf, 6)
	_, err := gw.Write([]byte("payload"))
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	gr, err := NewGzipReader(&buf)
	require.NoError(t, err)
	got, err := io.ReadAll(gr)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))
}

func TestBrotliRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	bw := NewBrotliWriter(&buf, 5)
	_, err := bw.Write([]byte("payload"))
	require.NoError(t, err)
	require.NoError(t, bw.Close())

	br := NewBrotliReader(&buf)
	got, err := io.ReadAll(br)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))
}
