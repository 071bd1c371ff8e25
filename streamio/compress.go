package streamio

import (
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/valyala/bytebufferpool"
)

// Compression transformers wrap a body stream with a codec. They are
// never invoked by the h2/h1 session engines themselves — per spec §1
// compression is explicitly out of core protocol scope — and the
// server and client packages do not apply them either; a caller wraps
// a body stream with one explicitly.

// GzipReader decompresses a gzip-coded body.
type GzipReader struct {
	zr *gzip.Reader
}

func NewGzipReader(r io.Reader) (*GzipReader, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	return &GzipReader{zr: zr}, nil
}

func (g *GzipReader) Read(p []byte) (int, error) { return g.zr.Read(p) }
func (g *GzipReader) Close() error                { return g.zr.Close() }
func (g *GzipReader) LeastSize() int64            { return -1 }
func (g *GzipReader) Empty() bool                 { return false }

// GzipWriter gzip-compresses everything written to it. It takes a
// buffer from a bytebufferpool.Pool when created and returns it on
// Close; the compressor writes straight to w and does not use it.
type GzipWriter struct {
	zw  *gzip.Writer
	buf *bytebufferpool.ByteBuffer
}

var gzipBufPool bytebufferpool.Pool

func NewGzipWriter(w io.Writer, level int) *GzipWriter {
	zw, _ := gzip.NewWriterLevel(w, level)
	return &GzipWriter{zw: zw, buf: gzipBufPool.Get()}
}

func (g *GzipWriter) Write(p []byte) (int, error) { return g.zw.Write(p) }
func (g *GzipWriter) Flush() error                 { return g.zw.Flush() }
func (g *GzipWriter) Close() error {
	err := g.zw.Close()
	g.buf.Reset()
	gzipBufPool.Put(g.buf)
	return err
}

// DeflateReader decompresses a "deflate"-coded body.
type DeflateReader struct {
	r io.ReadCloser
}

func NewDeflateReader(r io.Reader) *DeflateReader {
	return &DeflateReader{r: flate.NewReader(r)}
}

func (d *DeflateReader) Read(p []byte) (int, error) { return d.r.Read(p) }
func (d *DeflateReader) Close() error                { return d.r.Close() }
func (d *DeflateReader) LeastSize() int64            { return -1 }
func (d *DeflateReader) Empty() bool                 { return false }

// DeflateWriter deflate-compresses everything written to it.
type DeflateWriter struct {
	zw *flate.Writer
}

func NewDeflateWriter(w io.Writer, level int) *DeflateWriter {
	zw, _ := flate.NewWriter(w, level)
	return &DeflateWriter{zw: zw}
}

func (d *DeflateWriter) Write(p []byte) (int, error) { return d.zw.Write(p) }
func (d *DeflateWriter) Flush() error                 { return d.zw.Flush() }
func (d *DeflateWriter) Close() error                 { return d.zw.Close() }

// BrotliReader decompresses a brotli-coded body.
type BrotliReader struct {
	r *brotli.Reader
}

func NewBrotliReader(r io.Reader) *BrotliReader {
	return &BrotliReader{r: brotli.NewReader(r)}
}

func (b *BrotliReader) Read(p []byte) (int, error) { return b.r.Read(p) }
func (b *BrotliReader) Close() error                { return nil }
func (b *BrotliReader) LeastSize() int64            { return -1 }
func (b *BrotliReader) Empty() bool                 { return false }

// BrotliWriter brotli-compresses everything written to it.
type BrotliWriter struct {
	w *brotli.Writer
}

func NewBrotliWriter(w io.Writer, quality int) *BrotliWriter {
	return &BrotliWriter{w: brotli.NewWriterLevel(w, quality)}
}

func (b *BrotliWriter) Write(p []byte) (int, error) { return b.w.Write(p) }
func (b *BrotliWriter) Flush() error                 { return b.w.Flush() }
func (b *BrotliWriter) Close() error                 { return b.w.Close() }
