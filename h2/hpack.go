package h2

import (
	"sync"

	"golang.org/x/net/http2/hpack"
)

// HPACK wraps golang.org/x/net/http2/hpack's encoder/decoder pair,
// giving each direction (encode outbound header blocks, decode
// inbound ones) its own dynamic table, as spec §4.1 requires.
//
// The retrieved teacher snapshot's own hpack.go/errors.go files
// predate a refactor and no longer define the HPACK type its
// frameHeader/headers/client/server code calls into — we fill that
// gap with the ecosystem implementation rather than hand-rolling
// Huffman coding and dynamic-table bookkeeping ourselves.
type HPACK struct {
	enc *hpack.Encoder
	buf []byte // scratch destination the encoder writes into

	dec     *hpack.Decoder
	pending []HeaderField
}

// decodedField is an alias of HeaderField used for decode results,
// which are plain values so a caller can range over a whole header
// list without juggling pool lifetimes.
type decodedField = HeaderField

var hpackPool = sync.Pool{
	New: func() interface{} {
		h := &HPACK{}
		h.enc = hpack.NewEncoder(nil)
		h.dec = hpack.NewDecoder(DefaultHeaderTableSize, nil)
		h.enc.SetMaxDynamicTableSize(DefaultHeaderTableSize)
		return h
	},
}

// hpackWriter adapts []byte accumulation to io.Writer for the encoder.
type hpackWriter struct{ h *HPACK }

func (w hpackWriter) Write(p []byte) (int, error) {
	w.h.buf = append(w.h.buf, p...)
	return len(p), nil
}

// AcquireHPACK returns an HPACK codec from the pool.
func AcquireHPACK() *HPACK {
	h := hpackPool.Get().(*HPACK)
	h.enc = hpack.NewEncoder(hpackWriter{h})
	h.dec.SetEmitFunc(func(f hpack.HeaderField) {
		var hf HeaderField
		hf.SetBytes([]byte(f.Name), []byte(f.Value))
		hf.SetSensitive(f.Sensitive)
		h.pending = append(h.pending, hf)
	})
	return h
}

// ReleaseHPACK returns h to the pool. The dynamic tables are reset:
// callers must not release an HPACK whose peer still expects
// previously-indexed entries to remain valid (i.e. only release when
// the owning session is tearing down).
func ReleaseHPACK(h *HPACK) {
	h.buf = h.buf[:0]
	h.pending = h.pending[:0]
	hpackPool.Put(h)
}

// SetMaxTableSize applies a peer-advertised HEADER_TABLE_SIZE to the
// encoder (it bounds how large a dynamic table we may ask the peer's
// decoder to maintain).
func (h *HPACK) SetMaxTableSize(n uint32) { h.enc.SetMaxDynamicTableSize(n) }

// SetMaxDecoderTableSize applies our own advertised HEADER_TABLE_SIZE
// setting to the decoder's table cap.
func (h *HPACK) SetMaxDecoderTableSize(n uint32) { h.dec.SetMaxDynamicTableSize(n) }

// AppendHeaderField HPACK-encodes hf and appends the resulting bytes
// to dst, returning the extended slice. When neverIndex is true the
// field is encoded as "never indexed" (for sensitive values like
// Authorization/Cookie).
func (h *HPACK) AppendHeaderField(dst []byte, hf *HeaderField, neverIndex bool) []byte {
	h.buf = h.buf[:0]
	_ = h.enc.WriteField(hpack.HeaderField{
		Name:      string(hf.KeyBytes()),
		Value:     string(hf.ValueBytes()),
		Sensitive: neverIndex || hf.IsSensitive(),
	})
	return append(dst, h.buf...)
}

// DecodeFull decodes a complete, already-reassembled header block
// (the concatenation of one HEADERS frame's fragment with every
// following CONTINUATION fragment on the same stream, per §4.1),
// enforcing maxHeaderListSize (0 = unlimited) as it goes.
//
// On a size-limit violation it returns ErrHeaderListTooLarge; the
// caller (stream/session layer) is responsible for mapping that to
// RST_STREAM(ENHANCE_YOUR_CALM) without touching dynamic table state
// beyond what was already consumed, exactly as spec §8 requires.
func (h *HPACK) DecodeFull(block []byte, maxHeaderListSize uint32) ([]HeaderField, error) {
	h.pending = h.pending[:0]

	if _, err := h.dec.Write(block); err != nil {
		return nil, ErrCompression
	}
	if err := h.dec.Close(); err != nil {
		return nil, ErrCompression
	}

	if maxHeaderListSize > 0 {
		var total int
		for i := range h.pending {
			total += h.pending[i].Size()
			if uint32(total) > maxHeaderListSize {
				return h.pending, ErrHeaderListTooLarge
			}
		}
	}

	return h.pending, nil
}
