package h2

import (
	"bufio"
	"io"
	"sync"
)

const (
	// DefaultFrameHeaderSize is the fixed 9-byte frame header size.
	//
	// https://httpwg.org/specs/rfc7540.html#FrameHeader
	DefaultFrameHeaderSize = 9

	defaultMaxFrameSize = 1 << 14
)

var frameHeaderPool = sync.Pool{
	New: func() interface{} { return &FrameHeader{} },
}

// FrameHeader is the 9-byte frame header plus its (possibly still
// framed-but-undecoded) payload. Use AcquireFrameHeader/
// ReleaseFrameHeader to recycle instances; a FrameHeader instance
// MUST NOT be used from more than one goroutine at a time.
type FrameHeader struct {
	length uint32 // 24 bits
	kind   FrameType
	flags  FrameFlags
	stream uint32 // 31 bits

	maxLen uint32 // negotiated MAX_FRAME_SIZE for reads, 0 = unset

	raw     [DefaultFrameHeaderSize]byte
	payload []byte

	body Frame
}

// AcquireFrameHeader returns a FrameHeader from the pool.
func AcquireFrameHeader() *FrameHeader {
	frh := frameHeaderPool.Get().(*FrameHeader)
	frh.Reset()
	return frh
}

// ReleaseFrameHeader releases frh and its body back to their pools.
func ReleaseFrameHeader(frh *FrameHeader) {
	if frh == nil {
		return
	}
	ReleaseFrame(frh.body)
	frh.body = nil
	frameHeaderPool.Put(frh)
}

// Reset clears frh for reuse.
func (frh *FrameHeader) Reset() {
	frh.length = 0
	frh.kind = 0
	frh.flags = 0
	frh.stream = 0
	frh.maxLen = defaultMaxFrameSize
	frh.payload = frh.payload[:0]
	frh.body = nil
}

func (frh *FrameHeader) Type() FrameType   { return frh.kind }
func (frh *FrameHeader) Flags() FrameFlags { return frh.flags }
func (frh *FrameHeader) SetFlags(f FrameFlags) { frh.flags = f }
func (frh *FrameHeader) Stream() uint32     { return frh.stream }
func (frh *FrameHeader) SetStream(id uint32) { frh.stream = id & (1<<31 - 1) }
func (frh *FrameHeader) Len() int           { return int(frh.length) }
func (frh *FrameHeader) MaxLen() uint32     { return frh.maxLen }
func (frh *FrameHeader) SetMaxLen(n uint32) { frh.maxLen = n }

// Body returns the decoded/staged frame payload.
func (frh *FrameHeader) Body() Frame { return frh.body }

// SetBody attaches fr as frh's payload, adopting its frame type.
func (frh *FrameHeader) SetBody(fr Frame) {
	if fr == nil {
		panic("h2: FrameHeader.SetBody(nil)")
	}
	frh.kind = fr.Type()
	frh.body = fr
}

func (frh *FrameHeader) setPayload(b []byte) {
	frh.payload = append(frh.payload[:0], b...)
}

func (frh *FrameHeader) appendPayload(b []byte) {
	frh.payload = append(frh.payload, b...)
}

func (frh *FrameHeader) checkLen() error {
	if frh.maxLen != 0 && frh.length > frh.maxLen {
		return ErrPayloadExceeds
	}
	return nil
}

func bytesToUint24(b []byte) uint32 {
	_ = b[2]
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

func uint24ToBytes(b []byte, n uint32) {
	_ = b[2]
	b[0] = byte(n >> 16)
	b[1] = byte(n >> 8)
	b[2] = byte(n)
}

func bytesToUint32(b []byte) uint32 {
	_ = b[3]
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func uint32ToBytes(b []byte, n uint32) {
	_ = b[3]
	b[0] = byte(n >> 24)
	b[1] = byte(n >> 16)
	b[2] = byte(n >> 8)
	b[3] = byte(n)
}

func appendUint32(dst []byte, n uint32) []byte {
	return append(dst, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
}

func (frh *FrameHeader) parseValues(h []byte) {
	frh.length = bytesToUint24(h[:3])
	frh.kind = FrameType(h[3])
	frh.flags = FrameFlags(h[4])
	frh.stream = bytesToUint32(h[5:]) & (1<<31 - 1)
}

func (frh *FrameHeader) packHeader(h []byte) {
	uint24ToBytes(h[:3], frh.length)
	h[3] = byte(frh.kind)
	h[4] = byte(frh.flags)
	uint32ToBytes(h[5:], frh.stream)
}

// ReadFrameFrom reads one frame (header + payload) from br, enforcing
// the default MAX_FRAME_SIZE.
func ReadFrameFrom(br *bufio.Reader) (*FrameHeader, error) {
	return ReadFrameFromWithSize(br, defaultMaxFrameSize)
}

// ReadFrameFromWithSize reads one frame enforcing max as the
// negotiated MAX_FRAME_SIZE (0 disables the check).
func ReadFrameFromWithSize(br *bufio.Reader, max uint32) (*FrameHeader, error) {
	frh := AcquireFrameHeader()
	frh.maxLen = max

	if err := frh.readFrom(br); err != nil {
		ReleaseFrameHeader(frh)
		return nil, err
	}
	return frh, nil
}

func (frh *FrameHeader) readFrom(br *bufio.Reader) error {
	header, err := br.Peek(DefaultFrameHeaderSize)
	if err != nil {
		return err
	}
	br.Discard(DefaultFrameHeaderSize)

	frh.parseValues(header)
	if err := frh.checkLen(); err != nil {
		return err
	}

	if frh.kind > maxFrameType {
		// Unknown frame types are ignored by spec, but the payload
		// still needs to be discarded so the stream stays in sync.
		if _, err := br.Discard(int(frh.length)); err != nil {
			return err
		}
		return ErrUnknownFrameType
	}

	frh.body = AcquireFrame(frh.kind)

	if frh.length > 0 {
		n := int(frh.length)
		if cap(frh.payload) < n {
			frh.payload = make([]byte, n)
		} else {
			frh.payload = frh.payload[:n]
		}
		if _, err := io.ReadFull(br, frh.payload); err != nil {
			return err
		}
	}

	return frh.body.Deserialize(frh)
}

// WriteTo serializes frh's body and writes header+payload to w.
func (frh *FrameHeader) WriteTo(w *bufio.Writer) (int64, error) {
	frh.body.Serialize(frh)
	frh.length = uint32(len(frh.payload))

	frh.packHeader(frh.raw[:])

	n, err := w.Write(frh.raw[:])
	if err != nil {
		return int64(n), err
	}
	wn, err := w.Write(frh.payload)
	return int64(n + wn), err
}
