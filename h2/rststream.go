package h2

import "sync"

var rstStreamPool = sync.Pool{New: func() interface{} { return &RstStream{} }}

func acquireRstStream() *RstStream { return rstStreamPool.Get().(*RstStream) }

func releaseRstStream(r *RstStream) {
	r.Reset()
	rstStreamPool.Put(r)
}

// RstStream represents a RST_STREAM frame: immediate stream
// termination.
//
// https://httpwg.org/specs/rfc7540.html#RST_STREAM
type RstStream struct {
	code ErrorCode
}

func (r *RstStream) Type() FrameType      { return FrameResetStream }
func (r *RstStream) Reset()               { r.code = 0 }
func (r *RstStream) Code() ErrorCode      { return r.code }
func (r *RstStream) SetCode(c ErrorCode)  { r.code = c }

func (r *RstStream) Deserialize(frh *FrameHeader) error {
	if len(frh.payload) < 4 {
		return ErrMissingBytes
	}
	r.code = ErrorCode(bytesToUint32(frh.payload))
	return nil
}

func (r *RstStream) Serialize(frh *FrameHeader) {
	frh.setPayload(appendUint32(frh.payload[:0], uint32(r.code)))
}
