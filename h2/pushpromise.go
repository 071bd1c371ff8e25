package h2

import "sync"

var pushPromisePool = sync.Pool{New: func() interface{} { return &PushPromise{} }}

func acquirePushPromise() *PushPromise { return pushPromisePool.Get().(*PushPromise) }

func releasePushPromise(pp *PushPromise) {
	pp.Reset()
	pushPromisePool.Put(pp)
}

// PushPromise represents a PUSH_PROMISE frame: the server-initiated
// announcement of a stream it is about to push.
//
// https://httpwg.org/specs/rfc7540.html#PUSH_PROMISE
type PushPromise struct {
	endHeaders bool
	promised   uint32
	rawHeaders []byte
}

func (pp *PushPromise) Type() FrameType { return FramePushPromise }

func (pp *PushPromise) Reset() {
	pp.endHeaders = false
	pp.promised = 0
	pp.rawHeaders = pp.rawHeaders[:0]
}

func (pp *PushPromise) PromisedStreamID() uint32     { return pp.promised }
func (pp *PushPromise) SetPromisedStreamID(id uint32) { pp.promised = id & (1<<31 - 1) }
func (pp *PushPromise) Headers() []byte               { return pp.rawHeaders }
func (pp *PushPromise) SetHeaders(b []byte)           { pp.rawHeaders = append(pp.rawHeaders[:0], b...) }
func (pp *PushPromise) EndHeaders() bool               { return pp.endHeaders }
func (pp *PushPromise) SetEndHeaders(v bool)           { pp.endHeaders = v }

func (pp *PushPromise) Deserialize(frh *FrameHeader) error {
	payload := frh.payload
	if frh.Flags().Has(FlagPadded) {
		p, err := cutPadding(payload, frh.Len())
		if err != nil {
			return err
		}
		payload = p
	}
	if len(payload) < 4 {
		return ErrMissingBytes
	}

	pp.promised = bytesToUint32(payload) & (1<<31 - 1)
	pp.rawHeaders = append(pp.rawHeaders[:0], payload[4:]...)
	pp.endHeaders = frh.Flags().Has(FlagEndHeaders)
	return nil
}

func (pp *PushPromise) Serialize(frh *FrameHeader) {
	if pp.endHeaders {
		frh.SetFlags(frh.Flags().Add(FlagEndHeaders))
	}
	payload := appendUint32(frh.payload[:0], pp.promised)
	payload = append(payload, pp.rawHeaders...)
	frh.setPayload(payload)
}
