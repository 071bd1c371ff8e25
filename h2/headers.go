package h2

import "sync"

var headersPool = sync.Pool{New: func() interface{} { return &Headers{} }}

func acquireHeaders() *Headers {
	return headersPool.Get().(*Headers)
}

func releaseHeaders(h *Headers) {
	h.Reset()
	headersPool.Put(h)
}

// Headers represents a HEADERS frame.
//
// https://httpwg.org/specs/rfc7540.html#HEADERS
type Headers struct {
	padding    bool
	endStream  bool
	endHeaders bool
	dep        uint32
	weight     byte
	exclusive  bool
	rawHeaders []byte
}

func (h *Headers) Type() FrameType { return FrameHeaders }

func (h *Headers) Reset() {
	h.padding = false
	h.endStream = false
	h.endHeaders = false
	h.dep = 0
	h.weight = 0
	h.exclusive = false
	h.rawHeaders = h.rawHeaders[:0]
}

func (h *Headers) Headers() []byte       { return h.rawHeaders }
func (h *Headers) SetHeaders(b []byte)   { h.rawHeaders = append(h.rawHeaders[:0], b...) }
func (h *Headers) AppendHeaders(b []byte) { h.rawHeaders = append(h.rawHeaders, b...) }

func (h *Headers) EndStream() bool     { return h.endStream }
func (h *Headers) SetEndStream(v bool) { h.endStream = v }
func (h *Headers) EndHeaders() bool     { return h.endHeaders }
func (h *Headers) SetEndHeaders(v bool) { h.endHeaders = v }
func (h *Headers) StreamDep() uint32    { return h.dep }
func (h *Headers) SetStreamDep(d uint32) { h.dep = d }
func (h *Headers) Weight() byte         { return h.weight }
func (h *Headers) SetWeight(w byte)     { h.weight = w }
func (h *Headers) Exclusive() bool      { return h.exclusive }
func (h *Headers) SetExclusive(v bool)  { h.exclusive = v }

func (h *Headers) Deserialize(frh *FrameHeader) error {
	flags := frh.Flags()
	payload := frh.payload

	if flags.Has(FlagPadded) {
		p, err := cutPadding(payload, frh.Len())
		if err != nil {
			return err
		}
		payload = p
	}

	if flags.Has(FlagPriority) {
		if len(payload) < 5 {
			return ErrMissingBytes
		}
		raw := bytesToUint32(payload)
		h.exclusive = raw&(1<<31) != 0
		h.dep = raw & (1<<31 - 1)
		h.weight = payload[4]
		payload = payload[5:]
	}

	h.endStream = flags.Has(FlagEndStream)
	h.endHeaders = flags.Has(FlagEndHeaders)
	h.rawHeaders = append(h.rawHeaders[:0], payload...)
	return nil
}

func (h *Headers) Serialize(frh *FrameHeader) {
	if h.endStream {
		frh.SetFlags(frh.Flags().Add(FlagEndStream))
	}
	if h.endHeaders {
		frh.SetFlags(frh.Flags().Add(FlagEndHeaders))
	}

	payload := frh.payload[:0]
	if h.padding {
		frh.SetFlags(frh.Flags().Add(FlagPadded))
		payload = append(payload, 0)
	}
	if h.weight > 0 {
		frh.SetFlags(frh.Flags().Add(FlagPriority))
		dep := h.dep
		if h.exclusive {
			dep |= 1 << 31
		}
		payload = appendUint32(payload, dep)
		payload = append(payload, h.weight)
	}
	payload = append(payload, h.rawHeaders...)
	frh.setPayload(payload)
}
