// Package h2 implements the HTTP/2 framing, flow-control, stream and
// session machinery described by RFC 7540: a multiplexed session that
// exposes each logical request/response exchange as a byte-oriented
// duplex stream.
package h2

import (
	"fmt"
)

// FrameType identifies the kind of an HTTP/2 frame.
//
// https://httpwg.org/specs/rfc7540.html#FrameTypes
type FrameType uint8

const (
	FrameData         FrameType = 0x0
	FrameHeaders      FrameType = 0x1
	FramePriority     FrameType = 0x2
	FrameResetStream  FrameType = 0x3
	FrameSettings     FrameType = 0x4
	FramePushPromise  FrameType = 0x5
	FramePing         FrameType = 0x6
	FrameGoAway       FrameType = 0x7
	FrameWindowUpdate FrameType = 0x8
	FrameContinuation FrameType = 0x9

	minFrameType = FrameData
	maxFrameType = FrameContinuation
)

func (t FrameType) String() string {
	switch t {
	case FrameData:
		return "DATA"
	case FrameHeaders:
		return "HEADERS"
	case FramePriority:
		return "PRIORITY"
	case FrameResetStream:
		return "RST_STREAM"
	case FrameSettings:
		return "SETTINGS"
	case FramePushPromise:
		return "PUSH_PROMISE"
	case FramePing:
		return "PING"
	case FrameGoAway:
		return "GOAWAY"
	case FrameWindowUpdate:
		return "WINDOW_UPDATE"
	case FrameContinuation:
		return "CONTINUATION"
	}
	return fmt.Sprintf("FrameType(%#x)", uint8(t))
}

// FrameFlags are the per-frame-type flag bits.
//
// A handful of bit positions are reused across frame types (e.g. 0x1
// means ACK on SETTINGS/PING but END_STREAM on DATA/HEADERS); we keep
// one type and let each frame's Deserialize/Serialize interpret it in
// context, same as the teacher package does.
type FrameFlags uint8

const (
	FlagAck        FrameFlags = 0x1
	FlagEndStream  FrameFlags = 0x1
	FlagEndHeaders FrameFlags = 0x4
	FlagPadded     FrameFlags = 0x8
	FlagPriority   FrameFlags = 0x20
)

// Has reports whether f contains all bits of other.
func (f FrameFlags) Has(other FrameFlags) bool { return f&other == other }

// Add returns f with other's bits set.
func (f FrameFlags) Add(other FrameFlags) FrameFlags { return f | other }

// Delete returns f with other's bits cleared.
func (f FrameFlags) Delete(other FrameFlags) FrameFlags { return f &^ other }

// Frame is the payload of a single HTTP/2 frame. Concrete
// implementations (Data, Headers, Settings, ...) are acquired through
// AcquireFrame and reused through a sync.Pool; a Frame instance MUST
// NOT be used concurrently.
type Frame interface {
	Type() FrameType
	Reset()
	// Deserialize parses frh's raw payload into the frame.
	Deserialize(frh *FrameHeader) error
	// Serialize writes the frame's fields into frh's payload/flags.
	Serialize(frh *FrameHeader)
}

// FrameWithHeaders is implemented by frames that carry a header-block
// fragment: HEADERS, PUSH_PROMISE and CONTINUATION.
type FrameWithHeaders interface {
	Frame
	Headers() []byte
}

// AcquireFrame returns a pooled Frame implementation for t.
func AcquireFrame(t FrameType) Frame {
	switch t {
	case FrameData:
		return acquireData()
	case FrameHeaders:
		return acquireHeaders()
	case FramePriority:
		return acquirePriority()
	case FrameResetStream:
		return acquireRstStream()
	case FrameSettings:
		return acquireSettings()
	case FramePushPromise:
		return acquirePushPromise()
	case FramePing:
		return acquirePing()
	case FrameGoAway:
		return acquireGoAway()
	case FrameWindowUpdate:
		return acquireWindowUpdate()
	case FrameContinuation:
		return acquireContinuation()
	}
	return nil
}

// ReleaseFrame returns fr to its pool.
func ReleaseFrame(fr Frame) {
	if fr == nil {
		return
	}
	switch t := fr.(type) {
	case *Data:
		releaseData(t)
	case *Headers:
		releaseHeaders(t)
	case *Priority:
		releasePriority(t)
	case *RstStream:
		releaseRstStream(t)
	case *Settings:
		releaseSettings(t)
	case *PushPromise:
		releasePushPromise(t)
	case *Ping:
		releasePing(t)
	case *GoAway:
		releaseGoAway(t)
	case *WindowUpdate:
		releaseWindowUpdate(t)
	case *Continuation:
		releaseContinuation(t)
	}
}
