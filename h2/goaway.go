package h2

import "sync"

var goAwayPool = sync.Pool{New: func() interface{} { return &GoAway{} }}

func acquireGoAway() *GoAway { return goAwayPool.Get().(*GoAway) }

func releaseGoAway(g *GoAway) {
	g.Reset()
	goAwayPool.Put(g)
}

// GoAway represents a GOAWAY frame: graceful or immediate shutdown
// notice naming the last stream id the sender will process.
//
// https://httpwg.org/specs/rfc7540.html#GOAWAY
type GoAway struct {
	lastStreamID uint32
	code         ErrorCode
	data         []byte
}

func (g *GoAway) Type() FrameType { return FrameGoAway }

func (g *GoAway) Reset() {
	g.lastStreamID = 0
	g.code = 0
	g.data = g.data[:0]
}

func (g *GoAway) LastStreamID() uint32     { return g.lastStreamID }
func (g *GoAway) SetLastStreamID(id uint32) { g.lastStreamID = id & (1<<31 - 1) }
func (g *GoAway) Code() ErrorCode          { return g.code }
func (g *GoAway) SetCode(c ErrorCode)      { g.code = c }
func (g *GoAway) Data() []byte             { return g.data }
func (g *GoAway) SetData(b []byte)         { g.data = append(g.data[:0], b...) }

// Error satisfies the error interface so a read GOAWAY can be
// returned directly from the session's read loop.
func (g *GoAway) Error() string {
	return NewGoAwayError(g.code, string(g.data)).Error()
}

func (g *GoAway) Deserialize(frh *FrameHeader) error {
	if len(frh.payload) < 8 {
		return ErrMissingBytes
	}
	g.lastStreamID = bytesToUint32(frh.payload) & (1<<31 - 1)
	g.code = ErrorCode(bytesToUint32(frh.payload[4:]))
	if len(frh.payload) > 8 {
		g.data = append(g.data[:0], frh.payload[8:]...)
	}
	return nil
}

func (g *GoAway) Serialize(frh *FrameHeader) {
	payload := appendUint32(frh.payload[:0], g.lastStreamID)
	payload = appendUint32(payload, uint32(g.code))
	payload = append(payload, g.data...)
	frh.setPayload(payload)
}
