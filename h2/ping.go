package h2

import (
	"sync"

	"github.com/valyala/fastrand"
)

var pingPool = sync.Pool{New: func() interface{} { return &Ping{} }}

func acquirePing() *Ping { return pingPool.Get().(*Ping) }

func releasePing(p *Ping) {
	p.Reset()
	pingPool.Put(p)
}

// Ping represents a PING frame: an 8-byte opaque round-trip probe.
//
// https://httpwg.org/specs/rfc7540.html#PING
type Ping struct {
	ack  bool
	data [8]byte
}

func (p *Ping) Type() FrameType { return FramePing }

func (p *Ping) Reset() {
	p.ack = false
	p.data = [8]byte{}
}

func (p *Ping) Ack() bool      { return p.ack }
func (p *Ping) SetAck(v bool)  { p.ack = v }
func (p *Ping) Data() []byte   { return p.data[:] }
func (p *Ping) SetData(b []byte) { copy(p.data[:], b) }

// SetRandomData fills the opaque payload with pseudo-random bytes, so
// concurrently in-flight pings can be told apart by the waiter table.
func (p *Ping) SetRandomData() {
	var rng fastrand.RNG
	for i := 0; i < len(p.data); i += 4 {
		uint32ToBytes(p.data[i:], rng.Uint32())
	}
}

func (p *Ping) Deserialize(frh *FrameHeader) error {
	if len(frh.payload) < 8 {
		return ErrMissingBytes
	}
	p.ack = frh.Flags().Has(FlagAck)
	copy(p.data[:], frh.payload)
	return nil
}

func (p *Ping) Serialize(frh *FrameHeader) {
	if p.ack {
		frh.SetFlags(frh.Flags().Add(FlagAck))
	}
	frh.setPayload(p.data[:])
}
