package h2

import "sync"

var priorityPool = sync.Pool{New: func() interface{} { return &Priority{} }}

func acquirePriority() *Priority { return priorityPool.Get().(*Priority) }

func releasePriority(p *Priority) {
	p.Reset()
	priorityPool.Put(p)
}

// Priority represents a PRIORITY frame: an advisory scheduling hint.
//
// https://httpwg.org/specs/rfc7540.html#PRIORITY
type Priority struct {
	dep       uint32
	exclusive bool
	weight    byte
}

func (p *Priority) Type() FrameType { return FramePriority }

func (p *Priority) Reset() {
	p.dep = 0
	p.exclusive = false
	p.weight = 0
}

func (p *Priority) StreamDep() uint32    { return p.dep }
func (p *Priority) SetStreamDep(d uint32) { p.dep = d & (1<<31 - 1) }
func (p *Priority) Exclusive() bool       { return p.exclusive }
func (p *Priority) SetExclusive(v bool)   { p.exclusive = v }
func (p *Priority) Weight() byte          { return p.weight }
func (p *Priority) SetWeight(w byte)      { p.weight = w }

func (p *Priority) Deserialize(frh *FrameHeader) error {
	if len(frh.payload) < 5 {
		return ErrMissingBytes
	}
	raw := bytesToUint32(frh.payload)
	p.exclusive = raw&(1<<31) != 0
	p.dep = raw & (1<<31 - 1)
	p.weight = frh.payload[4]
	return nil
}

func (p *Priority) Serialize(frh *FrameHeader) {
	dep := p.dep
	if p.exclusive {
		dep |= 1 << 31
	}
	payload := appendUint32(frh.payload[:0], dep)
	payload = append(payload, p.weight)
	frh.setPayload(payload)
}
