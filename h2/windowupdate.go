package h2

import "sync"

var windowUpdatePool = sync.Pool{New: func() interface{} { return &WindowUpdate{} }}

func acquireWindowUpdate() *WindowUpdate { return windowUpdatePool.Get().(*WindowUpdate) }

func releaseWindowUpdate(w *WindowUpdate) {
	w.Reset()
	windowUpdatePool.Put(w)
}

// WindowUpdate represents a WINDOW_UPDATE frame: a flow-control
// credit increment, for the connection (stream id 0) or one stream.
//
// https://httpwg.org/specs/rfc7540.html#WINDOW_UPDATE
type WindowUpdate struct {
	increment uint32
}

func (w *WindowUpdate) Type() FrameType       { return FrameWindowUpdate }
func (w *WindowUpdate) Reset()                { w.increment = 0 }
func (w *WindowUpdate) Increment() uint32     { return w.increment }
func (w *WindowUpdate) SetIncrement(n uint32) { w.increment = n & (1<<31 - 1) }

func (w *WindowUpdate) Deserialize(frh *FrameHeader) error {
	if len(frh.payload) < 4 {
		return ErrMissingBytes
	}
	w.increment = bytesToUint32(frh.payload) & (1<<31 - 1)
	return nil
}

func (w *WindowUpdate) Serialize(frh *FrameHeader) {
	frh.setPayload(appendUint32(frh.payload[:0], w.increment))
}
