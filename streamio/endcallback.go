package streamio

import "io"

// EndCallbackStream invokes onEnd exactly once, the first time Read
// returns an error (io.EOF or any other) or Close is called, whichever
// comes first, for resource release (spec §4.9).
type EndCallbackStream struct {
	r      io.Reader
	onEnd  func()
	fired  bool
}

func NewEndCallbackStream(r io.Reader, onEnd func()) *EndCallbackStream {
	return &EndCallbackStream{r: r, onEnd: onEnd}
}

func (e *EndCallbackStream) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	if err != nil {
		e.fire()
	}
	return n, err
}

func (e *EndCallbackStream) fire() {
	if !e.fired {
		e.fired = true
		if e.onEnd != nil {
			e.onEnd()
		}
	}
}

func (e *EndCallbackStream) LeastSize() int64 { return -1 }
func (e *EndCallbackStream) Empty() bool      { return e.fired }
func (e *EndCallbackStream) Close() error {
	e.fire()
	if cl, ok := e.r.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}
