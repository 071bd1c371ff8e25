package streamio

import (
	"errors"
	"io"
	"time"
)

// ErrReadTimeout is returned when a TimeoutStream's deadline elapses
// without any read progress.
var ErrReadTimeout = errors.New("streamio: read made no progress within the deadline")

// TimeoutStream aborts a Read if it makes no progress within d of the
// moment that Read was called (spec §4.9). It runs the underlying read
// in a goroutine so a slow
// or stuck reader can be abandoned without blocking the caller
// forever; the goroutine is leaked until the underlying reader itself
// unblocks, same tradeoff fasthttp-style deadline wrappers make when
// the wrapped io.Reader has no native deadline support.
type TimeoutStream struct {
	r   io.Reader
	d   time.Duration
	now func() time.Time
}

// NewTimeoutStream wraps r so each Read must make progress within d.
func NewTimeoutStream(r io.Reader, d time.Duration) *TimeoutStream {
	return &TimeoutStream{r: r, d: d, now: time.Now}
}

type readResult struct {
	n   int
	err error
}

func (t *TimeoutStream) Read(p []byte) (int, error) {
	ch := make(chan readResult, 1)
	go func() {
		n, err := t.r.Read(p)
		ch <- readResult{n, err}
	}()

	select {
	case res := <-ch:
		return res.n, res.err
	case <-time.After(t.d):
		return 0, ErrReadTimeout
	}
}

func (t *TimeoutStream) LeastSize() int64 { return -1 }
func (t *TimeoutStream) Empty() bool      { return false }
func (t *TimeoutStream) Close() error {
	if cl, ok := t.r.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}
