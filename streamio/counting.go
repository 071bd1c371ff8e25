package streamio

import "io"

// CountingStream tallies bytes read through it, for quota enforcement
// and metrics (spec §4.9).
type CountingStream struct {
	r     io.Reader
	count int64
}

func NewCountingStream(r io.Reader) *CountingStream {
	return &CountingStream{r: r}
}

func (c *CountingStream) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.count += int64(n)
	return n, err
}

// Count returns the total number of bytes read so far.
func (c *CountingStream) Count() int64 { return c.count }

func (c *CountingStream) LeastSize() int64 { return -1 }
func (c *CountingStream) Empty() bool      { return false }
func (c *CountingStream) Close() error {
	if cl, ok := c.r.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}
