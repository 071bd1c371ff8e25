package h2

import (
	"bytes"
	"sync"
)

// StreamState is a node in the RFC 7540 §5.1 stream state machine.
type StreamState int8

const (
	StreamIdle StreamState = iota
	StreamReservedLocal
	StreamReservedRemote
	StreamOpen
	StreamHalfClosedLocal
	StreamHalfClosedRemote
	StreamClosed
)

func (ss StreamState) String() string {
	switch ss {
	case StreamIdle:
		return "idle"
	case StreamReservedLocal:
		return "reserved(local)"
	case StreamReservedRemote:
		return "reserved(remote)"
	case StreamOpen:
		return "open"
	case StreamHalfClosedLocal:
		return "half-closed(local)"
	case StreamHalfClosedRemote:
		return "half-closed(remote)"
	case StreamClosed:
		return "closed"
	}
	return "unknown"
}

// MemorySafety controls what Finalize does to a stream's receive
// buffer once a request/response cycle finishes (spec §4.4's three
// levels). None just resets the buffer and leaves its memory to the
// GC; Zeroize first wipes the buffered bytes, for handlers that
// briefly held sensitive data. Lock behaves exactly like Zeroize: the
// buffer is not pinned in memory, and no level pools the buffer.
type MemorySafety int8

const (
	MemorySafetyNone MemorySafety = iota
	MemorySafetyZeroize
	MemorySafetyLock
)

// StreamPriority is a stream's RFC 7540 §5.3 priority triple. It is
// distinct from the Priority frame type (priority.go): this is the
// humanized value a Stream carries, that type is its wire encoding.
type StreamPriority struct {
	StreamDependency uint32
	Weight           uint8 // wire value + 1, i.e. 1-256
	Exclusive        bool
}

// DefaultStreamPriority is the priority assumed for a stream that
// never received a PRIORITY frame or HEADERS priority block.
var DefaultStreamPriority = StreamPriority{Weight: 16}

// Stream is one HTTP/2 stream: its state machine, its two flow-control
// windows, and the buffered bytes moving each direction. The session
// engine owns the stream table and is the only goroutine that mutates
// state transitions. Application code reads a Stream through Read
// below and writes to it through Session.WriteHeaders/WriteData. Read
// is safe for exactly one concurrent reader: a second concurrent Read
// returns ErrAssertViolation (§5).
type Stream struct {
	mu    sync.Mutex
	id    uint32
	state StreamState

	priority StreamPriority

	sendWindow *flowWindow
	recvWindow *flowWindow
	recvAcct   *recvAccounting

	recvBuf    bytes.Buffer
	recvCond   *sync.Cond
	recvClosed bool // peer sent END_STREAM / we observed RST

	sendClosed bool // we sent END_STREAM or RST

	readInFlight bool
	paused       bool

	// onConsume is invoked (outside s.mu) each time Read drains n>0
	// bytes out of recvBuf, so the owning Session can credit its
	// flow-control accounting and issue WINDOW_UPDATE lazily, on
	// consumption rather than on arrival (spec §4.3). Set once by the
	// session right after the stream is created.
	onConsume func(n int32)

	err error

	memSafety MemorySafety

	// data is an opaque slot for the owning layer (client/server
	// package) to hang its fasthttp.Request/Response pair from,
	// mirroring the teacher's Stream.data field.
	data interface{}
}

// NewStream allocates a Stream in the idle state with windows seeded
// from the two endpoints' negotiated settings.
func NewStream(id uint32, sendInitial, recvInitial int32) *Stream {
	s := &Stream{
		id:         id,
		state:      StreamIdle,
		priority:   DefaultStreamPriority,
		sendWindow: newFlowWindow(sendInitial),
		recvWindow: newFlowWindow(recvInitial),
		recvAcct:   newRecvAccounting(recvInitial),
	}
	s.recvCond = sync.NewCond(&s.mu)
	return s
}

func (s *Stream) ID() uint32 { return s.id }

func (s *Stream) State() StreamState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Stream) SetState(st StreamState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// IsClosed reports whether the stream has fully reached StreamClosed.
func (s *Stream) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StreamClosed
}

func (s *Stream) Priority() StreamPriority {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.priority
}

func (s *Stream) SetPriority(p StreamPriority) {
	s.mu.Lock()
	s.priority = p
	s.mu.Unlock()
}

func (s *Stream) SetMemorySafety(m MemorySafety) { s.memSafety = m }

// SetOnConsume registers the session's flow-control credit callback.
func (s *Stream) SetOnConsume(f func(n int32)) {
	s.mu.Lock()
	s.onConsume = f
	s.mu.Unlock()
}

// Paused reports whether the stream is currently under application
// back-pressure (see Pause).
func (s *Stream) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *Stream) Data() interface{}      { return s.data }
func (s *Stream) SetData(v interface{}) { s.data = v }

// SendWindow/RecvWindow expose the flow-control accounting so
// Session.WriteData and the DATA-frame handler can consult/update them.
func (s *Stream) SendWindow() *flowWindow { return s.sendWindow }
func (s *Stream) RecvWindow() *flowWindow { return s.recvWindow }
func (s *Stream) RecvAccounting() *recvAccounting { return s.recvAcct }

// AppendRecv buffers bytes delivered by a DATA frame for the
// application to Read. Called from the session's read loop.
func (s *Stream) AppendRecv(p []byte) {
	s.mu.Lock()
	s.recvBuf.Write(p)
	s.recvCond.Broadcast()
	s.mu.Unlock()
}

// CloseRecv marks the receive half as ended (END_STREAM seen, or the
// stream was reset) and wakes any blocked reader.
func (s *Stream) CloseRecv(err error) {
	s.mu.Lock()
	s.recvClosed = true
	if err != nil && s.err == nil {
		s.err = err
	}
	s.recvCond.Broadcast()
	s.mu.Unlock()
}

// Read drains buffered DATA bytes, blocking until at least one byte is
// available, the receive half closes, or the stream errors.
func (s *Stream) Read(p []byte) (int, error) {
	s.mu.Lock()
	if s.readInFlight {
		s.mu.Unlock()
		return 0, ErrAssertViolation
	}
	s.readInFlight = true
	defer func() {
		s.mu.Lock()
		s.readInFlight = false
		s.mu.Unlock()
	}()

	for s.recvBuf.Len() == 0 && !s.recvClosed && s.err == nil {
		s.recvCond.Wait()
	}
	n, _ := s.recvBuf.Read(p)
	var err error
	if n == 0 {
		if s.err != nil {
			err = s.err
		} else {
			err = errEOFStream
		}
	}
	onConsume := s.onConsume
	paused := s.paused
	s.mu.Unlock()

	// Crediting happens here, on actual consumption, not when the DATA
	// frame arrived (spec §4.3). While paused, consumed bytes are not
	// reported at all, so the session never issues a WINDOW_UPDATE for
	// them and the peer's effective window for this stream stays
	// exhausted until Unpause (spec §4.4).
	if n > 0 && !paused && onConsume != nil {
		onConsume(int32(n))
	}
	return n, err
}

// errEOFStream is returned by Read once the receive half has closed
// cleanly and every buffered byte has been consumed.
var errEOFStream = NewStreamError(NoError, "end of stream")

// ErrEndOfStream is errEOFStream exported for callers outside the
// package (client/server) that need to tell a clean stream end apart
// from a genuine transport error, e.g. to translate it to io.EOF.
var ErrEndOfStream = errEOFStream

// Pause/Unpause let the owning layer apply back-pressure without
// tearing the stream down: inbound DATA keeps being buffered and
// Read keeps returning it, but while paused no WINDOW_UPDATE is
// issued for bytes Read drains, so the peer's window for this stream
// stays exhausted until Unpause (spec §4.4).
func (s *Stream) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
}

func (s *Stream) Unpause() {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
}

// Finalize marks the stream fully closed and, depending on memSafety,
// scrubs its receive buffer before it can be reused.
func (s *Stream) Finalize() {
	s.mu.Lock()
	s.state = StreamClosed
	if s.memSafety == MemorySafetyZeroize || s.memSafety == MemorySafetyLock {
		b := s.recvBuf.Bytes()
		for i := range b {
			b[i] = 0
		}
	}
	s.recvBuf.Reset()
	s.recvCond.Broadcast()
	s.mu.Unlock()
	s.sendWindow.Close()
	s.recvWindow.Close()
}

// SetErr records a terminal error (RST_STREAM received/sent, or
// session teardown) and wakes blocked callers.
func (s *Stream) SetErr(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.recvCond.Broadcast()
	s.mu.Unlock()
}

func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// EndStreamSent/EndStreamRecv record which half(s) have seen
// END_STREAM, driving the open -> half-closed -> closed transitions
// (spec §4.4, mirroring RFC 7540 §5.1's state diagram).
func (s *Stream) EndStreamSent() {
	s.mu.Lock()
	s.sendClosed = true
	s.advanceLocked()
	s.mu.Unlock()
}

func (s *Stream) EndStreamRecv() {
	s.mu.Lock()
	s.recvClosed = true
	s.advanceLocked()
	s.recvCond.Broadcast()
	s.mu.Unlock()
}

func (s *Stream) advanceLocked() {
	switch s.state {
	case StreamOpen:
		switch {
		case s.sendClosed && s.recvClosed:
			s.state = StreamClosed
		case s.sendClosed:
			s.state = StreamHalfClosedLocal
		case s.recvClosed:
			s.state = StreamHalfClosedRemote
		}
	case StreamHalfClosedLocal:
		if s.recvClosed {
			s.state = StreamClosed
		}
	case StreamHalfClosedRemote:
		if s.sendClosed {
			s.state = StreamClosed
		}
	}
}
