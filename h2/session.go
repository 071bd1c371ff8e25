package h2

import (
	"bufio"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Role distinguishes which end of the connection a Session represents
// — it governs stream-id parity (spec §4.2: client streams are odd,
// server-pushed streams are even) and a handful of RFC 7540 §5.1.1
// admission checks.
type Role uint8

const (
	RoleClient Role = iota
	RoleServer
)

// DefaultPingInterval is how often a Session with no explicit
// PingInterval probes an otherwise-idle connection.
const DefaultPingInterval = 15 * time.Second

// maxUnackedPings is how many PING round trips may go unanswered
// before the session gives up on the peer (spec §4.5 inactivity
// teardown).
const maxUnackedPings = 3

// StreamHandler is invoked by a server Session once a full set of
// request header fields has arrived for a newly opened stream.
type StreamHandler func(sess *Session, strm *Stream, fields []HeaderField, endStream bool)

// ResponseHandler is invoked by a client Session once a full set of
// response header fields has arrived for a stream it opened.
type ResponseHandler func(sess *Session, strm *Stream, fields []HeaderField, endStream bool)

// PushHandler is invoked by a client Session when the peer promises a
// pushed stream (spec §4.4's PUSH_PROMISE path).
type PushHandler func(sess *Session, parent *Stream, promisedID uint32, fields []HeaderField)

// GoAwayHandler is invoked when a GOAWAY frame arrives.
type GoAwayHandler func(sess *Session, ga *GoAway)

// Session is the engine behind one HTTP/2 connection: the read loop
// that dispatches incoming frames, the flow-control and HPACK state
// each direction carries, and the stream table. The client package's
// h2Transport and the server package's serveH2 build the
// request/response-shaped API on top of this.
//
// Where the teacher's original Conn/serverConn pair fed every outbound
// frame through a single channel drained by one writer goroutine, this
// Session instead serializes writes with writeMu: a server runs one
// handler goroutine per stream, and each of those needs to write its
// own response concurrently with the read loop's control-frame
// replies, so a shared mutex around bufio.Writer fits the concurrency
// shape better than funneling every handler through one channel.
type Session struct {
	role Role
	conn net.Conn
	br   *bufio.Reader

	writeMu sync.Mutex
	bw      *bufio.Writer

	local Settings

	peerMu sync.RWMutex
	peer   Settings

	enc *HPACK
	dec *HPACK

	streams          *Streams
	streamIDMu       sync.Mutex
	nextStreamID     uint32
	lastPeerStreamID uint32
	settingsSeen     bool

	connSend     *flowWindow
	connRecv     *flowWindow
	connRecvAcct *recvAccounting

	reassembly struct {
		streamID  uint32
		buf       []byte
		endStream bool

		push         bool
		pushParent   uint32
		pushPromised uint32
	}

	pingMu       sync.Mutex
	pendingPings map[[8]byte]chan struct{}
	unackedPings int32

	pingInterval time.Duration

	onStream   StreamHandler
	onResponse ResponseHandler
	onPush     PushHandler
	onGoAway   GoAwayHandler

	closeOnce sync.Once
	closedVal int32
	closeErr  error
	doneCh    chan struct{}

	log zerolog.Logger
}

// NewSession wraps conn as an HTTP/2 session. local is copied as the
// settings the session will advertise during the handshake.
func NewSession(conn net.Conn, role Role, local *Settings, log zerolog.Logger) *Session {
	s := &Session{
		role:         role,
		conn:         conn,
		br:           bufio.NewReaderSize(conn, 4096),
		bw:           bufio.NewWriterSize(conn, int(DefaultMaxFrameSize)),
		enc:          AcquireHPACK(),
		dec:          AcquireHPACK(),
		streams:      &Streams{},
		pendingPings: make(map[[8]byte]chan struct{}),
		pingInterval: DefaultPingInterval,
		doneCh:       make(chan struct{}),
		log:          log,
	}
	local.CopyTo(&s.local)
	s.peer.Reset()

	s.connSend = newFlowWindow(int32(s.peer.InitialWindowSize))
	s.connRecv = newFlowWindow(int32(s.local.InitialWindowSize))
	s.connRecvAcct = newRecvAccounting(int32(s.local.InitialWindowSize))

	if role == RoleClient {
		s.nextStreamID = 1
	} else {
		s.nextStreamID = 2
	}
	return s
}

func (s *Session) SetHandlers(onStream StreamHandler, onResponse ResponseHandler, onPush PushHandler, onGoAway GoAwayHandler) {
	s.onStream = onStream
	s.onResponse = onResponse
	s.onPush = onPush
	s.onGoAway = onGoAway
}

func (s *Session) SetPingInterval(d time.Duration) {
	if d > 0 {
		s.pingInterval = d
	}
}

// Role reports whether this session is the client or server end.
func (s *Session) Role() Role { return s.role }

// Streams exposes the stream table, for callers that look up or
// enumerate in-flight exchanges.
func (s *Session) Streams() *Streams { return s.streams }

// LocalSettings/PeerSettings return copies of the negotiated settings
// as they currently stand.
func (s *Session) LocalSettings() Settings {
	return s.local
}

func (s *Session) PeerSettings() Settings {
	s.peerMu.RLock()
	defer s.peerMu.RUnlock()
	return s.peer
}

// IsClosed reports, without blocking, whether the session has already
// torn down (use Wait to block for the reason).
func (s *Session) IsClosed() bool { return s.isClosed() }

func (s *Session) peerMaxFrameSize() int {
	s.peerMu.RLock()
	n := int(s.peer.MaxFrameSize)
	s.peerMu.RUnlock()
	if n == 0 {
		return int(DefaultMaxFrameSize)
	}
	return n
}

// Handshake performs the RFC 7540 §3.5 connection preface exchange: a
// client writes the magic octets then its SETTINGS frame; a server
// (whose caller already consumed the preface via ReadPreface during
// cleartext dispatch) sends its own SETTINGS frame and waits for the
// peer's. Both sides loop on incoming frames, via the same dispatcher
// the read loop later uses, until the peer's first SETTINGS frame has
// been seen and acknowledged.
func (s *Session) Handshake() error {
	if s.role == RoleClient {
		if err := WritePreface(s.bw); err != nil {
			return err
		}
	}

	st := AcquireSettings()
	s.local.CopyTo(st)
	st.markAll()
	if err := s.writeFrameLocked(0, st); err != nil {
		ReleaseSettings(st)
		return err
	}
	ReleaseSettings(st)

	if delta := int32(s.local.InitialWindowSize) - DefaultInitialWindowSizeI32; delta > 0 {
		if err := s.writeWindowUpdate(0, delta); err != nil {
			return err
		}
	}

	for !s.settingsSeen {
		frh, err := ReadFrameFromWithSize(s.br, DefaultMaxFrameSize)
		if err != nil {
			return err
		}
		herr := s.handleFrame(frh)
		ReleaseFrameHeader(frh)
		if herr != nil {
			return herr
		}
	}
	return nil
}

// DefaultInitialWindowSizeI32 mirrors DefaultInitialWindowSize as a
// signed delta base for the handshake's connection-window top-up.
const DefaultInitialWindowSizeI32 = int32(DefaultInitialWindowSize)

// Run starts the read loop and the keepalive ping loop in their own
// goroutines and returns immediately. Call Wait to block for
// completion.
func (s *Session) Run() {
	go s.readLoop()
	go s.pingLoop()
}

// Wait blocks until the session has torn down and returns the error
// that caused it (io.EOF-wrapping errors are not special-cased; the
// caller decides what counts as clean shutdown).
func (s *Session) Wait() error {
	<-s.doneCh
	return s.closeErr
}

func (s *Session) isClosed() bool { return atomic.LoadInt32(&s.closedVal) != 0 }

func (s *Session) fail(err error) {
	s.closeOnce.Do(func() {
		s.closeErr = err
		atomic.StoreInt32(&s.closedVal, 1)
		_ = s.conn.Close()
		s.connSend.Close()
		s.connRecv.Close()
		s.streams.Each(func(strm *Stream) {
			strm.SetErr(err)
			strm.Finalize()
		})
		close(s.doneCh)
	})
}

// Close sends a GOAWAY naming code/msg and tears the session down
// immediately (spec §4.6's non-graceful path).
func (s *Session) Close(code ErrorCode, msg string) error {
	ga := AcquireFrame(FrameGoAway).(*GoAway)
	ga.SetLastStreamID(s.lastPeerStreamID)
	ga.SetCode(code)
	if msg != "" {
		ga.SetData([]byte(msg))
	}
	err := s.writeFrameLocked(0, ga)
	ReleaseFrame(ga)
	s.fail(NewGoAwayError(code, msg))
	return err
}

// GoAwayGraceful announces that no new streams will be accepted
// without tearing down streams already in flight: it writes a SETTINGS
// shutdown notice advertising MAX_CONCURRENT_STREAMS=0 and then, right
// away, a GOAWAY(NoError) whose last-stream-id is 2^31-1. It does not
// wait for in-flight streams to finish and does not close the session.
func (s *Session) GoAwayGraceful() error {
	notice := AcquireSettings()
	s.local.CopyTo(notice)
	notice.MaxConcurrentStreams = 0
	notice.markAll()
	err := s.writeFrameLocked(0, notice)
	ReleaseSettings(notice)
	if err != nil {
		return err
	}
	s.local.MaxConcurrentStreams = 0

	ga := AcquireFrame(FrameGoAway).(*GoAway)
	ga.SetLastStreamID(1<<31 - 1)
	ga.SetCode(NoError)
	err = s.writeFrameLocked(0, ga)
	ReleaseFrame(ga)
	return err
}

func (s *Session) readLoop() {
	for {
		max := uint32(s.local.MaxFrameSize)
		frh, err := ReadFrameFromWithSize(s.br, max)
		if err != nil {
			s.fail(err)
			return
		}
		err = s.handleFrame(frh)
		ReleaseFrameHeader(frh)
		if err != nil {
			var ga *GoAway
			if errors.As(err, &ga) {
				s.fail(err)
				return
			}
			var herr Error
			if errors.As(err, &herr) && herr.IsConnectionError() {
				_ = s.Close(herr.Code, herr.Message)
				return
			}
			// stream-local error: already converted to RST_STREAM by
			// the handler that produced it; keep reading.
		}
	}
}

func (s *Session) pingLoop() {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.doneCh:
			return
		case <-ticker.C:
			if atomic.LoadInt32(&s.unackedPings) >= maxUnackedPings {
				s.fail(ErrTimeout)
				return
			}
			p := AcquireFrame(FramePing).(*Ping)
			p.SetRandomData()
			err := s.writeFrameLocked(0, p)
			ReleaseFrame(p)
			if err != nil {
				s.fail(err)
				return
			}
			atomic.AddInt32(&s.unackedPings, 1)
		}
	}
}

func (s *Session) handleFrame(frh *FrameHeader) error {
	switch frh.Type() {
	case FrameSettings:
		return s.handleSettings(frh.Body().(*Settings))
	case FramePing:
		return s.handlePing(frh.Body().(*Ping))
	case FrameGoAway:
		ga := frh.Body().(*GoAway)
		if s.onGoAway != nil {
			s.onGoAway(s, ga)
		}
		return ga
	case FrameWindowUpdate:
		return s.handleWindowUpdate(frh)
	case FrameHeaders:
		return s.handleHeaders(frh)
	case FrameContinuation:
		return s.handleContinuation(frh)
	case FramePushPromise:
		return s.handlePushPromise(frh)
	case FrameData:
		return s.handleData(frh)
	case FrameResetStream:
		return s.handleRstStream(frh)
	case FramePriority:
		return s.handlePriority(frh)
	}
	return nil
}

func (s *Session) handleSettings(st *Settings) error {
	if st.Ack() {
		return nil
	}

	s.peerMu.Lock()
	oldInitial := int32(s.peer.InitialWindowSize)
	st.CopyTo(&s.peer)
	newInitial := int32(s.peer.InitialWindowSize)
	s.peerMu.Unlock()

	if delta := newInitial - oldInitial; delta != 0 {
		s.streams.Each(func(strm *Stream) {
			strm.SendWindow().ApplyDelta(delta)
		})
	}
	s.enc.SetMaxTableSize(st.HeaderTableSize)
	s.settingsSeen = true

	ack := AcquireSettings()
	ack.Reset()
	ack.SetAck(true)
	err := s.writeFrameLocked(0, ack)
	ReleaseSettings(ack)
	return err
}

func (s *Session) handlePing(p *Ping) error {
	if p.Ack() {
		atomic.AddInt32(&s.unackedPings, -1)
		var key [8]byte
		copy(key[:], p.Data())
		s.pingMu.Lock()
		if ch, ok := s.pendingPings[key]; ok {
			close(ch)
			delete(s.pendingPings, key)
		}
		s.pingMu.Unlock()
		return nil
	}

	ack := AcquireFrame(FramePing).(*Ping)
	ack.SetData(p.Data())
	ack.SetAck(true)
	err := s.writeFrameLocked(0, ack)
	ReleaseFrame(ack)
	return err
}

// Ping sends a PING and blocks until its ack arrives or the session
// closes.
func (s *Session) Ping() error {
	p := AcquireFrame(FramePing).(*Ping)
	p.SetRandomData()
	var key [8]byte
	copy(key[:], p.Data())

	ch := make(chan struct{})
	s.pingMu.Lock()
	s.pendingPings[key] = ch
	s.pingMu.Unlock()

	err := s.writeFrameLocked(0, p)
	ReleaseFrame(p)
	if err != nil {
		return err
	}

	select {
	case <-ch:
		return nil
	case <-s.doneCh:
		return s.closeErr
	}
}

func (s *Session) handleWindowUpdate(frh *FrameHeader) error {
	wu := frh.Body().(*WindowUpdate)
	inc := int32(wu.Increment())
	if inc == 0 {
		if frh.Stream() == 0 {
			return NewGoAwayError(ProtocolError, "WINDOW_UPDATE increment of 0 on connection")
		}
		return s.resetStream(frh.Stream(), ProtocolError, "WINDOW_UPDATE increment of 0")
	}

	if frh.Stream() == 0 {
		if err := s.connSend.Increment(inc); err != nil {
			return NewGoAwayError(FlowControlError, "connection send window overflow")
		}
		return nil
	}

	strm := s.streams.Get(frh.Stream())
	if strm == nil {
		return nil
	}
	if err := strm.SendWindow().Increment(inc); err != nil {
		return s.resetStream(frh.Stream(), FlowControlError, "stream send window overflow")
	}
	return nil
}

func (s *Session) handlePriority(frh *FrameHeader) error {
	p := frh.Body().(*Priority)
	if strm := s.streams.Get(frh.Stream()); strm != nil {
		strm.SetPriority(StreamPriority{StreamDependency: p.StreamDep(), Weight: uint8(p.Weight()) + 1, Exclusive: p.Exclusive()})
	}
	return nil
}

func (s *Session) handleRstStream(frh *FrameHeader) error {
	r := frh.Body().(*RstStream)
	if strm := s.streams.Del(frh.Stream()); strm != nil {
		strm.SetErr(NewStreamError(r.Code(), "stream reset by peer"))
		strm.CloseRecv(NewStreamError(r.Code(), "stream reset by peer"))
		strm.Finalize()
	}
	return nil
}

func (s *Session) handleData(frh *FrameHeader) error {
	d := frh.Body().(*Data)
	id := frh.Stream()
	n := int32(frh.Len())

	s.connRecv.Consume(n)

	strm := s.streams.Get(id)
	if strm == nil {
		// Nothing left to deliver to (stream already closed/reset), so
		// nothing will ever drain this via Stream.Read to trigger
		// creditReceived; credit it immediately instead of leaking the
		// connection window forever.
		if inc := s.connRecvAcct.Consumed(n); inc > 0 {
			_ = s.connRecv.Increment(inc)
			_ = s.writeWindowUpdate(0, inc)
		}
		return nil
	}

	strm.RecvWindow().Consume(n)
	if d.Len() > 0 {
		strm.AppendRecv(d.Data())
	}

	if d.EndStream() {
		strm.EndStreamRecv()
		strm.CloseRecv(nil)
	}
	return nil
}

// creditReceived applies n freshly-consumed bytes (drained by the
// application via Stream.Read, not merely received in a DATA frame)
// to strm's and the connection's receive accounting, issuing
// WINDOW_UPDATE once either crosses its quarter-window threshold
// (spec §4.3: crediting is lazy, on consumption). Stream.Read skips
// calling this entirely while the stream is paused (spec §4.4).
func (s *Session) creditReceived(strm *Stream, n int32) {
	if inc := strm.RecvAccounting().Consumed(n); inc > 0 {
		_ = strm.RecvWindow().Increment(inc)
		_ = s.writeWindowUpdate(strm.ID(), inc)
	}
	if inc := s.connRecvAcct.Consumed(n); inc > 0 {
		_ = s.connRecv.Increment(inc)
		_ = s.writeWindowUpdate(0, inc)
	}
}

func (s *Session) handleHeaders(frh *FrameHeader) error {
	h := frh.Body().(*Headers)
	id := frh.Stream()
	if id == 0 {
		return NewGoAwayError(ProtocolError, "HEADERS on stream 0")
	}

	strm := s.streams.Get(id)
	if strm == nil {
		if s.role == RoleServer {
			if id%2 == 0 || id <= s.lastPeerStreamID {
				return NewGoAwayError(ProtocolError, "HEADERS on invalid stream id")
			}
			s.lastPeerStreamID = id
			strm = NewStream(id, int32(s.PeerSettings().InitialWindowSize), int32(s.local.InitialWindowSize))
			strm.SetState(StreamOpen)
			strm.SetOnConsume(func(n int32) { s.creditReceived(strm, n) })
			s.streams.Insert(strm)
		} else {
			return nil
		}
	}

	if h.Weight() != 0 {
		strm.SetPriority(StreamPriority{StreamDependency: h.StreamDep(), Weight: h.Weight() + 1, Exclusive: h.Exclusive()})
	}

	s.reassembly.streamID = id
	s.reassembly.buf = append(s.reassembly.buf[:0], h.Headers()...)
	s.reassembly.endStream = h.EndStream()
	s.reassembly.push = false

	if h.EndHeaders() {
		return s.finishHeaderBlock()
	}
	return nil
}

func (s *Session) handleContinuation(frh *FrameHeader) error {
	c := frh.Body().(*Continuation)
	if s.reassembly.streamID != frh.Stream() && s.reassembly.pushParent != frh.Stream() {
		return NewGoAwayError(ProtocolError, "CONTINUATION without matching HEADERS/PUSH_PROMISE")
	}
	s.reassembly.buf = append(s.reassembly.buf, c.Headers()...)
	if c.EndHeaders() {
		if s.reassembly.push {
			return s.finishPushPromiseBlock()
		}
		return s.finishHeaderBlock()
	}
	return nil
}

func (s *Session) handlePushPromise(frh *FrameHeader) error {
	if s.role != RoleClient {
		return NewGoAwayError(ProtocolError, "PUSH_PROMISE received by server")
	}
	pp := frh.Body().(*PushPromise)
	parentID := frh.Stream()
	if s.streams.Get(parentID) == nil {
		return nil
	}

	s.reassembly.push = true
	s.reassembly.pushParent = parentID
	s.reassembly.pushPromised = pp.PromisedStreamID()
	s.reassembly.buf = append(s.reassembly.buf[:0], pp.Headers()...)

	if pp.EndHeaders() {
		return s.finishPushPromiseBlock()
	}
	return nil
}

func (s *Session) finishHeaderBlock() error {
	id := s.reassembly.streamID
	block := s.reassembly.buf
	endStream := s.reassembly.endStream
	s.reassembly.streamID = 0

	fields, err := s.dec.DecodeFull(block, s.local.MaxHeaderListSize)
	if err != nil {
		if errors.Is(err, ErrHeaderListTooLarge) {
			return s.resetStream(id, EnhanceYourCalm, "header list too large")
		}
		return NewGoAwayError(CompressionError, "HPACK decode failure")
	}

	strm := s.streams.Get(id)
	if strm == nil {
		return nil
	}
	if endStream {
		strm.EndStreamRecv()
	}

	if s.role == RoleServer {
		if s.onStream != nil {
			s.onStream(s, strm, fields, endStream)
		}
	} else if s.onResponse != nil {
		s.onResponse(s, strm, fields, endStream)
	}
	return nil
}

func (s *Session) finishPushPromiseBlock() error {
	parentID := s.reassembly.pushParent
	promisedID := s.reassembly.pushPromised
	block := s.reassembly.buf
	s.reassembly.push = false
	s.reassembly.pushParent = 0

	fields, err := s.dec.DecodeFull(block, s.local.MaxHeaderListSize)
	if err != nil {
		return NewGoAwayError(CompressionError, "HPACK decode failure")
	}

	parent := s.streams.Get(parentID)
	if parent == nil {
		return nil
	}

	strm := NewStream(promisedID, int32(s.PeerSettings().InitialWindowSize), int32(s.local.InitialWindowSize))
	strm.SetState(StreamReservedRemote)
	s.streams.Insert(strm)

	if s.onPush != nil {
		s.onPush(s, parent, promisedID, fields)
	}
	return nil
}

func (s *Session) resetStream(id uint32, code ErrorCode, msg string) error {
	rs := AcquireFrame(FrameResetStream).(*RstStream)
	rs.SetCode(code)
	err := s.writeFrameLocked(id, rs)
	ReleaseFrame(rs)

	if strm := s.streams.Del(id); strm != nil {
		strm.SetErr(NewStreamError(code, msg))
		strm.CloseRecv(NewStreamError(code, msg))
		strm.Finalize()
	}
	return err
}

// writeFrameLocked serializes and flushes one frame under writeMu.
func (s *Session) writeFrameLocked(streamID uint32, body Frame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	frh := AcquireFrameHeader()
	defer ReleaseFrameHeader(frh)
	frh.SetStream(streamID)
	frh.SetBody(body)
	if _, err := frh.WriteTo(s.bw); err != nil {
		return err
	}
	return s.bw.Flush()
}

func (s *Session) writeWindowUpdate(streamID uint32, inc int32) error {
	wu := AcquireFrame(FrameWindowUpdate).(*WindowUpdate)
	wu.SetIncrement(uint32(inc))
	err := s.writeFrameLocked(streamID, wu)
	ReleaseFrame(wu)
	return err
}

// AllocateStream reserves the next local stream id (odd for a client
// request, even for a server push) and inserts the new Stream into the
// table. It does not itself enforce MAX_CONCURRENT_STREAMS; callers
// check Streams().Len() against PeerSettings().MaxConcurrentStreams
// first (spec §4.4's admission rule).
func (s *Session) AllocateStream() *Stream {
	s.streamIDMu.Lock()
	id := s.nextStreamID
	s.nextStreamID += 2
	s.streamIDMu.Unlock()

	strm := NewStream(id, int32(s.PeerSettings().InitialWindowSize), int32(s.local.InitialWindowSize))
	strm.SetState(StreamOpen)
	strm.SetOnConsume(func(n int32) { s.creditReceived(strm, n) })
	s.streams.Insert(strm)
	return strm
}

// WriteHeaders HPACK-encodes fields and frames them as HEADERS
// (+ CONTINUATION, if the block exceeds the peer's MAX_FRAME_SIZE).
func (s *Session) WriteHeaders(strm *Stream, fields []HeaderField, endStream bool) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	block := make([]byte, 0, 256)
	for i := range fields {
		block = s.enc.AppendHeaderField(block, &fields[i], fields[i].IsSensitive())
	}

	maxFrame := s.peerMaxFrameSize()

	first := block
	var rest []byte
	if len(first) > maxFrame {
		rest = first[maxFrame:]
		first = first[:maxFrame]
	}

	h := AcquireFrame(FrameHeaders).(*Headers)
	h.SetHeaders(first)
	h.SetEndStream(endStream)
	h.SetEndHeaders(rest == nil)

	frh := AcquireFrameHeader()
	frh.SetStream(strm.ID())
	frh.SetBody(h)
	if _, err := frh.WriteTo(s.bw); err != nil {
		ReleaseFrameHeader(frh)
		return err
	}
	ReleaseFrameHeader(frh)

	for rest != nil {
		chunk := rest
		if len(chunk) > maxFrame {
			chunk = rest[:maxFrame]
			rest = rest[maxFrame:]
		} else {
			rest = nil
		}

		c := AcquireFrame(FrameContinuation).(*Continuation)
		c.SetHeaders(chunk)
		c.SetEndHeaders(rest == nil)

		cfrh := AcquireFrameHeader()
		cfrh.SetStream(strm.ID())
		cfrh.SetBody(c)
		if _, err := cfrh.WriteTo(s.bw); err != nil {
			ReleaseFrameHeader(cfrh)
			return err
		}
		ReleaseFrameHeader(cfrh)
	}

	if err := s.bw.Flush(); err != nil {
		return err
	}
	if endStream {
		strm.EndStreamSent()
	}
	return nil
}

// WritePushPromise announces a server push on parent, reserving
// promisedID for the follow-up response (spec §4.4's push path).
func (s *Session) WritePushPromise(parent *Stream, promisedID uint32, fields []HeaderField) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	block := make([]byte, 0, 256)
	for i := range fields {
		block = s.enc.AppendHeaderField(block, &fields[i], fields[i].IsSensitive())
	}

	pp := AcquireFrame(FramePushPromise).(*PushPromise)
	pp.SetPromisedStreamID(promisedID)
	pp.SetHeaders(block)
	pp.SetEndHeaders(true)

	frh := AcquireFrameHeader()
	frh.SetStream(parent.ID())
	frh.SetBody(pp)
	if _, err := frh.WriteTo(s.bw); err != nil {
		ReleaseFrameHeader(frh)
		return err
	}
	ReleaseFrameHeader(frh)
	return s.bw.Flush()
}

// WriteData frames p as one or more DATA frames, respecting both the
// stream's and the connection's send windows and the peer's
// MAX_FRAME_SIZE, blocking as needed for flow-control credit.
func (s *Session) WriteData(strm *Stream, p []byte, endStream bool) (int, error) {
	sent := 0
	maxFrame := s.peerMaxFrameSize()

	for len(p) > 0 {
		credit := strm.SendWindow().AwaitCredit(int32(maxFrame), func() bool {
			return strm.IsClosed() || s.isClosed()
		})
		if credit <= 0 {
			return sent, ErrSessionClosed
		}
		connCredit := s.connSend.AwaitCredit(credit, s.isClosed)
		if connCredit <= 0 {
			return sent, ErrSessionClosed
		}

		n := int(connCredit)
		if n > len(p) {
			n = len(p)
		}
		chunk := p[:n]
		p = p[n:]

		strm.SendWindow().Consume(int32(n))
		s.connSend.Consume(int32(n))

		if err := s.writeDataFrame(strm.ID(), chunk, endStream && len(p) == 0); err != nil {
			return sent, err
		}
		sent += n
	}

	if endStream && sent == 0 {
		if err := s.writeDataFrame(strm.ID(), nil, true); err != nil {
			return sent, err
		}
	}
	if endStream {
		strm.EndStreamSent()
	}
	return sent, nil
}

func (s *Session) writeDataFrame(streamID uint32, chunk []byte, endStream bool) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	d := AcquireFrame(FrameData).(*Data)
	d.SetData(chunk)
	d.SetEndStream(endStream)

	frh := AcquireFrameHeader()
	frh.SetStream(streamID)
	frh.SetBody(d)
	if _, err := frh.WriteTo(s.bw); err != nil {
		ReleaseFrameHeader(frh)
		return err
	}
	ReleaseFrameHeader(frh)
	return s.bw.Flush()
}

// RstStream sends RST_STREAM(code) for id and removes it from the
// stream table.
func (s *Session) RstStream(id uint32, code ErrorCode) error {
	return s.resetStream(id, code, "application reset")
}

// WritePriority sends a PRIORITY frame for strm's id expressing p and
// records p as strm's own local priority (spec §4.5's set_priority
// operation). This only ever announces the dependency/weight to the
// peer and to anything that reads Stream.Priority; writes are still
// flushed synchronously per-caller under writeMu rather than
// scheduled by a weighted round-robin write loop (see DESIGN.md's
// Open Question on session write concurrency).
func (s *Session) WritePriority(strm *Stream, p StreamPriority) error {
	strm.SetPriority(p)

	pr := AcquireFrame(FramePriority).(*Priority)
	pr.SetStreamDep(p.StreamDependency)
	pr.SetExclusive(p.Exclusive)
	w := p.Weight
	if w > 0 {
		w--
	}
	pr.SetWeight(w)
	err := s.writeFrameLocked(strm.ID(), pr)
	ReleaseFrame(pr)
	return err
}
