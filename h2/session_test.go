package h2

import (
	"bufio"
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipeHalf lets a Session read through a bufio.Reader that already
// consumed bytes off conn (the connection preface, in the tests
// below), while writes still go straight to conn.
type pipeHalf struct {
	io.Reader
	net.Conn
}

func (p pipeHalf) Read(b []byte) (int, error) { return p.Reader.Read(b) }

// newHandshakedPair wires a client and a server Session together over
// net.Pipe, negotiating initialWindow as both ends' INITIAL_WINDOW_SIZE,
// and runs both read loops. Both sessions are closed on test cleanup.
func newHandshakedPair(t *testing.T, initialWindow uint32) (*Session, *Session) {
	t.Helper()

	cliConn, srvConn := net.Pipe()

	cliSettings := DefaultSettings()
	cliSettings.InitialWindowSize = initialWindow
	srvSettings := DefaultSettings()
	srvSettings.InitialWindowSize = initialWindow

	cli := NewSession(cliConn, RoleClient, cliSettings, zerolog.Nop())

	type srvResult struct {
		srv *Session
		err error
	}
	srvCh := make(chan srvResult, 1)
	go func() {
		br := bufio.NewReader(srvConn)
		if err := ReadPreface(br); err != nil {
			srvCh <- srvResult{nil, err}
			return
		}
		srv := NewSession(pipeHalf{br, srvConn}, RoleServer, srvSettings, zerolog.Nop())
		srvCh <- srvResult{srv, srv.Handshake()}
	}()

	cliErrCh := make(chan error, 1)
	go func() { cliErrCh <- cli.Handshake() }()

	require.NoError(t, <-cliErrCh)
	res := <-srvCh
	require.NoError(t, res.err)
	srv := res.srv

	cli.Run()
	srv.Run()
	t.Cleanup(func() {
		_ = cli.Close(NoError, "test done")
		_ = srv.Close(NoError, "test done")
	})

	return cli, srv
}

// streamReader adapts a *Stream's Read to the ordinary io.Reader
// contract, translating the package's clean-end sentinel to io.EOF
// (mirroring server/h2conn.go's eofTranslator).
type streamReader struct{ s *Stream }

func (r streamReader) Read(p []byte) (int, error) {
	n, err := r.s.Read(p)
	if err == errEOFStream {
		err = io.EOF
	}
	return n, err
}

func TestSessionRequestResponseRoundTrip(t *testing.T) {
	cli, srv := newHandshakedPair(t, DefaultInitialWindowSize)

	type received struct {
		fields []HeaderField
		body   []byte
	}
	gotReq := make(chan received, 1)
	srv.SetHandlers(func(sess *Session, strm *Stream, fields []HeaderField, endStream bool) {
		// onStream runs synchronously on the read loop; a handler that
		// blocks on Stream.Read must hand off to its own goroutine
		// first, or it deadlocks the very loop it is waiting on.
		go func() {
			body, err := io.ReadAll(streamReader{strm})
			require.NoError(t, err)
			require.NoError(t, sess.WriteHeaders(strm, statusFields(200), false))
			_, werr := sess.WriteData(strm, []byte("pong"), true)
			require.NoError(t, werr)
			gotReq <- received{fields, body}
		}()
	}, nil, nil, nil)

	gotResp := make(chan received, 1)
	cli.SetHandlers(nil, func(sess *Session, strm *Stream, fields []HeaderField, endStream bool) {
		go func() {
			body, err := io.ReadAll(streamReader{strm})
			require.NoError(t, err)
			gotResp <- received{fields, body}
		}()
	}, nil, nil)

	strm := cli.AllocateStream()
	var method HeaderField
	method.Set(":method", "POST")
	require.NoError(t, cli.WriteHeaders(strm, []HeaderField{method}, false))
	_, err := cli.WriteData(strm, []byte("ping"), true)
	require.NoError(t, err)

	select {
	case r := <-gotReq:
		assert.Equal(t, "ping", string(r.body))
		assert.Equal(t, "POST", r.fields[0].Value())
	case <-time.After(2 * time.Second):
		t.Fatal("server never received the request")
	}

	select {
	case r := <-gotResp:
		assert.Equal(t, "pong", string(r.body))
		assert.Equal(t, "200", r.fields[0].Value())
	case <-time.After(2 * time.Second):
		t.Fatal("client never received the response")
	}
}

func statusFields(code int) []HeaderField {
	var hf HeaderField
	hf.Set(":status", strconv.Itoa(code))
	return []HeaderField{hf}
}

// TestSessionFlowControlCreditsOnConsumptionNotArrival drives a real
// Session pair to prove spec §4.3's lazy-crediting policy: a
// WINDOW_UPDATE for received DATA is only issued once the application
// drains it via Stream.Read, never merely on frame arrival.
func TestSessionFlowControlCreditsOnConsumptionNotArrival(t *testing.T) {
	const window = 20 // nominal/4 == 5, so a single 6-byte chunk crosses threshold

	cli, srv := newHandshakedPair(t, window)

	proceed := make(chan struct{})
	serverRead := make(chan string, 1)
	srv.SetHandlers(func(sess *Session, strm *Stream, fields []HeaderField, endStream bool) {
		go func() {
			<-proceed
			buf := make([]byte, 16)
			n, _ := strm.Read(buf)
			serverRead <- string(buf[:n])
		}()
	}, nil, nil, nil)

	strm := cli.AllocateStream()
	var method HeaderField
	method.Set(":method", "POST")
	require.NoError(t, cli.WriteHeaders(strm, []HeaderField{method}, false))
	_, err := cli.WriteData(strm, []byte("abcdef"), true)
	require.NoError(t, err)

	// Frames are processed strictly in arrival order by the server's
	// single read loop goroutine, so once this PING's ack returns, the
	// DATA frame sent above has already been handled by handleData.
	require.NoError(t, cli.Ping())

	assert.Equal(t, int32(window-6), strm.SendWindow().Size(),
		"no WINDOW_UPDATE should have been issued before the application read anything")

	close(proceed)
	select {
	case got := <-serverRead:
		assert.Equal(t, "abcdef", got)
	case <-time.After(2 * time.Second):
		t.Fatal("server handler never read")
	}

	// Same ordering trick, this time waiting for the client's read loop
	// to have applied whatever WINDOW_UPDATE(s) the server's Read just
	// triggered.
	require.NoError(t, cli.Ping())

	assert.Equal(t, int32(window), strm.SendWindow().Size(),
		"reading should lazily credit the peer back up to the nominal window")
}

// TestStreamPauseSuppressesWindowCredit proves spec §4.4: while a
// stream is paused, bytes drained by Read are not reported to flow
// control at all, so the peer's window for that stream does not
// recover until Unpause.
func TestStreamPauseSuppressesWindowCredit(t *testing.T) {
	const window = 20

	cli, srv := newHandshakedPair(t, window)

	pauseBeforeRead := make(chan struct{})
	unpaused := make(chan struct{})
	firstRead := make(chan string, 1)
	secondRead := make(chan string, 1)
	srv.SetHandlers(func(sess *Session, strm *Stream, fields []HeaderField, endStream bool) {
		go func() {
			<-pauseBeforeRead
			buf := make([]byte, 16)
			n, _ := strm.Read(buf)
			firstRead <- string(buf[:n])

			<-unpaused
			n, _ = strm.Read(buf)
			secondRead <- string(buf[:n])
		}()
	}, nil, nil, nil)

	strm := cli.AllocateStream()
	var method HeaderField
	method.Set(":method", "POST")
	require.NoError(t, cli.WriteHeaders(strm, []HeaderField{method}, false))

	_, err := cli.WriteData(strm, []byte("abcdef"), false)
	require.NoError(t, err)
	require.NoError(t, cli.Ping())
	assert.Equal(t, int32(window-6), strm.SendWindow().Size())

	srvStrm := srv.Streams().Get(strm.ID())
	require.NotNil(t, srvStrm)
	srvStrm.Pause()
	assert.True(t, srvStrm.Paused())

	close(pauseBeforeRead)
	select {
	case got := <-firstRead:
		assert.Equal(t, "abcdef", got)
	case <-time.After(2 * time.Second):
		t.Fatal("server handler never read the first chunk")
	}

	require.NoError(t, cli.Ping())
	assert.Equal(t, int32(window-6), strm.SendWindow().Size(),
		"a paused stream's consumed bytes must not be credited back")

	srvStrm.Unpause()
	assert.False(t, srvStrm.Paused())

	_, err = cli.WriteData(strm, []byte("ghijkl"), true)
	require.NoError(t, err)
	close(unpaused)

	select {
	case got := <-secondRead:
		assert.Equal(t, "ghijkl", got)
	case <-time.After(2 * time.Second):
		t.Fatal("server handler never read the second chunk")
	}

	require.NoError(t, cli.Ping())
	assert.Equal(t, int32(window-6), strm.SendWindow().Size(),
		"consumption after Unpause resumes crediting: the second chunk's 6 bytes are "+
			"credited back, restoring the window from 8 to 14, while the first chunk's "+
			"6 bytes consumed while paused are never credited")
}

// TestSessionWritePriority proves spec §4.5's set_priority operation
// has a real outbound path: WritePriority both records the priority
// locally and puts a PRIORITY frame on the wire that updates the
// receiving Session's view of the same stream.
func TestSessionWritePriority(t *testing.T) {
	cli, srv := newHandshakedPair(t, DefaultInitialWindowSize)

	got := make(chan *Stream, 1)
	srv.SetHandlers(func(sess *Session, strm *Stream, fields []HeaderField, endStream bool) {
		got <- strm
	}, nil, nil, nil)

	strm := cli.AllocateStream()
	var method HeaderField
	method.Set(":method", "GET")
	require.NoError(t, cli.WriteHeaders(strm, []HeaderField{method}, true))

	var srvStrm *Stream
	select {
	case srvStrm = <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw the stream")
	}

	p := StreamPriority{StreamDependency: 7, Weight: 200, Exclusive: true}
	require.NoError(t, cli.WritePriority(strm, p))
	assert.Equal(t, p, strm.Priority(), "WritePriority records the local priority immediately")

	require.NoError(t, cli.Ping())

	assert.Equal(t, p, srvStrm.Priority(),
		"the peer's PRIORITY frame must update the receiving stream's priority")
}

// TestGoAwayGracefulSendsShutdownNoticeBeforeGoAway proves spec §4.5's
// shutdown sequence: a SETTINGS(MAX_CONCURRENT_STREAMS=0) notice must
// precede the closing GOAWAY frame.
func TestGoAwayGracefulSendsShutdownNoticeBeforeGoAway(t *testing.T) {
	connA, connB := net.Pipe()
	defer connA.Close()
	defer connB.Close()

	sess := NewSession(connA, RoleServer, DefaultSettings(), zerolog.Nop())

	done := make(chan error, 1)
	go func() { done <- sess.GoAwayGraceful() }()

	br := bufio.NewReader(connB)

	frh1, err := ReadFrameFrom(br)
	require.NoError(t, err)
	st, ok := frh1.Body().(*Settings)
	require.True(t, ok, "first frame must be the SETTINGS shutdown notice, got %T", frh1.Body())
	assert.Equal(t, uint32(0), st.MaxConcurrentStreams)
	ReleaseFrameHeader(frh1)

	frh2, err := ReadFrameFrom(br)
	require.NoError(t, err)
	ga, ok := frh2.Body().(*GoAway)
	require.True(t, ok, "second frame must be GOAWAY, got %T", frh2.Body())
	assert.Equal(t, NoError, ga.Code())
	ReleaseFrameHeader(frh2)

	require.NoError(t, <-done)
}
