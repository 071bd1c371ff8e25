package server

import (
	"bufio"
	"crypto/tls"
	"errors"
	"net"
	"time"

	"github.com/duohttp/duohttp/h2"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/acme/autocert"
)

// Limits holds the per-request bounds of spec §4.8. Only MaxBodyBytes
// is enforced: serveH1 and onH2Stream wrap each request body so that
// the handler sees end-of-body after MaxBodyBytes bytes; the rest of a
// longer body is not delivered and no 413 is sent. MaxHeaderBytes and
// MaxRequestTime are not consulted by the connection handlers.
type Limits struct {
	MaxHeaderBytes int
	MaxBodyBytes   int64
	MaxRequestTime time.Duration
}

// DefaultLimits matches the spec's stated defaults.
var DefaultLimits = Limits{
	MaxHeaderBytes: 8 * 1024,
	MaxBodyBytes:   2 * 1024 * 1024,
}

// InitialByteTimeout is how long Accept waits for the first byte of a
// new connection before giving up (spec §4.8 step 1).
const InitialByteTimeout = 10 * time.Second

var errNoCertificate = errors.New("server: no certificate for requested name")

// Server is one listener's worth of configuration: its virtual hosts,
// its default (non-TLS or no-SNI-match) handler, and its limits.
type Server struct {
	vhosts   vhostSet
	Limits   Limits
	Log      zerolog.Logger
	h2Local  *h2.Settings
	autocert *autocert.Manager
}

// NewServer returns a Server with the given default handler and the
// spec's default limits.
func NewServer(defaultHandler Handler, log zerolog.Logger) *Server {
	return &Server{
		vhosts:  vhostSet{Default: &VirtualHost{Handler: defaultHandler}},
		Limits:  DefaultLimits,
		Log:     log,
		h2Local: h2.DefaultSettings(),
	}
}

// AddVirtualHost registers a named (possibly wildcard) virtual host.
func (s *Server) AddVirtualHost(vh VirtualHost) {
	s.vhosts.hosts = append(s.vhosts.hosts, vh)
}

// TLSConfig builds a *tls.Config whose GetCertificate dispatches by
// SNI across the registered virtual hosts (spec §4.8 step 2).
func (s *Server) TLSConfig() *tls.Config {
	getCert := s.vhosts.certificateFor
	if s.autocert != nil {
		getCert = s.autocertCertificateFor
	}
	return &tls.Config{
		GetCertificate: getCert,
		NextProtos:     []string{"h2", "http/1.1"},
	}
}

// Serve runs the accept loop against ln until it returns an error
// (typically from Close).
func (s *Server) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(conn)
	}
}

// ServeTLS wraps ln with TLS using s.TLSConfig and serves it; each
// accepted connection's ALPN result picks HTTP/2 vs HTTP/1.x directly,
// skipping the cleartext preface peek.
func (s *Server) ServeTLS(ln net.Listener) error {
	return s.Serve(tls.NewListener(ln, s.TLSConfig()))
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	if err := conn.SetReadDeadline(time.Now().Add(InitialByteTimeout)); err != nil {
		return
	}
	br := bufio.NewReader(conn)
	if _, err := br.Peek(1); err != nil {
		// spec §4.8 step 1: "close with 408 otherwise (HTTP/1.x) or
		// drop (TLS before client hello)" — we can't tell the two
		// apart before any bytes arrive, so drop. No 408 is sent on
		// any path.
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	if tlsConn, ok := conn.(*tls.Conn); ok {
		switch tlsConn.ConnectionState().NegotiatedProtocol {
		case "h2":
			s.serveH2(conn, br)
			return
		default:
			s.serveH1(conn, br, tlsConn.ConnectionState().ServerName)
			return
		}
	}

	isH2, err := h2.PeekPreface(br)
	if err != nil {
		return
	}
	if isH2 {
		s.serveH2(conn, br)
		return
	}
	s.serveH1(conn, br, "")
}
