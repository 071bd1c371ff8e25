package client

import (
	"crypto/tls"
	"net"

	"github.com/duohttp/duohttp/h2"
	"github.com/rs/zerolog"
)

// alpnProtos lists the protocol IDs we'll accept during ALPN
// negotiation, most-preferred first (spec §4.7).
var alpnProtos = []string{"h2", "h2-16", "h2-14", "http/1.1"}

func dial(t Target, tlsConfig *tls.Config, log zerolog.Logger) (Transport, error) {
	conn, err := net.Dial("tcp", t.addr())
	if err != nil {
		return nil, err
	}

	if t.TLS {
		cfg := tlsConfig
		if cfg == nil {
			cfg = &tls.Config{}
		}
		if len(cfg.NextProtos) == 0 {
			cfg2 := cfg.Clone()
			cfg2.NextProtos = alpnProtos
			cfg = cfg2
		}
		tlsConn := tls.Client(conn, cfg)
		if err := tlsConn.Handshake(); err != nil {
			conn.Close()
			return nil, err
		}
		switch tlsConn.ConnectionState().NegotiatedProtocol {
		case "h2", "h2-16", "h2-14":
			return dialH2(tlsConn, log)
		default:
			return newH1Transport(tlsConn), nil
		}
	}

	// Cleartext connections always speak HTTP/1.1: there is no h2c
	// Upgrade path.
	return newH1Transport(conn), nil
}

func dialH2(conn net.Conn, log zerolog.Logger) (Transport, error) {
	local := h2.DefaultSettings()
	sess := h2.NewSession(conn, h2.RoleClient, local, log)
	if err := sess.Handshake(); err != nil {
		conn.Close()
		return nil, err
	}
	return newH2Transport(sess), nil
}
