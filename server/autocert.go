package server

import (
	"crypto/tls"
	"net/http"

	"golang.org/x/crypto/acme/autocert"
)

// EnableAutocert wires Let's Encrypt certificate management into s:
// subsequent calls to TLSConfig/ServeTLS fetch and cache certificates
// for the given domains instead of relying on the static
// VirtualHost.TLSCert/self-signed fallback path.
//
// cacheDir is passed to autocert.DirCache; an empty cacheDir disables
// on-disk caching (certificates are refetched on every restart).
func (s *Server) EnableAutocert(cacheDir string, domains ...string) {
	m := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(domains...),
	}
	if cacheDir != "" {
		m.Cache = autocert.DirCache(cacheDir)
	}
	s.autocert = m
}

// AutocertHTTPHandler returns the plain net/http handler that must be
// served on port 80 for EnableAutocert's ACME HTTP-01 challenge to
// validate; nil if EnableAutocert was never called. This is a
// net/http.Handler, not a server.Handler, because the ACME challenge
// is answered before any duohttp connection exists.
func (s *Server) AutocertHTTPHandler() http.Handler {
	if s.autocert == nil {
		return nil
	}
	return s.autocert.HTTPHandler(nil)
}

func (s *Server) autocertCertificateFor(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	if s.autocert == nil {
		return nil, errNoCertificate
	}
	return s.autocert.GetCertificate(hello)
}
