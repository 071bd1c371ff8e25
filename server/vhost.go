package server

import (
	"crypto/tls"
	"strings"
)

// VirtualHost binds a hostname to a TLS certificate and a Handler
// (spec §4.8 step 2/4: SNI picks the cert, Host/:authority picks the
// handler — kept as one binding here since in practice they agree).
type VirtualHost struct {
	Name    string // may start with "*." for a wildcard
	TLSCert *tls.Certificate
	Handler Handler
}

func (v VirtualHost) matches(host string) bool {
	host = stripPort(host)
	if strings.HasPrefix(v.Name, "*.") {
		suffix := v.Name[1:] // ".example.com"
		return strings.HasSuffix(host, suffix) && host != suffix[1:]
	}
	return strings.EqualFold(v.Name, host)
}

func stripPort(host string) string {
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		return host[:i]
	}
	return host
}

// vhostSet resolves a request Host/SNI name to a VirtualHost, falling
// back to the listener's configured default (spec §4.8 step 4).
type vhostSet struct {
	hosts   []VirtualHost
	Default *VirtualHost
}

func (vs *vhostSet) resolve(name string) *VirtualHost {
	for i := range vs.hosts {
		if vs.hosts[i].matches(name) {
			return &vs.hosts[i]
		}
	}
	return vs.Default
}

// certificateFor implements the GetCertificate hook a tls.Config needs
// for SNI-based dispatch.
func (vs *vhostSet) certificateFor(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	vh := vs.resolve(hello.ServerName)
	if vh == nil || vh.TLSCert == nil {
		return nil, errNoCertificate
	}
	return vh.TLSCert, nil
}
