package h2

// Pseudo-header names. Pseudo-headers MUST precede regular headers in
// emitted header blocks and MUST NOT appear in HTTP/1.x
// serializations (spec §3).
var (
	StringMethod    = []byte(":method")
	StringScheme    = []byte(":scheme")
	StringPath      = []byte(":path")
	StringAuthority = []byte(":authority")
	StringStatus    = []byte(":status")
)

// Regular header names the session engine treats specially.
var (
	StringContentLength = []byte("content-length")
	StringContentType   = []byte("content-type")
	StringUserAgent     = []byte("user-agent")
	StringHost          = []byte("host")
	StringCookie        = []byte("cookie")
)

// StringHTTP2 is the protocol name fasthttp.Request.Header.Protocol
// reports for requests served over HTTP/2.
var StringHTTP2 = []byte("HTTP/2.0")

// connectionSpecificHeaders lists the header fields forbidden in an
// HTTP/2 header block (spec §8: "no Connection, Keep-Alive,
// Proxy-Connection, Transfer-Encoding, or Upgrade appears").
var connectionSpecificHeaders = [][]byte{
	[]byte("connection"),
	[]byte("keep-alive"),
	[]byte("proxy-connection"),
	[]byte("transfer-encoding"),
	[]byte("upgrade"),
}

// IsConnectionSpecific reports whether name is one of the headers
// forbidden in an HTTP/2 header block.
func IsConnectionSpecific(name []byte) bool {
	for _, h := range connectionSpecificHeaders {
		if equalFold(h, name) {
			return true
		}
	}
	return false
}

func equalFold(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i]|0x20 != b[i]|0x20 {
			return false
		}
	}
	return true
}

// ToLower lower-cases b in place and returns it (ASCII only, header
// names are always ASCII per spec §3).
func ToLower(b []byte) []byte {
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + 32
		}
	}
	return b
}
