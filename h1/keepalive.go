package h1

import (
	"strconv"
	"strings"
	"time"

	"github.com/duohttp/duohttp/header"
)

// KeepAliveParams is the parsed form of a "Keep-Alive: timeout=…, max=…"
// header.
type KeepAliveParams struct {
	Timeout time.Duration
	Max     int
	HasTimeout, HasMax bool
}

// ParseKeepAlive extracts timeout/max from a Keep-Alive header value.
func ParseKeepAlive(v string) KeepAliveParams {
	var p KeepAliveParams
	for _, part := range strings.Split(v, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(kv[1]))
		if err != nil {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(kv[0])) {
		case "timeout":
			p.Timeout = time.Duration(n) * time.Second
			p.HasTimeout = true
		case "max":
			p.Max = n
			p.HasMax = true
		}
	}
	return p
}

// Persistent reports whether the connection stays open after this
// exchange, per RFC 7230 §6.3: HTTP/1.1 defaults to keep-alive unless
// either side sends "Connection: close"; HTTP/1.0 defaults to close
// unless both sides explicitly negotiate "Connection: keep-alive".
func Persistent(proto string, reqHeaders, respHeaders *header.Map) bool {
	if connHas(reqHeaders, "close") || connHas(respHeaders, "close") {
		return false
	}
	if proto == "HTTP/1.0" {
		return connHas(reqHeaders, "keep-alive") && connHas(respHeaders, "keep-alive")
	}
	return true
}

func connHas(h *header.Map, token string) bool {
	if h == nil {
		return false
	}
	v, ok := h.Get("Connection")
	return ok && hasToken(v, token)
}
