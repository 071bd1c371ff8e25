package header

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

// Cookie is a single HTTP cookie (spec §4.2).
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Expires  time.Time
	MaxAge   int // negative means "delete"; emitted only once set via SetMaxAge
	Secure   bool
	HTTPOnly bool

	hasExpires bool
	hasMaxAge  bool
}

// NewCookie returns a Cookie with just name/value set.
func NewCookie(name, value string) *Cookie {
	return &Cookie{Name: name, Value: value}
}

func (c *Cookie) SetExpires(t time.Time) {
	c.Expires = t
	c.hasExpires = true
}

func (c *Cookie) SetMaxAge(n int) {
	c.MaxAge = n
	c.hasMaxAge = true
}

// String serializes the cookie as a Set-Cookie value: the value is
// URL-encoded, attributes are emitted in the fixed order domain, path,
// expires, max-age, secure, http-only (spec §4.2).
func (c *Cookie) String() string {
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteByte('=')
	b.WriteString(url.QueryEscape(c.Value))

	if c.Domain != "" {
		b.WriteString("; Domain=")
		b.WriteString(c.Domain)
	}
	if c.Path != "" {
		b.WriteString("; Path=")
		b.WriteString(c.Path)
	}
	if c.hasExpires {
		b.WriteString("; Expires=")
		b.Write(fasthttp.AppendHTTPDate(nil, c.Expires))
	}
	if c.hasMaxAge {
		b.WriteString("; Max-Age=")
		b.WriteString(strconv.Itoa(c.MaxAge))
	}
	if c.Secure {
		b.WriteString("; Secure")
	}
	if c.HTTPOnly {
		b.WriteString("; HttpOnly")
	}
	return b.String()
}

// ParseCookieHeader splits a request Cookie: header on ';', trimming
// whitespace and URL-decoding each value. A bare name with no '='
// yields value "1" (spec §4.2).
func ParseCookieHeader(s string) []Cookie {
	var out []Cookie
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		name, value, hasEq := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		if !hasEq {
			out = append(out, Cookie{Name: name, Value: "1"})
			continue
		}

		value = strings.TrimSpace(value)
		decoded, err := url.QueryUnescape(value)
		if err != nil {
			decoded = value
		}
		out = append(out, Cookie{Name: name, Value: decoded})
	}
	return out
}
