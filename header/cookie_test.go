package header

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseCookieHeaderSplitsTrimsAndDecodes(t *testing.T) {
	cookies := ParseCookieHeader("session=abc%20def; theme=dark ; tracked")

	assert.Len(t, cookies, 3)
	assert.Equal(t, Cookie{Name: "session", Value: "abc def"}, cookies[0])
	assert.Equal(t, Cookie{Name: "theme", Value: "dark"}, cookies[1])
	assert.Equal(t, "1", cookies[2].Value)
	assert.Equal(t, "tracked", cookies[2].Name)
}

func TestCookieStringOrdersAttributesFixed(t *testing.T) {
	c := NewCookie("id", "a b")
	c.Domain = "example.com"
	c.Path = "/"
	c.SetMaxAge(3600)
	c.Secure = true
	c.HTTPOnly = true

	got := c.String()
	assert.Equal(t, "id=a+b; Domain=example.com; Path=/; Max-Age=3600; Secure; HttpOnly", got)
}

func TestCookieStringIncludesExpiresWhenSet(t *testing.T) {
	c := NewCookie("id", "1")
	c.SetExpires(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))

	assert.Contains(t, c.String(), "Expires=Fri, 02 Jan 2026 03:04:05 GMT")
}
