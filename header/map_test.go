package header

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapInsertPreservesOrderAndDuplicates(t *testing.T) {
	m := NewMap()
	m.Insert("X-Trace", "a")
	m.Insert("Content-Type", "text/plain")
	m.Insert("X-Trace", "b")

	var names []string
	m.VisitAll(func(name, value string) { names = append(names, name+"="+value) })

	assert.Equal(t, []string{"X-Trace=a", "Content-Type=text/plain", "X-Trace=b"}, names)
	assert.Equal(t, []string{"a", "b"}, m.GetAll("x-trace"))
}

func TestMapGetIsCaseInsensitiveAndFirstWins(t *testing.T) {
	m := NewMap()
	m.Insert("Content-Type", "text/plain")
	m.Insert("content-type", "text/html")

	v, ok := m.Get("CONTENT-TYPE")
	assert.True(t, ok)
	assert.Equal(t, "text/plain", v)
}

func TestMapRemoveDeletesEveryMatchingEntry(t *testing.T) {
	m := NewMap()
	m.Insert("Set-Cookie", "a=1")
	m.Insert("Set-Cookie", "b=2")
	m.Insert("Content-Length", "0")

	m.Remove("set-cookie")

	assert.False(t, m.Contains("Set-Cookie"))
	assert.Equal(t, 1, m.Len())
}

func TestMapSetReplacesAllPriorValues(t *testing.T) {
	m := NewMap()
	m.Insert("Host", "a.example")
	m.Insert("Host", "b.example")
	m.Set("Host", "c.example")

	assert.Equal(t, []string{"c.example"}, m.GetAll("Host"))
}

func TestMapCloneIsIndependent(t *testing.T) {
	m := NewMap()
	m.Insert("A", "1")

	c := m.Clone()
	c.Insert("B", "2")

	assert.Equal(t, 1, m.Len())
	assert.Equal(t, 2, c.Len())
}
