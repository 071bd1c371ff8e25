// Package header implements the ordered, case-insensitive header
// multimap and cookie model shared by the h1, h2, client and server
// packages.
package header

import "strings"

// kv is one stored header entry. Storage is a flat slice rather than
// a map[string][]string so iteration preserves insertion order —
// fasthttp's RequestHeader/ResponseHeader use the same shape for the
// same reason.
type kv struct {
	key   string
	value string
}

// Map is an ordered, case-insensitive multimap of header fields.
type Map struct {
	items []kv
}

// NewMap returns an empty Map.
func NewMap() *Map { return &Map{} }

// Insert appends a new (name, value) pair; it never replaces an
// existing entry with the same name (spec §4.2: "insert appends").
func (m *Map) Insert(name, value string) {
	m.items = append(m.items, kv{key: name, value: value})
}

// Get returns the first value stored under name and whether it was
// found.
func (m *Map) Get(name string) (string, bool) {
	for _, e := range m.items {
		if equalFold(e.key, name) {
			return e.value, true
		}
	}
	return "", false
}

// GetAll returns every value stored under name, in insertion order.
func (m *Map) GetAll(name string) []string {
	var out []string
	for _, e := range m.items {
		if equalFold(e.key, name) {
			out = append(out, e.value)
		}
	}
	return out
}

// Remove deletes every entry stored under name.
func (m *Map) Remove(name string) {
	out := m.items[:0]
	for _, e := range m.items {
		if !equalFold(e.key, name) {
			out = append(out, e)
		}
	}
	m.items = out
}

// Set removes every existing entry under name then inserts value —
// a convenience on top of Remove+Insert for the common
// one-value-per-name case (Content-Type, Content-Length, ...).
func (m *Map) Set(name, value string) {
	m.Remove(name)
	m.Insert(name, value)
}

// Contains reports whether any entry is stored under name.
func (m *Map) Contains(name string) bool {
	_, ok := m.Get(name)
	return ok
}

// Len reports the total number of stored entries (not distinct names).
func (m *Map) Len() int { return len(m.items) }

// VisitAll calls fn for every entry in insertion order.
func (m *Map) VisitAll(fn func(name, value string)) {
	for _, e := range m.items {
		fn(e.key, e.value)
	}
}

// Clone returns an independent copy of m.
func (m *Map) Clone() *Map {
	c := &Map{items: make([]kv, len(m.items))}
	copy(c.items, m.items)
	return c
}

// Reset empties m for reuse.
func (m *Map) Reset() { m.items = m.items[:0] }

func equalFold(a, b string) bool {
	return strings.EqualFold(a, b)
}
