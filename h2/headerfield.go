package h2

import "sync"

var headerFieldPool = sync.Pool{New: func() interface{} { return &HeaderField{} }}

// AcquireHeaderField returns a HeaderField from the pool.
func AcquireHeaderField() *HeaderField { return headerFieldPool.Get().(*HeaderField) }

// ReleaseHeaderField returns hf to the pool.
func ReleaseHeaderField(hf *HeaderField) {
	hf.Reset()
	headerFieldPool.Put(hf)
}

// HeaderField is a single name/value pair as produced/consumed by
// HPACK, before it is folded into a header.Map or fasthttp header
// container.
type HeaderField struct {
	key, value []byte
	sensitive  bool
}

func (hf *HeaderField) Reset() {
	hf.key = hf.key[:0]
	hf.value = hf.value[:0]
	hf.sensitive = false
}

func (hf *HeaderField) Key() string       { return string(hf.key) }
func (hf *HeaderField) Value() string     { return string(hf.value) }
func (hf *HeaderField) KeyBytes() []byte   { return hf.key }
func (hf *HeaderField) ValueBytes() []byte { return hf.value }

func (hf *HeaderField) SetKeyBytes(k []byte)   { hf.key = append(hf.key[:0], k...) }
func (hf *HeaderField) SetValueBytes(v []byte) { hf.value = append(hf.value[:0], v...) }
func (hf *HeaderField) SetBytes(k, v []byte) {
	hf.SetKeyBytes(k)
	hf.SetValueBytes(v)
}
func (hf *HeaderField) Set(k, v string) {
	hf.key = append(hf.key[:0], k...)
	hf.value = append(hf.value[:0], v...)
}

// IsPseudo reports whether the field's name starts with ':'.
func (hf *HeaderField) IsPseudo() bool { return len(hf.key) > 0 && hf.key[0] == ':' }

// IsSensitive reports whether the field was marked "never index" by
// the sender (e.g. Authorization/Cookie values).
func (hf *HeaderField) IsSensitive() bool    { return hf.sensitive }
func (hf *HeaderField) SetSensitive(v bool) { hf.sensitive = v }

// Size is the RFC 7541 §4.1 accounting size used against
// MAX_HEADER_LIST_SIZE and the HPACK dynamic table.
func (hf *HeaderField) Size() int { return len(hf.key) + len(hf.value) + 32 }
