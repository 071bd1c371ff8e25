package h2

import (
	"bufio"
	"bytes"
	"io"
)

// Preface is the 24-octet magic that opens every HTTP/2 connection.
//
// https://httpwg.org/specs/rfc7540.html#ConnectionHeader
var Preface = []byte("PRI * HTTP/2.0\r\n\r\nSM\r\n\r\n")

// WritePreface writes the connection preface to w.
func WritePreface(w *bufio.Writer) error {
	_, err := w.Write(Preface)
	return err
}

// ReadPreface reads and validates the connection preface from r.
func ReadPreface(r *bufio.Reader) error {
	buf := make([]byte, len(Preface))
	if _, err := io.ReadFull(r, buf); err != nil {
		return err
	}
	if !bytes.Equal(buf, Preface) {
		return ErrBadPreface
	}
	return nil
}

// PeekPreface reports whether the next len(Preface) bytes available
// on r, without consuming them, are the HTTP/2 connection preface.
// Used by the server's cleartext dispatch (spec §4.8 step 3) to
// decide between HTTP/2 and HTTP/1.x without blocking past what has
// already arrived.
func PeekPreface(r *bufio.Reader) (bool, error) {
	buf, err := r.Peek(len(Preface))
	if err != nil {
		return false, err
	}
	return bytes.Equal(buf, Preface), nil
}
