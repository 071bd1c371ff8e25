// Package h1 implements the HTTP/1.0 and HTTP/1.1 wire codec: request
// and status lines, RFC 5322 style headers, and the three body framing
// modes (chunked, Content-Length, close-delimited).
package h1

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/duohttp/duohttp/header"
)

// MaxHeaderLine bounds a single request/status/header line, matching
// the RFC 7230 §3.2.5 "implementation-specific" recommendation.
const MaxHeaderLine = 4096

var (
	ErrHeaderLineTooLong = errors.New("h1: header line exceeds 4096 octets")
	ErrMalformedStartLine = errors.New("h1: malformed start line")
	ErrMalformedHeaderLine = errors.New("h1: malformed header line")
)

// RequestLine is the parsed first line of an HTTP/1.x request.
type RequestLine struct {
	Method string
	Target string
	Proto  string
}

// StatusLine is the parsed first line of an HTTP/1.x response.
type StatusLine struct {
	Proto  string
	Code   int
	Reason string
}

func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		return "", err
	}
	if len(line) > MaxHeaderLine {
		return "", ErrHeaderLineTooLong
	}
	line = strings.TrimRight(line, "\r\n")
	return line, nil
}

// ReadRequestLine parses "METHOD SP request-target SP HTTP/V" CRLF.
// The request-target is returned verbatim; absolute-form parsing is
// the caller's concern (only forward proxies need it, per spec §4.6).
func ReadRequestLine(br *bufio.Reader) (RequestLine, error) {
	line, err := readLine(br)
	if err != nil {
		return RequestLine{}, err
	}
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 {
		return RequestLine{}, ErrMalformedStartLine
	}
	return RequestLine{Method: parts[0], Target: parts[1], Proto: parts[2]}, nil
}

// ReadStatusLine parses "HTTP/V SP status-code SP reason-phrase" CRLF.
func ReadStatusLine(br *bufio.Reader) (StatusLine, error) {
	line, err := readLine(br)
	if err != nil {
		return StatusLine{}, err
	}
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 {
		return StatusLine{}, ErrMalformedStartLine
	}
	code, err := strconv.Atoi(parts[1])
	if err != nil {
		return StatusLine{}, ErrMalformedStartLine
	}
	reason := ""
	if len(parts) == 3 {
		reason = parts[2]
	}
	return StatusLine{Proto: parts[0], Code: code, Reason: reason}, nil
}

// WriteRequestLine writes the request line to w.
func WriteRequestLine(w *bufio.Writer, rl RequestLine) error {
	_, err := fmt.Fprintf(w, "%s %s %s\r\n", rl.Method, rl.Target, rl.Proto)
	return err
}

// WriteStatusLine writes the status line to w.
func WriteStatusLine(w *bufio.Writer, sl StatusLine) error {
	_, err := fmt.Fprintf(w, "%s %d %s\r\n", sl.Proto, sl.Code, sl.Reason)
	return err
}

// ReadHeaders reads RFC 5322 style header lines into m until the
// terminating empty line. Folded (obs-fold) continuation lines are
// joined onto the previous value with a single space, per RFC 7230
// §3.2.4's "MUST" allowance for intermediaries that still encounter it.
func ReadHeaders(br *bufio.Reader, m *header.Map) error {
	return ReadHeadersLimited(br, m, 0)
}

// ErrHeaderSectionTooLarge is returned by ReadHeadersLimited once the
// cumulative header section exceeds the caller's byte budget (spec
// §4.8's "max request-header bytes", default 8 KiB).
var ErrHeaderSectionTooLarge = errors.New("h1: header section exceeds byte limit")

// ReadHeadersLimited is ReadHeaders with a cap on total header-section
// bytes; maxBytes <= 0 means unbounded.
func ReadHeadersLimited(br *bufio.Reader, m *header.Map, maxBytes int) error {
	var lastName string
	var total int
	for {
		line, err := readLine(br)
		if err != nil {
			return err
		}
		total += len(line) + 2
		if maxBytes > 0 && total > maxBytes {
			return ErrHeaderSectionTooLarge
		}
		if line == "" {
			return nil
		}
		if (line[0] == ' ' || line[0] == '\t') && lastName != "" {
			v, _ := m.Get(lastName)
			m.Set(lastName, v+" "+strings.TrimSpace(line))
			continue
		}
		idx := strings.IndexByte(line, ':')
		if idx <= 0 {
			return ErrMalformedHeaderLine
		}
		name := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		m.Insert(name, value)
		lastName = name
	}
}

// WriteHeaders writes every entry of m as a "Name: value\r\n" line,
// preserving insertion order and duplicates, then the terminating
// empty line.
func WriteHeaders(w *bufio.Writer, m *header.Map) error {
	var err error
	m.VisitAll(func(name, value string) {
		if err != nil {
			return
		}
		_, err = fmt.Fprintf(w, "%s: %s\r\n", name, value)
	})
	if err != nil {
		return err
	}
	_, err = w.WriteString("\r\n")
	return err
}

// hasToken reports whether token appears, case-insensitively, in value
// read as a comma-separated list (for Connection/Transfer-Encoding
// tokens).
func hasToken(value, token string) bool {
	for _, part := range strings.Split(value, ",") {
		if strings.EqualFold(strings.TrimSpace(part), token) {
			return true
		}
	}
	return false
}

var crlf = []byte("\r\n")

func trimCRLF(b []byte) []byte {
	return bytes.TrimRight(b, "\r\n")
}
