package h2

import (
	"errors"
	"fmt"
)

// ErrorCode is an HTTP/2 error code as carried by RST_STREAM and
// GOAWAY frames.
//
// https://httpwg.org/specs/rfc7540.html#ErrorCodes
type ErrorCode uint32

const (
	NoError              ErrorCode = 0x0
	ProtocolError        ErrorCode = 0x1
	InternalError        ErrorCode = 0x2
	FlowControlError     ErrorCode = 0x3
	SettingsTimeoutError ErrorCode = 0x4
	StreamClosedError    ErrorCode = 0x5
	FrameSizeError       ErrorCode = 0x6
	RefusedStreamError   ErrorCode = 0x7
	CancelError          ErrorCode = 0x8
	CompressionError     ErrorCode = 0x9
	ConnectError         ErrorCode = 0xa
	EnhanceYourCalm      ErrorCode = 0xb
	InadequateSecurity   ErrorCode = 0xc
	HTTP11Required       ErrorCode = 0xd
)

var errorCodeNames = [...]string{
	"NO_ERROR", "PROTOCOL_ERROR", "INTERNAL_ERROR", "FLOW_CONTROL_ERROR",
	"SETTINGS_TIMEOUT", "STREAM_CLOSED", "FRAME_SIZE_ERROR", "REFUSED_STREAM",
	"CANCEL", "COMPRESSION_ERROR", "CONNECT_ERROR", "ENHANCE_YOUR_CALM",
	"INADEQUATE_SECURITY", "HTTP_1_1_REQUIRED",
}

func (c ErrorCode) String() string {
	if int(c) < len(errorCodeNames) {
		return errorCodeNames[c]
	}
	return fmt.Sprintf("ErrorCode(%#x)", uint32(c))
}

// Plain sentinel errors not tied to a wire error code.
var (
	ErrMissingBytes     = errors.New("h2: frame payload too short")
	ErrUnknownFrameType = errors.New("h2: unknown frame type")
	ErrBadPreface       = errors.New("h2: bad connection preface")
	ErrFrameMismatch    = errors.New("h2: frame type mismatch")
	ErrPayloadExceeds   = errors.New("h2: frame payload exceeds negotiated MAX_FRAME_SIZE")
	ErrUnexpectedSize   = errors.New("h2: header block fragment incomplete")
	ErrCompression      = errors.New("h2: HPACK decompression failed")
	ErrHeaderListTooLarge = errors.New("h2: decoded header list exceeds MAX_HEADER_LIST_SIZE")
	ErrWindowOverflow   = errors.New("h2: flow-control window increment overflows")
	ErrServerSupport    = errors.New("h2: server does not support HTTP/2")
	ErrNoAvailableIDs   = errors.New("h2: ran out of stream identifiers")
	ErrSessionClosed    = errors.New("h2: session is closed")

	// ErrAssertViolation signals concurrent use of a stream's read or
	// write half by more than one goroutine (see §5: "a second
	// acquirer is an assertion violation").
	ErrAssertViolation = errors.New("h2: stream accessed by a second reader/writer")
)

// Error is the sum-type error carried across the connection-level
// (GOAWAY) and stream-level (RST_STREAM) error paths.
//
// It mirrors the taxonomy from the spec's error-handling design:
// transport-fatal, timeout, protocol, and stream-local errors all
// reduce to this shape so callers can branch with errors.As.
type Error struct {
	// FrameType is FrameGoAway for connection errors and
	// FrameResetStream for stream errors.
	FrameType FrameType
	Code      ErrorCode
	Message   string
}

// NewGoAwayError builds a connection-level error.
func NewGoAwayError(code ErrorCode, msg string) error {
	return Error{FrameType: FrameGoAway, Code: code, Message: msg}
}

// NewStreamError builds a stream-level error.
func NewStreamError(code ErrorCode, msg string) error {
	return Error{FrameType: FrameResetStream, Code: code, Message: msg}
}

func (e Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s: %s", e.FrameType, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.FrameType, e.Code)
}

// IsConnectionError reports whether e should tear down the whole
// session (as opposed to a single stream).
func (e Error) IsConnectionError() bool { return e.FrameType == FrameGoAway }

// ErrConnectionClosed indicates the transport closed, a peer RST, or
// a fatal TLS alert: the session is gone and every stream must
// surface this on its next operation.
var ErrConnectionClosed = errors.New("h2: connection closed")

// ErrTimeout is returned by any blocking operation whose deadline
// elapsed: wait_for_data, request-total, handshake, or
// session-inactivity.
var ErrTimeout = errors.New("h2: operation timed out")
