package h2

import "sync"

const (
	DefaultHeaderTableSize   uint32 = 4096
	DefaultMaxConcurrent     uint32 = 100
	DefaultInitialWindowSize uint32 = 1<<16 - 1
	DefaultMaxFrameSize      uint32 = 1 << 14

	MaxWindowSize   = 1<<31 - 1
	MaxFrameSizeCap = 1<<24 - 1
)

// Settings ids, as carried one-per-6-byte-entry in a SETTINGS frame.
//
// https://httpwg.org/specs/rfc7540.html#SettingValues
const (
	SettingHeaderTableSize      uint16 = 0x1
	SettingEnablePush           uint16 = 0x2
	SettingMaxConcurrentStreams uint16 = 0x3
	SettingInitialWindowSize    uint16 = 0x4
	SettingMaxFrameSize         uint16 = 0x5
	SettingMaxHeaderListSize    uint16 = 0x6
)

var settingsPool = sync.Pool{
	New: func() interface{} {
		s := &Settings{}
		s.Reset()
		return s
	},
}

func acquireSettings() *Settings { return settingsPool.Get().(*Settings) }

func releaseSettings(s *Settings) {
	s.Reset()
	settingsPool.Put(s)
}

// AcquireSettings returns a Settings value with the protocol defaults
// from a pool.
func AcquireSettings() *Settings { return acquireSettings() }

// ReleaseSettings returns s to the pool.
func ReleaseSettings(s *Settings) { releaseSettings(s) }

// Settings is both a SETTINGS frame body and the humanized endpoint
// configuration record described in spec §3. Each endpoint keeps two
// instances: our-applied and peer-applied.
type Settings struct {
	ack bool

	HeaderTableSize      uint32
	EnablePush           bool
	MaxConcurrentStreams uint32
	InitialWindowSize    uint32
	MaxFrameSize         uint32
	MaxHeaderListSize    uint32

	// explicit tracks which fields were present on the wire (or were
	// marked by markAll). Serialize consults it only for
	// MaxHeaderListSize, whose 0 would otherwise be ambiguous between
	// "no limit" and "not present"; the other fields are always emitted.
	explicit uint8
}

const (
	setHeaderTableSize = 1 << iota
	setEnablePush
	setMaxConcurrent
	setInitialWindow
	setMaxFrameSize
	setMaxHeaderList
)

func (s *Settings) Type() FrameType { return FrameSettings }

func (s *Settings) Reset() {
	s.ack = false
	s.HeaderTableSize = DefaultHeaderTableSize
	s.EnablePush = true
	s.MaxConcurrentStreams = 0 // 0 == unbounded per spec default
	s.InitialWindowSize = DefaultInitialWindowSize
	s.MaxFrameSize = DefaultMaxFrameSize
	s.MaxHeaderListSize = 0
	s.explicit = 0
}

// CopyTo copies every field (including ack) to dst.
func (s *Settings) CopyTo(dst *Settings) { *dst = *s }

func (s *Settings) Ack() bool     { return s.ack }
func (s *Settings) SetAck(v bool) { s.ack = v }

// markAll marks every field as explicitly set, so Serialize also
// includes MaxHeaderListSize on the wire.
func (s *Settings) markAll() {
	s.explicit = setHeaderTableSize | setEnablePush | setMaxConcurrent |
		setInitialWindow | setMaxFrameSize | setMaxHeaderList
}

// Deserialize decodes a SETTINGS frame payload (6-byte id/value
// entries) into s. Unknown ids are ignored, per §4.1.
func (s *Settings) Deserialize(frh *FrameHeader) error {
	s.ack = frh.Flags().Has(FlagAck)
	if s.ack {
		if len(frh.payload) != 0 {
			return NewGoAwayError(FrameSizeError, "SETTINGS ack with non-empty payload")
		}
		return nil
	}
	if len(frh.payload)%6 != 0 {
		return NewGoAwayError(FrameSizeError, "SETTINGS payload not a multiple of 6")
	}

	b := frh.payload
	for len(b) >= 6 {
		id := uint16(b[0])<<8 | uint16(b[1])
		value := bytesToUint32(b[2:6])

		switch id {
		case SettingHeaderTableSize:
			s.HeaderTableSize = value
			s.explicit |= setHeaderTableSize
		case SettingEnablePush:
			s.EnablePush = value != 0
			s.explicit |= setEnablePush
		case SettingMaxConcurrentStreams:
			s.MaxConcurrentStreams = value
			s.explicit |= setMaxConcurrent
		case SettingInitialWindowSize:
			if value > MaxWindowSize {
				return NewGoAwayError(FlowControlError, "INITIAL_WINDOW_SIZE too large")
			}
			s.InitialWindowSize = value
			s.explicit |= setInitialWindow
		case SettingMaxFrameSize:
			if value < DefaultMaxFrameSize || value > MaxFrameSizeCap {
				return NewGoAwayError(ProtocolError, "MAX_FRAME_SIZE out of range")
			}
			s.MaxFrameSize = value
			s.explicit |= setMaxFrameSize
		case SettingMaxHeaderListSize:
			s.MaxHeaderListSize = value
			s.explicit |= setMaxHeaderList
		}
		b = b[6:]
	}
	return nil
}

// Serialize encodes s as a SETTINGS payload: every field except
// MaxHeaderListSize is always emitted; MaxHeaderListSize only when it
// is marked explicit.
func (s *Settings) Serialize(frh *FrameHeader) {
	if s.ack {
		frh.SetFlags(frh.Flags().Add(FlagAck))
		frh.setPayload(nil)
		return
	}

	payload := frh.payload[:0]
	payload = appendSetting(payload, SettingHeaderTableSize, s.HeaderTableSize)
	push := uint32(0)
	if s.EnablePush {
		push = 1
	}
	payload = appendSetting(payload, SettingEnablePush, push)
	payload = appendSetting(payload, SettingMaxConcurrentStreams, s.MaxConcurrentStreams)
	payload = appendSetting(payload, SettingInitialWindowSize, s.InitialWindowSize)
	payload = appendSetting(payload, SettingMaxFrameSize, s.MaxFrameSize)
	if s.explicit&setMaxHeaderList != 0 {
		payload = appendSetting(payload, SettingMaxHeaderListSize, s.MaxHeaderListSize)
	}
	frh.setPayload(payload)
}

func appendSetting(dst []byte, id uint16, value uint32) []byte {
	dst = append(dst, byte(id>>8), byte(id))
	return appendUint32(dst, value)
}

// DefaultSettings returns a Settings value pre-populated so every
// field is emitted on the wire (used for the initial handshake
// SETTINGS frame and for tests). MaxConcurrentStreams is set to
// DefaultMaxConcurrent, since an advertised 0 is the shutdown notice
// GoAwayGraceful sends.
func DefaultSettings() *Settings {
	s := &Settings{}
	s.Reset()
	s.MaxConcurrentStreams = DefaultMaxConcurrent
	s.markAll()
	return s
}
