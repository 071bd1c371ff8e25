package h2

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameHeaderDataRoundTrip(t *testing.T) {
	d := acquireData()
	defer releaseData(d)
	d.SetData([]byte("make duohttp great again"))
	d.SetEndStream(true)

	frh := AcquireFrameHeader()
	defer ReleaseFrameHeader(frh)
	frh.SetBody(d)
	frh.SetStream(3)

	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	_, err := frh.WriteTo(bw)
	require.NoError(t, err)
	require.NoError(t, bw.Flush())

	br := bufio.NewReader(&buf)
	got, err := ReadFrameFrom(br)
	require.NoError(t, err)
	defer ReleaseFrameHeader(got)

	assert.Equal(t, FrameData, got.Type())
	assert.Equal(t, uint32(3), got.Stream())
	gd, ok := got.Body().(*Data)
	require.True(t, ok)
	assert.True(t, gd.EndStream())
	assert.Equal(t, "make duohttp great again", string(gd.Data()))
}

func TestFrameHeaderRejectsOversizedPayload(t *testing.T) {
	d := acquireData()
	defer releaseData(d)
	d.SetData(make([]byte, 100))

	frh := AcquireFrameHeader()
	defer ReleaseFrameHeader(frh)
	frh.SetBody(d)

	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	_, err := frh.WriteTo(bw)
	require.NoError(t, err)
	require.NoError(t, bw.Flush())

	_, err = ReadFrameFromWithSize(bufio.NewReader(&buf), 10)
	assert.ErrorIs(t, err, ErrPayloadExceeds)
}

func TestFrameHeaderDiscardsUnknownFrameType(t *testing.T) {
	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)

	var raw [9]byte
	uint24ToBytes(raw[:3], 4)
	raw[3] = 0x42 // unassigned frame type
	_, err := bw.Write(raw[:])
	require.NoError(t, err)
	_, err = bw.Write([]byte("abcd"))
	require.NoError(t, err)
	require.NoError(t, bw.Flush())
	buf.WriteString("next frame starts here")

	br := bufio.NewReader(&buf)
	_, err = ReadFrameFrom(br)
	assert.ErrorIs(t, err, ErrUnknownFrameType)

	rest, err := br.Peek(len("next frame starts here"))
	require.NoError(t, err)
	assert.Equal(t, "next frame starts here", string(rest))
}

func TestSettingsEncodeDecodeRoundTrip(t *testing.T) {
	s := AcquireSettings()
	defer ReleaseSettings(s)
	s.MaxConcurrentStreams = 42
	s.InitialWindowSize = 1 << 20

	frh := AcquireFrameHeader()
	defer ReleaseFrameHeader(frh)
	frh.SetBody(s)

	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	_, err := frh.WriteTo(bw)
	require.NoError(t, err)
	require.NoError(t, bw.Flush())

	got, err := ReadFrameFrom(bufio.NewReader(&buf))
	require.NoError(t, err)
	defer ReleaseFrameHeader(got)

	gs, ok := got.Body().(*Settings)
	require.True(t, ok)
	assert.Equal(t, uint32(42), gs.MaxConcurrentStreams)
	assert.Equal(t, uint32(1<<20), gs.InitialWindowSize)
}

func TestHPACKEncodeDecodeRoundTrip(t *testing.T) {
	h := AcquireHPACK()
	defer ReleaseHPACK(h)

	var hf HeaderField
	hf.Set(":method", "GET")
	block := h.AppendHeaderField(nil, &hf, false)

	var hf2 HeaderField
	hf2.Set("authorization", "secret")
	block = h.AppendHeaderField(block, &hf2, true)

	fields, err := h.DecodeFull(block, 0)
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, ":method", fields[0].Key())
	assert.Equal(t, "GET", fields[0].Value())
	assert.Equal(t, "authorization", fields[1].Key())
	assert.True(t, fields[1].IsSensitive())
}

func TestHeaderFieldSizeAccounting(t *testing.T) {
	var hf HeaderField
	hf.Set("x", "yz")
	assert.Equal(t, 1+2+32, hf.Size())
}
