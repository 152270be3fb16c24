package nrbf

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/moriyoshi/dotnetserde/internal/xerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestReadLengthPrefixedStringShortForm(t *testing.T) {
	buf := &bytes.Buffer{}
	buf.WriteByte(5)
	buf.WriteString("hello")
	s, err := readLengthPrefixedString(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", s)
}

func TestReadLengthPrefixedStringMultiByte(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 200)
	buf := &bytes.Buffer{}
	// 200 = 0xC8; low 7 bits = 0x48 with continuation bit set, next byte = 1
	buf.WriteByte(0x80 | 0x48)
	buf.WriteByte(1)
	buf.Write(payload)
	s, err := readLengthPrefixedString(buf)
	require.NoError(t, err)
	assert.Equal(t, string(payload), s)
}

func TestReadLengthPrefixedStringUnexpectedEOF(t *testing.T) {
	buf := &bytes.Buffer{}
	buf.WriteByte(5)
	buf.WriteString("ab")
	_, err := readLengthPrefixedString(buf)
	var eof *xerr.UnexpectedEOF
	require.ErrorAs(t, err, &eof)
}

func TestDecodeDateTimeUnspecified(t *testing.T) {
	// ticks for 2000-01-01T00:00:00, kind=0 (Unspecified)
	base := time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)
	days := (base.Unix() - utcEpochOrdinalBase.Unix()) / 86400
	ticks := uint64(days) * 24 * 60 * 60 * 10000000
	dt, err := decodeDateTime(ticks, nil)
	require.NoError(t, err)
	assert.Equal(t, base, dt)
}

func TestDecodeDateTimeUTC(t *testing.T) {
	base := time.Date(2000, time.January, 1, 12, 30, 15, 0, time.UTC)
	days := (time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC).Unix() - utcEpochOrdinalBase.Unix()) / 86400
	ticksOfDay := uint64(12*3600+30*60+15) * 10000000
	ticks := uint64(days)*86400*10000000 + ticksOfDay
	kindBit := uint64(1) << 62
	dt, err := decodeDateTime(ticks|kindBit, nil)
	require.NoError(t, err)
	assert.True(t, dt.Equal(base))
}

func TestDecodeDateTimeInvalidKind(t *testing.T) {
	kindBit := uint64(3) << 62
	_, err := decodeDateTime(kindBit, nil)
	var ik *xerr.InvalidDateTimeKind
	require.ErrorAs(t, err, &ik)
}

func TestDecodeTimeSpan(t *testing.T) {
	d := decodeTimeSpan(10_000_000) // 1 second, in 100ns ticks
	assert.Equal(t, time.Second, d)
}

func TestDeserializerSimpleHeaderAndEnd(t *testing.T) {
	buf := &bytes.Buffer{}
	buf.WriteByte(0) // SerializedStreamHandler
	header := make([]byte, 16)
	binary.LittleEndian.PutUint32(header[0:4], 1)  // root_id
	binary.LittleEndian.PutUint32(header[4:8], 0)  // header_id (libraryID 0 convention)
	binary.LittleEndian.PutUint32(header[8:12], 1) // major
	binary.LittleEndian.PutUint32(header[12:16], 0) // minor
	buf.Write(header)
	buf.WriteByte(11) // MessageEnd

	d := NewDeserializer()
	result, err := d.Decode(buf)
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.RootID)
	assert.True(t, result.HasRootID)
}

func TestDeserializerUnknownRecord(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0xFF})
	d := NewDeserializer()
	_, err := d.Decode(buf)
	var ur *xerr.UnknownRecord
	require.ErrorAs(t, err, &ur)
	assert.Equal(t, 255, ur.Code)
}

func TestDeserializerRejectsUnsupportedStringEncoding(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0})
	d := NewDeserializer(WithStringEncoding("shift-jis"))
	_, err := d.Decode(buf)
	var ni *xerr.NotImplemented
	require.ErrorAs(t, err, &ni)
}

func TestDeserializerAcceptsUTF8EncodingCaseInsensitive(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0xFF})
	d := NewDeserializer(WithStringEncoding("UTF-8"))
	_, err := d.Decode(buf)
	var ur *xerr.UnknownRecord
	require.ErrorAs(t, err, &ur)
}

func TestDeserializerShortHeaderIsUnexpectedEOF(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0, 1, 2, 3})
	d := NewDeserializer()
	_, err := d.Decode(buf)
	var eof *xerr.UnexpectedEOF
	require.ErrorAs(t, err, &eof)
}

func TestBinaryObjectStringRoundTrip(t *testing.T) {
	buf := &bytes.Buffer{}
	buf.WriteByte(0)
	header := make([]byte, 16)
	binary.LittleEndian.PutUint32(header[0:4], 1)
	binary.LittleEndian.PutUint32(header[8:12], 1)
	buf.Write(header)

	buf.WriteByte(6) // BinaryObjectString
	objID := make([]byte, 4)
	binary.LittleEndian.PutUint32(objID, 1)
	buf.Write(objID)
	buf.WriteByte(5)
	buf.WriteString("hello")

	buf.WriteByte(11)

	d := NewDeserializer()
	result, err := d.Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", result.Objects[1])
}
