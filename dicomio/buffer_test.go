package dicomio_test

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/odincare/dicomkit/dicomio"
	"github.com/odincare/dicomkit/dicomtag"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeScalarsRoundTrip(t *testing.T) {
	e := dicomio.NewBytesEncoder(binary.LittleEndian, dicomio.ExplicitVR)
	e.WriteUInt16(0x1234)
	e.WriteUInt32(0xdeadbeef)
	e.WriteInt16(-7)
	e.WriteInt32(-70000)
	e.WriteFloat32(1.5)
	e.WriteFloat64(2.5)
	e.WriteString("AB")
	require.NoError(t, e.Error())

	d := dicomio.NewBytesDecoder(e.Bytes(), binary.LittleEndian, dicomio.ExplicitVR)
	require.Equal(t, uint16(0x1234), d.ReadUInt16())
	require.Equal(t, uint32(0xdeadbeef), d.ReadUInt32())
	require.Equal(t, int16(-7), d.ReadInt16())
	require.Equal(t, int32(-70000), d.ReadInt32())
	require.Equal(t, float32(1.5), d.ReadFloat32())
	require.Equal(t, float64(2.5), d.ReadFloat64())
	require.Equal(t, "AB", d.ReadString(2))
	require.True(t, d.EOF())
	require.NoError(t, d.Finish())
}

func TestTagRoundTrip(t *testing.T) {
	e := dicomio.NewBytesEncoder(binary.LittleEndian, dicomio.ExplicitVR)
	e.WriteTag(dicomtag.PatientName)
	d := dicomio.NewBytesDecoder(e.Bytes(), binary.LittleEndian, dicomio.ExplicitVR)
	require.Equal(t, dicomtag.PatientName, d.ReadTag())
}

func TestPushPopTransferSyntax(t *testing.T) {
	d := dicomio.NewBytesDecoder(nil, binary.LittleEndian, dicomio.ExplicitVR)
	order, implicit := d.TransferSyntax()
	require.Equal(t, binary.LittleEndian, order)
	require.Equal(t, dicomio.ExplicitVR, implicit)

	d.PushTransferSyntax(binary.BigEndian, dicomio.ImplicitVR)
	order, implicit = d.TransferSyntax()
	require.Equal(t, binary.BigEndian, order)
	require.Equal(t, dicomio.ImplicitVR, implicit)

	d.PopTransferSyntax()
	order, implicit = d.TransferSyntax()
	require.Equal(t, binary.LittleEndian, order)
	require.Equal(t, dicomio.ExplicitVR, implicit)
}

func TestPushPopLimit(t *testing.T) {
	d := dicomio.NewBytesDecoder([]byte{1, 2, 3, 4, 5, 6}, binary.LittleEndian, dicomio.ExplicitVR)
	d.PushLimit(3)
	require.Equal(t, []byte{1, 2, 3}, d.ReadBytes(3))
	require.True(t, d.EOF())
	d.PopLimit()
	require.False(t, d.EOF())
	require.Equal(t, []byte{4, 5, 6}, d.ReadBytes(3))
}

func TestPositionTracksBytesRead(t *testing.T) {
	d := dicomio.NewBytesDecoder([]byte{1, 2, 3, 4}, binary.LittleEndian, dicomio.ExplicitVR)
	require.Equal(t, int64(0), d.Position())
	d.ReadUInt16()
	require.Equal(t, int64(2), d.Position())
}

func TestReadBytesPastEndSetsError(t *testing.T) {
	d := dicomio.NewBytesDecoder([]byte{1, 2}, binary.LittleEndian, dicomio.ExplicitVR)
	d.ReadBytes(10)
	require.Error(t, d.Error())
}

func TestSeekRepositionsBytesDecoder(t *testing.T) {
	d := dicomio.NewBytesDecoder([]byte{1, 2, 3, 4, 5, 6}, binary.LittleEndian, dicomio.ExplicitVR)
	require.Equal(t, []byte{1, 2}, d.ReadBytes(2))

	require.NoError(t, d.Seek(4))
	require.Equal(t, int64(4), d.Position())
	require.Equal(t, []byte{5, 6}, d.ReadBytes(2))
	require.True(t, d.EOF())
}

type nonSeekingReader struct{ io.Reader }

func TestSeekFailsWithoutUnderlyingSeeker(t *testing.T) {
	d := dicomio.NewDecoder(nonSeekingReader{bytes.NewReader([]byte{1, 2, 3})}, binary.LittleEndian, dicomio.ExplicitVR)
	require.Error(t, d.Seek(1))
}
