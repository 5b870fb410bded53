package dicomelement_test

import (
	"encoding/binary"
	"testing"

	"github.com/odincare/dicomkit/dicomelement"
	"github.com/odincare/dicomkit/dicomio"
	"github.com/odincare/dicomkit/dicomtag"
	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTripExplicitShortForm(t *testing.T) {
	e := dicomio.NewBytesEncoder(binary.LittleEndian, dicomio.ExplicitVR)
	dicomelement.WriteHeader(e, dicomelement.Header{Tag: dicomtag.PatientName, VR: "PN", Length: 8})
	require.NoError(t, e.Error())

	d := dicomio.NewBytesDecoder(e.Bytes(), binary.LittleEndian, dicomio.ExplicitVR)
	h, err := dicomelement.ReadHeader(d)
	require.NoError(t, err)
	require.Equal(t, dicomtag.PatientName, h.Tag)
	require.Equal(t, "PN", h.VR)
	require.Equal(t, dicomtag.Length(8), h.Length)
}

func TestHeaderRoundTripExplicitLongForm(t *testing.T) {
	e := dicomio.NewBytesEncoder(binary.LittleEndian, dicomio.ExplicitVR)
	dicomelement.WriteHeader(e, dicomelement.Header{Tag: dicomtag.PixelData, VR: "OB", Length: 1024})
	require.NoError(t, e.Error())

	d := dicomio.NewBytesDecoder(e.Bytes(), binary.LittleEndian, dicomio.ExplicitVR)
	h, err := dicomelement.ReadHeader(d)
	require.NoError(t, err)
	require.Equal(t, "OB", h.VR)
	require.Equal(t, dicomtag.Length(1024), h.Length)
}

func TestHeaderUndefinedLengthExplicitShortForm(t *testing.T) {
	e := dicomio.NewBytesEncoder(binary.LittleEndian, dicomio.ExplicitVR)
	dicomelement.WriteHeader(e, dicomelement.Header{Tag: dicomtag.PatientName, VR: "PN", Length: dicomtag.UndefinedLength})
	d := dicomio.NewBytesDecoder(e.Bytes(), binary.LittleEndian, dicomio.ExplicitVR)
	h, err := dicomelement.ReadHeader(d)
	require.NoError(t, err)
	require.True(t, h.Length.IsUndefined())
}

func TestHeaderImplicitVRResolvesDictionaryVR(t *testing.T) {
	e := dicomio.NewBytesEncoder(binary.LittleEndian, dicomio.ImplicitVR)
	dicomelement.WriteHeader(e, dicomelement.Header{Tag: dicomtag.PatientID, VR: "LO", Length: 4})
	d := dicomio.NewBytesDecoder(e.Bytes(), binary.LittleEndian, dicomio.ImplicitVR)
	h, err := dicomelement.ReadHeader(d)
	require.NoError(t, err)
	require.Equal(t, "LO", h.VR)
	require.Equal(t, dicomtag.Length(4), h.Length)
}

func TestHeaderItemTagAlwaysImplicit(t *testing.T) {
	e := dicomio.NewBytesEncoder(binary.LittleEndian, dicomio.ExplicitVR)
	dicomelement.WriteHeader(e, dicomelement.Header{Tag: dicomtag.Item, Length: dicomtag.UndefinedLength})
	d := dicomio.NewBytesDecoder(e.Bytes(), binary.LittleEndian, dicomio.ExplicitVR)
	h, err := dicomelement.ReadHeader(d)
	require.NoError(t, err)
	require.Equal(t, dicomtag.Item, h.Tag)
	require.True(t, h.Length.IsUndefined())
}

func TestHeaderInvalidVRDegradesToUN(t *testing.T) {
	e := dicomio.NewBytesEncoder(binary.LittleEndian, dicomio.ExplicitVR)
	e.WriteTag(dicomtag.Tag{Group: 0x0009, Element: 0x0001})
	e.WriteString("??")
	e.WriteZeros(2)
	e.WriteUInt32(2)
	e.WriteBytes([]byte{1, 2})

	d := dicomio.NewBytesDecoder(e.Bytes(), binary.LittleEndian, dicomio.ExplicitVR)
	h, err := dicomelement.ReadHeader(d)
	require.Error(t, err)
	var iv *dicomelement.InvalidVR
	require.ErrorAs(t, err, &iv)
	require.Equal(t, "UN", h.VR)
}
