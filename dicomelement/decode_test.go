package dicomelement_test

import (
	"encoding/binary"
	"testing"

	"github.com/odincare/dicomkit/dicomelement"
	"github.com/odincare/dicomkit/dicomio"
	"github.com/odincare/dicomkit/dicomtag"
	"github.com/stretchr/testify/require"
)

func TestReadPrimitiveValueZeroLengthIsEmpty(t *testing.T) {
	d := dicomio.NewBytesDecoder(nil, binary.LittleEndian, dicomio.ExplicitVR)
	v, err := dicomelement.ReadPrimitiveValue(d, "LO", dicomtag.Length(0), false)
	require.NoError(t, err)
	require.True(t, v.IsEmpty())
}

func TestReadPrimitiveValueRequiresDefinedLength(t *testing.T) {
	d := dicomio.NewBytesDecoder(nil, binary.LittleEndian, dicomio.ExplicitVR)
	_, err := dicomelement.ReadPrimitiveValue(d, "OB", dicomtag.UndefinedLength, false)
	require.Error(t, err)
}

func TestPrimitiveValueRoundTripAT(t *testing.T) {
	e := dicomio.NewBytesEncoder(binary.LittleEndian, dicomio.ExplicitVR)
	v := dicomelement.NewTags([]dicomtag.Tag{dicomtag.PatientName, dicomtag.PatientID})
	dicomelement.WritePrimitiveValue(e, "AT", v)
	require.NoError(t, e.Error())

	d := dicomio.NewBytesDecoder(e.Bytes(), binary.LittleEndian, dicomio.ExplicitVR)
	got, err := dicomelement.ReadPrimitiveValue(d, "AT", dicomtag.Length(8), false)
	require.NoError(t, err)
	tags, err := got.Tags()
	require.NoError(t, err)
	require.Equal(t, []dicomtag.Tag{dicomtag.PatientName, dicomtag.PatientID}, tags)
}

func TestPrimitiveValueRoundTripBytesOddLengthPadded(t *testing.T) {
	e := dicomio.NewBytesEncoder(binary.LittleEndian, dicomio.ExplicitVR)
	v := dicomelement.NewBytes([]byte{1, 2, 3})
	dicomelement.WritePrimitiveValue(e, "OB", v)
	require.NoError(t, e.Error())
	require.Len(t, e.Bytes(), 4)

	d := dicomio.NewBytesDecoder(e.Bytes(), binary.LittleEndian, dicomio.ExplicitVR)
	got, err := dicomelement.ReadPrimitiveValue(d, "OB", dicomtag.Length(4), false)
	require.NoError(t, err)
	b, err := got.Bytes()
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 0}, b)
}

func TestPrimitiveValueRoundTripUL(t *testing.T) {
	e := dicomio.NewBytesEncoder(binary.LittleEndian, dicomio.ExplicitVR)
	v := dicomelement.NewU32s([]uint32{42, 99})
	dicomelement.WritePrimitiveValue(e, "UL", v)

	d := dicomio.NewBytesDecoder(e.Bytes(), binary.LittleEndian, dicomio.ExplicitVR)
	got, err := dicomelement.ReadPrimitiveValue(d, "UL", dicomtag.Length(8), false)
	require.NoError(t, err)
	ints, err := got.ToInts()
	require.NoError(t, err)
	require.Equal(t, []int64{42, 99}, ints)
}

func TestPrimitiveValueRoundTripSLAndSS(t *testing.T) {
	e := dicomio.NewBytesEncoder(binary.LittleEndian, dicomio.ExplicitVR)
	dicomelement.WritePrimitiveValue(e, "SL", dicomelement.NewI32s([]int32{-7}))
	d := dicomio.NewBytesDecoder(e.Bytes(), binary.LittleEndian, dicomio.ExplicitVR)
	got, err := dicomelement.ReadPrimitiveValue(d, "SL", dicomtag.Length(4), false)
	require.NoError(t, err)
	ints, err := got.ToInts()
	require.NoError(t, err)
	require.Equal(t, []int64{-7}, ints)

	e2 := dicomio.NewBytesEncoder(binary.LittleEndian, dicomio.ExplicitVR)
	dicomelement.WritePrimitiveValue(e2, "SS", dicomelement.NewI16s([]int16{-3, 4}))
	d2 := dicomio.NewBytesDecoder(e2.Bytes(), binary.LittleEndian, dicomio.ExplicitVR)
	got2, err := dicomelement.ReadPrimitiveValue(d2, "SS", dicomtag.Length(4), false)
	require.NoError(t, err)
	ints2, err := got2.ToInts()
	require.NoError(t, err)
	require.Equal(t, []int64{-3, 4}, ints2)
}

func TestPrimitiveValueRoundTripFloatVRs(t *testing.T) {
	e := dicomio.NewBytesEncoder(binary.LittleEndian, dicomio.ExplicitVR)
	dicomelement.WritePrimitiveValue(e, "FL", dicomelement.NewF32s([]float32{1.5}))
	d := dicomio.NewBytesDecoder(e.Bytes(), binary.LittleEndian, dicomio.ExplicitVR)
	got, err := dicomelement.ReadPrimitiveValue(d, "OF", dicomtag.Length(4), false)
	require.NoError(t, err)
	floats, err := got.ToFloat64s()
	require.NoError(t, err)
	require.InDelta(t, 1.5, floats[0], 1e-6)

	e2 := dicomio.NewBytesEncoder(binary.LittleEndian, dicomio.ExplicitVR)
	dicomelement.WritePrimitiveValue(e2, "FD", dicomelement.NewF64s([]float64{2.25}))
	d2 := dicomio.NewBytesDecoder(e2.Bytes(), binary.LittleEndian, dicomio.ExplicitVR)
	got2, err := dicomelement.ReadPrimitiveValue(d2, "OD", dicomtag.Length(8), false)
	require.NoError(t, err)
	floats2, err := got2.ToFloat64s()
	require.NoError(t, err)
	require.InDelta(t, 2.25, floats2[0], 1e-9)
}

func TestPrimitiveValueRoundTripTextualVRPadsWithSpace(t *testing.T) {
	e := dicomio.NewBytesEncoder(binary.LittleEndian, dicomio.ExplicitVR)
	dicomelement.WritePrimitiveValue(e, "ST", dicomelement.NewStrs([]string{"odd"}))
	require.Len(t, e.Bytes(), 4)

	d := dicomio.NewBytesDecoder(e.Bytes(), binary.LittleEndian, dicomio.ExplicitVR)
	got, err := dicomelement.ReadPrimitiveValue(d, "ST", dicomtag.Length(4), false)
	require.NoError(t, err)
	s, err := got.Str()
	require.NoError(t, err)
	require.Equal(t, "odd", s)
}

func TestPrimitiveValueDefaultBackslashSplit(t *testing.T) {
	e := dicomio.NewBytesEncoder(binary.LittleEndian, dicomio.ExplicitVR)
	dicomelement.WritePrimitiveValue(e, "LO", dicomelement.NewStrs([]string{"a", "bc"}))
	d := dicomio.NewBytesDecoder(e.Bytes(), binary.LittleEndian, dicomio.ExplicitVR)
	got, err := dicomelement.ReadPrimitiveValue(d, "LO", dicomtag.Length(int(len(e.Bytes()))), false)
	require.NoError(t, err)
	ss, err := got.Strs()
	require.NoError(t, err)
	require.Equal(t, []string{"a", "bc"}, ss)
}

func TestPrimitiveValueUIPadsWithNull(t *testing.T) {
	e := dicomio.NewBytesEncoder(binary.LittleEndian, dicomio.ExplicitVR)
	dicomelement.WritePrimitiveValue(e, "UI", dicomelement.NewStrs([]string{"1.2.3"}))
	raw := e.Bytes()
	require.Len(t, raw, 6)
	require.Equal(t, byte(0), raw[5])
}
