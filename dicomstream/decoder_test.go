package dicomstream_test

import (
	"encoding/binary"
	"io"
	"testing"

	"github.com/odincare/dicomkit/dicomelement"
	"github.com/odincare/dicomkit/dicomio"
	"github.com/odincare/dicomkit/dicomstream"
	"github.com/odincare/dicomkit/dicomtag"
	"github.com/stretchr/testify/require"
)

func TestStreamDecoderSimplePrimitiveElement(t *testing.T) {
	e := dicomio.NewBytesEncoder(binary.LittleEndian, dicomio.ExplicitVR)
	dicomelement.WriteHeader(e, dicomelement.Header{Tag: dicomtag.PatientName, VR: "PN", Length: 8})
	dicomelement.WritePrimitiveValue(e, "PN", dicomelement.NewStrs([]string{"Doe^Jane"}))
	require.NoError(t, e.Error())

	d := dicomio.NewBytesDecoder(e.Bytes(), binary.LittleEndian, dicomio.ExplicitVR)
	sd := dicomstream.NewStreamDecoder(d)

	hdr, err := sd.Next()
	require.NoError(t, err)
	require.Equal(t, dicomstream.TokenElementHeader, hdr.Kind)
	require.Equal(t, dicomtag.PatientName, hdr.Header.Tag)

	val, err := sd.Next()
	require.NoError(t, err)
	require.Equal(t, dicomstream.TokenPrimitiveValue, val.Kind)
	s, err := val.Value.Str()
	require.NoError(t, err)
	require.Equal(t, "Doe^Jane", s)

	_, err = sd.Next()
	require.Equal(t, io.EOF, err)
}

func buildSequenceBytes(t *testing.T) ([]byte, dicomtag.Tag) {
	t.Helper()
	outerTag := dicomtag.Tag{Group: 0x0008, Element: 0x1110}

	e := dicomio.NewBytesEncoder(binary.LittleEndian, dicomio.ExplicitVR)
	dicomelement.WriteHeader(e, dicomelement.Header{Tag: outerTag, VR: "SQ", Length: dicomtag.UndefinedLength})
	dicomelement.WriteHeader(e, dicomelement.Header{Tag: dicomtag.Item, Length: dicomtag.Length(16)})
	dicomelement.WriteHeader(e, dicomelement.Header{Tag: dicomtag.PatientBirthDate, VR: "DA", Length: 8})
	dicomelement.WritePrimitiveValue(e, "DA", dicomelement.NewStrs([]string{"19530828"}))
	dicomelement.WriteHeader(e, dicomelement.Header{Tag: dicomtag.SequenceDelimitationItem, Length: 0})
	require.NoError(t, e.Error())
	return e.Bytes(), outerTag
}

func TestStreamDecoderSequenceWithDefinedLengthItem(t *testing.T) {
	data, outerTag := buildSequenceBytes(t)
	d := dicomio.NewBytesDecoder(data, binary.LittleEndian, dicomio.ExplicitVR)
	sd := dicomstream.NewStreamDecoder(d)

	var kinds []dicomstream.TokenKind
	for {
		tok, err := sd.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		kinds = append(kinds, tok.Kind)
		if tok.Kind == dicomstream.TokenElementHeader && tok.Header.Tag == outerTag {
			require.Equal(t, "SQ", tok.Header.VR)
		}
	}

	require.Equal(t, []dicomstream.TokenKind{
		dicomstream.TokenElementHeader,
		dicomstream.TokenSequenceStart,
		dicomstream.TokenItemStart,
		dicomstream.TokenElementHeader,
		dicomstream.TokenPrimitiveValue,
		dicomstream.TokenItemEnd,
		dicomstream.TokenSequenceEnd,
	}, kinds)
}

func TestStreamDecoderUndefinedLengthUNIsTreatedAsSequence(t *testing.T) {
	outerTag := dicomtag.Tag{Group: 0x0009, Element: 0x0010}

	e := dicomio.NewBytesEncoder(binary.LittleEndian, dicomio.ExplicitVR)
	dicomelement.WriteHeader(e, dicomelement.Header{Tag: outerTag, VR: "UN", Length: dicomtag.UndefinedLength})
	// The item's contents are Implicit VR Little Endian regardless of the
	// outer explicit-VR transfer syntax: tag + 4-byte length, no VR bytes.
	dicomelement.WriteHeader(e, dicomelement.Header{Tag: dicomtag.Item, Length: dicomtag.Length(8)})
	e.WriteTag(dicomtag.PatientID)
	e.WriteUInt32(0)
	dicomelement.WriteHeader(e, dicomelement.Header{Tag: dicomtag.SequenceDelimitationItem, Length: 0})
	require.NoError(t, e.Error())

	d := dicomio.NewBytesDecoder(e.Bytes(), binary.LittleEndian, dicomio.ExplicitVR)
	sd := dicomstream.NewStreamDecoder(d)

	var kinds []dicomstream.TokenKind
	for {
		tok, err := sd.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		kinds = append(kinds, tok.Kind)
	}

	require.Equal(t, []dicomstream.TokenKind{
		dicomstream.TokenElementHeader,
		dicomstream.TokenSequenceStart,
		dicomstream.TokenItemStart,
		dicomstream.TokenElementHeader,
		dicomstream.TokenPrimitiveValue,
		dicomstream.TokenItemEnd,
		dicomstream.TokenSequenceEnd,
	}, kinds)

	order, implicit := d.TransferSyntax()
	require.Equal(t, binary.LittleEndian, order)
	require.Equal(t, dicomio.ExplicitVR, implicit, "transfer syntax must be restored once the UN sequence closes")
}

func TestStreamDecoderPixelSequenceFragments(t *testing.T) {
	e := dicomio.NewBytesEncoder(binary.LittleEndian, dicomio.ExplicitVR)
	dicomelement.WriteHeader(e, dicomelement.Header{Tag: dicomtag.PixelData, VR: "OB", Length: dicomtag.UndefinedLength})
	dicomelement.WriteHeader(e, dicomelement.Header{Tag: dicomtag.Item, Length: dicomtag.Length(4)})
	e.WriteBytes([]byte{1, 2, 3, 4})
	dicomelement.WriteHeader(e, dicomelement.Header{Tag: dicomtag.SequenceDelimitationItem, Length: 0})
	require.NoError(t, e.Error())

	d := dicomio.NewBytesDecoder(e.Bytes(), binary.LittleEndian, dicomio.ExplicitVR)
	sd := dicomstream.NewStreamDecoder(d)

	hdr, err := sd.Next()
	require.NoError(t, err)
	require.Equal(t, dicomstream.TokenElementHeader, hdr.Kind)

	start, err := sd.Next()
	require.NoError(t, err)
	require.Equal(t, dicomstream.TokenPixelSequenceStart, start.Kind)

	frag, err := sd.Next()
	require.NoError(t, err)
	require.Equal(t, dicomstream.TokenItemValue, frag.Kind)
	require.Equal(t, []byte{1, 2, 3, 4}, frag.ItemBytes)

	end, err := sd.Next()
	require.NoError(t, err)
	require.Equal(t, dicomstream.TokenPixelSequenceEnd, end.Kind)

	_, err = sd.Next()
	require.Equal(t, io.EOF, err)
}
