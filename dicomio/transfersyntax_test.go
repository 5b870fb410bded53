package dicomio_test

import (
	"encoding/binary"
	"testing"

	"github.com/odincare/dicomkit/dicomio"
	"github.com/odincare/dicomkit/dicomuid"
	"github.com/stretchr/testify/require"
)

func TestParseTransferSyntaxUIDStandardForms(t *testing.T) {
	order, implicit, err := dicomio.ParseTransferSyntaxUID(dicomuid.ImplicitVRLittleEndian)
	require.NoError(t, err)
	require.Equal(t, binary.LittleEndian, order)
	require.Equal(t, dicomio.ImplicitVR, implicit)

	order, implicit, err = dicomio.ParseTransferSyntaxUID(dicomuid.ExplicitVRBigEndian)
	require.NoError(t, err)
	require.Equal(t, binary.BigEndian, order)
	require.Equal(t, dicomio.ExplicitVR, implicit)
}

func TestResolveTransferSyntaxStandardUIDIsCodecNone(t *testing.T) {
	ts, err := dicomio.ResolveTransferSyntax(dicomuid.ExplicitVRLittleEndian)
	require.NoError(t, err)
	require.Equal(t, dicomio.CodecNone, ts.Codec)
	require.Equal(t, binary.LittleEndian, ts.Endian)
	require.Equal(t, dicomio.ExplicitVR, ts.Explicit)
}

func TestResolveTransferSyntaxEncapsulatedWithoutCodecIsUnsupported(t *testing.T) {
	ts, err := dicomio.ResolveTransferSyntax(dicomuid.JPEGBaseline1)
	require.NoError(t, err)
	require.Equal(t, dicomio.CodecUnsupported, ts.Codec)
}

func TestResolveTransferSyntaxEncapsulatedWithRegisteredCodec(t *testing.T) {
	dicomio.RegisterPixelCodec(dicomuid.RLELossless)
	ts, err := dicomio.ResolveTransferSyntax(dicomuid.RLELossless)
	require.NoError(t, err)
	require.Equal(t, dicomio.CodecPixelAdapter, ts.Codec)
}

func TestResolveTransferSyntaxDeflatedHasDatasetAdapter(t *testing.T) {
	ts, err := dicomio.ResolveTransferSyntax(dicomuid.DeflatedExplicitVRLittleEndian)
	require.NoError(t, err)
	require.Equal(t, dicomio.CodecDatasetAdapter, ts.Codec)

	adapter, ok := dicomio.LookupDatasetAdapter(dicomuid.DeflatedExplicitVRLittleEndian)
	require.True(t, ok)
	out, err := adapter.DecodeReader([]byte{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, out)
}

func TestParseTransferSyntaxUIDUnregisteredReturnsError(t *testing.T) {
	_, _, err := dicomio.ParseTransferSyntaxUID("1.2.999.999.999")
	require.Error(t, err)
}

func TestCanonicalTransferSyntaxUIDUnregisteredReturnsError(t *testing.T) {
	_, err := dicomio.CanonicalTransferSyntaxUID("1.2.999.999.999")
	require.Error(t, err)
}

func TestCodecKindString(t *testing.T) {
	require.Equal(t, "none", dicomio.CodecNone.String())
	require.Equal(t, "unsupported", dicomio.CodecUnsupported.String())
	require.Equal(t, "dataset-adapter", dicomio.CodecDatasetAdapter.String())
}
