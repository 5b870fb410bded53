package dicomuid_test

import (
	"testing"

	"github.com/odincare/dicomkit/dicomuid"
	"github.com/stretchr/testify/require"
)

func TestLookupKnownUID(t *testing.T) {
	e, err := dicomuid.Lookup(dicomuid.ExplicitVRLittleEndian)
	require.NoError(t, err)
	require.Equal(t, dicomuid.TypeTransferSyntax, e.Type)
	require.Equal(t, "Explicit VR Little Endian", e.Name)
}

func TestLookupUnknownUID(t *testing.T) {
	_, err := dicomuid.Lookup("1.2.3.4.5.not.a.real.uid")
	require.Error(t, err)
}

func TestRegisterAddsEntry(t *testing.T) {
	dicomuid.Register(dicomuid.Entry{UID: "1.2.999.1", Name: "Test Private UID", Type: dicomuid.TypeOther})
	e, err := dicomuid.Lookup("1.2.999.1")
	require.NoError(t, err)
	require.Equal(t, "Test Private UID", e.Name)
	require.Equal(t, dicomuid.TypeOther, e.Type)
}

func TestUIDTypeString(t *testing.T) {
	require.Equal(t, "TransferSyntax", dicomuid.TypeTransferSyntax.String())
	require.Equal(t, "SOPClass", dicomuid.TypeSOPClass.String())
	require.Equal(t, "Other", dicomuid.TypeOther.String())
}
