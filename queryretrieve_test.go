package dicom_test

import (
	"testing"

	dicom "github.com/odincare/dicomkit"
	"github.com/odincare/dicomkit/dicomelement"
	"github.com/odincare/dicomkit/dicomtag"
	"github.com/stretchr/testify/require"
)

func TestQueryEmptyFilterIsUniversalMatch(t *testing.T) {
	obj := dicom.NewInMemObject()
	obj.Put(strElem(dicomtag.PatientName, "PN", "Doe^Jane"))

	f := strElem(dicomtag.PatientName, "PN", "")
	match, matched, err := dicom.Query(obj, f)
	require.NoError(t, err)
	require.True(t, match)
	require.NotNil(t, matched)
}

func TestQueryGlobMatch(t *testing.T) {
	obj := dicom.NewInMemObject()
	obj.Put(strElem(dicomtag.PatientName, "PN", "Doe^Jane"))

	f := strElem(dicomtag.PatientName, "PN", "Doe*")
	match, matched, err := dicom.Query(obj, f)
	require.NoError(t, err)
	require.True(t, match)
	require.NotNil(t, matched)
}

func TestQueryNoMatch(t *testing.T) {
	obj := dicom.NewInMemObject()
	obj.Put(strElem(dicomtag.PatientName, "PN", "Smith^John"))

	f := strElem(dicomtag.PatientName, "PN", "Doe*")
	match, matched, err := dicom.Query(obj, f)
	require.NoError(t, err)
	require.False(t, match)
	require.Nil(t, matched)
}

func TestQueryMissingElementDoesNotMatchNonEmptyFilter(t *testing.T) {
	obj := dicom.NewInMemObject()
	f := strElem(dicomtag.PatientName, "PN", "Doe*")
	match, _, err := dicom.Query(obj, f)
	require.NoError(t, err)
	require.False(t, match)
}

func TestQueryRejectsMultiValuedFilter(t *testing.T) {
	obj := dicom.NewInMemObject()
	f := &dicom.Element{
		Tag:   dicomtag.PatientName,
		VR:    "PN",
		Value: dicom.NewPrimitiveValue(dicomelement.NewStrs([]string{"a", "b"})),
	}
	_, _, err := dicom.Query(obj, f)
	require.Error(t, err)
}

func TestQueryAlwaysMatchesQueryRetrieveLevel(t *testing.T) {
	obj := dicom.NewInMemObject()
	f := strElem(dicomtag.QueryRetrieveLevel, "CS", "STUDY")
	match, _, err := dicom.Query(obj, f)
	require.NoError(t, err)
	require.True(t, match)
}

func TestQueryUIMatchesExactUID(t *testing.T) {
	obj := dicom.NewInMemObject()
	obj.Put(strElem(dicomtag.StudyInstanceUID, "UI", "1.2.3"))

	f := &dicom.Element{
		Tag:   dicomtag.StudyInstanceUID,
		VR:    "UI",
		Value: dicom.NewPrimitiveValue(dicomelement.NewStrs([]string{"1.2.3"})),
	}
	match, _, err := dicom.Query(obj, f)
	require.NoError(t, err)
	require.True(t, match)
}
