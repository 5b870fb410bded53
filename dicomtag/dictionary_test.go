package dicomtag_test

import (
	"testing"

	"github.com/odincare/dicomkit/dicomtag"
	"github.com/stretchr/testify/require"
)

func TestFindExactMatch(t *testing.T) {
	e, err := dicomtag.Find(dicomtag.PatientName)
	require.NoError(t, err)
	require.Equal(t, "PN", e.VR)
	require.Equal(t, "PatientName", e.Keyword)
}

func TestFindGroup100Wildcard(t *testing.T) {
	// Overlay Data is registered at (6000,3000) with Group100 masking; any
	// group in 6000-60FF should resolve to the same entry.
	e, err := dicomtag.Find(dicomtag.Tag{Group: 0x6010, Element: 0x3000})
	require.NoError(t, err)
	require.Equal(t, "OverlayData", e.Keyword)

	e, err = dicomtag.Find(dicomtag.Tag{Group: 0x60ff, Element: 0x3000})
	require.NoError(t, err)
	require.Equal(t, "OverlayData", e.Keyword)
}

func TestFindElement100Wildcard(t *testing.T) {
	// Source Image IDs is registered at (0020,3100) with Element100
	// masking; any element in the 31xx range of group 0020 should resolve
	// to the same entry.
	e, err := dicomtag.Find(dicomtag.Tag{Group: 0x0020, Element: 0x3100})
	require.NoError(t, err)
	require.Equal(t, "SourceImageIDs", e.Keyword)

	e, err = dicomtag.Find(dicomtag.Tag{Group: 0x0020, Element: 0x31ff})
	require.NoError(t, err)
	require.Equal(t, "SourceImageIDs", e.Keyword)

	_, err = dicomtag.Find(dicomtag.Tag{Group: 0x0021, Element: 0x3100})
	require.Error(t, err)
}

func TestFindUnknownTag(t *testing.T) {
	_, err := dicomtag.Find(dicomtag.Tag{Group: 0x1111, Element: 0x2222})
	require.Error(t, err)
}

func TestMustFindPanicsOnUnknown(t *testing.T) {
	require.Panics(t, func() {
		dicomtag.MustFind(dicomtag.Tag{Group: 0x1111, Element: 0x2222})
	})
}

func TestFindByKeywordAndName(t *testing.T) {
	e, err := dicomtag.FindByKeyword("StudyInstanceUID")
	require.NoError(t, err)
	require.Equal(t, dicomtag.StudyInstanceUID, e.Tag)

	e2, err := dicomtag.FindByName("StudyInstanceUID")
	require.NoError(t, err)
	require.Equal(t, e.Tag, e2.Tag)

	_, err = dicomtag.FindByKeyword("NotAKeyword")
	require.Error(t, err)
}

func TestParseSelector(t *testing.T) {
	steps, err := dicomtag.ParseSelector("PatientName")
	require.NoError(t, err)
	require.Len(t, steps, 1)
	require.Equal(t, dicomtag.PatientName, steps[0].Tag)
	require.False(t, steps[0].IsIndex)

	steps, err = dicomtag.ParseSelector("StudyInstanceUID.0.PatientName")
	require.NoError(t, err)
	require.Len(t, steps, 3)
	require.Equal(t, dicomtag.StudyInstanceUID, steps[0].Tag)
	require.True(t, steps[1].IsIndex)
	require.Equal(t, 0, steps[1].Index)
	require.Equal(t, dicomtag.PatientName, steps[2].Tag)
}

func TestParseSelectorRejectsEmptyComponent(t *testing.T) {
	_, err := dicomtag.ParseSelector("PatientName..PatientID")
	require.Error(t, err)
}
