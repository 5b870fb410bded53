package dicomtag

import "strings"

// VR is a closed enumeration of the DICOM value representations defined in
// PS3.5 6.2, plus the later additions OV/SV/UV.
type VR int

const (
	VRUnknown VR = iota
	AE
	AS
	AT
	CS
	DA
	DS
	DT
	FL
	FD
	IS
	LO
	LT
	OB
	OD
	OF
	OL
	OV
	OW
	PN
	SH
	SL
	SQ
	SS
	ST
	SV
	TM
	UC
	UI
	UL
	UN
	UR
	US
	UT
	UV
)

// vrMeta carries the static, per-VR metadata spec.md's C1 asks for: the
// byte width of the explicit-form length field, whether the VR is textual,
// whether it is ever multi-valued, and the byte width of one numeric
// element (0 for VRs with no fixed element width).
type vrMeta struct {
	code          string
	lengthWidth   int // 2 or 4, explicit-VR length field width
	textual       bool
	multiValued   bool
	elementWidth  int // bytes per numeric element; 0 if not numeric
}

var vrTable = map[VR]vrMeta{
	VRUnknown: {"??", 4, false, false, 0},
	AE:        {"AE", 2, true, true, 0},
	AS:        {"AS", 2, true, false, 0},
	AT:        {"AT", 2, false, true, 4},
	CS:        {"CS", 2, true, true, 0},
	DA:        {"DA", 2, true, true, 0},
	DS:        {"DS", 2, true, true, 0},
	DT:        {"DT", 2, true, true, 0},
	FL:        {"FL", 2, false, true, 4},
	FD:        {"FD", 2, false, true, 8},
	IS:        {"IS", 2, true, true, 0},
	LO:        {"LO", 2, true, true, 0},
	LT:        {"LT", 2, true, false, 0},
	OB:        {"OB", 4, false, false, 1},
	OD:        {"OD", 4, false, false, 8},
	OF:        {"OF", 4, false, false, 4},
	OL:        {"OL", 4, false, false, 4},
	OV:        {"OV", 4, false, false, 8},
	OW:        {"OW", 4, false, false, 2},
	PN:        {"PN", 2, true, true, 0},
	SH:        {"SH", 2, true, true, 0},
	SL:        {"SL", 2, false, true, 4},
	SQ:        {"SQ", 4, false, false, 0},
	SS:        {"SS", 2, false, true, 2},
	ST:        {"ST", 2, true, false, 0},
	SV:        {"SV", 4, false, true, 8},
	TM:        {"TM", 2, true, true, 0},
	UC:        {"UC", 4, true, true, 0},
	UI:        {"UI", 2, true, true, 0},
	UL:        {"UL", 2, false, true, 4},
	UN:        {"UN", 4, false, false, 1},
	UR:        {"UR", 4, true, false, 0},
	US:        {"US", 2, false, true, 2},
	UT:        {"UT", 4, true, false, 0},
	UV:        {"UV", 4, false, true, 8},
}

var vrByCode map[string]VR

func init() {
	vrByCode = make(map[string]VR, len(vrTable))
	for vr, meta := range vrTable {
		vrByCode[meta.code] = vr
	}
}

// String returns the two-letter DICOM code for v. VRUnknown renders as
// "??"; a value outside the VR enumeration renders as "UN".
func (v VR) String() string {
	if meta, ok := vrTable[v]; ok {
		return meta.code
	}
	return "UN"
}

// ExplicitLengthWidth returns 2 or 4: the width, in bytes, of the length
// field that follows this VR's two-letter code in explicit-VR encoding.
func (v VR) ExplicitLengthWidth() int {
	if meta, ok := vrTable[v]; ok {
		return meta.lengthWidth
	}
	return 4
}

// IsTextual reports whether values of this VR are decoded through the
// active character-set repertoire rather than treated as raw bytes.
func (v VR) IsTextual() bool {
	return vrTable[v].textual
}

// IsMultiValued reports whether this VR may hold more than one value,
// delimited by backslashes on the wire.
func (v VR) IsMultiValued() bool {
	return vrTable[v].multiValued
}

// ElementWidth returns the byte width of one numeric element for numeric
// VRs, or 0 for VRs with no fixed numeric width (strings, SQ). OB and UN
// report 1: one byte per element.
func (v VR) ElementWidth() int {
	return vrTable[v].elementWidth
}

// UsesExplicit32BitLength reports whether v is in the set of VRs that, in
// explicit-VR encoding, are followed by two reserved bytes and a 32-bit
// length rather than a bare 16-bit length (PS3.5 7.1.2).
func (v VR) UsesExplicit32BitLength() bool {
	return v.ExplicitLengthWidth() == 4
}

// ParseVR parses a two-letter DICOM VR code, case-insensitively, returning
// VRUnknown if s is not recognized.
func ParseVR(s string) VR {
	if vr, ok := vrByCode[strings.ToUpper(s)]; ok {
		return vr
	}
	return VRUnknown
}

// VRKind classifies the Go value shape an element with a given VR takes in
// memory. This is the bridge between the wire-level VR and the
// in-memory value shape: several VRs share a Go representation (e.g. every
// string-like VR is VRStringList).
type VRKind int

const (
	// VRStringList means the element stores a list of strings.
	VRStringList VRKind = iota
	// VRBytes means the element stores a []byte.
	VRBytes
	// VRString means the element stores a single string (never multi-valued).
	VRString
	// VRUInt16List means the element stores a list of uint16s.
	VRUInt16List
	// VRUInt32List means the element stores a list of uint32s.
	VRUInt32List
	// VRInt16List means the element stores a list of int16s.
	VRInt16List
	// VRInt32List means the element stores a list of int32s.
	VRInt32List
	// VRUInt64List means the element stores a list of uint64s (SV/UV width).
	VRUInt64List
	// VRInt64List means the element stores a list of int64s.
	VRInt64List
	// VRFloat32List means the element stores a list of float32s.
	VRFloat32List
	// VRFloat64List means the element stores a list of float64s.
	VRFloat64List
	// VRSequence means the element stores sequence items, each a nested
	// data set introduced by an Item tag.
	VRSequence
	// VRItem means the element is an Item holding one nested data set's
	// elements.
	VRItem
	// VRTagList means the element stores a list of Tags.
	VRTagList
	// VRDate means the element stores a date string; use ParseDate to parse it.
	VRDate
	// VRPixelData means the element is PixelData, native or encapsulated.
	VRPixelData
)

// GetVRKind returns the Go-level representation kind of an element with
// the given <tag, vr>. Item and PixelData are special-cased by tag because
// their Go representation does not follow from the VR string alone.
func GetVRKind(tag Tag, vr string) VRKind {
	if tag == Item {
		return VRItem
	} else if tag == PixelData {
		return VRPixelData
	}
	switch vr {
	case "DA":
		return VRDate
	case "AT":
		return VRTagList
	case "OW", "OB", "OD", "OF", "OL", "OV", "UN":
		return VRBytes
	case "LT", "UT", "ST":
		return VRString
	case "UL":
		return VRUInt32List
	case "SL":
		return VRInt32List
	case "US":
		return VRUInt16List
	case "SS":
		return VRInt16List
	case "UV":
		return VRUInt64List
	case "SV":
		return VRInt64List
	case "FL":
		return VRFloat32List
	case "FD":
		return VRFloat64List
	case "SQ":
		return VRSequence
	default:
		return VRStringList
	}
}
