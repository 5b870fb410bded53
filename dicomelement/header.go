package dicomelement

import (
	"fmt"

	"github.com/odincare/dicomkit/dicomio"
	"github.com/odincare/dicomkit/dicomtag"
)

// Header is a decoded data-element header: the tag, its VR (resolved from
// the dictionary under implicit VR, read off the wire under explicit VR),
// and its length.
type Header struct {
	Tag    dicomtag.Tag
	VR     string
	Length dicomtag.Length
}

// UnexpectedTag reports that a header's tag did not match what the caller
// required (e.g. expecting an Item tag inside a sequence).
type UnexpectedTag struct {
	Want, Got dicomtag.Tag
}

func (e *UnexpectedTag) Error() string {
	return fmt.Sprintf("dicomelement: expected tag %v, got %v", e.Want, e.Got)
}

// UnexpectedLength reports a length value that is structurally invalid for
// its context (e.g. an odd implicit-VR element length).
type UnexpectedLength struct {
	Tag    dicomtag.Tag
	Length dicomtag.Length
	Reason string
}

func (e *UnexpectedLength) Error() string {
	return fmt.Sprintf("dicomelement: tag %v has invalid length %v: %s", e.Tag, e.Length, e.Reason)
}

// InvalidVR reports that an explicit-VR header carried two bytes that are
// not a recognized VR code. Per PS3.5, a decoder should degrade this to UN
// and carry on rather than aborting the whole data set.
type InvalidVR struct {
	Tag   dicomtag.Tag
	Bytes string
}

func (e *InvalidVR) Error() string {
	return fmt.Sprintf("dicomelement: tag %v has invalid VR %q, treating as UN", e.Tag, e.Bytes)
}

// fourByteLengthVRs is the set of VRs whose explicit-VR length field is two
// reserved bytes followed by a 32-bit length, per PS3.5 7.1.2's table; every
// other VR uses a bare 16-bit length.
var fourByteLengthVRs = map[string]bool{
	"OB": true, "OD": true, "OF": true, "OL": true, "OV": true,
	"OW": true, "SQ": true, "UC": true, "UN": true, "UR": true,
	"UT": true, "SV": true, "UV": true,
}

// ReadHeader reads one data-element header at the decoder's current
// position. Under implicit VR the VR is resolved from the dictionary
// (defaulting to UN for unrecognized or private tags); group 0xFFFE
// (items and delimiters) is always implicit VR regardless of the transfer
// syntax, per PS3.5 7.5.
func ReadHeader(d *dicomio.Decoder) (Header, error) {
	tag := d.ReadTag()
	if d.Error() != nil {
		return Header{}, d.Error()
	}

	_, implicit := d.TransferSyntax()
	if tag.Group == dicomtag.ItemSeqGroup || implicit == dicomio.ImplicitVR {
		return readImplicitHeader(d, tag)
	}
	return readExplicitHeader(d, tag)
}

func readImplicitHeader(d *dicomio.Decoder, tag dicomtag.Tag) (Header, error) {
	vr := "UN"
	if entry, err := dicomtag.Find(tag); err == nil {
		vr = entry.VR
	}
	length := dicomtag.Length(d.ReadUInt32())
	if d.Error() != nil {
		return Header{}, d.Error()
	}
	if !length.IsUndefined() {
		if n, _ := length.Defined(); n%2 != 0 {
			return Header{}, &UnexpectedLength{Tag: tag, Length: length, Reason: "odd length in implicit VR"}
		}
	}
	return Header{Tag: tag, VR: vr, Length: length}, nil
}

func readExplicitHeader(d *dicomio.Decoder, tag dicomtag.Tag) (Header, error) {
	vrBytes := d.ReadBytes(2)
	if d.Error() != nil {
		return Header{}, d.Error()
	}
	vr := string(vrBytes)
	var invalidVRErr error
	if dicomtag.ParseVR(vr) == dicomtag.VRUnknown {
		invalidVRErr = &InvalidVR{Tag: tag, Bytes: vr}
		vr = "UN"
	}

	var length dicomtag.Length
	if fourByteLengthVRs[vr] {
		d.Skip(2) // reserved
		length = dicomtag.Length(d.ReadUInt32())
	} else {
		l16 := d.ReadUInt16()
		if l16 == 0xffff {
			length = dicomtag.UndefinedLength
		} else {
			length = dicomtag.Length(uint32(l16))
		}
	}
	if d.Error() != nil {
		return Header{}, d.Error()
	}
	return Header{Tag: tag, VR: vr, Length: length}, invalidVRErr
}

// WriteHeader serializes a data-element header in e's current transfer
// syntax, mirroring ReadHeader's implicit/explicit branching.
func WriteHeader(e *dicomio.Encoder, h Header) {
	e.WriteTag(h.Tag)

	_, implicit := e.TransferSyntax()
	if h.Tag.Group == dicomtag.ItemSeqGroup || implicit == dicomio.ImplicitVR {
		e.WriteUInt32(uint32(h.Length))
		return
	}

	vr := h.VR
	if len(vr) != 2 {
		vr = "UN"
	}
	e.WriteString(vr)
	if fourByteLengthVRs[vr] {
		e.WriteZeros(2)
		e.WriteUInt32(uint32(h.Length))
	} else {
		if h.Length.IsUndefined() {
			e.WriteUInt16(0xffff)
		} else {
			n, _ := h.Length.Defined()
			e.WriteUInt16(uint16(n))
		}
	}
}
