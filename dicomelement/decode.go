package dicomelement

import (
	"strings"

	"github.com/odincare/dicomkit/dicomio"
	"github.com/odincare/dicomkit/dicomtag"
)

// ReadPrimitiveValue reads length bytes at the decoder's current position
// and decodes them according to vr. It does not handle SQ, Item, or
// encapsulated (undefined-length) PixelData — those are
// sequence/pixel-sequence shaped and live in dicomstream. When preserve is true, string-like VRs are returned without
// trimming trailing padding, for callers that need a byte-exact round
// trip.
func ReadPrimitiveValue(d *dicomio.Decoder, vr string, length dicomtag.Length, preserve bool) (PrimitiveValue, error) {
	n, ok := length.Defined()
	if !ok {
		return PrimitiveValue{}, &UnexpectedLength{Length: length, Reason: "ReadPrimitiveValue requires a defined length"}
	}
	if n == 0 {
		return NewEmpty(), nil
	}

	switch vr {
	case "AT":
		count := int(n) / 4
		tags := make([]dicomtag.Tag, count)
		for i := 0; i < count; i++ {
			tags[i] = d.ReadTag()
		}
		return NewTags(tags), d.Error()

	case "OW":
		count := int(n) / 2
		vals := make([]uint16, count)
		for i := range vals {
			vals[i] = d.ReadUInt16()
		}
		return NewU16s(vals), d.Error()

	case "OB", "OL", "OV", "UN":
		return NewBytes(d.ReadBytes(int(n))), d.Error()

	case "UL":
		count := int(n) / 4
		vals := make([]uint32, count)
		for i := range vals {
			vals[i] = d.ReadUInt32()
		}
		return NewU32s(vals), d.Error()

	case "SL":
		count := int(n) / 4
		vals := make([]int32, count)
		for i := range vals {
			vals[i] = d.ReadInt32()
		}
		return NewI32s(vals), d.Error()

	case "US":
		count := int(n) / 2
		vals := make([]uint16, count)
		for i := range vals {
			vals[i] = d.ReadUInt16()
		}
		return NewU16s(vals), d.Error()

	case "SS":
		count := int(n) / 2
		vals := make([]int16, count)
		for i := range vals {
			vals[i] = d.ReadInt16()
		}
		return NewI16s(vals), d.Error()

	case "FL", "OF":
		count := int(n) / 4
		vals := make([]float32, count)
		for i := range vals {
			vals[i] = d.ReadFloat32()
		}
		return NewF32s(vals), d.Error()

	case "FD", "OD":
		count := int(n) / 8
		vals := make([]float64, count)
		for i := range vals {
			vals[i] = d.ReadFloat64()
		}
		return NewF64s(vals), d.Error()

	case "LT", "ST", "UT", "UR":
		s := d.ReadString(int(n))
		if !preserve {
			s = strings.TrimRight(s, " \x00")
		}
		return NewStrs([]string{s}), d.Error()

	default:
		s := d.ReadString(int(n))
		if d.Error() != nil {
			return PrimitiveValue{}, d.Error()
		}
		if !preserve {
			s = strings.TrimRight(s, " \x00")
		}
		parts := strings.Split(s, "\\")
		return NewStrs(parts), nil
	}
}

// WritePrimitiveValue serializes v according to vr, including the trailing
// pad byte string-like and odd-length binary VRs need to reach even
// length. It does not write the element header or adjust its length field;
// callers compute that from PrimitiveValue.CalculateByteLen beforehand.
func WritePrimitiveValue(e *dicomio.Encoder, vr string, v PrimitiveValue) {
	switch v.Kind() {
	case Empty:
		return
	case Tags:
		for _, t := range v.tags {
			e.WriteTag(t)
		}
	case U16:
		for _, x := range v.u16s {
			e.WriteUInt16(x)
		}
	case I16:
		for _, x := range v.i16s {
			e.WriteInt16(x)
		}
	case U32:
		for _, x := range v.u32s {
			e.WriteUInt32(x)
		}
	case I32:
		for _, x := range v.i32s {
			e.WriteInt32(x)
		}
	case F32:
		for _, x := range v.f32s {
			e.WriteFloat32(x)
		}
	case F64:
		for _, x := range v.f64s {
			e.WriteFloat64(x)
		}
	case Bytes:
		e.WriteBytes(v.bytes)
		if len(v.bytes)%2 == 1 {
			e.WriteZeros(1)
		}
	case Strs:
		pad := byte(' ')
		if vr == "UI" {
			pad = 0
		}
		joined := strings.Join(v.strs, "\\")
		e.WriteString(joined)
		if len(joined)%2 == 1 {
			e.WriteBytes([]byte{pad})
		}
	}
}
