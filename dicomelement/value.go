// Package dicomelement implements the element-level pieces of the DICOM
// codec: the primitive value representation, date/time parsing, and the
// header/value codecs that dicomstream and the root dicomkit package build
// on.
package dicomelement

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/odincare/dicomkit/dicomtag"
)

// Kind discriminates which field of a PrimitiveValue is live. A
// PrimitiveValue is a closed sum type: exactly one Kind's accessor family
// is meaningful at a time, decided once at construction.
type Kind int

const (
	Empty Kind = iota
	Strs
	Bytes
	Tags
	I16
	U16
	I32
	U32
	I64
	U64
	F32
	F64
)

func (k Kind) String() string {
	switch k {
	case Empty:
		return "Empty"
	case Strs:
		return "Strs"
	case Bytes:
		return "Bytes"
	case Tags:
		return "Tags"
	case I16:
		return "I16"
	case U16:
		return "U16"
	case I32:
		return "I32"
	case U32:
		return "U32"
	case I64:
		return "I64"
	case U64:
		return "U64"
	case F32:
		return "F32"
	case F64:
		return "F64"
	default:
		return "Unknown"
	}
}

// PrimitiveValue is the decoded, in-memory form of a non-sequence data
// element's value. It wraps the same data the teacher's Element.Value
// []interface{} carried, but as a closed tagged union instead of an
// untyped slice, so callers switch on Kind rather than type-asserting.
type PrimitiveValue struct {
	kind Kind

	strs  []string
	bytes []byte
	tags  []dicomtag.Tag
	i16s  []int16
	u16s  []uint16
	i32s  []int32
	u32s  []uint32
	i64s  []int64
	u64s  []uint64
	f32s  []float32
	f64s  []float64
}

// Kind returns v's discriminant.
func (v PrimitiveValue) Kind() Kind { return v.kind }

// NewEmpty returns a PrimitiveValue with no values, as produced when an
// element's length is zero.
func NewEmpty() PrimitiveValue { return PrimitiveValue{kind: Empty} }

func NewStrs(ss []string) PrimitiveValue      { return PrimitiveValue{kind: Strs, strs: ss} }
func NewBytes(b []byte) PrimitiveValue        { return PrimitiveValue{kind: Bytes, bytes: b} }
func NewTags(t []dicomtag.Tag) PrimitiveValue { return PrimitiveValue{kind: Tags, tags: t} }
func NewI16s(v []int16) PrimitiveValue        { return PrimitiveValue{kind: I16, i16s: v} }
func NewU16s(v []uint16) PrimitiveValue       { return PrimitiveValue{kind: U16, u16s: v} }
func NewI32s(v []int32) PrimitiveValue        { return PrimitiveValue{kind: I32, i32s: v} }
func NewU32s(v []uint32) PrimitiveValue       { return PrimitiveValue{kind: U32, u32s: v} }
func NewI64s(v []int64) PrimitiveValue        { return PrimitiveValue{kind: I64, i64s: v} }
func NewU64s(v []uint64) PrimitiveValue       { return PrimitiveValue{kind: U64, u64s: v} }
func NewF32s(v []float32) PrimitiveValue      { return PrimitiveValue{kind: F32, f32s: v} }
func NewF64s(v []float64) PrimitiveValue      { return PrimitiveValue{kind: F64, f64s: v} }

// Cardinality returns the number of values v carries (DICOM's VM).
func (v PrimitiveValue) Cardinality() int {
	switch v.kind {
	case Empty:
		return 0
	case Strs:
		return len(v.strs)
	case Bytes:
		if len(v.bytes) == 0 {
			return 0
		}
		return 1
	case Tags:
		return len(v.tags)
	case I16:
		return len(v.i16s)
	case U16:
		return len(v.u16s)
	case I32:
		return len(v.i32s)
	case U32:
		return len(v.u32s)
	case I64:
		return len(v.i64s)
	case U64:
		return len(v.u64s)
	case F32:
		return len(v.f32s)
	case F64:
		return len(v.f64s)
	default:
		return 0
	}
}

// IsEmpty reports whether v carries no values at all.
func (v PrimitiveValue) IsEmpty() bool { return v.Cardinality() == 0 }

// CalculateByteLen returns the number of bytes v would occupy on the wire
// under vr, including the backslash separators and pad byte a string-like
// VR needs to reach even length, but not the element header itself.
func (v PrimitiveValue) CalculateByteLen(vr dicomtag.VR) int {
	switch v.kind {
	case Empty:
		return 0
	case Strs:
		n := 0
		for i, s := range v.strs {
			if i > 0 {
				n++ // backslash
			}
			n += len(s)
		}
		if n%2 == 1 {
			n++
		}
		return n
	case Bytes:
		n := len(v.bytes)
		if n%2 == 1 {
			n++
		}
		return n
	case Tags:
		return len(v.tags) * 4
	case I16:
		return len(v.i16s) * 2
	case U16:
		return len(v.u16s) * 2
	case I32:
		return len(v.i32s) * 4
	case U32:
		return len(v.u32s) * 4
	case I64:
		return len(v.i64s) * 8
	case U64:
		return len(v.u64s) * 8
	case F32:
		return len(v.f32s) * 4
	case F64:
		return len(v.f64s) * 8
	default:
		return 0
	}
}

// Strs returns v's string list, or an error if v is not of Kind Strs. An
// Empty value yields a nil list and no error.
func (v PrimitiveValue) Strs() ([]string, error) {
	if v.kind == Empty {
		return nil, nil
	}
	if v.kind != Strs {
		return nil, fmt.Errorf("dicomelement: value is %v, not Strs", v.kind)
	}
	return v.strs, nil
}

// Str returns the sole string in v, erroring if v does not carry exactly
// one.
func (v PrimitiveValue) Str() (string, error) {
	ss, err := v.Strs()
	if err != nil {
		return "", err
	}
	if len(ss) != 1 {
		return "", fmt.Errorf("dicomelement: expected exactly one string value, got %d", len(ss))
	}
	return ss[0], nil
}

// Bytes returns v's raw byte payload, erroring if v is not of Kind Bytes.
// An Empty value yields nil and no error.
func (v PrimitiveValue) Bytes() ([]byte, error) {
	if v.kind == Empty {
		return nil, nil
	}
	if v.kind != Bytes {
		return nil, fmt.Errorf("dicomelement: value is %v, not Bytes", v.kind)
	}
	return v.bytes, nil
}

// Tags returns v's tag list, erroring if v is not of Kind Tags (AT). An
// Empty value yields a nil list and no error.
func (v PrimitiveValue) Tags() ([]dicomtag.Tag, error) {
	if v.kind == Empty {
		return nil, nil
	}
	if v.kind != Tags {
		return nil, fmt.Errorf("dicomelement: value is %v, not Tags", v.kind)
	}
	return v.tags, nil
}

// ToInts converts v's numeric values to int64, widening as needed.
// Erroring for non-numeric kinds.
func (v PrimitiveValue) ToInts() ([]int64, error) {
	switch v.kind {
	case Empty:
		return nil, nil
	case I16:
		out := make([]int64, len(v.i16s))
		for i, x := range v.i16s {
			out[i] = int64(x)
		}
		return out, nil
	case U16:
		out := make([]int64, len(v.u16s))
		for i, x := range v.u16s {
			out[i] = int64(x)
		}
		return out, nil
	case I32:
		out := make([]int64, len(v.i32s))
		for i, x := range v.i32s {
			out[i] = int64(x)
		}
		return out, nil
	case U32:
		out := make([]int64, len(v.u32s))
		for i, x := range v.u32s {
			out[i] = int64(x)
		}
		return out, nil
	case I64:
		return v.i64s, nil
	case U64:
		out := make([]int64, len(v.u64s))
		for i, x := range v.u64s {
			out[i] = int64(x)
		}
		return out, nil
	case Strs:
		out := make([]int64, len(v.strs))
		for i, s := range v.strs {
			n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("dicomelement: ToInts: %w", err)
			}
			out[i] = n
		}
		return out, nil
	default:
		return nil, fmt.Errorf("dicomelement: value is %v, not numeric", v.kind)
	}
}

// ToFloat64s converts v's numeric values to float64.
func (v PrimitiveValue) ToFloat64s() ([]float64, error) {
	switch v.kind {
	case Empty:
		return nil, nil
	case F32:
		out := make([]float64, len(v.f32s))
		for i, x := range v.f32s {
			out[i] = float64(x)
		}
		return out, nil
	case F64:
		return v.f64s, nil
	case Strs:
		out := make([]float64, len(v.strs))
		for i, s := range v.strs {
			f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, fmt.Errorf("dicomelement: ToFloat64s: %w", err)
			}
			out[i] = f
		}
		return out, nil
	default:
		ints, err := v.ToInts()
		if err != nil {
			return nil, fmt.Errorf("dicomelement: value is %v, not float-convertible", v.kind)
		}
		out := make([]float64, len(ints))
		for i, x := range ints {
			out[i] = float64(x)
		}
		return out, nil
	}
}

// AsU16 returns v's sole uint16 value, for fixed-cardinality attributes
// like Rows/Columns/BitsAllocated.
func (v PrimitiveValue) AsU16() (uint16, error) {
	if v.kind != U16 || len(v.u16s) != 1 {
		return 0, fmt.Errorf("dicomelement: expected a single US value, got %v (cardinality %d)", v.kind, v.Cardinality())
	}
	return v.u16s[0], nil
}

// AsI32 returns v's sole int32 value.
func (v PrimitiveValue) AsI32() (int32, error) {
	if v.kind != I32 || len(v.i32s) != 1 {
		return 0, fmt.Errorf("dicomelement: expected a single SL value, got %v (cardinality %d)", v.kind, v.Cardinality())
	}
	return v.i32s[0], nil
}

// AsU32 returns v's sole uint32 value.
func (v PrimitiveValue) AsU32() (uint32, error) {
	if v.kind != U32 || len(v.u32s) != 1 {
		return 0, fmt.Errorf("dicomelement: expected a single UL value, got %v (cardinality %d)", v.kind, v.Cardinality())
	}
	return v.u32s[0], nil
}
