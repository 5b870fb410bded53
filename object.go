// Package dicom is the root of the toolkit: the in-memory object model,
// attribute operations, and Part 10 file reader/writer built on the
// dicomtag/dicomio/dicomelement/dicomstream/dicomuid leaf packages.
package dicom

import (
	"sort"

	"github.com/odincare/dicomkit/dicomelement"
	"github.com/odincare/dicomkit/dicomtag"
)

// ValueKind discriminates what an Element's Value actually holds.
type ValueKind int

const (
	// ValuePrimitive means Value.Primitive is the live field.
	ValuePrimitive ValueKind = iota
	// ValueSequence means Value.Items is the live field: a list of nested
	// InMemObjects, one per SQ item.
	ValueSequence
	// ValuePixelSequence means Value.OffsetTable/Value.Fragments are live:
	// encapsulated PixelData, one fragment per compressed frame (or
	// frame-piece).
	ValuePixelSequence
)

// Value is an Element's payload: exactly one of a primitive value, a list
// of sequence items, or an encapsulated pixel-data fragment set, decided
// by Kind.
type Value struct {
	Kind ValueKind

	Primitive dicomelement.PrimitiveValue

	Items             []*InMemObject
	SequenceUndefined bool

	OffsetTable []byte
	Fragments   [][]byte
}

// NewPrimitiveValue wraps a dicomelement.PrimitiveValue as an element Value.
func NewPrimitiveValue(p dicomelement.PrimitiveValue) Value {
	return Value{Kind: ValuePrimitive, Primitive: p}
}

// NewSequenceValue wraps a list of sequence items as an element Value.
func NewSequenceValue(items []*InMemObject, undefined bool) Value {
	return Value{Kind: ValueSequence, Items: items, SequenceUndefined: undefined}
}

// NewPixelSequenceValue wraps encapsulated pixel data as an element Value.
func NewPixelSequenceValue(offsetTable []byte, fragments [][]byte) Value {
	return Value{Kind: ValuePixelSequence, OffsetTable: offsetTable, Fragments: fragments}
}

// Element is one attribute of a data set: its tag, VR, and value.
type Element struct {
	Tag             dicomtag.Tag
	VR              string
	Value           Value
	UndefinedLength bool
}

// Equal reports whether e and other carry the same tag, VR, and value,
// normalizing away whether a sequence/pixel-sequence used a defined or
// undefined length encoding: two elements whose content matches are equal
// regardless of which length form produced them.
func (e *Element) Equal(other *Element) bool {
	if e == nil || other == nil {
		return e == other
	}
	if e.Tag != other.Tag || e.VR != other.VR {
		return false
	}
	if e.Value.Kind != other.Value.Kind {
		return false
	}
	switch e.Value.Kind {
	case ValuePrimitive:
		return primitiveEqual(e.Value.Primitive, other.Value.Primitive)
	case ValueSequence:
		if len(e.Value.Items) != len(other.Value.Items) {
			return false
		}
		for i := range e.Value.Items {
			if !e.Value.Items[i].Equal(other.Value.Items[i]) {
				return false
			}
		}
		return true
	case ValuePixelSequence:
		if len(e.Value.Fragments) != len(other.Value.Fragments) {
			return false
		}
		for i := range e.Value.Fragments {
			if string(e.Value.Fragments[i]) != string(other.Value.Fragments[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func primitiveEqual(a, b dicomelement.PrimitiveValue) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	ab, aerr := a.Bytes()
	bb, berr := b.Bytes()
	if aerr == nil && berr == nil {
		return string(ab) == string(bb)
	}
	as, aerr := a.Strs()
	bs, berr := b.Strs()
	if aerr == nil && berr == nil {
		if len(as) != len(bs) {
			return false
		}
		for i := range as {
			if as[i] != bs[i] {
				return false
			}
		}
		return true
	}
	ai, aerr := a.ToInts()
	bi, berr := b.ToInts()
	if aerr == nil && berr == nil {
		if len(ai) != len(bi) {
			return false
		}
		for i := range ai {
			if ai[i] != bi[i] {
				return false
			}
		}
		return true
	}
	af, _ := a.ToFloat64s()
	bf, _ := b.ToFloat64s()
	if len(af) != len(bf) {
		return false
	}
	for i := range af {
		if af[i] != bf[i] {
			return false
		}
	}
	return true
}

// InMemObject is the in-memory form of a DICOM data set: an ordered map
// from Tag to *Element. Iteration order (Tags) is always sorted by tag,
// per PS3.5 7.1's wire ordering requirement; this makes serialization
// deterministic without a separate sort pass per write.
type InMemObject struct {
	byTag map[dicomtag.Tag]*Element
	keys  []dicomtag.Tag // kept sorted
}

// NewInMemObject returns an empty object.
func NewInMemObject() *InMemObject {
	return &InMemObject{byTag: make(map[dicomtag.Tag]*Element)}
}

// Get returns the element at tag, if present.
func (o *InMemObject) Get(tag dicomtag.Tag) (*Element, bool) {
	e, ok := o.byTag[tag]
	return e, ok
}

// Put inserts or replaces the element at e.Tag.
func (o *InMemObject) Put(e *Element) {
	if _, exists := o.byTag[e.Tag]; !exists {
		idx := sort.Search(len(o.keys), func(i int) bool { return !o.keys[i].Less(e.Tag) })
		o.keys = append(o.keys, dicomtag.Tag{})
		copy(o.keys[idx+1:], o.keys[idx:])
		o.keys[idx] = e.Tag
	}
	o.byTag[e.Tag] = e
}

// Remove deletes the element at tag, if present.
func (o *InMemObject) Remove(tag dicomtag.Tag) {
	if _, ok := o.byTag[tag]; !ok {
		return
	}
	delete(o.byTag, tag)
	idx := sort.Search(len(o.keys), func(i int) bool { return !o.keys[i].Less(tag) })
	if idx < len(o.keys) && o.keys[idx] == tag {
		o.keys = append(o.keys[:idx], o.keys[idx+1:]...)
	}
}

// Tags returns every tag present, sorted ascending.
func (o *InMemObject) Tags() []dicomtag.Tag {
	out := make([]dicomtag.Tag, len(o.keys))
	copy(out, o.keys)
	return out
}

// Len returns the number of elements.
func (o *InMemObject) Len() int { return len(o.keys) }

// Equal reports whether o and other hold the same elements, normalizing
// defined/undefined-length encoding differences per Element.Equal.
func (o *InMemObject) Equal(other *InMemObject) bool {
	if o == nil || other == nil {
		return o == other
	}
	if o.Len() != other.Len() {
		return false
	}
	for _, tag := range o.keys {
		a := o.byTag[tag]
		b, ok := other.byTag[tag]
		if !ok || !a.Equal(b) {
			return false
		}
	}
	return true
}

// FileMetaTable is the parsed group-0x0002 file meta information of a
// Part 10 file, pulled out of the generic InMemObject into named fields
// since every reader/writer needs to address these specifically (transfer
// syntax selection, SOP identification).
type FileMetaTable struct {
	MediaStorageSOPClassUID      string
	MediaStorageSOPInstanceUID   string
	TransferSyntaxUID            string
	ImplementationClassUID       string
	ImplementationVersionName    string
	SourceApplicationEntityTitle string

	// Extra carries any other group-0x0002 elements present in the file
	// that this struct doesn't name explicitly, keyed by tag.
	Extra *InMemObject
}

// ImplementationClassUID and ImplementationVersionName this module writes
// when WriteDataSet's meta leaves them empty, mirroring the
// teacher's own self-identification constants.
const (
	DefaultImplementationClassUID    = "1.2.826.0.1.3680043.9.7433.1.1"
	DefaultImplementationVersionName = "DICOMKIT_1_0"
)
