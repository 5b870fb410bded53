package dicom

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/odincare/dicomkit/dicomelement"
	"github.com/odincare/dicomkit/dicomio"
	"github.com/odincare/dicomkit/dicomstream"
	"github.com/odincare/dicomkit/dicomtag"
)

// FromTokenStream consumes tokens from sd until its enclosing container
// closes (for the top-level data set, until sd reports io.EOF), building an
// InMemObject.
// It is also used recursively to build one sequence item's nested object.
func FromTokenStream(sd *dicomstream.StreamDecoder) (*InMemObject, error) {
	obj := NewInMemObject()
	for {
		tok, err := sd.Next()
		if err == io.EOF {
			return obj, nil
		}
		if err != nil {
			return nil, err
		}

		switch tok.Kind {
		case dicomstream.TokenItemEnd, dicomstream.TokenSequenceEnd:
			return obj, nil

		case dicomstream.TokenElementHeader:
			if err := readOneElement(sd, tok.Header, obj); err != nil {
				return nil, err
			}

		default:
			return nil, fmt.Errorf("dicomkit: unexpected token %v at top of object", tok.Kind)
		}
	}
}

func readOneElement(sd *dicomstream.StreamDecoder, header dicomelement.Header, obj *InMemObject) error {
	next, err := sd.Next()
	if err != nil {
		return err
	}
	switch next.Kind {
	case dicomstream.TokenPrimitiveValue:
		obj.Put(&Element{Tag: header.Tag, VR: header.VR, Value: NewPrimitiveValue(next.Value), UndefinedLength: header.Length.IsUndefined()})
		return nil

	case dicomstream.TokenSequenceStart:
		items, err := readSequenceItems(sd)
		if err != nil {
			return err
		}
		obj.Put(&Element{Tag: header.Tag, VR: header.VR, Value: NewSequenceValue(items, header.Length.IsUndefined()), UndefinedLength: header.Length.IsUndefined()})
		return nil

	case dicomstream.TokenPixelSequenceStart:
		offsetTable, fragments, err := readPixelFragments(sd)
		if err != nil {
			return err
		}
		obj.Put(&Element{Tag: header.Tag, VR: header.VR, Value: NewPixelSequenceValue(offsetTable, fragments), UndefinedLength: true})
		return nil

	default:
		return fmt.Errorf("dicomkit: unexpected token %v after element header for %v", next.Kind, header.Tag)
	}
}

func readSequenceItems(sd *dicomstream.StreamDecoder) ([]*InMemObject, error) {
	var items []*InMemObject
	for {
		tok, err := sd.Next()
		if err != nil {
			return nil, err
		}
		switch tok.Kind {
		case dicomstream.TokenSequenceEnd:
			return items, nil
		case dicomstream.TokenItemStart:
			item, err := FromTokenStream(sd)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		default:
			return nil, fmt.Errorf("dicomkit: unexpected token %v inside sequence", tok.Kind)
		}
	}
}

func readPixelFragments(sd *dicomstream.StreamDecoder) ([]byte, [][]byte, error) {
	var offsetTable []byte
	var fragments [][]byte
	first := true
	for {
		tok, err := sd.Next()
		if err != nil {
			return nil, nil, err
		}
		switch tok.Kind {
		case dicomstream.TokenPixelSequenceEnd:
			return offsetTable, fragments, nil
		case dicomstream.TokenItemValue:
			if first {
				offsetTable = tok.ItemBytes
				first = false
			} else {
				fragments = append(fragments, tok.ItemBytes)
			}
		default:
			return nil, nil, fmt.Errorf("dicomkit: unexpected token %v inside pixel sequence", tok.Kind)
		}
	}
}

// itemHeaderBytes is the wire size of a sequence item's own header: Item
// (FFFE,E000) is always encoded in implicit form (4-byte tag, 4-byte
// length) regardless of the data set's transfer syntax, per PS3.5 7.5.
const itemHeaderBytes = 8

// IntoTokenStream emits the sequence of tokens StreamEncoder needs to
// serialize o under options.
func (o *InMemObject) IntoTokenStream(se *dicomstream.StreamEncoder, options WriteOptions) error {
	for _, tag := range o.Tags() {
		e, _ := o.Get(tag)
		if err := writeOneElement(se, e, options); err != nil {
			return err
		}
	}
	return nil
}

func writeOneElement(se *dicomstream.StreamEncoder, e *Element, options WriteOptions) error {
	switch e.Value.Kind {
	case ValuePrimitive:
		header := dicomelement.Header{Tag: e.Tag, VR: e.VR, Length: elementWireLength(e)}
		if err := se.Put(dicomstream.Token{Kind: dicomstream.TokenElementHeader, Header: header}); err != nil {
			return err
		}
		return se.Put(dicomstream.Token{Kind: dicomstream.TokenPrimitiveValue, Header: header, Value: e.Value.Primitive})

	case ValueSequence:
		return writeSequenceElement(se, e, options)

	case ValuePixelSequence:
		header := dicomelement.Header{Tag: e.Tag, VR: e.VR, Length: dicomtag.UndefinedLength}
		if err := se.Put(dicomstream.Token{Kind: dicomstream.TokenElementHeader, Header: header}); err != nil {
			return err
		}
		if err := se.Put(dicomstream.Token{Kind: dicomstream.TokenPixelSequenceStart}); err != nil {
			return err
		}
		if err := se.Put(dicomstream.Token{Kind: dicomstream.TokenItemValue, ItemBytes: e.Value.OffsetTable}); err != nil {
			return err
		}
		for _, frag := range e.Value.Fragments {
			if err := se.Put(dicomstream.Token{Kind: dicomstream.TokenItemValue, ItemBytes: frag}); err != nil {
				return err
			}
		}
		return se.Put(dicomstream.Token{Kind: dicomstream.TokenPixelSequenceEnd})

	default:
		return fmt.Errorf("dicomkit: element %v has unknown value kind", e.Tag)
	}
}

// writeSequenceElement picks between the two length forms a sequence can
// take on the wire. NormalizeLength, or a sequence that was itself read as
// undefined length, gets the delimiter-terminated form; otherwise the
// original defined-length form is reproduced, per WriteOptions'
// documented default of leaving length forms alone.
func writeSequenceElement(se *dicomstream.StreamEncoder, e *Element, options WriteOptions) error {
	if options.NormalizeLength || e.Value.SequenceUndefined {
		return writeUndefinedLengthSequence(se, e, options)
	}
	return writeDefinedLengthSequence(se, e, options)
}

func writeUndefinedLengthSequence(se *dicomstream.StreamEncoder, e *Element, options WriteOptions) error {
	header := dicomelement.Header{Tag: e.Tag, VR: e.VR, Length: dicomtag.UndefinedLength}
	if err := se.Put(dicomstream.Token{Kind: dicomstream.TokenElementHeader, Header: header}); err != nil {
		return err
	}
	if err := se.Put(dicomstream.Token{Kind: dicomstream.TokenSequenceStart, Length: dicomtag.UndefinedLength}); err != nil {
		return err
	}
	for _, item := range e.Value.Items {
		if err := se.Put(dicomstream.Token{Kind: dicomstream.TokenItemStart, Length: dicomtag.UndefinedLength}); err != nil {
			return err
		}
		if err := item.IntoTokenStream(se, options); err != nil {
			return err
		}
		if err := se.Put(dicomstream.Token{Kind: dicomstream.TokenItemEnd}); err != nil {
			return err
		}
	}
	return se.Put(dicomstream.Token{Kind: dicomstream.TokenSequenceEnd})
}

// writeDefinedLengthSequence renders each item into a scratch buffer first
// (under the same transfer syntax as se) so the real length fields can be
// written up front, the way a stream format with no backpatching requires.
func writeDefinedLengthSequence(se *dicomstream.StreamEncoder, e *Element, options WriteOptions) error {
	byteorder, implicit := se.TransferSyntax()

	rendered := make([][]byte, len(e.Value.Items))
	total := 0
	for i, item := range e.Value.Items {
		b, err := renderObjectBytes(item, options, byteorder, implicit)
		if err != nil {
			return err
		}
		rendered[i] = b
		total += itemHeaderBytes + len(b)
	}

	header := dicomelement.Header{Tag: e.Tag, VR: e.VR, Length: dicomtag.Length(total)}
	if err := se.Put(dicomstream.Token{Kind: dicomstream.TokenElementHeader, Header: header}); err != nil {
		return err
	}
	if err := se.Put(dicomstream.Token{Kind: dicomstream.TokenSequenceStart, Length: dicomtag.Length(total)}); err != nil {
		return err
	}
	for _, b := range rendered {
		if err := se.Put(dicomstream.Token{Kind: dicomstream.TokenItemStart, Length: dicomtag.Length(len(b))}); err != nil {
			return err
		}
		if err := se.WriteRaw(b); err != nil {
			return err
		}
		if err := se.Put(dicomstream.Token{Kind: dicomstream.TokenItemEnd}); err != nil {
			return err
		}
	}
	return se.Put(dicomstream.Token{Kind: dicomstream.TokenSequenceEnd})
}

func renderObjectBytes(o *InMemObject, options WriteOptions, byteorder binary.ByteOrder, implicit dicomio.IsImplicitVR) ([]byte, error) {
	scratch := dicomio.NewBytesEncoder(byteorder, implicit)
	se := dicomstream.NewStreamEncoder(scratch)
	if err := o.IntoTokenStream(se, options); err != nil {
		return nil, err
	}
	if scratch.Error() != nil {
		return nil, scratch.Error()
	}
	return scratch.Bytes(), nil
}

func elementWireLength(e *Element) dicomtag.Length {
	if e.Value.Kind != ValuePrimitive {
		return dicomtag.UndefinedLength
	}
	vr := dicomtag.ParseVR(e.VR)
	return dicomtag.Length(e.Value.Primitive.CalculateByteLen(vr))
}

