package dicomstream

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/odincare/dicomkit/dicomelement"
	"github.com/odincare/dicomkit/dicomio"
	"github.com/odincare/dicomkit/dicomlog"
	"github.com/odincare/dicomkit/dicomtag"
)

// StreamDecoder turns a DICOM data-set byte stream into a flat sequence of
// Tokens, tracking open sequence/item/pixel-sequence containers on an
// explicit stack rather than by recursing. Next is called repeatedly until
// it returns io.EOF.
type StreamDecoder struct {
	d     *dicomio.Decoder
	stack []frame
	queue []Token

	// preserve disables trailing-pad trimming on string values, for
	// callers that need byte-exact round trips.
	preserve bool
}

// NewStreamDecoder wraps d. d's transfer syntax must already be set to the
// data set's transfer syntax (dicomio.Decoder.PushTransferSyntaxByUID).
func NewStreamDecoder(d *dicomio.Decoder) *StreamDecoder {
	return &StreamDecoder{d: d}
}

func (sd *StreamDecoder) top() (*frame, bool) {
	if len(sd.stack) == 0 {
		return nil, false
	}
	return &sd.stack[len(sd.stack)-1], true
}

func (sd *StreamDecoder) push(f frame) { sd.stack = append(sd.stack, f) }

func (sd *StreamDecoder) pop() frame {
	n := len(sd.stack)
	f := sd.stack[n-1]
	sd.stack = sd.stack[:n-1]
	if f.forceImplicitLE {
		sd.d.PopTransferSyntax()
	}
	return f
}

// consumed records that n bytes were just read, decrementing every
// enclosing defined-length frame's remaining count.
func (sd *StreamDecoder) consumed(n int64) {
	for i := range sd.stack {
		if !sd.stack[i].undefined {
			sd.stack[i].remaining -= n
		}
	}
}

// Next returns the next token, or io.EOF once the data set (and every open
// container) has been fully consumed.
func (sd *StreamDecoder) Next() (Token, error) {
	if len(sd.queue) > 0 {
		t := sd.queue[0]
		sd.queue = sd.queue[1:]
		return t, nil
	}

	// Auto-close any defined-length frame whose budget is exhausted,
	// innermost first.
	if f, ok := sd.top(); ok && !f.undefined && f.remaining <= 0 {
		closed := sd.pop()
		switch closed.kind {
		case frameItem:
			return Token{Kind: TokenItemEnd}, nil
		case frameSequence:
			return Token{Kind: TokenSequenceEnd}, nil
		case framePixelSequence:
			return Token{Kind: TokenPixelSequenceEnd}, nil
		}
	}

	if len(sd.stack) == 0 && sd.d.EOF() {
		return Token{}, io.EOF
	}

	if f, ok := sd.top(); ok && f.kind == framePixelSequence {
		return sd.nextPixelFragment()
	}

	return sd.nextElementOrDelimiter()
}

func (sd *StreamDecoder) nextPixelFragment() (Token, error) {
	before := sd.d.Position()
	header, err := dicomelement.ReadHeader(sd.d)
	if err != nil {
		if _, ok := err.(*dicomelement.InvalidVR); !ok {
			return Token{}, err
		}
	}
	if sd.d.Error() != nil {
		return Token{}, sd.d.Error()
	}

	if header.Tag == dicomtag.SequenceDelimitationItem {
		sd.consumed(sd.d.Position() - before)
		sd.pop()
		return Token{Kind: TokenPixelSequenceEnd}, nil
	}
	if header.Tag != dicomtag.Item {
		return Token{}, fmt.Errorf("dicomstream: expected Item or SequenceDelimitationItem inside pixel sequence, got %v", header.Tag)
	}
	n, ok := header.Length.Defined()
	if !ok {
		return Token{}, fmt.Errorf("dicomstream: pixel-sequence fragment has undefined length")
	}
	data := sd.d.ReadBytes(int(n))
	sd.consumed(sd.d.Position() - before)
	if sd.d.Error() != nil {
		return Token{}, sd.d.Error()
	}
	return Token{Kind: TokenItemValue, Length: header.Length, ItemBytes: data}, nil
}

func (sd *StreamDecoder) nextElementOrDelimiter() (Token, error) {
	before := sd.d.Position()
	header, invalidVRErr := dicomelement.ReadHeader(sd.d)
	if sd.d.Error() != nil {
		return Token{}, sd.d.Error()
	}

	switch header.Tag {
	case dicomtag.Item:
		sd.consumed(sd.d.Position() - before)
		sd.push(frame{kind: frameItem, undefined: header.Length.IsUndefined(), remaining: int64(header.Length)})
		return Token{Kind: TokenItemStart, Length: header.Length}, nil

	case dicomtag.ItemDelimitationItem:
		sd.consumed(sd.d.Position() - before)
		if f, ok := sd.top(); !ok || f.kind != frameItem {
			return Token{}, fmt.Errorf("dicomstream: item delimitation item outside an item")
		}
		sd.pop()
		return Token{Kind: TokenItemEnd}, nil

	case dicomtag.SequenceDelimitationItem:
		sd.consumed(sd.d.Position() - before)
		if f, ok := sd.top(); !ok || f.kind != frameSequence {
			return Token{}, fmt.Errorf("dicomstream: sequence delimitation item outside a sequence")
		}
		sd.pop()
		return Token{Kind: TokenSequenceEnd}, nil
	}

	if header.VR == "SQ" {
		sd.consumed(sd.d.Position() - before)
		sd.push(frame{kind: frameSequence, undefined: header.Length.IsUndefined(), remaining: int64(header.Length)})
		sd.queue = append(sd.queue, Token{Kind: TokenSequenceStart, Header: header, Length: header.Length})
		return Token{Kind: TokenElementHeader, Header: header}, nil
	}

	// An element with VR UN and undefined length is, per PS3.5 6.2.2, always
	// an Implicit VR Little Endian sequence whose real VR could not be
	// determined at encode time — treat it like SQ rather than handing it
	// to ReadPrimitiveValue, which rejects undefined length, and switch the
	// decoder to Implicit VR Little Endian for the items inside.
	if header.VR == "UN" && header.Length.IsUndefined() {
		sd.consumed(sd.d.Position() - before)
		sd.d.PushTransferSyntax(binary.LittleEndian, dicomio.ImplicitVR)
		sd.push(frame{kind: frameSequence, undefined: true, forceImplicitLE: true})
		sd.queue = append(sd.queue, Token{Kind: TokenSequenceStart, Header: header, Length: header.Length})
		return Token{Kind: TokenElementHeader, Header: header}, nil
	}

	if header.Tag == dicomtag.PixelData && header.Length.IsUndefined() {
		sd.consumed(sd.d.Position() - before)
		sd.push(frame{kind: framePixelSequence, undefined: true})
		sd.queue = append(sd.queue, Token{Kind: TokenPixelSequenceStart, Header: header})
		return Token{Kind: TokenElementHeader, Header: header}, nil
	}

	value, err := dicomelement.ReadPrimitiveValue(sd.d, header.VR, header.Length, sd.preserve)
	sd.consumed(sd.d.Position() - before)
	if err != nil {
		return Token{}, err
	}
	if header.Tag == dicomtag.SpecificCharacterSet {
		names, _ := value.Strs()
		if cs, csErr := dicomio.ParseSpecificCharacterSet(names); csErr == nil {
			sd.d.SetCodingSystem(cs)
		}
	}
	sd.queue = append(sd.queue, Token{Kind: TokenPrimitiveValue, Header: header, Value: value})
	if invalidVRErr != nil {
		dicomlog.Vprintf(1, "dicomstream: %v, coercing to UN", invalidVRErr)
	}
	return Token{Kind: TokenElementHeader, Header: header}, nil
}
