// Package dicomstream implements the stateful token stream that bridges a
// linear DICOM byte stream and the recursive sequence/item tree a data set
// actually forms: StreamDecoder turns bytes into a flat sequence of
// Tokens, and StreamEncoder turns Tokens back into bytes, each keeping an
// explicit stack of open sequence/item/pixel-sequence frames instead of
// recursing.
package dicomstream

import (
	"github.com/odincare/dicomkit/dicomelement"
	"github.com/odincare/dicomkit/dicomtag"
)

// TokenKind discriminates the shape of one Token.
type TokenKind int

const (
	// TokenElementHeader carries a just-read element header. For a
	// primitive element it is always immediately followed by a
	// TokenPrimitiveValue; for SQ it is followed by a TokenSequenceStart.
	TokenElementHeader TokenKind = iota
	TokenPrimitiveValue
	TokenSequenceStart
	TokenSequenceEnd
	TokenItemStart
	TokenItemEnd
	TokenPixelSequenceStart
	TokenPixelSequenceEnd
	TokenItemValue
)

func (k TokenKind) String() string {
	switch k {
	case TokenElementHeader:
		return "ElementHeader"
	case TokenPrimitiveValue:
		return "PrimitiveValue"
	case TokenSequenceStart:
		return "SequenceStart"
	case TokenSequenceEnd:
		return "SequenceEnd"
	case TokenItemStart:
		return "ItemStart"
	case TokenItemEnd:
		return "ItemEnd"
	case TokenPixelSequenceStart:
		return "PixelSequenceStart"
	case TokenPixelSequenceEnd:
		return "PixelSequenceEnd"
	case TokenItemValue:
		return "ItemValue"
	default:
		return "Unknown"
	}
}

// Token is one emission of the token stream. Which fields are meaningful
// depends on Kind: Header for TokenElementHeader, Value for
// TokenPrimitiveValue, Length for TokenItemStart/TokenItemValue (the
// declared length of the item/fragment about to follow), ItemBytes for
// TokenItemValue (an encapsulated pixel-data fragment or an offset-table
// entry read whole, rather than parsed as a nested element stream).
type Token struct {
	Kind      TokenKind
	Header    dicomelement.Header
	Value     dicomelement.PrimitiveValue
	Length    dicomtag.Length
	ItemBytes []byte
}

// frameKind classifies one entry of the decoder/encoder's open-frame
// stack.
type frameKind int

const (
	frameSequence frameKind = iota
	frameItem
	framePixelSequence
)

// frame tracks one nesting level: a sequence, an item within it, or a
// pixel-data fragment sequence. remaining holds the number of bytes left
// in a defined-length frame; undefined frames are closed by a delimiter
// item instead and remaining is ignored for them. forceImplicitLE marks a
// sequence frame opened for a VR-UN, undefined-length element: per
// PS3.5 6.2.2 its items are always Implicit VR Little Endian regardless of
// the data set's own transfer syntax, so StreamDecoder pushes that
// transfer syntax for the frame's lifetime and pops it when the frame
// closes.
type frame struct {
	kind            frameKind
	undefined       bool
	remaining       int64
	forceImplicitLE bool
}
