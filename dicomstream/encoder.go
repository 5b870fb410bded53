package dicomstream

import (
	"encoding/binary"
	"fmt"

	"github.com/odincare/dicomkit/dicomelement"
	"github.com/odincare/dicomkit/dicomio"
	"github.com/odincare/dicomkit/dicomtag"
)

// StreamEncoder is the write-side counterpart of StreamDecoder: it accepts
// Tokens in the same order StreamDecoder emits them and serializes them,
// tracking open containers on the same kind of explicit stack.
type StreamEncoder struct {
	e     *dicomio.Encoder
	stack []frame
}

// NewStreamEncoder wraps e. e's transfer syntax must already be set.
func NewStreamEncoder(e *dicomio.Encoder) *StreamEncoder {
	return &StreamEncoder{e: e}
}

func (se *StreamEncoder) top() (*frame, bool) {
	if len(se.stack) == 0 {
		return nil, false
	}
	return &se.stack[len(se.stack)-1], true
}

// TransferSyntax returns se's byte order and VR explicitness, for callers
// that need to render a nested container into a scratch encoder under the
// same transfer syntax before splicing its bytes in (see WriteRaw).
func (se *StreamEncoder) TransferSyntax() (binary.ByteOrder, dicomio.IsImplicitVR) {
	return se.e.TransferSyntax()
}

// WriteRaw splices already-encoded bytes directly into the stream, with no
// token bookkeeping. Used for defined-length containers whose content was
// rendered ahead of time (into a scratch encoder, to measure its length
// before the enclosing header could be written) and must not be
// re-rendered.
func (se *StreamEncoder) WriteRaw(b []byte) error {
	se.e.WriteBytes(b)
	return se.e.Error()
}

// Put writes one token. Callers must present exactly the Header/Value or
// Header/SequenceStart pairing StreamDecoder would have produced; Put does
// not validate nesting beyond returning an error for an End token with no
// matching open Start.
func (se *StreamEncoder) Put(t Token) error {
	switch t.Kind {
	case TokenElementHeader:
		dicomelement.WriteHeader(se.e, t.Header)
		return se.e.Error()

	case TokenPrimitiveValue:
		dicomelement.WritePrimitiveValue(se.e, t.Header.VR, t.Value)
		return se.e.Error()

	case TokenSequenceStart:
		se.stack = append(se.stack, frame{kind: frameSequence, undefined: t.Length.IsUndefined()})
		return nil

	case TokenSequenceEnd:
		f, ok := se.top()
		if !ok || f.kind != frameSequence {
			return fmt.Errorf("dicomstream: SequenceEnd with no open sequence")
		}
		se.stack = se.stack[:len(se.stack)-1]
		if f.undefined {
			dicomelement.WriteHeader(se.e, dicomelement.Header{Tag: dicomtag.SequenceDelimitationItem, Length: 0})
		}
		return se.e.Error()

	case TokenItemStart:
		se.stack = append(se.stack, frame{kind: frameItem, undefined: t.Length.IsUndefined()})
		dicomelement.WriteHeader(se.e, dicomelement.Header{Tag: dicomtag.Item, Length: t.Length})
		return se.e.Error()

	case TokenItemEnd:
		f, ok := se.top()
		if !ok || f.kind != frameItem {
			return fmt.Errorf("dicomstream: ItemEnd with no open item")
		}
		se.stack = se.stack[:len(se.stack)-1]
		if f.undefined {
			dicomelement.WriteHeader(se.e, dicomelement.Header{Tag: dicomtag.ItemDelimitationItem, Length: 0})
		}
		return se.e.Error()

	case TokenPixelSequenceStart:
		se.stack = append(se.stack, frame{kind: framePixelSequence, undefined: true})
		return nil

	case TokenPixelSequenceEnd:
		f, ok := se.top()
		if !ok || f.kind != framePixelSequence {
			return fmt.Errorf("dicomstream: PixelSequenceEnd with no open pixel sequence")
		}
		se.stack = se.stack[:len(se.stack)-1]
		dicomelement.WriteHeader(se.e, dicomelement.Header{Tag: dicomtag.SequenceDelimitationItem, Length: 0})
		return se.e.Error()

	case TokenItemValue:
		dicomelement.WriteHeader(se.e, dicomelement.Header{Tag: dicomtag.Item, Length: dicomtag.Length(len(t.ItemBytes))})
		se.e.WriteBytes(t.ItemBytes)
		return se.e.Error()

	default:
		return fmt.Errorf("dicomstream: unknown token kind %v", t.Kind)
	}
}
