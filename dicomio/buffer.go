// Package dicomio provides low-level encoding and decoding of the DICOM wire
// types — integers, strings, byte runs — plus the transfer-syntax and
// limit/position bookkeeping every higher-level codec in this module builds
// on.
package dicomio

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding"

	"github.com/odincare/dicomkit/dicomtag"
)

// NativeByteOrder is a default byte order for tests and callers building
// synthetic streams. It is always little endian, whatever the host
// machine's own byte order; DICOM itself never uses it (every transfer
// syntax pins an explicit endianness).
var NativeByteOrder = binary.LittleEndian

type transferSyntaxStackEntry struct {
	byteorder binary.ByteOrder
	implicit  IsImplicitVR
}

type stackEntry struct {
	limit int64
	err   error
}

// Encoder serializes DICOM's low-level wire types into a byte order and
// VR-explicitness set at construction time (and switchable with
// Push/PopTransferSyntax), accumulating the first error
// encountered rather than returning one from every write call — the same
// sticky-error style the decoder below uses, so a caller can fire off a run
// of writes and check Error() once at the end.
type Encoder struct {
	err error

	out io.Writer

	byteorder binary.ByteOrder

	// implicit is not read internally; it exists so callers mid-encode can
	// ask which transfer syntax form they're currently writing.
	implicit IsImplicitVR

	// oldTransferSyntaxes backs Push/PopTransferSyntax, for the nested
	// transfer-syntax switches a deflated or encapsulated stream needs.
	oldTransferSyntaxes []transferSyntaxStackEntry
}

// NewBytesEncoder creates an encoder that serializes into an in-memory
// buffer, retrievable afterward with Bytes.
func NewBytesEncoder(byteorder binary.ByteOrder, implicit IsImplicitVR) *Encoder {
	return &Encoder{
		out:       &bytes.Buffer{},
		byteorder: byteorder,
		implicit:  implicit,
	}
}

// NewBytesEncoderWithTransferSyntax is NewBytesEncoder, but resolves byte
// order and VR explicitness from a transfer syntax UID instead of taking
// them directly. An unrecognized UID produces an encoder that is already in
// the error state, rather than a nil return — so callers can defer the
// Error() check to the same place they'd check any other encode failure.
func NewBytesEncoderWithTransferSyntax(transferSyntaxUID string) *Encoder {
	endian, implicit, err := ParseTransferSyntaxUID(transferSyntaxUID)
	if err == nil {
		return NewBytesEncoder(endian, implicit)
	}

	e := NewBytesEncoder(binary.LittleEndian, ExplicitVR)
	e.SetErrorf("%v: unknown transfer syntax uid", transferSyntaxUID)
	return e
}

// NewEncoderWithTransferSyntax is NewEncoder, resolving byte order and VR
// explicitness from a transfer syntax UID; see NewBytesEncoderWithTransferSyntax
// for the error-state behavior on an unrecognized UID.
func NewEncoderWithTransferSyntax(out io.Writer, transferSyntaxUID string) *Encoder {
	endian, implicit, err := ParseTransferSyntaxUID(transferSyntaxUID)
	if err == nil {
		return NewEncoder(out, endian, implicit)
	}

	e := NewEncoder(out, binary.LittleEndian, ExplicitVR)
	e.SetErrorf("%v: unknown transfer syntax uid", transferSyntaxUID)
	return e
}

// NewEncoder creates an encoder that writes directly to out.
func NewEncoder(out io.Writer, byteorder binary.ByteOrder, implicit IsImplicitVR) *Encoder {
	return &Encoder{
		out:       out,
		byteorder: byteorder,
		implicit:  implicit,
	}
}

// TransferSyntax returns the encoder's current byte order and VR
// explicitness.
func (e *Encoder) TransferSyntax() (binary.ByteOrder, IsImplicitVR) {
	return e.byteorder, e.implicit
}

// PushTransferSyntax temporarily switches byte order and VR explicitness;
// the matching PopTransferSyntax restores whatever was active before. Used
// when a nested stream (a deflated segment, an encapsulated pixel sequence)
// is encoded under a different transfer syntax than its enclosing data set.
func (e *Encoder) PushTransferSyntax(byteorder binary.ByteOrder, implicit IsImplicitVR) {
	e.oldTransferSyntaxes = append(e.oldTransferSyntaxes,
		transferSyntaxStackEntry{e.byteorder, e.implicit})
	e.byteorder = byteorder
	e.implicit = implicit
}

// PopTransferSyntax restores the transfer syntax saved by the most recent
// unmatched PushTransferSyntax.
func (e *Encoder) PopTransferSyntax() {
	ts := e.oldTransferSyntaxes[len(e.oldTransferSyntaxes)-1]
	e.byteorder = ts.byteorder
	e.implicit = ts.implicit
	e.oldTransferSyntaxes = e.oldTransferSyntaxes[:len(e.oldTransferSyntaxes)-1]
}

// SetError latches err as the error future Error() calls will report. Once
// an error is latched, later SetError calls are no-ops — the first failure
// wins, so a long run of Write* calls doesn't need its own error check.
//
// REQUIRES: err != nil
func (e *Encoder) SetError(err error) {
	if err != nil && e.err == nil {
		e.err = err
	}
}

// SetErrorf is SetError with fmt.Errorf-style formatting.
func (e *Encoder) SetErrorf(format string, args ...interface{}) {
	e.SetError(fmt.Errorf(format, args...))
}

// Error returns the first error latched by SetError, or nil if none has
// been.
func (e *Encoder) Error() error {
	return e.err
}

// Bytes returns the encoded output. Only valid for an encoder created with
// NewBytesEncoder/NewBytesEncoderWithTransferSyntax; panics if a write
// failed, since the caller asked for output that was never fully produced.
func (e *Encoder) Bytes() []byte {
	DoAssert(len(e.oldTransferSyntaxes) == 0)
	if e.err != nil {
		logrus.Panic(e.err)
	}
	return e.out.(*bytes.Buffer).Bytes()
}

func (e *Encoder) WriteByte(v byte) {
	if err := binary.Write(e.out, e.byteorder, &v); err != nil {
		e.SetError(err)
	}
}

func (e *Encoder) WriteUInt16(v uint16) {
	if err := binary.Write(e.out, e.byteorder, &v); err != nil {
		e.SetError(err)
	}
}

func (e *Encoder) WriteUInt32(v uint32) {
	if err := binary.Write(e.out, e.byteorder, &v); err != nil {
		e.SetError(err)
	}
}

func (e *Encoder) WriteInt16(v int16) {
	if err := binary.Write(e.out, e.byteorder, &v); err != nil {
		e.SetError(err)
	}
}

func (e *Encoder) WriteInt32(v int32) {
	if err := binary.Write(e.out, e.byteorder, &v); err != nil {
		e.SetError(err)
	}
}

func (e *Encoder) WriteFloat32(v float32) {
	if err := binary.Write(e.out, e.byteorder, &v); err != nil {
		e.SetError(err)
	}
}

func (e *Encoder) WriteFloat64(v float64) {
	if err := binary.Write(e.out, e.byteorder, &v); err != nil {
		e.SetError(err)
	}
}

// WriteString writes v as-is: no length prefix, no padding.
func (e *Encoder) WriteString(v string) {
	if _, err := e.out.Write([]byte(v)); err != nil {
		e.SetError(err)
	}
}

// WriteZeros writes n zero bytes, e.g. for an odd-length value's pad byte.
func (e *Encoder) WriteZeros(n int) {
	zeros := make([]byte, n)
	if _, err := e.out.Write(zeros); err != nil {
		e.SetError(err)
	}
}

// WriteBytes copies v to the output verbatim.
func (e *Encoder) WriteBytes(v []byte) {
	if _, err := e.out.Write(v); err != nil {
		e.SetError(err)
	}
}

// WriteTag writes a (group, element) pair in the encoder's current byte
// order. Tags are always two plain uint16s; VR explicitness never changes
// their shape.
func (e *Encoder) WriteTag(t dicomtag.Tag) {
	e.WriteUInt16(t.Group)
	e.WriteUInt16(t.Element)
}

// IsImplicitVR says whether a data element's 2-byte VR code rides on the
// wire alongside it (Explicit) or must be looked up from the dictionary by
// tag (Implicit).
type IsImplicitVR int

const (
	// ImplicitVR elements carry no VR on the wire; the reader resolves VR
	// from the tag via the static dictionary (dicomtag).
	ImplicitVR IsImplicitVR = iota

	// ExplicitVR elements carry their 2-byte VR code inline.
	ExplicitVR

	// UnknownVR marks a stream whose elements are never decoded as typed
	// values — e.g. a raw passthrough of an encapsulated pixel fragment.
	UnknownVR
)

// Decoder reads DICOM's low-level wire types out of a byte order and VR
// explicitness that can change mid-stream (Push/PopTransferSyntax), with a
// byte budget (Push/PopLimit) that lets a container's reader refuse to run
// past its own declared length even if the bytes underneath keep going.
type Decoder struct {
	rawIn     io.Reader
	in        *bufio.Reader
	err       error
	byteorder binary.ByteOrder

	// implicit is not read internally; it exists so a caller mid-decode can
	// ask which transfer syntax form is currently being read.
	implicit IsImplicitVR

	// limit is the absolute position (in pos's units) past which reads are
	// refused.
	limit int64

	// pos is the cumulative number of bytes consumed so far.
	pos int64

	// codingSystem decodes the VRs whose bytes carry a DICOM-specific
	// character set rather than plain ASCII; see PS3.5 6.1.2.1.
	codingSystem CodingSystem

	// oldTransferSyntaxes backs Push/PopTransferSyntax.
	oldTransferSyntaxes []transferSyntaxStackEntry

	// stateStack backs Push/PopLimit, innermost limit last.
	stateStack []stackEntry
}

// NewDecoder creates a decoder reading from in. It starts with no byte
// budget of its own (the limit is math.MaxInt64), so reads stop only at the
// reader's real EOF; PushLimit bounds reads of a container with a declared
// length.
func NewDecoder(in io.Reader, byteorder binary.ByteOrder, implicit IsImplicitVR) *Decoder {
	return &Decoder{
		rawIn:     in,
		in:        bufio.NewReader(in),
		byteorder: byteorder,
		implicit:  implicit,
		limit:     math.MaxInt64,
	}
}

// NewBytesDecoder creates a decoder reading a fixed byte slice; see
// NewDecoder for the limit semantics.
func NewBytesDecoder(data []byte, byteorder binary.ByteOrder, implicit IsImplicitVR) *Decoder {
	return NewDecoder(bytes.NewReader(data), byteorder, implicit)
}

// NewBytesDecoderWithTransferSyntax is NewBytesDecoder, resolving byte order
// and VR explicitness from a transfer syntax UID rather than a
// <byteorder, IsImplicitVR> pair.
func NewBytesDecoderWithTransferSyntax(data []byte, transferSyntaxUID string) *Decoder {
	endian, implicit, err := ParseTransferSyntaxUID(transferSyntaxUID)
	if err == nil {
		return NewBytesDecoder(data, endian, implicit)
	}

	d := NewBytesDecoder(data, binary.LittleEndian, ExplicitVR)
	d.SetError(fmt.Errorf("%v: unknown transfer syntax uid", transferSyntaxUID))
	return d
}

// SetError latches err as the error future Error() or Finish() calls will
// report — the first failure wins. Errors other than io.EOF are annotated
// with the byte offset they occurred at, since a raw "unexpected EOF" three
// stack frames up is useless for locating the malformed element in a
// multi-megabyte data set.
//
// REQUIRES: err != nil
func (d *Decoder) SetError(err error) {
	if err != nil && d.err == nil {
		if err != io.EOF {
			err = fmt.Errorf("%s (file offset %d)", err.Error(), d.pos)
		}
		d.err = err
	}
}

// SetErrorf is SetError with fmt.Errorf-style formatting.
func (d *Decoder) SetErrorf(format string, args ...interface{}) {
	d.SetError(fmt.Errorf(format, args...))
}

// TransferSyntax returns the decoder's current byte order and VR
// explicitness.
func (d *Decoder) TransferSyntax() (byteorder binary.ByteOrder, implicit IsImplicitVR) {
	return d.byteorder, d.implicit
}

// PushTransferSyntax temporarily switches byte order and VR explicitness;
// the matching PopTransferSyntax restores what was active before.
func (d *Decoder) PushTransferSyntax(byteorder binary.ByteOrder, implicit IsImplicitVR) {
	d.oldTransferSyntaxes = append(d.oldTransferSyntaxes, transferSyntaxStackEntry{d.byteorder, d.implicit})
	d.byteorder = byteorder
	d.implicit = implicit
}

// PushTransferSyntaxByUID is PushTransferSyntax, resolving byte order and VR
// explicitness from a transfer syntax UID.
func (d *Decoder) PushTransferSyntaxByUID(uid string) {
	endian, implicit, err := ParseTransferSyntaxUID(uid)
	if err != nil {
		d.SetError(err)
	}
	d.PushTransferSyntax(endian, implicit)
}

// SetCodingSystem overrides the default (7-bit ASCII) decoder used when
// converting value bytes to a Go string. Called when a data set's
// SpecificCharacterSet element is read, per PS3.5 6.1.2.
func (d *Decoder) SetCodingSystem(cs CodingSystem) {
	d.codingSystem = cs
}

// PopTransferSyntax restores the transfer syntax saved by the most recent
// unmatched PushTransferSyntax.
func (d *Decoder) PopTransferSyntax() {
	e := d.oldTransferSyntaxes[len(d.oldTransferSyntaxes)-1]
	d.byteorder = e.byteorder
	d.implicit = e.implicit
	d.oldTransferSyntaxes = d.oldTransferSyntaxes[:len(d.oldTransferSyntaxes)-1]
}

// PushLimit temporarily tightens the read budget to the next n bytes and
// clears any latched error, so a caller can attempt to parse a bounded
// container (a sequence item, a file-meta group) and check PopLimit's
// verdict in isolation from whatever came before.
//
// REQUIRES: the new limit is no looser than the one currently in effect.
func (d *Decoder) PushLimit(n int64) {
	newLimit := d.pos + n
	if newLimit > d.limit {
		d.SetError(fmt.Errorf("trying to read %d bytes beyond buffer end", newLimit-d.limit))
		newLimit = d.pos
	}
	d.stateStack = append(d.stateStack, stackEntry{limit: d.limit, err: d.err})
	d.limit = newLimit
	d.err = nil
}

// PopLimit restores the limit and error state saved by the matching
// PushLimit. If the pushed region wasn't fully consumed, the remainder is
// skipped first — a best-effort recovery that lets the rest of a corrupt
// file parse even though one element in it didn't.
func (d *Decoder) PopLimit() {
	if d.pos < d.limit {
		d.Skip(int(d.limit - d.pos))
	}
	last := len(d.stateStack) - 1
	d.limit = d.stateStack[last].limit
	if d.stateStack[last].err != nil {
		d.err = d.stateStack[last].err
	}
	d.stateStack = d.stateStack[:last]
}

// Error returns the error latched so far, or nil.
func (d *Decoder) Error() error { return d.err }

// Finish reports whatever error was latched during decoding, or an error if
// the decoder still has unconsumed input within its current limit — a
// conformant reader that parsed everything it declared leaves nothing
// behind.
func (d *Decoder) Finish() error {
	if d.err != nil {
		return d.err
	}
	if !d.EOF() {
		return fmt.Errorf("dicomio: decoder found trailing data past the last parsed element")
	}
	return nil
}

func (d *Decoder) Read(p []byte) (int, error) {
	desired := d.len()
	if desired == 0 {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}

	if desired < int64(len(p)) {
		p = p[:desired]
	}

	n, err := d.in.Read(p)
	if n >= 0 {
		d.pos += int64(n)
	}
	return n, err
}

// EOF reports whether there is no more data to read, either because the
// decoder already failed, its limit was reached, or the underlying reader
// genuinely ran dry.
func (d *Decoder) EOF() bool {
	if d.err != nil {
		return true
	}
	if d.limit-d.pos <= 0 {
		return true
	}
	data, _ := d.in.Peek(1)
	return len(data) == 0
}

// BytesRead returns the cumulative number of bytes consumed so far.
func (d *Decoder) BytesRead() int64 { return d.pos }

// len returns the number of bytes remaining before the current limit.
func (d *Decoder) len() int64 {
	return d.limit - d.pos
}

// ReadByte reads a single byte. On EOF it latches an error and returns a
// junk value the caller must not trust.
func (d *Decoder) ReadByte() (v byte) {
	if err := binary.Read(d, d.byteorder, &v); err != nil {
		d.SetError(err)
		return 0
	}
	return v
}

func (d *Decoder) ReadUInt32() (v uint32) {
	if err := binary.Read(d, d.byteorder, &v); err != nil {
		d.SetError(err)
	}
	return v
}

func (d *Decoder) ReadInt32() (v int32) {
	if err := binary.Read(d, d.byteorder, &v); err != nil {
		d.SetError(err)
	}
	return v
}

func (d *Decoder) ReadUInt16() (v uint16) {
	if err := binary.Read(d, d.byteorder, &v); err != nil {
		d.SetError(err)
	}
	return v
}

func (d *Decoder) ReadInt16() (v int16) {
	if err := binary.Read(d, d.byteorder, &v); err != nil {
		d.SetError(err)
	}
	return v
}

func (d *Decoder) ReadFloat32() (v float32) {
	if err := binary.Read(d, d.byteorder, &v); err != nil {
		d.SetError(err)
	}
	return v
}

func (d *Decoder) ReadFloat64() (v float64) {
	if err := binary.Read(d, d.byteorder, &v); err != nil {
		d.SetError(err)
	}
	return v
}

// internalReadString reads length raw bytes and runs them through sd, the
// specific-character-set decoder for one of the three name components
// (alphabetic/ideographic/phonetic); sd == nil means the bytes are already
// 7-bit ASCII and pass through unchanged.
func internalReadString(d *Decoder, sd *encoding.Decoder, length int) string {
	raw := d.ReadBytes(length)
	if len(raw) == 0 {
		return ""
	}

	if sd == nil {
		return string(raw)
	}

	decoded, err := sd.Bytes(raw)
	if err != nil {
		d.SetError(err)
		return ""
	}
	return string(decoded)
}

// ReadStringWithCodingSystem reads a string using the specific-character-set
// decoder selected by csType, for the PN/LO-family VRs whose group,
// ideographic, and phonetic components can each carry a different encoding.
func (d *Decoder) ReadStringWithCodingSystem(csType CodingSystemType, length int) string {
	var sd *encoding.Decoder
	switch csType {
	case AlphabeticCodingSystem:
		sd = d.codingSystem.Alphabetic
	case IdeographicCodingSystem:
		sd = d.codingSystem.Ideographic
	case PhoneticCodingSystem:
		sd = d.codingSystem.Phonetic
	default:
		panic(csType)
	}
	return internalReadString(d, sd, length)
}

// ReadString reads a string using the data set's default (ideographic-slot)
// character set decoder.
func (d *Decoder) ReadString(length int) string {
	return internalReadString(d, d.codingSystem.Ideographic, length)
}

// ReadBytes reads exactly length raw bytes, latching an error and returning
// nil if that many aren't available.
func (d *Decoder) ReadBytes(length int) []byte {
	if d.len() < int64(length) {
		d.SetError(fmt.Errorf("ReadBytes: requested %d, available %d", length, d.len()))
		return nil
	}
	v := make([]byte, length)
	remaining := v
	for len(remaining) > 0 {
		n, err := d.Read(remaining)
		if err != nil {
			d.SetError(err)
			break
		}
		if n < 0 || n > len(remaining) {
			panic(fmt.Sprintf("dicomio: Read returned out-of-range n=%d for %d remaining", n, len(remaining)))
		}
		remaining = remaining[n:]
	}
	DoAssert(d.err != nil || len(remaining) == 0)
	return v
}

// Skip discards the next length bytes without allocating a buffer their
// size, for skipping over a malformed or uninteresting element's value.
func (d *Decoder) Skip(length int) {
	if d.len() < int64(length) {
		d.SetError(fmt.Errorf("Skip: requested %d, available %d", length, d.len()))
		return
	}

	const chunkSize = 1 << 16
	junkSize := chunkSize
	if length < junkSize {
		junkSize = length
	}
	junk := make([]byte, junkSize)

	remaining := length
	for remaining > 0 {
		n := len(junk)
		if remaining < n {
			n = remaining
		}
		read, err := d.Read(junk[:n])
		if err != nil {
			d.SetError(err)
			break
		}
		DoAssert(read > 0)
		remaining -= read
	}
	DoAssert(d.err != nil || remaining == 0)
}

// ReadTag reads a (group, element) pair in the decoder's current byte
// order. Tags are always two plain uint16s regardless of VR explicitness.
func (d *Decoder) ReadTag() dicomtag.Tag {
	group := d.ReadUInt16()
	element := d.ReadUInt16()
	return dicomtag.Tag{Group: group, Element: element}
}

// Position returns the cumulative number of bytes read so far, for callers
// that want to record a byte offset (e.g. a sequence item's start) without
// reaching into decoder internals.
func (d *Decoder) Position() int64 { return d.pos }

// Seek repositions the decoder to an absolute byte offset, for resuming a
// paused read against a recorded Position (e.g. a basic offset table
// entry pointing at a later pixel fragment). Only available when the
// decoder was built over an io.Seeker; Decoder buffers its input through
// bufio.Reader, so a successful seek discards whatever was already
// buffered ahead of the new position.
func (d *Decoder) Seek(pos int64) error {
	seeker, ok := d.rawIn.(io.Seeker)
	if !ok {
		return fmt.Errorf("dicomio: Seek: underlying reader does not support seeking")
	}
	if _, err := seeker.Seek(pos, io.SeekStart); err != nil {
		return err
	}
	d.in.Reset(d.rawIn)
	d.pos = pos
	return nil
}

// DoAssert panics with values joined together if condition is false. Used
// for invariants this package's own bookkeeping must maintain (a Read that
// returns more bytes than were asked for, a limit stack popped more times
// than it was pushed) rather than for malformed-input handling, which goes
// through SetError instead.
func DoAssert(condition bool, values ...interface{}) {
	if !condition {
		var s string
		for _, value := range values {
			s += fmt.Sprintf("%v", value)
		}
		logrus.Panic(s)
	}
}
