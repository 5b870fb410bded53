package dicomio

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/odincare/dicomkit/dicomuid"
)

// StandardTransferSyntaxes is the list of standard transfer syntaxes
var StandardTransferSyntaxes = []string{
	dicomuid.ImplicitVRLittleEndian,
	dicomuid.ExplicitVRLittleEndian,
	dicomuid.ExplicitVRBigEndian,
	dicomuid.DeflatedExplicitVRLittleEndian,
}

// CanonicalTransferSyntaxUID return the canonical transfer syntax UID
// (e.g. uid.ExplicitVRLittleEndian or uid.ImplicitVrLittleEndian),
// given an UID that represents any transfer syntax. Returns an error if
// the uid is not defined in DICOM standard, or if the uid does not represent
// a transfer syntax
// TODO check the standard to see if we need to accept unknown UIDS
// as explicit little endian.
func CanonicalTransferSyntaxUID(uid string) (string, error) {

	// defaults are explicit VR, little endian
	switch uid {
	case dicomuid.ImplicitVRLittleEndian,
		dicomuid.ExplicitVRLittleEndian,
		dicomuid.ExplicitVRBigEndian,
		dicomuid.DeflatedExplicitVRLittleEndian:
		return uid, nil
	default:
		e, err := dicomuid.Lookup(uid)
		if err != nil {
			return "", fmt.Errorf("dicom.CanonicalTransferSyntaxUID: %w", err)
		}

		if e.Type != dicomuid.TypeTransferSyntax {
			return "", fmt.Errorf("dicom.CanonicalTransferSyntaxUID: '%s' is not a transfer syntax (is %s)", uid, e.Type)
		}

		// the default is ExplicitVRLittleEndian
		return dicomuid.ExplicitVRLittleEndian, nil
	}
}

// ParseTransferSyntaxUID parses a transfer syntax uid and returns its byteorder
// and implicitVR/explicitVR type. TransferSyntaxUID can be any UID that refers to
// a transfer syntax. It can be, e.g.
// 1.2.840.10008.1.2(it will return (LittleEndian, ImplicitVR))
// or 1.2.840.10008.1.2.4.50(it will return (LittleEndian, ExplicitVR))
func ParseTransferSyntaxUID(uid string) (byteorder binary.ByteOrder, implicit IsImplicitVR, err error) {

	canonical, err := CanonicalTransferSyntaxUID(uid)
	if err != nil {
		return nil, UnknownVR, err
	}

	switch canonical {
	case dicomuid.ImplicitVRLittleEndian:
		return binary.LittleEndian, ImplicitVR, nil
	case dicomuid.DeflatedExplicitVRLittleEndian:
		fallthrough
	case dicomuid.ExplicitVRLittleEndian:
		return binary.LittleEndian, ExplicitVR, nil
	case dicomuid.ExplicitVRBigEndian:
		return binary.BigEndian, ExplicitVR, nil
	default:
		panic(fmt.Sprintf("Invalid transfer syntax: %v, %v", canonical, uid))
	}
}

// CodecKind classifies how a transfer syntax's pixel data and data-set
// bytes relate to the bytes on the wire. Most transfer syntaxes need no
// adaptation at all; the encapsulated ones need a pixel-level codec this
// package does not implement, and are recorded as CodecUnsupported rather
// than silently mishandled.
type CodecKind int

const (
	// CodecNone means pixel data is stored as native, uncompressed samples.
	CodecNone CodecKind = iota
	// CodecUnsupported marks a transfer syntax whose pixel codec (e.g. a
	// JPEG variant) this package does not implement; readers should treat
	// PixelData as an opaque encapsulated byte sequence.
	CodecUnsupported
	// CodecEncapsulatedPixelData marks a transfer syntax whose pixel data
	// is stored as a Basic Offset Table followed by one or more encoded
	// frame fragments, regardless of whether a pixel codec is registered.
	CodecEncapsulatedPixelData
	// CodecPixelAdapter marks a transfer syntax with a registered
	// pixel-level adapter (see RegisterPixelCodec).
	CodecPixelAdapter
	// CodecDatasetAdapter marks a transfer syntax whose entire data-set
	// byte stream needs adaptation before element decoding, such as
	// Deflated Explicit VR Little Endian's zlib wrapping (see
	// RegisterDatasetCodec).
	CodecDatasetAdapter
)

func (k CodecKind) String() string {
	switch k {
	case CodecNone:
		return "none"
	case CodecUnsupported:
		return "unsupported"
	case CodecEncapsulatedPixelData:
		return "encapsulated-pixel-data"
	case CodecPixelAdapter:
		return "pixel-adapter"
	case CodecDatasetAdapter:
		return "dataset-adapter"
	default:
		return "unknown"
	}
}

// TransferSyntax is the resolved, structured form of a transfer syntax UID:
// byte order, VR explicitness, and how its pixel/data-set bytes must be
// adapted.
type TransferSyntax struct {
	UID      string
	Endian   binary.ByteOrder
	Explicit IsImplicitVR
	Codec    CodecKind
}

// DatasetAdapter transforms the raw data-set byte stream before element
// decoding (encode direction is the inverse transform). Registered via
// RegisterDatasetCodec.
type DatasetAdapter interface {
	DecodeReader(in []byte) ([]byte, error)
	EncodeWriter(out []byte) ([]byte, error)
}

// identityDatasetAdapter is a no-op DatasetAdapter, useful as a stand-in
// for transfer syntaxes whose framing needs no transform of its own (e.g.
// while a real zlib adapter for Deflated Explicit VR LE is pending).
type identityDatasetAdapter struct{}

func (identityDatasetAdapter) DecodeReader(in []byte) ([]byte, error)  { return in, nil }
func (identityDatasetAdapter) EncodeWriter(out []byte) ([]byte, error) { return out, nil }

var (
	codecMu         sync.Mutex
	pixelCodecs     = map[string]CodecKind{}
	datasetAdapters = map[string]DatasetAdapter{
		dicomuid.DeflatedExplicitVRLittleEndian: identityDatasetAdapter{},
	}
)

// RegisterPixelCodec records that transferSyntaxUID has a pixel-level
// codec available, so ResolveTransferSyntax reports CodecPixelAdapter
// instead of CodecUnsupported for it. This package registers no codecs
// itself; callers that link in a JPEG/JPEG2000/RLE decoder call this to
// advertise it.
func RegisterPixelCodec(transferSyntaxUID string) {
	codecMu.Lock()
	defer codecMu.Unlock()
	pixelCodecs[transferSyntaxUID] = CodecPixelAdapter
}

// RegisterDatasetCodec records a DatasetAdapter for transferSyntaxUID.
func RegisterDatasetCodec(transferSyntaxUID string, adapter DatasetAdapter) {
	codecMu.Lock()
	defer codecMu.Unlock()
	datasetAdapters[transferSyntaxUID] = adapter
}

// LookupDatasetAdapter returns the DatasetAdapter registered for
// transferSyntaxUID, if any.
func LookupDatasetAdapter(transferSyntaxUID string) (DatasetAdapter, bool) {
	codecMu.Lock()
	defer codecMu.Unlock()
	a, ok := datasetAdapters[transferSyntaxUID]
	return a, ok
}

// ResolveTransferSyntax parses uid into a structured TransferSyntax,
// including its codec classification. Encapsulated-pixel-data transfer
// syntaxes (registered in dicomuid with Type==TypeTransferSyntax but not
// one of the four standard UIDs) are reported as CodecPixelAdapter when a
// pixel codec is registered for them (RegisterPixelCodec), else
// CodecUnsupported. CodecEncapsulatedPixelData is never reported.
func ResolveTransferSyntax(uid string) (TransferSyntax, error) {
	canonical, err := CanonicalTransferSyntaxUID(uid)
	if err != nil {
		return TransferSyntax{}, err
	}
	byteorder, implicit, err := ParseTransferSyntaxUID(uid)
	if err != nil {
		return TransferSyntax{}, err
	}
	codec := CodecNone
	if canonical != uid {
		// uid resolved to ExplicitVRLittleEndian as a fallback, meaning it
		// names a non-standard transfer syntax with its own pixel codec.
		codecMu.Lock()
		kind, ok := pixelCodecs[uid]
		codecMu.Unlock()
		if ok {
			codec = kind
		} else {
			codec = CodecUnsupported
		}
	} else if _, ok := LookupDatasetAdapter(uid); ok && uid == dicomuid.DeflatedExplicitVRLittleEndian {
		codec = CodecDatasetAdapter
	}
	return TransferSyntax{UID: uid, Endian: byteorder, Explicit: implicit, Codec: codec}, nil
}
