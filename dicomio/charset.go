package dicomio

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
)

// CodingSystem holds the decoders SpecificCharacterSet selects for
// decoding []byte into a Go string.
type CodingSystem struct {
	// Alphabetic is used for the first (Latin) component of a PN value.
	// Every other VR decodes with Ideographic (see Decoder.ReadString).
	Alphabetic  *encoding.Decoder
	Ideographic *encoding.Decoder
	Phonetic    *encoding.Decoder
}

// CodingSystemType picks which of CodingSystem's three decoders applies.
// The Alphabetic/Ideographic/Phonetic split only matters for PN values in
// a handful of East Asian repertoires; every other VR always decodes with
// Ideographic.
type CodingSystemType int

const (
	// AlphabeticCodingSystem is for writing a name in (English) alphabets.
	AlphabeticCodingSystem CodingSystemType = iota
	// IdeographicCodingSystem is for writing the name in the native writing
	// system (Kanji, Hanja, Hanzi).
	IdeographicCodingSystem
	// PhoneticCodingSystem is for hiragana/katakana or hangul phonetics.
	PhoneticCodingSystem
)

// TextEncoding reports a failure resolving or applying a DICOM specific
// character set.
type TextEncoding struct {
	Name  string
	cause error
}

func (e *TextEncoding) Error() string {
	return fmt.Sprintf("dicomio: text encoding %q: %v", e.Name, e.cause)
}

func (e *TextEncoding) Unwrap() error { return e.cause }

// htmlEncodingNames maps a DICOM Specific Character Set value (PS3.3
// C.12.1.1.2) to a golang.org/x/text/encoding/htmlindex name. An empty
// string means 7-bit ASCII, htmlindex's nil decoder.
var htmlEncodingNames = map[string]string{
	"ISO 2022 IR 6":   "",
	"ISO_IR 100":      "iso-8859-1",
	"ISO 2022 IR 100": "iso-8859-1",
	"ISO_IR 101":      "iso-8859-2",
	"ISO 2022 IR 101": "iso-8859-2",
	"ISO_IR 109":      "iso-8859-3",
	"ISO 2022 IR 109": "iso-8859-3",
	"ISO_IR 110":      "iso-8859-4",
	"ISO 2022 IR 110": "iso-8859-4",
	"ISO_IR 126":      "iso-ir-126",
	"ISO 2022 IR 126": "iso-ir-126",
	"ISO_IR 127":      "iso-ir-127",
	"ISO 2022 IR 127": "iso-ir-127",
	"ISO_IR 138":      "iso-ir-138",
	"ISO 2022 IR 138": "iso-ir-138",
	"ISO_IR 144":      "iso-ir-144",
	"ISO 2022 IR 144": "iso-ir-144",
	"ISO_IR 148":      "iso-ir-148",
	"ISO 2022 IR 148": "iso-ir-148",
	"ISO_IR 166":      "iso-ir-166",
	"ISO 2022 IR 166": "iso-ir-166",
	"ISO_IR 192":      "utf-8",
}

// specialDecoders covers the repertoires htmlindex either resolves
// incorrectly for DICOM's purposes or doesn't carry at all: Shift_JIS,
// ISO 2022 JP, EUC-KR, and GB18030 all need an explicit x/text codec
// package rather than htmlindex's generic name table.
var specialDecoders = map[string]func() *encoding.Decoder{
	"ISO_IR 13":       func() *encoding.Decoder { return japanese.ShiftJIS.NewDecoder() },
	"ISO 2022 IR 13":  func() *encoding.Decoder { return japanese.ShiftJIS.NewDecoder() },
	"ISO 2022 IR 87":  func() *encoding.Decoder { return japanese.ISO2022JP.NewDecoder() },
	"ISO 2022 IR 159": func() *encoding.Decoder { return japanese.ISO2022JP.NewDecoder() },
	"ISO 2022 IR 149": func() *encoding.Decoder { return korean.EUCKR.NewDecoder() },
	"GB18030":         func() *encoding.Decoder { return simplifiedchinese.GB18030.NewDecoder() },
	"GBK":             func() *encoding.Decoder { return simplifiedchinese.GBK.NewDecoder() },
}

func decoderFor(name string) (*encoding.Decoder, error) {
	if mk, ok := specialDecoders[name]; ok {
		return mk(), nil
	}
	htmlName, ok := htmlEncodingNames[name]
	if !ok {
		return nil, &TextEncoding{Name: name, cause: fmt.Errorf("unrecognized specific character set")}
	}
	if htmlName == "" {
		return nil, nil
	}
	d, err := htmlindex.Get(htmlName)
	if err != nil {
		return nil, &TextEncoding{Name: name, cause: err}
	}
	return d.NewDecoder(), nil
}

// ParseSpecificCharacterSet resolves the value of a SpecificCharacterSet
// (0008,0005) element — one to three repertoire names, in the
// Alphabetic\Ideographic\Phonetic order PS3.5 6.2 prescribes for PN — into
// a CodingSystem. A single name is used for all three components; an empty
// list decodes as plain 7-bit ASCII.
func ParseSpecificCharacterSet(encodingNames []string) (CodingSystem, error) {
	var decoders []*encoding.Decoder

	for _, name := range encodingNames {
		logrus.Debugf("dicomio.ParseSpecificCharacterSet: using coding system %s", name)
		d, err := decoderFor(name)
		if err != nil {
			return CodingSystem{}, err
		}
		decoders = append(decoders, d)
	}

	switch len(decoders) {
	case 0:
		return CodingSystem{nil, nil, nil}, nil
	case 1:
		return CodingSystem{decoders[0], decoders[0], decoders[0]}, nil
	case 2:
		return CodingSystem{decoders[0], decoders[1], decoders[1]}, nil
	default:
		return CodingSystem{decoders[0], decoders[1], decoders[2]}, nil
	}
}

// Encode returns the golang.org/x/text encoder that round-trips s back to
// the wire bytes of the given specific-character-set name, or nil for
// plain ASCII. Only the first name of a SpecificCharacterSet list is used:
// this module always re-encodes with the Alphabetic/default repertoire.
func Encode(name string) (*encoding.Encoder, error) {
	if mk, ok := specialDecoders[name]; ok {
		// specialDecoders stores decoder constructors only; reach the
		// sibling Encoding value through the same x/text package instead
		// of re-deriving it from the decoder.
		switch name {
		case "ISO_IR 13", "ISO 2022 IR 13":
			return japanese.ShiftJIS.NewEncoder(), nil
		case "ISO 2022 IR 87", "ISO 2022 IR 159":
			return japanese.ISO2022JP.NewEncoder(), nil
		case "ISO 2022 IR 149":
			return korean.EUCKR.NewEncoder(), nil
		case "GB18030":
			return simplifiedchinese.GB18030.NewEncoder(), nil
		case "GBK":
			return simplifiedchinese.GBK.NewEncoder(), nil
		}
		_ = mk
	}
	htmlName, ok := htmlEncodingNames[name]
	if !ok {
		return nil, &TextEncoding{Name: name, cause: fmt.Errorf("unrecognized specific character set")}
	}
	if htmlName == "" {
		return nil, nil
	}
	d, err := htmlindex.Get(htmlName)
	if err != nil {
		return nil, &TextEncoding{Name: name, cause: err}
	}
	return d.NewEncoder(), nil
}
