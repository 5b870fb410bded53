package dicom

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/odincare/dicomkit/dicomelement"
	"github.com/odincare/dicomkit/dicomio"
	"github.com/odincare/dicomkit/dicomstream"
	"github.com/odincare/dicomkit/dicomtag"
)

// ReadOptions controls ReadDataSet/ReadFile.
type ReadOptions struct {
	// DropPixelData reads past PixelData's value and discards it, leaving
	// no element for it in the result. Useful for metadata-only reads of
	// large files.
	DropPixelData bool

	// ReturnTags, if non-empty, restricts the result to only these tags
	// (plus whatever file meta is always parsed).
	ReturnTags []dicomtag.Tag

	// StopAtTag stops parsing as soon as a tag greater than or equal to
	// this one is encountered, leaving every later element unparsed. Tags
	// are in increasing order in to a conformant file, so this bounds
	// read time for callers that only need a file's early elements.
	StopAtTag *dicomtag.Tag

	// StrictPreamble requires a valid 128-byte preamble + "DICM" magic,
	// rejecting a missing one as MalformedFile. DefaultReadOptions sets
	// this true, since a conformant Part 10 file always has one; set it
	// false to tolerate the preambleless streams some non-conformant PACS
	// exports produce, per PS3.10's own admission that the preamble's
	// content is implementation-defined.
	StrictPreamble bool
}

// DefaultReadOptions returns the options ReadFile/ReadDataSet should use
// absent a caller override: a conformant Part 10 file, read in full.
func DefaultReadOptions() ReadOptions {
	return ReadOptions{StrictPreamble: true}
}

// WriteOptions controls WriteDataSet/WriteFile.
type WriteOptions struct {
	// NormalizeLength forces every sequence/item to undefined length on
	// write, regardless of how it was read. The zero value, false, keeps
	// each sequence's own length form: a sequence read or built with a
	// defined length is written with defined lengths, and one read with an
	// undefined length keeps its delimiters (see writeSequenceElement).
	NormalizeLength bool
}

// ReadFile reads a DICOM Part 10 file from path.
func ReadFile(path string, options ReadOptions) (*InMemObject, *FileMetaTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return ReadDataSet(f, options)
}

// ReadDataSet parses a DICOM Part 10 stream: 128-byte preamble, "DICM"
// magic, file meta group (always Explicit VR Little Endian), and the main
// data set in whatever transfer syntax the meta group names.
func ReadDataSet(r io.Reader, options ReadOptions) (*InMemObject, *FileMetaTable, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, err
	}

	body := raw
	if len(raw) >= 132 && string(raw[128:132]) == "DICM" {
		body = raw[132:]
	} else if options.StrictPreamble {
		return nil, nil, &MalformedFile{Reason: "missing 128-byte preamble / DICM magic"}
	}

	d := dicomio.NewBytesDecoder(body, binary.LittleEndian, dicomio.ExplicitVR)
	meta, err := parseFileMeta(d)
	if err != nil {
		return nil, nil, err
	}

	ts, err := dicomio.ResolveTransferSyntax(meta.TransferSyntaxUID)
	if err != nil {
		return nil, nil, err
	}
	d.PushTransferSyntax(ts.Endian, ts.Explicit)

	if ts.Codec == dicomio.CodecUnsupported {
		return nil, meta, nil
	}

	sd := dicomstream.NewStreamDecoder(d)
	obj, err := readFilteredObject(sd, options)
	if err != nil {
		return nil, nil, err
	}
	return obj, meta, nil
}

func readFilteredObject(sd *dicomstream.StreamDecoder, options ReadOptions) (*InMemObject, error) {
	if !options.DropPixelData && options.StopAtTag == nil && len(options.ReturnTags) == 0 {
		return FromTokenStream(sd)
	}

	wanted := make(map[dicomtag.Tag]bool, len(options.ReturnTags))
	for _, t := range options.ReturnTags {
		wanted[t] = true
	}

	obj := NewInMemObject()
	for {
		tok, err := sd.Next()
		if err == io.EOF {
			return obj, nil
		}
		if err != nil {
			return nil, err
		}
		if tok.Kind != dicomstream.TokenElementHeader {
			continue
		}
		tag := tok.Header.Tag
		if options.StopAtTag != nil && !tag.Less(*options.StopAtTag) {
			return obj, nil
		}
		if options.DropPixelData && tag == dicomtag.PixelData {
			if err := skipElementValue(sd); err != nil {
				return nil, err
			}
			continue
		}
		if len(wanted) > 0 && !wanted[tag] {
			if err := skipElementValue(sd); err != nil {
				return nil, err
			}
			continue
		}
		if err := readOneElement(sd, tok.Header, obj); err != nil {
			return nil, err
		}
	}
}

// skipElementValue discards the token(s) that follow an already-consumed
// TokenElementHeader, without materializing them into the object.
func skipElementValue(sd *dicomstream.StreamDecoder) error {
	tok, err := sd.Next()
	if err != nil {
		return err
	}
	switch tok.Kind {
	case dicomstream.TokenPrimitiveValue:
		return nil
	case dicomstream.TokenSequenceStart:
		depth := 1
		for depth > 0 {
			t, err := sd.Next()
			if err != nil {
				return err
			}
			switch t.Kind {
			case dicomstream.TokenSequenceStart:
				depth++
			case dicomstream.TokenSequenceEnd:
				depth--
			}
		}
		return nil
	case dicomstream.TokenPixelSequenceStart:
		for {
			t, err := sd.Next()
			if err != nil {
				return err
			}
			if t.Kind == dicomstream.TokenPixelSequenceEnd {
				return nil
			}
		}
	default:
		return fmt.Errorf("dicom: unexpected token %v while skipping element value", tok.Kind)
	}
}

func parseFileMeta(d *dicomio.Decoder) (*FileMetaTable, error) {
	groupLenHeader, err := dicomelement.ReadHeader(d)
	if err != nil {
		return nil, err
	}
	if groupLenHeader.Tag != dicomtag.FileMetaInformationGroupLength {
		return nil, &MalformedFile{Reason: "expected FileMetaInformationGroupLength as first element"}
	}
	groupLenVal, err := dicomelement.ReadPrimitiveValue(d, groupLenHeader.VR, groupLenHeader.Length, false)
	if err != nil {
		return nil, err
	}
	groupLen, err := groupLenVal.AsU32()
	if err != nil {
		return nil, err
	}

	d.PushLimit(int64(groupLen))
	defer d.PopLimit()

	sd := dicomstream.NewStreamDecoder(d)
	meta := &FileMetaTable{Extra: NewInMemObject()}
	for !d.EOF() {
		tok, err := sd.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if tok.Kind != dicomstream.TokenElementHeader {
			continue
		}
		header := tok.Header
		valTok, err := sd.Next()
		if err != nil {
			return nil, err
		}
		if valTok.Kind != dicomstream.TokenPrimitiveValue {
			continue
		}
		s, _ := valTok.Value.Str()
		switch header.Tag {
		case dicomtag.MediaStorageSOPClassUID:
			meta.MediaStorageSOPClassUID = s
		case dicomtag.MediaStorageSOPInstanceUID:
			meta.MediaStorageSOPInstanceUID = s
		case dicomtag.TransferSyntaxUID:
			meta.TransferSyntaxUID = s
		case dicomtag.ImplementationClassUID:
			meta.ImplementationClassUID = s
		case dicomtag.ImplementationVersionName:
			meta.ImplementationVersionName = s
		case dicomtag.SourceApplicationEntityTitle:
			meta.SourceApplicationEntityTitle = s
		default:
			meta.Extra.Put(&Element{Tag: header.Tag, VR: header.VR, Value: NewPrimitiveValue(valTok.Value)})
		}
	}
	if meta.TransferSyntaxUID == "" {
		return nil, &MalformedFile{Reason: "file meta is missing TransferSyntaxUID"}
	}
	return meta, nil
}

// WriteFile writes obj to path as a DICOM Part 10 file under meta's
// transfer syntax.
func WriteFile(path string, obj *InMemObject, meta *FileMetaTable, options WriteOptions) error {
	data, err := WriteDataSet(obj, meta, options)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// WriteDataSet serializes obj into a complete Part 10 byte stream: 128
// zero bytes, "DICM", the file meta group, then the main data set encoded
// per meta.TransferSyntaxUID.
func WriteDataSet(obj *InMemObject, meta *FileMetaTable, options WriteOptions) ([]byte, error) {
	if meta.ImplementationClassUID == "" {
		meta.ImplementationClassUID = DefaultImplementationClassUID
	}
	if meta.ImplementationVersionName == "" {
		meta.ImplementationVersionName = DefaultImplementationVersionName
	}

	metaBytes, err := encodeFileMeta(meta)
	if err != nil {
		return nil, err
	}

	ts, err := dicomio.ResolveTransferSyntax(meta.TransferSyntaxUID)
	if err != nil {
		return nil, err
	}
	bodyEnc := dicomio.NewBytesEncoder(ts.Endian, ts.Explicit)
	se := dicomstream.NewStreamEncoder(bodyEnc)
	if err := obj.IntoTokenStream(se, options); err != nil {
		return nil, err
	}
	if bodyEnc.Error() != nil {
		return nil, bodyEnc.Error()
	}

	var out bytes.Buffer
	out.Write(make([]byte, 128))
	out.WriteString("DICM")
	out.Write(metaBytes)
	out.Write(bodyEnc.Bytes())
	return out.Bytes(), nil
}

func encodeFileMeta(meta *FileMetaTable) ([]byte, error) {
	body := dicomio.NewBytesEncoder(binary.LittleEndian, dicomio.ExplicitVR)
	se := dicomstream.NewStreamEncoder(body)

	write := func(tag dicomtag.Tag, vr string, s string) error {
		if s == "" {
			return nil
		}
		return writeOneElement(se, &Element{Tag: tag, VR: vr, Value: NewPrimitiveValue(strOf(s))}, WriteOptions{})
	}
	if err := write(dicomtag.MediaStorageSOPClassUID, "UI", meta.MediaStorageSOPClassUID); err != nil {
		return nil, err
	}
	if err := write(dicomtag.MediaStorageSOPInstanceUID, "UI", meta.MediaStorageSOPInstanceUID); err != nil {
		return nil, err
	}
	if err := write(dicomtag.TransferSyntaxUID, "UI", meta.TransferSyntaxUID); err != nil {
		return nil, err
	}
	if err := write(dicomtag.ImplementationClassUID, "UI", meta.ImplementationClassUID); err != nil {
		return nil, err
	}
	if err := write(dicomtag.ImplementationVersionName, "SH", meta.ImplementationVersionName); err != nil {
		return nil, err
	}
	if err := write(dicomtag.SourceApplicationEntityTitle, "AE", meta.SourceApplicationEntityTitle); err != nil {
		return nil, err
	}
	if meta.Extra != nil {
		for _, tag := range meta.Extra.Tags() {
			e, _ := meta.Extra.Get(tag)
			if err := writeOneElement(se, e, WriteOptions{}); err != nil {
				return nil, err
			}
		}
	}
	if body.Error() != nil {
		return nil, body.Error()
	}
	elements := body.Bytes()

	groupLenEnc := dicomio.NewBytesEncoder(binary.LittleEndian, dicomio.ExplicitVR)
	groupLenSE := dicomstream.NewStreamEncoder(groupLenEnc)
	if err := writeOneElement(groupLenSE, &Element{
		Tag:   dicomtag.FileMetaInformationGroupLength,
		VR:    "UL",
		Value: NewPrimitiveValue(dicomelement.NewU32s([]uint32{uint32(len(elements))})),
	}, WriteOptions{}); err != nil {
		return nil, err
	}
	if groupLenEnc.Error() != nil {
		return nil, groupLenEnc.Error()
	}

	var out bytes.Buffer
	out.Write(groupLenEnc.Bytes())
	out.Write(elements)
	return out.Bytes(), nil
}

func strOf(s string) dicomelement.PrimitiveValue {
	return dicomelement.NewStrs([]string{s})
}
