package dicom

import (
	"fmt"

	"github.com/odincare/dicomkit/dicomelement"
	"github.com/odincare/dicomkit/dicomtag"
)

// Action is the closed alphabet of attribute mutations AttributeOp
// supports. Apply rejects an action whose value does not fit the target
// element's VR with IncompatibleTypes or IllegalExtend rather than
// silently coercing.
type Action struct {
	kind actionKind

	prim dicomelement.PrimitiveValue
	strs []string
	i32  int32
	u32  uint32
	i16  int16
	u16  uint16
	f32  float32
	f64  float64
	vr   string
}

type actionKind int

const (
	actionRemove actionKind = iota
	actionEmpty
	actionSetVR
	actionSet
	actionSetStr
	actionSetIfMissing
	actionSetStrIfMissing
	actionReplace
	actionReplaceStr
	actionPushStr
	actionPushI32
	actionPushU32
	actionPushI16
	actionPushU16
	actionPushF32
	actionPushF64
)

func RemoveAction() Action             { return Action{kind: actionRemove} }
func EmptyAction() Action              { return Action{kind: actionEmpty} }
func SetVRAction(vr string) Action     { return Action{kind: actionSetVR, vr: vr} }
func SetStrAction(ss ...string) Action { return Action{kind: actionSetStr, strs: ss} }

// SetAction creates the element if absent and replaces its value with v,
// whatever Kind v carries.
func SetAction(v dicomelement.PrimitiveValue) Action { return Action{kind: actionSet, prim: v} }

func SetIfMissingAction(v dicomelement.PrimitiveValue) Action {
	return Action{kind: actionSetIfMissing, prim: v}
}
func SetStrIfMissingAction(ss ...string) Action {
	return Action{kind: actionSetStrIfMissing, strs: ss}
}

// ReplaceAction overwrites an existing element's value with v; it is a
// no-op, not an error, when the element is absent.
func ReplaceAction(v dicomelement.PrimitiveValue) Action { return Action{kind: actionReplace, prim: v} }
func ReplaceStrAction(ss ...string) Action               { return Action{kind: actionReplaceStr, strs: ss} }
func PushStrAction(s string) Action                      { return Action{kind: actionPushStr, strs: []string{s}} }
func PushI32Action(v int32) Action                       { return Action{kind: actionPushI32, i32: v} }
func PushU32Action(v uint32) Action                      { return Action{kind: actionPushU32, u32: v} }
func PushI16Action(v int16) Action                       { return Action{kind: actionPushI16, i16: v} }
func PushU16Action(v uint16) Action                      { return Action{kind: actionPushU16, u16: v} }
func PushF32Action(v float32) Action                     { return Action{kind: actionPushF32, f32: v} }
func PushF64Action(v float64) Action                     { return Action{kind: actionPushF64, f64: v} }

// AttributeOp is one requested mutation: apply Action at the element
// identified by Tag.
type AttributeOp struct {
	Tag    dicomtag.Tag
	Action Action
}

// Apply performs op against obj. On any failure, obj is left unmodified —
// Apply never leaves a partially-mutated object behind.
//
// Selectors in group 0x0002 (file meta) do not live in obj; use
// ApplyToFile, which routes those tags to a FileMetaTable instead.
func Apply(obj *InMemObject, op AttributeOp) error {
	if op.Tag.Group == dicomtag.MetadataGroup {
		return fmt.Errorf("dicom: Apply: group 0x0002 (file meta) attribute %v must go through ApplyToFile", op.Tag)
	}
	return applyToObject(obj, op)
}

// ApplyToFile performs op against either obj or meta, depending on op.Tag's
// group: group 0x0002 selectors mutate meta's named fields (falling back to
// its Extra catch-all for unrecognized file-meta tags), everything else
// mutates obj exactly as Apply does.
func ApplyToFile(obj *InMemObject, meta *FileMetaTable, op AttributeOp) error {
	if op.Tag.Group != dicomtag.MetadataGroup {
		return applyToObject(obj, op)
	}
	return applyToFileMeta(meta, op)
}

func applyToObject(obj *InMemObject, op AttributeOp) error {
	tagStr := op.Tag.String()

	switch op.Action.kind {
	case actionRemove:
		obj.Remove(op.Tag)
		return nil

	case actionEmpty:
		existing, ok := obj.Get(op.Tag)
		if !ok {
			return &UnsupportedAttribute{Tag: tagStr}
		}
		obj.Put(&Element{Tag: op.Tag, VR: existing.VR, Value: NewPrimitiveValue(dicomelement.NewEmpty())})
		return nil

	case actionSetVR:
		existing, ok := obj.Get(op.Tag)
		if !ok {
			return &UnsupportedAttribute{Tag: tagStr}
		}
		updated := *existing
		updated.VR = op.Action.vr
		obj.Put(&updated)
		return nil

	case actionSet, actionSetStr:
		vr, err := resolveVR(obj, op.Tag)
		if err != nil {
			return err
		}
		obj.Put(&Element{Tag: op.Tag, VR: vr, Value: NewPrimitiveValue(op.Action.value())})
		return nil

	case actionSetIfMissing, actionSetStrIfMissing:
		if _, ok := obj.Get(op.Tag); ok {
			return nil
		}
		vr, err := resolveVR(obj, op.Tag)
		if err != nil {
			return err
		}
		obj.Put(&Element{Tag: op.Tag, VR: vr, Value: NewPrimitiveValue(op.Action.value())})
		return nil

	case actionReplace, actionReplaceStr:
		existing, ok := obj.Get(op.Tag)
		if !ok {
			// Replace* is a no-op, not an error, when the element is absent.
			return nil
		}
		obj.Put(&Element{Tag: op.Tag, VR: existing.VR, Value: NewPrimitiveValue(op.Action.value())})
		return nil

	case actionPushStr, actionPushI32, actionPushU32, actionPushI16, actionPushU16, actionPushF32, actionPushF64:
		return applyPush(obj, op, tagStr)

	default:
		return &UnsupportedAction{Action: fmt.Sprintf("%d", op.Action.kind)}
	}
}

// value returns the PrimitiveValue an action should write, whether it
// arrived through the generic (prim) or string-typed (strs) constructor.
func (a Action) value() dicomelement.PrimitiveValue {
	switch a.kind {
	case actionSet, actionSetIfMissing, actionReplace:
		return a.prim
	default:
		return dicomelement.NewStrs(a.strs)
	}
}

// metaStringField returns a pointer to tag's named field on meta, or false
// if tag is not one of FileMetaTable's fixed attributes.
func metaStringField(meta *FileMetaTable, tag dicomtag.Tag) (*string, bool) {
	switch tag {
	case dicomtag.MediaStorageSOPClassUID:
		return &meta.MediaStorageSOPClassUID, true
	case dicomtag.MediaStorageSOPInstanceUID:
		return &meta.MediaStorageSOPInstanceUID, true
	case dicomtag.TransferSyntaxUID:
		return &meta.TransferSyntaxUID, true
	case dicomtag.ImplementationClassUID:
		return &meta.ImplementationClassUID, true
	case dicomtag.ImplementationVersionName:
		return &meta.ImplementationVersionName, true
	case dicomtag.SourceApplicationEntityTitle:
		return &meta.SourceApplicationEntityTitle, true
	default:
		return nil, false
	}
}

func applyToFileMeta(meta *FileMetaTable, op AttributeOp) error {
	tagStr := op.Tag.String()

	field, named := metaStringField(meta, op.Tag)
	if !named {
		if meta.Extra == nil {
			meta.Extra = NewInMemObject()
		}
		return applyToObject(meta.Extra, op)
	}

	switch op.Action.kind {
	case actionRemove:
		*field = ""
		return nil

	case actionEmpty:
		if *field == "" {
			return &UnsupportedAttribute{Tag: tagStr}
		}
		*field = ""
		return nil

	case actionSetVR:
		// File-meta fields carry a fixed VR (UI, SH, or AE); there is
		// nothing to retag.
		return &UnsupportedAction{Action: fmt.Sprintf("%d", op.Action.kind)}

	case actionSet, actionSetStr:
		s, err := op.Action.value().Str()
		if err != nil {
			return &IncompatibleTypes{Tag: tagStr, VR: "UI"}
		}
		*field = s
		return nil

	case actionSetIfMissing, actionSetStrIfMissing:
		if *field != "" {
			return nil
		}
		s, err := op.Action.value().Str()
		if err != nil {
			return &IncompatibleTypes{Tag: tagStr, VR: "UI"}
		}
		*field = s
		return nil

	case actionReplace, actionReplaceStr:
		if *field == "" {
			return nil
		}
		s, err := op.Action.value().Str()
		if err != nil {
			return &IncompatibleTypes{Tag: tagStr, VR: "UI"}
		}
		*field = s
		return nil

	default:
		return &UnsupportedAction{Action: fmt.Sprintf("%d", op.Action.kind)}
	}
}

func resolveVR(obj *InMemObject, tag dicomtag.Tag) (string, error) {
	if existing, ok := obj.Get(tag); ok {
		return existing.VR, nil
	}
	if entry, err := dicomtag.Find(tag); err == nil {
		return entry.VR, nil
	}
	return "", &UnsupportedAttribute{Tag: tag.String()}
}

func applyPush(obj *InMemObject, op AttributeOp, tagStr string) error {
	vr, err := resolveVR(obj, op.Tag)
	if err != nil {
		return err
	}
	existing, hasExisting := obj.Get(op.Tag)

	switch op.Action.kind {
	case actionPushStr:
		if !dicomtag.ParseVR(vr).IsTextual() {
			return &IncompatibleTypes{Tag: tagStr, VR: vr}
		}
		var ss []string
		if hasExisting {
			ss, _ = existing.Value.Primitive.Strs()
		}
		ss = append(append([]string{}, ss...), op.Action.strs...)
		obj.Put(&Element{Tag: op.Tag, VR: vr, Value: NewPrimitiveValue(dicomelement.NewStrs(ss))})
		return nil

	case actionPushI16:
		if vr != "SS" {
			return &IllegalExtend{Tag: tagStr, VR: vr}
		}
		vs := appendI16(obj, op.Tag, op.Action.i16)
		obj.Put(&Element{Tag: op.Tag, VR: vr, Value: NewPrimitiveValue(dicomelement.NewI16s(vs))})
		return nil

	case actionPushU16:
		if vr != "US" {
			return &IllegalExtend{Tag: tagStr, VR: vr}
		}
		vs := appendU16(obj, op.Tag, op.Action.u16)
		obj.Put(&Element{Tag: op.Tag, VR: vr, Value: NewPrimitiveValue(dicomelement.NewU16s(vs))})
		return nil

	case actionPushI32:
		if vr != "SL" {
			return &IllegalExtend{Tag: tagStr, VR: vr}
		}
		vs := appendI32(obj, op.Tag, op.Action.i32)
		obj.Put(&Element{Tag: op.Tag, VR: vr, Value: NewPrimitiveValue(dicomelement.NewI32s(vs))})
		return nil

	case actionPushU32:
		if vr != "UL" {
			return &IllegalExtend{Tag: tagStr, VR: vr}
		}
		vs := appendU32(obj, op.Tag, op.Action.u32)
		obj.Put(&Element{Tag: op.Tag, VR: vr, Value: NewPrimitiveValue(dicomelement.NewU32s(vs))})
		return nil

	case actionPushF32:
		if vr != "FL" {
			return &IllegalExtend{Tag: tagStr, VR: vr}
		}
		var vs []float32
		if hasExisting {
			floats, _ := existing.Value.Primitive.ToFloat64s()
			for _, f := range floats {
				vs = append(vs, float32(f))
			}
		}
		vs = append(vs, op.Action.f32)
		obj.Put(&Element{Tag: op.Tag, VR: vr, Value: NewPrimitiveValue(dicomelement.NewF32s(vs))})
		return nil

	case actionPushF64:
		if vr != "FD" {
			return &IllegalExtend{Tag: tagStr, VR: vr}
		}
		var vs []float64
		if hasExisting {
			vs, _ = existing.Value.Primitive.ToFloat64s()
		}
		vs = append(vs, op.Action.f64)
		obj.Put(&Element{Tag: op.Tag, VR: vr, Value: NewPrimitiveValue(dicomelement.NewF64s(vs))})
		return nil
	}
	return &UnsupportedAction{Action: fmt.Sprintf("%d", op.Action.kind)}
}

func appendI16(obj *InMemObject, tag dicomtag.Tag, v int16) []int16 {
	existing, ok := obj.Get(tag)
	if !ok {
		return []int16{v}
	}
	ints, _ := existing.Value.Primitive.ToInts()
	out := make([]int16, 0, len(ints)+1)
	for _, x := range ints {
		out = append(out, int16(x))
	}
	return append(out, v)
}

func appendU16(obj *InMemObject, tag dicomtag.Tag, v uint16) []uint16 {
	existing, ok := obj.Get(tag)
	if !ok {
		return []uint16{v}
	}
	ints, _ := existing.Value.Primitive.ToInts()
	out := make([]uint16, 0, len(ints)+1)
	for _, x := range ints {
		out = append(out, uint16(x))
	}
	return append(out, v)
}

func appendI32(obj *InMemObject, tag dicomtag.Tag, v int32) []int32 {
	existing, ok := obj.Get(tag)
	if !ok {
		return []int32{v}
	}
	ints, _ := existing.Value.Primitive.ToInts()
	out := make([]int32, 0, len(ints)+1)
	for _, x := range ints {
		out = append(out, int32(x))
	}
	return append(out, v)
}

func appendU32(obj *InMemObject, tag dicomtag.Tag, v uint32) []uint32 {
	existing, ok := obj.Get(tag)
	if !ok {
		return []uint32{v}
	}
	ints, _ := existing.Value.Primitive.ToInts()
	out := make([]uint32, 0, len(ints)+1)
	for _, x := range ints {
		out = append(out, uint32(x))
	}
	return append(out, v)
}
