package dicom

import (
	"fmt"

	"github.com/odincare/dicomkit/dicomtag"

	"github.com/gobwas/glob"
)

// Query reports whether obj matches the Q/R condition f. A match returns
// <true, the matched element, nil>. A universal match — f carries an empty
// query value and obj has no element at f.Tag — returns <true, nil, nil>.
// A malformed filter returns <false, nil, err>.
func Query(obj *InMemObject, f *Element) (match bool, matchedElement *Element, err error) {
	if f.Value.Kind == ValuePrimitive && f.Value.Primitive.Cardinality() > 1 {
		// A filter value may not carry more than one value, per P3.4 C2.2.2.1.
		return false, nil, fmt.Errorf("multiple values found in filter '%v'", f.Tag)
	}

	if f.Tag == dicomtag.QueryRetrieveLevel || f.Tag == dicomtag.SpecificCharacterSet {
		return true, nil, nil
	}

	elem, _ := obj.Get(f.Tag)

	match, err = queryElement(elem, f)
	if match {
		return true, elem, nil
	}
	return false, nil, err
}

func queryElement(elem *Element, f *Element) (match bool, err error) {
	if isEmptyQuery(f) {
		// An empty value, or a bare "*", is the universal-match wildcard.
		return true, nil
	}

	if f.VR == "SQ" {
		return querySequence(elem, f)
	}

	if elem == nil {
		// TODO: this probably conflates "no such element" with "element
		// present but empty"; they should match differently.
		return false, nil
	}

	if f.VR != elem.VR {
		// Shouldn't happen for well-formed objects, but report it rather
		// than panic on the mismatched accessor calls below.
		return false, fmt.Errorf("VR mismatch: filter tag %v wants %s, value has %s", f.Tag, f.VR, elem.VR)
	}

	if f.VR == "UI" {
		// UIDs match if the element carries at least one of the UIDs the
		// filter lists.
		wanted, _ := f.Value.Primitive.Strs()
		got, _ := elem.Value.Primitive.Strs()
		for _, e := range wanted {
			for _, v := range got {
				if v == e {
					return true, nil
				}
			}
		}
		return false, nil
	}

	// TODO: date-range matching (P3.4 C2.2.2.5) isn't implemented; DA/DT/TM
	// filters fall through to the default glob-style string match below.
	switch dicomtag.GetVRKind(f.Tag, f.VR) {
	case dicomtag.VRUInt32List, dicomtag.VRInt32List, dicomtag.VRUInt16List, dicomtag.VRInt16List,
		dicomtag.VRUInt64List, dicomtag.VRInt64List:
		want, err := f.Value.Primitive.ToInts()
		if err != nil {
			return false, err
		}
		got, err := elem.Value.Primitive.ToInts()
		if err != nil {
			return false, err
		}
		for _, w := range want {
			for _, g := range got {
				if w == g {
					return true, nil
				}
			}
		}
		return false, nil

	case dicomtag.VRFloat32List, dicomtag.VRFloat64List:
		want, err := f.Value.Primitive.ToFloat64s()
		if err != nil {
			return false, err
		}
		got, err := elem.Value.Primitive.ToFloat64s()
		if err != nil {
			return false, err
		}
		for _, w := range want {
			for _, g := range got {
				if w == g {
					return true, nil
				}
			}
		}
		return false, nil

	default:
		wantStrs, err := f.Value.Primitive.Strs()
		if err != nil {
			return false, err
		}
		gotStrs, err := elem.Value.Primitive.Strs()
		if err != nil {
			return false, err
		}
		if len(wantStrs) == 0 {
			return false, nil
		}
		pattern := wantStrs[0]
		for _, v := range gotStrs {
			ok, err := matchString(pattern, v)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}
}

func querySequence(elem *Element, f *Element) (match bool, err error) {
	// TODO: implement sequence matching, e.g. P3.4 C2.2.2.6; every SQ
	// filter currently matches universally.
	return true, nil
}

func matchString(pattern string, value string) (bool, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return false, err
	}
	return g.Match(value), nil
}

func isEmptyQuery(f *Element) bool {
	// A pattern made up entirely of "*" is, like an empty query value, the
	// universal-match wildcard per P3.4 C2.2.2.4.
	isUniversalGlob := func(s string) bool {
		for i := 0; i < len(s); i++ {
			if s[i] != '*' {
				return false
			}
		}
		return true
	}

	if f.Value.Kind != ValuePrimitive || f.Value.Primitive.IsEmpty() {
		return true
	}

	switch dicomtag.GetVRKind(f.Tag, f.VR) {
	case dicomtag.VRBytes:
		b, err := f.Value.Primitive.Bytes()
		if err != nil || len(b) == 0 {
			return true
		}

	case dicomtag.VRString, dicomtag.VRDate:
		s, err := f.Value.Primitive.Str()
		if err != nil || len(s) == 0 || isUniversalGlob(s) {
			return true
		}

	case dicomtag.VRStringList:
		ss, err := f.Value.Primitive.Strs()
		if err != nil || len(ss) == 0 {
			return true
		}
		if isUniversalGlob(ss[0]) {
			return true
		}
	}

	return false
}
