// Package testutil builds synthetic DICOM datasets for tests.
package testutil

import (
	"testing"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	dcm "dicom-redactor/internal/dicom"
)

// StringElement builds an element holding a single string value. The VR is
// taken from the tag dictionary.
func StringElement(t *testing.T, tg tag.Tag, value string) *dicom.Element {
	t.Helper()

	info, err := tag.Find(tg)
	if err != nil {
		t.Fatalf("unknown tag %v: %v", tg, err)
	}
	return elementWithVR(t, tg, info.VR, value)
}

// IntsElement builds an element holding integer values under a numeric VR.
func IntsElement(t *testing.T, tg tag.Tag, vr string, values ...int) *dicom.Element {
	t.Helper()

	v, err := dicom.NewValue(values)
	if err != nil {
		t.Fatalf("could not create ints value: %v", err)
	}
	return &dicom.Element{
		Tag:                    tg,
		ValueRepresentation:    tag.GetVRKind(tg, vr),
		RawValueRepresentation: vr,
		Value:                  v,
	}
}

// SequenceElement builds a sequence element whose items hold the given
// element lists.
func SequenceElement(t *testing.T, tg tag.Tag, items ...[]*dicom.Element) *dicom.Element {
	t.Helper()

	v, err := dicom.NewValue([][]*dicom.Element(items))
	if err != nil {
		t.Fatalf("could not create sequence value: %v", err)
	}
	return &dicom.Element{
		Tag:                    tg,
		ValueRepresentation:    tag.GetVRKind(tg, "SQ"),
		RawValueRepresentation: "SQ",
		Value:                  v,
	}
}

// Dataset wraps elements into a Dataset as if parsed from path.
func Dataset(path string, elements ...*dicom.Element) *dcm.Dataset {
	return &dcm.Dataset{
		Data:     dicom.Dataset{Elements: elements},
		FilePath: path,
	}
}

// RecordWithFields builds a dataset whose elements are resolved from tag
// keywords, in the order given as keyword, value pairs.
func RecordWithFields(t *testing.T, path string, pairs ...string) *dcm.Dataset {
	t.Helper()

	if len(pairs)%2 != 0 {
		t.Fatalf("RecordWithFields needs keyword, value pairs")
	}
	var elements []*dicom.Element
	for i := 0; i < len(pairs); i += 2 {
		info, err := tag.FindByName(pairs[i])
		if err != nil {
			t.Fatalf("unknown keyword %q: %v", pairs[i], err)
		}
		elements = append(elements, StringElement(t, info.Tag, pairs[i+1]))
	}
	return Dataset(path, elements...)
}

// ElementValue returns an element's first string value.
func ElementValue(elem *dicom.Element) string {
	return dcm.ElementString(elem)
}

func elementWithVR(t *testing.T, tg tag.Tag, vr, value string) *dicom.Element {
	t.Helper()

	v, err := dicom.NewValue([]string{value})
	if err != nil {
		t.Fatalf("could not create string value: %v", err)
	}
	return &dicom.Element{
		Tag:                    tg,
		ValueRepresentation:    tag.GetVRKind(tg, vr),
		RawValueRepresentation: vr,
		ValueLength:            uint32(len(value)),
		Value:                  v,
	}
}

// PrivateElement builds an odd-group element for private-tag tests.
func PrivateElement(t *testing.T, group, element uint16, value string) *dicom.Element {
	t.Helper()
	return elementWithVR(t, tag.Tag{Group: group, Element: element}, "LO", value)
}
