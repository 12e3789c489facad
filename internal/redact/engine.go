package redact

import (
	"errors"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	dcm "dicom-redactor/internal/dicom"
)

var errNotString = errors.New("value does not hold strings")

// Apply runs the policy over every element of the dataset, at every nesting
// depth. Private (odd-group) elements are dropped before any rule is
// evaluated. caseOverrides carries the per-case tag update map and may be
// nil. The dataset is mutated in place; the caller owns it exclusively.
func Apply(ds *dcm.Dataset, p *Policy, caseOverrides map[tag.Tag]string) {
	stripPrivate(ds)

	c := p.compile(caseOverrides)
	walk(ds.Data.Elements, func(el *dicom.Element) {
		applyElement(el, c)
	})
}

// applyElement evaluates the rule layers for one element. Each outcome
// depends only on the element's own tag and VR, so walk order across
// siblings is irrelevant.
func applyElement(el *dicom.Element, c *compiled) {
	if c.spare[el.Tag] {
		return
	}

	if c.vr[strings.TrimSpace(el.RawValueRepresentation)] {
		if err := setString(el, c.sentinel); err != nil {
			// Value does not accept strings (e.g. a numeric VR); empty it
			// rather than failing the file.
			emptyValue(el)
		}
	}

	if c.clear[el.Tag] {
		if err := setString(el, ""); err != nil {
			emptyValue(el)
		}
	}

	if v, ok := c.overrides[el.Tag]; ok {
		if err := setString(el, v); err != nil {
			emptyValue(el)
		}
	}
}

// walk visits every element, recursing into sequence items.
func walk(elems []*dicom.Element, visit func(*dicom.Element)) {
	for _, el := range elems {
		visit(el)
		for _, item := range sequenceItems(el) {
			walk(item, visit)
		}
	}
}

// stripPrivate removes vendor-private elements from the whole tree. Top-level
// elements are removed outright. Sequence item element lists are not exported
// by the parser, so nested private elements are emptied in place instead.
func stripPrivate(ds *dcm.Dataset) {
	kept := ds.Data.Elements[:0]
	for _, el := range ds.Data.Elements {
		if isPrivate(el) {
			continue
		}
		kept = append(kept, el)
	}
	ds.Data.Elements = kept

	walk(ds.Data.Elements, func(el *dicom.Element) {
		if isPrivate(el) {
			emptyValue(el)
		}
	})
}

func isPrivate(el *dicom.Element) bool {
	return el.Tag.Group%2 == 1
}

// sequenceItems returns the per-item element lists of a sequence element, or
// nil for non-sequence elements.
func sequenceItems(el *dicom.Element) [][]*dicom.Element {
	if el.Value == nil || el.Value.ValueType() != dicom.Sequences {
		return nil
	}
	items, ok := el.Value.GetValue().([]*dicom.SequenceItemValue)
	if !ok {
		return nil
	}
	var out [][]*dicom.Element
	for _, item := range items {
		if elems, ok := item.GetValue().([]*dicom.Element); ok {
			out = append(out, elems)
		}
	}
	return out
}

// setString replaces the element's value with a single string. Only elements
// whose current value holds strings accept it; everything else reports an
// error so the caller can fall back to emptying.
func setString(el *dicom.Element, s string) error {
	if el.Value == nil || el.Value.ValueType() != dicom.Strings {
		return errNotString
	}
	v, err := dicom.NewValue([]string{s})
	if err != nil {
		return err
	}
	el.Value = v
	el.ValueLength = uint32(len(s))
	return nil
}

// emptyValue clears the element's value while keeping its kind, so the
// element still writes cleanly under its VR.
func emptyValue(el *dicom.Element) {
	if el.Value == nil {
		return
	}

	var v dicom.Value
	var err error
	switch el.Value.ValueType() {
	case dicom.Strings:
		v, err = dicom.NewValue([]string{})
	case dicom.Ints:
		v, err = dicom.NewValue([]int{})
	case dicom.Floats:
		v, err = dicom.NewValue([]float64{})
	case dicom.Bytes:
		v, err = dicom.NewValue([]byte{})
	default:
		// Sequences and pixel data are never blanked wholesale; their
		// nested elements are handled by the walk.
		return
	}
	if err != nil {
		return
	}
	el.Value = v
	el.ValueLength = 0
}
