package dicom

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// SetString sets a string value for a tag in the dataset. Elements that are
// not present are left alone; use AddString to create missing elements.
func (d *Dataset) SetString(t tag.Tag, value string) error {
	elem, err := d.Data.FindElementByTag(t)
	if err != nil {
		// Element doesn't exist, that's okay
		return nil
	}

	newValue, err := dicom.NewValue([]string{value})
	if err != nil {
		return fmt.Errorf("could not create value: %w", err)
	}

	newElem := &dicom.Element{
		Tag:                    t,
		ValueRepresentation:    elem.ValueRepresentation,
		RawValueRepresentation: elem.RawValueRepresentation,
		ValueLength:            uint32(len(value)),
		Value:                  newValue,
	}

	for i, e := range d.Data.Elements {
		if e.Tag == t {
			d.Data.Elements[i] = newElem
			return nil
		}
	}

	return nil
}

// ClearTag clears a tag value (sets to empty string).
func (d *Dataset) ClearTag(t tag.Tag) {
	d.SetString(t, "")
}

// AddString appends a new string element for a tag that is absent from the
// dataset. Datasets that already carry the tag are left unchanged. The VR is
// taken from the tag dictionary.
func (d *Dataset) AddString(t tag.Tag, value string) error {
	if _, err := d.Data.FindElementByTag(t); err == nil {
		return nil
	}

	info, err := tag.Find(t)
	if err != nil {
		return fmt.Errorf("unknown tag %v: %w", t, err)
	}

	newValue, err := dicom.NewValue([]string{value})
	if err != nil {
		return fmt.Errorf("could not create value: %w", err)
	}

	d.Data.Elements = append(d.Data.Elements, &dicom.Element{
		Tag:                    t,
		ValueRepresentation:    tag.GetVRKind(t, info.VR),
		RawValueRepresentation: info.VR,
		ValueLength:            uint32(len(value)),
		Value:                  newValue,
	})

	return nil
}

// Save writes the DICOM dataset to a file, creating parent directories as
// needed.
func (d *Dataset) Save(outputPath string) error {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("could not create output directory: %w", err)
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("could not create output file: %w", err)
	}
	defer file.Close()

	// Write with relaxed verification (many real-world DICOM files
	// don't strictly follow VR specifications)
	if err := dicom.Write(file, d.Data,
		dicom.SkipVRVerification(),
		dicom.SkipValueTypeVerification(),
		dicom.DefaultMissingTransferSyntax(),
	); err != nil {
		return fmt.Errorf("could not write DICOM: %w", err)
	}

	return nil
}
