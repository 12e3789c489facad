package dicom

import (
	"fmt"
	"os"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// Dataset wraps a parsed DICOM dataset for easier access
type Dataset struct {
	Data     dicom.Dataset
	FilePath string
}

// Read parses a DICOM file. With metadataOnly set, pixel data is skipped,
// which is much faster when only tag values are needed.
func Read(path string, metadataOnly bool) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("could not stat file: %w", err)
	}

	var opts []dicom.ParseOption
	if metadataOnly {
		opts = append(opts, dicom.SkipPixelData())
	}

	ds, err := dicom.Parse(file, info.Size(), nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("could not parse DICOM: %w", err)
	}

	return &Dataset{
		Data:     ds,
		FilePath: path,
	}, nil
}

// GetString returns a string value for a tag, or empty string if not found.
func (d *Dataset) GetString(t tag.Tag) string {
	elem, err := d.Data.FindElementByTag(t)
	if err != nil {
		return ""
	}
	return ElementString(elem)
}

// GetByName looks up a tag by its dictionary keyword (e.g. "PatientID") and
// returns its string value. The second return reports whether the element is
// present on this dataset at all.
func (d *Dataset) GetByName(name string) (string, bool) {
	info, err := tag.FindByName(name)
	if err != nil {
		return "", false
	}

	elem, err := d.Data.FindElementByTag(info.Tag)
	if err != nil {
		return "", false
	}

	return ElementString(elem), true
}

// ElementString renders an element's value as a single string. Multi-valued
// elements yield their first value.
func ElementString(elem *dicom.Element) string {
	if elem == nil || elem.Value == nil {
		return ""
	}

	val := elem.Value.GetValue()
	if val == nil {
		return ""
	}

	switch v := val.(type) {
	case []string:
		if len(v) > 0 {
			return v[0]
		}
		return ""
	case string:
		return v
	}

	return fmt.Sprintf("%v", val)
}
