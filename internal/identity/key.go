// Package identity builds the composite keys that group DICOM files into
// cases (one patient, or one acquisition series).
package identity

import "strings"

// Separator joins the key components. Field values containing the separator
// are not escaped; identity fields are expected to be plain identifiers.
const Separator = "_"

// Record is the minimal view of a parsed file the key builder needs.
type Record interface {
	GetByName(name string) (string, bool)
}

// Key joins the ordered field values into a composite case key. Equal value
// tuples always yield equal keys; a difference in any single component yields
// a different key.
func Key(values []string) string {
	return strings.Join(values, Separator)
}

// FromRecord builds the key for rec over the ordered field list. A field that
// is absent on the record contributes an empty component so the row still
// groups, and is reported in missing for the caller to surface as a warning.
func FromRecord(rec Record, fields []string) (key string, missing []string) {
	values := make([]string, len(fields))
	for i, name := range fields {
		value, ok := rec.GetByName(name)
		if !ok {
			missing = append(missing, name)
			continue
		}
		values[i] = value
	}
	return Key(values), missing
}
