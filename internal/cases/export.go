package cases

import "dicom-redactor/internal/tabular"

// Column names for the bookkeeping columns of the exported template. The
// identity key is always a visible column, not an internal index.
const (
	KeyColumn       = "IdentityKey"
	SourceDirColumn = "SourceDir"
	DestDirColumn   = "DestDir"
)

// Template renders the case table as a tabular.Table in the layout operators
// edit and re-upload: bookkeeping columns, the extracted fields, then one
// Proposed_<Field> column per updatable field.
func (t *Table) Template() *tabular.Table {
	fields := fieldUnion(t.IdentityFields, t.ReferenceFields, t.CreationFields)

	header := []string{KeyColumn, SourceDirColumn, DestDirColumn}
	header = append(header, fields...)
	for _, name := range t.UpdatableFields {
		header = append(header, tabular.ProposedColumn(name))
	}

	out := &tabular.Table{Header: header}
	for _, c := range t.Cases {
		row := []string{c.Key, c.SourceDir, c.DestDir}
		for _, name := range fields {
			row = append(row, c.Fields[name])
		}
		for _, name := range t.UpdatableFields {
			row = append(row, c.Proposed[name])
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}
