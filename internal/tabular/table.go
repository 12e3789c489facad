// Package tabular reads and writes the delimited-text case and override
// tables. Editable override columns use the "Proposed_<Field>" naming
// convention.
package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// ProposedPrefix marks columns that carry operator-supplied override values.
const ProposedPrefix = "Proposed_"

// ProposedColumn returns the editable column name for a field.
func ProposedColumn(field string) string {
	return ProposedPrefix + field
}

// Table is a rectangular table with a header row.
type Table struct {
	Header []string
	Rows   [][]string
}

// Column returns the index of the named column, or -1 if absent.
func (t *Table) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	return t.Column(name) >= 0
}

// Cell returns the value at (row, column name). The second return is false
// when the column does not exist.
func (t *Table) Cell(row int, name string) (string, bool) {
	col := t.Column(name)
	if col < 0 || row < 0 || row >= len(t.Rows) || col >= len(t.Rows[row]) {
		return "", false
	}
	return t.Rows[row][col], true
}

// AppendRow adds a row, which must have one value per header column.
func (t *Table) AppendRow(values []string) error {
	if len(values) != len(t.Header) {
		return fmt.Errorf("row has %d values, table has %d columns", len(values), len(t.Header))
	}
	t.Rows = append(t.Rows, values)
	return nil
}

// Read parses CSV data into a Table. The first record is the header.
func Read(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("could not read CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("CSV has no header row")
	}

	t := &Table{Header: records[0]}
	for _, rec := range records[1:] {
		// Pad short rows so cell access stays positional.
		for len(rec) < len(t.Header) {
			rec = append(rec, "")
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// ReadFile parses a CSV file into a Table.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open table: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Write emits the table as CSV.
func (t *Table) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes the table to a CSV file.
func (t *Table) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create table file: %w", err)
	}
	defer f.Close()

	if err := t.Write(f); err != nil {
		return fmt.Errorf("could not write table: %w", err)
	}
	return nil
}
