// Package cases scans a directory tree of DICOM files and groups them into
// cases: one row per patient, or per acquisition series in series mode.
package cases

import (
	"errors"
	"fmt"
	"path/filepath"

	dcm "dicom-redactor/internal/dicom"
	"dicom-redactor/internal/identity"
)

// ErrNoFiles is returned when no file under the root matches the pattern.
var ErrNoFiles = errors.New("no files matched the pattern")

// Case is one logical redaction unit: every physical file that shares an
// identity key.
type Case struct {
	Key       string
	SourceDir string // directory of the first file seen for this key
	DestDir   string

	// Dirs lists every directory belonging to this case. In non-series mode
	// the writer enumerates these; in series mode Files is authoritative.
	Dirs  []string
	Files []string

	// Fields holds the extracted identity/reference/creation values keyed by
	// tag keyword. Missing fields are present with an empty value.
	Fields map[string]string

	// Proposed holds operator-supplied override values keyed by field name.
	// An empty value means "do not touch".
	Proposed map[string]string

	MissingFields []string
}

// Table is the aggregation result: one Case per unique identity key.
type Table struct {
	Cases []*Case

	IdentityFields  []string
	ReferenceFields []string
	CreationFields  []string
	UpdatableFields []string
	MatchField      string

	// Diagnostics records per-file extraction problems that did not abort
	// the scan (parse failures, missing fields).
	Diagnostics []string
}

// Find returns the case with the given identity key, or nil.
func (t *Table) Find(key string) *Case {
	for _, c := range t.Cases {
		if c.Key == key {
			return c
		}
	}
	return nil
}

// MissingMatchValues lists the keys of cases whose match-field value is
// empty. A non-empty result means the operator must pick an alternate match
// field before reconciliation.
func (t *Table) MissingMatchValues() []string {
	var keys []string
	for _, c := range t.Cases {
		if c.Fields[t.MatchField] == "" {
			keys = append(keys, c.Key)
		}
	}
	return keys
}

// Config drives one aggregation run.
type Config struct {
	Root    string
	Pattern string

	IdentityFields  []string
	ReferenceFields []string
	CreationFields  []string
	UpdatableFields []string
	MatchField      string

	// SeriesMode inspects every file and keys cases by the full identity key
	// (patient + series). Off, only the first parseable file per directory is
	// inspected and the rest of the directory is assumed to share its values.
	SeriesMode bool

	// ProposedDefaults pre-seeds Proposed values on every case.
	ProposedDefaults map[string]string
}

// Aggregator scans directories into a case table. Parse and Enumerate are
// injectable so the scan can run against synthetic records.
type Aggregator struct {
	Parse     func(path string, metadataOnly bool) (*dcm.Dataset, error)
	Enumerate func(root, pattern string) ([]string, error)
}

// New returns an Aggregator bound to the real DICOM parser and filesystem.
func New() *Aggregator {
	return &Aggregator{
		Parse:     dcm.Read,
		Enumerate: dcm.Enumerate,
	}
}

// DestDir computes the output directory for a source directory: the root's
// name gains an "-Anonymized" suffix inside the root's parent, and the
// directory's path relative to the root is preserved.
func DestDir(root, dir string) string {
	base := filepath.Join(filepath.Dir(root), filepath.Base(root)+"-Anonymized")
	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == "." {
		return base
	}
	return filepath.Join(base, rel)
}

// Aggregate scans the root and produces one case per unique identity key.
// Files that fail to parse or lack requested fields are skipped with a
// diagnostic; they never abort the scan. Zero matched files yields ErrNoFiles.
func (a *Aggregator) Aggregate(cfg Config) (*Table, error) {
	files, err := a.Enumerate(cfg.Root, cfg.Pattern)
	if err != nil {
		return nil, fmt.Errorf("could not enumerate %s: %w", cfg.Root, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s under %s", ErrNoFiles, cfg.Pattern, cfg.Root)
	}

	table := &Table{
		IdentityFields:  cfg.IdentityFields,
		ReferenceFields: cfg.ReferenceFields,
		CreationFields:  cfg.CreationFields,
		UpdatableFields: cfg.UpdatableFields,
		MatchField:      cfg.MatchField,
	}

	if cfg.SeriesMode {
		a.aggregateSeries(cfg, files, table)
	} else {
		a.aggregateByDir(cfg, files, table)
	}

	return table, nil
}

// aggregateByDir inspects only the first file per directory that parses.
// This early exit is a deliberate policy: the remaining files in a directory
// are assumed to share its case-level field values.
func (a *Aggregator) aggregateByDir(cfg Config, files []string, table *Table) {
	byDir := groupByDir(files)
	byKey := make(map[string]*Case)

	for _, dir := range byDir.order {
		var c *Case
		for _, path := range byDir.files[dir] {
			ds, err := a.Parse(path, true)
			if err != nil {
				table.Diagnostics = append(table.Diagnostics,
					fmt.Sprintf("skipped %s: %v", path, err))
				continue
			}
			c = a.buildCase(cfg, ds, table)
			break
		}
		if c == nil {
			table.Diagnostics = append(table.Diagnostics,
				fmt.Sprintf("no parseable file in %s", dir))
			continue
		}

		if existing, ok := byKey[c.Key]; ok {
			// Same identity in more than one directory: one row, wider scope.
			existing.Dirs = append(existing.Dirs, dir)
			continue
		}
		c.SourceDir = dir
		c.DestDir = DestDir(cfg.Root, dir)
		c.Dirs = []string{dir}
		byKey[c.Key] = c
		table.Cases = append(table.Cases, c)
	}
}

// aggregateSeries inspects every file and deduplicates by the full identity
// key, so one row survives per unique series across the whole tree.
func (a *Aggregator) aggregateSeries(cfg Config, files []string, table *Table) {
	byKey := make(map[string]*Case)

	for _, path := range files {
		ds, err := a.Parse(path, true)
		if err != nil {
			table.Diagnostics = append(table.Diagnostics,
				fmt.Sprintf("skipped %s: %v", path, err))
			continue
		}

		c := a.buildCase(cfg, ds, table)
		if existing, ok := byKey[c.Key]; ok {
			existing.Files = append(existing.Files, path)
			continue
		}
		dir := filepath.Dir(path)
		c.SourceDir = dir
		c.DestDir = DestDir(cfg.Root, dir)
		c.Dirs = []string{dir}
		c.Files = []string{path}
		byKey[c.Key] = c
		table.Cases = append(table.Cases, c)
	}
}

// buildCase extracts the configured fields from one record.
func (a *Aggregator) buildCase(cfg Config, ds *dcm.Dataset, table *Table) *Case {
	c := &Case{
		Fields:   make(map[string]string),
		Proposed: make(map[string]string),
	}

	key, missing := identity.FromRecord(ds, cfg.IdentityFields)
	c.Key = key
	c.MissingFields = missing

	for _, name := range fieldUnion(cfg.IdentityFields, cfg.ReferenceFields, cfg.CreationFields) {
		value, ok := ds.GetByName(name)
		if !ok {
			c.MissingFields = appendUnique(c.MissingFields, name)
		}
		c.Fields[name] = value
	}

	for _, name := range cfg.UpdatableFields {
		c.Proposed[name] = cfg.ProposedDefaults[name]
	}

	for _, name := range c.MissingFields {
		table.Diagnostics = append(table.Diagnostics,
			fmt.Sprintf("%s: missing field %s", ds.FilePath, name))
	}

	return c
}

type dirGroups struct {
	order []string
	files map[string][]string
}

func groupByDir(files []string) dirGroups {
	g := dirGroups{files: make(map[string][]string)}
	for _, path := range files {
		dir := filepath.Dir(path)
		if _, ok := g.files[dir]; !ok {
			g.order = append(g.order, dir)
		}
		g.files[dir] = append(g.files[dir], path)
	}
	return g
}

func fieldUnion(lists ...[]string) []string {
	var union []string
	seen := make(map[string]bool)
	for _, list := range lists {
		for _, name := range list {
			if !seen[name] {
				seen[name] = true
				union = append(union, name)
			}
		}
	}
	return union
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}
