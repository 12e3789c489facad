// Package anonymizer applies the redaction policy to every physical file of
// every case and writes the results to the mirrored output tree.
package anonymizer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/suyashkumar/dicom/pkg/tag"

	"dicom-redactor/internal/cases"
	dcm "dicom-redactor/internal/dicom"
	"dicom-redactor/internal/progress"
	"dicom-redactor/internal/reconcile"
	"dicom-redactor/internal/redact"
)

// FileError records one per-file failure. Failures never abort the batch;
// they are tallied and reported.
type FileError struct {
	Path string
	Err  error
}

// Stats holds the batch outcome.
type Stats struct {
	Succeeded int
	Failed    int
	Failures  []FileError
}

// Job is the per-run input to the writer.
type Job struct {
	Root    string
	Pattern string

	Policy          *redact.Policy
	UpdatableFields []string

	// Creations maps tags to the operator-chosen value, added to any record
	// that lacks the tag.
	Creations map[tag.Tag]string
}

// Runner processes a case table. Parse, Write and Enumerate are injectable
// so the pipeline can run against synthetic records.
type Runner struct {
	Parse     func(path string, metadataOnly bool) (*dcm.Dataset, error)
	Write     func(ds *dcm.Dataset, path string) error
	Enumerate func(dir, pattern string) ([]string, error)

	Output   func(string)
	Sink     progress.Sink
	ErrorLog *progress.ErrorLogger
}

// New returns a Runner bound to the real parser and filesystem.
func New() *Runner {
	return &Runner{
		Parse:     dcm.Read,
		Write:     func(ds *dcm.Dataset, path string) error { return ds.Save(path) },
		Enumerate: dcm.EnumerateDir,
	}
}

// Run redacts and writes every file of every case. Each file is re-parsed in
// full (pixel data included) so the written record is complete. One file's
// failure is logged and skipped; the run only fails outright when the output
// root itself cannot be created.
func (r *Runner) Run(job Job, table *cases.Table) (*Stats, error) {
	output := r.Output
	if output == nil {
		output = func(s string) { fmt.Print(s) }
	}
	sink := r.Sink
	if sink == nil {
		sink = progress.Discard
	}

	destRoot := cases.DestDir(job.Root, job.Root)
	if err := os.MkdirAll(destRoot, 0755); err != nil {
		return nil, fmt.Errorf("could not create output root: %w", err)
	}

	// Resolve every case's file scope up front so progress fractions are
	// meaningful.
	scopes := make([][]string, len(table.Cases))
	total := 0
	for i, c := range table.Cases {
		files, err := r.caseFiles(c, job.Pattern)
		if err != nil {
			output(fmt.Sprintf("Warning: could not list files for case %s: %v\n", c.Key, err))
		}
		scopes[i] = files
		total += len(files)
	}

	stats := &Stats{}
	done := 0

	for i, c := range table.Cases {
		overrides, err := reconcile.Consolidate(c, job.UpdatableFields)
		if err != nil {
			return nil, fmt.Errorf("case %s: %w", c.Key, err)
		}

		output(fmt.Sprintf("Processing case %d/%d (%s): %d file(s)\n",
			i+1, len(table.Cases), c.Key, len(scopes[i])))

		for _, path := range scopes[i] {
			done++
			sink(float64(done)/float64(total), filepath.Base(path))

			if err := r.processFile(path, job, overrides); err != nil {
				stats.Failed++
				stats.Failures = append(stats.Failures, FileError{Path: path, Err: err})
				if r.ErrorLog != nil {
					r.ErrorLog.Log(path, err.Error())
				}
				output(fmt.Sprintf("  Error: %s: %v\n", filepath.Base(path), err))
				continue
			}
			stats.Succeeded++
		}
	}

	output(fmt.Sprintf("Complete! %d succeeded, %d failed\n", stats.Succeeded, stats.Failed))
	return stats, nil
}

// caseFiles resolves a case's physical scope. Series-mode cases carry their
// file list from aggregation; directory cases are enumerated per directory.
func (r *Runner) caseFiles(c *cases.Case, pattern string) ([]string, error) {
	if len(c.Files) > 0 {
		return c.Files, nil
	}

	var files []string
	for _, dir := range c.Dirs {
		found, err := r.Enumerate(dir, pattern)
		if err != nil {
			return files, err
		}
		files = append(files, found...)
	}
	return files, nil
}

// processFile runs the parse-redact-write sequence for one file. The
// sequence is atomic from the caller's perspective: a failure before the
// write leaves nothing behind.
func (r *Runner) processFile(path string, job Job, overrides map[tag.Tag]string) error {
	ds, err := r.Parse(path, false)
	if err != nil {
		// Malformed record: refuse to run rules, never write a partial file.
		return fmt.Errorf("read failure: %w", err)
	}

	redact.Apply(ds, job.Policy, overrides)

	for t, value := range job.Creations {
		if err := ds.AddString(t, value); err != nil {
			return fmt.Errorf("could not add tag %v: %w", t, err)
		}
	}

	dest := filepath.Join(cases.DestDir(job.Root, filepath.Dir(path)), filepath.Base(path))
	if err := r.Write(ds, dest); err != nil {
		return fmt.Errorf("write failure: %w", err)
	}
	return nil
}
