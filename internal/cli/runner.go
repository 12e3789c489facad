// Package cli glues the run configuration to the aggregate / reconcile /
// anonymize pipeline.
package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"dicom-redactor/internal/anonymizer"
	"dicom-redactor/internal/cases"
	"dicom-redactor/internal/config"
	"dicom-redactor/internal/progress"
	"dicom-redactor/internal/reconcile"
	"dicom-redactor/internal/tabular"
)

// Options holds the CLI configuration for one invocation.
type Options struct {
	ConfigFile string

	// Flag overrides applied on top of the config file (or the defaults).
	Root       string
	Pattern    string
	SeriesMode bool
	MatchField string

	// TemplateFile is where aggregate writes the editable case table.
	TemplateFile string

	// OverridesFile is the operator-edited table to merge back.
	OverridesFile string

	// MergedFile is where reconcile writes the merged table.
	MergedFile string

	// Choices maps creation fields to the operator-selected value.
	Choices map[string]string

	Output func(string)
}

func (o Options) output() func(string) {
	if o.Output != nil {
		return o.Output
	}
	return func(s string) { fmt.Print(s) }
}

// loadRun builds the run configuration from the config file or the mode
// defaults, then applies flag overrides.
func loadRun(opts Options) (*config.Run, error) {
	var run *config.Run
	if opts.ConfigFile != "" {
		loaded, err := config.Load(opts.ConfigFile)
		if err != nil {
			return nil, err
		}
		run = loaded
	} else if opts.SeriesMode {
		run = config.DefaultSeries()
	} else {
		run = config.Default()
	}

	if opts.Root != "" {
		run.Root = opts.Root
	}
	if opts.Pattern != "" {
		run.Pattern = opts.Pattern
	}
	if opts.MatchField != "" {
		run.MatchField = opts.MatchField
	}

	if err := run.Validate(); err != nil {
		return nil, err
	}
	return run, nil
}

// aggregate runs the scan and reports diagnostics.
func aggregate(run *config.Run, output func(string)) (*cases.Table, error) {
	table, err := cases.New().Aggregate(run.CasesConfig())
	if err != nil {
		return nil, err
	}

	kind := "case"
	if run.SeriesMode {
		kind = "series"
	}
	output(fmt.Sprintf("Found %d unique %s(s) under %s\n", len(table.Cases), kind, run.Root))

	for _, diag := range table.Diagnostics {
		output(fmt.Sprintf("  Warning: %s\n", diag))
	}
	if missing := table.MissingMatchValues(); len(missing) > 0 {
		output(fmt.Sprintf("  Warning: %d case(s) have no %s value; select an alternate match field (--match-field): %s\n",
			len(missing), run.MatchField, strings.Join(missing, ", ")))
	}

	return table, nil
}

// RunAggregate scans the root and writes the editable case template.
func RunAggregate(opts Options) error {
	output := opts.output()

	run, err := loadRun(opts)
	if err != nil {
		return err
	}

	table, err := aggregate(run, output)
	if err != nil {
		return err
	}

	path := opts.TemplateFile
	if path == "" {
		path = "cases.csv"
	}
	if err := table.Template().WriteFile(path); err != nil {
		return err
	}
	output(fmt.Sprintf("Template written to %s\n", path))
	return nil
}

// RunReconcile merges the operator-edited table onto a fresh aggregation and
// writes the merged result. Validation failures are reported without
// touching the merged output.
func RunReconcile(opts Options) error {
	output := opts.output()

	run, err := loadRun(opts)
	if err != nil {
		return err
	}
	if opts.OverridesFile == "" {
		return errors.New("an overrides file is required (--overrides)")
	}

	table, err := aggregate(run, output)
	if err != nil {
		return err
	}

	upload, err := tabular.ReadFile(opts.OverridesFile)
	if err != nil {
		return err
	}

	if err := reconcile.Merge(table, upload); err != nil {
		return fmt.Errorf("reconciliation failed: %w", err)
	}

	path := opts.MergedFile
	if path == "" {
		path = "cases_merged.csv"
	}
	if err := table.Template().WriteFile(path); err != nil {
		return err
	}
	output(fmt.Sprintf("Merged table written to %s\n", path))
	return nil
}

// RunAnonymize runs the full pipeline: aggregate, merge the operator's
// overrides, then redact and write every file of every case.
func RunAnonymize(opts Options) (*anonymizer.Stats, error) {
	output := opts.output()

	run, err := loadRun(opts)
	if err != nil {
		return nil, err
	}
	if opts.OverridesFile == "" {
		return nil, errors.New("an overrides file is required (--overrides)")
	}

	policy, err := run.CompilePolicy()
	if err != nil {
		return nil, err
	}
	creations, err := run.ResolveCreations(opts.Choices)
	if err != nil {
		return nil, err
	}

	table, err := aggregate(run, output)
	if err != nil {
		return nil, err
	}

	upload, err := tabular.ReadFile(opts.OverridesFile)
	if err != nil {
		return nil, err
	}
	if err := reconcile.Merge(table, upload); err != nil {
		return nil, fmt.Errorf("reconciliation failed: %w", err)
	}

	destRoot := cases.DestDir(run.Root, run.Root)
	errorLog, err := progress.NewErrorLogger(filepath.Join(destRoot, "errors.log"))
	if err != nil {
		return nil, fmt.Errorf("could not create error logger: %w", err)
	}
	defer errorLog.Close()

	pb := newProgressBar(50)
	runner := anonymizer.New()
	runner.Output = output
	runner.ErrorLog = errorLog
	runner.Sink = func(fraction float64, message string) {
		pb.update(fraction, message)
	}

	job := anonymizer.Job{
		Root:            run.Root,
		Pattern:         run.Pattern,
		Policy:          policy,
		UpdatableFields: run.UpdatableFields,
		Creations:       creations,
	}

	stats, err := runner.Run(job, table)
	if err != nil {
		return nil, err
	}

	output(fmt.Sprintf("%s\n", strings.Repeat("=", 50)))
	output(fmt.Sprintf("Output:  %s\n", destRoot))
	output(fmt.Sprintf("Errors:  %s\n", errorLog.Summary()))
	return stats, nil
}

// progressBar renders batch progress on one terminal line.
type progressBar struct {
	width int
}

func newProgressBar(width int) *progressBar {
	return &progressBar{width: width}
}

func (pb *progressBar) update(fraction float64, message string) {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}

	filled := int(fraction * float64(pb.width))
	bar := strings.Repeat("#", filled) + strings.Repeat("-", pb.width-filled)
	fmt.Printf("\r[%s] %3.0f%%  %s", bar, fraction*100, message)
	if fraction >= 1 {
		fmt.Println()
	}
}
