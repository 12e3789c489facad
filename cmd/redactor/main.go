package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"dicom-redactor/internal/cli"
)

var opts cli.Options

func main() {
	rootCmd := &cobra.Command{
		Use:   "redactor",
		Short: "Policy-driven redaction of DICOM files, grouped into cases",
	}

	rootCmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "run configuration YAML file")
	rootCmd.PersistentFlags().StringVarP(&opts.Root, "root", "i", "", "root directory containing DICOM files")
	rootCmd.PersistentFlags().StringVarP(&opts.Pattern, "pattern", "p", "", "filename glob pattern (default *.dcm)")
	rootCmd.PersistentFlags().BoolVar(&opts.SeriesMode, "series", false, "group cases by acquisition series instead of patient")
	rootCmd.PersistentFlags().StringVar(&opts.MatchField, "match-field", "", "field used to match override rows to cases")

	rootCmd.AddCommand(aggregateCmd())
	rootCmd.AddCommand(reconcileCmd())
	rootCmd.AddCommand(anonymizeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func aggregateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Scan the root directory and write the editable case template",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.RunAggregate(opts)
		},
	}
	cmd.Flags().StringVarP(&opts.TemplateFile, "template", "t", "cases.csv", "output path for the case template CSV")
	return cmd
}

func reconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Validate an edited override table and write the merged case table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.RunReconcile(opts)
		},
	}
	cmd.Flags().StringVarP(&opts.OverridesFile, "overrides", "u", "", "operator-edited override table CSV (required)")
	cmd.Flags().StringVarP(&opts.MergedFile, "out", "o", "cases_merged.csv", "output path for the merged table CSV")
	cmd.MarkFlagRequired("overrides")
	return cmd
}

func anonymizeCmd() *cobra.Command {
	var choices []string

	cmd := &cobra.Command{
		Use:   "anonymize",
		Short: "Redact every file of every case and write the output tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseChoices(choices)
			if err != nil {
				return err
			}
			opts.Choices = parsed

			stats, err := cli.RunAnonymize(opts)
			if err != nil {
				return err
			}
			if stats.Failed > 0 {
				return fmt.Errorf("%d file(s) failed", stats.Failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.OverridesFile, "overrides", "u", "", "operator-edited override table CSV (required)")
	cmd.Flags().StringArrayVar(&choices, "choice", nil, "creation-field choice as Field=Value (repeatable)")
	cmd.MarkFlagRequired("overrides")
	return cmd
}

func parseChoices(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	choices := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		field, value, ok := strings.Cut(pair, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid --choice %q, expected Field=Value", pair)
		}
		choices[field] = value
	}
	return choices, nil
}
