package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	appscans "github.com/bryanwahyu/nutrisift/internal/application/scans"
	"github.com/bryanwahyu/nutrisift/internal/domain/analysis"
	"github.com/bryanwahyu/nutrisift/internal/formatter"
)

func newRecoverCmd() *cobra.Command {
	var (
		output     string
		sugarTerms []string
	)
	cmd := &cobra.Command{
		Use:   "recover FILE|-",
		Short: "Run recovery, validation and rules on a saved model response",
		Long: `Offline replay of the pipeline on a raw model response; no model is called.
Exits non-zero when no JSON object can be recovered or the object violates the
record contract, printing the offending field path.

Examples:
  labelscan recover response.txt
  cat response.txt | labelscan recover - -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, source, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			engine := analysis.NewEngine(analysis.DefaultLexicon(sugarTerms...))
			rep, err := recoverReport(engine, source, raw)
			if derr := formatter.Display(cmd.OutOrStdout(), []formatter.Report{rep}, output); derr != nil {
				return derr
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "human", "Output format (human, json, yaml)")
	cmd.Flags().StringSliceVar(&sugarTerms, "sugar-term", nil, "Extra sugar keyword (repeatable)")
	return cmd
}

func readInput(stdin io.Reader, arg string) (string, string, error) {
	if arg == "-" {
		b, err := io.ReadAll(stdin)
		return string(b), "stdin", err
	}
	b, err := os.ReadFile(arg)
	return string(b), arg, err
}

func recoverReport(engine *analysis.Engine, source, raw string) (formatter.Report, error) {
	res, err := appscans.Finalize(engine, raw)
	if err != nil {
		rep := formatter.FailedReport(source, err)
		var se *analysis.SchemaError
		if errors.As(err, &se) {
			return rep, fmt.Errorf("schema violation at %s", se.Path)
		}
		return rep, err
	}
	return formatter.Report{
		Source:   source,
		Strategy: res.Strategy.String(),
		Rules:    res.Rules,
		Record:   res.Record,
	}, nil
}
