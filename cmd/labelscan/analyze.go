package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	appscans "github.com/bryanwahyu/nutrisift/internal/application/scans"
	"github.com/bryanwahyu/nutrisift/internal/config"
	"github.com/bryanwahyu/nutrisift/internal/domain/ai"
	"github.com/bryanwahyu/nutrisift/internal/domain/analysis"
	"github.com/bryanwahyu/nutrisift/internal/formatter"
	aiinfra "github.com/bryanwahyu/nutrisift/internal/infra/ai"
)

type analyzeOptions struct {
	configPath  string
	provider    string
	model       string
	concurrency int
	output      string
}

func newAnalyzeCmd() *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze IMAGE...",
		Short: "Analyze one or more label photos",
		Long: `Run the full pipeline (model call, JSON recovery, validation, rules) for each photo.

Examples:
  # Analyze a single photo with the configured provider
  labelscan analyze label.jpg

  # Several photos at once, machine-readable output
  labelscan analyze a.jpg b.png -o json -c 4

  # Override the provider from config
  labelscan analyze label.jpg --provider openai --model gpt-4o-mini`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", os.Getenv("CONFIG_PATH"), "Path to config.yaml")
	cmd.Flags().StringVar(&opts.provider, "provider", "", "AI provider (gemini, openai), overrides config")
	cmd.Flags().StringVar(&opts.model, "model", "", "Model name, overrides config")
	cmd.Flags().IntVarP(&opts.concurrency, "concurrency", "c", 2, "Photos analyzed in parallel")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "human", "Output format (human, json, yaml)")

	return cmd
}

func runAnalyze(cmd *cobra.Command, opts *analyzeOptions, files []string) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.provider != "" {
		cfg.AI.Provider = opts.provider
	}
	if opts.model != "" {
		cfg.AI.Model = opts.model
	}

	client, err := aiinfra.New(aiinfra.Options{
		Provider:   cfg.AI.Provider,
		APIKey:     cfg.AI.APIKey,
		Model:      cfg.AI.Model,
		BaseURL:    cfg.AI.BaseURL,
		SugarTerms: cfg.Rules.ExtraSugarTerms,
	})
	if err != nil {
		return err
	}

	// tanpa repo/storage: hasil cuma dicetak
	svc := &appscans.Service{
		Vision:   client,
		Provider: client.Name(),
		Model:    aiinfra.ModelOf(client),
		Engine:   analysis.NewEngine(analysis.DefaultLexicon(cfg.Rules.ExtraSugarTerms...)),
		Timeout:  cfg.AI.Timeout,
	}

	s := spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = fmt.Sprintf(" Analyzing %d photo(s) with %s...", len(files), client.Name())
	if opts.output == "human" {
		s.Start()
	}

	reports := analyzeFiles(cmd.Context(), svc, files, opts.concurrency)
	s.Stop()

	if err := formatter.Display(cmd.OutOrStdout(), reports, opts.output); err != nil {
		return err
	}

	failed := 0
	for _, r := range reports {
		if r.Failed() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d photo(s) failed", failed, len(reports))
	}
	if opts.output == "human" {
		color.New(color.FgGreen).Fprintf(cmd.ErrOrStderr(), "✓ %d photo(s) analyzed\n", len(reports))
	}
	return nil
}

// analyzeFiles keeps input order; one failing photo never cancels the others.
func analyzeFiles(ctx context.Context, svc *appscans.Service, files []string, concurrency int) []formatter.Report {
	if ctx == nil {
		ctx = context.Background()
	}
	if concurrency < 1 {
		concurrency = 1
	}
	reports := make([]formatter.Report, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			reports[i] = analyzeFile(gctx, svc, file)
			return nil
		})
	}
	_ = g.Wait()
	return reports
}

func analyzeFile(ctx context.Context, svc *appscans.Service, file string) formatter.Report {
	source := filepath.Base(file)
	data, err := os.ReadFile(file)
	if err != nil {
		return formatter.FailedReport(source, err)
	}
	img, err := ai.NewImage(data, http.DetectContentType(data))
	if err != nil {
		return formatter.FailedReport(source, err)
	}
	scan, err := svc.Analyze(ctx, appscans.AnalyzeCommand{TenantID: "cli", Image: img})
	if err != nil {
		return formatter.FailedReport(source, err)
	}
	return formatter.Report{
		Source:   source,
		ScanID:   string(scan.ID),
		Strategy: scan.Strategy,
		Rules:    scan.Rules,
		Record:   scan.Record,
	}
}
