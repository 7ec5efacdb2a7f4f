package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/blockphrase/internal/classifier"
	"github.com/nao1215/blockphrase/internal/config"
	"github.com/nao1215/blockphrase/internal/embedding"
	"github.com/nao1215/blockphrase/internal/model"
	"github.com/nao1215/blockphrase/internal/page"
	"github.com/nao1215/blockphrase/internal/pipeline"
	"github.com/nao1215/blockphrase/internal/report"
	"github.com/nao1215/blockphrase/internal/store"
)

// errPagesFailed is returned when at least one page could not be redacted.
var errPagesFailed = errors.New("some pages could not be redacted")

// NewRedactCmd creates the redact command.
func NewRedactCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "redact [file|url|-]...",
		Short: "Redact text blocks that match the blocked phrase",
		Long: `Redact loads each page, scores its text blocks against the stored blocked
phrase and writes a copy in which matching blocks are blacked out and their
child elements hidden.

Pages can be files, http(s) URLs or "-" for standard input. A single page is
written to standard output unless --output is given; several pages require
--output. A summary report is written to standard error or --report.

Examples:
  # Redact a saved page
  blockphrase redact page.html > clean.html

  # Redact several pages into a directory with a Markdown report
  blockphrase redact -o redacted --markdown -r report.md a.html https://example.com/

  # Match blocked words instead of the phrase
  blockphrase redact --mode literal page.html

  # Use a local Ollama server
  blockphrase redact --provider ollama --base-url http://localhost:11434 page.html`,
		Args: cobra.ArbitraryArgs,
		RunE: runRedactCmd,
	}

	// Matching flags
	cmd.Flags().String("mode", config.DefaultMode,
		"Matching mode: semantic or literal")
	cmd.Flags().Int("min-chars", config.DefaultMinCharacters,
		"Shortest text block, in characters, that is matched")
	cmd.Flags().Float64("min-similarity", config.DefaultMinSimilarity,
		"Similarity at or above which a block is redacted")
	cmd.Flags().String("provider", config.DefaultProvider,
		"Embedding provider: openai or ollama")
	cmd.Flags().String("model", "",
		"Embedding model (default: provider default)")
	cmd.Flags().String("base-url", "",
		"Embedding service address")
	cmd.Flags().Int("concurrency", config.DefaultConcurrency,
		"Embedding requests in flight per page")
	cmd.Flags().Duration("request-timeout", config.DefaultRequestTimeout,
		"Timeout for each embedding request")

	// Page flags
	cmd.Flags().String("selector", config.DefaultSelector,
		"CSS selector of the part of the page to scan")
	cmd.Flags().String("proxy", "",
		"Fetch pages through a SOCKS5 proxy (e.g., 127.0.0.1:9050)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each page fetch")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Largest page read, in bytes")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent sent when fetching pages")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of pages processed concurrently")

	// Output flags
	cmd.Flags().StringP("output", "o", "",
		"Directory for redacted pages (default: standard output)")
	cmd.Flags().StringP("report", "r", "",
		"Write the report to this file (default: standard error)")
	cmd.Flags().BoolP("json", "j", false,
		"Write a JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Write a Markdown report (mutually exclusive with --json)")

	return cmd
}

// runRedactCmd executes the redact command.
func runRedactCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Targets = args

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(cmd, cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runRedact(ctx, cmd, cfg, logger)
}

// runRedact processes every target and writes the report.
func runRedact(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) error {
	mode, err := classifier.ParseMode(cfg.Mode)
	if err != nil {
		return err
	}

	storage, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStorage(storage, logger)

	var provider embedding.Provider
	if mode == classifier.ModeSemantic {
		provider, err = embedding.New(cfg.Provider,
			embedding.WithModel(cfg.Model),
			embedding.WithBaseURL(cfg.BaseURL),
		)
		if err != nil {
			return err
		}
	}

	loader, err := page.NewLoader(
		page.WithProxy(cfg.ProxyAddress),
		page.WithUserAgent(cfg.UserAgent),
		page.WithMaxBodySize(cfg.MaxBodySize),
		page.WithTimeout(cfg.Timeout),
		page.WithStdin(cmd.InOrStdin()),
	)
	if err != nil {
		return err
	}

	pp := newPagePipeline(cmd.OutOrStdout(), cfg, storage, provider, mode, loader, logger)
	bp := pipeline.NewBatchProcessor(pp,
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	reports, err := bp.ProcessBatch(ctx, cfg.Targets)
	if reportErr := outputReport(cmd.ErrOrStderr(), cfg, reports); reportErr != nil {
		logger.Error("report failed", "error", reportErr)
	}
	if err != nil {
		return err
	}

	var failed int
	for _, r := range reports {
		if r == nil || r.Error != "" {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d failed", errPagesFailed, failed, len(reports))
	}
	return nil
}

// newPagePipeline returns a factory for the load, redact and write pipeline.
// The steps are shared by all pages. The write step hands out distinct
// file names across the batch.
func newPagePipeline(
	stdout io.Writer,
	cfg *config.Config,
	storage *store.Storage,
	provider embedding.Provider,
	mode classifier.Mode,
	loader *page.Loader,
	logger *slog.Logger,
) func() *pipeline.Pipeline {
	load := pipeline.NewLoadStep(loader)
	redact := pipeline.NewRedactStep(storage, provider,
		pipeline.WithRedactMode(mode),
		pipeline.WithRedactSelector(cfg.Selector),
		pipeline.WithRedactLogger(logger),
		pipeline.WithClassifierOptions(
			classifier.WithMinCharacters(cfg.MinCharacters),
			classifier.WithMinSimilarity(cfg.MinSimilarity),
			classifier.WithRequestTimeout(cfg.RequestTimeout),
			classifier.WithConcurrency(cfg.Concurrency),
		),
	)
	write := pipeline.NewWriteStep(
		pipeline.WithOutputDir(cfg.OutputDir),
		pipeline.WithWriter(stdout),
		pipeline.WithWriteLogger(logger),
	)

	return func() *pipeline.Pipeline {
		p := pipeline.New(pipeline.WithLogger(logger))
		p.AddSteps(load, redact, write)
		return p
	}
}

// outputReport writes the report in the requested format to cfg.ReportFile,
// or to stderr when no file is set.
func outputReport(stderr io.Writer, cfg *config.Config, reports []*model.PageReport) error {
	output := stderr
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create report directory: %w", err)
			}
		}
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		output = f
	}

	var w report.Writer
	switch {
	case cfg.JSONReport:
		w = report.NewJSONWriter(output, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		w = report.NewMarkdownWriter(output)
	default:
		w = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}
	_, err := w.Write(reports)
	return err
}
