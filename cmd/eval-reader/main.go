package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/google/uuid"

	"github.com/a3tai/pdf-eval-reader/internal/batch"
	"github.com/a3tai/pdf-eval-reader/internal/config"
	"github.com/a3tai/pdf-eval-reader/internal/evals"
	"github.com/a3tai/pdf-eval-reader/internal/mcp"
	"github.com/a3tai/pdf-eval-reader/internal/output"
	"github.com/a3tai/pdf-eval-reader/internal/pdf"
	"github.com/a3tai/pdf-eval-reader/internal/rating"
	"github.com/a3tai/pdf-eval-reader/internal/store"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// setupLogging builds the root logger. In stdio mode stdout carries the MCP
// protocol, so logs go to stderr and only when debug is enabled.
func setupLogging(cfg *config.Config, stderr io.Writer) *slog.Logger {
	level := parseLevel(cfg.LogLevel)

	var handler slog.Handler
	switch {
	case cfg.IsStdioMode() && !cfg.IsDebug():
		handler = slog.NewTextHandler(io.Discard, nil)
	default:
		handler = slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})
	}

	logger := slog.New(handler).With("app", cfg.ServerName)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion(os.Stdout)
			return
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(2)
	}

	if version != "dev" {
		cfg.Version = version
	}

	logger := setupLogging(cfg, os.Stderr)
	logger.Debug("starting", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, os.Stdout); err != nil {
		logger.Error("run failed", "error", err)
		if !cfg.IsStdioMode() {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}

// run executes the configured mode.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout io.Writer) error {
	switch {
	case cfg.IsSummarizeMode():
		return runSummarize(cfg, stdout)
	case cfg.IsStdioMode():
		return runStdio(ctx, cfg, logger)
	case cfg.HasFiles():
		return runFiles(ctx, cfg, logger, stdout)
	default:
		return runBatch(ctx, cfg, logger, stdout)
	}
}

func newRunner(cfg *config.Config, logger *slog.Logger, cache batch.Cache) (*batch.Runner, error) {
	source, err := pdf.NewSource(pdf.SourceOptions{
		Backend:       pdf.Backend(cfg.Backend),
		PdftotextPath: cfg.Pdftotext,
	})
	if err != nil {
		return nil, err
	}

	return batch.NewRunner(source, pdf.NewValidator(cfg.MaxFileSize), batch.Options{
		Workers:   cfg.Workers,
		Recursive: cfg.Recursive,
		Logger:    logger,
		Cache:     cache,
		Progress: func(done, total int, path string) {
			logger.Info("progress", "done", done, "total", total, "path", path)
		},
	}), nil
}

// runBatch extracts the configured directory and writes the results. When
// ctx is cancelled part way, whatever was collected is still written.
func runBatch(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout io.Writer) error {
	formats, err := cfg.OutputFormats()
	if err != nil {
		return err
	}
	if err := output.CheckOverwrite(cfg.OutputDir, cfg.Overwrite); err != nil {
		return err
	}

	var (
		db    *store.Store
		cache batch.Cache
		runID uuid.UUID
	)
	if cfg.Database != "" {
		db, err = store.Open(cfg.Database, logger)
		if err != nil {
			return err
		}
		defer db.Close()
		cache = db
	}

	runner, err := newRunner(cfg, logger, cache)
	if err != nil {
		return err
	}

	if db != nil {
		if runID, err = db.BeginRun(ctx, cfg.Directory); err != nil {
			return err
		}
	}
	// The run is recorded even when interrupted or when nothing was found.
	finishRun := func(documents int, summary *rating.Summary) {
		if db == nil {
			return
		}
		if err := db.FinishRun(context.WithoutCancel(ctx), runID, documents, summary); err != nil {
			logger.Warn("failed to record run", "error", err)
		}
	}

	report, runErr := runner.Run(ctx, cfg.Directory)
	if report == nil {
		finishRun(0, nil)
		return runErr
	}
	if runErr != nil {
		logger.Warn("run interrupted, writing partial results", "error", runErr, "records", len(report.Records))
	}

	written, err := output.Write(cfg.OutputDir, formats, report.Records, report.Summary)
	if err != nil {
		return err
	}
	for _, path := range written {
		logger.Info("wrote", "path", path)
	}

	finishRun(len(report.Records), report.Summary)

	fmt.Fprintf(stdout, "Processed %d PDF file(s): %d record(s), %d failure(s)\n",
		report.Files, len(report.Records), len(report.Failures))
	if report.Summary != nil {
		fmt.Fprintln(stdout, report.Summary.String())
	} else {
		fmt.Fprintln(stdout, "No ratings collected")
	}
	return runErr
}

// runFiles extracts the PDFs named on the command line and prints their
// records to stdout as a JSON array. Documents yielding nothing are logged and
// left out.
func runFiles(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout io.Writer) error {
	runner, err := newRunner(cfg, logger, nil)
	if err != nil {
		return err
	}

	records := make([]evals.Record, 0, len(cfg.Files))
	for _, path := range cfg.Files {
		if err := ctx.Err(); err != nil {
			return err
		}
		record, err := runner.ProcessFile(ctx, path)
		switch {
		case errors.Is(err, evals.ErrNoRecord):
			logger.Warn("no data extracted", "path", path, "reason", err)
		case err != nil:
			logger.Error("failed on document", "path", path, "error", err)
		default:
			records = append(records, record)
		}
	}
	return output.EncodeJSON(stdout, records)
}

// runSummarize prints the roll-up of an earlier results file.
func runSummarize(cfg *config.Config, stdout io.Writer) error {
	records, err := output.ReadJSON(cfg.ResultsPath())
	if err != nil {
		return err
	}
	_, summary, err := rating.SummarizeRecords(records)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Top1: %.2f%% Top2: %.2f%% Mean: %.3f\n", summary.Top1Percent, summary.Top2Percent, summary.Mean)
	return nil
}

// runStdio serves MCP until stdin closes or a signal arrives. With a
// database the server caches records and lists recorded runs.
func runStdio(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	var (
		cache batch.Cache
		opts  []mcp.Option
	)
	if cfg.Database != "" {
		db, err := store.Open(cfg.Database, logger)
		if err != nil {
			return err
		}
		defer db.Close()
		cache = db
		opts = append(opts, mcp.WithRunHistory(db))
	}

	runner, err := newRunner(cfg, logger, cache)
	if err != nil {
		return err
	}
	server, err := mcp.NewServer(cfg, runner, logger, opts...)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "PDF Eval Reader\n")
	fmt.Fprintf(w, "Version: %s\n", version)
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", gitCommit)
	fmt.Fprintf(w, "Built with: %s\n", runtime.Version())
}
