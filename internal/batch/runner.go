// Package batch extracts records from every report in a directory and rolls
// their ratings up into one summary.
//
// Documents are processed by a bounded pool of workers. Each worker hands its
// result to a single collector goroutine, which owns the running rating total,
// so the total is never shared between goroutines.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/a3tai/pdf-eval-reader/internal/evals"
	"github.com/a3tai/pdf-eval-reader/internal/pdf"
	"github.com/a3tai/pdf-eval-reader/internal/rating"
)

// ErrNoPDFs is returned by Run when the directory holds no PDF files.
var ErrNoPDFs = errors.New("no PDFs found in the selected folder")

// Cache stores records of files that have already been processed. Records
// are kept per backend, since backends may read a document differently.
type Cache interface {
	Lookup(ctx context.Context, backend pdf.Backend, file pdf.FileInfo) (evals.Record, bool, error)
	Save(ctx context.Context, backend pdf.Backend, file pdf.FileInfo, record evals.Record) error
}

// ProgressFunc is called by the collector after each document, with the
// number of documents done so far.
type ProgressFunc func(done, total int, path string)

// Options configures a Runner.
type Options struct {
	Workers   int
	Recursive bool
	Logger    *slog.Logger
	Progress  ProgressFunc
	Cache     Cache
}

// Failure records a document that produced no record.
type Failure struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
	err    error
}

// Err returns the underlying error.
func (f Failure) Err() error {
	return f.err
}

// Report is the outcome of one run.
type Report struct {
	Directory string          `json:"directory"`
	Files     int             `json:"files"`
	Records   []evals.Record  `json:"records"`
	Failures  []Failure       `json:"failures,omitempty"`
	Cached    int             `json:"cached"`
	Total     rating.Rating   `json:"total"`
	Summary   *rating.Summary `json:"summary,omitempty"`
	Elapsed   time.Duration   `json:"elapsed"`
}

// Runner processes directories of reports.
type Runner struct {
	source    pdf.TokenSource
	validator *pdf.Validator
	extractor *evals.Extractor
	search    *pdf.Search
	workers   int
	logger    *slog.Logger
	progress  ProgressFunc
	cache     Cache
}

// NewRunner creates a runner reading pages from source.
func NewRunner(source pdf.TokenSource, validator *pdf.Validator, opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Runner{
		source:    source,
		validator: validator,
		extractor: evals.NewExtractor(logger),
		search:    pdf.NewSearch(opts.Recursive),
		workers:   workers,
		logger:    logger,
		progress:  opts.Progress,
		cache:     opts.Cache,
	}
}

type outcome struct {
	file   pdf.FileInfo
	record evals.Record
	cached bool
	err    error
}

// Run processes every PDF in dir. A failing document never stops the run.
// When ctx is cancelled the documents not yet started are abandoned and the
// partial report is returned together with the context error.
func (r *Runner) Run(ctx context.Context, dir string) (*Report, error) {
	start := time.Now()

	files, err := r.search.FindPDFs(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoPDFs, dir)
	}
	r.logger.Info("found PDFs", "count", len(files), "directory", dir, "backend", r.source.Backend())

	report := &Report{Directory: dir, Files: len(files), Total: rating.Zero()}
	outcomes := make(chan outcome, r.workers)
	collected := make(chan struct{})

	go func() {
		defer close(collected)
		done := 0
		for o := range outcomes {
			done++
			r.collect(report, o)
			if r.progress != nil {
				r.progress(done, len(files), o.file.Path)
			}
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for _, file := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			record, cached, err := r.processFile(gctx, file)
			if err != nil && gctx.Err() != nil {
				// killed by the cancellation, not a document failure
				return gctx.Err()
			}
			select {
			case outcomes <- outcome{file: file, record: record, cached: cached, err: err}:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}
	waitErr := g.Wait()
	close(outcomes)
	<-collected

	sort.Slice(report.Records, func(i, j int) bool { return report.Records[i].Source < report.Records[j].Source })
	sort.Slice(report.Failures, func(i, j int) bool { return report.Failures[i].Path < report.Failures[j].Path })

	if report.Total.Count() > 0 {
		summary, err := rating.Summarize(report.Total)
		if err == nil {
			report.Summary = &summary
		}
	}
	report.Elapsed = time.Since(start)

	r.logger.Info("run finished",
		"records", len(report.Records),
		"failures", len(report.Failures),
		"cached", report.Cached,
		"elapsed_ms", report.Elapsed.Milliseconds(),
	)

	if waitErr != nil {
		return report, waitErr
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// collect runs on the collector goroutine only.
func (r *Runner) collect(report *Report, o outcome) {
	if o.err != nil {
		report.Failures = append(report.Failures, Failure{Path: o.file.Path, Reason: o.err.Error(), err: o.err})
		if errors.Is(o.err, evals.ErrNoRecord) {
			r.logger.Warn("no data extracted", "path", o.file.Path, "reason", o.err)
		} else {
			r.logger.Error("failed on document", "path", o.file.Path, "error", o.err)
		}
		return
	}
	if o.cached {
		report.Cached++
	}
	report.Records = append(report.Records, o.record)
	report.Total = report.Total.Add(rating.FromTable(o.record.RatingTable))
}

func (r *Runner) processFile(ctx context.Context, file pdf.FileInfo) (evals.Record, bool, error) {
	if r.cache != nil {
		record, ok, err := r.cache.Lookup(ctx, r.source.Backend(), file)
		if err != nil {
			r.logger.Warn("cache lookup failed", "path", file.Path, "error", err)
		} else if ok {
			record.Source = file.Path
			return record, true, nil
		}
	}

	record, err := r.ProcessFile(ctx, file.Path)
	if err != nil {
		return evals.Record{}, false, err
	}

	if r.cache != nil {
		if err := r.cache.Save(ctx, r.source.Backend(), file, record); err != nil {
			r.logger.Warn("cache save failed", "path", file.Path, "error", err)
		}
	}
	return record, false, nil
}

// ProcessFile validates, converts and extracts a single report.
func (r *Runner) ProcessFile(ctx context.Context, path string) (evals.Record, error) {
	if r.validator != nil {
		if err := r.validator.ValidateFile(path); err != nil {
			return evals.Record{}, err
		}
		if r.logger.Enabled(ctx, slog.LevelDebug) {
			if n, err := r.validator.PageCount(path); err == nil {
				r.logger.Debug("validated", "path", path, "pages", n)
			}
		}
	}

	pages, err := r.source.Pages(ctx, path)
	if err != nil {
		return evals.Record{}, err
	}
	r.logger.Debug("converted", "path", path, "pages", len(pages))

	record, err := r.extractor.ProcessDocument(pages)
	if err != nil {
		return evals.Record{}, err
	}
	record.Source = path
	return record, nil
}
