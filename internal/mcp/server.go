package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/a3tai/pdf-eval-reader/internal/batch"
	"github.com/a3tai/pdf-eval-reader/internal/config"
	"github.com/a3tai/pdf-eval-reader/internal/descriptions"
	"github.com/a3tai/pdf-eval-reader/internal/evals"
	"github.com/a3tai/pdf-eval-reader/internal/output"
	"github.com/a3tai/pdf-eval-reader/internal/pdf"
	"github.com/a3tai/pdf-eval-reader/internal/rating"
	"github.com/a3tai/pdf-eval-reader/internal/store"
)

const (
	// maxListedRecords caps the records printed by the directory tool.
	maxListedRecords = 50
	defaultRunsLimit = 10
)

// RunHistory lists recorded batch runs, newest first.
type RunHistory interface {
	Runs(ctx context.Context, limit int) ([]store.Run, error)
}

// Option configures optional parts of a Server.
type Option func(*Server)

// WithRunHistory enables the eval_runs tool.
func WithRunHistory(h RunHistory) Option {
	return func(s *Server) {
		s.history = h
	}
}

// toolInfo describes a registered tool for eval_server_info.
type toolInfo struct {
	Name        string
	Description string
	Parameters  string
}

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	runner    *batch.Runner
	guard     *pdf.PathGuard
	search    *pdf.Search
	validator *pdf.Validator
	history   RunHistory
	logger    *slog.Logger
	mcpServer *server.MCPServer
	tools     []toolInfo
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, runner *batch.Runner, logger *slog.Logger, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if runner == nil {
		return nil, fmt.Errorf("runner cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	guard, err := pdf.NewPathGuard(cfg.Directory)
	if err != nil {
		return nil, err
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		config:    cfg,
		runner:    runner,
		guard:     guard,
		search:    pdf.NewSearch(cfg.Recursive),
		validator: pdf.NewValidator(cfg.MaxFileSize),
		logger:    logger,
		mcpServer: mcpServer,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registerTools()

	return s, nil
}

func (s *Server) addTool(tool mcp.Tool, params string, handler server.ToolHandlerFunc) {
	s.mcpServer.AddTool(tool, handler)
	summary, _, _ := strings.Cut(tool.Description, "\n")
	s.tools = append(s.tools, toolInfo{Name: tool.Name, Description: summary, Parameters: params})
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	s.addTool(mcp.NewTool(
		"eval_extract_file",
		mcp.WithDescription(descriptions.EvalExtractFileDescription),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the PDF file, absolute or relative to the configured directory"),
		),
	), "path (required)", s.handleExtractFile)

	s.addTool(mcp.NewTool(
		"eval_extract_directory",
		mcp.WithDescription(descriptions.EvalExtractDirectoryDescription),
		mcp.WithString("directory",
			mcp.Description("Directory to process (uses the configured directory if empty)"),
		),
	), "directory (optional)", s.handleExtractDirectory)

	s.addTool(mcp.NewTool(
		"eval_summarize",
		mcp.WithDescription(descriptions.EvalSummarizeDescription),
		mcp.WithString("directory",
			mcp.Description("Directory holding results.json (uses the configured directory if empty)"),
		),
	), "directory (optional)", s.handleSummarize)

	s.addTool(mcp.NewTool(
		"eval_runs",
		mcp.WithDescription(descriptions.EvalRunsDescription),
		mcp.WithString("limit",
			mcp.Description("Maximum number of runs to list (default 10, 0 for all)"),
		),
	), "limit (optional)", s.handleRuns)

	s.addTool(mcp.NewTool(
		"eval_server_info",
		mcp.WithDescription(descriptions.EvalServerInfoDescription),
	), "none", s.handleServerInfo)
}

func (s *Server) handleExtractFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resolved, err := s.guard.Resolve(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	record, err := s.runner.ProcessFile(ctx, resolved)
	if err != nil {
		if errors.Is(err, evals.ErrNoRecord) {
			return mcp.NewToolResultError(fmt.Sprintf("No data extracted from %s: %v", resolved, err)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Failed on %s: %v", resolved, err)), nil
	}

	text := fmt.Sprintf("Extracted evaluation: %s\n", resolved)
	if n, err := s.validator.PageCount(resolved); err == nil {
		text += fmt.Sprintf("Pages: %d\n", n)
	}
	text += formatRecord(record)
	if summary, err := rating.Summarize(rating.FromTable(record.RatingTable)); err == nil {
		text += "\n" + summary.String() + "\n"
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err == nil {
		text += "\nJSON:\n" + string(data) + "\n"
	}

	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleExtractDirectory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir, err := s.guard.ResolveDir(stringArg(request, "directory"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	report, err := s.runner.Run(ctx, dir)
	if err != nil && report == nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := formatReport(report)
	if err != nil {
		text += fmt.Sprintf("\n⚠️  Run interrupted: %v\n", err)
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleSummarize(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir, err := s.guard.ResolveDir(stringArg(request, "directory"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	path := filepath.Join(dir, output.ResultsJSON)
	records, err := output.ReadJSON(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	total, summary, err := rating.SummarizeRecords(records)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Nothing to summarize in %s: %v", path, err)), nil
	}

	text := fmt.Sprintf("Summary of %s\n", path)
	text += fmt.Sprintf("Documents: %d\n", len(records))
	text += fmt.Sprintf("Responses: %d\n", total.Count())
	text += summary.String() + "\n"
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleRuns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.history == nil {
		return mcp.NewToolResultError("Run history is disabled; start the server with --db"), nil
	}

	limit := defaultRunsLimit
	if v := stringArg(request, "limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return mcp.NewToolResultError(fmt.Sprintf("invalid limit: %q", v)), nil
		}
		limit = n
	}

	runs, err := s.history.Runs(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(runs) == 0 {
		return mcp.NewToolResultText("No runs recorded\n"), nil
	}
	return mcp.NewToolResultText(formatRuns(runs)), nil
}

func (s *Server) handleServerInfo(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := fmt.Sprintf("📋 %s v%s - Server Information\n", s.config.ServerName, s.config.Version)
	text += fmt.Sprintf("📁 Default Directory: %s\n", s.guard.Root())
	text += fmt.Sprintf("🔧 Backend: %s\n", s.config.Backend)
	text += fmt.Sprintf("📏 Max File Size: %d MB\n\n", s.config.MaxFileSize/(1024*1024))

	files, err := s.search.FindPDFs(s.guard.Root())
	switch {
	case err != nil:
		text += fmt.Sprintf("📂 Directory Contents: %v\n\n", err)
	case len(files) == 0:
		text += "📂 Directory Contents: No PDF files found in default directory\n\n"
	default:
		text += fmt.Sprintf("📂 Directory Contents (%d PDF files found):\n", len(files))
		for i, file := range files {
			if i >= 10 {
				text += fmt.Sprintf("   ... and %d more files\n", len(files)-10)
				break
			}
			text += fmt.Sprintf("   %d. %s (%d bytes)\n", i+1, file.Name, file.Size)
		}
		text += "\n"
	}

	text += "🛠️  Available Tools:\n"
	for _, tool := range s.tools {
		text += fmt.Sprintf("\n• %s\n", tool.Name)
		text += fmt.Sprintf("  Description: %s\n", tool.Description)
		text += fmt.Sprintf("  Parameters: %s\n", tool.Parameters)
	}

	return mcp.NewToolResultText(text), nil
}

// stringArg returns an optional string argument, "" when absent.
func stringArg(request mcp.CallToolRequest, name string) string {
	if v, ok := request.GetArguments()[name].(string); ok {
		return v
	}
	return ""
}

func formatRecord(r evals.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Course: %s\n", r.Course)
	fmt.Fprintf(&b, "Instructor: %s\n", r.Instructor)
	fmt.Fprintf(&b, "Term: %s %s\n", r.Semester, r.Year)
	fmt.Fprintf(&b, "Mean: %s  Std Deviation: %s  Count: %s\n", r.Mean, r.StdDeviation, r.Count)
	fmt.Fprintf(&b, "Poor: %d  Below Average: %d  Average: %d  Good: %d  Excellent: %d\n",
		r.Poor, r.BelowAverage, r.Average, r.Good, r.Excellent)
	return b.String()
}

func formatReport(report *batch.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Processed %d PDF file(s) in %s\n", report.Files, report.Directory)
	fmt.Fprintf(&b, "Records: %d  Failures: %d  Cached: %d\n", len(report.Records), len(report.Failures), report.Cached)

	if report.Summary != nil {
		fmt.Fprintf(&b, "\n%s\n", report.Summary.String())
	} else {
		b.WriteString("\nNo ratings collected\n")
	}

	if len(report.Records) > 0 {
		b.WriteString("\nRecords:\n")
		for i, r := range report.Records {
			if i >= maxListedRecords {
				fmt.Fprintf(&b, "   ... and %d more\n", len(report.Records)-maxListedRecords)
				break
			}
			fmt.Fprintf(&b, "   %d. %s %s %s %s (mean %s, n=%s)\n",
				i+1, r.Year, r.Semester, r.Course, r.Instructor, r.Mean, r.Count)
		}
	}

	if len(report.Failures) > 0 {
		b.WriteString("\nFailures:\n")
		for _, f := range report.Failures {
			kind := "failed"
			if errors.Is(f.Err(), evals.ErrNoRecord) {
				kind = "no data"
			}
			fmt.Fprintf(&b, "   • %s (%s): %s\n", f.Path, kind, f.Reason)
		}
	}
	return b.String()
}

func formatRuns(runs []store.Run) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Recorded runs (%d):\n", len(runs))
	for i, run := range runs {
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, run.Directory)
		fmt.Fprintf(&b, "   ID: %s\n", run.ID)
		fmt.Fprintf(&b, "   Started: %s\n", run.StartedAt.Format(time.RFC3339))
		if run.FinishedAt != nil {
			fmt.Fprintf(&b, "   Finished: %s\n", run.FinishedAt.Format(time.RFC3339))
		} else {
			b.WriteString("   Finished: no\n")
		}
		fmt.Fprintf(&b, "   Records: %d\n", run.Documents)
		if run.Summary != nil {
			fmt.Fprintf(&b, "   %s\n", run.Summary.String())
		}
	}
	return b.String()
}

// Run serves MCP over stdin and stdout until ctx is cancelled or stdin closes.
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve serves MCP over the given streams.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	s.logger.Debug("starting MCP server in stdio mode", "directory", s.guard.Root(), "backend", s.config.Backend)

	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))

	if err := stdio.Listen(ctx, in, out); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
