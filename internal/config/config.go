package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/a3tai/pdf-eval-reader/internal/output"
	"github.com/a3tai/pdf-eval-reader/internal/pdf"
)

const (
	// Mode constants
	ModeBatch     = "batch"
	ModeSummarize = "summarize"
	ModeStdio     = "stdio"

	// Default values
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 100 * 1024 * 1024 // 100MB
	DefaultFormats     = "json,csv"

	// EnvPrefix prefixes every environment variable read by LoadFromFlags.
	EnvPrefix = "EVAL_PDF"
)

// ErrVersionRequested is returned by LoadFromFlags when --version is given.
var ErrVersionRequested = errors.New("version requested")

// Config holds all configuration for the evaluation reader
type Config struct {
	Mode string // "batch", "summarize" or "stdio"

	// Input
	Files       []string // PDFs named on the command line; replaces the directory scan
	Directory   string
	Recursive   bool
	Workers     int
	Backend     string
	Pdftotext   string
	MaxFileSize int64 // Maximum PDF file size in bytes

	// Output
	OutputDir   string
	Formats     []string
	Overwrite   bool
	Database    string // optional SQLite cache, disabled when empty
	ResultsFile string // results read in summarize mode

	// Application configuration
	Version    string
	ServerName string
	LogLevel   string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:        ModeBatch,
		Directory:   currentDir,
		Recursive:   true,
		Workers:     runtime.NumCPU(),
		Backend:     string(pdf.BackendPdftotext),
		Pdftotext:   pdf.DefaultPdftotext,
		MaxFileSize: DefaultMaxFileSize,
		OutputDir:   currentDir,
		Formats:     splitList(DefaultFormats),
		Overwrite:   true,
		Version:     "1.0.0",
		ServerName:  "pdf-eval-reader",
		LogLevel:    DefaultLogLevel,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)
	cfg.Files = pflag.Args()
	cfg.expandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix(EnvPrefix)
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("dir", cfg.Directory)
	viper.SetDefault("recursive", cfg.Recursive)
	viper.SetDefault("workers", cfg.Workers)
	viper.SetDefault("backend", cfg.Backend)
	viper.SetDefault("pdftotext", cfg.Pdftotext)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
	viper.SetDefault("out", cfg.OutputDir)
	viper.SetDefault("formats", strings.Join(cfg.Formats, ","))
	viper.SetDefault("overwrite", cfg.Overwrite)
	viper.SetDefault("db", cfg.Database)
	viper.SetDefault("results", cfg.ResultsFile)
	viper.SetDefault("loglevel", cfg.LogLevel)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Run mode: 'batch' to extract a folder, 'summarize' to re-read results, 'stdio' for MCP")
	pflag.String("dir", cfg.Directory, "Directory containing evaluation PDFs")
	pflag.Bool("recursive", cfg.Recursive, "Include subfolders")
	pflag.Int("workers", cfg.Workers, "Number of documents processed in parallel")
	pflag.String("backend", cfg.Backend, "Text backend: 'pdftotext' (poppler) or 'native'")
	pflag.String("pdftotext", cfg.Pdftotext, "Path of the pdftotext binary")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
	pflag.String("out", cfg.OutputDir, "Directory results are written to")
	pflag.String("formats", strings.Join(cfg.Formats, ","), "Comma separated result formats: json, csv, xlsx")
	pflag.Bool("overwrite", cfg.Overwrite, "Overwrite existing results")
	pflag.String("db", cfg.Database, "SQLite file caching extracted records (disabled when empty)")
	pflag.String("results", cfg.ResultsFile, "Results file read in summarize mode (default <out>/results.json)")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, name := range []string{
		"mode", "dir", "recursive", "workers", "backend", "pdftotext", "maxfilesize",
		"out", "formats", "overwrite", "db", "results", "loglevel",
	} {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s: [options] [report.pdf ...]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nPDF Eval Reader - extracts course evaluation ratings from PDF reports\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --dir=/path/to/reports                  "+
			"# extract, write results.json/.csv and summary.txt\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --dir=/path/to/reports --formats=xlsx   "+
			"# Excel workbook instead\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s a.pdf b.pdf                             "+
			"# print the records of the named reports as JSON\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=summarize --results=results.json # print the summary again\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=stdio --dir=/path/to/reports     # MCP server\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  %s_MODE, %s_DIR, %s_OUT, %s_BACKEND, %s_FORMATS, %s_DB, %s_LOGLEVEL, ...\n",
			EnvPrefix, EnvPrefix, EnvPrefix, EnvPrefix, EnvPrefix, EnvPrefix, EnvPrefix)
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return ErrVersionRequested
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Directory = viper.GetString("dir")
	cfg.Recursive = viper.GetBool("recursive")
	cfg.Workers = viper.GetInt("workers")
	cfg.Backend = viper.GetString("backend")
	cfg.Pdftotext = viper.GetString("pdftotext")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
	cfg.OutputDir = viper.GetString("out")
	cfg.Formats = splitList(viper.GetString("formats"))
	cfg.Overwrite = viper.GetBool("overwrite")
	cfg.Database = viper.GetString("db")
	cfg.ResultsFile = viper.GetString("results")
	cfg.LogLevel = strings.ToLower(viper.GetString("loglevel"))
}

func (c *Config) expandPaths() {
	for _, p := range []*string{&c.Directory, &c.OutputDir, &c.Database, &c.ResultsFile} {
		if *p == "" {
			continue
		}
		if abs, err := filepath.Abs(*p); err == nil {
			*p = abs
		}
	}
	for i, f := range c.Files {
		if abs, err := filepath.Abs(f); err == nil {
			c.Files[i] = abs
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeBatch, ModeSummarize, ModeStdio:
	default:
		return errors.New("mode must be one of 'batch', 'summarize' or 'stdio'")
	}

	if len(c.Files) > 0 && c.Mode != ModeBatch {
		return fmt.Errorf("PDF file arguments are only accepted in %s mode", ModeBatch)
	}

	if c.Mode != ModeSummarize {
		if c.Directory == "" {
			return errors.New("PDF directory cannot be empty")
		}
		info, err := os.Stat(c.Directory)
		if err != nil {
			return fmt.Errorf("cannot access PDF directory %s: %w", c.Directory, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("PDF directory %s is not a directory", c.Directory)
		}
	}

	if c.OutputDir == "" {
		return errors.New("output directory cannot be empty")
	}

	if c.Workers <= 0 {
		return errors.New("workers must be positive")
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	if !isSupportedBackend(c.Backend) {
		return fmt.Errorf("invalid backend: %s (must be one of: %s)", c.Backend, backendNames())
	}
	if c.Backend == string(pdf.BackendPdftotext) && c.Pdftotext == "" {
		return errors.New("pdftotext path cannot be empty")
	}

	if c.Mode == ModeBatch {
		formats, err := output.ParseFormats(c.Formats)
		if err != nil {
			return err
		}
		if len(formats) == 0 {
			return errors.New("at least one output format is required")
		}
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

func isSupportedBackend(name string) bool {
	for _, b := range pdf.SupportedBackends() {
		if string(b) == name {
			return true
		}
	}
	return false
}

func backendNames() string {
	var names []string
	for _, b := range pdf.SupportedBackends() {
		names = append(names, string(b))
	}
	return strings.Join(names, ", ")
}

// OutputFormats returns the parsed result formats.
func (c *Config) OutputFormats() ([]output.Format, error) {
	return output.ParseFormats(c.Formats)
}

// ResultsPath returns the results file read in summarize mode.
func (c *Config) ResultsPath() string {
	if c.ResultsFile != "" {
		return c.ResultsFile
	}
	return filepath.Join(c.OutputDir, output.ResultsJSON)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Directory: %s, OutputDir: %s, Backend: %s, Workers: %d, Formats: %v, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.Directory, c.OutputDir, c.Backend, c.Workers, c.Formats, c.LogLevel, c.MaxFileSize)
}

// HasFiles returns true when PDFs were named on the command line
func (c *Config) HasFiles() bool {
	return len(c.Files) > 0
}

// IsBatchMode returns true for a one-shot extraction run
func (c *Config) IsBatchMode() bool {
	return c.Mode == ModeBatch
}

// IsSummarizeMode returns true when results are re-read instead of extracted
func (c *Config) IsSummarizeMode() bool {
	return c.Mode == ModeSummarize
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
