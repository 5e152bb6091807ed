package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sambeau/jsxl/config"
	"github.com/sambeau/jsxl/pkg/jsxl/compiler"
	"github.com/sambeau/jsxl/pkg/jsxl/driver"
)

// Version information, set at build time via -ldflags
var (
	Version = "dev"     // -X main.Version=$(git describe --tags --always)
	Commit  = "unknown" // -X main.Commit=$(git rev-parse --short HEAD)
)

func main() {
	ctx := context.Background()
	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, os.Getenv); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main entry point, designed for testability (Mat Ryer pattern)
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, getenv func(string) string) error {
	command := "build"
	if len(args) > 0 {
		switch args[0] {
		case "build", "check", "watch", "expr":
			command = args[0]
			args = args[1:]
		}
	}

	flags := flag.NewFlagSet("jsxl "+command, flag.ContinueOnError)
	flags.SetOutput(io.Discard) // Suppress default -h output

	var (
		configPath  = flags.String("config", "", "Path to config file")
		mode        = flags.String("mode", "", "Output mode: packed or unpacked")
		members     = flags.String("members", "", "Member flattening: nested or two-level")
		outDir      = flags.String("out", "", "Directory for artifacts")
		manifest    = flags.String("manifest", "", "Manifest output: json, yaml, sqlite or off")
		printOnly   = flags.Bool("print", false, "Print artifacts to stdout instead of writing files")
		jsonErrors  = flags.Bool("json", false, "Report compile errors as JSON")
		quietMode   = flags.Bool("quiet", false, "Only log errors")
		showVersion = flags.Bool("version", false, "Show version")
		showHelp    = flags.Bool("help", false, "Show help")
	)

	// Parse flags
	if err := flags.Parse(args); err != nil {
		// Handle -h/--help: flag package returns ErrHelp
		if errors.Is(err, flag.ErrHelp) {
			printUsage(stdout)
			return nil
		}
		// For other errors, show usage then error
		printUsage(stderr)
		return err
	}

	// Handle explicit --help flag
	if *showHelp {
		printUsage(stdout)
		return nil
	}

	// Handle --version
	if *showVersion {
		fmt.Fprintf(stdout, "jsxl version %s (%s)\n", Version, Commit)
		return nil
	}

	// Set up signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Load configuration
	cfg, _, err := config.LoadWithPath(*configPath, getenv)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Apply CLI overrides
	if *mode != "" {
		cfg.Mode = *mode
	}
	if *members != "" {
		cfg.Members = *members
	}
	if *outDir != "" {
		cfg.OutDir = *outDir
	}
	if err := applyManifestFlag(&cfg.Manifest, *manifest); err != nil {
		return err
	}
	if *quietMode || cfg.Logging.Quiet {
		cfg.Logging.Level = "error"
	}

	// Full validation after CLI overrides applied
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	// Show warnings for potential misconfigurations
	for _, warning := range config.Warnings(cfg) {
		fmt.Fprintf(stderr, "warning: %s\n", warning)
	}

	opts, err := compileOptions(cfg, stdout, stderr)
	if err != nil {
		return err
	}

	b := &builder{
		cfg:        cfg,
		opts:       opts,
		log:        opts.Logger,
		stdin:      stdin,
		stdout:     stdout,
		stderr:     stderr,
		print:      *printOnly,
		jsonErrors: *jsonErrors,
	}

	switch command {
	case "check":
		return b.check(ctx, flags.Args())
	case "watch":
		return b.watch(ctx, flags.Args())
	case "expr":
		return b.expr(flags.Args())
	}
	return b.build(ctx, flags.Args())
}

// compileOptions maps the validated config onto driver options.
func compileOptions(cfg *config.Config, stdout, stderr io.Writer) (driver.Options, error) {
	mode, err := driver.ParseMode(cfg.Mode)
	if err != nil {
		return driver.Options{}, err
	}
	members, err := compiler.ParseMemberMode(cfg.Members)
	if err != nil {
		return driver.Options{}, err
	}
	level, err := driver.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return driver.Options{}, err
	}
	return driver.Options{
		Mode:    mode,
		Members: members,
		Workers: cfg.Workers,
		Logger:  driver.WriterLogger(stdout, stderr, level),
	}, nil
}

// applyManifestFlag folds --manifest into the manifest config.
func applyManifestFlag(m *config.ManifestConfig, value string) error {
	switch value {
	case "":
	case "off":
		m.Enabled = false
	case "sqlite":
		m.Enabled = true
		m.Store = "sqlite"
	case "json", "yaml":
		m.Enabled = true
		m.Store = "file"
		m.Format = value
	default:
		return fmt.Errorf("invalid --manifest %q (must be json, yaml, sqlite or off)", value)
	}
	return nil
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `jsxl - Compile JavaScript syntax trees to spreadsheet formulas

Usage:
  jsxl [build] [options] [FILE|DIR|-]...
  jsxl check [options] [FILE|DIR|-]...
  jsxl watch [options] [DIR]...
  jsxl expr [options] [FILE|-]

Commands:
  build    Compile units and write their artifacts (default)
  check    Compile units and report errors without writing anything
  watch    Build, then rebuild units whenever their files change
  expr     Compile a single ESTree expression node

Inputs are ESTree JSON files, such as the output of acorn with
sourceType "module". Directories are searched for *.json units.
"-" (or no input) reads one unit from stdin and prints the result.

Options:
  --config PATH      Path to config file (default: auto-detect)
  --mode MODE        packed (one formula) or unpacked (one per binding)
  --members MODE     nested (a.b.c) or two-level member flattening
  --out DIR          Write artifacts to DIR instead of next to each unit
  --manifest KIND    Export manifest: json, yaml, sqlite or off
  --print            Print artifacts to stdout instead of writing files
  --json             Report compile errors as JSON
  --quiet            Only log errors
  --version          Show version
  --help             Show this help

Artifacts:
  packed      <unit>.formula
  unpacked    <unit>.formulas.json  (bindings, then _main_)
  manifest    <unit>.exports.json or .exports.yaml, or the sqlite store

Config Resolution:
  1. --config flag
  2. JSXL_CONFIG environment variable
  3. ./jsxl.yaml
  4. built-in defaults

Examples:
  acorn --ecma2020 --module --locations calc.js > calc.json
  jsxl calc.json                     Write calc.formula and calc.exports.json
  jsxl --mode unpacked calc.json     Write calc.formulas.json
  jsxl --print - < calc.json         Print the packed formula
  jsxl check src/                    Compile everything under src/
  jsxl watch --manifest sqlite src/  Rebuild on change, manifests in SQLite

`)
}
