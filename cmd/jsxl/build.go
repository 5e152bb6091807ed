package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sambeau/jsxl/config"
	"github.com/sambeau/jsxl/pkg/jsxl/compiler"
	"github.com/sambeau/jsxl/pkg/jsxl/driver"
	jsxlerrors "github.com/sambeau/jsxl/pkg/jsxl/errors"
	"github.com/sambeau/jsxl/pkg/jsxl/estree"
	"github.com/sambeau/jsxl/pkg/jsxl/store"
	"github.com/sambeau/jsxl/pkg/jsxl/watch"
)

const stdinName = "-"

// builder runs one CLI command over a set of units.
type builder struct {
	cfg    *config.Config
	opts   driver.Options
	log    driver.Logger
	store  store.Store // nil when manifests are off or nothing is written
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	print      bool
	jsonErrors bool
}

// emitFunc handles one successfully compiled unit.
type emitFunc func(ctx context.Context, path string, out *driver.Output) error

func (b *builder) build(ctx context.Context, args []string) error {
	inputs, err := expandInputs(args)
	if err != nil {
		return err
	}
	if !b.print {
		if err := b.openStore(); err != nil {
			return err
		}
		defer b.closeStore()
	}
	return b.runUnits(ctx, inputs, b.emit)
}

func (b *builder) check(ctx context.Context, args []string) error {
	inputs, err := expandInputs(args)
	if err != nil {
		return err
	}
	return b.runUnits(ctx, inputs, func(_ context.Context, path string, out *driver.Output) error {
		fmt.Fprintf(b.stdout, "ok   %s (%d exports)\n", displayName(path), len(out.Manifest))
		return nil
	})
}

func (b *builder) watch(ctx context.Context, args []string) error {
	dirs := args
	if len(dirs) == 0 {
		dirs = []string{"."}
	}
	var units []string
	for _, dir := range dirs {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("watch: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("watch: %s is not a directory", dir)
		}
		found, err := findUnits(dir)
		if err != nil {
			return err
		}
		units = append(units, found...)
	}

	if err := b.openStore(); err != nil {
		return err
	}
	defer b.closeStore()

	// Initial build; failures are reported and watching continues.
	if _, err := b.compileFiles(ctx, units, b.emit); err != nil {
		return err
	}

	w, err := watch.New(dirs, watch.Options{Debounce: b.cfg.Watch.Debounce, Logger: b.log},
		func(ctx context.Context, path string) {
			if _, err := b.compileFiles(ctx, []string{path}, b.emit); err != nil {
				b.log.Errorf("rebuilding %s: %v", path, err)
			}
		})
	if err != nil {
		return err
	}
	b.log.Infof("watching for changes (Ctrl+C to stop)")
	return w.Run(ctx)
}

func (b *builder) expr(args []string) error {
	var data []byte
	var err error
	switch {
	case len(args) == 0 || (len(args) == 1 && args[0] == stdinName):
		data, err = io.ReadAll(b.stdin)
	case len(args) == 1:
		data, err = os.ReadFile(args[0])
	default:
		return fmt.Errorf("expr takes a single input, got %d", len(args))
	}
	if err != nil {
		return fmt.Errorf("reading expression: %w", err)
	}

	node, err := estree.DecodeNode(data)
	if err == nil {
		var formula string
		formula, err = compiler.New(compiler.Options{Members: b.opts.Members}).Expression(node)
		if err == nil {
			fmt.Fprintln(b.stdout, "="+formula)
			return nil
		}
	}
	b.report(err)
	return fmt.Errorf("expression failed to compile")
}

// runUnits compiles stdin and file units and fails if any unit failed.
func (b *builder) runUnits(ctx context.Context, inputs []string, emit emitFunc) error {
	var files []string
	failed := 0
	for _, in := range inputs {
		if in != stdinName {
			files = append(files, in)
			continue
		}
		if err := b.compileStdin(ctx, emit); err != nil {
			b.report(err)
			failed++
		}
	}

	n, err := b.compileFiles(ctx, files, emit)
	if err != nil {
		return err
	}
	failed += n

	if failed > 0 {
		return fmt.Errorf("%d of %d units failed", failed, len(inputs))
	}
	return nil
}

func (b *builder) compileStdin(ctx context.Context, emit emitFunc) error {
	prog, err := estree.DecodeReader(b.stdin)
	if err != nil {
		return err
	}
	out, err := driver.Compile(prog, b.opts)
	if err != nil {
		return err
	}
	return emit(ctx, stdinName, out)
}

// compileFiles compiles files in parallel, then emits and reports them in
// input order. It returns the number of failed units.
func (b *builder) compileFiles(ctx context.Context, files []string, emit emitFunc) (int, error) {
	type result struct {
		out *driver.Output
		err error
	}
	results := make(map[string]result, len(files))
	err := driver.CompileAll(ctx, files, b.opts, func(path string, out *driver.Output, err error) error {
		results[path] = result{out, err}
		return nil
	})
	if err != nil {
		return 0, err
	}

	failed := 0
	for _, path := range files {
		r := results[path]
		err := r.err
		if err == nil {
			err = emit(ctx, path, r.out)
		}
		if err != nil {
			b.report(err)
			failed++
		}
	}
	return failed, nil
}

// emit writes a unit's artifact and manifest, or prints them with --print.
func (b *builder) emit(ctx context.Context, path string, out *driver.Output) error {
	if b.print || path == stdinName {
		return b.printOutput(out)
	}

	artifact, data, err := b.artifact(path, out)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(artifact), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(artifact, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", artifact, err)
	}
	b.log.Infof("built %s -> %s", path, artifact)

	if b.store != nil {
		if err := b.store.Save(ctx, path, out.Manifest); err != nil {
			return fmt.Errorf("saving manifest: %w", err)
		}
		b.log.Debugf("saved %d exports for %s", len(out.Manifest), path)
	}
	return nil
}

// artifact returns the output path and contents for a compiled unit.
func (b *builder) artifact(path string, out *driver.Output) (string, []byte, error) {
	if out.Mode == driver.ModeUnpacked {
		data, err := out.Unpacked.Encode(driver.FormatJSON)
		if err != nil {
			return "", nil, fmt.Errorf("encoding %s: %w", path, err)
		}
		return b.outputPath(path, ".formulas.json"), data, nil
	}
	return b.outputPath(path, ".formula"), []byte(out.Packed + "\n"), nil
}

func (b *builder) outputPath(unit, ext string) string {
	base := strings.TrimSuffix(unit, filepath.Ext(unit)) + ext
	if b.cfg.OutDir != "" {
		return filepath.Join(b.cfg.OutDir, filepath.Base(base))
	}
	return base
}

func (b *builder) printOutput(out *driver.Output) error {
	if out.Mode == driver.ModeUnpacked {
		data, err := out.Unpacked.Encode(driver.FormatJSON)
		if err != nil {
			return err
		}
		_, err = b.stdout.Write(data)
		return err
	}
	_, err := fmt.Fprintln(b.stdout, out.Packed)
	return err
}

// openStore opens the manifest store. It stays nil when manifests are off.
func (b *builder) openStore() error {
	if !b.cfg.Manifest.Enabled {
		return nil
	}
	s, err := store.Open(b.cfg.Manifest, b.cfg.OutDir)
	if err != nil {
		return fmt.Errorf("opening manifest store: %w", err)
	}
	b.store = s
	return nil
}

func (b *builder) closeStore() {
	if b.store == nil {
		return
	}
	if err := b.store.Close(); err != nil {
		b.log.Errorf("closing manifest store: %v", err)
	}
}

// report prints a unit failure to stderr.
func (b *builder) report(err error) {
	var ce *jsxlerrors.CompileError
	if errors.As(err, &ce) {
		if b.jsonErrors {
			if data, jerr := ce.ToJSON(); jerr == nil {
				fmt.Fprintln(b.stderr, string(data))
				return
			}
		}
		fmt.Fprintln(b.stderr, ce.PrettyString())
		return
	}
	fmt.Fprintf(b.stderr, "error: %v\n", err)
}

// expandInputs turns CLI arguments into units. Directories contribute every
// unit below them; no arguments means stdin.
func expandInputs(args []string) ([]string, error) {
	if len(args) == 0 {
		return []string{stdinName}, nil
	}
	var inputs []string
	for _, arg := range args {
		if arg == stdinName {
			inputs = append(inputs, arg)
			continue
		}
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("reading input: %w", err)
		}
		if !info.IsDir() {
			inputs = append(inputs, arg)
			continue
		}
		found, err := findUnits(arg)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, found...)
	}
	return inputs, nil
}

// findUnits lists units below root in lexical order, skipping hidden
// directories and jsxl's own artifacts.
func findUnits(root string) ([]string, error) {
	var units []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if watch.IsUnit(path) {
			units = append(units, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", root, err)
	}
	return units, nil
}

func displayName(path string) string {
	if path == stdinName {
		return "<stdin>"
	}
	return path
}
