// Package driver turns compiled units into spreadsheet-ready artifacts.
//
// A unit compiles either packed, as one formula with every module binding
// folded into a LET, or unpacked, as one named formula per binding plus an
// entry formula under MainName. Named exports always produce a manifest.
package driver

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/sambeau/jsxl/pkg/jsxl/ast"
	"github.com/sambeau/jsxl/pkg/jsxl/compiler"
	"github.com/sambeau/jsxl/pkg/jsxl/errors"
	"github.com/sambeau/jsxl/pkg/jsxl/estree"
)

// MainName keys the entry formula in unpacked output.
const MainName = "_main_"

// Mode selects the output shape.
type Mode int

const (
	ModePacked Mode = iota
	ModeUnpacked
)

// ParseMode parses "packed" (the default) or "unpacked".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "packed":
		return ModePacked, nil
	case "unpacked":
		return ModeUnpacked, nil
	}
	return ModePacked, fmt.Errorf("unknown mode %q (must be packed or unpacked)", s)
}

func (m Mode) String() string {
	if m == ModeUnpacked {
		return "unpacked"
	}
	return "packed"
}

// Options configures a compile.
type Options struct {
	Mode    Mode
	Members compiler.MemberMode
	Workers int    // CompileAll parallelism; <= 0 means one per CPU
	Logger  Logger // nil discards
}

func (o Options) logger() Logger {
	if o.Logger == nil {
		return NullLogger()
	}
	return o.Logger
}

// Output is the result of compiling one unit.
type Output struct {
	Mode     Mode
	Packed   string   // ModePacked only
	Unpacked Formulas // ModeUnpacked only
	Manifest Formulas // named exports, in source order
	Unit     *compiler.Unit
}

// Main returns the entry formula for either mode.
func (o *Output) Main() string {
	if o.Mode == ModeUnpacked {
		main, _ := o.Unpacked.Get(MainName)
		return main
	}
	return o.Packed
}

// Compile compiles prog. Any error is fatal to the unit.
func Compile(prog *ast.Program, opts Options) (*Output, error) {
	unit, err := compiler.New(compiler.Options{Members: opts.Members}).Compile(prog)
	if err != nil {
		return nil, err
	}

	out := &Output{Mode: opts.Mode, Unit: unit}
	for _, exp := range unit.Exports {
		out.Manifest = append(out.Manifest, Formula{Name: exp.Name, Text: "=" + exp.Formula})
	}

	switch opts.Mode {
	case ModeUnpacked:
		for _, b := range unit.Bindings {
			if b.Name == MainName {
				return nil, errors.NewWithPosition("BIND-0004", prog.Pos().Line, prog.Pos().Column,
					map[string]any{"Name": b.Name})
			}
			out.Unpacked = append(out.Unpacked, Formula{Name: b.Name, Text: "=" + b.Formula})
		}
		out.Unpacked = append(out.Unpacked, Formula{Name: MainName, Text: "=" + unit.Main})
	default:
		out.Packed = "=" + compiler.Let(unit.Bindings, unit.Main)
	}
	return out, nil
}

// CompileFile decodes the ESTree JSON at path and compiles it.
func CompileFile(path string, opts Options) (*Output, error) {
	prog, err := estree.DecodeFile(path)
	if err != nil {
		return nil, err
	}
	out, err := Compile(prog, opts)
	if err != nil {
		if ce, ok := err.(*errors.CompileError); ok {
			return nil, ce.WithFile(path)
		}
		return nil, err
	}
	return out, nil
}

// ResultFunc receives each unit's outcome. Calls are serialized. Returning
// an error stops the batch.
type ResultFunc func(path string, out *Output, err error) error

// CompileAll compiles independent units in parallel. Per-unit compile errors
// go to fn and do not stop the batch. Cancellation is observed between
// units, never inside one.
func CompileAll(ctx context.Context, paths []string, opts Options, fn ResultFunc) error {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	log := opts.logger()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var mu sync.Mutex
	for _, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := CompileFile(path, opts)
			if err != nil {
				log.Debugf("failed %s", path)
			} else {
				log.Debugf("compiled %s (%s, %d exports)", path, opts.Mode, len(out.Manifest))
			}

			mu.Lock()
			defer mu.Unlock()
			return fn(path, out, err)
		})
	}
	return g.Wait()
}
