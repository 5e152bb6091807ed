package driver

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sambeau/jsxl/pkg/jsxl/ast"
	"github.com/sambeau/jsxl/pkg/jsxl/errors"
)

const (
	sampleAddX = "LAMBDA(num, x, num + x)"
	sampleMain = "LAMBDA(arr, num, x, LET(clampedX, IF(x > 5, 5, x), " +
		"summedVals, MAP(arr, LAMBDA(item, addX(item, num))), " +
		"MAP(summedVals, LAMBDA(item, item * clampedX))))"
	sampleLen = "=LET(addX, " + sampleAddX + ", LAMBDA(arr, addX(1, 2)))"
)

var samplePath = filepath.Join("testdata", "sample.json")

func TestCompilePacked(t *testing.T) {
	out, err := CompileFile(samplePath, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "=LET(addX, " + sampleAddX + ", " + sampleMain + ")"
	if out.Packed != want {
		t.Errorf("unexpected packed output:\n  want %s\n  got  %s", want, out.Packed)
	}
	if out.Main() != want {
		t.Errorf("Main() should return the packed formula")
	}
	if out.Unpacked != nil {
		t.Errorf("expected no unpacked output, got %v", out.Unpacked)
	}
}

func TestCompileUnpacked(t *testing.T) {
	out, err := CompileFile(samplePath, Options{Mode: ModeUnpacked})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	names := out.Unpacked.Names()
	if strings.Join(names, ",") != "addX,_main_" {
		t.Fatalf("unexpected names %v", names)
	}
	if got, _ := out.Unpacked.Get("addX"); got != "="+sampleAddX {
		t.Errorf("unexpected addX %q", got)
	}
	if out.Main() != "="+sampleMain {
		t.Errorf("entry formula must not be LET-wrapped, got %q", out.Main())
	}
	if out.Packed != "" {
		t.Errorf("expected no packed output, got %q", out.Packed)
	}
}

func TestCompileManifest(t *testing.T) {
	for _, mode := range []Mode{ModePacked, ModeUnpacked} {
		t.Run(mode.String(), func(t *testing.T) {
			out, err := CompileFile(samplePath, Options{Mode: mode})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			data, err := out.Manifest.MarshalJSON()
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			want := `{"LEN":"` + sampleLen + `"}`
			if string(data) != want {
				t.Errorf("unexpected manifest:\n  want %s\n  got  %s", want, data)
			}
		})
	}
}

func TestCompileWithoutBindings(t *testing.T) {
	prog := &ast.Program{Body: []ast.Node{
		&ast.ExportDefaultDeclaration{Declaration: &ast.Identifier{Name: "A1"}},
	}}
	out, err := Compile(prog, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Packed != "=A1" {
		t.Errorf("expected =A1, got %q", out.Packed)
	}
	if len(out.Manifest) != 0 {
		t.Errorf("expected empty manifest, got %v", out.Manifest)
	}
}

func TestCompileReservedMainName(t *testing.T) {
	prog := &ast.Program{Body: []ast.Node{
		&ast.VariableDeclaration{DeclKind: "const", Declarations: []*ast.VariableDeclarator{
			{ID: &ast.Identifier{Name: MainName}, Init: &ast.Literal{Raw: "1"}},
		}},
		&ast.ExportDefaultDeclaration{Declaration: &ast.Identifier{Name: MainName}},
	}}

	if _, err := Compile(prog, Options{}); err != nil {
		t.Fatalf("packed mode should accept %s: %v", MainName, err)
	}
	_, err := Compile(prog, Options{Mode: ModeUnpacked})
	var ce *errors.CompileError
	if !stderrors.As(err, &ce) || ce.Code != "BIND-0004" {
		t.Errorf("expected BIND-0004, got %v", err)
	}
}

func TestCompileFileErrorsCarryPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	src := `{"type":"Program","body":[{"type":"ExportDefaultDeclaration","declaration":` +
		`{"type":"AssignmentExpression","operator":"=","left":{"type":"Identifier","name":"a"},` +
		`"right":{"type":"Literal","raw":"1"}}}]}`
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := CompileFile(path, Options{})
	if !stderrors.Is(err, errors.ErrReassignment) {
		t.Fatalf("expected reassignment error, got %v", err)
	}
	var ce *errors.CompileError
	if !stderrors.As(err, &ce) || ce.File != path {
		t.Errorf("expected file %s on error, got %v", path, err)
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		input   string
		want    Mode
		wantErr bool
	}{
		{"", ModePacked, false},
		{"packed", ModePacked, false},
		{"Unpacked", ModeUnpacked, false},
		{"split", ModePacked, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMode(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMode(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseMode(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestCompileAll(t *testing.T) {
	dir := t.TempDir()
	sample, err := os.ReadFile(samplePath)
	if err != nil {
		t.Fatal(err)
	}
	var paths []string
	for _, name := range []string{"a.json", "b.json", "c.json"} {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, sample, 0644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}
	broken := filepath.Join(dir, "broken.json")
	if err := os.WriteFile(broken, []byte(`{"type":`), 0644); err != nil {
		t.Fatal(err)
	}
	paths = append(paths, broken)

	log := NewBufferedLogger()
	results := map[string]error{}
	outputs := map[string]*Output{}
	err = CompileAll(context.Background(), paths, Options{Workers: 2, Logger: log}, func(path string, out *Output, err error) error {
		results[path] = err
		outputs[path] = out
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected batch error: %v", err)
	}

	if len(results) != len(paths) {
		t.Fatalf("expected %d results, got %d", len(paths), len(results))
	}
	for _, p := range paths[:3] {
		if results[p] != nil {
			t.Errorf("%s: unexpected error %v", p, results[p])
		}
		if outputs[p] == nil || !strings.HasPrefix(outputs[p].Packed, "=LET(") {
			t.Errorf("%s: unexpected output %+v", p, outputs[p])
		}
	}
	if !stderrors.Is(results[broken], errors.ErrMalformedTree) {
		t.Errorf("expected malformed tree for %s, got %v", broken, results[broken])
	}
	if len(log.Lines()) != len(paths) {
		t.Errorf("expected one debug line per unit, got %v", log.Lines())
	}
}

func TestCompileAllStopsOnCallbackError(t *testing.T) {
	stop := stderrors.New("stop")
	err := CompileAll(context.Background(), []string{samplePath, samplePath}, Options{Workers: 1},
		func(string, *Output, error) error { return stop })
	if !stderrors.Is(err, stop) {
		t.Errorf("expected callback error, got %v", err)
	}
}

func TestCompileAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := CompileAll(ctx, []string{samplePath}, Options{}, func(string, *Output, error) error {
		called = true
		return nil
	})
	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if called {
		t.Error("callback must not run after cancellation")
	}
}

func TestWriterLoggerLevels(t *testing.T) {
	var stdout, stderr bytes.Buffer
	log := WriterLogger(&stdout, &stderr, LevelInfo)
	log.Debugf("hidden")
	log.Infof("compiled %d units", 2)
	log.Warnf("slow")
	log.Errorf("failed")

	if stdout.String() != "[INFO] compiled 2 units\n" {
		t.Errorf("unexpected stdout %q", stdout.String())
	}
	if stderr.String() != "[WARN] slow\n[ERROR] failed\n" {
		t.Errorf("unexpected stderr %q", stderr.String())
	}

	stdout.Reset()
	stderr.Reset()
	quiet := WriterLogger(&stdout, &stderr, LevelQuiet)
	quiet.Errorf("nothing")
	if stdout.Len()+stderr.Len() != 0 {
		t.Error("quiet logger must not write")
	}
}

func TestParseLevel(t *testing.T) {
	for input, want := range map[string]Level{
		"":      LevelInfo,
		"debug": LevelDebug,
		"WARN":  LevelWarn,
		"error": LevelError,
		"quiet": LevelQuiet,
	} {
		got, err := ParseLevel(input)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", input, got, err, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}
