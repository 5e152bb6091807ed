package compiler

import (
	stderrors "errors"
	"sync"
	"testing"

	"github.com/sambeau/jsxl/pkg/jsxl/ast"
	"github.com/sambeau/jsxl/pkg/jsxl/errors"
)

func TestExpressions(t *testing.T) {
	tests := []struct {
		name     string
		node     ast.Node
		expected string
	}{
		{"identifier", id("total"), "total"},
		{"number literal keeps spelling", lit("1.50"), "1.50"},
		{"string literal keeps quotes", lit(`'abc'`), `'abc'`},
		{"binary", bin(id("x"), "+", lit("1")), "x + 1"},
		{"binary nested left", bin(bin(id("a"), "-", id("b")), "*", id("c")), "a - b * c"},
		{"comparison", bin(id("a"), ">=", lit("0")), "a >= 0"},
		{"conditional", cond(bin(id("a"), ">", lit("5")), lit("5"), id("a")), "IF(a > 5, 5, a)"},
		{"call", call(id("SUM"), id("a"), lit("2")), "SUM(a, 2)"},
		{"call without arguments", call(id("NOW")), "NOW()"},
		{"computed callee", call(call(id("make"), lit("1")), id("x")), "make(1)(x)"},
		{"member", member(id("obj"), id("prop")), "INDEX(obj, prop)"},
		{"member two levels", member(member(id("obj"), id("a")), id("b")), "INDEX(obj, a, b)"},
		{"computed member", &ast.MemberExpression{Object: id("rows"), Property: lit("2"), Computed: true}, "INDEX(rows, 2)"},
		{"sequence range", seq(id("A1"), id("B10")), "A1:B10"},
		{"arrow expression body", arrow(bin(id("x"), "+", lit("1")), "x"), "LAMBDA(x, x + 1)"},
		{"arrow no params", arrow(lit("42")), "LAMBDA(42)"},
		{"arrow block body", arrow(block(ret(id("x"))), "x"), "LAMBDA(x, x)"},
		{"expression statement", &ast.ExpressionStatement{Expression: id("x")}, "x"},
	}

	c := New(Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Expression(tt.node)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestMemberModes(t *testing.T) {
	chain := member(member(member(id("a"), id("b")), id("c")), id("d"))

	tests := []struct {
		mode     MemberMode
		node     ast.Node
		expected string
	}{
		{MembersNested, chain, "INDEX(a, b, c, d)"},
		{MembersTwoLevel, chain, "INDEX(INDEX(a, b), c, d)"},
		{MembersNested, member(id("a"), id("b")), "INDEX(a, b)"},
		{MembersTwoLevel, member(member(id("a"), id("b")), id("c")), "INDEX(a, b, c)"},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String()+"/"+tt.expected, func(t *testing.T) {
			got, err := New(Options{Members: tt.mode}).Expression(tt.node)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestParseMemberMode(t *testing.T) {
	tests := []struct {
		input    string
		expected MemberMode
		wantErr  bool
	}{
		{"", MembersNested, false},
		{"nested", MembersNested, false},
		{"two-level", MembersTwoLevel, false},
		{"Two-Level", MembersTwoLevel, false},
		{"deep", MembersNested, true},
	}
	for _, tt := range tests {
		got, err := ParseMemberMode(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("%q: unexpected error state: %v", tt.input, err)
		}
		if got != tt.expected {
			t.Errorf("%q: expected %v, got %v", tt.input, tt.expected, got)
		}
	}
}

func TestBlockHoisting(t *testing.T) {
	// let x = 1; let y = 2; return x + y
	body := block(
		decl("x", lit("1")),
		decl("y", lit("2")),
		ret(bin(id("x"), "+", id("y"))),
	)
	got, err := New(Options{}).Expression(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "LET(x, 1, y, 2, x + y)" {
		t.Errorf("unexpected formula %q", got)
	}
}

func TestBlockMultipleDeclarators(t *testing.T) {
	body := block(
		decl("a", lit("1"), "b", bin(id("a"), "*", lit("2"))),
		decl("c", id("b")),
		ret(id("c")),
	)
	got, err := New(Options{}).Expression(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "LET(a, 1, b, a * 2, c, b, c)" {
		t.Errorf("unexpected formula %q", got)
	}
}

func TestBlockWithoutBindings(t *testing.T) {
	got, err := New(Options{}).Expression(block(ret(call(id("SUM"), id("a")))))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "SUM(a)" {
		t.Errorf("unexpected formula %q", got)
	}
}

func TestBlockIgnoresEmptyStatements(t *testing.T) {
	got, err := New(Options{}).Expression(block(unknown("EmptyStatement", 1, 0), ret(id("x"))))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "x" {
		t.Errorf("unexpected formula %q", got)
	}
}

func TestCompileErrors(t *testing.T) {
	assign := &ast.AssignmentExpression{Left: id("x"), Operator: "=", Right: lit("2")}

	tests := []struct {
		name     string
		node     ast.Node
		sentinel error
		code     string
	}{
		{"assignment", assign, errors.ErrReassignment, "ASSIGN-0001"},
		{"nested assignment", arrow(bin(id("x"), "+", assign), "x"), errors.ErrReassignment, "ASSIGN-0001"},
		{"assignment statement in block",
			block(&ast.ExpressionStatement{Expression: assign}, ret(id("x"))),
			errors.ErrReassignment, "ASSIGN-0001"},
		{"loop", block(unknown("ForStatement", 3, 2), ret(id("x"))), errors.ErrUnsupportedNodeKind, "NODE-0001"},
		{"unknown expression", bin(unknown("UnaryExpression", 1, 4), "+", lit("1")), errors.ErrUnsupportedNodeKind, "NODE-0001"},
		{"pattern parameter",
			&ast.ArrowFunctionExpression{Params: []ast.Node{unknown("ObjectPattern", 1, 1)}, Body: id("x")},
			errors.ErrUnsupportedNodeKind, "NODE-0002"},
		{"two returns", block(ret(id("a")), ret(id("b"))), errors.ErrUnsupportedControlFlow, "FLOW-0002"},
		{"no return", block(decl("a", lit("1"))), errors.ErrUnsupportedControlFlow, "FLOW-0001"},
		{"bare return", block(&ast.ReturnStatement{}), errors.ErrUnsupportedControlFlow, "FLOW-0001"},
		{"expression statement in block",
			block(&ast.ExpressionStatement{Expression: call(id("f"))}, ret(id("x"))),
			errors.ErrUnsupportedControlFlow, "FLOW-0003"},
		{"declaration after return", block(ret(id("a")), decl("b", lit("1"))), errors.ErrUnsupportedControlFlow, "FLOW-0004"},
		{"declaration as expression", decl("a", lit("1")), errors.ErrUnsupportedControlFlow, "FLOW-0003"},
		{"strict equality", bin(id("a"), "===", id("b")), errors.ErrUnsupportedOperator, "OP-0001"},
		{"duplicate binding", block(decl("a", lit("1")), decl("a", lit("2")), ret(id("a"))), errors.ErrBinding, "BIND-0001"},
		{"missing initializer",
			block(&ast.VariableDeclaration{DeclKind: "let", Declarations: []*ast.VariableDeclarator{{ID: id("a")}}}, ret(id("a"))),
			errors.ErrBinding, "BIND-0002"},
		{"destructuring",
			block(&ast.VariableDeclaration{DeclKind: "const", Declarations: []*ast.VariableDeclarator{{ID: unknown("ArrayPattern", 1, 6), Init: id("r")}}}, ret(id("a"))),
			errors.ErrBinding, "BIND-0003"},
	}

	c := New(Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Expression(tt.node)
			if err == nil {
				t.Fatalf("expected error, got formula %q", got)
			}
			if got != "" {
				t.Errorf("expected no output on error, got %q", got)
			}
			if !stderrors.Is(err, tt.sentinel) {
				t.Errorf("expected %v, got %v", tt.sentinel, err)
			}
			var ce *errors.CompileError
			if !stderrors.As(err, &ce) {
				t.Fatalf("expected *CompileError, got %T", err)
			}
			if ce.Code != tt.code {
				t.Errorf("expected code %s, got %s (%v)", tt.code, ce.Code, err)
			}
		})
	}
}

func TestUnsupportedNodeKindReportsKindAndPosition(t *testing.T) {
	_, err := New(Options{}).Expression(block(unknown("WhileStatement", 7, 4), ret(id("x"))))

	var ce *errors.CompileError
	if !stderrors.As(err, &ce) {
		t.Fatalf("expected *CompileError, got %v", err)
	}
	if ce.Kind != "WhileStatement" {
		t.Errorf("expected kind WhileStatement, got %q", ce.Kind)
	}
	if ce.Line != 7 || ce.Column != 4 {
		t.Errorf("expected position 7:4, got %d:%d", ce.Line, ce.Column)
	}
	if len(ce.Hints) == 0 {
		t.Error("expected a hint for loops")
	}
}

func TestCompileProgram(t *testing.T) {
	unit, err := New(Options{}).Compile(sampleProgram())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(unit.Bindings) != 1 || unit.Bindings[0].Name != "addX" {
		t.Fatalf("unexpected bindings %+v", unit.Bindings)
	}
	if unit.Bindings[0].Formula != "LAMBDA(num, x, num + x)" {
		t.Errorf("unexpected binding formula %q", unit.Bindings[0].Formula)
	}

	wantMain := "LAMBDA(arr, num, x, LET(clampedX, IF(x > 5, 5, x), " +
		"summedVals, MAP(arr, LAMBDA(item, addX(item, num))), " +
		"MAP(summedVals, LAMBDA(item, item * clampedX))))"
	if unit.Main != wantMain {
		t.Errorf("unexpected main:\n  want %s\n  got  %s", wantMain, unit.Main)
	}

	if len(unit.Exports) != 1 {
		t.Fatalf("expected 1 export, got %d", len(unit.Exports))
	}
	wantLen := "LET(addX, LAMBDA(num, x, num + x), LAMBDA(arr, addX(1, 2)))"
	if unit.Exports[0].Name != "LEN" || unit.Exports[0].Formula != wantLen {
		t.Errorf("unexpected export %+v", unit.Exports[0])
	}
}

func TestCompileProgramDuplicatesBindingsPerExport(t *testing.T) {
	prog := program(
		decl("rate", lit("0.2")),
		exportNamed(decl("TAX", arrow(bin(id("v"), "*", id("rate")), "v"))),
		exportNamed(decl("NET", arrow(bin(id("v"), "-", call(id("TAX"), id("v"))), "v"))),
		exportDefault(id("rate")),
	)
	unit, err := New(Options{}).Compile(prog)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if unit.Main != "rate" {
		t.Errorf("main must not be wrapped by the compiler, got %q", unit.Main)
	}
	want := []Export{
		{"TAX", "LET(rate, 0.2, LAMBDA(v, v * rate))"},
		{"NET", "LET(rate, 0.2, LAMBDA(v, v - TAX(v)))"},
	}
	if len(unit.Exports) != len(want) {
		t.Fatalf("expected %d exports, got %d", len(want), len(unit.Exports))
	}
	for i := range want {
		if unit.Exports[i] != want[i] {
			t.Errorf("export %d: expected %+v, got %+v", i, want[i], unit.Exports[i])
		}
	}
}

func TestCompileProgramErrors(t *testing.T) {
	tests := []struct {
		name string
		prog *ast.Program
		code string
	}{
		{"no default export", program(decl("a", lit("1"))), "EXPORT-0002"},
		{"two default exports", program(exportDefault(id("a")), exportDefault(id("b"))), "EXPORT-0003"},
		{"duplicate named export", program(
			exportNamed(decl("A", lit("1"))),
			exportNamed(decl("A", lit("2"))),
			exportDefault(id("A"))), "EXPORT-0004"},
		{"specifier export", program(&ast.ExportNamedDeclaration{}, exportDefault(id("a"))), "EXPORT-0001"},
		{"duplicate module binding", program(decl("a", lit("1")), decl("a", lit("2")), exportDefault(id("a"))), "BIND-0001"},
		{"top-level loop", program(unknown("ForStatement", 2, 0), exportDefault(id("a"))), "NODE-0001"},
		{"top-level call", program(&ast.ExpressionStatement{Expression: call(id("f"))}, exportDefault(id("a"))), "FLOW-0003"},
		{"reassignment in export", program(exportDefault(&ast.AssignmentExpression{Left: id("a"), Operator: "=", Right: lit("1")})), "ASSIGN-0001"},
	}

	c := New(Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unit, err := c.Compile(tt.prog)
			if err == nil {
				t.Fatalf("expected error, got %+v", unit)
			}
			if unit != nil {
				t.Errorf("expected no unit on error")
			}
			var ce *errors.CompileError
			if !stderrors.As(err, &ce) || ce.Code != tt.code {
				t.Errorf("expected %s, got %v", tt.code, err)
			}
		})
	}
}

func TestCompileNilProgram(t *testing.T) {
	if _, err := New(Options{}).Compile(nil); !stderrors.Is(err, errors.ErrMalformedTree) {
		t.Errorf("expected malformed tree error, got %v", err)
	}
}

func TestCompileIsDeterministic(t *testing.T) {
	c := New(Options{})
	first, err := c.Compile(sampleProgram())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := c.Compile(sampleProgram())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if again.Main != first.Main || Let(again.Bindings, "") != Let(first.Bindings, "") {
			t.Fatalf("compile %d differs from the first", i)
		}
	}
}

func TestConcurrentCompiles(t *testing.T) {
	c := New(Options{})
	want, err := c.Compile(sampleProgram())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var wg sync.WaitGroup
	results := make([]string, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			unit, err := c.Compile(sampleProgram())
			if err == nil {
				results[i] = unit.Main
			}
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		if got != want.Main {
			t.Errorf("goroutine %d: expected %q, got %q", i, want.Main, got)
		}
	}
}

func TestLet(t *testing.T) {
	if got := Let(nil, "x"); got != "x" {
		t.Errorf("expected bare body, got %q", got)
	}
	got := Let([]Binding{{"a", "1"}, {"b", "a + 1"}}, "b")
	if got != "LET(a, 1, b, a + 1, b)" {
		t.Errorf("unexpected LET %q", got)
	}
}
