// Package compiler lowers a JavaScript node tree into spreadsheet formula text.
//
// Every node kind has one translation rule. A converter is created per
// compile and threaded explicitly through the rules, so independent compiles
// share nothing and may run concurrently. Local declarations are hoisted into
// ordered binding lists returned alongside the converted expression.
package compiler

import (
	"fmt"
	"strings"

	"github.com/sambeau/jsxl/pkg/jsxl/ast"
	"github.com/sambeau/jsxl/pkg/jsxl/errors"
)

// MemberMode selects how chained property access is lowered to INDEX.
type MemberMode int

const (
	// MembersNested flattens a whole chain: a.b.c.d -> INDEX(a, b, c, d).
	MembersNested MemberMode = iota
	// MembersTwoLevel flattens exactly one extra level:
	// a.b.c.d -> INDEX(INDEX(a, b), c, d).
	MembersTwoLevel
)

// ParseMemberMode parses "nested" or "two-level". The empty string is nested.
func ParseMemberMode(s string) (MemberMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "nested":
		return MembersNested, nil
	case "two-level", "twolevel":
		return MembersTwoLevel, nil
	}
	return MembersNested, fmt.Errorf("unknown member mode %q (must be nested or two-level)", s)
}

func (m MemberMode) String() string {
	if m == MembersTwoLevel {
		return "two-level"
	}
	return "nested"
}

// Options configures a Compiler.
type Options struct {
	Members MemberMode
}

// Compiler is immutable once built and safe for concurrent use.
type Compiler struct {
	opts Options
}

// New returns a Compiler with the given options.
func New(opts Options) *Compiler {
	return &Compiler{opts: opts}
}

// Compile lowers a whole compilation unit. Any error aborts the compile and
// no partial unit is returned.
func (c *Compiler) Compile(prog *ast.Program) (*Unit, error) {
	if prog == nil {
		return nil, errors.New("TREE-0001", map[string]any{"Reason": "no program"})
	}
	conv := &converter{opts: c.opts}
	return conv.program(prog)
}

// Expression lowers a single expression-level node, including arrow
// functions and expression statements.
func (c *Compiler) Expression(node ast.Node) (string, error) {
	conv := &converter{opts: c.opts}
	return conv.convert(node)
}

// converter is the per-compile traversal capability. It holds only
// read-only options; hoisted bindings travel as return values.
type converter struct {
	opts Options
}

// convert resolves a node to its translation rule.
func (c *converter) convert(node ast.Node) (string, error) {
	switch n := node.(type) {
	case nil:
		return "", errors.New("TREE-0001", map[string]any{"Reason": "missing node"})
	case *ast.Identifier:
		return c.identifier(n)
	case *ast.Literal:
		return c.literal(n)
	case *ast.BinaryExpression:
		return c.binary(n)
	case *ast.ConditionalExpression:
		return c.conditional(n)
	case *ast.CallExpression:
		return c.call(n)
	case *ast.MemberExpression:
		return c.member(n)
	case *ast.SequenceExpression:
		return c.sequence(n)
	case *ast.ArrowFunctionExpression:
		return c.arrow(n)
	case *ast.BlockStatement:
		return c.block(n)
	case *ast.ReturnStatement:
		return c.returnStatement(n)
	case *ast.ExpressionStatement:
		return c.convert(n.Expression)
	case *ast.AssignmentExpression:
		return "", c.assignment(n)
	case *ast.ExportDefaultDeclaration:
		return c.convert(n.Declaration)
	case *ast.VariableDeclaration, *ast.VariableDeclarator,
		*ast.ExportNamedDeclaration, *ast.Program:
		return "", fail("FLOW-0003", n, map[string]any{
			"Kind":  string(n.Kind()),
			"Where": "expression position",
		})
	default:
		return "", unsupported(node)
	}
}

// convertAll converts nodes in order.
func (c *converter) convertAll(nodes []ast.Node) ([]string, error) {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		s, err := c.convert(n)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// kindHints suggest formula-friendly rewrites for common unsupported kinds.
var kindHints = map[string]string{
	"ForStatement":        "use MAP, REDUCE or SCAN with a LAMBDA instead of a loop",
	"ForOfStatement":      "use MAP, REDUCE or SCAN with a LAMBDA instead of a loop",
	"ForInStatement":      "use MAP, REDUCE or SCAN with a LAMBDA instead of a loop",
	"WhileStatement":      "use MAP, REDUCE or SCAN with a LAMBDA instead of a loop",
	"DoWhileStatement":    "use MAP, REDUCE or SCAN with a LAMBDA instead of a loop",
	"IfStatement":         "use a conditional expression: return test ? a : b",
	"FunctionDeclaration": "use an arrow function: const f = (x) => ...",
	"FunctionExpression":  "use an arrow function: (x) => ...",
	"LogicalExpression":   "use AND(a, b) or OR(a, b)",
	"UnaryExpression":     "write the operation as a binary expression, e.g. 0 - x",
	"UpdateExpression":    "declare a new name: const next = x + 1",
	"TemplateLiteral":     "use CONCAT(...)",
	"ClassDeclaration":    "classes have no formula equivalent",
	"AwaitExpression":     "formulas are evaluated synchronously",
}

// unsupported builds the NODE-0001 error for a node with no translation rule.
func unsupported(node ast.Node) *errors.CompileError {
	kind := string(node.Kind())
	data := map[string]any{"Kind": kind}
	if hint, ok := kindHints[kind]; ok {
		data["Hint"] = hint
	}
	return fail("NODE-0001", node, data)
}

// fail creates a catalog error positioned at node.
func fail(code string, node ast.Node, data map[string]any) *errors.CompileError {
	if node == nil {
		return errors.New(code, data)
	}
	pos := node.Pos()
	return errors.NewWithPosition(code, pos.Line, pos.Column, data)
}
