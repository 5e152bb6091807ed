// Package ast defines the closed set of JavaScript node kinds the formula
// compiler understands.
//
// Trees are produced outside this module (usually by decoding the ESTree JSON
// an external parser emits, see package estree) and are treated as immutable.
// Nodes carry data only; all translation lives in package compiler.
package ast

import (
	"bytes"
	"fmt"
	"strings"
)

// Kind is the ESTree "type" name of a node.
type Kind string

const (
	KindIdentifier               Kind = "Identifier"
	KindLiteral                  Kind = "Literal"
	KindBinaryExpression         Kind = "BinaryExpression"
	KindConditionalExpression    Kind = "ConditionalExpression"
	KindCallExpression           Kind = "CallExpression"
	KindMemberExpression         Kind = "MemberExpression"
	KindSequenceExpression       Kind = "SequenceExpression"
	KindArrowFunctionExpression  Kind = "ArrowFunctionExpression"
	KindBlockStatement           Kind = "BlockStatement"
	KindVariableDeclaration      Kind = "VariableDeclaration"
	KindVariableDeclarator       Kind = "VariableDeclarator"
	KindReturnStatement          Kind = "ReturnStatement"
	KindExpressionStatement      Kind = "ExpressionStatement"
	KindAssignmentExpression     Kind = "AssignmentExpression"
	KindExportDefaultDeclaration Kind = "ExportDefaultDeclaration"
	KindExportNamedDeclaration   Kind = "ExportNamedDeclaration"
	KindProgram                  Kind = "Program"
)

// Position locates a node in the original source. Line and Column are
// 1-based; Start and End are byte offsets. The zero value means unknown.
type Position struct {
	Line   int
	Column int
	Start  int
	End    int
}

// IsValid reports whether the position carries line information.
func (p Position) IsValid() bool {
	return p.Line > 0
}

func (p Position) String() string {
	if !p.IsValid() {
		return "-"
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Span is embedded in every node to carry its position.
type Span struct {
	Loc Position
}

// Pos returns the node's source position.
func (s Span) Pos() Position { return s.Loc }

// Node represents any node in the tree
type Node interface {
	Kind() Kind
	Pos() Position
	String() string
	node()
}

// Program represents the root of a compilation unit
type Program struct {
	Span
	Body []Node
}

func (p *Program) node()      {}
func (p *Program) Kind() Kind { return KindProgram }
func (p *Program) String() string {
	var out bytes.Buffer
	for i, s := range p.Body {
		if i > 0 {
			out.WriteString("\n")
		}
		out.WriteString(s.String())
	}
	return out.String()
}

// Identifier is a bare name reference
type Identifier struct {
	Span
	Name string
}

func (i *Identifier) node()          {}
func (i *Identifier) Kind() Kind     { return KindIdentifier }
func (i *Identifier) String() string { return i.Name }

// Literal is a string or number exactly as written in source
type Literal struct {
	Span
	Raw string
}

func (l *Literal) node()          {}
func (l *Literal) Kind() Kind     { return KindLiteral }
func (l *Literal) String() string { return l.Raw }

// BinaryExpression represents `left operator right`
type BinaryExpression struct {
	Span
	Left     Node
	Operator string
	Right    Node
}

func (b *BinaryExpression) node()      {}
func (b *BinaryExpression) Kind() Kind { return KindBinaryExpression }
func (b *BinaryExpression) String() string {
	return "(" + b.Left.String() + " " + b.Operator + " " + b.Right.String() + ")"
}

// ConditionalExpression represents `test ? consequent : alternate`
type ConditionalExpression struct {
	Span
	Test       Node
	Consequent Node
	Alternate  Node
}

func (c *ConditionalExpression) node()      {}
func (c *ConditionalExpression) Kind() Kind { return KindConditionalExpression }
func (c *ConditionalExpression) String() string {
	return c.Test.String() + " ? " + c.Consequent.String() + " : " + c.Alternate.String()
}

// CallExpression represents `callee(arguments...)`
type CallExpression struct {
	Span
	Callee    Node
	Arguments []Node
}

func (c *CallExpression) node()      {}
func (c *CallExpression) Kind() Kind { return KindCallExpression }
func (c *CallExpression) String() string {
	return c.Callee.String() + "(" + joinNodes(c.Arguments, ", ") + ")"
}

// MemberExpression represents `object.property` or `object[property]`
type MemberExpression struct {
	Span
	Object   Node
	Property Node
	Computed bool
}

func (m *MemberExpression) node()      {}
func (m *MemberExpression) Kind() Kind { return KindMemberExpression }
func (m *MemberExpression) String() string {
	if m.Computed {
		return m.Object.String() + "[" + m.Property.String() + "]"
	}
	return m.Object.String() + "." + m.Property.String()
}

// SequenceExpression represents a comma-separated expression list
type SequenceExpression struct {
	Span
	Expressions []Node
}

func (s *SequenceExpression) node()          {}
func (s *SequenceExpression) Kind() Kind     { return KindSequenceExpression }
func (s *SequenceExpression) String() string { return "(" + joinNodes(s.Expressions, ", ") + ")" }

// ArrowFunctionExpression represents `(params) => body`. Body is either a
// *BlockStatement or an expression.
type ArrowFunctionExpression struct {
	Span
	Params []Node
	Body   Node
}

func (a *ArrowFunctionExpression) node()      {}
func (a *ArrowFunctionExpression) Kind() Kind { return KindArrowFunctionExpression }
func (a *ArrowFunctionExpression) String() string {
	return "(" + joinNodes(a.Params, ", ") + ") => " + a.Body.String()
}

// BlockStatement is a function body
type BlockStatement struct {
	Span
	Body []Node
}

func (b *BlockStatement) node()      {}
func (b *BlockStatement) Kind() Kind { return KindBlockStatement }
func (b *BlockStatement) String() string {
	var out bytes.Buffer
	out.WriteString("{ ")
	for _, s := range b.Body {
		out.WriteString(s.String())
		out.WriteString(" ")
	}
	out.WriteString("}")
	return out.String()
}

// VariableDeclaration holds one or more declarators (`const a = 1, b = 2`)
type VariableDeclaration struct {
	Span
	DeclKind     string // const, let or var
	Declarations []*VariableDeclarator
}

func (v *VariableDeclaration) node()      {}
func (v *VariableDeclaration) Kind() Kind { return KindVariableDeclaration }
func (v *VariableDeclaration) String() string {
	parts := make([]string, len(v.Declarations))
	for i, d := range v.Declarations {
		parts[i] = d.String()
	}
	return v.DeclKind + " " + strings.Join(parts, ", ") + ";"
}

// VariableDeclarator is a single name/value pair. Init may be nil.
type VariableDeclarator struct {
	Span
	ID   Node
	Init Node
}

func (v *VariableDeclarator) node()      {}
func (v *VariableDeclarator) Kind() Kind { return KindVariableDeclarator }
func (v *VariableDeclarator) String() string {
	if v.Init == nil {
		return v.ID.String()
	}
	return v.ID.String() + " = " + v.Init.String()
}

// ReturnStatement represents `return argument;`. Argument may be nil.
type ReturnStatement struct {
	Span
	Argument Node
}

func (r *ReturnStatement) node()      {}
func (r *ReturnStatement) Kind() Kind { return KindReturnStatement }
func (r *ReturnStatement) String() string {
	if r.Argument == nil {
		return "return;"
	}
	return "return " + r.Argument.String() + ";"
}

// ExpressionStatement is an expression used as a statement
type ExpressionStatement struct {
	Span
	Expression Node
}

func (e *ExpressionStatement) node()          {}
func (e *ExpressionStatement) Kind() Kind     { return KindExpressionStatement }
func (e *ExpressionStatement) String() string { return e.Expression.String() + ";" }

// AssignmentExpression represents `left operator right` where operator is
// one of the assignment operators. The compiler always rejects it.
type AssignmentExpression struct {
	Span
	Left     Node
	Operator string
	Right    Node
}

func (a *AssignmentExpression) node()      {}
func (a *AssignmentExpression) Kind() Kind { return KindAssignmentExpression }
func (a *AssignmentExpression) String() string {
	return a.Left.String() + " " + a.Operator + " " + a.Right.String()
}

// ExportDefaultDeclaration wraps the module's main formula
type ExportDefaultDeclaration struct {
	Span
	Declaration Node
}

func (e *ExportDefaultDeclaration) node()          {}
func (e *ExportDefaultDeclaration) Kind() Kind     { return KindExportDefaultDeclaration }
func (e *ExportDefaultDeclaration) String() string { return "export default " + e.Declaration.String() }

// ExportNamedDeclaration wraps a named, addressable formula. Declaration is
// nil for specifier-only exports such as `export { a }`.
type ExportNamedDeclaration struct {
	Span
	Declaration Node
}

func (e *ExportNamedDeclaration) node()      {}
func (e *ExportNamedDeclaration) Kind() Kind { return KindExportNamedDeclaration }
func (e *ExportNamedDeclaration) String() string {
	if e.Declaration == nil {
		return "export {}"
	}
	return "export " + e.Declaration.String()
}

// Unsupported stands in for any node kind the external parser produced but
// the compiler does not model (loops, unary operators, classes, ...).
type Unsupported struct {
	Span
	Type string
}

func (u *Unsupported) node()          {}
func (u *Unsupported) Kind() Kind     { return Kind(u.Type) }
func (u *Unsupported) String() string { return "<" + u.Type + ">" }

func joinNodes(nodes []Node, sep string) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.String()
	}
	return strings.Join(parts, sep)
}
