// Package estree decodes ESTree JSON, as produced by acorn and compatible
// parsers, into the jsxl node model.
//
// Kinds the compiler does not model decode to *ast.Unsupported so that the
// compiler can report them with their position instead of the decoder
// failing on an unknown shape.
package estree

import (
	"bytes"
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"

	"github.com/sambeau/jsxl/pkg/jsxl/ast"
	"github.com/sambeau/jsxl/pkg/jsxl/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// rawNode is the union of every ESTree field the decoder reads.
type rawNode struct {
	Type  string  `json:"type"`
	Start int     `json:"start"`
	End   int     `json:"end"`
	Loc   *rawLoc `json:"loc"`

	Name     string  `json:"name"`
	Raw      *string `json:"raw"`
	Operator string  `json:"operator"`
	Kind     string  `json:"kind"`
	Computed bool    `json:"computed"`
	Extra    *struct {
		Raw *string `json:"raw"`
	} `json:"extra"`

	Left        jsoniter.RawMessage `json:"left"`
	Right       jsoniter.RawMessage `json:"right"`
	Test        jsoniter.RawMessage `json:"test"`
	Consequent  jsoniter.RawMessage `json:"consequent"`
	Alternate   jsoniter.RawMessage `json:"alternate"`
	Callee      jsoniter.RawMessage `json:"callee"`
	Object      jsoniter.RawMessage `json:"object"`
	Property    jsoniter.RawMessage `json:"property"`
	Body        jsoniter.RawMessage `json:"body"`
	Argument    jsoniter.RawMessage `json:"argument"`
	Expression  jsoniter.RawMessage `json:"expression"`
	Declaration jsoniter.RawMessage `json:"declaration"`
	ID          jsoniter.RawMessage `json:"id"`
	Init        jsoniter.RawMessage `json:"init"`

	Arguments    []jsoniter.RawMessage `json:"arguments"`
	Expressions  []jsoniter.RawMessage `json:"expressions"`
	Params       []jsoniter.RawMessage `json:"params"`
	Declarations []jsoniter.RawMessage `json:"declarations"`
}

type rawLoc struct {
	Start struct {
		Line   int `json:"line"`
		Column int `json:"column"`
	} `json:"start"`
}

// Decode decodes a Program-rooted tree.
func Decode(data []byte) (*ast.Program, error) {
	node, err := DecodeNode(data)
	if err != nil {
		return nil, err
	}
	prog, ok := node.(*ast.Program)
	if !ok {
		return nil, fail("TREE-0003", node.Pos(), map[string]any{"Kind": string(node.Kind())})
	}
	return prog, nil
}

// DecodeNode decodes a tree rooted at any node kind.
func DecodeNode(data []byte) (ast.Node, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("TREE-0001", map[string]any{"Reason": "empty input"})
	}
	d := &decoder{}
	node, err := d.node(data)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, errors.New("TREE-0001", map[string]any{"Reason": "root is null"})
	}
	return node, nil
}

// DecodeReader reads r fully and decodes a Program.
func DecodeReader(r io.Reader) (*ast.Program, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading syntax tree: %w", err)
	}
	return Decode(data)
}

// DecodeFile reads and decodes a Program from path. Decode errors carry the
// file name.
func DecodeFile(path string) (*ast.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading syntax tree: %w", err)
	}
	prog, err := Decode(data)
	if err != nil {
		if ce, ok := err.(*errors.CompileError); ok {
			return nil, ce.WithFile(path)
		}
		return nil, err
	}
	return prog, nil
}

type decoder struct{}

// node decodes one node; JSON null or absence yields nil.
func (d *decoder) node(data jsoniter.RawMessage) (ast.Node, error) {
	if isNull(data) {
		return nil, nil
	}
	var r rawNode
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.New("TREE-0001", map[string]any{"Reason": err.Error()})
	}
	if r.Type == "" {
		return nil, errors.New("TREE-0001", map[string]any{"Reason": "node without a type"})
	}

	span := ast.Span{Loc: position(&r)}

	switch ast.Kind(r.Type) {
	case ast.KindProgram:
		body, err := d.list(&r, "body", bodyList(r.Body))
		if err != nil {
			return nil, err
		}
		return &ast.Program{Span: span, Body: body}, nil

	case ast.KindIdentifier:
		if r.Name == "" {
			return nil, missing(&r, "name")
		}
		return &ast.Identifier{Span: span, Name: r.Name}, nil

	case ast.KindLiteral:
		raw := r.Raw
		if raw == nil && r.Extra != nil {
			raw = r.Extra.Raw
		}
		if raw == nil {
			return nil, missing(&r, "raw")
		}
		return &ast.Literal{Span: span, Raw: *raw}, nil

	case ast.KindBinaryExpression:
		left, right, err := d.pair(&r, "left", r.Left, "right", r.Right)
		if err != nil {
			return nil, err
		}
		return &ast.BinaryExpression{Span: span, Left: left, Operator: r.Operator, Right: right}, nil

	case ast.KindAssignmentExpression:
		left, right, err := d.pair(&r, "left", r.Left, "right", r.Right)
		if err != nil {
			return nil, err
		}
		return &ast.AssignmentExpression{Span: span, Left: left, Operator: r.Operator, Right: right}, nil

	case ast.KindConditionalExpression:
		test, err := d.required(&r, "test", r.Test)
		if err != nil {
			return nil, err
		}
		cons, alt, err := d.pair(&r, "consequent", r.Consequent, "alternate", r.Alternate)
		if err != nil {
			return nil, err
		}
		return &ast.ConditionalExpression{Span: span, Test: test, Consequent: cons, Alternate: alt}, nil

	case ast.KindCallExpression:
		callee, err := d.required(&r, "callee", r.Callee)
		if err != nil {
			return nil, err
		}
		args, err := d.list(&r, "arguments", r.Arguments)
		if err != nil {
			return nil, err
		}
		return &ast.CallExpression{Span: span, Callee: callee, Arguments: args}, nil

	case ast.KindMemberExpression:
		obj, prop, err := d.pair(&r, "object", r.Object, "property", r.Property)
		if err != nil {
			return nil, err
		}
		return &ast.MemberExpression{Span: span, Object: obj, Property: prop, Computed: r.Computed}, nil

	case ast.KindSequenceExpression:
		exprs, err := d.list(&r, "expressions", r.Expressions)
		if err != nil {
			return nil, err
		}
		return &ast.SequenceExpression{Span: span, Expressions: exprs}, nil

	case ast.KindArrowFunctionExpression:
		params, err := d.list(&r, "params", r.Params)
		if err != nil {
			return nil, err
		}
		body, err := d.required(&r, "body", r.Body)
		if err != nil {
			return nil, err
		}
		return &ast.ArrowFunctionExpression{Span: span, Params: params, Body: body}, nil

	case ast.KindBlockStatement:
		body, err := d.list(&r, "body", bodyList(r.Body))
		if err != nil {
			return nil, err
		}
		return &ast.BlockStatement{Span: span, Body: body}, nil

	case ast.KindVariableDeclaration:
		decl := &ast.VariableDeclaration{Span: span, DeclKind: r.Kind}
		for _, raw := range r.Declarations {
			n, err := d.node(raw)
			if err != nil {
				return nil, err
			}
			declarator, ok := n.(*ast.VariableDeclarator)
			if !ok {
				return nil, errors.New("TREE-0001", map[string]any{
					"Reason": "VariableDeclaration contains a non-declarator",
				})
			}
			decl.Declarations = append(decl.Declarations, declarator)
		}
		return decl, nil

	case ast.KindVariableDeclarator:
		id, err := d.required(&r, "id", r.ID)
		if err != nil {
			return nil, err
		}
		init, err := d.node(r.Init)
		if err != nil {
			return nil, err
		}
		return &ast.VariableDeclarator{Span: span, ID: id, Init: init}, nil

	case ast.KindReturnStatement:
		arg, err := d.node(r.Argument)
		if err != nil {
			return nil, err
		}
		return &ast.ReturnStatement{Span: span, Argument: arg}, nil

	case ast.KindExpressionStatement:
		expr, err := d.required(&r, "expression", r.Expression)
		if err != nil {
			return nil, err
		}
		return &ast.ExpressionStatement{Span: span, Expression: expr}, nil

	case ast.KindExportDefaultDeclaration:
		decl, err := d.required(&r, "declaration", r.Declaration)
		if err != nil {
			return nil, err
		}
		return &ast.ExportDefaultDeclaration{Span: span, Declaration: decl}, nil

	case ast.KindExportNamedDeclaration:
		decl, err := d.node(r.Declaration)
		if err != nil {
			return nil, err
		}
		return &ast.ExportNamedDeclaration{Span: span, Declaration: decl}, nil
	}

	return &ast.Unsupported{Span: span, Type: r.Type}, nil
}

// required decodes a child that must be present.
func (d *decoder) required(r *rawNode, field string, data jsoniter.RawMessage) (ast.Node, error) {
	n, err := d.node(data)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, missing(r, field)
	}
	return n, nil
}

func (d *decoder) pair(r *rawNode, f1 string, d1 jsoniter.RawMessage, f2 string, d2 jsoniter.RawMessage) (ast.Node, ast.Node, error) {
	a, err := d.required(r, f1, d1)
	if err != nil {
		return nil, nil, err
	}
	b, err := d.required(r, f2, d2)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

// list decodes an ordered child list; null elements (array holes) are
// rejected.
func (d *decoder) list(r *rawNode, field string, items []jsoniter.RawMessage) ([]ast.Node, error) {
	nodes := make([]ast.Node, 0, len(items))
	for _, item := range items {
		n, err := d.required(r, field, item)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// bodyList splits a statement-list "body" field. Non-array bodies yield nil.
func bodyList(data jsoniter.RawMessage) []jsoniter.RawMessage {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil
	}
	var items []jsoniter.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil
	}
	return items
}

func isNull(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// position converts acorn's 0-based columns to 1-based.
func position(r *rawNode) ast.Position {
	pos := ast.Position{Start: r.Start, End: r.End}
	if r.Loc != nil && r.Loc.Start.Line > 0 {
		pos.Line = r.Loc.Start.Line
		pos.Column = r.Loc.Start.Column + 1
	}
	return pos
}

func missing(r *rawNode, field string) error {
	return fail("TREE-0002", position(r), map[string]any{"Kind": r.Type, "Field": field})
}

func fail(code string, pos ast.Position, data map[string]any) *errors.CompileError {
	return errors.NewWithPosition(code, pos.Line, pos.Column, data)
}
