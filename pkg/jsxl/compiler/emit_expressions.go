package compiler

import (
	"strings"

	"github.com/sambeau/jsxl/pkg/jsxl/ast"
)

// binaryOperators are the operators spelled the same in JavaScript and in
// formulas.
var binaryOperators = map[string]bool{
	"+":  true,
	"-":  true,
	"*":  true,
	"/":  true,
	">":  true,
	"<":  true,
	">=": true,
	"<=": true,
}

const supportedOperators = "+ - * / > < >= <="

func (c *converter) identifier(n *ast.Identifier) (string, error) {
	return n.Name, nil
}

// literal keeps the source spelling so numbers and strings are not
// re-serialized.
func (c *converter) literal(n *ast.Literal) (string, error) {
	return n.Raw, nil
}

// binary emits `left op right`. Grouping comes from the tree; nothing is
// re-parenthesized.
func (c *converter) binary(n *ast.BinaryExpression) (string, error) {
	if !binaryOperators[n.Operator] {
		return "", fail("OP-0001", n, map[string]any{
			"Operator":  n.Operator,
			"Supported": supportedOperators,
		})
	}
	left, err := c.convert(n.Left)
	if err != nil {
		return "", err
	}
	right, err := c.convert(n.Right)
	if err != nil {
		return "", err
	}
	return left + " " + n.Operator + " " + right, nil
}

func (c *converter) conditional(n *ast.ConditionalExpression) (string, error) {
	parts, err := c.convertAll([]ast.Node{n.Test, n.Consequent, n.Alternate})
	if err != nil {
		return "", err
	}
	return "IF(" + strings.Join(parts, ", ") + ")", nil
}

func (c *converter) call(n *ast.CallExpression) (string, error) {
	callee, err := c.convert(n.Callee)
	if err != nil {
		return "", err
	}
	args, err := c.convertAll(n.Arguments)
	if err != nil {
		return "", err
	}
	return callee + "(" + strings.Join(args, ", ") + ")", nil
}

// member lowers property access to INDEX, flattening the object chain
// according to the configured MemberMode.
func (c *converter) member(n *ast.MemberExpression) (string, error) {
	object := n.Object
	keys := []ast.Node{n.Property}

	switch c.opts.Members {
	case MembersTwoLevel:
		if inner, ok := object.(*ast.MemberExpression); ok {
			keys = append([]ast.Node{inner.Property}, keys...)
			object = inner.Object
		}
	default:
		for {
			inner, ok := object.(*ast.MemberExpression)
			if !ok {
				break
			}
			keys = append([]ast.Node{inner.Property}, keys...)
			object = inner.Object
		}
	}

	parts, err := c.convertAll(append([]ast.Node{object}, keys...))
	if err != nil {
		return "", err
	}
	return "INDEX(" + strings.Join(parts, ", ") + ")", nil
}

// sequence joins its parts with ':' so (A1, B2) becomes the range A1:B2.
func (c *converter) sequence(n *ast.SequenceExpression) (string, error) {
	parts, err := c.convertAll(n.Expressions)
	if err != nil {
		return "", err
	}
	return strings.Join(parts, ":"), nil
}

func (c *converter) arrow(n *ast.ArrowFunctionExpression) (string, error) {
	parts := make([]string, 0, len(n.Params)+1)
	for _, p := range n.Params {
		id, ok := p.(*ast.Identifier)
		if !ok {
			return "", fail("NODE-0002", p, map[string]any{"Kind": string(p.Kind())})
		}
		parts = append(parts, id.Name)
	}
	body, err := c.convert(n.Body)
	if err != nil {
		return "", err
	}
	parts = append(parts, body)
	return "LAMBDA(" + strings.Join(parts, ", ") + ")", nil
}

// assignment always fails: formula bindings cannot be rebound.
func (c *converter) assignment(n *ast.AssignmentExpression) error {
	target := "binding"
	if n.Left != nil {
		target = n.Left.String()
	}
	return fail("ASSIGN-0001", n, map[string]any{"Target": target})
}
