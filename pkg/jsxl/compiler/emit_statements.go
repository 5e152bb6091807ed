package compiler

import (
	"github.com/sambeau/jsxl/pkg/jsxl/ast"
)

// block hoists the body's declarations into one LET around the single
// return value.
func (c *converter) block(n *ast.BlockStatement) (string, error) {
	sc := newScope()
	var returns []*ast.ReturnStatement

	for _, stmt := range n.Body {
		switch s := stmt.(type) {
		case *ast.VariableDeclaration:
			if len(returns) > 0 {
				name := ""
				if len(s.Declarations) > 0 {
					name = s.Declarations[0].ID.String()
				}
				return "", fail("FLOW-0004", s, map[string]any{"Name": name})
			}
			if err := c.hoist(sc, s); err != nil {
				return "", err
			}
		case *ast.ReturnStatement:
			returns = append(returns, s)
		default:
			if err := c.rejectStatement(stmt, "a function body"); err != nil {
				return "", err
			}
		}
	}

	switch len(returns) {
	case 0:
		return "", fail("FLOW-0001", n, nil)
	case 1:
	default:
		return "", fail("FLOW-0002", returns[1], map[string]any{"Count": len(returns)})
	}

	result, err := c.returnStatement(returns[0])
	if err != nil {
		return "", err
	}
	return Let(sc.bindings, result), nil
}

func (c *converter) returnStatement(n *ast.ReturnStatement) (string, error) {
	if n.Argument == nil {
		return "", fail("FLOW-0001", n, nil)
	}
	return c.convert(n.Argument)
}

// hoist converts a declaration and appends its bindings to sc.
func (c *converter) hoist(sc *scope, n *ast.VariableDeclaration) error {
	bindings, err := c.declaration(n)
	if err != nil {
		return err
	}
	for i, b := range bindings {
		if sc.has(b.Name) {
			return fail("BIND-0001", n.Declarations[i], map[string]any{"Name": b.Name})
		}
		sc.add(b)
	}
	return nil
}

// declaration converts every declarator in order.
func (c *converter) declaration(n *ast.VariableDeclaration) ([]Binding, error) {
	bindings := make([]Binding, 0, len(n.Declarations))
	for _, d := range n.Declarations {
		b, err := c.declarator(d)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, b)
	}
	return bindings, nil
}

func (c *converter) declarator(n *ast.VariableDeclarator) (Binding, error) {
	id, ok := n.ID.(*ast.Identifier)
	if !ok {
		return Binding{}, fail("BIND-0003", n, map[string]any{"Kind": string(n.ID.Kind())})
	}
	if n.Init == nil {
		return Binding{}, fail("BIND-0002", n, map[string]any{"Name": id.Name})
	}
	formula, err := c.convert(n.Init)
	if err != nil {
		return Binding{}, err
	}
	return Binding{Name: id.Name, Formula: formula}, nil
}

// rejectStatement reports why stmt cannot appear in a body. Empty
// statements are ignored. Expression statements are converted first so an
// assignment anywhere inside surfaces as a reassignment error.
func (c *converter) rejectStatement(stmt ast.Node, where string) error {
	switch s := stmt.(type) {
	case *ast.Unsupported:
		if s.Type == "EmptyStatement" {
			return nil
		}
		return unsupported(s)
	case *ast.ExpressionStatement:
		if _, err := c.convert(s.Expression); err != nil {
			return err
		}
	}
	return fail("FLOW-0003", stmt, map[string]any{
		"Kind":  string(stmt.Kind()),
		"Where": where,
	})
}
