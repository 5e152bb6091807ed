package compiler

import (
	"github.com/sambeau/jsxl/pkg/jsxl/ast"
)

// program hoists module-level declarations, converts the default export and
// collects every named export. Each export is wrapped in its own copy of the
// module bindings since formulas have no shared module scope.
func (c *converter) program(p *ast.Program) (*Unit, error) {
	sc := newScope()
	var main *ast.ExportDefaultDeclaration
	var named []*ast.ExportNamedDeclaration

	for _, stmt := range p.Body {
		switch s := stmt.(type) {
		case *ast.VariableDeclaration:
			if err := c.hoist(sc, s); err != nil {
				return nil, err
			}
		case *ast.ExportDefaultDeclaration:
			if main != nil {
				return nil, fail("EXPORT-0003", s, nil)
			}
			main = s
		case *ast.ExportNamedDeclaration:
			named = append(named, s)
		default:
			if err := c.rejectStatement(stmt, "the module top level"); err != nil {
				return nil, err
			}
		}
	}

	if main == nil {
		return nil, fail("EXPORT-0002", p, nil)
	}
	mainFormula, err := c.convert(main)
	if err != nil {
		return nil, err
	}

	exports, err := c.collectExports(named, sc.bindings)
	if err != nil {
		return nil, err
	}

	return &Unit{
		Bindings: sc.bindings,
		Main:     mainFormula,
		Exports:  exports,
	}, nil
}

// collectExports converts named exports in source order.
func (c *converter) collectExports(named []*ast.ExportNamedDeclaration, bindings []Binding) ([]Export, error) {
	var exports []Export
	seen := make(map[string]bool)
	for _, n := range named {
		pairs, err := c.exportNamed(n)
		if err != nil {
			return nil, err
		}
		for _, b := range pairs {
			if seen[b.Name] {
				return nil, fail("EXPORT-0004", n, map[string]any{"Name": b.Name})
			}
			seen[b.Name] = true
			exports = append(exports, Export{Name: b.Name, Formula: Let(bindings, b.Formula)})
		}
	}
	return exports, nil
}

// exportNamed extracts the name/formula pairs of `export const NAME = ...`.
func (c *converter) exportNamed(n *ast.ExportNamedDeclaration) ([]Binding, error) {
	switch d := n.Declaration.(type) {
	case *ast.VariableDeclaration:
		if len(d.Declarations) == 0 {
			return nil, fail("EXPORT-0001", n, nil)
		}
		return c.declaration(d)
	case nil:
		return nil, fail("EXPORT-0001", n, nil)
	case *ast.Unsupported:
		return nil, unsupported(d)
	default:
		return nil, fail("EXPORT-0001", n, nil)
	}
}
