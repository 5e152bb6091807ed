package compiler

import "github.com/sambeau/jsxl/pkg/jsxl/ast"

// Tree builders for tests.

func id(name string) *ast.Identifier { return &ast.Identifier{Name: name} }

func lit(raw string) *ast.Literal { return &ast.Literal{Raw: raw} }

func bin(left ast.Node, op string, right ast.Node) *ast.BinaryExpression {
	return &ast.BinaryExpression{Left: left, Operator: op, Right: right}
}

func cond(test, cons, alt ast.Node) *ast.ConditionalExpression {
	return &ast.ConditionalExpression{Test: test, Consequent: cons, Alternate: alt}
}

func call(callee ast.Node, args ...ast.Node) *ast.CallExpression {
	return &ast.CallExpression{Callee: callee, Arguments: args}
}

func member(object, property ast.Node) *ast.MemberExpression {
	return &ast.MemberExpression{Object: object, Property: property}
}

func seq(exprs ...ast.Node) *ast.SequenceExpression {
	return &ast.SequenceExpression{Expressions: exprs}
}

func arrow(body ast.Node, params ...string) *ast.ArrowFunctionExpression {
	ps := make([]ast.Node, len(params))
	for i, p := range params {
		ps[i] = id(p)
	}
	return &ast.ArrowFunctionExpression{Params: ps, Body: body}
}

func block(stmts ...ast.Node) *ast.BlockStatement {
	return &ast.BlockStatement{Body: stmts}
}

func ret(arg ast.Node) *ast.ReturnStatement { return &ast.ReturnStatement{Argument: arg} }

// decl builds `const n0 = v0, n1 = v1, ...` from alternating names and values.
func decl(pairs ...any) *ast.VariableDeclaration {
	d := &ast.VariableDeclaration{DeclKind: "const"}
	for i := 0; i+1 < len(pairs); i += 2 {
		d.Declarations = append(d.Declarations, &ast.VariableDeclarator{
			ID:   id(pairs[i].(string)),
			Init: pairs[i+1].(ast.Node),
		})
	}
	return d
}

func exportDefault(n ast.Node) *ast.ExportDefaultDeclaration {
	return &ast.ExportDefaultDeclaration{Declaration: n}
}

func exportNamed(d *ast.VariableDeclaration) *ast.ExportNamedDeclaration {
	return &ast.ExportNamedDeclaration{Declaration: d}
}

func program(stmts ...ast.Node) *ast.Program { return &ast.Program{Body: stmts} }

func unknown(kind string, line, column int) *ast.Unsupported {
	return &ast.Unsupported{Span: ast.Span{Loc: ast.Position{Line: line, Column: column}}, Type: kind}
}

// sampleProgram mirrors a small but complete module:
//
//	const addX = (num, x) => { return num + x }
//	export const LEN = (arr) => { return addX(1, 2) }
//	export default (arr, num, x) => {
//	    const clampedX = x > 5 ? 5 : x
//	    const summedVals = MAP(arr, (item) => { return addX(item, num) })
//	    return MAP(summedVals, (item) => { return item * clampedX })
//	}
func sampleProgram() *ast.Program {
	return program(
		decl("addX", arrow(block(ret(bin(id("num"), "+", id("x")))), "num", "x")),
		exportNamed(decl("LEN", arrow(block(ret(call(id("addX"), lit("1"), lit("2")))), "arr"))),
		exportDefault(arrow(block(
			decl("clampedX", cond(bin(id("x"), ">", lit("5")), lit("5"), id("x"))),
			decl("summedVals", call(id("MAP"), id("arr"),
				arrow(block(ret(call(id("addX"), id("item"), id("num")))), "item"))),
			ret(call(id("MAP"), id("summedVals"),
				arrow(block(ret(bin(id("item"), "*", id("clampedX")))), "item"))),
		), "arr", "num", "x")),
	)
}
