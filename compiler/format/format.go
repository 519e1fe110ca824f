package format

import (
	"context"
	"fmt"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/crv/compiler/ast"
)

// Format prints the program back as source text.
// Nested operands are parenthesized so the text parses into the same tree.
func Format(ctx context.Context, b []byte, x *ast.Prog) (_ []byte, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "format: program", "globals", len(x.Globals), "funcs", len(x.Funcs))
	defer tr.Finish("err", &err)

	for _, g := range x.Globals {
		b = app(b, 0, "%v %s", g.Type, g.Name)

		if g.Init != nil {
			b = append(b, " = "...)

			b, err = formatExpr(b, g.Init, false)
			if err != nil {
				return nil, errors.Wrap(err, "global %v", g.Name)
			}
		}

		b = append(b, ";\n"...)
	}

	for i, f := range x.Funcs {
		if i != 0 || len(x.Globals) != 0 {
			b = append(b, '\n')
		}

		b, err = formatFunc(b, f)
		if err != nil {
			return nil, errors.Wrap(err, "func %v", f.Name)
		}
	}

	return b, nil
}

func formatFunc(b []byte, x *ast.Func) ([]byte, error) {
	b = app(b, 0, "%v %s(", x.Ret, x.Name)

	for i, a := range x.Params {
		if i != 0 {
			b = append(b, ", "...)
		}

		b = app(b, 0, "%v %s", a.Type, a.Name)
	}

	if x.External {
		return append(b, ");\n"...), nil
	}

	b = append(b, ") {\n"...)

	b, err := formatBlock(b, x.Body, 1)
	if err != nil {
		return nil, errors.Wrap(err, "body")
	}

	b = append(b, "}\n"...)

	return b, nil
}

func formatBlock(b []byte, list []ast.Stmt, d int) (_ []byte, err error) {
	for _, s := range list {
		switch s := s.(type) {
		case ast.VarDecl:
			b = app(b, d, "%v %s", s.Type, s.Name)

			if s.Init != nil {
				b = append(b, " = "...)

				b, err = formatExpr(b, s.Init, false)
				if err != nil {
					return nil, errors.Wrap(err, "init %v", s.Name)
				}
			}

			b = append(b, ";\n"...)
		case ast.Assign:
			b = app(b, d, "%s = ", s.Dst)

			b, err = formatExpr(b, s.Expr, false)
			if err != nil {
				return nil, errors.Wrap(err, "rhs")
			}

			b = append(b, ";\n"...)
		case ast.ExprStmt:
			b = app(b, d, "")

			b, err = formatExpr(b, s.Expr, false)
			if err != nil {
				return nil, errors.Wrap(err, "expr")
			}

			b = append(b, ";\n"...)
		case ast.Return:
			b = app(b, d, "return")

			if s.Value != nil {
				b = append(b, ' ')

				b, err = formatExpr(b, s.Value, false)
				if err != nil {
					return nil, errors.Wrap(err, "return")
				}
			}

			b = append(b, ";\n"...)
		case ast.Break:
			b = app(b, d, "break;\n")
		case ast.Continue:
			b = app(b, d, "continue;\n")
		case ast.While:
			b = app(b, d, "while (")

			b, err = formatExpr(b, s.Check, false)
			if err != nil {
				return nil, errors.Wrap(err, "cond")
			}

			b = append(b, ") {\n"...)

			b, err = formatBlock(b, s.Body, d+1)
			if err != nil {
				return nil, errors.Wrap(err, "while body")
			}

			b = app(b, d, "}\n")
		case ast.If:
			b = app(b, d, "if (")

			b, err = formatExpr(b, s.Check, false)
			if err != nil {
				return nil, errors.Wrap(err, "cond")
			}

			b = append(b, ") {\n"...)

			b, err = formatBlock(b, s.Then, d+1)
			if err != nil {
				return nil, errors.Wrap(err, "then block")
			}

			if len(s.Else) != 0 {
				b = app(b, d, "} else {\n")

				b, err = formatBlock(b, s.Else, d+1)
				if err != nil {
					return nil, errors.Wrap(err, "else block")
				}
			}

			b = app(b, d, "}\n")
		default:
			return nil, errors.New("unsupported stmt: %T", s)
		}
	}

	return b, nil
}

func formatExpr(b []byte, x ast.Expr, nested bool) (_ []byte, err error) {
	switch x := x.(type) {
	case ast.Var:
		b = append(b, x.Name...)
	case ast.Int:
		b = fmt.Appendf(b, "%d", x.Value)
	case ast.Char:
		b = Quote(b, '\'', []byte{x.Value})
	case ast.String:
		b = Quote(b, '"', []byte(x.Value))
	case ast.Call:
		b = append(b, x.Name...)
		b = append(b, '(')

		for i, a := range x.Args {
			if i != 0 {
				b = append(b, ", "...)
			}

			b, err = formatExpr(b, a, false)
			if err != nil {
				return nil, errors.Wrap(err, "arg %d", i)
			}
		}

		b = append(b, ')')
	case ast.Unary:
		b = append(b, x.Op.String()...)

		_, inner := x.X.(ast.Unary)
		if inner {
			b = append(b, '(')
		}

		b, err = formatExpr(b, x.X, true)
		if err != nil {
			return nil, errors.Wrap(err, "operand")
		}

		if inner {
			b = append(b, ')')
		}
	case ast.Binary:
		if nested {
			b = append(b, '(')
		}

		b, err = formatExpr(b, x.L, true)
		if err != nil {
			return nil, errors.Wrap(err, "left")
		}

		b = fmt.Appendf(b, " %v ", x.Op)

		b, err = formatExpr(b, x.R, true)
		if err != nil {
			return nil, errors.Wrap(err, "right")
		}

		if nested {
			b = append(b, ')')
		}
	default:
		return nil, errors.New("unsupported expr: %T", x)
	}

	return b, nil
}

// Quote appends a literal the lexer reads back as s.
func Quote(b []byte, q byte, s []byte) []byte {
	b = append(b, q)

	for _, c := range s {
		switch {
		case c == q || c == '\\':
			b = append(b, '\\', c)
		case c == '\n':
			b = append(b, `\n`...)
		case c == '\t':
			b = append(b, `\t`...)
		case c == '\r':
			b = append(b, `\r`...)
		case c < 0x20 || c >= 0x7f:
			b = fmt.Appendf(b, `\x%02x`, c)
		default:
			b = append(b, c)
		}
	}

	return append(b, q)
}

func app(b []byte, d int, f string, args ...any) []byte {
	const tabs = "\t\t\t\t\t\t\t\t\t\t\t\t\t\t\t"

	for ; d > len(tabs); d -= len(tabs) {
		b = append(b, tabs...)
	}

	b = append(b, tabs[:d]...)
	b = fmt.Appendf(b, f, args...)

	return b
}
