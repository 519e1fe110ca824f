package lower

import (
	"fortio.org/safecast"
	"tlog.app/go/errors"

	"github.com/slowlang/crv/compiler/ast"
	"github.com/slowlang/crv/compiler/ir"
)

var bops = map[ast.BOp]ir.BOp{
	ast.Add:  ir.Add,
	ast.Sub:  ir.Sub,
	ast.Mul:  ir.Mul,
	ast.Div:  ir.Div,
	ast.Mod:  ir.Rem,
	ast.Xor:  ir.BitXor,
	ast.And:  ir.BitAnd,
	ast.Or:   ir.BitOr,
	ast.LAnd: ir.LogAnd,
	ast.LOr:  ir.LogOr,
	ast.Shr:  ir.BitRsh,
	ast.Shl:  ir.BitLsh,
	ast.Lt:   ir.CLT,
	ast.Gt:   ir.CGT,
	ast.Eq:   ir.CEQ,
	ast.Ne:   ir.CNE,
}

// expr appends code evaluating e and returns the name holding the result.
func (p *pkgContext) expr(code []ir.Stmt, e ast.Expr) (_ []ir.Stmt, res string, err error) {
	switch e := e.(type) {
	case ast.Var:
		return code, e.Name, nil
	case ast.Int, ast.Char, ast.String:
		v, err := literal(e.(ast.Lit))
		if err != nil {
			return nil, "", err
		}

		res = p.Names.New("t")

		return append(code, ir.Store{Dest: res, Value: v}), res, nil
	case ast.Call:
		var args []string

		for i, x := range e.Args {
			var a string

			code, a, err = p.expr(code, x)
			if err != nil {
				return nil, "", errors.Wrap(err, "call %v: arg %d", e.Name, i)
			}

			args = append(args, a)
		}

		res = p.Names.New("t")

		return append(code, ir.Call{Func: e.Name, Args: args, Result: res}), res, nil
	case ast.Unary:
		return p.unary(code, e)
	case ast.Binary:
		return p.binary(code, e)
	default:
		return nil, "", errors.New("unsupported expression: %T", e)
	}
}

func (p *pkgContext) unary(code []ir.Stmt, e ast.Unary) (_ []ir.Stmt, res string, err error) {
	code, arg, err := p.expr(code, e.X)
	if err != nil {
		return nil, "", err
	}

	var op ir.UOp

	switch e.Op {
	case ast.Not:
		op = ir.LogNeg
	case ast.Inv:
		op = ir.BitNeg
	case ast.Neg:
		op = ir.Minus
	case ast.Inc, ast.Dec:
		one := p.Names.New("t")

		bop := ir.Add
		if e.Op == ast.Dec {
			bop = ir.Sub
		}

		code = append(code,
			ir.Store{Dest: one, Value: ir.Int(1)},
			ir.BinOp{Op: bop, Dest: arg, L: arg, R: one},
		)

		return code, arg, nil
	default:
		return nil, "", errors.New("%v: unsupported unary op: %v", e.Pos, e.Op)
	}

	res = p.dest(arg)

	return append(code, ir.UnOp{Op: op, Dest: res, Arg: arg}), res, nil
}

func (p *pkgContext) binary(code []ir.Stmt, e ast.Binary) (_ []ir.Stmt, res string, err error) {
	one := ast.Int{Base: e.Base, Value: 1}

	// Boundary values wrap: a <= MaxInt64 is false.
	switch e.Op {
	case ast.Le:
		return p.expr(code, ast.Binary{Base: e.Base, Op: ast.Lt, L: e.L, R: ast.Binary{Base: e.Base, Op: ast.Add, L: e.R, R: one}})
	case ast.Ge:
		return p.expr(code, ast.Binary{Base: e.Base, Op: ast.Gt, L: e.L, R: ast.Binary{Base: e.Base, Op: ast.Sub, L: e.R, R: one}})
	}

	op, ok := bops[e.Op]
	if !ok {
		return nil, "", errors.New("%v: unsupported binary op: %v", e.Pos, e.Op)
	}

	code, l, err := p.expr(code, e.L)
	if err != nil {
		return nil, "", errors.Wrap(err, "%v left", e.Op)
	}

	code, r, err := p.expr(code, e.R)
	if err != nil {
		return nil, "", errors.Wrap(err, "%v right", e.Op)
	}

	res = p.dest(l)

	return append(code, ir.BinOp{Op: op, Dest: res, L: l, R: r}), res, nil
}

// dest reuses a temporary operand as the result, user variables are never overwritten.
func (p *pkgContext) dest(arg string) string {
	if ir.IsGenerated(arg) {
		return arg
	}

	return p.Names.New("t")
}

func literal(x ast.Lit) (ir.Value, error) {
	switch x := x.(type) {
	case ast.Int:
		v, err := safecast.Conv[int64](x.Value)
		if err != nil {
			return nil, errors.Wrap(err, "%v: integer literal %d", x.Pos, x.Value)
		}

		return ir.Int(v), nil
	case ast.Char:
		return ir.Char(x.Value), nil
	case ast.String:
		return ir.String(x.Value), nil
	default:
		return nil, errors.New("unsupported literal: %T", x)
	}
}

// convert fits an int or char literal into the other type.
func convert(t ir.Type, v ir.Value) (ir.Value, error) {
	switch x := v.(type) {
	case ir.Char:
		if t == ir.TInt {
			return ir.Int(x), nil
		}
	case ir.Int:
		if t == ir.TChar {
			c, err := safecast.Conv[byte](int64(x))
			if err != nil {
				return nil, errors.Wrap(err, "char initializer %d", int64(x))
			}

			return ir.Char(c), nil
		}
	}

	if v.Type() != t {
		return nil, errors.New("%v initialized with %v", t, v.Type())
	}

	return v, nil
}
