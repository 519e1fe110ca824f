package lower

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/crv/compiler/ast"
	"github.com/slowlang/crv/compiler/ir"
)

type (
	pkgContext struct {
		*ir.Prog
	}

	// loop is the innermost enclosing while.
	loop struct {
		pre, post, body, check string
	}
)

// Prog lowers the program into a fresh ir.Prog.
// The result depends only on the input, generated names start from the beginning.
func Prog(ctx context.Context, x *ast.Prog) (_ *ir.Prog, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "lower: program", "globals", len(x.Globals), "funcs", len(x.Funcs))
	defer tr.Finish("err", &err)

	p := &pkgContext{
		Prog: &ir.Prog{},
	}

	for _, g := range x.Globals {
		ig, err := p.global(g)
		if err != nil {
			return nil, errors.Wrap(err, "global %v", g.Name)
		}

		p.Globals = append(p.Globals, ig)
	}

	for _, f := range x.Funcs {
		fn, err := p.fun(ctx, f)
		if err != nil {
			return nil, errors.Wrap(err, "func %v", f.Name)
		}

		p.Funcs = append(p.Funcs, fn)
	}

	if tr.If("dump_ir") {
		tr.Printw("lowered", "ir", string(ir.AppendProg(nil, p.Prog)))
	}

	return p.Prog, nil
}

func (p *pkgContext) global(g *ast.Global) (*ir.Global, error) {
	ig := &ir.Global{
		Name: g.Name,
		Type: irType(g.Type),
	}

	if g.Init == nil {
		if g.Type == ast.TString {
			return nil, errors.New("%v: string global %v declared without initializer", g.Pos, g.Name)
		}

		return ig, nil
	}

	v, err := literal(g.Init)
	if err != nil {
		return nil, err
	}

	ig.Init, err = convert(ig.Type, v)
	if err != nil {
		return nil, errors.Wrap(err, "%v: global %v", g.Pos, g.Name)
	}

	return ig, nil
}

func (p *pkgContext) fun(ctx context.Context, f *ast.Func) (_ *ir.Func, err error) {
	fn := &ir.Func{
		Name:     f.Name,
		Ret:      irType(f.Ret),
		External: f.External,
	}

	for _, x := range f.Params {
		fn.Params = append(fn.Params, ir.Param{
			Name: x.Name,
			Type: irType(x.Type),
		})
	}

	if f.External {
		return fn, nil
	}

	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "lower: func", "name", f.Name, "params", len(f.Params))
	defer tr.Finish("err", &err)

	fn.Body, err = p.block(ctx, make([]ir.Stmt, 0, 2*len(f.Body)), f.Body, nil)
	if err != nil {
		return nil, err
	}

	tr.Printw("lowered", "stmts", len(fn.Body))

	return fn, nil
}

func (p *pkgContext) block(ctx context.Context, code []ir.Stmt, list []ast.Stmt, lp *loop) (_ []ir.Stmt, err error) {
	for _, s := range list {
		code, err = p.stmt(ctx, code, s, lp)
		if err != nil {
			return nil, err
		}
	}

	return code, nil
}

func (p *pkgContext) stmt(ctx context.Context, code []ir.Stmt, s ast.Stmt, lp *loop) (_ []ir.Stmt, err error) {
	switch s := s.(type) {
	case ast.Assign:
		return p.assign(code, s.Dst, s.Expr)
	case ast.VarDecl:
		if s.Init != nil {
			return p.assign(code, s.Name, s.Init)
		}

		if s.Type == ast.TString {
			return nil, errors.New("%v: string variable %v declared without initializer", s.Pos, s.Name)
		}

		return code, nil
	case ast.Return:
		if s.Value == nil {
			return append(code, ir.Return{}), nil
		}

		v := p.Names.New("t")

		code, err = p.assign(code, v, s.Value)
		if err != nil {
			return nil, errors.Wrap(err, "return")
		}

		return append(code, ir.Return{Var: v}), nil
	case ast.Break:
		if lp == nil {
			return nil, errors.New("%v: break outside of loop", s.Pos)
		}

		return append(code, ir.Jump{Target: lp.post}), nil
	case ast.Continue:
		if lp == nil {
			return nil, errors.New("%v: continue outside of loop", s.Pos)
		}

		return append(code, ir.Jump{Target: lp.check}), nil
	case ast.While:
		return p.while(ctx, code, s)
	case ast.If:
		return p.ifStmt(ctx, code, s, lp)
	case ast.ExprStmt:
		code, _, err = p.expr(code, s.Expr)
		return code, err
	default:
		return nil, errors.New("unsupported statement: %T", s)
	}
}

func (p *pkgContext) assign(code []ir.Stmt, dst string, e ast.Expr) (_ []ir.Stmt, err error) {
	code, v, err := p.expr(code, e)
	if err != nil {
		return nil, err
	}

	return append(code, ir.UnOp{Op: ir.Copy, Dest: dst, Arg: v}), nil
}

func (p *pkgContext) while(ctx context.Context, code []ir.Stmt, s ast.While) (_ []ir.Stmt, err error) {
	lp := &loop{
		pre:   p.Names.New("L"),
		post:  p.Names.New("L"),
		body:  p.Names.New("L"),
		check: p.Names.New("L"),
	}

	chk := p.Names.New("t")

	tlog.SpanFromContext(ctx).V("lower_loops").Printw("while", "pos", s.Pos, "pre", lp.pre, "post", lp.post, "body", lp.body, "check", lp.check)

	code = append(code,
		ir.Nop{Base: ir.Base{Label: lp.pre}},
		ir.Nop{Base: ir.Base{Label: lp.check}},
	)

	code, err = p.assign(code, chk, s.Check)
	if err != nil {
		return nil, errors.Wrap(err, "while check")
	}

	code = append(code,
		ir.CJump{Check: ir.JZ, Var: chk, Target: lp.post},
		ir.Nop{Base: ir.Base{Label: lp.body}},
	)

	code, err = p.block(ctx, code, s.Body, lp)
	if err != nil {
		return nil, err
	}

	code = append(code,
		ir.Jump{Target: lp.check},
		ir.Nop{Base: ir.Base{Label: lp.post}},
	)

	return code, nil
}

func (p *pkgContext) ifStmt(ctx context.Context, code []ir.Stmt, s ast.If, lp *loop) (_ []ir.Stmt, err error) {
	chk := p.Names.New("t")
	lfalse := p.Names.New("L")
	lpost := p.Names.New("L")

	code, err = p.assign(code, chk, s.Check)
	if err != nil {
		return nil, errors.Wrap(err, "if check")
	}

	code = append(code, ir.CJump{Check: ir.JZ, Var: chk, Target: lfalse})

	code, err = p.block(ctx, code, s.Then, lp)
	if err != nil {
		return nil, err
	}

	code = append(code,
		ir.Jump{Target: lpost},
		ir.Nop{Base: ir.Base{Label: lfalse}},
	)

	code, err = p.block(ctx, code, s.Else, lp)
	if err != nil {
		return nil, err
	}

	return append(code, ir.Nop{Base: ir.Base{Label: lpost}}), nil
}

func irType(t ast.Type) ir.Type {
	switch t {
	case ast.TInt:
		return ir.TInt
	case ast.TChar:
		return ir.TChar
	case ast.TString:
		return ir.TString
	default:
		return ir.Void
	}
}
