package front

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/crv/compiler/ast"
	"github.com/slowlang/crv/compiler/ir"
)

type (
	parser struct {
		name string
		b    []byte

		ts []token
		i  int
	}

	// binary operator precedence level, lowest first
	level map[string]ast.BOp
)

var levels = []level{
	{"||": ast.LOr},
	{"&&": ast.LAnd},
	{"|": ast.Or},
	{"^": ast.Xor},
	{"&": ast.And},
	{"==": ast.Eq, "!=": ast.Ne},
	{"<": ast.Lt, "<=": ast.Le, ">": ast.Gt, ">=": ast.Ge},
	{"<<": ast.Shl, ">>": ast.Shr},
	{"+": ast.Add, "-": ast.Sub},
	{"*": ast.Mul, "/": ast.Div, "%": ast.Mod},
}

var types = map[string]ast.Type{
	"void":   ast.Void,
	"int":    ast.TInt,
	"char":   ast.TChar,
	"string": ast.TString,
}

var keywords = map[string]bool{
	"if": true, "else": true, "while": true,
	"break": true, "continue": true, "return": true,
}

func ParseFile(ctx context.Context, name string) (*ast.Prog, error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	return Parse(ctx, name, text)
}

// Parse parses the whole compilation unit.
// Errors are prefixed with name:line:col.
func Parse(ctx context.Context, name string, text []byte) (_ *ast.Prog, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "front: parse", "name", name, "size", len(text))
	defer tr.Finish("err", &err)

	p := &parser{
		name: name,
		b:    text,
	}

	ts, i, err := lex(text)
	if err != nil {
		return nil, p.errorf(i, "%v", err)
	}

	p.ts = ts

	tr.V("tokens").Printw("lexed", "tokens", len(ts))

	prog := &ast.Prog{}

	for p.peek().kind != tEOF {
		err = p.decl(prog)
		if err != nil {
			return nil, err
		}
	}

	if tr.If("dump_ast") {
		tr.Printw("parsed", "globals", len(prog.Globals), "funcs", len(prog.Funcs))
	}

	return prog, nil
}

func (p *parser) decl(prog *ast.Prog) error {
	st := p.peek()

	typ, err := p.typ()
	if err != nil {
		return err
	}

	name, err := p.ident()
	if err != nil {
		return err
	}

	if !p.accept("(") {
		g := &ast.Global{
			Base: p.base(st),
			Name: name,
			Type: typ,
		}

		if typ == ast.Void {
			return p.errorf(st.pos, "void global: %v", name)
		}

		if p.accept("=") {
			g.Init, err = p.literal()
			if err != nil {
				return err
			}
		} else if typ == ast.TString {
			return p.errorf(st.pos, "string global %v declared without initializer", name)
		}

		prog.Globals = append(prog.Globals, g)

		return p.expect(";")
	}

	f := &ast.Func{
		Base: p.base(st),
		Name: name,
		Ret:  typ,
	}

	for !p.accept(")") {
		if len(f.Params) != 0 {
			err = p.expect(",")
			if err != nil {
				return err
			}
		}

		pt, err := p.typ()
		if err != nil {
			return err
		}

		pn, err := p.ident()
		if err != nil {
			return err
		}

		f.Params = append(f.Params, ast.Param{Name: pn, Type: pt})
	}

	if p.accept(";") {
		f.External = true
	} else {
		f.Body, err = p.block()
		if err != nil {
			return err
		}
	}

	prog.Funcs = append(prog.Funcs, f)

	return nil
}

func (p *parser) block() (list []ast.Stmt, err error) {
	err = p.expect("{")
	if err != nil {
		return nil, err
	}

	for !p.accept("}") {
		if p.peek().kind == tEOF {
			return nil, p.errorf(p.peek().pos, "unexpected end of file, expected }")
		}

		var s []ast.Stmt

		s, err = p.stmt()
		if err != nil {
			return nil, err
		}

		list = append(list, s...)
	}

	return list, nil
}

// stmt returns a list since nested blocks are flattened.
func (p *parser) stmt() (_ []ast.Stmt, err error) {
	t := p.peek()
	base := p.base(t)

	if t.kind == tPunct {
		switch t.text {
		case "{":
			return p.block()
		case ";":
			p.i++
			return nil, nil
		}
	}

	if t.kind != tIdent {
		return p.exprStmt()
	}

	if typ, ok := types[t.text]; ok {
		p.i++

		name, err := p.ident()
		if err != nil {
			return nil, err
		}

		if typ == ast.Void {
			return nil, p.errorf(t.pos, "void variable: %v", name)
		}

		s := ast.VarDecl{Base: base, Name: name, Type: typ}

		if p.accept("=") {
			s.Init, err = p.expr()
			if err != nil {
				return nil, err
			}
		} else if typ == ast.TString {
			return nil, p.errorf(t.pos, "string variable %v declared without initializer", name)
		}

		return []ast.Stmt{s}, p.expect(";")
	}

	switch t.text {
	case "if":
		p.i++

		check, err := p.cond()
		if err != nil {
			return nil, err
		}

		then, err := p.stmt()
		if err != nil {
			return nil, err
		}

		s := ast.If{Base: base, Check: check, Then: then}

		if p.accept("else") {
			s.Else, err = p.stmt()
			if err != nil {
				return nil, err
			}
		}

		return []ast.Stmt{s}, nil
	case "while":
		p.i++

		check, err := p.cond()
		if err != nil {
			return nil, err
		}

		body, err := p.stmt()
		if err != nil {
			return nil, err
		}

		return []ast.Stmt{ast.While{Base: base, Check: check, Body: body}}, nil
	case "break":
		p.i++
		return []ast.Stmt{ast.Break{Base: base}}, p.expect(";")
	case "continue":
		p.i++
		return []ast.Stmt{ast.Continue{Base: base}}, p.expect(";")
	case "return":
		p.i++

		s := ast.Return{Base: base}

		if !p.accept(";") {
			s.Value, err = p.expr()
			if err != nil {
				return nil, err
			}

			err = p.expect(";")
		}

		return []ast.Stmt{s}, err
	}

	if n := p.peekAt(1); n.kind == tPunct && n.text == "=" {
		name, err := p.ident()
		if err != nil {
			return nil, err
		}

		p.i++

		e, err := p.expr()
		if err != nil {
			return nil, err
		}

		return []ast.Stmt{ast.Assign{Base: base, Dst: name, Expr: e}}, p.expect(";")
	}

	return p.exprStmt()
}

func (p *parser) exprStmt() ([]ast.Stmt, error) {
	base := p.base(p.peek())

	e, err := p.expr()
	if err != nil {
		return nil, err
	}

	return []ast.Stmt{ast.ExprStmt{Base: base, Expr: e}}, p.expect(";")
}

func (p *parser) cond() (ast.Expr, error) {
	err := p.expect("(")
	if err != nil {
		return nil, err
	}

	e, err := p.expr()
	if err != nil {
		return nil, err
	}

	return e, p.expect(")")
}

func (p *parser) expr() (ast.Expr, error) {
	return p.binary(0)
}

func (p *parser) binary(lvl int) (x ast.Expr, err error) {
	if lvl == len(levels) {
		return p.unary()
	}

	x, err = p.binary(lvl + 1)
	if err != nil {
		return nil, err
	}

	for {
		t := p.peek()

		op, ok := levels[lvl][t.text]
		if t.kind != tPunct || !ok {
			return x, nil
		}

		p.i++

		r, err := p.binary(lvl + 1)
		if err != nil {
			return nil, err
		}

		x = ast.Binary{Base: p.base(t), Op: op, L: x, R: r}
	}
}

func (p *parser) unary() (ast.Expr, error) {
	t := p.peek()

	var op ast.UOp

	switch {
	case t.kind != tPunct:
		return p.postfix()
	case t.text == "!":
		op = ast.Not
	case t.text == "~":
		op = ast.Inv
	case t.text == "-":
		op = ast.Neg
	case t.text == "++":
		op = ast.Inc
	case t.text == "--":
		op = ast.Dec
	default:
		return p.postfix()
	}

	p.i++

	x, err := p.unary()
	if err != nil {
		return nil, err
	}

	return p.makeUnary(t, op, x)
}

// postfix ++ and -- behave as the prefix forms.
func (p *parser) postfix() (x ast.Expr, err error) {
	x, err = p.primary()
	if err != nil {
		return nil, err
	}

	for {
		t := p.peek()

		switch {
		case t.kind == tPunct && t.text == "++":
			x, err = p.makeUnary(t, ast.Inc, x)
		case t.kind == tPunct && t.text == "--":
			x, err = p.makeUnary(t, ast.Dec, x)
		default:
			return x, nil
		}

		if err != nil {
			return nil, err
		}

		p.i++
	}
}

func (p *parser) makeUnary(t token, op ast.UOp, x ast.Expr) (ast.Expr, error) {
	if op == ast.Inc || op == ast.Dec {
		if _, ok := x.(ast.Var); !ok {
			return nil, p.errorf(t.pos, "%v needs a variable operand", op)
		}
	}

	return ast.Unary{Base: p.base(t), Op: op, X: x}, nil
}

func (p *parser) primary() (ast.Expr, error) {
	t := p.peek()

	switch t.kind {
	case tInt, tChar, tString:
		return p.literal()
	case tIdent:
		name, err := p.ident()
		if err != nil {
			return nil, err
		}

		if !p.accept("(") {
			return ast.Var{Base: p.base(t), Name: name}, nil
		}

		c := ast.Call{Base: p.base(t), Name: name}

		for !p.accept(")") {
			if len(c.Args) != 0 {
				err = p.expect(",")
				if err != nil {
					return nil, err
				}
			}

			a, err := p.expr()
			if err != nil {
				return nil, err
			}

			c.Args = append(c.Args, a)
		}

		return c, nil
	case tPunct:
		if t.text == "(" {
			return p.cond()
		}
	}

	return nil, p.unexpected(t, "expression")
}

func (p *parser) literal() (ast.Lit, error) {
	t := p.peek()
	base := p.base(t)

	switch t.kind {
	case tInt:
		v, err := strconv.ParseUint(t.text, 0, 64)
		if err != nil {
			return nil, p.errorf(t.pos, "bad integer %v: %v", t.text, err)
		}

		p.i++

		return ast.Int{Base: base, Value: v}, nil
	case tChar:
		p.i++
		return ast.Char{Base: base, Value: t.text[0]}, nil
	case tString:
		p.i++
		return ast.String{Base: base, Value: t.text}, nil
	}

	return nil, p.unexpected(t, "literal")
}

func (p *parser) typ() (ast.Type, error) {
	t := p.peek()

	typ, ok := types[t.text]
	if t.kind != tIdent || !ok {
		return 0, p.unexpected(t, "type")
	}

	p.i++

	return typ, nil
}

func (p *parser) ident() (string, error) {
	t := p.peek()

	if t.kind != tIdent || keywords[t.text] {
		return "", p.unexpected(t, "identifier")
	}

	if _, ok := types[t.text]; ok {
		return "", p.unexpected(t, "identifier")
	}

	if strings.HasPrefix(t.text, ir.Reserved) {
		return "", p.errorf(t.pos, "identifiers can't start with %q: %v", ir.Reserved, t.text)
	}

	p.i++

	return t.text, nil
}

func (p *parser) accept(text string) bool {
	t := p.peek()
	if t.kind != tPunct && t.kind != tIdent || t.text != text {
		return false
	}

	p.i++

	return true
}

func (p *parser) expect(text string) error {
	if p.accept(text) {
		return nil
	}

	return p.unexpected(p.peek(), strconv.Quote(text))
}

func (p *parser) peek() token {
	return p.peekAt(0)
}

func (p *parser) peekAt(d int) token {
	if p.i+d >= len(p.ts) {
		return p.ts[len(p.ts)-1]
	}

	return p.ts[p.i+d]
}

func (p *parser) unexpected(t token, want string) error {
	if t.kind == tEOF {
		return p.errorf(t.pos, "expected %v, got end of file", want)
	}

	return p.errorf(t.pos, "expected %v, got %v %q", want, t.kind, t.text)
}

func (p *parser) errorf(off int, format string, args ...any) error {
	return errors.New("%s:%v: %s", p.name, p.pos(off), fmt.Sprintf(format, args...))
}

func (p *parser) base(t token) ast.Base {
	return ast.Base{Pos: p.pos(t.pos)}
}

func (p *parser) pos(off int) ast.Pos {
	line := bytes.Count(p.b[:off], []byte{'\n'})
	col := off - (bytes.LastIndexByte(p.b[:off], '\n') + 1)

	return ast.Pos{Line: line + 1, Col: col + 1}
}
