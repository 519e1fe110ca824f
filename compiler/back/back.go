package back

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/crv/compiler/hir"
	"github.com/slowlang/crv/compiler/ir"
	"github.com/slowlang/crv/compiler/reg"
)

type (
	// Compiler emits RV64 assembly for programs processed by hir.Assign.
	Compiler struct {
		Entry     string
		StackSize int
	}

	pkgContext struct {
		*ir.Prog

		funcs   map[string]*ir.Func
		globals map[string]ir.MemLoc
	}

	funContext struct {
		*pkgContext

		f *ir.Func
		l *ir.Layout
	}
)

const (
	DefaultEntry     = "main"
	DefaultStackSize = 4096

	// MaxArgs is the number of argument registers.
	MaxArgs = 8

	// dataPrefix starts string data labels. Identifiers can't contain '.'.
	dataPrefix = ".Ldata_"
)

// startupLabels are defined by the program prologue.
var startupLabels = []string{"_start", "halt", "stack_bottom", "stack_top"}

func New() *Compiler {
	return &Compiler{
		Entry:     DefaultEntry,
		StackSize: DefaultStackSize,
	}
}

func (c *Compiler) CompileProg(ctx context.Context, b []byte, p *ir.Prog) (_ []byte, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "back: compile prog", "entry", c.Entry, "funcs", len(p.Funcs), "globals", len(p.Globals))
	defer tr.Finish("err", &err)

	pc := &pkgContext{
		Prog:    p,
		funcs:   make(map[string]*ir.Func, len(p.Funcs)),
		globals: make(map[string]ir.MemLoc, len(p.Globals)),
	}

	for _, f := range p.Funcs {
		if _, ok := pc.funcs[f.Name]; ok {
			return nil, errors.New("redeclared function: %v", f.Name)
		}

		if lo.Contains(startupLabels, f.Name) {
			return nil, errors.New("function name is reserved: %v", f.Name)
		}

		pc.funcs[f.Name] = f
	}

	if f, ok := pc.funcs[c.Entry]; !ok || !f.Impl() {
		return nil, errors.New("entry function not defined: %v", c.Entry)
	}

	b = append(b, "\t.align\t2\n"...)
	b = append(b, "\t.section\t.data\n"...)

	for _, g := range p.Globals {
		b, err = pc.global(b, g)
		if err != nil {
			return nil, errors.Wrap(err, "global %v", g.Name)
		}
	}

	b = fmt.Appendf(b, `	.section	.bss
	.align	4
stack_bottom:
	.space	%d
stack_top:
	.section	.text
	.global	_start
_start:
	csrr	t0, mhartid
	bnez	t0, halt
	la	sp, stack_top
	call	%s
	j	halt
`, c.StackSize, c.Entry)

	for _, f := range p.Funcs {
		if !f.Impl() {
			continue
		}

		b, err = pc.compileFunc(ctx, b, f)
		if err != nil {
			return nil, errors.Wrap(err, "func %v", f.Name)
		}
	}

	b = append(b, "halt:\n\tj\thalt\n"...)

	return b, nil
}

func (p *pkgContext) global(b []byte, g *ir.Global) (_ []byte, err error) {
	if _, ok := p.globals[g.Name]; ok {
		return nil, errors.New("redeclared global: %v", g.Name)
	}

	if _, ok := p.funcs[g.Name]; ok {
		return nil, errors.New("global redeclares function: %v", g.Name)
	}

	if lo.Contains(startupLabels, g.Name) {
		return nil, errors.New("global name is reserved: %v", g.Name)
	}

	switch g.Type {
	case ir.TInt:
		var v ir.Int

		if g.Init != nil {
			x, ok := g.Init.(ir.Int)
			if !ok {
				return nil, errors.New("int global initialized with %v", g.Init.Type())
			}

			v = x
		}

		b = fmt.Appendf(b, "\t.align\t3\n%s:\n\t.quad\t%d\n", g.Name, int64(v))
	case ir.TChar:
		var v ir.Char

		if g.Init != nil {
			c, ok := g.Init.(ir.Char)
			if !ok {
				return nil, errors.New("char global initialized with %v", g.Init.Type())
			}

			v = c
		}

		b = fmt.Appendf(b, "%s:\n\t.byte\t%d\n", g.Name, byte(v))
	case ir.TString:
		s, ok := g.Init.(ir.String)
		if !ok {
			return nil, errors.New("string global without string initializer")
		}

		data := dataPrefix + g.Name

		b = fmt.Appendf(b, "%s:\n\t.string\t%s\n", data, Escape(string(s)))
		b = fmt.Appendf(b, "\t.align\t3\n%s:\n\t.dword\t%s\n", g.Name, data)
	default:
		return nil, errors.New("unsupported global type: %v", g.Type)
	}

	p.globals[g.Name] = ir.MemLoc{Label: g.Name, Size: g.Type.Size()}

	return b, nil
}

func (p *pkgContext) compileFunc(ctx context.Context, b []byte, fn *ir.Func) (_ []byte, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "back: compile func", "name", fn.Name)
	defer tr.Finish("err", &err)

	if fn.Layout == nil {
		return nil, errors.New("storage is not assigned")
	}

	f := &funContext{
		pkgContext: p,
		f:          fn,
		l:          fn.Layout,
	}

	size := f.l.Size

	if !imm12(-size) || !imm12(size) {
		return nil, errors.New("frame too large: %d", size)
	}

	if len(fn.Params) > MaxArgs {
		return nil, errors.New("too many params: %d > %d", len(fn.Params), MaxArgs)
	}

	saved := hir.Saved(f.l)

	b = fmt.Appendf(b, "\n%s:\n", fn.Name)
	b = fmt.Appendf(b, "\taddi\tsp, sp, %d\n", -size)

	for _, s := range saved {
		b = fmt.Appendf(b, "\tsd\t%v, %d(sp)\n", s.Reg, s.Off)
	}

	args := reg.Args()

	for i, par := range fn.Params {
		if x, ok := f.l.Vars[par.Name].(ir.StackLoc); ok {
			b = fmt.Appendf(b, "\tsd\t%v, %d(sp)\n", args[i], x.Off)
		}
	}

	for _, x := range fn.Body {
		b, err = f.stmt(b, x)
		if err != nil {
			return nil, errors.Wrap(err, "%s", stmtText(x))
		}
	}

	b = fmt.Appendf(b, "%s:\n", fn.ExitLabel())

	for i := len(saved) - 1; i >= 0; i-- {
		s := saved[i]

		b = fmt.Appendf(b, "\tld\t%v, %d(sp)\n", s.Reg, s.Off)
	}

	b = fmt.Appendf(b, "\taddi\tsp, sp, %d\n", size)
	b = append(b, "\tjr\tra\n"...)

	tr.V("frame").Printw("frame", "size", size, "saved", len(saved), "stmts", len(fn.Body))

	return b, nil
}

func imm12(x int) bool {
	return x >= -2048 && x < 2048
}
