package hir

import (
	"context"
	"strings"

	"nikand.dev/go/heap"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/crv/compiler/ir"
	"github.com/slowlang/crv/compiler/reg"
)

type (
	// funContext is owned by a single pass over one function.
	funContext struct {
		*ir.Func

		prog *ir.Prog
		l    *ir.Layout

		tr tlog.Span
	}

	usage struct {
		name string
		r, w int
		seq  int
	}
)

// Assign processes every function with a body in place:
// extracts string literals, assigns storage, builds the frame and inserts moves.
func Assign(ctx context.Context, p *ir.Prog) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "hir: assign", "funcs", len(p.Funcs))
	defer tr.Finish("err", &err)

	for _, f := range p.Funcs {
		if !f.Impl() {
			continue
		}

		err = assignFunc(ctx, p, f)
		if err != nil {
			return errors.Wrap(err, "func %v", f.Name)
		}
	}

	return nil
}

func assignFunc(ctx context.Context, p *ir.Prog, f *ir.Func) (err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "hir: func", "name", f.Name)
	defer tr.Finish("err", &err)

	fc := &funContext{
		Func: f,
		prog: p,
		l:    ir.NewLayout(),
		tr:   tr,
	}

	err = fc.extractStrings()
	if err != nil {
		return errors.Wrap(err, "extract strings")
	}

	err = fc.allocate()
	if err != nil {
		return errors.Wrap(err, "allocate")
	}

	Frame(fc.l)

	err = fc.insertMoves()
	if err != nil {
		return errors.Wrap(err, "moves")
	}

	f.Layout = fc.l

	if tr.If("dump_hir") {
		tr.Printw("layout", "frame", fc.l.Size, "stack", len(fc.l.Stack), "regs", fc.l.Regs())
		tr.Printw("hir", "code", string(ir.AppendFunc(nil, f)))
	}

	return nil
}

func (fc *funContext) extractStrings() error {
	for i, x := range fc.Body {
		st, ok := x.(ir.Store)
		if !ok {
			continue
		}

		s, ok := st.Value.(ir.String)
		if !ok {
			continue
		}

		label := fc.prog.Names.New("str")

		if fc.prog.Global(label) != nil {
			return errors.New("string label collides with global: %v", label)
		}

		fc.prog.Globals = append(fc.prog.Globals, &ir.Global{
			Name: label,
			Type: ir.TString,
			Init: s,
		})

		st.Value = ir.Sym(label)
		fc.Body[i] = st

		fc.tr.V("strings").Printw("string extracted", "label", label, "len", len(s))
	}

	return nil
}

func (fc *funContext) allocate() error {
	l := fc.l

	for _, g := range fc.prog.Globals {
		if l.Has(g.Name) {
			return errors.New("redeclared global: %v", g.Name)
		}

		l.Set(g.Name, ir.MemLoc{Label: g.Name, Size: g.Type.Size()})
	}

	for _, p := range fc.Params {
		l.Set(p.Name, ir.StackLoc{Size: ir.SlotSize})
	}

	cands := heap.Heap[usage]{Less: usageLess}

	for _, u := range countUsage(fc.Body) {
		cands.Push(u)
	}

	free := reg.Locals()

	for cands.Len() != 0 {
		u := cands.Pop()

		if l.Has(u.name) {
			continue
		}

		if len(free) == 0 || u.r == 0 {
			l.Set(u.name, ir.StackLoc{Size: ir.SlotSize})
			continue
		}

		r := free[0]
		free = free[1:]

		l.Set(u.name, ir.RegLoc{Reg: r})

		fc.tr.V("alloc").Printw("register assigned", "name", u.name, "reg", r, "reads", u.r, "writes", u.w)
	}

	return nil
}

// insertMoves makes operands of every statement but calls register resident.
// Input moves go before the statement, output moves after it.
func (fc *funContext) insertMoves() error {
	res := make([]ir.Stmt, 0, len(fc.Body))

	for _, x := range fc.Body {
		// arguments and result are moved to and from a0..a7 by the emitter
		if _, ok := x.(ir.Call); ok {
			res = append(res, x)
			continue
		}

		pool := reg.ScratchPool()

		var in, out map[string]string
		var pre, post []ir.Stmt

		scratch := func(name string, m map[string]string) (ir.Loc, ir.RegLoc, bool, error) {
			if _, ok := m[name]; ok {
				return nil, ir.RegLoc{}, false, nil
			}

			orig, ok := fc.l.Get(name)
			if !ok {
				return nil, ir.RegLoc{}, false, nil
			}

			if _, ok := orig.(ir.RegLoc); ok {
				return nil, ir.RegLoc{}, false, nil
			}

			if len(pool) == 0 {
				return nil, ir.RegLoc{}, false, errors.New("out of scratch registers: %v", name)
			}

			tmp := ir.RegLoc{Reg: pool[len(pool)-1]}
			pool = pool[:len(pool)-1]

			m[name] = fc.prog.Names.New("s")
			fc.l.Set(m[name], tmp)

			return orig, tmp, true, nil
		}

		for _, name := range x.Inputs() {
			if in == nil {
				in = map[string]string{}
			}

			orig, tmp, ok, err := scratch(name, in)
			if err != nil {
				return errors.Wrap(err, "%s", stmtText(x))
			}

			if ok {
				pre = append(pre, ir.Move{Src: orig, Dst: tmp})
			}
		}

		for _, name := range x.Outputs() {
			if out == nil {
				out = map[string]string{}
			}

			orig, tmp, ok, err := scratch(name, out)
			if err != nil {
				return errors.Wrap(err, "%s", stmtText(x))
			}

			if ok {
				post = append(post, ir.Move{Src: tmp, Dst: orig})
			}
		}

		if len(pre) == 0 && len(post) == 0 {
			res = append(res, x)
			continue
		}

		// the label stays on the first emitted statement
		if l := x.StmtLabel(); l != "" && len(pre) != 0 {
			pre[0] = pre[0].WithLabel(l)
			x = x.WithLabel("")
		}

		res = append(res, pre...)
		res = append(res, x.Substitute(in, out))
		res = append(res, post...)

		fc.tr.V("moves").Printw("moves inserted", "stmt", stmtText(x), "in", len(pre), "out", len(post))
	}

	fc.Body = res

	return nil
}

// countUsage returns names in order of appearance with read and write counts.
func countUsage(code []ir.Stmt) []usage {
	var us []usage
	idx := map[string]int{}

	get := func(name string) *usage {
		i, ok := idx[name]
		if !ok {
			i = len(us)
			idx[name] = i

			us = append(us, usage{name: name, seq: i})
		}

		return &us[i]
	}

	for _, x := range code {
		for _, name := range x.Inputs() {
			get(name).r++
		}

		for _, name := range x.Outputs() {
			get(name).w++
		}
	}

	return us
}

func stmtText(x ir.Stmt) string {
	return strings.TrimSpace(string(ir.AppendStmt(nil, x.WithLabel(""))))
}

func usageLess(d []usage, i, j int) bool {
	if a, b := d[i].r+d[i].w, d[j].r+d[j].w; a != b {
		return a > b
	}

	return d[i].seq < d[j].seq
}
