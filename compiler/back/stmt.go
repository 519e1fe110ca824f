package back

import (
	"fmt"
	"strconv"
	"strings"

	"tlog.app/go/errors"

	"github.com/slowlang/crv/compiler/ir"
	"github.com/slowlang/crv/compiler/reg"
)

var bops = map[ir.BOp]string{
	ir.Add:    "add",
	ir.Sub:    "sub",
	ir.Mul:    "mul",
	ir.Div:    "div",
	ir.Rem:    "rem",
	ir.BitAnd: "and",
	ir.BitOr:  "or",
	ir.BitXor: "xor",
	ir.BitLsh: "sll",
	ir.BitRsh: "srl",
}

func (f *funContext) stmt(b []byte, x ir.Stmt) (_ []byte, err error) {
	if l := x.StmtLabel(); l != "" {
		b = fmt.Appendf(b, "%s:\n", l)
	}

	switch x := x.(type) {
	case ir.Nop:
		return b, nil
	case ir.Move:
		return f.move(b, x.Src, x.Dst)
	case ir.Store:
		return f.store(b, x)
	case ir.BinOp:
		return f.binop(b, x)
	case ir.UnOp:
		return f.unop(b, x)
	case ir.Jump:
		return fmt.Appendf(b, "\tj\t%s\n", x.Target), nil
	case ir.CJump:
		r, err := f.reg(x.Var)
		if err != nil {
			return nil, err
		}

		var op string

		switch x.Check {
		case ir.JZ:
			op = "beqz"
		case ir.JNZ:
			op = "bnez"
		default:
			return nil, errors.New("unsupported jump: %v", x.Check)
		}

		return fmt.Appendf(b, "\t%s\t%v, %s\n", op, r, x.Target), nil
	case ir.Call:
		return f.call(b, x)
	case ir.Return:
		if x.Var != "" {
			src, err := f.resolve(x.Var)
			if err != nil {
				return nil, err
			}

			b, err = f.move(b, src, ir.RegLoc{Reg: reg.Rets()[0]})
			if err != nil {
				return nil, err
			}
		}

		return fmt.Appendf(b, "\tj\t%s\n", f.f.ExitLabel()), nil
	default:
		return nil, errors.New("unsupported statement: %T", x)
	}
}

func (f *funContext) store(b []byte, x ir.Store) (_ []byte, err error) {
	dst, err := f.resolve(x.Dest)
	if err != nil {
		return nil, err
	}

	switch v := x.Value.(type) {
	case ir.Int:
		b = fmt.Appendf(b, "\tli\t%v, %d\n", reg.Tmp, int64(v))
	case ir.Char:
		b = fmt.Appendf(b, "\tli\t%v, %d\n", reg.Tmp, byte(v))
	case ir.Sym:
		src, err := f.resolve(string(v))
		if err != nil {
			return nil, err
		}

		return f.move(b, src, dst)
	default:
		return nil, errors.New("unsupported value: %T", x.Value)
	}

	return f.move(b, ir.RegLoc{Reg: reg.Tmp}, dst)
}

func (f *funContext) binop(b []byte, x ir.BinOp) (_ []byte, err error) {
	d, l, r, err := f.reg3(x.Dest, x.L, x.R)
	if err != nil {
		return nil, err
	}

	switch x.Op {
	case ir.CLT:
		b = fmt.Appendf(b, "\tslt\t%v, %v, %v\n", d, l, r)
	case ir.CGT:
		b = fmt.Appendf(b, "\tslt\t%v, %v, %v\n", d, r, l)
	case ir.CEQ, ir.CNE:
		op := "seqz"
		if x.Op == ir.CNE {
			op = "snez"
		}

		b = fmt.Appendf(b, "\tsub\t%v, %v, %v\n", reg.Tmp, l, r)
		b = fmt.Appendf(b, "\t%s\t%v, %v\n", op, d, reg.Tmp)
	case ir.LogAnd, ir.LogOr:
		op := "and"
		if x.Op == ir.LogOr {
			op = "or"
		}

		b = fmt.Appendf(b, "\t%s\t%v, %v, %v\n", op, reg.Tmp, l, r)
		b = fmt.Appendf(b, "\tandi\t%v, %v, 1\n", d, reg.Tmp)
	default:
		op, ok := bops[x.Op]
		if !ok {
			return nil, errors.New("unsupported binary op: %v", x.Op)
		}

		b = fmt.Appendf(b, "\t%s\t%v, %v, %v\n", op, d, l, r)
	}

	return b, nil
}

func (f *funContext) unop(b []byte, x ir.UnOp) (_ []byte, err error) {
	d, err := f.reg(x.Dest)
	if err != nil {
		return nil, err
	}

	a, err := f.reg(x.Arg)
	if err != nil {
		return nil, err
	}

	switch x.Op {
	case ir.Minus:
		b = fmt.Appendf(b, "\tneg\t%v, %v\n", d, a)
	case ir.BitNeg:
		b = fmt.Appendf(b, "\tnot\t%v, %v\n", d, a)
	case ir.LogNeg:
		b = fmt.Appendf(b, "\tnot\t%v, %v\n", reg.Tmp, a)
		b = fmt.Appendf(b, "\tandi\t%v, %v, 1\n", d, reg.Tmp)
	case ir.Copy:
		b = fmt.Appendf(b, "\taddi\t%v, %v, 0\n", d, a)
	default:
		return nil, errors.New("unsupported unary op: %v", x.Op)
	}

	return b, nil
}

func (f *funContext) call(b []byte, x ir.Call) (_ []byte, err error) {
	fn, ok := f.funcs[x.Func]
	if !ok {
		return nil, errors.New("undeclared function: %v", x.Func)
	}

	if len(fn.Params) != len(x.Args) {
		return nil, errors.New("function %v takes %d args, got %d", x.Func, len(fn.Params), len(x.Args))
	}

	if len(x.Args) > MaxArgs {
		return nil, errors.New("function %v: too many args: %d > %d", x.Func, len(x.Args), MaxArgs)
	}

	args := reg.Args()

	for i, a := range x.Args {
		src, err := f.resolve(a)
		if err != nil {
			return nil, err
		}

		b, err = f.move(b, src, ir.RegLoc{Reg: args[i]})
		if err != nil {
			return nil, errors.Wrap(err, "arg %d", i)
		}
	}

	b = fmt.Appendf(b, "\tcall\t%s\n", x.Func)

	if x.Result == "" {
		return b, nil
	}

	dst, err := f.resolve(x.Result)
	if err != nil {
		return nil, err
	}

	return f.move(b, ir.RegLoc{Reg: reg.Rets()[0]}, dst)
}

// move transfers a value between locations.
// Stack and memory locations can only be paired with a register.
func (f *funContext) move(b []byte, src, dst ir.Loc) (_ []byte, err error) {
	switch s := src.(type) {
	case ir.RegLoc:
		switch d := dst.(type) {
		case ir.RegLoc:
			return fmt.Appendf(b, "\taddi\t%v, %v, 0\n", d.Reg, s.Reg), nil
		case ir.StackLoc:
			if !imm12(d.Off) {
				return nil, errors.New("stack offset out of range: %d", d.Off)
			}

			return fmt.Appendf(b, "\tsd\t%v, %d(sp)\n", s.Reg, d.Off), nil
		case ir.MemLoc:
			b = fmt.Appendf(b, "\tla\t%v, %s\n", reg.Tmp, d.Label)
			return fmt.Appendf(b, "\t%s\t%v, 0(%v)\n", storeOp(d.Size), s.Reg, reg.Tmp), nil
		}
	case ir.StackLoc:
		if d, ok := dst.(ir.RegLoc); ok {
			if !imm12(s.Off) {
				return nil, errors.New("stack offset out of range: %d", s.Off)
			}

			return fmt.Appendf(b, "\tld\t%v, %d(sp)\n", d.Reg, s.Off), nil
		}
	case ir.MemLoc:
		if d, ok := dst.(ir.RegLoc); ok {
			b = fmt.Appendf(b, "\tla\t%v, %s\n", reg.Tmp, s.Label)
			return fmt.Appendf(b, "\t%s\t%v, 0(%v)\n", loadOp(s.Size), d.Reg, reg.Tmp), nil
		}
	}

	return nil, errors.New("unsupported move: %v -> %v", src, dst)
}

// resolve finds the name in the function layout, then in globals.
func (f *funContext) resolve(name string) (ir.Loc, error) {
	if x, ok := f.l.Get(name); ok {
		return x, nil
	}

	if x, ok := f.globals[name]; ok {
		return x, nil
	}

	return nil, errors.New("variable not found: %v", name)
}

func (f *funContext) reg(name string) (reg.Reg, error) {
	x, err := f.resolve(name)
	if err != nil {
		return 0, err
	}

	r, ok := x.(ir.RegLoc)
	if !ok {
		return 0, errors.New("variable %v not physically assigned to a register: %v", name, x)
	}

	return r.Reg, nil
}

func (f *funContext) reg3(d, l, r string) (dr, lr, rr reg.Reg, err error) {
	dr, err = f.reg(d)
	if err != nil {
		return
	}

	lr, err = f.reg(l)
	if err != nil {
		return
	}

	rr, err = f.reg(r)

	return
}

func storeOp(size int) string {
	if size == 1 {
		return "sb"
	}

	return "sd"
}

func loadOp(size int) string {
	if size == 1 {
		return "lbu"
	}

	return "ld"
}

// Escape quotes s for the .string directive.
func Escape(s string) string {
	var b strings.Builder

	b.WriteByte('"')

	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			if c < 0x20 || c >= 0x7f {
				b.WriteByte('\\')
				b.WriteString(strconv.FormatInt(int64(c)|0o1000, 8)[1:])

				continue
			}

			b.WriteByte(c)
		}
	}

	b.WriteByte('"')

	return b.String()
}

func stmtText(x ir.Stmt) string {
	return strings.TrimSpace(string(ir.AppendStmt(nil, x.WithLabel(""))))
}
