package ir

import (
	"fmt"
	"strconv"
)

// AppendProg appends the text form of the program.
func AppendProg(b []byte, p *Prog) []byte {
	for _, g := range p.Globals {
		b = fmt.Appendf(b, "global %v %v", g.Type, g.Name)

		if g.Init != nil {
			b = fmt.Appendf(b, " = %s", FormatValue(g.Init))
		}

		b = append(b, '\n')
	}

	for _, f := range p.Funcs {
		b = AppendFunc(b, f)
	}

	return b
}

func AppendFunc(b []byte, f *Func) []byte {
	b = fmt.Appendf(b, "\nfunc %v %v(", f.Ret, f.Name)

	for i, p := range f.Params {
		if i != 0 {
			b = append(b, ", "...)
		}

		b = fmt.Appendf(b, "%v %v", p.Type, p.Name)
	}

	b = append(b, ')')

	if f.External {
		return append(b, '\n')
	}

	b = append(b, " {\n"...)

	for _, x := range f.Body {
		b = AppendStmt(b, x)
	}

	return append(b, "}\n"...)
}

func AppendStmt(b []byte, x Stmt) []byte {
	if l := x.StmtLabel(); l != "" {
		b = fmt.Appendf(b, "%s:\n", l)
	}

	switch x := x.(type) {
	case Nop:
		return b
	case Store:
		b = fmt.Appendf(b, "\t%s = %s", x.Dest, FormatValue(x.Value))
	case BinOp:
		b = fmt.Appendf(b, "\t%s = %v %s, %s", x.Dest, x.Op, x.L, x.R)
	case UnOp:
		b = fmt.Appendf(b, "\t%s = %v %s", x.Dest, x.Op, x.Arg)
	case Jump:
		b = fmt.Appendf(b, "\tjump %s", x.Target)
	case CJump:
		b = fmt.Appendf(b, "\t%v %s, %s", x.Check, x.Var, x.Target)
	case Call:
		b = append(b, '\t')

		if x.Result != "" {
			b = fmt.Appendf(b, "%s = ", x.Result)
		}

		b = fmt.Appendf(b, "call %s%v", x.Func, x.Args)
	case Return:
		b = append(b, "\treturn"...)

		if x.Var != "" {
			b = fmt.Appendf(b, " %s", x.Var)
		}
	case Move:
		b = fmt.Appendf(b, "\tmove %v <- %v", x.Dst, x.Src)
	default:
		b = fmt.Appendf(b, "\t<%T>", x)
	}

	return append(b, '\n')
}

func FormatValue(v Value) string {
	switch v := v.(type) {
	case Int:
		return strconv.FormatInt(int64(v), 10)
	case Char:
		return strconv.QuoteRune(rune(v))
	case String:
		return strconv.Quote(string(v))
	case Sym:
		return "&" + string(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
