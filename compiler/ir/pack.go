package ir

import (
	"io"

	"github.com/vmihailenco/msgpack/v5"
	"tlog.app/go/errors"
)

type (
	packProg struct {
		Version int
		Names   int
		Globals []packGlobal
		Funcs   []packFunc
	}

	packGlobal struct {
		Name string
		Type Type
		Init *packValue `msgpack:",omitempty"`
	}

	packFunc struct {
		Name     string
		Ret      Type
		Params   []Param
		External bool
		Body     []packStmt
	}

	packValue struct {
		Type Type
		Sym  bool `msgpack:",omitempty"`
		Int  int64
		Str  string `msgpack:",omitempty"`
	}

	packStmt struct {
		Kind  byte
		Label string `msgpack:",omitempty"`

		Op   int    `msgpack:",omitempty"`
		Dest string `msgpack:",omitempty"`
		A    string `msgpack:",omitempty"`
		B    string `msgpack:",omitempty"`

		Args  []string   `msgpack:",omitempty"`
		Value *packValue `msgpack:",omitempty"`
	}
)

const packVersion = 1

const (
	kNop = iota
	kStore
	kBinOp
	kUnOp
	kJump
	kCJump
	kCall
	kReturn
)

// Pack writes the program in msgpack form.
// Only programs before storage assignment can be packed.
func Pack(w io.Writer, p *Prog) (err error) {
	pp := packProg{
		Version: packVersion,
		Names:   p.Names.Next,
	}

	for _, g := range p.Globals {
		pg := packGlobal{Name: g.Name, Type: g.Type}

		if g.Init != nil {
			pg.Init, err = packVal(g.Init)
			if err != nil {
				return errors.Wrap(err, "global %v", g.Name)
			}
		}

		pp.Globals = append(pp.Globals, pg)
	}

	for _, f := range p.Funcs {
		pf := packFunc{
			Name:     f.Name,
			Ret:      f.Ret,
			Params:   f.Params,
			External: f.External,
		}

		for i, x := range f.Body {
			ps, err := packStmtOf(x)
			if err != nil {
				return errors.Wrap(err, "func %v: stmt %d", f.Name, i)
			}

			pf.Body = append(pf.Body, ps)
		}

		pp.Funcs = append(pp.Funcs, pf)
	}

	err = msgpack.NewEncoder(w).Encode(&pp)
	if err != nil {
		return errors.Wrap(err, "encode")
	}

	return nil
}

// Unpack reads a program written by Pack.
func Unpack(r io.Reader) (p *Prog, err error) {
	var pp packProg

	err = msgpack.NewDecoder(r).Decode(&pp)
	if err != nil {
		return nil, errors.Wrap(err, "decode")
	}

	if pp.Version != packVersion {
		return nil, errors.New("unsupported ir pack version: %v", pp.Version)
	}

	p = &Prog{
		Names: Namer{Next: pp.Names},
	}

	for _, pg := range pp.Globals {
		g := &Global{Name: pg.Name, Type: pg.Type}

		if pg.Init != nil {
			g.Init = unpackVal(pg.Init)
		}

		p.Globals = append(p.Globals, g)
	}

	for _, pf := range pp.Funcs {
		f := &Func{
			Name:     pf.Name,
			Ret:      pf.Ret,
			Params:   pf.Params,
			External: pf.External,
		}

		if !f.External {
			f.Body = make([]Stmt, 0, len(pf.Body))
		}

		for i, ps := range pf.Body {
			x, err := unpackStmt(ps)
			if err != nil {
				return nil, errors.Wrap(err, "func %v: stmt %d", pf.Name, i)
			}

			f.Body = append(f.Body, x)
		}

		p.Funcs = append(p.Funcs, f)
	}

	return p, nil
}

func packVal(v Value) (*packValue, error) {
	switch v := v.(type) {
	case Int:
		return &packValue{Type: TInt, Int: int64(v)}, nil
	case Char:
		return &packValue{Type: TChar, Int: int64(v)}, nil
	case String:
		return &packValue{Type: TString, Str: string(v)}, nil
	case Sym:
		return &packValue{Type: TString, Sym: true, Str: string(v)}, nil
	default:
		return nil, errors.New("unsupported value: %T", v)
	}
}

func unpackVal(pv *packValue) Value {
	switch {
	case pv.Type == TChar:
		return Char(pv.Int)
	case pv.Type == TString && pv.Sym:
		return Sym(pv.Str)
	case pv.Type == TString:
		return String(pv.Str)
	default:
		return Int(pv.Int)
	}
}

func packStmtOf(x Stmt) (ps packStmt, err error) {
	ps.Label = x.StmtLabel()

	switch x := x.(type) {
	case Nop:
		ps.Kind = kNop
	case Store:
		ps.Kind = kStore
		ps.Dest = x.Dest
		ps.Value, err = packVal(x.Value)
	case BinOp:
		ps.Kind = kBinOp
		ps.Op = int(x.Op)
		ps.Dest, ps.A, ps.B = x.Dest, x.L, x.R
	case UnOp:
		ps.Kind = kUnOp
		ps.Op = int(x.Op)
		ps.Dest, ps.A = x.Dest, x.Arg
	case Jump:
		ps.Kind = kJump
		ps.A = x.Target
	case CJump:
		ps.Kind = kCJump
		ps.Op = int(x.Check)
		ps.A, ps.B = x.Var, x.Target
	case Call:
		ps.Kind = kCall
		ps.A = x.Func
		ps.Args = x.Args
		ps.Dest = x.Result
	case Return:
		ps.Kind = kReturn
		ps.A = x.Var
	default:
		err = errors.New("can't pack %T", x)
	}

	return ps, err
}

func unpackStmt(ps packStmt) (x Stmt, err error) {
	switch ps.Kind {
	case kNop:
		x = Nop{}
	case kStore:
		if ps.Value == nil {
			return nil, errors.New("store without value")
		}

		x = Store{Dest: ps.Dest, Value: unpackVal(ps.Value)}
	case kBinOp:
		x = BinOp{Op: BOp(ps.Op), Dest: ps.Dest, L: ps.A, R: ps.B}
	case kUnOp:
		x = UnOp{Op: UOp(ps.Op), Dest: ps.Dest, Arg: ps.A}
	case kJump:
		x = Jump{Target: ps.A}
	case kCJump:
		x = CJump{Check: CJumpType(ps.Op), Var: ps.A, Target: ps.B}
	case kCall:
		x = Call{Func: ps.A, Args: ps.Args, Result: ps.Dest}
	case kReturn:
		x = Return{Var: ps.A}
	default:
		return nil, errors.New("unknown stmt kind: %d", ps.Kind)
	}

	if ps.Label != "" {
		x = x.WithLabel(ps.Label)
	}

	return x, nil
}
