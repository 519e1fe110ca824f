package ir

type (
	Type int

	Value interface {
		Type() Type
	}

	Int    int64
	Char   byte
	String string

	// Sym is a string literal moved to a global of that name.
	Sym string

	BOp int
	UOp int

	CJumpType int

	Stmt interface {
		StmtLabel() string
		WithLabel(l string) Stmt

		Inputs() []string
		Outputs() []string

		// Substitute returns a copy with input and output names replaced.
		Substitute(in, out map[string]string) Stmt
	}

	Base struct {
		Label string
	}

	// Nop only carries a label.
	Nop struct {
		Base
	}

	Store struct {
		Base
		Dest  string
		Value Value
	}

	BinOp struct {
		Base
		Op   BOp
		Dest string
		L, R string
	}

	UnOp struct {
		Base
		Op   UOp
		Dest string
		Arg  string
	}

	Jump struct {
		Base
		Target string
	}

	CJump struct {
		Base
		Check  CJumpType
		Var    string
		Target string
	}

	Call struct {
		Base
		Func   string
		Args   []string
		Result string // "" if discarded
	}

	Return struct {
		Base
		Var string // "" for void return
	}

	Param struct {
		Name string
		Type Type
	}

	Func struct {
		Name   string
		Ret    Type
		Params []Param

		External bool // declared only, no body
		Body     []Stmt

		Layout *Layout
	}

	Global struct {
		Name string
		Type Type
		Init Value
	}

	Prog struct {
		Funcs   []*Func
		Globals []*Global

		Names Namer
	}
)

const (
	Void Type = iota
	TInt
	TChar
	TString
)

const (
	Add BOp = iota
	Sub
	Mul
	Div
	Rem
	CLT
	CGT
	CEQ
	CNE
	BitAnd
	BitOr
	BitXor
	BitLsh
	BitRsh
	LogAnd
	LogOr
)

const (
	Minus UOp = iota
	BitNeg
	LogNeg
	Copy
)

const (
	JZ CJumpType = iota
	JNZ
)

func (Int) Type() Type    { return TInt }
func (Char) Type() Type   { return TChar }
func (String) Type() Type { return TString }
func (Sym) Type() Type    { return TString }

func (f *Func) ExitLabel() string { return "__exit_" + f.Name }

func (f *Func) Impl() bool { return !f.External }

func (p *Prog) Func(name string) *Func {
	for _, f := range p.Funcs {
		if f.Name == name {
			return f
		}
	}

	return nil
}

func (p *Prog) Global(name string) *Global {
	for _, g := range p.Globals {
		if g.Name == name {
			return g
		}
	}

	return nil
}

var typeNames = []string{"void", "int", "char", "string"}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return "type?"
	}

	return typeNames[t]
}

// Size is the storage size of a value of type t.
func (t Type) Size() int {
	switch t {
	case TChar:
		return 1
	case Void:
		return 0
	default:
		return 8
	}
}

var bopNames = []string{
	Add: "add", Sub: "sub", Mul: "mul", Div: "div", Rem: "rem",
	CLT: "clt", CGT: "cgt", CEQ: "ceq", CNE: "cne",
	BitAnd: "bit_and", BitOr: "bit_or", BitXor: "bit_xor", BitLsh: "bit_lsh", BitRsh: "bit_rsh",
	LogAnd: "log_and", LogOr: "log_or",
}

func (op BOp) String() string {
	if op < 0 || int(op) >= len(bopNames) {
		return "bop?"
	}

	return bopNames[op]
}

var uopNames = []string{Minus: "minus", BitNeg: "bit_neg", LogNeg: "log_neg", Copy: "copy"}

func (op UOp) String() string {
	if op < 0 || int(op) >= len(uopNames) {
		return "uop?"
	}

	return uopNames[op]
}

func (c CJumpType) String() string {
	switch c {
	case JZ:
		return "jz"
	case JNZ:
		return "jnz"
	default:
		return "cjump?"
	}
}
