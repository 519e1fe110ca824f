package ast

import "fmt"

type (
	Type int

	Pos struct {
		Line int
		Col  int
	}

	Base struct {
		Pos Pos
	}

	Stmt interface {
		stmt()
	}

	Expr interface {
		expr()
	}

	Lit interface {
		Expr
		lit()
	}

	Prog struct {
		Globals []*Global
		Funcs   []*Func
	}

	Global struct {
		Base
		Name string
		Type Type
		Init Lit
	}

	Param struct {
		Name string
		Type Type
	}

	Func struct {
		Base
		Name   string
		Ret    Type
		Params []Param

		External bool
		Body     []Stmt
	}

	// Statements

	Assign struct {
		Base
		Dst  string
		Expr Expr
	}

	VarDecl struct {
		Base
		Name string
		Type Type
		Init Expr
	}

	Return struct {
		Base
		Value Expr
	}

	Break struct {
		Base
	}

	Continue struct {
		Base
	}

	While struct {
		Base
		Check Expr
		Body  []Stmt
	}

	If struct {
		Base
		Check Expr
		Then  []Stmt
		Else  []Stmt
	}

	ExprStmt struct {
		Base
		Expr Expr
	}

	// Expressions

	Var struct {
		Base
		Name string
	}

	Int struct {
		Base
		Value uint64
	}

	Char struct {
		Base
		Value byte
	}

	String struct {
		Base
		Value string
	}

	Call struct {
		Base
		Name string
		Args []Expr
	}

	Unary struct {
		Base
		Op UOp
		X  Expr
	}

	Binary struct {
		Base
		Op BOp
		L  Expr
		R  Expr
	}

	UOp int
	BOp int
)

const (
	Void Type = iota
	TInt
	TChar
	TString
)

const (
	Not UOp = iota // !
	Inv            // ~
	Neg            // -
	Inc            // ++
	Dec            // --
)

const (
	Add BOp = iota
	Sub
	Mul
	Div
	Mod
	Xor
	And
	Or
	LAnd
	LOr
	Shr
	Shl
	Le
	Lt
	Ge
	Gt
	Eq
	Ne
)

func (Assign) stmt()   {}
func (VarDecl) stmt()  {}
func (Return) stmt()   {}
func (Break) stmt()    {}
func (Continue) stmt() {}
func (While) stmt()    {}
func (If) stmt()       {}
func (ExprStmt) stmt() {}

func (Var) expr()    {}
func (Int) expr()    {}
func (Char) expr()   {}
func (String) expr() {}
func (Call) expr()   {}
func (Unary) expr()  {}
func (Binary) expr() {}

func (Int) lit()    {}
func (Char) lit()   {}
func (String) lit() {}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

var typeNames = []string{"void", "int", "char", "string"}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return "type?"
	}

	return typeNames[t]
}

var uopNames = []string{Not: "!", Inv: "~", Neg: "-", Inc: "++", Dec: "--"}

func (op UOp) String() string {
	if op < 0 || int(op) >= len(uopNames) {
		return "uop?"
	}

	return uopNames[op]
}

var bopNames = []string{
	Add: "+", Sub: "-", Mul: "*", Div: "/", Mod: "%",
	Xor: "^", And: "&", Or: "|", LAnd: "&&", LOr: "||",
	Shr: ">>", Shl: "<<",
	Le: "<=", Lt: "<", Ge: ">=", Gt: ">", Eq: "==", Ne: "!=",
}

func (op BOp) String() string {
	if op < 0 || int(op) >= len(bopNames) {
		return "bop?"
	}

	return bopNames[op]
}
