package reg

import (
	"github.com/samber/lo"
)

type (
	Reg  int
	Role uint8

	info struct {
		name  string
		roles Role
	}
)

const (
	Scratch Role = 1 << iota
	Argument
	Return
	CallerSaved
	CalleeSaved
	Local
)

const (
	Zero Reg = iota
	RA
	SP
	GP
	TP
	FP

	T0
	T1
	T2
	T3
	T4
	T5
	T6

	A0
	A1
	A2
	A3
	A4
	A5
	A6
	A7

	S1
	S2
	S3
	S4
	S5
	S6
	S7
	S8
	S9
	S10
	S11

	NumRegs
)

// s0 is used as fp and is not listed separately.
var table = [NumRegs]info{
	Zero: {"zero", 0},
	RA:   {"ra", CalleeSaved},
	SP:   {"sp", 0},
	GP:   {"gp", 0},
	TP:   {"tp", 0},
	FP:   {"fp", CalleeSaved},

	T0: {"t0", CallerSaved},
	T1: {"t1", CallerSaved},
	T2: {"t2", Scratch | CallerSaved},
	T3: {"t3", Scratch | CallerSaved},
	T4: {"t4", Scratch | CallerSaved},
	T5: {"t5", Scratch | CallerSaved},
	T6: {"t6", Scratch | CallerSaved},

	A0: {"a0", Argument | CallerSaved | Return},
	A1: {"a1", Argument | CallerSaved | Return},
	A2: {"a2", Argument | CallerSaved},
	A3: {"a3", Argument | CallerSaved},
	A4: {"a4", Argument | CallerSaved},
	A5: {"a5", Argument | CallerSaved},
	A6: {"a6", Argument | CallerSaved},
	A7: {"a7", Argument | CallerSaved},

	S1:  {"s1", Local | CalleeSaved},
	S2:  {"s2", Local | CalleeSaved},
	S3:  {"s3", Local | CalleeSaved},
	S4:  {"s4", Local | CalleeSaved},
	S5:  {"s5", Local | CalleeSaved},
	S6:  {"s6", Local | CalleeSaved},
	S7:  {"s7", Local | CalleeSaved},
	S8:  {"s8", Local | CalleeSaved},
	S9:  {"s9", Local | CalleeSaved},
	S10: {"s10", Local | CalleeSaved},
	S11: {"s11", Local | CalleeSaved},
}

// Tmp is the emitter's private temporary.
// It never holds a variable and is not in the Scratch pool.
const Tmp = T0

// All returns every register in declaration order.
func All() []Reg {
	r := make([]Reg, NumRegs)

	for i := range r {
		r[i] = Reg(i)
	}

	return r
}

// By returns registers having the role in declaration order.
func By(role Role) []Reg {
	return lo.Filter(All(), func(r Reg, _ int) bool {
		return r.Is(role)
	})
}

func Args() []Reg            { return By(Argument) }
func Rets() []Reg            { return By(Return) }
func ScratchPool() []Reg     { return By(Scratch) }
func Locals() []Reg          { return By(Local) }
func CalleeSavedRegs() []Reg { return By(CalleeSaved) }
func CallerSavedRegs() []Reg { return By(CallerSaved) }

// Lookup finds register by its assembler name.
func Lookup(name string) (Reg, bool) {
	for i, x := range table {
		if x.name == name {
			return Reg(i), true
		}
	}

	return 0, false
}

func (r Reg) Valid() bool { return r >= 0 && r < NumRegs }

func (r Reg) Is(role Role) bool {
	return r.Valid() && table[r].roles&role == role
}

func (r Reg) Roles() Role {
	if !r.Valid() {
		return 0
	}

	return table[r].roles
}

func (r Reg) String() string {
	if !r.Valid() {
		return "r?"
	}

	return table[r].name
}

func (r Role) String() string {
	names := []string{"scratch", "arg", "ret", "caller", "callee", "local"}

	var b []byte

	for i, n := range names {
		if r&(1<<i) == 0 {
			continue
		}

		if len(b) != 0 {
			b = append(b, '|')
		}

		b = append(b, n...)
	}

	return string(b)
}
