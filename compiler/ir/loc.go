package ir

import (
	"fmt"

	"tlog.app/go/tlog/tlwire"

	"github.com/slowlang/crv/compiler/reg"
)

type (
	// Loc is a physical storage location.
	Loc interface {
		fmt.Stringer

		loc()
	}

	RegLoc struct {
		Reg reg.Reg
	}

	StackLoc struct {
		Off  int
		Size int
	}

	MemLoc struct {
		Label string
		Size  int
	}

	// Slot is a frame entry: a stack variable or a saved callee-saved register.
	Slot struct {
		Name string
		Off  int
		Size int

		Save bool
		Reg  reg.Reg
	}

	Layout struct {
		Vars  map[string]Loc
		Order []string // Vars insertion order

		Stack []Slot
		Size  int
	}

	// Move copies a value between two locations.
	// It's only produced by storage assignment.
	Move struct {
		Base
		Src Loc
		Dst Loc
	}
)

const SlotSize = 8

func (RegLoc) loc()   {}
func (StackLoc) loc() {}
func (MemLoc) loc()   {}

func (x RegLoc) String() string   { return x.Reg.String() }
func (x StackLoc) String() string { return fmt.Sprintf("%d(sp)", x.Off) }
func (x MemLoc) String() string   { return x.Label }

func NewLayout() *Layout {
	return &Layout{
		Vars: map[string]Loc{},
	}
}

// Set assigns location to the name keeping the first assignment order.
func (l *Layout) Set(name string, x Loc) {
	if _, ok := l.Vars[name]; !ok {
		l.Order = append(l.Order, name)
	}

	l.Vars[name] = x
}

func (l *Layout) Get(name string) (Loc, bool) {
	x, ok := l.Vars[name]
	return x, ok
}

func (l *Layout) Has(name string) bool {
	_, ok := l.Vars[name]
	return ok
}

// Regs returns registers holding variables.
func (l *Layout) Regs() (s reg.Set) {
	for _, x := range l.Vars {
		if r, ok := x.(RegLoc); ok {
			s = s.Add(r.Reg)
		}
	}

	return s
}

func (x RegLoc) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 1)
	b = e.AppendKeyString(b, "reg", x.Reg.String())

	return b
}

func (x StackLoc) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 2)
	b = e.AppendKeyInt(b, "stack", x.Off)
	b = e.AppendKeyInt(b, "size", x.Size)

	return b
}

func (x MemLoc) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 2)
	b = e.AppendKeyString(b, "mem", x.Label)
	b = e.AppendKeyInt(b, "size", x.Size)

	return b
}
