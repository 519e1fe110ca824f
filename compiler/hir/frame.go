package hir

import (
	"github.com/samber/lo"

	"github.com/slowlang/crv/compiler/ir"
	"github.com/slowlang/crv/compiler/reg"
)

// Frame lays out the stack: save slots for ra, fp and used callee-saved registers
// in register order, then stack variables in layout order.
// Stack variable offsets are updated in place.
func Frame(l *ir.Layout) {
	used := l.Regs()
	off := 0

	l.Stack = l.Stack[:0]

	for _, r := range reg.CalleeSavedRegs() {
		if r != reg.RA && r != reg.FP && !used.Has(r) {
			continue
		}

		l.Stack = append(l.Stack, ir.Slot{
			Name: r.String(),
			Off:  off,
			Size: ir.SlotSize,
			Save: true,
			Reg:  r,
		})

		off += ir.SlotSize
	}

	for _, name := range l.Order {
		x, ok := l.Vars[name].(ir.StackLoc)
		if !ok {
			continue
		}

		x.Off = off
		l.Vars[name] = x

		l.Stack = append(l.Stack, ir.Slot{
			Name: name,
			Off:  off,
			Size: x.Size,
		})

		off += x.Size
	}

	l.Size = off
}

// Saved returns save slots in frame order.
func Saved(l *ir.Layout) []ir.Slot {
	return lo.Filter(l.Stack, func(x ir.Slot, _ int) bool { return x.Save })
}
