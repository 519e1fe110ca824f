package reg

import (
	"math/bits"

	"tlog.app/go/tlog/tlwire"
)

// Set is a set of registers.
type Set uint64

func MakeSet(rs ...Reg) (s Set) {
	for _, r := range rs {
		s = s.Add(r)
	}

	return s
}

func (s Set) Add(r Reg) Set {
	return s | 1<<r
}

func (s Set) Del(r Reg) Set {
	return s &^ (1 << r)
}

func (s Set) Has(r Reg) bool {
	return s&(1<<r) != 0
}

func (s Set) Len() int {
	return bits.OnesCount64(uint64(s))
}

func (s Set) Range(f func(r Reg) bool) {
	for x := uint64(s); x != 0; x &= x - 1 {
		if !f(Reg(bits.TrailingZeros64(x))) {
			return
		}
	}
}

func (s Set) Regs() (r []Reg) {
	s.Range(func(x Reg) bool {
		r = append(r, x)
		return true
	})

	return r
}

func (s Set) TlogAppend(b []byte) []byte {
	var e tlwire.LowEncoder

	b = e.AppendTag(b, tlwire.Array, -1)

	s.Range(func(r Reg) bool {
		b = e.AppendString(b, r.String())

		return true
	})

	b = e.AppendBreak(b)

	return b
}
