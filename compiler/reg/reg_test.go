package reg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoles(t *testing.T) {
	assert.Equal(t, []Reg{A0, A1, A2, A3, A4, A5, A6, A7}, Args())
	assert.Equal(t, []Reg{A0, A1}, Rets())
	assert.Equal(t, []Reg{T2, T3, T4, T5, T6}, ScratchPool())
	assert.Equal(t, []Reg{S1, S2, S3, S4, S5, S6, S7, S8, S9, S10, S11}, Locals())

	cs := CalleeSavedRegs()
	require.Len(t, cs, 13)
	assert.Equal(t, RA, cs[0])
	assert.Equal(t, FP, cs[1])
	assert.Equal(t, S11, cs[12])

	assert.NotContains(t, ScratchPool(), Tmp)
	assert.NotContains(t, Locals(), Tmp)
}

func TestNames(t *testing.T) {
	for _, r := range All() {
		x, ok := Lookup(r.String())
		require.True(t, ok, "reg %v", r)
		assert.Equal(t, r, x)
	}

	_, ok := Lookup("x31")
	assert.False(t, ok)

	assert.Equal(t, "s10", S10.String())
	assert.Equal(t, "arg|ret|caller", A0.Roles().String())
	assert.Equal(t, "r?", Reg(100).String())
}

func TestSet(t *testing.T) {
	s := MakeSet(S3, RA, T6)

	assert.True(t, s.Has(RA))
	assert.True(t, s.Has(S3))
	assert.False(t, s.Has(S4))
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []Reg{RA, T6, S3}, s.Regs())

	s = s.Del(T6)
	assert.Equal(t, []Reg{RA, S3}, s.Regs())
}
