package back

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/crv/compiler/hir"
	"github.com/slowlang/crv/compiler/ir"
	"github.com/slowlang/crv/compiler/reg"
)

func compile(t *testing.T, p *ir.Prog) (string, error) {
	t.Helper()

	ctx := context.Background()

	err := hir.Assign(ctx, p)
	require.NoError(t, err)

	b, err := New().CompileProg(ctx, nil, p)

	return string(b), err
}

// compileLayout skips storage assignment and uses the given registers.
func compileLayout(t *testing.T, body []ir.Stmt, vars map[string]ir.Loc) (string, error) {
	t.Helper()

	l := ir.NewLayout()

	for _, n := range []string{"x", "y", "z", "m", "c", "s"} {
		if x, ok := vars[n]; ok {
			l.Set(n, x)
		}
	}

	hir.Frame(l)

	p := &ir.Prog{Funcs: []*ir.Func{{Name: "main", Body: body, Layout: l}}}

	b, err := New().CompileProg(context.Background(), nil, p)

	return string(b), err
}

func TestCompileProg(t *testing.T) {
	p := &ir.Prog{
		Globals: []*ir.Global{
			{Name: "gi", Type: ir.TInt, Init: ir.Int(48)},
			{Name: "gc", Type: ir.TChar, Init: ir.Char('A')},
		},
		Funcs: []*ir.Func{
			{Name: "putc", Params: []ir.Param{{Name: "c", Type: ir.TChar}}, External: true},
			{Name: "main", Ret: ir.TInt, Body: []ir.Stmt{
				ir.Store{Dest: "__t1", Value: ir.Char('%')},
				ir.Call{Func: "putc", Args: []string{"__t1"}},
				ir.Return{Var: "gi"},
			}},
		},
		Names: ir.Namer{Next: 1},
	}

	text, err := compile(t, p)
	require.NoError(t, err)

	assert.Equal(t, `	.align	2
	.section	.data
	.align	3
gi:
	.quad	48
gc:
	.byte	65
	.section	.bss
	.align	4
stack_bottom:
	.space	4096
stack_top:
	.section	.text
	.global	_start
_start:
	csrr	t0, mhartid
	bnez	t0, halt
	la	sp, stack_top
	call	main
	j	halt

main:
	addi	sp, sp, -24
	sd	ra, 0(sp)
	sd	fp, 8(sp)
	sd	s1, 16(sp)
	li	t0, 37
	addi	s1, t0, 0
	addi	a0, s1, 0
	call	putc
	la	t0, gi
	ld	t6, 0(t0)
	addi	a0, t6, 0
	j	__exit_main
__exit_main:
	ld	s1, 16(sp)
	ld	fp, 8(sp)
	ld	ra, 0(sp)
	addi	sp, sp, 24
	jr	ra
halt:
	j	halt
`, text)
}

func TestParamsAndCallResult(t *testing.T) {
	p := &ir.Prog{
		Funcs: []*ir.Func{
			{Name: "add", Ret: ir.TInt, Params: []ir.Param{{Name: "a", Type: ir.TInt}, {Name: "b", Type: ir.TInt}}, Body: []ir.Stmt{
				ir.BinOp{Op: ir.Add, Dest: "__t1", L: "a", R: "b"},
				ir.Return{Var: "__t1"},
			}},
			{Name: "main", Ret: ir.TInt, Body: []ir.Stmt{
				ir.Store{Dest: "__t2", Value: ir.Int(1)},
				ir.Call{Func: "add", Args: []string{"__t2", "__t2"}, Result: "__t3"},
				ir.Return{Var: "__t3"},
			}},
		},
		Names: ir.Namer{Next: 3},
	}

	text, err := compile(t, p)
	require.NoError(t, err)

	assert.Contains(t, text, `
add:
	addi	sp, sp, -40
	sd	ra, 0(sp)
	sd	fp, 8(sp)
	sd	s1, 16(sp)
	sd	a0, 24(sp)
	sd	a1, 32(sp)
	ld	t6, 24(sp)
	ld	t5, 32(sp)
	add	s1, t6, t5
	addi	a0, s1, 0
	j	__exit_add
__exit_add:
`)

	assert.Contains(t, text, `
	li	t0, 1
	addi	s1, t0, 0
	addi	a0, s1, 0
	addi	a1, s1, 0
	call	add
	addi	s2, a0, 0
	addi	a0, s2, 0
	j	__exit_main
`)
}

func TestCallStackArgs(t *testing.T) {
	var params []ir.Param
	var args []string

	for i := 0; i < MaxArgs; i++ {
		n := fmt.Sprintf("p%d", i)

		params = append(params, ir.Param{Name: n, Type: ir.TInt})
		args = append(args, n)
	}

	p := &ir.Prog{
		Globals: []*ir.Global{{Name: "g", Type: ir.TInt}},
		Funcs: []*ir.Func{
			{Name: "f", Ret: ir.TInt, Params: params, Body: []ir.Stmt{
				ir.Call{Func: "f", Args: args, Result: "g"},
			}},
			{Name: "main", Body: []ir.Stmt{ir.Return{}}},
		},
	}

	text, err := compile(t, p)
	require.NoError(t, err)

	assert.Contains(t, text, `
	ld	a0, 16(sp)
	ld	a1, 24(sp)
	ld	a2, 32(sp)
	ld	a3, 40(sp)
	ld	a4, 48(sp)
	ld	a5, 56(sp)
	ld	a6, 64(sp)
	ld	a7, 72(sp)
	call	f
	la	t0, g
	sd	a0, 0(t0)
__exit_f:
`)
}

func TestCallSignature(t *testing.T) {
	mk := func(args ...string) *ir.Prog {
		return &ir.Prog{
			Funcs: []*ir.Func{
				{Name: "f", Params: []ir.Param{{Name: "a", Type: ir.TInt}, {Name: "b", Type: ir.TInt}, {Name: "c", Type: ir.TInt}}, External: true},
				{Name: "main", Body: []ir.Stmt{
					ir.Store{Dest: "x", Value: ir.Int(1)},
					ir.Call{Func: "f", Args: args},
				}},
			},
		}
	}

	_, err := compile(t, mk("x", "x"))
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "f takes 3 args, got 2")
	}

	_, err = compile(t, mk("x", "x", "x", "x"))
	assert.Error(t, err)

	_, err = compile(t, mk("x", "x", "x"))
	assert.NoError(t, err)

	p := &ir.Prog{Funcs: []*ir.Func{{Name: "main", Body: []ir.Stmt{ir.Call{Func: "nope"}}}}}

	_, err = compile(t, p)
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "undeclared function: nope")
	}
}

func TestOps(t *testing.T) {
	vars := map[string]ir.Loc{
		"x": ir.RegLoc{Reg: reg.S1},
		"y": ir.RegLoc{Reg: reg.S2},
		"z": ir.RegLoc{Reg: reg.S3},
	}

	for _, tc := range []struct {
		x   ir.Stmt
		asm string
	}{
		{ir.BinOp{Op: ir.Add, Dest: "x", L: "y", R: "z"}, "\tadd\ts1, s2, s3\n"},
		{ir.BinOp{Op: ir.Sub, Dest: "x", L: "y", R: "z"}, "\tsub\ts1, s2, s3\n"},
		{ir.BinOp{Op: ir.Mul, Dest: "x", L: "y", R: "z"}, "\tmul\ts1, s2, s3\n"},
		{ir.BinOp{Op: ir.Div, Dest: "x", L: "y", R: "z"}, "\tdiv\ts1, s2, s3\n"},
		{ir.BinOp{Op: ir.Rem, Dest: "x", L: "y", R: "z"}, "\trem\ts1, s2, s3\n"},
		{ir.BinOp{Op: ir.BitAnd, Dest: "x", L: "y", R: "z"}, "\tand\ts1, s2, s3\n"},
		{ir.BinOp{Op: ir.BitOr, Dest: "x", L: "y", R: "z"}, "\tor\ts1, s2, s3\n"},
		{ir.BinOp{Op: ir.BitXor, Dest: "x", L: "y", R: "z"}, "\txor\ts1, s2, s3\n"},
		{ir.BinOp{Op: ir.BitLsh, Dest: "x", L: "y", R: "z"}, "\tsll\ts1, s2, s3\n"},
		{ir.BinOp{Op: ir.BitRsh, Dest: "x", L: "y", R: "z"}, "\tsrl\ts1, s2, s3\n"},
		{ir.BinOp{Op: ir.CLT, Dest: "x", L: "y", R: "z"}, "\tslt\ts1, s2, s3\n"},
		{ir.BinOp{Op: ir.CGT, Dest: "x", L: "y", R: "z"}, "\tslt\ts1, s3, s2\n"},
		{ir.BinOp{Op: ir.CEQ, Dest: "x", L: "y", R: "z"}, "\tsub\tt0, s2, s3\n\tseqz\ts1, t0\n"},
		{ir.BinOp{Op: ir.CNE, Dest: "x", L: "y", R: "z"}, "\tsub\tt0, s2, s3\n\tsnez\ts1, t0\n"},
		{ir.BinOp{Op: ir.LogAnd, Dest: "x", L: "y", R: "z"}, "\tand\tt0, s2, s3\n\tandi\ts1, t0, 1\n"},
		{ir.BinOp{Op: ir.LogOr, Dest: "x", L: "y", R: "z"}, "\tor\tt0, s2, s3\n\tandi\ts1, t0, 1\n"},
		{ir.UnOp{Op: ir.Minus, Dest: "x", Arg: "y"}, "\tneg\ts1, s2\n"},
		{ir.UnOp{Op: ir.BitNeg, Dest: "x", Arg: "y"}, "\tnot\ts1, s2\n"},
		{ir.UnOp{Op: ir.LogNeg, Dest: "x", Arg: "y"}, "\tnot\tt0, s2\n\tandi\ts1, t0, 1\n"},
		{ir.UnOp{Op: ir.Copy, Dest: "x", Arg: "y"}, "\taddi\ts1, s2, 0\n"},
		{ir.CJump{Check: ir.JZ, Var: "x", Target: "L"}, "\tbeqz\ts1, L\n"},
		{ir.CJump{Check: ir.JNZ, Var: "x", Target: "L"}, "\tbnez\ts1, L\n"},
		{ir.Jump{Base: ir.Base{Label: "L"}, Target: "L"}, "L:\n\tj\tL\n"},
		{ir.Store{Dest: "x", Value: ir.Int(-5)}, "\tli\tt0, -5\n\taddi\ts1, t0, 0\n"},
	} {
		text, err := compileLayout(t, []ir.Stmt{tc.x}, vars)
		if assert.NoError(t, err, "%v", tc.x) {
			assert.Contains(t, text, tc.asm)
		}
	}
}

func TestMoves(t *testing.T) {
	vars := map[string]ir.Loc{
		"x": ir.RegLoc{Reg: reg.S1},
		"m": ir.MemLoc{Label: "m", Size: 8},
		"c": ir.MemLoc{Label: "c", Size: 1},
		"s": ir.StackLoc{Size: 8},
	}

	// s is placed after ra, fp and s1
	s := ir.StackLoc{Off: 24, Size: 8}

	for _, tc := range []struct {
		src, dst ir.Loc
		asm      string
	}{
		{ir.RegLoc{Reg: reg.S1}, ir.RegLoc{Reg: reg.T6}, "\taddi\tt6, s1, 0\n"},
		{ir.RegLoc{Reg: reg.S1}, s, "\tsd\ts1, 24(sp)\n"},
		{s, ir.RegLoc{Reg: reg.S1}, "\tld\ts1, 24(sp)\n"},
		{ir.RegLoc{Reg: reg.S1}, ir.MemLoc{Label: "m", Size: 8}, "\tla\tt0, m\n\tsd\ts1, 0(t0)\n"},
		{ir.MemLoc{Label: "m", Size: 8}, ir.RegLoc{Reg: reg.S1}, "\tla\tt0, m\n\tld\ts1, 0(t0)\n"},
		{ir.RegLoc{Reg: reg.S1}, ir.MemLoc{Label: "c", Size: 1}, "\tla\tt0, c\n\tsb\ts1, 0(t0)\n"},
		{ir.MemLoc{Label: "c", Size: 1}, ir.RegLoc{Reg: reg.S1}, "\tla\tt0, c\n\tlbu\ts1, 0(t0)\n"},
	} {
		text, err := compileLayout(t, []ir.Stmt{ir.Move{Src: tc.src, Dst: tc.dst}}, vars)
		if assert.NoError(t, err, "%v -> %v", tc.src, tc.dst) {
			assert.Contains(t, text, tc.asm)
		}
	}

	for _, tc := range []struct {
		src, dst ir.Loc
	}{
		{s, ir.MemLoc{Label: "m", Size: 8}},
		{ir.MemLoc{Label: "m", Size: 8}, s},
		{s, s},
		{ir.RegLoc{Reg: reg.S1}, ir.StackLoc{Off: 4096, Size: 8}},
	} {
		_, err := compileLayout(t, []ir.Stmt{ir.Move{Src: tc.src, Dst: tc.dst}}, vars)
		assert.Error(t, err, "%v -> %v", tc.src, tc.dst)
	}
}

func TestNotInRegister(t *testing.T) {
	vars := map[string]ir.Loc{
		"x": ir.RegLoc{Reg: reg.S1},
		"s": ir.StackLoc{Size: 8},
		"m": ir.MemLoc{Label: "m", Size: 8},
	}

	for _, x := range []ir.Stmt{
		ir.BinOp{Op: ir.Add, Dest: "x", L: "x", R: "s"},
		ir.BinOp{Op: ir.Add, Dest: "m", L: "x", R: "x"},
		ir.UnOp{Op: ir.Minus, Dest: "x", Arg: "m"},
		ir.CJump{Check: ir.JZ, Var: "s", Target: "L"},
	} {
		_, err := compileLayout(t, []ir.Stmt{x}, vars)
		if assert.Error(t, err, "%v", x) {
			assert.Contains(t, err.Error(), "not physically assigned to a register")
		}
	}

	_, err := compileLayout(t, []ir.Stmt{ir.Return{Var: "nope"}}, vars)
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "variable not found: nope")
	}
}

func TestStringGlobal(t *testing.T) {
	p := &ir.Prog{
		Funcs: []*ir.Func{
			{Name: "puts", Params: []ir.Param{{Name: "s", Type: ir.TString}}, External: true},
			{Name: "main", Body: []ir.Stmt{
				ir.Store{Dest: "__t1", Value: ir.String("hi\n")},
				ir.Call{Func: "puts", Args: []string{"__t1"}},
			}},
		},
		Names: ir.Namer{Next: 1},
	}

	text, err := compile(t, p)
	require.NoError(t, err)

	assert.Contains(t, text, ".Ldata___str2:\n\t.string\t\"hi\\n\"\n\t.align\t3\n__str2:\n\t.dword\t.Ldata___str2\n")
	assert.Contains(t, text, "\tla\tt0, __str2\n\tld\ts1, 0(t0)\n\taddi\ta0, s1, 0\n\tcall\tputs\n")
}

func TestGlobalErrors(t *testing.T) {
	for _, g := range [][]*ir.Global{
		{{Name: "g", Type: ir.TInt}, {Name: "g", Type: ir.TInt}},
		{{Name: "g", Type: ir.TInt, Init: ir.Char('a')}},
		{{Name: "g", Type: ir.TString}},
		{{Name: "g", Type: ir.Void}},
	} {
		p := &ir.Prog{
			Globals: g,
			Funcs:   []*ir.Func{{Name: "main", Body: []ir.Stmt{}, Layout: ir.NewLayout()}},
		}

		_, err := New().CompileProg(context.Background(), nil, p)
		assert.Error(t, err)
	}
}

func TestReservedNames(t *testing.T) {
	main := func() *ir.Func { return &ir.Func{Name: "main", Body: []ir.Stmt{}, Layout: ir.NewLayout()} }

	for _, p := range []*ir.Prog{
		{Funcs: []*ir.Func{main(), {Name: "halt", Body: []ir.Stmt{}, Layout: ir.NewLayout()}}},
		{Funcs: []*ir.Func{main(), {Name: "_start", External: true}}},
		{Funcs: []*ir.Func{main()}, Globals: []*ir.Global{{Name: "stack_top", Type: ir.TInt}}},
		{Funcs: []*ir.Func{main()}, Globals: []*ir.Global{{Name: "main", Type: ir.TInt}}},
	} {
		_, err := New().CompileProg(context.Background(), nil, p)
		assert.Error(t, err)
	}
}

func TestEntry(t *testing.T) {
	p := &ir.Prog{Funcs: []*ir.Func{{Name: "start", Body: []ir.Stmt{ir.Return{}}}}}

	err := hir.Assign(context.Background(), p)
	require.NoError(t, err)

	_, err = New().CompileProg(context.Background(), nil, p)
	assert.Error(t, err)

	c := &Compiler{Entry: "start", StackSize: 1024}

	b, err := c.CompileProg(context.Background(), nil, p)
	require.NoError(t, err)

	assert.Contains(t, string(b), "\t.space\t1024\n")
	assert.Contains(t, string(b), "\tcall\tstart\n")
}

func TestFrameTooLarge(t *testing.T) {
	l := ir.NewLayout()

	for i := 0; i < 300; i++ {
		l.Set(string(rune('a'+i%26))+string(rune('a'+i/26)), ir.StackLoc{Size: 8})
	}

	hir.Frame(l)

	p := &ir.Prog{Funcs: []*ir.Func{{Name: "main", Body: []ir.Stmt{}, Layout: l}}}

	_, err := New().CompileProg(context.Background(), nil, p)
	assert.Error(t, err)
}

func TestEscape(t *testing.T) {
	assert.Equal(t, `"hi\n\"q\" \\ \t\001\377"`, Escape("hi\n\"q\" \\ \t\x01\xff"))
}
