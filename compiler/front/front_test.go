package front

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/crv/compiler/ast"
)

func parse(t *testing.T, text string) *ast.Prog {
	t.Helper()

	p, err := Parse(context.Background(), "test.c", []byte(text))
	require.NoError(t, err)

	return p
}

func pos(l, c int) ast.Base { return ast.Base{Pos: ast.Pos{Line: l, Col: c}} }

func TestDecls(t *testing.T) {
	p := parse(t, `
int g = 0x10;
char c = '\n';
string s = "a\"b\x41";
int z;

void putc(char c);
int add(int a, int b) { return a + b; }
`)

	assert.Equal(t, []*ast.Global{
		{Base: pos(2, 1), Name: "g", Type: ast.TInt, Init: ast.Int{Base: pos(2, 9), Value: 16}},
		{Base: pos(3, 1), Name: "c", Type: ast.TChar, Init: ast.Char{Base: pos(3, 10), Value: '\n'}},
		{Base: pos(4, 1), Name: "s", Type: ast.TString, Init: ast.String{Base: pos(4, 12), Value: "a\"bA"}},
		{Base: pos(5, 1), Name: "z", Type: ast.TInt},
	}, p.Globals)

	require.Len(t, p.Funcs, 2)

	assert.Equal(t, &ast.Func{
		Base:     pos(7, 1),
		Name:     "putc",
		Ret:      ast.Void,
		Params:   []ast.Param{{Name: "c", Type: ast.TChar}},
		External: true,
	}, p.Funcs[0])

	assert.Equal(t, []ast.Stmt{
		ast.Return{Base: pos(8, 25), Value: ast.Binary{
			Base: pos(8, 34),
			Op:   ast.Add,
			L:    ast.Var{Base: pos(8, 32), Name: "a"},
			R:    ast.Var{Base: pos(8, 36), Name: "b"},
		}},
	}, p.Funcs[1].Body)
}

func TestPrecedence(t *testing.T) {
	p := parse(t, `void f() { x = 1 + 2 * 3 < 4 == 5 && !a || -b; }`)

	body := p.Funcs[0].Body
	require.Len(t, body, 1)

	a := body[0].(ast.Assign)
	assert.Equal(t, "x", a.Dst)

	or := a.Expr.(ast.Binary)
	assert.Equal(t, ast.LOr, or.Op)
	assert.Equal(t, ast.Neg, or.R.(ast.Unary).Op)

	and := or.L.(ast.Binary)
	assert.Equal(t, ast.LAnd, and.Op)
	assert.Equal(t, ast.Not, and.R.(ast.Unary).Op)

	eq := and.L.(ast.Binary)
	assert.Equal(t, ast.Eq, eq.Op)

	lt := eq.L.(ast.Binary)
	assert.Equal(t, ast.Lt, lt.Op)

	add := lt.L.(ast.Binary)
	assert.Equal(t, ast.Add, add.Op)
	assert.Equal(t, ast.Mul, add.R.(ast.Binary).Op)
}

func TestLeftAssoc(t *testing.T) {
	p := parse(t, `void f() { x = x + 4 - 1; }`)

	e := p.Funcs[0].Body[0].(ast.Assign).Expr.(ast.Binary)

	assert.Equal(t, ast.Sub, e.Op)
	assert.Equal(t, ast.Int{Base: pos(1, 24), Value: 1}, e.R)
	assert.Equal(t, ast.Add, e.L.(ast.Binary).Op)
}

func TestStatements(t *testing.T) {
	p := parse(t, `
int main() {
	int i = 0;
	char c;
	while (i < 10) {
		if (i == 5) break; else { i++; continue; }
		// comment
		;
	}
	/* block
	   comment */
	{ putc('x'); }
	return;
}
`)

	body := p.Funcs[0].Body
	require.Len(t, body, 5)

	assert.IsType(t, ast.VarDecl{}, body[0])
	assert.Equal(t, ast.VarDecl{Base: pos(4, 2), Name: "c", Type: ast.TChar}, body[1])

	w := body[2].(ast.While)
	require.Len(t, w.Body, 1)

	ifs := w.Body[0].(ast.If)
	assert.Equal(t, []ast.Stmt{ast.Break{Base: pos(6, 15)}}, ifs.Then)
	require.Len(t, ifs.Else, 2)
	assert.Equal(t, ast.Unary{Base: pos(6, 30), Op: ast.Inc, X: ast.Var{Base: pos(6, 29), Name: "i"}}, ifs.Else[0].(ast.ExprStmt).Expr)
	assert.IsType(t, ast.Continue{}, ifs.Else[1])

	call := body[3].(ast.ExprStmt).Expr.(ast.Call)
	assert.Equal(t, "putc", call.Name)
	assert.Equal(t, []ast.Expr{ast.Char{Base: pos(12, 9), Value: 'x'}}, call.Args)

	assert.Equal(t, ast.Return{Base: pos(13, 2)}, body[4])
}

func TestErrors(t *testing.T) {
	for _, tc := range []struct {
		text string
		err  string
	}{
		{"int __x;", "test.c:1:5: identifiers can't start with"},
		{"string s;", "test.c:1:1: string global s declared without initializer"},
		{"void f() { string s; }", "test.c:1:12: string variable s declared without initializer"},
		{"void f() {\n  x = ;\n}", "test.c:2:7: expected expression"},
		{"void f() { x = 1 }", "test.c:1:18: expected \";\""},
		{"void f() { x = 'ab'; }", "test.c:1:16: char literal"},
		{"void f() { x = \"abc; }", "test.c:1:16: unterminated literal"},
		{"void f() { x = \"a\nb\"; }", "test.c:1:16: newline in literal"},
		{"void f() { 1++; }", "test.c:1:13: ++ needs a variable operand"},
		{"void f() {", "expected }"},
		{"void g;", "void global"},
		{"int f(int a int b);", "expected \",\""},
		{"int x = 99999999999999999999;", "bad integer"},
		{"/* open", "unterminated comment"},
		{"int x = 1 @", "unexpected character"},
	} {
		_, err := Parse(context.Background(), "test.c", []byte(tc.text))
		if assert.Error(t, err, "%s", tc.text) {
			assert.Contains(t, err.Error(), tc.err, "%s", tc.text)
		}
	}
}
