package compiler

import (
	"context"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/crv/compiler/back"
	"github.com/slowlang/crv/compiler/config"
	"github.com/slowlang/crv/compiler/front"
	"github.com/slowlang/crv/compiler/hir"
	"github.com/slowlang/crv/compiler/ir"
	"github.com/slowlang/crv/compiler/lower"
)

func CompileFile(ctx context.Context, c config.Config, name string) (obj []byte, err error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return Compile(ctx, c, name, text)
}

func Compile(ctx context.Context, c config.Config, name string, text []byte) (obj []byte, err error) {
	p, err := Lower(ctx, name, text)
	if err != nil {
		return nil, err
	}

	return CompileIR(ctx, c, p)
}

// Lower parses the text and lowers it into IR.
func Lower(ctx context.Context, name string, text []byte) (p *ir.Prog, err error) {
	x, err := front.Parse(ctx, name, text)
	if err != nil {
		return nil, errors.Wrap(err, "parse text")
	}

	p, err = lower.Prog(ctx, x)
	if err != nil {
		return nil, errors.Wrap(err, "lower")
	}

	return p, nil
}

// CompileIR assigns storage in place and emits assembly.
func CompileIR(ctx context.Context, c config.Config, p *ir.Prog) (obj []byte, err error) {
	err = hir.Assign(ctx, p)
	if err != nil {
		return nil, errors.Wrap(err, "assign storage")
	}

	bc := back.New()
	bc.Entry = c.Entry
	bc.StackSize = c.StackSize

	obj, err = bc.CompileProg(ctx, nil, p)
	if err != nil {
		return nil, errors.Wrap(err, "compile")
	}

	return obj, nil
}
