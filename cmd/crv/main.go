package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/sync/errgroup"
	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/crv/compiler"
	"github.com/slowlang/crv/compiler/config"
	"github.com/slowlang/crv/compiler/emu"
	"github.com/slowlang/crv/compiler/format"
	"github.com/slowlang/crv/compiler/front"
	"github.com/slowlang/crv/compiler/ir"
)

var cfg = config.Default()

func main() {
	parseCmd := &cli.Command{
		Name:        "parse",
		Description: "parse files and print them back formatted",
		Action:      parseAct,
		Args:        cli.Args{},
	}

	irCmd := &cli.Command{
		Name:        "ir",
		Description: "print lowered intermediate representation",
		Action:      irAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("pack", false, "write msgpack snapshot <file>.irpack instead of text"),
		},
	}

	compileCmd := &cli.Command{
		Name:        "compile",
		Description: "compile source (or .irpack) files into RV64 assembly",
		Action:      compileAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("output,o", "", "output file, or directory for several inputs"),
			cli.NewFlag("jobs,j", 4, "files compiled concurrently"),
		},
	}

	runCmd := &cli.Command{
		Name:        "run",
		Description: "compile file and run it under the emulator",
		Action:      runAct,
		Args:        cli.Args{},
	}

	app := &cli.Command{
		Name:        "crv",
		Description: "crv is a C-like language compiler for RISC-V 64",
		Before:      before,
		Flags: []*cli.Flag{
			cli.NewFlag("config,c", "", "TOML config file"),
			cli.NewFlag("verbosity,v", "", "logger verbosity topics (dump_ast, dump_ir, dump_hir, moves, frame)"),
			cli.NewFlag("color", true, "colored error output"),
			cli.HelpFlag,
		},
		Commands: []*cli.Command{
			parseCmd,
			irCmd,
			compileCmd,
			runCmd,
		},
	}

	err := cli.Run(app, os.Args, os.Environ())
	if err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "error: ")
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func before(c *cli.Command) (err error) {
	tlog.SetVerbosity(c.String("verbosity"))

	if !c.Bool("color") {
		color.NoColor = true
	}

	if path := c.String("config"); path != "" {
		cfg, err = config.Load(path)
		if err != nil {
			return errors.Wrap(err, "load config")
		}
	}

	return nil
}

func rootContext() context.Context {
	return tlog.ContextWithSpan(context.Background(), tlog.Root())
}

func parseAct(c *cli.Command) (err error) {
	ctx := rootContext()

	for _, a := range c.Args {
		x, err := front.ParseFile(ctx, a)
		if err != nil {
			return errors.Wrap(err, "parse %v", a)
		}

		b, err := format.Format(ctx, nil, x)
		if err != nil {
			return errors.Wrap(err, "format %v", a)
		}

		os.Stdout.Write(b)
	}

	return nil
}

func irAct(c *cli.Command) (err error) {
	ctx := rootContext()

	for _, a := range c.Args {
		p, err := lowerFile(ctx, a)
		if err != nil {
			return errors.Wrap(err, "lower %v", a)
		}

		if !c.Bool("pack") {
			os.Stdout.Write(ir.AppendProg(nil, p))
			continue
		}

		err = packFile(strings.TrimSuffix(a, filepath.Ext(a))+".irpack", p)
		if err != nil {
			return errors.Wrap(err, "pack %v", a)
		}
	}

	return nil
}

func compileAct(c *cli.Command) (err error) {
	ctx := rootContext()

	out := c.String("output")
	objs := make([][]byte, len(c.Args))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, c.Int("jobs")))

	for i, a := range c.Args {
		i, a := i, a

		g.Go(func() (err error) {
			objs[i], err = compileFile(gctx, a)
			if err != nil {
				return errors.Wrap(err, "compile %v", a)
			}

			return nil
		})
	}

	err = g.Wait()
	if err != nil {
		return err
	}

	switch {
	case out == "":
		for _, obj := range objs {
			os.Stdout.Write(obj)
		}
	case len(objs) == 1:
		err = os.WriteFile(out, objs[0], 0o644)
	default:
		err = os.MkdirAll(out, 0o755)

		for i, a := range c.Args {
			if err != nil {
				break
			}

			name := strings.TrimSuffix(filepath.Base(a), filepath.Ext(a)) + ".s"

			err = os.WriteFile(filepath.Join(out, name), objs[i], 0o644)
		}
	}

	if err != nil {
		return errors.Wrap(err, "write output")
	}

	return nil
}

func runAct(c *cli.Command) (err error) {
	ctx := rootContext()

	if len(c.Args) != 1 {
		return errors.New("expected one file, got %d", len(c.Args))
	}

	obj, err := compileFile(ctx, c.Args[0])
	if err != nil {
		return errors.Wrap(err, "compile %v", c.Args[0])
	}

	res, err := emu.Run(ctx, obj, cfg.Emulator)
	if err != nil {
		return errors.Wrap(err, "run")
	}

	os.Stdout.Write(res.Output())

	switch {
	case res.TimedOut:
		color.New(color.FgYellow, color.Bold).Fprintf(os.Stderr, "emulator stopped after %v\n", cfg.Emulator.Timeout)
	case !res.OK:
		return errors.New("emulator exited with %d", res.Exit)
	}

	return nil
}

func compileFile(ctx context.Context, name string) ([]byte, error) {
	if filepath.Ext(name) != ".irpack" {
		return compiler.CompileFile(ctx, cfg, name)
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}

	defer f.Close()

	p, err := ir.Unpack(f)
	if err != nil {
		return nil, errors.Wrap(err, "unpack")
	}

	return compiler.CompileIR(ctx, cfg, p)
}

func lowerFile(ctx context.Context, name string) (*ir.Prog, error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	return compiler.Lower(ctx, name, text)
}

func packFile(name string, p *ir.Prog) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return errors.Wrap(err, "create")
	}

	defer func() {
		e := f.Close()
		if err == nil && e != nil {
			err = errors.Wrap(e, "close")
		}
	}()

	return ir.Pack(f, p)
}
