//go:build unix

package emu

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/crv/compiler/config"
)

type (
	Result struct {
		OK       bool
		TimedOut bool
		Exit     int

		Stdout []byte
		Stderr []byte
	}
)

// Run writes asm into the emulator directory and runs the emulator command there.
// A nonzero exit or a timeout is reported in Result, not as an error.
func Run(ctx context.Context, asm []byte, c config.Emulator) (res Result, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "emu: run", "cmd", c.Command, "dir", c.Dir)
	defer tr.Finish("err", &err)

	if len(c.Command) == 0 {
		return res, errors.New("empty command")
	}

	path := filepath.Join(c.Dir, c.File)

	err = os.WriteFile(path, asm, 0o644)
	if err != nil {
		return res, errors.Wrap(err, "write asm")
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.Timeout))
	defer cancel()

	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, c.Command[0], c.Command[1:]...)
	cmd.Dir = c.Dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.WaitDelay = time.Second

	cmd.Cancel = func() error {
		return unix.Kill(-cmd.Process.Pid, unix.SIGTERM)
	}

	err = cmd.Start()
	if err != nil {
		return res, errors.Wrap(err, "start")
	}

	werr := cmd.Wait()

	res.TimedOut = errors.Is(ctx.Err(), context.DeadlineExceeded)
	res.Exit = cmd.ProcessState.ExitCode()
	res.OK = werr == nil && !res.TimedOut
	res.Stdout = stdout.Bytes()
	res.Stderr = Filter(stderr.Bytes(), c.Banner)

	if tr.If("dump_emu") {
		tr.Printw("emulator", "ok", res.OK, "timeout", res.TimedOut, "exit", res.Exit, "stdout", res.Stdout, "stderr", res.Stderr)
	}

	var exit *exec.ExitError
	if werr != nil && !errors.As(werr, &exit) && !res.TimedOut {
		return res, errors.Wrap(werr, "wait")
	}

	return res, nil
}

// Output is stdout followed by filtered stderr.
func (r Result) Output() []byte {
	b := make([]byte, 0, len(r.Stdout)+len(r.Stderr))
	b = append(b, r.Stdout...)

	return append(b, r.Stderr...)
}

// Filter drops lines starting with prefix.
func Filter(b []byte, prefix string) []byte {
	if prefix == "" {
		return b
	}

	var res []byte

	for len(b) != 0 {
		line := b

		if i := bytes.IndexByte(b, '\n'); i >= 0 {
			line = b[:i+1]
		}

		b = b[len(line):]

		if bytes.HasPrefix(line, []byte(prefix)) {
			continue
		}

		res = append(res, line...)
	}

	return res
}
