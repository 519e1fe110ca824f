package config

import (
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"tlog.app/go/errors"
)

type (
	Config struct {
		Entry     string   `toml:"entry"`
		StackSize int      `toml:"stack_size"`
		Emulator  Emulator `toml:"emulator"`
	}

	// Emulator runs generated assembly.
	// The assembly is written to File inside Dir, then Command is run in Dir.
	Emulator struct {
		Command []string `toml:"command"`
		Dir     string   `toml:"dir"`
		File    string   `toml:"file"`
		Timeout Duration `toml:"timeout"`

		// stderr lines starting with Banner are dropped
		Banner string `toml:"banner"`
	}

	Duration time.Duration
)

func Default() Config {
	return Config{
		Entry:     "main",
		StackSize: 4096,
		Emulator: Emulator{
			Command: []string{"make", "-s", "qemu"},
			Dir:     ".",
			File:    "kernel.s",
			Timeout: Duration(time.Second),
			Banner:  "qemu-system-riscv64",
		},
	}
}

// Load reads the file over the defaults.
func Load(path string) (c Config, err error) {
	c = Default()

	meta, err := toml.DecodeFile(path, &c)
	if err != nil {
		return c, errors.Wrap(err, "decode %v", path)
	}

	return c, check(c, meta)
}

func Parse(text string) (c Config, err error) {
	c = Default()

	meta, err := toml.Decode(text, &c)
	if err != nil {
		return c, errors.Wrap(err, "decode")
	}

	return c, check(c, meta)
}

func check(c Config, meta toml.MetaData) error {
	if u := meta.Undecoded(); len(u) != 0 {
		keys := make([]string, len(u))

		for i, k := range u {
			keys[i] = k.String()
		}

		return errors.New("unknown keys: %v", strings.Join(keys, ", "))
	}

	if c.Entry == "" {
		return errors.New("empty entry")
	}

	if c.StackSize <= 0 || c.StackSize%16 != 0 {
		return errors.New("stack_size must be a positive multiple of 16: %d", c.StackSize)
	}

	if len(c.Emulator.Command) == 0 {
		return errors.New("empty emulator command")
	}

	if c.Emulator.Timeout <= 0 {
		return errors.New("emulator timeout must be positive")
	}

	return nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	x, err := time.ParseDuration(string(b))
	if err != nil {
		return errors.Wrap(err, "duration")
	}

	*d = Duration(x)

	return nil
}

func (d Duration) String() string { return time.Duration(d).String() }
