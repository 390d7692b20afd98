// config.go handles the optional caesium.toml project configuration.
// Settings from the file fill in anything the command line left at its
// default; explicit flags always win.

package util

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Config represents a caesium.toml project configuration.
type Config struct {
	Build     Build     `toml:"build"`
	Toolchain Toolchain `toml:"toolchain"`
}

// Build configures the compilation itself.
type Build struct {
	Out     string `toml:"out"`
	Threads int    `toml:"threads"`
	Arch    string `toml:"arch"`
}

// Toolchain configures the external assembler handoff.
type Toolchain struct {
	Nasm     string `toml:"nasm"`
	Format   string `toml:"format"`
	Assemble bool   `toml:"assemble"`
}

// ---------------------
// ----- functions -----
// ---------------------

// LoadConfig parses a caesium.toml file from the given path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	return &c, nil
}

// Apply merges the configuration into opt without overriding values set on
// the command line.
func (c *Config) Apply(opt *Options) error {
	if opt.Out == "" && c.Build.Out != "" {
		opt.Out = c.Build.Out
	}
	if opt.Threads <= 1 && c.Build.Threads > 0 {
		if c.Build.Threads > maxThreads {
			return fmt.Errorf("thread count must be integer in range [1, %d]", maxThreads)
		}
		opt.Threads = c.Build.Threads
	}
	switch c.Build.Arch {
	case "":
	case "amd64", "x86_64":
		opt.Target = Amd64
	case "aarch64":
		opt.Target = Aarch64
	case "riscv64":
		opt.Target = Riscv64
	default:
		return fmt.Errorf("unexpected architecture identifier: %s", c.Build.Arch)
	}
	if c.Toolchain.Nasm != "" {
		opt.Nasm = c.Toolchain.Nasm
	}
	if c.Toolchain.Format != "" {
		opt.Format = c.Toolchain.Format
	}
	if c.Toolchain.Assemble {
		opt.Assemble = true
	}
	return nil
}
