// Tests the project configuration file loading and its merge into the
// resolved options. Flags win over the file, the file wins over defaults.

package util

import (
	"os"
	"path/filepath"
	"testing"
)

// TestLoadConfig verifies parsing of a full caesium.toml file.
func TestLoadConfig(t *testing.T) {
	src := `[build]
out = "out.asm"
threads = 4
arch = "amd64"

[toolchain]
nasm = "/opt/nasm/bin/nasm"
format = "elf64"
assemble = true
`
	path := filepath.Join(t.TempDir(), "caesium.toml")
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatalf("cannot write config: %s", err)
	}

	c, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load failed: %s", err)
	}
	if c.Build.Out != "out.asm" || c.Build.Threads != 4 || c.Build.Arch != "amd64" {
		t.Errorf("unexpected build section: %+v", c.Build)
	}
	if c.Toolchain.Nasm != "/opt/nasm/bin/nasm" || c.Toolchain.Format != "elf64" || !c.Toolchain.Assemble {
		t.Errorf("unexpected toolchain section: %+v", c.Toolchain)
	}
}

// TestLoadConfigErrors verifies that missing and malformed files are reported.
func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("expected error for missing file, got none")
	}

	path := filepath.Join(t.TempDir(), "caesium.toml")
	if err := os.WriteFile(path, []byte("[build\nout ="), 0644); err != nil {
		t.Fatalf("cannot write config: %s", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected error for malformed file, got none")
	}
}

// TestConfigApply verifies the merge precedence against explicit flags.
func TestConfigApply(t *testing.T) {
	c := Config{
		Build:     Build{Out: "file.asm", Threads: 8, Arch: "aarch64"},
		Toolchain: Toolchain{Nasm: "yasm", Format: "macho64", Assemble: true},
	}

	// Nothing set on the command line: everything comes from the file.
	opt := Options{Threads: 1, Nasm: "nasm", Format: "elf64", Target: Amd64}
	if err := c.Apply(&opt); err != nil {
		t.Fatalf("apply failed: %s", err)
	}
	if opt.Out != "file.asm" || opt.Threads != 8 || opt.Target != Aarch64 {
		t.Errorf("unexpected merged build options: %+v", opt)
	}
	if opt.Nasm != "yasm" || opt.Format != "macho64" || !opt.Assemble {
		t.Errorf("unexpected merged toolchain options: %+v", opt)
	}

	// Explicit flags are not overridden.
	opt = Options{Out: "cli.asm", Threads: 2, Nasm: "nasm", Format: "elf64", Target: Amd64}
	if err := c.Apply(&opt); err != nil {
		t.Fatalf("apply failed: %s", err)
	}
	if opt.Out != "cli.asm" {
		t.Errorf("file overrode explicit output %q with %q", "cli.asm", opt.Out)
	}
	if opt.Threads != 2 {
		t.Errorf("file overrode explicit thread count 2 with %d", opt.Threads)
	}

	// Out of range thread count in the file is rejected.
	c.Build.Threads = maxThreads + 1
	opt = Options{Threads: 1}
	if err := c.Apply(&opt); err == nil {
		t.Error("expected error for out of range thread count, got none")
	}

	// Unknown architecture identifier is rejected.
	c = Config{Build: Build{Arch: "sparc"}}
	opt = Options{}
	if err := c.Apply(&opt); err == nil {
		t.Error("expected error for unknown architecture, got none")
	}
}
