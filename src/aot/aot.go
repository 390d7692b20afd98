// Package aot hands the emitted assembly file to an external assembler. The
// compiler emits textual assembly only; producing object code is delegated to
// the assembler executable configured by the user. The executable path is
// always injected through the compiler options, never discovered implicitly.
package aot

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/tliron/commonlog"

	"caesium/src/util"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Toolchain describes the external assembler invocation. The zero value is
// not usable; construct with New.
type Toolchain struct {
	nasm   string // Path to the assembler executable.
	format string // Object format passed with -f.
}

// -------------------
// ----- Globals -----
// -------------------

var log = commonlog.GetLogger("caesium.aot")

// ---------------------
// ----- Functions -----
// ---------------------

// New creates a Toolchain from the compiler options and verifies that the
// configured assembler executable can be run.
func New(opt util.Options) (*Toolchain, error) {
	path, err := exec.LookPath(opt.Nasm)
	if err != nil {
		return nil, fmt.Errorf("assembler %q not found: %w", opt.Nasm, err)
	}
	if err = executable(path); err != nil {
		return nil, fmt.Errorf("assembler %q is not executable: %w", path, err)
	}
	return &Toolchain{nasm: path, format: opt.Format}, nil
}

// Assemble runs the assembler on the emitted assembly file src and writes the
// object file to out. If out is empty the object file name is derived from src
// by swapping the file extension for ".o".
func (t *Toolchain) Assemble(ctx context.Context, src, out string) error {
	if len(out) == 0 {
		out = objectName(src)
	}

	cmd := exec.CommandContext(ctx, t.nasm, "-f", t.format, src, "-o", out)
	log.Infof("assembling: %s", strings.Join(cmd.Args, " "))

	if b, err := cmd.CombinedOutput(); err != nil {
		if len(b) > 0 {
			log.Errorf("assembler output: %s", strings.TrimSpace(string(b)))
		}
		return fmt.Errorf("assembler failed: %w", err)
	}
	log.Infof("wrote object file %s", out)
	return nil
}

// objectName swaps the file extension of the assembly file for ".o".
func objectName(src string) string {
	if i := strings.LastIndexByte(src, '.'); i > 0 {
		return src[:i] + ".o"
	}
	return src + ".o"
}
