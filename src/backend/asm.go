package backend

import (
	"errors"

	"caesium/src/backend/amd64"
	"caesium/src/util"
)

// ---------------------
// ----- Functions -----
// ---------------------

// GenerateAssembler takes the syntax tree and generates output assembler code
// based on architecture defined by opt. Only the fixed amd64 convention is
// implemented; the other recognised targets are reported as unsupported.
func GenerateAssembler(opt util.Options) error {
	switch opt.Target {
	case util.Amd64:
		return amd64.GenAmd64(opt)
	case util.Aarch64:
		return errors.New("aarch64 not supported yet")
	case util.Riscv64:
		return errors.New("RISC-V 64-bit not supported yet")
	default:
		return errors.New("unsupported output architecture")
	}
}
