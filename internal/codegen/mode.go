package codegen

import (
	"github.com/pkg/errors"
)

// ---------------------------------------------------------------------------
// Mode selects what the pipeline writes
// ---------------------------------------------------------------------------

// Mode is the output format of a compilation.
type Mode int

const (
	ModeKoopa Mode = iota // Koopa IR text
	ModeRISCV             // RV32IM assembly
	ModeLLVM              // LLVM IR assembly
)

// ErrUnknownMode is returned by ParseMode for unrecognised selectors.
var ErrUnknownMode = errors.New("unknown mode")

func (m Mode) String() string {
	switch m {
	case ModeKoopa:
		return "koopa"
	case ModeRISCV:
		return "riscv"
	case ModeLLVM:
		return "llvm"
	default:
		return "unknown"
	}
}

// Flag returns the command-line selector of m, e.g. "-riscv".
func (m Mode) Flag() string {
	return "-" + m.String()
}

// ParseMode resolves a command-line selector ("-koopa", "-riscv" or "-llvm").
func ParseMode(flag string) (Mode, error) {
	for _, m := range []Mode{ModeKoopa, ModeRISCV, ModeLLVM} {
		if flag == m.Flag() {
			return m, nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownMode, "%q", flag)
}
