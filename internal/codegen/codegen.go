// Package codegen drives the back half of the compiler: it lowers a parsed
// compilation unit to IR and writes it in the selected output format.
package codegen

import (
	"io"

	"github.com/pkg/errors"

	"kira/internal/ast"
	"kira/internal/codegen/llvm"
	"kira/internal/codegen/riscv"
	"kira/internal/ir"
	"kira/internal/irgen"
	"kira/internal/logger"
)

// ---------------------------------------------------------------------------
// Options controls the behaviour of the code-generation pipeline.
// ---------------------------------------------------------------------------

// Options configures the codegen pipeline.
type Options struct {
	// Mode selects the output format. Defaults to Koopa IR text.
	Mode Mode

	// Verbose enables extra diagnostic output.
	Verbose bool
}

// DefaultOptions returns the defaults: Koopa IR output, not verbose.
func DefaultOptions() *Options {
	return &Options{Mode: ModeKoopa}
}

// ---------------------------------------------------------------------------
// Result is returned by Generate.
// ---------------------------------------------------------------------------

type Result struct {
	Program *ir.Program // the lowered program
	IRDump  string      // Koopa text of Program, filled in verbose mode
}

// ---------------------------------------------------------------------------
// Generate: the public entry point for the code-generation pipeline
//
// Pipeline: AST → IR (irgen) → text in the selected format (ir, riscv, llvm)
// ---------------------------------------------------------------------------

// Generate lowers unit and writes the result to w. Nothing is written when
// lowering fails.
func Generate(unit *ast.CompUnit, w io.Writer, opts *Options) (*Result, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	// --- Step 1: Lower AST to IR ---
	logger.Debug("lowering AST to IR", "functions", len(unit.Funcs))
	prog, err := irgen.Generate(unit)
	if err != nil {
		return nil, err
	}
	result := &Result{Program: prog}
	if opts.Verbose {
		result.IRDump = prog.Dump()
		logger.Debug("IR\n" + result.IRDump)
	}
	logger.LogPhase("lower", "functions", len(prog.Funcs()))

	// --- Step 2: Emit ---
	logger.Debug("emitting", "mode", opts.Mode)
	switch opts.Mode {
	case ModeKoopa:
		err = prog.WriteText(w)
	case ModeRISCV:
		err = riscv.Emit(w, prog)
	case ModeLLVM:
		err = llvm.Emit(w, prog)
	default:
		return nil, errors.Wrapf(ErrUnknownMode, "%d", int(opts.Mode))
	}
	if err != nil {
		return result, err
	}
	logger.LogPhase("emit", "mode", opts.Mode)
	return result, nil
}
