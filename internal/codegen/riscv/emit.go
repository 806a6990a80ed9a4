package riscv

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"

	"kira/internal/ir"
	"kira/internal/logger"
)

// Scratch register used to legalize out-of-range immediates.
const Temp = "t6"

// ---------------------------------------------------------------------------
// Top-level emission
// ---------------------------------------------------------------------------

// Emit writes prog as RV32IM assembly. Library declarations produce no code;
// calls to them are left to the linker.
func Emit(w io.Writer, prog *ir.Program) error {
	bw := bufio.NewWriter(w)
	b := NewAsmBuilder(bw, Temp)
	if err := b.Directive(".text"); err != nil {
		return err
	}
	for _, f := range prog.Funcs() {
		if f.IsDecl() {
			continue
		}
		if err := b.Blank(); err != nil {
			return err
		}
		start := b.Count()
		if err := emitFunction(b, f); err != nil {
			return errors.WithMessagef(err, "emitting %s", f.Name())
		}
		logger.LogCodeGen("riscv", f.Symbol(), b.Count()-start)
	}
	return errors.Wrap(bw.Flush(), "writing assembly")
}

// BlockLabel returns the assembly label of bb in f.
func BlockLabel(f *ir.Function, bb ir.Block) string {
	return fmt.Sprintf(".L%s_%s", f.Symbol(), strings.TrimPrefix(f.BlockName(bb), "%"))
}

type funcEmitter struct {
	b     *AsmBuilder
	f     *ir.Function
	frame *Frame
}

func emitFunction(b *AsmBuilder, f *ir.Function) error {
	e := &funcEmitter{b: b, f: f, frame: NewFrame(f)}
	logger.Debug("frame", "function", f.Symbol(), "size", e.frame.Size,
		"leaf", e.frame.Leaf, "slots", e.frame.Named())

	if err := b.Prologue(f.Symbol(), e.frame); err != nil {
		return err
	}
	for _, bb := range f.Layout() {
		if err := b.Label(BlockLabel(f, bb)); err != nil {
			return err
		}
		for _, v := range f.Insts(bb) {
			if err := e.emitInst(v); err != nil {
				return err
			}
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Operands
// ---------------------------------------------------------------------------

// load brings the value of v into reg.
func (e *funcEmitter) load(v ir.Value, reg string) error {
	d := e.f.Value(v)
	switch d.Kind {
	case ir.Integer:
		return e.b.Li(reg, d.Int)
	case ir.FuncArgRef:
		if d.Index < ArgRegs {
			return e.b.Mv(reg, fmt.Sprintf("a%d", d.Index))
		}
		return e.b.Lw(reg, "sp", e.frame.IncomingOffset(d.Index))
	}
	off, ok := e.frame.Offset(v)
	if !ok {
		return errors.Errorf("value %d (%s) has no stack slot", v, d.Kind)
	}
	return e.b.Lw(reg, "sp", off)
}

// spill stores reg into the slot of v.
func (e *funcEmitter) spill(reg string, v ir.Value) error {
	off, ok := e.frame.Offset(v)
	if !ok {
		return errors.Errorf("value %d has no stack slot", v)
	}
	return e.b.Sw(reg, "sp", off)
}

// ---------------------------------------------------------------------------
// Instruction selection
// ---------------------------------------------------------------------------

var binaryInsts = map[ir.BinaryOp]string{
	ir.Add: "add", ir.Sub: "sub", ir.Mul: "mul", ir.Div: "div", ir.Mod: "rem",
	ir.And: "and", ir.Or: "or", ir.Xor: "xor",
	ir.Shl: "sll", ir.Shr: "srl", ir.Sar: "sra",
	ir.Lt: "slt", ir.Gt: "sgt",
}

func (e *funcEmitter) emitInst(v ir.Value) error {
	d := e.f.Value(v)
	b := e.b
	switch d.Kind {
	case ir.Alloc:
		return nil

	case ir.Load:
		if err := e.load(d.Operands[0], "t0"); err != nil {
			return err
		}
		return e.spill("t0", v)

	case ir.Store:
		if err := e.load(d.Operands[0], "t0"); err != nil {
			return err
		}
		off, ok := e.frame.Offset(d.Operands[1])
		if !ok {
			return errors.Errorf("store to value %d without a slot", d.Operands[1])
		}
		return b.Sw("t0", "sp", off)

	case ir.Binary:
		if err := e.load(d.Operands[0], "t0"); err != nil {
			return err
		}
		if err := e.load(d.Operands[1], "t1"); err != nil {
			return err
		}
		if err := e.emitBinary(d.Op); err != nil {
			return err
		}
		return e.spill("t0", v)

	case ir.Branch:
		if err := e.load(d.Operands[0], "t0"); err != nil {
			return err
		}
		if err := b.Op("bnez", "t0", BlockLabel(e.f, d.Targets[0])); err != nil {
			return err
		}
		return b.Op("j", BlockLabel(e.f, d.Targets[1]))

	case ir.Jump:
		return b.Op("j", BlockLabel(e.f, d.Targets[0]))

	case ir.Call:
		return e.emitCall(v, d)

	case ir.Return:
		if len(d.Operands) > 0 {
			if err := e.load(d.Operands[0], "a0"); err != nil {
				return err
			}
		}
		return b.Epilogue(e.frame)
	}
	return errors.Errorf("unexpected %s instruction", d.Kind)
}

// emitBinary computes t0 = t0 op t1. Equality and the non-strict comparisons
// have no single instruction and are built from xor, slt/sgt and seqz/snez.
func (e *funcEmitter) emitBinary(op ir.BinaryOp) error {
	b := e.b
	if inst, ok := binaryInsts[op]; ok {
		return b.Op(inst, "t0", "t0", "t1")
	}
	var first, second string
	switch op {
	case ir.Eq:
		first, second = "xor", "seqz"
	case ir.NotEq:
		first, second = "xor", "snez"
	case ir.Le:
		first, second = "sgt", "seqz"
	case ir.Ge:
		first, second = "slt", "seqz"
	default:
		return errors.Errorf("unsupported binary operator %s", op)
	}
	if err := b.Op(first, "t0", "t0", "t1"); err != nil {
		return err
	}
	return b.Op(second, "t0", "t0")
}

// emitCall passes the first eight arguments in a0..a7 and the rest in the
// outgoing area at the bottom of the frame, then stores a0 into the result
// slot of non-void calls.
func (e *funcEmitter) emitCall(v ir.Value, d ir.ValueData) error {
	b := e.b
	for i := ArgRegs; i < len(d.Operands); i++ {
		if err := e.load(d.Operands[i], "t0"); err != nil {
			return err
		}
		if err := b.Sw("t0", "sp", WordSize*(i-ArgRegs)); err != nil {
			return err
		}
	}
	for i := 0; i < len(d.Operands) && i < ArgRegs; i++ {
		if err := e.load(d.Operands[i], fmt.Sprintf("a%d", i)); err != nil {
			return err
		}
	}
	if err := b.Op("call", d.Callee.Symbol()); err != nil {
		return err
	}
	if d.Type == ir.Unit {
		return nil
	}
	return e.spill("a0", v)
}
