// Package riscv emits RV32IM assembly for an IR program.
//
// Code generation is deliberately naive: every IR value lives in its own
// stack slot, t0 and t1 carry operands, t6 is reserved for legalizing
// immediates that do not fit in 12 bits.
package riscv

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Immediate range of I- and S-type instructions.
const (
	MinImm12 = -2048
	MaxImm12 = 2047
)

// FitsImm12 reports whether v can be encoded as a signed 12-bit immediate.
func FitsImm12(v int) bool {
	return v >= MinImm12 && v <= MaxImm12
}

// AsmBuilder writes assembly text one instruction per line. Every method
// returns the error of the underlying writer, if any.
type AsmBuilder struct {
	w     io.Writer
	temp  string
	count int
}

// NewAsmBuilder returns a builder writing to w that uses temp as its
// scratch register.
func NewAsmBuilder(w io.Writer, temp string) *AsmBuilder {
	return &AsmBuilder{w: w, temp: temp}
}

// Count returns the number of instructions written so far.
func (b *AsmBuilder) Count() int { return b.count }

func (b *AsmBuilder) write(s string) error {
	_, err := io.WriteString(b.w, s)
	return errors.Wrap(err, "writing assembly")
}

// Directive writes an assembler directive such as ".text".
func (b *AsmBuilder) Directive(name string, args ...string) error {
	if len(args) == 0 {
		return b.write(fmt.Sprintf("    %s\n", name))
	}
	return b.write(fmt.Sprintf("    %s %s\n", name, strings.Join(args, ", ")))
}

// Label writes "name:".
func (b *AsmBuilder) Label(name string) error {
	return b.write(name + ":\n")
}

// Blank writes an empty line.
func (b *AsmBuilder) Blank() error {
	return b.write("\n")
}

// Op writes one instruction with its operands.
func (b *AsmBuilder) Op(op string, operands ...string) error {
	b.count++
	if len(operands) == 0 {
		return b.write(fmt.Sprintf("    %s\n", op))
	}
	return b.write(fmt.Sprintf("    %s %s\n", op, strings.Join(operands, ", ")))
}

// Li loads the constant v into dest.
func (b *AsmBuilder) Li(dest string, v int32) error {
	return b.Op("li", dest, fmt.Sprint(v))
}

// Mv copies src into dest.
func (b *AsmBuilder) Mv(dest, src string) error {
	return b.Op("mv", dest, src)
}

// Addi computes dest = src + offset. Offsets outside the 12-bit range go
// through the scratch register: li temp, offset; add dest, src, temp.
func (b *AsmBuilder) Addi(dest, src string, offset int) error {
	if FitsImm12(offset) {
		return b.Op("addi", dest, src, fmt.Sprint(offset))
	}
	if err := b.Li(b.temp, int32(offset)); err != nil {
		return err
	}
	return b.Op("add", dest, src, b.temp)
}

// Lw loads the word at base+offset into dest.
func (b *AsmBuilder) Lw(dest, base string, offset int) error {
	if FitsImm12(offset) {
		return b.Op("lw", dest, memOperand(base, offset))
	}
	if err := b.Addi(b.temp, base, offset); err != nil {
		return err
	}
	return b.Op("lw", dest, memOperand(b.temp, 0))
}

// Sw stores src to the word at base+offset.
func (b *AsmBuilder) Sw(src, base string, offset int) error {
	if FitsImm12(offset) {
		return b.Op("sw", src, memOperand(base, offset))
	}
	if err := b.Addi(b.temp, base, offset); err != nil {
		return err
	}
	return b.Op("sw", src, memOperand(b.temp, 0))
}

func memOperand(base string, offset int) string {
	return fmt.Sprintf("%d(%s)", offset, base)
}

// Prologue writes the function label and sets up the frame: the stack
// pointer moves down by frame.Size and, for non-leaf functions, ra is saved
// at the top of the frame.
func (b *AsmBuilder) Prologue(name string, frame *Frame) error {
	if err := b.Directive(".globl", name); err != nil {
		return err
	}
	if err := b.Label(name); err != nil {
		return err
	}
	if frame.Size == 0 {
		return nil
	}
	if err := b.Addi("sp", "sp", -frame.Size); err != nil {
		return err
	}
	if !frame.Leaf {
		return b.Sw("ra", "sp", frame.RAOffset())
	}
	return nil
}

// Epilogue mirrors Prologue and returns to the caller.
func (b *AsmBuilder) Epilogue(frame *Frame) error {
	if frame.Size != 0 {
		if !frame.Leaf {
			if err := b.Lw("ra", "sp", frame.RAOffset()); err != nil {
				return err
			}
		}
		if err := b.Addi("sp", "sp", frame.Size); err != nil {
			return err
		}
	}
	return b.Op("ret")
}
