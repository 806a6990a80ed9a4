package riscv

import (
	"fmt"

	"github.com/rickypai/natsort"

	"kira/internal/ir"
)

// WordSize is the size of every stack slot in bytes.
const WordSize = 4

// ArgRegs is the number of arguments passed in a0..a7.
const ArgRegs = 8

// Frame is the stack layout of one function, from sp upwards:
//
//	[0, Outgoing)           arguments 9.. of the calls this function makes
//	[Outgoing, ...)         one slot per alloc and value-producing instruction
//	Size-4                  saved ra (non-leaf functions only)
//
// Size is rounded up to 16 bytes.
type Frame struct {
	Size     int
	Leaf     bool
	Outgoing int

	slots map[ir.Value]int
	names map[string]int
}

// NewFrame computes the frame of f.
func NewFrame(f *ir.Function) *Frame {
	fr := &Frame{
		Leaf:  true,
		slots: make(map[ir.Value]int),
		names: make(map[string]int),
	}
	maxArgs := 0
	var owned []ir.Value
	for _, bb := range f.Layout() {
		for _, v := range f.Insts(bb) {
			d := f.Value(v)
			if d.Kind == ir.Call {
				fr.Leaf = false
				if len(d.Operands) > maxArgs {
					maxArgs = len(d.Operands)
				}
			}
			if d.Kind == ir.Alloc || d.Type != ir.Unit {
				owned = append(owned, v)
			}
		}
	}
	if maxArgs > ArgRegs {
		fr.Outgoing = WordSize * (maxArgs - ArgRegs)
	}

	offset := fr.Outgoing
	for _, v := range owned {
		fr.slots[v] = offset
		if name := f.Value(v).Name; name != "" {
			fr.names[name] = offset
		}
		offset += WordSize
	}
	if !fr.Leaf {
		offset += WordSize
	}
	fr.Size = (offset + 15) &^ 15
	return fr
}

// Offset returns the sp-relative offset of the slot holding v.
func (fr *Frame) Offset(v ir.Value) (int, bool) {
	off, ok := fr.slots[v]
	return off, ok
}

// Slots returns the number of value slots in the frame.
func (fr *Frame) Slots() int { return len(fr.slots) }

// RAOffset returns the offset of the saved return address.
func (fr *Frame) RAOffset() int { return fr.Size - WordSize }

// IncomingOffset returns the offset, relative to this function's sp, of
// incoming argument i (i >= ArgRegs) in the caller's outgoing area.
func (fr *Frame) IncomingOffset(i int) int {
	return fr.Size + WordSize*(i-ArgRegs)
}

// Named lists the named slots as "name=offset", in natural name order.
func (fr *Frame) Named() []string {
	names := make([]string, 0, len(fr.names))
	for name := range fr.names {
		names = append(names, name)
	}
	natsort.Strings(names)
	for i, name := range names {
		names[i] = fmt.Sprintf("%s=%d", name, fr.names[name])
	}
	return names
}
