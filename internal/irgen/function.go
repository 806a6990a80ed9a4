package irgen

import (
	"kira/internal/ir"
)

// FunctionInfo is the lowering state of one function definition: its entry
// and end blocks, the block instructions are currently appended to, and the
// return slot.
type FunctionInfo struct {
	fn     *ir.Function
	entry  ir.Block
	body   ir.Block
	end    ir.Block
	active ir.Block
	ret    ir.Value // NoValue for void functions
	calls  int
}

// newFunctionInfo creates the %entry, %body and %end blocks of fn and, for
// non-void functions, the %ret slot initialised to 0 in %entry. Instructions
// are appended to %entry until enterBody is called.
func newFunctionInfo(fn *ir.Function) *FunctionInfo {
	info := &FunctionInfo{
		fn:    fn,
		entry: fn.NewBlock("%entry"),
		end:   fn.NewBlock("%end"),
		body:  fn.NewBlock("%body"),
		ret:   ir.NoValue,
	}
	info.SetActive(info.entry)
	if fn.ReturnType() != ir.Unit {
		info.ret = fn.Alloc("%ret")
		fn.AppendInst(info.entry, info.ret)
		fn.AppendInst(info.entry, fn.Store(fn.Integer(0), info.ret))
	}
	return info
}

// Function returns the IR function being built.
func (info *FunctionInfo) Function() *ir.Function { return info.fn }

func (info *FunctionInfo) Entry() ir.Block { return info.entry }
func (info *FunctionInfo) Body() ir.Block  { return info.body }
func (info *FunctionInfo) End() ir.Block   { return info.end }

// Active returns the block instructions are appended to, or ir.NoBlock right
// after a terminator.
func (info *FunctionInfo) Active() ir.Block { return info.active }

// RetSlot returns the slot holding the return value, or ir.NoValue.
func (info *FunctionInfo) RetSlot() ir.Value { return info.ret }

// Calls returns the number of call instructions emitted so far.
func (info *FunctionInfo) Calls() int { return info.calls }

// NewBlock creates a block; it joins the layout once it becomes active.
func (info *FunctionInfo) NewBlock(name string) ir.Block {
	return info.fn.NewBlock(name)
}

// SetActive switches the append point to bb, adding it to the layout.
func (info *FunctionInfo) SetActive(bb ir.Block) {
	if !info.fn.InLayout(bb) {
		info.fn.PushBlock(bb)
	}
	info.active = bb
}

// Allocate creates a named stack slot in %entry, wherever the declaration
// appears in the source.
func (info *FunctionInfo) Allocate(name string) ir.Value {
	slot := info.fn.Alloc(name)
	info.fn.AppendInst(info.entry, slot)
	return slot
}

// Append adds v to the active block and returns it. Code following a
// terminator goes into a fresh %unreachable block so that every block keeps
// exactly one terminator.
func (info *FunctionInfo) Append(v ir.Value) ir.Value {
	if info.active == ir.NoBlock {
		info.SetActive(info.fn.NewBlock("%unreachable"))
	}
	if info.fn.Value(v).Kind == ir.Call {
		info.calls++
	}
	info.fn.AppendInst(info.active, v)
	return v
}

// Terminate ends the active block with term. Without an active block the
// terminator is dropped: the code is unreachable and has no edge to add.
func (info *FunctionInfo) Terminate(term ir.Value) {
	if info.active == ir.NoBlock {
		return
	}
	info.fn.AppendInst(info.active, term)
	info.active = ir.NoBlock
}

// JumpTo ends the active block with a jump to target.
func (info *FunctionInfo) JumpTo(target ir.Block) {
	if info.active == ir.NoBlock {
		return
	}
	info.Terminate(info.fn.Jump(target))
}

// enterBody switches from %entry to %body. %entry stays open so that later
// allocations can still be added to it; its jump to %body is added by finish.
func (info *FunctionInfo) enterBody() {
	info.SetActive(info.body)
}

// finish closes the function: %entry jumps to %body, the still-open block
// falls through to %end unless it is an empty block nothing jumps to (which
// is dropped), and %end is filled once: load the return slot (if any) and ret.
func (info *FunctionInfo) finish() {
	fn := info.fn
	fn.AppendInst(info.entry, fn.Jump(info.body))
	if info.active != ir.NoBlock {
		bb := info.active
		if len(fn.Insts(bb)) == 0 && len(fn.Predecessors(bb)) == 0 {
			fn.RemoveBlock(bb)
			info.active = ir.NoBlock
		} else {
			info.JumpTo(info.end)
		}
	}

	info.SetActive(info.end)
	if info.ret != ir.NoValue {
		v := fn.Load(info.ret)
		fn.AppendInst(info.end, v)
		fn.AppendInst(info.end, fn.Return(v))
	} else {
		fn.AppendInst(info.end, fn.Return(ir.NoValue))
	}
	info.active = ir.NoBlock
}
