package ir

import (
	"fmt"
	"strings"
)

// Function is a function definition (with blocks) or a library declaration
// (without). All of its values and blocks are created through its builder
// methods.
type Function struct {
	name   string
	params []Value
	types  []Type
	ret    Type
	decl   bool

	values []ValueData
	blocks []BlockData
	layout []Block
	names  map[string]int
}

func newFunction(name string, ret Type) *Function {
	if !strings.HasPrefix(name, "@") {
		name = "@" + name
	}
	return &Function{name: name, ret: ret, names: make(map[string]int)}
}

// Name returns the function name including its "@" sigil.
func (f *Function) Name() string { return f.name }

// Symbol returns the function name without its sigil.
func (f *Function) Symbol() string { return strings.TrimPrefix(f.name, "@") }

// Params returns the FuncArgRef values of a definition, in order.
func (f *Function) Params() []Value { return f.params }

// ParamTypes returns the parameter types of the function.
func (f *Function) ParamTypes() []Type { return f.types }

// ReturnType returns the result type (Unit for void functions).
func (f *Function) ReturnType() Type { return f.ret }

// IsDecl reports whether the function is a body-less library declaration.
func (f *Function) IsDecl() bool { return f.decl }

// Layout returns the blocks of the function in emission order.
func (f *Function) Layout() []Block { return f.layout }

// Entry returns the first block in the layout, or NoBlock.
func (f *Function) Entry() Block {
	if len(f.layout) == 0 {
		return NoBlock
	}
	return f.layout[0]
}

// Value returns the data of v.
func (f *Function) Value(v Value) ValueData { return f.values[v] }

// Insts returns the instructions of bb in order.
func (f *Function) Insts(bb Block) []Value { return f.blocks[bb].Insts }

// BlockName returns the name of bb including its "%" sigil.
func (f *Function) BlockName(bb Block) string { return f.blocks[bb].Name }

// uniqueName returns name, or name with a numeric suffix when it has already
// been used in this function.
func (f *Function) uniqueName(name string) string {
	if name == "" {
		return ""
	}
	n, used := f.names[name]
	if !used {
		f.names[name] = 1
		return name
	}
	for {
		candidate := fmt.Sprintf("%s_%d", name, n)
		n++
		if _, taken := f.names[candidate]; !taken {
			f.names[name] = n
			f.names[candidate] = 1
			return candidate
		}
	}
}

func (f *Function) newValue(d ValueData) Value {
	d.block = NoBlock
	d.Name = f.uniqueName(d.Name)
	f.values = append(f.values, d)
	return Value(len(f.values) - 1)
}

// ---------------------------------------------------------------------------
// Blocks
// ---------------------------------------------------------------------------

// NewBlock creates a block that is not yet part of the layout.
func (f *Function) NewBlock(name string) Block {
	if !strings.HasPrefix(name, "%") {
		name = "%" + name
	}
	f.blocks = append(f.blocks, BlockData{Name: f.uniqueName(name)})
	return Block(len(f.blocks) - 1)
}

// PushBlock appends bb to the layout.
func (f *Function) PushBlock(bb Block) {
	for _, b := range f.layout {
		if b == bb {
			panic(fmt.Sprintf("ir: block %s pushed twice", f.blocks[bb].Name))
		}
	}
	f.layout = append(f.layout, bb)
}

// RemoveBlock drops bb from the layout. Its instructions are kept in the
// value table but are no longer reachable through Layout.
func (f *Function) RemoveBlock(bb Block) {
	for i, b := range f.layout {
		if b == bb {
			f.layout = append(f.layout[:i], f.layout[i+1:]...)
			return
		}
	}
}

// InLayout reports whether bb has been pushed and not removed.
func (f *Function) InLayout(bb Block) bool {
	for _, b := range f.layout {
		if b == bb {
			return true
		}
	}
	return false
}

// Terminated reports whether the last instruction of bb is a terminator.
func (f *Function) Terminated(bb Block) bool {
	insts := f.blocks[bb].Insts
	if len(insts) == 0 {
		return false
	}
	return f.values[insts[len(insts)-1]].Kind.IsTerminator()
}

// Successors returns the targets of bb's terminator, one entry per edge.
func (f *Function) Successors(bb Block) []Block {
	if !f.Terminated(bb) {
		return nil
	}
	insts := f.blocks[bb].Insts
	return f.values[insts[len(insts)-1]].Targets
}

// Predecessors returns the layout blocks with an edge into bb, one entry per
// edge, in layout order.
func (f *Function) Predecessors(bb Block) []Block {
	var preds []Block
	for _, b := range f.layout {
		for _, s := range f.Successors(b) {
			if s == bb {
				preds = append(preds, b)
			}
		}
	}
	return preds
}

// AppendInst appends instruction v to the end of bb. Appending to a block
// that is already terminated, appending an operand-only value, or appending
// the same instruction twice is a programming error and panics.
func (f *Function) AppendInst(bb Block, v Value) {
	d := &f.values[v]
	if !d.Kind.IsInst() {
		panic(fmt.Sprintf("ir: %s value cannot be appended to a block", d.Kind))
	}
	if d.block != NoBlock {
		panic(fmt.Sprintf("ir: instruction already placed in %s", f.blocks[d.block].Name))
	}
	if f.Terminated(bb) {
		panic(fmt.Sprintf("ir: block %s is already terminated", f.blocks[bb].Name))
	}
	d.block = bb
	f.blocks[bb].Insts = append(f.blocks[bb].Insts, v)
}

// ---------------------------------------------------------------------------
// Value builders
//
// Builders only create values. Instructions become part of the function once
// passed to AppendInst.
// ---------------------------------------------------------------------------

// Integer creates an i32 constant.
func (f *Function) Integer(v int32) Value {
	return f.newValue(ValueData{Kind: Integer, Type: I32, Int: v})
}

// Alloc creates a stack slot. name may be empty.
func (f *Function) Alloc(name string) Value {
	return f.newValue(ValueData{Kind: Alloc, Type: I32Ptr, Name: name})
}

// Load creates a load from slot src.
func (f *Function) Load(src Value) Value {
	f.expectType(src, I32Ptr, "load source")
	return f.newValue(ValueData{Kind: Load, Type: I32, Operands: []Value{src}})
}

// Store creates a store of val into slot dest.
func (f *Function) Store(val, dest Value) Value {
	f.expectType(val, I32, "stored value")
	f.expectType(dest, I32Ptr, "store destination")
	return f.newValue(ValueData{Kind: Store, Type: Unit, Operands: []Value{val, dest}})
}

// Binary creates lhs op rhs.
func (f *Function) Binary(op BinaryOp, lhs, rhs Value) Value {
	f.expectType(lhs, I32, "binary operand")
	f.expectType(rhs, I32, "binary operand")
	return f.newValue(ValueData{Kind: Binary, Type: I32, Op: op, Operands: []Value{lhs, rhs}})
}

// Jump creates an unconditional jump to target.
func (f *Function) Jump(target Block) Value {
	return f.newValue(ValueData{Kind: Jump, Type: Unit, Targets: []Block{target}})
}

// Branch creates a conditional branch on cond.
func (f *Function) Branch(cond Value, then, els Block) Value {
	f.expectType(cond, I32, "branch condition")
	return f.newValue(ValueData{Kind: Branch, Type: Unit, Operands: []Value{cond}, Targets: []Block{then, els}})
}

// Call creates a call of callee. The argument count is not checked here.
func (f *Function) Call(callee *Function, args ...Value) Value {
	for _, a := range args {
		f.expectType(a, I32, "call argument")
	}
	return f.newValue(ValueData{Kind: Call, Type: callee.ret, Callee: callee, Operands: args})
}

// Return creates a ret. Pass NoValue for a bare ret.
func (f *Function) Return(v Value) Value {
	d := ValueData{Kind: Return, Type: Unit}
	if v != NoValue {
		f.expectType(v, I32, "returned value")
		d.Operands = []Value{v}
	}
	return f.newValue(d)
}

func (f *Function) expectType(v Value, t Type, what string) {
	if got := f.values[v].Type; got != t {
		panic(fmt.Sprintf("ir: %s has type %s, want %s", what, got, t))
	}
}
