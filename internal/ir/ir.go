package ir

import "fmt"

// ---------------------------------------------------------------------------
// IR: a Koopa-style intermediate representation
//
// A Program is a list of functions. Each function owns a table of values and
// a table of basic blocks; both are addressed by integer handles, so a block
// or value can be copied around freely while the function is being built.
// Blocks hold an ordered list of instruction values and end in exactly one
// terminator (jump, br or ret) once construction is finished.
// ---------------------------------------------------------------------------

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// Type is the type of an IR value.
type Type int

const (
	Unit   Type = iota // no value (stores, terminators, void calls)
	I32                // 32-bit signed integer
	I32Ptr             // pointer to an i32 stack slot
)

func (t Type) String() string {
	switch t {
	case Unit:
		return "unit"
	case I32:
		return "i32"
	case I32Ptr:
		return "*i32"
	default:
		return fmt.Sprintf("type_%d", int(t))
	}
}

// ---------------------------------------------------------------------------
// Binary operators
// ---------------------------------------------------------------------------

// BinaryOp is the operator of a Binary value.
type BinaryOp int

const (
	NotEq BinaryOp = iota
	Eq
	Gt
	Lt
	Ge
	Le
	Add
	Sub
	Mul
	Div
	Mod
	And
	Or
	Xor
	Shl
	Shr
	Sar
)

var binaryOpNames = map[BinaryOp]string{
	NotEq: "ne", Eq: "eq", Gt: "gt", Lt: "lt", Ge: "ge", Le: "le",
	Add: "add", Sub: "sub", Mul: "mul", Div: "div", Mod: "mod",
	And: "and", Or: "or", Xor: "xor",
	Shl: "shl", Shr: "shr", Sar: "sar",
}

func (op BinaryOp) String() string {
	if s, ok := binaryOpNames[op]; ok {
		return s
	}
	return fmt.Sprintf("binop_%d", int(op))
}

// ---------------------------------------------------------------------------
// Value kinds
// ---------------------------------------------------------------------------

// ValueKind says what a value is.
type ValueKind int

const (
	Integer    ValueKind = iota // constant; Int holds the value
	FuncArgRef                  // incoming parameter; Index is its position
	Alloc                       // stack slot; type *i32
	Load                        // Operands[0] is the slot
	Store                       // Operands[0] is stored into Operands[1]
	Binary                      // Op applied to Operands[0], Operands[1]
	Branch                      // Operands[0] != 0 ? Targets[0] : Targets[1]
	Jump                        // Targets[0]
	Call                        // Callee(Operands...)
	Return                      // optional Operands[0]
)

var valueKindNames = map[ValueKind]string{
	Integer: "integer", FuncArgRef: "func_arg_ref", Alloc: "alloc",
	Load: "load", Store: "store", Binary: "binary",
	Branch: "br", Jump: "jump", Call: "call", Return: "ret",
}

func (k ValueKind) String() string {
	if s, ok := valueKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind_%d", int(k))
}

// IsTerminator reports whether values of this kind end a basic block.
func (k ValueKind) IsTerminator() bool {
	return k == Branch || k == Jump || k == Return
}

// IsInst reports whether values of this kind live inside basic blocks.
// Integers and argument references are operands only.
func (k ValueKind) IsInst() bool {
	return k != Integer && k != FuncArgRef
}

// ---------------------------------------------------------------------------
// Handles and data
// ---------------------------------------------------------------------------

// Value is a handle to a value owned by a Function.
type Value int

// NoValue is the zero handle: no value at all (e.g. the operand of a bare ret).
const NoValue Value = -1

// Block is a handle to a basic block owned by a Function.
type Block int

// NoBlock marks "no block", e.g. when lowering has just emitted a terminator
// and there is nowhere to append further instructions.
const NoBlock Block = -1

// ValueData is the payload of a value.
type ValueData struct {
	Kind     ValueKind
	Type     Type
	Name     string // "@x" / "%x" for named values, "" for temporaries
	Int      int32
	Index    int
	Op       BinaryOp
	Operands []Value
	Targets  []Block
	Callee   *Function

	block Block // block the instruction was appended to
}

// BlockData is the payload of a basic block.
type BlockData struct {
	Name  string
	Insts []Value
}
