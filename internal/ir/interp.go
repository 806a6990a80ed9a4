package ir

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Extern implements a library function for Interpret.
type Extern func(args []int32) (int32, error)

// Limits guarding Interpret against programs that do not terminate.
const (
	MaxSteps = 50_000_000
	MaxDepth = 10_000
)

var (
	ErrDivisionByZero = errors.New("division by zero")
	ErrStepLimit      = errors.New("step limit exceeded")
	ErrDepthLimit     = errors.New("call depth limit exceeded")
	ErrUnknownExtern  = errors.New("no implementation for library function")
	ErrNoFunction     = errors.New("function not found")
	ErrFellThrough    = errors.New("block ended without a terminator")
)

// Interpret runs function entry of prog and returns its result (0 for void
// functions). Library declarations are dispatched to externs, keyed by name
// without the "@" sigil. Arithmetic wraps around at 32 bits.
func Interpret(prog *Program, entry string, externs map[string]Extern) (int32, error) {
	f := prog.Func(entry)
	if f == nil {
		return 0, errors.Wrapf(ErrNoFunction, "%s", entry)
	}
	m := &machine{externs: externs}
	return m.call(f, nil, 0)
}

type machine struct {
	externs map[string]Extern
	steps   int
}

func (m *machine) call(f *Function, args []int32, depth int) (int32, error) {
	if f.decl {
		ext, ok := m.externs[f.Symbol()]
		if !ok {
			return 0, errors.Wrapf(ErrUnknownExtern, "%s", f.name)
		}
		return ext(args)
	}
	if depth >= MaxDepth {
		return 0, errors.Wrapf(ErrDepthLimit, "calling %s", f.name)
	}

	vals := make([]int32, len(f.values)) // results of instructions
	mem := make([]int32, len(f.values))  // contents of alloc slots
	eval := func(v Value) int32 {
		d := f.values[v]
		switch d.Kind {
		case Integer:
			return d.Int
		case FuncArgRef:
			return args[d.Index]
		default:
			return vals[v]
		}
	}

	bb := f.Entry()
	for {
		insts := f.blocks[bb].Insts
		next := NoBlock
		for _, v := range insts {
			m.steps++
			if m.steps > MaxSteps {
				return 0, errors.Wrapf(ErrStepLimit, "in %s", f.name)
			}
			d := f.values[v]
			switch d.Kind {
			case Alloc:
				mem[v] = 0
			case Load:
				vals[v] = mem[d.Operands[0]]
			case Store:
				mem[d.Operands[1]] = eval(d.Operands[0])
			case Binary:
				r, err := evalBinary(d.Op, eval(d.Operands[0]), eval(d.Operands[1]))
				if err != nil {
					return 0, errors.Wrapf(err, "in %s", f.name)
				}
				vals[v] = r
			case Call:
				callArgs := make([]int32, len(d.Operands))
				for i, a := range d.Operands {
					callArgs[i] = eval(a)
				}
				r, err := m.call(d.Callee, callArgs, depth+1)
				if err != nil {
					return 0, err
				}
				vals[v] = r
			case Jump:
				next = d.Targets[0]
			case Branch:
				if eval(d.Operands[0]) != 0 {
					next = d.Targets[0]
				} else {
					next = d.Targets[1]
				}
			case Return:
				if len(d.Operands) == 0 {
					return 0, nil
				}
				return eval(d.Operands[0]), nil
			}
		}
		if next == NoBlock {
			return 0, errors.Wrapf(ErrFellThrough, "%s in %s", f.blocks[bb].Name, f.name)
		}
		bb = next
	}
}

// evalBinary applies op with RV32IM semantics: shifts use the low five bits
// of the amount, MinInt32 / -1 wraps.
func evalBinary(op BinaryOp, l, r int32) (int32, error) {
	b2i := func(b bool) int32 {
		if b {
			return 1
		}
		return 0
	}
	switch op {
	case NotEq:
		return b2i(l != r), nil
	case Eq:
		return b2i(l == r), nil
	case Gt:
		return b2i(l > r), nil
	case Lt:
		return b2i(l < r), nil
	case Ge:
		return b2i(l >= r), nil
	case Le:
		return b2i(l <= r), nil
	case Add:
		return l + r, nil
	case Sub:
		return l - r, nil
	case Mul:
		return l * r, nil
	case Div:
		if r == 0 {
			return 0, ErrDivisionByZero
		}
		return l / r, nil
	case Mod:
		if r == 0 {
			return 0, ErrDivisionByZero
		}
		return l % r, nil
	case And:
		return l & r, nil
	case Or:
		return l | r, nil
	case Xor:
		return l ^ r, nil
	case Shl:
		return l << (uint32(r) & 31), nil
	case Shr:
		return int32(uint32(l) >> (uint32(r) & 31)), nil
	case Sar:
		return l >> (uint32(r) & 31), nil
	}
	return 0, errors.Errorf("unknown binary operator %s", op)
}

// ---------------------------------------------------------------------------
// SysY runtime
// ---------------------------------------------------------------------------

// Runtime implements the SysY library functions over in-memory buffers.
// getint and getch consume Input in order and return -1 once it is empty.
type Runtime struct {
	Input  []int32
	Output strings.Builder
}

// Externs returns the library functions bound to r.
func (r *Runtime) Externs() map[string]Extern {
	read := func([]int32) (int32, error) {
		if len(r.Input) == 0 {
			return -1, nil
		}
		v := r.Input[0]
		r.Input = r.Input[1:]
		return v, nil
	}
	return map[string]Extern{
		"getint": read,
		"getch":  read,
		"putint": func(args []int32) (int32, error) {
			r.Output.WriteString(strconv.Itoa(int(args[0])))
			return 0, nil
		},
		"putch": func(args []int32) (int32, error) {
			r.Output.WriteByte(byte(args[0]))
			return 0, nil
		},
	}
}
