// Package llvm translates the Koopa-style IR into LLVM IR using llir/llvm.
//
// The translation is one to one: stack slots become allocas, comparisons
// become icmp followed by a zext back to i32, and conditional branches test
// their i32 condition against zero.
package llvm

import (
	"io"
	"strings"

	llir "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/pkg/errors"

	"kira/internal/ir"
	"kira/internal/logger"
)

// Translate converts prog into an LLVM module.
func Translate(prog *ir.Program) (*llir.Module, error) {
	m := llir.NewModule()
	funcs := make(map[*ir.Function]*llir.Func)

	// Declare every function first so calls can refer to later definitions.
	for _, f := range prog.Funcs() {
		params := make([]*llir.Param, len(f.ParamTypes()))
		for i := range params {
			params[i] = llir.NewParam("", types.I32)
		}
		funcs[f] = m.NewFunc(f.Symbol(), llvmType(f.ReturnType()), params...)
	}
	for _, f := range prog.Funcs() {
		if f.IsDecl() {
			continue
		}
		t := &translator{
			src:    f,
			dst:    funcs[f],
			funcs:  funcs,
			values: make(map[ir.Value]value.Value),
			blocks: make(map[ir.Block]*llir.Block),
		}
		if err := t.translate(); err != nil {
			return nil, errors.WithMessagef(err, "translating %s", f.Name())
		}
		logger.LogCodeGen("llvm", f.Symbol(), t.count)
	}
	return m, nil
}

// Emit writes prog as LLVM IR assembly.
func Emit(w io.Writer, prog *ir.Program) error {
	m, err := Translate(prog)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, m.String())
	return errors.Wrap(err, "writing LLVM IR")
}

func llvmType(t ir.Type) types.Type {
	if t == ir.Unit {
		return types.Void
	}
	return types.I32
}

// ---------------------------------------------------------------------------
// Function translation
// ---------------------------------------------------------------------------

type translator struct {
	src    *ir.Function
	dst    *llir.Func
	funcs  map[*ir.Function]*llir.Func
	values map[ir.Value]value.Value
	blocks map[ir.Block]*llir.Block
	count  int
}

var zero = constant.NewInt(types.I32, 0)

func (t *translator) translate() error {
	// Blocks are created up front so that forward branches resolve; block
	// names get a "bb." prefix to stay clear of local value names.
	for _, bb := range t.src.Layout() {
		name := strings.TrimPrefix(t.src.BlockName(bb), "%")
		t.blocks[bb] = t.dst.NewBlock("bb." + name)
	}
	for _, bb := range t.src.Layout() {
		cur := t.blocks[bb]
		for _, v := range t.src.Insts(bb) {
			if err := t.translateInst(cur, v); err != nil {
				return err
			}
			t.count++
		}
	}
	return nil
}

// slotName maps a slot name to an LLVM local name: "@x" becomes "x" and
// parameter slots such as "%x" become "x.addr".
func slotName(name string) string {
	switch {
	case strings.HasPrefix(name, "@"):
		return name[1:]
	case strings.HasPrefix(name, "%"):
		return name[1:] + ".addr"
	}
	return name
}

func (t *translator) operand(v ir.Value) (value.Value, error) {
	d := t.src.Value(v)
	switch d.Kind {
	case ir.Integer:
		return constant.NewInt(types.I32, int64(d.Int)), nil
	case ir.FuncArgRef:
		return t.dst.Params[d.Index], nil
	}
	if x, ok := t.values[v]; ok {
		return x, nil
	}
	return nil, errors.Errorf("value %d (%s) used before its definition", v, d.Kind)
}

func (t *translator) operands(vs []ir.Value) ([]value.Value, error) {
	out := make([]value.Value, len(vs))
	for i, v := range vs {
		x, err := t.operand(v)
		if err != nil {
			return nil, err
		}
		out[i] = x
	}
	return out, nil
}

func (t *translator) translateInst(cur *llir.Block, v ir.Value) error {
	d := t.src.Value(v)
	ops, err := t.operands(d.Operands)
	if err != nil {
		return err
	}
	switch d.Kind {
	case ir.Alloc:
		slot := cur.NewAlloca(types.I32)
		if d.Name != "" {
			slot.SetName(slotName(d.Name))
		}
		t.values[v] = slot
	case ir.Load:
		t.values[v] = cur.NewLoad(types.I32, ops[0])
	case ir.Store:
		cur.NewStore(ops[0], ops[1])
	case ir.Binary:
		x, err := binary(cur, d.Op, ops[0], ops[1])
		if err != nil {
			return err
		}
		t.values[v] = x
	case ir.Branch:
		cond := cur.NewICmp(enum.IPredNE, ops[0], zero)
		cur.NewCondBr(cond, t.blocks[d.Targets[0]], t.blocks[d.Targets[1]])
	case ir.Jump:
		cur.NewBr(t.blocks[d.Targets[0]])
	case ir.Call:
		call := cur.NewCall(t.funcs[d.Callee], ops...)
		if d.Type != ir.Unit {
			t.values[v] = call
		}
	case ir.Return:
		if len(ops) == 0 {
			cur.NewRet(nil)
		} else {
			cur.NewRet(ops[0])
		}
	default:
		return errors.Errorf("unexpected %s instruction", d.Kind)
	}
	return nil
}

var predicates = map[ir.BinaryOp]enum.IPred{
	ir.Eq: enum.IPredEQ, ir.NotEq: enum.IPredNE,
	ir.Lt: enum.IPredSLT, ir.Le: enum.IPredSLE,
	ir.Gt: enum.IPredSGT, ir.Ge: enum.IPredSGE,
}

func binary(cur *llir.Block, op ir.BinaryOp, x, y value.Value) (value.Value, error) {
	if pred, ok := predicates[op]; ok {
		return cur.NewZExt(cur.NewICmp(pred, x, y), types.I32), nil
	}
	switch op {
	case ir.Add:
		return cur.NewAdd(x, y), nil
	case ir.Sub:
		return cur.NewSub(x, y), nil
	case ir.Mul:
		return cur.NewMul(x, y), nil
	case ir.Div:
		return cur.NewSDiv(x, y), nil
	case ir.Mod:
		return cur.NewSRem(x, y), nil
	case ir.And:
		return cur.NewAnd(x, y), nil
	case ir.Or:
		return cur.NewOr(x, y), nil
	case ir.Xor:
		return cur.NewXor(x, y), nil
	case ir.Shl:
		return cur.NewShl(x, y), nil
	case ir.Shr:
		return cur.NewLShr(x, y), nil
	case ir.Sar:
		return cur.NewAShr(x, y), nil
	}
	return nil, errors.Errorf("unsupported binary operator %s", op)
}
