package irgen

import (
	"github.com/pkg/errors"

	"kira/internal/ast"
	"kira/internal/ir"
)

var binaryOps = map[string]ir.BinaryOp{
	ast.OpEq:  ir.Eq,
	ast.OpNe:  ir.NotEq,
	ast.OpLt:  ir.Lt,
	ast.OpGt:  ir.Gt,
	ast.OpLe:  ir.Le,
	ast.OpGe:  ir.Ge,
	ast.OpAdd: ir.Add,
	ast.OpSub: ir.Sub,
	ast.OpMul: ir.Mul,
	ast.OpDiv: ir.Div,
	ast.OpMod: ir.Mod,
}

// genExp lowers an expression in value position and returns its value.
// Operands are evaluated left to right.
func (g *generator) genExp(e ast.Exp) (ir.Value, error) {
	switch e := e.(type) {
	case *ast.LOrBinary:
		return g.genLogical(ir.Or, e.Left, e.Right)
	case *ast.LAndBinary:
		return g.genLogical(ir.And, e.Left, e.Right)
	case *ast.EqBinary:
		return g.genBinary(e.Op, e.Left, e.Right, e.Pos)
	case *ast.RelBinary:
		return g.genBinary(e.Op, e.Left, e.Right, e.Pos)
	case *ast.AddBinary:
		return g.genBinary(e.Op, e.Left, e.Right, e.Pos)
	case *ast.MulBinary:
		return g.genBinary(e.Op, e.Left, e.Right, e.Pos)
	case *ast.UnaryOp:
		return g.genUnary(e)
	case *ast.CallExpr:
		return g.genCall(e, false)
	case *ast.GroupExpr:
		return g.genExp(e.Inner)
	case *ast.LVal:
		return g.genLVal(e)
	case *ast.IntLit:
		return g.ctx.Active().Function().Integer(e.Value), nil
	case nil:
		return ir.NoValue, errors.New("missing expression")
	default:
		return ir.NoValue, errors.Errorf("%s: unsupported expression %T", e.GetPos(), e)
	}
}

func (g *generator) genBinary(op string, left, right ast.Exp, pos ast.Position) (ir.Value, error) {
	irOp, ok := binaryOps[op]
	if !ok {
		return ir.NoValue, errors.Errorf("%s: unknown operator %q", pos, op)
	}
	l, err := g.genExp(left)
	if err != nil {
		return ir.NoValue, err
	}
	r, err := g.genExp(right)
	if err != nil {
		return ir.NoValue, err
	}
	info := g.ctx.Active()
	return info.Append(info.Function().Binary(irOp, l, r)), nil
}

// genLogical evaluates both operands eagerly. Each side is first normalized
// to 0 or 1 with "ne x, 0" so that the bitwise and/or yields a boolean.
func (g *generator) genLogical(op ir.BinaryOp, left, right ast.Exp) (ir.Value, error) {
	info := g.ctx.Active()
	f := info.Function()

	l, err := g.genExp(left)
	if err != nil {
		return ir.NoValue, err
	}
	ln := info.Append(f.Binary(ir.NotEq, l, f.Integer(0)))
	r, err := g.genExp(right)
	if err != nil {
		return ir.NoValue, err
	}
	rn := info.Append(f.Binary(ir.NotEq, r, f.Integer(0)))
	return info.Append(f.Binary(op, ln, rn)), nil
}

func (g *generator) genUnary(e *ast.UnaryOp) (ir.Value, error) {
	x, err := g.genExp(e.Operand)
	if err != nil {
		return ir.NoValue, err
	}
	info := g.ctx.Active()
	f := info.Function()
	zero := f.Integer(0)
	switch e.Op {
	case ast.OpAdd:
		return info.Append(f.Binary(ir.Add, zero, x)), nil
	case ast.OpSub:
		return info.Append(f.Binary(ir.Sub, zero, x)), nil
	case ast.OpNot:
		return info.Append(f.Binary(ir.Eq, x, zero)), nil
	}
	return ir.NoValue, errors.Errorf("%s: unknown unary operator %q", e.Pos, e.Op)
}

// genLVal reads a name: a load from the slot of a variable, or the bound
// value itself for a constant.
func (g *generator) genLVal(e *ast.LVal) (ir.Value, error) {
	b, err := g.ctx.Value(e.Ident)
	if err != nil {
		return ir.NoValue, errorAt(err, e.Pos, e.Ident)
	}
	if b.Const {
		return b.Value, nil
	}
	info := g.ctx.Active()
	return info.Append(info.Function().Load(b.Value)), nil
}

// genCall checks the callee and its arity, evaluates the arguments left to
// right and emits the call. Calls to void functions are only accepted when
// allowVoid is set.
func (g *generator) genCall(e *ast.CallExpr, allowVoid bool) (ir.Value, error) {
	callee, err := g.ctx.Function(e.Ident)
	if err != nil {
		return ir.NoValue, errorAt(err, e.Pos, e.Ident)
	}
	if want := len(callee.ParamTypes()); want != len(e.Args) {
		return ir.NoValue, errors.Wrapf(ErrArgumentCount, "%s: %q takes %d, got %d",
			e.Pos, e.Ident, want, len(e.Args))
	}
	if !allowVoid && callee.ReturnType() == ir.Unit {
		return ir.NoValue, errorAt(ErrUseVoidValue, e.Pos, e.Ident)
	}

	args := make([]ir.Value, len(e.Args))
	for i, arg := range e.Args {
		v, err := g.genExp(arg)
		if err != nil {
			return ir.NoValue, err
		}
		args[i] = v
	}
	info := g.ctx.Active()
	return info.Append(info.Function().Call(callee, args...)), nil
}
