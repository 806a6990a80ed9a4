package irgen

import (
	"github.com/pkg/errors"

	"kira/internal/ast"
	"kira/internal/ir"
)

// ---------------------------------------------------------------------------
// Blocks and declarations
// ---------------------------------------------------------------------------

func (g *generator) genBlock(b *ast.Block) error {
	g.ctx.Push()
	for _, item := range b.Items {
		if err := g.genItem(item); err != nil {
			return err
		}
	}
	g.ctx.Pop()
	return nil
}

func (g *generator) genItem(item ast.BlockItem) error {
	switch s := item.(type) {
	case *ast.ConstDecl:
		return g.genConstDecl(s)
	case *ast.VarDecl:
		return g.genVarDecl(s)
	case *ast.AssignStmt:
		return g.genAssign(s)
	case *ast.ExpStmt:
		return g.genExpStmt(s)
	case *ast.Block:
		return g.genBlock(s)
	case *ast.IfStmt:
		return g.genIf(s)
	case *ast.WhileStmt:
		return g.genWhile(s)
	case *ast.ReturnStmt:
		return g.genReturn(s)
	default:
		return errors.Errorf("%s: unsupported block item %T", item.GetPos(), item)
	}
}

// genConstDecl binds each constant directly to the value of its initializer;
// constants get no stack slot.
func (g *generator) genConstDecl(d *ast.ConstDecl) error {
	for _, def := range d.Defs {
		v, err := g.genExp(def.Init)
		if err != nil {
			return err
		}
		if err := g.ctx.InsertValue(def.Ident, Binding{Value: v, Const: true}); err != nil {
			return errorAt(err, def.Pos, def.Ident)
		}
	}
	return nil
}

// genVarDecl allocates one slot per variable in the entry block and stores
// the initializer, if any. The initializer is evaluated before the name is
// bound, so "int x = x;" reads an outer x.
func (g *generator) genVarDecl(d *ast.VarDecl) error {
	info := g.ctx.Active()
	f := info.Function()
	for _, def := range d.Defs {
		slot := info.Allocate("@" + def.Ident)
		if def.Init != nil {
			v, err := g.genExp(def.Init)
			if err != nil {
				return err
			}
			info.Append(f.Store(v, slot))
		}
		if err := g.ctx.InsertValue(def.Ident, Binding{Value: slot}); err != nil {
			return errorAt(err, def.Pos, def.Ident)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// genAssign resolves the target before evaluating the right-hand side, so an
// invalid target fails before any instruction is emitted for the statement.
func (g *generator) genAssign(s *ast.AssignStmt) error {
	b, err := g.ctx.Value(s.Target.Ident)
	if err != nil {
		return errorAt(err, s.Target.Pos, s.Target.Ident)
	}
	if b.Const {
		return errorAt(ErrAssignToConstant, s.Target.Pos, s.Target.Ident)
	}
	v, err := g.genExp(s.Value)
	if err != nil {
		return err
	}
	info := g.ctx.Active()
	info.Append(info.Function().Store(v, b.Value))
	return nil
}

func (g *generator) genExpStmt(s *ast.ExpStmt) error {
	if s.Exp == nil {
		return nil
	}
	// A call evaluated for effect may target a void function.
	exp := s.Exp
	for {
		group, ok := exp.(*ast.GroupExpr)
		if !ok {
			break
		}
		exp = group.Inner
	}
	if call, ok := exp.(*ast.CallExpr); ok {
		_, err := g.genCall(call, true)
		return err
	}
	_, err := g.genExp(exp)
	return err
}

// genIf lowers if/else into the then/else/next diamond. Without an else
// branch the else block just jumps to next.
func (g *generator) genIf(s *ast.IfStmt) error {
	cond, err := g.genExp(s.Cond)
	if err != nil {
		return err
	}
	info := g.ctx.Active()
	f := info.Function()

	thenBB := info.NewBlock("%then")
	elseBB := info.NewBlock("%else")
	nextBB := info.NewBlock("%next")
	info.Terminate(f.Branch(cond, thenBB, elseBB))

	info.SetActive(thenBB)
	if err := g.genBlock(s.Then); err != nil {
		return err
	}
	info.JumpTo(nextBB)

	info.SetActive(elseBB)
	if s.Else != nil {
		if err := g.genBlock(s.Else); err != nil {
			return err
		}
	}
	info.JumpTo(nextBB)

	info.SetActive(nextBB)
	return nil
}

// genWhile lowers a loop into while_entry (condition), while_body and next.
// The back edge always targets while_entry.
func (g *generator) genWhile(s *ast.WhileStmt) error {
	info := g.ctx.Active()
	f := info.Function()

	entryBB := info.NewBlock("%while_entry")
	bodyBB := info.NewBlock("%while_body")
	nextBB := info.NewBlock("%next")

	info.JumpTo(entryBB)
	info.SetActive(entryBB)
	cond, err := g.genExp(s.Cond)
	if err != nil {
		return err
	}
	info.Terminate(f.Branch(cond, bodyBB, nextBB))

	info.SetActive(bodyBB)
	if err := g.genBlock(s.Body); err != nil {
		return err
	}
	info.JumpTo(entryBB)

	info.SetActive(nextBB)
	return nil
}

// genReturn stores the value into the return slot and jumps to %end, the
// function's single return point.
func (g *generator) genReturn(s *ast.ReturnStmt) error {
	info := g.ctx.Active()
	f := info.Function()
	if s.Value != nil {
		if info.RetSlot() == ir.NoValue {
			return errorAt(ErrReturnInVoidFunction, s.Pos, f.Symbol())
		}
		v, err := g.genExp(s.Value)
		if err != nil {
			return err
		}
		info.Append(f.Store(v, info.RetSlot()))
	} else if info.RetSlot() != ir.NoValue {
		return errorAt(ErrMissingReturnValue, s.Pos, f.Symbol())
	}
	info.JumpTo(info.End())
	return nil
}
