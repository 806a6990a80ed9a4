// Package irgen lowers the AST into the Koopa-style IR of package ir.
//
// Lowering is fail-fast: the first error aborts the whole compilation unit
// and no partial program is returned.
package irgen

import (
	"github.com/pkg/errors"

	"kira/internal/ast"
	"kira/internal/ir"
	"kira/internal/logger"
)

// runtimeFuncs are the SysY library functions every program may call.
var runtimeFuncs = []struct {
	name   string
	params []ir.Type
	ret    ir.Type
}{
	{"getint", nil, ir.I32},
	{"getch", nil, ir.I32},
	{"putint", []ir.Type{ir.I32}, ir.Unit},
	{"putch", []ir.Type{ir.I32}, ir.Unit},
}

// generator walks the AST of one compilation unit.
type generator struct {
	ctx *Context
}

// Generate lowers unit into a new IR program.
func Generate(unit *ast.CompUnit) (*ir.Program, error) {
	prog := ir.NewProgram()
	ctx := NewContext(prog)
	g := &generator{ctx: ctx}

	for _, rf := range runtimeFuncs {
		if err := ctx.InsertFunction(rf.name, prog.NewDecl(rf.name, rf.params, rf.ret)); err != nil {
			return nil, errors.Wrapf(err, "runtime function %q", rf.name)
		}
	}

	// Register every signature before lowering any body, so that calls may
	// refer to functions defined further down and recursion resolves.
	for _, fd := range unit.Funcs {
		params := make([]string, len(fd.Params))
		for i, p := range fd.Params {
			params[i] = p.Ident
		}
		ret := ir.I32
		if fd.Type == ast.FuncVoid {
			ret = ir.Unit
		}
		if err := ctx.InsertFunction(fd.Ident, prog.NewFunction(fd.Ident, params, ret)); err != nil {
			return nil, errorAt(err, fd.Pos, fd.Ident)
		}
	}
	if _, err := ctx.Function("main"); err != nil {
		return nil, errors.WithStack(ErrMissingEntryPoint)
	}
	logger.Debug("registered functions", "names", ctx.FunctionNames())

	for _, fd := range unit.Funcs {
		if err := g.genFuncDef(fd); err != nil {
			return nil, err
		}
	}
	return prog, nil
}

func (g *generator) genFuncDef(fd *ast.FuncDef) error {
	f, err := g.ctx.Function(fd.Ident)
	if err != nil {
		return errorAt(err, fd.Pos, fd.Ident)
	}
	logger.Debug("lowering function", "name", fd.Ident, "params", len(fd.Params))

	info := newFunctionInfo(f)
	g.ctx.SetActive(info)
	defer g.ctx.SetActive(nil)

	// Parameters live in their own scope, outside the body block, and are
	// copied into stack slots so they can be reassigned.
	g.ctx.Push()
	for i, p := range fd.Params {
		slot := info.Allocate("%" + p.Ident)
		info.Append(f.Store(f.Params()[i], slot))
		if err := g.ctx.InsertValue(p.Ident, Binding{Value: slot}); err != nil {
			return errorAt(err, p.Pos, p.Ident)
		}
	}
	info.enterBody()

	if err := g.genBlock(fd.Body); err != nil {
		return err
	}
	g.ctx.Pop()
	info.finish()

	logger.Debug("function lowered", "name", fd.Ident,
		"blocks", len(f.Layout()), "calls", info.Calls())
	return nil
}
