// Package semantic runs lint-style checks over a parsed compilation unit.
// Hard errors are reported by irgen during lowering; this pass only warns
// about code that compiles but is probably not what was meant.
package semantic

import (
	"fmt"

	"kira/internal/ast"
)

// ---------------------------------------------------------------------------
// Diagnostic severity
// ---------------------------------------------------------------------------

// Severity indicates whether a diagnostic is an error or a warning.
type Severity int

const (
	Error Severity = iota
	Warning
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	default:
		return "unknown"
	}
}

// ---------------------------------------------------------------------------
// Diagnostic
// ---------------------------------------------------------------------------

// Diagnostic represents a single message produced by the analyser.
type Diagnostic struct {
	Message  string
	Pos      ast.Position
	Severity Severity
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("line %d, col %d: %s: %s", d.Pos.Line, d.Pos.Column, d.Severity, d.Message)
}

// HasErrors returns true if any diagnostic in the slice is an error.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Symbols and scopes
// ---------------------------------------------------------------------------

// SymbolKind classifies a local name.
type SymbolKind int

const (
	SymParam SymbolKind = iota
	SymVar
	SymConst
)

var symbolKindNames = map[SymbolKind]string{
	SymParam: "parameter",
	SymVar:   "variable",
	SymConst: "constant",
}

// Symbol is a declared local name and whether it has been read.
type Symbol struct {
	Name string
	Kind SymbolKind
	Pos  ast.Position
	used bool
}

// Scope is a symbol table with an optional parent (lexical scoping).
type Scope struct {
	parent  *Scope
	symbols map[string]*Symbol
	order   []*Symbol
}

func newScope(parent *Scope) *Scope {
	return &Scope{parent: parent, symbols: make(map[string]*Symbol)}
}

// define adds a symbol to this scope (overwrites if already present).
func (s *Scope) define(sym *Symbol) {
	s.symbols[sym.Name] = sym
	s.order = append(s.order, sym)
}

// lookup traverses the scope chain (current → parent → …) to find a symbol.
func (s *Scope) lookup(name string) *Symbol {
	if sym := s.symbols[name]; sym != nil {
		return sym
	}
	if s.parent != nil {
		return s.parent.lookup(name)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Analyser
// ---------------------------------------------------------------------------

// Analyzer holds the state for a single analysis pass.
type Analyzer struct {
	diagnostics []Diagnostic
	scope       *Scope
	params      *Scope // parameter scope of the current function
}

// Analyze checks unit and returns its diagnostics in source order per
// function. The slice is empty for clean code.
func Analyze(unit *ast.CompUnit) []Diagnostic {
	a := &Analyzer{}
	for _, fn := range unit.Funcs {
		a.analyzeFunction(fn)
	}
	return a.diagnostics
}

// ---- helpers ----

func (a *Analyzer) warn(pos ast.Position, msg string) {
	a.diagnostics = append(a.diagnostics, Diagnostic{
		Message:  msg,
		Pos:      pos,
		Severity: Warning,
	})
}

func (a *Analyzer) pushScope() {
	a.scope = newScope(a.scope)
}

// popScope reports names of the closing scope that were never read.
func (a *Analyzer) popScope() {
	for _, sym := range a.scope.order {
		if !sym.used && a.scope.symbols[sym.Name] == sym {
			a.warn(sym.Pos, fmt.Sprintf("%s %q is never used", symbolKindNames[sym.Kind], sym.Name))
		}
	}
	a.scope = a.scope.parent
}

func (a *Analyzer) declare(name string, kind SymbolKind, pos ast.Position) {
	if a.scope.parent == a.params && a.params != nil {
		if p := a.params.symbols[name]; p != nil {
			a.warn(pos, fmt.Sprintf("declaration of %q shadows a parameter", name))
			p.used = true
		}
	}
	a.scope.define(&Symbol{Name: name, Kind: kind, Pos: pos})
}

func (a *Analyzer) analyzeFunction(fn *ast.FuncDef) {
	a.pushScope()
	a.params = a.scope
	for _, p := range fn.Params {
		a.scope.define(&Symbol{Name: p.Ident, Kind: SymParam, Pos: p.Pos, used: true})
	}

	a.pushScope()
	a.analyzeBlock(fn.Body)
	a.popScope()

	// %ret starts at 0, so falling off the end returns 0.
	if fn.Type == ast.FuncInt && !a.blockReturns(fn.Body) {
		a.warn(fn.Pos, fmt.Sprintf("function %q may reach its end without returning a value; it returns 0 there", fn.Ident))
	}

	a.popScope()
	a.params = nil
	a.scope = nil
}

func (a *Analyzer) analyzeBlock(block *ast.Block) {
	terminated := false
	for _, item := range block.Items {
		if terminated {
			a.warn(item.GetPos(), "unreachable code after return")
			terminated = false
		}
		a.analyzeItem(item)
		if _, ok := item.(*ast.ReturnStmt); ok {
			terminated = true
		}
	}
}

// ---------------------------------------------------------------------------
// Statement analysis
// ---------------------------------------------------------------------------

func (a *Analyzer) analyzeItem(item ast.BlockItem) {
	switch s := item.(type) {
	case *ast.ConstDecl:
		for _, def := range s.Defs {
			a.analyzeExp(def.Init)
			a.declare(def.Ident, SymConst, def.Pos)
		}
	case *ast.VarDecl:
		for _, def := range s.Defs {
			if def.Init != nil {
				a.analyzeExp(def.Init)
			}
			a.declare(def.Ident, SymVar, def.Pos)
		}
	case *ast.AssignStmt:
		// Writing a variable is not a use of it.
		a.analyzeExp(s.Value)
	case *ast.ExpStmt:
		if s.Exp != nil {
			a.analyzeExp(s.Exp)
		}
	case *ast.ReturnStmt:
		if s.Value != nil {
			a.analyzeExp(s.Value)
		}
	case *ast.IfStmt:
		a.analyzeExp(s.Cond)
		a.analyzeNested(s.Then)
		if s.Else != nil {
			a.analyzeNested(s.Else)
		}
	case *ast.WhileStmt:
		a.analyzeExp(s.Cond)
		if lit, ok := s.Cond.(*ast.IntLit); ok && lit.Value == 0 {
			a.warn(s.Pos, "loop body never runs: condition is always 0")
		}
		a.analyzeNested(s.Body)
	case *ast.Block:
		a.analyzeNested(s)
	}
}

func (a *Analyzer) analyzeNested(block *ast.Block) {
	a.pushScope()
	a.analyzeBlock(block)
	a.popScope()
}

// analyzeExp marks every name read by e as used.
func (a *Analyzer) analyzeExp(e ast.Exp) {
	switch e := e.(type) {
	case *ast.LOrBinary:
		a.analyzeExp(e.Left)
		a.analyzeExp(e.Right)
	case *ast.LAndBinary:
		a.analyzeExp(e.Left)
		a.analyzeExp(e.Right)
	case *ast.EqBinary:
		a.analyzeExp(e.Left)
		a.analyzeExp(e.Right)
	case *ast.RelBinary:
		a.analyzeExp(e.Left)
		a.analyzeExp(e.Right)
	case *ast.AddBinary:
		a.analyzeExp(e.Left)
		a.analyzeExp(e.Right)
	case *ast.MulBinary:
		a.analyzeExp(e.Left)
		a.analyzeExp(e.Right)
	case *ast.UnaryOp:
		a.analyzeExp(e.Operand)
	case *ast.CallExpr:
		for _, arg := range e.Args {
			a.analyzeExp(arg)
		}
	case *ast.GroupExpr:
		a.analyzeExp(e.Inner)
	case *ast.LVal:
		if sym := a.scope.lookup(e.Ident); sym != nil {
			sym.used = true
		}
	}
}

// ---------------------------------------------------------------------------
// Return-path analysis
// ---------------------------------------------------------------------------

// blockReturns reports whether every execution path through the block ends
// with a return statement.
func (a *Analyzer) blockReturns(block *ast.Block) bool {
	for _, item := range block.Items {
		if a.stmtReturns(item) {
			return true
		}
	}
	return false
}

// stmtReturns reports whether a statement unconditionally returns.
func (a *Analyzer) stmtReturns(item ast.BlockItem) bool {
	switch s := item.(type) {
	case *ast.ReturnStmt:
		return true
	case *ast.IfStmt:
		if s.Else == nil {
			return false // no else → not guaranteed
		}
		return a.blockReturns(s.Then) && a.blockReturns(s.Else)
	case *ast.Block:
		return a.blockReturns(s)
	}
	return false
}
