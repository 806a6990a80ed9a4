package ast

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Source position
// ---------------------------------------------------------------------------

// Position represents a line/column pair in source code (1-based).
type Position struct {
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// ---------------------------------------------------------------------------
// Interfaces
// ---------------------------------------------------------------------------

// Node is implemented by every AST node.
type Node interface {
	GetPos() Position
}

// BlockItem is the element type of a Block: either a Decl or a Stmt.
type BlockItem interface {
	Node
	blockItem()
}

// Decl is implemented by const and var declarations.
type Decl interface {
	BlockItem
	declNode()
}

// Stmt is implemented by every statement node.
type Stmt interface {
	BlockItem
	stmtNode()
}

// ---------------------------------------------------------------------------
// Compilation unit (root)
// ---------------------------------------------------------------------------

// CompUnit is a whole source file: function definitions in declaration order.
type CompUnit struct {
	Funcs []*FuncDef
	Pos   Position
}

func (n *CompUnit) GetPos() Position { return n.Pos }

// FuncType is the return kind of a function.
type FuncType int

const (
	FuncInt FuncType = iota
	FuncVoid
)

func (t FuncType) String() string {
	if t == FuncVoid {
		return "void"
	}
	return "int"
}

// FuncDef: ("int"|"void") <ident>(<params>) <block>
type FuncDef struct {
	Type   FuncType
	Ident  string
	Params []*FuncFParam
	Body   *Block
	Pos    Position
}

func (n *FuncDef) GetPos() Position { return n.Pos }

// FuncFParam is a single formal parameter. Parameters are always int.
type FuncFParam struct {
	Ident string
	Pos   Position
}

func (n *FuncFParam) GetPos() Position { return n.Pos }

// ---------------------------------------------------------------------------
// Declarations
// ---------------------------------------------------------------------------

// ConstDecl: const int <def> {, <def>};
type ConstDecl struct {
	Defs []*ConstDef
	Pos  Position
}

func (n *ConstDecl) GetPos() Position { return n.Pos }
func (n *ConstDecl) blockItem()       {}
func (n *ConstDecl) declNode()        {}

// ConstDef: <ident> = <init>
type ConstDef struct {
	Ident string
	Init  Exp
	Pos   Position
}

func (n *ConstDef) GetPos() Position { return n.Pos }

// VarDecl: int <def> {, <def>};
type VarDecl struct {
	Defs []*VarDef
	Pos  Position
}

func (n *VarDecl) GetPos() Position { return n.Pos }
func (n *VarDecl) blockItem()       {}
func (n *VarDecl) declNode()        {}

// VarDef: <ident> [= <init>]
type VarDef struct {
	Ident string
	Init  Exp // nil when uninitialised
	Pos   Position
}

func (n *VarDef) GetPos() Position { return n.Pos }

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// Block is a brace-delimited list of block items. Used as a function body and
// as a nested statement; each Block opens exactly one scope.
type Block struct {
	Items []BlockItem
	Pos   Position
}

func (n *Block) GetPos() Position { return n.Pos }
func (n *Block) blockItem()       {}
func (n *Block) stmtNode()        {}

// AssignStmt: <lval> = <value>;
type AssignStmt struct {
	Target *LVal
	Value  Exp
	Pos    Position
}

func (n *AssignStmt) GetPos() Position { return n.Pos }
func (n *AssignStmt) blockItem()       {}
func (n *AssignStmt) stmtNode()        {}

// ExpStmt wraps an expression evaluated for its effect. Exp is nil for the
// empty statement ";".
type ExpStmt struct {
	Exp Exp
	Pos Position
}

func (n *ExpStmt) GetPos() Position { return n.Pos }
func (n *ExpStmt) blockItem()       {}
func (n *ExpStmt) stmtNode()        {}

// IfStmt: if (<cond>) <then> [else <else>]
type IfStmt struct {
	Cond Exp
	Then *Block
	Else *Block // nil when there is no else branch
	Pos  Position
}

func (n *IfStmt) GetPos() Position { return n.Pos }
func (n *IfStmt) blockItem()       {}
func (n *IfStmt) stmtNode()        {}

// WhileStmt: while (<cond>) <body>
type WhileStmt struct {
	Cond Exp
	Body *Block
	Pos  Position
}

func (n *WhileStmt) GetPos() Position { return n.Pos }
func (n *WhileStmt) blockItem()       {}
func (n *WhileStmt) stmtNode()        {}

// ReturnStmt: return [<value>];
type ReturnStmt struct {
	Value Exp // nil for bare "return;"
	Pos   Position
}

func (n *ReturnStmt) GetPos() Position { return n.Pos }
func (n *ReturnStmt) blockItem()       {}
func (n *ReturnStmt) stmtNode()        {}

// ---------------------------------------------------------------------------
// Expressions
//
// The precedence ladder is a chain of interfaces, each one a subset of the
// level above it. A node of a tighter-binding level is therefore usable
// anywhere a looser level is expected, which is the "pass-through" case, and
// binary nodes can only hold a right operand one level down.
// ---------------------------------------------------------------------------

type LOrExp interface {
	Node
	lorExp()
}

type LAndExp interface {
	LOrExp
	landExp()
}

type EqExp interface {
	LAndExp
	eqExp()
}

type RelExp interface {
	EqExp
	relExp()
}

type AddExp interface {
	RelExp
	addExp()
}

type MulExp interface {
	AddExp
	mulExp()
}

type UnaryExp interface {
	MulExp
	unaryExp()
}

type PrimaryExp interface {
	UnaryExp
	primaryExp()
}

// Exp is the loosest-binding expression level.
type Exp = LOrExp

type lorNode struct{}

func (lorNode) lorExp() {}

type landNode struct{ lorNode }

func (landNode) landExp() {}

type eqNode struct{ landNode }

func (eqNode) eqExp() {}

type relNode struct{ eqNode }

func (relNode) relExp() {}

type addNode struct{ relNode }

func (addNode) addExp() {}

type mulNode struct{ addNode }

func (mulNode) mulExp() {}

type unaryNode struct{ mulNode }

func (unaryNode) unaryExp() {}

type primaryNode struct{ unaryNode }

func (primaryNode) primaryExp() {}

// Operators, as they appear in source.
const (
	OpOr  = "||"
	OpAnd = "&&"
	OpEq  = "=="
	OpNe  = "!="
	OpLt  = "<"
	OpGt  = ">"
	OpLe  = "<="
	OpGe  = ">="
	OpAdd = "+"
	OpSub = "-"
	OpMul = "*"
	OpDiv = "/"
	OpMod = "%"
	OpNot = "!"
)

// LOrBinary: <left> || <right>
type LOrBinary struct {
	lorNode
	Left  LOrExp
	Right LAndExp
	Pos   Position
}

func (n *LOrBinary) GetPos() Position { return n.Pos }

// LAndBinary: <left> && <right>
type LAndBinary struct {
	landNode
	Left  LAndExp
	Right EqExp
	Pos   Position
}

func (n *LAndBinary) GetPos() Position { return n.Pos }

// EqBinary: <left> (==|!=) <right>
type EqBinary struct {
	eqNode
	Op    string
	Left  EqExp
	Right RelExp
	Pos   Position
}

func (n *EqBinary) GetPos() Position { return n.Pos }

// RelBinary: <left> (<|>|<=|>=) <right>
type RelBinary struct {
	relNode
	Op    string
	Left  RelExp
	Right AddExp
	Pos   Position
}

func (n *RelBinary) GetPos() Position { return n.Pos }

// AddBinary: <left> (+|-) <right>
type AddBinary struct {
	addNode
	Op    string
	Left  AddExp
	Right MulExp
	Pos   Position
}

func (n *AddBinary) GetPos() Position { return n.Pos }

// MulBinary: <left> (*|/|%) <right>
type MulBinary struct {
	mulNode
	Op    string
	Left  MulExp
	Right UnaryExp
	Pos   Position
}

func (n *MulBinary) GetPos() Position { return n.Pos }

// UnaryOp: (+|-|!)<operand>
type UnaryOp struct {
	unaryNode
	Op      string
	Operand UnaryExp
	Pos     Position
}

func (n *UnaryOp) GetPos() Position { return n.Pos }

// CallExpr: <ident>(<args>)
type CallExpr struct {
	unaryNode
	Ident string
	Args  []Exp
	Pos   Position
}

func (n *CallExpr) GetPos() Position { return n.Pos }

// GroupExpr: (<expression>)
type GroupExpr struct {
	primaryNode
	Inner Exp
	Pos   Position
}

func (n *GroupExpr) GetPos() Position { return n.Pos }

// LVal is an identifier reference, resolved at lowering time.
type LVal struct {
	primaryNode
	Ident string
	Pos   Position
}

func (n *LVal) GetPos() Position { return n.Pos }

// IntLit is an integer literal, already converted to its 32-bit value.
type IntLit struct {
	primaryNode
	Value int32
	Pos   Position
}

func (n *IntLit) GetPos() Position { return n.Pos }

// ---------------------------------------------------------------------------
// Debug printer – produces a human-readable tree representation
// ---------------------------------------------------------------------------

// DebugString returns a readable multi-line representation of the AST.
func DebugString(unit *CompUnit) string {
	var b strings.Builder
	writeIndent(&b, 0)
	b.WriteString("CompUnit\n")
	for _, fn := range unit.Funcs {
		debugFuncDef(&b, fn, 1)
	}
	return b.String()
}

func writeIndent(b *strings.Builder, level int) {
	for i := 0; i < level; i++ {
		b.WriteString("  ")
	}
}

func debugFuncDef(b *strings.Builder, fn *FuncDef, level int) {
	writeIndent(b, level)
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = "int " + p.Ident
	}
	fmt.Fprintf(b, "Func %s %s(%s)\n", fn.Type, fn.Ident, strings.Join(params, ", "))
	debugBlock(b, fn.Body, level+1)
}

func debugBlock(b *strings.Builder, block *Block, level int) {
	writeIndent(b, level)
	fmt.Fprintf(b, "Block [%d items]\n", len(block.Items))
	for _, item := range block.Items {
		debugItem(b, item, level+1)
	}
}

func debugItem(b *strings.Builder, item BlockItem, level int) {
	switch s := item.(type) {
	case *ConstDecl:
		for _, d := range s.Defs {
			writeIndent(b, level)
			fmt.Fprintf(b, "ConstDef %s = %s\n", d.Ident, ExpString(d.Init))
		}
	case *VarDecl:
		for _, d := range s.Defs {
			writeIndent(b, level)
			if d.Init != nil {
				fmt.Fprintf(b, "VarDef %s = %s\n", d.Ident, ExpString(d.Init))
			} else {
				fmt.Fprintf(b, "VarDef %s\n", d.Ident)
			}
		}
	case *AssignStmt:
		writeIndent(b, level)
		fmt.Fprintf(b, "AssignStmt %s = %s\n", s.Target.Ident, ExpString(s.Value))
	case *ExpStmt:
		writeIndent(b, level)
		if s.Exp != nil {
			fmt.Fprintf(b, "ExpStmt %s\n", ExpString(s.Exp))
		} else {
			b.WriteString("ExpStmt\n")
		}
	case *Block:
		debugBlock(b, s, level)
	case *IfStmt:
		writeIndent(b, level)
		fmt.Fprintf(b, "IfStmt (%s)\n", ExpString(s.Cond))
		debugBlock(b, s.Then, level+1)
		if s.Else != nil {
			writeIndent(b, level+1)
			b.WriteString("Else:\n")
			debugBlock(b, s.Else, level+2)
		}
	case *WhileStmt:
		writeIndent(b, level)
		fmt.Fprintf(b, "WhileStmt (%s)\n", ExpString(s.Cond))
		debugBlock(b, s.Body, level+1)
	case *ReturnStmt:
		writeIndent(b, level)
		if s.Value != nil {
			fmt.Fprintf(b, "ReturnStmt %s\n", ExpString(s.Value))
		} else {
			b.WriteString("ReturnStmt\n")
		}
	default:
		writeIndent(b, level)
		b.WriteString("<unknown item>\n")
	}
}

// ExpString returns a concise one-line representation of an expression.
// Every binary node is parenthesised so the tree shape is visible.
func ExpString(e Exp) string {
	if e == nil {
		return "<nil>"
	}
	switch e := e.(type) {
	case *LOrBinary:
		return fmt.Sprintf("(%s || %s)", ExpString(e.Left), ExpString(e.Right))
	case *LAndBinary:
		return fmt.Sprintf("(%s && %s)", ExpString(e.Left), ExpString(e.Right))
	case *EqBinary:
		return fmt.Sprintf("(%s %s %s)", ExpString(e.Left), e.Op, ExpString(e.Right))
	case *RelBinary:
		return fmt.Sprintf("(%s %s %s)", ExpString(e.Left), e.Op, ExpString(e.Right))
	case *AddBinary:
		return fmt.Sprintf("(%s %s %s)", ExpString(e.Left), e.Op, ExpString(e.Right))
	case *MulBinary:
		return fmt.Sprintf("(%s %s %s)", ExpString(e.Left), e.Op, ExpString(e.Right))
	case *UnaryOp:
		return fmt.Sprintf("(%s%s)", e.Op, ExpString(e.Operand))
	case *CallExpr:
		args := make([]string, len(e.Args))
		for i, a := range e.Args {
			args[i] = ExpString(a)
		}
		return fmt.Sprintf("%s(%s)", e.Ident, strings.Join(args, ", "))
	case *GroupExpr:
		return fmt.Sprintf("(%s)", ExpString(e.Inner))
	case *LVal:
		return e.Ident
	case *IntLit:
		return fmt.Sprintf("%d", e.Value)
	default:
		return "<unknown expr>"
	}
}
