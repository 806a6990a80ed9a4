package parser

import (
	"fmt"
	"math"
	"strconv"

	"kira/internal/ast"
	"kira/internal/lexer"
)

// ---------------------------------------------------------------------------
// ParseError
// ---------------------------------------------------------------------------

// ParseError represents a single error found during parsing.
type ParseError struct {
	Message string
	Line    int
	Column  int
}

func (e ParseError) Error() string {
	return fmt.Sprintf("line %d, col %d: %s", e.Line, e.Column, e.Message)
}

// ---------------------------------------------------------------------------
// Parser
// ---------------------------------------------------------------------------

// Parser holds the state for a single parse pass over a token stream.
type Parser struct {
	tokens []lexer.Token
	pos    int
	errors []ParseError
}

// Parse is the main entry point. It takes a token slice (as produced by
// lexer.Lex) and returns a compilation unit plus any parse errors collected.
// The unit is only meaningful when no errors were returned.
func Parse(tokens []lexer.Token) (*ast.CompUnit, []ParseError) {
	p := &Parser{tokens: tokens, pos: 0}
	unit := p.parseCompUnit()
	return unit, p.errors
}

// ---------------------------------------------------------------------------
// Token helpers
// ---------------------------------------------------------------------------

// peek returns the current token without consuming it.
func (p *Parser) peek() lexer.Token {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return lexer.Token{Type: lexer.EOF}
}

// peekAt returns the token at a given offset from the current position.
func (p *Parser) peekAt(offset int) lexer.Token {
	idx := p.pos + offset
	if idx >= 0 && idx < len(p.tokens) {
		return p.tokens[idx]
	}
	return lexer.Token{Type: lexer.EOF}
}

// advance consumes and returns the current token.
func (p *Parser) advance() lexer.Token {
	tok := p.peek()
	if tok.Type != lexer.EOF {
		p.pos++
	}
	return tok
}

// previous returns the most recently consumed token.
func (p *Parser) previous() lexer.Token {
	if p.pos > 0 {
		return p.tokens[p.pos-1]
	}
	return lexer.Token{Type: lexer.EOF}
}

// check returns true if the current token has the given type.
func (p *Parser) check(typ string) bool {
	return p.peek().Type == typ
}

// match consumes the current token if it matches any of the given types.
func (p *Parser) match(types ...string) bool {
	for _, t := range types {
		if p.check(t) {
			p.advance()
			return true
		}
	}
	return false
}

// expect consumes the current token if it matches typ; otherwise it records
// an error and returns the current token WITHOUT advancing.
func (p *Parser) expect(typ string, msg string) lexer.Token {
	if p.check(typ) {
		return p.advance()
	}
	tok := p.peek()
	p.addError(tok, fmt.Sprintf("%s (got %s %q)", msg, tok.Type, tok.Value))
	return tok
}

// addError appends a ParseError at the given token's location.
func (p *Parser) addError(tok lexer.Token, msg string) {
	p.errors = append(p.errors, ParseError{
		Message: msg,
		Line:    tok.Line,
		Column:  tok.Column,
	})
}

// synchronize advances past tokens until it reaches a likely statement
// boundary, allowing the parser to recover from an error and keep going.
func (p *Parser) synchronize() {
	p.advance()
	for !p.check(lexer.EOF) {
		// If we just passed a semicolon, we're at a fresh statement.
		if p.previous().Type == lexer.SEMICOLON {
			return
		}
		// If the current token starts a new construct, stop here.
		switch p.peek().Type {
		case lexer.KW_INT, lexer.VOID, lexer.CONST, lexer.IF, lexer.WHILE,
			lexer.RETURN, lexer.RBRACE:
			return
		}
		p.advance()
	}
}

// position converts a token into an ast.Position.
func (p *Parser) position(tok lexer.Token) ast.Position {
	return ast.Position{Line: tok.Line, Column: tok.Column}
}

// =========================================================================
// Top-level parsing
// =========================================================================

func (p *Parser) parseCompUnit() *ast.CompUnit {
	unit := &ast.CompUnit{Pos: p.position(p.peek())}

	for !p.check(lexer.EOF) {
		if p.check(lexer.KW_INT) || p.check(lexer.VOID) {
			fn := p.parseFuncDef()
			if fn != nil {
				unit.Funcs = append(unit.Funcs, fn)
			}
		} else {
			p.addError(p.peek(), fmt.Sprintf("expected function definition, got %s", p.peek().Type))
			p.synchronize()
		}
	}

	return unit
}

func (p *Parser) parseFuncDef() *ast.FuncDef {
	tok := p.advance() // consume int / void
	typ := ast.FuncInt
	if tok.Type == lexer.VOID {
		typ = ast.FuncVoid
	}
	name := p.expect(lexer.IDENT, "expected function name")
	if name.Type != lexer.IDENT {
		p.synchronize()
		return nil
	}
	p.expect(lexer.LPAREN, "expected '(' after function name")

	params := p.parseParamList()

	p.expect(lexer.RPAREN, "expected ')' after parameters")
	body := p.parseBlock()

	return &ast.FuncDef{
		Type:   typ,
		Ident:  name.Value,
		Params: params,
		Body:   body,
		Pos:    p.position(tok),
	}
}

func (p *Parser) parseParamList() []*ast.FuncFParam {
	var params []*ast.FuncFParam

	if p.check(lexer.RPAREN) {
		return params
	}

	params = append(params, p.parseParam())
	for p.match(lexer.COMMA) {
		params = append(params, p.parseParam())
	}
	return params
}

func (p *Parser) parseParam() *ast.FuncFParam {
	p.expect(lexer.KW_INT, "expected parameter type 'int'")
	name := p.expect(lexer.IDENT, "expected parameter name")
	return &ast.FuncFParam{Ident: name.Value, Pos: p.position(name)}
}

// =========================================================================
// Block, declaration and statement parsing
// =========================================================================

func (p *Parser) parseBlock() *ast.Block {
	tok := p.expect(lexer.LBRACE, "expected '{'")
	block := &ast.Block{Pos: p.position(tok)}

	for !p.check(lexer.RBRACE) && !p.check(lexer.EOF) {
		startPos := p.pos
		item := p.parseBlockItem()
		if item != nil {
			block.Items = append(block.Items, item)
		}
		// Safety: if no tokens were consumed, skip one to avoid an infinite loop.
		if p.pos == startPos {
			p.advance()
		}
	}

	p.expect(lexer.RBRACE, "expected '}'")
	return block
}

func (p *Parser) parseBlockItem() ast.BlockItem {
	switch p.peek().Type {
	case lexer.CONST:
		return p.parseConstDecl()
	case lexer.KW_INT:
		return p.parseVarDecl()
	default:
		if stmt := p.parseStatement(); stmt != nil {
			return stmt
		}
		return nil
	}
}

// ---- Declarations ----

func (p *Parser) parseConstDecl() *ast.ConstDecl {
	tok := p.advance() // consume CONST
	p.expect(lexer.KW_INT, "expected 'int' after 'const'")
	decl := &ast.ConstDecl{Pos: p.position(tok)}
	for {
		name := p.expect(lexer.IDENT, "expected constant name")
		p.expect(lexer.ASSIGN, "expected '=' in const declaration")
		init := p.parseExp()
		decl.Defs = append(decl.Defs, &ast.ConstDef{
			Ident: name.Value,
			Init:  init,
			Pos:   p.position(name),
		})
		if !p.match(lexer.COMMA) {
			break
		}
	}
	p.expect(lexer.SEMICOLON, "expected ';' after const declaration")
	return decl
}

func (p *Parser) parseVarDecl() *ast.VarDecl {
	tok := p.advance() // consume INT
	decl := &ast.VarDecl{Pos: p.position(tok)}
	for {
		name := p.expect(lexer.IDENT, "expected variable name")
		def := &ast.VarDef{Ident: name.Value, Pos: p.position(name)}
		if p.match(lexer.ASSIGN) {
			def.Init = p.parseExp()
		}
		decl.Defs = append(decl.Defs, def)
		if !p.match(lexer.COMMA) {
			break
		}
	}
	p.expect(lexer.SEMICOLON, "expected ';' after variable declaration")
	return decl
}

// ---- Statements ----

func (p *Parser) parseStatement() ast.Stmt {
	tok := p.peek()
	switch tok.Type {
	case lexer.LBRACE:
		return p.parseBlock()
	case lexer.IF:
		return p.parseIfStmt()
	case lexer.WHILE:
		return p.parseWhileStmt()
	case lexer.RETURN:
		return p.parseReturnStmt()
	case lexer.SEMICOLON:
		p.advance()
		return &ast.ExpStmt{Pos: p.position(tok)}
	case lexer.CONST, lexer.KW_INT:
		// Declarations are block items, not statements: "if (c) int x;" is
		// rejected here.
		p.addError(tok, "declaration is not allowed here")
		p.synchronize()
		return nil
	}

	if tok.Type == lexer.IDENT && p.peekAt(1).Type == lexer.ASSIGN {
		return p.parseAssignStmt()
	}
	return p.parseExpStmt()
}

func (p *Parser) parseAssignStmt() *ast.AssignStmt {
	name := p.advance() // consume IDENT
	p.advance()         // consume =
	value := p.parseExp()
	p.expect(lexer.SEMICOLON, "expected ';' after assignment")
	return &ast.AssignStmt{
		Target: &ast.LVal{Ident: name.Value, Pos: p.position(name)},
		Value:  value,
		Pos:    p.position(name),
	}
}

func (p *Parser) parseExpStmt() ast.Stmt {
	tok := p.peek()
	errCount := len(p.errors)
	exp := p.parseExp()
	if len(p.errors) > errCount {
		if !p.check(lexer.RBRACE) {
			p.synchronize()
		}
		return nil
	}
	p.expect(lexer.SEMICOLON, "expected ';' after expression statement")
	return &ast.ExpStmt{Exp: exp, Pos: p.position(tok)}
}

// parseBody parses the statement controlled by if/else/while. A statement
// that is not already a block is wrapped into a one-item Block.
func (p *Parser) parseBody() *ast.Block {
	tok := p.peek()
	stmt := p.parseStatement()
	if stmt == nil {
		return &ast.Block{Pos: p.position(tok)}
	}
	if block, ok := stmt.(*ast.Block); ok {
		return block
	}
	return &ast.Block{Items: []ast.BlockItem{stmt}, Pos: stmt.GetPos()}
}

// ---- If ----

func (p *Parser) parseIfStmt() *ast.IfStmt {
	tok := p.advance() // consume IF
	p.expect(lexer.LPAREN, "expected '(' after 'if'")
	cond := p.parseExp()
	p.expect(lexer.RPAREN, "expected ')' after if condition")
	then := p.parseBody()

	// A dangling else binds to the nearest if.
	var elseBlock *ast.Block
	if p.match(lexer.ELSE) {
		elseBlock = p.parseBody()
	}

	return &ast.IfStmt{
		Cond: cond,
		Then: then,
		Else: elseBlock,
		Pos:  p.position(tok),
	}
}

// ---- While ----

func (p *Parser) parseWhileStmt() *ast.WhileStmt {
	tok := p.advance() // consume WHILE
	p.expect(lexer.LPAREN, "expected '(' after 'while'")
	cond := p.parseExp()
	p.expect(lexer.RPAREN, "expected ')' after while condition")
	body := p.parseBody()
	return &ast.WhileStmt{Cond: cond, Body: body, Pos: p.position(tok)}
}

// ---- Return ----

func (p *Parser) parseReturnStmt() *ast.ReturnStmt {
	tok := p.advance() // consume RETURN
	var value ast.Exp
	if !p.check(lexer.SEMICOLON) {
		value = p.parseExp()
	}
	p.expect(lexer.SEMICOLON, "expected ';' after return statement")
	return &ast.ReturnStmt{Value: value, Pos: p.position(tok)}
}

// =========================================================================
// Expression parser
//
// One function per precedence level, loosest first. Each binary level loops
// so that the tree it builds is left-associative.
// =========================================================================

// parseExp is the entry point for expression parsing.
func (p *Parser) parseExp() ast.Exp {
	return p.parseLOrExp()
}

func (p *Parser) parseLOrExp() ast.LOrExp {
	var left ast.LOrExp = p.parseLAndExp()
	for p.check(lexer.OR) {
		tok := p.advance()
		right := p.parseLAndExp()
		left = &ast.LOrBinary{Left: left, Right: right, Pos: p.position(tok)}
	}
	return left
}

func (p *Parser) parseLAndExp() ast.LAndExp {
	var left ast.LAndExp = p.parseEqExp()
	for p.check(lexer.AND) {
		tok := p.advance()
		right := p.parseEqExp()
		left = &ast.LAndBinary{Left: left, Right: right, Pos: p.position(tok)}
	}
	return left
}

func (p *Parser) parseEqExp() ast.EqExp {
	var left ast.EqExp = p.parseRelExp()
	for p.check(lexer.EQ) || p.check(lexer.NEQ) {
		tok := p.advance()
		right := p.parseRelExp()
		left = &ast.EqBinary{Op: tok.Value, Left: left, Right: right, Pos: p.position(tok)}
	}
	return left
}

func (p *Parser) parseRelExp() ast.RelExp {
	var left ast.RelExp = p.parseAddExp()
	for p.check(lexer.LT) || p.check(lexer.GT) || p.check(lexer.LTE) || p.check(lexer.GTE) {
		tok := p.advance()
		right := p.parseAddExp()
		left = &ast.RelBinary{Op: tok.Value, Left: left, Right: right, Pos: p.position(tok)}
	}
	return left
}

func (p *Parser) parseAddExp() ast.AddExp {
	var left ast.AddExp = p.parseMulExp()
	for p.check(lexer.PLUS) || p.check(lexer.MINUS) {
		tok := p.advance()
		right := p.parseMulExp()
		left = &ast.AddBinary{Op: tok.Value, Left: left, Right: right, Pos: p.position(tok)}
	}
	return left
}

func (p *Parser) parseMulExp() ast.MulExp {
	var left ast.MulExp = p.parseUnaryExp()
	for p.check(lexer.STAR) || p.check(lexer.SLASH) || p.check(lexer.PERCENT) {
		tok := p.advance()
		right := p.parseUnaryExp()
		left = &ast.MulBinary{Op: tok.Value, Left: left, Right: right, Pos: p.position(tok)}
	}
	return left
}

func (p *Parser) parseUnaryExp() ast.UnaryExp {
	tok := p.peek()
	switch tok.Type {
	case lexer.PLUS, lexer.MINUS, lexer.BANG:
		p.advance()
		operand := p.parseUnaryExp()
		return &ast.UnaryOp{Op: tok.Value, Operand: operand, Pos: p.position(tok)}
	case lexer.IDENT:
		if p.peekAt(1).Type == lexer.LPAREN {
			return p.parseCallExpr()
		}
	}
	return p.parsePrimaryExp()
}

// parseCallExpr: <ident> ( [args] )
func (p *Parser) parseCallExpr() ast.UnaryExp {
	name := p.advance() // consume IDENT
	p.advance()         // consume (
	var args []ast.Exp

	if !p.check(lexer.RPAREN) {
		args = append(args, p.parseExp())
		for p.match(lexer.COMMA) {
			args = append(args, p.parseExp())
		}
	}

	p.expect(lexer.RPAREN, "expected ')' after arguments")
	return &ast.CallExpr{Ident: name.Value, Args: args, Pos: p.position(name)}
}

func (p *Parser) parsePrimaryExp() ast.PrimaryExp {
	tok := p.peek()

	switch tok.Type {
	case lexer.IDENT:
		p.advance()
		return &ast.LVal{Ident: tok.Value, Pos: p.position(tok)}

	case lexer.INT:
		p.advance()
		return p.parseIntLit(tok)

	case lexer.LPAREN:
		p.advance() // consume (
		inner := p.parseExp()
		p.expect(lexer.RPAREN, "expected ')' after expression")
		return &ast.GroupExpr{Inner: inner, Pos: p.position(tok)}

	default:
		p.addError(tok, fmt.Sprintf("unexpected token %s in expression", tok.Type))
		if tok.Type != lexer.SEMICOLON && tok.Type != lexer.RBRACE {
			p.advance() // consume the bad token so we make progress
		}
		return &ast.LVal{Ident: "<error>", Pos: p.position(tok)}
	}
}

// parseIntLit converts a decimal, octal or hexadecimal literal. The value
// 2147483648 is accepted and wraps to math.MinInt32 so that -2147483648 can
// be written in source.
func (p *Parser) parseIntLit(tok lexer.Token) *ast.IntLit {
	v, err := strconv.ParseInt(tok.Value, 0, 64)
	if err != nil {
		p.addError(tok, fmt.Sprintf("invalid integer literal %q", tok.Value))
		return &ast.IntLit{Pos: p.position(tok)}
	}
	if v > math.MaxInt32+1 {
		p.addError(tok, fmt.Sprintf("integer literal %s out of range", tok.Value))
		return &ast.IntLit{Pos: p.position(tok)}
	}
	return &ast.IntLit{Value: int32(uint32(v)), Pos: p.position(tok)}
}
