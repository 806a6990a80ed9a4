package lexer

import "fmt"

const (
	// Special
	EOF     = "EOF"
	ILLEGAL = "ILLEGAL"

	// Literals
	IDENT = "IDENT" // identifiers: main, x, _tmp1, …
	INT   = "INT"   // integer literals: 0, 42, 017, 0xFF, …

	// Keywords
	KW_INT = "KW_INT"
	VOID   = "VOID"
	CONST  = "CONST"
	IF     = "IF"
	ELSE   = "ELSE"
	WHILE  = "WHILE"
	RETURN = "RETURN"

	// Delimiters
	LPAREN    = "LPAREN"    // (
	RPAREN    = "RPAREN"    // )
	LBRACE    = "LBRACE"    // {
	RBRACE    = "RBRACE"    // }
	SEMICOLON = "SEMICOLON" // ;
	COMMA     = "COMMA"     // ,

	// Operators
	ASSIGN  = "ASSIGN"  // =
	PLUS    = "PLUS"    // +
	MINUS   = "MINUS"   // -
	STAR    = "STAR"    // *
	SLASH   = "SLASH"   // /
	PERCENT = "PERCENT" // %
	BANG    = "BANG"    // !

	// Comparison operators
	EQ  = "EQ"  // ==
	NEQ = "NEQ" // !=
	LT  = "LT"  // <
	GT  = "GT"  // >
	LTE = "LTE" // <=
	GTE = "GTE" // >=

	// Logical operators
	AND = "AND" // &&
	OR  = "OR"  // ||
)

// keywords maps reserved words to their token types.
var keywords = map[string]string{
	"int":    KW_INT,
	"void":   VOID,
	"const":  CONST,
	"if":     IF,
	"else":   ELSE,
	"while":  WHILE,
	"return": RETURN,
}

// Token represents a single lexical token produced by the lexer.
type Token struct {
	Type   string
	Value  string
	Line   int
	Column int
}

// LexError represents a recoverable error encountered during lexing.
type LexError struct {
	Message string
	Lexeme  string
	Line    int
	Column  int
}

func (e LexError) Error() string {
	return fmt.Sprintf("line %d, col %d: %s (got %q)", e.Line, e.Column, e.Message, e.Lexeme)
}

// Lex splits the given SysY source into tokens. Recoverable problems (unknown
// characters, an unterminated block comment) are collected in the returned
// LexError slice and lexing carries on; the token slice always ends in EOF.
func Lex(input string) ([]Token, []LexError) {
	var tokens []Token
	var errors []LexError
	line, col, i := 1, 1, 0

	for i < len(input) {
		ch := input[i]
		if isWhitespace(ch) {
			if ch == '\n' {
				line++
				col = 1
			} else if ch != '\r' {
				col++
			}
			i++
			continue
		}

		// Ignore comments
		if ch == '/' && i+1 < len(input) {
			// Single-line comment: // …
			if input[i+1] == '/' {
				i, col = skipLineComment(input, i, col)
				continue
			}
			// Multi-line comment: /* … */
			if input[i+1] == '*' {
				var err *LexError
				i, line, col, err = skipBlockComment(input, i, line, col)
				if err != nil {
					errors = append(errors, *err)
				}
				continue
			}
		}

		// Integers
		if isDigit(ch) {
			tok, newI, newCol := lexNumber(input, i, line, col)
			tokens = append(tokens, tok)
			i, col = newI, newCol
			continue
		}

		// Keywords and identifiers
		if isIdentStart(ch) {
			tok, newI, newCol := lexIdentifier(input, i, line, col)
			tokens = append(tokens, tok)
			i, col = newI, newCol
			continue
		}

		// Multi-character and single-character operators / delimiters
		if tok, width := lexOperatorOrDelimiter(input, i, line, col); width > 0 {
			tokens = append(tokens, tok)
			i += width
			col += width
			continue
		}

		// Unknown characters
		errors = append(errors, LexError{
			Message: "unexpected character",
			Lexeme:  string(ch),
			Line:    line,
			Column:  col,
		})
		i++
		col++
	}

	tokens = append(tokens, Token{EOF, "", line, col})
	return tokens, errors
}

func skipLineComment(input string, i int, col int) (int, int) {
	for i < len(input) && input[i] != '\n' {
		i++
		col++
	}
	return i, col
}

func skipBlockComment(input string, i int, line int, col int) (int, int, int, *LexError) {
	startLine, startCol := line, col
	// Skip the opening /*
	i += 2
	col += 2

	for i < len(input) {
		if input[i] == '*' && i+1 < len(input) && input[i+1] == '/' {
			i += 2
			col += 2
			return i, line, col, nil
		}
		if input[i] == '\n' {
			line++
			col = 1
		} else if input[i] != '\r' {
			col++
		}
		i++
	}

	return i, line, col, &LexError{
		Message: "unterminated block comment",
		Lexeme:  "/*",
		Line:    startLine,
		Column:  startCol,
	}
}

// lexNumber scans an integer literal: decimal (42), octal (017) or
// hexadecimal (0xFF). Range checking is left to the parser, which knows
// whether the literal is being negated.
func lexNumber(input string, start int, line int, col int) (Token, int, int) {
	i := start
	startCol := col

	// Hexadecimal: 0x… / 0X…
	if input[i] == '0' && i+1 < len(input) && (input[i+1] == 'x' || input[i+1] == 'X') {
		i += 2
		col += 2
		for i < len(input) && isHexDigit(input[i]) {
			i++
			col++
		}
		return Token{INT, input[start:i], line, startCol}, i, col
	}

	for i < len(input) && isDigit(input[i]) {
		i++
		col++
	}
	return Token{INT, input[start:i], line, startCol}, i, col
}

func lexIdentifier(input string, start int, line int, col int) (Token, int, int) {
	i := start
	startCol := col
	for i < len(input) && isIdentPart(input[i]) {
		i++
		col++
	}
	word := input[start:i]
	tokType := IDENT
	if kw, ok := keywords[word]; ok {
		tokType = kw
	}
	return Token{tokType, word, line, startCol}, i, col
}

// lexOperatorOrDelimiter tries to match a 1- or 2-character operator or
// delimiter starting at input[i]. Returns the token and the number of
// characters consumed (0 if nothing matched).
func lexOperatorOrDelimiter(input string, i int, line int, col int) (Token, int) {
	ch := input[i]
	var next byte
	if i+1 < len(input) {
		next = input[i+1]
	}

	// Two-character tokens
	switch ch {
	case '=':
		if next == '=' {
			return Token{EQ, "==", line, col}, 2
		}
		return Token{ASSIGN, "=", line, col}, 1
	case '!':
		if next == '=' {
			return Token{NEQ, "!=", line, col}, 2
		}
		return Token{BANG, "!", line, col}, 1
	case '<':
		if next == '=' {
			return Token{LTE, "<=", line, col}, 2
		}
		return Token{LT, "<", line, col}, 1
	case '>':
		if next == '=' {
			return Token{GTE, ">=", line, col}, 2
		}
		return Token{GT, ">", line, col}, 1
	case '&':
		if next == '&' {
			return Token{AND, "&&", line, col}, 2
		}
		// A lone '&' is not an operator in SysY.
		return Token{}, 0
	case '|':
		if next == '|' {
			return Token{OR, "||", line, col}, 2
		}
		return Token{}, 0
	}

	// Single-character tokens
	switch ch {
	case '(':
		return Token{LPAREN, "(", line, col}, 1
	case ')':
		return Token{RPAREN, ")", line, col}, 1
	case '{':
		return Token{LBRACE, "{", line, col}, 1
	case '}':
		return Token{RBRACE, "}", line, col}, 1
	case ';':
		return Token{SEMICOLON, ";", line, col}, 1
	case ',':
		return Token{COMMA, ",", line, col}, 1
	case '+':
		return Token{PLUS, "+", line, col}, 1
	case '-':
		return Token{MINUS, "-", line, col}, 1
	case '*':
		return Token{STAR, "*", line, col}, 1
	case '/':
		return Token{SLASH, "/", line, col}, 1
	case '%':
		return Token{PERCENT, "%", line, col}, 1
	}

	return Token{}, 0
}

func isWhitespace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentStart(ch byte) bool {
	return isLetter(ch) || ch == '_'
}

func isIdentPart(ch byte) bool {
	return isLetter(ch) || isDigit(ch) || ch == '_'
}
