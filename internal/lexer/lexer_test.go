package lexer

import (
	"os"
	"strings"
	"testing"
)

func tokenTypes(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Type
	}
	return out
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	tokens, errs := Lex("int void const if else while return foo _bar baz42 integer")
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	expected := []struct {
		typ string
		val string
	}{
		{KW_INT, "int"},
		{VOID, "void"},
		{CONST, "const"},
		{IF, "if"},
		{ELSE, "else"},
		{WHILE, "while"},
		{RETURN, "return"},
		{IDENT, "foo"},
		{IDENT, "_bar"},
		{IDENT, "baz42"},
		{IDENT, "integer"},
		{EOF, ""},
	}
	if len(tokens) != len(expected) {
		t.Fatalf("token count: got %d, want %d", len(tokens), len(expected))
	}
	for i, exp := range expected {
		if tokens[i].Type != exp.typ || tokens[i].Value != exp.val {
			t.Errorf("token[%d]: got (%s, %q), want (%s, %q)",
				i, tokens[i].Type, tokens[i].Value, exp.typ, exp.val)
		}
	}
}

func TestIntegerLiterals(t *testing.T) {
	tokens, errs := Lex("0 42 017 0xFF 0X1a 2147483648")
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	expected := []string{"0", "42", "017", "0xFF", "0X1a", "2147483648"}
	for i, exp := range expected {
		if tokens[i].Type != INT || tokens[i].Value != exp {
			t.Errorf("token[%d]: got (%s, %q), want (INT, %q)",
				i, tokens[i].Type, tokens[i].Value, exp)
		}
	}
}

func TestDelimitersAndOperators(t *testing.T) {
	tokens, errs := Lex("( ) { } ; , = + - * / % ! == != < > <= >= && ||")
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	expected := []string{
		LPAREN, RPAREN, LBRACE, RBRACE,
		SEMICOLON, COMMA,
		ASSIGN, PLUS, MINUS, STAR, SLASH, PERCENT, BANG,
		EQ, NEQ, LT, GT, LTE, GTE,
		AND, OR,
		EOF,
	}
	types := tokenTypes(tokens)
	if len(types) != len(expected) {
		t.Fatalf("token count: got %d, want %d; types: %v", len(types), len(expected), types)
	}
	for i, exp := range expected {
		if types[i] != exp {
			t.Errorf("token[%d]: got type %s, want %s", i, types[i], exp)
		}
	}
}

func TestComparisonOperatorAmbiguity(t *testing.T) {
	// Make sure = vs == and ! vs != are distinguished correctly
	tokens, errs := Lex("x = 1; x == 1; x != 2; x <= 3; x >= 4; !x")
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	types := tokenTypes(tokens)
	expected := []string{
		IDENT, ASSIGN, INT, SEMICOLON,
		IDENT, EQ, INT, SEMICOLON,
		IDENT, NEQ, INT, SEMICOLON,
		IDENT, LTE, INT, SEMICOLON,
		IDENT, GTE, INT, SEMICOLON,
		BANG, IDENT,
		EOF,
	}
	if len(types) != len(expected) {
		t.Fatalf("token count: got %d, want %d; types: %v", len(types), len(expected), types)
	}
	for i, exp := range expected {
		if types[i] != exp {
			t.Errorf("token[%d]: got %s, want %s (value=%q)", i, types[i], exp, tokens[i].Value)
		}
	}
}

func TestIfElseSnippet(t *testing.T) {
	input := `if (x > 0) { return 1; } else { return 0; }`
	tokens, errs := Lex(input)
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	types := tokenTypes(tokens)
	expected := []string{
		IF, LPAREN, IDENT, GT, INT, RPAREN, LBRACE,
		RETURN, INT, SEMICOLON, RBRACE,
		ELSE, LBRACE,
		RETURN, INT, SEMICOLON, RBRACE,
		EOF,
	}
	if len(types) != len(expected) {
		t.Fatalf("token count: got %d, want %d; types: %v", len(types), len(expected), types)
	}
	for i, exp := range expected {
		if types[i] != exp {
			t.Errorf("token[%d]: got %s, want %s", i, types[i], exp)
		}
	}
}

func TestWhileLoopSnippet(t *testing.T) {
	input := `while (i < 10) { i = i + 1; }`
	tokens, errs := Lex(input)
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	types := tokenTypes(tokens)
	expected := []string{
		WHILE, LPAREN, IDENT, LT, INT, RPAREN, LBRACE,
		IDENT, ASSIGN, IDENT, PLUS, INT, SEMICOLON,
		RBRACE, EOF,
	}
	if len(types) != len(expected) {
		t.Fatalf("token count: got %d, want %d; types: %v", len(types), len(expected), types)
	}
	for i, exp := range expected {
		if types[i] != exp {
			t.Errorf("token[%d]: got %s, want %s", i, types[i], exp)
		}
	}
}

func TestFunctionDefinitionSnippet(t *testing.T) {
	input := `int add(int a, int b) { const int k = 1; return a + b * k; }`
	tokens, errs := Lex(input)
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	types := tokenTypes(tokens)
	expected := []string{
		KW_INT, IDENT, LPAREN, KW_INT, IDENT, COMMA, KW_INT, IDENT, RPAREN, LBRACE,
		CONST, KW_INT, IDENT, ASSIGN, INT, SEMICOLON,
		RETURN, IDENT, PLUS, IDENT, STAR, IDENT, SEMICOLON,
		RBRACE, EOF,
	}
	if len(types) != len(expected) {
		t.Fatalf("token count: got %d, want %d; types: %v", len(types), len(expected), types)
	}
	for i, exp := range expected {
		if types[i] != exp {
			t.Errorf("token[%d]: got %s, want %s", i, types[i], exp)
		}
	}
}

func TestLogicalOperators(t *testing.T) {
	input := `if (a && b || !c) {}`
	tokens, errs := Lex(input)
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	types := tokenTypes(tokens)
	expected := []string{
		IF, LPAREN, IDENT, AND, IDENT, OR, BANG, IDENT, RPAREN,
		LBRACE, RBRACE, EOF,
	}
	if len(types) != len(expected) {
		t.Fatalf("token count: got %d, want %d; types: %v", len(types), len(expected), types)
	}
	for i, exp := range expected {
		if types[i] != exp {
			t.Errorf("token[%d]: got %s, want %s", i, types[i], exp)
		}
	}
}

func TestSingleLineComment(t *testing.T) {
	tokens, errs := Lex("int x // comment\nint y")
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	types := tokenTypes(tokens)
	expected := []string{KW_INT, IDENT, KW_INT, IDENT, EOF}
	if len(types) != len(expected) {
		t.Fatalf("token count: got %d, want %d; types: %v", len(types), len(expected), types)
	}
	if tokens[2].Line != 2 {
		t.Errorf("second 'int' should be on line 2, got line %d", tokens[2].Line)
	}
}

func TestBlockComment(t *testing.T) {
	tokens, errs := Lex("int /* skip\nthis */ x")
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	types := tokenTypes(tokens)
	expected := []string{KW_INT, IDENT, EOF}
	if len(types) != len(expected) {
		t.Fatalf("token count: got %d, want %d; types: %v", len(types), len(expected), types)
	}
	if tokens[1].Line != 2 {
		t.Errorf("'x' should be on line 2, got line %d", tokens[1].Line)
	}
}

func TestDivisionIsNotComment(t *testing.T) {
	tokens, errs := Lex("a / b")
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	types := tokenTypes(tokens)
	expected := []string{IDENT, SLASH, IDENT, EOF}
	if len(types) != len(expected) {
		t.Fatalf("token count: got %d, want %d; types: %v", len(types), len(expected), types)
	}
}

func TestLineColumnTracking(t *testing.T) {
	tokens, errs := Lex("int main_fn;")
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if tokens[0].Column != 1 {
		t.Errorf("'int' column: got %d, want 1", tokens[0].Column)
	}
	if tokens[1].Column != 5 {
		t.Errorf("'main_fn' column: got %d, want 5", tokens[1].Column)
	}
	if tokens[2].Column != 12 {
		t.Errorf("';' column: got %d, want 12", tokens[2].Column)
	}
}

func TestUnterminatedBlockComment(t *testing.T) {
	_, errs := Lex("int x;\n  /* oops")
	if len(errs) == 0 {
		t.Fatal("expected error for unterminated block comment")
	}
	if !strings.Contains(errs[0].Message, "unterminated") {
		t.Errorf("error message should mention 'unterminated', got: %s", errs[0].Message)
	}
	if errs[0].Line != 2 || errs[0].Column != 3 {
		t.Errorf("error position: got %d:%d, want 2:3", errs[0].Line, errs[0].Column)
	}
}

func TestUnknownCharacter(t *testing.T) {
	tokens, errs := Lex("int # x")
	if len(errs) == 0 {
		t.Fatal("expected error for unknown character '#'")
	}
	if errs[0].Lexeme != "#" {
		t.Errorf("error lexeme: got %q, want %q", errs[0].Lexeme, "#")
	}
	types := tokenTypes(tokens)
	if len(types) != 3 {
		t.Errorf("expected 3 tokens after recovery, got %d: %v", len(types), types)
	}
}

func TestLoneAmpersandAndPipe(t *testing.T) {
	_, errs := Lex("a & b | c")
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %d: %v", len(errs), errs)
	}
	if errs[0].Lexeme != "&" || errs[1].Lexeme != "|" {
		t.Errorf("error lexemes: got %q, %q", errs[0].Lexeme, errs[1].Lexeme)
	}
}

func TestEmptyInput(t *testing.T) {
	tokens, errs := Lex("")
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(tokens) != 1 || tokens[0].Type != EOF {
		t.Errorf("empty input should produce only EOF, got %v", tokenTypes(tokens))
	}
}

func TestMultipleErrorRecovery(t *testing.T) {
	tokens, errs := Lex("@ $\nint x")
	if len(errs) < 2 {
		t.Fatalf("expected at least 2 errors, got %d: %v", len(errs), errs)
	}
	found := false
	for _, tok := range tokens {
		if tok.Type == KW_INT {
			found = true
			break
		}
	}
	if !found {
		t.Error("expected to find KW_INT token after error recovery")
	}
}

func TestExampleFile(t *testing.T) {
	content, err := os.ReadFile("../../example.sy")
	if err != nil {
		t.Skipf("skipping integration test: %v", err)
	}
	tokens, errs := Lex(string(content))
	if len(errs) > 0 {
		for _, e := range errs {
			t.Errorf("lex error: %s", e.Error())
		}
		t.FailNow()
	}
	last := tokens[len(tokens)-1]
	if last.Type != EOF {
		t.Errorf("last token should be EOF, got %s", last.Type)
	}
	foundMain := false
	foundWhile := false
	foundReturn := false
	for _, tok := range tokens {
		if tok.Type == IDENT && tok.Value == "main" {
			foundMain = true
		}
		if tok.Type == WHILE {
			foundWhile = true
		}
		if tok.Type == RETURN {
			foundReturn = true
		}
	}
	if !foundMain {
		t.Error("did not find identifier main")
	}
	if !foundWhile {
		t.Error("did not find WHILE keyword")
	}
	if !foundReturn {
		t.Error("did not find RETURN keyword")
	}
}
