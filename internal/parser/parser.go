package parser

import (
	"fmt"
	"strconv"

	"github.com/Kevin20041008/EasyCompiler/internal/ast"
	"github.com/Kevin20041008/EasyCompiler/internal/lexer"
)

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

// SyntaxError reports a required token that did not match. ExpectedLexeme is
// empty when any lexeme of the expected kind would have been accepted.
type SyntaxError struct {
	ExpectedKind   string
	ExpectedLexeme string
	Actual         lexer.Token
}

func (e *SyntaxError) Error() string {
	if e.ExpectedLexeme != "" {
		return fmt.Sprintf("syntax error: expected %s %q, got %s %q",
			e.ExpectedKind, e.ExpectedLexeme, e.Actual.Kind, e.Actual.Lexeme)
	}
	return fmt.Sprintf("syntax error: expected %s, got %s %q",
		e.ExpectedKind, e.Actual.Kind, e.Actual.Lexeme)
}

// UnexpectedEOF reports that a token was required past the end of the stream.
type UnexpectedEOF struct{}

func (e *UnexpectedEOF) Error() string {
	return "unexpected end of input"
}

// UnknownStatementError reports a token that starts no statement production.
type UnknownStatementError struct {
	Token lexer.Token
}

func (e *UnknownStatementError) Error() string {
	return fmt.Sprintf("unknown statement starting with %s %q", e.Token.Kind, e.Token.Lexeme)
}

// UnexpectedTokenError reports a token that starts no primary-expression
// production.
type UnexpectedTokenError struct {
	Token lexer.Token
}

func (e *UnexpectedTokenError) Error() string {
	return fmt.Sprintf("unexpected token %s %q in expression", e.Token.Kind, e.Token.Lexeme)
}

// ---------------------------------------------------------------------------
// Parser
// ---------------------------------------------------------------------------

// Parser holds the state for a single parse pass over a token stream. It
// reads one token of lookahead, plus a second slot used only to tell an
// assignment apart from other identifier-led statements.
type Parser struct {
	tokens []lexer.Token
	pos    int
}

// Parse consumes the token stream produced by lexer.Tokenize and returns the
// program's syntax tree. Parsing is fail-fast: the first mismatch aborts with
// an error and no partial tree is returned.
func Parse(tokens []lexer.Token) (*ast.Program, error) {
	p := &Parser{tokens: tokens}
	return p.parseProgram()
}

// ---------------------------------------------------------------------------
// Token helpers
// ---------------------------------------------------------------------------

// peek returns the current token without consuming it. ok is false past the
// end of the stream.
func (p *Parser) peek() (lexer.Token, bool) {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos], true
	}
	return lexer.Token{}, false
}

// peekAt returns the token at the given offset from the current position.
func (p *Parser) peekAt(offset int) (lexer.Token, bool) {
	idx := p.pos + offset
	if idx >= 0 && idx < len(p.tokens) {
		return p.tokens[idx], true
	}
	return lexer.Token{}, false
}

// expect consumes the current token if its kind matches, and, when lexeme is
// non-empty, its lexeme too.
func (p *Parser) expect(kind, lexeme string) (lexer.Token, error) {
	tok, ok := p.peek()
	if !ok {
		return lexer.Token{}, &UnexpectedEOF{}
	}
	if tok.Kind != kind || (lexeme != "" && tok.Lexeme != lexeme) {
		return lexer.Token{}, &SyntaxError{ExpectedKind: kind, ExpectedLexeme: lexeme, Actual: tok}
	}
	p.pos++
	return tok, nil
}

// at reports whether the current token has the given kind and lexeme.
func (p *Parser) at(kind, lexeme string) bool {
	tok, ok := p.peek()
	return ok && tok.Kind == kind && tok.Lexeme == lexeme
}

// atSymbol reports whether the current token is the given symbol.
func (p *Parser) atSymbol(sym string) bool {
	return p.at(lexer.SYMBOL, sym)
}

// =========================================================================
// Top-level parsing
// =========================================================================

// parseProgram consumes function definitions while the current token is the
// 'int' keyword.
func (p *Parser) parseProgram() (*ast.Program, error) {
	prog := &ast.Program{}
	for p.at(lexer.KEYWORD, "int") {
		fn, err := p.parseFunction()
		if err != nil {
			return nil, err
		}
		prog.Functions = append(prog.Functions, fn)
	}
	return prog, nil
}

// parseFunction: 'int' IDENTIFIER '(' ')' '{' Statement* '}'
func (p *Parser) parseFunction() (*ast.Function, error) {
	if _, err := p.expect(lexer.KEYWORD, "int"); err != nil {
		return nil, err
	}
	name, err := p.expect(lexer.IDENTIFIER, "")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SYMBOL, "("); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SYMBOL, ")"); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.Function{Name: name.Lexeme, Body: body}, nil
}

// parseBlock: '{' Statement* '}'. A stream that ends before the closing brace
// fails with UnexpectedEOF.
func (p *Parser) parseBlock() ([]ast.Stmt, error) {
	if _, err := p.expect(lexer.SYMBOL, "{"); err != nil {
		return nil, err
	}
	var stmts []ast.Stmt
	for {
		if _, ok := p.peek(); !ok || p.atSymbol("}") {
			break
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	if _, err := p.expect(lexer.SYMBOL, "}"); err != nil {
		return nil, err
	}
	return stmts, nil
}

// =========================================================================
// Statement parsing
// =========================================================================

// parseStatement dispatches on the current token's kind and lexeme. An
// identifier counts as an assignment only when the following token is '='.
func (p *Parser) parseStatement() (ast.Stmt, error) {
	tok, ok := p.peek()
	if !ok {
		return nil, &UnexpectedEOF{}
	}

	switch {
	case tok.Kind == lexer.KEYWORD && tok.Lexeme == "return":
		return p.parseReturn()
	case tok.Kind == lexer.KEYWORD && tok.Lexeme == "int":
		return p.parseDeclaration()
	case tok.Kind == lexer.KEYWORD && tok.Lexeme == "if":
		return p.parseIf()
	case tok.Kind == lexer.KEYWORD && tok.Lexeme == "while":
		return p.parseWhile()
	case tok.Kind == lexer.IDENTIFIER:
		if next, ok := p.peekAt(1); ok && next.Kind == lexer.SYMBOL && next.Lexeme == "=" {
			return p.parseAssignment()
		}
	}
	return nil, &UnknownStatementError{Token: tok}
}

// parseReturn: 'return' Expression ';'
func (p *Parser) parseReturn() (ast.Stmt, error) {
	if _, err := p.expect(lexer.KEYWORD, "return"); err != nil {
		return nil, err
	}
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SYMBOL, ";"); err != nil {
		return nil, err
	}
	return &ast.ReturnStmt{Value: expr}, nil
}

// parseDeclaration: 'int' IDENTIFIER ';'
func (p *Parser) parseDeclaration() (ast.Stmt, error) {
	if _, err := p.expect(lexer.KEYWORD, "int"); err != nil {
		return nil, err
	}
	name, err := p.expect(lexer.IDENTIFIER, "")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SYMBOL, ";"); err != nil {
		return nil, err
	}
	return &ast.DeclStmt{Name: name.Lexeme}, nil
}

// parseAssignment: IDENTIFIER '=' Expression ';'
func (p *Parser) parseAssignment() (ast.Stmt, error) {
	name, err := p.expect(lexer.IDENTIFIER, "")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SYMBOL, "="); err != nil {
		return nil, err
	}
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SYMBOL, ";"); err != nil {
		return nil, err
	}
	return &ast.AssignStmt{Name: name.Lexeme, Value: expr}, nil
}

// parseIf: 'if' '(' Expression ')' '{' Statement* '}' ('else' '{' Statement* '}')?
func (p *Parser) parseIf() (ast.Stmt, error) {
	if _, err := p.expect(lexer.KEYWORD, "if"); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SYMBOL, "("); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SYMBOL, ")"); err != nil {
		return nil, err
	}
	thenBlock, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	var elseBlock []ast.Stmt
	if p.at(lexer.KEYWORD, "else") {
		p.pos++
		elseBlock, err = p.parseBlock()
		if err != nil {
			return nil, err
		}
	}

	return &ast.IfStmt{Condition: cond, Then: thenBlock, Else: elseBlock}, nil
}

// parseWhile: 'while' '(' Expression ')' '{' Statement* '}'
func (p *Parser) parseWhile() (ast.Stmt, error) {
	if _, err := p.expect(lexer.KEYWORD, "while"); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SYMBOL, "("); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SYMBOL, ")"); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.WhileStmt{Condition: cond, Body: body}, nil
}

// =========================================================================
// Expression parsing — comparison, addition, multiplication, primary tiers
// =========================================================================

// parseExpression is the entry point for expression parsing.
func (p *Parser) parseExpression() (ast.Expr, error) {
	return p.parseComparison()
}

// parseComparison: Addition (('=='|'!='|'<'|'>'|'<='|'>=') Addition)*
func (p *Parser) parseComparison() (ast.Expr, error) {
	return p.parseBinaryTier(p.parseAddition, "==", "!=", "<", ">", "<=", ">=")
}

// parseAddition: Multiplication (('+'|'-') Multiplication)*
func (p *Parser) parseAddition() (ast.Expr, error) {
	return p.parseBinaryTier(p.parseMultiplication, "+", "-")
}

// parseMultiplication: Primary (('*'|'/') Primary)*
func (p *Parser) parseMultiplication() (ast.Expr, error) {
	return p.parseBinaryTier(p.parsePrimary, "*", "/")
}

// parseBinaryTier folds a left-associative run of operators over the next
// tighter tier, producing a left-leaning BinaryExpr chain.
func (p *Parser) parseBinaryTier(operand func() (ast.Expr, error), ops ...string) (ast.Expr, error) {
	left, err := operand()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.matchOperator(ops)
		if !ok {
			break
		}
		right, err := operand()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

// matchOperator consumes the current token when it is one of the given
// symbols and returns its lexeme.
func (p *Parser) matchOperator(ops []string) (string, bool) {
	tok, ok := p.peek()
	if !ok || tok.Kind != lexer.SYMBOL {
		return "", false
	}
	for _, op := range ops {
		if tok.Lexeme == op {
			p.pos++
			return op, true
		}
	}
	return "", false
}

// parsePrimary: NUMBER | IDENTIFIER | '(' Expression ')'
func (p *Parser) parsePrimary() (ast.Expr, error) {
	tok, ok := p.peek()
	if !ok {
		return nil, &UnexpectedEOF{}
	}

	switch {
	case tok.Kind == lexer.NUMBER:
		p.pos++
		value, err := strconv.Atoi(tok.Lexeme)
		if err != nil {
			return nil, fmt.Errorf("invalid number literal %q: %w", tok.Lexeme, err)
		}
		return &ast.NumberLit{Value: value}, nil

	case tok.Kind == lexer.IDENTIFIER:
		p.pos++
		return &ast.VarRef{Name: tok.Lexeme}, nil

	case tok.Kind == lexer.SYMBOL && tok.Lexeme == "(":
		p.pos++
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.SYMBOL, ")"); err != nil {
			return nil, err
		}
		return expr, nil
	}

	return nil, &UnexpectedTokenError{Token: tok}
}
