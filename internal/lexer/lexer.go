package lexer

import (
	"fmt"
	"strings"
)

// Token kinds.
const (
	KEYWORD    = "KEYWORD"
	IDENTIFIER = "IDENTIFIER"
	NUMBER     = "NUMBER"
	SYMBOL     = "SYMBOL"
)

// keywords maps the reserved words of the source language.
var keywords = map[string]bool{
	"int":    true,
	"return": true,
	"if":     true,
	"else":   true,
	"while":  true,
}

// symbols lists every recognised symbol, longest first so that two-character
// symbols win over their single-character prefixes.
var symbols = []string{
	"==", "!=", "<=", ">=",
	"=", ";", "(", ")", "{", "}", "+", "-", "*", "/", "<", ">",
}

// Token is a single lexical unit: its kind and the exact source substring it
// was derived from. Pos is the zero-based byte offset of the lexeme's first
// character.
type Token struct {
	Kind   string
	Lexeme string
	Pos    int
}

func (t Token) String() string {
	return fmt.Sprintf("(%s, %q)", t.Kind, t.Lexeme)
}

// LexError reports a character that matches no token rule. Tokenization halts
// at the first such character; no partial token stream is returned.
type LexError struct {
	Pos  int
	Char byte
}

func (e *LexError) Error() string {
	return fmt.Sprintf("unknown character %q at offset %d", e.Char, e.Pos)
}

// Tokenize scans source in a single left-to-right pass and returns its token
// sequence in source order.
func Tokenize(source string) ([]Token, error) {
	var tokens []Token
	i := 0

	for i < len(source) {
		ch := source[i]

		if isWhitespace(ch) {
			i++
			continue
		}

		// Identifier or keyword: a letter followed by letters, digits, underscores.
		if isLetter(ch) {
			start := i
			for i < len(source) && isIdentPart(source[i]) {
				i++
			}
			word := source[start:i]
			kind := IDENTIFIER
			if keywords[word] {
				kind = KEYWORD
			}
			tokens = append(tokens, Token{Kind: kind, Lexeme: word, Pos: start})
			continue
		}

		// Number: maximal run of decimal digits. No sign, point, or exponent;
		// negative values only arise through subtraction in expressions.
		if isDigit(ch) {
			start := i
			for i < len(source) && isDigit(source[i]) {
				i++
			}
			tokens = append(tokens, Token{Kind: NUMBER, Lexeme: source[start:i], Pos: start})
			continue
		}

		if sym, ok := matchSymbol(source, i); ok {
			tokens = append(tokens, Token{Kind: SYMBOL, Lexeme: sym, Pos: i})
			i += len(sym)
			continue
		}

		return nil, &LexError{Pos: i, Char: ch}
	}

	return tokens, nil
}

// matchSymbol returns the longest registered symbol starting at source[i].
func matchSymbol(source string, i int) (string, bool) {
	for _, sym := range symbols {
		if strings.HasPrefix(source[i:], sym) {
			return sym, true
		}
	}
	return "", false
}

func isWhitespace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isLetter(ch) || isDigit(ch) || ch == '_'
}
