// Package compiler wires the three pipeline stages together: lexing, parsing,
// and code generation. Each stage consumes the previous stage's output in
// full; the first failure aborts the pipe and nothing partial is returned.
package compiler

import (
	"github.com/Kevin20041008/EasyCompiler/internal/codegen"
	"github.com/Kevin20041008/EasyCompiler/internal/lexer"
	"github.com/Kevin20041008/EasyCompiler/internal/parser"
)

// Compile translates source text into 32-bit x86 assembly text.
func Compile(source string, opts codegen.Options) (string, error) {
	tokens, err := lexer.Tokenize(source)
	if err != nil {
		return "", err
	}
	prog, err := parser.Parse(tokens)
	if err != nil {
		return "", err
	}
	return codegen.New(opts).Generate(prog)
}
