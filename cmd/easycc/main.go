package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/urfave/cli.v1"

	"github.com/Kevin20041008/EasyCompiler/internal/ast"
	"github.com/Kevin20041008/EasyCompiler/internal/codegen"
	"github.com/Kevin20041008/EasyCompiler/internal/lexer"
	"github.com/Kevin20041008/EasyCompiler/internal/parser"
)

const version = "0.1.0"

var (
	outputFlag = cli.StringFlag{
		Name:  "o",
		Usage: "write assembly to `FILE` (default: source path with .s extension)",
	}
	tokensFlag = cli.BoolFlag{
		Name:  "tokens",
		Usage: "print the token stream before parsing",
	}
	astFlag = cli.BoolFlag{
		Name:  "ast",
		Usage: "print the parsed syntax tree",
	}
	singleSlotFlag = cli.BoolFlag{
		Name:  "single-slot",
		Usage: "legacy mode: every variable shares one stack slot",
	}
	stdoutFlag = cli.BoolFlag{
		Name:  "stdout",
		Usage: "write assembly to standard output instead of a file",
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "easycc"
	app.Usage = "compile a C-like source file to 32-bit x86 assembly"
	app.Version = version
	app.Flags = []cli.Flag{outputFlag, tokensFlag, astFlag, singleSlotFlag, stdoutFlag}
	app.Action = compile

	if err := app.Run(os.Args); err != nil {
		color.Red("easycc: %v", err)
		os.Exit(1)
	}
}

func compile(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("expected exactly one source file, got %d arguments", ctx.NArg())
	}
	path := ctx.Args().First()
	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	tokens, err := lexer.Tokenize(string(source))
	if err != nil {
		return err
	}
	if ctx.Bool(tokensFlag.Name) {
		for _, tok := range tokens {
			fmt.Printf("%-12s %q\n", tok.Kind, tok.Lexeme)
		}
	}

	prog, err := parser.Parse(tokens)
	if err != nil {
		return err
	}
	if ctx.Bool(astFlag.Name) {
		fmt.Print(ast.DebugString(prog))
	}

	gen := codegen.New(codegen.Options{SingleSlot: ctx.Bool(singleSlotFlag.Name)})
	asm, err := gen.Generate(prog)
	if err != nil {
		return err
	}

	if ctx.Bool(stdoutFlag.Name) {
		fmt.Println(asm)
		return nil
	}

	out := ctx.String(outputFlag.Name)
	if out == "" {
		out = strings.TrimSuffix(path, ".c") + ".s"
	}
	return os.WriteFile(out, []byte(asm+"\n"), 0644)
}
