package codegen

import (
	"fmt"
	"strings"

	"github.com/Kevin20041008/EasyCompiler/internal/ast"
)

// ---------------------------------------------------------------------------
// x86 (32-bit) assembly generator
//
// Walks the syntax tree and produces GAS (AT&T syntax) assembly for 32-bit
// Linux. Expressions are evaluated stack-machine style with %eax as the
// accumulator and %ecx as scratch; a return terminates the process through
// the exit syscall with the value's low byte as exit status.
// ---------------------------------------------------------------------------

// Options configures a code-generation run.
type Options struct {
	// SingleSlot reproduces the legacy behaviour where every variable shares
	// the -4(%ebp) slot, so a second declared variable aliases the first.
	// Kept for parity testing against the original demo; the default gives
	// each variable its own slot in declaration order.
	SingleSlot bool
}

// GenError reports a reference to a variable that was never declared in the
// enclosing function.
type GenError struct {
	Function string
	Name     string
}

func (e *GenError) Error() string {
	return fmt.Sprintf("undefined variable %q in function %q", e.Name, e.Function)
}

// Generator holds the state of one code-generation run: the label counter,
// the emitted-line buffer, and the current function's symbol table. State is
// private to the run; a Generator is not reusable across programs.
type Generator struct {
	opts   Options
	lines  []string
	labels int

	fn   string // name of the function being emitted
	vars *SymbolTable
}

func New(opts Options) *Generator {
	return &Generator{opts: opts}
}

// Generate emits assembly for the whole program and returns the
// newline-joined text.
func (g *Generator) Generate(prog *ast.Program) (string, error) {
	g.emit(".section .text")
	g.emit(".globl _start")
	g.emit("")

	for _, fn := range prog.Functions {
		if err := g.genFunction(fn); err != nil {
			return "", err
		}
	}

	return strings.Join(g.lines, "\n"), nil
}

// ---------------------------------------------------------------------------
// Functions
// ---------------------------------------------------------------------------

// genFunction emits one function body. "main" is labelled _start and is the
// process entry point; any other function is labelled but never called in
// this subset. The trailing epilogue is unreachable on any path that executes
// a return, which exits via syscall instead.
func (g *Generator) genFunction(fn *ast.Function) error {
	if fn.Name == "main" {
		g.emit("_start:")
	} else {
		g.emit(fn.Name + ":")
	}

	g.emit("    push %ebp")
	g.emit("    mov %esp, %ebp")

	g.fn = fn.Name
	g.vars = buildSymbolTable(fn.Body)
	if n := g.vars.Len(); n > 0 {
		g.emitf("    sub $%d, %%esp", 4*n)
	}

	for _, stmt := range fn.Body {
		if err := g.genStmt(stmt); err != nil {
			return err
		}
	}

	g.emit("    mov %ebp, %esp")
	g.emit("    pop %ebp")
	g.emit("    ret")
	g.emit("")
	return nil
}

// buildSymbolTable collects every declaration in the body, including those
// nested in if/while bodies: the language has one flat namespace per
// function, so nested declarations still claim a frame slot.
func buildSymbolTable(body []ast.Stmt) *SymbolTable {
	table := NewSymbolTable()
	collectDecls(body, table)
	return table
}

func collectDecls(stmts []ast.Stmt, table *SymbolTable) {
	for _, s := range stmts {
		switch s := s.(type) {
		case *ast.DeclStmt:
			table.Allocate(s.Name)
		case *ast.IfStmt:
			collectDecls(s.Then, table)
			collectDecls(s.Else, table)
		case *ast.WhileStmt:
			collectDecls(s.Body, table)
		}
	}
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (g *Generator) genStmt(stmt ast.Stmt) error {
	switch s := stmt.(type) {
	case *ast.DeclStmt:
		// Storage was already reserved by the frame-size computation.
		return nil

	case *ast.AssignStmt:
		if err := g.genExpr(s.Value); err != nil {
			return err
		}
		off, err := g.varOffset(s.Name)
		if err != nil {
			return err
		}
		g.emitf("    mov %%eax, %d(%%ebp)", off)
		return nil

	case *ast.ReturnStmt:
		if err := g.genExpr(s.Value); err != nil {
			return err
		}
		g.emit("    mov %eax, %ebx")
		g.emit("    mov $1, %eax")
		g.emit("    int $0x80")
		return nil

	case *ast.IfStmt:
		return g.genIf(s)

	case *ast.WhileStmt:
		return g.genWhile(s)

	default:
		return fmt.Errorf("codegen: unknown statement node %T", stmt)
	}
}

func (g *Generator) genIf(s *ast.IfStmt) error {
	if err := g.genExpr(s.Condition); err != nil {
		return err
	}
	g.emit("    cmp $0, %eax")

	if len(s.Else) > 0 {
		elseLabel := g.newLabel()
		endLabel := g.newLabel()
		g.emitf("    je %s", elseLabel)
		if err := g.genBlock(s.Then); err != nil {
			return err
		}
		g.emitf("    jmp %s", endLabel)
		g.emit(elseLabel + ":")
		if err := g.genBlock(s.Else); err != nil {
			return err
		}
		g.emit(endLabel + ":")
		return nil
	}

	endLabel := g.newLabel()
	g.emitf("    je %s", endLabel)
	if err := g.genBlock(s.Then); err != nil {
		return err
	}
	g.emit(endLabel + ":")
	return nil
}

func (g *Generator) genWhile(s *ast.WhileStmt) error {
	startLabel := g.newLabel()
	endLabel := g.newLabel()

	g.emit(startLabel + ":")
	if err := g.genExpr(s.Condition); err != nil {
		return err
	}
	g.emit("    cmp $0, %eax")
	g.emitf("    je %s", endLabel)
	if err := g.genBlock(s.Body); err != nil {
		return err
	}
	g.emitf("    jmp %s", startLabel)
	g.emit(endLabel + ":")
	return nil
}

func (g *Generator) genBlock(stmts []ast.Stmt) error {
	for _, s := range stmts {
		if err := g.genStmt(s); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// setcc mnemonics per comparison operator; the result is a one-byte boolean
// zero-extended into %eax.
var comparisonInsns = map[string]string{
	"==": "sete",
	"!=": "setne",
	"<":  "setl",
	">":  "setg",
	"<=": "setle",
	">=": "setge",
}

// genExpr evaluates the expression into %eax. Binary operators evaluate the
// right operand first and park it on the machine stack, then evaluate the
// left operand and pop the right into %ecx.
func (g *Generator) genExpr(expr ast.Expr) error {
	switch e := expr.(type) {
	case *ast.NumberLit:
		g.emitf("    mov $%d, %%eax", e.Value)
		return nil

	case *ast.VarRef:
		off, err := g.varOffset(e.Name)
		if err != nil {
			return err
		}
		g.emitf("    mov %d(%%ebp), %%eax", off)
		return nil

	case *ast.BinaryExpr:
		if err := g.genExpr(e.Right); err != nil {
			return err
		}
		g.emit("    push %eax")
		if err := g.genExpr(e.Left); err != nil {
			return err
		}
		g.emit("    pop %ecx")

		switch e.Op {
		case "+":
			g.emit("    add %ecx, %eax")
		case "-":
			g.emit("    sub %ecx, %eax")
		case "*":
			g.emit("    imul %ecx, %eax")
		case "/":
			g.emit("    cdq")
			g.emit("    idiv %ecx")
		default:
			insn, ok := comparisonInsns[e.Op]
			if !ok {
				return fmt.Errorf("codegen: unknown binary operator %q", e.Op)
			}
			g.emit("    cmp %ecx, %eax")
			g.emitf("    %s %%al", insn)
			g.emit("    movzbl %al, %eax")
		}
		return nil

	case nil:
		return fmt.Errorf("codegen: nil expression in function %q", g.fn)

	default:
		return fmt.Errorf("codegen: unknown expression node %T", expr)
	}
}

// varOffset resolves a variable to its %ebp-relative offset. In single-slot
// mode every name resolves to the one shared slot, matching the original
// demo's aliasing behaviour.
func (g *Generator) varOffset(name string) (int, error) {
	if g.opts.SingleSlot {
		return -4, nil
	}
	off, ok := g.vars.Lookup(name)
	if !ok {
		return 0, &GenError{Function: g.fn, Name: name}
	}
	return off, nil
}

// ---------------------------------------------------------------------------
// Emission helpers
// ---------------------------------------------------------------------------

// newLabel returns the next label identifier. The counter is monotonic for
// the whole generation run, so labels are unique and never reused.
func (g *Generator) newLabel() string {
	g.labels++
	return fmt.Sprintf("L%d", g.labels)
}

func (g *Generator) emit(line string) {
	g.lines = append(g.lines, line)
}

func (g *Generator) emitf(format string, args ...interface{}) {
	g.lines = append(g.lines, fmt.Sprintf(format, args...))
}
