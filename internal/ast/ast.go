package ast

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Interfaces
// ---------------------------------------------------------------------------

// Stmt is implemented by every statement node.
type Stmt interface {
	stmtNode()
}

// Expr is implemented by every expression node.
type Expr interface {
	exprNode()
}

// ---------------------------------------------------------------------------
// Program (root)
// ---------------------------------------------------------------------------

// Program is the root of the syntax tree: an ordered list of function
// definitions.
type Program struct {
	Functions []*Function
}

// Function is one parameterless function definition. The function named
// "main" becomes the process entry point during code generation.
type Function struct {
	Name string
	Body []Stmt
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// DeclStmt: int <name>;
type DeclStmt struct {
	Name string
}

func (n *DeclStmt) stmtNode() {}

// AssignStmt: <name> = <value>;
type AssignStmt struct {
	Name  string
	Value Expr
}

func (n *AssignStmt) stmtNode() {}

// ReturnStmt: return <value>;
type ReturnStmt struct {
	Value Expr
}

func (n *ReturnStmt) stmtNode() {}

// IfStmt: if (<cond>) { … } [else { … }]. A missing else-branch is a nil
// Else slice. Both branches share the enclosing function's variable
// namespace; there is no block-local scoping.
type IfStmt struct {
	Condition Expr
	Then      []Stmt
	Else      []Stmt
}

func (n *IfStmt) stmtNode() {}

// WhileStmt: while (<cond>) { … }
type WhileStmt struct {
	Condition Expr
	Body      []Stmt
}

func (n *WhileStmt) stmtNode() {}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// NumberLit is a decimal integer literal.
type NumberLit struct {
	Value int
}

func (n *NumberLit) exprNode() {}

// VarRef is a plain variable reference.
type VarRef struct {
	Name string
}

func (n *VarRef) exprNode() {}

// BinaryExpr: <left> <op> <right>. Operands are exclusively owned; each tier
// of the grammar folds left-to-right, so chains lean left.
type BinaryExpr struct {
	Op    string
	Left  Expr
	Right Expr
}

func (n *BinaryExpr) exprNode() {}

// ---------------------------------------------------------------------------
// Debug printer – produces a human-readable tree representation
// ---------------------------------------------------------------------------

// DebugString returns a readable multi-line representation of the AST.
func DebugString(prog *Program) string {
	var b strings.Builder
	b.WriteString("Program\n")
	for _, fn := range prog.Functions {
		writeIndent(&b, 1)
		fmt.Fprintf(&b, "Function %s [%d statements]\n", fn.Name, len(fn.Body))
		for _, s := range fn.Body {
			debugStmt(&b, s, 2)
		}
	}
	return b.String()
}

func writeIndent(b *strings.Builder, level int) {
	for i := 0; i < level; i++ {
		b.WriteString("  ")
	}
}

func debugStmt(b *strings.Builder, s Stmt, level int) {
	switch s := s.(type) {
	case *DeclStmt:
		writeIndent(b, level)
		fmt.Fprintf(b, "Decl %s\n", s.Name)
	case *AssignStmt:
		writeIndent(b, level)
		fmt.Fprintf(b, "Assign %s = %s\n", s.Name, ExprString(s.Value))
	case *ReturnStmt:
		writeIndent(b, level)
		fmt.Fprintf(b, "Return %s\n", ExprString(s.Value))
	case *IfStmt:
		writeIndent(b, level)
		fmt.Fprintf(b, "If (%s)\n", ExprString(s.Condition))
		for _, t := range s.Then {
			debugStmt(b, t, level+1)
		}
		if len(s.Else) > 0 {
			writeIndent(b, level)
			b.WriteString("Else\n")
			for _, e := range s.Else {
				debugStmt(b, e, level+1)
			}
		}
	case *WhileStmt:
		writeIndent(b, level)
		fmt.Fprintf(b, "While (%s)\n", ExprString(s.Condition))
		for _, t := range s.Body {
			debugStmt(b, t, level+1)
		}
	default:
		writeIndent(b, level)
		b.WriteString("<unknown stmt>\n")
	}
}

// ExprString returns a concise one-line representation of an expression.
func ExprString(e Expr) string {
	if e == nil {
		return "<nil>"
	}
	switch e := e.(type) {
	case *NumberLit:
		return fmt.Sprintf("%d", e.Value)
	case *VarRef:
		return e.Name
	case *BinaryExpr:
		return fmt.Sprintf("(%s %s %s)", ExprString(e.Left), e.Op, ExprString(e.Right))
	default:
		return "<unknown expr>"
	}
}
