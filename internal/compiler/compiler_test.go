package compiler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Kevin20041008/EasyCompiler/internal/codegen"
	"github.com/Kevin20041008/EasyCompiler/internal/lexer"
	"github.com/Kevin20041008/EasyCompiler/internal/parser"
)

// ---------------------------------------------------------------------------
// Tiny x86 interpreter over the generator's instruction vocabulary. Execution
// starts at _start and ends at the exit syscall; the exit status (the low
// byte of %ebx) is the observable result of a compiled program.
// ---------------------------------------------------------------------------

type machine struct {
	regs  map[string]int
	mem   map[int]int // %ebp-relative variable slots
	stack []int
	cmpL  int // last cmp: destination operand
	cmpR  int // last cmp: source operand
}

func exec(t *testing.T, asm string) int {
	t.Helper()

	lines := strings.Split(asm, "\n")
	labels := make(map[string]int)
	for i, raw := range lines {
		l := strings.TrimSpace(raw)
		if strings.HasSuffix(l, ":") {
			labels[strings.TrimSuffix(l, ":")] = i
		}
	}
	start, ok := labels["_start"]
	require.True(t, ok, "no _start label in:\n%s", asm)

	m := &machine{regs: make(map[string]int), mem: make(map[int]int)}
	pc := start
	for steps := 0; ; steps++ {
		require.Less(t, steps, 100000, "runaway execution")
		pc++
		require.Less(t, pc, len(lines), "ran off the end of the program")

		l := strings.TrimSpace(lines[pc])
		if l == "" || strings.HasPrefix(l, ".") || strings.HasSuffix(l, ":") {
			continue
		}

		mnemonic, rest, _ := strings.Cut(l, " ")
		ops := splitOperands(rest)

		switch mnemonic {
		case "mov":
			m.store(t, ops[1], m.value(t, ops[0]))
		case "push":
			m.stack = append(m.stack, m.value(t, ops[0]))
		case "pop":
			require.NotEmpty(t, m.stack, "pop from empty stack")
			m.store(t, ops[0], m.stack[len(m.stack)-1])
			m.stack = m.stack[:len(m.stack)-1]
		case "add":
			m.store(t, ops[1], m.value(t, ops[1])+m.value(t, ops[0]))
		case "sub":
			m.store(t, ops[1], m.value(t, ops[1])-m.value(t, ops[0]))
		case "imul":
			m.store(t, ops[1], m.value(t, ops[1])*m.value(t, ops[0]))
		case "cdq":
			if m.regs["eax"] < 0 {
				m.regs["edx"] = -1
			} else {
				m.regs["edx"] = 0
			}
		case "idiv":
			divisor := m.value(t, ops[0])
			require.NotZero(t, divisor, "division by zero")
			m.regs["edx"] = m.regs["eax"] % divisor
			m.regs["eax"] = m.regs["eax"] / divisor
		case "cmp":
			m.cmpR = m.value(t, ops[0])
			m.cmpL = m.value(t, ops[1])
		case "sete":
			m.setLowByte(m.cmpL == m.cmpR)
		case "setne":
			m.setLowByte(m.cmpL != m.cmpR)
		case "setl":
			m.setLowByte(m.cmpL < m.cmpR)
		case "setg":
			m.setLowByte(m.cmpL > m.cmpR)
		case "setle":
			m.setLowByte(m.cmpL <= m.cmpR)
		case "setge":
			m.setLowByte(m.cmpL >= m.cmpR)
		case "movzbl":
			m.regs["eax"] = m.regs["eax"] & 0xff
		case "jmp":
			target, ok := labels[ops[0]]
			require.True(t, ok, "unknown label %q", ops[0])
			pc = target
		case "je":
			if m.cmpL == m.cmpR {
				target, ok := labels[ops[0]]
				require.True(t, ok, "unknown label %q", ops[0])
				pc = target
			}
		case "int":
			require.Equal(t, 1, m.regs["eax"], "unexpected syscall number")
			return m.regs["ebx"] & 0xff
		case "ret":
			t.Fatalf("reached ret without an executed return statement")
		default:
			t.Fatalf("unknown instruction %q", l)
		}
	}
}

func splitOperands(rest string) []string {
	parts := strings.Split(rest, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func (m *machine) setLowByte(b bool) {
	v := 0
	if b {
		v = 1
	}
	m.regs["eax"] = (m.regs["eax"] &^ 0xff) | v
}

func (m *machine) value(t *testing.T, op string) int {
	t.Helper()
	switch {
	case strings.HasPrefix(op, "$"):
		v, err := strconv.Atoi(op[1:])
		require.NoError(t, err)
		return v
	case strings.HasPrefix(op, "%"):
		return m.regs[op[1:]]
	case strings.HasSuffix(op, "(%ebp)"):
		off, err := strconv.Atoi(strings.TrimSuffix(op, "(%ebp)"))
		require.NoError(t, err)
		return m.mem[off]
	}
	t.Fatalf("unparseable operand %q", op)
	return 0
}

func (m *machine) store(t *testing.T, op string, v int) {
	t.Helper()
	switch {
	case strings.HasPrefix(op, "%"):
		m.regs[op[1:]] = v
	case strings.HasSuffix(op, "(%ebp)"):
		off, err := strconv.Atoi(strings.TrimSuffix(op, "(%ebp)"))
		require.NoError(t, err)
		m.mem[off] = v
	default:
		t.Fatalf("unparseable store operand %q", op)
	}
}

// run compiles source and executes the result.
func run(t *testing.T, source string, opts codegen.Options) int {
	t.Helper()
	asm, err := Compile(source, opts)
	require.NoError(t, err)
	return exec(t, asm)
}

// ---------------------------------------------------------------------------
// End-to-end behaviour
// ---------------------------------------------------------------------------

func TestArithmeticAssignment(t *testing.T) {
	result := run(t, "int main() { int a; a = 10 + 5; return a; }", codegen.Options{})
	require.Equal(t, 15, result)
}

func TestPrecedence(t *testing.T) {
	require.Equal(t, 14, run(t, "int main() { return 2 + 3 * 4; }", codegen.Options{}))
	require.Equal(t, 20, run(t, "int main() { return (2 + 3) * 4; }", codegen.Options{}))
}

func TestSubtractionIsLeftAssociative(t *testing.T) {
	require.Equal(t, 4, run(t, "int main() { return 10 - 4 - 2; }", codegen.Options{}))
}

func TestDivisionTruncates(t *testing.T) {
	require.Equal(t, 3, run(t, "int main() { return 7 / 2; }", codegen.Options{}))
}

func TestNegativeResultExitsWithLowByte(t *testing.T) {
	// 0 - 3 = -3; the process exit status is the low byte, 253.
	require.Equal(t, 253, run(t, "int main() { return 0 - 3; }", codegen.Options{}))
}

func TestIfElseTakesThenBranch(t *testing.T) {
	source := `
		int main() {
			int a;
			a = 10 + 5;
			if (a == 15) { a = 20; } else { a = 30; }
			return a;
		}`
	require.Equal(t, 20, run(t, source, codegen.Options{}))
}

func TestIfElseTakesElseBranch(t *testing.T) {
	source := `
		int main() {
			int a;
			a = 10 + 5;
			if (a == 16) { a = 20; } else { a = 30; }
			return a;
		}`
	require.Equal(t, 30, run(t, source, codegen.Options{}))
}

func TestIfWithoutElseFallsThrough(t *testing.T) {
	source := "int main() { int a; a = 1; if (a > 5) { a = 99; } return a; }"
	require.Equal(t, 1, run(t, source, codegen.Options{}))
}

func TestWhileLoopSums(t *testing.T) {
	source := `
		int main() {
			int i;
			int sum;
			sum = 0;
			i = 1;
			while (i <= 5) {
				sum = sum + i;
				i = i + 1;
			}
			return sum;
		}`
	require.Equal(t, 15, run(t, source, codegen.Options{}))
}

func TestWhileLoopNeverEntered(t *testing.T) {
	source := "int main() { int i; i = 9; while (i < 5) { i = i + 1; } return i; }"
	require.Equal(t, 9, run(t, source, codegen.Options{}))
}

func TestComparisonResultsAreBooleans(t *testing.T) {
	tests := []struct {
		expr string
		want int
	}{
		{"3 == 3", 1},
		{"3 != 3", 0},
		{"2 < 3", 1},
		{"2 > 3", 0},
		{"3 <= 3", 1},
		{"4 >= 5", 0},
	}
	for _, tt := range tests {
		got := run(t, "int main() { return "+tt.expr+"; }", codegen.Options{})
		if got != tt.want {
			t.Errorf("%s: got %d, want %d", tt.expr, got, tt.want)
		}
	}
}

func TestVariablesKeepDistinctStorage(t *testing.T) {
	source := "int main() { int a; int b; a = 1; b = 2; return a; }"
	require.Equal(t, 1, run(t, source, codegen.Options{}))
}

func TestSingleSlotModeAliasesStorage(t *testing.T) {
	// Parity with the original demo: the second variable's store clobbers
	// the first, so returning a observes b's value.
	source := "int main() { int a; int b; a = 1; b = 2; return a; }"
	require.Equal(t, 2, run(t, source, codegen.Options{SingleSlot: true}))
}

// ---------------------------------------------------------------------------
// Failure propagation across stages
// ---------------------------------------------------------------------------

func TestLexErrorAborts(t *testing.T) {
	_, err := Compile("int main() { @ }", codegen.Options{})
	require.Error(t, err)

	var lexErr *lexer.LexError
	require.True(t, errors.As(err, &lexErr), "got %T: %v", err, err)
	require.Equal(t, 13, lexErr.Pos)
}

func TestParseErrorAborts(t *testing.T) {
	_, err := Compile("int main() { return 1;", codegen.Options{})
	require.Error(t, err)

	var eof *parser.UnexpectedEOF
	require.True(t, errors.As(err, &eof), "got %T: %v", err, err)
}

func TestGenErrorAborts(t *testing.T) {
	_, err := Compile("int main() { return x; }", codegen.Options{})
	require.Error(t, err)

	var genErr *codegen.GenError
	require.True(t, errors.As(err, &genErr), "got %T: %v", err, err)
}

func TestCompileIsDeterministic(t *testing.T) {
	source := "int main() { int a; a = 3 * 7; if (a > 20) { a = a - 1; } return a; }"
	first, err := Compile(source, codegen.Options{})
	require.NoError(t, err)
	second, err := Compile(source, codegen.Options{})
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func ExampleCompile() {
	asm, _ := Compile("int main() { return 7; }", codegen.Options{})
	fmt.Println(strings.Split(asm, "\n")[3])
	// Output: _start:
}
