package codegen

import (
	"fmt"
	"strings"
)

// SymbolTable maps a function's variable names to stack-frame offsets
// relative to %ebp. Slots are assigned in declaration order: the first
// declared variable lives at -4(%ebp), the next at -8(%ebp), and so on.
// The table is built once before statement emission and read-only after.
type SymbolTable struct {
	offsets map[string]int
	order   []string
	next    int
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{offsets: make(map[string]int)}
}

// Allocate assigns the next free slot to name and returns its offset.
// Redeclaring a name returns its existing slot.
func (s *SymbolTable) Allocate(name string) int {
	if off, ok := s.offsets[name]; ok {
		return off
	}
	s.next -= 4
	s.offsets[name] = s.next
	s.order = append(s.order, name)
	return s.next
}

// Lookup returns the offset for name and whether it was declared.
func (s *SymbolTable) Lookup(name string) (int, bool) {
	off, ok := s.offsets[name]
	return off, ok
}

// Len returns the number of distinct declared variables.
func (s *SymbolTable) Len() int {
	return len(s.order)
}

// String returns a dump of the table in declaration order.
func (s *SymbolTable) String() string {
	var sb strings.Builder
	for _, name := range s.order {
		fmt.Fprintf(&sb, "%-16s %d(%%ebp)\n", name, s.offsets[name])
	}
	return sb.String()
}
