// Package symbol holds the name table, which maps identifiers to their
// role, and the global and local bindings that hold variable values.
package symbol

import (
	"errors"
	"fmt"
	"sort"

	"hoc/internal/token"
)

// Role is what an identifier means to the parser and the machine.
type Role int

const (
	RoleUndefined Role = iota
	RoleVariable
	RoleKeyword
	RoleBuiltin
	RoleFunction
	RoleProcedure
)

func (r Role) String() string {
	switch r {
	case RoleUndefined:
		return "undefined"
	case RoleVariable:
		return "variable"
	case RoleKeyword:
		return "keyword"
	case RoleBuiltin:
		return "builtin"
	case RoleFunction:
		return "function"
	case RoleProcedure:
		return "procedure"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

var ErrNameAlreadyUsed = errors.New("name already used")

// Name is one entry of the name table.
type Name struct {
	Ident string
	Role  Role

	Token   token.Kind // RoleKeyword
	Builtin int        // RoleBuiltin: index into the builtin table

	// RoleFunction and RoleProcedure
	Entry  int
	Params []*Name
}

// Arity is the declared parameter count of a function or procedure.
func (n *Name) Arity() int {
	return len(n.Params)
}

// IsVariable reports whether n may be evaluated or assigned.
func (n *Name) IsVariable() bool {
	return n.Role == RoleVariable || n.Role == RoleUndefined
}

// IsCallable reports whether n names a user-defined function or procedure.
func (n *Name) IsCallable() bool {
	return n.Role == RoleFunction || n.Role == RoleProcedure
}

func (n *Name) String() string {
	return n.Ident
}

// Table is the name table of one machine. Entries are never removed
// except by Clear.
type Table struct {
	names map[string]*Name
}

func NewTable() *Table {
	return &Table{names: make(map[string]*Name)}
}

// Lookup returns the entry for ident, or nil.
func (t *Table) Lookup(ident string) *Name {
	return t.names[ident]
}

// Install registers ident with role, returning the existing entry when
// ident is already known.
func (t *Table) Install(ident string, role Role) *Name {
	if n, ok := t.names[ident]; ok {
		return n
	}
	n := &Name{Ident: ident, Role: role}
	t.names[ident] = n
	return n
}

// Intern returns the entry for ident, installing it as undefined.
func (t *Table) Intern(ident string) *Name {
	return t.Install(ident, RoleUndefined)
}

// Declare gives an undefined name the function or procedure role. The
// entry is set later with Define, once the body's address is known.
func (t *Table) Declare(n *Name, role Role, params []*Name) error {
	if n.Role != RoleUndefined {
		return fmt.Errorf("%w: %s is a %s", ErrNameAlreadyUsed, n.Ident, n.Role)
	}
	n.Role = role
	n.Params = params
	return nil
}

// Define records the code address of a declared function or procedure.
func (t *Table) Define(n *Name, entry int) {
	n.Entry = entry
}

// Undeclare reverts a declaration whose body failed to compile.
func (t *Table) Undeclare(n *Name) {
	n.Role = RoleUndefined
	n.Params = nil
	n.Entry = 0
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.names)
}

// Names returns all entries sorted by identifier.
func (t *Table) Names() []*Name {
	out := make([]*Name, 0, len(t.names))
	for _, n := range t.names {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ident < out[j].Ident })
	return out
}

func (t *Table) Clear() {
	clear(t.names)
}
