package symbol

import "hoc/internal/value"

// Binding is the storage cell of a variable.
type Binding struct {
	Name  *Name
	Value value.Value
}

// Globals holds bindings that persist across statements.
type Globals struct {
	cells map[*Name]*Binding
}

func NewGlobals() *Globals {
	return &Globals{cells: make(map[*Name]*Binding)}
}

func (g *Globals) Get(n *Name) (*Binding, bool) {
	b, ok := g.cells[n]
	return b, ok
}

// Bind returns the binding for n, creating it with the value 0.
func (g *Globals) Bind(n *Name) *Binding {
	if b, ok := g.cells[n]; ok {
		return b
	}
	b := &Binding{Name: n}
	g.cells[n] = b
	return b
}

func (g *Globals) Len() int {
	return len(g.cells)
}

// Each calls fn for every global binding.
func (g *Globals) Each(fn func(*Binding)) {
	for _, b := range g.cells {
		fn(b)
	}
}

// Clear removes every binding, handing each one to release first.
func (g *Globals) Clear(release func(*Binding)) {
	for _, b := range g.cells {
		if release != nil {
			release(b)
		}
	}
	clear(g.cells)
}

// Scope holds the parameters of one active call.
type Scope struct {
	cells []Binding
}

func (s *Scope) Get(n *Name) (*Binding, bool) {
	if s == nil {
		return nil, false
	}
	for i := range s.cells {
		if s.cells[i].Name == n {
			return &s.cells[i], true
		}
	}
	return nil, false
}

// Bind adds a local binding. Parameter names are distinct, so no lookup
// is needed.
func (s *Scope) Bind(n *Name, v value.Value) {
	s.cells = append(s.cells, Binding{Name: n, Value: v})
}

func (s *Scope) Len() int {
	if s == nil {
		return 0
	}
	return len(s.cells)
}

// Reset empties the scope for reuse, handing each binding to release.
func (s *Scope) Reset(release func(*Binding)) {
	for i := range s.cells {
		if release != nil {
			release(&s.cells[i])
		}
	}
	clear(s.cells)
	s.cells = s.cells[:0]
}
