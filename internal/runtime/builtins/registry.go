package builtins

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
)

// Env provides host services to builtins.
// This interface is implemented by runtime.Env to avoid import cycles.
type Env interface {
	// Rand returns a pseudo-random number in [0, 1].
	Rand() float64
}

// ID is a builtin function identifier. IDs are also the index of the
// builtin in the table handed to the name table.
type ID int

const (
	Pi ID = iota
	E
	Gamma
	Deg
	Phi
	Rand
	Int
	Abs
	Atan
	Cos
	Exp
	Log
	Log10
	Sin
	Sqrt
	Atan2
	// future builtins go here
)

// Constant is the arity of a builtin that is a named constant. It may be
// called with no arguments or written without parentheses.
const Constant = -1

var (
	ErrWrongArity          = errors.New("wrong arity")
	ErrArgumentOutOfDomain = errors.New("argument out of domain")
	ErrResultOutOfRange    = errors.New("result out of range")
	ErrUnknownBuiltin      = errors.New("unknown builtin")
)

// Meta contains metadata about a builtin.
type Meta struct {
	ID         ID
	Name       string
	Arity      int      // Constant for named constants
	ParamNames []string // Parameter names in order (must match Arity)
}

// Signature renders the builtin as it is called, for example "atan2(y, x)".
// A constant renders as its bare name.
func (m Meta) Signature() string {
	if m.Arity == Constant {
		return m.Name
	}
	return m.Name + "(" + strings.Join(m.ParamNames, ", ") + ")"
}

// Builtin is a complete builtin with both metadata and implementation.
// Exactly one of Value, F0, F1 and F2 is used, chosen by Arity.
type Builtin struct {
	Meta  Meta
	Value float64
	F0    func(env Env) float64
	F1    func(x float64) float64
	F2    func(x, y float64) float64
}

// registry holds all registered builtins with fast lookup indexes.
type registry struct {
	mu sync.RWMutex

	byID   map[ID]*Builtin
	byName map[string]*Builtin
}

var globalRegistry = &registry{
	byID:   make(map[ID]*Builtin),
	byName: make(map[string]*Builtin),
}

// Register registers a builtin. This is called automatically by each builtin's init() function.
// Panics if the builtin ID is already registered or if metadata is invalid.
func Register(b Builtin) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()

	want := b.Meta.Arity
	if want == Constant {
		want = 0
	}
	if len(b.Meta.ParamNames) != want {
		panic(fmt.Sprintf("builtin %s (ID %d): ParamNames length (%d) != Arity (%d)",
			b.Meta.Name, b.Meta.ID, len(b.Meta.ParamNames), b.Meta.Arity))
	}

	var ok bool
	switch b.Meta.Arity {
	case Constant:
		ok = b.F0 == nil && b.F1 == nil && b.F2 == nil
	case 0:
		ok = b.F0 != nil
	case 1:
		ok = b.F1 != nil
	case 2:
		ok = b.F2 != nil
	}
	if !ok {
		panic(fmt.Sprintf("builtin %s (ID %d): implementation does not match arity %d",
			b.Meta.Name, b.Meta.ID, b.Meta.Arity))
	}

	if _, exists := globalRegistry.byID[b.Meta.ID]; exists {
		panic(fmt.Sprintf("builtin ID %d (%s) is already registered", b.Meta.ID, b.Meta.Name))
	}
	if _, exists := globalRegistry.byName[b.Meta.Name]; exists {
		panic(fmt.Sprintf("builtin name %q is already registered", b.Meta.Name))
	}

	globalRegistry.byID[b.Meta.ID] = &b
	globalRegistry.byName[b.Meta.Name] = &b
}

// LookupByID finds a builtin by ID. Returns nil if not found.
func LookupByID(id ID) *Builtin {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()
	return globalRegistry.byID[id]
}

// LookupByName finds a builtin by name. Returns nil if not found.
func LookupByName(name string) *Builtin {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()
	return globalRegistry.byName[name]
}

// All returns all registered builtin metadata ordered by ID.
func All() []Meta {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()
	result := make([]Meta, 0, len(globalRegistry.byID))
	for _, b := range globalRegistry.byID {
		result = append(result, b.Meta)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Call invokes the builtin with the given arguments. The argument count
// must equal the declared arity, except that a constant also accepts none.
// A NaN produced from non-NaN arguments is reported as a domain error and
// an infinity produced from finite arguments as a range error.
func (b *Builtin) Call(env Env, args []float64) (float64, error) {
	n := len(args)
	if n == 0 && b.Meta.Arity == Constant {
		return b.Value, nil
	}
	if n != b.Meta.Arity {
		return 0, fmt.Errorf("%s: %w (expects %d, got %d)", b.Meta.Signature(), ErrWrongArity, max(b.Meta.Arity, 0), n)
	}

	var r float64
	switch n {
	case 0:
		r = b.F0(env)
	case 1:
		r = b.F1(args[0])
	case 2:
		r = b.F2(args[0], args[1])
	}
	if err := Check(r, args...); err != nil {
		return 0, fmt.Errorf("%s: %w", b.Meta.Name, err)
	}
	return r, nil
}

// Check maps a math result to a domain or range error given the inputs
// that produced it.
func Check(r float64, args ...float64) error {
	if math.IsNaN(r) {
		for _, a := range args {
			if math.IsNaN(a) {
				return nil
			}
		}
		return ErrArgumentOutOfDomain
	}
	if math.IsInf(r, 0) {
		for _, a := range args {
			if math.IsInf(a, 0) {
				return nil
			}
		}
		return ErrResultOutOfRange
	}
	return nil
}

// Call dispatches a builtin by ID.
func Call(env Env, id ID, args []float64) (float64, error) {
	b := LookupByID(id)
	if b == nil {
		return 0, fmt.Errorf("%w: id %d", ErrUnknownBuiltin, id)
	}
	return b.Call(env, args)
}
