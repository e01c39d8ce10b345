package vm

import (
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"hoc/internal/ir"
	"hoc/internal/runtime"
	"hoc/internal/symbol"
	"hoc/internal/token"
	"hoc/internal/value"
)

// Options bound the resources a VM may use.
type Options struct {
	MaxCallDepth int // nested function and procedure calls
	MaxNesting   int // nested executions of code ranges
	MaxCode      int // cells in the code buffer, 0 for no limit
	Precision    int // significant digits used by print
	Seed         int64
	Logger       zerolog.Logger
}

// DefaultOptions returns the limits used when none are configured.
func DefaultOptions() Options {
	return Options{
		MaxCallDepth: 1000,
		MaxNesting:   10000,
		Precision:    value.DefaultPrecision,
		Logger:       zerolog.Nop(),
	}
}

// VM is a stack machine executing hoc code. All of its state lives in
// the VM value, so independent VMs never share anything.
type VM struct {
	id   uuid.UUID
	log  zerolog.Logger
	opts Options
	env  *runtime.Env

	names   *symbol.Table
	globals *symbol.Globals
	code    *ir.Code
	pool    *value.Pool

	stack  []value.Value
	frames framePool
	scope  *symbol.Scope // locals of the active call, nil at top level
	callee *symbol.Name  // function or procedure being executed
	prev   value.Value   // previously printed value

	pc   int
	line int

	breaking, continuing, returning bool
	retval                          value.Value

	depth int // nested execute calls
	calls int // active calls

	fault  error // first ownership fault not yet reported
	faults int

	interrupted atomic.Bool
	report      func(*RuntimeError)
}

// NewVM creates a VM and registers the keywords and builtins in its name
// table.
func NewVM(env *runtime.Env, opts Options) *VM {
	if env == nil {
		env = runtime.DefaultEnv()
	}
	def := DefaultOptions()
	if opts.MaxCallDepth <= 0 {
		opts.MaxCallDepth = def.MaxCallDepth
	}
	if opts.MaxNesting <= 0 {
		opts.MaxNesting = def.MaxNesting
	}
	if opts.Precision <= 0 {
		opts.Precision = def.Precision
	}

	id := uuid.New()
	vm := &VM{
		id:      id,
		log:     opts.Logger.With().Str("vm", id.String()).Logger(),
		opts:    opts,
		env:     env,
		names:   symbol.NewTable(),
		globals: symbol.NewGlobals(),
		code:    ir.NewCode(opts.MaxCode),
		pool:    value.NewPool(),
		stack:   make([]value.Value, 0, 64),
	}
	if opts.Seed != 0 {
		env.Seed(opts.Seed)
	}

	for _, kw := range token.Keywords {
		n := vm.names.Install(kw.Name, symbol.RoleKeyword)
		n.Token = kw.Kind
	}
	for _, meta := range runtime.Builtins() {
		n := vm.names.Install(meta.Name, symbol.RoleBuiltin)
		n.Builtin = int(meta.ID)
	}

	vm.log.Debug().Int("names", vm.names.Len()).Msg("vm initialized")
	return vm
}

func (vm *VM) ID() uuid.UUID            { return vm.id }
func (vm *VM) Env() *runtime.Env        { return vm.env }
func (vm *VM) Names() *symbol.Table     { return vm.names }
func (vm *VM) Globals() *symbol.Globals { return vm.globals }
func (vm *VM) Code() *ir.Code           { return vm.code }
func (vm *VM) Pool() *value.Pool        { return vm.pool }
func (vm *VM) Options() Options         { return vm.opts }

// Prev returns the previously printed value.
func (vm *VM) Prev() value.Value { return vm.prev }

// Faults returns how many times a freed string was released again.
func (vm *VM) Faults() int { return vm.faults }

// StackLen returns the number of values on the operand stack.
func (vm *VM) StackLen() int { return len(vm.stack) }

// ActiveFrames returns the number of calls in progress.
func (vm *VM) ActiveFrames() int { return vm.frames.active }

// Global returns the value bound to a global variable.
func (vm *VM) Global(ident string) (value.Value, bool) {
	n := vm.names.Lookup(ident)
	if n == nil {
		return value.Value{}, false
	}
	b, ok := vm.globals.Get(n)
	if !ok {
		return value.Value{}, false
	}
	return b.Value, true
}

// SetReporter installs the function warnings are delivered to. By
// default they are written to the environment's diagnostic writer.
func (vm *VM) SetReporter(fn func(*RuntimeError)) {
	vm.report = fn
}

// Interrupt asks the VM to abort the statement it is executing. The
// request is consumed by the first instruction that sees it and is
// cleared by Prepare. It is safe to call from another goroutine.
func (vm *VM) Interrupt() {
	vm.interrupted.Store(true)
}

// Prepare readies the VM for the next statement: the code buffer cursor
// returns to its base, the operand stack is emptied and strings that were
// never promoted are reclaimed. It also completes the unwind after an
// aborted statement.
func (vm *VM) Prepare() {
	for len(vm.stack) > 0 {
		v := vm.stack[len(vm.stack)-1]
		vm.stack = vm.stack[:len(vm.stack)-1]
		vm.drop(v)
	}
	vm.drop(vm.retval)
	vm.retval = value.Value{}

	reclaimed := vm.pool.Reset()
	vm.code.Reset()

	vm.breaking, vm.continuing, vm.returning = false, false, false
	vm.scope = nil
	vm.callee = nil
	vm.depth, vm.calls = 0, 0
	vm.interrupted.Store(false)

	if reclaimed > 0 {
		vm.log.Debug().Int("reclaimed", reclaimed).Int("final", vm.pool.FinalLen()).Msg("statement boundary")
	}
}

// Execute runs code starting at start until its stop sentinel. ir.NoAddr
// starts at the beginning of the statement being compiled.
func (vm *VM) Execute(start int) error {
	if start == ir.NoAddr {
		start = vm.code.Base()
	}
	if err := vm.execute(start); err != nil {
		vm.log.Debug().Err(err).Int("stack", len(vm.stack)).Msg("statement aborted")
		return err
	}
	return nil
}

// Close releases everything the VM owns: bindings, the previous value,
// frames, strings and the name table.
func (vm *VM) Close() {
	vm.Prepare()
	vm.globals.Clear(func(b *symbol.Binding) {
		vm.drop(b.Value)
	})
	vm.drop(vm.prev)
	vm.prev = value.Value{}
	vm.frames.reset()
	vm.fault = nil
	freed := vm.pool.Drain()
	vm.names.Clear()
	vm.log.Debug().Int("freed", freed).Msg("vm closed")
}
