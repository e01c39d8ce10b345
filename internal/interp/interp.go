// Package interp drives the parser and the machine over a source: each
// top-level statement is compiled, optionally listed, and executed before
// the next one is read.
package interp

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"hoc/internal/config"
	"hoc/internal/ir"
	"hoc/internal/lexer"
	"hoc/internal/parser"
	"hoc/internal/runtime"
	"hoc/internal/vm"
)

// Interpreter runs hoc sources against one machine, so definitions and
// variables from one source are visible to the next.
type Interpreter struct {
	vm    *vm.VM
	log   zerolog.Logger
	diag  io.Writer
	debug bool

	name   string // source being run
	errors int
}

// New creates an interpreter configured by cfg. A nil cfg means the
// defaults and a nil env the process's standard streams.
func New(cfg *config.Config, env *runtime.Env, log zerolog.Logger) *Interpreter {
	if cfg == nil {
		cfg = config.Default()
	}
	if env == nil {
		env = runtime.DefaultEnv()
	}
	in := cfg.Interpreter
	machine := vm.NewVM(env, vm.Options{
		MaxCallDepth: in.MaxCallDepth,
		MaxNesting:   in.MaxNesting,
		MaxCode:      in.MaxCode,
		Precision:    in.Precision,
		Seed:         in.Seed,
		Logger:       log,
	})

	it := &Interpreter{
		vm:    machine,
		log:   log,
		diag:  env.Diag(),
		debug: in.Debug,
	}
	machine.SetReporter(func(re *vm.RuntimeError) {
		fmt.Fprintf(it.diag, "hoc: %s:%d: warning: %s\n", it.name, re.Line, re.Message())
	})
	return it
}

// VM returns the machine the interpreter runs on.
func (it *Interpreter) VM() *vm.VM {
	return it.vm
}

// Errors returns the number of errors reported so far.
func (it *Interpreter) Errors() int {
	return it.errors
}

// SetDebug turns statement listings on or off.
func (it *Interpreter) SetDebug(on bool) {
	it.debug = on
}

// Interrupt aborts the statement being executed. Safe to call from a
// signal handler goroutine.
func (it *Interpreter) Interrupt() {
	it.vm.Interrupt()
}

// Run compiles and executes the statements read from r. Errors in a
// statement are reported and the run continues with the next line; only
// exhausting the code buffer or failing to read stops it.
func (it *Interpreter) Run(name string, r io.RuneScanner) error {
	it.name = name
	p := parser.New(lexer.New(r), it.vm.Names(), it.vm.Code())
	it.log.Debug().Str("source", name).Msg("run")

	for {
		it.vm.Prepare()
		unit, err := p.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			it.report(err)
			if errors.Is(err, ir.ErrCodeBufferFull) {
				return err
			}
			p.Recover()
			continue
		}

		if unit.Kind == parser.UnitDefinition {
			it.log.Debug().Str("name", unit.Name.Ident).Int("entry", unit.Start).Msg("defined")
			if it.debug {
				it.listDefinition(unit)
			}
			continue
		}
		if it.debug {
			it.listStatement(unit)
		}
		if err := it.vm.Execute(ir.NoAddr); err != nil {
			it.report(err)
		}
	}
}

// RunFile runs the file at path; "-" means standard input.
func (it *Interpreter) RunFile(path string) error {
	if path == "-" {
		return it.Run("<stdin>", runtime.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot open %s: %w", path, err)
	}
	defer f.Close()
	return it.Run(path, bufio.NewReader(f))
}

// Disasm compiles r without executing it and writes the listing of every
// statement and definition to w.
func (it *Interpreter) Disasm(name string, r io.RuneScanner, w io.Writer) error {
	it.name = name
	p := parser.New(lexer.New(r), it.vm.Names(), it.vm.Code())
	code := it.vm.Code()

	for {
		it.vm.Prepare()
		unit, err := p.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			it.report(err)
			if errors.Is(err, ir.ErrCodeBufferFull) {
				return err
			}
			p.Recover()
			continue
		}

		if unit.Kind == parser.UnitDefinition {
			fmt.Fprintf(w, "# %s:%d: %s\n", name, unit.Line, unit.Name)
			err = code.WriteListing(w, unit.Start, code.Base())
		} else {
			fmt.Fprintf(w, "# %s:%d\n", name, unit.Line)
			err = code.WriteStatement(w)
		}
		if err != nil {
			return err
		}
	}
}

// Close releases everything the machine holds.
func (it *Interpreter) Close() {
	it.vm.Close()
}

// report prints a diagnostic as "hoc: file:line: message".
func (it *Interpreter) report(err error) {
	it.errors++

	var (
		re *vm.RuntimeError
		se *parser.SyntaxError
	)
	switch {
	case errors.As(err, &re):
		fmt.Fprintf(it.diag, "hoc: %s:%d: %s\n", it.name, re.Line, re.Message())
	case errors.As(err, &se):
		fmt.Fprintf(it.diag, "hoc: %s:%d: %s\n", it.name, se.Line, se.Message())
	default:
		fmt.Fprintf(it.diag, "hoc: %s: %s\n", it.name, err)
	}
	it.log.Debug().Err(err).Str("source", it.name).Int("stack", it.vm.StackLen()).Int("frames", it.vm.ActiveFrames()).Msg("statement aborted")
}

func (it *Interpreter) listStatement(unit parser.Unit) {
	fmt.Fprintf(it.diag, "# %s:%d\n", it.name, unit.Line)
	it.vm.Code().WriteStatement(it.diag)
}

func (it *Interpreter) listDefinition(unit parser.Unit) {
	code := it.vm.Code()
	fmt.Fprintf(it.diag, "# %s:%d: %s\n", it.name, unit.Line, unit.Name)
	code.WriteListing(it.diag, unit.Start, code.Base())
}
