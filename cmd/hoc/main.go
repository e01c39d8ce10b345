package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"hoc/internal/config"
	"hoc/internal/interp"
	"hoc/internal/logging"
	"hoc/internal/runtime"
)

const version = "0.1.0"

// errReported means the diagnostics have already been printed.
var errReported = errors.New("errors reported")

func main() {
	if len(os.Args) < 2 {
		// hoc with no arguments: interactive on a terminal, otherwise a
		// program on standard input
		var err error
		if term.IsTerminal(int(os.Stdin.Fd())) {
			err = cmdRepl(nil)
		} else {
			err = cmdRun([]string{"-"})
		}
		exit(err)
		return
	}

	cmd := os.Args[1]

	switch cmd {
	case "run":
		exit(cmdRun(os.Args[2:]))
	case "repl":
		exit(cmdRepl(os.Args[2:]))
	case "disasm":
		exit(cmdDisasm(os.Args[2:]))
	case "help", "-h", "--help":
		usage()
	case "version", "-v", "--version":
		fmt.Println("hoc", version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func exit(err error) {
	if err == nil {
		return
	}
	if !errors.Is(err, errReported) {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	os.Exit(1)
}

func usage() {
	fmt.Println(`hoc, a high-order calculator

Usage:
  hoc                        REPL on a terminal, otherwise run standard input
  hoc run [flags] [file ...] Run files in order ("-" is standard input)
  hoc repl [flags]           Interactive session
  hoc disasm [flags] file    Print the compiled code without running it

Commands:
  version  hoc version
  help     This message

Flags:
  -config     Configuration file (default: hoc.toml found from the working directory up)
  -log-level  Log level: trace, debug, info, warn, error
  -d          Print the code of every statement before it runs (run, repl)`)
}

// options are the flags shared by the subcommands.
type options struct {
	config   string
	logLevel string
	debug    bool
}

func (o *options) register(fs *flag.FlagSet, debug bool) {
	fs.StringVar(&o.config, "config", "", "configuration file")
	fs.StringVar(&o.logLevel, "log-level", "", "log level")
	if debug {
		fs.BoolVar(&o.debug, "d", false, "list statements before running them")
	}
}

// load reads the configuration, applies the flags and builds the logger.
func (o *options) load() (*config.Config, zerolog.Logger, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.config != "" {
		cfg, err = config.Load(o.config)
	} else {
		cfg, err = config.FindAndLoad(".")
	}
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.debug {
		cfg.Interpreter.Debug = true
	}

	log, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if cfg.Path != "" {
		log.Debug().Str("path", cfg.Path).Msg("configuration loaded")
	}
	return cfg, log, nil
}

// watchInterrupts turns SIGINT into an interrupt of the running statement.
func watchInterrupts(it *interp.Interpreter) func() {
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-sigc:
				it.Interrupt()
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(sigc)
		close(done)
	}
}

// -------------- RUN --------------

func cmdRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var o options
	o.register(fs, true)
	if err := fs.Parse(args); err != nil {
		return err
	}

	files := fs.Args()
	if len(files) == 0 {
		files = []string{"-"}
	}

	cfg, log, err := o.load()
	if err != nil {
		return err
	}
	it := interp.New(cfg, runtime.DefaultEnv(), log)
	defer it.Close()
	stop := watchInterrupts(it)
	defer stop()

	for _, path := range files {
		if err := it.RunFile(path); err != nil {
			return err
		}
	}
	if it.Errors() > 0 {
		return errReported
	}
	return nil
}

// -------------- DISASM --------------

func cmdDisasm(args []string) error {
	fs := flag.NewFlagSet("disasm", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var o options
	o.register(fs, false)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("disasm: expected one input file")
	}
	path := fs.Arg(0)

	cfg, log, err := o.load()
	if err != nil {
		return err
	}
	it := interp.New(cfg, runtime.DefaultEnv(), log)
	defer it.Close()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot open %s: %w", path, err)
	}
	defer f.Close()

	if err := it.Disasm(path, bufio.NewReader(f), os.Stdout); err != nil {
		return err
	}
	if it.Errors() > 0 {
		return errReported
	}
	return nil
}
