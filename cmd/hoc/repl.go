package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/peterh/liner"

	"hoc/internal/interp"
	"hoc/internal/runtime"
)

// -------------- REPL --------------

func cmdRepl(args []string) error {
	fs := flag.NewFlagSet("repl", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var o options
	o.register(fs, true)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, log, err := o.load()
	if err != nil {
		return err
	}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	histPath := cfg.HistoryPath()
	if histPath != "" {
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			if f, err := os.Create(histPath); err == nil {
				_, _ = ln.WriteHistory(f)
				_ = f.Close()
			}
		}()
	}

	// Program text and the input of read and getline come from the same
	// line editor, as they would from a terminal.
	src := newLineSource(ln, cfg.REPL.Prompt, cfg.REPL.Continuation)
	env := runtime.NewEnv(runtime.NewScannerIO(os.Stdout, src), os.Stderr)
	it := interp.New(cfg, env, log)
	defer it.Close()
	stop := watchInterrupts(it)
	defer stop()

	fmt.Printf("hoc %s (Ctrl-D to exit)\n", version)
	for !src.eof {
		if err := it.Run("<stdin>", src); err != nil {
			return err
		}
	}
	fmt.Println()
	return nil
}

// prompter is the part of the line editor a lineSource uses.
type prompter interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// lineSource feeds lines typed at the prompt to the lexer one rune at a
// time. A new line is requested only when the previous one is used up.
type lineSource struct {
	ln     prompter
	prompt string
	cont   string

	buf   []byte
	pos   int
	last  int // size of the last rune read, for UnreadRune
	depth int // unclosed braces and parentheses
	eof   bool
}

func newLineSource(ln prompter, prompt, cont string) *lineSource {
	return &lineSource{ln: ln, prompt: prompt, cont: cont}
}

func (s *lineSource) ReadRune() (rune, int, error) {
	for s.pos >= len(s.buf) {
		if s.eof {
			return 0, 0, io.EOF
		}
		if err := s.fill(); err != nil {
			return 0, 0, err
		}
	}
	r, size := utf8.DecodeRune(s.buf[s.pos:])
	s.pos += size
	s.last = size
	return r, size, nil
}

func (s *lineSource) UnreadRune() error {
	if s.last == 0 {
		return errors.New("lineSource: nothing to unread")
	}
	s.pos -= s.last
	s.last = 0
	return nil
}

func (s *lineSource) fill() error {
	prompt := s.prompt
	if s.depth > 0 {
		prompt = s.cont
	}
	line, err := s.ln.Prompt(prompt)
	switch {
	case errors.Is(err, liner.ErrPromptAborted):
		// Ctrl-C drops what was typed so far
		s.depth = 0
		line = ""
	case errors.Is(err, io.EOF):
		s.eof = true
		s.buf, s.pos = nil, 0
		return nil
	case err != nil:
		return fmt.Errorf("failed to read input: %w", err)
	default:
		if line != "" {
			s.ln.AppendHistory(line)
		}
		s.depth = balance(s.depth, line)
	}
	s.buf = append(s.buf[:0], line...)
	s.buf = append(s.buf, '\n')
	s.pos = 0
	s.last = 0
	return nil
}

// balance adds the braces and parentheses opened by line to depth,
// skipping strings and comments.
func balance(depth int, line string) int {
	inString := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '#':
			return max(depth, 0)
		case '(', '{':
			depth++
		case ')', '}':
			depth--
		}
	}
	return max(depth, 0)
}
