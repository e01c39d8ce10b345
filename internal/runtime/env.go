package runtime

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"
	"time"
	"unicode"

	"hoc/internal/runtime/builtins"
	builtinsio "hoc/internal/runtime/builtins/io"
	"hoc/internal/value"
)

// Env aggregates host services used by the machine: program IO, the
// diagnostic sink and the random source.
// Env implements builtins.Env to avoid import cycles.
type Env struct {
	ioService builtinsio.IO
	diag      io.Writer
	rng       *rand.Rand
}

// IO returns the IO service.
func (e *Env) IO() builtinsio.IO {
	return e.ioService
}

// Diag returns the writer diagnostics and warnings are reported on.
func (e *Env) Diag() io.Writer {
	if e.diag == nil {
		return io.Discard
	}
	return e.diag
}

// SetDiag sets the diagnostic writer.
func (e *Env) SetDiag(w io.Writer) {
	e.diag = w
}

// Rand returns a pseudo-random number in [0, 1]. Implements builtins.Env.
func (e *Env) Rand() float64 {
	return e.rng.Float64()
}

// Seed reseeds the random source. A zero seed uses the current time.
func (e *Env) Seed(seed int64) {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	e.rng = rand.New(rand.NewSource(seed))
}

var _ builtins.Env = (*Env)(nil)

// ScannerIO reads program input from a rune scanner and writes output to
// a writer. A program read from standard input shares the scanner with
// its lexer, so read and getline see the lines that follow the statement.
type ScannerIO struct {
	out io.Writer
	in  io.RuneScanner
}

func NewScannerIO(out io.Writer, in io.RuneScanner) *ScannerIO {
	return &ScannerIO{out: out, in: in}
}

func (s *ScannerIO) Print(str string) {
	io.WriteString(s.out, str)
}

// ReadNumber skips white space and consumes the longest run of runes
// that can begin a number, leaving the rune after it unread. The number
// is the run's numeric prefix, as for strings converted to numbers.
func (s *ScannerIO) ReadNumber() (float64, error) {
	if s.in == nil {
		return 0, io.EOF
	}
	r, err := s.skipSpace()
	if err != nil {
		return 0, err
	}

	var sb strings.Builder
	var sc numberScan
	for sc.accept(r) {
		sb.WriteRune(r)
		r, _, err = s.in.ReadRune()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return 0, fmt.Errorf("failed to read input: %w", err)
			}
			break
		}
	}
	if err == nil {
		if err := s.in.UnreadRune(); err != nil {
			return 0, fmt.Errorf("failed to read input: %w", err)
		}
	}

	text := sb.String()
	if value.NumericPrefix(text) == 0 {
		return 0, builtinsio.ErrNotANumber
	}
	return value.ParseNumber(text), nil
}

func (s *ScannerIO) skipSpace() (rune, error) {
	for {
		r, _, err := s.in.ReadRune()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return 0, io.EOF
			}
			return 0, fmt.Errorf("failed to read input: %w", err)
		}
		if !unicode.IsSpace(r) {
			return r, nil
		}
	}
}

// numberScan decides rune by rune whether input can still extend a
// number: sign, digits, point, exponent, or a spelling of inf or nan.
type numberScan struct {
	n      int // runes accepted
	signed bool
	digits bool
	point  bool
	exp    int // 0 none, 1 just after e, 2 after the exponent sign or a digit
	word   string
}

func (sc *numberScan) accept(r rune) bool {
	ok := sc.step(r)
	if ok {
		sc.n++
	}
	return ok
}

func (sc *numberScan) step(r rune) bool {
	if sc.word != "" {
		return sc.spell(r)
	}
	switch {
	case (r == '+' || r == '-') && sc.n == 0:
		sc.signed = true
		return true
	case (r == '+' || r == '-') && sc.exp == 1:
		sc.exp = 2
		return true
	case r >= '0' && r <= '9':
		if sc.exp == 0 {
			sc.digits = true
		} else {
			sc.exp = 2
		}
		return true
	case r == '.' && !sc.point && sc.exp == 0:
		sc.point = true
		return true
	case (r == 'e' || r == 'E') && sc.digits && sc.exp == 0:
		sc.exp = 1
		return true
	case !sc.digits && !sc.point && (sc.n == 0 || sc.signed && sc.n == 1):
		return sc.spell(r)
	}
	return false
}

func (sc *numberScan) spell(r rune) bool {
	w := sc.word + string(unicode.ToLower(r))
	if strings.HasPrefix("infinity", w) || strings.HasPrefix("nan", w) {
		sc.word = w
		return true
	}
	return false
}

func (s *ScannerIO) ReadLine() (string, error) {
	if s.in == nil {
		return "", io.EOF
	}
	var sb strings.Builder
	for {
		r, _, err := s.in.ReadRune()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if sb.Len() == 0 {
					return "", io.EOF
				}
				return sb.String(), nil
			}
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		if r == '\n' {
			return sb.String(), nil
		}
		sb.WriteRune(r)
	}
}

// Stdin is the process-wide buffered standard input. Everything that
// reads standard input must go through it.
var Stdin = bufio.NewReader(os.Stdin)

// DefaultEnv returns an Env with standard implementations
// (stdout for output, stderr for diagnostics, stdin for input).
func DefaultEnv() *Env {
	e := &Env{
		ioService: NewScannerIO(os.Stdout, Stdin),
		diag:      os.Stderr,
	}
	e.Seed(0)
	return e
}

// NewEnv creates a new Env with the given IO service.
// This is useful for tests that need to provide a custom IO implementation.
func NewEnv(ioService builtinsio.IO, diag io.Writer) *Env {
	e := &Env{
		ioService: ioService,
		diag:      diag,
	}
	e.Seed(0)
	return e
}
