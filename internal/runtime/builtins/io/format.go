package io

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"hoc/internal/value"
)

var ErrFormatMismatch = errors.New("wrong format")

// Format expands a printf-style template. It understands %%, the flags
// "#-+ 0", a width, a precision and the conversions d i o u x X, f F e E
// g G a A, c and s. Integer conversions truncate their argument to a
// 32-bit int. Any other conversion is copied to the output as written and
// consumes no argument, so the conversions after it still line up with
// their arguments. Kernighan and Pike's hoc instead skips one argument for
// every conversion, known or not. A missing argument, or one of the wrong
// kind, is reported as ErrFormatMismatch.
func Format(template string, args []value.Value) (string, error) {
	var sb strings.Builder
	next := 0

	for i := 0; i < len(template); {
		c := template[i]
		if c != '%' {
			sb.WriteByte(c)
			i++
			continue
		}
		if i+1 < len(template) && template[i+1] == '%' {
			sb.WriteByte('%')
			i += 2
			continue
		}

		spec, n := scanSpec(template[i:])
		i += n
		if spec.verb == 0 {
			// template ends inside the conversion
			sb.WriteString(spec.text)
			break
		}

		kind, known := verbKind(spec.verb)
		if !known {
			sb.WriteString(spec.text)
			continue
		}
		if next >= len(args) {
			return "", fmt.Errorf("%w: %s has no argument", ErrFormatMismatch, spec.text)
		}
		arg := args[next]
		next++
		if arg.Kind != kind {
			return "", fmt.Errorf("%w: %s expects a %s, got a %s", ErrFormatMismatch, spec.text, kind, arg.Kind)
		}
		sb.WriteString(spec.render(arg))
	}
	return sb.String(), nil
}

type convSpec struct {
	text    string // the conversion as written
	flags   string
	width   string
	prec    string
	hasPrec bool
	verb    byte
}

func scanSpec(s string) (convSpec, int) {
	i := 1
	for i < len(s) && strings.IndexByte("#-+ 0", s[i]) >= 0 {
		i++
	}
	spec := convSpec{flags: s[1:i]}

	start := i
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	spec.width = s[start:i]

	if i < len(s) && s[i] == '.' {
		spec.hasPrec = true
		i++
		start = i
		for i < len(s) && isDigit(s[i]) {
			i++
		}
		spec.prec = s[start:i]
	}

	if i >= len(s) {
		spec.text = s
		return spec, len(s)
	}
	spec.verb = s[i]
	i++
	spec.text = s[:i]
	return spec, i
}

func verbKind(verb byte) (value.Kind, bool) {
	switch verb {
	case 'd', 'i', 'o', 'u', 'x', 'X',
		'f', 'F', 'e', 'E', 'g', 'G', 'a', 'A':
		return value.KindNumber, true
	case 'c', 's':
		return value.KindString, true
	default:
		return 0, false
	}
}

func (c convSpec) goVerb(verb byte) string {
	var sb strings.Builder
	sb.WriteByte('%')
	sb.WriteString(c.flags)
	sb.WriteString(c.width)
	if c.hasPrec {
		sb.WriteByte('.')
		sb.WriteString(c.prec)
	}
	sb.WriteByte(verb)
	return sb.String()
}

func (c convSpec) render(arg value.Value) string {
	switch c.verb {
	case 'd', 'i':
		return fmt.Sprintf(c.goVerb('d'), cInt(arg.Num))
	case 'u':
		return fmt.Sprintf(c.goVerb('d'), uint32(cInt(arg.Num)))
	case 'o', 'x', 'X':
		return fmt.Sprintf(c.goVerb(c.verb), uint32(cInt(arg.Num)))
	case 'f', 'F', 'e', 'E', 'g', 'G':
		if s, ok := c.special(arg.Num); ok {
			return s
		}
		if (c.verb == 'g' || c.verb == 'G') && !c.hasPrec {
			c.hasPrec, c.prec = true, "6"
		}
		return fmt.Sprintf(c.goVerb(c.verb), arg.Num)
	case 'a', 'A':
		if s, ok := c.special(arg.Num); ok {
			return s
		}
		return c.hexFloat(arg.Num)
	case 'c':
		text := ""
		for _, r := range arg.Str.Text {
			text = string(r)
			break
		}
		return fmt.Sprintf(c.goVerb('s'), text)
	case 's':
		return fmt.Sprintf(c.goVerb('s'), arg.Str.Text)
	}
	return c.text
}

// cInt converts like a C (int) cast on x86: values that do not fit
// become INT_MIN.
func cInt(f float64) int32 {
	if math.IsNaN(f) || f >= math.MaxInt32+1 || f <= math.MinInt32-1 {
		return math.MinInt32
	}
	return int32(f)
}

// special renders infinities and NaN the way C does.
func (c convSpec) special(f float64) (string, bool) {
	var s string
	switch {
	case math.IsNaN(f):
		s = "nan"
	case math.IsInf(f, 1):
		s = "inf"
		if strings.ContainsRune(c.flags, '+') {
			s = "+inf"
		} else if strings.ContainsRune(c.flags, ' ') {
			s = " inf"
		}
	case math.IsInf(f, -1):
		s = "-inf"
	default:
		return "", false
	}
	if c.verb >= 'A' && c.verb <= 'Z' {
		s = strings.ToUpper(s)
	}
	return c.pad(s, false), true
}

// hexFloat renders %a with C's exponent spelling (no leading zeros).
func (c convSpec) hexFloat(f float64) string {
	verb := byte('x')
	if c.verb == 'A' {
		verb = 'X'
	}
	noWidth := c
	noWidth.width = ""
	s := fmt.Sprintf(noWidth.goVerb(verb), f)

	if p := strings.IndexAny(s, "pP"); p >= 0 && p+2 < len(s) {
		exp := strings.TrimLeft(s[p+2:], "0")
		if exp == "" {
			exp = "0"
		}
		s = s[:p+2] + exp
	}
	return c.pad(s, true)
}

func (c convSpec) pad(s string, zeroOK bool) string {
	w := 0
	for _, d := range c.width {
		w = w*10 + int(d-'0')
	}
	if len(s) >= w {
		return s
	}
	fill := w - len(s)
	switch {
	case strings.ContainsRune(c.flags, '-'):
		return s + strings.Repeat(" ", fill)
	case zeroOK && strings.ContainsRune(c.flags, '0'):
		// zeros go after the sign and the 0x prefix
		head := 0
		if head < len(s) && (s[head] == '+' || s[head] == '-' || s[head] == ' ') {
			head++
		}
		if head+1 < len(s) && s[head] == '0' && (s[head+1] == 'x' || s[head+1] == 'X') {
			head += 2
		}
		return s[:head] + strings.Repeat("0", fill) + s[head:]
	default:
		return strings.Repeat(" ", fill) + s
	}
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}
