package value

import (
	"math"
	"strconv"
	"strings"
)

// Kind is the type of a value at runtime.
type Kind int

const (
	KindNumber Kind = iota
	KindString
)

func (k Kind) String() string {
	if k == KindString {
		return "string"
	}
	return "number"
}

// Value is a universal value for the machine: a number or a reference to
// a pooled string. The zero Value is the number 0.
type Value struct {
	Kind Kind
	Num  float64
	Str  *String // for KindString
}

// Number wraps f as a Value.
func Number(f float64) Value {
	return Value{Kind: KindNumber, Num: f}
}

// FromString wraps s as a Value.
func FromString(s *String) Value {
	return Value{Kind: KindString, Str: s}
}

func (v Value) IsString() bool {
	return v.Kind == KindString
}

// Float returns the numeric reading of v, converting strings by their
// leading numeric prefix.
func (v Value) Float() float64 {
	if v.Kind == KindString {
		if v.Str == nil {
			return 0
		}
		return ParseNumber(v.Str.Text)
	}
	return v.Num
}

// Truthy reports whether v is non-zero once read as a number.
func (v Value) Truthy() bool {
	return v.Float() != 0
}

// Format renders v the way print does, with prec significant digits.
func (v Value) Format(prec int) string {
	if v.Kind == KindString {
		if v.Str == nil {
			return ""
		}
		return v.Str.Text
	}
	return FormatNumber(v.Num, prec)
}

func (v Value) String() string {
	return v.Format(DefaultPrecision)
}

// DefaultPrecision is the number of significant digits print uses.
const DefaultPrecision = 8

// FormatNumber renders f like C's %.<prec>g.
func FormatNumber(f float64, prec int) string {
	switch {
	case math.IsNaN(f):
		if math.Signbit(f) {
			return "-nan"
		}
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	if prec <= 0 {
		prec = 1
	}
	return strconv.FormatFloat(f, 'g', prec, 64)
}

// ParseNumber converts the longest leading decimal prefix of s to a
// number, after optional leading white space. A string with no numeric
// prefix converts to 0.
func ParseNumber(s string) float64 {
	s = strings.TrimLeft(s, " \t\n\r\v\f")
	n := NumericPrefix(s)
	if n == 0 {
		return 0
	}
	// out of range input still yields ±Inf or 0 alongside the error
	f, _ := strconv.ParseFloat(s[:n], 64)
	return f
}

// NumericPrefix returns the length of the longest leading prefix of s that
// reads as a decimal number, inf or nan, or 0 if there is none.
func NumericPrefix(s string) int {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	if n := specialPrefix(s[i:]); n > 0 {
		return i + n
	}

	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		j := i + 1
		frac := 0
		for j < len(s) && isDigit(s[j]) {
			j++
			frac++
		}
		if digits > 0 || frac > 0 {
			i = j
			digits += frac
		}
	}
	if digits == 0 {
		return 0
	}

	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		if j < len(s) && isDigit(s[j]) {
			for j < len(s) && isDigit(s[j]) {
				j++
			}
			i = j
		}
	}
	return i
}

func specialPrefix(s string) int {
	lower := strings.ToLower(s)
	for _, w := range []string{"infinity", "inf", "nan"} {
		if strings.HasPrefix(lower, w) {
			return len(w)
		}
	}
	return 0
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}
