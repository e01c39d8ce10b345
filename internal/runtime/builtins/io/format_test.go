package io_test

import (
	"errors"
	"math"
	"testing"

	builtinsio "hoc/internal/runtime/builtins/io"
	"hoc/internal/value"
)

func TestFormat(t *testing.T) {
	pool := value.NewPool()
	str := func(s string) value.Value { return value.FromString(pool.NewAuto(s)) }
	num := value.Number

	tests := []struct {
		tmpl string
		args []value.Value
		want string
	}{
		{"%d-%s\n", []value.Value{num(3), str("a")}, "3-a\n"},
		{"100%%", nil, "100%"},
		{"%5d|%-5d|%05d", []value.Value{num(42), num(42), num(42)}, "   42|42   |00042"},
		{"%i", []value.Value{num(-7.9)}, "-7"},
		{"%+d % d", []value.Value{num(5), num(5)}, "+5  5"},
		{"%x %X %#x %o", []value.Value{num(255), num(255), num(255), num(8)}, "ff FF 0xff 10"},
		{"%u", []value.Value{num(-1)}, "4294967295"},
		{"%.2f", []value.Value{num(3.14159)}, "3.14"},
		{"%8.3f|", []value.Value{num(2.5)}, "   2.500|"},
		{"%e", []value.Value{num(1234.5)}, "1.234500e+03"},
		{"%g %g", []value.Value{num(0.0001), num(1234567)}, "0.0001 1.23457e+06"},
		{"%G", []value.Value{num(1e-10)}, "1E-10"},
		{"%a", []value.Value{num(1)}, "0x1p+0"},
		{"%f", []value.Value{num(math.Inf(1))}, "inf"},
		{"%5.1F", []value.Value{num(math.Inf(-1))}, " -INF"},
		{"%c%c", []value.Value{str("hello"), str("world")}, "hw"},
		{"[%-6s][%6s][%.2s]", []value.Value{str("ab"), str("ab"), str("abc")}, "[ab    ][    ab][ab]"},
		{"%y stays", []value.Value{num(1)}, "%y stays"},
		{"%y %d", []value.Value{num(5)}, "%y 5"},
		{"tail %5", nil, "tail %5"},
		{"extra", []value.Value{num(1)}, "extra"},
	}

	for _, tt := range tests {
		got, err := builtinsio.Format(tt.tmpl, tt.args)
		if err != nil {
			t.Fatalf("Format(%q) error: %v", tt.tmpl, err)
		}
		if got != tt.want {
			t.Fatalf("Format(%q): expected %q, got %q", tt.tmpl, tt.want, got)
		}
	}
}

func TestFormat_Mismatch(t *testing.T) {
	pool := value.NewPool()
	tests := []struct {
		tmpl string
		args []value.Value
	}{
		{"%d\n", []value.Value{value.FromString(pool.NewAuto("a"))}},
		{"%s\n", []value.Value{value.Number(1)}},
		{"%c", []value.Value{value.Number(65)}},
		{"%d %d", []value.Value{value.Number(1)}},
	}
	for _, tt := range tests {
		if _, err := builtinsio.Format(tt.tmpl, tt.args); !errors.Is(err, builtinsio.ErrFormatMismatch) {
			t.Fatalf("Format(%q): expected ErrFormatMismatch, got %v", tt.tmpl, err)
		}
	}
}
