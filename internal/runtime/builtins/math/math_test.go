package math_test

import (
	"errors"
	gomath "math"
	"strings"
	"testing"

	"hoc/internal/runtime/builtins"
	_ "hoc/internal/runtime/builtins/math"
)

type fixedRand float64

func (f fixedRand) Rand() float64 { return float64(f) }

func TestRegistryOrder(t *testing.T) {
	names := []string{"pi", "e", "gamma", "deg", "phi", "rand", "int", "abs",
		"atan", "cos", "exp", "log", "log10", "sin", "sqrt", "atan2"}
	all := builtins.All()
	if len(all) != len(names) {
		t.Fatalf("expected %d builtins, got %d", len(names), len(all))
	}
	for i, meta := range all {
		if int(meta.ID) != i || meta.Name != names[i] {
			t.Fatalf("builtin %d: expected %s, got %s (ID %d)", i, names[i], meta.Name, meta.ID)
		}
	}
}

func TestCall(t *testing.T) {
	tests := []struct {
		name string
		args []float64
		want float64
	}{
		{"pi", nil, gomath.Pi},
		{"phi", nil, 1.61803398874989484820},
		{"int", []float64{-3.7}, -3},
		{"int", []float64{3.7}, 3},
		{"abs", []float64{-2}, 2},
		{"sqrt", []float64{16}, 4},
		{"log10", []float64{1000}, 3},
		{"atan2", []float64{1, 1}, gomath.Pi / 4},
		{"rand", nil, 0.25},
	}
	for _, tt := range tests {
		b := builtins.LookupByName(tt.name)
		if b == nil {
			t.Fatalf("builtin %s not registered", tt.name)
		}
		got, err := b.Call(fixedRand(0.25), tt.args)
		if err != nil {
			t.Fatalf("%s%v error: %v", tt.name, tt.args, err)
		}
		if gomath.Abs(got-tt.want) > 1e-12 {
			t.Fatalf("%s%v: expected %v, got %v", tt.name, tt.args, tt.want, got)
		}
	}
}

func TestCall_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []float64
		err  error
	}{
		{"sin", nil, builtins.ErrWrongArity},
		{"pi", []float64{1}, builtins.ErrWrongArity},
		{"atan2", []float64{1}, builtins.ErrWrongArity},
		{"log", []float64{-1}, builtins.ErrArgumentOutOfDomain},
		{"sqrt", []float64{-4}, builtins.ErrArgumentOutOfDomain},
		{"exp", []float64{1000}, builtins.ErrResultOutOfRange},
		{"log", []float64{0}, builtins.ErrResultOutOfRange},
	}
	for _, tt := range tests {
		_, err := builtins.LookupByName(tt.name).Call(fixedRand(0), tt.args)
		if !errors.Is(err, tt.err) {
			t.Fatalf("%s%v: expected %v, got %v", tt.name, tt.args, tt.err, err)
		}
	}
}

func TestCheck_PassesThroughNaNInput(t *testing.T) {
	if err := builtins.Check(gomath.NaN(), gomath.NaN()); err != nil {
		t.Fatalf("expected no error for NaN in, NaN out, got %v", err)
	}
	if err := builtins.Check(gomath.Inf(1), gomath.Inf(1)); err != nil {
		t.Fatalf("expected no error for Inf in, Inf out, got %v", err)
	}
}

func TestSignatureInArityError(t *testing.T) {
	tests := []struct {
		name string
		sig  string
	}{
		{"atan2", "atan2(y, x)"},
		{"sin", "sin(x)"},
		{"rand", "rand()"},
		{"pi", "pi"},
	}
	for _, tt := range tests {
		b := builtins.LookupByName(tt.name)
		if got := b.Meta.Signature(); got != tt.sig {
			t.Fatalf("%s: expected signature %q, got %q", tt.name, tt.sig, got)
		}
	}

	_, err := builtins.LookupByName("atan2").Call(fixedRand(0), []float64{1})
	if err == nil || !strings.HasPrefix(err.Error(), "atan2(y, x): wrong arity") {
		t.Fatalf("expected the signature in the arity error, got %v", err)
	}
}
