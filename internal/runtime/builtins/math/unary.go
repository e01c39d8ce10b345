package math

import (
	gomath "math"

	"hoc/internal/runtime/builtins"
)

func init() {
	unary := []struct {
		id   builtins.ID
		name string
		fn   func(float64) float64
	}{
		{builtins.Int, "int", integer},
		{builtins.Abs, "abs", gomath.Abs},
		{builtins.Atan, "atan", gomath.Atan},
		{builtins.Cos, "cos", gomath.Cos},
		{builtins.Exp, "exp", gomath.Exp},
		{builtins.Log, "log", gomath.Log},
		{builtins.Log10, "log10", gomath.Log10},
		{builtins.Sin, "sin", gomath.Sin},
		{builtins.Sqrt, "sqrt", gomath.Sqrt},
	}
	for _, u := range unary {
		builtins.Register(builtins.Builtin{
			Meta: builtins.Meta{
				ID:         u.id,
				Name:       u.name,
				Arity:      1,
				ParamNames: []string{"x"},
			},
			F1: u.fn,
		})
	}
}

// integer truncates toward zero.
func integer(x float64) float64 {
	return gomath.Trunc(x)
}
