package math

import (
	gomath "math"

	"hoc/internal/runtime/builtins"
)

func init() {
	constants := []struct {
		id    builtins.ID
		name  string
		value float64
	}{
		{builtins.Pi, "pi", gomath.Pi},
		{builtins.E, "e", gomath.E},
		{builtins.Gamma, "gamma", 0.57721566490153286060}, // Euler-Mascheroni
		{builtins.Deg, "deg", 57.29577951308232087680},    // degrees per radian
		{builtins.Phi, "phi", 1.61803398874989484820},     // golden ratio
	}
	for _, c := range constants {
		builtins.Register(builtins.Builtin{
			Meta: builtins.Meta{
				ID:         c.id,
				Name:       c.name,
				Arity:      builtins.Constant,
				ParamNames: []string{},
			},
			Value: c.value,
		})
	}
}
