package math

import (
	gomath "math"

	"hoc/internal/runtime/builtins"
)

func init() {
	builtins.Register(builtins.Builtin{
		Meta: builtins.Meta{
			ID:         builtins.Atan2,
			Name:       "atan2",
			Arity:      2,
			ParamNames: []string{"y", "x"},
		},
		F2: gomath.Atan2,
	})
}
