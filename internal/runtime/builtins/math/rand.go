package math

import "hoc/internal/runtime/builtins"

func init() {
	builtins.Register(builtins.Builtin{
		Meta: builtins.Meta{
			ID:         builtins.Rand,
			Name:       "rand",
			Arity:      0,
			ParamNames: []string{},
		},
		F0: func(env builtins.Env) float64 {
			if env == nil {
				return 0
			}
			return env.Rand()
		},
	})
}
