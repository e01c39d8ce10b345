package runtime

import (
	"hoc/internal/runtime/builtins"
	// Import all builtin packages to trigger their init() functions for self-registration
	_ "hoc/internal/runtime/builtins/math"
)

// CallBuiltin executes a builtin identified by builtins.ID with the given
// numeric arguments, using services from Env.
func CallBuiltin(env *Env, id builtins.ID, args []float64) (float64, error) {
	return builtins.Call(env, id, args)
}

// Builtins returns the metadata of every registered builtin, ordered by ID.
func Builtins() []builtins.Meta {
	return builtins.All()
}
