package envutil

import (
	"fmt"

	"github.com/drone/envsubst"
)

// ExpandEnv substitutes ${VAR} style references in s with values from
// the environment.
func ExpandEnv(s string) (string, error) {
	val, err := envsubst.EvalEnv(s)
	if err != nil {
		return "", fmt.Errorf("expanding %q: %w", s, err)
	}
	return val, nil
}

// ExpandAll expands each of the given strings in place, stopping at
// the first failure.
func ExpandAll(s ...*string) error {
	for _, v := range s {
		out, err := ExpandEnv(*v)
		if err != nil {
			return err
		}
		*v = out
	}
	return nil
}
