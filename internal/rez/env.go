package rez

import (
	"os"
	"strings"
)

// EnvFromOS snapshots the process environment.
func EnvFromOS() Env {
	env := make(Env, len(os.Environ()))
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

// passthroughKeys are the variables a farm job inherits from the submitting
// environment so the blade resolves packages against the same roots.
var passthroughKeys = []string{
	"REZ_DEV_PACKAGES_ROOT",
	"REZ_PROD_PACKAGES_PATH",
	"PROD",
	"PROD_ROOT",
}

// JobEnvironment returns the subset of env that is forwarded to every
// submitted job.
func JobEnvironment(env Env) map[string]string {
	out := make(map[string]string)
	for _, key := range passthroughKeys {
		if v, ok := env[key]; ok {
			out[key] = v
		}
	}
	return out
}
