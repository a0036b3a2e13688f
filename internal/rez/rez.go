// Package rez captures the rez package context of the submitting process and
// wraps farm commands so they re-enter the same context on a blade.
//
// All functions operate on an Env snapshot rather than the live process
// environment, so the resolution logic stays deterministic and testable.
package rez

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Env is a point-in-time snapshot of environment variables.
type Env map[string]string

// delimiterPattern splits a rez package request into name and version
// constraint, e.g. "meshroom-2023.2" or "mtoa>=5".
var delimiterPattern = regexp.MustCompile(`-|==|>=|>|<=|<`)

// Get returns the value for key, or an empty string when unset.
func (e Env) Get(key string) string {
	if e == nil {
		return ""
	}
	return e[key]
}

// ResolvedVersions parses REZ_RESOLVE into a {packageName: version} map for
// the current context. Implicit packages (prefixed with '~') are skipped and
// versions containing hyphens are rejoined.
func ResolvedVersions(env Env) map[string]string {
	versions := make(map[string]string)
	for _, pkg := range strings.Fields(env.Get("REZ_RESOLVE")) {
		if strings.HasPrefix(pkg, "~") {
			continue
		}
		parts := strings.Split(pkg, "-")
		if len(parts) < 2 {
			continue
		}
		versions[parts[0]] = strings.Join(parts[1:], "-")
	}
	return versions
}

// RequestPackages returns the packages required for a job, pinned with the
// given delimiter against the versions resolved in the current context.
//
// The "==" delimiter is the default so the job runs with exactly the
// versions of the environment Meshroom was launched from. When no rez
// request is active, REZ_MESHROOM_VERSION alone is used; when neither is
// set the job carries no packages.
func RequestPackages(env Env, delimiter string) ([]string, error) {
	if delimiter == "" {
		delimiter = "=="
	}

	if _, ok := env["REZ_REQUEST"]; !ok {
		if v := env.Get("REZ_MESHROOM_VERSION"); v != "" {
			return []string{"meshroom" + delimiter + v}, nil
		}
		return nil, nil
	}

	names := make(map[string]struct{})
	for _, pkg := range strings.Fields(env.Get("REZ_USED_REQUEST")) {
		if strings.HasPrefix(pkg, "~") || strings.HasPrefix(pkg, "!") {
			continue
		}
		names[delimiterPattern.Split(pkg, 2)[0]] = struct{}{}
	}

	resolved := ResolvedVersions(env)
	packages := make([]string, 0, len(names))
	for name := range names {
		version, ok := resolved[name]
		if !ok {
			return nil, fmt.Errorf("rez: requested package %q has no resolved version", name)
		}
		packages = append(packages, name+delimiter+version)
	}
	sort.Strings(packages)
	return packages, nil
}

// WrapOptions controls how WrapCommand selects the packages of the wrapped
// context.
type WrapOptions struct {
	// UseCurrentContext takes the full resolved context (REZ_RESOLVE)
	// instead of only the requested packages.
	UseCurrentContext bool
	// ExtraPackages are appended to the selected set.
	ExtraPackages []string
}

// WrapCommand wraps cmd in a `rez env <packages> -- cmd` invocation. When no
// package can be determined the command is returned untouched.
func WrapCommand(env Env, cmd string, opts WrapOptions) (string, error) {
	set := make(map[string]struct{})
	if opts.UseCurrentContext {
		for _, pkg := range strings.Fields(env.Get("REZ_RESOLVE")) {
			set[pkg] = struct{}{}
		}
	} else {
		packages, err := RequestPackages(env, "==")
		if err != nil {
			return "", err
		}
		for _, pkg := range packages {
			set[pkg] = struct{}{}
		}
	}
	for _, pkg := range opts.ExtraPackages {
		if pkg != "" {
			set[pkg] = struct{}{}
		}
	}

	if len(set) == 0 {
		return cmd, nil
	}
	packages := make([]string, 0, len(set))
	for pkg := range set {
		packages = append(packages, pkg)
	}
	sort.Strings(packages)

	return fmt.Sprintf("%s env %s -- %s", binary(env), strings.Join(packages, " "), cmd), nil
}

// binary locates the rez executable for the wrapped command.
func binary(env Env) string {
	if bin := env.Get("REZ_BIN"); bin != "" {
		return bin
	}
	if root := env.Get("REZ_PACKAGES_ROOT"); root != "" {
		return filepath.Join(root, "bin", "rez")
	}
	return "rez"
}
