// Package config holds the farm profile: where the Tractor engine lives and
// how abstract node requirements translate into service key expressions.
package config

import (
	"fmt"
	"sort"
	"strings"
)

// Level grades a resource requirement, mirroring the node descriptor levels
// of the compute-graph tool.
type Level int

const (
	// LevelScript marks lightweight orchestration work that belongs on the
	// sliced script blades rather than full render blades.
	LevelScript Level = iota - 1
	LevelNone
	LevelNormal
	LevelIntensive
	LevelExtreme
)

var levelNames = map[Level]string{
	LevelScript:    "SCRIPT",
	LevelNone:      "NONE",
	LevelNormal:    "NORMAL",
	LevelIntensive: "INTENSIVE",
	LevelExtreme:   "EXTREME",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// ParseLevel converts a level name (any case) into a Level.
func ParseLevel(name string) (Level, error) {
	for level, n := range levelNames {
		if strings.EqualFold(name, n) {
			return level, nil
		}
	}
	return LevelNone, fmt.Errorf("config: unknown requirement level %q", name)
}

// RequirementClass maps levels to service key expressions for one resource
// class (CPU or GPU), with a parallel RAM table appended to the selection.
type RequirementClass struct {
	Levels map[Level]string
	RAM    map[Level]string
}

// Profile is the resolved farm configuration a submitter runs with.
type Profile struct {
	// EngineURL is the base URL of the Tractor engine, e.g.
	// "http://tractor-engine:80".
	EngineURL string

	// DefaultService is the service key expression applied when a job or
	// task does not state its own.
	DefaultService string
	// ScriptService is the expression for script-level work.
	ScriptService string
	// DefaultLimits are limit tags appended to every command.
	DefaultLimits []string
	// DefaultShares are the farm shares (projects) jobs are billed to.
	DefaultShares []string

	// Prod is the production tag stamped on job and task metadata.
	Prod string
	// User overrides the job owner; empty means the submitting user.
	User string

	// ScriptsDir is where helper executables live on the blades; resolved
	// from the submitter scripts directory variables.
	ScriptsDir string

	// Priorities maps symbolic priority names to engine values.
	Priorities map[string]int

	// Licenses maps licence names to the limit tags the engine tracks them
	// under.
	Licenses map[string]string

	CPU RequirementClass
	GPU RequirementClass

	// DefaultSubmitter names the submitter used when the caller does not
	// pick one.
	DefaultSubmitter string
}

// Priority resolves a symbolic priority name. Unknown names are an error
// rather than a silent fallback.
func (p *Profile) Priority(name string) (int, error) {
	if name == "" {
		name = "normal"
	}
	value, ok := p.Priorities[strings.ToLower(name)]
	if !ok {
		known := make([]string, 0, len(p.Priorities))
		for k := range p.Priorities {
			known = append(known, k)
		}
		sort.Strings(known)
		return 0, fmt.Errorf("config: unknown priority %q (known: %s)", name, strings.Join(known, ", "))
	}
	return value, nil
}

// Limit translates a licence name into its limit tag.
func (p *Profile) Limit(license string) string {
	if tag, ok := p.Licenses[license]; ok {
		return tag
	}
	return license
}

// ServiceExpr resolves the service key expression for a task given its
// resource requirement levels. GPU work selects the GPU table, script-level
// CPU work with no GPU requirement goes to the script blades, and everything
// else selects the CPU table. The RAM expression of the selected class is
// appended, as are negated host terms for every excluded host.
func (p *Profile) ServiceExpr(cpu, ram, gpu Level, excludeHosts []string) (string, error) {
	if cpu == LevelScript && gpu <= LevelNone {
		return p.ScriptService, nil
	}

	class, level := p.CPU, cpu
	if gpu > LevelNone {
		class, level = p.GPU, gpu
	}

	expr, ok := class.Levels[level]
	if !ok {
		return "", fmt.Errorf("config: no service expression for level %s", level)
	}
	if ramExpr := class.RAM[ram]; ramExpr != "" {
		expr += "," + ramExpr
	}
	for _, host := range excludeHosts {
		if host != "" {
			expr += ",!" + host
		}
	}
	return expr, nil
}
