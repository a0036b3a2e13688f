package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/farmspool/internal/ctxlog"
	"github.com/vk/farmspool/internal/fsutil"
)

// Loader reads farm profile files in HCL format.
type Loader struct{}

// NewLoader creates a new HCL profile loader.
func NewLoader() *Loader {
	return &Loader{}
}

// profileFile mirrors the top-level attributes of a profile file. All fields
// are optional; files overlay the built-in defaults and each other in load
// order, last file wins for scalars while tables merge per key.
type profileFile struct {
	EngineURL      *string             `hcl:"engine_url,optional"`
	DefaultService *string             `hcl:"default_service,optional"`
	ScriptService  *string             `hcl:"script_service,optional"`
	DefaultLimits  []string            `hcl:"default_limits,optional"`
	DefaultShares  []string            `hcl:"default_shares,optional"`
	Prod           *string             `hcl:"prod,optional"`
	Priorities     map[string]int      `hcl:"priorities,optional"`
	Licenses       map[string]string   `hcl:"licenses,optional"`
	Requirements   []*requirementBlock `hcl:"requirements,block"`
	Remain         hcl.Body            `hcl:",remain"`
}

// requirementBlock is a `requirements "cpu" { ... }` block mapping level
// names to service key expressions.
type requirementBlock struct {
	Class  string            `hcl:"class,label"`
	Levels map[string]string `hcl:"levels"`
	RAM    map[string]string `hcl:"ram,optional"`
}

// Load discovers .hcl files under the given paths and overlays them, in
// order, on top of the built-in default profile.
func (l *Loader) Load(ctx context.Context, paths ...string) (*Profile, error) {
	logger := ctxlog.FromContext(ctx)
	profile := DefaultProfile()

	var files []string
	for _, path := range paths {
		if path == "" {
			continue
		}
		found, err := fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, fmt.Errorf("config: discovering profile files under %s: %w", path, err)
		}
		files = append(files, found...)
	}
	logger.Debug("Discovered profile files.", "count", len(files))

	parser := hclparse.NewParser()
	evalCtx := evalContext()
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("config: parsing %s: %w", file, diags)
		}

		var root profileFile
		if diags := gohcl.DecodeBody(hclFile.Body, evalCtx, &root); diags.HasErrors() {
			return nil, fmt.Errorf("config: decoding %s: %w", file, diags)
		}

		if err := merge(profile, &root); err != nil {
			return nil, fmt.Errorf("config: %s: %w", file, err)
		}
		logger.Debug("Profile file applied.", "file", file)
	}

	return profile, nil
}

// evalContext exposes the process environment to profile expressions, so a
// file can write e.g. `prod = env.PROD`.
func evalContext() *hcl.EvalContext {
	vars := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			vars[k] = cty.StringVal(v)
		}
	}
	env := cty.EmptyObjectVal
	if len(vars) > 0 {
		env = cty.ObjectVal(vars)
	}
	return &hcl.EvalContext{Variables: map[string]cty.Value{"env": env}}
}

func merge(p *Profile, f *profileFile) error {
	if f.EngineURL != nil {
		p.EngineURL = *f.EngineURL
	}
	if f.DefaultService != nil {
		p.DefaultService = *f.DefaultService
	}
	if f.ScriptService != nil {
		p.ScriptService = *f.ScriptService
	}
	if f.DefaultLimits != nil {
		p.DefaultLimits = f.DefaultLimits
	}
	if f.DefaultShares != nil {
		p.DefaultShares = f.DefaultShares
	}
	if f.Prod != nil {
		p.Prod = *f.Prod
	}
	for name, value := range f.Priorities {
		p.Priorities[name] = value
	}
	for name, tag := range f.Licenses {
		p.Licenses[name] = tag
	}
	for _, block := range f.Requirements {
		class, err := classFor(p, block.Class)
		if err != nil {
			return err
		}
		if err := mergeLevels(class.Levels, block.Levels); err != nil {
			return err
		}
		if err := mergeLevels(class.RAM, block.RAM); err != nil {
			return err
		}
	}
	return nil
}

func classFor(p *Profile, name string) (*RequirementClass, error) {
	switch name {
	case "cpu":
		return &p.CPU, nil
	case "gpu":
		return &p.GPU, nil
	default:
		return nil, fmt.Errorf("unknown requirements class %q (want cpu or gpu)", name)
	}
}

func mergeLevels(dst map[Level]string, src map[string]string) error {
	for name, expr := range src {
		level, err := ParseLevel(name)
		if err != nil {
			return err
		}
		dst[level] = expr
	}
	return nil
}
