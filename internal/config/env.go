package config

import (
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Environment variable names recognized by the submitter. The misspelled
// scripts variable matches the name used by deployed environments and is
// honored alongside the corrected spelling.
const (
	EnvEngine           = "TRACTOR_ENGINE"
	EnvDefaultService   = "DEFAULT_TRACTOR_SERVICE"
	EnvDefaultLimit     = "DEFAULT_TRACTOR_LIMIT"
	EnvDefaultShares    = "DEFAULT_FARM_SHARE_TRACTOR"
	EnvTractorShare     = "MESHROOM_TRACTOR_SHARE"
	EnvProd             = "PROD"
	EnvFarmUser         = "FARM_USER"
	EnvSubmittersPath   = "MESHROOM_SUBMITTERS_PATH"
	EnvConfigsDir       = "MR_SUBMITTERS_CONFIGS"
	EnvScriptsDir       = "MR_SUBMITTERS_SCRIPTS"
	EnvScriptsDirLegacy = "MR_SUBMITTERS_SCRITPS"
	EnvDefaultSubmitter = "MESHROOM_DEFAULT_SUBMITTER"
)

// NewEnv returns a viper instance bound to the submitter's environment
// variables. Reading through viper keeps the lookup overridable in tests
// and from config files.
func NewEnv() *viper.Viper {
	v := viper.New()
	for _, name := range []string{
		EnvEngine,
		EnvDefaultService,
		EnvDefaultLimit,
		EnvDefaultShares,
		EnvTractorShare,
		EnvProd,
		EnvFarmUser,
		EnvSubmittersPath,
		EnvConfigsDir,
		EnvScriptsDir,
		EnvScriptsDirLegacy,
		EnvDefaultSubmitter,
	} {
		// BindEnv with a single argument uses the key itself as the
		// variable name.
		_ = v.BindEnv(name)
	}
	return v
}

// ConfigDir returns the directory holding submitter profile files: the
// explicit MR_SUBMITTERS_CONFIGS value, else the config folder under the
// submitters root.
func ConfigDir(v *viper.Viper) string {
	if dir := v.GetString(EnvConfigsDir); dir != "" {
		return dir
	}
	if root := v.GetString(EnvSubmittersPath); root != "" {
		return filepath.Join(root, "config")
	}
	return ""
}

// ApplyEnv overlays environment-provided settings on the profile.
func ApplyEnv(p *Profile, v *viper.Viper) {
	if engine := v.GetString(EnvEngine); engine != "" {
		if !strings.Contains(engine, "://") {
			engine = "http://" + engine
		}
		p.EngineURL = engine
	}
	if service := v.GetString(EnvDefaultService); service != "" {
		p.DefaultService = service
	}
	if limit := v.GetString(EnvDefaultLimit); limit != "" {
		p.DefaultLimits = append(p.DefaultLimits, limit)
	}
	if shares := v.GetString(EnvDefaultShares); shares != "" {
		p.DefaultShares = splitComma(shares)
	}
	if share := v.GetString(EnvTractorShare); share != "" {
		p.DefaultShares = []string{share}
	}
	if prod := v.GetString(EnvProd); prod != "" {
		p.Prod = prod
	}
	if user := v.GetString(EnvFarmUser); user != "" {
		p.User = user
	}
	if dir := scriptsDir(v); dir != "" {
		p.ScriptsDir = dir
	}
	if submitter := v.GetString(EnvDefaultSubmitter); submitter != "" {
		p.DefaultSubmitter = submitter
	}
}

func scriptsDir(v *viper.Viper) string {
	if dir := v.GetString(EnvScriptsDir); dir != "" {
		return dir
	}
	if dir := v.GetString(EnvScriptsDirLegacy); dir != "" {
		return dir
	}
	if root := v.GetString(EnvSubmittersPath); root != "" {
		return filepath.Join(root, "script")
	}
	return ""
}

func splitComma(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
