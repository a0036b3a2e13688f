package config

// DefaultProfile returns the built-in farm profile. Site configuration files
// and environment variables overlay it rather than replace it.
func DefaultProfile() *Profile {
	return &Profile{
		EngineURL:     "http://tractor-engine:80",
		ScriptService: "mikrosScript",
		Prod:          "mvg",
		Priorities: map[string]int{
			"low":    4000,
			"normal": 5000,
			"high":   10000,
		},
		Licenses: map[string]string{
			"mtoa":     "arnold",
			"houdiniE": "houdinie",
		},
		CPU: RequirementClass{
			Levels: map[Level]string{
				LevelNone:      "mikrosRender",
				LevelNormal:    "mikrosRender",
				LevelIntensive: "mikrosRender,rnd",
				LevelExtreme:   "mikrosRender,rnd,@.nCPU>200",
			},
			RAM: map[Level]string{
				// ram64 is the minimum for all machines, so NONE and
				// NORMAL add nothing.
				LevelIntensive: "ram128",
				LevelExtreme:   "ram256",
			},
		},
		GPU: RequirementClass{
			Levels: map[Level]string{
				LevelNone:      "mikrosRender",
				LevelNormal:    "mikrosRender,cuda8G",
				LevelIntensive: "mikrosRender,cuda16G",
				LevelExtreme:   "mikrosRender,cuda16G,cudaC",
			},
			RAM: map[Level]string{
				LevelIntensive: "ram128",
				LevelExtreme:   "ram128",
			},
		},
		DefaultShares:    []string{"vfx"},
		DefaultSubmitter: "Tractor",
	}
}
