// Package app wires the farm profile, the engine client and the submitter
// registry together, decoupled from any specific entrypoint like a CLI.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/vk/farmspool/internal/config"
	"github.com/vk/farmspool/internal/ctxlog"
	"github.com/vk/farmspool/internal/engine"
	"github.com/vk/farmspool/internal/fsutil"
	"github.com/vk/farmspool/internal/job"
	"github.com/vk/farmspool/internal/meshroom"
	"github.com/vk/farmspool/internal/rez"
	"github.com/vk/farmspool/internal/submitter"
)

// Config holds everything an App needs to start.
type Config struct {
	// ConfigPath is an explicit profile file or directory; empty means the
	// MR_SUBMITTERS_CONFIGS directory, if set.
	ConfigPath string

	LogFormat string
	LogLevel  string
}

// App encapsulates the application's dependencies and configuration.
type App struct {
	ctx      context.Context
	logger   *slog.Logger
	profile  *config.Profile
	env      rez.Env
	client   *engine.Client
	registry *submitter.Registry
}

// New builds a fully initialized App: profile from defaults, configuration
// files and environment overlays, an engine client with a persisted session,
// and the submitter registry.
func New(ctx context.Context, errW io.Writer, cfg Config) (*App, error) {
	logger := NewLogger(cfg.LogLevel, cfg.LogFormat, errW)
	ctx = ctxlog.WithLogger(ctx, logger)

	v := config.NewEnv()
	var paths []string
	if cfg.ConfigPath != "" {
		paths = append(paths, cfg.ConfigPath)
	} else if path := profilePath(v); path != "" {
		paths = append(paths, path)
	}

	profile, err := config.NewLoader().Load(ctx, paths...)
	if err != nil {
		return nil, fmt.Errorf("app: loading profile: %w", err)
	}
	config.ApplyEnv(profile, v)
	logger.Debug("Profile resolved.", "engine", profile.EngineURL, "defaultSubmitter", profile.DefaultSubmitter)

	env := rez.EnvFromOS()

	var clientOpts []engine.Option
	if store, err := engine.DefaultSessionStore(); err == nil {
		clientOpts = append(clientOpts, engine.WithSessionStore(store))
	} else {
		logger.Warn("Engine sessions will not persist.", "error", err)
	}
	client := engine.New(profile.EngineURL, clientOpts...)

	registry := submitter.NewRegistry(profile.DefaultSubmitter)
	registry.Register(submitter.NewTractor(profile, env, client))

	return &App{
		ctx:      ctx,
		logger:   logger,
		profile:  profile,
		env:      env,
		client:   client,
		registry: registry,
	}, nil
}

// profilePath picks the profile source when no explicit --config was given:
// the MR_SUBMITTERS_CONFIGS directory, then the user's own config directory.
func profilePath(v *viper.Viper) string {
	var candidates []string
	if dir := config.ConfigDir(v); dir != "" {
		candidates = append(candidates, dir)
	}
	if home, err := homedir.Dir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".farmspool", "config"))
	}
	return fsutil.FirstExisting(candidates...)
}

// Context returns the app context, carrying the configured logger.
func (a *App) Context() context.Context {
	return a.ctx
}

// Profile returns the resolved farm profile.
func (a *App) Profile() *config.Profile {
	return a.profile
}

// Submitters lists the registered submitter names.
func (a *App) Submitters() []string {
	return a.registry.Names()
}

// Submit reads the project file and routes it to the named submitter, or the
// default one when submitterName is empty.
func (a *App) Submit(projectPath, submitterName string, opts submitter.Options) (*job.Result, error) {
	project, err := meshroom.ReadProject(projectPath)
	if err != nil {
		return nil, err
	}
	s, err := a.registry.Lookup(submitterName)
	if err != nil {
		return nil, err
	}
	return s.Submit(a.ctx, project, opts)
}

// Query fetches the state of a job from the named submitter's engine.
func (a *App) Query(submitterName string, jid int) (*engine.JobStatus, error) {
	s, err := a.registry.Lookup(submitterName)
	if err != nil {
		return nil, err
	}
	return s.Query(a.ctx, jid)
}

// Login authenticates against the engine monitor; the session persists for
// later queries.
func (a *App) Login(user, password string) error {
	return a.client.Login(a.ctx, user, password)
}
