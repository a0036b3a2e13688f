// Package submitter routes compute-graph projects to a named farm backend.
//
// Submitters register under a name; callers pick one explicitly or fall back
// to the configured default (MESHROOM_DEFAULT_SUBMITTER).
package submitter

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/vk/farmspool/internal/engine"
	"github.com/vk/farmspool/internal/job"
	"github.com/vk/farmspool/internal/meshroom"
)

// Options qualify one submission.
type Options struct {
	// Label overrides the job title. "{projectName}" expands to the project's
	// base name; an empty label means the template alone.
	Label string
	// Priority is a symbolic name resolved against the profile table.
	Priority string
	// Shares overrides the profile's default farm shares.
	Shares []string
	// ExcludeHosts adds negated host terms to every service expression.
	ExcludeHosts []string
	// Paused spools the job in the paused state.
	Paused bool
	// DryRun builds and serializes the job without contacting the engine.
	DryRun bool
}

// Submitter submits projects to one farm backend.
type Submitter interface {
	Name() string
	Submit(ctx context.Context, project *meshroom.Project, opts Options) (*job.Result, error)
	Query(ctx context.Context, jid int) (*engine.JobStatus, error)
}

// Registry holds the known submitters and the default selection.
type Registry struct {
	mu          sync.RWMutex
	submitters  map[string]Submitter
	defaultName string
}

// NewRegistry creates an empty registry. defaultName is used when a lookup
// does not name a submitter.
func NewRegistry(defaultName string) *Registry {
	return &Registry{
		submitters:  make(map[string]Submitter),
		defaultName: defaultName,
	}
}

// Register installs a submitter under its name. Names are matched without
// case.
func (r *Registry) Register(s Submitter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submitters[strings.ToLower(s.Name())] = s
}

// Lookup returns the submitter registered under name, or the default one
// when name is empty.
func (r *Registry) Lookup(name string) (Submitter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name == "" {
		name = r.defaultName
	}
	if s, ok := r.submitters[strings.ToLower(name)]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("submitter: unknown submitter %q (known: %s)", name, strings.Join(r.names(), ", "))
}

// Names lists the registered submitter names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.names()
}

func (r *Registry) names() []string {
	names := make([]string, 0, len(r.submitters))
	for _, s := range r.submitters {
		names = append(names, s.Name())
	}
	sort.Strings(names)
	return names
}
