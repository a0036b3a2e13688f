// Package simplefarm is a thin job-authoring façade over the farm job model,
// for callers that build task graphs by hand instead of submitting a project
// file.
//
// Jobs are addressed to a named engine. "tractor" spools to the configured
// Tractor engine; "tractor-dummy" builds and serializes the job without
// contacting anything, which is how pipelines validate a submission.
package simplefarm

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/farmspool/internal/config"
	"github.com/vk/farmspool/internal/engine"
	"github.com/vk/farmspool/internal/job"
	"github.com/vk/farmspool/internal/rez"
)

// Engine names accepted by Job.Submit.
const (
	EngineTractor = "tractor"
	EngineDummy   = "tractor-dummy"
)

// Farm binds jobs to a profile, an environment snapshot and an engine client.
type Farm struct {
	profile *config.Profile
	env     rez.Env
	client  *engine.Client
}

// New creates a farm handle. client may be nil when only the dummy engine is
// used.
func New(profile *config.Profile, env rez.Env, client *engine.Client) *Farm {
	return &Farm{profile: profile, env: env, client: client}
}

// Job wraps one farm job under construction.
type Job struct {
	farm  *Farm
	inner *job.Job
}

// Task wraps one task of a job.
type Task struct {
	inner *job.Task
}

// NewJob starts an empty job. Tags may be nil.
func (f *Farm) NewJob(name string, tags map[string]string) *Job {
	return &Job{
		farm: f,
		inner: job.New(job.Spec{
			Name:        name,
			Tags:        tags,
			Environment: rez.JobEnvironment(f.env),
		}, f.profile, f.env),
	}
}

// NewTask adds a task running the compute executable with the given
// arguments.
func (j *Job) NewTask(name, commandArgs string) *Task {
	return &Task{inner: j.inner.CreateTask(job.TaskSpec{
		Name:        name,
		CommandArgs: commandArgs,
	})}
}

// DependsOn records that t runs only after deps completed.
func (t *Task) DependsOn(deps ...*Task) {
	inner := make([]*job.Task, len(deps))
	for i, dep := range deps {
		inner[i] = dep.inner
	}
	t.inner.DependsOn(inner...)
}

// Submit sends the job to the named engine.
func (j *Job) Submit(ctx context.Context, engineName, priority string, shares []string) (*job.Result, error) {
	opts := job.SubmitOptions{Priority: priority, Shares: shares}
	switch strings.ToLower(engineName) {
	case EngineDummy:
		opts.DryRun = true
	case EngineTractor, "":
		if j.farm.client == nil {
			return nil, fmt.Errorf("simplefarm: no engine client configured for %q", EngineTractor)
		}
	default:
		return nil, fmt.Errorf("simplefarm: unknown engine %q (known: %s, %s)", engineName, EngineTractor, EngineDummy)
	}
	return j.inner.Submit(ctx, j.farm.client, opts)
}
