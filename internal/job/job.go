// Package job models a farm job as a graph of tasks and cooks it into an
// authored Tractor job ready to spool.
//
// A task corresponds to one compute-graph node. Cooking turns it into either
// a single engine task, a grouping task with one subtask per chunk, or an
// expanding task whose command spools its own subtasks at runtime.
package job

import (
	"fmt"
	"os/user"

	"github.com/google/uuid"

	"github.com/vk/farmspool/internal/config"
	"github.com/vk/farmspool/internal/rez"
)

const (
	computeCommand      = "meshroom_compute"
	createChunksCommand = "meshroom_createChunks"
	wrapperCommand      = "farmspool"
)

// Spec carries the job-level settings.
type Spec struct {
	Name        string
	Tags        map[string]string
	ServiceExpr string
	Environment map[string]string
	User        string
	Comment     string
	Paused      bool
	Shares      []string
}

// TaskSpec carries everything needed to cook one task.
type TaskSpec struct {
	Name string
	// UID identifies the compute-graph node; tasks with the same UID are
	// the same task. Empty UIDs are filled with a generated one.
	UID string
	// CommandArgs are the arguments passed to the compute executable.
	CommandArgs string
	ServiceExpr string
	Licenses    []string
	RezPackages []string
	Environment map[string]string
	Tags        map[string]string
	// CacheDir overrides the compute cache directory; appended to the
	// command as --cache when set.
	CacheDir string
	// Expanding tasks create their own subtasks at runtime instead of
	// being chunked at submission.
	Expanding bool
	Chunks    *ChunkParams
}

// Args returns the compute arguments with the cache directory appended when
// one is set. The directory is quoted verbatim, matching the quote handling
// of SplitArgs (no escape sequences).
func (s *TaskSpec) Args() string {
	if s.CacheDir == "" {
		return s.CommandArgs
	}
	return s.CommandArgs + ` --cache "` + s.CacheDir + `"`
}

// Job is a task graph plus its job-level spec, bound to a farm profile and
// the rez context of the submitting process.
type Job struct {
	Spec  Spec
	Graph *Graph

	profile *config.Profile
	env     rez.Env
}

// New creates an empty job.
func New(spec Spec, profile *config.Profile, env rez.Env) *Job {
	return &Job{
		Spec:    spec,
		Graph:   NewGraph(),
		profile: profile,
		env:     env,
	}
}

// CreateTask adds a task to the job. The spec's tags are copied and stamped
// with the node UID; an empty UID gets a generated one. Creating a task for
// a UID already in the graph returns the existing task.
func (j *Job) CreateTask(spec TaskSpec) *Task {
	if spec.UID == "" {
		spec.UID = uuid.NewString()
	}
	tags := make(map[string]string, len(spec.Tags)+1)
	for k, v := range spec.Tags {
		tags[k] = v
	}
	tags["nodeUid"] = spec.UID
	spec.Tags = tags
	return j.Graph.Add(spec)
}

// owner resolves the job owner: explicit spec user, profile user, then the
// submitting process's identity.
func (j *Job) owner() string {
	if j.Spec.User != "" {
		return j.Spec.User
	}
	if j.profile.User != "" {
		return j.profile.User
	}
	if u := j.env.Get("FARM_USER"); u != "" {
		return u
	}
	if u := j.env.Get("USER"); u != "" {
		return u
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return "unknown"
}

// service resolves a task or job service expression against the profile
// default.
func (j *Job) service(expr string) (string, error) {
	if expr != "" {
		return expr, nil
	}
	if j.profile.DefaultService != "" {
		return j.profile.DefaultService, nil
	}
	return "", fmt.Errorf("job: no service expression and no default service configured (set %s)", config.EnvDefaultService)
}

// limits maps the task's licences through the profile and appends the
// profile-wide default limits.
func (j *Job) limits(spec *TaskSpec) []string {
	var limits []string
	for _, lic := range spec.Licenses {
		limits = append(limits, j.profile.Limit(lic))
	}
	return append(limits, j.profile.DefaultLimits...)
}
